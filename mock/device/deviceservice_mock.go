// Copyright (c) 2019 Cisco and/or its affiliates.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at:
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package device

import (
	"sort"
	"sync"

	"github.com/contiv/flowrule/plugins/flowrule/api"
)

// MockDeviceService is a mock for the device inventory (api.DeviceService).
type MockDeviceService struct {
	sync.Mutex

	devices   map[api.DeviceID]*MockDevice
	available map[api.DeviceID]bool
	watchers  map[string]func(api.DeviceEvent)
}

// NewMockDeviceService is a constructor for MockDeviceService.
func NewMockDeviceService() *MockDeviceService {
	return &MockDeviceService{
		devices:   make(map[api.DeviceID]*MockDevice),
		available: make(map[api.DeviceID]bool),
		watchers:  make(map[string]func(api.DeviceEvent)),
	}
}

// AddDevice adds available device. Programmable device is created
// unless <programmable> is false.
func (ms *MockDeviceService) AddDevice(id api.DeviceID, programmable bool) *MockDevice {
	ms.Lock()
	var dev *MockDevice
	if programmable {
		dev = NewMockDevice(id)
	}
	ms.devices[id] = dev
	ms.available[id] = true
	ms.Unlock()

	ms.notify(api.DeviceEvent{Type: api.DeviceAdded, Device: id, Available: true})
	return dev
}

// SetAvailable changes the availability of the device.
func (ms *MockDeviceService) SetAvailable(id api.DeviceID, available bool) {
	ms.Lock()
	ms.available[id] = available
	ms.Unlock()

	ms.notify(api.DeviceEvent{Type: api.DeviceAvailabilityChanged, Device: id, Available: available})
}

// RemoveDevice removes the device from the inventory.
func (ms *MockDeviceService) RemoveDevice(id api.DeviceID) {
	ms.Lock()
	delete(ms.devices, id)
	delete(ms.available, id)
	ms.Unlock()

	ms.notify(api.DeviceEvent{Type: api.DeviceRemoved, Device: id})
}

// ListAll returns IDs of all devices, sorted.
func (ms *MockDeviceService) ListAll() []api.DeviceID {
	ms.Lock()
	defer ms.Unlock()
	var ids []api.DeviceID
	for id := range ms.devices {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (ms *MockDeviceService) IsAvailable(id api.DeviceID) bool {
	ms.Lock()
	defer ms.Unlock()
	return ms.available[id]
}

func (ms *MockDeviceService) Programmable(id api.DeviceID) (api.FlowRuleProgrammable, bool) {
	ms.Lock()
	defer ms.Unlock()
	dev := ms.devices[id]
	if dev == nil {
		return nil, false
	}
	return dev, true
}

func (ms *MockDeviceService) Watch(subscriber string, callback func(api.DeviceEvent)) error {
	ms.Lock()
	defer ms.Unlock()
	ms.watchers[subscriber] = callback
	return nil
}

func (ms *MockDeviceService) notify(event api.DeviceEvent) {
	ms.Lock()
	var callbacks []func(api.DeviceEvent)
	for _, cb := range ms.watchers {
		callbacks = append(callbacks, cb)
	}
	ms.Unlock()
	for _, cb := range callbacks {
		cb(event)
	}
}
