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

package api

// DeviceEventType enumerates device events the engine reacts to.
type DeviceEventType int

const (
	// DeviceAdded is emitted for a newly discovered device.
	DeviceAdded DeviceEventType = iota

	// DeviceAvailabilityChanged is emitted when a device goes up or down.
	DeviceAvailabilityChanged

	// DeviceRemoved is emitted when a device is administratively removed.
	DeviceRemoved
)

// String converts device event type into a human-readable string.
func (t DeviceEventType) String() string {
	switch t {
	case DeviceAdded:
		return "DEVICE_ADDED"
	case DeviceAvailabilityChanged:
		return "DEVICE_AVAILABILITY_CHANGED"
	case DeviceRemoved:
		return "DEVICE_REMOVED"
	}
	return "UNKNOWN"
}

// DeviceEvent notifies about a change of a device.
type DeviceEvent struct {
	Type      DeviceEventType
	Device    DeviceID
	Available bool
}

// DeviceService is the external device inventory consumed by the engine.
type DeviceService interface {
	// IsAvailable returns true if the device is reachable.
	IsAvailable(device DeviceID) bool

	// Programmable probes the device for the generic flow programming
	// capability used by the fallback driver.
	Programmable(device DeviceID) (programmable FlowRuleProgrammable, supported bool)

	// Watch subscribes for notifications about device changes.
	Watch(subscriber string, callback func(DeviceEvent)) error
}
