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

package devicecache

import (
	"sort"
	"sync"
	"time"

	"github.com/ligato/cn-infra/idxmap"
	"github.com/ligato/cn-infra/idxmap/mem"
	"github.com/ligato/cn-infra/infra"
	"github.com/pkg/errors"

	"github.com/contiv/flowrule/plugins/flowrule/api"
)

const (
	availableKey = "availableKey"
	driverKey    = "driverKey"
)

// Device is a record of the device inventory.
type Device struct {
	ID        api.DeviceID
	Driver    string
	Available bool

	// Programmable is the generic flow programming capability of the device
	// (nil if not supported).
	Programmable api.FlowRuleProgrammable

	// lastChange is the type of the change that produced this record.
	lastChange api.DeviceEventType
}

// DeviceCache is an in-memory inventory of devices, implementing
// api.DeviceService. Primary index is the device ID, devices are further
// indexed by the availability and by the driver.
type DeviceCache struct {
	Deps

	config  *Config
	mu      sync.Mutex
	mapping idxmap.NamedMappingRW
}

// Deps lists dependencies of DeviceCache.
type Deps struct {
	infra.PluginDeps

	// Drivers build the programmable capability of configured devices,
	// keyed by the driver name.
	Drivers map[string]DriverFactory
}

// DriverFactory builds the flow programming capability of a device.
type DriverFactory func(id api.DeviceID) api.FlowRuleProgrammable

// Config lists statically configured devices.
type Config struct {
	Devices []DeviceConfig `json:"devices"`
}

// DeviceConfig is a statically configured device.
type DeviceConfig struct {
	ID     string `json:"id"`
	Driver string `json:"driver"`
}

// Init creates the index and registers the configured devices.
func (dc *DeviceCache) Init() error {
	dc.mapping = mem.NewNamedMapping(dc.Log, "devices", IndexFunction)
	dc.config = &Config{}
	if dc.Cfg != nil {
		found, err := dc.Cfg.LoadValue(dc.config)
		if err != nil {
			return err
		}
		if found {
			dc.Log.Debugf("%v config found: %+v", dc.PluginName, dc.config)
		}
	}
	for _, device := range dc.config.Devices {
		id := api.DeviceID(device.ID)
		var programmable api.FlowRuleProgrammable
		if factory, known := dc.Drivers[device.Driver]; known {
			programmable = factory(id)
		} else {
			dc.Log.Warnf("Unknown driver %q of device %s, device will not be programmable", device.Driver, id)
		}
		if err := dc.AddDevice(id, device.Driver, programmable); err != nil {
			return err
		}
	}
	return nil
}

// Close does nothing.
func (dc *DeviceCache) Close() error {
	return nil
}

// AddDevice adds available device into the inventory. If the device
// already exists, its driver and programmable capability are updated.
func (dc *DeviceCache) AddDevice(id api.DeviceID, driver string, programmable api.FlowRuleProgrammable) error {
	if id == "" {
		return errors.New("device ID must not be empty")
	}
	dc.mu.Lock()
	defer dc.mu.Unlock()
	dc.mapping.Put(string(id), &Device{
		ID:           id,
		Driver:       driver,
		Available:    true,
		Programmable: programmable,
		lastChange:   api.DeviceAdded,
	})
	dc.Log.Infof("Device %s (driver: %s) added", id, driver)
	return nil
}

// SetAvailable changes availability of the device.
func (dc *DeviceCache) SetAvailable(id api.DeviceID, available bool) error {
	dc.mu.Lock()
	defer dc.mu.Unlock()
	device, found := dc.lookup(id)
	if !found {
		return errors.Errorf("device %s not found", id)
	}
	if device.Available == available {
		return nil
	}
	updated := *device
	updated.Available = available
	updated.lastChange = api.DeviceAvailabilityChanged
	dc.mapping.Put(string(id), &updated)
	dc.Log.Infof("Device %s is now available=%t", id, available)
	return nil
}

// RemoveDevice removes the device from the inventory.
func (dc *DeviceCache) RemoveDevice(id api.DeviceID) {
	dc.mu.Lock()
	defer dc.mu.Unlock()
	if _, found := dc.mapping.Delete(string(id)); found {
		dc.Log.Infof("Device %s removed", id)
	}
}

// LookupDevice returns the device record.
func (dc *DeviceCache) LookupDevice(id api.DeviceID) (device Device, found bool) {
	d, found := dc.lookup(id)
	if !found {
		return device, false
	}
	return *d, true
}

// LookupDriver returns IDs of devices programmed by the given driver.
func (dc *DeviceCache) LookupDriver(driver string) []api.DeviceID {
	return toDeviceIDs(dc.mapping.ListNames(driverKey, driver))
}

// ListAvailable returns IDs of all available devices.
func (dc *DeviceCache) ListAvailable() []api.DeviceID {
	return toDeviceIDs(dc.mapping.ListNames(availableKey, "true"))
}

// ListAll returns IDs of all devices.
func (dc *DeviceCache) ListAll() []api.DeviceID {
	return toDeviceIDs(dc.mapping.ListAllNames())
}

// IsAvailable returns true if the device is known and available.
func (dc *DeviceCache) IsAvailable(id api.DeviceID) bool {
	device, found := dc.lookup(id)
	return found && device.Available
}

// Programmable returns the flow programming capability of the device.
func (dc *DeviceCache) Programmable(id api.DeviceID) (api.FlowRuleProgrammable, bool) {
	device, found := dc.lookup(id)
	if !found || device.Programmable == nil {
		return nil, false
	}
	return device.Programmable, true
}

// Watch subscribes for notifications about device changes.
func (dc *DeviceCache) Watch(subscriber string, callback func(api.DeviceEvent)) error {
	return dc.mapping.Watch(subscriber, func(ev idxmap.NamedMappingGenericEvent) {
		device, ok := ev.Value.(*Device)
		if !ok {
			return
		}
		event := api.DeviceEvent{Type: device.lastChange, Device: device.ID, Available: device.Available}
		if ev.Del {
			event.Type = api.DeviceRemoved
			event.Available = false
		}
		callback(event)
	})
}

func (dc *DeviceCache) lookup(id api.DeviceID) (*Device, bool) {
	d, found := dc.mapping.GetValue(string(id))
	if !found {
		return nil, false
	}
	device, ok := d.(*Device)
	return device, ok
}

// IndexFunction creates secondary indexes: availability and driver.
func IndexFunction(data interface{}) map[string][]string {
	res := map[string][]string{}
	if device, ok := data.(*Device); ok && device != nil {
		if device.Available {
			res[availableKey] = []string{"true"}
		} else {
			res[availableKey] = []string{"false"}
		}
		if device.Driver != "" {
			res[driverKey] = []string{device.Driver}
		}
	}
	return res
}

// ToChan creates a callback that can be passed to the Watch function
// in order to receive notifications through a channel. If the notification
// can not be delivered until timeout, it is dropped.
func ToChan(ch chan api.DeviceEvent) func(api.DeviceEvent) {
	return func(ev api.DeviceEvent) {
		select {
		case ch <- ev:
		case <-time.After(time.Second):
		}
	}
}

func toDeviceIDs(names []string) []api.DeviceID {
	sort.Strings(names)
	var ids []api.DeviceID
	for _, name := range names {
		ids = append(ids, api.DeviceID(name))
	}
	return ids
}
