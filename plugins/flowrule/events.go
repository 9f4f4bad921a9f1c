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

package flowrule

import (
	"github.com/contiv/flowrule/plugins/flowrule/api"
)

// onDeviceEvent reacts to changes in the device inventory.
func (m *FlowRuleManager) onDeviceEvent(event api.DeviceEvent) {
	switch event.Type {
	case api.DeviceRemoved:
		m.Log.Infof("Device %s was removed", event.Device)
		m.PurgeFlowRules(event.Device)
		m.forgetSequencer(event.Device)

	case api.DeviceAvailabilityChanged:
		if event.Available {
			m.Log.Infof("Device %s became available", event.Device)
			m.resync(event.Device)
			return
		}
		m.Log.Infof("Device %s became unavailable", event.Device)
		if m.config.PurgeOnDisconnection {
			m.PurgeFlowRules(event.Device)
		}
	}
}

// onMastershipEvent reacts to changes of the local role for a device.
// A new master reloads the device entries from the backend and pushes them
// to the provider. A former master drops its in-memory view of the device.
func (m *FlowRuleManager) onMastershipEvent(event api.MastershipEvent) {
	device := event.Device
	if event.LocalRole == api.RoleMaster {
		m.Log.Infof("Local node became master of device %s (%v)", device, event.Term)
		var err error
		m.sequence(device, func() {
			err = m.store.LoadDevice(device)
		})
		if err != nil {
			m.Log.Error(err)
			m.reportError(err)
		}
		m.updateEntryMetrics(device)
		m.resync(device)
		return
	}

	m.Log.Infof("Local node is no longer master of device %s (%v, local role: %v)",
		device, event.Term, event.LocalRole)
	m.sequence(device, func() {
		m.store.Unload(device)
	})
	m.registry.Fallback().Forget(device)
	m.metrics.deleteDevice(device)
}
