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

package mastership

import (
	"sort"
	"sync"

	"github.com/ligato/cn-infra/db/keyval"
	"github.com/ligato/cn-infra/infra"
	"github.com/ligato/cn-infra/servicelabel"
	"github.com/pkg/errors"

	"github.com/contiv/flowrule/plugins/flowrule/api"
	"github.com/contiv/flowrule/plugins/mastership/model"
)

// Mastership plugin keeps track of device mastership terms and implements
// api.MastershipService for the local controller instance.
//
// The arbitration itself (which instance should master which device) is
// decided outside of this plugin, either statically by the configuration
// or by calling Grant/Relinquish/SetMaster. Every change of the master
// increments the device term. Terms are persisted into the cluster-wide DB
// (if configured), so that term numbers keep increasing across restarts.
type Mastership struct {
	Deps

	config    *Config
	localNode api.NodeID
	broker    keyval.ProtoBroker

	mu       sync.Mutex
	terms    map[api.DeviceID]api.MastershipTerm
	watchers map[string]func(api.MastershipEvent)
}

// Deps lists dependencies of the Mastership plugin.
type Deps struct {
	infra.PluginDeps

	ServiceLabel servicelabel.ReaderAPI
	DB           api.ClusterWideDB /* optional */
	Devices      DeviceInventory   /* optional, used with auto-grant */
}

// DeviceInventory lists and watches devices known to the controller.
type DeviceInventory interface {
	ListAll() []api.DeviceID
	Watch(subscriber string, callback func(api.DeviceEvent)) error
}

// Config holds the configuration of the Mastership plugin.
type Config struct {
	// Masters lists devices mastered by this instance from the startup.
	Masters []string `json:"masters"`

	// AutoGrant makes this instance master of every device from the device
	// inventory that has no master yet (single-instance deployments).
	AutoGrant bool `json:"auto-grant"`
}

// Init loads the configuration and the persisted terms.
func (m *Mastership) Init() error {
	if m.ServiceLabel == nil {
		return errors.New("missing mandatory dependency: ServiceLabel")
	}
	m.localNode = api.NodeID(m.ServiceLabel.GetAgentLabel())
	m.terms = make(map[api.DeviceID]api.MastershipTerm)
	m.watchers = make(map[string]func(api.MastershipEvent))

	m.config = &Config{}
	if err := m.loadConfig(m.config); err != nil {
		return err
	}

	if m.DB != nil {
		m.DB.OnConnect(m.onConnect)
	}
	return nil
}

// AfterInit grants mastership of the statically configured devices
// and, with auto-grant, of all devices without a master.
func (m *Mastership) AfterInit() error {
	for _, device := range m.config.Masters {
		m.Grant(api.DeviceID(device))
	}
	if !m.config.AutoGrant || m.Devices == nil {
		return nil
	}
	for _, device := range m.Devices.ListAll() {
		m.grantUnmastered(device)
	}
	return m.Devices.Watch(m.String(), func(event api.DeviceEvent) {
		if event.Type == api.DeviceAdded {
			m.grantUnmastered(event.Device)
		}
	})
}

// Close does nothing.
func (m *Mastership) Close() error {
	return nil
}

// LocalNodeID returns ID of this controller instance (the agent label).
func (m *Mastership) LocalNodeID() api.NodeID {
	return m.localNode
}

// GetLocalRole returns the role of the local node for the device.
func (m *Mastership) GetLocalRole(device api.DeviceID) api.MastershipRole {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.localRole(device)
}

// GetTerm returns the current mastership term of the device.
func (m *Mastership) GetTerm(device api.DeviceID) (term api.MastershipTerm, exists bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	term, exists = m.terms[device]
	return term, exists
}

// GetMasteredDevices returns devices mastered by this instance.
func (m *Mastership) GetMasteredDevices() []api.DeviceID {
	m.mu.Lock()
	defer m.mu.Unlock()
	var devices []api.DeviceID
	for device, term := range m.terms {
		if term.Master == m.localNode {
			devices = append(devices, device)
		}
	}
	sort.Slice(devices, func(i, j int) bool { return devices[i] < devices[j] })
	return devices
}

// Watch subscribes for notifications about mastership changes.
func (m *Mastership) Watch(subscriber string, callback func(api.MastershipEvent)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.watchers[subscriber]; exists {
		return errors.Errorf("subscriber %s is already watching mastership changes", subscriber)
	}
	m.watchers[subscriber] = callback
	return nil
}

// Grant makes the local node master of the device.
func (m *Mastership) Grant(device api.DeviceID) api.MastershipTerm {
	return m.SetMaster(device, m.localNode)
}

// Relinquish gives up mastership of the device (if held by the local node).
func (m *Mastership) Relinquish(device api.DeviceID) {
	m.mu.Lock()
	master := m.terms[device].Master
	m.mu.Unlock()
	if master == m.localNode {
		m.SetMaster(device, "")
	}
}

// SetMaster records a new master of the device. The term number is
// incremented if the master changes; empty <master> means no master.
func (m *Mastership) SetMaster(device api.DeviceID, master api.NodeID) api.MastershipTerm {
	m.mu.Lock()
	term, exists := m.terms[device]
	if exists && term.Master == master {
		m.mu.Unlock()
		return term
	}
	term.Master = master
	term.TermNumber++
	m.terms[device] = term
	role := m.localRole(device)
	var callbacks []func(api.MastershipEvent)
	for _, cb := range m.watchers {
		callbacks = append(callbacks, cb)
	}
	m.mu.Unlock()

	m.Log.Infof("Mastership of device %s changed: %v (local role: %v)", device, term, role)
	m.persist(device, term)

	event := api.MastershipEvent{Device: device, Term: term, LocalRole: role}
	for _, cb := range callbacks {
		cb(event)
	}
	return term
}

// UnableToAssertRole is called when the device rejected a write carrying
// the given term. If the term is still the current term of the local node,
// the mastership is relinquished, since another instance obviously managed
// to assert a newer term with the device.
func (m *Mastership) UnableToAssertRole(device api.DeviceID, term api.MastershipTerm, reason error) {
	m.Log.Warnf("Device %s rejected term %v: %v", device, term, reason)
	m.mu.Lock()
	current := m.terms[device]
	m.mu.Unlock()
	if current == term && term.Master == m.localNode {
		m.Relinquish(device)
	}
}

// grantUnmastered grants mastership of the device if it has no master.
func (m *Mastership) grantUnmastered(device api.DeviceID) {
	m.mu.Lock()
	master := m.terms[device].Master
	m.mu.Unlock()
	if master == "" {
		m.Grant(device)
	}
}

// localRole computes the local role. Call with the lock held.
func (m *Mastership) localRole(device api.DeviceID) api.MastershipRole {
	term, exists := m.terms[device]
	switch {
	case !exists || term.Master == "":
		return api.RoleNone
	case term.Master == m.localNode:
		return api.RoleMaster
	default:
		return api.RoleStandby
	}
}

// onConnect creates the DB broker and loads the persisted terms.
func (m *Mastership) onConnect() error {
	broker := m.DB.NewBroker(servicelabel.GetDifferentAgentPrefix(api.ClusterLabel))
	m.mu.Lock()
	m.broker = broker
	m.mu.Unlock()
	return m.loadTerms(broker)
}

// persist writes the term into the cluster-wide DB.
func (m *Mastership) persist(device api.DeviceID, term api.MastershipTerm) {
	m.mu.Lock()
	broker := m.broker
	m.mu.Unlock()
	if broker == nil {
		return
	}
	err := broker.Put(model.Key(string(device)), &model.MastershipTerm{
		DeviceId:   string(device),
		Master:     string(term.Master),
		TermNumber: term.TermNumber,
	})
	if err != nil {
		m.Log.Warnf("Failed to persist mastership term of device %s: %v", device, err)
	}
}

// loadTerms reads the persisted terms. Term numbers of the persisted terms
// are kept, only the local mastership is not restored (it must be granted
// again).
func (m *Mastership) loadTerms(broker keyval.ProtoBroker) error {
	it, err := broker.ListValues(model.KeyPrefix())
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cnt := 0
	for {
		kv, stop := it.GetNext()
		if stop {
			break
		}
		pbTerm := &model.MastershipTerm{}
		if err := kv.GetValue(pbTerm); err != nil {
			return err
		}
		device := api.DeviceID(pbTerm.GetDeviceId())
		if current, exists := m.terms[device]; exists && current.TermNumber >= pbTerm.GetTermNumber() {
			continue
		}
		master := api.NodeID(pbTerm.GetMaster())
		if master == m.localNode {
			master = ""
		}
		m.terms[device] = api.MastershipTerm{Master: master, TermNumber: pbTerm.GetTermNumber()}
		cnt++
	}
	m.Log.Infof("%v persisted mastership terms were loaded", cnt)
	return nil
}

// loadConfig loads configuration file.
func (m *Mastership) loadConfig(config *Config) error {
	if m.Cfg == nil {
		return nil
	}
	found, err := m.Cfg.LoadValue(config)
	if err != nil {
		return err
	} else if !found {
		m.Log.Debugf("%v config not found", m.PluginName)
		return nil
	}
	m.Log.Debugf("%v config found: %+v", m.PluginName, config)
	return nil
}
