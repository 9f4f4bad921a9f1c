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
	"sync"

	"github.com/contiv/flowrule/plugins/flowrule/api"
)

// MockMastership is a mock for the mastership service.
// Devices are mastered by the local node unless configured otherwise.
type MockMastership struct {
	sync.Mutex

	localNode api.NodeID
	roles     map[api.DeviceID]api.MastershipRole
	terms     map[api.DeviceID]api.MastershipTerm
	watchers  map[string]func(api.MastershipEvent)

	rejected []api.MastershipTerm
}

// NewMockMastership is a constructor for MockMastership.
func NewMockMastership(localNode api.NodeID) *MockMastership {
	return &MockMastership{
		localNode: localNode,
		roles:     make(map[api.DeviceID]api.MastershipRole),
		terms:     make(map[api.DeviceID]api.MastershipTerm),
		watchers:  make(map[string]func(api.MastershipEvent)),
	}
}

// SetRole changes the local role for the device and notifies watchers.
// The term number is incremented with every change.
func (mm *MockMastership) SetRole(device api.DeviceID, role api.MastershipRole, master api.NodeID) {
	mm.Lock()
	mm.roles[device] = role
	term := mm.terms[device]
	term.TermNumber++
	term.Master = master
	mm.terms[device] = term
	var callbacks []func(api.MastershipEvent)
	for _, cb := range mm.watchers {
		callbacks = append(callbacks, cb)
	}
	mm.Unlock()

	for _, cb := range callbacks {
		cb(api.MastershipEvent{Device: device, Term: term, LocalRole: role})
	}
}

// RejectedTerms returns terms reported via UnableToAssertRole.
func (mm *MockMastership) RejectedTerms() []api.MastershipTerm {
	mm.Lock()
	defer mm.Unlock()
	return append([]api.MastershipTerm{}, mm.rejected...)
}

func (mm *MockMastership) LocalNodeID() api.NodeID {
	return mm.localNode
}

func (mm *MockMastership) GetLocalRole(device api.DeviceID) api.MastershipRole {
	mm.Lock()
	defer mm.Unlock()
	if role, known := mm.roles[device]; known {
		return role
	}
	return api.RoleMaster
}

func (mm *MockMastership) GetTerm(device api.DeviceID) (term api.MastershipTerm, exists bool) {
	mm.Lock()
	defer mm.Unlock()
	term, exists = mm.terms[device]
	if !exists {
		return api.MastershipTerm{Master: mm.localNode}, true
	}
	return term, true
}

func (mm *MockMastership) Watch(subscriber string, callback func(api.MastershipEvent)) error {
	mm.Lock()
	defer mm.Unlock()
	mm.watchers[subscriber] = callback
	return nil
}

func (mm *MockMastership) UnableToAssertRole(device api.DeviceID, term api.MastershipTerm, reason error) {
	mm.Lock()
	defer mm.Unlock()
	mm.rejected = append(mm.rejected, term)
}
