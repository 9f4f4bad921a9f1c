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
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/contiv/flowrule/plugins/flowrule/api"
)

// MockDevice is an in-memory switch implementing api.FlowRuleProgrammable.
type MockDevice struct {
	sync.Mutex

	id        api.DeviceID
	installed map[string]api.FlowEntry
	rejected  map[string]struct{}

	readErr  error
	writeErr error

	applyCalls int
}

// NewMockDevice is a constructor for MockDevice.
func NewMockDevice(id api.DeviceID) *MockDevice {
	return &MockDevice{
		id:        id,
		installed: make(map[string]api.FlowEntry),
		rejected:  make(map[string]struct{}),
	}
}

// ID returns the device ID.
func (md *MockDevice) ID() api.DeviceID {
	return md.id
}

func (md *MockDevice) GetFlowEntries(ctx context.Context) ([]api.FlowEntry, error) {
	md.Lock()
	defer md.Unlock()
	if md.readErr != nil {
		return nil, md.readErr
	}
	var entries []api.FlowEntry
	for key, entry := range md.installed {
		entry.Packets++
		entry.Bytes += 64
		entry.Life += time.Second
		md.installed[key] = entry
		entries = append(entries, entry.Clone())
	}
	return entries, nil
}

func (md *MockDevice) ApplyFlowRules(ctx context.Context, rules []api.Rule) (applied []api.Rule, err error) {
	md.Lock()
	defer md.Unlock()
	md.applyCalls++
	if md.writeErr != nil {
		return nil, md.writeErr
	}
	for _, rule := range rules {
		key := rule.Key()
		if _, reject := md.rejected[key]; reject {
			err = errors.Errorf("rule %v rejected by device %s", rule.ID(), md.id)
			continue
		}
		if _, installed := md.installed[key]; !installed {
			entry := api.NewFlowEntry(rule)
			entry.State = api.Added
			entry.LastSeenCookie = uint64(rule.ID())
			md.installed[key] = entry
		}
		applied = append(applied, rule)
	}
	return applied, err
}

func (md *MockDevice) RemoveFlowRules(ctx context.Context, rules []api.Rule) (removed []api.Rule, err error) {
	md.Lock()
	defer md.Unlock()
	if md.writeErr != nil {
		return nil, md.writeErr
	}
	for _, rule := range rules {
		delete(md.installed, rule.Key())
		removed = append(removed, rule)
	}
	return removed, nil
}

// Install puts the rule onto the device bypassing the controller
// (e.g. installed manually by an operator).
func (md *MockDevice) Install(rule api.Rule) {
	md.Lock()
	defer md.Unlock()
	entry := api.NewFlowEntry(rule)
	entry.State = api.Added
	md.installed[rule.Key()] = entry
}

// Lose removes the rule from the device without telling anyone.
func (md *MockDevice) Lose(rule api.Rule) {
	md.Lock()
	defer md.Unlock()
	delete(md.installed, rule.Key())
}

// Reject makes the device refuse to install the given rules.
func (md *MockDevice) Reject(rules ...api.Rule) {
	md.Lock()
	defer md.Unlock()
	for _, rule := range rules {
		md.rejected[rule.Key()] = struct{}{}
	}
}

// SetReadError makes GetFlowEntries fail with the given error (nil to reset).
func (md *MockDevice) SetReadError(err error) {
	md.Lock()
	defer md.Unlock()
	md.readErr = err
}

// SetWriteError makes writes fail with the given error (nil to reset).
func (md *MockDevice) SetWriteError(err error) {
	md.Lock()
	defer md.Unlock()
	md.writeErr = err
}

// Has returns true if the rule is installed on the device.
func (md *MockDevice) Has(rule api.Rule) bool {
	md.Lock()
	defer md.Unlock()
	_, installed := md.installed[rule.Key()]
	return installed
}

// Count returns the number of installed rules.
func (md *MockDevice) Count() int {
	md.Lock()
	defer md.Unlock()
	return len(md.installed)
}

// ApplyCalls returns how many times ApplyFlowRules was called.
func (md *MockDevice) ApplyCalls() int {
	md.Lock()
	defer md.Unlock()
	return md.applyCalls
}
