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

// Package memswitch implements an in-memory flow table exposing the generic
// flow programming capability. It serves as the southbound of devices
// configured with the "memory" driver, e.g. for demos and integration tests
// of the agent.
package memswitch

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/contiv/flowrule/plugins/flowrule/api"
)

// Driver is the name of the driver used in the device configuration.
const Driver = "memory"

// DefaultTableSize is the capacity of the flow table.
const DefaultTableSize = 4096

// ErrTableFull is returned when a rule does not fit into the table.
var ErrTableFull = errors.New("flow table is full")

// Switch is an in-memory flow table.
type Switch struct {
	id        api.DeviceID
	tableSize int
	now       func() time.Time

	mu      sync.Mutex
	entries map[string]*installed
}

type installed struct {
	rule        api.Rule
	installedAt time.Time
	packets     uint64
	bytes       uint64
}

// NewSwitch is a constructor for Switch.
func NewSwitch(id api.DeviceID, tableSize int) *Switch {
	if tableSize <= 0 {
		tableSize = DefaultTableSize
	}
	return &Switch{
		id:        id,
		tableSize: tableSize,
		now:       time.Now,
		entries:   make(map[string]*installed),
	}
}

// Factory can be registered as the devicecache driver factory.
func Factory(id api.DeviceID) api.FlowRuleProgrammable {
	return NewSwitch(id, DefaultTableSize)
}

// GetFlowEntries returns all installed entries.
func (s *Switch) GetFlowEntries(ctx context.Context) ([]api.FlowEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	entries := make([]api.FlowEntry, 0, len(s.entries))
	for _, flow := range s.entries {
		entry := api.NewFlowEntry(flow.rule)
		entry.State = api.Added
		entry.Life = now.Sub(flow.installedAt)
		entry.Packets = flow.packets
		entry.Bytes = flow.bytes
		entry.LastSeenCookie = uint64(entry.ID())
		entries = append(entries, entry)
	}
	return entries, nil
}

// ApplyFlowRules installs the rules, returning those that fit into the table.
func (s *Switch) ApplyFlowRules(ctx context.Context, rules []api.Rule) (applied []api.Rule, err error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rule := range rules {
		if rule.DeviceID != s.id {
			continue
		}
		key := rule.Key()
		if _, exists := s.entries[key]; !exists {
			if len(s.entries) >= s.tableSize {
				err = ErrTableFull
				continue
			}
			s.entries[key] = &installed{rule: rule.Clone(), installedAt: s.now()}
		}
		applied = append(applied, rule)
	}
	return applied, err
}

// RemoveFlowRules removes the rules. Rules not installed count as removed.
func (s *Switch) RemoveFlowRules(ctx context.Context, rules []api.Rule) (removed []api.Rule, err error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rule := range rules {
		delete(s.entries, rule.Key())
		removed = append(removed, rule)
	}
	return removed, nil
}

// Hit accounts a packet of the given size to the rule.
func (s *Switch) Hit(rule api.Rule, size uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	flow, exists := s.entries[rule.Key()]
	if !exists {
		return false
	}
	flow.packets++
	flow.bytes += size
	return true
}
