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

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// DeviceID identifies a network device managed by the controller.
type DeviceID string

// ApplicationID identifies the application that owns a flow rule.
type ApplicationID string

// TableID identifies the flow table (pipeline stage) a rule is installed into.
type TableID uint32

// FlowID is a compact numeric identifier of a rule, derived either from
// the explicit cookie or from the hash of the rule identity.
type FlowID uint64

// String prints flow ID in the hexadecimal form used by most switches.
func (id FlowID) String() string {
	return fmt.Sprintf("0x%x", uint64(id))
}

// Criterion is a single match condition of a selector, e.g. {"ETH_TYPE", "0x800"}.
type Criterion struct {
	Type  string
	Value string
}

// Selector is a match predicate - a set of criteria that must all match.
// The order of criteria is irrelevant for the rule identity.
type Selector []Criterion

// Instruction is a single action applied to the matching traffic,
// e.g. {"OUTPUT", "2"}.
type Instruction struct {
	Type  string
	Value string
}

// Treatment is an ordered list of instructions.
type Treatment []Instruction

// Rule is an immutable forwarding rule requested by an application.
//
// Two rules are the same rule if their identity tuple
// {DeviceID, Selector, Treatment, Priority, AppID, TableID, Cookie} is equal.
// Rules should be treated as values; slices inside a rule are never modified
// after the rule was handed over to the engine.
type Rule struct {
	DeviceID  DeviceID
	Selector  Selector
	Treatment Treatment
	Priority  uint32
	AppID     ApplicationID
	TableID   TableID

	// Cookie is an optional explicit cookie (0 = not set).
	Cookie uint64
}

// Key returns the canonical string representation of the rule identity.
// Equal keys <=> same rule. Free-form fields are quoted, so separators
// inside values cannot make two different rules share a key.
func (r Rule) Key() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s|%d|%d|%s|%x|", strconv.Quote(string(r.DeviceID)), r.TableID, r.Priority,
		strconv.Quote(string(r.AppID)), r.Cookie)
	for _, c := range r.Selector.canonical() {
		sb.WriteString(strconv.Quote(c.Type))
		sb.WriteByte('=')
		sb.WriteString(strconv.Quote(c.Value))
		sb.WriteByte(',')
	}
	sb.WriteByte('|')
	for _, i := range r.Treatment {
		sb.WriteString(strconv.Quote(i.Type))
		sb.WriteByte(':')
		sb.WriteString(strconv.Quote(i.Value))
		sb.WriteByte(';')
	}
	return sb.String()
}

// ID returns the flow ID of the rule.
// With explicit cookie the cookie itself is used, otherwise the ID is derived
// from the hash of the rule identity.
func (r Rule) ID() FlowID {
	if r.Cookie != 0 {
		return FlowID(r.Cookie)
	}
	return FlowID(r.Hash())
}

// Hash returns the hash of the rule identity. Unlike ID, it is unique even
// for rules sharing the same explicit cookie.
func (r Rule) Hash() uint64 {
	return xxhash.Sum64String(r.Key())
}

// SameRule returns true if both rules have the same identity.
func (r Rule) SameRule(other Rule) bool {
	return r.Key() == other.Key()
}

// Validate checks that the rule can be accepted by the engine.
func (r Rule) Validate() error {
	if r.DeviceID == "" {
		return NewInvalidRuleError(r, "missing device ID")
	}
	if r.AppID == "" {
		return NewInvalidRuleError(r, "missing application ID")
	}
	for _, c := range r.Selector {
		if c.Type == "" {
			return NewInvalidRuleError(r, "selector criterion without type")
		}
	}
	for _, i := range r.Treatment {
		if i.Type == "" {
			return NewInvalidRuleError(r, "treatment instruction without type")
		}
	}
	return nil
}

// Clone returns a deep copy of the rule.
func (r Rule) Clone() Rule {
	clone := r
	if r.Selector != nil {
		clone.Selector = append(Selector{}, r.Selector...)
	}
	if r.Treatment != nil {
		clone.Treatment = append(Treatment{}, r.Treatment...)
	}
	return clone
}

// String returns a human-readable representation of the rule.
func (r Rule) String() string {
	return fmt.Sprintf("Rule <id: %s, device: %s, app: %s, table: %d, prio: %d, match: %v, actions: %v>",
		r.ID(), r.DeviceID, r.AppID, r.TableID, r.Priority, r.Selector.canonical(), r.Treatment)
}

// canonical returns criteria sorted by type and value.
func (s Selector) canonical() Selector {
	sorted := append(Selector{}, s...)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Type != sorted[j].Type {
			return sorted[i].Type < sorted[j].Type
		}
		return sorted[i].Value < sorted[j].Value
	})
	return sorted
}

// Rules is a convenience type for a list of rules.
type Rules []Rule

// GroupByDevice splits the list of rules by the target device,
// preserving the relative order of rules for each device.
func (rules Rules) GroupByDevice() (devices []DeviceID, byDevice map[DeviceID][]Rule) {
	byDevice = make(map[DeviceID][]Rule)
	for _, rule := range rules {
		if _, known := byDevice[rule.DeviceID]; !known {
			devices = append(devices, rule.DeviceID)
		}
		byDevice[rule.DeviceID] = append(byDevice[rule.DeviceID], rule)
	}
	return devices, byDevice
}
