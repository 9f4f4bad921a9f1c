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
	"time"
)

// FlowEntryState is the lifecycle state of a flow entry.
type FlowEntryState int

const (
	// PendingAdd is the initial state - the rule was requested but not yet
	// confirmed by the device.
	PendingAdd FlowEntryState = iota

	// Added means that the device confirmed the rule.
	Added

	// PendingRemove means that the removal was requested but not yet confirmed.
	PendingRemove

	// Removed is the terminal state; removed entries are purged from the store.
	Removed
)

// String converts state into a human-readable string.
func (s FlowEntryState) String() string {
	switch s {
	case PendingAdd:
		return "PENDING_ADD"
	case Added:
		return "ADDED"
	case PendingRemove:
		return "PENDING_REMOVE"
	case Removed:
		return "REMOVED"
	}
	return "UNKNOWN"
}

// FlowEntry is a rule together with its lifecycle state and statistics.
//
// Entries returned by the store are copies - modifying them has no effect
// on the stored state. All state transitions go through the Store methods.
type FlowEntry struct {
	Rule

	State FlowEntryState

	// Life is the duration since the rule was installed, as reported
	// by the device.
	Life        time.Duration
	IdleTimeout time.Duration
	Packets     uint64
	Bytes       uint64

	// LastSeenCookie is the cookie under which the device last reported the rule.
	LastSeenCookie uint64

	// LastSeen is the time of the last snapshot that contained the rule
	// (zero if never reported).
	LastSeen time.Time
}

// NewFlowEntry creates a new entry for the given rule in the PendingAdd state.
func NewFlowEntry(rule Rule) FlowEntry {
	return FlowEntry{Rule: rule.Clone(), State: PendingAdd}
}

// Clone returns a deep copy of the entry.
func (e FlowEntry) Clone() FlowEntry {
	clone := e
	clone.Rule = e.Rule.Clone()
	return clone
}

// UpdateStats copies statistics from a reported entry.
func (e *FlowEntry) UpdateStats(reported FlowEntry, seenAt time.Time) {
	e.Life = reported.Life
	e.IdleTimeout = reported.IdleTimeout
	e.Packets = reported.Packets
	e.Bytes = reported.Bytes
	e.LastSeenCookie = reported.LastSeenCookie
	e.LastSeen = seenAt
}

// String returns a human-readable representation of the entry.
func (e FlowEntry) String() string {
	return fmt.Sprintf("FlowEntry <%s, state: %s, life: %v, packets: %d, bytes: %d>",
		e.Rule, e.State, e.Life, e.Packets, e.Bytes)
}

// FlowEntries is a list of flow entries.
type FlowEntries []FlowEntry

// Rules returns the rules of all entries in the list.
func (entries FlowEntries) Rules() Rules {
	var rules Rules
	for _, entry := range entries {
		rules = append(rules, entry.Rule)
	}
	return rules
}

// CountByState returns the number of entries in each state.
func (entries FlowEntries) CountByState() map[FlowEntryState]int {
	counts := make(map[FlowEntryState]int)
	for _, entry := range entries {
		counts[entry.State]++
	}
	return counts
}
