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

import "fmt"

// FlowRuleEventType enumerates lifecycle events of flow rules.
type FlowRuleEventType int

const (
	// RuleAddRequested is emitted when a rule is stored as PENDING_ADD.
	RuleAddRequested FlowRuleEventType = iota

	// RuleAdded is emitted when a pending rule gets confirmed by the device.
	RuleAdded

	// RuleUpdated is emitted when statistics of an installed rule are refreshed.
	RuleUpdated

	// RuleRemoveRequested is emitted when a rule is marked PENDING_REMOVE.
	RuleRemoveRequested

	// RuleRemoved is emitted when a rule is purged from the store.
	RuleRemoved
)

// String converts event type into a human-readable string.
func (t FlowRuleEventType) String() string {
	switch t {
	case RuleAddRequested:
		return "RULE_ADD_REQUESTED"
	case RuleAdded:
		return "RULE_ADDED"
	case RuleUpdated:
		return "RULE_UPDATED"
	case RuleRemoveRequested:
		return "RULE_REMOVE_REQUESTED"
	case RuleRemoved:
		return "RULE_REMOVED"
	}
	return "UNKNOWN"
}

// FlowRuleEvent describes a change in the lifecycle of a flow entry.
type FlowRuleEvent struct {
	Type  FlowRuleEventType
	Entry FlowEntry
}

// String returns a human-readable representation of the event.
func (ev FlowRuleEvent) String() string {
	return fmt.Sprintf("%s %s", ev.Type, ev.Entry)
}

// FlowRuleListener receives flow rule lifecycle events.
// Events of a single device are delivered in the order of emission.
type FlowRuleListener interface {
	OnFlowRuleEvent(event FlowRuleEvent)
}

// FlowRuleListenerFunc adapts ordinary function to FlowRuleListener.
type FlowRuleListenerFunc func(event FlowRuleEvent)

// OnFlowRuleEvent calls the function.
func (f FlowRuleListenerFunc) OnFlowRuleEvent(event FlowRuleEvent) {
	f(event)
}

// EventDispatcher delivers flow rule events to registered listeners.
type EventDispatcher interface {
	// AddListener registers listener under the given name, replacing any
	// listener previously registered under the same name.
	AddListener(name string, listener FlowRuleListener)

	// RemoveListener unregisters listener. Events already queued for
	// the listener are dropped.
	RemoveListener(name string)

	// Post queues events for asynchronous delivery. Never blocks on listeners.
	Post(events ...FlowRuleEvent)
}
