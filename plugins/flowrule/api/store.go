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

// AdoptFunc decides whether a reported rule unknown to the store should be
// adopted (stored as ADDED) instead of being treated as extraneous.
type AdoptFunc func(reported FlowEntry) bool

// ReconcileResult is the outcome of reconciling a device snapshot.
type ReconcileResult struct {
	// Events ordered as: adds, updates, removals.
	Events []FlowRuleEvent

	// Extraneous are reported entries unknown to the store; they should be
	// removed from the device.
	Extraneous []FlowEntry

	// Stale are PENDING_REMOVE entries still reported by the device; their
	// removal should be re-issued.
	Stale []FlowEntry
}

// Store is the authoritative table of flow entries.
//
// The store never calls listeners, all side effects are returned as events.
// All read operations return copies.
type Store interface {
	// GetFlowEntries returns all entries of the device.
	GetFlowEntries(device DeviceID) []FlowEntry

	// GetFlowEntry returns the entry of the rule.
	GetFlowEntry(rule Rule) (entry FlowEntry, found bool)

	// GetFlowEntriesByApp returns entries of all devices owned by the application.
	GetFlowEntriesByApp(app ApplicationID) []FlowEntry

	// GetDevices returns IDs of all devices with at least one entry.
	GetDevices() []DeviceID

	// FlowEntryCount returns the number of entries of the device.
	FlowEntryCount(device DeviceID) int

	// StorePendingAdd inserts PENDING_ADD entry if absent.
	// Returns nil if the rule is already stored.
	StorePendingAdd(rule Rule) *FlowRuleEvent

	// MarkPendingRemove transitions the rule to PENDING_REMOVE.
	// Returns nil if the rule is unknown or already pending removal.
	MarkPendingRemove(rule Rule) *FlowRuleEvent

	// Reconcile reconciles the device snapshot with the stored entries.
	Reconcile(device DeviceID, reported []FlowEntry, adopt AdoptFunc) ReconcileResult

	// RemoveFlowEntry purges the entry matching the removal notification.
	// Returns nil if no such entry is stored.
	RemoveFlowEntry(entry FlowEntry) *FlowRuleEvent

	// StoreBatch records intent of all batch operations and remembers
	// the batch until its completion.
	StoreBatch(batch *FlowRuleBatchOperation) []FlowRuleEvent

	// BatchOperationComplete resolves a previously stored batch.
	BatchOperationComplete(batchID uint64, result *CompletedBatchOperation) []FlowRuleEvent

	// Purge wipes all entries of the device without emitting events.
	Purge(device DeviceID)

	// Unload drops the in-memory entries of the device without emitting
	// events, keeping them in the storage backend.
	Unload(device DeviceID)

	// LoadDevice re-reads the device entries from the storage backend.
	LoadDevice(device DeviceID) error
}
