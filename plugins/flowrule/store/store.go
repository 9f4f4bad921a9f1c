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

package store

import (
	"sort"
	"sync"
	"time"

	"github.com/ligato/cn-infra/logging"
	"github.com/pkg/errors"

	"github.com/contiv/flowrule/plugins/flowrule/api"
)

// FlowRuleStore is the authoritative table of flow entries, implementing
// api.Store.
//
// Entries are kept in memory, grouped into per-device tables. Every table
// has its own lock, so operations on different devices never contend, while
// operations on the same device (namely reconciliation, which reads-then-writes
// the whole table) are serialized.
// With Backend configured, every mutation is written through into the backend
// (e.g. etcd shared by the cluster), which allows another instance to rebuild
// the table via LoadDevice after taking over the device mastership.
type FlowRuleStore struct {
	Deps

	mu     sync.RWMutex
	tables map[api.DeviceID]*deviceTable

	batchMu sync.Mutex
	batches map[uint64]*api.FlowRuleBatchOperation
}

// Deps lists dependencies of the FlowRuleStore.
type Deps struct {
	Log logging.Logger

	// Backend is optional; nil means in-memory only (single instance).
	Backend Backend

	// Now returns the current time (time.Now if nil).
	Now func() time.Time
}

// deviceTable holds flow entries of a single device, keyed by rule identity.
type deviceTable struct {
	sync.Mutex
	device  api.DeviceID
	entries map[string]*api.FlowEntry
	purged  bool
}

// NewFlowRuleStore is a constructor for FlowRuleStore.
func NewFlowRuleStore(deps Deps) *FlowRuleStore {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &FlowRuleStore{
		Deps:    deps,
		tables:  make(map[api.DeviceID]*deviceTable),
		batches: make(map[uint64]*api.FlowRuleBatchOperation),
	}
}

// GetFlowEntries returns all entries of the device, ordered by flow ID.
func (s *FlowRuleStore) GetFlowEntries(device api.DeviceID) []api.FlowEntry {
	t := s.lockTable(device, false)
	if t == nil {
		return nil
	}
	defer t.Unlock()
	return t.list()
}

// GetFlowEntry returns the entry of the rule.
func (s *FlowRuleStore) GetFlowEntry(rule api.Rule) (entry api.FlowEntry, found bool) {
	t := s.lockTable(rule.DeviceID, false)
	if t == nil {
		return entry, false
	}
	defer t.Unlock()
	stored, found := t.entries[rule.Key()]
	if !found {
		return entry, false
	}
	return stored.Clone(), true
}

// GetFlowEntriesByApp returns entries of all devices owned by the application.
func (s *FlowRuleStore) GetFlowEntriesByApp(app api.ApplicationID) []api.FlowEntry {
	var entries []api.FlowEntry
	for _, device := range s.GetDevices() {
		for _, entry := range s.GetFlowEntries(device) {
			if entry.AppID == app {
				entries = append(entries, entry)
			}
		}
	}
	return entries
}

// GetDevices returns IDs of all devices with at least one entry.
func (s *FlowRuleStore) GetDevices() []api.DeviceID {
	s.mu.RLock()
	var candidates []*deviceTable
	for _, t := range s.tables {
		candidates = append(candidates, t)
	}
	s.mu.RUnlock()

	var devices []api.DeviceID
	for _, t := range candidates {
		t.Lock()
		if !t.purged && len(t.entries) > 0 {
			devices = append(devices, t.device)
		}
		t.Unlock()
	}
	sort.Slice(devices, func(i, j int) bool { return devices[i] < devices[j] })
	return devices
}

// FlowEntryCount returns the number of entries of the device.
func (s *FlowRuleStore) FlowEntryCount(device api.DeviceID) int {
	t := s.lockTable(device, false)
	if t == nil {
		return 0
	}
	defer t.Unlock()
	return len(t.entries)
}

// StorePendingAdd inserts PENDING_ADD entry if absent.
func (s *FlowRuleStore) StorePendingAdd(rule api.Rule) *api.FlowRuleEvent {
	t := s.lockTable(rule.DeviceID, true)
	defer t.Unlock()
	return s.pendingAdd(t, rule)
}

// MarkPendingRemove transitions ADDED (or PENDING_ADD) entry to PENDING_REMOVE.
func (s *FlowRuleStore) MarkPendingRemove(rule api.Rule) *api.FlowRuleEvent {
	t := s.lockTable(rule.DeviceID, false)
	if t == nil {
		return nil
	}
	defer t.Unlock()
	return s.pendingRemove(t, rule)
}

// Reconcile reconciles the device snapshot with the stored entries:
//  1. reported & PENDING_ADD -> ADDED (RULE_ADDED)
//     reported & ADDED -> stats refreshed (RULE_UPDATED)
//     reported & unknown -> adopted as ADDED if <adopt> says so, extraneous otherwise
//     reported & PENDING_REMOVE -> returned as stale
//  2. PENDING_REMOVE & not reported -> purged (RULE_REMOVED)
//  3. PENDING_ADD & not reported -> untouched
//
// Events are ordered as adds, updates, removals.
func (s *FlowRuleStore) Reconcile(device api.DeviceID, reported []api.FlowEntry, adopt api.AdoptFunc) (result api.ReconcileResult) {
	t := s.lockTable(device, true)
	defer t.Unlock()

	var adds, updates, removals []api.FlowRuleEvent
	now := s.Now()
	seen := make(map[string]struct{})

	for _, rep := range reported {
		rep.DeviceID = device
		key := rep.Rule.Key()
		if _, duplicate := seen[key]; duplicate {
			continue
		}
		seen[key] = struct{}{}

		stored, known := t.entries[key]
		if !known {
			if adopt != nil && adopt(rep.Clone()) {
				entry := api.NewFlowEntry(rep.Rule)
				entry.State = api.Added
				entry.UpdateStats(rep, now)
				t.entries[key] = &entry
				s.persist(entry)
				s.Log.Debugf("Adopted rule reported by device %s: %v", device, entry.Rule)
				adds = append(adds, api.FlowRuleEvent{Type: api.RuleAdded, Entry: entry.Clone()})
				continue
			}
			result.Extraneous = append(result.Extraneous, rep.Clone())
			continue
		}

		switch stored.State {
		case api.PendingAdd:
			stored.State = api.Added
			stored.UpdateStats(rep, now)
			s.persist(*stored)
			adds = append(adds, api.FlowRuleEvent{Type: api.RuleAdded, Entry: stored.Clone()})
		case api.Added:
			stored.UpdateStats(rep, now)
			s.persist(*stored)
			updates = append(updates, api.FlowRuleEvent{Type: api.RuleUpdated, Entry: stored.Clone()})
		case api.PendingRemove:
			result.Stale = append(result.Stale, stored.Clone())
		}
	}

	var missing []string
	for key, stored := range t.entries {
		if _, wasReported := seen[key]; wasReported {
			continue
		}
		if stored.State == api.PendingRemove {
			missing = append(missing, key)
		}
	}
	sort.Strings(missing)
	for _, key := range missing {
		removals = append(removals, s.remove(t, key))
	}

	result.Events = append(result.Events, adds...)
	result.Events = append(result.Events, updates...)
	result.Events = append(result.Events, removals...)
	return result
}

// RemoveFlowEntry purges the entry matching the removal notification.
// Repeated notifications for an already removed rule return nil.
func (s *FlowRuleStore) RemoveFlowEntry(entry api.FlowEntry) *api.FlowRuleEvent {
	t := s.lockTable(entry.DeviceID, false)
	if t == nil {
		return nil
	}
	defer t.Unlock()
	key := entry.Rule.Key()
	if _, stored := t.entries[key]; !stored {
		return nil
	}
	event := s.remove(t, key)
	return &event
}

// StoreBatch records intent of all batch operations and remembers the batch
// until BatchOperationComplete is called with its ID.
func (s *FlowRuleStore) StoreBatch(batch *api.FlowRuleBatchOperation) (events []api.FlowRuleEvent) {
	t := s.lockTable(batch.DeviceID, true)
	for _, op := range batch.Entries {
		var event *api.FlowRuleEvent
		switch op.Op {
		case api.OpAdd, api.OpModify:
			event = s.pendingAdd(t, op.Rule)
		case api.OpRemove:
			event = s.pendingRemove(t, op.Rule)
		}
		if event != nil {
			events = append(events, *event)
		}
	}
	t.Unlock()

	s.batchMu.Lock()
	s.batches[batch.ID] = batch
	s.batchMu.Unlock()
	return events
}

// BatchOperationComplete resolves a previously stored batch:
//   - confirmed adds turn PENDING_ADD into ADDED,
//   - confirmed removals purge PENDING_REMOVE entries,
//   - failed adds purge the PENDING_ADD entries,
//   - failed removals are left PENDING_REMOVE for the next snapshot to resolve.
//
// Unknown (or already completed) batches are ignored.
func (s *FlowRuleStore) BatchOperationComplete(batchID uint64, result *api.CompletedBatchOperation) (events []api.FlowRuleEvent) {
	s.batchMu.Lock()
	batch, pending := s.batches[batchID]
	delete(s.batches, batchID)
	s.batchMu.Unlock()
	if !pending {
		s.Log.Debugf("Ignoring completion of unknown batch %d", batchID)
		return nil
	}

	t := s.lockTable(batch.DeviceID, false)
	if t == nil {
		return nil
	}
	defer t.Unlock()

	var adds, removals []api.FlowRuleEvent
	for _, op := range batch.Entries {
		key := op.Rule.Key()
		stored, known := t.entries[key]
		if !known {
			continue
		}
		failed := result != nil && (result.FailedRule(op.Rule) || (!result.Success && len(result.Failed) == 0))
		switch op.Op {
		case api.OpAdd, api.OpModify:
			if stored.State != api.PendingAdd {
				continue
			}
			if failed {
				removals = append(removals, s.remove(t, key))
				continue
			}
			stored.State = api.Added
			s.persist(*stored)
			adds = append(adds, api.FlowRuleEvent{Type: api.RuleAdded, Entry: stored.Clone()})
		case api.OpRemove:
			if stored.State == api.PendingRemove && !failed {
				removals = append(removals, s.remove(t, key))
			}
		}
	}
	events = append(events, adds...)
	return append(events, removals...)
}

// Purge wipes all entries of the device without emitting any events.
func (s *FlowRuleStore) Purge(device api.DeviceID) {
	s.drop(device)
	if s.Backend != nil {
		if err := s.Backend.DeleteDevice(device); err != nil {
			s.Log.Warnf("Failed to purge entries of device %s from the backend: %v", device, err)
		}
	}
	s.Log.Debugf("Purged flow entries of device %s", device)
}

// Unload drops the in-memory table of the device without emitting any
// events, leaving the backend intact for the next master of the device.
func (s *FlowRuleStore) Unload(device api.DeviceID) {
	s.drop(device)
	s.Log.Debugf("Unloaded flow entries of device %s", device)
}

// drop removes the device table and the pending batches of the device.
func (s *FlowRuleStore) drop(device api.DeviceID) {
	s.mu.Lock()
	t, exists := s.tables[device]
	delete(s.tables, device)
	s.mu.Unlock()

	if exists {
		t.Lock()
		t.purged = true
		t.entries = nil
		t.Unlock()
	}

	s.batchMu.Lock()
	for id, batch := range s.batches {
		if batch.DeviceID == device {
			delete(s.batches, id)
		}
	}
	s.batchMu.Unlock()
}

// LoadDevice replaces the in-memory table of the device with the content
// of the backend. NOOP without backend.
func (s *FlowRuleStore) LoadDevice(device api.DeviceID) error {
	if s.Backend == nil {
		return nil
	}
	entries, err := s.Backend.Load(device)
	if err != nil {
		return errors.Wrapf(err, "failed to load flow entries of device %s", device)
	}

	t := s.lockTable(device, true)
	defer t.Unlock()
	t.entries = make(map[string]*api.FlowEntry)
	for _, entry := range entries {
		entry := entry.Clone()
		entry.DeviceID = device
		t.entries[entry.Rule.Key()] = &entry
	}
	s.Log.Debugf("Loaded %d flow entries of device %s from the backend", len(entries), device)
	return nil
}

// lockTable returns locked table of the device, optionally creating it.
// Returns nil if the table does not exist and create is false.
func (s *FlowRuleStore) lockTable(device api.DeviceID, create bool) *deviceTable {
	for {
		s.mu.RLock()
		t, exists := s.tables[device]
		s.mu.RUnlock()

		if !exists {
			if !create {
				return nil
			}
			s.mu.Lock()
			if t, exists = s.tables[device]; !exists {
				t = &deviceTable{device: device, entries: make(map[string]*api.FlowEntry)}
				s.tables[device] = t
			}
			s.mu.Unlock()
		}

		t.Lock()
		if t.purged {
			// purged concurrently, retry with a new table
			t.Unlock()
			continue
		}
		return t
	}
}

// pendingAdd implements StorePendingAdd on a locked table.
func (s *FlowRuleStore) pendingAdd(t *deviceTable, rule api.Rule) *api.FlowRuleEvent {
	key := rule.Key()
	if _, exists := t.entries[key]; exists {
		return nil
	}
	entry := api.NewFlowEntry(rule)
	t.entries[key] = &entry
	s.persist(entry)
	return &api.FlowRuleEvent{Type: api.RuleAddRequested, Entry: entry.Clone()}
}

// pendingRemove implements MarkPendingRemove on a locked table.
func (s *FlowRuleStore) pendingRemove(t *deviceTable, rule api.Rule) *api.FlowRuleEvent {
	stored, exists := t.entries[rule.Key()]
	if !exists || stored.State == api.PendingRemove {
		return nil
	}
	stored.State = api.PendingRemove
	s.persist(*stored)
	return &api.FlowRuleEvent{Type: api.RuleRemoveRequested, Entry: stored.Clone()}
}

// remove purges entry from a locked table and returns RULE_REMOVED event.
func (s *FlowRuleStore) remove(t *deviceTable, key string) api.FlowRuleEvent {
	stored := t.entries[key]
	delete(t.entries, key)
	if s.Backend != nil {
		if err := s.Backend.Delete(stored.Rule); err != nil {
			s.Log.Warnf("Failed to delete flow entry %v from the backend: %v", stored.ID(), err)
		}
	}
	removed := stored.Clone()
	removed.State = api.Removed
	return api.FlowRuleEvent{Type: api.RuleRemoved, Entry: removed}
}

// persist writes the entry through into the backend (if any).
func (s *FlowRuleStore) persist(entry api.FlowEntry) {
	if s.Backend == nil {
		return
	}
	if err := s.Backend.Put(entry); err != nil {
		s.Log.Warnf("Failed to persist flow entry %v: %v", entry.ID(), err)
	}
}

// list returns copies of all entries of a locked table ordered by flow ID.
func (t *deviceTable) list() []api.FlowEntry {
	entries := make([]api.FlowEntry, 0, len(t.entries))
	for _, entry := range t.entries {
		entries = append(entries, entry.Clone())
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].ID() != entries[j].ID() {
			return entries[i].ID() < entries[j].ID()
		}
		return entries[i].Rule.Key() < entries[j].Rule.Key()
	})
	return entries
}
