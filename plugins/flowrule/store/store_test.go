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
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/ligato/cn-infra/logging/logrus"
	. "github.com/onsi/gomega"

	"github.com/contiv/flowrule/mock/broker"
	"github.com/contiv/flowrule/plugins/flowrule/api"
)

const (
	device1 = api.DeviceID("of:0000000000000001")
	device2 = api.DeviceID("of:0000000000000002")
	app1    = api.ApplicationID("org.contiv.fwd")
	app2    = api.ApplicationID("org.contiv.acl")
)

func rule(device api.DeviceID, app api.ApplicationID, port string) api.Rule {
	return api.Rule{
		DeviceID:  device,
		AppID:     app,
		Priority:  100,
		TableID:   0,
		Selector:  api.Selector{{Type: "IN_PORT", Value: port}, {Type: "ETH_TYPE", Value: "0x800"}},
		Treatment: api.Treatment{{Type: "OUTPUT", Value: "CONTROLLER"}},
	}
}

func reported(r api.Rule, packets uint64) api.FlowEntry {
	entry := api.NewFlowEntry(r)
	entry.State = api.Added
	entry.Packets = packets
	entry.Bytes = packets * 64
	entry.Life = 5 * time.Second
	return entry
}

func eventTypes(events []api.FlowRuleEvent) []api.FlowRuleEventType {
	var types []api.FlowRuleEventType
	for _, ev := range events {
		types = append(types, ev.Type)
	}
	return types
}

func newStore(backend Backend) *FlowRuleStore {
	return NewFlowRuleStore(Deps{Log: logrus.DefaultLogger(), Backend: backend})
}

func TestStorePendingAdd(t *testing.T) {
	RegisterTestingT(t)
	s := newStore(nil)

	r1, r2, r3 := rule(device1, app1, "1"), rule(device1, app1, "2"), rule(device1, app1, "3")
	for _, r := range []api.Rule{r1, r2, r3} {
		ev := s.StorePendingAdd(r)
		Expect(ev).ToNot(BeNil())
		Expect(ev.Type).To(Equal(api.RuleAddRequested))
		Expect(ev.Entry.State).To(Equal(api.PendingAdd))
	}
	Expect(s.FlowEntryCount(device1)).To(Equal(3))

	// repeated add is a no-op
	Expect(s.StorePendingAdd(r1)).To(BeNil())
	Expect(s.FlowEntryCount(device1)).To(Equal(3))
	for _, entry := range s.GetFlowEntries(device1) {
		Expect(entry.State).To(Equal(api.PendingAdd))
	}

	// criteria order is irrelevant for the rule identity
	swapped := r1.Clone()
	swapped.Selector[0], swapped.Selector[1] = swapped.Selector[1], swapped.Selector[0]
	Expect(s.StorePendingAdd(swapped)).To(BeNil())

	entry, found := s.GetFlowEntry(r2)
	Expect(found).To(BeTrue())
	Expect(entry.SameRule(r2)).To(BeTrue())

	_, found = s.GetFlowEntry(rule(device2, app1, "2"))
	Expect(found).To(BeFalse())
	Expect(s.GetDevices()).To(Equal([]api.DeviceID{device1}))
}

func TestReconcileConfirmsPendingEntries(t *testing.T) {
	RegisterTestingT(t)
	s := newStore(nil)

	r1, r2 := rule(device1, app1, "1"), rule(device1, app1, "2")
	s.StorePendingAdd(r1)
	s.StorePendingAdd(r2)

	result := s.Reconcile(device1, []api.FlowEntry{reported(r1, 10), reported(r2, 20)}, nil)
	Expect(eventTypes(result.Events)).To(Equal([]api.FlowRuleEventType{api.RuleAdded, api.RuleAdded}))
	Expect(result.Extraneous).To(BeEmpty())
	Expect(result.Stale).To(BeEmpty())

	entry, _ := s.GetFlowEntry(r2)
	Expect(entry.State).To(Equal(api.Added))
	Expect(entry.Packets).To(BeEquivalentTo(20))
	Expect(entry.LastSeen.IsZero()).To(BeFalse())

	// the same snapshot again only refreshes statistics
	result = s.Reconcile(device1, []api.FlowEntry{reported(r1, 15), reported(r2, 25)}, nil)
	Expect(eventTypes(result.Events)).To(Equal([]api.FlowRuleEventType{api.RuleUpdated, api.RuleUpdated}))
	entry, _ = s.GetFlowEntry(r1)
	Expect(entry.Packets).To(BeEquivalentTo(15))
}

func TestReconcileLeavesUnreportedPendingAdd(t *testing.T) {
	RegisterTestingT(t)
	s := newStore(nil)

	r1, r2 := rule(device1, app1, "1"), rule(device1, app1, "2")
	s.StorePendingAdd(r1)
	s.StorePendingAdd(r2)

	result := s.Reconcile(device1, []api.FlowEntry{reported(r1, 1)}, nil)
	Expect(eventTypes(result.Events)).To(Equal([]api.FlowRuleEventType{api.RuleAdded}))

	entry, found := s.GetFlowEntry(r2)
	Expect(found).To(BeTrue())
	Expect(entry.State).To(Equal(api.PendingAdd))

	// empty snapshot does not touch pending adds either
	result = s.Reconcile(device1, nil, nil)
	Expect(result.Events).To(BeEmpty())
	Expect(s.FlowEntryCount(device1)).To(Equal(2))
}

func TestReconcileRemovals(t *testing.T) {
	RegisterTestingT(t)
	s := newStore(nil)

	r1, r2 := rule(device1, app1, "1"), rule(device1, app1, "2")
	s.StorePendingAdd(r1)
	s.StorePendingAdd(r2)
	s.Reconcile(device1, []api.FlowEntry{reported(r1, 1), reported(r2, 1)}, nil)

	ev := s.MarkPendingRemove(r1)
	Expect(ev).ToNot(BeNil())
	Expect(ev.Type).To(Equal(api.RuleRemoveRequested))
	Expect(ev.Entry.State).To(Equal(api.PendingRemove))

	// repeated removal does not produce another event
	Expect(s.MarkPendingRemove(r1)).To(BeNil())
	// unknown rule
	Expect(s.MarkPendingRemove(rule(device1, app1, "9"))).To(BeNil())
	Expect(s.MarkPendingRemove(rule(device2, app1, "1"))).To(BeNil())

	// device still reports the rule -> stale
	result := s.Reconcile(device1, []api.FlowEntry{reported(r1, 2), reported(r2, 2)}, nil)
	Expect(eventTypes(result.Events)).To(Equal([]api.FlowRuleEventType{api.RuleUpdated}))
	Expect(result.Stale).To(HaveLen(1))
	Expect(result.Stale[0].SameRule(r1)).To(BeTrue())

	// rule missing from the snapshot -> removed
	result = s.Reconcile(device1, []api.FlowEntry{reported(r2, 3)}, nil)
	Expect(eventTypes(result.Events)).To(Equal([]api.FlowRuleEventType{api.RuleUpdated, api.RuleRemoved}))
	Expect(result.Events[1].Entry.State).To(Equal(api.Removed))
	Expect(result.Events[1].Entry.SameRule(r1)).To(BeTrue())

	_, found := s.GetFlowEntry(r1)
	Expect(found).To(BeFalse())
	Expect(s.FlowEntryCount(device1)).To(Equal(1))
}

func TestReconcileExtraneousAndAdoption(t *testing.T) {
	RegisterTestingT(t)
	s := newStore(nil)

	known, foreign, adoptable := rule(device1, app1, "1"), rule(device1, app2, "2"), rule(device1, app1, "3")
	s.StorePendingAdd(known)

	adopt := func(entry api.FlowEntry) bool {
		return entry.SameRule(adoptable)
	}
	// reported entries carry a different device ID, the store normalizes it
	foreignReport := reported(foreign, 1)
	foreignReport.DeviceID = ""

	result := s.Reconcile(device1,
		[]api.FlowEntry{reported(known, 1), foreignReport, reported(adoptable, 1), reported(known, 1)}, adopt)
	Expect(eventTypes(result.Events)).To(Equal([]api.FlowRuleEventType{api.RuleAdded, api.RuleAdded}))
	Expect(result.Extraneous).To(HaveLen(1))
	Expect(result.Extraneous[0].SameRule(foreign)).To(BeTrue())

	entry, found := s.GetFlowEntry(adoptable)
	Expect(found).To(BeTrue())
	Expect(entry.State).To(Equal(api.Added))
	_, found = s.GetFlowEntry(foreign)
	Expect(found).To(BeFalse())
}

func TestRemoveFlowEntry(t *testing.T) {
	RegisterTestingT(t)
	s := newStore(nil)

	r1 := rule(device1, app1, "1")
	s.StorePendingAdd(r1)
	s.Reconcile(device1, []api.FlowEntry{reported(r1, 1)}, nil)
	s.MarkPendingRemove(r1)

	ev := s.RemoveFlowEntry(reported(r1, 1))
	Expect(ev).ToNot(BeNil())
	Expect(ev.Type).To(Equal(api.RuleRemoved))
	Expect(ev.Entry.State).To(Equal(api.Removed))

	// second notification is ignored
	Expect(s.RemoveFlowEntry(reported(r1, 1))).To(BeNil())
	Expect(s.RemoveFlowEntry(reported(rule(device2, app1, "1"), 1))).To(BeNil())
	Expect(s.FlowEntryCount(device1)).To(Equal(0))
	Expect(s.GetDevices()).To(BeEmpty())
}

func TestGetFlowEntriesByApp(t *testing.T) {
	RegisterTestingT(t)
	s := newStore(nil)

	s.StorePendingAdd(rule(device1, app1, "1"))
	s.StorePendingAdd(rule(device2, app1, "1"))
	s.StorePendingAdd(rule(device1, app2, "2"))

	entries := s.GetFlowEntriesByApp(app1)
	Expect(entries).To(HaveLen(2))
	for _, entry := range entries {
		Expect(entry.AppID).To(Equal(app1))
	}
	Expect(s.GetFlowEntriesByApp(app2)).To(HaveLen(1))
	Expect(s.GetFlowEntriesByApp("unknown")).To(BeEmpty())
	Expect(s.GetDevices()).To(Equal([]api.DeviceID{device1, device2}))
}

func TestReturnedEntriesAreCopies(t *testing.T) {
	RegisterTestingT(t)
	s := newStore(nil)

	r1 := rule(device1, app1, "1")
	s.StorePendingAdd(r1)

	entries := s.GetFlowEntries(device1)
	entries[0].Selector[0].Value = "modified"
	entries[0].State = api.Added

	entry, found := s.GetFlowEntry(r1)
	Expect(found).To(BeTrue())
	Expect(entry.State).To(Equal(api.PendingAdd))
}

func TestBatchOperationComplete(t *testing.T) {
	RegisterTestingT(t)
	s := newStore(nil)

	installed := rule(device1, app1, "0")
	s.StorePendingAdd(installed)
	s.Reconcile(device1, []api.FlowEntry{reported(installed, 1)}, nil)

	ok, failed := rule(device1, app1, "1"), rule(device1, app1, "2")
	batch := &api.FlowRuleBatchOperation{
		ID:       7,
		DeviceID: device1,
		Entries: []api.FlowRuleBatchEntry{
			{Op: api.OpAdd, Rule: ok},
			{Op: api.OpAdd, Rule: failed},
			{Op: api.OpRemove, Rule: installed},
		},
	}
	events := s.StoreBatch(batch)
	Expect(eventTypes(events)).To(Equal([]api.FlowRuleEventType{
		api.RuleAddRequested, api.RuleAddRequested, api.RuleRemoveRequested}))

	result := api.NewCompletedBatchOperation(batch, api.Rules{failed}, nil)
	Expect(result.Success).To(BeFalse())
	Expect(result.Err).To(HaveOccurred())

	events = s.BatchOperationComplete(batch.ID, result)
	Expect(eventTypes(events)).To(Equal([]api.FlowRuleEventType{
		api.RuleAdded, api.RuleRemoved, api.RuleRemoved}))

	entry, found := s.GetFlowEntry(ok)
	Expect(found).To(BeTrue())
	Expect(entry.State).To(Equal(api.Added))
	_, found = s.GetFlowEntry(failed)
	Expect(found).To(BeFalse())
	_, found = s.GetFlowEntry(installed)
	Expect(found).To(BeFalse())

	// completion is consumed
	Expect(s.BatchOperationComplete(batch.ID, result)).To(BeNil())
}

func TestFailedBatchRemovalStaysPending(t *testing.T) {
	RegisterTestingT(t)
	s := newStore(nil)

	r1 := rule(device1, app1, "1")
	s.StorePendingAdd(r1)
	s.Reconcile(device1, []api.FlowEntry{reported(r1, 1)}, nil)

	batch := &api.FlowRuleBatchOperation{
		ID:       1,
		DeviceID: device1,
		Entries:  []api.FlowRuleBatchEntry{{Op: api.OpRemove, Rule: r1}},
	}
	s.StoreBatch(batch)
	events := s.BatchOperationComplete(batch.ID, api.NewCompletedBatchOperation(batch, api.Rules{r1}, nil))
	Expect(events).To(BeEmpty())

	entry, found := s.GetFlowEntry(r1)
	Expect(found).To(BeTrue())
	Expect(entry.State).To(Equal(api.PendingRemove))
}

func TestPurge(t *testing.T) {
	RegisterTestingT(t)
	s := newStore(nil)

	s.StorePendingAdd(rule(device1, app1, "1"))
	s.StorePendingAdd(rule(device1, app1, "2"))
	s.StorePendingAdd(rule(device2, app1, "1"))
	s.StoreBatch(&api.FlowRuleBatchOperation{ID: 3, DeviceID: device1})

	s.Purge(device1)
	Expect(s.FlowEntryCount(device1)).To(Equal(0))
	Expect(s.GetFlowEntries(device1)).To(BeEmpty())
	Expect(s.FlowEntryCount(device2)).To(Equal(1))
	Expect(s.BatchOperationComplete(3, nil)).To(BeNil())

	// purge of unknown device is a no-op
	s.Purge("unknown")

	// device table is re-created on demand
	Expect(s.StorePendingAdd(rule(device1, app1, "1"))).ToNot(BeNil())
	Expect(s.FlowEntryCount(device1)).To(Equal(1))
}

func TestKVDBBackend(t *testing.T) {
	RegisterTestingT(t)
	kvdb := broker.NewMockBroker()
	s := newStore(NewKVDBBackend(kvdb, logrus.DefaultLogger()))

	r1, r2, r3 := rule(device1, app1, "1"), rule(device1, app1, "2"), rule(device2, app1, "1")
	r2.Cookie = 0xabcd
	s.StorePendingAdd(r1)
	s.StorePendingAdd(r2)
	s.StorePendingAdd(r3)
	s.Reconcile(device1, []api.FlowEntry{reported(r1, 42)}, nil)
	Expect(kvdb.Keys()).To(HaveLen(3))

	// another instance takes over device1
	other := newStore(NewKVDBBackend(kvdb, logrus.DefaultLogger()))
	Expect(other.LoadDevice(device1)).To(Succeed())
	Expect(other.FlowEntryCount(device1)).To(Equal(2))
	Expect(other.FlowEntryCount(device2)).To(Equal(0))

	entry, found := other.GetFlowEntry(r1)
	Expect(found).To(BeTrue())
	Expect(entry.State).To(Equal(api.Added))
	Expect(entry.Packets).To(BeEquivalentTo(42))
	entry, found = other.GetFlowEntry(r2)
	Expect(found).To(BeTrue())
	Expect(entry.State).To(Equal(api.PendingAdd))
	Expect(entry.ID()).To(Equal(api.FlowID(0xabcd)))

	// removals are written through
	s.MarkPendingRemove(r1)
	s.Reconcile(device1, nil, nil)
	Expect(kvdb.Keys()).To(HaveLen(2))

	// unload keeps the backend intact
	s.Unload(device1)
	Expect(s.FlowEntryCount(device1)).To(Equal(0))
	Expect(kvdb.Keys()).To(HaveLen(2))
	Expect(s.LoadDevice(device1)).To(Succeed())
	Expect(s.FlowEntryCount(device1)).To(Equal(1))

	s.Purge(device1)
	Expect(kvdb.Keys()).To(HaveLen(1))
	Expect(other.LoadDevice(device1)).To(Succeed())
	Expect(other.FlowEntryCount(device1)).To(Equal(0))

	// writes before the datastore is connected fail without affecting the store
	disconnected := NewKVDBBackend(nil, logrus.DefaultLogger())
	Expect(disconnected.Put(reported(r1, 1))).To(Equal(ErrNotConnected))
	Expect(newStore(disconnected).StorePendingAdd(r1)).ToNot(BeNil())
	Expect(newStore(disconnected).LoadDevice(device1)).To(HaveOccurred())
	disconnected.Connect(kvdb)
	Expect(disconnected.Put(reported(r1, 1))).To(Succeed())
}

func TestEntryProtoConversion(t *testing.T) {
	RegisterTestingT(t)

	entry := reported(rule(device1, app1, "1"), 5)
	entry.State = api.PendingRemove
	entry.LastSeen = time.Unix(100, 5)
	entry.IdleTimeout = time.Minute

	converted := EntryFromProto(EntryToProto(entry))
	Expect(converted.SameRule(entry.Rule)).To(BeTrue())
	Expect(converted.State).To(Equal(api.PendingRemove))
	Expect(converted.LastSeen.Equal(entry.LastSeen)).To(BeTrue())
	Expect(converted.IdleTimeout).To(Equal(time.Minute))
	Expect(converted.Bytes).To(Equal(entry.Bytes))
}

func TestConcurrentOperations(t *testing.T) {
	RegisterTestingT(t)
	s := newStore(nil)

	const count = 50
	var rules []api.Rule
	var confirmed []api.FlowEntry
	for i := 0; i < count; i++ {
		r := rule(device1, app1, fmt.Sprint(i))
		rules = append(rules, r)
		confirmed = append(confirmed, reported(r, 1))
		Expect(s.StorePendingAdd(r)).ToNot(BeNil())
	}
	s.Reconcile(device1, confirmed, nil)

	var (
		mu     sync.Mutex
		events []api.FlowRuleEvent
		wg     sync.WaitGroup
	)
	collect := func(evs ...api.FlowRuleEvent) {
		mu.Lock()
		defer mu.Unlock()
		events = append(events, evs...)
	}
	for i := 0; i < count; i++ {
		wg.Add(5)
		go func(r api.Rule) {
			defer wg.Done()
			if ev := s.MarkPendingRemove(r); ev != nil {
				collect(*ev)
			}
		}(rules[i])
		go func() {
			defer wg.Done()
			collect(s.Reconcile(device1, nil, nil).Events...)
		}()
		go func() {
			defer wg.Done()
			for _, entry := range s.GetFlowEntriesByApp(app1) {
				if entry.AppID != app1 {
					collect(api.FlowRuleEvent{Entry: entry})
				}
			}
		}()
		go func(port string) {
			defer wg.Done()
			s.StorePendingAdd(rule(device2, app2, port))
		}(fmt.Sprint(i))
		go func() {
			defer wg.Done()
			s.Purge(device2)
		}()
	}
	wg.Wait()
	collect(s.Reconcile(device1, nil, nil).Events...)
	s.Purge(device2)

	counts := make(map[api.FlowRuleEventType]int)
	for _, ev := range events {
		Expect(ev.Entry.DeviceID).To(Equal(device1))
		counts[ev.Type]++
	}
	Expect(counts).To(Equal(map[api.FlowRuleEventType]int{
		api.RuleRemoveRequested: count,
		api.RuleRemoved:         count,
	}))
	Expect(s.FlowEntryCount(device1)).To(Equal(0))
	Expect(s.FlowEntryCount(device2)).To(Equal(0))
	Expect(s.GetFlowEntriesByApp(app1)).To(BeEmpty())
}
