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
	"sync"
	"time"

	"github.com/ligato/cn-infra/db/keyval"
	"github.com/ligato/cn-infra/logging"
	"github.com/pkg/errors"

	"github.com/contiv/flowrule/plugins/flowrule/api"
	"github.com/contiv/flowrule/plugins/flowrule/model"
)

// Backend is a persistent storage of flow entries, used by FlowRuleStore
// to write-through all changes.
type Backend interface {
	// Put creates or updates the entry.
	Put(entry api.FlowEntry) error

	// Delete removes the entry of the given rule.
	Delete(rule api.Rule) error

	// DeleteDevice removes all entries of the device.
	DeleteDevice(device api.DeviceID) error

	// Load reads all entries of the device.
	Load(device api.DeviceID) ([]api.FlowEntry, error)
}

// ErrNotConnected is returned by KVDBBackend before the broker is available.
var ErrNotConnected = errors.New("key-value datastore is not connected")

// KVDBBackend persists flow entries in a key-value datastore (etcd)
// under the key prefix "flowrule/<device>/".
type KVDBBackend struct {
	Log logging.Logger

	mu     sync.RWMutex
	broker keyval.ProtoBroker
}

// NewKVDBBackend is a constructor for KVDBBackend. Broker may be nil
// until the datastore gets connected.
func NewKVDBBackend(broker keyval.ProtoBroker, log logging.Logger) *KVDBBackend {
	return &KVDBBackend{broker: broker, Log: log}
}

// Connect sets the broker once the datastore is connected.
func (b *KVDBBackend) Connect(broker keyval.ProtoBroker) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.broker = broker
}

// Put creates or updates the entry.
func (b *KVDBBackend) Put(entry api.FlowEntry) error {
	broker, err := b.getBroker()
	if err != nil {
		return err
	}
	return broker.Put(entryKey(entry.Rule), EntryToProto(entry))
}

// Delete removes the entry of the given rule.
func (b *KVDBBackend) Delete(rule api.Rule) error {
	broker, err := b.getBroker()
	if err != nil {
		return err
	}
	_, err = broker.Delete(entryKey(rule))
	return err
}

// DeleteDevice removes all entries of the device.
func (b *KVDBBackend) DeleteDevice(device api.DeviceID) error {
	broker, err := b.getBroker()
	if err != nil {
		return err
	}
	it, err := broker.ListKeys(model.DeviceKeyPrefix(string(device)))
	if err != nil {
		return err
	}
	var keys []string
	for {
		key, _, stop := it.GetNext()
		if stop {
			break
		}
		keys = append(keys, key)
	}
	var wasErr error
	for _, key := range keys {
		if _, err := broker.Delete(key); err != nil {
			b.Log.Error(err)
			wasErr = err
		}
	}
	return wasErr
}

// Load reads all entries of the device.
func (b *KVDBBackend) Load(device api.DeviceID) ([]api.FlowEntry, error) {
	broker, err := b.getBroker()
	if err != nil {
		return nil, err
	}
	it, err := broker.ListValues(model.DeviceKeyPrefix(string(device)))
	if err != nil {
		return nil, err
	}
	var entries []api.FlowEntry
	for {
		kv, stop := it.GetNext()
		if stop {
			break
		}
		pbEntry := &model.FlowEntry{}
		if err := kv.GetValue(pbEntry); err != nil {
			return nil, errors.Wrapf(err, "failed to decode flow entry %s", kv.GetKey())
		}
		entries = append(entries, EntryFromProto(pbEntry))
	}
	return entries, nil
}

func (b *KVDBBackend) getBroker() (keyval.ProtoBroker, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.broker == nil {
		return nil, ErrNotConnected
	}
	return b.broker, nil
}

func entryKey(rule api.Rule) string {
	return model.Key(string(rule.DeviceID), rule.Hash())
}

// EntryToProto converts flow entry into its protobuf representation.
func EntryToProto(entry api.FlowEntry) *model.FlowEntry {
	pbEntry := &model.FlowEntry{
		DeviceId:       string(entry.DeviceID),
		Priority:       entry.Priority,
		AppId:          string(entry.AppID),
		TableId:        uint32(entry.TableID),
		Cookie:         entry.Cookie,
		LifeNs:         int64(entry.Life),
		IdleTimeoutNs:  int64(entry.IdleTimeout),
		Packets:        entry.Packets,
		Bytes:          entry.Bytes,
		LastSeenCookie: entry.LastSeenCookie,
	}
	switch entry.State {
	case api.Added:
		pbEntry.State = model.FlowEntry_ADDED
	case api.PendingRemove:
		pbEntry.State = model.FlowEntry_PENDING_REMOVE
	default:
		pbEntry.State = model.FlowEntry_PENDING_ADD
	}
	if !entry.LastSeen.IsZero() {
		pbEntry.LastSeenUnixNs = entry.LastSeen.UnixNano()
	}
	for _, c := range entry.Selector {
		pbEntry.Selector = append(pbEntry.Selector, &model.Criterion{Type: c.Type, Value: c.Value})
	}
	for _, i := range entry.Treatment {
		pbEntry.Treatment = append(pbEntry.Treatment, &model.Instruction{Type: i.Type, Value: i.Value})
	}
	return pbEntry
}

// EntryFromProto converts protobuf representation of a flow entry back
// into api.FlowEntry.
func EntryFromProto(pbEntry *model.FlowEntry) api.FlowEntry {
	entry := api.FlowEntry{
		Rule: api.Rule{
			DeviceID: api.DeviceID(pbEntry.GetDeviceId()),
			Priority: pbEntry.GetPriority(),
			AppID:    api.ApplicationID(pbEntry.GetAppId()),
			TableID:  api.TableID(pbEntry.GetTableId()),
			Cookie:   pbEntry.GetCookie(),
		},
		Life:           time.Duration(pbEntry.GetLifeNs()),
		IdleTimeout:    time.Duration(pbEntry.GetIdleTimeoutNs()),
		Packets:        pbEntry.GetPackets(),
		Bytes:          pbEntry.GetBytes(),
		LastSeenCookie: pbEntry.GetLastSeenCookie(),
	}
	switch pbEntry.GetState() {
	case model.FlowEntry_ADDED:
		entry.State = api.Added
	case model.FlowEntry_PENDING_REMOVE:
		entry.State = api.PendingRemove
	default:
		entry.State = api.PendingAdd
	}
	if pbEntry.GetLastSeenUnixNs() != 0 {
		entry.LastSeen = time.Unix(0, pbEntry.GetLastSeenUnixNs())
	}
	for _, c := range pbEntry.GetSelector() {
		entry.Selector = append(entry.Selector, api.Criterion{Type: c.GetType(), Value: c.GetValue()})
	}
	for _, i := range pbEntry.GetTreatment() {
		entry.Treatment = append(entry.Treatment, api.Instruction{Type: i.GetType(), Value: i.GetValue()})
	}
	return entry
}
