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

package broker

import (
	"sort"
	"strings"
	"sync"

	"github.com/gogo/protobuf/proto"
	"github.com/ligato/cn-infra/datasync"
	"github.com/ligato/cn-infra/db/keyval"
)

// MockBroker is an in-memory keyval.ProtoBroker. Values are stored
// marshalled, so that later modifications of the written messages are not
// visible to readers.
type MockBroker struct {
	sync.Mutex
	Data map[string][]byte

	// PutErr, if set, is returned by Put.
	PutErr error
}

// NewMockBroker is a constructor for MockBroker.
func NewMockBroker() *MockBroker {
	return &MockBroker{Data: make(map[string][]byte)}
}

// Keys returns all stored keys in ascending order.
func (mb *MockBroker) Keys() []string {
	mb.Lock()
	defer mb.Unlock()
	return mb.matching("")
}

func (mb *MockBroker) Put(key string, data proto.Message, opts ...datasync.PutOption) error {
	mb.Lock()
	defer mb.Unlock()
	if mb.PutErr != nil {
		return mb.PutErr
	}
	encoded, err := proto.Marshal(data)
	if err != nil {
		return err
	}
	if mb.Data == nil {
		mb.Data = map[string][]byte{}
	}
	mb.Data[key] = encoded
	return nil
}

func (mb *MockBroker) Delete(key string, opts ...datasync.DelOption) (found bool, err error) {
	mb.Lock()
	defer mb.Unlock()
	_, found = mb.Data[key]
	delete(mb.Data, key)
	return found, nil
}

func (mb *MockBroker) GetValue(key string, val proto.Message) (found bool, rev int64, err error) {
	mb.Lock()
	defer mb.Unlock()
	encoded, found := mb.Data[key]
	if !found {
		return false, 0, nil
	}
	return true, 0, proto.Unmarshal(encoded, val)
}

func (mb *MockBroker) NewTxn() keyval.ProtoTxn {
	return nil
}

func (mb *MockBroker) ListKeys(prefix string) (keyval.ProtoKeyIterator, error) {
	mb.Lock()
	defer mb.Unlock()
	return &mockKeyIt{keys: mb.matching(prefix)}, nil
}

func (mb *MockBroker) ListValues(prefix string) (keyval.ProtoKeyValIterator, error) {
	mb.Lock()
	defer mb.Unlock()
	it := &mockIt{}
	for _, key := range mb.matching(prefix) {
		it.kvs = append(it.kvs, &mockKv{key: key, val: mb.Data[key]})
	}
	return it, nil
}

// matching returns sorted keys with the given prefix. Call with the lock held.
func (mb *MockBroker) matching(prefix string) []string {
	var match []string
	for k := range mb.Data {
		if strings.HasPrefix(k, prefix) {
			match = append(match, k)
		}
	}
	sort.Strings(match)
	return match
}

type mockKeyIt struct {
	keys  []string
	index int
}

func (mi *mockKeyIt) GetNext() (key string, rev int64, stop bool) {
	if mi.index >= len(mi.keys) {
		return "", 0, true
	}
	key = mi.keys[mi.index]
	mi.index++
	return key, 0, false
}

func (mi *mockKeyIt) Close() error {
	return nil
}

type mockIt struct {
	kvs   []*mockKv
	index int
}

func (mi *mockIt) GetNext() (kv keyval.ProtoKeyVal, stop bool) {
	if mi.index >= len(mi.kvs) {
		return nil, true
	}
	kv = mi.kvs[mi.index]
	mi.index++
	return kv, false
}

func (mi *mockIt) Close() error {
	return nil
}

type mockKv struct {
	key string
	val []byte
}

func (mk *mockKv) GetValue(val proto.Message) error {
	return proto.Unmarshal(mk.val, val)
}

func (mk *mockKv) GetPrevValue(val proto.Message) (exists bool, err error) {
	return false, nil
}

func (mk *mockKv) GetKey() string {
	return mk.key
}

func (mk *mockKv) GetRevision() int64 {
	return 0
}
