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

package executor

import (
	"sync"
)

// Keyed executes tasks submitted under the same key sequentially
// (in the order of submission), while tasks of different keys run
// concurrently. A goroutine is started for a key only while the key
// has some tasks pending.
type Keyed struct {
	mu     sync.Mutex
	queues map[string][]Task
	wg     sync.WaitGroup
	closed bool
}

// NewKeyed is a constructor for Keyed executor.
func NewKeyed() *Keyed {
	return &Keyed{queues: make(map[string][]Task)}
}

// Submit appends the task into the queue of the given key. Never blocks.
func (k *Keyed) Submit(key string, task Task) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.closed {
		return ErrPoolClosed
	}
	queue, running := k.queues[key]
	k.queues[key] = append(queue, task)
	if !running {
		k.wg.Add(1)
		go k.run(key)
	}
	return nil
}

// Pending returns true if the key has some task queued or running.
func (k *Keyed) Pending(key string) bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	_, running := k.queues[key]
	return running
}

// Close rejects new tasks and waits for the queued tasks to finish.
func (k *Keyed) Close() error {
	k.mu.Lock()
	k.closed = true
	k.mu.Unlock()
	k.wg.Wait()
	return nil
}

func (k *Keyed) run(key string) {
	defer k.wg.Done()
	for {
		k.mu.Lock()
		queue := k.queues[key]
		if len(queue) == 0 {
			delete(k.queues, key)
			k.mu.Unlock()
			return
		}
		task := queue[0]
		queue[0] = nil
		k.queues[key] = queue[1:]
		k.mu.Unlock()

		task()
	}
}
