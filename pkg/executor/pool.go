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
	"errors"
	"sync"
)

var (
	// ErrPoolClosed is returned when a task is submitted to a closed pool.
	ErrPoolClosed = errors.New("executor was closed")

	// ErrQueueFull is returned when the queue with pending tasks is full.
	ErrQueueFull = errors.New("queue with tasks is full")
)

// Task is a unit of work executed by the pool.
type Task func()

// Pool is a fixed-size pool of goroutines executing submitted tasks
// in the order of submission (but not sequentially).
type Pool struct {
	queue chan Task
	wg    sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// NewPool starts <workers> goroutines processing tasks from a queue
// of the given capacity.
func NewPool(workers, queueSize int) *Pool {
	if workers < 1 {
		workers = 1
	}
	p := &Pool{queue: make(chan Task, queueSize)}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	return p
}

// Submit queues the task for execution. Never blocks.
func (p *Pool) Submit(task Task) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPoolClosed
	}
	select {
	case p.queue <- task:
		return nil
	default:
		return ErrQueueFull
	}
}

// Close stops accepting new tasks, lets the workers finish already queued
// tasks and waits for them to exit.
func (p *Pool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()

	p.wg.Wait()
	return nil
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for task := range p.queue {
		task()
	}
}
