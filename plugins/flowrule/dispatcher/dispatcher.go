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

package dispatcher

import (
	"sort"
	"sync"

	"github.com/ligato/cn-infra/logging"

	"github.com/contiv/flowrule/plugins/flowrule/api"
)

// Dispatcher delivers flow rule events to registered listeners,
// implementing api.EventDispatcher.
//
// Every listener is served by its own goroutine reading from its own
// unbounded queue: Post never blocks, a slow listener delays only itself,
// and each listener receives events in the order in which they were posted.
type Dispatcher struct {
	Log logging.Logger

	// BacklogWarning is the number of undelivered events of a listener
	// above which a warning is logged (0 = never).
	BacklogWarning int

	mu        sync.Mutex
	listeners map[string]*listenerQueue
	closed    bool
	wg        sync.WaitGroup
}

// listenerQueue is the delivery queue of a single listener.
type listenerQueue struct {
	name     string
	listener api.FlowRuleListener

	mu      sync.Mutex
	pending []api.FlowRuleEvent
	stopped bool
	signal  chan struct{}
}

// NewDispatcher is a constructor for Dispatcher.
func NewDispatcher(log logging.Logger) *Dispatcher {
	return &Dispatcher{
		Log:       log,
		listeners: make(map[string]*listenerQueue),
	}
}

// AddListener registers listener under the given name, replacing (and
// stopping) any listener previously registered under the same name.
func (d *Dispatcher) AddListener(name string, listener api.FlowRuleListener) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		d.Log.Warnf("Dispatcher is closed, listener %s not added", name)
		return
	}
	if previous, exists := d.listeners[name]; exists {
		previous.stop()
	}
	q := &listenerQueue{
		name:     name,
		listener: listener,
		signal:   make(chan struct{}, 1),
	}
	d.listeners[name] = q
	d.wg.Add(1)
	go d.deliver(q)
	d.Log.Debugf("Added flow rule listener: %s", name)
}

// RemoveListener unregisters listener. Events queued for the listener
// and not yet delivered are dropped.
func (d *Dispatcher) RemoveListener(name string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if q, exists := d.listeners[name]; exists {
		q.stop()
		delete(d.listeners, name)
		d.Log.Debugf("Removed flow rule listener: %s", name)
	}
}

// Listeners returns names of the registered listeners.
func (d *Dispatcher) Listeners() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	var names []string
	for name := range d.listeners {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Post queues events for asynchronous delivery to all listeners.
func (d *Dispatcher) Post(events ...api.FlowRuleEvent) {
	if len(events) == 0 {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, q := range d.listeners {
		backlog := q.push(events)
		if d.BacklogWarning > 0 && backlog > d.BacklogWarning && backlog-len(events) <= d.BacklogWarning {
			d.Log.Warnf("Flow rule listener %s is lagging behind: %d undelivered events", q.name, backlog)
		}
	}
}

// Backlog returns the number of events not yet delivered to the listener.
func (d *Dispatcher) Backlog(name string) int {
	d.mu.Lock()
	q, exists := d.listeners[name]
	d.mu.Unlock()
	if !exists {
		return 0
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Close stops all listeners and waits for their goroutines to exit.
func (d *Dispatcher) Close() error {
	d.mu.Lock()
	d.closed = true
	for name, q := range d.listeners {
		q.stop()
		delete(d.listeners, name)
	}
	d.mu.Unlock()
	d.wg.Wait()
	return nil
}

// deliver is the delivery loop of a single listener.
func (d *Dispatcher) deliver(q *listenerQueue) {
	defer d.wg.Done()
	for range q.signal {
		for {
			event, ok := q.pop()
			if !ok {
				break
			}
			d.notify(q, event)
		}
		if q.isStopped() {
			return
		}
	}
}

// notify calls the listener, recovering from its panic.
func (d *Dispatcher) notify(q *listenerQueue, event api.FlowRuleEvent) {
	defer func() {
		if r := recover(); r != nil {
			d.Log.Errorf("Flow rule listener %s panicked on event %v: %v", q.name, event, r)
		}
	}()
	q.listener.OnFlowRuleEvent(event)
}

func (q *listenerQueue) push(events []api.FlowRuleEvent) (backlog int) {
	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		return 0
	}
	for _, event := range events {
		q.pending = append(q.pending, api.FlowRuleEvent{Type: event.Type, Entry: event.Entry.Clone()})
	}
	backlog = len(q.pending)
	q.mu.Unlock()
	q.wake()
	return backlog
}

func (q *listenerQueue) pop() (event api.FlowRuleEvent, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.stopped || len(q.pending) == 0 {
		return event, false
	}
	event = q.pending[0]
	q.pending[0] = api.FlowRuleEvent{}
	q.pending = q.pending[1:]
	return event, true
}

func (q *listenerQueue) stop() {
	q.mu.Lock()
	q.stopped = true
	q.pending = nil
	q.mu.Unlock()
	q.wake()
}

func (q *listenerQueue) isStopped() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.stopped
}

func (q *listenerQueue) wake() {
	select {
	case q.signal <- struct{}{}:
	default:
	}
}
