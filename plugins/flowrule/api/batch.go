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
	"strings"
	"sync"
	"time"
)

// FlowRuleOperationType is the type of a single batch operation.
type FlowRuleOperationType int

const (
	// OpAdd installs the rule.
	OpAdd FlowRuleOperationType = iota

	// OpModify re-installs the rule (same identity, refreshed southbound state).
	OpModify

	// OpRemove uninstalls the rule.
	OpRemove
)

// String converts operation type into a human-readable string.
func (op FlowRuleOperationType) String() string {
	switch op {
	case OpAdd:
		return "ADD"
	case OpModify:
		return "MODIFY"
	case OpRemove:
		return "REMOVE"
	}
	return "UNKNOWN"
}

// FlowRuleBatchEntry is a single operation of a batch.
type FlowRuleBatchEntry struct {
	Op   FlowRuleOperationType
	Rule Rule
}

// FlowRuleBatchOperation is a set of adds/removes for a single device
// submitted to a provider as one unit.
type FlowRuleBatchOperation struct {
	// ID is assigned by the manager when the batch is submitted.
	ID       uint64
	DeviceID DeviceID
	Entries  []FlowRuleBatchEntry

	// Term is the mastership term of the device at the time of submission.
	// Southbound drivers use it to reject writes of stale masters.
	Term MastershipTerm
}

// Rules returns rules of all batch entries with the given operation type.
func (b *FlowRuleBatchOperation) Rules(ops ...FlowRuleOperationType) Rules {
	var rules Rules
	for _, entry := range b.Entries {
		for _, op := range ops {
			if entry.Op == op {
				rules = append(rules, entry.Rule)
				break
			}
		}
	}
	return rules
}

// String describes the batch.
func (b *FlowRuleBatchOperation) String() string {
	var ops []string
	for _, entry := range b.Entries {
		ops = append(ops, fmt.Sprintf("%s %s", entry.Op, entry.Rule.ID()))
	}
	return fmt.Sprintf("Batch <id: %d, device: %s, term: %d, ops: [%s]>",
		b.ID, b.DeviceID, b.Term.TermNumber, strings.Join(ops, ", "))
}

// CompletedBatchOperation is the result of a batch reported by a provider.
type CompletedBatchOperation struct {
	BatchID  uint64
	DeviceID DeviceID
	Success  bool

	// Failed is the subset of batch rules that could not be applied.
	Failed Rules

	// Err is the reason of the failure (nil on success).
	Err error
}

// NewCompletedBatchOperation builds the result of a batch. The batch is
// considered successful if no rule failed and err is nil.
func NewCompletedBatchOperation(batch *FlowRuleBatchOperation, failed Rules, err error) *CompletedBatchOperation {
	result := &CompletedBatchOperation{
		BatchID:  batch.ID,
		DeviceID: batch.DeviceID,
		Success:  len(failed) == 0 && err == nil,
		Failed:   failed,
		Err:      err,
	}
	if !result.Success && result.Err == nil {
		result.Err = NewBatchError(batch.ID, failed)
	}
	return result
}

// FailedRule returns true if the given rule is in the failed subset.
func (c *CompletedBatchOperation) FailedRule(rule Rule) bool {
	for _, failed := range c.Failed {
		if failed.SameRule(rule) {
			return true
		}
	}
	return false
}

// BatchFuture allows to wait for the completion of a batch.
type BatchFuture struct {
	batchID uint64
	once    sync.Once
	done    chan struct{}
	result  *CompletedBatchOperation
}

// NewBatchFuture is a constructor for BatchFuture.
func NewBatchFuture(batchID uint64) *BatchFuture {
	return &BatchFuture{
		batchID: batchID,
		done:    make(chan struct{}),
	}
}

// BatchID returns ID of the batch the future belongs to.
func (f *BatchFuture) BatchID() uint64 {
	return f.batchID
}

// Done delivers the batch result to the waiting callers.
// Only the first call has effect.
func (f *BatchFuture) Done(result *CompletedBatchOperation) {
	f.once.Do(func() {
		f.result = result
		close(f.done)
	})
}

// Wait blocks until the batch completes.
func (f *BatchFuture) Wait() *CompletedBatchOperation {
	<-f.done
	return f.result
}

// WaitWithTimeout waits for the batch completion at most the given time.
// Returns nil if the timeout expired first.
func (f *BatchFuture) WaitWithTimeout(timeout time.Duration) *CompletedBatchOperation {
	select {
	case <-f.done:
		return f.result
	case <-time.After(timeout):
		return nil
	}
}
