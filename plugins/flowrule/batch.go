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

package flowrule

import (
	"github.com/pkg/errors"

	"github.com/contiv/flowrule/plugins/flowrule/api"
)

// ApplyBatch submits the batch of operations with a single device.
// The batch gets a unique ID and the current mastership term of the device
// assigned. The returned future is resolved once the provider reports
// the result (or immediately if the batch cannot be submitted).
//
// Providers without the batch capability receive the operations as
// separate writes; the future then only confirms that the batch
// was submitted.
func (m *FlowRuleManager) ApplyBatch(batch *api.FlowRuleBatchOperation) *api.BatchFuture {
	m.batchLock.Lock()
	m.batchSeq++
	batch.ID = m.batchSeq
	m.batchLock.Unlock()
	future := api.NewBatchFuture(batch.ID)

	if batch.DeviceID == "" && len(batch.Entries) > 0 {
		batch.DeviceID = batch.Entries[0].Rule.DeviceID
	}
	device := batch.DeviceID
	allRules := batch.Rules(api.OpAdd, api.OpModify, api.OpRemove)

	if err := validateBatch(batch); err != nil {
		future.Done(api.NewCompletedBatchOperation(batch, allRules, errors.Wrap(err, "invalid batch")))
		return future
	}
	if !m.isMaster(device) {
		err := errors.Errorf("local node is not master of device %s", device)
		future.Done(api.NewCompletedBatchOperation(batch, allRules, err))
		return future
	}
	batch.Term = m.currentTerm(device)

	provider := m.registry.ProviderFor(device)
	if !provider.Capabilities().Has(api.CapabilityBatch) {
		m.applyAsSingleOps(provider, batch, future)
		return future
	}

	m.batchLock.Lock()
	m.futures[batch.ID] = future
	m.batchLock.Unlock()

	var err error
	m.sequence(device, func() {
		m.dispatcher.Post(m.store.StoreBatch(batch)...)
		err = m.dispatch(device, "batch", func() {
			provider.ExecuteBatch(batch)
		})
	})
	m.updateEntryMetrics(device)
	if err != nil {
		m.BatchOperationCompleted(batch.ID, api.NewCompletedBatchOperation(batch, allRules, err))
	}
	return future
}

// applyAsSingleOps records the batch operations one by one and forwards
// them as separate writes to a provider without the batch capability.
func (m *FlowRuleManager) applyAsSingleOps(provider api.Provider, batch *api.FlowRuleBatchOperation, future *api.BatchFuture) {
	device := batch.DeviceID
	installed := batch.Rules(api.OpAdd, api.OpModify)
	removed := batch.Rules(api.OpRemove)

	var err error
	m.sequence(device, func() {
		var events []api.FlowRuleEvent
		for _, op := range batch.Entries {
			var event *api.FlowRuleEvent
			if op.Op == api.OpRemove {
				event = m.store.MarkPendingRemove(op.Rule)
			} else {
				event = m.store.StorePendingAdd(op.Rule)
			}
			if event != nil {
				events = append(events, *event)
			}
		}
		m.dispatcher.Post(events...)
		err = m.dispatch(device, "batch", func() {
			if len(installed) > 0 {
				provider.ApplyFlowRule(installed...)
			}
			if len(removed) > 0 {
				provider.RemoveFlowRule(removed...)
			}
		})
	})
	m.updateEntryMetrics(device)

	var failed api.Rules
	if err != nil {
		failed = batch.Rules(api.OpAdd, api.OpModify, api.OpRemove)
	}
	future.Done(api.NewCompletedBatchOperation(batch, failed, err))
}

// validateBatch checks that all operations are valid and target
// the device of the batch.
func validateBatch(batch *api.FlowRuleBatchOperation) error {
	for _, op := range batch.Entries {
		if err := op.Rule.Validate(); err != nil {
			return err
		}
		if op.Rule.DeviceID != batch.DeviceID {
			return api.NewInvalidRuleError(op.Rule, "rule targets a device different from the batch device")
		}
	}
	return nil
}
