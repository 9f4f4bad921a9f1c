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
	"github.com/contiv/flowrule/plugins/flowrule/api"
)

// PushFlowMetrics reconciles the snapshot of flow entries reported by the
// device with the stored intent. Extraneous rules are removed from the device
// (unless allowed by the configuration) and removals of rules still reported
// by the device are re-issued.
func (m *FlowRuleManager) PushFlowMetrics(device api.DeviceID, entries []api.FlowEntry) {
	if !m.isMaster(device) {
		m.Log.Debugf("Ignoring flow entries of device %s not mastered locally", device)
		return
	}

	provider := m.registry.ProviderFor(device)
	var adopt api.AdoptFunc
	if m.registry.IsFallback(provider) {
		fallback := m.registry.Fallback()
		adopt = func(reported api.FlowEntry) bool {
			return fallback.Tracks(reported.Rule)
		}
	}

	m.sequence(device, func() {
		result := m.store.Reconcile(device, entries, adopt)
		m.dispatcher.Post(result.Events...)

		if len(result.Extraneous) > 0 {
			m.metrics.countExtraneous(device, len(result.Extraneous))
			if m.config.AllowExtraneousRules {
				m.Log.Warnf("Device %s reported %d extraneous rules, keeping them", device, len(result.Extraneous))
			} else {
				m.Log.Warnf("Device %s reported %d extraneous rules, removing them", device, len(result.Extraneous))
				extraneous := api.FlowEntries(result.Extraneous).Rules()
				m.dispatch(device, "removal of extraneous rules", func() {
					provider.RemoveFlowRule(extraneous...)
				})
			}
		}

		if len(result.Stale) > 0 {
			m.Log.Debugf("Device %s still reports %d rules pending removal", device, len(result.Stale))
			stale := api.FlowEntries(result.Stale).Rules()
			m.dispatch(device, "removal of stale rules", func() {
				provider.RemoveFlowRule(stale...)
			})
		}
	})
	m.updateEntryMetrics(device)
}

// FlowRemoved handles the notification about a rule removed from the device.
// If the rule is unknown to the store but was applied through the fallback
// provider, the fallback re-installs it.
func (m *FlowRuleManager) FlowRemoved(entry api.FlowEntry) {
	device := entry.DeviceID
	var event *api.FlowRuleEvent
	m.sequence(device, func() {
		event = m.store.RemoveFlowEntry(entry)
		if event != nil {
			m.dispatcher.Post(*event)
		}
	})
	if event == nil && m.isMaster(device) {
		fallback := m.registry.Fallback()
		if m.registry.IsFallback(m.registry.ProviderFor(device)) && fallback.Tracks(entry.Rule) {
			m.Log.Debugf("Rule %v removed from device %s is tracked by the fallback, re-installing", entry.ID(), device)
			fallback.Reinstall(entry.Rule)
		}
	}
	m.updateEntryMetrics(device)
}

// BatchOperationCompleted applies the result of a batch to the store
// and resolves the future returned by ApplyBatch.
func (m *FlowRuleManager) BatchOperationCompleted(batchID uint64, result *api.CompletedBatchOperation) {
	if result == nil {
		return
	}
	device := result.DeviceID
	m.sequence(device, func() {
		m.dispatcher.Post(m.store.BatchOperationComplete(batchID, result)...)
	})

	if !result.Success {
		m.Log.Errorf("Batch %d on device %s failed (%d rules): %v", batchID, device, len(result.Failed), result.Err)
		m.metrics.countBatchFailure(device)
		if roleErr, isRoleErr := api.IsRoleAssertionError(result.Err); isRoleErr && m.Mastership != nil {
			m.Mastership.UnableToAssertRole(roleErr.GetDevice(), roleErr.GetTerm(), result.Err)
		}
	}
	m.updateEntryMetrics(device)

	m.batchLock.Lock()
	future, pending := m.futures[batchID]
	delete(m.futures, batchID)
	m.batchLock.Unlock()
	if pending {
		future.Done(result)
	}
}
