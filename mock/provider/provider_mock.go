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

package provider

import (
	"sync"

	"github.com/contiv/flowrule/plugins/flowrule/api"
)

// MockProvider is a mock for a specialized southbound provider.
// It records all requests; batches are completed by the configured
// ProviderService (if any), optionally failing selected rules.
type MockProvider struct {
	sync.Mutex

	id           api.ProviderID
	capabilities api.CapabilitySet

	applied   api.Rules
	removed   api.Rules
	removedBy map[api.ApplicationID]api.Rules
	batches   []*api.FlowRuleBatchOperation

	service   api.ProviderService
	failRules api.Rules
}

// NewMockProvider is a constructor for MockProvider.
func NewMockProvider(id api.ProviderID, caps ...api.Capability) *MockProvider {
	return &MockProvider{
		id:           id,
		capabilities: api.NewCapabilitySet(caps...),
		removedBy:    make(map[api.ApplicationID]api.Rules),
	}
}

// SetProviderService sets the service used to report batch completion.
func (mp *MockProvider) SetProviderService(service api.ProviderService) {
	mp.Lock()
	defer mp.Unlock()
	mp.service = service
}

// FailRules makes the following batches fail for the given rules.
func (mp *MockProvider) FailRules(rules ...api.Rule) {
	mp.Lock()
	defer mp.Unlock()
	mp.failRules = rules
}

func (mp *MockProvider) ID() api.ProviderID {
	return mp.id
}

func (mp *MockProvider) Capabilities() api.CapabilitySet {
	return mp.capabilities
}

func (mp *MockProvider) ApplyFlowRule(rules ...api.Rule) {
	mp.Lock()
	defer mp.Unlock()
	mp.applied = append(mp.applied, rules...)
}

func (mp *MockProvider) RemoveFlowRule(rules ...api.Rule) {
	mp.Lock()
	defer mp.Unlock()
	mp.removed = append(mp.removed, rules...)
}

func (mp *MockProvider) RemoveRulesByID(app api.ApplicationID, rules ...api.Rule) {
	mp.Lock()
	defer mp.Unlock()
	mp.removedBy[app] = append(mp.removedBy[app], rules...)
}

func (mp *MockProvider) ExecuteBatch(batch *api.FlowRuleBatchOperation) {
	mp.Lock()
	mp.batches = append(mp.batches, batch)
	service := mp.service
	var failed api.Rules
	for _, op := range batch.Entries {
		for _, rule := range mp.failRules {
			if rule.SameRule(op.Rule) {
				failed = append(failed, op.Rule)
			}
		}
	}
	mp.Unlock()

	if service != nil {
		service.BatchOperationCompleted(batch.ID, api.NewCompletedBatchOperation(batch, failed, nil))
	}
}

// Applied returns all rules passed to ApplyFlowRule.
func (mp *MockProvider) Applied() api.Rules {
	mp.Lock()
	defer mp.Unlock()
	return append(api.Rules{}, mp.applied...)
}

// Removed returns all rules passed to RemoveFlowRule.
func (mp *MockProvider) Removed() api.Rules {
	mp.Lock()
	defer mp.Unlock()
	return append(api.Rules{}, mp.removed...)
}

// RemovedByApp returns all rules passed to RemoveRulesByID for the app.
func (mp *MockProvider) RemovedByApp(app api.ApplicationID) api.Rules {
	mp.Lock()
	defer mp.Unlock()
	return append(api.Rules{}, mp.removedBy[app]...)
}

// Batches returns all executed batches.
func (mp *MockProvider) Batches() []*api.FlowRuleBatchOperation {
	mp.Lock()
	defer mp.Unlock()
	return append([]*api.FlowRuleBatchOperation{}, mp.batches...)
}
