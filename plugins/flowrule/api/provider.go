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
	"context"
	"strings"
)

// ProviderID identifies a southbound driver.
type ProviderID string

// Capability is a feature a provider may support.
type Capability uint8

const (
	// CapabilityBatch means that the provider executes batches natively.
	CapabilityBatch Capability = 1 << iota

	// CapabilityStats means that the provider periodically pushes
	// full snapshots of device flow entries.
	CapabilityStats

	// CapabilityRemovalNotification means that the provider sends explicit
	// notifications about removed rules.
	CapabilityRemovalNotification
)

// CapabilitySet is a set of capabilities.
type CapabilitySet uint8

// NewCapabilitySet builds a set from the given capabilities.
func NewCapabilitySet(caps ...Capability) CapabilitySet {
	var set CapabilitySet
	for _, c := range caps {
		set |= CapabilitySet(c)
	}
	return set
}

// Has returns true if the capability is in the set.
func (s CapabilitySet) Has(c Capability) bool {
	return s&CapabilitySet(c) != 0
}

// String lists the capabilities in the set.
func (s CapabilitySet) String() string {
	var names []string
	if s.Has(CapabilityBatch) {
		names = append(names, "batch")
	}
	if s.Has(CapabilityStats) {
		names = append(names, "stats")
	}
	if s.Has(CapabilityRemovalNotification) {
		names = append(names, "removal-notification")
	}
	return "{" + strings.Join(names, ",") + "}"
}

// Provider is the southbound driver contract.
//
// All methods fire the operation towards the device and return immediately;
// failures are reported asynchronously through ProviderService.
type Provider interface {
	// ID returns the identifier of the provider.
	ID() ProviderID

	// Capabilities returns the set of supported features.
	Capabilities() CapabilitySet

	// ApplyFlowRule installs the rules on their devices.
	ApplyFlowRule(rules ...Rule)

	// RemoveFlowRule uninstalls the rules from their devices.
	RemoveFlowRule(rules ...Rule)

	// RemoveRulesByID is a bulk removal hint for rules of an application.
	RemoveRulesByID(app ApplicationID, rules ...Rule)

	// ExecuteBatch submits a set of adds/removes as one unit. Completion
	// is reported via ProviderService.BatchOperationCompleted.
	ExecuteBatch(batch *FlowRuleBatchOperation)
}

// SelfHealingProvider is implemented by the always-present fallback driver
// that keeps its own bookkeeping of applied rules.
type SelfHealingProvider interface {
	Provider

	// Tracks returns true if the rule was applied through this provider
	// and was not removed since.
	Tracks(rule Rule) bool

	// Reinstall re-applies a tracked rule that the device lost.
	Reinstall(rule Rule)

	// Forget drops all bookkeeping for the device.
	Forget(device DeviceID)
}

// ProviderService is the callback channel from providers to the engine.
type ProviderService interface {
	// PushFlowMetrics reports the full snapshot of flow entries installed
	// on the device. Triggers reconciliation.
	PushFlowMetrics(device DeviceID, entries []FlowEntry)

	// FlowRemoved notifies about a single removed rule.
	FlowRemoved(entry FlowEntry)

	// BatchOperationCompleted reports the result of a batch.
	BatchOperationCompleted(batchID uint64, result *CompletedBatchOperation)
}

// ProviderRegistry resolves which provider programs a given device.
type ProviderRegistry interface {
	// ProviderFor returns the provider bound to the device or the fallback
	// provider if no specialized provider is bound.
	ProviderFor(device DeviceID) Provider

	// Fallback returns the always-present fallback provider.
	Fallback() SelfHealingProvider

	// IsFallback returns true if the given provider is the fallback.
	IsFallback(provider Provider) bool
}

// FlowRuleProgrammable is the generic device capability used by the fallback
// driver to program devices without a specialized provider.
type FlowRuleProgrammable interface {
	// GetFlowEntries reads all flow entries currently installed on the device.
	GetFlowEntries(ctx context.Context) ([]FlowEntry, error)

	// ApplyFlowRules installs rules, returns the subset that was applied.
	ApplyFlowRules(ctx context.Context, rules []Rule) (applied []Rule, err error)

	// RemoveFlowRules uninstalls rules, returns the subset that was removed.
	RemoveFlowRules(ctx context.Context, rules []Rule) (removed []Rule, err error)
}
