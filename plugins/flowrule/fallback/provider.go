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

package fallback

import (
	"context"
	"sync"
	"time"

	"github.com/ligato/cn-infra/logging"
	"github.com/pkg/errors"

	"github.com/contiv/flowrule/pkg/executor"
	"github.com/contiv/flowrule/plugins/flowrule/api"
)

const (
	// ProviderID identifies the fallback provider in the registry.
	ProviderID = api.ProviderID("fallback")

	// DefaultPollInterval is used when Deps.PollInterval is not set.
	DefaultPollInterval = 30 * time.Second

	// DefaultOpTimeout is used when Deps.OpTimeout is not set.
	DefaultOpTimeout = 10 * time.Second
)

// Provider is the always-present southbound driver used for devices without
// a specialized provider. It programs devices through the generic
// api.FlowRuleProgrammable capability, keeps local bookkeeping of the rules
// applied through it and periodically polls devices:
//   - rules from the bookkeeping missing on the device are re-applied,
//   - the snapshot is pushed to the manager via ProviderService.PushFlowMetrics.
//
// All operations with a single device (writes and polls) are serialized
// by the per-device installer; different devices are served concurrently.
type Provider struct {
	Deps

	installer *executor.Keyed

	mu    sync.Mutex
	rules map[api.DeviceID]map[string]api.Rule

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Deps lists dependencies of the fallback Provider.
type Deps struct {
	Log     logging.Logger
	Devices api.DeviceService

	// Service receives snapshots and batch results. Set before Start.
	Service api.ProviderService

	// Mastership is optional; when set, batches with stale terms are rejected
	// and devices not mastered locally are not polled.
	Mastership api.MastershipService

	PollInterval time.Duration
	OpTimeout    time.Duration
}

// NewProvider is a constructor for the fallback Provider.
func NewProvider(deps Deps) *Provider {
	if deps.PollInterval <= 0 {
		deps.PollInterval = DefaultPollInterval
	}
	if deps.OpTimeout <= 0 {
		deps.OpTimeout = DefaultOpTimeout
	}
	p := &Provider{
		Deps:      deps,
		installer: executor.NewKeyed(),
		rules:     make(map[api.DeviceID]map[string]api.Rule),
	}
	p.ctx, p.cancel = context.WithCancel(context.Background())
	return p
}

// Start starts the periodic poll of devices.
func (p *Provider) Start() {
	p.wg.Add(1)
	go p.pollLoop()
}

// Close stops the poll loop and waits for the pending device operations.
func (p *Provider) Close() error {
	p.cancel()
	p.wg.Wait()
	return p.installer.Close()
}

// ID returns ProviderID.
func (p *Provider) ID() api.ProviderID {
	return ProviderID
}

// Capabilities of the fallback: it executes batches and pushes snapshots.
func (p *Provider) Capabilities() api.CapabilitySet {
	return api.NewCapabilitySet(api.CapabilityBatch, api.CapabilityStats)
}

// ApplyFlowRule installs the rules on their devices.
func (p *Provider) ApplyFlowRule(rules ...api.Rule) {
	devices, byDevice := api.Rules(rules).GroupByDevice()
	for _, device := range devices {
		deviceRules := byDevice[device]
		p.track(deviceRules...)
		p.submit(device, func() {
			p.apply(device, deviceRules)
			p.poll(device)
		})
	}
}

// RemoveFlowRule uninstalls the rules from their devices.
func (p *Provider) RemoveFlowRule(rules ...api.Rule) {
	devices, byDevice := api.Rules(rules).GroupByDevice()
	for _, device := range devices {
		deviceRules := byDevice[device]
		p.untrack(deviceRules...)
		p.submit(device, func() {
			p.remove(device, deviceRules)
			p.poll(device)
		})
	}
}

// RemoveRulesByID uninstalls rules of the application.
func (p *Provider) RemoveRulesByID(app api.ApplicationID, rules ...api.Rule) {
	p.Log.Debugf("Removing %d rules of application %s", len(rules), app)
	p.RemoveFlowRule(rules...)
}

// ExecuteBatch applies the batch as a single device operation. The result
// is reported via ProviderService.BatchOperationCompleted.
func (p *Provider) ExecuteBatch(batch *api.FlowRuleBatchOperation) {
	if p.Mastership != nil {
		term, exists := p.Mastership.GetTerm(batch.DeviceID)
		if exists && term != batch.Term {
			err := api.NewRoleAssertionError(batch.DeviceID, batch.Term)
			p.Log.Warnf("Rejecting batch %d: %v", batch.ID, err)
			p.complete(batch, batch.Rules(api.OpAdd, api.OpModify, api.OpRemove), err)
			return
		}
	}

	adds := batch.Rules(api.OpAdd, api.OpModify)
	removes := batch.Rules(api.OpRemove)
	p.track(adds...)
	p.untrack(removes...)

	device := batch.DeviceID
	err := p.submit(device, func() {
		var failed api.Rules
		applied, applyErr := p.apply(device, adds)
		failed = append(failed, difference(adds, applied)...)
		removed, removeErr := p.remove(device, removes)
		failed = append(failed, difference(removes, removed)...)
		p.untrack(difference(adds, applied)...)

		err := applyErr
		if err == nil {
			err = removeErr
		}
		p.complete(batch, failed, err)
		p.poll(device)
	})
	if err != nil {
		p.untrack(adds...)
		p.complete(batch, batch.Rules(api.OpAdd, api.OpModify, api.OpRemove), err)
	}
}

// Tracks returns true if the rule was applied through the fallback
// and not removed since.
func (p *Provider) Tracks(rule api.Rule) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, tracked := p.rules[rule.DeviceID][rule.Key()]
	return tracked
}

// Reinstall re-applies a tracked rule that the device lost.
func (p *Provider) Reinstall(rule api.Rule) {
	if !p.Tracks(rule) {
		return
	}
	p.Log.Infof("Re-installing rule %v lost by device %s", rule.ID(), rule.DeviceID)
	p.submit(rule.DeviceID, func() {
		p.apply(rule.DeviceID, []api.Rule{rule})
		p.poll(rule.DeviceID)
	})
}

// Forget drops the bookkeeping of the device.
func (p *Provider) Forget(device api.DeviceID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.rules, device)
}

// TrackedDevices returns devices with at least one tracked rule.
func (p *Provider) TrackedDevices() []api.DeviceID {
	p.mu.Lock()
	defer p.mu.Unlock()
	var devices []api.DeviceID
	for device, rules := range p.rules {
		if len(rules) > 0 {
			devices = append(devices, device)
		}
	}
	return devices
}

// Idle returns true if no write or poll of the device is queued or running.
func (p *Provider) Idle(device api.DeviceID) bool {
	return !p.installer.Pending(string(device))
}

// PollDevice schedules an immediate poll of the device (unless one is
// already pending).
func (p *Provider) PollDevice(device api.DeviceID) {
	if p.installer.Pending(string(device)) {
		return
	}
	p.submit(device, func() { p.poll(device) })
}

func (p *Provider) pollLoop() {
	defer p.wg.Done()
	ticker := time.NewTicker(p.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			for _, device := range p.TrackedDevices() {
				p.PollDevice(device)
			}
		case <-p.ctx.Done():
			return
		}
	}
}

// poll reads the device flow entries, re-applies the tracked rules that are
// missing and pushes the resulting snapshot to the manager.
// Runs from the device installer.
func (p *Provider) poll(device api.DeviceID) {
	if !p.Devices.IsAvailable(device) {
		return
	}
	if p.Mastership != nil && p.Mastership.GetLocalRole(device) != api.RoleMaster {
		return
	}
	programmable, supported := p.Devices.Programmable(device)
	if !supported {
		return
	}
	ctx, cancel := context.WithTimeout(p.ctx, p.OpTimeout)
	defer cancel()

	entries, err := programmable.GetFlowEntries(ctx)
	if err != nil {
		p.Log.Warnf("Failed to read flow entries of device %s: %v", device, err)
		return
	}

	missing := difference(p.tracked(device), api.FlowEntries(entries).Rules())
	if len(missing) > 0 {
		p.Log.Infof("Device %s is missing %d rules, re-applying", device, len(missing))
		if _, err := programmable.ApplyFlowRules(ctx, missing); err != nil {
			p.Log.Warnf("Failed to re-apply rules on device %s: %v", device, err)
		}
		if entries, err = programmable.GetFlowEntries(ctx); err != nil {
			p.Log.Warnf("Failed to read flow entries of device %s: %v", device, err)
			return
		}
	}
	if p.Service != nil {
		p.Service.PushFlowMetrics(device, entries)
	}
}

// apply installs rules on the device. Runs from the device installer.
func (p *Provider) apply(device api.DeviceID, rules []api.Rule) (applied []api.Rule, err error) {
	if len(rules) == 0 {
		return nil, nil
	}
	programmable, supported := p.Devices.Programmable(device)
	if !supported {
		p.untrack(rules...)
		err = errors.Errorf("device %s does not support flow rule programming", device)
		p.Log.Warn(err)
		return nil, err
	}
	ctx, cancel := context.WithTimeout(p.ctx, p.OpTimeout)
	defer cancel()
	applied, err = programmable.ApplyFlowRules(ctx, rules)
	if err != nil {
		p.Log.Warnf("Failed to apply %d rules on device %s: %v", len(rules)-len(applied), device, err)
	}
	return applied, err
}

// remove uninstalls rules from the device. Runs from the device installer.
func (p *Provider) remove(device api.DeviceID, rules []api.Rule) (removed []api.Rule, err error) {
	if len(rules) == 0 {
		return nil, nil
	}
	programmable, supported := p.Devices.Programmable(device)
	if !supported {
		err = errors.Errorf("device %s does not support flow rule programming", device)
		p.Log.Warn(err)
		return nil, err
	}
	ctx, cancel := context.WithTimeout(p.ctx, p.OpTimeout)
	defer cancel()
	removed, err = programmable.RemoveFlowRules(ctx, rules)
	if err != nil {
		p.Log.Warnf("Failed to remove %d rules from device %s: %v", len(rules)-len(removed), device, err)
	}
	return removed, err
}

func (p *Provider) complete(batch *api.FlowRuleBatchOperation, failed api.Rules, err error) {
	if p.Service == nil {
		return
	}
	p.Service.BatchOperationCompleted(batch.ID, api.NewCompletedBatchOperation(batch, failed, err))
}

func (p *Provider) submit(device api.DeviceID, task executor.Task) error {
	err := p.installer.Submit(string(device), task)
	if err != nil {
		p.Log.Warnf("Failed to schedule operation for device %s: %v", device, err)
	}
	return err
}

func (p *Provider) track(rules ...api.Rule) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, rule := range rules {
		deviceRules, exists := p.rules[rule.DeviceID]
		if !exists {
			deviceRules = make(map[string]api.Rule)
			p.rules[rule.DeviceID] = deviceRules
		}
		deviceRules[rule.Key()] = rule.Clone()
	}
}

func (p *Provider) untrack(rules ...api.Rule) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, rule := range rules {
		if deviceRules, exists := p.rules[rule.DeviceID]; exists {
			delete(deviceRules, rule.Key())
			if len(deviceRules) == 0 {
				delete(p.rules, rule.DeviceID)
			}
		}
	}
}

func (p *Provider) tracked(device api.DeviceID) api.Rules {
	p.mu.Lock()
	defer p.mu.Unlock()
	var rules api.Rules
	for _, rule := range p.rules[device] {
		rules = append(rules, rule.Clone())
	}
	return rules
}

// difference returns rules from <all> not present in <subset>.
func difference(all, subset []api.Rule) (diff api.Rules) {
	keys := make(map[string]struct{}, len(subset))
	for _, rule := range subset {
		keys[rule.Key()] = struct{}{}
	}
	for _, rule := range all {
		if _, found := keys[rule.Key()]; !found {
			diff = append(diff, rule)
		}
	}
	return diff
}
