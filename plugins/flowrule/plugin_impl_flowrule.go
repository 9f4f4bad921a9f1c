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
	"sync"
	"time"

	"github.com/ligato/cn-infra/health/statuscheck"
	"github.com/ligato/cn-infra/infra"
	prometheusplugin "github.com/ligato/cn-infra/rpc/prometheus"
	"github.com/ligato/cn-infra/rpc/rest"
	"github.com/ligato/cn-infra/servicelabel"
	"github.com/pkg/errors"

	"github.com/contiv/flowrule/pkg/executor"
	"github.com/contiv/flowrule/plugins/flowrule/api"
	"github.com/contiv/flowrule/plugins/flowrule/dispatcher"
	"github.com/contiv/flowrule/plugins/flowrule/fallback"
	"github.com/contiv/flowrule/plugins/flowrule/registry"
	"github.com/contiv/flowrule/plugins/flowrule/store"
)

const (
	// default configuration
	defaultOpExecutorWorkers    = 8
	defaultOpExecutorQueueSize  = 1000
	defaultFallbackPollInterval = 30 * time.Second
	defaultListenerQueueSize    = 1000
)

// FlowRuleManager is the north-bound facade of the flow rule engine.
//
// Applications submit rules and batches; the manager records the intent
// in the store, emits lifecycle events through the dispatcher and forwards
// the device writes to the provider owning the device. Providers report
// back through the api.ProviderService methods, which reconcile the reported
// device state with the stored intent.
//
// Store operations of a single device are sequenced together with posting
// of the events they produce, therefore listeners receive events of a device
// in the order in which the store generated them.
type FlowRuleManager struct {
	Deps

	config *Config

	store      api.Store
	registry   *registry.Registry
	fallback   *fallback.Provider
	dispatcher *dispatcher.Dispatcher
	opExecutor *executor.Striped
	metrics    *metrics

	seqLock    sync.Mutex
	sequencers map[api.DeviceID]*sync.Mutex

	batchLock sync.Mutex
	batchSeq  uint64
	futures   map[uint64]*api.BatchFuture
}

// Deps lists dependencies of the FlowRuleManager plugin.
type Deps struct {
	infra.PluginDeps

	ServiceLabel servicelabel.ReaderAPI
	Devices      api.DeviceService
	Mastership   api.MastershipService          /* optional, without it every device is mastered locally */
	DB           api.ClusterWideDB              /* optional, without it flow entries are kept only in memory */
	StatusCheck  statuscheck.PluginStatusWriter /* optional */
	HTTPHandlers rest.HTTPHandlers              /* optional */
	Prometheus   prometheusplugin.API           /* optional */
}

// Config holds the configuration of the FlowRuleManager plugin.
type Config struct {
	// executor dispatching device writes to providers
	OpExecutorWorkers   int `json:"op-executor-workers"`
	OpExecutorQueueSize int `json:"op-executor-queue-size"`

	// fallback provider
	FallbackPollInterval time.Duration `json:"fallback-poll-interval"`

	// reconciliation
	AllowExtraneousRules bool `json:"allow-extraneous-rules"`
	PurgeOnDisconnection bool `json:"purge-on-disconnection"`

	// number of undelivered events of a listener above which a warning is logged
	ListenerQueueSize int `json:"listener-queue-size"`
}

// Init builds the engine components and subscribes to device
// and mastership events.
func (m *FlowRuleManager) Init() error {
	if m.Devices == nil {
		return errors.New("missing mandatory dependency: Devices")
	}

	m.config = m.defaultConfig()
	if err := m.loadConfig(m.config); err != nil {
		return err
	}

	var backend store.Backend
	if m.DB != nil {
		kvdb := store.NewKVDBBackend(nil, m.Log)
		m.DB.OnConnect(func() error {
			kvdb.Connect(m.DB.NewBroker(servicelabel.GetDifferentAgentPrefix(api.ClusterLabel)))
			return nil
		})
		backend = kvdb
	}
	m.store = store.NewFlowRuleStore(store.Deps{
		Log:     m.Log,
		Backend: backend,
	})

	m.dispatcher = dispatcher.NewDispatcher(m.Log)
	m.dispatcher.BacklogWarning = m.config.ListenerQueueSize

	m.fallback = fallback.NewProvider(fallback.Deps{
		Log:          m.Log,
		Devices:      m.Devices,
		Service:      m,
		Mastership:   m.Mastership,
		PollInterval: m.config.FallbackPollInterval,
	})
	m.registry = registry.NewRegistry(m.fallback, m.Log)

	m.opExecutor = executor.NewStriped(m.config.OpExecutorWorkers, m.config.OpExecutorQueueSize)
	m.sequencers = make(map[api.DeviceID]*sync.Mutex)
	m.futures = make(map[uint64]*api.BatchFuture)

	m.metrics = newMetrics(m.nodeLabel())
	if err := m.registerMetrics(); err != nil {
		return err
	}

	if m.StatusCheck != nil {
		m.StatusCheck.Register(m.PluginName, nil)
	}

	if err := m.Devices.Watch(m.String(), m.onDeviceEvent); err != nil {
		return errors.Wrap(err, "failed to watch device events")
	}
	if m.Mastership != nil {
		if err := m.Mastership.Watch(m.String(), m.onMastershipEvent); err != nil {
			return errors.Wrap(err, "failed to watch mastership events")
		}
	}
	return nil
}

// AfterInit starts the fallback poll and registers REST handlers.
func (m *FlowRuleManager) AfterInit() error {
	m.fallback.Start()
	m.registerHandlers()
	if m.StatusCheck != nil {
		m.StatusCheck.ReportStateChange(m.PluginName, statuscheck.OK, nil)
	}
	return nil
}

// Close stops the fallback provider, the executor and the dispatcher.
func (m *FlowRuleManager) Close() error {
	m.fallback.Close()
	m.opExecutor.Close()
	return m.dispatcher.Close()
}

// Registry returns the registry of southbound providers, used to register
// specialized providers and bind them to devices.
func (m *FlowRuleManager) Registry() *registry.Registry {
	return m.registry
}

// ApplyFlowRules records the rules as PENDING_ADD and forwards them to the
// providers of their devices. Rules already in the store do not produce
// any event, but are still forwarded to refresh the device state.
//
// If the device write cannot be queued (executor full or closed), the rules
// stay recorded, the returned error says so and the intent reaches the device
// with the next resync (device reconnect or mastership change).
func (m *FlowRuleManager) ApplyFlowRules(rules ...api.Rule) error {
	if err := validate(rules); err != nil {
		return errors.Wrap(err, "cannot apply flow rules")
	}
	devices, byDevice := api.Rules(rules).GroupByDevice()
	var wasErr error
	for _, device := range devices {
		deviceRules := byDevice[device]
		err := m.record(device, deviceRules, m.store.StorePendingAdd, "apply", func(provider api.Provider) {
			provider.ApplyFlowRule(deviceRules...)
		})
		if err != nil {
			wasErr = err
		}
	}
	return wasErr
}

// RemoveFlowRules marks the rules as PENDING_REMOVE and forwards their
// removal to the providers. Unknown rules and rules already pending removal
// do not produce any event, but the removal is still forwarded.
// Undispatched removals are handled as in ApplyFlowRules.
func (m *FlowRuleManager) RemoveFlowRules(rules ...api.Rule) error {
	if err := validate(rules); err != nil {
		return errors.Wrap(err, "cannot remove flow rules")
	}
	devices, byDevice := api.Rules(rules).GroupByDevice()
	var wasErr error
	for _, device := range devices {
		deviceRules := byDevice[device]
		err := m.record(device, deviceRules, m.store.MarkPendingRemove, "remove", func(provider api.Provider) {
			provider.RemoveFlowRule(deviceRules...)
		})
		if err != nil {
			wasErr = err
		}
	}
	return wasErr
}

// RemoveFlowRulesByID removes all rules owned by the application.
func (m *FlowRuleManager) RemoveFlowRulesByID(app api.ApplicationID) error {
	entries := m.store.GetFlowEntriesByApp(app)
	devices, byDevice := api.FlowEntries(entries).Rules().GroupByDevice()
	var wasErr error
	for _, device := range devices {
		deviceRules := byDevice[device]
		err := m.record(device, deviceRules, m.store.MarkPendingRemove, "remove by app", func(provider api.Provider) {
			provider.RemoveRulesByID(app, deviceRules...)
		})
		if err != nil {
			wasErr = err
		}
	}
	return wasErr
}

// GetFlowRulesByID returns copies of all entries owned by the application.
func (m *FlowRuleManager) GetFlowRulesByID(app api.ApplicationID) []api.FlowEntry {
	return m.store.GetFlowEntriesByApp(app)
}

// GetFlowEntries returns copies of all entries of the device.
func (m *FlowRuleManager) GetFlowEntries(device api.DeviceID) []api.FlowEntry {
	return m.store.GetFlowEntries(device)
}

// GetFlowEntry returns copy of the entry of the given rule.
func (m *FlowRuleManager) GetFlowEntry(rule api.Rule) (entry api.FlowEntry, found bool) {
	return m.store.GetFlowEntry(rule)
}

// GetDevices returns devices with at least one flow entry.
func (m *FlowRuleManager) GetDevices() []api.DeviceID {
	return m.store.GetDevices()
}

// GetFlowRuleCount returns the number of entries stored for the device.
func (m *FlowRuleManager) GetFlowRuleCount(device api.DeviceID) int {
	return m.store.FlowEntryCount(device)
}

// PurgeFlowRules wipes all entries of the device without emitting events
// and without notifying the device.
func (m *FlowRuleManager) PurgeFlowRules(device api.DeviceID) {
	m.Log.Infof("Purging flow rules of device %s", device)
	m.sequence(device, func() {
		m.store.Purge(device)
	})
	m.registry.Fallback().Forget(device)
	m.metrics.deleteDevice(device)
}

// AddListener registers listener of flow rule events.
func (m *FlowRuleManager) AddListener(name string, listener api.FlowRuleListener) {
	m.dispatcher.AddListener(name, listener)
}

// RemoveListener unregisters listener of flow rule events.
func (m *FlowRuleManager) RemoveListener(name string) {
	m.dispatcher.RemoveListener(name)
}

// record applies the store operation on every rule of the device, posts
// the produced events and dispatches the device write, all in the order
// of the device sequence. A failed dispatch does not revert the store.
func (m *FlowRuleManager) record(device api.DeviceID, rules []api.Rule,
	storeOp func(api.Rule) *api.FlowRuleEvent, what string, write func(api.Provider)) (err error) {

	provider := m.registry.ProviderFor(device)
	m.sequence(device, func() {
		var events []api.FlowRuleEvent
		for _, rule := range rules {
			if event := storeOp(rule); event != nil {
				events = append(events, *event)
			}
		}
		m.dispatcher.Post(events...)
		err = m.dispatch(device, what, func() {
			write(provider)
		})
	})
	m.updateEntryMetrics(device)
	return err
}

// sequence runs op while holding the lock of the device.
func (m *FlowRuleManager) sequence(device api.DeviceID, op func()) {
	m.seqLock.Lock()
	seq, exists := m.sequencers[device]
	if !exists {
		seq = &sync.Mutex{}
		m.sequencers[device] = seq
	}
	m.seqLock.Unlock()

	seq.Lock()
	defer seq.Unlock()
	op()
}

// forgetSequencer drops the lock of a device that is no longer managed.
func (m *FlowRuleManager) forgetSequencer(device api.DeviceID) {
	m.seqLock.Lock()
	defer m.seqLock.Unlock()
	delete(m.sequencers, device)
}

// dispatch submits device write into the operation executor, unless
// the local node is not master of the device.
func (m *FlowRuleManager) dispatch(device api.DeviceID, what string, task executor.Task) error {
	if !m.isMaster(device) {
		m.Log.Debugf("Local node is not master of device %s, %s not dispatched", device, what)
		return nil
	}
	if err := m.opExecutor.Submit(string(device), task); err != nil {
		err = errors.Wrapf(err, "failed to dispatch %s to device %s", what, device)
		m.Log.Error(err)
		m.reportError(err)
		return err
	}
	return nil
}

// resync forwards all stored intent of the device to its provider.
func (m *FlowRuleManager) resync(device api.DeviceID) {
	provider := m.registry.ProviderFor(device)
	m.sequence(device, func() {
		var installed, removed api.Rules
		for _, entry := range m.store.GetFlowEntries(device) {
			if entry.State == api.PendingRemove {
				removed = append(removed, entry.Rule)
				continue
			}
			installed = append(installed, entry.Rule)
		}
		if len(installed) == 0 && len(removed) == 0 {
			return
		}
		m.Log.Infof("Re-synchronizing device %s: %d rules to install, %d to remove",
			device, len(installed), len(removed))
		m.dispatch(device, "resync", func() {
			if len(installed) > 0 {
				provider.ApplyFlowRule(installed...)
			}
			if len(removed) > 0 {
				provider.RemoveFlowRule(removed...)
			}
		})
	})
}

func (m *FlowRuleManager) isMaster(device api.DeviceID) bool {
	return m.localRole(device) == api.RoleMaster
}

func (m *FlowRuleManager) currentTerm(device api.DeviceID) api.MastershipTerm {
	if m.Mastership == nil {
		return api.MastershipTerm{}
	}
	term, _ := m.Mastership.GetTerm(device)
	return term
}

func (m *FlowRuleManager) nodeLabel() string {
	if m.ServiceLabel == nil {
		return ""
	}
	return m.ServiceLabel.GetAgentLabel()
}

func (m *FlowRuleManager) reportError(err error) {
	if m.StatusCheck != nil {
		m.StatusCheck.ReportStateChange(m.PluginName, statuscheck.Error, err)
	}
}

func (m *FlowRuleManager) defaultConfig() *Config {
	return &Config{
		OpExecutorWorkers:    defaultOpExecutorWorkers,
		OpExecutorQueueSize:  defaultOpExecutorQueueSize,
		FallbackPollInterval: defaultFallbackPollInterval,
		ListenerQueueSize:    defaultListenerQueueSize,
	}
}

// loadConfig loads configuration file.
func (m *FlowRuleManager) loadConfig(config *Config) error {
	if m.Cfg == nil {
		return nil
	}
	found, err := m.Cfg.LoadValue(config)
	if err != nil {
		return err
	} else if !found {
		m.Log.Debugf("%v config not found", m.PluginName)
		return nil
	}
	m.Log.Infof("%v config found: %+v", m.PluginName, config)
	return nil
}

// validate checks all rules, returning the first error found.
func validate(rules []api.Rule) error {
	for _, rule := range rules {
		if err := rule.Validate(); err != nil {
			return err
		}
	}
	return nil
}
