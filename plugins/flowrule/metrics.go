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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/contiv/flowrule/plugins/flowrule/api"
)

const (
	prometheusStatsPath = "/flowrule-stats"

	deviceLabel = "device"
	stateLabel  = "state"
	nodeLabel   = "node"

	entriesMetric       = "flowrule_entries"
	entriesMetricHelp   = "Number of flow entries stored for the device, by state."
	extraneousMetric    = "flowrule_extraneous_total"
	extraneousHelp      = "Number of extraneous rules reported by the device."
	batchFailuresMetric = "flowrule_batch_failures_total"
	batchFailuresHelp   = "Number of failed batch operations with the device."
)

// states of stored entries exported as gauges
var exportedStates = []api.FlowEntryState{api.PendingAdd, api.Added, api.PendingRemove}

// metrics groups prometheus vectors of the manager.
type metrics struct {
	entries       *prometheus.GaugeVec
	extraneous    *prometheus.CounterVec
	batchFailures *prometheus.CounterVec
}

func newMetrics(node string) *metrics {
	constLabels := prometheus.Labels{nodeLabel: node}
	return &metrics{
		entries: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name:        entriesMetric,
			Help:        entriesMetricHelp,
			ConstLabels: constLabels,
		}, []string{deviceLabel, stateLabel}),
		extraneous: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        extraneousMetric,
			Help:        extraneousHelp,
			ConstLabels: constLabels,
		}, []string{deviceLabel}),
		batchFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        batchFailuresMetric,
			Help:        batchFailuresHelp,
			ConstLabels: constLabels,
		}, []string{deviceLabel}),
	}
}

// registerMetrics publishes the vectors into a dedicated prometheus registry.
func (m *FlowRuleManager) registerMetrics() error {
	if m.Prometheus == nil {
		return nil
	}
	err := m.Prometheus.NewRegistry(prometheusStatsPath, promhttp.HandlerOpts{ErrorHandling: promhttp.ContinueOnError, ErrorLog: m.Log})
	if err != nil {
		return err
	}
	for _, collector := range []prometheus.Collector{m.metrics.entries, m.metrics.extraneous, m.metrics.batchFailures} {
		if err := m.Prometheus.Register(prometheusStatsPath, collector); err != nil {
			return err
		}
	}
	return nil
}

// updateEntryMetrics refreshes gauges of the device from the store.
func (m *FlowRuleManager) updateEntryMetrics(device api.DeviceID) {
	counts := api.FlowEntries(m.store.GetFlowEntries(device)).CountByState()
	for _, state := range exportedStates {
		m.metrics.entries.With(prometheus.Labels{
			deviceLabel: string(device),
			stateLabel:  state.String(),
		}).Set(float64(counts[state]))
	}
}

func (mt *metrics) countExtraneous(device api.DeviceID, count int) {
	mt.extraneous.With(prometheus.Labels{deviceLabel: string(device)}).Add(float64(count))
}

func (mt *metrics) countBatchFailure(device api.DeviceID) {
	mt.batchFailures.With(prometheus.Labels{deviceLabel: string(device)}).Inc()
}

// deleteDevice drops all series of the device.
func (mt *metrics) deleteDevice(device api.DeviceID) {
	for _, state := range exportedStates {
		mt.entries.Delete(prometheus.Labels{deviceLabel: string(device), stateLabel: state.String()})
	}
	mt.extraneous.Delete(prometheus.Labels{deviceLabel: string(device)})
	mt.batchFailures.Delete(prometheus.Labels{deviceLabel: string(device)})
}
