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
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/unrolled/render"

	"github.com/contiv/flowrule/plugins/flowrule/api"
)

const (
	// URL path variables
	deviceVar = "device"
	appVar    = "app"

	// optional filter of device entries by state
	stateArg = "state"
)

// errorString wraps string representation of an error that, unlike the original
// error, can be marshalled.
type errorString struct {
	Error string
}

// registerHandlers registers all supported REST APIs.
func (m *FlowRuleManager) registerHandlers() {
	if m.HTTPHandlers == nil {
		m.Log.Warn("No http handler provided, skipping registration of flow rule REST handlers")
		return
	}
	m.HTTPHandlers.RegisterHTTPHandler(api.RestDevicesURL, m.devicesGetHandler, "GET")
	m.HTTPHandlers.RegisterHTTPHandler(api.RestDeviceURL, m.deviceEntriesGetHandler, "GET")
	m.HTTPHandlers.RegisterHTTPHandler(api.RestDevicePurgeURL, m.devicePurgeHandler, "POST")
	m.HTTPHandlers.RegisterHTTPHandler(api.RestAppURL, m.appEntriesGetHandler, "GET")
}

// devicesGetHandler is the GET handler listing devices with flow entries.
func (m *FlowRuleManager) devicesGetHandler(formatter *render.Render) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		summaries := []api.DeviceSummary{}
		for _, device := range m.store.GetDevices() {
			summaries = append(summaries, m.deviceSummary(device))
		}
		formatter.JSON(w, http.StatusOK, summaries)
	}
}

// deviceEntriesGetHandler is the GET handler listing entries of a device.
func (m *FlowRuleManager) deviceEntriesGetHandler(formatter *render.Render) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		device := api.DeviceID(mux.Vars(req)[deviceVar])
		state := strings.ToUpper(req.URL.Query().Get(stateArg))
		views := []api.FlowEntryView{}
		for _, entry := range m.store.GetFlowEntries(device) {
			if state != "" && entry.State.String() != state {
				continue
			}
			views = append(views, api.NewFlowEntryView(entry))
		}
		formatter.JSON(w, http.StatusOK, views)
	}
}

// appEntriesGetHandler is the GET handler listing entries of an application.
func (m *FlowRuleManager) appEntriesGetHandler(formatter *render.Render) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		app := api.ApplicationID(mux.Vars(req)[appVar])
		views := []api.FlowEntryView{}
		for _, entry := range m.store.GetFlowEntriesByApp(app) {
			views = append(views, api.NewFlowEntryView(entry))
		}
		formatter.JSON(w, http.StatusOK, views)
	}
}

// devicePurgeHandler is the POST handler purging entries of a device.
func (m *FlowRuleManager) devicePurgeHandler(formatter *render.Render) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		device := api.DeviceID(mux.Vars(req)[deviceVar])
		if device == "" {
			formatter.JSON(w, http.StatusBadRequest, errorString{"missing device ID"})
			return
		}
		purged := m.store.FlowEntryCount(device)
		m.PurgeFlowRules(device)
		formatter.JSON(w, http.StatusOK, api.DeviceSummary{
			Device:   device,
			Provider: m.registry.ProviderFor(device).ID(),
			Entries:  purged,
			Role:     m.localRole(device).String(),
		})
	}
}

// deviceSummary returns statistics of the device flow table.
func (m *FlowRuleManager) deviceSummary(device api.DeviceID) api.DeviceSummary {
	entries := m.store.GetFlowEntries(device)
	summary := api.DeviceSummary{
		Device:   device,
		Provider: m.registry.ProviderFor(device).ID(),
		Entries:  len(entries),
		ByState:  make(map[string]int),
		Role:     m.localRole(device).String(),
	}
	for state, count := range api.FlowEntries(entries).CountByState() {
		summary.ByState[state.String()] = count
	}
	return summary
}

func (m *FlowRuleManager) localRole(device api.DeviceID) api.MastershipRole {
	if m.Mastership == nil {
		return api.RoleMaster
	}
	return m.Mastership.GetLocalRole(device)
}
