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

import "time"

// URLs of the REST API exposed by the flow rule manager.
const (
	RestURLPrefix = "/flowrules"

	RestDevicesURL     = RestURLPrefix + "/devices"
	RestDeviceURL      = RestDevicesURL + "/{device}"
	RestDevicePurgeURL = RestDeviceURL + "/purge"
	RestAppURL         = RestURLPrefix + "/apps/{app}"
)

// FlowEntryView is the JSON representation of a flow entry.
type FlowEntryView struct {
	FlowID      string            `json:"flowId"`
	Device      DeviceID          `json:"device"`
	App         ApplicationID     `json:"app"`
	Table       TableID           `json:"table"`
	Priority    uint32            `json:"priority"`
	Cookie      uint64            `json:"cookie,omitempty"`
	Selector    map[string]string `json:"selector,omitempty"`
	Treatment   []string          `json:"treatment,omitempty"`
	State       string            `json:"state"`
	Life        string            `json:"life,omitempty"`
	IdleTimeout string            `json:"idleTimeout,omitempty"`
	Packets     uint64            `json:"packets"`
	Bytes       uint64            `json:"bytes"`
	LastSeen    *time.Time        `json:"lastSeen,omitempty"`
}

// NewFlowEntryView converts flow entry into its JSON representation.
func NewFlowEntryView(entry FlowEntry) FlowEntryView {
	view := FlowEntryView{
		FlowID:   entry.ID().String(),
		Device:   entry.DeviceID,
		App:      entry.AppID,
		Table:    entry.TableID,
		Priority: entry.Priority,
		Cookie:   entry.Cookie,
		State:    entry.State.String(),
		Packets:  entry.Packets,
		Bytes:    entry.Bytes,
	}
	if len(entry.Selector) > 0 {
		view.Selector = make(map[string]string)
		for _, c := range entry.Selector {
			view.Selector[c.Type] = c.Value
		}
	}
	for _, i := range entry.Treatment {
		if i.Value == "" {
			view.Treatment = append(view.Treatment, i.Type)
			continue
		}
		view.Treatment = append(view.Treatment, i.Type+":"+i.Value)
	}
	if entry.Life > 0 {
		view.Life = entry.Life.String()
	}
	if entry.IdleTimeout > 0 {
		view.IdleTimeout = entry.IdleTimeout.String()
	}
	if !entry.LastSeen.IsZero() {
		lastSeen := entry.LastSeen
		view.LastSeen = &lastSeen
	}
	return view
}

// DeviceSummary is the JSON representation of per-device flow table statistics.
type DeviceSummary struct {
	Device   DeviceID       `json:"device"`
	Provider ProviderID     `json:"provider"`
	Entries  int            `json:"entries"`
	ByState  map[string]int `json:"byState,omitempty"`
	Role     string         `json:"role"`
}
