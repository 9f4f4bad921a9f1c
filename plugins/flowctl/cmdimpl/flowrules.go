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

package cmdimpl

import (
	"encoding/json"
	"fmt"
	"io"
	"io/ioutil"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/ghodss/yaml"
	"github.com/pkg/errors"

	"github.com/contiv/flowrule/plugins/flowctl/remote"
	"github.com/contiv/flowrule/plugins/flowrule/api"
)

// Output formats.
const (
	FormatTable = "table"
	FormatYAML  = "yaml"
	FormatJSON  = "json"
)

// restError is the error body returned by the agent.
type restError struct {
	Error string
}

// PrintDevices prints the flow table summary of every device.
func PrintDevices(w io.Writer, client *remote.HTTPClient, format string) error {
	var devices []api.DeviceSummary
	if err := getJSON(client, api.RestDevicesURL, &devices); err != nil {
		return err
	}
	if format != FormatTable {
		return printFormatted(w, devices, format)
	}

	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
	fmt.Fprintf(tw, "DEVICE\tROLE\tPROVIDER\tENTRIES\tSTATES\n")
	for _, device := range devices {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n",
			device.Device, device.Role, device.Provider, device.Entries, formatStates(device.ByState))
	}
	return tw.Flush()
}

// PrintDeviceEntries prints flow entries of the device, optionally only those
// in the given state.
func PrintDeviceEntries(w io.Writer, client *remote.HTTPClient, device, state, format string) error {
	path := strings.Replace(api.RestDeviceURL, "{device}", url.PathEscape(device), 1)
	if state != "" {
		path += "?state=" + url.QueryEscape(state)
	}
	var entries []api.FlowEntryView
	if err := getJSON(client, path, &entries); err != nil {
		return err
	}
	return printEntries(w, entries, format)
}

// PrintAppEntries prints flow entries of the application across all devices.
func PrintAppEntries(w io.Writer, client *remote.HTTPClient, app, format string) error {
	path := strings.Replace(api.RestAppURL, "{app}", url.PathEscape(app), 1)
	var entries []api.FlowEntryView
	if err := getJSON(client, path, &entries); err != nil {
		return err
	}
	return printEntries(w, entries, format)
}

// PurgeDevice removes all flow entries of the device from the agent.
func PurgeDevice(w io.Writer, client *remote.HTTPClient, device, format string) error {
	path := strings.Replace(api.RestDevicePurgeURL, "{device}", url.PathEscape(device), 1)
	res, err := client.Post(path, "")
	if err != nil {
		return errors.Wrapf(err, "failed to purge device %s", device)
	}
	var summary api.DeviceSummary
	if err := decodeResponse(res, &summary); err != nil {
		return err
	}
	if format != FormatTable {
		return printFormatted(w, summary, format)
	}
	fmt.Fprintf(w, "Purged %d flow entries of device %s\n", summary.Entries, summary.Device)
	return nil
}

func printEntries(w io.Writer, entries []api.FlowEntryView, format string) error {
	if format != FormatTable {
		return printFormatted(w, entries, format)
	}

	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
	fmt.Fprintf(tw, "FLOW-ID\tDEVICE\tAPP\tTABLE\tPRIORITY\tSTATE\tPACKETS\tBYTES\tLIFE\tSELECTOR\tTREATMENT\n")
	for _, entry := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%s\t%d\t%d\t%s\t%s\t%s\n",
			entry.FlowID, entry.Device, entry.App, entry.Table, entry.Priority, entry.State,
			entry.Packets, entry.Bytes, entry.Life, formatSelector(entry.Selector),
			strings.Join(entry.Treatment, ","))
	}
	return tw.Flush()
}

func printFormatted(w io.Writer, data interface{}, format string) error {
	var (
		out []byte
		err error
	)
	switch format {
	case FormatYAML:
		out, err = yaml.Marshal(data)
	case FormatJSON:
		out, err = json.MarshalIndent(data, "", "  ")
		out = append(out, '\n')
	default:
		return fmt.Errorf("unsupported output format '%s'", format)
	}
	if err != nil {
		return err
	}
	_, err = w.Write(out)
	return err
}

func formatSelector(selector map[string]string) string {
	var criteria []string
	for t, v := range selector {
		criteria = append(criteria, t+"="+v)
	}
	sort.Strings(criteria)
	return strings.Join(criteria, ",")
}

func formatStates(byState map[string]int) string {
	var states []string
	for state, count := range byState {
		states = append(states, fmt.Sprintf("%s=%d", state, count))
	}
	sort.Strings(states)
	return strings.Join(states, ",")
}

// getJSON makes an http get request for the given path and decodes the JSON reply.
func getJSON(client *remote.HTTPClient, path string, out interface{}) error {
	res, err := client.Get(path)
	if err != nil {
		return errors.Wrapf(err, "get %s failed", path)
	}
	return decodeResponse(res, out)
}

func decodeResponse(res *http.Response, out interface{}) error {
	defer res.Body.Close()
	b, err := ioutil.ReadAll(res.Body)
	if err != nil {
		return err
	}
	if res.StatusCode < 200 || res.StatusCode > 299 {
		var restErr restError
		if json.Unmarshal(b, &restErr) == nil && restErr.Error != "" {
			return fmt.Errorf("%s: %s", res.Status, restErr.Error)
		}
		return fmt.Errorf("HTTP res.Status: %s", res.Status)
	}
	return json.Unmarshal(b, out)
}
