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
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	. "github.com/onsi/gomega"
	"github.com/unrolled/render"

	"github.com/contiv/flowrule/plugins/flowrule/api"
)

func newTestRouter(m *FlowRuleManager) *mux.Router {
	formatter := render.New(render.Options{IndentJSON: true})
	router := mux.NewRouter()
	router.HandleFunc(api.RestDevicesURL, m.devicesGetHandler(formatter)).Methods("GET")
	router.HandleFunc(api.RestDeviceURL, m.deviceEntriesGetHandler(formatter)).Methods("GET")
	router.HandleFunc(api.RestDevicePurgeURL, m.devicePurgeHandler(formatter)).Methods("POST")
	router.HandleFunc(api.RestAppURL, m.appEntriesGetHandler(formatter)).Methods("GET")
	return router
}

func doRequest(router *mux.Router, method, url string, out interface{}) int {
	req := httptest.NewRequest(method, url, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if out != nil && rec.Code == http.StatusOK {
		Expect(json.Unmarshal(rec.Body.Bytes(), out)).To(Succeed())
	}
	return rec.Code
}

func TestRestAPI(t *testing.T) {
	RegisterTestingT(t)
	f := newFixture()
	defer f.close()
	router := newTestRouter(f.manager)

	r1, r2 := testRule(dev1, app1, "1"), testRule(dev1, app2, "2")
	r2.Cookie = 0xbeef
	Expect(f.manager.ApplyFlowRules(r1, r2)).To(Succeed())
	f.manager.PushFlowMetrics(dev1, []api.FlowEntry{reported(r1, 7)})

	var devices []api.DeviceSummary
	Expect(doRequest(router, "GET", "/flowrules/devices", &devices)).To(Equal(http.StatusOK))
	Expect(devices).To(HaveLen(1))
	Expect(devices[0].Device).To(Equal(dev1))
	Expect(devices[0].Provider).To(Equal(mockProvider))
	Expect(devices[0].Entries).To(Equal(2))
	Expect(devices[0].ByState).To(Equal(map[string]int{"ADDED": 1, "PENDING_ADD": 1}))
	Expect(devices[0].Role).To(Equal("MASTER"))

	var entries []api.FlowEntryView
	Expect(doRequest(router, "GET", "/flowrules/devices/of:1", &entries)).To(Equal(http.StatusOK))
	Expect(entries).To(HaveLen(2))

	entries = nil
	Expect(doRequest(router, "GET", "/flowrules/devices/of:1?state=added", &entries)).To(Equal(http.StatusOK))
	Expect(entries).To(HaveLen(1))
	Expect(entries[0].FlowID).To(Equal(r1.ID().String()))
	Expect(entries[0].App).To(Equal(app1))
	Expect(entries[0].Packets).To(BeEquivalentTo(7))
	Expect(entries[0].Selector).To(Equal(map[string]string{"IN_PORT": "1", "ETH_TYPE": "0x800"}))
	Expect(entries[0].Treatment).To(Equal([]string{"OUTPUT:CONTROLLER"}))
	Expect(entries[0].LastSeen).ToNot(BeNil())

	entries = nil
	Expect(doRequest(router, "GET", "/flowrules/apps/app2", &entries)).To(Equal(http.StatusOK))
	Expect(entries).To(HaveLen(1))
	Expect(entries[0].FlowID).To(Equal("0xbeef"))
	Expect(entries[0].State).To(Equal("PENDING_ADD"))

	entries = nil
	Expect(doRequest(router, "GET", "/flowrules/devices/of:9", &entries)).To(Equal(http.StatusOK))
	Expect(entries).To(BeEmpty())

	var purged api.DeviceSummary
	Expect(doRequest(router, "POST", "/flowrules/devices/of:1/purge", &purged)).To(Equal(http.StatusOK))
	Expect(purged.Entries).To(Equal(2))
	Expect(f.manager.GetFlowRuleCount(dev1)).To(Equal(0))
}
