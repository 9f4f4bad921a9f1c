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

package devicecache

import (
	"testing"
	"time"

	"github.com/onsi/gomega"

	"github.com/contiv/flowrule/mock/device"
	"github.com/contiv/flowrule/plugins/flowrule/api"
)

func newTestCache() *DeviceCache {
	dc := NewPlugin()
	gomega.Expect(dc.Init()).To(gomega.Succeed())
	return dc
}

func TestDeviceInventory(t *testing.T) {
	gomega.RegisterTestingT(t)
	dc := newTestCache()
	defer dc.Close()

	sw := device.NewMockDevice("of:1")
	gomega.Expect(dc.AddDevice("of:1", "openflow", sw)).To(gomega.Succeed())
	gomega.Expect(dc.AddDevice("of:2", "openflow", nil)).To(gomega.Succeed())
	gomega.Expect(dc.AddDevice("nc:1", "netconf", nil)).To(gomega.Succeed())
	gomega.Expect(dc.AddDevice("", "netconf", nil)).ToNot(gomega.Succeed())

	gomega.Expect(dc.ListAll()).To(gomega.Equal([]api.DeviceID{"nc:1", "of:1", "of:2"}))
	gomega.Expect(dc.LookupDriver("openflow")).To(gomega.Equal([]api.DeviceID{"of:1", "of:2"}))
	gomega.Expect(dc.IsAvailable("of:1")).To(gomega.BeTrue())
	gomega.Expect(dc.IsAvailable("unknown")).To(gomega.BeFalse())

	programmable, supported := dc.Programmable("of:1")
	gomega.Expect(supported).To(gomega.BeTrue())
	gomega.Expect(programmable).To(gomega.Equal(sw))
	_, supported = dc.Programmable("of:2")
	gomega.Expect(supported).To(gomega.BeFalse())

	gomega.Expect(dc.SetAvailable("of:2", false)).To(gomega.Succeed())
	gomega.Expect(dc.SetAvailable("unknown", false)).ToNot(gomega.Succeed())
	gomega.Expect(dc.IsAvailable("of:2")).To(gomega.BeFalse())
	gomega.Expect(dc.ListAvailable()).To(gomega.Equal([]api.DeviceID{"nc:1", "of:1"}))

	dc.RemoveDevice("nc:1")
	_, found := dc.LookupDevice("nc:1")
	gomega.Expect(found).To(gomega.BeFalse())
	record, found := dc.LookupDevice("of:2")
	gomega.Expect(found).To(gomega.BeTrue())
	gomega.Expect(record.Driver).To(gomega.Equal("openflow"))
}

func TestWatch(t *testing.T) {
	gomega.RegisterTestingT(t)
	dc := newTestCache()
	defer dc.Close()

	ch := make(chan api.DeviceEvent, 10)
	gomega.Expect(dc.Watch("test", ToChan(ch))).To(gomega.Succeed())

	dc.AddDevice("of:1", "openflow", nil)
	dc.SetAvailable("of:1", false)
	// no change
	dc.SetAvailable("of:1", false)
	dc.RemoveDevice("of:1")

	var ev api.DeviceEvent
	gomega.Eventually(ch, time.Second).Should(gomega.Receive(&ev))
	gomega.Expect(ev).To(gomega.Equal(api.DeviceEvent{Type: api.DeviceAdded, Device: "of:1", Available: true}))
	gomega.Eventually(ch, time.Second).Should(gomega.Receive(&ev))
	gomega.Expect(ev).To(gomega.Equal(api.DeviceEvent{Type: api.DeviceAvailabilityChanged, Device: "of:1"}))
	gomega.Eventually(ch, time.Second).Should(gomega.Receive(&ev))
	gomega.Expect(ev).To(gomega.Equal(api.DeviceEvent{Type: api.DeviceRemoved, Device: "of:1"}))
	gomega.Consistently(ch, 100*time.Millisecond).ShouldNot(gomega.Receive())
}

// staticConfig serves the given configuration to the plugin.
type staticConfig struct {
	config Config
}

func (c *staticConfig) LoadValue(data interface{}) (found bool, err error) {
	*(data.(*Config)) = c.config
	return true, nil
}

func (c *staticConfig) GetConfigName() string {
	return "devicecache.conf"
}

func TestConfiguredDevices(t *testing.T) {
	gomega.RegisterTestingT(t)
	sw := device.NewMockDevice("of:1")
	dc := NewPlugin(UseDeps(func(deps *Deps) {
		deps.Cfg = &staticConfig{config: Config{Devices: []DeviceConfig{
			{ID: "of:1", Driver: "openflow"},
			{ID: "nc:1", Driver: "netconf"},
		}}}
		deps.Drivers = map[string]DriverFactory{
			"openflow": func(id api.DeviceID) api.FlowRuleProgrammable { return sw },
		}
	}))
	gomega.Expect(dc.Init()).To(gomega.Succeed())
	defer dc.Close()

	gomega.Expect(dc.ListAll()).To(gomega.Equal([]api.DeviceID{"nc:1", "of:1"}))
	programmable, supported := dc.Programmable("of:1")
	gomega.Expect(supported).To(gomega.BeTrue())
	gomega.Expect(programmable).To(gomega.Equal(api.FlowRuleProgrammable(sw)))
	_, supported = dc.Programmable("nc:1")
	gomega.Expect(supported).To(gomega.BeFalse())
}
