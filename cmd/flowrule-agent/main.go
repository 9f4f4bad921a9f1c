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

package main

import (
	"github.com/ligato/cn-infra/agent"
	"github.com/ligato/cn-infra/db/keyval/etcd"
	"github.com/ligato/cn-infra/health/probe"
	"github.com/ligato/cn-infra/health/statuscheck"
	"github.com/ligato/cn-infra/logging/logrus"
	"github.com/ligato/cn-infra/rpc/prometheus"
	"github.com/ligato/cn-infra/rpc/rest"
	"github.com/ligato/cn-infra/servicelabel"

	"github.com/contiv/flowrule/pkg/memswitch"
	"github.com/contiv/flowrule/plugins/devicecache"
	"github.com/contiv/flowrule/plugins/flowrule"
	"github.com/contiv/flowrule/plugins/mastership"
)

// MicroserviceLabel is the default label of the flow rule agent.
const MicroserviceLabel = "flowrule-agent"

// FlowRuleAgent keeps the flow tables of the managed devices in sync
// with the rules requested by applications.
type FlowRuleAgent struct {
	ServiceLabel servicelabel.ReaderAPI
	HTTP         *rest.Plugin
	HealthProbe  *probe.Plugin
	StatusCheck  *statuscheck.Plugin
	Prometheus   *prometheus.Plugin
	ETCD         *etcd.Plugin
	DeviceCache  *devicecache.DeviceCache
	Mastership   *mastership.Mastership
	FlowRule     *flowrule.FlowRuleManager
}

func (a *FlowRuleAgent) String() string {
	return "FlowRuleAgent"
}

// Init is called at startup phase. Method added in order to implement Plugin interface.
func (a *FlowRuleAgent) Init() error {
	return nil
}

// Close is called at cleanup phase. Method added in order to implement Plugin interface.
func (a *FlowRuleAgent) Close() error {
	return nil
}

func main() {
	servicelabel.DefaultPlugin.MicroserviceLabel = MicroserviceLabel

	devicecache.DefaultPlugin.Drivers = map[string]devicecache.DriverFactory{
		memswitch.Driver: memswitch.Factory,
	}

	mastership.DefaultPlugin.DB = &etcd.DefaultPlugin
	mastership.DefaultPlugin.Devices = &devicecache.DefaultPlugin

	flowrule.DefaultPlugin.DB = &etcd.DefaultPlugin
	flowrule.DefaultPlugin.Devices = &devicecache.DefaultPlugin
	flowrule.DefaultPlugin.Mastership = &mastership.DefaultPlugin

	flowRuleAgent := &FlowRuleAgent{
		ServiceLabel: &servicelabel.DefaultPlugin,
		HTTP:         &rest.DefaultPlugin,
		HealthProbe:  &probe.DefaultPlugin,
		StatusCheck:  &statuscheck.DefaultPlugin,
		Prometheus:   &prometheus.DefaultPlugin,
		ETCD:         &etcd.DefaultPlugin,
		DeviceCache:  &devicecache.DefaultPlugin,
		Mastership:   &mastership.DefaultPlugin,
		FlowRule:     &flowrule.DefaultPlugin,
	}

	a := agent.NewAgent(agent.AllPlugins(flowRuleAgent))
	if err := a.Run(); err != nil {
		logrus.DefaultLogger().Fatal(err)
	}
}
