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

package registry

import (
	"testing"

	"github.com/ligato/cn-infra/logging/logrus"
	"github.com/onsi/gomega"

	"github.com/contiv/flowrule/mock/provider"
	"github.com/contiv/flowrule/plugins/flowrule/api"
)

// fallbackMock adds the self-healing part to MockProvider.
type fallbackMock struct {
	*provider.MockProvider
}

func (f fallbackMock) Tracks(rule api.Rule) bool  { return false }
func (f fallbackMock) Reinstall(rule api.Rule)    {}
func (f fallbackMock) Forget(device api.DeviceID) {}

func TestProviderSelection(t *testing.T) {
	gomega.RegisterTestingT(t)

	fallback := fallbackMock{provider.NewMockProvider("fallback")}
	reg := NewRegistry(fallback, logrus.DefaultLogger())
	of := provider.NewMockProvider("openflow", api.CapabilityBatch, api.CapabilityStats)

	// unbound device is served by the fallback
	gomega.Expect(reg.IsFallback(reg.ProviderFor("dev1"))).To(gomega.BeTrue())
	gomega.Expect(reg.Fallback().ID()).To(gomega.BeEquivalentTo("fallback"))

	// binding to unregistered provider fails
	gomega.Expect(reg.Bind("dev1", "openflow")).ToNot(gomega.Succeed())

	gomega.Expect(reg.Register(of)).To(gomega.Succeed())
	gomega.Expect(reg.Register(of)).ToNot(gomega.Succeed())
	gomega.Expect(reg.Register(provider.NewMockProvider("fallback"))).ToNot(gomega.Succeed())
	gomega.Expect(reg.GetProviders()).To(gomega.Equal([]api.ProviderID{"openflow"}))

	gomega.Expect(reg.Bind("dev1", "openflow")).To(gomega.Succeed())
	gomega.Expect(reg.ProviderFor("dev1").ID()).To(gomega.BeEquivalentTo("openflow"))
	gomega.Expect(reg.IsFallback(reg.ProviderFor("dev1"))).To(gomega.BeFalse())
	gomega.Expect(reg.IsFallback(reg.ProviderFor("dev2"))).To(gomega.BeTrue())

	reg.Unbind("dev1")
	gomega.Expect(reg.IsFallback(reg.ProviderFor("dev1"))).To(gomega.BeTrue())

	// unregistering the provider drops its bindings
	gomega.Expect(reg.Bind("dev1", "openflow")).To(gomega.Succeed())
	reg.Unregister("openflow")
	gomega.Expect(reg.IsFallback(reg.ProviderFor("dev1"))).To(gomega.BeTrue())
	gomega.Expect(reg.GetProviders()).To(gomega.BeEmpty())
	gomega.Expect(reg.IsFallback(nil)).To(gomega.BeFalse())
}
