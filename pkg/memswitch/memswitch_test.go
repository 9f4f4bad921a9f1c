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

package memswitch

import (
	"context"
	"testing"
	"time"

	. "github.com/onsi/gomega"

	"github.com/contiv/flowrule/plugins/flowrule/api"
)

func rule(port string) api.Rule {
	return api.Rule{
		DeviceID:  "mem:1",
		AppID:     "test",
		Selector:  api.Selector{{Type: "IN_PORT", Value: port}},
		Treatment: api.Treatment{{Type: "DROP"}},
	}
}

func TestFlowTable(t *testing.T) {
	RegisterTestingT(t)
	sw := NewSwitch("mem:1", 2)
	start := time.Unix(1000, 0)
	sw.now = func() time.Time { return start }
	ctx := context.Background()

	r1, r2, r3 := rule("1"), rule("2"), rule("3")
	other := r1
	other.DeviceID = "mem:2"

	applied, err := sw.ApplyFlowRules(ctx, []api.Rule{r1, r2, r3, other})
	Expect(err).To(Equal(ErrTableFull))
	Expect(applied).To(Equal([]api.Rule{r1, r2}))

	// re-applying installed rules is fine even with a full table
	applied, err = sw.ApplyFlowRules(ctx, []api.Rule{r1})
	Expect(err).ToNot(HaveOccurred())
	Expect(applied).To(HaveLen(1))

	Expect(sw.Hit(r1, 100)).To(BeTrue())
	Expect(sw.Hit(r3, 100)).To(BeFalse())
	sw.now = func() time.Time { return start.Add(time.Minute) }

	entries, err := sw.GetFlowEntries(ctx)
	Expect(err).ToNot(HaveOccurred())
	Expect(entries).To(HaveLen(2))
	for _, entry := range entries {
		Expect(entry.State).To(Equal(api.Added))
		Expect(entry.Life).To(Equal(time.Minute))
		if entry.SameRule(r1) {
			Expect(entry.Packets).To(BeEquivalentTo(1))
			Expect(entry.Bytes).To(BeEquivalentTo(100))
		}
	}

	removed, err := sw.RemoveFlowRules(ctx, []api.Rule{r1, r3})
	Expect(err).ToNot(HaveOccurred())
	Expect(removed).To(HaveLen(2))
	entries, _ = sw.GetFlowEntries(ctx)
	Expect(entries).To(HaveLen(1))

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = sw.GetFlowEntries(cancelled)
	Expect(err).To(HaveOccurred())
}
