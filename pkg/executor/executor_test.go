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

package executor

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/onsi/gomega"
)

func TestPool(t *testing.T) {
	gomega.RegisterTestingT(t)

	pool := NewPool(4, 100)
	var executed int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		err := pool.Submit(func() {
			defer wg.Done()
			atomic.AddInt32(&executed, 1)
		})
		gomega.Expect(err).ToNot(gomega.HaveOccurred())
	}
	wg.Wait()
	gomega.Expect(atomic.LoadInt32(&executed)).To(gomega.BeEquivalentTo(50))

	gomega.Expect(pool.Close()).To(gomega.Succeed())
	gomega.Expect(pool.Submit(func() {})).To(gomega.Equal(ErrPoolClosed))
	// repeated close
	gomega.Expect(pool.Close()).To(gomega.Succeed())
}

func TestPoolQueueFull(t *testing.T) {
	gomega.RegisterTestingT(t)

	pool := NewPool(1, 1)
	block := make(chan struct{})
	started := make(chan struct{})
	gomega.Expect(pool.Submit(func() {
		close(started)
		<-block
	})).To(gomega.Succeed())
	<-started

	gomega.Expect(pool.Submit(func() {})).To(gomega.Succeed())
	gomega.Expect(pool.Submit(func() {})).To(gomega.Equal(ErrQueueFull))

	close(block)
	gomega.Expect(pool.Close()).To(gomega.Succeed())
}

func TestKeyedOrdering(t *testing.T) {
	gomega.RegisterTestingT(t)

	keyed := NewKeyed()
	var mu sync.Mutex
	order := make(map[string][]int)
	for i := 0; i < 20; i++ {
		for _, key := range []string{"a", "b"} {
			i, key := i, key
			gomega.Expect(keyed.Submit(key, func() {
				mu.Lock()
				order[key] = append(order[key], i)
				mu.Unlock()
			})).To(gomega.Succeed())
		}
	}
	gomega.Expect(keyed.Close()).To(gomega.Succeed())

	for _, key := range []string{"a", "b"} {
		gomega.Expect(order[key]).To(gomega.HaveLen(20))
		for i, v := range order[key] {
			gomega.Expect(v).To(gomega.Equal(i))
		}
	}
	gomega.Expect(keyed.Submit("a", func() {})).To(gomega.Equal(ErrPoolClosed))
}

func TestKeyedPending(t *testing.T) {
	gomega.RegisterTestingT(t)

	keyed := NewKeyed()
	block := make(chan struct{})
	gomega.Expect(keyed.Submit("dev", func() { <-block })).To(gomega.Succeed())
	gomega.Expect(keyed.Pending("dev")).To(gomega.BeTrue())
	gomega.Expect(keyed.Pending("other")).To(gomega.BeFalse())

	close(block)
	gomega.Eventually(func() bool { return keyed.Pending("dev") }, time.Second).Should(gomega.BeFalse())
	gomega.Expect(keyed.Close()).To(gomega.Succeed())
}

func TestStripedOrdering(t *testing.T) {
	gomega.RegisterTestingT(t)

	striped := NewStriped(4, 400)
	var mu sync.Mutex
	order := make(map[string][]int)
	for i := 0; i < 20; i++ {
		for _, key := range []string{"a", "b", "c"} {
			i, key := i, key
			gomega.Expect(striped.Submit(key, func() {
				mu.Lock()
				order[key] = append(order[key], i)
				mu.Unlock()
			})).To(gomega.Succeed())
		}
	}
	gomega.Expect(striped.Close()).To(gomega.Succeed())
	for _, key := range []string{"a", "b", "c"} {
		gomega.Expect(order[key]).To(gomega.HaveLen(20))
		for i, n := range order[key] {
			gomega.Expect(n).To(gomega.Equal(i))
		}
	}
	gomega.Expect(striped.Submit("a", func() {})).To(gomega.Equal(ErrPoolClosed))
}
