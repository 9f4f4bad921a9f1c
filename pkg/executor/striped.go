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
	"github.com/cespare/xxhash/v2"
)

// Striped is a pool of single-worker stripes. Tasks submitted under the same
// key always land in the same stripe and therefore execute in the order
// of submission; tasks of different keys are spread over all stripes.
type Striped struct {
	stripes []*Pool
}

// NewStriped starts <workers> stripes sharing the given total queue capacity.
func NewStriped(workers, queueSize int) *Striped {
	if workers < 1 {
		workers = 1
	}
	perStripe := queueSize / workers
	if perStripe < 1 {
		perStripe = 1
	}
	s := &Striped{stripes: make([]*Pool, workers)}
	for i := range s.stripes {
		s.stripes[i] = NewPool(1, perStripe)
	}
	return s
}

// Submit queues the task into the stripe of the key. Never blocks.
func (s *Striped) Submit(key string, task Task) error {
	return s.stripes[xxhash.Sum64String(key)%uint64(len(s.stripes))].Submit(task)
}

// Close closes all stripes, waiting for the queued tasks to finish.
func (s *Striped) Close() error {
	for _, stripe := range s.stripes {
		stripe.Close()
	}
	return nil
}
