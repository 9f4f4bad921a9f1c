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

import "github.com/ligato/cn-infra/db/keyval"

// ClusterLabel is the microservice label under which all controller instances
// of the cluster share the replicated state (flow entries, mastership terms).
const ClusterLabel = "flowrule-cluster"

// ClusterWideDB defines API that a DB client must provide for the replicated
// state to be shared by controller instances.
type ClusterWideDB interface {
	// OnConnect registers callback to be triggered once the (first) connection
	// to DB is established. If the connection is already established, the callback
	// should be called immediately (synchronously).
	OnConnect(callback func() error)

	// NewBroker creates a new instance of DB broker prefixing all keys with the
	// given prefix.
	NewBroker(prefix string) keyval.ProtoBroker
}
