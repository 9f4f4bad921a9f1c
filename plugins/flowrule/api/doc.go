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

// Package api defines the data model of the flow rule engine (rules, flow
// entries and their lifecycle, events, batches) together with the contracts
// of its collaborators: the flow rule store, southbound providers, the device
// inventory and the mastership service.
//
// Lifecycle of a flow entry:
//
//	PENDING_ADD --(confirmed by device)--> ADDED --(remove)--> PENDING_REMOVE
//	PENDING_REMOVE --(removal notified / missing from snapshot)--> REMOVED
//	any --(mastership lost / purge)--> REMOVED
//
// REMOVED entries are deleted from the store, not kept as tombstones.
package api
