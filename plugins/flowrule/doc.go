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

// Package flowrule implements the Flow Rule Manager, the entry point of the
// flow rule engine. Applications submit forwarding rules (individually or in
// batches) and the manager keeps the flow tables of the managed devices
// eventually consistent with the submitted intent:
//
//   - the intent is recorded in the flow rule store (PENDING_ADD / PENDING_REMOVE)
//     and the corresponding events are emitted to listeners,
//   - device writes are forwarded to the provider bound to the device
//     (or to the fallback provider) through the operation executor,
//   - snapshots pushed by providers are reconciled with the store, confirming
//     pending entries, refreshing statistics, purging confirmed removals
//     and removing extraneous rules from devices.
//
// Device writes are dispatched only for devices mastered by the local node.
// The manager exposes REST API under /flowrules and prometheus metrics
// under /flowrule-stats.
package flowrule
