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

// Package main implements the flow rule agent.
//
// The agent runs the flow rule manager together with the device cache and
// the mastership bookkeeping. Flow entries and mastership terms are shared
// with other agent instances through etcd. Configuration files of the
// plugins are passed with the usual cn-infra flags, e.g.:
//
//	flowrule-agent --etcd-config=etcd.conf --devicecache-config=devicecache.conf \
//	    --mastership-config=mastership.conf --flowrule-config=flowrule.conf
package main
