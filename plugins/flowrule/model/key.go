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

//go:generate protoc -I . --gogo_out=. ./flowentry.proto

package model

import "fmt"

// Keyword defines the keyword identifying flow entries in the data-store.
const Keyword = "flowrule"

// KeyPrefix returns prefix where all flow entries are persisted.
func KeyPrefix() string {
	return Keyword + "/"
}

// DeviceKeyPrefix returns prefix where flow entries of the given device are persisted.
func DeviceKeyPrefix(deviceID string) string {
	return KeyPrefix() + deviceID + "/"
}

// Key returns the key under which the flow entry should be stored in the data-store.
func Key(deviceID string, flowID uint64) string {
	return DeviceKeyPrefix(deviceID) + fmt.Sprintf("%016x", flowID)
}
