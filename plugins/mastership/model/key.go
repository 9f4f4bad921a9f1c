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

//go:generate protoc -I . --gogo_out=. ./term.proto

package model

// Keyword defines the keyword identifying mastership terms in the data-store.
const Keyword = "mastership"

// KeyPrefix returns prefix where all mastership terms are persisted.
func KeyPrefix() string {
	return Keyword + "/"
}

// Key returns the key under which the term of the given device is stored.
func Key(deviceID string) string {
	return KeyPrefix() + deviceID
}
