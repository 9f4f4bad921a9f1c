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

package servicelabel

import "github.com/ligato/cn-infra/servicelabel"

// MockServiceLabel is a mock for ServiceLabel plugin, used to fake
// the identity of a controller instance in tests.
type MockServiceLabel struct {
	agentLabel string
}

// NewMockServiceLabel is a constructor for MockServiceLabel.
func NewMockServiceLabel(label string) *MockServiceLabel {
	return &MockServiceLabel{agentLabel: label}
}

// SetAgentLabel changes the label that tests will assume the agent has.
func (msl *MockServiceLabel) SetAgentLabel(label string) {
	msl.agentLabel = label
}

// GetAgentLabel returns the label of the (fake) controller instance.
func (msl *MockServiceLabel) GetAgentLabel() string {
	return msl.agentLabel
}

// GetAgentPrefix returns the key prefix of the configuration "subtree"
// of the (fake) controller instance.
func (msl *MockServiceLabel) GetAgentPrefix() string {
	return servicelabel.GetDifferentAgentPrefix(msl.agentLabel)
}

// GetDifferentAgentPrefix returns the key prefix used by another instance.
func (msl *MockServiceLabel) GetDifferentAgentPrefix(microserviceLabel string) string {
	return servicelabel.GetDifferentAgentPrefix(microserviceLabel)
}

// GetAllAgentsPrefix returns the part of the key prefix common to all
// instances.
func (msl *MockServiceLabel) GetAllAgentsPrefix() string {
	return servicelabel.GetAllAgentsPrefix()
}
