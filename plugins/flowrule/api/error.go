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

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

/****************************** Invalid Rule Error ****************************/

// InvalidRuleError is returned at the API boundary for rules that violate
// the contract (missing device, missing application, malformed selector).
type InvalidRuleError struct {
	rule   Rule
	reason string
}

// NewInvalidRuleError is the constructor for InvalidRuleError.
func NewInvalidRuleError(rule Rule, reason string) error {
	return &InvalidRuleError{rule: rule, reason: reason}
}

// Error returns the description of the contract violation.
func (e *InvalidRuleError) Error() string {
	return fmt.Sprintf("invalid flow rule (device: '%s', app: '%s'): %s",
		e.rule.DeviceID, e.rule.AppID, e.reason)
}

// GetRule returns the rejected rule.
func (e *InvalidRuleError) GetRule() Rule {
	return e.rule
}

/********************************* Batch Error ********************************/

// BatchError is reported for a batch that (partially) failed.
type BatchError struct {
	batchID uint64
	failed  Rules
}

// NewBatchError is the constructor for BatchError.
func NewBatchError(batchID uint64, failed Rules) error {
	return &BatchError{batchID: batchID, failed: failed}
}

// Error lists the failed rules.
func (e *BatchError) Error() string {
	var ids []string
	for _, rule := range e.failed {
		ids = append(ids, rule.ID().String())
	}
	return fmt.Sprintf("batch %d failed for rules: [%s]", e.batchID, strings.Join(ids, ", "))
}

// GetFailedRules returns the failed subset of the batch.
func (e *BatchError) GetFailedRules() Rules {
	return e.failed
}

/************************** Role Assertion Error ******************************/

// RoleAssertionError is reported by southbound drivers when the device
// rejected a write carrying a stale mastership term.
type RoleAssertionError struct {
	device DeviceID
	term   MastershipTerm
}

// NewRoleAssertionError is the constructor for RoleAssertionError.
func NewRoleAssertionError(device DeviceID, term MastershipTerm) error {
	return &RoleAssertionError{device: device, term: term}
}

// Error describes the rejected term.
func (e *RoleAssertionError) Error() string {
	return fmt.Sprintf("unable to assert role for device %s with term %d (master: %s)",
		e.device, e.term.TermNumber, e.term.Master)
}

// GetDevice returns the device that rejected the write.
func (e *RoleAssertionError) GetDevice() DeviceID {
	return e.device
}

// GetTerm returns the rejected term.
func (e *RoleAssertionError) GetTerm() MastershipTerm {
	return e.term
}

// IsRoleAssertionError returns the role assertion error if err (or its cause)
// is one.
func IsRoleAssertionError(err error) (*RoleAssertionError, bool) {
	if err == nil {
		return nil, false
	}
	roleErr, isRoleErr := errors.Cause(err).(*RoleAssertionError)
	return roleErr, isRoleErr
}

// IsInvalidRuleError returns true if err (or its cause) is InvalidRuleError.
func IsInvalidRuleError(err error) bool {
	if err == nil {
		return false
	}
	_, isInvalid := errors.Cause(err).(*InvalidRuleError)
	return isInvalid
}
