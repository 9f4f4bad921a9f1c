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

import "fmt"

// NodeID identifies a controller instance.
type NodeID string

// MastershipRole is the role of the local node for a device.
type MastershipRole int

const (
	// RoleNone means that the node has no relation to the device.
	RoleNone MastershipRole = iota

	// RoleStandby means that another node is the master.
	RoleStandby

	// RoleMaster means that the local node may write to the device.
	RoleMaster
)

// String converts role into a human-readable string.
func (r MastershipRole) String() string {
	switch r {
	case RoleNone:
		return "NONE"
	case RoleStandby:
		return "STANDBY"
	case RoleMaster:
		return "MASTER"
	}
	return "UNKNOWN"
}

// MastershipTerm is a per-device logical clock. The term number increases
// each time the mastership changes hands and is used to fence writes
// of stale masters.
type MastershipTerm struct {
	Master     NodeID
	TermNumber uint64
}

// String describes the term.
func (t MastershipTerm) String() string {
	return fmt.Sprintf("Term <master: %s, number: %d>", t.Master, t.TermNumber)
}

// MastershipEvent notifies about a change of the mastership for a device.
type MastershipEvent struct {
	Device DeviceID
	Term   MastershipTerm

	// LocalRole is the role of the local node after the change.
	LocalRole MastershipRole
}

// MastershipService is consumed by the engine to learn the current
// mastership role and term. The arbitration itself is external.
type MastershipService interface {
	// LocalNodeID returns ID of this controller instance.
	LocalNodeID() NodeID

	// GetLocalRole returns the role of the local node for the device.
	GetLocalRole(device DeviceID) MastershipRole

	// GetTerm returns the current mastership term of the device.
	GetTerm(device DeviceID) (term MastershipTerm, exists bool)

	// Watch subscribes for notifications about mastership changes.
	Watch(subscriber string, callback func(MastershipEvent)) error

	// UnableToAssertRole reports that a southbound write was rejected
	// because the device did not accept the given term.
	UnableToAssertRole(device DeviceID, term MastershipTerm, reason error)
}
