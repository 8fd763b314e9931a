// Copyright 2026 The Eduplane Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package authz holds the seeded role catalogue and role assignments.
// Roles are reference data: provisioning reads them and never creates them.
package authz

import (
	"time"

	"github.com/eduplane/eduplane/internal/store"
)

// Role is a seeded role.
type Role struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// RoleFromRow reads a stored role row.
func RoleFromRow(r store.Row) *Role {
	role := &Role{
		ID:          r.String("id"),
		Name:        r.String("name"),
		Description: r.String("description"),
	}
	if v, ok := r["created_at"].(time.Time); ok {
		role.CreatedAt = v
	}
	return role
}

// RoleAssignment grants a role to a user within one branch.
type RoleAssignment struct {
	UserID   string `json:"userId"`
	RoleID   string `json:"roleId"`
	BranchID string `json:"branchId"`
}

// Row converts a to its stored columns.
func (a *RoleAssignment) Row() store.Row {
	return store.Row{
		"user_id":   a.UserID,
		"role_id":   a.RoleID,
		"branch_id": a.BranchID,
	}
}

// Key is the filter that selects exactly this assignment.
func (a *RoleAssignment) Key() store.Filter {
	return store.Eq("user_id", a.UserID).
		And("role_id", a.RoleID).
		And("branch_id", a.BranchID)
}
