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

package authz

import (
	"testing"

	"github.com/eduplane/eduplane/internal/store"
	"github.com/stretchr/testify/assert"
)

func TestRoleAssignment_KeyMatchesRow(t *testing.T) {
	a := &RoleAssignment{UserID: "u1", RoleID: "r1", BranchID: "b1"}
	row := a.Row()
	for _, col := range a.Key().Columns() {
		assert.Equal(t, a.Key()[col], row[col], col)
	}
	assert.Equal(t, []string{"branch_id", "role_id", "user_id"}, a.Key().Columns())
}

func TestRoleFromRow(t *testing.T) {
	r := RoleFromRow(store.Row{"id": "role-teacher", "name": RoleTeacher, "description": nil})
	assert.Equal(t, "role-teacher", r.ID)
	assert.Equal(t, RoleTeacher, r.Name)
	assert.Empty(t, r.Description)
}
