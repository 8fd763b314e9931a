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

package provisioning

import (
	"context"
	"errors"
	"testing"

	"github.com/eduplane/eduplane/internal/apperr"
	"github.com/eduplane/eduplane/internal/audit"
	"github.com/eduplane/eduplane/internal/identity"
	"github.com/eduplane/eduplane/internal/store"
	"github.com/eduplane/eduplane/internal/store/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

func registerInput() RegisterInput {
	return RegisterInput{
		SchoolName: "Alekaf Academy",
		SchoolCode: "ALEKAF001",
		BranchName: "Main Campus",
		Email:      "Admin@Alekaf.edu",
		Password:   "correct-horse",
		FullName:   "Amina Okafor",
		Phone:      "+2348000000000",
	}
}

var registerForward = []string{
	"insert tenants",
	"insert branches",
	"create account",
	"insert profiles",
	"insert user_branches",
	"insert user_roles",
}

// TestPurpose: Validates a complete school registration.
// Scope: Unit Test
// Expected: Tenant, main branch, account, active profile, primary membership and school_admin assignment exist and are linked.
// Test Case ID: REG-01
func TestRegisterTenant_Success(t *testing.T) {
	h := newHarness(t)

	reg, err := h.svc.RegisterTenant(context.Background(), registerInput())
	require.NoError(t, err)

	assert.Equal(t, "admin@alekaf.edu", reg.Email)
	assert.Equal(t, "Amina Okafor", reg.FullName)
	assert.NotEmpty(t, reg.UserID)
	assert.Equal(t, registerForward, h.log.mutations())

	tenants := h.db.Rows(store.CollectionTenants)
	require.Len(t, tenants, 1)
	assert.Equal(t, reg.TenantID, tenants[0].String("id"))
	assert.Equal(t, "ALEKAF001", tenants[0].String("code"))

	branches := h.db.Rows(store.CollectionBranches)
	require.Len(t, branches, 1)
	assert.Equal(t, reg.BranchID, branches[0].String("id"))
	assert.Equal(t, reg.TenantID, branches[0].String("tenant_id"))
	assert.Equal(t, "ALEKAF001-MAIN", branches[0].String("code"))
	assert.Equal(t, DefaultConfig().DefaultStorageQuotaMB, branches[0]["storage_quota_mb"])

	profiles := h.db.Rows(store.CollectionProfiles)
	require.Len(t, profiles, 1)
	assert.Equal(t, reg.UserID, profiles[0].String("id"))
	assert.Equal(t, true, profiles[0]["is_active"])
	assert.Equal(t, reg.BranchID, profiles[0].String("current_branch_id"))

	memberships := h.db.Rows(store.CollectionUserBranches)
	require.Len(t, memberships, 1)
	assert.Equal(t, true, memberships[0]["is_primary"])

	assignments := h.db.Rows(store.CollectionUserRoles)
	require.Len(t, assignments, 1)
	assert.Equal(t, "role-school-admin", assignments[0].String("role_id"))
	assert.Equal(t, reg.BranchID, assignments[0].String("branch_id"))
	assert.Equal(t, reg.UserID, assignments[0].String("user_id"))

	acc, err := h.idp.GetAccountByID(context.Background(), reg.UserID)
	require.NoError(t, err)
	assert.Equal(t, "admin@alekaf.edu", acc.Email)

	assert.Equal(t, []string{audit.TypeTenantRegistered}, h.audit.types())
}

// TestPurpose: Validates that a taken tenant code is rejected before anything is written.
// Scope: Unit Test
// Expected: Conflict naming the tenant code; zero mutating calls for the second registration.
// Test Case ID: REG-02
func TestRegisterTenant_DuplicateCode(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.svc.RegisterTenant(ctx, registerInput())
	require.NoError(t, err)
	before := h.created()
	h.log.reset()

	second := registerInput()
	second.Email = "other@alekaf.edu"
	_, err = h.svc.RegisterTenant(ctx, second)

	require.Error(t, err)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
	assert.Contains(t, err.Error(), `tenant code "ALEKAF001"`)
	assert.Empty(t, h.log.mutations())
	assert.Equal(t, before, h.created())
	assert.Equal(t, 1, h.idp.Count())
}

// TestPurpose: Validates rollback when any mutating registration step fails.
// Scope: Unit Test
// Expected: Every completed step is compensated in exact reverse order and no row or account remains.
// Test Case ID: REG-03
func TestRegisterTenant_RollbackAtEveryStep(t *testing.T) {
	tests := []struct {
		name   string
		inject func(h *harness)
		// succeeded is the number of registerForward calls that succeed.
		succeeded int
		// attempted reports whether the failing call is a mutation.
		attempted bool
	}{
		{"tenant insert", func(h *harness) { h.db.FailNext(memory.OpInsert, store.CollectionTenants, errBoom) }, 0, true},
		{"branch insert", func(h *harness) { h.db.FailNext(memory.OpInsert, store.CollectionBranches, errBoom) }, 1, true},
		{"account creation", func(h *harness) { h.idp.FailCreate(errBoom) }, 2, true},
		{"profile insert", func(h *harness) { h.db.FailNext(memory.OpInsert, store.CollectionProfiles, errBoom) }, 3, true},
		{"membership insert", func(h *harness) { h.db.FailNext(memory.OpInsert, store.CollectionUserBranches, errBoom) }, 4, true},
		{"role lookup", func(h *harness) { h.db.FailNext(memory.OpSelectOne, store.CollectionRoles, errBoom) }, 5, false},
		{"role assignment", func(h *harness) { h.db.FailNext(memory.OpInsert, store.CollectionUserRoles, errBoom) }, 5, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			tt.inject(h)

			reg, err := h.svc.RegisterTenant(context.Background(), registerInput())
			require.Error(t, err)
			assert.Nil(t, reg)
			assert.ErrorIs(t, err, errBoom)
			assert.Equal(t, apperr.KindDownstream, apperr.KindOf(err))

			succeeded := registerForward[:tt.succeeded]
			want := append([]string{}, succeeded...)
			if tt.attempted {
				want = append(want, registerForward[tt.succeeded])
			}
			want = append(want, reversed(succeeded)...)
			assert.Equal(t, want, h.log.mutations())

			assert.Empty(t, h.created())
			assert.Zero(t, h.idp.Count())
		})
	}
}

// TestPurpose: Validates full rollback when the school_admin role is not seeded.
// Scope: Unit Test
// Expected: DependencyNotFound; tenant, branch, account, profile and membership removed.
// Test Case ID: REG-04
func TestRegisterTenant_MissingAdminRole(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.db.Delete(context.Background(), store.CollectionRoles, store.Eq("name", "school_admin")))

	_, err := h.svc.RegisterTenant(context.Background(), registerInput())

	require.Error(t, err)
	assert.Equal(t, apperr.KindDependencyNotFound, apperr.KindOf(err))
	assert.Contains(t, err.Error(), "school_admin")
	assert.Empty(t, h.created())
	assert.Zero(t, h.idp.Count())
	assert.Len(t, h.idp.Deleted(), 1)
	assert.Equal(t, []string{audit.TypeProvisioningReverted}, h.audit.types())
}

// TestPurpose: Validates that a failing compensation neither hides the original error nor stops the rollback.
// Scope: Unit Test
// Expected: The role assignment error is returned; tenant, branch and account are still deleted.
// Test Case ID: REG-05
func TestRegisterTenant_CompensationFailureIsolation(t *testing.T) {
	h := newHarness(t)
	h.db.FailNext(memory.OpInsert, store.CollectionUserRoles, errBoom)
	h.db.FailNext(memory.OpDelete, store.CollectionProfiles, errors.New("profile delete failed"))

	_, err := h.svc.RegisterTenant(context.Background(), registerInput())

	require.Error(t, err)
	assert.ErrorIs(t, err, errBoom)
	assert.NotContains(t, err.Error(), "profile delete failed")

	assert.Equal(t, append(append([]string{}, registerForward...), reversed(registerForward[:5])...), h.log.mutations())
	assert.Equal(t, map[string]int{store.CollectionProfiles: 1}, h.created())
	assert.Zero(t, h.idp.Count())
}

// TestPurpose: Validates that a fully compensated failure leaves nothing that blocks a retry.
// Scope: Unit Test
// Expected: Resubmitting the same input succeeds with a fresh tenant and branch.
// Test Case ID: REG-06
func TestRegisterTenant_RetryAfterRollback(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.db.FailNext(memory.OpInsert, store.CollectionUserRoles, errBoom)

	_, err := h.svc.RegisterTenant(ctx, registerInput())
	require.Error(t, err)

	reg, err := h.svc.RegisterTenant(ctx, registerInput())
	require.NoError(t, err)
	assert.Equal(t, 1, h.db.Count(store.CollectionTenants))
	assert.Equal(t, 1, h.db.Count(store.CollectionBranches))
	assert.Equal(t, 1, h.idp.Count())
	assert.NotEmpty(t, reg.TenantID)
}

// TestPurpose: Validates tenant code derivation when no code is supplied.
// Scope: Unit Test
// Expected: The first free derived code is used and the branch code follows it.
// Test Case ID: REG-07
func TestRegisterTenant_DerivedCode(t *testing.T) {
	h := newHarness(t)
	h.db.Seed(store.CollectionTenants, store.Row{"id": "old", "name": "Alekaf", "code": "ALEKAF001"})

	in := registerInput()
	in.SchoolCode = ""
	reg, err := h.svc.RegisterTenant(context.Background(), in)
	require.NoError(t, err)

	row, err := h.db.SelectOne(context.Background(), store.CollectionTenants, store.Eq("id", reg.TenantID))
	require.NoError(t, err)
	assert.Equal(t, "ALEKAF002", row.String("code"))

	branch, err := h.db.SelectOne(context.Background(), store.CollectionBranches, store.Eq("id", reg.BranchID))
	require.NoError(t, err)
	assert.Equal(t, "ALEKAF002-MAIN", branch.String("code"))
}

// TestPurpose: Validates the branch and domain uniqueness guards.
// Scope: Unit Test
// Expected: A taken branch code rolls back the new tenant; a taken domain fails before any write.
// Test Case ID: REG-08
func TestRegisterTenant_BranchAndDomainGuards(t *testing.T) {
	t.Run("branch code", func(t *testing.T) {
		h := newHarness(t)
		h.db.Seed(store.CollectionBranches, store.Row{"id": "b0", "tenant_id": "t0", "name": "x", "code": "SHARED"})

		in := registerInput()
		in.BranchCode = "shared"
		_, err := h.svc.RegisterTenant(context.Background(), in)

		require.Error(t, err)
		assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
		assert.Contains(t, err.Error(), `branch code "SHARED"`)
		assert.Equal(t, []string{"insert tenants", "delete tenants"}, h.log.mutations())
		assert.Equal(t, map[string]int{store.CollectionBranches: 1}, h.created())
	})

	t.Run("domain", func(t *testing.T) {
		h := newHarness(t)
		h.db.Seed(store.CollectionTenants, store.Row{"id": "t0", "name": "x", "code": "OTHER001", "domain": "alekaf.edu"})

		in := registerInput()
		in.SchoolDomain = "Alekaf.edu"
		_, err := h.svc.RegisterTenant(context.Background(), in)

		require.Error(t, err)
		assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
		assert.Contains(t, err.Error(), "tenant domain")
		assert.Empty(t, h.log.mutations())
	})
}

// TestPurpose: Validates that a store-level duplicate from a lost race is reported as a conflict.
// Scope: Unit Test
// Expected: Conflict, and the completed steps are compensated.
// Test Case ID: REG-09
func TestRegisterTenant_StoreDuplicateIsConflict(t *testing.T) {
	h := newHarness(t)
	h.db.FailNext(memory.OpInsert, store.CollectionBranches, store.ErrDuplicate)

	_, err := h.svc.RegisterTenant(context.Background(), registerInput())

	require.Error(t, err)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
	assert.Contains(t, err.Error(), `branch code "ALEKAF001-MAIN"`)
	assert.Empty(t, h.created())
}

// TestPurpose: Validates mapping of identity provider failures.
// Scope: Unit Test
// Expected: A registered email is a Conflict; a rejected account is a downstream identity failure.
// Test Case ID: REG-10
func TestRegisterTenant_IdentityErrors(t *testing.T) {
	t.Run("already registered", func(t *testing.T) {
		h := newHarness(t)
		h.idp.Seed("existing", "admin@alekaf.edu")

		_, err := h.svc.RegisterTenant(context.Background(), registerInput())

		require.Error(t, err)
		assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
		assert.Contains(t, err.Error(), `email "admin@alekaf.edu"`)
		assert.Empty(t, h.created())
		assert.Equal(t, 1, h.idp.Count())
	})

	t.Run("rejected", func(t *testing.T) {
		h := newHarness(t)
		h.idp.FailCreate(identity.ErrRejected)

		_, err := h.svc.RegisterTenant(context.Background(), registerInput())

		e, ok := apperr.As(err)
		require.True(t, ok)
		assert.Equal(t, apperr.KindDownstream, e.Kind)
		assert.Equal(t, apperr.DependencyIdentity, e.Dependency)
	})
}

// TestPurpose: Validates input validation before any step runs.
// Scope: Unit Test
// Expected: Validation errors and no store or identity calls.
// Test Case ID: REG-11
func TestRegisterTenant_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*RegisterInput)
		want   string
	}{
		{"missing school", func(in *RegisterInput) { in.SchoolName = "  " }, "schoolName"},
		{"missing branch", func(in *RegisterInput) { in.BranchName = "" }, "branchName"},
		{"bad code", func(in *RegisterInput) { in.SchoolCode = "a b" }, "schoolCode"},
		{"bad email", func(in *RegisterInput) { in.Email = "nope" }, "email"},
		{"short password", func(in *RegisterInput) { in.Password = "short" }, "password"},
		{"missing name", func(in *RegisterInput) { in.FullName = "" }, "fullName"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			in := registerInput()
			tt.mutate(&in)

			_, err := h.svc.RegisterTenant(context.Background(), in)

			require.Error(t, err)
			assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
			assert.Contains(t, err.Error(), tt.want)
			assert.Empty(t, h.log.calls)
		})
	}
}
