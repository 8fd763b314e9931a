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
	"fmt"

	"github.com/eduplane/eduplane/internal/apperr"
	"github.com/eduplane/eduplane/internal/authz"
	"github.com/eduplane/eduplane/internal/guard"
	"github.com/eduplane/eduplane/internal/identity"
	"github.com/eduplane/eduplane/internal/saga"
	"github.com/eduplane/eduplane/internal/store"
	"github.com/eduplane/eduplane/internal/tenant"
)

// enrollment is the part of workflow state that describes the user being
// created. Every workflow embeds one.
type enrollment struct {
	Email    string
	Password string
	Profile  identity.Profile
	BranchID string
	Primary  bool

	// AccountID is set once the identity account exists.
	AccountID string
}

func (e *enrollment) enrolled() *enrollment { return e }

// Step names.
const (
	stepCreateAccount    = "create_identity_account"
	stepCreateProfile    = "create_profile"
	stepCreateMembership = "create_branch_membership"
	stepAssignRole       = "assign_role"
)

func createAccount[S any](s *Service, get func(*S) *enrollment) saga.Step[S] {
	return saga.Step[S]{
		Name: stepCreateAccount,
		Forward: func(ctx context.Context, st *S) error {
			e := get(st)
			acc, err := s.identity.CreateAccount(ctx, e.Email, e.Password)
			if err != nil {
				return identityErr(err, e.Email)
			}
			e.AccountID = acc.ID
			e.Email = acc.Email
			return nil
		},
		Compensate: func(ctx context.Context, st *S) error {
			return s.identity.DeleteAccount(ctx, get(st).AccountID)
		},
	}
}

func createProfile[S any](s *Service, get func(*S) *enrollment) saga.Step[S] {
	return saga.Step[S]{
		Name: stepCreateProfile,
		Forward: func(ctx context.Context, st *S) error {
			e := get(st)
			e.Profile.ID = e.AccountID
			e.Profile.Email = e.Email
			e.Profile.IsActive = true
			if e.Profile.CurrentBranchID == "" {
				e.Profile.CurrentBranchID = e.BranchID
			}
			if _, err := s.store.Insert(ctx, store.CollectionProfiles, e.Profile.Row()); err != nil {
				return insertErr(err, store.CollectionProfiles, "id", e.AccountID)
			}
			return nil
		},
		Compensate: func(ctx context.Context, st *S) error {
			return s.store.Delete(ctx, store.CollectionProfiles, store.Eq("id", get(st).AccountID))
		},
	}
}

func createMembership[S any](s *Service, get func(*S) *enrollment) saga.Step[S] {
	membership := func(e *enrollment) *tenant.BranchMembership {
		return &tenant.BranchMembership{UserID: e.AccountID, BranchID: e.BranchID, IsPrimary: e.Primary}
	}
	return saga.Step[S]{
		Name: stepCreateMembership,
		Forward: func(ctx context.Context, st *S) error {
			e := get(st)
			if _, err := s.store.Insert(ctx, store.CollectionUserBranches, membership(e).Row()); err != nil {
				return insertErr(err, store.CollectionUserBranches, "branch_id", e.BranchID)
			}
			return nil
		},
		Compensate: func(ctx context.Context, st *S) error {
			return s.store.Delete(ctx, store.CollectionUserBranches, membership(get(st)).Key())
		},
	}
}

// assignRole grants the role returned by roleID in the enrollment's branch.
func assignRole[S any](s *Service, get func(*S) *enrollment, roleID func(*S) string) saga.Step[S] {
	assignment := func(st *S) *authz.RoleAssignment {
		e := get(st)
		return &authz.RoleAssignment{UserID: e.AccountID, RoleID: roleID(st), BranchID: e.BranchID}
	}
	return saga.Step[S]{
		Name: stepAssignRole,
		Forward: func(ctx context.Context, st *S) error {
			a := assignment(st)
			if _, err := s.store.Insert(ctx, store.CollectionUserRoles, a.Row()); err != nil {
				return insertErr(err, store.CollectionUserRoles, "role_id", a.RoleID)
			}
			return nil
		},
		Compensate: func(ctx context.Context, st *S) error {
			return s.store.Delete(ctx, store.CollectionUserRoles, assignment(st).Key())
		},
	}
}

// assignRoles returns one step per role so each grant is undone on its own.
func assignRoles[S any](s *Service, get func(*S) *enrollment, roleIDs []string) []saga.Step[S] {
	steps := make([]saga.Step[S], 0, len(roleIDs))
	for _, id := range roleIDs {
		steps = append(steps, assignRole(s, get, func(*S) string { return id }))
	}
	return steps
}

// ensureUnique is a read-only step wrapping the uniqueness guard.
func ensureUnique[S any](s *Service, name, collection, field string, value func(*S) (string, store.Filter)) saga.Step[S] {
	return saga.Step[S]{
		Name: name,
		Forward: func(ctx context.Context, st *S) error {
			v, scope := value(st)
			return s.guard.EnsureUnique(ctx, collection, field, v, scope)
		},
	}
}

// requireRow is a read-only step failing with DependencyNotFound when no row
// in collection matches.
func requireRow[S any](s *Service, name, collection string, filter func(*S) store.Filter, missing func(*S) error) saga.Step[S] {
	return saga.Step[S]{
		Name: name,
		Forward: func(ctx context.Context, st *S) error {
			row, err := s.store.SelectOne(ctx, collection, filter(st))
			if err != nil {
				return apperr.Downstream(apperr.DependencyStore, "could not read "+collection, err)
			}
			if row == nil {
				return missing(st)
			}
			return nil
		},
	}
}

// requireBranch checks that branchID belongs to tenantID.
func requireBranch[S any](s *Service, ids func(*S) (tenantID, branchID string)) saga.Step[S] {
	return requireRow(s, "require_branch", store.CollectionBranches,
		func(st *S) store.Filter {
			tenantID, branchID := ids(st)
			return store.Eq("id", branchID).And("tenant_id", tenantID)
		},
		func(st *S) error {
			_, branchID := ids(st)
			return apperr.DependencyNotFound("branch %q not found", branchID)
		},
	)
}

// requireRoles checks that every role ID exists before anything is created.
func requireRoles[S any](s *Service, roleIDs []string) saga.Step[S] {
	return saga.Step[S]{
		Name: "require_roles",
		Forward: func(ctx context.Context, st *S) error {
			for _, id := range roleIDs {
				row, err := s.store.SelectOne(ctx, store.CollectionRoles, store.Eq("id", id))
				if err != nil {
					return apperr.Downstream(apperr.DependencyStore, "could not read roles", err)
				}
				if row == nil {
					return apperr.DependencyNotFound("role %q not found", id)
				}
			}
			return nil
		},
	}
}

// lookupRole resolves a seeded role by name into *dst.
func lookupRole[S any](s *Service, name string, dst func(*S) *string) saga.Step[S] {
	return saga.Step[S]{
		Name: "lookup_role",
		Forward: func(ctx context.Context, st *S) error {
			row, err := s.store.SelectOne(ctx, store.CollectionRoles, store.Eq("name", name))
			if err != nil {
				return apperr.Downstream(apperr.DependencyStore, "could not read roles", err)
			}
			if row == nil {
				return apperr.DependencyNotFound("role %q is not configured", name)
			}
			*dst(st) = authz.RoleFromRow(row).ID
			return nil
		},
	}
}

// insertErr classifies a failed insert into collection.
func insertErr(err error, collection, field, value string) error {
	switch {
	case errors.Is(err, store.ErrDuplicate):
		return apperr.Conflict(guard.Label(collection, field), value, err)
	case errors.Is(err, store.ErrReferenceMissing):
		e := apperr.DependencyNotFound("%s references a missing row", collection)
		e.Err = err
		return e
	default:
		return apperr.Downstream(apperr.DependencyStore, fmt.Sprintf("could not write %s", collection), err)
	}
}

// identityErr classifies a failed account creation.
func identityErr(err error, email string) error {
	switch {
	case errors.Is(err, identity.ErrAlreadyRegistered):
		return apperr.Conflict("email", identity.NormalizeEmail(email), err)
	case errors.Is(err, identity.ErrInvalidEmail),
		errors.Is(err, identity.ErrWeakPassword),
		errors.Is(err, identity.ErrRejected):
		return apperr.Downstream(apperr.DependencyIdentity, "identity provider rejected the account", err)
	default:
		return apperr.Downstream(apperr.DependencyIdentity, "identity provider unavailable", err)
	}
}
