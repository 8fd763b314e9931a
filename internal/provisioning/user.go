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
	"strings"

	"github.com/eduplane/eduplane/internal/audit"
	"github.com/eduplane/eduplane/internal/identity"
	"github.com/eduplane/eduplane/internal/saga"
)

// UserInput is a generic user onboarding request, e.g. a parent.
type UserInput struct {
	TenantID string `json:"-"`
	BranchID string `json:"branchId"`

	Email    string   `json:"email"`
	Password string   `json:"password"`
	FullName string   `json:"fullName"`
	Phone    string   `json:"phone,omitempty"`
	RoleIDs  []string `json:"roleIds,omitempty"`
}

// UserAccount is the result of OnboardUser.
type UserAccount struct {
	ID       string   `json:"id"`
	Email    string   `json:"email"`
	FullName string   `json:"fullName"`
	Phone    string   `json:"phone,omitempty"`
	BranchID string   `json:"branchId"`
	RoleIDs  []string `json:"roleIds"`
}

type userOnboarding struct {
	enrollment
	in UserInput
}

// OnboardUser creates an account, profile, branch membership and role
// assignments. No domain record is created.
func (s *Service) OnboardUser(ctx context.Context, in UserInput) (*UserAccount, error) {
	in.Email = identity.NormalizeEmail(in.Email)
	in.FullName = strings.TrimSpace(in.FullName)
	in.RoleIDs = dedupe(in.RoleIDs)
	if err := validateMember(in.TenantID, in.BranchID); err != nil {
		return nil, err
	}
	if err := validatePerson(in.Email, in.Password, in.FullName); err != nil {
		return nil, err
	}

	state := &userOnboarding{
		in: in,
		enrollment: enrollment{
			Email:    in.Email,
			Password: in.Password,
			BranchID: in.BranchID,
			Profile:  identity.Profile{FullName: in.FullName, Phone: in.Phone},
		},
	}

	steps := []saga.Step[userOnboarding]{
		requireBranch(s, func(st *userOnboarding) (string, string) { return st.in.TenantID, st.in.BranchID }),
		requireRoles[userOnboarding](s, in.RoleIDs),
		createAccount(s, (*userOnboarding).enrolled),
		createProfile(s, (*userOnboarding).enrolled),
		createMembership(s, (*userOnboarding).enrolled),
	}
	steps = append(steps, assignRoles(s, (*userOnboarding).enrolled, in.RoleIDs)...)

	done, err := saga.Run(ctx, s.exec, SagaOnboardUser, state, steps...)
	if err != nil {
		s.reverted(ctx, SagaOnboardUser, in.TenantID, &state.enrollment, err)
		return nil, err
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeUserOnboarded,
		TenantID: in.TenantID,
		ActorID:  done.AccountID,
		Resource: audit.ResourceUser,
		Metadata: map[string]any{
			audit.AttrBranchID: in.BranchID,
			audit.AttrRoleIDs:  in.RoleIDs,
		},
	})
	return &UserAccount{
		ID:       done.AccountID,
		Email:    done.Email,
		FullName: done.Profile.FullName,
		Phone:    done.Profile.Phone,
		BranchID: in.BranchID,
		RoleIDs:  append([]string{}, in.RoleIDs...),
	}, nil
}
