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
	"time"

	"github.com/eduplane/eduplane/internal/audit"
	"github.com/eduplane/eduplane/internal/identity"
	"github.com/eduplane/eduplane/internal/saga"
	"github.com/eduplane/eduplane/internal/school"
	"github.com/eduplane/eduplane/internal/store"
)

// StaffInput is a staff onboarding request. TenantID comes from the
// caller's credentials, never from the request body.
type StaffInput struct {
	TenantID string `json:"-"`
	BranchID string `json:"branchId"`

	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"fullName"`
	Phone    string `json:"phone,omitempty"`

	EmployeeID  string     `json:"employeeId"`
	Department  string     `json:"department,omitempty"`
	Designation string     `json:"designation,omitempty"`
	JoiningDate *time.Time `json:"joiningDate,omitempty"`
	RoleIDs     []string   `json:"roleIds,omitempty"`
}

type staffOnboarding struct {
	enrollment
	in    StaffInput
	staff school.Staff
}

// OnboardStaff creates a staff member's account, profile, branch membership,
// role assignments and staff record.
func (s *Service) OnboardStaff(ctx context.Context, in StaffInput) (*school.Staff, error) {
	in.Email = identity.NormalizeEmail(in.Email)
	in.FullName = strings.TrimSpace(in.FullName)
	in.EmployeeID = strings.TrimSpace(in.EmployeeID)
	in.RoleIDs = dedupe(in.RoleIDs)
	if err := validateMember(in.TenantID, in.BranchID); err != nil {
		return nil, err
	}
	if err := validatePerson(in.Email, in.Password, in.FullName); err != nil {
		return nil, err
	}
	if err := requireName("employeeId", in.EmployeeID); err != nil {
		return nil, err
	}

	state := &staffOnboarding{
		in: in,
		enrollment: enrollment{
			Email:    in.Email,
			Password: in.Password,
			BranchID: in.BranchID,
			Profile: identity.Profile{
				FullName:   in.FullName,
				Phone:      in.Phone,
				EmployeeID: in.EmployeeID,
				Department: in.Department,
			},
		},
	}

	steps := []saga.Step[staffOnboarding]{
		requireBranch(s, func(st *staffOnboarding) (string, string) { return st.in.TenantID, st.in.BranchID }),
		ensureUnique(s, "ensure_employee_id_unique", store.CollectionStaff, "employee_id",
			func(st *staffOnboarding) (string, store.Filter) {
				return st.in.EmployeeID, store.Eq("branch_id", st.in.BranchID)
			}),
		requireRoles[staffOnboarding](s, in.RoleIDs),
		createAccount(s, (*staffOnboarding).enrolled),
		createProfile(s, (*staffOnboarding).enrolled),
		createMembership(s, (*staffOnboarding).enrolled),
	}
	steps = append(steps, assignRoles(s, (*staffOnboarding).enrolled, in.RoleIDs)...)
	steps = append(steps, s.createStaffRecord())

	done, err := saga.Run(ctx, s.exec, SagaOnboardStaff, state, steps...)
	if err != nil {
		s.reverted(ctx, SagaOnboardStaff, in.TenantID, &state.enrollment, err)
		return nil, err
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeStaffOnboarded,
		TenantID: in.TenantID,
		ActorID:  done.AccountID,
		Resource: audit.ResourceStaff,
		Metadata: map[string]any{
			audit.AttrBranchID: in.BranchID,
			audit.AttrRoleIDs:  in.RoleIDs,
		},
	})
	return &done.staff, nil
}

func (s *Service) createStaffRecord() saga.Step[staffOnboarding] {
	return saga.Step[staffOnboarding]{
		Name: "create_staff_record",
		Forward: func(ctx context.Context, st *staffOnboarding) error {
			st.staff = school.Staff{
				ID:          st.AccountID,
				BranchID:    st.in.BranchID,
				EmployeeID:  st.in.EmployeeID,
				FullName:    st.Profile.FullName,
				Email:       st.Email,
				Department:  st.in.Department,
				Designation: st.in.Designation,
				JoiningDate: st.in.JoiningDate,
				RoleIDs:     append([]string{}, st.in.RoleIDs...),
			}
			if _, err := s.store.Insert(ctx, store.CollectionStaff, st.staff.Row()); err != nil {
				return insertErr(err, store.CollectionStaff, "employee_id", st.in.EmployeeID)
			}
			return nil
		},
		Compensate: func(ctx context.Context, st *staffOnboarding) error {
			return s.store.Delete(ctx, store.CollectionStaff, store.Eq("id", st.AccountID))
		},
	}
}
