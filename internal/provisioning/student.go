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

	"github.com/eduplane/eduplane/internal/apperr"
	"github.com/eduplane/eduplane/internal/audit"
	"github.com/eduplane/eduplane/internal/authz"
	"github.com/eduplane/eduplane/internal/identity"
	"github.com/eduplane/eduplane/internal/saga"
	"github.com/eduplane/eduplane/internal/school"
	"github.com/eduplane/eduplane/internal/store"
)

// StudentInput is a student onboarding request.
type StudentInput struct {
	TenantID string `json:"-"`
	BranchID string `json:"branchId"`

	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"fullName"`
	Phone    string `json:"phone,omitempty"`

	StudentCode   string     `json:"studentCode"`
	ClassID       string     `json:"classId,omitempty"`
	SectionID     string     `json:"sectionId,omitempty"`
	AdmissionDate *time.Time `json:"admissionDate,omitempty"`
	BloodGroup    string     `json:"bloodGroup,omitempty"`
	GuardianName  string     `json:"guardianName,omitempty"`
	GuardianPhone string     `json:"guardianPhone,omitempty"`
}

type studentOnboarding struct {
	enrollment
	in      StudentInput
	roleID  string
	student school.Student
}

// OnboardStudent creates a student's account, profile, branch membership,
// student role assignment and student record. The student code must be
// unused in the branch; class and section, when given, must exist there.
func (s *Service) OnboardStudent(ctx context.Context, in StudentInput) (*school.Student, error) {
	in.Email = identity.NormalizeEmail(in.Email)
	in.FullName = strings.TrimSpace(in.FullName)
	in.StudentCode = strings.TrimSpace(in.StudentCode)
	if err := validateMember(in.TenantID, in.BranchID); err != nil {
		return nil, err
	}
	if err := validatePerson(in.Email, in.Password, in.FullName); err != nil {
		return nil, err
	}
	if err := requireName("studentCode", in.StudentCode); err != nil {
		return nil, err
	}
	if in.SectionID != "" && in.ClassID == "" {
		return nil, apperr.Validation("sectionId requires classId")
	}

	state := &studentOnboarding{
		in: in,
		enrollment: enrollment{
			Email:    in.Email,
			Password: in.Password,
			BranchID: in.BranchID,
			Profile: identity.Profile{
				FullName:      in.FullName,
				Phone:         in.Phone,
				BloodGroup:    in.BloodGroup,
				AdmissionDate: in.AdmissionDate,
			},
		},
	}

	steps := []saga.Step[studentOnboarding]{
		requireBranch(s, func(st *studentOnboarding) (string, string) { return st.in.TenantID, st.in.BranchID }),
		ensureUnique(s, "ensure_student_code_unique", store.CollectionStudents, "student_code",
			func(st *studentOnboarding) (string, store.Filter) {
				return st.in.StudentCode, store.Eq("branch_id", st.in.BranchID)
			}),
	}
	if in.ClassID != "" {
		steps = append(steps, requireRow(s, "require_class", store.CollectionClasses,
			func(st *studentOnboarding) store.Filter {
				return store.Eq("id", st.in.ClassID).And("branch_id", st.in.BranchID)
			},
			func(st *studentOnboarding) error {
				return apperr.DependencyNotFound("class %q not found", st.in.ClassID)
			}))
	}
	if in.SectionID != "" {
		steps = append(steps, requireRow(s, "require_section", store.CollectionSections,
			func(st *studentOnboarding) store.Filter {
				return store.Eq("id", st.in.SectionID).
					And("class_id", st.in.ClassID).
					And("branch_id", st.in.BranchID)
			},
			func(st *studentOnboarding) error {
				return apperr.DependencyNotFound("section %q not found", st.in.SectionID)
			}))
	}
	steps = append(steps,
		createAccount(s, (*studentOnboarding).enrolled),
		createProfile(s, (*studentOnboarding).enrolled),
		createMembership(s, (*studentOnboarding).enrolled),
		lookupRole(s, authz.RoleStudent, func(st *studentOnboarding) *string { return &st.roleID }),
		assignRole(s, (*studentOnboarding).enrolled, func(st *studentOnboarding) string { return st.roleID }),
		s.createStudentRecord(),
	)

	done, err := saga.Run(ctx, s.exec, SagaOnboardStudent, state, steps...)
	if err != nil {
		s.reverted(ctx, SagaOnboardStudent, in.TenantID, &state.enrollment, err)
		return nil, err
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeStudentOnboarded,
		TenantID: in.TenantID,
		ActorID:  done.AccountID,
		Resource: audit.ResourceStudent,
		Metadata: map[string]any{
			audit.AttrBranchID: in.BranchID,
			audit.AttrCode:     in.StudentCode,
		},
	})
	return &done.student, nil
}

func (s *Service) createStudentRecord() saga.Step[studentOnboarding] {
	return saga.Step[studentOnboarding]{
		Name: "create_student_record",
		Forward: func(ctx context.Context, st *studentOnboarding) error {
			st.student = school.Student{
				ID:            st.AccountID,
				BranchID:      st.in.BranchID,
				StudentCode:   st.in.StudentCode,
				FullName:      st.Profile.FullName,
				Email:         st.Email,
				ClassID:       st.in.ClassID,
				SectionID:     st.in.SectionID,
				AdmissionDate: st.in.AdmissionDate,
				BloodGroup:    st.in.BloodGroup,
				GuardianName:  st.in.GuardianName,
				GuardianPhone: st.in.GuardianPhone,
			}
			if _, err := s.store.Insert(ctx, store.CollectionStudents, st.student.Row()); err != nil {
				return insertErr(err, store.CollectionStudents, "student_code", st.in.StudentCode)
			}
			return nil
		},
		Compensate: func(ctx context.Context, st *studentOnboarding) error {
			return s.store.Delete(ctx, store.CollectionStudents, store.Eq("id", st.AccountID))
		},
	}
}
