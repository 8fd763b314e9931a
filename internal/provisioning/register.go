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
	"log/slog"
	"strings"

	"github.com/eduplane/eduplane/internal/apperr"
	"github.com/eduplane/eduplane/internal/audit"
	"github.com/eduplane/eduplane/internal/authz"
	"github.com/eduplane/eduplane/internal/id"
	"github.com/eduplane/eduplane/internal/identity"
	"github.com/eduplane/eduplane/internal/observability/logger"
	"github.com/eduplane/eduplane/internal/saga"
	"github.com/eduplane/eduplane/internal/store"
	"github.com/eduplane/eduplane/internal/tenant"
)

// RegisterInput is a school registration request.
type RegisterInput struct {
	SchoolName string `json:"schoolName"`
	// SchoolCode is derived from SchoolName when empty.
	SchoolCode   string `json:"schoolCode,omitempty"`
	SchoolDomain string `json:"schoolDomain,omitempty"`

	BranchName    string `json:"branchName"`
	BranchCode    string `json:"branchCode,omitempty"`
	BranchAddress string `json:"branchAddress,omitempty"`
	BranchPhone   string `json:"branchPhone,omitempty"`
	BranchEmail   string `json:"branchEmail,omitempty"`

	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"fullName"`
	Phone    string `json:"phone,omitempty"`
}

// Registration identifies the administrator created by RegisterTenant.
// No session is created: the administrator logs in separately.
type Registration struct {
	UserID   string `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"fullName"`
	TenantID string `json:"tenantId"`
	BranchID string `json:"branchId"`
}

type registration struct {
	enrollment
	in     RegisterInput
	tenant tenant.Tenant
	branch tenant.Branch
	roleID string

	tenantCreated bool
}

// RegisterTenant creates a school, its main branch and the administrator
// account, and grants the administrator the school_admin role in that
// branch. On failure nothing created by this call remains.
func (s *Service) RegisterTenant(ctx context.Context, in RegisterInput) (*Registration, error) {
	in = normalizeRegister(in)
	if err := validateRegister(in); err != nil {
		return nil, err
	}

	state := &registration{
		in: in,
		tenant: tenant.Tenant{
			ID:       id.NewUUIDv7(),
			Name:     in.SchoolName,
			Code:     in.SchoolCode,
			Domain:   in.SchoolDomain,
			IsActive: true,
		},
		branch: tenant.Branch{
			ID:             id.NewUUIDv7(),
			Name:           in.BranchName,
			Code:           in.BranchCode,
			Address:        in.BranchAddress,
			Phone:          in.BranchPhone,
			Email:          in.BranchEmail,
			StorageQuotaMB: s.cfg.DefaultStorageQuotaMB,
			IsActive:       true,
		},
		enrollment: enrollment{
			Email:    in.Email,
			Password: in.Password,
			Profile:  identity.Profile{FullName: in.FullName, Phone: in.Phone},
			Primary:  true,
		},
	}
	state.branch.TenantID = state.tenant.ID
	state.BranchID = state.branch.ID

	steps := []saga.Step[registration]{
		s.resolveTenantCode(),
		s.createTenant(),
		ensureUnique(s, "ensure_branch_code_unique", store.CollectionBranches, "code",
			func(st *registration) (string, store.Filter) {
				if st.branch.Code == "" {
					st.branch.Code = tenant.DefaultBranchCode(st.tenant.Code)
				}
				return st.branch.Code, nil
			}),
		s.createBranch(),
		createAccount(s, (*registration).enrolled),
		createProfile(s, (*registration).enrolled),
		createMembership(s, (*registration).enrolled),
		lookupRole(s, authz.RoleSchoolAdmin, func(st *registration) *string { return &st.roleID }),
		assignRole(s, (*registration).enrolled, func(st *registration) string { return st.roleID }),
	}
	if in.SchoolDomain != "" {
		domainCheck := ensureUnique(s, "ensure_tenant_domain_unique", store.CollectionTenants, "domain",
			func(st *registration) (string, store.Filter) { return st.tenant.Domain, nil })
		steps = append([]saga.Step[registration]{domainCheck}, steps...)
	}

	done, err := saga.Run(ctx, s.exec, SagaRegisterTenant, state, steps...)
	if err != nil {
		tenantID := ""
		if state.tenantCreated {
			tenantID = state.tenant.ID
		}
		s.reverted(ctx, SagaRegisterTenant, tenantID, &state.enrollment, err)
		return nil, err
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeTenantRegistered,
		TenantID: done.tenant.ID,
		ActorID:  done.AccountID,
		Resource: audit.ResourceTenant,
		Metadata: map[string]any{
			audit.AttrCode:     done.tenant.Code,
			audit.AttrBranchID: done.branch.ID,
			audit.AttrEmail:    done.Email,
		},
	})
	slog.InfoContext(ctx, "tenant registered",
		logger.TenantID(done.tenant.ID),
		logger.BranchID(done.branch.ID),
		logger.UserID(done.AccountID),
	)

	return &Registration{
		UserID:   done.AccountID,
		Email:    done.Email,
		FullName: done.Profile.FullName,
		TenantID: done.tenant.ID,
		BranchID: done.branch.ID,
	}, nil
}

// resolveTenantCode checks the requested tenant code, or picks the first
// free code derived from the school name.
func (s *Service) resolveTenantCode() saga.Step[registration] {
	return saga.Step[registration]{
		Name: "ensure_tenant_code_unique",
		Forward: func(ctx context.Context, st *registration) error {
			if st.in.SchoolCode != "" {
				return s.guard.EnsureUnique(ctx, store.CollectionTenants, "code", st.in.SchoolCode, nil)
			}
			for _, code := range tenant.CodeCandidates(st.in.SchoolName, s.cfg.CodeCandidates) {
				err := s.guard.EnsureUnique(ctx, store.CollectionTenants, "code", code, nil)
				if err == nil {
					st.tenant.Code = code
					return nil
				}
				if apperr.KindOf(err) != apperr.KindConflict {
					return err
				}
			}
			return apperr.Conflict("tenant code", strings.ToUpper(st.in.SchoolName), nil)
		},
	}
}

func (s *Service) createTenant() saga.Step[registration] {
	return saga.Step[registration]{
		Name: "create_tenant",
		Forward: func(ctx context.Context, st *registration) error {
			if _, err := s.store.Insert(ctx, store.CollectionTenants, st.tenant.Row()); err != nil {
				return insertErr(err, store.CollectionTenants, "code", st.tenant.Code)
			}
			st.tenantCreated = true
			return nil
		},
		Compensate: func(ctx context.Context, st *registration) error {
			return s.store.Delete(ctx, store.CollectionTenants, store.Eq("id", st.tenant.ID))
		},
	}
}

func (s *Service) createBranch() saga.Step[registration] {
	return saga.Step[registration]{
		Name: "create_branch",
		Forward: func(ctx context.Context, st *registration) error {
			if _, err := s.store.Insert(ctx, store.CollectionBranches, st.branch.Row()); err != nil {
				return insertErr(err, store.CollectionBranches, "code", st.branch.Code)
			}
			return nil
		},
		Compensate: func(ctx context.Context, st *registration) error {
			return s.store.Delete(ctx, store.CollectionBranches, store.Eq("id", st.branch.ID))
		},
	}
}
