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

// Package provisioning implements the workflows that create a tenant or a
// user together with every dependent row. Each workflow is a saga: a
// failure part way through undoes the completed steps in reverse order, so
// callers observe either the whole aggregate or nothing.
package provisioning

import (
	"context"
	"log/slog"

	"github.com/eduplane/eduplane/internal/apperr"
	"github.com/eduplane/eduplane/internal/audit"
	"github.com/eduplane/eduplane/internal/guard"
	"github.com/eduplane/eduplane/internal/identity"
	"github.com/eduplane/eduplane/internal/observability/logger"
	"github.com/eduplane/eduplane/internal/saga"
	"github.com/eduplane/eduplane/internal/store"
)

// Saga names, used in logs, spans and metrics.
const (
	SagaRegisterTenant = "register_tenant"
	SagaOnboardStaff   = "onboard_staff"
	SagaOnboardStudent = "onboard_student"
	SagaOnboardUser    = "onboard_user"
)

// Config tunes workflow defaults.
type Config struct {
	// DefaultStorageQuotaMB is the quota of a tenant's first branch.
	DefaultStorageQuotaMB int

	// CodeCandidates bounds how many derived tenant codes are tried when
	// the caller does not choose one.
	CodeCandidates int
}

// DefaultConfig returns the defaults used when Config fields are zero.
func DefaultConfig() Config {
	return Config{
		DefaultStorageQuotaMB: 5120,
		CodeCandidates:        50,
	}
}

// Service runs the provisioning workflows.
type Service struct {
	store       store.Client
	identity    identity.Provider
	guard       *guard.Guard
	exec        *saga.Executor
	auditLogger audit.Logger
	cfg         Config
}

// NewService creates a provisioning service.
func NewService(
	client store.Client,
	idp identity.Provider,
	exec *saga.Executor,
	auditLogger audit.Logger,
	cfg Config,
) *Service {
	def := DefaultConfig()
	if cfg.DefaultStorageQuotaMB <= 0 {
		cfg.DefaultStorageQuotaMB = def.DefaultStorageQuotaMB
	}
	if cfg.CodeCandidates <= 0 {
		cfg.CodeCandidates = def.CodeCandidates
	}
	if exec == nil {
		exec = saga.NewExecutor()
	}
	if auditLogger == nil {
		auditLogger = audit.NewSlogLogger()
	}
	return &Service{
		store:       client,
		identity:    idp,
		guard:       guard.New(client),
		exec:        exec,
		auditLogger: auditLogger,
		cfg:         cfg,
	}
}

// reverted records that a workflow failed after it had started mutating.
func (s *Service) reverted(ctx context.Context, sagaName, tenantID string, e *enrollment, err error) {
	if e.AccountID == "" && tenantID == "" {
		return
	}
	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeProvisioningReverted,
		TenantID: tenantID,
		ActorID:  audit.ActorSystem,
		Resource: audit.ResourceUser,
		Metadata: map[string]any{
			audit.AttrSaga:     sagaName,
			audit.AttrEmail:    e.Email,
			audit.AttrBranchID: e.BranchID,
			audit.AttrReason:   apperr.KindOf(err).Code(),
		},
	})
	slog.InfoContext(ctx, "provisioning reverted",
		logger.Saga(sagaName),
		logger.TenantID(tenantID),
		logger.ErrorKind(apperr.KindOf(err).Code()),
	)
}
