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

package identity

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/eduplane/eduplane/internal/audit"
	"github.com/eduplane/eduplane/internal/observability/logger"
	"go.uber.org/multierr"
)

// OrphanLister finds accounts that no profile references.
type OrphanLister interface {
	ListOrphans(ctx context.Context, olderThan time.Time, limit int) ([]*Account, error)
}

// Reconciler removes identity accounts left behind when a compensating
// delete failed during provisioning.
type Reconciler struct {
	orphans     OrphanLister
	provider    Provider
	auditLogger audit.Logger
	now         func() time.Time
}

// NewReconciler creates a Reconciler.
func NewReconciler(orphans OrphanLister, provider Provider, auditLogger audit.Logger) *Reconciler {
	return &Reconciler{
		orphans:     orphans,
		provider:    provider,
		auditLogger: auditLogger,
		now:         time.Now,
	}
}

// Run deletes up to limit orphaned accounts older than grace. Accounts
// younger than grace may belong to a provisioning run still in flight.
// It returns the number deleted and every deletion error.
func (r *Reconciler) Run(ctx context.Context, grace time.Duration, limit int) (int, error) {
	accounts, err := r.orphans.ListOrphans(ctx, r.now().Add(-grace), limit)
	if err != nil {
		return 0, err
	}

	var (
		deleted int
		errs    error
	)
	for _, acc := range accounts {
		if err := r.provider.DeleteAccount(ctx, acc.ID); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("account %s: %w", acc.ID, err))
			continue
		}
		deleted++
		r.auditLogger.Log(ctx, audit.Event{
			Type:     audit.TypeOrphanReconciled,
			ActorID:  audit.ActorSystem,
			Resource: audit.ResourceIdentityAccount,
			Metadata: map[string]any{
				audit.AttrEmail: acc.Email,
				"account_id":    acc.ID,
			},
		})
	}

	slog.InfoContext(ctx, "orphan accounts reconciled",
		logger.Operation("reconcile"),
		slog.Int("found", len(accounts)),
		slog.Int("deleted", deleted),
	)
	return deleted, errs
}
