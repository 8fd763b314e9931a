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

package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/eduplane/eduplane/internal/audit"
	"github.com/eduplane/eduplane/internal/config"
	"github.com/eduplane/eduplane/internal/identity"
	"github.com/eduplane/eduplane/internal/store/postgres"
	"github.com/spf13/cobra"
)

type reconcileOptions struct {
	grace time.Duration
	limit int
}

func newReconcileCommand(a *app) *cobra.Command {
	opts := &reconcileOptions{}

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Delete local identity accounts that no profile references",
		Long: `Delete local identity accounts left behind when a compensating delete
failed during provisioning. Only the local identity provider keeps accounts
in the database, so the command refuses to run for hosted providers.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.cfg.Identity.Provider != config.IdentityLocal {
				return errors.New("reconcile requires IDENTITY_PROVIDER=local")
			}
			if opts.limit <= 0 {
				return fmt.Errorf("--limit must be positive, got %d", opts.limit)
			}

			ctx := cmd.Context()
			db, err := a.openDB(ctx)
			if err != nil {
				return err
			}
			defer db.Close()

			auditLogger := audit.NewSlogLogger()
			reconciler := identity.NewReconciler(
				postgres.NewAccountRepository(db),
				newLocalProvider(a.cfg, db, auditLogger),
				auditLogger,
			)
			deleted, err := reconciler.Run(ctx, opts.grace, opts.limit)
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %d orphaned account(s)\n", deleted)
			return err
		},
	}

	cmd.Flags().DurationVar(&opts.grace, "grace", 15*time.Minute, "skip accounts younger than this")
	cmd.Flags().IntVar(&opts.limit, "limit", 500, "maximum accounts to delete in one run")

	return cmd
}
