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

package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/eduplane/eduplane/internal/identity"
	"github.com/eduplane/eduplane/internal/store"
	"github.com/jackc/pgx/v5"
)

// AccountRepository implements identity.AccountRepository
type AccountRepository struct {
	db *DB
}

// NewAccountRepository creates a new account repository
func NewAccountRepository(db *DB) *AccountRepository {
	return &AccountRepository{db: db}
}

// Create stores an account and its credential in one transaction.
func (r *AccountRepository) Create(ctx context.Context, account *identity.Account, passwordHash string) error {
	now := time.Now()

	tx, err := r.db.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `
		INSERT INTO identity_accounts (id, email, created_at)
		VALUES ($1, $2, $3)
	`, account.ID, account.Email, now); err != nil {
		err = mapPostgresError(err)
		if errors.Is(err, store.ErrDuplicate) {
			return identity.ErrAlreadyRegistered
		}
		return fmt.Errorf("failed to insert account: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO identity_credentials (account_id, password_hash, updated_at)
		VALUES ($1, $2, $3)
	`, account.ID, passwordHash, now); err != nil {
		return fmt.Errorf("failed to insert credentials: %w", mapPostgresError(err))
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit account: %w", err)
	}

	account.CreatedAt = now
	return nil
}

// GetByID retrieves an account by ID
func (r *AccountRepository) GetByID(ctx context.Context, id string) (*identity.Account, error) {
	return r.getOne(ctx, `SELECT id, email, created_at FROM identity_accounts WHERE id = $1`, id)
}

// GetByEmail retrieves an account by email
func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (*identity.Account, error) {
	return r.getOne(ctx, `SELECT id, email, created_at FROM identity_accounts WHERE email = $1`, email)
}

func (r *AccountRepository) getOne(ctx context.Context, query string, arg any) (*identity.Account, error) {
	var acc identity.Account
	err := r.db.pool.QueryRow(ctx, query, arg).Scan(&acc.ID, &acc.Email, &acc.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, identity.ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return &acc, nil
}

// Delete removes the account; credentials cascade.
func (r *AccountRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.pool.Exec(ctx, `DELETE FROM identity_accounts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete account: %w", mapPostgresError(err))
	}
	if tag.RowsAffected() == 0 {
		return identity.ErrAccountNotFound
	}
	return nil
}

// ListOrphans returns accounts created before olderThan that have no profile.
func (r *AccountRepository) ListOrphans(ctx context.Context, olderThan time.Time, limit int) ([]*identity.Account, error) {
	rows, err := r.db.pool.Query(ctx, `
		SELECT a.id, a.email, a.created_at
		FROM identity_accounts a
		LEFT JOIN profiles p ON p.id = a.id
		WHERE p.id IS NULL AND a.created_at < $1
		ORDER BY a.created_at
		LIMIT $2
	`, olderThan, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list orphan accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*identity.Account
	for rows.Next() {
		var acc identity.Account
		if err := rows.Scan(&acc.ID, &acc.Email, &acc.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, &acc)
	}
	return accounts, rows.Err()
}

var _ identity.AccountRepository = (*AccountRepository)(nil)
