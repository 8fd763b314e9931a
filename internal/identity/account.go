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
	"errors"
	"time"
)

// Domain errors
var (
	ErrAlreadyRegistered = errors.New("email already registered")
	ErrAccountNotFound   = errors.New("identity account not found")
	ErrInvalidEmail      = errors.New("invalid email address")
	ErrWeakPassword      = errors.New("password does not meet security requirements")
	ErrRejected          = errors.New("identity provider rejected the request")
)

// Account is an identity-provider record. Relational rows reference it by ID
// but never own it.
type Account struct {
	ID        string
	Email     string
	CreatedAt time.Time
}

// Provider creates, deletes and looks up identity accounts.
//
// DeleteAccount is the compensating action for CreateAccount and must be
// safe to call for an account that is already gone.
type Provider interface {
	// CreateAccount registers email with password. Returns ErrAlreadyRegistered
	// when the email is taken.
	CreateAccount(ctx context.Context, email, password string) (*Account, error)

	// DeleteAccount removes the account.
	DeleteAccount(ctx context.Context, id string) error

	// GetAccountByID returns ErrAccountNotFound when no account has id.
	GetAccountByID(ctx context.Context, id string) (*Account, error)
}

// AccountRepository persists accounts for the local provider.
type AccountRepository interface {
	// Create stores the account and its password hash.
	Create(ctx context.Context, account *Account, passwordHash string) error

	// GetByID retrieves an account by ID
	GetByID(ctx context.Context, id string) (*Account, error)

	// GetByEmail retrieves an account by email
	GetByEmail(ctx context.Context, email string) (*Account, error)

	// Delete removes the account and its credentials.
	Delete(ctx context.Context, id string) error

	// ListOrphans returns accounts with no profile row.
	ListOrphans(ctx context.Context, olderThan time.Time, limit int) ([]*Account, error)
}
