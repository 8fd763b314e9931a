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

// Package workos implements identity.Provider on top of WorkOS User Management.
package workos

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/eduplane/eduplane/internal/identity"
	"github.com/eduplane/eduplane/internal/observability/logger"
	"github.com/workos/workos-go/v6/pkg/usermanagement"
	"github.com/workos/workos-go/v6/pkg/workos_errors"
)

// userAPI is the subset of the WorkOS user management client in use.
type userAPI interface {
	CreateUser(ctx context.Context, opts usermanagement.CreateUserOpts) (usermanagement.User, error)
	DeleteUser(ctx context.Context, opts usermanagement.DeleteUserOpts) error
	GetUser(ctx context.Context, opts usermanagement.GetUserOpts) (usermanagement.User, error)
}

// Config holds WorkOS credentials.
type Config struct {
	APIKey   string
	ClientID string
}

// Provider creates identity accounts as WorkOS users.
type Provider struct {
	users userAPI
}

// New creates a Provider using the WorkOS API key in cfg.
func New(cfg Config) *Provider {
	return &Provider{users: usermanagement.NewClient(cfg.APIKey)}
}

func newWithAPI(users userAPI) *Provider {
	return &Provider{users: users}
}

// CreateAccount creates a WorkOS user with a password.
func (p *Provider) CreateAccount(ctx context.Context, email, password string) (*identity.Account, error) {
	email = identity.NormalizeEmail(email)
	if !identity.IsValidEmail(email) {
		return nil, identity.ErrInvalidEmail
	}
	if !identity.IsStrongPassword(password) {
		return nil, identity.ErrWeakPassword
	}

	user, err := p.users.CreateUser(ctx, usermanagement.CreateUserOpts{
		Email:    email,
		Password: password,
	})
	if err != nil {
		return nil, mapError("create user", err)
	}

	slog.DebugContext(ctx, "workos user created", logger.UserID(user.ID))
	return toAccount(user), nil
}

// DeleteAccount deletes the WorkOS user. A user that no longer exists is not
// an error.
func (p *Provider) DeleteAccount(ctx context.Context, id string) error {
	err := p.users.DeleteUser(ctx, usermanagement.DeleteUserOpts{User: id})
	if err == nil {
		return nil
	}
	err = mapError("delete user", err)
	if errors.Is(err, identity.ErrAccountNotFound) {
		return nil
	}
	return err
}

// GetAccountByID fetches the WorkOS user with id.
func (p *Provider) GetAccountByID(ctx context.Context, id string) (*identity.Account, error) {
	user, err := p.users.GetUser(ctx, usermanagement.GetUserOpts{User: id})
	if err != nil {
		return nil, mapError("get user", err)
	}
	return toAccount(user), nil
}

func toAccount(u usermanagement.User) *identity.Account {
	acc := &identity.Account{ID: u.ID, Email: u.Email}
	if t, err := time.Parse(time.RFC3339, u.CreatedAt); err == nil {
		acc.CreatedAt = t
	}
	return acc
}

func mapError(op string, err error) error {
	var httpErr workos_errors.HTTPError
	if !errors.As(err, &httpErr) {
		return fmt.Errorf("workos %s: %w", op, err)
	}

	switch httpErr.Code {
	case http.StatusNotFound:
		return fmt.Errorf("workos %s: %w", op, identity.ErrAccountNotFound)
	case http.StatusConflict:
		return fmt.Errorf("workos %s: %w", op, identity.ErrAlreadyRegistered)
	case http.StatusUnprocessableEntity, http.StatusBadRequest:
		if strings.Contains(strings.ToLower(httpErr.Message), "already") {
			return fmt.Errorf("workos %s: %w", op, identity.ErrAlreadyRegistered)
		}
		return fmt.Errorf("workos %s: %w: %s", op, identity.ErrRejected, httpErr.Message)
	default:
		return fmt.Errorf("workos %s: %w", op, err)
	}
}
