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
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/eduplane/eduplane/internal/audit"
	"github.com/eduplane/eduplane/internal/id"
	"golang.org/x/crypto/argon2"
)

// PasswordHasher handles password hashing using Argon2id
type PasswordHasher struct {
	memory      uint32
	iterations  uint32
	parallelism uint8
	saltLength  uint32
	keyLength   uint32
}

// NewPasswordHasher creates a new password hasher with Argon2id
func NewPasswordHasher(memory, iterations uint32, parallelism uint8, saltLength, keyLength uint32) *PasswordHasher {
	return &PasswordHasher{
		memory:      memory,
		iterations:  iterations,
		parallelism: parallelism,
		saltLength:  saltLength,
		keyLength:   keyLength,
	}
}

// Hash encodes password as $argon2id$v=19$m=...,t=...,p=...$salt$hash
func (h *PasswordHasher) Hash(password string) (string, error) {
	salt := make([]byte, h.saltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}

	key := argon2.IDKey([]byte(password), salt, h.iterations, h.memory, h.parallelism, h.keyLength)

	return fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		h.memory,
		h.iterations,
		h.parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify reports whether password matches an encoded hash.
func (h *PasswordHasher) Verify(password, encoded string) (bool, error) {
	parts := strings.Split(strings.TrimPrefix(encoded, "$"), "$")
	if len(parts) != 5 || parts[0] != "argon2id" {
		return false, fmt.Errorf("invalid hash format: got %d sections", len(parts))
	}

	var memory, iterations uint32
	var parallelism uint8
	if _, err := fmt.Sscanf(parts[2], "m=%d,t=%d,p=%d", &memory, &iterations, &parallelism); err != nil {
		return false, fmt.Errorf("invalid parameters: %w", err)
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[3])
	if err != nil {
		return false, fmt.Errorf("failed to decode salt: %w", err)
	}
	want, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false, fmt.Errorf("failed to decode hash: %w", err)
	}

	got := argon2.IDKey([]byte(password), salt, iterations, memory, parallelism, uint32(len(want)))
	return subtle.ConstantTimeCompare(got, want) == 1, nil
}

// LocalProvider is a Provider backed by the application's own database.
// It is used when no hosted identity provider is configured.
type LocalProvider struct {
	repo        AccountRepository
	hasher      *PasswordHasher
	auditLogger audit.Logger
}

// NewLocalProvider creates a new local identity provider
func NewLocalProvider(repo AccountRepository, hasher *PasswordHasher, auditLogger audit.Logger) *LocalProvider {
	return &LocalProvider{
		repo:        repo,
		hasher:      hasher,
		auditLogger: auditLogger,
	}
}

// CreateAccount creates an account with a password credential
func (p *LocalProvider) CreateAccount(ctx context.Context, email, password string) (*Account, error) {
	email = NormalizeEmail(email)
	if !IsValidEmail(email) {
		return nil, ErrInvalidEmail
	}
	if !IsStrongPassword(password) {
		return nil, ErrWeakPassword
	}

	if existing, err := p.repo.GetByEmail(ctx, email); err == nil && existing != nil {
		return nil, ErrAlreadyRegistered
	} else if err != nil && !errors.Is(err, ErrAccountNotFound) {
		return nil, fmt.Errorf("failed to look up account: %w", err)
	}

	hash, err := p.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	account := &Account{
		ID:    id.NewUUIDv7(),
		Email: email,
	}
	if err := p.repo.Create(ctx, account, hash); err != nil {
		return nil, err
	}

	p.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeAccountCreated,
		ActorID:  account.ID,
		Resource: audit.ResourceIdentityAccount,
		Metadata: map[string]any{audit.AttrEmail: email},
	})

	return account, nil
}

// DeleteAccount deletes an account; a missing account is not an error.
func (p *LocalProvider) DeleteAccount(ctx context.Context, accountID string) error {
	if err := p.repo.Delete(ctx, accountID); err != nil && !errors.Is(err, ErrAccountNotFound) {
		return fmt.Errorf("failed to delete account: %w", err)
	}

	p.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeAccountDeleted,
		ActorID:  accountID,
		Resource: audit.ResourceIdentityAccount,
	})
	return nil
}

// GetAccountByID retrieves an account by ID
func (p *LocalProvider) GetAccountByID(ctx context.Context, accountID string) (*Account, error) {
	return p.repo.GetByID(ctx, accountID)
}

// NormalizeEmail lower-cases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// IsValidEmail reports whether email is a single bare RFC 5322 address.
func IsValidEmail(email string) bool {
	if len(email) < 3 || len(email) > 254 {
		return false
	}
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}

// IsStrongPassword enforces the minimum password length.
func IsStrongPassword(password string) bool {
	return len(password) >= 8
}
