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

// Package identitytest provides an in-memory identity.Provider with failure
// injection for tests.
package identitytest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/eduplane/eduplane/internal/identity"
)

// Provider is an in-memory identity.Provider.
type Provider struct {
	mu         sync.Mutex
	seq        int
	accounts   map[string]*identity.Account
	createErrs []error
	deleteErrs []error
	deleted    []string
}

// New creates an empty provider.
func New() *Provider {
	return &Provider{accounts: make(map[string]*identity.Account)}
}

// FailCreate queues errors returned by the next CreateAccount calls, in order.
func (p *Provider) FailCreate(errs ...error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.createErrs = append(p.createErrs, errs...)
}

// FailDelete queues errors returned by the next DeleteAccount calls, in order.
func (p *Provider) FailDelete(errs ...error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.deleteErrs = append(p.deleteErrs, errs...)
}

// Seed registers an existing account.
func (p *Provider) Seed(id, email string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.accounts[id] = &identity.Account{ID: id, Email: identity.NormalizeEmail(email), CreatedAt: time.Now()}
}

// Count returns the number of live accounts.
func (p *Provider) Count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.accounts)
}

// Deleted returns the IDs passed to successful DeleteAccount calls.
func (p *Provider) Deleted() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.deleted...)
}

// CreateAccount implements identity.Provider.
func (p *Provider) CreateAccount(ctx context.Context, email, password string) (*identity.Account, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.createErrs) > 0 {
		err := p.createErrs[0]
		p.createErrs = p.createErrs[1:]
		if err != nil {
			return nil, err
		}
	}

	email = identity.NormalizeEmail(email)
	if !identity.IsValidEmail(email) {
		return nil, identity.ErrInvalidEmail
	}
	if !identity.IsStrongPassword(password) {
		return nil, identity.ErrWeakPassword
	}
	for _, acc := range p.accounts {
		if acc.Email == email {
			return nil, identity.ErrAlreadyRegistered
		}
	}

	p.seq++
	acc := &identity.Account{ID: fmt.Sprintf("acct-%03d", p.seq), Email: email, CreatedAt: time.Now()}
	p.accounts[acc.ID] = acc
	copied := *acc
	return &copied, nil
}

// DeleteAccount implements identity.Provider.
func (p *Provider) DeleteAccount(ctx context.Context, id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.deleteErrs) > 0 {
		err := p.deleteErrs[0]
		p.deleteErrs = p.deleteErrs[1:]
		if err != nil {
			return err
		}
	}
	delete(p.accounts, id)
	p.deleted = append(p.deleted, id)
	return nil
}

// GetAccountByID implements identity.Provider.
func (p *Provider) GetAccountByID(ctx context.Context, id string) (*identity.Account, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	acc, ok := p.accounts[id]
	if !ok {
		return nil, identity.ErrAccountNotFound
	}
	copied := *acc
	return &copied, nil
}

var _ identity.Provider = (*Provider)(nil)
