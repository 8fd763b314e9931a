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
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/eduplane/eduplane/internal/audit"
	"github.com/eduplane/eduplane/internal/identity"
	"github.com/eduplane/eduplane/internal/identity/identitytest"
	"github.com/eduplane/eduplane/internal/saga"
	"github.com/eduplane/eduplane/internal/store"
	"github.com/eduplane/eduplane/internal/store/memory"
)

// callLog records store and identity calls in one global order.
type callLog struct {
	mu    sync.Mutex
	calls []string
}

func (l *callLog) add(call string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, call)
}

func (l *callLog) reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = nil
}

// mutations returns the calls that change state, dropping reads.
func (l *callLog) mutations() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []string
	for _, c := range l.calls {
		if !strings.HasPrefix(c, "select ") && !strings.HasPrefix(c, "get ") {
			out = append(out, c)
		}
	}
	return out
}

type recordingStore struct {
	store.Client
	log *callLog
}

func (r recordingStore) Insert(ctx context.Context, c string, row store.Row) (store.Row, error) {
	r.log.add("insert " + c)
	return r.Client.Insert(ctx, c, row)
}

func (r recordingStore) SelectOne(ctx context.Context, c string, f store.Filter) (store.Row, error) {
	r.log.add("select " + c)
	return r.Client.SelectOne(ctx, c, f)
}

func (r recordingStore) Update(ctx context.Context, c string, f store.Filter, p store.Row) error {
	r.log.add("update " + c)
	return r.Client.Update(ctx, c, f, p)
}

func (r recordingStore) Delete(ctx context.Context, c string, f store.Filter) error {
	r.log.add("delete " + c)
	return r.Client.Delete(ctx, c, f)
}

type recordingIdentity struct {
	identity.Provider
	log *callLog
}

func (r recordingIdentity) CreateAccount(ctx context.Context, email, password string) (*identity.Account, error) {
	r.log.add("create account")
	return r.Provider.CreateAccount(ctx, email, password)
}

func (r recordingIdentity) DeleteAccount(ctx context.Context, id string) error {
	r.log.add("delete account")
	return r.Provider.DeleteAccount(ctx, id)
}

type auditRecorder struct {
	mu     sync.Mutex
	events []audit.Event
}

func (a *auditRecorder) Log(_ context.Context, e audit.Event) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, e)
}

func (a *auditRecorder) types() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, 0, len(a.events))
	for _, e := range a.events {
		out = append(out, e.Type)
	}
	return out
}

type harness struct {
	db    *memory.Store
	idp   *identitytest.Provider
	log   *callLog
	audit *auditRecorder
	svc   *Service
}

const (
	tenantID = "tenant-1"
	branchID = "branch-1"
)

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		db:    memory.New(),
		idp:   identitytest.New(),
		log:   &callLog{},
		audit: &auditRecorder{},
	}
	h.db.Seed(store.CollectionRoles,
		store.Row{"id": "role-school-admin", "name": "school_admin"},
		store.Row{"id": "role-teacher", "name": "teacher"},
		store.Row{"id": "role-staff", "name": "staff"},
		store.Row{"id": "role-student", "name": "student"},
		store.Row{"id": "role-parent", "name": "parent"},
	)
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	h.svc = NewService(
		recordingStore{Client: h.db, log: h.log},
		recordingIdentity{Provider: h.idp, log: h.log},
		saga.NewExecutor(saga.WithLogger(quiet)),
		h.audit,
		Config{},
	)
	return h
}

// withSchool seeds a tenant with one branch, a class and a section.
func (h *harness) withSchool() *harness {
	h.db.Seed(store.CollectionTenants, store.Row{"id": tenantID, "name": "Alekaf", "code": "ALEKAF001"})
	h.db.Seed(store.CollectionBranches, store.Row{"id": branchID, "tenant_id": tenantID, "name": "Main", "code": "ALEKAF001-MAIN"})
	h.db.Seed(store.CollectionClasses, store.Row{"id": "class-1", "branch_id": branchID, "name": "Grade 1"})
	h.db.Seed(store.CollectionSections, store.Row{"id": "section-a", "class_id": "class-1", "branch_id": branchID, "name": "A"})
	return h
}

// created reports how many rows each collection holds, excluding seeded
// reference data.
func (h *harness) created() map[string]int {
	snap := h.db.Snapshot()
	delete(snap, store.CollectionRoles)
	return snap
}

// reversed returns the compensation calls expected for forward mutations.
func reversed(forward []string) []string {
	out := make([]string, 0, len(forward))
	for i := len(forward) - 1; i >= 0; i-- {
		call := forward[i]
		switch {
		case call == "create account":
			out = append(out, "delete account")
		case strings.HasPrefix(call, "insert "):
			out = append(out, "delete "+strings.TrimPrefix(call, "insert "))
		}
	}
	return out
}
