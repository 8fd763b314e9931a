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

// Package memory is an in-process store.Client. It enforces the same unique
// keys as the Postgres schema and can inject failures, which makes it the
// fake of choice for workflow tests.
package memory

import (
	"context"
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/eduplane/eduplane/internal/store"
)

// Op names a Client method for failure injection.
type Op string

const (
	OpInsert    Op = "insert"
	OpSelectOne Op = "select_one"
	OpUpdate    Op = "update"
	OpDelete    Op = "delete"
)

type failure struct {
	op         Op
	collection string
	err        error
	remaining  int // <0 means forever
}

// Store is a map-backed store.Client safe for concurrent use.
type Store struct {
	mu       sync.Mutex
	tables   map[string][]store.Row
	unique   map[string][][]string
	failures []*failure
	calls    []string
}

// New creates an empty store with the production unique keys.
func New() *Store {
	s := &Store{
		tables: make(map[string][]store.Row),
		unique: make(map[string][][]string),
	}
	for _, c := range []string{
		store.CollectionTenants, store.CollectionBranches, store.CollectionProfiles,
		store.CollectionRoles, store.CollectionStudents, store.CollectionStaff,
		store.CollectionClasses, store.CollectionSections, store.CollectionIdentityLocal,
	} {
		s.AddUnique(c, "id")
	}
	s.AddUnique(store.CollectionTenants, "code")
	s.AddUnique(store.CollectionTenants, "domain")
	s.AddUnique(store.CollectionBranches, "code")
	s.AddUnique(store.CollectionRoles, "name")
	s.AddUnique(store.CollectionUserBranches, "user_id", "branch_id")
	s.AddUnique(store.CollectionUserRoles, "user_id", "role_id", "branch_id")
	s.AddUnique(store.CollectionStudents, "branch_id", "student_code")
	s.AddUnique(store.CollectionStaff, "branch_id", "employee_id")
	s.AddUnique(store.CollectionIdentityLocal, "email")
	return s
}

// AddUnique declares a unique key over columns. Rows with a nil value in any
// key column are exempt, as in SQL.
func (s *Store) AddUnique(collection string, columns ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unique[collection] = append(s.unique[collection], columns)
}

// FailNext makes the next call of op on collection return err.
func (s *Store) FailNext(op Op, collection string, err error) {
	s.failAfter(op, collection, err, 1)
}

// FailAlways makes every call of op on collection return err.
func (s *Store) FailAlways(op Op, collection string, err error) {
	s.failAfter(op, collection, err, -1)
}

func (s *Store) failAfter(op Op, collection string, err error, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = append(s.failures, &failure{op: op, collection: collection, err: err, remaining: n})
}

// Seed inserts rows without constraint checks or failure injection.
func (s *Store) Seed(collection string, rows ...store.Row) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range rows {
		s.tables[collection] = append(s.tables[collection], clone(r))
	}
}

// Rows returns a copy of every row in collection.
func (s *Store) Rows(collection string) []store.Row {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]store.Row, 0, len(s.tables[collection]))
	for _, r := range s.tables[collection] {
		out = append(out, clone(r))
	}
	return out
}

// Count returns the number of rows in collection.
func (s *Store) Count(collection string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tables[collection])
}

// Snapshot returns the row count of every non-empty collection.
func (s *Store) Snapshot() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]int, len(s.tables))
	for c, rows := range s.tables {
		if len(rows) > 0 {
			out[c] = len(rows)
		}
	}
	return out
}

// Calls returns the "op collection" log of every call made so far.
func (s *Store) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

// Insert implements store.Client.
func (s *Store) Insert(ctx context.Context, collection string, row store.Row) (store.Row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(OpInsert, collection); err != nil {
		return nil, err
	}

	stored := clone(row)
	if _, ok := stored["created_at"]; !ok {
		stored["created_at"] = time.Now().UTC()
	}
	for _, key := range s.unique[collection] {
		for _, existing := range s.tables[collection] {
			if sameKey(key, existing, stored) {
				return nil, fmt.Errorf("insert %s %v: %w", collection, key, store.ErrDuplicate)
			}
		}
	}
	s.tables[collection] = append(s.tables[collection], stored)
	return clone(stored), nil
}

// SelectOne implements store.Client.
func (s *Store) SelectOne(ctx context.Context, collection string, filter store.Filter) (store.Row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(OpSelectOne, collection); err != nil {
		return nil, err
	}
	for _, r := range s.tables[collection] {
		if matches(r, filter) {
			return clone(r), nil
		}
	}
	return nil, nil
}

// Update implements store.Client.
func (s *Store) Update(ctx context.Context, collection string, filter store.Filter, patch store.Row) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(OpUpdate, collection); err != nil {
		return err
	}
	if len(filter) == 0 {
		return fmt.Errorf("update %s: refusing unfiltered update", collection)
	}
	for _, r := range s.tables[collection] {
		if matches(r, filter) {
			for k, v := range patch {
				r[k] = v
			}
		}
	}
	return nil
}

// Delete implements store.Client.
func (s *Store) Delete(ctx context.Context, collection string, filter store.Filter) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(OpDelete, collection); err != nil {
		return err
	}
	if len(filter) == 0 {
		return fmt.Errorf("delete %s: refusing unfiltered delete", collection)
	}
	kept := s.tables[collection][:0]
	for _, r := range s.tables[collection] {
		if !matches(r, filter) {
			kept = append(kept, r)
		}
	}
	s.tables[collection] = kept
	return nil
}

// enter records the call and returns an injected failure, if any. Callers hold mu.
func (s *Store) enter(op Op, collection string) error {
	s.calls = append(s.calls, string(op)+" "+collection)
	for _, f := range s.failures {
		if f.op != op || f.collection != collection || f.remaining == 0 {
			continue
		}
		if f.remaining > 0 {
			f.remaining--
		}
		return f.err
	}
	return nil
}

func matches(r store.Row, filter store.Filter) bool {
	for col, want := range filter {
		got, ok := r[col]
		if !ok {
			return false
		}
		if !valueMatches(got, want) {
			return false
		}
	}
	return true
}

func valueMatches(got, want any) bool {
	rv := reflect.ValueOf(want)
	if rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() != reflect.Uint8 {
		for i := 0; i < rv.Len(); i++ {
			if reflect.DeepEqual(got, rv.Index(i).Interface()) {
				return true
			}
		}
		return false
	}
	return reflect.DeepEqual(got, want)
}

func sameKey(columns []string, a, b store.Row) bool {
	for _, c := range columns {
		av, bv := a[c], b[c]
		if av == nil || bv == nil || !reflect.DeepEqual(av, bv) {
			return false
		}
	}
	return true
}

func clone(r store.Row) store.Row {
	out := make(store.Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

var _ store.Client = (*Store)(nil)
