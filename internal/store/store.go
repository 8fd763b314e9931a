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

// Package store is the row-level relational store used by provisioning.
// It offers no cross-statement atomicity; callers that need all-or-nothing
// semantics compose calls with the saga package.
package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
)

// Errors returned by Client implementations. Implementations wrap them so
// callers can test with errors.Is.
var (
	ErrDuplicate        = errors.New("duplicate key")
	ErrReferenceMissing = errors.New("referenced row does not exist")
	ErrNoRows           = errors.New("no rows affected")
)

// Collections used by provisioning.
const (
	CollectionTenants       = "tenants"
	CollectionBranches      = "branches"
	CollectionProfiles      = "profiles"
	CollectionUserBranches  = "user_branches"
	CollectionRoles         = "roles"
	CollectionUserRoles     = "user_roles"
	CollectionStudents      = "students"
	CollectionStaff         = "staff"
	CollectionClasses       = "classes"
	CollectionSections      = "sections"
	CollectionIdentityLocal = "identity_accounts"
	CollectionIdentityCreds = "identity_credentials"
)

// Row is a column-name to value mapping.
type Row map[string]any

// String returns the string value of column, or "" when absent or not a string.
func (r Row) String(column string) string {
	if v, ok := r[column].(string); ok {
		return v
	}
	if v, ok := r[column].(fmt.Stringer); ok {
		return v.String()
	}
	return ""
}

// Filter is a conjunction of equality conditions. A slice value turns its
// condition into a set membership test.
type Filter map[string]any

// Eq builds a single-column filter.
func Eq(column string, value any) Filter {
	return Filter{column: value}
}

// And returns a copy of f extended with column=value.
func (f Filter) And(column string, value any) Filter {
	out := make(Filter, len(f)+1)
	for k, v := range f {
		out[k] = v
	}
	out[column] = value
	return out
}

// Columns returns the filter's column names in sorted order.
func (f Filter) Columns() []string {
	cols := make([]string, 0, len(f))
	for k := range f {
		cols = append(cols, k)
	}
	sort.Strings(cols)
	return cols
}

// Client is the generic per-collection store contract.
type Client interface {
	// Insert stores row and returns the stored row, including defaults.
	Insert(ctx context.Context, collection string, row Row) (Row, error)

	// SelectOne returns the first row matching filter, or nil, nil when none does.
	SelectOne(ctx context.Context, collection string, filter Filter) (Row, error)

	// Update applies patch to every row matching filter.
	Update(ctx context.Context, collection string, filter Filter, patch Row) error

	// Delete removes every row matching filter. Deleting nothing is not an error.
	Delete(ctx context.Context, collection string, filter Filter) error
}
