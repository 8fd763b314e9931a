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

// Package guard checks attribute uniqueness before a provisioning workflow
// mutates anything.
package guard

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/eduplane/eduplane/internal/apperr"
	"github.com/eduplane/eduplane/internal/observability/logger"
	"github.com/eduplane/eduplane/internal/store"
)

// Guard performs read-only uniqueness checks.
type Guard struct {
	client store.Client
}

// New creates a Guard reading through client.
func New(client store.Client) *Guard {
	return &Guard{client: client}
}

// EnsureUnique fails with a Conflict when a row in collection already has
// field=value. Scope narrows the check, e.g. to one branch. The check is
// advisory: a concurrent writer can still win the race, in which case the
// store's own unique constraint rejects the insert.
func (g *Guard) EnsureUnique(ctx context.Context, collection, field, value string, scope store.Filter) error {
	filter := scope.And(field, value)

	row, err := g.client.SelectOne(ctx, collection, filter)
	if err != nil {
		return apperr.Downstream(apperr.DependencyStore,
			fmt.Sprintf("could not check %s uniqueness", field), err)
	}
	if row != nil {
		slog.DebugContext(ctx, "uniqueness check rejected value",
			logger.Collection(collection),
			slog.String("field", field),
		)
		return apperr.Conflict(Label(collection, field), value, nil)
	}
	return nil
}

var nouns = map[string]string{
	store.CollectionTenants:  "tenant",
	store.CollectionBranches: "branch",
	store.CollectionStudents: "student",
	store.CollectionProfiles: "profile",
}

// Label names a column for people: Label("tenants", "code") is
// "tenant code", Label("students", "student_code") is "student code".
func Label(collection, field string) string {
	words := strings.ReplaceAll(field, "_", " ")
	noun, ok := nouns[collection]
	if !ok || strings.HasPrefix(words, noun+" ") {
		return words
	}
	return noun + " " + words
}
