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

	sq "github.com/Masterminds/squirrel"
	"github.com/eduplane/eduplane/internal/store"
	"github.com/jackc/pgx/v5"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// provisioned lists the collections reachable through Client. Table names
// are interpolated into SQL, so nothing outside this set is accepted.
var provisioned = map[string]bool{
	store.CollectionTenants:      true,
	store.CollectionBranches:     true,
	store.CollectionProfiles:     true,
	store.CollectionUserBranches: true,
	store.CollectionRoles:        true,
	store.CollectionUserRoles:    true,
	store.CollectionStudents:     true,
	store.CollectionStaff:        true,
	store.CollectionClasses:      true,
	store.CollectionSections:     true,
}

// Client implements store.Client with one statement per call.
type Client struct {
	db *DB
}

// NewClient creates a new store client
func NewClient(db *DB) *Client {
	return &Client{db: db}
}

// Insert stores row and returns it as persisted, defaults included.
func (c *Client) Insert(ctx context.Context, collection string, row store.Row) (store.Row, error) {
	if err := checkTarget(collection, row); err != nil {
		return nil, err
	}

	query, args, err := psql.Insert(collection).
		SetMap(map[string]any(row)).
		Suffix("RETURNING *").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build insert: %w", err)
	}

	rows, err := c.db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to insert into %s: %w", collection, mapPostgresError(err))
	}
	stored, err := pgx.CollectOneRow(rows, pgx.RowToMap)
	if err != nil {
		return nil, fmt.Errorf("failed to insert into %s: %w", collection, mapPostgresError(err))
	}
	return store.Row(stored), nil
}

// SelectOne returns the first matching row, or nil when none matches.
func (c *Client) SelectOne(ctx context.Context, collection string, filter store.Filter) (store.Row, error) {
	if err := checkFilter(collection, filter); err != nil {
		return nil, err
	}

	query, args, err := psql.Select("*").
		From(collection).
		Where(sq.Eq(filter)).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select: %w", err)
	}

	rows, err := c.db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", collection, mapPostgresError(err))
	}
	found, err := pgx.CollectOneRow(rows, pgx.RowToMap)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", collection, mapPostgresError(err))
	}
	return store.Row(found), nil
}

// Update applies patch to every row matching filter.
func (c *Client) Update(ctx context.Context, collection string, filter store.Filter, patch store.Row) error {
	if err := checkFilter(collection, filter); err != nil {
		return err
	}
	if err := checkTarget(collection, patch); err != nil {
		return err
	}

	query, args, err := psql.Update(collection).
		SetMap(map[string]any(patch)).
		Where(sq.Eq(filter)).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update: %w", err)
	}

	if _, err := c.db.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to update %s: %w", collection, mapPostgresError(err))
	}
	return nil
}

// Delete removes every row matching filter.
func (c *Client) Delete(ctx context.Context, collection string, filter store.Filter) error {
	if err := checkFilter(collection, filter); err != nil {
		return err
	}

	query, args, err := psql.Delete(collection).
		Where(sq.Eq(filter)).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build delete: %w", err)
	}

	if _, err := c.db.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to delete from %s: %w", collection, mapPostgresError(err))
	}
	return nil
}

func checkTarget(collection string, row store.Row) error {
	if !provisioned[collection] {
		return fmt.Errorf("unknown collection %q", collection)
	}
	if len(row) == 0 {
		return fmt.Errorf("%s: no columns given", collection)
	}
	for col := range row {
		if !isIdentifier(col) {
			return fmt.Errorf("%s: invalid column %q", collection, col)
		}
	}
	return nil
}

func checkFilter(collection string, filter store.Filter) error {
	if !provisioned[collection] {
		return fmt.Errorf("unknown collection %q", collection)
	}
	if len(filter) == 0 {
		return fmt.Errorf("%s: refusing to run without a filter", collection)
	}
	for _, col := range filter.Columns() {
		if !isIdentifier(col) {
			return fmt.Errorf("%s: invalid column %q", collection, col)
		}
	}
	return nil
}

// isIdentifier accepts lower-case snake_case names only.
func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r == '_':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}

var _ store.Client = (*Client)(nil)
