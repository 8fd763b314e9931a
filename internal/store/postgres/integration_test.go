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

//go:build integration

package postgres

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/eduplane/eduplane/internal/identity"
	"github.com/eduplane/eduplane/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupPostgres(t *testing.T) *DB {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:17-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "eduplane",
				"POSTGRES_PASSWORD": "eduplane",
				"POSTGRES_DB":       "eduplane",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	db, err := Open(ctx, fmt.Sprintf("postgres://eduplane:eduplane@%s:%s/eduplane?sslmode=disable", host, port.Port()))
	require.NoError(t, err)
	t.Cleanup(db.Close)

	require.NoError(t, db.Migrate(ctx))
	return db
}

// TestPurpose: Validates the generic client against a real schema, including constraint mapping.
// Scope: Database Integration Test
// Expected: Inserts return defaults, unique and foreign key violations map to store sentinels, deletes are filtered.
// Test Case ID: PG-01
func TestClient_Lifecycle(t *testing.T) {
	db := setupPostgres(t)
	c := NewClient(db)
	ctx := context.Background()

	tenant, err := c.Insert(ctx, store.CollectionTenants, store.Row{"id": "t1", "name": "Alekaf", "code": "ALEKAF001"})
	require.NoError(t, err)
	assert.Equal(t, true, tenant["is_active"])
	assert.IsType(t, time.Time{}, tenant["created_at"])

	_, err = c.Insert(ctx, store.CollectionTenants, store.Row{"id": "t2", "name": "Other", "code": "ALEKAF001"})
	assert.ErrorIs(t, err, store.ErrDuplicate)

	_, err = c.Insert(ctx, store.CollectionBranches, store.Row{"id": "b1", "tenant_id": "missing", "name": "Main", "code": "X-MAIN"})
	assert.ErrorIs(t, err, store.ErrReferenceMissing)

	role, err := c.SelectOne(ctx, store.CollectionRoles, store.Eq("name", "school_admin"))
	require.NoError(t, err)
	assert.Equal(t, "role-school-admin", role.String("id"))

	roles, err := c.SelectOne(ctx, store.CollectionRoles, store.Eq("name", []string{"nope", "teacher"}))
	require.NoError(t, err)
	assert.Equal(t, "teacher", roles.String("name"))

	none, err := c.SelectOne(ctx, store.CollectionTenants, store.Eq("code", "NOPE"))
	require.NoError(t, err)
	assert.Nil(t, none)

	require.NoError(t, c.Update(ctx, store.CollectionTenants, store.Eq("id", "t1"), store.Row{"is_active": false}))
	tenant, err = c.SelectOne(ctx, store.CollectionTenants, store.Eq("id", "t1"))
	require.NoError(t, err)
	assert.Equal(t, false, tenant["is_active"])

	require.NoError(t, c.Delete(ctx, store.CollectionTenants, store.Eq("id", "t1")))
	tenant, err = c.SelectOne(ctx, store.CollectionTenants, store.Eq("id", "t1"))
	require.NoError(t, err)
	assert.Nil(t, tenant)
}

// TestPurpose: Validates the local identity account repository and orphan detection.
// Scope: Database Integration Test
// Expected: Duplicate emails map to ErrAlreadyRegistered; accounts without a profile are listed as orphans.
// Test Case ID: PG-02
func TestAccountRepository(t *testing.T) {
	db := setupPostgres(t)
	repo := NewAccountRepository(db)
	c := NewClient(db)
	ctx := context.Background()

	kept := &identity.Account{ID: "acc-1", Email: "kept@alekaf.edu"}
	orphan := &identity.Account{ID: "acc-2", Email: "orphan@alekaf.edu"}
	require.NoError(t, repo.Create(ctx, kept, "$argon2id$hash"))
	require.NoError(t, repo.Create(ctx, orphan, "$argon2id$hash"))

	err := repo.Create(ctx, &identity.Account{ID: "acc-3", Email: "kept@alekaf.edu"}, "h")
	assert.ErrorIs(t, err, identity.ErrAlreadyRegistered)

	_, err = c.Insert(ctx, store.CollectionProfiles, store.Row{"id": "acc-1", "full_name": "Kept", "email": "kept@alekaf.edu"})
	require.NoError(t, err)

	orphans, err := repo.ListOrphans(ctx, time.Now().Add(time.Minute), 10)
	require.NoError(t, err)
	require.Len(t, orphans, 1)
	assert.Equal(t, "acc-2", orphans[0].ID)

	got, err := repo.GetByEmail(ctx, "orphan@alekaf.edu")
	require.NoError(t, err)
	assert.Equal(t, "acc-2", got.ID)

	require.NoError(t, repo.Delete(ctx, "acc-2"))
	assert.ErrorIs(t, repo.Delete(ctx, "acc-2"), identity.ErrAccountNotFound)
	_, err = repo.GetByID(ctx, "acc-2")
	assert.ErrorIs(t, err, identity.ErrAccountNotFound)
}

// TestPurpose: Validates that migrations are idempotent.
// Scope: Database Integration Test
// Expected: A second Migrate call applies nothing and succeeds.
// Test Case ID: PG-03
func TestMigrate_Idempotent(t *testing.T) {
	db := setupPostgres(t)
	require.NoError(t, db.Migrate(context.Background()))
}
