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

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

// TestPurpose: Validates defaults and environment overrides.
// Scope: Unit Test
// Expected: Unset variables use defaults; malformed numbers fall back to defaults.
// Test Case ID: CFG-01
func TestLoad(t *testing.T) {
	t.Setenv("DB_PASSWORD", "secret")
	t.Setenv("AUTH_JWT_SECRET", testSecret)
	t.Setenv("SAGA_COMPENSATION_MAX_TRIES", "5")
	t.Setenv("RATELIMIT_BURST", "not-a-number")
	t.Setenv("IDENTITY_PROVIDER", "LOCAL")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 5, cfg.Saga.CompensationMaxTries)
	assert.Equal(t, 100*time.Millisecond, cfg.Saga.CompensationInitialInterval)
	assert.Equal(t, 20, cfg.RateLimit.Burst)
	assert.Equal(t, IdentityLocal, cfg.Identity.Provider)
	assert.Equal(t, 50, cfg.Provisioning.CodeCandidates)
}

// TestPurpose: Validates configuration rules.
// Scope: Unit Test
// Expected: Every rule violation is reported.
// Test Case ID: CFG-02
func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Database: DatabaseConfig{Password: "x"},
			Auth:     AuthConfig{JWTSecret: testSecret},
			Identity: IdentityConfig{Provider: IdentityLocal},
			Saga:     SagaConfig{CompensationMaxTries: 1},
		}
	}
	assert.NoError(t, valid().Validate())

	c := valid()
	c.Identity.Provider = IdentityWorkOS
	assert.ErrorContains(t, c.Validate(), "WORKOS_API_KEY")
	c.Identity.WorkOSAPIKey = "sk_test"
	assert.NoError(t, c.Validate())

	c = valid()
	c.Identity.Provider = "okta"
	assert.ErrorContains(t, c.Validate(), "okta")

	c = valid()
	c.Auth.JWTSecret = "short"
	assert.ErrorContains(t, c.Validate(), "at least 32 bytes")

	c = &Config{Identity: IdentityConfig{Provider: IdentityLocal}}
	err := c.Validate()
	assert.ErrorContains(t, err, "DB_PASSWORD")
	assert.ErrorContains(t, err, "AUTH_JWT_SECRET")
	assert.ErrorContains(t, err, "SAGA_COMPENSATION_MAX_TRIES")
}
