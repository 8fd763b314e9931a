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

package http

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/eduplane/eduplane/internal/apperr"
	"github.com/eduplane/eduplane/internal/identity"
	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestPurpose: Validates the mapping from error kinds to HTTP statuses.
// Scope: Unit Test
// Expected: Every kind has a status; identity rejections are 400 while other downstream failures are 502.
// Test Case ID: HTP-07
func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  *apperr.Error
		want int
	}{
		{"validation", apperr.Validation("bad"), http.StatusBadRequest},
		{"conflict", apperr.Conflict("email", "a@b.c", nil), http.StatusConflict},
		{"not found", apperr.DependencyNotFound("branch %q not found", "b"), http.StatusNotFound},
		{"identity rejected", apperr.Downstream(apperr.DependencyIdentity, "rejected", identity.ErrRejected), http.StatusBadRequest},
		{"identity weak password", apperr.Downstream(apperr.DependencyIdentity, "rejected", identity.ErrWeakPassword), http.StatusBadRequest},
		{"identity unavailable", apperr.Downstream(apperr.DependencyIdentity, "unavailable", errBoom), http.StatusBadGateway},
		{"store failure", apperr.Downstream(apperr.DependencyStore, "write", identity.ErrRejected), http.StatusBadGateway},
		{"unknown kind", &apperr.Error{Message: "?"}, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.err))
		})
	}
}

// TestPurpose: Validates that unclassified errors do not leak detail.
// Scope: Unit Test
// Expected: 500 with internal_error and a generic message.
// Test Case ID: HTP-08
func TestRespondAppError_Unclassified(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", nil)

	respondAppError(rec, req, fmt.Errorf("pool exhausted: %w", errBoom))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := errorOf(t, rec)
	assert.Equal(t, "internal_error", body.Code)
	assert.NotContains(t, body.Message, "pool")
}

// TestPurpose: Validates bearer token verification options.
// Scope: Unit Test
// Security: Only HS256 tokens with the configured issuer and audience are accepted
// Expected: Claims are returned for a valid token; mismatches fail with ErrInvalidToken.
// Test Case ID: HTP-09
func TestAuthenticator_Verify(t *testing.T) {
	a := NewAuthenticator([]byte(testSecret), "eduplane-sessions", "eduplane-api")
	valid := Claims{
		TenantID: "tenant-1",
		BranchID: "branch-1",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "admin-1",
			Issuer:    "eduplane-sessions",
			Audience:  jwt.ClaimStrings{"eduplane-api"},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}

	claims, err := a.Verify(signToken(t, valid))
	require.NoError(t, err)
	assert.Equal(t, "admin-1", claims.Subject)
	assert.Equal(t, "tenant-1", claims.TenantID)
	assert.Equal(t, "branch-1", claims.BranchID)

	wrongIssuer := valid
	wrongIssuer.Issuer = "someone-else"
	_, err = a.Verify(signToken(t, wrongIssuer))
	assert.ErrorIs(t, err, ErrInvalidToken)

	wrongAudience := valid
	wrongAudience.Audience = jwt.ClaimStrings{"other-api"}
	_, err = a.Verify(signToken(t, wrongAudience))
	assert.ErrorIs(t, err, ErrInvalidToken)

	noSubject := valid
	noSubject.Subject = ""
	_, err = a.Verify(signToken(t, noSubject))
	assert.ErrorIs(t, err, ErrInvalidToken)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, valid).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = a.Verify(unsigned)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

// TestPurpose: Validates Authorization header parsing.
// Scope: Unit Test
// Expected: Only a non-empty Bearer credential is extracted.
// Test Case ID: HTP-10
func TestBearerToken(t *testing.T) {
	tests := map[string]struct {
		header string
		token  string
		ok     bool
	}{
		"bearer":       {"Bearer abc", "abc", true},
		"lower case":   {"bearer abc", "abc", true},
		"basic":        {"Basic abc", "", false},
		"empty token":  {"Bearer  ", "", false},
		"no scheme":    {"abc", "", false},
		"empty header": {"", "", false},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			token, ok := bearerToken(req)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.token, token)
		})
	}
}

// TestPurpose: Validates which routes the router exposes.
// Scope: Unit Test
// Expected: Registration, onboarding and health routes exist; nothing else is mounted.
// Test Case ID: HTP-11
func TestRouterRoutes(t *testing.T) {
	r := NewRouter(&Handler{}, nil, NewAuthenticator([]byte(testSecret), "", ""), RouterConfig{})

	tests := []struct {
		method string
		path   string
		found  bool
	}{
		{http.MethodGet, "/health", true},
		{http.MethodPost, "/api/v1/auth/register", true},
		{http.MethodPost, "/api/v1/staff", true},
		{http.MethodPost, "/api/v1/students", true},
		{http.MethodPost, "/api/v1/users", true},
		{http.MethodGet, "/api/v1/users", false},
		{http.MethodPost, "/api/v1/auth/login", false},
		{http.MethodPost, "/api/v1/tenants", false},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			assert.Equal(t, tt.found, r.Match(chi.NewRouteContext(), tt.method, tt.path))
		})
	}
}

type pingFunc func() error

func (p pingFunc) Ping(_ context.Context) error { return p() }

// TestPurpose: Validates the health endpoint against the database probe.
// Scope: Unit Test
// Expected: 200 when the probe succeeds, 503 when it fails.
// Test Case ID: HTP-12
func TestHealthCheck(t *testing.T) {
	for _, tt := range []struct {
		name string
		ping error
		want int
	}{
		{"healthy", nil, http.StatusOK},
		{"database down", errBoom, http.StatusServiceUnavailable},
	} {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHandler(nil, pingFunc(func() error { return tt.ping }))
			rec := httptest.NewRecorder()
			h.HealthCheck(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}
