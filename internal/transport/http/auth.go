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
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned for any bearer token that fails verification.
var ErrInvalidToken = errors.New("invalid bearer token")

// Claims are the bearer token claims the onboarding endpoints rely on.
// Subject carries the acting user ID.
type Claims struct {
	TenantID string `json:"tenant_id"`
	BranchID string `json:"branch_id,omitempty"`
	jwt.RegisteredClaims
}

// Authenticator verifies HS256 bearer tokens issued by the session service.
type Authenticator struct {
	secret   []byte
	issuer   string
	audience string
}

// NewAuthenticator creates an Authenticator. Empty issuer or audience
// disables the corresponding check.
func NewAuthenticator(secret []byte, issuer, audience string) *Authenticator {
	return &Authenticator{secret: secret, issuer: issuer, audience: audience}
}

// Verify parses and validates token, returning its claims.
func (a *Authenticator) Verify(token string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if a.issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.issuer))
	}
	if a.audience != "" {
		opts = append(opts, jwt.WithAudience(a.audience))
	}

	claims := &Claims{}
	if _, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	}, opts...); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	if claims.TenantID == "" {
		return nil, fmt.Errorf("%w: missing tenant_id", ErrInvalidToken)
	}
	return claims, nil
}

// BearerAuth rejects requests without a valid bearer token and stores the
// caller's user, tenant and branch in the request context.
//
// Tenant context comes from the token only; an X-Tenant-ID header is refused.
func BearerAuth(a *Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("X-Tenant-ID") != "" {
				respondError(w, http.StatusBadRequest, codeBadRequest, "X-Tenant-ID header is not accepted")
				return
			}

			token, ok := bearerToken(r)
			if !ok {
				respondError(w, http.StatusUnauthorized, codeUnauthenticated, "missing bearer token")
				return
			}

			claims, err := a.Verify(token)
			if err != nil {
				respondError(w, http.StatusUnauthorized, codeUnauthenticated, "invalid bearer token")
				return
			}

			next.ServeHTTP(w, r.WithContext(withPrincipal(r.Context(), claims)))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
