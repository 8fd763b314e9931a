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
	"log/slog"
	"net/http"

	"github.com/eduplane/eduplane/internal/apperr"
	"github.com/eduplane/eduplane/internal/identity"
	"github.com/eduplane/eduplane/internal/observability/logger"
)

// Wire codes that do not come from an apperr.Kind.
const (
	codeBadRequest      = "bad_request"
	codeUnauthenticated = "unauthenticated"
	codeRateLimited     = "rate_limited"
)

// statusFor maps a classified error to its HTTP status.
func statusFor(e *apperr.Error) int {
	switch e.Kind {
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindConflict:
		return http.StatusConflict
	case apperr.KindDependencyNotFound:
		return http.StatusNotFound
	case apperr.KindDownstream:
		if rejectedInput(e) {
			return http.StatusBadRequest
		}
		return http.StatusBadGateway
	case apperr.KindUnknown:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// rejectedInput reports whether the identity provider refused the submitted
// account data, as opposed to failing on its own.
func rejectedInput(e *apperr.Error) bool {
	if e.Dependency != apperr.DependencyIdentity {
		return false
	}
	return errors.Is(e, identity.ErrRejected) ||
		errors.Is(e, identity.ErrInvalidEmail) ||
		errors.Is(e, identity.ErrWeakPassword)
}

// respondAppError writes err in the error envelope. Unclassified errors are
// logged and reported without detail.
func respondAppError(w http.ResponseWriter, r *http.Request, err error) {
	e, ok := apperr.As(err)
	if !ok {
		slog.ErrorContext(r.Context(), "unclassified handler error", logger.Error(err))
		respondError(w, http.StatusInternalServerError, apperr.KindUnknown.Code(), "internal server error")
		return
	}

	status := statusFor(e)
	if status >= http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), "request failed",
			logger.ErrorKind(e.Kind.Code()),
			logger.Error(err),
		)
	}
	respondError(w, status, e.Kind.Code(), e.Message)
}
