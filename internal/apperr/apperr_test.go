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

package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestPurpose: Validates that classified errors survive wrapping and that unclassified errors default to downstream failures.
// Scope: Unit Test
// Expected: KindOf sees through fmt.Errorf wrapping; Classify leaves classified errors untouched.
// Test Case ID: ERR-01
func TestApperr_ClassifyAndKindOf(t *testing.T) {
	conflict := Conflict("tenant code", "ALEKAF001", nil)
	wrapped := fmt.Errorf("create tenant: %w", conflict)

	assert.Equal(t, KindConflict, KindOf(wrapped))
	assert.Same(t, wrapped, Classify(wrapped))

	raw := errors.New("connection reset")
	classified := Classify(raw)
	e, ok := As(classified)
	require.True(t, ok)
	assert.Equal(t, KindDownstream, e.Kind)
	assert.ErrorIs(t, classified, raw)

	assert.Nil(t, Classify(nil))
	assert.Equal(t, KindUnknown, KindOf(raw))
}

// TestPurpose: Validates the stable wire codes of every kind.
// Scope: Unit Test
// Expected: Each kind maps to its documented code.
// Test Case ID: ERR-02
func TestApperr_KindCodes(t *testing.T) {
	assert.Equal(t, "validation_error", KindValidation.Code())
	assert.Equal(t, "conflict", KindConflict.Code())
	assert.Equal(t, "dependency_not_found", KindDependencyNotFound.Code())
	assert.Equal(t, "downstream_failure", KindDownstream.Code())
	assert.Equal(t, "internal_error", KindUnknown.Code())
	assert.Contains(t, Conflict("branch code", "X-MAIN", nil).Error(), `"X-MAIN"`)
}
