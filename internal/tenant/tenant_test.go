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

package tenant

import (
	"testing"

	"github.com/eduplane/eduplane/internal/store"
	"github.com/stretchr/testify/assert"
)

func TestCodeCandidates(t *testing.T) {
	tests := []struct {
		name  string
		input string
		n     int
		want  []string
	}{
		{"long name", "Alekaf Academy", 3, []string{"ALEKAF001", "ALEKAF002", "ALEKAF003"}},
		{"short name", "St. Jo", 1, []string{"STJO001"}},
		{"digits kept", "42nd Street", 1, []string{"42NDST001"}},
		{"non ascii dropped", "Écolé Ñorte", 1, []string{"COLORT001"}},
		{"empty", "", 1, []string{"SCHOOL001"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CodeCandidates(tt.input, tt.n)
			assert.Len(t, got, tt.n)
			if tt.want != nil {
				assert.Equal(t, tt.want, got)
			}
		})
	}

	assert.Equal(t, "ABC010", CodeCandidates("abc", 10)[9])
	assert.Equal(t, "ABC050", CodeCandidates("abc", 50)[49])
}

func TestDefaultBranchCode(t *testing.T) {
	assert.Equal(t, "ALEKAF001-MAIN", DefaultBranchCode("ALEKAF001"))
}

func TestTenantRow_EmptyDomainIsNull(t *testing.T) {
	row := (&Tenant{ID: "t1", Name: "Alekaf", Code: "ALEKAF001", IsActive: true}).Row()
	assert.Nil(t, row["domain"])
	assert.Equal(t, "ALEKAF001", row["code"])
}

func TestBranchFromRow(t *testing.T) {
	b := BranchFromRow(store.Row{
		"id": "b1", "tenant_id": "t1", "name": "Main", "code": "A-MAIN",
		"storage_quota_mb": int32(1024), "is_active": true, "address": nil,
	})
	assert.Equal(t, "t1", b.TenantID)
	assert.Equal(t, 1024, b.StorageQuotaMB)
	assert.True(t, b.IsActive)
	assert.Empty(t, b.Address)
}
