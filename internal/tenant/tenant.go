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

// Package tenant holds the school (tenant) and branch records.
package tenant

import (
	"strings"
	"time"
	"unicode"

	"github.com/eduplane/eduplane/internal/store"
)

// Tenant is a school: the top-level isolation boundary.
type Tenant struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Code      string    `json:"code"`
	Domain    string    `json:"domain,omitempty"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
}

// Row converts t to its stored columns.
func (t *Tenant) Row() store.Row {
	return store.Row{
		"id":        t.ID,
		"name":      t.Name,
		"code":      t.Code,
		"domain":    nullable(t.Domain),
		"is_active": t.IsActive,
	}
}

// Branch is a campus of a tenant. Every tenant has at least one.
type Branch struct {
	ID             string    `json:"id"`
	TenantID       string    `json:"tenantId"`
	Name           string    `json:"name"`
	Code           string    `json:"code"`
	Address        string    `json:"address,omitempty"`
	Phone          string    `json:"phone,omitempty"`
	Email          string    `json:"email,omitempty"`
	StorageQuotaMB int       `json:"storageQuotaMb"`
	IsActive       bool      `json:"isActive"`
	CreatedAt      time.Time `json:"createdAt"`
}

// Row converts b to its stored columns.
func (b *Branch) Row() store.Row {
	return store.Row{
		"id":               b.ID,
		"tenant_id":        b.TenantID,
		"name":             b.Name,
		"code":             b.Code,
		"address":          nullable(b.Address),
		"phone":            nullable(b.Phone),
		"email":            nullable(b.Email),
		"storage_quota_mb": b.StorageQuotaMB,
		"is_active":        b.IsActive,
	}
}

// BranchFromRow reads a stored branch row.
func BranchFromRow(r store.Row) *Branch {
	b := &Branch{
		ID:       r.String("id"),
		TenantID: r.String("tenant_id"),
		Name:     r.String("name"),
		Code:     r.String("code"),
		Address:  r.String("address"),
		Phone:    r.String("phone"),
		Email:    r.String("email"),
	}
	if v, ok := r["is_active"].(bool); ok {
		b.IsActive = v
	}
	switch v := r["storage_quota_mb"].(type) {
	case int:
		b.StorageQuotaMB = v
	case int32:
		b.StorageQuotaMB = int(v)
	case int64:
		b.StorageQuotaMB = int(v)
	}
	if v, ok := r["created_at"].(time.Time); ok {
		b.CreatedAt = v
	}
	return b
}

// BranchMembership links a profile to a branch.
type BranchMembership struct {
	UserID    string `json:"userId"`
	BranchID  string `json:"branchId"`
	IsPrimary bool   `json:"isPrimary"`
}

// Row converts m to its stored columns.
func (m *BranchMembership) Row() store.Row {
	return store.Row{
		"user_id":    m.UserID,
		"branch_id":  m.BranchID,
		"is_primary": m.IsPrimary,
	}
}

// Key is the filter that selects exactly this membership.
func (m *BranchMembership) Key() store.Filter {
	return store.Eq("user_id", m.UserID).And("branch_id", m.BranchID)
}

// DefaultBranchCode is the code of the branch created with a tenant.
func DefaultBranchCode(tenantCode string) string {
	return tenantCode + "-MAIN"
}

const codePrefixLen = 6

// CodeCandidates derives up to n tenant codes from a school name: the first
// six letters or digits upper-cased, followed by a three digit sequence
// starting at 001. "Alekaf Academy" yields ALEKAF001, ALEKAF002, ...
func CodeCandidates(name string, n int) []string {
	var prefix strings.Builder
	for _, r := range name {
		if prefix.Len() == codePrefixLen {
			break
		}
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			prefix.WriteRune(unicode.ToUpper(r))
		}
	}
	if prefix.Len() == 0 {
		prefix.WriteString("SCHOOL")
	}

	out := make([]string, 0, n)
	for i := 1; i <= n && i <= 999; i++ {
		out = append(out, prefix.String()+pad3(i))
	}
	return out
}

func pad3(i int) string {
	digits := []byte{'0', '0', '0'}
	for pos := 2; pos >= 0 && i > 0; pos-- {
		digits[pos] = byte('0' + i%10)
		i /= 10
	}
	return string(digits)
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
