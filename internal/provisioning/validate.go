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

package provisioning

import (
	"strings"

	"github.com/eduplane/eduplane/internal/apperr"
	"github.com/eduplane/eduplane/internal/identity"
)

const (
	maxNameLen = 200
	maxCodeLen = 32
)

func normalizeRegister(in RegisterInput) RegisterInput {
	in.SchoolName = strings.TrimSpace(in.SchoolName)
	in.SchoolCode = normalizeCode(in.SchoolCode)
	in.SchoolDomain = strings.ToLower(strings.TrimSpace(in.SchoolDomain))
	in.BranchName = strings.TrimSpace(in.BranchName)
	in.BranchCode = normalizeCode(in.BranchCode)
	in.Email = identity.NormalizeEmail(in.Email)
	in.FullName = strings.TrimSpace(in.FullName)
	in.Phone = strings.TrimSpace(in.Phone)
	return in
}

func validateRegister(in RegisterInput) error {
	if err := requireName("schoolName", in.SchoolName); err != nil {
		return err
	}
	if err := requireName("branchName", in.BranchName); err != nil {
		return err
	}
	if in.SchoolCode != "" && !isCode(in.SchoolCode) {
		return apperr.Validation("schoolCode must be 3 to %d letters, digits or dashes", maxCodeLen)
	}
	if in.BranchCode != "" && !isCode(in.BranchCode) {
		return apperr.Validation("branchCode must be 3 to %d letters, digits or dashes", maxCodeLen)
	}
	return validatePerson(in.Email, in.Password, in.FullName)
}

func validatePerson(email, password, fullName string) error {
	if err := requireName("fullName", fullName); err != nil {
		return err
	}
	if !identity.IsValidEmail(email) {
		return apperr.Validation("email is not a valid address")
	}
	if !identity.IsStrongPassword(password) {
		return apperr.Validation("password must be at least 8 characters")
	}
	return nil
}

func validateMember(tenantID, branchID string) error {
	if tenantID == "" {
		return apperr.Validation("tenant is required")
	}
	if branchID == "" {
		return apperr.Validation("branchId is required")
	}
	return nil
}

func requireName(field, v string) error {
	if v == "" {
		return apperr.Validation("%s is required", field)
	}
	if len(v) > maxNameLen {
		return apperr.Validation("%s must be at most %d characters", field, maxNameLen)
	}
	return nil
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func isCode(code string) bool {
	if len(code) < 3 || len(code) > maxCodeLen {
		return false
	}
	for _, r := range code {
		switch {
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return false
		}
	}
	return true
}

// dedupe drops empty and repeated IDs, keeping first-seen order.
func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
