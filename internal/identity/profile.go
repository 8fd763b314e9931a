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

package identity

import (
	"time"

	"github.com/eduplane/eduplane/internal/store"
)

// Profile is the relational extension of an Account. Profile.ID always
// equals the Account ID.
type Profile struct {
	ID              string     `json:"id"`
	FullName        string     `json:"fullName"`
	Email           string     `json:"email"`
	Phone           string     `json:"phone,omitempty"`
	IsActive        bool       `json:"isActive"`
	CurrentBranchID string     `json:"currentBranchId,omitempty"`
	EmployeeID      string     `json:"employeeId,omitempty"`
	Department      string     `json:"department,omitempty"`
	BloodGroup      string     `json:"bloodGroup,omitempty"`
	AdmissionDate   *time.Time `json:"admissionDate,omitempty"`
}

// Row maps the profile onto the profiles collection. Empty optional fields
// are stored as NULL.
func (p *Profile) Row() store.Row {
	row := store.Row{
		"id":                p.ID,
		"full_name":         p.FullName,
		"email":             p.Email,
		"phone":             nullable(p.Phone),
		"is_active":         p.IsActive,
		"current_branch_id": nullable(p.CurrentBranchID),
		"employee_id":       nullable(p.EmployeeID),
		"department":        nullable(p.Department),
		"blood_group":       nullable(p.BloodGroup),
	}
	if p.AdmissionDate != nil {
		row["admission_date"] = *p.AdmissionDate
	} else {
		row["admission_date"] = nil
	}
	return row
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
