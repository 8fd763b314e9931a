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

// Package school holds the per-branch domain records created by onboarding.
package school

import (
	"time"

	"github.com/eduplane/eduplane/internal/store"
)

// DateLayout is the wire format of calendar dates.
const DateLayout = "2006-01-02"

// Student is enrolled in exactly one branch. Its ID is the identity account ID.
type Student struct {
	ID            string     `json:"id"`
	BranchID      string     `json:"branchId"`
	StudentCode   string     `json:"studentCode"`
	FullName      string     `json:"fullName"`
	Email         string     `json:"email"`
	ClassID       string     `json:"classId,omitempty"`
	SectionID     string     `json:"sectionId,omitempty"`
	AdmissionDate *time.Time `json:"admissionDate,omitempty"`
	BloodGroup    string     `json:"bloodGroup,omitempty"`
	GuardianName  string     `json:"guardianName,omitempty"`
	GuardianPhone string     `json:"guardianPhone,omitempty"`
}

// Row converts s to its stored columns. Profile fields are not stored here.
func (s *Student) Row() store.Row {
	return store.Row{
		"id":             s.ID,
		"branch_id":      s.BranchID,
		"student_code":   s.StudentCode,
		"class_id":       nullable(s.ClassID),
		"section_id":     nullable(s.SectionID),
		"admission_date": date(s.AdmissionDate),
		"blood_group":    nullable(s.BloodGroup),
		"guardian_name":  nullable(s.GuardianName),
		"guardian_phone": nullable(s.GuardianPhone),
	}
}

// Staff is an employee of one branch. Its ID is the identity account ID.
type Staff struct {
	ID          string     `json:"id"`
	BranchID    string     `json:"branchId"`
	EmployeeID  string     `json:"employeeId"`
	FullName    string     `json:"fullName"`
	Email       string     `json:"email"`
	Department  string     `json:"department,omitempty"`
	Designation string     `json:"designation,omitempty"`
	JoiningDate *time.Time `json:"joiningDate,omitempty"`
	RoleIDs     []string   `json:"roleIds"`
}

// Row converts s to its stored columns.
func (s *Staff) Row() store.Row {
	return store.Row{
		"id":           s.ID,
		"branch_id":    s.BranchID,
		"employee_id":  s.EmployeeID,
		"department":   nullable(s.Department),
		"designation":  nullable(s.Designation),
		"joining_date": date(s.JoiningDate),
	}
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func date(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}
