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

package school

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStudentRow(t *testing.T) {
	admitted := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	row := (&Student{
		ID: "u1", BranchID: "b1", StudentCode: "STU-1", FullName: "Not Stored",
		AdmissionDate: &admitted, BloodGroup: "O+",
	}).Row()

	assert.Equal(t, "STU-1", row["student_code"])
	assert.Equal(t, admitted, row["admission_date"])
	assert.Nil(t, row["class_id"])
	assert.NotContains(t, row, "full_name")
}

func TestStaffRow(t *testing.T) {
	row := (&Staff{ID: "u2", BranchID: "b1", EmployeeID: "EMP-9", Department: "Science"}).Row()

	assert.Equal(t, "EMP-9", row["employee_id"])
	assert.Equal(t, "Science", row["department"])
	assert.Nil(t, row["designation"])
	assert.Nil(t, row["joining_date"])
}
