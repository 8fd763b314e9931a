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

package authz

// Seeded role names. These are the canonical names stored in the roles table.
const (
	// RoleSchoolAdmin is granted to the user who registers a school.
	RoleSchoolAdmin = "school_admin"

	RoleTeacher = "teacher"
	RoleStaff   = "staff"

	// RoleStudent is granted implicitly by student onboarding.
	RoleStudent = "student"

	RoleParent = "parent"
)

// SeededRoles lists every role name the schema seeds.
var SeededRoles = []string{RoleSchoolAdmin, RoleTeacher, RoleStaff, RoleStudent, RoleParent}
