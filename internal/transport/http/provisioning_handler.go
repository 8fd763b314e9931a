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
	"net/http"
	"strings"
	"time"

	"github.com/eduplane/eduplane/internal/apperr"
	"github.com/eduplane/eduplane/internal/provisioning"
	"github.com/eduplane/eduplane/internal/school"
)

// RegisterResponse is returned by a successful registration. Tokens are
// issued by the session service, so both are empty here.
type RegisterResponse struct {
	User         *provisioning.Registration `json:"user"`
	AccessToken  string                     `json:"accessToken"`
	RefreshToken string                     `json:"refreshToken"`
}

// Register handles self-service school registration
// @Summary Register a school
// @Description Creates a tenant, its main branch and the school admin account
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body provisioning.RegisterInput true "Registration"
// @Success 201 {object} DataResponse{data=RegisterResponse}
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 502 {object} ErrorResponse
// @Router /auth/register [post]
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var in provisioning.RegisterInput
	if err := decodeJSON(w, r, &in); err != nil {
		respondError(w, http.StatusBadRequest, apperr.KindValidation.Code(), err.Error())
		return
	}

	reg, err := h.provisioner.RegisterTenant(r.Context(), in)
	if err != nil {
		respondAppError(w, r, err)
		return
	}

	respondData(w, http.StatusCreated, RegisterResponse{User: reg})
}

// StaffRequest is the body of POST /staff.
type StaffRequest struct {
	BranchID    string   `json:"branchId,omitempty"`
	Email       string   `json:"email"`
	Password    string   `json:"password"`
	FullName    string   `json:"fullName"`
	Phone       string   `json:"phone,omitempty"`
	EmployeeID  string   `json:"employeeId"`
	Department  string   `json:"department,omitempty"`
	Designation string   `json:"designation,omitempty"`
	JoiningDate string   `json:"joiningDate,omitempty"`
	RoleIDs     []string `json:"roleIds,omitempty"`
}

// CreateStaff handles staff onboarding
// @Summary Onboard a staff member
// @Tags Onboarding
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body StaffRequest true "Staff member"
// @Success 201 {object} DataResponse{data=school.Staff}
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /staff [post]
func (h *Handler) CreateStaff(w http.ResponseWriter, r *http.Request) {
	var req StaffRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, apperr.KindValidation.Code(), err.Error())
		return
	}
	joined, err := parseDate("joiningDate", req.JoiningDate)
	if err != nil {
		respondAppError(w, r, err)
		return
	}

	staff, err := h.provisioner.OnboardStaff(r.Context(), provisioning.StaffInput{
		TenantID:    GetTenantID(r.Context()),
		BranchID:    branchFor(r, req.BranchID),
		Email:       req.Email,
		Password:    req.Password,
		FullName:    req.FullName,
		Phone:       req.Phone,
		EmployeeID:  req.EmployeeID,
		Department:  req.Department,
		Designation: req.Designation,
		JoiningDate: joined,
		RoleIDs:     req.RoleIDs,
	})
	if err != nil {
		respondAppError(w, r, err)
		return
	}

	respondData(w, http.StatusCreated, staff)
}

// StudentRequest is the body of POST /students.
type StudentRequest struct {
	BranchID      string `json:"branchId,omitempty"`
	Email         string `json:"email"`
	Password      string `json:"password"`
	FullName      string `json:"fullName"`
	Phone         string `json:"phone,omitempty"`
	StudentCode   string `json:"studentCode"`
	ClassID       string `json:"classId,omitempty"`
	SectionID     string `json:"sectionId,omitempty"`
	AdmissionDate string `json:"admissionDate,omitempty"`
	BloodGroup    string `json:"bloodGroup,omitempty"`
	GuardianName  string `json:"guardianName,omitempty"`
	GuardianPhone string `json:"guardianPhone,omitempty"`
}

// CreateStudent handles student onboarding
// @Summary Onboard a student
// @Tags Onboarding
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body StudentRequest true "Student"
// @Success 201 {object} DataResponse{data=school.Student}
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /students [post]
func (h *Handler) CreateStudent(w http.ResponseWriter, r *http.Request) {
	var req StudentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, apperr.KindValidation.Code(), err.Error())
		return
	}
	admitted, err := parseDate("admissionDate", req.AdmissionDate)
	if err != nil {
		respondAppError(w, r, err)
		return
	}

	student, err := h.provisioner.OnboardStudent(r.Context(), provisioning.StudentInput{
		TenantID:      GetTenantID(r.Context()),
		BranchID:      branchFor(r, req.BranchID),
		Email:         req.Email,
		Password:      req.Password,
		FullName:      req.FullName,
		Phone:         req.Phone,
		StudentCode:   req.StudentCode,
		ClassID:       req.ClassID,
		SectionID:     req.SectionID,
		AdmissionDate: admitted,
		BloodGroup:    req.BloodGroup,
		GuardianName:  req.GuardianName,
		GuardianPhone: req.GuardianPhone,
	})
	if err != nil {
		respondAppError(w, r, err)
		return
	}

	respondData(w, http.StatusCreated, student)
}

// CreateUser handles generic user onboarding
// @Summary Onboard a user with roles
// @Tags Onboarding
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body provisioning.UserInput true "User"
// @Success 201 {object} DataResponse{data=provisioning.UserAccount}
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /users [post]
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var in provisioning.UserInput
	if err := decodeJSON(w, r, &in); err != nil {
		respondError(w, http.StatusBadRequest, apperr.KindValidation.Code(), err.Error())
		return
	}
	in.TenantID = GetTenantID(r.Context())
	in.BranchID = branchFor(r, in.BranchID)

	user, err := h.provisioner.OnboardUser(r.Context(), in)
	if err != nil {
		respondAppError(w, r, err)
		return
	}

	respondData(w, http.StatusCreated, user)
}

// branchFor returns the branch named in the body, or the caller's current
// branch from the token. Tenant ownership is checked by the workflow.
func branchFor(r *http.Request, requested string) string {
	if b := strings.TrimSpace(requested); b != "" {
		return b
	}
	return GetBranchID(r.Context())
}

func parseDate(field, value string) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse(school.DateLayout, value)
	if err != nil {
		return nil, apperr.Validation("%s must be a date in YYYY-MM-DD form", field)
	}
	return &t, nil
}
