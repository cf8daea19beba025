package eaform

import (
	"time"

	"github.com/cmlabs-hris/hrms-payroll-go/internal/pkg/validator"
)

type GenerateRequest struct {
	Year        int      `json:"-"`
	EmployeeIDs []string `json:"employee_ids,omitempty"`
	AllowDraft  bool     `json:"allow_draft"`
}

func (r GenerateRequest) Validate() error {
	var errs validator.ValidationErrors

	if r.Year < 2020 || r.Year > 2100 {
		errs = append(errs, validator.ValidationError{Field: "year", Message: "must be between 2020 and 2100"})
	}
	for _, id := range r.EmployeeIDs {
		if validator.IsEmpty(id) {
			errs = append(errs, validator.ValidationError{Field: "employee_ids", Message: "must not contain empty ids"})
			break
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type GenerateError struct {
	EmployeeID string `json:"employee_id"`
	Error      string `json:"error"`
}

type GenerateResponse struct {
	Generated int             `json:"generated"`
	Unchanged int             `json:"unchanged"`
	Errors    []GenerateError `json:"errors"`
}

type FormResponse struct {
	EmployeeID  string   `json:"employee_id"`
	Year        int      `json:"year"`
	GeneratedAt string   `json:"generated_at"`
	SourceHash  string   `json:"source_hash"`
	FormData    FormData `json:"form_data"`
}

func NewFormResponse(f Form) FormResponse {
	return FormResponse{
		EmployeeID:  f.EmployeeID,
		Year:        f.Year,
		GeneratedAt: f.GeneratedAt.Format(time.RFC3339),
		SourceHash:  f.SourceHash,
		FormData:    f.FormData,
	}
}
