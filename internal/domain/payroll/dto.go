package payroll

import (
	"time"

	"github.com/cmlabs-hris/hrms-payroll-go/internal/pkg/validator"
	"github.com/shopspring/decimal"
)

// ========== RUN DTOs ==========

type CreateRunRequest struct {
	CompanyID string `json:"company_id"`
	Month     int    `json:"month"`
	Year      int    `json:"year"`
}

func (r CreateRunRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.CompanyID) {
		errs = append(errs, validator.ValidationError{Field: "company_id", Message: "company_id is required"})
	}
	if r.Month < 1 || r.Month > 12 {
		errs = append(errs, validator.ValidationError{Field: "month", Message: "must be between 1 and 12"})
	}
	if r.Year < 2020 || r.Year > 2100 {
		errs = append(errs, validator.ValidationError{Field: "year", Message: "must be between 2020 and 2100"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type RunResponse struct {
	RunID      string   `json:"run_id"`
	CompanyID  string   `json:"company_id"`
	Month      int      `json:"month"`
	Year       int      `json:"year"`
	Status     string   `json:"status"`
	Totals     Totals   `json:"totals"`
	ApprovedAt *string  `json:"approved_at,omitempty"`
	LockedAt   *string  `json:"locked_at,omitempty"`
	Payment    *Payment `json:"payment,omitempty"`
}

func NewRunResponse(r Run) RunResponse {
	return RunResponse{
		RunID:      r.ID,
		CompanyID:  r.CompanyID,
		Month:      r.Month,
		Year:       r.Year,
		Status:     string(r.Status),
		Totals:     r.Totals,
		ApprovedAt: formatTime(r.ApprovedAt),
		LockedAt:   formatTime(r.LockedAt),
		Payment:    r.Payment,
	}
}

func formatTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(time.RFC3339)
	return &s
}

type PayRunRequest struct {
	Reference string `json:"reference"`
	Method    string `json:"method"`
	PaidAt    string `json:"paid_at,omitempty"`

	paidAt time.Time
}

func (r *PayRunRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.Reference) {
		errs = append(errs, validator.ValidationError{Field: "reference", Message: "reference is required"})
	}
	if !validator.IsInSlice(r.Method, []string{"bank_transfer", "cheque", "cash"}) {
		errs = append(errs, validator.ValidationError{Field: "method", Message: "must be bank_transfer, cheque or cash"})
	}
	if r.PaidAt != "" {
		t, ok := validator.IsValidDateTime(r.PaidAt)
		if !ok {
			errs = append(errs, validator.ValidationError{Field: "paid_at", Message: "must be RFC3339"})
		}
		r.paidAt = t
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// PaidAtOr returns the parsed paid_at, or fallback when none was given.
func (r *PayRunRequest) PaidAtOr(fallback time.Time) time.Time {
	if r.paidAt.IsZero() {
		return fallback
	}
	return r.paidAt
}

type RelinkRequest struct {
	EmployeeIDs []string `json:"employee_ids"`
}

func (r RelinkRequest) Validate() error {
	var errs validator.ValidationErrors
	if len(r.EmployeeIDs) == 0 {
		errs = append(errs, validator.ValidationError{Field: "employee_ids", Message: "at least one employee is required"})
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

type RelinkDelta struct {
	EmployeeID  string          `json:"employee_id"`
	ClaimIDs    []string        `json:"claim_ids"`
	ClaimsDelta decimal.Decimal `json:"claims_delta"`
	Gross       decimal.Decimal `json:"gross"`
	Net         decimal.Decimal `json:"net"`
}

type RelinkResponse struct {
	Deltas []RelinkDelta `json:"deltas"`
	Totals Totals        `json:"totals"`
}

// ========== GENERATION ==========

// Progress is reported once per employee while a run is generated.
type Progress struct {
	RunID      string `json:"run_id"`
	Done       int    `json:"done"`
	Total      int    `json:"total"`
	EmployeeID string `json:"employee_id"`
	Status     string `json:"status"`
}

type GeneratedItem struct {
	EmployeeID string          `json:"employee_id"`
	Status     string          `json:"status"`
	Gross      decimal.Decimal `json:"gross"`
	Net        decimal.Decimal `json:"net"`
	Warnings   []string        `json:"warnings"`
}

type GenerateResponse struct {
	RunID  string          `json:"run_id"`
	Totals Totals          `json:"totals"`
	Items  []GeneratedItem `json:"items"`
}

// ========== ITEM DTOs ==========

type ItemResponse struct {
	ID              string           `json:"id"`
	RunID           string           `json:"run_id"`
	EmployeeID      string           `json:"employee_id"`
	Status          string           `json:"status"`
	Earnings        Earnings         `json:"earnings"`
	Deductions      Deductions       `json:"deductions"`
	StatutoryBase   decimal.Decimal  `json:"statutory_base"`
	Gross           decimal.Decimal  `json:"gross_salary"`
	TotalDeductions decimal.Decimal  `json:"total_deductions"`
	NetPay          decimal.Decimal  `json:"net_pay"`
	WorkMinutes     int              `json:"work_minutes"`
	OTMinutes       int              `json:"ot_minutes"`
	UnpaidLeaveDays decimal.Decimal  `json:"unpaid_leave_days"`
	Variance        *decimal.Decimal `json:"variance,omitempty"`
	VarianceFlagged bool             `json:"variance_flagged"`
	Warnings        []string         `json:"warnings"`
	FailureReason   string           `json:"failure_reason,omitempty"`
	SnapshotHash    *string          `json:"snapshot_hash,omitempty"`
}

func NewItemResponse(i Item) ItemResponse {
	warnings := i.Warnings
	if warnings == nil {
		warnings = []string{}
	}
	return ItemResponse{
		ID:              i.ID,
		RunID:           i.RunID,
		EmployeeID:      i.EmployeeID,
		Status:          string(i.Status),
		Earnings:        i.Earnings,
		Deductions:      i.Deductions,
		StatutoryBase:   i.StatutoryBase,
		Gross:           i.Gross,
		TotalDeductions: i.TotalDeductions,
		NetPay:          i.NetPay,
		WorkMinutes:     i.WorkMinutes,
		OTMinutes:       i.OTMinutes,
		UnpaidLeaveDays: i.UnpaidLeaveDays,
		Variance:        i.Variance,
		VarianceFlagged: i.VarianceFlagged,
		Warnings:        warnings,
		FailureReason:   i.FailureReason,
		SnapshotHash:    i.SnapshotHash,
	}
}

// ========== MONTHLY INPUTS ==========

type UpsertInputsRequest struct {
	EmployeeID       string           `json:"employee_id"`
	Month            int              `json:"month"`
	Year             int              `json:"year"`
	SalesAmount      *decimal.Decimal `json:"sales_amount,omitempty"`
	TripCount        *int             `json:"trip_count,omitempty"`
	TripCommission   *decimal.Decimal `json:"trip_commission,omitempty"`
	OutstationDays   *int             `json:"outstation_days,omitempty"`
	OutstationAmount *decimal.Decimal `json:"outstation_amount,omitempty"`
	OtherEarnings    *decimal.Decimal `json:"other_earnings,omitempty"`
	Bonus            *decimal.Decimal `json:"bonus,omitempty"`
	AttendanceBonus  *decimal.Decimal `json:"attendance_bonus,omitempty"`
	OtherDeductions  *decimal.Decimal `json:"other_deductions,omitempty"`
	BenefitsInKind   *decimal.Decimal `json:"benefits_in_kind,omitempty"`
}

func (r UpsertInputsRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.EmployeeID) {
		errs = append(errs, validator.ValidationError{Field: "employee_id", Message: "employee_id is required"})
	}
	if r.Month < 1 || r.Month > 12 {
		errs = append(errs, validator.ValidationError{Field: "month", Message: "must be between 1 and 12"})
	}
	if r.Year < 2020 || r.Year > 2100 {
		errs = append(errs, validator.ValidationError{Field: "year", Message: "must be between 2020 and 2100"})
	}
	amounts := map[string]*decimal.Decimal{
		"sales_amount":      r.SalesAmount,
		"trip_commission":   r.TripCommission,
		"outstation_amount": r.OutstationAmount,
		"other_earnings":    r.OtherEarnings,
		"bonus":             r.Bonus,
		"attendance_bonus":  r.AttendanceBonus,
		"other_deductions":  r.OtherDeductions,
		"benefits_in_kind":  r.BenefitsInKind,
	}
	for field, v := range amounts {
		if v != nil && v.IsNegative() {
			errs = append(errs, validator.ValidationError{Field: field, Message: "must be non-negative"})
		}
	}
	if r.TripCount != nil && *r.TripCount < 0 {
		errs = append(errs, validator.ValidationError{Field: "trip_count", Message: "must be non-negative"})
	}
	if r.OutstationDays != nil && *r.OutstationDays < 0 {
		errs = append(errs, validator.ValidationError{Field: "outstation_days", Message: "must be non-negative"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// Apply overlays the request on in.
func (r UpsertInputsRequest) Apply(in MonthlyInputs) MonthlyInputs {
	set := func(dst *decimal.Decimal, v *decimal.Decimal) {
		if v != nil {
			*dst = *v
		}
	}
	set(&in.SalesAmount, r.SalesAmount)
	set(&in.OtherEarnings, r.OtherEarnings)
	set(&in.Bonus, r.Bonus)
	set(&in.AttendanceBonus, r.AttendanceBonus)
	set(&in.OtherDeductions, r.OtherDeductions)
	set(&in.BenefitsInKind, r.BenefitsInKind)
	if r.TripCount != nil {
		in.TripCount = *r.TripCount
	}
	if r.OutstationDays != nil {
		in.OutstationDays = *r.OutstationDays
	}
	if r.TripCommission != nil {
		v := *r.TripCommission
		in.TripCommission = &v
	}
	if r.OutstationAmount != nil {
		v := *r.OutstationAmount
		in.OutstationAmount = &v
	}
	return in
}

type InputsResponse struct {
	EmployeeID       string           `json:"employee_id"`
	Month            int              `json:"month"`
	Year             int              `json:"year"`
	SalesAmount      decimal.Decimal  `json:"sales_amount"`
	TripCount        int              `json:"trip_count"`
	TripCommission   *decimal.Decimal `json:"trip_commission,omitempty"`
	OutstationDays   int              `json:"outstation_days"`
	OutstationAmount *decimal.Decimal `json:"outstation_amount,omitempty"`
	OtherEarnings    decimal.Decimal  `json:"other_earnings"`
	Bonus            decimal.Decimal  `json:"bonus"`
	AttendanceBonus  decimal.Decimal  `json:"attendance_bonus"`
	OtherDeductions  decimal.Decimal  `json:"other_deductions"`
	BenefitsInKind   decimal.Decimal  `json:"benefits_in_kind"`
}

func NewInputsResponse(in MonthlyInputs) InputsResponse {
	return InputsResponse{
		EmployeeID:       in.EmployeeID,
		Month:            in.Month,
		Year:             in.Year,
		SalesAmount:      in.SalesAmount,
		TripCount:        in.TripCount,
		TripCommission:   in.TripCommission,
		OutstationDays:   in.OutstationDays,
		OutstationAmount: in.OutstationAmount,
		OtherEarnings:    in.OtherEarnings,
		Bonus:            in.Bonus,
		AttendanceBonus:  in.AttendanceBonus,
		OtherDeductions:  in.OtherDeductions,
		BenefitsInKind:   in.BenefitsInKind,
	}
}
