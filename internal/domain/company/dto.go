package company

import (
	"github.com/cmlabs-hris/hrms-payroll-go/internal/pkg/validator"
)

type SettingsResponse struct {
	CompanyID string   `json:"company_id"`
	Settings  Settings `json:"settings"`
}

func (p *SettingsPatch) Validate() error {
	var errs validator.ValidationErrors

	if p.WorkHoursPerDay != nil && !p.WorkHoursPerDay.IsPositive() {
		errs = append(errs, validator.ValidationError{Field: "work_hours_per_day", Message: "must be positive"})
	}
	if p.WorkDaysPerMonth != nil && !p.WorkDaysPerMonth.IsPositive() {
		errs = append(errs, validator.ValidationError{Field: "work_days_per_month", Message: "must be positive"})
	}
	if p.PartTimeHourlyRate != nil && p.PartTimeHourlyRate.IsNegative() {
		errs = append(errs, validator.ValidationError{Field: "part_time_hourly_rate", Message: "must be non-negative"})
	}
	if p.PartTimePHMultiplier != nil && !p.PartTimePHMultiplier.IsPositive() {
		errs = append(errs, validator.ValidationError{Field: "part_time_ph_multiplier", Message: "must be positive"})
	}
	if p.GraceMinutes != nil && *p.GraceMinutes < 0 {
		errs = append(errs, validator.ValidationError{Field: "grace_minutes", Message: "must be non-negative"})
	}
	if p.WrongShiftToleranceMinutes != nil && *p.WrongShiftToleranceMinutes <= 0 {
		errs = append(errs, validator.ValidationError{Field: "wrong_shift_tolerance_minutes", Message: "must be positive"})
	}
	if p.PayrollAutoGenerateDay != nil && (*p.PayrollAutoGenerateDay < 1 || *p.PayrollAutoGenerateDay > 28) {
		errs = append(errs, validator.ValidationError{Field: "payroll_auto_generate_day", Message: "must be between 1 and 28"})
	}
	if p.PayrollVarianceThreshold != nil && p.PayrollVarianceThreshold.IsNegative() {
		errs = append(errs, validator.ValidationError{Field: "payroll_variance_threshold", Message: "must be non-negative"})
	}
	if p.PayrollLockAfterDays != nil && *p.PayrollLockAfterDays < 0 {
		errs = append(errs, validator.ValidationError{Field: "payroll_lock_after_days", Message: "must be non-negative"})
	}
	if p.OutstationMealCap != nil && p.OutstationMealCap.IsNegative() {
		errs = append(errs, validator.ValidationError{Field: "outstation_meal_cap", Message: "must be non-negative"})
	}
	for category, limit := range p.CategoryCaps {
		if limit.IsNegative() {
			errs = append(errs, validator.ValidationError{Field: "category_caps." + category, Message: "must be non-negative"})
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}
