package company

import (
	"github.com/cmlabs-hris/hrms-payroll-go/internal/pkg/money"
	"github.com/shopspring/decimal"
)

// SettingsVersion tags the stored settings document.
const SettingsVersion = 1

// Settings is the per-company configuration record. Defaults live in
// DefaultSettings and changes go through Merge.
type Settings struct {
	Version int `json:"version"`

	WorkHoursPerDay  decimal.Decimal `json:"work_hours_per_day"`
	WorkDaysPerMonth decimal.Decimal `json:"work_days_per_month"`

	PartTimeHourlyRate   *decimal.Decimal `json:"part_time_hourly_rate,omitempty"`
	PartTimePHMultiplier decimal.Decimal  `json:"part_time_ph_multiplier"`

	Statutory StatutoryFlags `json:"statutory"`
	Overtime  OvertimePolicy `json:"overtime"`

	Attendance AttendancePolicy `json:"attendance"`
	Automation AutomationPolicy `json:"automation"`
	Claims     ClaimsPolicy     `json:"claims"`
}

// StatutoryFlags choose which components enter the statutory base.
// Basic salary always does.
type StatutoryFlags struct {
	OnAllowance  bool `json:"statutory_on_allowance"`
	OnOT         bool `json:"statutory_on_ot"`
	OnPHPay      bool `json:"statutory_on_ph_pay"`
	OnIncentive  bool `json:"statutory_on_incentive"`
	OnCommission bool `json:"statutory_on_commission"`
	EPFOnBonus   bool `json:"epf_on_bonus"`
}

type OvertimePolicy struct {
	RequiresApproval     bool            `json:"ot_requires_approval"`
	NormalMultiplier     decimal.Decimal `json:"normal_multiplier"`
	RestDayMultiplier    decimal.Decimal `json:"rest_day_multiplier"`
	PublicHolidayRegular decimal.Decimal `json:"public_holiday_multiplier"`
	PublicHolidayOT      decimal.Decimal `json:"public_holiday_ot_multiplier"`
}

type AttendancePolicy struct {
	GraceMinutes               int `json:"grace_minutes"`
	WrongShiftToleranceMinutes int `json:"wrong_shift_tolerance_minutes"`
}

type AutomationPolicy struct {
	AutoGenerate      bool            `json:"payroll_auto_generate"`
	AutoGenerateDay   int             `json:"payroll_auto_generate_day"`
	AutoApprove       bool            `json:"payroll_auto_approve"`
	VarianceThreshold decimal.Decimal `json:"payroll_variance_threshold"`
	LockAfterDays     int             `json:"payroll_lock_after_days"`
}

type ClaimsPolicy struct {
	AutoApproveCategories []string                   `json:"auto_approve_categories"`
	CategoryCaps          map[string]decimal.Decimal `json:"category_caps"`
	OutstationMealCap     decimal.Decimal            `json:"outstation_meal_cap"`
	DuplicateWindowDays   int                        `json:"duplicate_window_days"`
	AmountTolerance       decimal.Decimal            `json:"amount_tolerance"`
}

func DefaultSettings() Settings {
	return Settings{
		Version:              SettingsVersion,
		WorkHoursPerDay:      decimal.RequireFromString("7.5"),
		WorkDaysPerMonth:     decimal.NewFromInt(22),
		PartTimePHMultiplier: decimal.NewFromInt(2),
		Statutory: StatutoryFlags{
			OnCommission: true,
			EPFOnBonus:   true,
		},
		Overtime: OvertimePolicy{
			RequiresApproval:     true,
			NormalMultiplier:     decimal.RequireFromString("1.5"),
			RestDayMultiplier:    decimal.RequireFromString("1.5"),
			PublicHolidayRegular: decimal.NewFromInt(2),
			PublicHolidayOT:      decimal.NewFromInt(3),
		},
		Attendance: AttendancePolicy{
			GraceMinutes:               10,
			WrongShiftToleranceMinutes: 120,
		},
		Automation: AutomationPolicy{
			AutoGenerateDay:   1,
			VarianceThreshold: decimal.RequireFromString("0.05"),
		},
		Claims: ClaimsPolicy{
			AutoApproveCategories: []string{},
			CategoryCaps:          map[string]decimal.Decimal{},
			OutstationMealCap:     decimal.NewFromInt(20),
			DuplicateWindowDays:   180,
			AmountTolerance:       money.Cent,
		},
	}
}

// SettingsPatch carries optional changes; nil fields keep the current value.
type SettingsPatch struct {
	WorkHoursPerDay      *decimal.Decimal `json:"work_hours_per_day,omitempty"`
	WorkDaysPerMonth     *decimal.Decimal `json:"work_days_per_month,omitempty"`
	PartTimeHourlyRate   *decimal.Decimal `json:"part_time_hourly_rate,omitempty"`
	PartTimePHMultiplier *decimal.Decimal `json:"part_time_ph_multiplier,omitempty"`

	StatutoryOnAllowance  *bool `json:"statutory_on_allowance,omitempty"`
	StatutoryOnOT         *bool `json:"statutory_on_ot,omitempty"`
	StatutoryOnPHPay      *bool `json:"statutory_on_ph_pay,omitempty"`
	StatutoryOnIncentive  *bool `json:"statutory_on_incentive,omitempty"`
	StatutoryOnCommission *bool `json:"statutory_on_commission,omitempty"`
	EPFOnBonus            *bool `json:"epf_on_bonus,omitempty"`

	OTRequiresApproval *bool `json:"ot_requires_approval,omitempty"`

	GraceMinutes               *int `json:"grace_minutes,omitempty"`
	WrongShiftToleranceMinutes *int `json:"wrong_shift_tolerance_minutes,omitempty"`

	PayrollAutoGenerate      *bool            `json:"payroll_auto_generate,omitempty"`
	PayrollAutoGenerateDay   *int             `json:"payroll_auto_generate_day,omitempty"`
	PayrollAutoApprove       *bool            `json:"payroll_auto_approve,omitempty"`
	PayrollVarianceThreshold *decimal.Decimal `json:"payroll_variance_threshold,omitempty"`
	PayrollLockAfterDays     *int             `json:"payroll_lock_after_days,omitempty"`

	AutoApproveCategories []string                   `json:"auto_approve_categories,omitempty"`
	CategoryCaps          map[string]decimal.Decimal `json:"category_caps,omitempty"`
	OutstationMealCap     *decimal.Decimal           `json:"outstation_meal_cap,omitempty"`
}

// Merge applies p over s and returns the result; s is not modified.
func (s Settings) Merge(p SettingsPatch) Settings {
	out := s
	out.Version = SettingsVersion

	setDec := func(dst *decimal.Decimal, v *decimal.Decimal) {
		if v != nil {
			*dst = *v
		}
	}
	setBool := func(dst *bool, v *bool) {
		if v != nil {
			*dst = *v
		}
	}
	setInt := func(dst *int, v *int) {
		if v != nil {
			*dst = *v
		}
	}

	setDec(&out.WorkHoursPerDay, p.WorkHoursPerDay)
	setDec(&out.WorkDaysPerMonth, p.WorkDaysPerMonth)
	if p.PartTimeHourlyRate != nil {
		rate := *p.PartTimeHourlyRate
		out.PartTimeHourlyRate = &rate
		if rate.IsZero() {
			out.PartTimeHourlyRate = nil
		}
	}
	setDec(&out.PartTimePHMultiplier, p.PartTimePHMultiplier)

	setBool(&out.Statutory.OnAllowance, p.StatutoryOnAllowance)
	setBool(&out.Statutory.OnOT, p.StatutoryOnOT)
	setBool(&out.Statutory.OnPHPay, p.StatutoryOnPHPay)
	setBool(&out.Statutory.OnIncentive, p.StatutoryOnIncentive)
	setBool(&out.Statutory.OnCommission, p.StatutoryOnCommission)
	setBool(&out.Statutory.EPFOnBonus, p.EPFOnBonus)

	setBool(&out.Overtime.RequiresApproval, p.OTRequiresApproval)

	setInt(&out.Attendance.GraceMinutes, p.GraceMinutes)
	setInt(&out.Attendance.WrongShiftToleranceMinutes, p.WrongShiftToleranceMinutes)

	setBool(&out.Automation.AutoGenerate, p.PayrollAutoGenerate)
	setInt(&out.Automation.AutoGenerateDay, p.PayrollAutoGenerateDay)
	setBool(&out.Automation.AutoApprove, p.PayrollAutoApprove)
	setDec(&out.Automation.VarianceThreshold, p.PayrollVarianceThreshold)
	setInt(&out.Automation.LockAfterDays, p.PayrollLockAfterDays)

	if p.AutoApproveCategories != nil {
		out.Claims.AutoApproveCategories = append([]string(nil), p.AutoApproveCategories...)
	}
	if p.CategoryCaps != nil {
		caps := make(map[string]decimal.Decimal, len(p.CategoryCaps))
		for k, v := range p.CategoryCaps {
			caps[k] = v
		}
		out.Claims.CategoryCaps = caps
	}
	setDec(&out.Claims.OutstationMealCap, p.OutstationMealCap)

	return out
}
