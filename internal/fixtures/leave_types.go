package fixtures

import (
	"github.com/cmlabs-hris/hrms-payroll-go/internal/domain/employee"
	"github.com/cmlabs-hris/hrms-payroll-go/internal/domain/leave"
	"github.com/shopspring/decimal"
)

func genderPtr(g employee.Gender) *employee.Gender { return &g }

// ==========================================
// DEFAULT LEAVE TYPES
// ==========================================

// DefaultLeaveTypes returns the Employment Act 1955 minimum entitlements,
// seeded for a company that has not configured its own leave types.
// Annual and sick leave use the under-two-years-of-service rates.
func DefaultLeaveTypes(companyID string) []leave.LeaveType {
	return []leave.LeaveType{
		// Annual Leave - 8 days for less than 2 years of service (s.60E)
		{
			CompanyID:          companyID,
			Code:               "ANNUAL",
			Name:               "Annual Leave",
			IsPaid:             true,
			IsActive:           true,
			DefaultDaysPerYear: decimal.NewFromInt(8),
		},

		// Sick Leave - 14 days, outpatient (s.60F)
		{
			CompanyID:          companyID,
			Code:               "SICK",
			Name:               "Sick Leave",
			IsPaid:             true,
			IsActive:           true,
			DefaultDaysPerYear: decimal.NewFromInt(14),
		},

		// Hospitalisation Leave - 60 days including sick leave taken
		{
			CompanyID:          companyID,
			Code:               "HOSPITALISATION",
			Name:               "Hospitalisation Leave",
			IsPaid:             true,
			IsActive:           true,
			DefaultDaysPerYear: decimal.NewFromInt(60),
		},

		// Maternity Leave - 98 consecutive days (s.37)
		{
			CompanyID:          companyID,
			Code:               "MATERNITY",
			Name:               "Maternity Leave",
			IsPaid:             true,
			IsActive:           true,
			DefaultDaysPerYear: decimal.NewFromInt(98),
			GenderRestriction:  genderPtr(employee.Female),
		},

		// Paternity Leave - 7 consecutive days (s.60FA)
		{
			CompanyID:          companyID,
			Code:               "PATERNITY",
			Name:               "Paternity Leave",
			IsPaid:             true,
			IsActive:           true,
			DefaultDaysPerYear: decimal.NewFromInt(7),
			GenderRestriction:  genderPtr(employee.Male),
		},

		// Unpaid Leave - no balance, deducted from pay
		{
			CompanyID:          companyID,
			Code:               "UNPAID",
			Name:               "Unpaid Leave",
			IsPaid:             false,
			IsActive:           true,
			DefaultDaysPerYear: decimal.Zero,
		},
	}
}
