package employee

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cmlabs-hris/hrms-payroll-go/internal/domain/statutory"
	"github.com/shopspring/decimal"
)

type Employee struct {
	ID             string
	CompanyID      string
	GroupingID     string
	EmployeeCode   string
	FullName       string
	ICNumber       string
	Gender         Gender
	DOB            *time.Time
	EmploymentType EmploymentType
	WorkType       WorkType
	Status         Status
	JoinDate       time.Time
	LastWorkingDay *time.Time

	// BasicSalary and Allowance override the grouping defaults when set.
	BasicSalary *decimal.Decimal
	Allowance   *decimal.Decimal
	Overrides   Overrides

	ResidencyStatus     ResidencyStatus
	EPFContributionType statutory.ContributionType
	TaxProfile          TaxProfile

	OutstationMealEligible bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Overrides replace structure rates for a single employee.
type Overrides struct {
	OTRate         *decimal.Decimal `json:"ot_rate,omitempty"`
	CommissionRate *decimal.Decimal `json:"commission_rate,omitempty"`
	FixedOTAmount  *decimal.Decimal `json:"fixed_ot_amount,omitempty"`
	PerTripRate    *decimal.Decimal `json:"per_trip_rate,omitempty"`
	OutstationRate *decimal.Decimal `json:"outstation_rate,omitempty"`
}

// TaxProfile holds the relief declarations used by PCB.
type TaxProfile struct {
	SpouseRelief bool            `json:"spouse_relief"`
	Children     int             `json:"children"`
	OtherRelief  decimal.Decimal `json:"other_relief"`
}

type Gender string

const (
	Male   Gender = "Male"
	Female Gender = "Female"
)

type EmploymentType string

const (
	EmploymentTypeProbation EmploymentType = "probation"
	EmploymentTypeConfirmed EmploymentType = "confirmed"
)

type WorkType string

const (
	WorkTypeFullTime WorkType = "full_time"
	WorkTypePartTime WorkType = "part_time"
)

type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusActive, StatusInactive:
		return Status(s), nil
	}
	return "", fmt.Errorf("unknown employee status %q", s)
}

func ParseWorkType(s string) (WorkType, error) {
	switch WorkType(s) {
	case WorkTypeFullTime, WorkTypePartTime:
		return WorkType(s), nil
	}
	return "", fmt.Errorf("unknown work type %q", s)
}

type ResidencyStatus string

const (
	ResidencyCitizen   ResidencyStatus = "citizen"
	ResidencyPermanent ResidencyStatus = "permanent_resident"
	ResidencyForeign   ResidencyStatus = "foreign"
)

func (e Employee) IsPartTime() bool {
	return e.WorkType == WorkTypePartTime
}

func (e Employee) IsForeign() bool {
	return e.ResidencyStatus == ResidencyForeign
}

// NormalizeIC strips separators from a MyKad number.
func NormalizeIC(ic string) string {
	r := strings.NewReplacer("-", "", " ", "")
	return r.Replace(strings.TrimSpace(ic))
}

// BirthDateFromIC reads the YYMMDD prefix of a MyKad number. Two-digit
// years later than asOf's year are taken as 19xx.
func BirthDateFromIC(ic string, asOf time.Time) (time.Time, error) {
	n := NormalizeIC(ic)
	if len(n) != 12 {
		return time.Time{}, ErrInvalidIC
	}
	if _, err := strconv.Atoi(n); err != nil {
		return time.Time{}, ErrInvalidIC
	}
	yy, _ := strconv.Atoi(n[0:2])
	mm, _ := strconv.Atoi(n[2:4])
	dd, _ := strconv.Atoi(n[4:6])

	year := 2000 + yy
	if year > asOf.Year() {
		year -= 100
	}
	dob := time.Date(year, time.Month(mm), dd, 0, 0, 0, 0, time.UTC)
	if dob.Month() != time.Month(mm) || dob.Day() != dd {
		return time.Time{}, ErrInvalidIC
	}
	return dob, nil
}

// AgeAt returns completed years on date, from DOB or else the IC number.
func (e Employee) AgeAt(date time.Time) (int, error) {
	var dob time.Time
	if e.DOB != nil {
		dob = *e.DOB
	} else {
		d, err := BirthDateFromIC(e.ICNumber, date)
		if err != nil {
			return 0, err
		}
		dob = d
	}
	age := date.Year() - dob.Year()
	if date.Month() < dob.Month() || (date.Month() == dob.Month() && date.Day() < dob.Day()) {
		age--
	}
	return age, nil
}

// ActiveOn reports whether the employee is employed on date.
func (e Employee) ActiveOn(date time.Time) bool {
	if date.Before(e.JoinDate) {
		return false
	}
	return e.LastWorkingDay == nil || !date.After(*e.LastWorkingDay)
}
