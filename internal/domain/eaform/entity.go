package eaform

import (
	"time"

	"github.com/shopspring/decimal"
)

// FormDataVersion tags the layout of FormData. Readers must ignore fields
// they do not know.
const FormDataVersion = "ea.v1"

// Form is the yearly statement of remuneration of one employee.
type Form struct {
	ID          string
	CompanyID   string
	EmployeeID  string
	Year        int
	FormData    FormData
	SourceHash  string
	GeneratedAt time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type FormData struct {
	Version  string   `json:"version"`
	Year     int      `json:"year"`
	Employer Employer `json:"employer"`
	Employee Employee `json:"employee"`
	// Months is the number of paid payroll items aggregated.
	Months int `json:"months"`

	Income                Income          `json:"income"`
	BenefitsInKind        decimal.Decimal `json:"benefits_in_kind"`
	Deductions            Deductions      `json:"deductions"`
	EmployerContributions Contributions   `json:"employer_contributions"`
}

type Employer struct {
	CompanyID string `json:"company_id"`
	Name      string `json:"name"`
}

type Employee struct {
	EmployeeID     string  `json:"employee_id"`
	EmployeeCode   string  `json:"employee_code"`
	FullName       string  `json:"full_name"`
	ICNumber       string  `json:"ic_number"`
	JoinDate       string  `json:"join_date"`
	LastWorkingDay *string `json:"last_working_day,omitempty"`
}

// Income splits the year's gross. Gross equals the sum of the paid items'
// gross, claims included.
type Income struct {
	Salary     decimal.Decimal `json:"salary"`
	Commission decimal.Decimal `json:"commission"`
	Bonus      decimal.Decimal `json:"bonus"`
	Allowances decimal.Decimal `json:"allowances"`
	Overtime   decimal.Decimal `json:"overtime"`
	Claims     decimal.Decimal `json:"claims"`
	Gross      decimal.Decimal `json:"gross"`
}

// Deductions are the employee shares withheld during the year.
type Deductions struct {
	EPF   decimal.Decimal `json:"epf"`
	SOCSO decimal.Decimal `json:"socso"`
	EIS   decimal.Decimal `json:"eis"`
	PCB   decimal.Decimal `json:"pcb"`
}

type Contributions struct {
	EPF   decimal.Decimal `json:"epf"`
	SOCSO decimal.Decimal `json:"socso"`
	EIS   decimal.Decimal `json:"eis"`
}
