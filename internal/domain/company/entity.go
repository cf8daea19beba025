package company

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type Company struct {
	ID           string
	Name         string
	GroupingType GroupingType
	Settings     Settings
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// GroupingType decides whether employees are organised by department or outlet.
type GroupingType string

const (
	GroupingDepartment GroupingType = "department"
	GroupingOutlet     GroupingType = "outlet"
)

func ParseGroupingType(s string) (GroupingType, error) {
	switch GroupingType(s) {
	case GroupingDepartment, GroupingOutlet:
		return GroupingType(s), nil
	}
	return "", fmt.Errorf("unknown grouping type %q", s)
}

// Grouping is a department or an outlet, carrying the payroll structure
// applied to its employees.
type Grouping struct {
	ID                 string
	CompanyID          string
	Kind               GroupingType
	Name               string
	BasicSalaryDefault decimal.Decimal
	AllowanceDefault   decimal.Decimal
	Structure          *PayrollStructure
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// ComponentCode names an earning component of a payroll structure.
type ComponentCode string

const (
	ComponentBasicSalary    ComponentCode = "basic_salary"
	ComponentAllowance      ComponentCode = "allowance"
	ComponentCommission     ComponentCode = "commission"
	ComponentBonus          ComponentCode = "bonus"
	ComponentTripCommission ComponentCode = "trip_commission"
	ComponentOutstation     ComponentCode = "outstation"
	ComponentOTAmount       ComponentCode = "ot_amount"
	ComponentOtherEarnings  ComponentCode = "other_earnings"
)

func ParseComponentCode(s string) (ComponentCode, error) {
	switch ComponentCode(s) {
	case ComponentBasicSalary, ComponentAllowance, ComponentCommission, ComponentBonus,
		ComponentTripCommission, ComponentOutstation, ComponentOTAmount, ComponentOtherEarnings:
		return ComponentCode(s), nil
	}
	return "", fmt.Errorf("unknown payroll component %q", s)
}

type CalculationMode string

const (
	ModeFixed              CalculationMode = "fixed"
	ModePercentageOfSales  CalculationMode = "percentage_of_sales"
	ModeHourly             CalculationMode = "hourly"
	ModePerTrip            CalculationMode = "per_trip"
	ModeHigherOfBasicOrPct CalculationMode = "higher_of"
)

func ParseCalculationMode(s string) (CalculationMode, error) {
	switch CalculationMode(s) {
	case ModeFixed, ModePercentageOfSales, ModeHourly, ModePerTrip, ModeHigherOfBasicOrPct:
		return CalculationMode(s), nil
	}
	return "", fmt.Errorf("unknown calculation mode %q", s)
}

// StructureComponent is one earning line. Rate is a fraction for
// percentage modes and an amount per unit for per-trip. Floor is the basic
// guaranteed by a higher-of commission.
type StructureComponent struct {
	Code    ComponentCode    `json:"code"`
	Mode    CalculationMode  `json:"mode"`
	Enabled bool             `json:"enabled"`
	Amount  *decimal.Decimal `json:"amount,omitempty"`
	Rate    *decimal.Decimal `json:"rate,omitempty"`
	Floor   *decimal.Decimal `json:"floor,omitempty"`
}

// PayrollStructure is the ordered list of components of a grouping.
type PayrollStructure struct {
	Components []StructureComponent `json:"components"`
}

// Enabled returns the enabled components in declared order.
func (p *PayrollStructure) Enabled() []StructureComponent {
	if p == nil {
		return nil
	}
	out := make([]StructureComponent, 0, len(p.Components))
	for _, c := range p.Components {
		if c.Enabled {
			out = append(out, c)
		}
	}
	return out
}

// Component looks up an enabled component by code.
func (p *PayrollStructure) Component(code ComponentCode) (StructureComponent, bool) {
	for _, c := range p.Enabled() {
		if c.Code == code {
			return c, true
		}
	}
	return StructureComponent{}, false
}

// HigherOf reports whether commission replaces basic salary.
func (p *PayrollStructure) HigherOf() bool {
	c, ok := p.Component(ComponentCommission)
	return ok && c.Mode == ModeHigherOfBasicOrPct
}
