package statutory

import (
	"fmt"
	"sort"
	"time"

	"github.com/cmlabs-hris/hrms-payroll-go/internal/domain/statutory"
	"github.com/cmlabs-hris/hrms-payroll-go/internal/pkg/money"
	"github.com/shopspring/decimal"
)

// TableHeader is common to every rate table document.
type TableHeader struct {
	Kind          statutory.Kind `yaml:"kind"`
	Version       string         `yaml:"version"`
	EffectiveFrom string         `yaml:"effective_from"`
	Source        string         `yaml:"source"`

	effective time.Time
}

func (h *TableHeader) parse() error {
	if h.Version == "" {
		return fmt.Errorf("%s table: version is required", h.Kind)
	}
	t, err := time.Parse("2006-01-02", h.EffectiveFrom)
	if err != nil {
		return fmt.Errorf("%s table %s: invalid effective_from: %w", h.Kind, h.Version, err)
	}
	h.effective = t
	return nil
}

func (h *TableHeader) Ref() statutory.TableRef {
	return statutory.TableRef{Kind: h.Kind, Version: h.Version, EffectiveFrom: h.effective}
}

func (h *TableHeader) effectiveFrom() time.Time { return h.effective }

// RatePair is an employee/employer percentage expressed as a fraction.
type RatePair struct {
	Employee decimal.Decimal `yaml:"employee"`
	Employer decimal.Decimal `yaml:"employer"`
}

// WageBand slices (From, To] into brackets of Step width.
type WageBand struct {
	From decimal.Decimal `yaml:"from"`
	To   decimal.Decimal `yaml:"to"`
	Step decimal.Decimal `yaml:"step"`
}

// assumedWage returns the midpoint of the bracket the wage falls in,
// capping the wage first.
func assumedWage(bands []WageBand, wageCap, wage decimal.Decimal) decimal.Decimal {
	if !wage.IsPositive() {
		return decimal.Zero
	}
	if wage.GreaterThan(wageCap) {
		wage = wageCap
	}
	for _, b := range bands {
		if wage.GreaterThan(b.From) && wage.LessThanOrEqual(b.To) {
			upper := b.From.Add(money.CeilToStep(wage.Sub(b.From), b.Step))
			lower := upper.Sub(b.Step)
			return lower.Add(upper).Div(decimal.NewFromInt(2))
		}
	}
	return wageCap
}

func validateBands(kind statutory.Kind, bands []WageBand, wageCap decimal.Decimal) error {
	if len(bands) == 0 {
		return fmt.Errorf("%s table: bands are required", kind)
	}
	prev := decimal.Zero
	for i, b := range bands {
		if !b.Step.IsPositive() || !b.To.GreaterThan(b.From) {
			return fmt.Errorf("%s table: band %d is empty", kind, i)
		}
		if !b.From.Equal(prev) {
			return fmt.Errorf("%s table: band %d does not start where band %d ends", kind, i, i-1)
		}
		prev = b.To
	}
	if !prev.Equal(wageCap) {
		return fmt.Errorf("%s table: bands end at %s, wage cap is %s", kind, prev, wageCap)
	}
	return nil
}

// ========== EPF ==========

type EPFTable struct {
	TableHeader `yaml:",inline"`

	MinimumWage    decimal.Decimal `yaml:"minimum_wage"`
	BracketCeiling decimal.Decimal `yaml:"bracket_ceiling"`
	BracketStep    decimal.Decimal `yaml:"bracket_step"`

	SeniorAge         int             `yaml:"senior_age"`
	EmployerThreshold decimal.Decimal `yaml:"employer_threshold"`

	EmployeeRate     decimal.Decimal `yaml:"employee_rate"`
	EmployerRateLow  decimal.Decimal `yaml:"employer_rate_low"`
	EmployerRateHigh decimal.Decimal `yaml:"employer_rate_high"`

	SeniorEmployeeRate        decimal.Decimal `yaml:"senior_employee_rate"`
	SeniorElectedEmployeeRate decimal.Decimal `yaml:"senior_elected_employee_rate"`
	SeniorEmployerRate        decimal.Decimal `yaml:"senior_employer_rate"`

	ForeignEmployeeRate decimal.Decimal `yaml:"foreign_employee_rate"`
	ForeignEmployerRate decimal.Decimal `yaml:"foreign_employer_rate"`
}

func (t *EPFTable) validate() error {
	if !t.BracketStep.IsPositive() {
		return fmt.Errorf("epf table %s: bracket_step must be positive", t.Version)
	}
	if t.SeniorAge <= 0 {
		return fmt.Errorf("epf table %s: senior_age must be positive", t.Version)
	}
	return nil
}

// Compute returns the EPF contribution for a monthly wage.
func (t *EPFTable) Compute(wage decimal.Decimal, age int, ct statutory.ContributionType) (statutory.Contribution, error) {
	if age < 0 {
		return statutory.Contribution{}, &statutory.InvalidAgeError{Age: age}
	}
	wage = money.Cents(wage)
	if ct == statutory.ContributionExempt || wage.LessThanOrEqual(t.MinimumWage) {
		return statutory.Contribution{Employee: decimal.Zero, Employer: decimal.Zero}, nil
	}
	if wage.LessThanOrEqual(t.BracketCeiling) {
		wage = money.CeilToStep(wage, t.BracketStep)
	}

	var eeRate, erRate decimal.Decimal
	switch {
	case ct == statutory.ContributionForeign:
		eeRate, erRate = t.ForeignEmployeeRate, t.ForeignEmployerRate
	case age >= t.SeniorAge:
		eeRate = t.SeniorEmployeeRate
		if ct == statutory.ContributionElectedAbove60 {
			eeRate = t.SeniorElectedEmployeeRate
		}
		erRate = t.SeniorEmployerRate
	default:
		eeRate = t.EmployeeRate
		erRate = t.EmployerRateHigh
		if wage.LessThanOrEqual(t.EmployerThreshold) {
			erRate = t.EmployerRateLow
		}
	}

	return statutory.Contribution{
		Employee: money.CeilRinggit(wage.Mul(eeRate)),
		Employer: money.CeilRinggit(wage.Mul(erRate)),
	}, nil
}

// ========== SOCSO ==========

type SOCSOTable struct {
	TableHeader `yaml:",inline"`

	WageCap   decimal.Decimal `yaml:"wage_cap"`
	Bands     []WageBand      `yaml:"bands"`
	SeniorAge int             `yaml:"senior_age"`
	Category1 RatePair        `yaml:"category_1"`
	Category2 RatePair        `yaml:"category_2"`
	Rounding  decimal.Decimal `yaml:"rounding"`
}

func (t *SOCSOTable) validate() error {
	return validateBands(statutory.KindSOCSO, t.Bands, t.WageCap)
}

func (t *SOCSOTable) Compute(wage decimal.Decimal, age int) (statutory.SOCSOContribution, error) {
	if age < 0 {
		return statutory.SOCSOContribution{}, &statutory.InvalidAgeError{Age: age}
	}
	assumed := assumedWage(t.Bands, t.WageCap, wage)
	if assumed.IsZero() {
		return statutory.SOCSOContribution{Employee: decimal.Zero, Employer: decimal.Zero, Category: statutory.SOCSONone}, nil
	}

	rates, category := t.Category1, statutory.SOCSOCategory1
	if age >= t.SeniorAge {
		rates, category = t.Category2, statutory.SOCSOCategory2
	}
	return statutory.SOCSOContribution{
		Employee: money.RoundToStep(assumed.Mul(rates.Employee), t.Rounding),
		Employer: money.RoundToStep(assumed.Mul(rates.Employer), t.Rounding),
		Category: category,
	}, nil
}

// ========== EIS ==========

type EISTable struct {
	TableHeader `yaml:",inline"`

	WageCap  decimal.Decimal `yaml:"wage_cap"`
	Bands    []WageBand      `yaml:"bands"`
	AgeLimit int             `yaml:"age_limit"`
	Rates    RatePair        `yaml:"rates"`
	Rounding decimal.Decimal `yaml:"rounding"`
}

func (t *EISTable) validate() error {
	return validateBands(statutory.KindEIS, t.Bands, t.WageCap)
}

func (t *EISTable) Compute(wage decimal.Decimal, age int) (statutory.Contribution, error) {
	if age < 0 {
		return statutory.Contribution{}, &statutory.InvalidAgeError{Age: age}
	}
	assumed := assumedWage(t.Bands, t.WageCap, wage)
	if age >= t.AgeLimit || assumed.IsZero() {
		return statutory.Contribution{Employee: decimal.Zero, Employer: decimal.Zero}, nil
	}
	return statutory.Contribution{
		Employee: money.RoundToStep(assumed.Mul(t.Rates.Employee), t.Rounding),
		Employer: money.RoundToStep(assumed.Mul(t.Rates.Employer), t.Rounding),
	}, nil
}

// ========== PCB ==========

type PCBBracket struct {
	From decimal.Decimal `yaml:"from"`
	Rate decimal.Decimal `yaml:"rate"`
}

type PCBTable struct {
	TableHeader `yaml:",inline"`

	IndividualRelief decimal.Decimal `yaml:"individual_relief"`
	SpouseRelief     decimal.Decimal `yaml:"spouse_relief"`
	ChildRelief      decimal.Decimal `yaml:"child_relief"`
	EPFReliefCap     decimal.Decimal `yaml:"epf_relief_cap"`

	RebateThreshold  decimal.Decimal `yaml:"rebate_threshold"`
	IndividualRebate decimal.Decimal `yaml:"individual_rebate"`
	SpouseRebate     decimal.Decimal `yaml:"spouse_rebate"`

	MinimumDeduction decimal.Decimal `yaml:"minimum_deduction"`
	Rounding         decimal.Decimal `yaml:"rounding"`

	Brackets []PCBBracket `yaml:"brackets"`
}

func (t *PCBTable) validate() error {
	if len(t.Brackets) == 0 {
		return fmt.Errorf("pcb table %s: brackets are required", t.Version)
	}
	sort.Slice(t.Brackets, func(i, j int) bool { return t.Brackets[i].From.LessThan(t.Brackets[j].From) })
	if !t.Brackets[0].From.IsZero() {
		return fmt.Errorf("pcb table %s: first bracket must start at 0", t.Version)
	}
	return nil
}

// AnnualTax applies the progressive schedule to a chargeable income.
func (t *PCBTable) AnnualTax(chargeable decimal.Decimal) decimal.Decimal {
	tax := decimal.Zero
	for i, b := range t.Brackets {
		if !chargeable.GreaterThan(b.From) {
			break
		}
		portion := chargeable.Sub(b.From)
		if i+1 < len(t.Brackets) {
			portion = money.Min(portion, t.Brackets[i+1].From.Sub(b.From))
		}
		tax = tax.Add(portion.Mul(b.Rate))
	}
	return money.Cents(tax)
}

func (t *PCBTable) rebate(chargeable decimal.Decimal, spouse bool) decimal.Decimal {
	if chargeable.GreaterThan(t.RebateThreshold) {
		return decimal.Zero
	}
	r := t.IndividualRebate
	if spouse {
		r = r.Add(t.SpouseRebate)
	}
	return r
}

func (t *PCBTable) netTax(chargeable decimal.Decimal, spouse bool) decimal.Decimal {
	if !chargeable.IsPositive() {
		return decimal.Zero
	}
	return money.NonNegative(t.AnnualTax(chargeable).Sub(t.rebate(chargeable, spouse)))
}

// Compute returns the monthly tax deduction for the month in the input.
func (t *PCBTable) Compute(in statutory.PCBInput) (statutory.PCBResult, error) {
	if in.Month < 1 || in.Month > 12 {
		return statutory.PCBResult{}, fmt.Errorf("pcb: month %d out of range", in.Month)
	}
	zero := statutory.PCBResult{Regular: decimal.Zero, Additional: decimal.Zero, Total: decimal.Zero}
	n := decimal.NewFromInt(int64(12 - in.Month))
	epfCap := t.EPFReliefCap

	k := money.Min(in.YTDEPF, epfCap)
	k1 := money.Min(in.RegularEPF, money.NonNegative(epfCap.Sub(k)))
	k2 := decimal.Zero
	if n.IsPositive() {
		k2 = money.Min(k1, money.NonNegative(epfCap.Sub(k).Sub(k1)).Div(n))
	}

	reliefs := t.IndividualRelief.Add(in.OtherReliefs).
		Add(t.ChildRelief.Mul(decimal.NewFromInt(int64(in.Children))))
	if in.Spouse {
		reliefs = reliefs.Add(t.SpouseRelief)
	}

	chargeable := in.YTDRemuneration.Sub(k).
		Add(in.MonthlyRegular.Sub(k1)).
		Add(in.MonthlyRegular.Sub(k2).Mul(n)).
		Sub(reliefs)

	annualTax := t.netTax(chargeable, in.Spouse)
	regular := money.NonNegative(annualTax.Sub(in.YTDPCB).Div(n.Add(decimal.NewFromInt(1))))
	regular = money.RoundToStep(regular, t.Rounding)

	additional := decimal.Zero
	if in.MonthlyAdditional.IsPositive() {
		kt := money.Min(in.AdditionalEPF, money.NonNegative(epfCap.Sub(k).Sub(k1).Sub(k2.Mul(n))))
		withAdditional := chargeable.Add(in.MonthlyAdditional.Sub(kt))
		totalTax := t.netTax(withAdditional, in.Spouse)
		projected := in.YTDPCB.Add(regular.Mul(n.Add(decimal.NewFromInt(1))))
		additional = money.RoundToStep(money.NonNegative(totalTax.Sub(projected)), t.Rounding)
	}

	total := regular.Add(additional)
	if total.LessThan(t.MinimumDeduction) {
		return zero, nil
	}
	return statutory.PCBResult{Regular: regular, Additional: additional, Total: total}, nil
}

// ========== Period view ==========

// Tables is the set of table versions in force for one payroll period.
type Tables struct {
	epf   *EPFTable
	socso *SOCSOTable
	eis   *EISTable
	pcb   *PCBTable
}

func (t *Tables) EPF(wage decimal.Decimal, age int, ct statutory.ContributionType) (statutory.Contribution, error) {
	return t.epf.Compute(wage, age, ct)
}

func (t *Tables) SOCSO(wage decimal.Decimal, age int) (statutory.SOCSOContribution, error) {
	return t.socso.Compute(wage, age)
}

func (t *Tables) EIS(wage decimal.Decimal, age int) (statutory.Contribution, error) {
	return t.eis.Compute(wage, age)
}

func (t *Tables) PCB(in statutory.PCBInput) (statutory.PCBResult, error) {
	return t.pcb.Compute(in)
}

// Refs lists the versions in this set, for audit.
func (t *Tables) Refs() []statutory.TableRef {
	return []statutory.TableRef{t.epf.Ref(), t.socso.Ref(), t.eis.Ref(), t.pcb.Ref()}
}
