package statutory

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ContributionType selects the EPF rate schedule applied to an employee.
type ContributionType string

const (
	ContributionStandard       ContributionType = "standard"
	ContributionElectedAbove60 ContributionType = "elected_above_60"
	ContributionForeign        ContributionType = "foreign"
	ContributionExempt         ContributionType = "exempt"
)

func ParseContributionType(s string) (ContributionType, error) {
	switch ContributionType(s) {
	case ContributionStandard, ContributionElectedAbove60, ContributionForeign, ContributionExempt:
		return ContributionType(s), nil
	case "":
		return ContributionStandard, nil
	}
	return "", fmt.Errorf("unknown epf contribution type %q", s)
}

// Kind names one of the four statutory schedules.
type Kind string

const (
	KindEPF   Kind = "epf"
	KindSOCSO Kind = "socso"
	KindEIS   Kind = "eis"
	KindPCB   Kind = "pcb"
)

// Contribution is an employee/employer pair.
type Contribution struct {
	Employee decimal.Decimal `json:"employee"`
	Employer decimal.Decimal `json:"employer"`
}

// SOCSOCategory 1 covers injury and invalidity, 2 covers injury only.
type SOCSOCategory int

const (
	SOCSONone      SOCSOCategory = 0
	SOCSOCategory1 SOCSOCategory = 1
	SOCSOCategory2 SOCSOCategory = 2
)

type SOCSOContribution struct {
	Employee decimal.Decimal `json:"employee"`
	Employer decimal.Decimal `json:"employer"`
	Category SOCSOCategory   `json:"category"`
}

// PCBInput carries the figures of the monthly tax deduction formula.
// Regular remuneration is projected over the remaining months of the year,
// additional remuneration is taxed entirely in the current month.
type PCBInput struct {
	Month int

	MonthlyRegular    decimal.Decimal
	MonthlyAdditional decimal.Decimal
	RegularEPF        decimal.Decimal
	AdditionalEPF     decimal.Decimal

	YTDRemuneration decimal.Decimal
	YTDEPF          decimal.Decimal
	YTDPCB          decimal.Decimal

	// OtherReliefs are annual reliefs declared by the employee beyond the
	// individual, spouse, child and EPF reliefs.
	OtherReliefs decimal.Decimal
	Spouse       bool
	Children     int
}

// PCBResult splits the deduction for reporting on the payslip.
type PCBResult struct {
	Regular    decimal.Decimal `json:"regular"`
	Additional decimal.Decimal `json:"additional"`
	Total      decimal.Decimal `json:"total"`
}

// TableRef identifies the table versions used for a period.
type TableRef struct {
	Kind          Kind      `json:"kind"`
	Version       string    `json:"version"`
	EffectiveFrom time.Time `json:"effective_from"`
}
