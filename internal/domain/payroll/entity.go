package payroll

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cmlabs-hris/hrms-payroll-go/internal/domain/statutory"
	"github.com/cmlabs-hris/hrms-payroll-go/internal/pkg/money"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/blake2b"
)

// RunStatus enum
type RunStatus string

const (
	RunStatusDraft     RunStatus = "draft"
	RunStatusApproved  RunStatus = "approved"
	RunStatusLocked    RunStatus = "locked"
	RunStatusPaid      RunStatus = "paid"
	RunStatusCancelled RunStatus = "cancelled"
)

func ParseRunStatus(s string) (RunStatus, error) {
	switch RunStatus(s) {
	case RunStatusDraft, RunStatusApproved, RunStatusLocked, RunStatusPaid, RunStatusCancelled:
		return RunStatus(s), nil
	}
	return "", fmt.Errorf("unknown payroll run status %q", s)
}

// A draft may stay draft: generate, relink and reopen rewrite its items.
var runTransitions = map[RunStatus][]RunStatus{
	RunStatusDraft:    {RunStatusDraft, RunStatusApproved, RunStatusCancelled},
	RunStatusApproved: {RunStatusLocked},
	RunStatusLocked:   {RunStatusPaid},
}

// CanBecome reports whether the run may move from s to next.
func (s RunStatus) CanBecome(next RunStatus) bool {
	for _, allowed := range runTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Finalized reports whether the run's items are frozen.
func (s RunStatus) Finalized() bool {
	return s == RunStatusApproved || s == RunStatusLocked || s == RunStatusPaid
}

// Run is the payroll batch of one company for one month.
type Run struct {
	ID        string
	CompanyID string
	Month     int
	Year      int
	Status    RunStatus
	Totals    Totals

	CreatedBy  string
	ApprovedBy *string
	ApprovedAt *time.Time
	LockedAt   *time.Time
	Payment    *Payment

	CreatedAt time.Time
	UpdatedAt time.Time
}

// RunTopic is the live-progress topic of a run.
func RunTopic(runID string) string {
	return "payroll-run:" + runID
}

func (r Run) PeriodStart() time.Time {
	return time.Date(r.Year, time.Month(r.Month), 1, 0, 0, 0, 0, time.UTC)
}

func (r Run) PeriodEnd() time.Time {
	return r.PeriodStart().AddDate(0, 1, -1)
}

// Payment is recorded when a locked run is paid out.
type Payment struct {
	Reference string    `json:"reference"`
	Method    string    `json:"method"`
	PaidAt    time.Time `json:"paid_at"`
	PaidBy    string    `json:"paid_by"`
}

// Totals sums the computed items of a run. Failed items are counted but
// excluded from every amount.
type Totals struct {
	Employees       int             `json:"employees"`
	Failed          int             `json:"failed"`
	Flagged         int             `json:"flagged"`
	Gross           decimal.Decimal `json:"gross"`
	TotalDeductions decimal.Decimal `json:"total_deductions"`
	Net             decimal.Decimal `json:"net"`
	Claims          decimal.Decimal `json:"claims"`
	EPFEmployee     decimal.Decimal `json:"epf_employee"`
	EPFEmployer     decimal.Decimal `json:"epf_employer"`
	SOCSOEmployee   decimal.Decimal `json:"socso_employee"`
	SOCSOEmployer   decimal.Decimal `json:"socso_employer"`
	EISEmployee     decimal.Decimal `json:"eis_employee"`
	EISEmployer     decimal.Decimal `json:"eis_employer"`
	PCB             decimal.Decimal `json:"pcb"`
}

// Summarize recomputes run totals from its items.
func Summarize(items []Item) Totals {
	t := Totals{
		Gross: decimal.Zero, TotalDeductions: decimal.Zero, Net: decimal.Zero, Claims: decimal.Zero,
		EPFEmployee: decimal.Zero, EPFEmployer: decimal.Zero, SOCSOEmployee: decimal.Zero,
		SOCSOEmployer: decimal.Zero, EISEmployee: decimal.Zero, EISEmployer: decimal.Zero, PCB: decimal.Zero,
	}
	for _, it := range items {
		t.Employees++
		if it.Status == ItemStatusFailed {
			t.Failed++
			continue
		}
		if it.VarianceFlagged {
			t.Flagged++
		}
		t.Gross = t.Gross.Add(it.Gross)
		t.TotalDeductions = t.TotalDeductions.Add(it.TotalDeductions)
		t.Net = t.Net.Add(it.NetPay)
		t.Claims = t.Claims.Add(it.Earnings.Claims)
		t.EPFEmployee = t.EPFEmployee.Add(it.Deductions.EPFEmployee)
		t.EPFEmployer = t.EPFEmployer.Add(it.Deductions.EPFEmployer)
		t.SOCSOEmployee = t.SOCSOEmployee.Add(it.Deductions.SOCSOEmployee)
		t.SOCSOEmployer = t.SOCSOEmployer.Add(it.Deductions.SOCSOEmployer)
		t.EISEmployee = t.EISEmployee.Add(it.Deductions.EISEmployee)
		t.EISEmployer = t.EISEmployer.Add(it.Deductions.EISEmployer)
		t.PCB = t.PCB.Add(it.Deductions.PCB)
	}
	return t
}

// ItemStatus enum
type ItemStatus string

const (
	ItemStatusPending  ItemStatus = "pending"
	ItemStatusComputed ItemStatus = "computed"
	ItemStatusLocked   ItemStatus = "locked"
	ItemStatusFailed   ItemStatus = "failed"
)

func ParseItemStatus(s string) (ItemStatus, error) {
	switch ItemStatus(s) {
	case ItemStatusPending, ItemStatusComputed, ItemStatusLocked, ItemStatusFailed:
		return ItemStatus(s), nil
	}
	return "", fmt.Errorf("unknown payroll item status %q", s)
}

// Earnings are the components paid to the employee. Claims are
// reimbursements and sit outside the contribution wages.
type Earnings struct {
	BasicSalary     decimal.Decimal `json:"basic_salary"`
	Allowance       decimal.Decimal `json:"allowance"`
	Commission      decimal.Decimal `json:"commission"`
	Bonus           decimal.Decimal `json:"bonus"`
	TripCommission  decimal.Decimal `json:"trip_commission"`
	Outstation      decimal.Decimal `json:"outstation"`
	OTAmount        decimal.Decimal `json:"ot_amount"`
	PHPay           decimal.Decimal `json:"ph_pay"`
	OtherEarnings   decimal.Decimal `json:"other_earnings"`
	AttendanceBonus decimal.Decimal `json:"attendance_bonus"`
	Claims          decimal.Decimal `json:"claims"`
}

func (e Earnings) Total() decimal.Decimal {
	return money.Sum(e.BasicSalary, e.Allowance, e.Commission, e.Bonus,
		e.TripCommission, e.Outstation, e.OTAmount, e.PHPay,
		e.OtherEarnings, e.AttendanceBonus, e.Claims)
}

// Deductions hold both sides of each contribution; only the employee side
// is deducted from pay.
type Deductions struct {
	EPFEmployee   decimal.Decimal         `json:"epf_employee"`
	EPFEmployer   decimal.Decimal         `json:"epf_employer"`
	SOCSOEmployee decimal.Decimal         `json:"socso_employee"`
	SOCSOEmployer decimal.Decimal         `json:"socso_employer"`
	SOCSOCategory statutory.SOCSOCategory `json:"socso_category"`
	EISEmployee   decimal.Decimal         `json:"eis_employee"`
	EISEmployer   decimal.Decimal         `json:"eis_employer"`
	PCB           decimal.Decimal         `json:"pcb"`
	PCBAdditional decimal.Decimal         `json:"pcb_additional"`
	Attendance    decimal.Decimal         `json:"attendance"`
	UnpaidLeave   decimal.Decimal         `json:"unpaid_leave"`
	Other         decimal.Decimal         `json:"other"`
}

// EmployeeTotal is everything withheld from the employee.
func (d Deductions) EmployeeTotal() decimal.Decimal {
	return money.Sum(d.EPFEmployee, d.SOCSOEmployee, d.EISEmployee, d.PCB,
		d.Attendance, d.UnpaidLeave, d.Other)
}

// Item is the payslip of one employee within a run.
type Item struct {
	ID         string
	RunID      string
	CompanyID  string
	EmployeeID string
	Status     ItemStatus

	Earnings   Earnings
	Deductions Deductions

	StatutoryBase   decimal.Decimal
	EPFWage         decimal.Decimal
	Gross           decimal.Decimal
	TotalDeductions decimal.Decimal
	NetPay          decimal.Decimal
	BenefitsInKind  decimal.Decimal

	WorkMinutes     int
	OTMinutes       int
	LateMinutes     int
	EarlyMinutes    int
	UnpaidLeaveDays decimal.Decimal

	// Variance is the relative change of gross against the previous month,
	// nil when there is no previous item.
	Variance        *decimal.Decimal
	VarianceFlagged bool

	Warnings      []string
	FailureReason string
	TableRefs     []statutory.TableRef
	ClaimIDs      []string
	SnapshotHash  *string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Balanced reports whether gross − deductions equals net exactly.
func (i Item) Balanced() bool {
	return i.Gross.Sub(i.TotalDeductions).Equal(i.NetPay)
}

type itemSnapshot struct {
	ID              string               `json:"id"`
	RunID           string               `json:"run_id"`
	EmployeeID      string               `json:"employee_id"`
	Earnings        Earnings             `json:"earnings"`
	Deductions      Deductions           `json:"deductions"`
	StatutoryBase   decimal.Decimal      `json:"statutory_base"`
	EPFWage         decimal.Decimal      `json:"epf_wage"`
	Gross           decimal.Decimal      `json:"gross_salary"`
	TotalDeductions decimal.Decimal      `json:"total_deductions"`
	NetPay          decimal.Decimal      `json:"net_pay"`
	BenefitsInKind  decimal.Decimal      `json:"benefits_in_kind"`
	WorkMinutes     int                  `json:"work_minutes"`
	OTMinutes       int                  `json:"ot_minutes"`
	UnpaidLeaveDays decimal.Decimal      `json:"unpaid_leave_days"`
	ClaimIDs        []string             `json:"claim_ids"`
	TableRefs       []statutory.TableRef `json:"table_refs"`
}

// Snapshot serializes the pay-bearing fields of the item. Two items with
// equal amounts produce identical bytes.
func (i Item) Snapshot() ([]byte, error) {
	claimIDs := i.ClaimIDs
	if claimIDs == nil {
		claimIDs = []string{}
	}
	return json.Marshal(itemSnapshot{
		ID:              i.ID,
		RunID:           i.RunID,
		EmployeeID:      i.EmployeeID,
		Earnings:        i.Earnings,
		Deductions:      i.Deductions,
		StatutoryBase:   i.StatutoryBase,
		EPFWage:         i.EPFWage,
		Gross:           i.Gross,
		TotalDeductions: i.TotalDeductions,
		NetPay:          i.NetPay,
		BenefitsInKind:  i.BenefitsInKind,
		WorkMinutes:     i.WorkMinutes,
		OTMinutes:       i.OTMinutes,
		UnpaidLeaveDays: i.UnpaidLeaveDays,
		ClaimIDs:        claimIDs,
		TableRefs:       i.TableRefs,
	})
}

// HashSnapshot returns the hex BLAKE2b-256 digest of a snapshot.
func HashSnapshot(snapshot []byte) string {
	sum := blake2b.Sum256(snapshot)
	return hex.EncodeToString(sum[:])
}

// MonthlyInputs are the per-employee figures entered for a month.
type MonthlyInputs struct {
	ID         string
	CompanyID  string
	EmployeeID string
	Month      int
	Year       int

	SalesAmount      decimal.Decimal
	TripCount        int
	TripCommission   *decimal.Decimal
	OutstationDays   int
	OutstationAmount *decimal.Decimal
	OtherEarnings    decimal.Decimal
	Bonus            decimal.Decimal
	AttendanceBonus  decimal.Decimal
	OtherDeductions  decimal.Decimal
	BenefitsInKind   decimal.Decimal

	UpdatedAt time.Time
}

// EmptyInputs is used when nothing was entered for the month.
func EmptyInputs(employeeID string, month, year int) MonthlyInputs {
	return MonthlyInputs{
		EmployeeID:      employeeID,
		Month:           month,
		Year:            year,
		SalesAmount:     decimal.Zero,
		OtherEarnings:   decimal.Zero,
		Bonus:           decimal.Zero,
		AttendanceBonus: decimal.Zero,
		OtherDeductions: decimal.Zero,
		BenefitsInKind:  decimal.Zero,
	}
}

// YearToDate sums the items of earlier months in the same year.
// StatutoryBase carries the regular and commission remuneration already
// taxed, Bonus the additional remuneration outside the base.
type YearToDate struct {
	StatutoryBase decimal.Decimal
	Bonus         decimal.Decimal
	EPF           decimal.Decimal
	PCB           decimal.Decimal
}

// Remuneration is the accumulated remuneration used by the PCB formula.
func (y YearToDate) Remuneration() decimal.Decimal {
	return y.StatutoryBase.Add(y.Bonus)
}

// AuditAction enum
type AuditAction string

const (
	AuditRunCreated   AuditAction = "run.created"
	AuditRunGenerated AuditAction = "run.generated"
	AuditRunApproved  AuditAction = "run.approved"
	AuditRunLocked    AuditAction = "run.locked"
	AuditRunPaid      AuditAction = "run.paid"
	AuditRunReopened  AuditAction = "run.reopened"
	AuditRunCancelled AuditAction = "run.cancelled"
	AuditRunRelinked  AuditAction = "run.relinked"
	AuditItemLocked   AuditAction = "item.locked"
)

// AuditEntry records a run transition. Item snapshots are stored verbatim.
type AuditEntry struct {
	ID        string
	CompanyID string
	RunID     string
	ItemID    *string
	Action    AuditAction
	ActorID   string
	Detail    json.RawMessage
	Snapshot  []byte
	CreatedAt time.Time
}
