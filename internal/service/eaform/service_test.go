package eaform

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/cmlabs-hris/hrms-payroll-go/internal/domain/company"
	"github.com/cmlabs-hris/hrms-payroll-go/internal/domain/eaform"
	"github.com/cmlabs-hris/hrms-payroll-go/internal/domain/employee"
	"github.com/cmlabs-hris/hrms-payroll-go/internal/domain/payroll"
	"github.com/cmlabs-hris/hrms-payroll-go/internal/pkg/events"
	"github.com/cmlabs-hris/hrms-payroll-go/internal/pkg/jwt"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type passTx struct{}

func (passTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type memForms struct {
	forms   map[string]eaform.Form
	upserts int
}

func formKey(employeeID string, year int) string {
	return employeeID + "/" + strconv.Itoa(year)
}

func (m *memForms) Get(ctx context.Context, companyID, employeeID string, year int) (eaform.Form, error) {
	f, ok := m.forms[formKey(employeeID, year)]
	if !ok || f.CompanyID != companyID {
		return eaform.Form{}, eaform.ErrFormNotFound
	}
	return f, nil
}

func (m *memForms) Upsert(ctx context.Context, f eaform.Form) (eaform.Form, error) {
	m.upserts++
	if f.ID == "" {
		f.ID = "form-" + f.EmployeeID
	}
	m.forms[formKey(f.EmployeeID, f.Year)] = f
	return f, nil
}

type stubEmployees struct {
	employee.EmployeeRepository
	list    []employee.Employee
	deleted []employee.Employee
	items   *stubItems
}

func (s *stubEmployees) GetByID(ctx context.Context, id, companyID string) (employee.Employee, error) {
	for _, e := range s.list {
		if e.ID == id && e.CompanyID == companyID {
			return e, nil
		}
	}
	return employee.Employee{}, employee.ErrEmployeeNotFound
}

func (s *stubEmployees) ListPaidInYear(ctx context.Context, companyID string, year int) ([]employee.Employee, error) {
	var out []employee.Employee
	for _, e := range append(append([]employee.Employee(nil), s.list...), s.deleted...) {
		if e.CompanyID == companyID && len(s.items.paid[e.ID]) > 0 {
			out = append(out, e)
		}
	}
	return out, nil
}

type stubCompanies struct {
	company.CompanyRepository
}

func (stubCompanies) GetByID(ctx context.Context, id string) (company.Company, error) {
	return company.Company{ID: id, Name: "Mimix Sdn Bhd"}, nil
}

type stubRuns struct {
	payroll.RunRepository
	runs []payroll.Run
}

func (s *stubRuns) ListByYear(ctx context.Context, companyID string, year int) ([]payroll.Run, error) {
	return s.runs, nil
}

type stubItems struct {
	payroll.ItemRepository
	paid map[string][]payroll.Item
}

func (s *stubItems) ListPaidByEmployeeYear(ctx context.Context, employeeID string, year int) ([]payroll.Item, error) {
	return s.paid[employeeID], nil
}

type countingPublisher struct{ events []events.Event }

func (p *countingPublisher) Publish(ctx context.Context, e events.Event) {
	p.events = append(p.events, e)
}

func paidItem(id string, month int, gross, epf, socso, eis, pcb string) payroll.Item {
	hash := "hash-" + id
	g := dec(gross)
	return payroll.Item{
		ID:         id,
		EmployeeID: "e1",
		Status:     payroll.ItemStatusLocked,
		Earnings: payroll.Earnings{
			BasicSalary: g.Sub(dec("100")), Allowance: dec("60"), Claims: dec("40"),
			Commission: decimal.Zero, Bonus: decimal.Zero, TripCommission: decimal.Zero, Outstation: decimal.Zero,
			OTAmount: decimal.Zero, PHPay: decimal.Zero, OtherEarnings: decimal.Zero, AttendanceBonus: decimal.Zero,
		},
		Deductions: payroll.Deductions{
			EPFEmployee: dec(epf), EPFEmployer: dec(epf).Add(dec("20")),
			SOCSOEmployee: dec(socso), SOCSOEmployer: dec("50"),
			EISEmployee: dec(eis), EISEmployer: dec(eis),
			PCB: dec(pcb),
		},
		Gross:          g,
		BenefitsInKind: dec("10"),
		SnapshotHash:   &hash,
		UpdatedAt:      time.Date(2025, time.Month(month), 28, 0, 0, 0, 0, time.UTC),
	}
}

type fixture struct {
	svc       *EAFormServiceImpl
	employees *stubEmployees
	forms     *memForms
	runs      *stubRuns
	items     *stubItems
	publisher *countingPublisher
	ctx       context.Context
}

func newFixture() *fixture {
	f := &fixture{
		forms: &memForms{forms: map[string]eaform.Form{}},
		runs: &stubRuns{runs: []payroll.Run{
			{ID: "jan", Status: payroll.RunStatusPaid},
			{ID: "feb", Status: payroll.RunStatusPaid},
		}},
		items: &stubItems{paid: map[string][]payroll.Item{
			"e1": {
				paidItem("i1", 1, "3000", "330", "14.75", "5.90", "12.50"),
				paidItem("i2", 2, "3200", "352", "15.75", "6.30", "20.00"),
			},
		}},
		publisher: &countingPublisher{},
		ctx:       jwt.WithSystemClaims(context.Background(), "c1"),
	}
	f.employees = &stubEmployees{
		list: []employee.Employee{
			{ID: "e1", CompanyID: "c1", EmployeeCode: "E001", FullName: "Lau Jia Cheng", ICNumber: "900101-14-5678", JoinDate: time.Date(2020, 3, 1, 0, 0, 0, 0, time.UTC)},
			{ID: "e2", CompanyID: "c1", EmployeeCode: "E002", FullName: "New Joiner", JoinDate: time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC)},
		},
		items: f.items,
	}
	f.svc = NewEAFormService(passTx{}, f.forms, f.employees, stubCompanies{}, f.runs, f.items, f.publisher).(*EAFormServiceImpl)
	return f
}

func TestAggregate_SumsPaidItems(t *testing.T) {
	f := newFixture()
	emp := employee.Employee{ID: "e1", EmployeeCode: "E001", FullName: "Lau Jia Cheng", JoinDate: time.Date(2020, 3, 1, 0, 0, 0, 0, time.UTC)}

	data := Aggregate(company.Company{ID: "c1", Name: "Mimix"}, emp, 2025, f.items.paid["e1"])

	assert.Equal(t, eaform.FormDataVersion, data.Version)
	assert.Equal(t, 2, data.Months)
	assert.True(t, dec("6200").Equal(data.Income.Gross), data.Income.Gross.String())
	assert.True(t, dec("6000").Equal(data.Income.Salary), data.Income.Salary.String())
	assert.True(t, dec("80").Equal(data.Income.Claims))
	assert.True(t, dec("682").Equal(data.Deductions.EPF))
	assert.True(t, dec("30.50").Equal(data.Deductions.SOCSO))
	assert.True(t, dec("12.20").Equal(data.Deductions.EIS))
	assert.True(t, dec("32.50").Equal(data.Deductions.PCB))
	assert.True(t, dec("722").Equal(data.EmployerContributions.EPF))
	assert.True(t, dec("20").Equal(data.BenefitsInKind))
	assert.Equal(t, "2020-03-01", data.Employee.JoinDate)
	assert.Nil(t, data.Employee.LastWorkingDay)
}

func TestSourceHash_OrderIndependentAndSensitive(t *testing.T) {
	f := newFixture()
	items := f.items.paid["e1"]

	a, err := SourceHash(items)
	require.NoError(t, err)
	b, err := SourceHash([]payroll.Item{items[1], items[0]})
	require.NoError(t, err)
	assert.Equal(t, a, b)

	changed := append([]payroll.Item(nil), items...)
	changed[0].UpdatedAt = changed[0].UpdatedAt.Add(time.Minute)
	c, err := SourceHash(changed)
	require.NoError(t, err)
	assert.NotEqual(t, a, c)
}

func TestGenerate_WritesOncePerSource(t *testing.T) {
	f := newFixture()

	resp, err := f.svc.Generate(f.ctx, eaform.GenerateRequest{Year: 2025})
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Generated, "employees without paid items are skipped")
	assert.Empty(t, resp.Errors)
	assert.Len(t, f.publisher.events, 1)

	stored, err := f.forms.Get(f.ctx, "c1", "e1", 2025)
	require.NoError(t, err)
	firstGenerated := stored.GeneratedAt

	resp, err = f.svc.Generate(f.ctx, eaform.GenerateRequest{Year: 2025})
	require.NoError(t, err)
	assert.Equal(t, 0, resp.Generated)
	assert.Equal(t, 1, resp.Unchanged)
	assert.Equal(t, 1, f.forms.upserts)
	assert.Len(t, f.publisher.events, 1)

	f.items.paid["e1"] = append(f.items.paid["e1"], paidItem("i3", 3, "3000", "330", "14.75", "5.90", "12.50"))
	resp, err = f.svc.Generate(f.ctx, eaform.GenerateRequest{Year: 2025})
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Generated)

	stored, err = f.forms.Get(f.ctx, "c1", "e1", 2025)
	require.NoError(t, err)
	assert.Equal(t, 3, stored.FormData.Months)
	assert.Equal(t, "form-e1", stored.ID)
	assert.False(t, stored.GeneratedAt.Before(firstGenerated))
}

func TestGenerate_DraftRunBlocksUnlessAllowed(t *testing.T) {
	f := newFixture()
	f.runs.runs = append(f.runs.runs, payroll.Run{ID: "mar", Status: payroll.RunStatusDraft})

	_, err := f.svc.Generate(f.ctx, eaform.GenerateRequest{Year: 2025})
	var notFinal *eaform.YearNotFinalizedError
	require.True(t, errors.As(err, &notFinal))
	assert.Equal(t, []string{"mar"}, notFinal.DraftRuns)

	resp, err := f.svc.Generate(f.ctx, eaform.GenerateRequest{Year: 2025, AllowDraft: true})
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Generated)
}

func TestGenerate_ExplicitEmployeesReportErrors(t *testing.T) {
	f := newFixture()

	resp, err := f.svc.Generate(f.ctx, eaform.GenerateRequest{Year: 2025, EmployeeIDs: []string{"e1", "e2", "ghost"}})
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Generated)
	require.Len(t, resp.Errors, 2)
	assert.Equal(t, "ghost", resp.Errors[0].EmployeeID)
	assert.Equal(t, "e2", resp.Errors[1].EmployeeID)
	assert.Equal(t, eaform.ErrNoPaidPayroll.Error(), resp.Errors[1].Error)
}

func TestGenerate_IncludesDeletedEmployeesWithPaidMonths(t *testing.T) {
	f := newFixture()
	lastDay := time.Date(2025, 2, 28, 0, 0, 0, 0, time.UTC)
	f.employees.deleted = []employee.Employee{
		{ID: "e3", CompanyID: "c1", EmployeeCode: "E003", FullName: "Siti Aminah", JoinDate: time.Date(2019, 6, 1, 0, 0, 0, 0, time.UTC), LastWorkingDay: &lastDay},
	}
	left := paidItem("i9", 1, "2800", "308", "13.75", "5.50", "0")
	left.EmployeeID = "e3"
	f.items.paid["e3"] = []payroll.Item{left}

	resp, err := f.svc.Generate(f.ctx, eaform.GenerateRequest{Year: 2025})
	require.NoError(t, err)
	assert.Equal(t, 2, resp.Generated)
	assert.Empty(t, resp.Errors)

	stored, err := f.forms.Get(f.ctx, "c1", "e3", 2025)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.FormData.Months)
	assert.True(t, dec("2800").Equal(stored.FormData.Income.Gross), stored.FormData.Income.Gross.String())
	require.NotNil(t, stored.FormData.Employee.LastWorkingDay)
	assert.Equal(t, "2025-02-28", *stored.FormData.Employee.LastWorkingDay)

	resp, err = f.svc.Generate(f.ctx, eaform.GenerateRequest{Year: 2025, EmployeeIDs: []string{"e3"}})
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Unchanged, "explicit ids reach deleted employees too")
	assert.Empty(t, resp.Errors)
}

func TestGet(t *testing.T) {
	f := newFixture()
	_, err := f.svc.Get(f.ctx, 2025, "e1")
	assert.ErrorIs(t, err, eaform.ErrFormNotFound)

	_, err = f.svc.Generate(f.ctx, eaform.GenerateRequest{Year: 2025})
	require.NoError(t, err)

	got, err := f.svc.Get(f.ctx, 2025, "e1")
	require.NoError(t, err)
	assert.Equal(t, "e1", got.EmployeeID)
	assert.Equal(t, "ea.v1", got.FormData.Version)

	_, err = f.svc.Get(jwt.WithSystemClaims(context.Background(), "c2"), 2025, "e1")
	assert.ErrorIs(t, err, eaform.ErrFormNotFound, "another company sees nothing")
}
