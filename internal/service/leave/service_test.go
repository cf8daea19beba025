package leave

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/cmlabs-hris/hrms-payroll-go/internal/domain/employee"
	"github.com/cmlabs-hris/hrms-payroll-go/internal/domain/leave"
	"github.com/cmlabs-hris/hrms-payroll-go/internal/pkg/events"
	"github.com/cmlabs-hris/hrms-payroll-go/internal/pkg/jwt"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// serialTx runs each transaction under one mutex, standing in for row locks.
type serialTx struct{ mu sync.Mutex }

func (s *serialTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(ctx)
}

type fakeEmployees struct{ byID map[string]employee.Employee }

func (f *fakeEmployees) GetByID(ctx context.Context, id, companyID string) (employee.Employee, error) {
	e, ok := f.byID[id]
	if !ok || e.CompanyID != companyID {
		return employee.Employee{}, employee.ErrEmployeeNotFound
	}
	return e, nil
}
func (f *fakeEmployees) ListForPeriod(ctx context.Context, companyID string, from, to time.Time) ([]employee.Employee, error) {
	return nil, nil
}
func (f *fakeEmployees) ListDueForDeactivation(ctx context.Context, asOf time.Time) ([]employee.Employee, error) {
	return nil, nil
}
func (f *fakeEmployees) ListPaidInYear(ctx context.Context, companyID string, year int) ([]employee.Employee, error) {
	return nil, nil
}
func (f *fakeEmployees) Deactivate(ctx context.Context, id, companyID string) error { return nil }

type fakeTypes struct{ types []leave.LeaveType }

func (f *fakeTypes) GetByID(ctx context.Context, id, companyID string) (leave.LeaveType, error) {
	for _, t := range f.types {
		if t.ID == id && t.CompanyID == companyID {
			return t, nil
		}
	}
	return leave.LeaveType{}, leave.ErrLeaveTypeNotFound
}
func (f *fakeTypes) ListByCompany(ctx context.Context, companyID string) ([]leave.LeaveType, error) {
	var out []leave.LeaveType
	for _, t := range f.types {
		if t.CompanyID == companyID {
			out = append(out, t)
		}
	}
	return out, nil
}
func (f *fakeTypes) CreateMissing(ctx context.Context, types []leave.LeaveType) (int, error) {
	n := 0
	for _, t := range types {
		exists := false
		for _, have := range f.types {
			if have.CompanyID == t.CompanyID && have.Code == t.Code {
				exists = true
			}
		}
		if !exists {
			t.ID = t.CompanyID + "-" + t.Code
			f.types = append(f.types, t)
			n++
		}
	}
	return n, nil
}

type fakeBalances struct {
	mu   sync.Mutex
	rows map[string]*leave.Balance
}

func balanceKey(emp, lt string, year int) string {
	return fmt.Sprintf("%s|%s|%d", emp, lt, year)
}

func (f *fakeBalances) Get(ctx context.Context, emp, lt string, year int) (leave.Balance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.rows[balanceKey(emp, lt, year)]
	if !ok {
		return leave.Balance{}, leave.ErrBalanceNotFound
	}
	return *b, nil
}
func (f *fakeBalances) GetForUpdate(ctx context.Context, emp, lt string, year int) (leave.Balance, error) {
	return f.Get(ctx, emp, lt, year)
}
func (f *fakeBalances) ListByEmployeeYear(ctx context.Context, emp string, year int) ([]leave.Balance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []leave.Balance
	for _, b := range f.rows {
		if b.EmployeeID == emp && b.Year == year {
			out = append(out, *b)
		}
	}
	return out, nil
}
func (f *fakeBalances) CreateIfMissing(ctx context.Context, b leave.Balance) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := balanceKey(b.EmployeeID, b.LeaveTypeID, b.Year)
	if _, ok := f.rows[k]; ok {
		return false, nil
	}
	b.ID = k
	f.rows[k] = &b
	return true, nil
}
func (f *fakeBalances) AdjustUsed(ctx context.Context, id string, delta decimal.Decimal) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	b := f.rows[id]
	b.UsedDays = b.UsedDays.Add(delta)
	return nil
}

type fakeRequests struct {
	mu   sync.Mutex
	rows map[string]*leave.Request
	seq  int
}

func (f *fakeRequests) Create(ctx context.Context, r leave.Request) (leave.Request, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	r.ID = fmt.Sprintf("req-%d", f.seq)
	f.rows[r.ID] = &r
	return r, nil
}
func (f *fakeRequests) GetByID(ctx context.Context, id, companyID string) (leave.Request, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rows[id]
	if !ok || r.CompanyID != companyID {
		return leave.Request{}, leave.ErrLeaveRequestNotFound
	}
	return *r, nil
}
func (f *fakeRequests) GetByIDForUpdate(ctx context.Context, id, companyID string) (leave.Request, error) {
	return f.GetByID(ctx, id, companyID)
}
func (f *fakeRequests) UpdateStatus(ctx context.Context, r leave.Request) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows[r.ID] = &r
	return nil
}
func (f *fakeRequests) HasOverlap(ctx context.Context, emp string, start, end time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.rows {
		if r.EmployeeID != emp || (r.Status != leave.RequestStatusPending && r.Status != leave.RequestStatusApproved) {
			continue
		}
		if !r.StartDate.After(end) && !r.EndDate.Before(start) {
			return true, nil
		}
	}
	return false, nil
}
func (f *fakeRequests) ListApprovedUnpaid(ctx context.Context, emp string, from, to time.Time) ([]leave.Request, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []leave.Request
	for _, r := range f.rows {
		if r.EmployeeID == emp && r.Status == leave.RequestStatusApproved && r.LeaveTypeID == "unpaid" &&
			!r.StartDate.After(to) && !r.EndDate.Before(from) {
			out = append(out, *r)
		}
	}
	return out, nil
}
func (f *fakeRequests) CancelPendingForEmployee(ctx context.Context, emp string) (int, error) {
	return 0, nil
}

type fakeHolidays struct{ list []leave.Holiday }

func (f *fakeHolidays) ListInRange(ctx context.Context, companyID string, from, to time.Time) ([]leave.Holiday, error) {
	return f.list, nil
}

type fixture struct {
	svc      *LeaveServiceImpl
	balances *fakeBalances
	requests *fakeRequests
	ctx      context.Context
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	female := employee.Female
	emps := &fakeEmployees{byID: map[string]employee.Employee{
		"e1": {ID: "e1", CompanyID: "c1", Gender: employee.Male, JoinDate: date(2025, 10, 1)},
		"e2": {ID: "e2", CompanyID: "c1", Gender: employee.Female, JoinDate: date(2020, 1, 1)},
	}}
	types := &fakeTypes{types: []leave.LeaveType{
		{ID: "annual", CompanyID: "c1", Code: "AL", IsPaid: true, IsActive: true, DefaultDaysPerYear: decimal.NewFromInt(14)},
		{ID: "maternity", CompanyID: "c1", Code: "ML", IsPaid: true, IsActive: true, DefaultDaysPerYear: decimal.NewFromInt(98), GenderRestriction: &female},
		{ID: "unpaid", CompanyID: "c1", Code: "UL", IsPaid: false, IsActive: true},
	}}
	balances := &fakeBalances{rows: map[string]*leave.Balance{}}
	requests := &fakeRequests{rows: map[string]*leave.Request{}}
	holidays := &fakeHolidays{list: []leave.Holiday{{Date: date(2025, 8, 31)}, {Date: date(2025, 9, 1)}}}

	svc := NewLeaveService(&serialTx{}, types, balances, requests, holidays, emps, events.Noop{})
	svc.now = func() time.Time { return date(2025, 8, 1) }

	return fixture{svc: svc, balances: balances, requests: requests, ctx: jwt.WithSystemClaims(context.Background(), "c1")}
}

func TestInitialize_ProratesAndFiltersByGender(t *testing.T) {
	f := newFixture(t)

	got, err := f.svc.Initialize(f.ctx, leave.InitializeBalancesRequest{EmployeeID: "e1", Year: 2025})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "annual", got[0].LeaveTypeID)
	assert.Equal(t, "3.5", got[0].EntitledDays.String())

	// Idempotent.
	again, err := f.svc.Initialize(f.ctx, leave.InitializeBalancesRequest{EmployeeID: "e1", Year: 2025})
	require.NoError(t, err)
	assert.Len(t, again, 1)

	got, err = f.svc.Initialize(f.ctx, leave.InitializeBalancesRequest{EmployeeID: "e2", Year: 2025})
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestInitialize_SeedsStatutoryTypesForNewCompany(t *testing.T) {
	f := newFixture(t)
	f.svc.employeeRepo = &fakeEmployees{byID: map[string]employee.Employee{
		"n1": {ID: "n1", CompanyID: "c2", Gender: employee.Female, JoinDate: date(2020, 1, 1)},
	}}
	ctx := jwt.WithSystemClaims(context.Background(), "c2")

	got, err := f.svc.Initialize(ctx, leave.InitializeBalancesRequest{EmployeeID: "n1", Year: 2025})
	require.NoError(t, err)

	byType := map[string]string{}
	for _, b := range got {
		byType[b.LeaveTypeID] = b.EntitledDays.String()
	}
	// Paid types a female employee is eligible for; paternity and unpaid get no balance.
	assert.Equal(t, map[string]string{
		"c2-ANNUAL":          "8",
		"c2-SICK":            "14",
		"c2-HOSPITALISATION": "60",
		"c2-MATERNITY":       "98",
	}, byType)

	types, err := f.svc.typeRepo.ListByCompany(ctx, "c2")
	require.NoError(t, err)
	assert.Len(t, types, 6)
}

func TestRequest_ExcludesWeekendsAndHolidays(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Initialize(f.ctx, leave.InitializeBalancesRequest{EmployeeID: "e2", Year: 2025})
	require.NoError(t, err)

	resp, err := f.svc.Request(f.ctx, leave.CreateLeaveRequestRequest{
		EmployeeID: "e2", LeaveTypeID: "annual", StartDate: "2025-08-29", EndDate: "2025-09-02",
	})
	require.NoError(t, err)
	// Fri 29, Tue 2; the weekend and Monday holiday are skipped.
	assert.Equal(t, "2", resp.TotalDays.String())
	assert.Equal(t, leave.RequestStatusPending, resp.Status)

	_, err = f.svc.Request(f.ctx, leave.CreateLeaveRequestRequest{
		EmployeeID: "e2", LeaveTypeID: "annual", StartDate: "2025-09-02", EndDate: "2025-09-03",
	})
	assert.ErrorIs(t, err, leave.ErrOverlappingLeave)
}

func TestRequest_InsufficientBalance(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Initialize(f.ctx, leave.InitializeBalancesRequest{EmployeeID: "e1", Year: 2025})
	require.NoError(t, err)

	_, err = f.svc.Request(f.ctx, leave.CreateLeaveRequestRequest{
		EmployeeID: "e1", LeaveTypeID: "annual", StartDate: "2025-11-03", EndDate: "2025-11-07",
	})
	var insufficient *leave.InsufficientBalanceError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, "5", insufficient.Requested.String())
	assert.Equal(t, "3.5", insufficient.Available.String())
}

func TestRequest_NotEligible(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Request(f.ctx, leave.CreateLeaveRequestRequest{
		EmployeeID: "e1", LeaveTypeID: "maternity", StartDate: "2025-11-03", EndDate: "2025-11-07",
	})
	assert.ErrorIs(t, err, leave.ErrNotEligible)
}

func TestApproveThenCancel_RestoresBalanceExactly(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Initialize(f.ctx, leave.InitializeBalancesRequest{EmployeeID: "e2", Year: 2025})
	require.NoError(t, err)

	req, err := f.svc.Request(f.ctx, leave.CreateLeaveRequestRequest{
		EmployeeID: "e2", LeaveTypeID: "annual", StartDate: "2025-08-25", EndDate: "2025-08-27",
	})
	require.NoError(t, err)

	before, _ := f.balances.Get(f.ctx, "e2", "annual", 2025)
	_, err = f.svc.Approve(f.ctx, req.ID)
	require.NoError(t, err)
	after, _ := f.balances.Get(f.ctx, "e2", "annual", 2025)
	assert.True(t, after.UsedDays.Sub(before.UsedDays).Equal(req.TotalDays))

	_, err = f.svc.Approve(f.ctx, req.ID)
	assert.ErrorIs(t, err, leave.ErrLeaveRequestAlreadyProcessed)

	cancelled, err := f.svc.Cancel(f.ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, leave.RequestStatusCancelled, cancelled.Status)
	restored, _ := f.balances.Get(f.ctx, "e2", "annual", 2025)
	assert.True(t, restored.UsedDays.Equal(before.UsedDays))
}

func TestReject_LeavesBalance(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Initialize(f.ctx, leave.InitializeBalancesRequest{EmployeeID: "e2", Year: 2025})
	require.NoError(t, err)
	req, err := f.svc.Request(f.ctx, leave.CreateLeaveRequestRequest{
		EmployeeID: "e2", LeaveTypeID: "annual", StartDate: "2025-08-25", EndDate: "2025-08-25",
	})
	require.NoError(t, err)

	_, err = f.svc.Reject(f.ctx, req.ID, leave.RejectLeaveRequestRequest{})
	assert.Error(t, err)

	resp, err := f.svc.Reject(f.ctx, req.ID, leave.RejectLeaveRequestRequest{Reason: "peak season"})
	require.NoError(t, err)
	assert.Equal(t, leave.RequestStatusRejected, resp.Status)
	b, _ := f.balances.Get(f.ctx, "e2", "annual", 2025)
	assert.True(t, b.UsedDays.IsZero())
}

func TestApprove_ConcurrentDoesNotOverConsume(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Initialize(f.ctx, leave.InitializeBalancesRequest{EmployeeID: "e1", Year: 2025})
	require.NoError(t, err)

	// Two pending requests of 3 days each against 3.5 available, seeded
	// directly so the request-time check does not interfere.
	for _, id := range []string{"a", "b"} {
		f.requests.rows[id] = &leave.Request{
			ID: id, CompanyID: "c1", EmployeeID: "e1", LeaveTypeID: "annual",
			StartDate: date(2025, 11, 3), EndDate: date(2025, 11, 5),
			TotalDays: decimal.NewFromInt(3), Status: leave.RequestStatusPending,
		}
	}

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, id := range []string{"a", "b"} {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			_, errs[i] = f.svc.Approve(f.ctx, id)
		}(i, id)
	}
	wg.Wait()

	failures := 0
	for _, err := range errs {
		if err != nil {
			var insufficient *leave.InsufficientBalanceError
			assert.ErrorAs(t, err, &insufficient)
			failures++
		}
	}
	assert.Equal(t, 1, failures)
	b, _ := f.balances.Get(f.ctx, "e1", "annual", 2025)
	assert.Equal(t, "3", b.UsedDays.String())
}

func TestUnpaidLeaveDaysInPeriod_ClipsToMonth(t *testing.T) {
	f := newFixture(t)
	f.requests.rows["u1"] = &leave.Request{
		ID: "u1", CompanyID: "c1", EmployeeID: "e2", LeaveTypeID: "unpaid",
		StartDate: date(2025, 8, 28), EndDate: date(2025, 9, 3),
		TotalDays: decimal.NewFromInt(4), Status: leave.RequestStatusApproved,
	}

	aug, err := f.svc.UnpaidLeaveDaysInPeriod(f.ctx, "c1", "e2", 8, 2025)
	require.NoError(t, err)
	assert.Equal(t, "2", aug.String())

	sep, err := f.svc.UnpaidLeaveDaysInPeriod(f.ctx, "c1", "e2", 9, 2025)
	require.NoError(t, err)
	assert.Equal(t, "2", sep.String())

	oct, err := f.svc.UnpaidLeaveDaysInPeriod(f.ctx, "c1", "e2", 10, 2025)
	require.NoError(t, err)
	assert.True(t, oct.IsZero())
}
