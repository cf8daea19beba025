package payroll

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cmlabs-hris/hrms-payroll-go/internal/domain/claim"
	"github.com/cmlabs-hris/hrms-payroll-go/internal/domain/company"
	"github.com/cmlabs-hris/hrms-payroll-go/internal/domain/employee"
	"github.com/cmlabs-hris/hrms-payroll-go/internal/domain/payroll"
	"github.com/cmlabs-hris/hrms-payroll-go/internal/pkg/database"
	"github.com/cmlabs-hris/hrms-payroll-go/internal/pkg/events"
	"github.com/cmlabs-hris/hrms-payroll-go/internal/pkg/jwt"
	"github.com/cmlabs-hris/hrms-payroll-go/internal/pkg/sse"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// Notifier fans progress out to live subscribers.
type Notifier interface {
	Publish(topic string, event sse.Event)
}

const defaultWorkers = 4

type RunServiceImpl struct {
	tx           database.Transactor
	runRepo      payroll.RunRepository
	itemRepo     payroll.ItemRepository
	auditRepo    payroll.AuditRepository
	claimRepo    claim.ClaimRepository
	employeeRepo employee.EmployeeRepository
	companyRepo  company.CompanyRepository
	gatherer     *Gatherer
	publisher    events.Publisher
	notifier     Notifier
	workers      int
	now          func() time.Time
}

func NewRunService(
	tx database.Transactor,
	runRepo payroll.RunRepository,
	itemRepo payroll.ItemRepository,
	auditRepo payroll.AuditRepository,
	claimRepo claim.ClaimRepository,
	employeeRepo employee.EmployeeRepository,
	companyRepo company.CompanyRepository,
	gatherer *Gatherer,
	publisher events.Publisher,
	notifier Notifier,
	workers int,
) *RunServiceImpl {
	if workers <= 0 {
		workers = defaultWorkers
	}
	return &RunServiceImpl{
		tx:           tx,
		runRepo:      runRepo,
		itemRepo:     itemRepo,
		auditRepo:    auditRepo,
		claimRepo:    claimRepo,
		employeeRepo: employeeRepo,
		companyRepo:  companyRepo,
		gatherer:     gatherer,
		publisher:    publisher,
		notifier:     notifier,
		workers:      workers,
		now:          time.Now,
	}
}

func (s *RunServiceImpl) manager(ctx context.Context) (jwt.Claims, error) {
	caller, err := jwt.ClaimsFromContext(ctx)
	if err != nil {
		return jwt.Claims{}, err
	}
	if err := caller.RequireManager(); err != nil {
		return jwt.Claims{}, err
	}
	return caller, nil
}

// Create implements payroll.RunService.
func (s *RunServiceImpl) Create(ctx context.Context, req payroll.CreateRunRequest) (payroll.RunResponse, error) {
	if err := req.Validate(); err != nil {
		return payroll.RunResponse{}, err
	}
	caller, err := s.manager(ctx)
	if err != nil {
		return payroll.RunResponse{}, err
	}
	if req.CompanyID != caller.CompanyID {
		return payroll.RunResponse{}, jwt.ErrTenantMismatch
	}

	var run payroll.Run
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.runRepo.LockPeriod(ctx, req.CompanyID, req.Month, req.Year); err != nil {
			return err
		}
		existing, err := s.runRepo.GetOpenByPeriod(ctx, req.CompanyID, req.Month, req.Year)
		if err == nil {
			return &payroll.RunExistsError{CompanyID: req.CompanyID, Month: req.Month, Year: req.Year, RunID: existing.ID}
		}
		if !errors.Is(err, payroll.ErrRunNotFound) {
			return err
		}

		run, err = s.runRepo.Create(ctx, payroll.Run{
			CompanyID: req.CompanyID,
			Month:     req.Month,
			Year:      req.Year,
			Status:    payroll.RunStatusDraft,
			Totals:    payroll.Summarize(nil),
			CreatedBy: caller.UserID,
		})
		if err != nil {
			return err
		}
		return s.audit(ctx, run, nil, payroll.AuditRunCreated, caller.UserID, nil, nil)
	})
	if err != nil {
		return payroll.RunResponse{}, err
	}

	slog.Info("payroll run created", "run_id", run.ID, "company_id", run.CompanyID, "month", run.Month, "year", run.Year)
	s.emit(ctx, events.PayrollRunCreated, run, nil)
	return payroll.NewRunResponse(run), nil
}

// Get implements payroll.RunService.
func (s *RunServiceImpl) Get(ctx context.Context, runID string) (payroll.RunResponse, error) {
	caller, err := s.manager(ctx)
	if err != nil {
		return payroll.RunResponse{}, err
	}
	run, err := s.runRepo.GetByID(ctx, runID, caller.CompanyID)
	if err != nil {
		return payroll.RunResponse{}, err
	}
	return payroll.NewRunResponse(run), nil
}

// transition runs apply under the run's row lock, moves the run to the
// target status and writes the audit entry, all in one transaction. Only
// one transition per run can be in flight.
func (s *RunServiceImpl) transition(
	ctx context.Context,
	caller jwt.Claims,
	runID string,
	to payroll.RunStatus,
	action string,
	auditAction payroll.AuditAction,
	apply func(ctx context.Context, run *payroll.Run) (interface{}, error),
) (payroll.Run, error) {
	var run payroll.Run
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		run, err = s.runRepo.GetByIDForUpdate(ctx, runID, caller.CompanyID)
		if err != nil {
			return err
		}
		if !run.Status.CanBecome(to) {
			return &payroll.TransitionError{RunID: run.ID, From: run.Status, Action: action}
		}

		var detail interface{}
		if apply != nil {
			if detail, err = apply(ctx, &run); err != nil {
				return err
			}
		}

		run.Status = to
		if err := s.runRepo.Update(ctx, run); err != nil {
			return fmt.Errorf("failed to update payroll run: %w", err)
		}
		return s.audit(ctx, run, nil, auditAction, caller.UserID, detail, nil)
	})
	return run, err
}

func (s *RunServiceImpl) audit(ctx context.Context, run payroll.Run, itemID *string, action payroll.AuditAction, actor string, detail interface{}, snapshot []byte) error {
	var raw json.RawMessage
	if detail != nil {
		b, err := json.Marshal(detail)
		if err != nil {
			return fmt.Errorf("failed to encode audit detail: %w", err)
		}
		raw = b
	}
	err := s.auditRepo.Append(ctx, payroll.AuditEntry{
		CompanyID: run.CompanyID,
		RunID:     run.ID,
		ItemID:    itemID,
		Action:    action,
		ActorID:   actor,
		Detail:    raw,
		Snapshot:  snapshot,
		CreatedAt: s.now(),
	})
	if err != nil {
		return fmt.Errorf("failed to write audit entry: %w", err)
	}
	return nil
}

func (s *RunServiceImpl) emit(ctx context.Context, t events.EventType, run payroll.Run, payload interface{}) {
	if payload == nil {
		payload = map[string]interface{}{
			"status": run.Status,
			"month":  run.Month,
			"year":   run.Year,
			"totals": run.Totals,
		}
	}
	s.publisher.Publish(ctx, events.Event{
		Type:        t,
		CompanyID:   run.CompanyID,
		AggregateID: run.ID,
		OccurredAt:  s.now(),
		Payload:     payload,
	})
}

func (s *RunServiceImpl) notify(runID, name string, data interface{}) {
	if s.notifier == nil {
		return
	}
	s.notifier.Publish(payroll.RunTopic(runID), sse.Event{Event: name, Data: data})
}

// Generate implements payroll.RunService. The run row stays locked while
// employees are computed in parallel, each in its own transaction, so a
// failure on one employee never rolls back another.
func (s *RunServiceImpl) Generate(ctx context.Context, runID string, progress func(payroll.Progress)) (payroll.GenerateResponse, error) {
	caller, err := s.manager(ctx)
	if err != nil {
		return payroll.GenerateResponse{}, err
	}

	var items []payroll.Item
	run, err := s.transition(ctx, caller, runID, payroll.RunStatusDraft, "generate", payroll.AuditRunGenerated,
		func(txCtx context.Context, run *payroll.Run) (interface{}, error) {
			comp, err := s.companyRepo.GetByID(txCtx, run.CompanyID)
			if err != nil {
				return nil, err
			}
			employees, err := s.employeeRepo.ListForPeriod(txCtx, run.CompanyID, run.PeriodStart(), run.PeriodEnd())
			if err != nil {
				return nil, fmt.Errorf("failed to list employees: %w", err)
			}

			// Workers get the caller's ctx, not txCtx, so each opens its own transaction.
			items, err = s.generateAll(ctx, *run, comp, employees, progress)
			if err != nil {
				return nil, err
			}

			removed, err := s.dropStaleItems(txCtx, run.ID, employees)
			if err != nil {
				return nil, err
			}
			current, err := s.itemRepo.ListByRun(txCtx, run.ID)
			if err != nil {
				return nil, err
			}
			run.Totals = payroll.Summarize(current)
			return map[string]interface{}{"totals": run.Totals, "items_removed": removed}, nil
		})
	if err != nil {
		return payroll.GenerateResponse{}, err
	}

	resp := payroll.GenerateResponse{RunID: run.ID, Totals: run.Totals, Items: make([]payroll.GeneratedItem, 0, len(items))}
	for _, it := range items {
		warnings := it.Warnings
		if warnings == nil {
			warnings = []string{}
		}
		resp.Items = append(resp.Items, payroll.GeneratedItem{
			EmployeeID: it.EmployeeID,
			Status:     string(it.Status),
			Gross:      it.Gross,
			Net:        it.NetPay,
			Warnings:   warnings,
		})
	}

	slog.Info("payroll run generated",
		"run_id", run.ID,
		"company_id", run.CompanyID,
		"employees", run.Totals.Employees,
		"failed", run.Totals.Failed,
		"flagged", run.Totals.Flagged,
	)
	s.notify(run.ID, "completed", resp.Totals)
	s.emit(ctx, events.PayrollRunGenerated, run, nil)
	return resp, nil
}

func (s *RunServiceImpl) generateAll(ctx context.Context, run payroll.Run, comp company.Company, employees []employee.Employee, progress func(payroll.Progress)) ([]payroll.Item, error) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	var mu sync.Mutex
	results := make([]payroll.Item, len(employees))
	done := 0

	for i, emp := range employees {
		g.Go(func() error {
			item, err := s.generateOne(gctx, run, comp, emp)
			if err != nil {
				return fmt.Errorf("employee %s: %w", emp.ID, err)
			}

			mu.Lock()
			defer mu.Unlock()
			results[i] = item
			done++
			p := payroll.Progress{
				RunID:      run.ID,
				Done:       done,
				Total:      len(employees),
				EmployeeID: emp.ID,
				Status:     string(item.Status),
			}
			s.notify(run.ID, "progress", p)
			if progress != nil {
				progress(p)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// dropStaleItems deletes the items of employees no longer in the period,
// releasing their claims.
func (s *RunServiceImpl) dropStaleItems(ctx context.Context, runID string, employees []employee.Employee) (int, error) {
	current := make(map[string]bool, len(employees))
	for _, emp := range employees {
		current[emp.ID] = true
	}

	items, err := s.itemRepo.ListByRun(ctx, runID)
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, it := range items {
		if current[it.EmployeeID] {
			continue
		}
		if err := s.claimRepo.UnlinkItem(ctx, it.ID); err != nil {
			return 0, fmt.Errorf("failed to unlink claims: %w", err)
		}
		if err := s.itemRepo.Delete(ctx, it.ID); err != nil {
			return 0, fmt.Errorf("failed to delete payroll item: %w", err)
		}
		slog.Info("payroll item removed", "run_id", runID, "employee_id", it.EmployeeID)
		removed++
	}
	return removed, nil
}

// generateOne recomputes one employee's item. Claims linked to a previous
// version of the item are released first so they are picked up again.
func (s *RunServiceImpl) generateOne(ctx context.Context, run payroll.Run, comp company.Company, emp employee.Employee) (payroll.Item, error) {
	var saved payroll.Item
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		existing, err := s.itemRepo.GetByRunEmployee(ctx, run.ID, emp.ID)
		switch {
		case err == nil:
			if err := s.claimRepo.UnlinkItem(ctx, existing.ID); err != nil {
				return fmt.Errorf("failed to unlink claims: %w", err)
			}
		case !errors.Is(err, payroll.ErrItemNotFound):
			return err
		}

		item, err := s.build(ctx, run, comp, emp)
		if err != nil {
			return err
		}
		item.ID = existing.ID

		saved, err = s.itemRepo.Upsert(ctx, item)
		if err != nil {
			return fmt.Errorf("failed to save payroll item: %w", err)
		}
		if len(saved.ClaimIDs) > 0 {
			if err := s.claimRepo.LinkToItem(ctx, saved.ClaimIDs, saved.ID); err != nil {
				return fmt.Errorf("failed to link claims: %w", err)
			}
		}
		return nil
	})
	return saved, err
}

func (s *RunServiceImpl) build(ctx context.Context, run payroll.Run, comp company.Company, emp employee.Employee) (payroll.Item, error) {
	in, err := s.gatherer.Gather(ctx, run, comp, emp)
	if err == nil {
		var item payroll.Item
		if item, err = Build(in); err == nil {
			return item, nil
		}
	}
	if !payroll.IsItemFailure(err) {
		return payroll.Item{}, err
	}

	slog.Warn("payroll item failed", "run_id", run.ID, "employee_id", emp.ID, "error", err)
	return payroll.Item{
		RunID:         run.ID,
		CompanyID:     run.CompanyID,
		EmployeeID:    emp.ID,
		Status:        payroll.ItemStatusFailed,
		FailureReason: err.Error(),
		Warnings:      []string{err.Error()},
	}, nil
}

// Approve implements payroll.RunService. Every item is frozen: its
// snapshot goes to the audit trail and its hash onto the item.
func (s *RunServiceImpl) Approve(ctx context.Context, runID string) (payroll.RunResponse, error) {
	caller, err := s.manager(ctx)
	if err != nil {
		return payroll.RunResponse{}, err
	}

	run, err := s.transition(ctx, caller, runID, payroll.RunStatusApproved, "approve", payroll.AuditRunApproved,
		func(ctx context.Context, run *payroll.Run) (interface{}, error) {
			items, err := s.itemRepo.ListByRun(ctx, run.ID)
			if err != nil {
				return nil, err
			}
			if len(items) == 0 {
				return nil, payroll.ErrRunHasNoItems
			}
			for _, it := range items {
				if it.Status == payroll.ItemStatusFailed {
					return nil, payroll.ErrRunHasFailedItems
				}
			}

			for _, it := range items {
				snapshot, err := it.Snapshot()
				if err != nil {
					return nil, fmt.Errorf("failed to snapshot payroll item: %w", err)
				}
				if err := s.itemRepo.Lock(ctx, it.ID, payroll.HashSnapshot(snapshot)); err != nil {
					return nil, fmt.Errorf("failed to lock payroll item: %w", err)
				}
				itemID := it.ID
				if err := s.audit(ctx, *run, &itemID, payroll.AuditItemLocked, caller.UserID, nil, snapshot); err != nil {
					return nil, err
				}
			}

			now := s.now()
			approver := caller.UserID
			run.ApprovedBy = &approver
			run.ApprovedAt = &now
			return map[string]int{"items": len(items)}, nil
		})
	if err != nil {
		return payroll.RunResponse{}, err
	}

	slog.Info("payroll run approved", "run_id", run.ID, "company_id", run.CompanyID, "approved_by", caller.UserID)
	s.emit(ctx, events.PayrollRunApproved, run, nil)
	return payroll.NewRunResponse(run), nil
}

// Lock implements payroll.RunService.
func (s *RunServiceImpl) Lock(ctx context.Context, runID string) (payroll.RunResponse, error) {
	caller, err := s.manager(ctx)
	if err != nil {
		return payroll.RunResponse{}, err
	}

	run, err := s.transition(ctx, caller, runID, payroll.RunStatusLocked, "lock", payroll.AuditRunLocked,
		func(ctx context.Context, run *payroll.Run) (interface{}, error) {
			now := s.now()
			run.LockedAt = &now
			return nil, nil
		})
	if err != nil {
		return payroll.RunResponse{}, err
	}

	slog.Info("payroll run locked", "run_id", run.ID, "company_id", run.CompanyID)
	s.emit(ctx, events.PayrollRunLocked, run, nil)
	return payroll.NewRunResponse(run), nil
}

// Pay implements payroll.RunService. Amounts are not recomputed.
func (s *RunServiceImpl) Pay(ctx context.Context, runID string, req payroll.PayRunRequest) (payroll.RunResponse, error) {
	if err := req.Validate(); err != nil {
		return payroll.RunResponse{}, err
	}
	caller, err := s.manager(ctx)
	if err != nil {
		return payroll.RunResponse{}, err
	}

	run, err := s.transition(ctx, caller, runID, payroll.RunStatusPaid, "pay", payroll.AuditRunPaid,
		func(ctx context.Context, run *payroll.Run) (interface{}, error) {
			run.Payment = &payroll.Payment{
				Reference: req.Reference,
				Method:    req.Method,
				PaidAt:    req.PaidAtOr(s.now()),
				PaidBy:    caller.UserID,
			}
			if err := s.claimRepo.MarkPaidByRun(ctx, run.ID); err != nil {
				return nil, fmt.Errorf("failed to mark claims paid: %w", err)
			}
			return run.Payment, nil
		})
	if err != nil {
		return payroll.RunResponse{}, err
	}

	slog.Info("payroll run paid", "run_id", run.ID, "company_id", run.CompanyID, "reference", req.Reference)
	s.emit(ctx, events.PayrollRunPaid, run, nil)
	return payroll.NewRunResponse(run), nil
}

// clearItems deletes every item of the run and releases their claims.
func (s *RunServiceImpl) clearItems(ctx context.Context, run *payroll.Run) (interface{}, error) {
	items, err := s.itemRepo.ListByRun(ctx, run.ID)
	if err != nil {
		return nil, err
	}
	for _, it := range items {
		if err := s.claimRepo.UnlinkItem(ctx, it.ID); err != nil {
			return nil, fmt.Errorf("failed to unlink claims: %w", err)
		}
	}
	deleted, err := s.itemRepo.DeleteByRun(ctx, run.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to delete payroll items: %w", err)
	}
	run.Totals = payroll.Summarize(nil)
	return map[string]int64{"items_cleared": deleted}, nil
}

// Reopen implements payroll.RunService. Only a draft can be reopened; an
// approved period needs a new run.
func (s *RunServiceImpl) Reopen(ctx context.Context, runID string) (payroll.RunResponse, error) {
	caller, err := s.manager(ctx)
	if err != nil {
		return payroll.RunResponse{}, err
	}

	run, err := s.transition(ctx, caller, runID, payroll.RunStatusDraft, "reopen", payroll.AuditRunReopened, s.clearItems)
	if err != nil {
		return payroll.RunResponse{}, err
	}

	slog.Info("payroll run reopened", "run_id", run.ID, "company_id", run.CompanyID)
	s.emit(ctx, events.PayrollRunReopened, run, nil)
	return payroll.NewRunResponse(run), nil
}

// Cancel implements payroll.RunService. The period becomes free for a new run.
func (s *RunServiceImpl) Cancel(ctx context.Context, runID string) (payroll.RunResponse, error) {
	caller, err := s.manager(ctx)
	if err != nil {
		return payroll.RunResponse{}, err
	}

	run, err := s.transition(ctx, caller, runID, payroll.RunStatusCancelled, "cancel", payroll.AuditRunCancelled, s.clearItems)
	if err != nil {
		return payroll.RunResponse{}, err
	}

	slog.Info("payroll run cancelled", "run_id", run.ID, "company_id", run.CompanyID)
	s.emit(ctx, events.PayrollRunCancelled, run, nil)
	return payroll.NewRunResponse(run), nil
}

// Relink implements payroll.RunService. Approved claims that arrived after
// generation are added to the employees' items without recomputing the
// rest of the payslip; claims sit outside every contribution wage.
func (s *RunServiceImpl) Relink(ctx context.Context, runID string, req payroll.RelinkRequest) (payroll.RelinkResponse, error) {
	if err := req.Validate(); err != nil {
		return payroll.RelinkResponse{}, err
	}
	caller, err := s.manager(ctx)
	if err != nil {
		return payroll.RelinkResponse{}, err
	}

	var resp payroll.RelinkResponse
	run, err := s.transition(ctx, caller, runID, payroll.RunStatusDraft, "relink", payroll.AuditRunRelinked,
		func(ctx context.Context, run *payroll.Run) (interface{}, error) {
			deltas := make([]payroll.RelinkDelta, 0, len(req.EmployeeIDs))
			for _, employeeID := range req.EmployeeIDs {
				d, err := s.relinkEmployee(ctx, *run, employeeID)
				if err != nil {
					return nil, err
				}
				if d != nil {
					deltas = append(deltas, *d)
				}
			}

			items, err := s.itemRepo.ListByRun(ctx, run.ID)
			if err != nil {
				return nil, err
			}
			run.Totals = payroll.Summarize(items)
			resp = payroll.RelinkResponse{Deltas: deltas, Totals: run.Totals}
			return deltas, nil
		})
	if err != nil {
		return payroll.RelinkResponse{}, err
	}

	slog.Info("payroll claims relinked", "run_id", run.ID, "company_id", run.CompanyID, "employees", len(resp.Deltas))
	return resp, nil
}

func (s *RunServiceImpl) relinkEmployee(ctx context.Context, run payroll.Run, employeeID string) (*payroll.RelinkDelta, error) {
	item, err := s.itemRepo.GetByRunEmployee(ctx, run.ID, employeeID)
	if err != nil {
		return nil, err
	}
	if item.Status != payroll.ItemStatusComputed {
		return nil, payroll.ErrItemNotRelinkable
	}

	claims, err := s.claimRepo.ListApprovedUnlinked(ctx, employeeID, run.PeriodEnd())
	if err != nil {
		return nil, fmt.Errorf("failed to list approved claims: %w", err)
	}
	if len(claims) == 0 {
		return nil, nil
	}

	delta := decimal.Zero
	ids := make([]string, 0, len(claims))
	for _, c := range claims {
		delta = delta.Add(c.Amount)
		ids = append(ids, c.ID)
	}

	item.Earnings.Claims = item.Earnings.Claims.Add(delta)
	item.Gross = item.Gross.Add(delta)
	item.NetPay = item.NetPay.Add(delta)
	item.ClaimIDs = append(item.ClaimIDs, ids...)

	saved, err := s.itemRepo.Upsert(ctx, item)
	if err != nil {
		return nil, fmt.Errorf("failed to save payroll item: %w", err)
	}
	if err := s.claimRepo.LinkToItem(ctx, ids, saved.ID); err != nil {
		return nil, fmt.Errorf("failed to link claims: %w", err)
	}

	return &payroll.RelinkDelta{
		EmployeeID:  employeeID,
		ClaimIDs:    ids,
		ClaimsDelta: delta,
		Gross:       saved.Gross,
		Net:         saved.NetPay,
	}, nil
}

// ListItems implements payroll.RunService.
func (s *RunServiceImpl) ListItems(ctx context.Context, runID string) ([]payroll.ItemResponse, error) {
	caller, err := s.manager(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := s.runRepo.GetByID(ctx, runID, caller.CompanyID); err != nil {
		return nil, err
	}

	items, err := s.itemRepo.ListByRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	resp := make([]payroll.ItemResponse, 0, len(items))
	for _, it := range items {
		resp = append(resp, payroll.NewItemResponse(it))
	}
	return resp, nil
}

// VerifyItem implements payroll.RunService. A locked item must serialize
// to exactly the bytes stored when it was locked.
func (s *RunServiceImpl) VerifyItem(ctx context.Context, itemID string) error {
	caller, err := s.manager(ctx)
	if err != nil {
		return err
	}
	item, err := s.itemRepo.GetByID(ctx, itemID, caller.CompanyID)
	if err != nil {
		return err
	}
	if item.Status != payroll.ItemStatusLocked {
		return payroll.ErrSnapshotNotFound
	}

	entry, err := s.auditRepo.LatestItemSnapshot(ctx, item.ID)
	if err != nil {
		return err
	}
	current, err := item.Snapshot()
	if err != nil {
		return fmt.Errorf("failed to snapshot payroll item: %w", err)
	}
	if !bytes.Equal(current, entry.Snapshot) || item.SnapshotHash == nil || *item.SnapshotHash != payroll.HashSnapshot(current) {
		slog.Error("payroll item snapshot mismatch", "item_id", item.ID, "run_id", item.RunID)
		return payroll.ErrSnapshotMismatch
	}
	return nil
}

var _ payroll.RunService = (*RunServiceImpl)(nil)
