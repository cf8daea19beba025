package leave

import (
	"context"

	"github.com/shopspring/decimal"
)

type LeaveService interface {
	Initialize(ctx context.Context, req InitializeBalancesRequest) ([]BalanceResponse, error)
	Request(ctx context.Context, req CreateLeaveRequestRequest) (LeaveRequestResponse, error)
	Approve(ctx context.Context, requestID string) (LeaveRequestResponse, error)
	Reject(ctx context.Context, requestID string, req RejectLeaveRequestRequest) (LeaveRequestResponse, error)
	Cancel(ctx context.Context, requestID string) (LeaveRequestResponse, error)
}

// UnpaidLeaveCounter is consumed by payroll.
type UnpaidLeaveCounter interface {
	UnpaidLeaveDaysInPeriod(ctx context.Context, companyID, employeeID string, month, year int) (decimal.Decimal, error)
}
