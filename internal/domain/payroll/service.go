package payroll

import "context"

type RunService interface {
	Create(ctx context.Context, req CreateRunRequest) (RunResponse, error)
	Get(ctx context.Context, runID string) (RunResponse, error)
	// Generate computes every item of a draft run. progress, when non-nil,
	// is called once per employee from the generating goroutines.
	Generate(ctx context.Context, runID string, progress func(Progress)) (GenerateResponse, error)
	Approve(ctx context.Context, runID string) (RunResponse, error)
	Lock(ctx context.Context, runID string) (RunResponse, error)
	Pay(ctx context.Context, runID string, req PayRunRequest) (RunResponse, error)
	Reopen(ctx context.Context, runID string) (RunResponse, error)
	Cancel(ctx context.Context, runID string) (RunResponse, error)
	Relink(ctx context.Context, runID string, req RelinkRequest) (RelinkResponse, error)
	ListItems(ctx context.Context, runID string) ([]ItemResponse, error)
	VerifyItem(ctx context.Context, itemID string) error
}

type InputService interface {
	Get(ctx context.Context, employeeID string, month, year int) (InputsResponse, error)
	Upsert(ctx context.Context, req UpsertInputsRequest) (InputsResponse, error)
}
