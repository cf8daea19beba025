package eaform

import "context"

type EAFormService interface {
	Generate(ctx context.Context, req GenerateRequest) (GenerateResponse, error)
	Get(ctx context.Context, year int, employeeID string) (FormResponse, error)
}
