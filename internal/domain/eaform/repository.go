package eaform

import "context"

type FormRepository interface {
	Get(ctx context.Context, companyID, employeeID string, year int) (Form, error)
	// Upsert writes the form keyed by (employee, year).
	Upsert(ctx context.Context, form Form) (Form, error)
}
