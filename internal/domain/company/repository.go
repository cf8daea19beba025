package company

import "context"

type CompanyRepository interface {
	GetByID(ctx context.Context, id string) (Company, error)
	ListAll(ctx context.Context) ([]Company, error)
	UpdateSettings(ctx context.Context, id string, settings Settings) error
}

type GroupingRepository interface {
	GetByID(ctx context.Context, id string, companyID string) (Grouping, error)
}
