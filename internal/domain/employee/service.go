package employee

import (
	"context"
	"time"
)

type LifecycleService interface {
	// DeactivateResigned closes out employees whose last working day has
	// passed and returns how many were processed.
	DeactivateResigned(ctx context.Context, asOf time.Time) (int, error)
}
