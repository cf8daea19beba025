package attendance

import "context"

type AttendanceService interface {
	Clock(ctx context.Context, req ClockRequest) (ClockResponse, error)
	ReviewOvertime(ctx context.Context, recordID string, approve bool) (ClockRecordResponse, error)
}
