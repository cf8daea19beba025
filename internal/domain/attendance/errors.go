package attendance

import (
	"errors"
	"fmt"
)

var (
	ErrClockRecordNotFound = errors.New("clock record not found")
	ErrScheduleNotFound    = errors.New("schedule not found")
	ErrAlreadyClockedOut   = errors.New("already clocked out for this date")
	ErrNoOvertime          = errors.New("record has no overtime to review")
	ErrInvalidClockAction  = errors.New("clock action does not match the record state")
)

// DataInconsistencyError marks a source record that cannot be trusted for
// pay until an operator corrects it.
type DataInconsistencyError struct {
	RecordID string
	Detail   string
}

func (e *DataInconsistencyError) Error() string {
	if e.RecordID == "" {
		return fmt.Sprintf("inconsistent attendance data: %s", e.Detail)
	}
	return fmt.Sprintf("inconsistent attendance record %s: %s", e.RecordID, e.Detail)
}
