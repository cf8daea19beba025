package payroll

import (
	"errors"
	"fmt"

	"github.com/cmlabs-hris/hrms-payroll-go/internal/domain/attendance"
	"github.com/cmlabs-hris/hrms-payroll-go/internal/domain/employee"
	"github.com/cmlabs-hris/hrms-payroll-go/internal/domain/statutory"
)

var (
	ErrRunNotFound         = errors.New("payroll run not found")
	ErrItemNotFound        = errors.New("payroll item not found")
	ErrInputsNotFound      = errors.New("payroll inputs not found")
	ErrRunHasFailedItems   = errors.New("payroll run has failed items")
	ErrRunHasNoItems       = errors.New("payroll run has no items")
	ErrSnapshotNotFound    = errors.New("payroll item snapshot not found")
	ErrSnapshotMismatch    = errors.New("payroll item differs from its locked snapshot")
	ErrItemNotRelinkable   = errors.New("payroll item cannot be relinked")
	ErrInvalidPeriod       = errors.New("invalid payroll period")
	ErrPayrollLockedPeriod = errors.New("payroll for this period is already approved")
)

// RunExistsError is returned when an open run already covers the period.
type RunExistsError struct {
	CompanyID string
	Month     int
	Year      int
	RunID     string
}

func (e *RunExistsError) Error() string {
	return fmt.Sprintf("payroll run for %04d-%02d already exists", e.Year, e.Month)
}

// TransitionError is returned when an operation is not allowed from the
// run's current status.
type TransitionError struct {
	RunID  string
	From   RunStatus
	Action string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot %s a payroll run in status %s", e.Action, e.From)
}

// ConfigurationError means the company or grouping setup cannot produce
// an item, e.g. no payroll structure.
type ConfigurationError struct {
	Detail string
}

func (e *ConfigurationError) Error() string {
	return "payroll configuration error: " + e.Detail
}

// DataInconsistencyError means a source record disagrees with itself.
type DataInconsistencyError struct {
	Source string
	Detail string
}

func (e *DataInconsistencyError) Error() string {
	return fmt.Sprintf("inconsistent %s: %s", e.Source, e.Detail)
}

// IsItemFailure reports whether err marks a single item failed rather than
// aborting the run.
func IsItemFailure(err error) bool {
	var (
		cfgErr   *ConfigurationError
		dataErr  *DataInconsistencyError
		attErr   *attendance.DataInconsistencyError
		tableErr *statutory.MissingRateTableError
		ageErr   *statutory.InvalidAgeError
	)
	return errors.As(err, &cfgErr) ||
		errors.As(err, &dataErr) ||
		errors.As(err, &attErr) ||
		errors.As(err, &tableErr) ||
		errors.As(err, &ageErr) ||
		errors.Is(err, employee.ErrInvalidIC)
}
