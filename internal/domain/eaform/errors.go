package eaform

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrFormNotFound  = errors.New("EA form not found")
	ErrNoPaidPayroll = errors.New("employee has no paid payroll in the year")
)

// YearNotFinalizedError is returned when a run of the year is still draft.
type YearNotFinalizedError struct {
	Year      int
	DraftRuns []string
}

func (e *YearNotFinalizedError) Error() string {
	return fmt.Sprintf("payroll for %d is not finalized: draft runs %s", e.Year, strings.Join(e.DraftRuns, ", "))
}
