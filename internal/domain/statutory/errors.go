package statutory

import (
	"fmt"
	"time"
)

type MissingRateTableError struct {
	Kind Kind
	Date time.Time
}

func (e *MissingRateTableError) Error() string {
	return fmt.Sprintf("no %s rate table effective on %s", e.Kind, e.Date.Format("2006-01-02"))
}

type InvalidAgeError struct {
	Age int
}

func (e *InvalidAgeError) Error() string {
	return fmt.Sprintf("invalid age %d", e.Age)
}
