package company

import "errors"

var (
	ErrCompanyNotFound  = errors.New("company not found")
	ErrGroupingNotFound = errors.New("department or outlet not found")
)
