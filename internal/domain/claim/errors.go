package claim

import "errors"

var (
	ErrClaimNotFound       = errors.New("claim not found")
	ErrVerifierUnavailable = errors.New("receipt verifier unavailable")
)
