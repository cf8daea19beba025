package claim

import "github.com/cmlabs-hris/hrms-payroll-go/internal/pkg/validator"

type VerifyClaimRequest struct {
	// Extracted is optional; without it the receipt service is consulted.
	Extracted *Extraction `json:"extracted,omitempty"`
}

func (r VerifyClaimRequest) Validate() error {
	if r.Extracted == nil || r.Extracted.Amount == nil {
		return nil
	}
	if r.Extracted.Amount.IsNegative() {
		return validator.ValidationErrors{{Field: "extracted.amount", Message: "must be non-negative"}}
	}
	return nil
}
