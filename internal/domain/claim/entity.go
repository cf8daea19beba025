package claim

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
	StatusPaid     Status = "paid"
)

func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusPending, StatusApproved, StatusRejected, StatusPaid:
		return Status(s), nil
	}
	return "", fmt.Errorf("unknown claim status %q", s)
}

// CategoryMeal is the category the outstation meal allowance applies to.
const CategoryMeal = "meal"

type Claim struct {
	ID          string
	CompanyID   string
	EmployeeID  string
	Category    string
	Amount      decimal.Decimal
	ClaimDate   time.Time
	ReceiptRef  string
	Fingerprint *string

	Status       Status
	AutoApproved bool
	// LinkedPayrollItemID is the denormalized back-pointer of the payroll
	// item that paid this claim.
	LinkedPayrollItemID *string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Extraction is what the receipt reader found on the uploaded receipt.
type Extraction struct {
	Amount        *decimal.Decimal `json:"amount,omitempty"`
	Merchant      string           `json:"merchant,omitempty"`
	ReceiptDate   string           `json:"receipt_date,omitempty"`
	ReceiptNumber string           `json:"receipt_number,omitempty"`
	Fingerprint   string           `json:"fingerprint,omitempty"`
	Warnings      []string         `json:"warnings,omitempty"`
}

type Decision string

const (
	DecisionAutoApprove Decision = "auto_approve"
	DecisionManual      Decision = "manual"
	DecisionReject      Decision = "reject"
)

// Reasons reported with a decision.
const (
	ReasonDuplicateReceipt    = "duplicate_receipt"
	ReasonVerified            = "receipt_verified"
	ReasonOutstationMeal      = "outstation_meal_allowance"
	ReasonAmountMismatch      = "amount_mismatch"
	ReasonMerchantMissing     = "merchant_missing"
	ReasonCategoryNotAuto     = "category_not_auto_approved"
	ReasonExceedsCategoryCap  = "exceeds_category_cap"
	ReasonVerifierUnavailable = "verifier_unavailable"
	ReasonNoExtraction        = "no_extraction"
	ReasonAlreadyDecided      = "claim_already_decided"
)

// Verdict is the advisory outcome of verifying a claim.
type Verdict struct {
	Decision       Decision         `json:"decision"`
	Reason         string           `json:"reason"`
	Warnings       []string         `json:"warnings,omitempty"`
	DetectedAmount *decimal.Decimal `json:"detected_amount,omitempty"`
	Fingerprint    string           `json:"fingerprint,omitempty"`
}
