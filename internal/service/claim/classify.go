package claim

import (
	"encoding/hex"
	"strings"

	"github.com/cmlabs-hris/hrms-payroll-go/internal/domain/claim"
	"github.com/cmlabs-hris/hrms-payroll-go/internal/domain/company"
	"golang.org/x/crypto/blake2b"
)

// Facts is everything the classifier looks at.
type Facts struct {
	Claim                  claim.Claim
	Extraction             claim.Extraction
	Duplicate              bool
	Policy                 company.ClaimsPolicy
	OutstationMealEligible bool
}

// Classify decides how a claim should be handled. It never fails; every
// outcome, including a duplicate receipt, is a verdict.
func Classify(f Facts) claim.Verdict {
	v := claim.Verdict{
		Warnings:       f.Extraction.Warnings,
		DetectedAmount: f.Extraction.Amount,
	}
	amount := f.Claim.Amount

	if f.Duplicate {
		v.Decision, v.Reason = claim.DecisionReject, claim.ReasonDuplicateReceipt
		return v
	}

	if f.Claim.Category == claim.CategoryMeal && f.OutstationMealEligible &&
		!amount.GreaterThan(f.Policy.OutstationMealCap) {
		v.Decision, v.Reason = claim.DecisionAutoApprove, claim.ReasonOutstationMeal
		return v
	}

	v.Decision = claim.DecisionManual
	switch {
	case !amountMatches(f):
		v.Reason = claim.ReasonAmountMismatch
	case strings.TrimSpace(f.Extraction.Merchant) == "":
		v.Reason = claim.ReasonMerchantMissing
	case !contains(f.Policy.AutoApproveCategories, f.Claim.Category):
		v.Reason = claim.ReasonCategoryNotAuto
	case exceedsCap(f):
		v.Reason = claim.ReasonExceedsCategoryCap
	default:
		v.Decision, v.Reason = claim.DecisionAutoApprove, claim.ReasonVerified
	}
	return v
}

func amountMatches(f Facts) bool {
	if f.Extraction.Amount == nil {
		return false
	}
	limit := f.Claim.Amount.Mul(f.Policy.AmountTolerance).Abs()
	return f.Extraction.Amount.Sub(f.Claim.Amount).Abs().LessThanOrEqual(limit)
}

func exceedsCap(f Facts) bool {
	limit, ok := f.Policy.CategoryCaps[f.Claim.Category]
	return ok && f.Claim.Amount.GreaterThan(limit)
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

// Fingerprint identifies a receipt. The extractor's own fingerprint wins;
// otherwise a BLAKE2b digest of the receipt's identifying fields is used.
// An empty result means the receipt cannot be identified.
func Fingerprint(c claim.Claim, ext claim.Extraction) string {
	if ext.Fingerprint != "" {
		return ext.Fingerprint
	}
	merchant := strings.ToLower(strings.Join(strings.Fields(ext.Merchant), " "))
	if merchant == "" && ext.ReceiptNumber == "" {
		return ""
	}

	amount := c.Amount
	if ext.Amount != nil {
		amount = *ext.Amount
	}
	date := ext.ReceiptDate
	if date == "" {
		date = c.ClaimDate.Format("2006-01-02")
	}

	sum := blake2b.Sum256([]byte(strings.Join([]string{merchant, date, amount.StringFixed(2), strings.TrimSpace(ext.ReceiptNumber)}, "|")))
	return hex.EncodeToString(sum[:])
}
