package claim

import (
	"testing"
	"time"

	"github.com/cmlabs-hris/hrms-payroll-go/internal/domain/claim"
	"github.com/cmlabs-hris/hrms-payroll-go/internal/domain/company"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func amt(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func policy() company.ClaimsPolicy {
	p := company.DefaultSettings().Claims
	p.AutoApproveCategories = []string{"parking", "meal"}
	p.CategoryCaps = map[string]decimal.Decimal{"parking": decimal.NewFromInt(50)}
	return p
}

func TestClassify(t *testing.T) {
	parking := claim.Claim{Category: "parking", Amount: decimal.RequireFromString("40.00")}
	meal := claim.Claim{Category: "meal", Amount: decimal.RequireFromString("18.00")}

	tests := []struct {
		name     string
		facts    Facts
		decision claim.Decision
		reason   string
	}{
		{
			name:     "verified receipt",
			facts:    Facts{Claim: parking, Extraction: claim.Extraction{Amount: amt("40.30"), Merchant: "KLCC Parking"}},
			decision: claim.DecisionAutoApprove, reason: claim.ReasonVerified,
		},
		{
			name:     "duplicate wins over everything",
			facts:    Facts{Claim: meal, Duplicate: true, OutstationMealEligible: true, Extraction: claim.Extraction{Amount: amt("18"), Merchant: "Kedai"}},
			decision: claim.DecisionReject, reason: claim.ReasonDuplicateReceipt,
		},
		{
			name:     "amount beyond one percent",
			facts:    Facts{Claim: parking, Extraction: claim.Extraction{Amount: amt("40.41"), Merchant: "KLCC Parking"}},
			decision: claim.DecisionManual, reason: claim.ReasonAmountMismatch,
		},
		{
			name:     "no amount detected",
			facts:    Facts{Claim: parking, Extraction: claim.Extraction{Merchant: "KLCC Parking"}},
			decision: claim.DecisionManual, reason: claim.ReasonAmountMismatch,
		},
		{
			name:     "merchant missing",
			facts:    Facts{Claim: parking, Extraction: claim.Extraction{Amount: amt("40")}},
			decision: claim.DecisionManual, reason: claim.ReasonMerchantMissing,
		},
		{
			name:     "category not on the list",
			facts:    Facts{Claim: claim.Claim{Category: "travel", Amount: decimal.NewFromInt(40)}, Extraction: claim.Extraction{Amount: amt("40"), Merchant: "Grab"}},
			decision: claim.DecisionManual, reason: claim.ReasonCategoryNotAuto,
		},
		{
			name:     "over the category cap",
			facts:    Facts{Claim: claim.Claim{Category: "parking", Amount: decimal.NewFromInt(60)}, Extraction: claim.Extraction{Amount: amt("60"), Merchant: "KLIA"}},
			decision: claim.DecisionManual, reason: claim.ReasonExceedsCategoryCap,
		},
		{
			name:     "outstation meal ignores receipt mismatch",
			facts:    Facts{Claim: meal, OutstationMealEligible: true, Extraction: claim.Extraction{Amount: amt("12")}},
			decision: claim.DecisionAutoApprove, reason: claim.ReasonOutstationMeal,
		},
		{
			name:     "outstation meal above RM20 falls through",
			facts:    Facts{Claim: claim.Claim{Category: "meal", Amount: decimal.NewFromInt(25)}, OutstationMealEligible: true, Extraction: claim.Extraction{Amount: amt("12"), Merchant: "Kedai"}},
			decision: claim.DecisionManual, reason: claim.ReasonAmountMismatch,
		},
		{
			name:     "meal without outstation flag needs a receipt match",
			facts:    Facts{Claim: meal, Extraction: claim.Extraction{Amount: amt("12"), Merchant: "Kedai"}},
			decision: claim.DecisionManual, reason: claim.ReasonAmountMismatch,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.facts.Policy = policy()
			v := Classify(tt.facts)
			assert.Equal(t, tt.decision, v.Decision)
			assert.Equal(t, tt.reason, v.Reason)
		})
	}
}

func TestClassify_SurfacesWarnings(t *testing.T) {
	v := Classify(Facts{
		Claim:      claim.Claim{Category: "travel", Amount: decimal.NewFromInt(10)},
		Extraction: claim.Extraction{Amount: amt("9.50"), Warnings: []string{"blurry image"}},
		Policy:     policy(),
	})
	assert.Equal(t, []string{"blurry image"}, v.Warnings)
	assert.Equal(t, "9.5", v.DetectedAmount.String())
}

func TestFingerprint(t *testing.T) {
	c := claim.Claim{Amount: decimal.RequireFromString("18.5"), ClaimDate: time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)}

	assert.Equal(t, "fp-x", Fingerprint(c, claim.Extraction{Fingerprint: "fp-x"}))
	assert.Empty(t, Fingerprint(c, claim.Extraction{}))

	a := Fingerprint(c, claim.Extraction{Merchant: "Restoran  Ali", ReceiptNumber: "R-1"})
	b := Fingerprint(c, claim.Extraction{Merchant: "restoran ali", ReceiptNumber: "R-1"})
	assert.Len(t, a, 64)
	assert.Equal(t, a, b)

	other := Fingerprint(c, claim.Extraction{Merchant: "restoran ali", ReceiptNumber: "R-2"})
	assert.NotEqual(t, a, other)
}
