package claim

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cmlabs-hris/hrms-payroll-go/internal/domain/claim"
	"github.com/cmlabs-hris/hrms-payroll-go/internal/domain/company"
	"github.com/cmlabs-hris/hrms-payroll-go/internal/domain/employee"
	"github.com/cmlabs-hris/hrms-payroll-go/internal/pkg/jwt"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubClaims struct {
	claim.ClaimRepository
	claims      map[string]claim.Claim
	approvedFPs map[string]bool
}

func (s *stubClaims) GetByID(ctx context.Context, id, companyID string) (claim.Claim, error) {
	c, ok := s.claims[id]
	if !ok || c.CompanyID != companyID {
		return claim.Claim{}, claim.ErrClaimNotFound
	}
	return c, nil
}

func (s *stubClaims) HasApprovedWithFingerprint(ctx context.Context, employeeID, fp string, since time.Time, excludeID string) (bool, error) {
	return s.approvedFPs[fp], nil
}

type stubEmployees struct{ employee.EmployeeRepository }

func (stubEmployees) GetByID(ctx context.Context, id, companyID string) (employee.Employee, error) {
	return employee.Employee{ID: id, CompanyID: companyID, OutstationMealEligible: id == "driver"}, nil
}

type stubCompanies struct{ company.CompanyRepository }

func (stubCompanies) GetByID(ctx context.Context, id string) (company.Company, error) {
	s := company.DefaultSettings()
	s.Claims.AutoApproveCategories = []string{"parking"}
	return company.Company{ID: id, Settings: s}, nil
}

type stubExtractor struct {
	result claim.Extraction
	err    error
	calls  int
}

func (s *stubExtractor) Extract(ctx context.Context, c claim.Claim) (claim.Extraction, error) {
	s.calls++
	return s.result, s.err
}

func newVerifier(ext *stubExtractor) (claim.VerifierService, *stubClaims) {
	repo := &stubClaims{
		claims: map[string]claim.Claim{
			"p1": {ID: "p1", CompanyID: "c1", EmployeeID: "clerk", Category: "parking", Amount: decimal.NewFromInt(12), Status: claim.StatusPending, ClaimDate: time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)},
			"m1": {ID: "m1", CompanyID: "c1", EmployeeID: "driver", Category: "meal", Amount: decimal.NewFromInt(15), Status: claim.StatusPending},
			"a1": {ID: "a1", CompanyID: "c1", EmployeeID: "clerk", Category: "parking", Amount: decimal.NewFromInt(12), Status: claim.StatusApproved},
		},
		approvedFPs: map[string]bool{},
	}
	return NewVerifierService(repo, stubEmployees{}, stubCompanies{}, ext), repo
}

func TestVerify_UsesProvidedExtraction(t *testing.T) {
	ext := &stubExtractor{}
	svc, _ := newVerifier(ext)
	ctx := jwt.WithSystemClaims(context.Background(), "c1")

	v, err := svc.Verify(ctx, "p1", claim.VerifyClaimRequest{Extracted: &claim.Extraction{Amount: amt("12.00"), Merchant: "MBPJ Parking"}})
	require.NoError(t, err)
	assert.Equal(t, claim.DecisionAutoApprove, v.Decision)
	assert.NotEmpty(t, v.Fingerprint)
	assert.Equal(t, 0, ext.calls)
}

func TestVerify_RejectsDuplicateReceipt(t *testing.T) {
	svc, repo := newVerifier(&stubExtractor{})
	repo.approvedFPs["fp-dup"] = true
	ctx := jwt.WithSystemClaims(context.Background(), "c1")

	v, err := svc.Verify(ctx, "p1", claim.VerifyClaimRequest{Extracted: &claim.Extraction{Amount: amt("12"), Merchant: "MBPJ", Fingerprint: "fp-dup"}})
	require.NoError(t, err)
	assert.Equal(t, claim.DecisionReject, v.Decision)
	assert.Equal(t, claim.ReasonDuplicateReceipt, v.Reason)
}

func TestVerify_UpstreamFailureIsManual(t *testing.T) {
	ext := &stubExtractor{err: errors.New("connection refused")}
	svc, _ := newVerifier(ext)
	ctx := jwt.WithSystemClaims(context.Background(), "c1")

	v, err := svc.Verify(ctx, "m1", claim.VerifyClaimRequest{})
	require.NoError(t, err)
	assert.Equal(t, claim.DecisionManual, v.Decision)
	assert.Equal(t, claim.ReasonVerifierUnavailable, v.Reason)
	assert.Equal(t, 1, ext.calls)
}

func TestVerify_OutstationMealFromExtractor(t *testing.T) {
	ext := &stubExtractor{result: claim.Extraction{Amount: amt("14")}}
	svc, _ := newVerifier(ext)
	ctx := jwt.WithSystemClaims(context.Background(), "c1")

	v, err := svc.Verify(ctx, "m1", claim.VerifyClaimRequest{})
	require.NoError(t, err)
	assert.Equal(t, claim.DecisionAutoApprove, v.Decision)
	assert.Equal(t, claim.ReasonOutstationMeal, v.Reason)
}

func TestVerify_DecidedClaimAndMissing(t *testing.T) {
	svc, _ := newVerifier(&stubExtractor{})
	ctx := jwt.WithSystemClaims(context.Background(), "c1")

	v, err := svc.Verify(ctx, "a1", claim.VerifyClaimRequest{})
	require.NoError(t, err)
	assert.Equal(t, claim.ReasonAlreadyDecided, v.Reason)

	_, err = svc.Verify(ctx, "nope", claim.VerifyClaimRequest{})
	assert.ErrorIs(t, err, claim.ErrClaimNotFound)

	_, err = svc.Verify(jwt.WithSystemClaims(context.Background(), "c2"), "p1", claim.VerifyClaimRequest{})
	assert.ErrorIs(t, err, claim.ErrClaimNotFound)
}
