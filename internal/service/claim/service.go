package claim

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cmlabs-hris/hrms-payroll-go/internal/domain/claim"
	"github.com/cmlabs-hris/hrms-payroll-go/internal/domain/company"
	"github.com/cmlabs-hris/hrms-payroll-go/internal/domain/employee"
	"github.com/cmlabs-hris/hrms-payroll-go/internal/pkg/jwt"
)

type VerifierServiceImpl struct {
	claimRepo    claim.ClaimRepository
	employeeRepo employee.EmployeeRepository
	companyRepo  company.CompanyRepository
	extractor    claim.Extractor
}

func NewVerifierService(
	claimRepo claim.ClaimRepository,
	employeeRepo employee.EmployeeRepository,
	companyRepo company.CompanyRepository,
	extractor claim.Extractor,
) claim.VerifierService {
	return &VerifierServiceImpl{
		claimRepo:    claimRepo,
		employeeRepo: employeeRepo,
		companyRepo:  companyRepo,
		extractor:    extractor,
	}
}

// Verify implements claim.VerifierService. It only reads; the caller
// decides whether to act on the verdict.
func (s *VerifierServiceImpl) Verify(ctx context.Context, claimID string, req claim.VerifyClaimRequest) (claim.Verdict, error) {
	if err := req.Validate(); err != nil {
		return claim.Verdict{}, err
	}
	claims, err := jwt.ClaimsFromContext(ctx)
	if err != nil {
		return claim.Verdict{}, err
	}

	c, err := s.claimRepo.GetByID(ctx, claimID, claims.CompanyID)
	if err != nil {
		return claim.Verdict{}, err
	}
	if !claims.CanAccessEmployee(c.EmployeeID) {
		return claim.Verdict{}, jwt.ErrInsufficientRole
	}
	if c.Status != claim.StatusPending {
		return claim.Verdict{Decision: claim.DecisionManual, Reason: claim.ReasonAlreadyDecided}, nil
	}

	emp, err := s.employeeRepo.GetByID(ctx, c.EmployeeID, claims.CompanyID)
	if err != nil {
		return claim.Verdict{}, err
	}
	comp, err := s.companyRepo.GetByID(ctx, claims.CompanyID)
	if err != nil {
		return claim.Verdict{}, err
	}
	policy := comp.Settings.Claims

	var extraction claim.Extraction
	if req.Extracted != nil {
		extraction = *req.Extracted
	} else {
		extraction, err = s.extractor.Extract(ctx, c)
		if err != nil {
			slog.Warn("claim verification deferred to manual review", "claim_id", c.ID, "error", err)
			return claim.Verdict{Decision: claim.DecisionManual, Reason: claim.ReasonVerifierUnavailable}, nil
		}
	}

	fp := Fingerprint(c, extraction)
	duplicate := false
	if fp != "" {
		since := c.ClaimDate.AddDate(0, 0, -policy.DuplicateWindowDays)
		duplicate, err = s.claimRepo.HasApprovedWithFingerprint(ctx, c.EmployeeID, fp, since, c.ID)
		if err != nil {
			return claim.Verdict{}, fmt.Errorf("failed to check duplicate receipts: %w", err)
		}
	}

	verdict := Classify(Facts{
		Claim:                  c,
		Extraction:             extraction,
		Duplicate:              duplicate,
		Policy:                 policy,
		OutstationMealEligible: emp.OutstationMealEligible,
	})
	verdict.Fingerprint = fp

	slog.Info("claim verified",
		"claim_id", c.ID,
		"employee_id", c.EmployeeID,
		"decision", string(verdict.Decision),
		"reason", verdict.Reason,
	)
	return verdict, nil
}
