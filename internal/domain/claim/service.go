package claim

import "context"

type VerifierService interface {
	Verify(ctx context.Context, claimID string, req VerifyClaimRequest) (Verdict, error)
}

// Extractor reads a receipt through the external receipt service.
type Extractor interface {
	Extract(ctx context.Context, c Claim) (Extraction, error)
}
