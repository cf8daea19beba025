package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/cmlabs-hris/hrms-payroll-go/internal/domain/claim"
	"github.com/cmlabs-hris/hrms-payroll-go/internal/handler/http/response"
	"github.com/go-chi/chi/v5"
)

type ClaimHandler interface {
	Verify(w http.ResponseWriter, r *http.Request)
}

type claimHandlerImpl struct {
	verifierService claim.VerifierService
}

func NewClaimHandler(verifierService claim.VerifierService) ClaimHandler {
	return &claimHandlerImpl{verifierService: verifierService}
}

// Verify implements ClaimHandler. Without a body the receipt is sent to the
// extraction service.
func (h *claimHandlerImpl) Verify(w http.ResponseWriter, r *http.Request) {
	var req claim.VerifyClaimRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}

	verdict, err := h.verifierService.Verify(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, verdict)
}
