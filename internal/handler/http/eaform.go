package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/cmlabs-hris/hrms-payroll-go/internal/domain/eaform"
	"github.com/cmlabs-hris/hrms-payroll-go/internal/handler/http/response"
	"github.com/go-chi/chi/v5"
)

type EAFormHandler interface {
	Generate(w http.ResponseWriter, r *http.Request)
	Get(w http.ResponseWriter, r *http.Request)
}

type eaFormHandlerImpl struct {
	eaFormService eaform.EAFormService
}

func NewEAFormHandler(eaFormService eaform.EAFormService) EAFormHandler {
	return &eaFormHandlerImpl{eaFormService: eaFormService}
}

// Generate implements EAFormHandler. The body is optional.
func (h *eaFormHandlerImpl) Generate(w http.ResponseWriter, r *http.Request) {
	year, err := strconv.Atoi(chi.URLParam(r, "year"))
	if err != nil {
		response.BadRequest(w, "Invalid year", nil)
		return
	}

	var req eaform.GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}
	req.Year = year

	result, err := h.eaFormService.Generate(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "EA forms generated", result)
}

// Get implements EAFormHandler.
func (h *eaFormHandlerImpl) Get(w http.ResponseWriter, r *http.Request) {
	year, err := strconv.Atoi(chi.URLParam(r, "year"))
	if err != nil {
		response.BadRequest(w, "Invalid year", nil)
		return
	}

	result, err := h.eaFormService.Get(r.Context(), year, chi.URLParam(r, "employee_id"))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}
