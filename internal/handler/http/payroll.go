package http

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cmlabs-hris/hrms-payroll-go/internal/domain/payroll"
	"github.com/cmlabs-hris/hrms-payroll-go/internal/handler/http/response"
	"github.com/cmlabs-hris/hrms-payroll-go/internal/pkg/jwt"
	"github.com/cmlabs-hris/hrms-payroll-go/internal/pkg/sse"
	"github.com/go-chi/chi/v5"
)

type PayrollHandler interface {
	// Runs
	CreateRun(w http.ResponseWriter, r *http.Request)
	GetRun(w http.ResponseWriter, r *http.Request)
	GenerateRun(w http.ResponseWriter, r *http.Request)
	ApproveRun(w http.ResponseWriter, r *http.Request)
	LockRun(w http.ResponseWriter, r *http.Request)
	PayRun(w http.ResponseWriter, r *http.Request)
	ReopenRun(w http.ResponseWriter, r *http.Request)
	CancelRun(w http.ResponseWriter, r *http.Request)
	RelinkRun(w http.ResponseWriter, r *http.Request)
	ListItems(w http.ResponseWriter, r *http.Request)

	// Live progress
	StreamToken(w http.ResponseWriter, r *http.Request)
	Events(w http.ResponseWriter, r *http.Request)

	// Items
	VerifyItem(w http.ResponseWriter, r *http.Request)

	// Monthly inputs
	GetInputs(w http.ResponseWriter, r *http.Request)
	UpsertInputs(w http.ResponseWriter, r *http.Request)
}

type payrollHandlerImpl struct {
	runService   payroll.RunService
	inputService payroll.InputService
	jwtService   jwt.Service
	hub          *sse.Hub
}

func NewPayrollHandler(runService payroll.RunService, inputService payroll.InputService, jwtService jwt.Service, hub *sse.Hub) PayrollHandler {
	return &payrollHandlerImpl{
		runService:   runService,
		inputService: inputService,
		jwtService:   jwtService,
		hub:          hub,
	}
}

// ========== RUNS ==========

func (h *payrollHandlerImpl) CreateRun(w http.ResponseWriter, r *http.Request) {
	var req payroll.CreateRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}

	result, err := h.runService.Create(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Payroll run created", result)
}

func (h *payrollHandlerImpl) GetRun(w http.ResponseWriter, r *http.Request) {
	result, err := h.runService.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

// GenerateRun answers with JSON, or with an event stream of per-employee
// progress when the client accepts text/event-stream.
func (h *payrollHandlerImpl) GenerateRun(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "id")

	if !strings.Contains(r.Header.Get("Accept"), "text/event-stream") {
		result, err := h.runService.Generate(r.Context(), runID, nil)
		if err != nil {
			response.HandleError(w, err)
			return
		}
		response.Success(w, result)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		response.InternalServerError(w, "Streaming not supported")
		return
	}
	setSSEHeaders(w)
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	// The service serializes progress callbacks.
	result, err := h.runService.Generate(r.Context(), runID, func(p payroll.Progress) {
		writeSSE(w, "progress", p)
		flusher.Flush()
	})
	if err != nil {
		slog.Warn("payroll generation failed", "run_id", runID, "error", err)
		writeSSE(w, "error", map[string]string{"message": err.Error()})
		flusher.Flush()
		return
	}
	writeSSE(w, "completed", result)
	flusher.Flush()
}

func (h *payrollHandlerImpl) ApproveRun(w http.ResponseWriter, r *http.Request) {
	result, err := h.runService.Approve(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Payroll run approved", result)
}

func (h *payrollHandlerImpl) LockRun(w http.ResponseWriter, r *http.Request) {
	result, err := h.runService.Lock(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Payroll run locked", result)
}

func (h *payrollHandlerImpl) PayRun(w http.ResponseWriter, r *http.Request) {
	var req payroll.PayRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}

	result, err := h.runService.Pay(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Payroll run paid", result)
}

func (h *payrollHandlerImpl) ReopenRun(w http.ResponseWriter, r *http.Request) {
	result, err := h.runService.Reopen(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Payroll run reopened", result)
}

func (h *payrollHandlerImpl) CancelRun(w http.ResponseWriter, r *http.Request) {
	result, err := h.runService.Cancel(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Payroll run cancelled", result)
}

func (h *payrollHandlerImpl) RelinkRun(w http.ResponseWriter, r *http.Request) {
	var req payroll.RelinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}

	result, err := h.runService.Relink(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

func (h *payrollHandlerImpl) ListItems(w http.ResponseWriter, r *http.Request) {
	result, err := h.runService.ListItems(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

// ========== LIVE PROGRESS ==========

// StreamToken issues a short-lived token for the run's event stream, since
// EventSource cannot send an Authorization header.
func (h *payrollHandlerImpl) StreamToken(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "id")
	if _, err := h.runService.Get(r.Context(), runID); err != nil {
		response.HandleError(w, err)
		return
	}
	claims, err := jwt.ClaimsFromContext(r.Context())
	if err != nil {
		response.HandleError(w, err)
		return
	}

	token, expiresIn, err := h.jwtService.GenerateSSEToken(claims, payroll.RunTopic(runID))
	if err != nil {
		response.InternalServerError(w, "Failed to issue stream token")
		return
	}

	response.Success(w, map[string]interface{}{
		"token":      token,
		"expires_in": expiresIn,
	})
}

func (h *payrollHandlerImpl) Events(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "id")
	topic := payroll.RunTopic(runID)

	// Get token from query parameter (SSE doesn't support custom headers)
	tokenStr := r.URL.Query().Get("token")
	if tokenStr == "" {
		response.Unauthorized(w, "Missing token")
		return
	}
	claims, err := h.jwtService.ValidateSSEToken(tokenStr, topic)
	if err != nil {
		response.Unauthorized(w, "Invalid token")
		return
	}
	ctx := jwt.WithClaims(r.Context(), claims)

	run, err := h.runService.Get(ctx, runID)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		response.InternalServerError(w, "Streaming not supported")
		return
	}
	setSSEHeaders(w)

	events, cleanup := h.hub.Subscribe(topic)
	defer cleanup()

	writeSSE(w, "connected", map[string]string{"run_id": runID, "status": run.Status})
	flusher.Flush()

	keepalive := time.NewTicker(30 * time.Second)
	defer keepalive.Stop()

	for {
		select {
		case event, ok := <-events:
			if !ok {
				return
			}
			writeSSE(w, event.Event, event.Data)
			flusher.Flush()

		case <-keepalive.C:
			fmt.Fprintf(w, "event: ping\ndata: {\"timestamp\":%d}\n\n", time.Now().Unix())
			flusher.Flush()

		case <-ctx.Done():
			return
		}
	}
}

func setSSEHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
}

func writeSSE(w http.ResponseWriter, event string, data interface{}) {
	payload, err := json.Marshal(data)
	if err != nil {
		slog.Error("failed to encode SSE event", "event", event, "error", err)
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, payload)
}

// ========== ITEMS ==========

func (h *payrollHandlerImpl) VerifyItem(w http.ResponseWriter, r *http.Request) {
	itemID := chi.URLParam(r, "id")
	if err := h.runService.VerifyItem(r.Context(), itemID); err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, map[string]interface{}{"item_id": itemID, "verified": true})
}

// ========== MONTHLY INPUTS ==========

func (h *payrollHandlerImpl) GetInputs(w http.ResponseWriter, r *http.Request) {
	employeeID := chi.URLParam(r, "employee_id")
	year, errYear := strconv.Atoi(chi.URLParam(r, "year"))
	month, errMonth := strconv.Atoi(chi.URLParam(r, "month"))
	if errYear != nil || errMonth != nil {
		response.BadRequest(w, "Invalid period", nil)
		return
	}

	result, err := h.inputService.Get(r.Context(), employeeID, month, year)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

func (h *payrollHandlerImpl) UpsertInputs(w http.ResponseWriter, r *http.Request) {
	var req payroll.UpsertInputsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}
	year, errYear := strconv.Atoi(chi.URLParam(r, "year"))
	month, errMonth := strconv.Atoi(chi.URLParam(r, "month"))
	if errYear != nil || errMonth != nil {
		response.BadRequest(w, "Invalid period", nil)
		return
	}
	req.EmployeeID = chi.URLParam(r, "employee_id")
	req.Year = year
	req.Month = month

	result, err := h.inputService.Upsert(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}
