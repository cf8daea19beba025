package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/cmlabs-hris/hrms-payroll-go/internal/domain/company"
	"github.com/cmlabs-hris/hrms-payroll-go/internal/handler/http/response"
)

type CompanyHandler interface {
	GetSettings(w http.ResponseWriter, r *http.Request)
	UpdateSettings(w http.ResponseWriter, r *http.Request)
}

type CompanyHandlerImpl struct {
	settingsService company.SettingsService
}

// GetSettings implements CompanyHandler.
func (c *CompanyHandlerImpl) GetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := c.settingsService.GetSettings(r.Context())
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, settings)
}

// UpdateSettings implements CompanyHandler. Fields left out of the body
// keep their current values.
func (c *CompanyHandlerImpl) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var patch company.SettingsPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		slog.Error("Failed to decode settings patch", "error", err)
		response.BadRequest(w, "Invalid request format", nil)
		return
	}

	settings, err := c.settingsService.UpdateSettings(r.Context(), patch)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Company settings updated", settings)
}

func NewCompanyHandler(settingsService company.SettingsService) CompanyHandler {
	return &CompanyHandlerImpl{
		settingsService: settingsService,
	}
}
