package company

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cmlabs-hris/hrms-payroll-go/internal/domain/company"
	"github.com/cmlabs-hris/hrms-payroll-go/internal/pkg/jwt"
)

type SettingsServiceImpl struct {
	companyRepo company.CompanyRepository
}

func NewSettingsService(companyRepo company.CompanyRepository) company.SettingsService {
	return &SettingsServiceImpl{companyRepo: companyRepo}
}

// GetSettings implements company.SettingsService.
func (s *SettingsServiceImpl) GetSettings(ctx context.Context) (company.SettingsResponse, error) {
	claims, err := jwt.ClaimsFromContext(ctx)
	if err != nil {
		return company.SettingsResponse{}, err
	}

	c, err := s.companyRepo.GetByID(ctx, claims.CompanyID)
	if err != nil {
		if errors.Is(err, company.ErrCompanyNotFound) {
			return company.SettingsResponse{}, err
		}
		return company.SettingsResponse{}, fmt.Errorf("failed to get company: %w", err)
	}

	return company.SettingsResponse{CompanyID: c.ID, Settings: c.Settings}, nil
}

// UpdateSettings implements company.SettingsService.
func (s *SettingsServiceImpl) UpdateSettings(ctx context.Context, patch company.SettingsPatch) (company.SettingsResponse, error) {
	claims, err := jwt.ClaimsFromContext(ctx)
	if err != nil {
		return company.SettingsResponse{}, err
	}
	if err := claims.RequireManager(); err != nil {
		return company.SettingsResponse{}, err
	}
	if err := patch.Validate(); err != nil {
		return company.SettingsResponse{}, err
	}

	c, err := s.companyRepo.GetByID(ctx, claims.CompanyID)
	if err != nil {
		if errors.Is(err, company.ErrCompanyNotFound) {
			return company.SettingsResponse{}, err
		}
		return company.SettingsResponse{}, fmt.Errorf("failed to get company: %w", err)
	}

	merged := c.Settings.Merge(patch)
	if err := s.companyRepo.UpdateSettings(ctx, c.ID, merged); err != nil {
		return company.SettingsResponse{}, fmt.Errorf("failed to update settings: %w", err)
	}

	slog.Info("company settings updated", "company_id", c.ID, "user_id", claims.UserID)
	return company.SettingsResponse{CompanyID: c.ID, Settings: merged}, nil
}
