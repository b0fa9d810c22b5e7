package services

import (
	"context"

	"mythmanga/internal/logger"
	"mythmanga/internal/models"
	"mythmanga/internal/repositories"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// SettingsSnapshot is an immutable copy of the store-wide flags checkout depends on.
// It is read once per request and handed to the orchestrator explicitly.
type SettingsSnapshot struct {
	CODEnabled            bool
	HostedGatewayEnabled  bool
	CouponsEnabled        bool
	FreeShippingThreshold decimal.Decimal
	ShippingCharge        decimal.Decimal
}

// NewSettingsSnapshot copies the checkout-relevant fields out of the settings row.
func NewSettingsSnapshot(s models.SiteSettings) SettingsSnapshot {
	return SettingsSnapshot{
		CODEnabled:            s.CODEnabled,
		HostedGatewayEnabled:  s.HostedGatewayEnabled,
		CouponsEnabled:        s.CouponsEnabled,
		FreeShippingThreshold: s.FreeShippingThreshold,
		ShippingCharge:        s.ShippingCharge,
	}
}

// SettingsService reads site settings.
type SettingsService struct {
	repo repositories.SettingsRepository
}

// NewSettingsService creates a new SettingsService.
func NewSettingsService(repo repositories.SettingsRepository) *SettingsService {
	return &SettingsService{repo: repo}
}

// Snapshot returns the current settings. Read failures fall back to the defaults
// so the storefront keeps working with the stock configuration.
func (s *SettingsService) Snapshot(ctx context.Context) SettingsSnapshot {
	settings, err := s.repo.Get(ctx)
	if err != nil {
		logger.Get().Warn("Using default site settings", zap.Error(err))
		settings = models.DefaultSiteSettings()
	}
	return NewSettingsSnapshot(settings)
}
