package app

import (
	"log/slog"

	"github.com/sevenofnine/google-calendar-bridge/internal/auth"
	"github.com/sevenofnine/google-calendar-bridge/internal/config"
	"github.com/sevenofnine/google-calendar-bridge/internal/googlecal"
)

// BuildFlow assembles the authorization flow from configuration.
func BuildFlow(cfg config.Config, logger *slog.Logger) *googlecal.Flow {
	return googlecal.NewFlow(googlecal.FlowOptions{
		CredentialsPath: cfg.CredentialsPath,
		Store: auth.Store{
			Path:     cfg.TokenPath,
			Password: cfg.TokenPassword,
		},
		Logger: logger,
	})
}
