package settings

import (
	"context"

	"github.com/keyxmakerx/headless/internal/options"
)

// SettingsRepository defines the persistence contract for the settings.
type SettingsRepository interface {
	// SiteRedirect returns the stored redirect URL, or "" when unset.
	SiteRedirect(ctx context.Context) (string, error)

	// AllowedURLs returns the stored allow-list, or nil when unset.
	AllowedURLs(ctx context.Context) ([]string, error)

	// Save persists both values.
	Save(ctx context.Context, s *Settings) error
}

// optionsRepository implements SettingsRepository on the options store.
type optionsRepository struct {
	store options.Store
}

// NewSettingsRepository creates a repository backed by the options store.
func NewSettingsRepository(store options.Store) SettingsRepository {
	return &optionsRepository{store: store}
}

func (r *optionsRepository) SiteRedirect(ctx context.Context) (string, error) {
	var v string
	if _, err := options.GetJSON(ctx, r.store, options.SiteRedirect, &v); err != nil {
		return "", err
	}
	return v, nil
}

func (r *optionsRepository) AllowedURLs(ctx context.Context) ([]string, error) {
	var v []string
	if _, err := options.GetJSON(ctx, r.store, options.AllowedURLs, &v); err != nil {
		return nil, err
	}
	return v, nil
}

func (r *optionsRepository) Save(ctx context.Context, s *Settings) error {
	if err := options.SetJSON(ctx, r.store, options.SiteRedirect, s.SiteRedirect); err != nil {
		return err
	}
	return options.SetJSON(ctx, r.store, options.AllowedURLs, s.AllowedURLs)
}
