package settings

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/keyxmakerx/headless/internal/apperror"
	"github.com/keyxmakerx/headless/internal/sanitize"
)

// SettingsService handles validation and persistence for the settings
// screen.
type SettingsService interface {
	// Get returns the current settings. An unset allow-list reads as the
	// defaults.
	Get(ctx context.Context) (*Settings, error)

	// Update validates the submitted form values, persists them, and
	// regenerates the settings file. rawAllowed is the textarea value, one
	// entry per line.
	Update(ctx context.Context, siteRedirect, rawAllowed string) (*Settings, error)

	// EnsureFile creates the settings file with defaults if it is missing.
	EnsureFile(ctx context.Context) error
}

// settingsService implements SettingsService.
type settingsService struct {
	repo SettingsRepository
	file *FileStore
}

// NewSettingsService creates a new settings service.
func NewSettingsService(repo SettingsRepository, file *FileStore) SettingsService {
	return &settingsService{repo: repo, file: file}
}

func (s *settingsService) Get(ctx context.Context) (*Settings, error) {
	redirect, err := s.repo.SiteRedirect(ctx)
	if err != nil {
		return nil, err
	}
	allowed, err := s.repo.AllowedURLs(ctx)
	if err != nil {
		return nil, err
	}
	if len(allowed) == 0 {
		allowed = defaultAllowedURLs()
	}
	return &Settings{SiteRedirect: redirect, AllowedURLs: allowed}, nil
}

func (s *settingsService) Update(ctx context.Context, siteRedirect, rawAllowed string) (*Settings, error) {
	redirect, err := normalizeRedirect(siteRedirect)
	if err != nil {
		return nil, err
	}

	allowed := sanitize.Lines(rawAllowed)
	if len(allowed) == 0 {
		allowed = defaultAllowedURLs()
	}

	settings := &Settings{SiteRedirect: redirect, AllowedURLs: allowed}
	if err := s.repo.Save(ctx, settings); err != nil {
		return nil, err
	}

	if err := s.file.Save(&FileConfig{
		PageName:        pageName,
		PageDescription: pageDescription,
		SiteRedirect:    redirect,
		AllowedURLs:     allowed,
	}); err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("regenerating settings file: %w", err))
	}

	slog.Info("headless settings updated",
		slog.String("site_redirect", redirect),
		slog.Int("allowed_urls", len(allowed)),
	)
	return settings, nil
}

func (s *settingsService) EnsureFile(ctx context.Context) error {
	created, err := s.file.EnsureExists()
	if err != nil {
		return fmt.Errorf("creating settings file %s: %w", s.file.Path(), err)
	}
	if created {
		slog.Info("settings file created", slog.String("path", s.file.Path()))
	}
	return nil
}

// normalizeRedirect accepts "" or an absolute http(s) URL and trims any
// trailing slashes.
func normalizeRedirect(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", apperror.NewValidation("Site redirect must be an http or https URL.")
	}
	return strings.TrimRight(u.String(), "/"), nil
}
