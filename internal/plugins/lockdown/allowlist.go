// Package lockdown keeps anonymous visitors out of the admin area. A
// request that is not authenticated and whose URI matches no allow-listed
// fragment is redirected away from the admin path and the legacy login
// endpoint.
package lockdown

import (
	"context"
	"log/slog"
)

// Source yields an allow-list. An empty result defers to the next source.
type Source interface {
	AllowedURLs(ctx context.Context) ([]string, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context) ([]string, error)

// AllowedURLs calls f.
func (f SourceFunc) AllowedURLs(ctx context.Context) ([]string, error) {
	return f(ctx)
}

// Provider is a named Source in the resolution chain.
type Provider struct {
	Name   string
	Source Source
}

// AllowList resolves the effective allow-list from an ordered provider
// chain, ending in a fixed fallback list.
type AllowList struct {
	providers []Provider
	fallback  []string
}

// NewAllowList creates a chain that consults providers in order and returns
// fallback when all of them come back empty.
func NewAllowList(fallback []string, providers ...Provider) *AllowList {
	return &AllowList{providers: providers, fallback: fallback}
}

// Resolve returns the first non-empty list and the name of the provider
// that supplied it. A failing provider is logged and skipped.
func (a *AllowList) Resolve(ctx context.Context) ([]string, string) {
	for _, p := range a.providers {
		urls, err := p.Source.AllowedURLs(ctx)
		if err != nil {
			slog.Warn("allow-list provider failed",
				slog.String("provider", p.Name),
				slog.Any("error", err),
			)
			continue
		}
		if len(urls) > 0 {
			return urls, p.Name
		}
	}
	return a.fallback, "default"
}
