package ingest

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/alxnderia/ingestion/pkg/config"
	"github.com/alxnderia/ingestion/pkg/provider"
	"github.com/alxnderia/ingestion/pkg/store"
)

// ErrNotConfigured is returned when a provider's settings are missing.
var ErrNotConfigured = errors.New("provider not configured")

// Connector syncs one provider into its raw tables.
type Connector interface {
	Provider() provider.Type
	Sync(ctx context.Context) (store.Counts, error)
}

// Deps are the collaborators handed to connector constructors.
type Deps struct {
	Config *config.Config
	Writer *Writer
	// Keys reads back parents synced earlier in the run
	Keys   store.KeyReader
	Logger *zap.Logger
}

// Factory builds a connector for one provider.
type Factory struct {
	// Configured reports whether cfg carries the provider's settings
	Configured func(cfg *config.Config) bool
	// New constructs the connector; configuration errors surface here
	New func(ctx context.Context, deps Deps) (Connector, error)
}

// Registry maps each provider to its factory.
type Registry struct {
	factories map[provider.Type]Factory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[provider.Type]Factory)}
}

// Register adds or replaces the factory for t.
func (r *Registry) Register(t provider.Type, f Factory) {
	r.factories[t] = f
}

// Types lists registered providers in enum order.
func (r *Registry) Types() []provider.Type {
	var types []provider.Type
	for _, t := range provider.TypeValues() {
		if _, ok := r.factories[t]; ok {
			types = append(types, t)
		}
	}
	return types
}

// Configured reports whether t is registered and configured.
func (r *Registry) Configured(t provider.Type, cfg *config.Config) bool {
	f, ok := r.factories[t]
	return ok && f.Configured(cfg)
}

// Build constructs the connector for t.
func (r *Registry) Build(ctx context.Context, t provider.Type, deps Deps) (Connector, error) {
	f, ok := r.factories[t]
	if !ok {
		return nil, fmt.Errorf("no connector registered for %s", t)
	}
	if !f.Configured(deps.Config) {
		return nil, fmt.Errorf("%s: %w", t, ErrNotConfigured)
	}
	c, err := f.New(ctx, deps)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s connector: %w", t, err)
	}
	return c, nil
}
