package app

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/marco741/prof-backend/internal/cachestore"
	"github.com/marco741/prof-backend/internal/config"
	"github.com/marco741/prof-backend/internal/provider"
	"github.com/marco741/prof-backend/internal/provider/treccani"
	"github.com/marco741/prof-backend/internal/provider/wikipedia"
	"github.com/marco741/prof-backend/internal/search"
	"github.com/marco741/prof-backend/internal/translation"
)

// buildRegistry constructs the immutable provider registry from the
// configured fallback mapping and the compiled-in scraper clients.
func buildRegistry(cfg *config.Config) (*provider.Registry, error) {
	fallbacks, err := provider.LoadFallbacks(cfg.ProvidersConfig)
	if err != nil {
		return nil, err
	}

	clients := []provider.Client{
		wikipedia.New(),
		treccani.New(),
	}
	registry, err := provider.NewRegistry(clients, fallbacks)
	if err != nil {
		return nil, fmt.Errorf("build provider registry: %w", err)
	}
	return registry, nil
}

// buildCacheStore constructs the configured cache backend. The returned
// close function is a no-op for the memory backend.
func buildCacheStore(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (cachestore.Store, func(), error) {
	switch cfg.NormalizedCacheBackend() {
	case config.CacheBackendPostgres:
		store, err := cachestore.NewPostgres(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { _ = store.Close() }, nil
	default:
		return cachestore.NewMemory(), func() {}, nil
	}
}

// buildSearchService wires cache, registry, and translator into the
// orchestrator.
func buildSearchService(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*search.Service, *provider.Registry, func(), error) {
	registry, err := buildRegistry(cfg)
	if err != nil {
		return nil, nil, nil, err
	}

	cache, closeCache, err := buildCacheStore(ctx, cfg, logger)
	if err != nil {
		return nil, nil, nil, err
	}

	translator := translation.NewResultTranslator(translation.NewRegistryFromEnv())
	service := search.NewService(cache, registry, translator, logger, time.Duration(cfg.DefaultMaxAge)*time.Second)
	return service, registry, closeCache, nil
}
