package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/marco741/prof-backend/internal/cachestore"
	"github.com/marco741/prof-backend/internal/cli"
	"github.com/marco741/prof-backend/internal/config"
	"github.com/marco741/prof-backend/internal/logging"
)

// runHealth verifies configuration, the provider registry, and cache backend
// reachability.
func runHealth(args []string) int {
	fs := flag.NewFlagSet("health", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 10*time.Second, "Health check timeout")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	if envLoader != nil {
		if _, err := envLoader.Load(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	logger, err := logging.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		return 1
	}

	registry, err := buildRegistry(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Provider registry check failed: %v\n", err)
		return 1
	}
	fmt.Printf("providers: %s\n", strings.Join(registry.ProviderNames(), ", "))
	fmt.Printf("languages: %s\n", strings.Join(registry.Languages(), ", "))

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	cache, closeCache, err := buildCacheStore(ctx, cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Cache backend check failed: %v\n", err)
		return 1
	}
	defer closeCache()

	if pg, ok := cache.(*cachestore.Postgres); ok {
		if err := pg.Ping(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Cache backend unreachable: %v\n", err)
			return 1
		}
	}
	fmt.Printf("cache backend: %s\n", cfg.NormalizedCacheBackend())
	fmt.Println("ok")
	return 0
}
