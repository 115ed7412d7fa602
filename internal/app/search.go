package app

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/marco741/prof-backend/internal/cli"
	"github.com/marco741/prof-backend/internal/config"
	"github.com/marco741/prof-backend/internal/logging"
	"github.com/marco741/prof-backend/internal/search"
)

// runSearch resolves one query from the command line and prints the outcome
// as JSON.
func runSearch(args []string) int {
	fs := flag.NewFlagSet("search", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	long := fs.Bool("long", false, "Request the long answer form")
	lang := fs.String("lang", "", "Target language (default: DEFAULT_LANGUAGE)")
	providerName := fs.String("provider", "", "Pin the lookup to one provider")
	cacheControl := fs.String("cache-control", "", "Cache directive (no-cache or max-age=N)")
	timeout := fs.Duration("timeout", 60*time.Second, "Overall timeout")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	queryText := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if queryText == "" {
		fmt.Fprintln(os.Stderr, "usage: prof-backend search [flags] <query text>")
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

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	searcher, _, closeCache, err := buildSearchService(ctx, cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
		return 1
	}
	defer closeCache()

	targetLang := strings.TrimSpace(*lang)
	if targetLang == "" {
		targetLang = cfg.DefaultLanguage
	}

	outcome, err := searcher.Search(ctx, search.Query{
		Text:           queryText,
		Long:           *long,
		TargetLanguage: targetLang,
		CacheControl:   *cacheControl,
		Provider:       *providerName,
	})
	switch {
	case errors.Is(err, search.ErrUnknownProvider):
		fmt.Fprintf(os.Stderr, "Provider %q is not available\n", *providerName)
		return 1
	case errors.Is(err, search.ErrNotFound):
		fmt.Fprintf(os.Stderr, "No result found for %q\n", queryText)
		return 1
	case err != nil:
		fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
		return 1
	}

	var payload any = outcome.Result
	if outcome.Disambiguation != nil {
		payload = outcome.Disambiguation
	}

	encoded, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to encode result: %v\n", err)
		return 1
	}
	fmt.Println(string(encoded))
	return 0
}
