// Package cachestore holds the response cache for resolved lookups. The
// cache is a best-effort acceleration layer: backends never surface errors
// to callers, a fault just behaves like a miss.
package cachestore

import (
	"context"
	"strings"
	"time"

	"github.com/marco741/prof-backend/internal/language"
)

// Key identifies one cached language variant of a logical answer. Variants
// in different languages are distinct entries and are never merged.
type Key struct {
	Text     string
	Long     bool
	Language string
}

// NewKey normalizes the query text and language into a lookup key. The read
// and write paths must build keys through this function so they agree.
func NewKey(text string, long bool, lang string) Key {
	return Key{
		Text:     strings.Join(strings.Fields(strings.ToLower(text)), " "),
		Long:     long,
		Language: language.NormalizeTag(lang),
	}
}

// Result is the canonical record for one resolved lookup. OriginalLanguage
// is fixed at creation; CurrentLanguage changes only through translation,
// which also produces a fresh CreatedAt.
type Result struct {
	Data             string    `json:"data"`
	Provider         string    `json:"provider"`
	CurrentLanguage  string    `json:"current_language"`
	OriginalLanguage string    `json:"original_language"`
	CreatedAt        time.Time `json:"created_at"`
}

// Store is the cache contract consumed by the search orchestrator.
type Store interface {
	// Retrieve returns the entry under key if its age does not exceed maxAge
	// and, when providerPin is non-empty, the stored provider matches the
	// pin. A stale or mismatched entry is ignored, not removed.
	Retrieve(ctx context.Context, key Key, maxAge time.Duration, providerPin string) (*Result, bool)

	// Add unconditionally replaces the entry under key. It never fails from
	// the caller's point of view.
	Add(ctx context.Context, key Key, result Result)
}

func matchesPin(result *Result, providerPin string) bool {
	pin := strings.ToLower(strings.TrimSpace(providerPin))
	return pin == "" || result.Provider == pin
}
