package translation

import (
	"context"
	"fmt"

	"github.com/marco741/prof-backend/internal/cachestore"
	"github.com/marco741/prof-backend/internal/globaltime"
	"github.com/marco741/prof-backend/internal/language"
)

// ResultTranslator adapts the provider registry to the search orchestrator:
// it translates a resolved result into a target language, producing a new
// language variant with a fresh creation time. Provider and OriginalLanguage
// are carried over unchanged.
type ResultTranslator struct {
	registry *Registry
}

func NewResultTranslator(registry *Registry) *ResultTranslator {
	return &ResultTranslator{registry: registry}
}

func (t *ResultTranslator) Translate(ctx context.Context, result cachestore.Result, targetLang string) (*cachestore.Result, error) {
	if t == nil || t.registry == nil {
		return nil, fmt.Errorf("result translator is not initialized")
	}

	target := language.NormalizeTag(targetLang)
	if target == "" {
		return nil, fmt.Errorf("target language %q is invalid", targetLang)
	}

	provider, err := t.registry.Provider("")
	if err != nil {
		return nil, err
	}

	resp, err := provider.Translate(ctx, TranslateRequest{
		Text:       result.Data,
		SourceLang: result.CurrentLanguage,
		TargetLang: target,
	})
	if err != nil {
		return nil, fmt.Errorf("translate %s->%s: %w", result.CurrentLanguage, target, err)
	}

	return &cachestore.Result{
		Data:             resp.Text,
		Provider:         result.Provider,
		CurrentLanguage:  target,
		OriginalLanguage: result.OriginalLanguage,
		CreatedAt:        globaltime.Now(),
	}, nil
}
