// Package search is the lookup orchestrator: cache-aware request
// resolution, ordered provider fallback, disambiguation short-circuiting,
// and post-translation re-caching.
package search

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/marco741/prof-backend/internal/cachestore"
	"github.com/marco741/prof-backend/internal/globaltime"
	"github.com/marco741/prof-backend/internal/provider"
)

var (
	// ErrNotFound means every candidate provider failed to produce a usable
	// reply.
	ErrNotFound = errors.New("result not found")
	// ErrUnknownProvider means a pinned provider identifier is not
	// registered.
	ErrUnknownProvider = errors.New("provider not available")
	// ErrInternal covers unexpected faults on the pinned-provider path.
	ErrInternal = errors.New("internal search failure")
)

// Query is one immutable lookup request. Provider is empty on the
// any-provider path and carries the pinned identifier otherwise.
type Query struct {
	Text           string
	Long           bool
	TargetLanguage string
	CacheControl   string
	Provider       string
}

// Disambiguation is the transient outcome for a query matching several
// candidate subjects. It is never cached.
type Disambiguation struct {
	Links    []provider.Link `json:"data"`
	Provider string          `json:"provider"`
}

// Outcome is the terminal result of a search: exactly one of Result or
// Disambiguation is set.
type Outcome struct {
	Result         *cachestore.Result
	Disambiguation *Disambiguation
}

// Translator converts a resolved result into another language.
type Translator interface {
	Translate(ctx context.Context, result cachestore.Result, targetLang string) (*cachestore.Result, error)
}

// Service coordinates the cache store, the provider registry, and the
// translation collaborator for each request.
type Service struct {
	cache         cachestore.Store
	registry      *provider.Registry
	translator    Translator
	logger        zerolog.Logger
	defaultMaxAge time.Duration
}

func NewService(cache cachestore.Store, registry *provider.Registry, translator Translator, logger zerolog.Logger, defaultMaxAge time.Duration) *Service {
	return &Service{
		cache:         cache,
		registry:      registry,
		translator:    translator,
		logger:        logger,
		defaultMaxAge: defaultMaxAge,
	}
}

// Search resolves a query through the cache and the ordered fallback list of
// the target language's providers. The first successful candidate wins;
// candidates are tried strictly in sequence and soft failures (backend "not
// found", backend unreachable) never abort the request.
func (s *Service) Search(ctx context.Context, query Query) (*Outcome, error) {
	if strings.TrimSpace(query.Provider) != "" {
		return s.searchPinned(ctx, query)
	}

	maxAge := EffectiveMaxAge(query.CacheControl, s.defaultMaxAge)
	targetKey := cachestore.NewKey(query.Text, query.Long, query.TargetLanguage)

	if result, ok := s.lookupCache(ctx, targetKey, maxAge, ""); ok {
		return s.finishWithTranslation(ctx, query, result)
	}

	reply, winner, err := s.fanout(ctx, query)
	if err != nil {
		return nil, err
	}

	if reply.Disambiguous {
		return &Outcome{Disambiguation: &Disambiguation{Links: reply.DisambiguousData, Provider: winner}}, nil
	}

	result := s.normalize(ctx, query, reply, winner)
	return s.finishWithTranslation(ctx, query, result)
}

func (s *Service) searchPinned(ctx context.Context, query Query) (*Outcome, error) {
	pin := strings.ToLower(strings.TrimSpace(query.Provider))
	client, ok := s.registry.Resolve(pin)
	if !ok {
		return nil, ErrUnknownProvider
	}

	maxAge := EffectiveMaxAge(query.CacheControl, s.defaultMaxAge)
	targetKey := cachestore.NewKey(query.Text, query.Long, query.TargetLanguage)

	if result, ok := s.lookupCache(ctx, targetKey, maxAge, pin); ok {
		return s.finishWithTranslation(ctx, query, result)
	}

	reply, err := s.invoke(ctx, client, query)
	if err != nil {
		if provider.IsSoftFailure(err) {
			s.logSoftFailure(pin, query.Text, err)
			return nil, ErrNotFound
		}
		s.logger.Error().Err(err).Str("provider", pin).Str("query", query.Text).Msg("pinned provider failed unexpectedly")
		return nil, errors.Join(ErrInternal, err)
	}

	if reply.Disambiguous {
		return &Outcome{Disambiguation: &Disambiguation{Links: reply.DisambiguousData, Provider: pin}}, nil
	}

	result := s.normalize(ctx, query, reply, pin)
	return s.finishWithTranslation(ctx, query, result)
}

// fanout tries each candidate for the target language in priority order and
// returns the first successful reply. Only exhaustion of every candidate is
// fatal.
func (s *Service) fanout(ctx context.Context, query Query) (*provider.ScrapeReply, string, error) {
	for _, candidate := range s.registry.ProvidersFor(query.TargetLanguage) {
		reply, err := s.invoke(ctx, candidate.Client, query)
		if err != nil {
			if provider.IsSoftFailure(err) {
				s.logSoftFailure(candidate.Name, query.Text, err)
			} else {
				s.logger.Error().Err(err).Str("provider", candidate.Name).Str("query", query.Text).Msg("provider failed unexpectedly")
			}
			continue
		}
		return reply, candidate.Name, nil
	}
	return nil, "", ErrNotFound
}

func (s *Service) invoke(ctx context.Context, client provider.Client, query Query) (*provider.ScrapeReply, error) {
	if query.Long {
		return client.LongSearch(ctx, query.Text)
	}
	return client.Search(ctx, query.Text)
}

// normalize builds the canonical record for a fresh reply and caches it
// under the language the backend answered in.
func (s *Service) normalize(ctx context.Context, query Query, reply *provider.ScrapeReply, providerName string) *cachestore.Result {
	result := &cachestore.Result{
		Data:             strings.TrimSpace(reply.Data),
		Provider:         providerName,
		CurrentLanguage:  reply.Language,
		OriginalLanguage: reply.Language,
		CreatedAt:        globaltime.Now(),
	}
	s.cache.Add(ctx, cachestore.NewKey(query.Text, query.Long, result.CurrentLanguage), *result)
	return result
}

// finishWithTranslation translates the result when it is not already in the
// requested language and re-caches the translated variant under the target
// language key. A translation failure degrades to the untranslated result.
func (s *Service) finishWithTranslation(ctx context.Context, query Query, result *cachestore.Result) (*Outcome, error) {
	if result.CurrentLanguage == query.TargetLanguage {
		return &Outcome{Result: result}, nil
	}

	translated, err := s.translator.Translate(ctx, *result, query.TargetLanguage)
	if err != nil {
		s.logger.Error().Err(err).
			Str("from", result.CurrentLanguage).
			Str("to", query.TargetLanguage).
			Msg("translation failed, serving untranslated result")
		return &Outcome{Result: result}, nil
	}

	s.cache.Add(ctx, cachestore.NewKey(query.Text, query.Long, query.TargetLanguage), *translated)
	return &Outcome{Result: translated}, nil
}

// lookupCache skips the read entirely under a zero freshness window; a
// zero-age entry could never satisfy it.
func (s *Service) lookupCache(ctx context.Context, key cachestore.Key, maxAge time.Duration, pin string) (*cachestore.Result, bool) {
	if maxAge <= 0 {
		return nil, false
	}
	return s.cache.Retrieve(ctx, key, maxAge, pin)
}

func (s *Service) logSoftFailure(providerName, queryText string, err error) {
	event := s.logger.Info()
	if provider.IsUnavailable(err) {
		event = s.logger.Error()
	}
	event.Err(err).Str("provider", providerName).Str("query", queryText).Msg("provider failed to find result")
}
