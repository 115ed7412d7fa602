package search

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/marco741/prof-backend/internal/cachestore"
	"github.com/marco741/prof-backend/internal/globaltime"
	"github.com/marco741/prof-backend/internal/provider"
)

type fakeClient struct {
	name  string
	reply *provider.ScrapeReply
	err   error
	calls int
}

func (f *fakeClient) Search(ctx context.Context, text string) (*provider.ScrapeReply, error) {
	f.calls++
	return f.reply, f.err
}

func (f *fakeClient) LongSearch(ctx context.Context, text string) (*provider.ScrapeReply, error) {
	return f.Search(ctx, text)
}

func (f *fakeClient) Name() string {
	return f.name
}

type countingStore struct {
	inner     *cachestore.Memory
	retrieves int
	adds      int
}

func newCountingStore() *countingStore {
	return &countingStore{inner: cachestore.NewMemory()}
}

func (s *countingStore) Retrieve(ctx context.Context, key cachestore.Key, maxAge time.Duration, providerPin string) (*cachestore.Result, bool) {
	s.retrieves++
	return s.inner.Retrieve(ctx, key, maxAge, providerPin)
}

func (s *countingStore) Add(ctx context.Context, key cachestore.Key, result cachestore.Result) {
	s.adds++
	s.inner.Add(ctx, key, result)
}

type stubTranslator struct {
	calls int
	fail  bool
}

func (t *stubTranslator) Translate(ctx context.Context, result cachestore.Result, targetLang string) (*cachestore.Result, error) {
	t.calls++
	if t.fail {
		return nil, errors.New("translation backend down")
	}
	translated := result
	translated.Data = "translated: " + result.Data
	translated.CurrentLanguage = targetLang
	translated.CreatedAt = globaltime.Now()
	return &translated, nil
}

func newTestService(t *testing.T, store cachestore.Store, translator Translator, fallbacks map[string][]string, clients ...provider.Client) *Service {
	t.Helper()
	registry, err := provider.NewRegistry(clients, fallbacks)
	if err != nil {
		t.Fatalf("build registry: %v", err)
	}
	return NewService(store, registry, translator, zerolog.Nop(), 24*time.Hour)
}

func englishReply(data string) *provider.ScrapeReply {
	return &provider.ScrapeReply{Language: "en", Data: data}
}

func TestSearchResolvesAndCaches(t *testing.T) {
	store := newCountingStore()
	client := &fakeClient{name: "wiki-en", reply: englishReply("Paris is the capital...")}
	svc := newTestService(t, store, &stubTranslator{}, map[string][]string{"en": {"wiki-en"}}, client)

	outcome, err := svc.Search(context.Background(), Query{Text: "capital of france", TargetLanguage: "en"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Result == nil {
		t.Fatalf("expected a result outcome")
	}
	if outcome.Result.Data != "Paris is the capital..." {
		t.Fatalf("unexpected data: %q", outcome.Result.Data)
	}
	if outcome.Result.Provider != "wiki-en" {
		t.Fatalf("unexpected provider: %q", outcome.Result.Provider)
	}
	if outcome.Result.CurrentLanguage != "en" || outcome.Result.OriginalLanguage != "en" {
		t.Fatalf("unexpected languages: %q / %q", outcome.Result.CurrentLanguage, outcome.Result.OriginalLanguage)
	}

	key := cachestore.NewKey("capital of france", false, "en")
	if _, ok := store.inner.Retrieve(context.Background(), key, time.Hour, ""); !ok {
		t.Fatalf("expected a cache entry under the english key")
	}
}

func TestSearchServesFreshEntryWithoutProviderCall(t *testing.T) {
	store := newCountingStore()
	client := &fakeClient{name: "wiki-en", reply: englishReply("Paris is the capital...")}
	svc := newTestService(t, store, &stubTranslator{}, map[string][]string{"en": {"wiki-en"}}, client)

	query := Query{Text: "capital of france", TargetLanguage: "en"}
	if _, err := svc.Search(context.Background(), query); err != nil {
		t.Fatalf("first search failed: %v", err)
	}
	if client.calls != 1 {
		t.Fatalf("expected one provider call, got %d", client.calls)
	}

	outcome, err := svc.Search(context.Background(), query)
	if err != nil {
		t.Fatalf("second search failed: %v", err)
	}
	if client.calls != 1 {
		t.Fatalf("expected cache hit to skip the provider, got %d calls", client.calls)
	}
	if outcome.Result.Data != "Paris is the capital..." {
		t.Fatalf("unexpected cached data: %q", outcome.Result.Data)
	}
}

func TestSearchNoCacheDirectiveForcesFallthrough(t *testing.T) {
	store := newCountingStore()
	client := &fakeClient{name: "wiki-en", reply: englishReply("answer")}
	svc := newTestService(t, store, &stubTranslator{}, map[string][]string{"en": {"wiki-en"}}, client)

	query := Query{Text: "q", TargetLanguage: "en"}
	if _, err := svc.Search(context.Background(), query); err != nil {
		t.Fatalf("warmup search failed: %v", err)
	}

	for _, directive := range []string{"no-cache", "max-age=0"} {
		before := client.calls
		query.CacheControl = directive
		if _, err := svc.Search(context.Background(), query); err != nil {
			t.Fatalf("search with %q failed: %v", directive, err)
		}
		if client.calls != before+1 {
			t.Fatalf("expected %q to bypass the cache", directive)
		}
	}
}

func TestSearchExplicitMaxAgeHonored(t *testing.T) {
	base := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	globaltime.SetMockTime(base)
	defer globaltime.ResetTime()

	store := newCountingStore()
	client := &fakeClient{name: "wiki-en", reply: englishReply("answer")}
	svc := newTestService(t, store, &stubTranslator{}, map[string][]string{"en": {"wiki-en"}}, client)

	query := Query{Text: "q", TargetLanguage: "en"}
	if _, err := svc.Search(context.Background(), query); err != nil {
		t.Fatalf("warmup search failed: %v", err)
	}

	globaltime.SetMockTime(base.Add(30 * time.Second))

	query.CacheControl = "max-age=60"
	if _, err := svc.Search(context.Background(), query); err != nil {
		t.Fatalf("search within window failed: %v", err)
	}
	if client.calls != 1 {
		t.Fatalf("expected a hit within max-age, got %d provider calls", client.calls)
	}

	query.CacheControl = "max-age=10"
	if _, err := svc.Search(context.Background(), query); err != nil {
		t.Fatalf("search past window failed: %v", err)
	}
	if client.calls != 2 {
		t.Fatalf("expected a stale entry to fall through, got %d provider calls", client.calls)
	}
}

func TestSearchFallbackOrderFirstSuccessWins(t *testing.T) {
	store := newCountingStore()
	failing := &fakeClient{name: "treccani", err: provider.UnavailableError("connection refused", nil)}
	winning := &fakeClient{name: "wiki-it", reply: &provider.ScrapeReply{Language: "it", Data: "risposta"}}
	unused := &fakeClient{name: "extra", reply: &provider.ScrapeReply{Language: "it", Data: "ignorato"}}
	svc := newTestService(t, store, &stubTranslator{},
		map[string][]string{"it": {"treccani", "wiki-it", "extra"}}, failing, winning, unused)

	outcome, err := svc.Search(context.Background(), Query{Text: "ciao", TargetLanguage: "it"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Result.Provider != "wiki-it" {
		t.Fatalf("expected wiki-it to win, got %q", outcome.Result.Provider)
	}
	if failing.calls != 1 || winning.calls != 1 {
		t.Fatalf("unexpected call counts: %d / %d", failing.calls, winning.calls)
	}
	if unused.calls != 0 {
		t.Fatalf("expected fanout to stop at the first success")
	}
}

func TestSearchNotFoundAfterExhaustion(t *testing.T) {
	store := newCountingStore()
	first := &fakeClient{name: "a", err: provider.NotFoundError("no page")}
	second := &fakeClient{name: "b", err: provider.UnavailableError("down", nil)}
	svc := newTestService(t, store, &stubTranslator{}, map[string][]string{"en": {"a", "b"}}, first, second)

	_, err := svc.Search(context.Background(), Query{Text: "q", TargetLanguage: "en"})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if first.calls != 1 || second.calls != 1 {
		t.Fatalf("expected every candidate to be tried exactly once")
	}
}

func TestSearchNoCandidatesIsNotFound(t *testing.T) {
	store := newCountingStore()
	svc := newTestService(t, store, &stubTranslator{}, map[string][]string{})

	_, err := svc.Search(context.Background(), Query{Text: "q", TargetLanguage: "de"})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for a language without providers, got %v", err)
	}
}

func TestSearchDisambiguationNotCached(t *testing.T) {
	store := newCountingStore()
	client := &fakeClient{name: "wiki-en", reply: &provider.ScrapeReply{
		Language:     "en",
		Disambiguous: true,
		DisambiguousData: []provider.Link{
			{Label: "Mercury (element)", URL: "https://en.wikipedia.org/wiki/Mercury_(element)"},
			{Label: "Mercury (planet)", URL: "https://en.wikipedia.org/wiki/Mercury_(planet)"},
		},
	}}
	svc := newTestService(t, store, &stubTranslator{}, map[string][]string{"en": {"wiki-en"}}, client)

	query := Query{Text: "mercury", TargetLanguage: "en"}
	outcome, err := svc.Search(context.Background(), query)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Disambiguation == nil {
		t.Fatalf("expected a disambiguation outcome")
	}
	if outcome.Disambiguation.Provider != "wiki-en" {
		t.Fatalf("unexpected provider: %q", outcome.Disambiguation.Provider)
	}
	if len(outcome.Disambiguation.Links) != 2 {
		t.Fatalf("unexpected link count: %d", len(outcome.Disambiguation.Links))
	}
	if store.adds != 0 {
		t.Fatalf("disambiguation must not be cached, saw %d writes", store.adds)
	}

	if _, err := svc.Search(context.Background(), query); err != nil {
		t.Fatalf("repeat search failed: %v", err)
	}
	if client.calls != 2 {
		t.Fatalf("expected repeat request to reach the backend again, got %d calls", client.calls)
	}
}

func TestSearchTranslatesAndRecaches(t *testing.T) {
	store := newCountingStore()
	translator := &stubTranslator{}
	client := &fakeClient{name: "wiki-en", reply: englishReply("Paris is the capital...")}
	svc := newTestService(t, store, translator, map[string][]string{
		"en": {"wiki-en"},
		"it": {"wiki-en"},
	}, client)

	outcome, err := svc.Search(context.Background(), Query{Text: "capital of france", TargetLanguage: "it"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if translator.calls != 1 {
		t.Fatalf("expected one translation, got %d", translator.calls)
	}
	if outcome.Result.CurrentLanguage != "it" {
		t.Fatalf("expected current language it, got %q", outcome.Result.CurrentLanguage)
	}
	if outcome.Result.OriginalLanguage != "en" {
		t.Fatalf("original language must not change, got %q", outcome.Result.OriginalLanguage)
	}
	if outcome.Result.Provider != "wiki-en" {
		t.Fatalf("provider must not change, got %q", outcome.Result.Provider)
	}

	ctx := context.Background()
	if _, ok := store.inner.Retrieve(ctx, cachestore.NewKey("capital of france", false, "en"), time.Hour, ""); !ok {
		t.Fatalf("expected the english entry to survive")
	}
	translated, ok := store.inner.Retrieve(ctx, cachestore.NewKey("capital of france", false, "it"), time.Hour, "")
	if !ok {
		t.Fatalf("expected a distinct italian entry")
	}
	if translated.CurrentLanguage != "it" || translated.OriginalLanguage != "en" {
		t.Fatalf("unexpected cached translation: %+v", translated)
	}
}

func TestSearchTranslatesCacheHit(t *testing.T) {
	store := newCountingStore()
	translator := &stubTranslator{}
	client := &fakeClient{name: "wiki-en", reply: englishReply("answer")}
	svc := newTestService(t, store, translator, map[string][]string{"en": {"wiki-en"}}, client)

	store.inner.Add(context.Background(), cachestore.NewKey("q", false, "it"), cachestore.Result{
		Data:             "answer",
		Provider:         "wiki-en",
		CurrentLanguage:  "en",
		OriginalLanguage: "en",
		CreatedAt:        globaltime.Now(),
	})

	outcome, err := svc.Search(context.Background(), Query{Text: "q", TargetLanguage: "it"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if client.calls != 0 {
		t.Fatalf("expected the cached english result to be reused, got %d provider calls", client.calls)
	}
	if translator.calls != 1 {
		t.Fatalf("expected translation of the cache hit, got %d", translator.calls)
	}
	if outcome.Result.CurrentLanguage != "it" {
		t.Fatalf("unexpected current language: %q", outcome.Result.CurrentLanguage)
	}
}

func TestSearchTranslationFailureDegradesToOriginal(t *testing.T) {
	store := newCountingStore()
	translator := &stubTranslator{fail: true}
	client := &fakeClient{name: "wiki-en", reply: englishReply("answer")}
	svc := newTestService(t, store, translator, map[string][]string{"en": {"wiki-en"}}, client)

	outcome, err := svc.Search(context.Background(), Query{Text: "q", TargetLanguage: "it"})
	if err != nil {
		t.Fatalf("expected degradation, got error: %v", err)
	}
	if outcome.Result.CurrentLanguage != "en" {
		t.Fatalf("expected the untranslated result, got language %q", outcome.Result.CurrentLanguage)
	}
	if _, ok := store.inner.Retrieve(context.Background(), cachestore.NewKey("q", false, "it"), time.Hour, ""); ok {
		t.Fatalf("a failed translation must not be cached under the target key")
	}
}

func TestPinnedSearchUnknownProviderTouchesNothing(t *testing.T) {
	store := newCountingStore()
	client := &fakeClient{name: "wiki-en", reply: englishReply("answer")}
	svc := newTestService(t, store, &stubTranslator{}, map[string][]string{"en": {"wiki-en"}}, client)

	_, err := svc.Search(context.Background(), Query{Text: "q", TargetLanguage: "en", Provider: "nope"})
	if !errors.Is(err, ErrUnknownProvider) {
		t.Fatalf("expected ErrUnknownProvider, got %v", err)
	}
	if store.retrieves != 0 || store.adds != 0 {
		t.Fatalf("cache must not be touched, saw %d reads and %d writes", store.retrieves, store.adds)
	}
	if client.calls != 0 {
		t.Fatalf("no provider must be invoked, saw %d calls", client.calls)
	}
}

func TestPinnedSearchUsesOnlyThePinnedProvider(t *testing.T) {
	store := newCountingStore()
	pinned := &fakeClient{name: "treccani", reply: &provider.ScrapeReply{Language: "it", Data: "risposta"}}
	other := &fakeClient{name: "wiki-it", reply: &provider.ScrapeReply{Language: "it", Data: "altra"}}
	svc := newTestService(t, store, &stubTranslator{},
		map[string][]string{"it": {"wiki-it", "treccani"}}, pinned, other)

	outcome, err := svc.Search(context.Background(), Query{Text: "ciao", TargetLanguage: "it", Provider: "treccani"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Result.Provider != "treccani" {
		t.Fatalf("unexpected provider: %q", outcome.Result.Provider)
	}
	if other.calls != 0 {
		t.Fatalf("pinned path must not fall back, saw %d calls", other.calls)
	}
}

func TestPinnedSearchSoftFailureIsNotFound(t *testing.T) {
	store := newCountingStore()
	client := &fakeClient{name: "treccani", err: provider.NotFoundError("no entry")}
	svc := newTestService(t, store, &stubTranslator{}, map[string][]string{"it": {"treccani"}}, client)

	_, err := svc.Search(context.Background(), Query{Text: "q", TargetLanguage: "it", Provider: "treccani"})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPinnedSearchUnexpectedFailureIsInternal(t *testing.T) {
	store := newCountingStore()
	client := &fakeClient{name: "treccani", err: errors.New("panic-adjacent failure")}
	svc := newTestService(t, store, &stubTranslator{}, map[string][]string{"it": {"treccani"}}, client)

	_, err := svc.Search(context.Background(), Query{Text: "q", TargetLanguage: "it", Provider: "treccani"})
	if !errors.Is(err, ErrInternal) {
		t.Fatalf("expected ErrInternal, got %v", err)
	}
}

func TestPinnedSearchCacheHitRespectsPin(t *testing.T) {
	store := newCountingStore()
	pinned := &fakeClient{name: "treccani", reply: &provider.ScrapeReply{Language: "it", Data: "dalla rete"}}
	svc := newTestService(t, store, &stubTranslator{}, map[string][]string{"it": {"treccani"}}, pinned)

	store.inner.Add(context.Background(), cachestore.NewKey("q", false, "it"), cachestore.Result{
		Data:             "di qualcun altro",
		Provider:         "wiki-it",
		CurrentLanguage:  "it",
		OriginalLanguage: "it",
		CreatedAt:        globaltime.Now(),
	})

	outcome, err := svc.Search(context.Background(), Query{Text: "q", TargetLanguage: "it", Provider: "treccani"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Result.Data != "dalla rete" {
		t.Fatalf("another provider's entry must not satisfy a pinned lookup, got %q", outcome.Result.Data)
	}
	if pinned.calls != 1 {
		t.Fatalf("expected the pinned provider to be invoked, got %d calls", pinned.calls)
	}
}

func TestSearchLongModeUsesLongSearch(t *testing.T) {
	store := newCountingStore()
	client := &longAwareClient{}
	svc := newTestService(t, store, &stubTranslator{}, map[string][]string{"en": {"wiki-en"}}, client)

	outcome, err := svc.Search(context.Background(), Query{Text: "q", Long: true, TargetLanguage: "en"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Result.Data != "long answer" {
		t.Fatalf("expected the long form, got %q", outcome.Result.Data)
	}

	shortKey := cachestore.NewKey("q", false, "en")
	if _, ok := store.inner.Retrieve(context.Background(), shortKey, time.Hour, ""); ok {
		t.Fatalf("long results must not be stored under the short key")
	}
}

type longAwareClient struct{}

func (c *longAwareClient) Search(ctx context.Context, text string) (*provider.ScrapeReply, error) {
	return &provider.ScrapeReply{Language: "en", Data: "short answer"}, nil
}

func (c *longAwareClient) LongSearch(ctx context.Context, text string) (*provider.ScrapeReply, error) {
	return &provider.ScrapeReply{Language: "en", Data: "long answer"}, nil
}

func (c *longAwareClient) Name() string {
	return "wiki-en"
}
