package provider

import (
	"fmt"
	"sort"
	"strings"

	"github.com/marco741/prof-backend/internal/language"
)

// Candidate is one entry of a language's fallback list.
type Candidate struct {
	Name   string
	Client Client
}

// Registry holds the provider handles and the per-language fallback order.
// It is built once at startup and read-only afterwards, so concurrent reads
// need no locking.
type Registry struct {
	clients   map[string]Client
	fallbacks map[string][]string
}

// NewRegistry builds a registry from registered clients and a per-language
// fallback mapping. Every name referenced by a fallback list must belong to
// a registered client, and a name may appear at most once per list.
func NewRegistry(clients []Client, fallbacks map[string][]string) (*Registry, error) {
	registry := &Registry{
		clients:   make(map[string]Client, len(clients)),
		fallbacks: make(map[string][]string, len(fallbacks)),
	}

	for _, client := range clients {
		if client == nil {
			return nil, fmt.Errorf("client is nil")
		}
		name := normalizeName(client.Name())
		if name == "" {
			return nil, fmt.Errorf("client name is required")
		}
		if _, exists := registry.clients[name]; exists {
			return nil, fmt.Errorf("client %q is registered twice", name)
		}
		registry.clients[name] = client
	}

	for lang, names := range fallbacks {
		code := language.NormalizeTag(lang)
		if code == "" {
			return nil, fmt.Errorf("invalid fallback language %q", lang)
		}
		seen := make(map[string]struct{}, len(names))
		ordered := make([]string, 0, len(names))
		for _, raw := range names {
			name := normalizeName(raw)
			if _, exists := registry.clients[name]; !exists {
				return nil, fmt.Errorf("fallback list for %q references unknown provider %q", code, raw)
			}
			if _, dup := seen[name]; dup {
				return nil, fmt.Errorf("fallback list for %q repeats provider %q", code, name)
			}
			seen[name] = struct{}{}
			ordered = append(ordered, name)
		}
		registry.fallbacks[code] = ordered
	}

	return registry, nil
}

// ProvidersFor returns the fallback candidates for a language in priority
// order. A language with no configured providers yields an empty slice.
func (r *Registry) ProvidersFor(lang string) []Candidate {
	if r == nil {
		return nil
	}
	names := r.fallbacks[language.NormalizeTag(lang)]
	candidates := make([]Candidate, 0, len(names))
	for _, name := range names {
		candidates = append(candidates, Candidate{Name: name, Client: r.clients[name]})
	}
	return candidates
}

// Resolve returns the client registered under name.
func (r *Registry) Resolve(name string) (Client, bool) {
	if r == nil {
		return nil, false
	}
	client, ok := r.clients[normalizeName(name)]
	return client, ok
}

// Languages lists every language that has at least one configured provider.
func (r *Registry) Languages() []string {
	if r == nil {
		return nil
	}
	langs := make([]string, 0, len(r.fallbacks))
	for lang, names := range r.fallbacks {
		if len(names) > 0 {
			langs = append(langs, lang)
		}
	}
	sort.Strings(langs)
	return langs
}

// ProviderNames lists every registered provider identifier.
func (r *Registry) ProviderNames() []string {
	if r == nil {
		return nil
	}
	names := make([]string, 0, len(r.clients))
	for name := range r.clients {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func normalizeName(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}
