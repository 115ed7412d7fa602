package provider

import (
	"strings"
	"testing"
)

func TestParseFallbacksConfigValid(t *testing.T) {
	t.Parallel()

	cfg, err := ParseFallbacksConfig([]byte(`{
		"config_version": "v1",
		"fallbacks": {
			"en": ["wikipediaen"],
			"it": ["treccani", "wikipediaen"]
		}
	}`))
	if err != nil {
		t.Fatalf("expected config to be valid, got: %v", err)
	}
	if got := cfg.Fallbacks["it"]; len(got) != 2 || got[0] != "treccani" {
		t.Fatalf("unexpected italian fallbacks: %v", got)
	}
}

func TestParseFallbacksConfigRejectsBadDocuments(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"wrong version":       `{"config_version":"v2","fallbacks":{"en":["wikipediaen"]}}`,
		"missing fallbacks":   `{"config_version":"v1"}`,
		"bad language key":    `{"config_version":"v1","fallbacks":{"English":["wikipediaen"]}}`,
		"duplicate providers": `{"config_version":"v1","fallbacks":{"en":["wikipediaen","wikipediaen"]}}`,
		"empty provider name": `{"config_version":"v1","fallbacks":{"en":[""]}}`,
		"trailing data":       `{"config_version":"v1","fallbacks":{"en":["wikipediaen"]}} x`,
	}

	for name, payload := range cases {
		if _, err := ParseFallbacksConfig([]byte(payload)); err == nil {
			t.Fatalf("expected %s to be rejected", name)
		}
	}
}

func TestLoadFallbacksDefaults(t *testing.T) {
	t.Parallel()

	fallbacks, err := LoadFallbacks("  ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := strings.Join(fallbacks["en"], ","); got != "wikipediaen" {
		t.Fatalf("unexpected english default: %q", got)
	}
	if got := strings.Join(fallbacks["it"], ","); got != "treccani" {
		t.Fatalf("unexpected italian default: %q", got)
	}
}
