package httpapi

import (
	"strings"

	"github.com/labstack/echo/v4"
	textlanguage "golang.org/x/text/language"

	"github.com/marco741/prof-backend/internal/langdetect"
	"github.com/marco741/prof-backend/internal/language"
)

// localeResolver picks the response language for a request: the best
// Accept-Language match against the languages that have configured
// providers, then detection on the query text, then the configured default.
type localeResolver struct {
	supported       []string
	matcher         textlanguage.Matcher
	supportedSet    map[string]struct{}
	defaultLanguage string
}

func newLocaleResolver(supported []string, defaultLanguage string) *localeResolver {
	fallback := language.NormalizeTag(defaultLanguage)
	if fallback == "" {
		fallback = "en"
	}

	tags := make([]textlanguage.Tag, 0, len(supported))
	set := make(map[string]struct{}, len(supported))
	codes := make([]string, 0, len(supported))
	for _, lang := range supported {
		code := language.NormalizeTag(lang)
		if code == "" {
			continue
		}
		tag, err := textlanguage.Parse(code)
		if err != nil {
			continue
		}
		tags = append(tags, tag)
		set[code] = struct{}{}
		codes = append(codes, code)
	}

	var matcher textlanguage.Matcher
	if len(tags) > 0 {
		matcher = textlanguage.NewMatcher(tags)
	}

	return &localeResolver{
		supported:       codes,
		matcher:         matcher,
		supportedSet:    set,
		defaultLanguage: fallback,
	}
}

func (r *localeResolver) Resolve(c echo.Context, queryText string) string {
	if r == nil {
		return "en"
	}

	if header := strings.TrimSpace(c.Request().Header.Get("Accept-Language")); header != "" && r.matcher != nil {
		if tags, _, err := textlanguage.ParseAcceptLanguage(header); err == nil && len(tags) > 0 {
			if _, idx, conf := r.matcher.Match(tags...); conf > textlanguage.No {
				return r.supported[idx]
			}
		}
	}

	if detected := langdetect.DetectISO6391(queryText); detected != "" {
		if _, ok := r.supportedSet[detected]; ok {
			return detected
		}
	}

	return r.defaultLanguage
}
