package search

import (
	"strconv"
	"strings"
	"time"
)

const (
	directiveNoCache      = "no-cache"
	directiveMaxAgePrefix = "max-age="
)

// EffectiveMaxAge interprets a request's Cache-Control value as a freshness
// window. An absent or unrecognized directive uses the configured default,
// "no-cache" forces zero (fall through to the backends), and "max-age=N"
// is honored verbatim, N = 0 included.
func EffectiveMaxAge(cacheControl string, defaultMaxAge time.Duration) time.Duration {
	directive := strings.ToLower(strings.TrimSpace(cacheControl))

	if strings.HasPrefix(directive, directiveNoCache) {
		return 0
	}
	if strings.HasPrefix(directive, directiveMaxAgePrefix) {
		raw := strings.TrimPrefix(directive, directiveMaxAgePrefix)
		seconds, err := strconv.Atoi(raw)
		if err != nil || seconds < 0 {
			return defaultMaxAge
		}
		return time.Duration(seconds) * time.Second
	}
	return defaultMaxAge
}
