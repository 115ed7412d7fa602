// Package treccani scrapes the Treccani online vocabulary for Italian
// definitions.
package treccani

import (
	"context"
	"errors"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/marco741/prof-backend/internal/fetch"
	"github.com/marco741/prof-backend/internal/provider"
)

const (
	Name = "treccani"

	defaultBaseURL = "https://www.treccani.it"
	replyLanguage  = "it"

	searchPathPrefix = "/vocabolario/ricerca/"
	entryPathPrefix  = "/vocabolario/"
)

// Options configures a Scraper. Zero values use the live site defaults.
type Options struct {
	BaseURL string
	Fetch   fetch.Options
}

type Scraper struct {
	baseURL string
	fetch   fetch.Options
}

func New() *Scraper {
	return NewWithOptions(Options{})
}

func NewWithOptions(opts Options) *Scraper {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Scraper{baseURL: baseURL, fetch: opts.Fetch}
}

func (s *Scraper) Name() string {
	return Name
}

// Search resolves a term through the vocabulary search page. A single
// matching heading is followed to its entry, several matches yield a
// disambiguation list, none is a not-found failure. A direct entry URL skips
// the search page entirely.
func (s *Scraper) Search(ctx context.Context, text string) (*provider.ScrapeReply, error) {
	endpoint, viaSearch := s.resolveEndpoint(text)

	doc, err := s.fetchPage(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	if !viaSearch {
		summary, err := entrySummary(doc)
		if err != nil {
			return nil, err
		}
		return &provider.ScrapeReply{Language: replyLanguage, Data: summary}, nil
	}

	term := s.searchTerm(text)
	matches := matchingHeadings(doc, term)
	switch len(matches) {
	case 0:
		return nil, provider.NotFoundError("page not found")
	case 1:
		return s.followEntry(ctx, term)
	default:
		return &provider.ScrapeReply{
			Language:         replyLanguage,
			Disambiguous:     true,
			DisambiguousData: s.disambiguationLinks(matches),
		}, nil
	}
}

// LongSearch behaves as Search: Treccani entries carry no separate long form.
func (s *Scraper) LongSearch(ctx context.Context, text string) (*provider.ScrapeReply, error) {
	return s.Search(ctx, text)
}

func (s *Scraper) fetchPage(ctx context.Context, endpoint string) (*goquery.Document, error) {
	doc, err := fetch.Document(ctx, endpoint, s.fetch)
	if err != nil {
		var statusErr *fetch.StatusError
		if errors.As(err, &statusErr) {
			return nil, provider.NotFoundError("page not found")
		}
		return nil, provider.UnavailableError("treccani unreachable", err)
	}
	return doc, nil
}

func (s *Scraper) resolveEndpoint(text string) (endpoint string, viaSearch bool) {
	if strings.Contains(text, "treccani.it") {
		return text, strings.Contains(text, searchPathPrefix)
	}
	term := normalizeTerm(text)
	return s.baseURL + searchPathPrefix + strings.Join(strings.Fields(term), "_"), true
}

// searchTerm derives the heading match term from the original query.
func (s *Scraper) searchTerm(text string) string {
	if strings.Contains(text, "treccani.it") {
		term := text
		if idx := strings.Index(term, searchPathPrefix); idx >= 0 {
			term = term[idx+len(searchPathPrefix):]
		}
		term = strings.ReplaceAll(term, "/", "")
		return normalizeTerm(term)
	}
	return normalizeTerm(text)
}

func (s *Scraper) followEntry(ctx context.Context, term string) (*provider.ScrapeReply, error) {
	slug := term
	if len(strings.Fields(term)) > 1 {
		slug = strings.ReplaceAll(term, " ", "-") + "_%28Neologismi%29"
	}

	doc, err := s.fetchPage(ctx, s.baseURL+entryPathPrefix+slug+"/")
	if err != nil {
		return nil, err
	}

	summary, err := entrySummary(doc)
	if err != nil {
		return nil, err
	}
	return &provider.ScrapeReply{Language: replyLanguage, Data: summary}, nil
}

// entrySummary extracts the definition body of an entry page. Short entries
// that only carry a "vedi altro" abstract use the abstract block.
func entrySummary(doc *goquery.Document) (string, error) {
	summary := doc.Find("div.module-article-full_content").First()
	if summary.Length() == 0 {
		summary = doc.Find("div.abstract").First()
	}
	if summary.Length() == 0 {
		return "", provider.NotFoundError("page not found")
	}

	text := fetch.CleanText(summary.Text())
	if text == "" {
		return "", provider.NotFoundError("page not found")
	}
	return text, nil
}

type headingMatch struct {
	label string
	href  string
}

// matchingHeadings collects search result headings whose normalized text
// contains the term.
func matchingHeadings(doc *goquery.Document, term string) []headingMatch {
	var matches []headingMatch

	doc.Find("h2.search_preview-title").Each(func(_ int, heading *goquery.Selection) {
		label := strings.TrimSpace(heading.Text())
		normalized := normalizeTerm(label)
		if normalized != term && !strings.Contains(normalized, term) {
			return
		}

		href, ok := heading.Find("a").First().Attr("href")
		if !ok {
			return
		}
		matches = append(matches, headingMatch{label: label, href: href})
	})

	return matches
}

func (s *Scraper) disambiguationLinks(matches []headingMatch) []provider.Link {
	links := make([]provider.Link, 0, len(matches))
	for _, match := range matches {
		links = append(links, provider.Link{
			Label: match.label,
			URL:   s.absoluteURL(match.href),
		})
	}
	return links
}

func (s *Scraper) absoluteURL(href string) string {
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	return s.baseURL + href
}

var diacriticsStripper = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// normalizeTerm lowercases, trims, and strips combining diacritics so that
// accented headings compare equal to unaccented queries.
func normalizeTerm(raw string) string {
	term := strings.ToLower(strings.TrimSpace(raw))
	if stripped, _, err := transform.String(diacriticsStripper, term); err == nil {
		term = stripped
	}
	return strings.Join(strings.Fields(term), " ")
}
