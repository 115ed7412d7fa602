// Package wikipedia scrapes English Wikipedia article summaries and full
// article bodies.
package wikipedia

import (
	"bytes"
	"context"
	"errors"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/marco741/prof-backend/internal/fetch"
	"github.com/marco741/prof-backend/internal/provider"
)

const (
	Name = "wikipediaen"

	defaultBaseURL = "https://en.wikipedia.org"
	replyLanguage  = "en"

	disambiguousPhrase = "may refer to"
	minSummaryLength   = 5
)

var (
	citationPattern      = regexp.MustCompile(`\[\d+\]`)
	parentheticalPattern = regexp.MustCompile(`\s?\([^()]*\)`)
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

// Search returns the cleaned first paragraph of the matching article, or the
// candidate list when the query lands on a disambiguation page.
func (s *Scraper) Search(ctx context.Context, text string) (*provider.ScrapeReply, error) {
	doc, _, err := s.fetchArticle(ctx, text)
	if err != nil {
		return nil, err
	}

	summary, err := s.pageSummary(doc)
	if err != nil {
		return nil, err
	}

	if strings.Contains(summary, disambiguousPhrase) {
		return s.disambiguationReply(doc)
	}
	return &provider.ScrapeReply{Language: replyLanguage, Data: summary}, nil
}

// LongSearch behaves like Search for disambiguation pages, and otherwise
// extracts the readable full article text.
func (s *Scraper) LongSearch(ctx context.Context, text string) (*provider.ScrapeReply, error) {
	doc, body, err := s.fetchArticle(ctx, text)
	if err != nil {
		return nil, err
	}

	summary, err := s.pageSummary(doc)
	if err != nil {
		return nil, err
	}
	if strings.Contains(summary, disambiguousPhrase) {
		return s.disambiguationReply(doc)
	}

	full, err := fetch.ExtractReadableText(body, s.endpoint(text))
	if err != nil {
		return nil, provider.InternalError(err)
	}
	return &provider.ScrapeReply{Language: replyLanguage, Data: cleanExtract(full)}, nil
}

func (s *Scraper) fetchArticle(ctx context.Context, text string) (*goquery.Document, []byte, error) {
	body, err := fetch.Page(ctx, s.endpoint(text), s.fetch)
	if err != nil {
		var statusErr *fetch.StatusError
		if errors.As(err, &statusErr) {
			return nil, nil, provider.NotFoundError("text not found")
		}
		return nil, nil, provider.UnavailableError("wikipedia unreachable", err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, nil, provider.InternalError(err)
	}
	return doc, body, nil
}

func (s *Scraper) endpoint(text string) string {
	if strings.Contains(text, "wikipedia.org") {
		return text
	}
	slug := strings.Join(strings.Fields(strings.ToLower(strings.TrimSpace(text))), "_")
	return s.baseURL + "/wiki/" + url.PathEscape(slug)
}

// pageSummary finds the first substantial top-level paragraph of the article
// body and cleans it.
func (s *Scraper) pageSummary(doc *goquery.Document) (string, error) {
	paragraphs := doc.Find("div.mw-parser-output").First().ChildrenFiltered("p")

	summary := ""
	paragraphs.EachWithBreak(func(i int, p *goquery.Selection) bool {
		if i >= 5 {
			return false
		}
		text := strings.TrimSpace(p.Text())
		if len(text) > minSummaryLength {
			summary = cleanExtract(text)
			return false
		}
		return true
	})

	if summary == "" {
		return "", provider.NotFoundError("summary not found")
	}
	return summary, nil
}

func (s *Scraper) disambiguationReply(doc *goquery.Document) (*provider.ScrapeReply, error) {
	links := s.mayReferToLinks(doc)
	if len(links) == 0 {
		return nil, provider.NotFoundError("text not found")
	}
	return &provider.ScrapeReply{
		Language:         replyLanguage,
		Disambiguous:     true,
		DisambiguousData: links,
	}, nil
}

// mayReferToLinks collects the candidate subjects of a "may refer to" page,
// stopping at the See also section and skipping navigation-only anchors.
func (s *Scraper) mayReferToLinks(doc *goquery.Document) []provider.Link {
	var links []provider.Link

	doc.Find("div.mw-parser-output").First().Children().EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if goquery.NodeName(sel) == "h2" && sel.Find(`span#See_also`).Length() > 0 {
			return false
		}
		if goquery.NodeName(sel) != "ul" {
			return true
		}

		sel.Find("li").Each(func(_ int, li *goquery.Selection) {
			anchor := li.Find("a").First()
			if anchor.Length() == 0 {
				return
			}
			href, ok := anchor.Attr("href")
			if !ok {
				return
			}
			if anchor.HasClass("mw-disambig") || anchor.HasClass("mw-redirect") {
				return
			}
			if strings.Contains(href, "wiktionary") || strings.Contains(href, "action=edit") {
				return
			}
			links = append(links, provider.Link{
				Label: strings.TrimSpace(li.Text()),
				URL:   s.absoluteURL(href),
			})
		})
		return true
	})

	return links
}

func (s *Scraper) absoluteURL(href string) string {
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	return s.baseURL + href
}

// cleanExtract strips citation markers and parenthetical asides from
// article text.
func cleanExtract(text string) string {
	clean := citationPattern.ReplaceAllString(text, "")
	clean = parentheticalPattern.ReplaceAllString(clean, "")
	return fetch.CleanText(clean)
}
