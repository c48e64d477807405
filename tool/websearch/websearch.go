// Package websearch is a web search tool backed by the DuckDuckGo HTML
// endpoint, scraped with goquery. Results come back as numbered
// title/snippet/URL blocks ready to be used as evidence.
package websearch

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const (
	defaultEndpoint   = "https://html.duckduckgo.com/html/"
	defaultMaxResults = 5
	userAgent         = "Mozilla/5.0 (compatible; ragweave/0.1)"
)

// Config holds web search configuration.
type Config struct {
	Endpoint   string
	MaxResults int
	HTTPClient *http.Client
}

// Tool implements the tool interface for web search.
type Tool struct {
	endpoint   string
	maxResults int
	client     *http.Client
}

// New creates a web search tool. A nil config takes the defaults.
func New(config *Config) *Tool {
	if config == nil {
		config = &Config{}
	}
	endpoint := config.Endpoint
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	maxResults := config.MaxResults
	if maxResults <= 0 {
		maxResults = defaultMaxResults
	}
	client := config.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &Tool{
		endpoint:   endpoint,
		maxResults: maxResults,
		client:     client,
	}
}

func (t *Tool) Name() string { return "web_search" }

func (t *Tool) Description() string {
	return "Searches the web and returns titles, snippets and URLs of the top results. Parameter: the search query."
}

// Execute runs the search. The parameter text is the search query; when
// empty, the user query is searched instead.
func (t *Tool) Execute(ctx context.Context, params, query string) (string, error) {
	search := strings.TrimSpace(params)
	if search == "" {
		search = strings.TrimSpace(query)
	}
	if search == "" {
		return "", fmt.Errorf("web_search: empty query")
	}

	endpoint := t.endpoint + "?q=" + url.QueryEscape(search)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("web_search: build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := t.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("web_search: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("web_search: unexpected status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", fmt.Errorf("web_search: parse response: %w", err)
	}

	results := parseResults(doc, t.maxResults)
	if len(results) == 0 {
		return "", fmt.Errorf("web_search: no results for %q", search)
	}
	return strings.Join(results, "\n"), nil
}

func parseResults(doc *goquery.Document, max int) []string {
	var results []string
	doc.Find(".result").EachWithBreak(func(i int, s *goquery.Selection) bool {
		if len(results) >= max {
			return false
		}

		link := s.Find(".result__title a").First()
		title := strings.TrimSpace(link.Text())
		if title == "" {
			return true
		}
		href, _ := link.Attr("href")
		snippet := strings.TrimSpace(s.Find(".result__snippet").First().Text())

		entry := fmt.Sprintf("%d. %s", len(results)+1, title)
		if snippet != "" {
			entry += "\n" + snippet
		}
		if target := resolveHref(href); target != "" {
			entry += "\n" + target
		}
		results = append(results, entry)
		return true
	})
	return results
}

// resolveHref unwraps DuckDuckGo's redirect links (/l/?uddg=<encoded>).
func resolveHref(href string) string {
	if href == "" {
		return ""
	}
	parsed, err := url.Parse(href)
	if err != nil {
		return href
	}
	if target := parsed.Query().Get("uddg"); target != "" {
		if decoded, err := url.QueryUnescape(target); err == nil {
			return decoded
		}
	}
	return href
}
