package content

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	readability "github.com/go-shiori/go-readability"
	"github.com/markusmobius/go-trafilatura"
)

// HTTPExtractor fetches article pages and extracts boilerplate-free text.
// Trafilatura is the primary extractor, readability the fallback when it
// comes back empty.
type HTTPExtractor struct {
	client    *http.Client
	timeout   time.Duration
	userAgent string
}

// NewHTTPExtractor creates a new content extractor
func NewHTTPExtractor(timeout time.Duration, userAgent string) *HTTPExtractor {
	return &HTTPExtractor{
		client:    &http.Client{Timeout: timeout},
		timeout:   timeout,
		userAgent: userAgent,
	}
}

// Extract retrieves the page at urlStr and returns its main article text.
// Returns an error on transport failure or when no text can be extracted.
func (e *HTTPExtractor) Extract(ctx context.Context, urlStr string) (string, error) {
	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		return "", fmt.Errorf("parse URL: %w", err)
	}
	if parsedURL.Scheme == "" || parsedURL.Host == "" {
		return "", fmt.Errorf("invalid URL: %s", urlStr)
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, http.NoBody)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", e.userAgent)
	addBrowserHeaders(req)

	resp, err := e.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch URL %s: %w", urlStr, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status code %d for URL %s", resp.StatusCode, urlStr)
	}

	// buffer the page so the fallback extractor can re-read it
	page, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read page %s: %w", urlStr, err)
	}

	opts := trafilatura.Options{
		EnableFallback:  true,
		ExcludeComments: true,
		ExcludeTables:   true,
		IncludeImages:   false,
		IncludeLinks:    false,
		Deduplicate:     true,
		OriginalURL:     parsedURL,
	}

	if result, exErr := trafilatura.Extract(bytes.NewReader(page), opts); exErr == nil && result != nil {
		if text := normalize(result.ContentText); text != "" {
			return text, nil
		}
	}

	// trafilatura came back empty, try readability
	article, err := readability.FromReader(bytes.NewReader(page), parsedURL)
	if err != nil {
		return "", fmt.Errorf("extract content from %s: %w", urlStr, err)
	}
	if text := normalize(article.TextContent); text != "" {
		return text, nil
	}

	return "", fmt.Errorf("no text content extracted from %s", urlStr)
}

// normalize turns extractor output into blank-line separated paragraph
// blocks, the form LeadParagraphs works on. Both extractors emit one block
// element per line, so each non-empty trimmed line becomes a paragraph.
func normalize(text string) string {
	var paragraphs []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			paragraphs = append(paragraphs, line)
		}
	}
	return strings.Join(paragraphs, "\n\n")
}
