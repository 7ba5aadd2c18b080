// Package ingest dispatches on a Source's input variant (text/file/url/git)
// and produces raw text plus a derived title (spec §4.4, component C4).
package ingest

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-shiori/go-readability"

	"github.com/speakcast/speakcast/internal/model/apperr"
	"github.com/speakcast/speakcast/internal/resilience"
)

// Result is the output of an ingestion call: raw text and a derived title.
type Result struct {
	Title   string
	RawText string
}

const (
	maxTitleLen   = 200
	maxFetchBytes = 20 * 1024 * 1024 // 20 MiB cap (spec §4.4 "size cap")
	maxRedirects  = 5
)

// allowedContentTypes is the allow-list for the url variant (spec §4.4).
var allowedContentTypes = []string{"text/html", "text/plain", "text/markdown", "application/xhtml+xml"}

// IngestText passes raw through unchanged with a caller-supplied or
// auto-derived title.
func IngestText(raw, callerTitle string) (Result, error) {
	title := callerTitle
	if title == "" {
		title = deriveTitle(raw)
	}
	return Result{Title: title, RawText: raw}, nil
}

// IngestFile reads UTF-8 bytes from an uploaded blob, recording filename as title.
func IngestFile(data []byte, filename string) (Result, error) {
	if !utf8.Valid(data) {
		return Result{}, fmt.Errorf("ingest: file %q is not valid UTF-8: %w", filename, apperr.ErrUnsupportedType)
	}
	return Result{Title: filename, RawText: string(data)}, nil
}

// Fetcher performs the url variant's HTTP GET, wrapped in its own circuit
// breaker (spec §4.4's bounded timeout/size cap/content-type
// allow-list, resilient against a flaky remote host).
type Fetcher struct {
	client  *http.Client
	breaker *resilience.CircuitBreaker
}

// NewFetcher constructs a Fetcher with the given per-request timeout.
func NewFetcher(timeout time.Duration) *Fetcher {
	return &Fetcher{
		client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return fmt.Errorf("ingest: stopped after %d redirects", maxRedirects)
				}
				return nil
			},
		},
		breaker: resilience.NewURLFetchCircuitBreaker(),
	}
}

// IngestURL fetches rawURL, enforcing the timeout/size-cap/content-type
// allow-list and extracting a readable title and body from HTML.
func (f *Fetcher) IngestURL(ctx context.Context, rawURL string) (Result, error) {
	var body []byte
	var contentType string

	err := f.breaker.Execute(func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return fmt.Errorf("ingest: build request: %w: %w", apperr.ErrFetchFailed, err)
		}
		resp, err := f.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return fmt.Errorf("ingest: fetch %q: %w", rawURL, apperr.ErrTimeout)
			}
			return fmt.Errorf("ingest: fetch %q: %w: %w", rawURL, apperr.ErrFetchFailed, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("ingest: fetch %q: status %d: %w", rawURL, resp.StatusCode, apperr.ErrFetchFailed)
		}

		contentType = resp.Header.Get("Content-Type")
		if !contentTypeAllowed(contentType) {
			return fmt.Errorf("ingest: content-type %q not allowed: %w", contentType, apperr.ErrUnsupportedType)
		}

		limited := io.LimitReader(resp.Body, maxFetchBytes+1)
		data, readErr := io.ReadAll(limited)
		if readErr != nil {
			return fmt.Errorf("ingest: read body: %w: %w", apperr.ErrFetchFailed, readErr)
		}
		if len(data) > maxFetchBytes {
			return fmt.Errorf("ingest: body exceeds %d bytes: %w", maxFetchBytes, apperr.ErrTooLarge)
		}
		body = data
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	if strings.Contains(contentType, "html") {
		article, rerr := readability.FromReader(bytes.NewReader(body), nil)
		if rerr == nil && strings.TrimSpace(article.TextContent) != "" {
			title := article.Title
			if title == "" {
				title = deriveTitle(article.TextContent)
			}
			return Result{Title: title, RawText: article.Content}, nil
		}
	}

	return Result{Title: deriveTitle(string(body)), RawText: string(body)}, nil
}

func contentTypeAllowed(ct string) bool {
	if ct == "" {
		return true
	}
	for _, allowed := range allowedContentTypes {
		if strings.Contains(ct, allowed) {
			return true
		}
	}
	return false
}

// deriveTitle takes the first non-empty line of text, stripped of leading
// markdown heading markers and truncated to maxTitleLen (spec §4.4 "text:
// ... auto-derived title (first non-empty line, truncated)").
func deriveTitle(text string) string {
	scanner := bufio.NewScanner(strings.NewReader(text))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		line = strings.TrimSpace(strings.TrimLeft(line, "#"))
		if line == "" {
			continue
		}
		if len(line) > maxTitleLen {
			line = line[:maxTitleLen]
		}
		return line
	}
	return "Untitled"
}
