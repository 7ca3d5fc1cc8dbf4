package web

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/urbanair/aqkg/pkg/loader"

	"codeberg.org/readeck/go-readability/v2"
)

// WebGraphLoader loads content from web URLs. HTML pages are reduced to
// their readable main text; other content types are returned as is.
type WebGraphLoader struct {
	client *http.Client
	cache  loader.Cache
}

// NewWebGraphLoader creates a web loader using http.DefaultClient.
func NewWebGraphLoader() *WebGraphLoader {
	return NewWebGraphLoaderWithClient(http.DefaultClient)
}

// NewWebGraphLoaderWithClient creates a web loader with a custom HTTP client.
func NewWebGraphLoaderWithClient(client *http.Client) *WebGraphLoader {
	return &WebGraphLoader{client: client}
}

// GetFileText fetches a URL and extracts readable text content. Results
// are cached.
func (l *WebGraphLoader) GetFileText(ctx context.Context, file loader.GraphFile) ([]byte, error) {
	return l.cache.Load(loader.CacheKey(file), func() ([]byte, error) {
		return l.fetch(ctx, file.FilePath)
	})
}

func (l *WebGraphLoader) fetch(ctx context.Context, location string) ([]byte, error) {
	pageURL, err := url.Parse(location)
	if err != nil {
		return nil, fmt.Errorf("failed to parse url: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch url: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("failed to fetch url: status %d", resp.StatusCode)
	}

	if !strings.Contains(resp.Header.Get("Content-Type"), "text/html") {
		return io.ReadAll(resp.Body)
	}

	article, err := readability.FromReader(resp.Body, pageURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse html: %w", err)
	}
	var builder strings.Builder
	if err := article.RenderText(&builder); err != nil {
		return nil, fmt.Errorf("failed to render article text: %w", err)
	}
	return []byte(builder.String()), nil
}
