package fetchers

import (
	"context"
	"io"
	"net/http"
	"time"

	"scrapeforge/internal/logging/types"
	"scrapeforge/pkg/models"
)

// HTTPFetcher is the cheapest cascade tier: a plain HTTP GET with no
// JavaScript execution and no proxy rotation.
type HTTPFetcher struct {
	client    *http.Client
	userAgent string
	logger    types.Logger
}

func NewHTTPFetcher(timeout time.Duration, userAgent string, logger types.Logger) *HTTPFetcher {
	return &HTTPFetcher{
		client:    &http.Client{Timeout: timeout},
		userAgent: userAgent,
		logger:    logger,
	}
}

func (h *HTTPFetcher) Name() string { return "http" }

func (h *HTTPFetcher) Fetch(ctx context.Context, url string, opts models.FetchOptions) (models.FetchResult, error) {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return models.FetchResult{Success: false, Error: err.Error()}, err
	}
	if h.userAgent != "" {
		req.Header.Set("User-Agent", h.userAgent)
	}

	resp, err := h.client.Do(req)
	elapsed := time.Since(start).Milliseconds()
	if err != nil {
		h.logger.Warn("http fetch failed", map[string]interface{}{"url": url, "error": err.Error()})
		return models.FetchResult{Success: false, Error: err.Error(), ResponseTimeMs: elapsed}, nil
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return models.FetchResult{Success: false, StatusCode: resp.StatusCode, Error: err.Error(), ResponseTimeMs: elapsed}, nil
	}

	return models.FetchResult{
		Success:        resp.StatusCode >= 200 && resp.StatusCode < 300,
		HTML:           string(body),
		StatusCode:     resp.StatusCode,
		ResponseTimeMs: elapsed,
	}, nil
}
