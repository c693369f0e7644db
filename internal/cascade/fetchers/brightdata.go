package fetchers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"scrapeforge/internal/logging/types"
	"scrapeforge/pkg/models"
)

// proxyRequest is the payload BrightData's dataset-scrape endpoint expects.
type proxyRequest struct {
	URL string `json:"url"`
}

// proxyResponse is a row of BrightData's dataset response. The upstream API
// returns a loosely-typed envelope; only the fields this fetcher cares about
// are pulled out.
type proxyResponse struct {
	HTML       string `json:"html"`
	StatusCode int    `json:"status_code"`
}

// ProxyFetcher is the residential-proxy cascade tier: a request routed
// through BrightData's dataset-scrape API instead of this process's own IP.
// It is domain-agnostic: no per-site URL validation, just the request/retry
// shape BrightData's dataset API expects.
type ProxyFetcher struct {
	baseURL    string
	apiKey     string
	datasetID  string
	maxRetries int
	httpClient *http.Client
	logger     types.Logger
}

func NewProxyFetcher(baseURL, apiKey, datasetID string, timeout time.Duration, maxRetries int, logger types.Logger) *ProxyFetcher {
	return &ProxyFetcher{
		baseURL:    baseURL,
		apiKey:     apiKey,
		datasetID:  datasetID,
		maxRetries: maxRetries,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

func (p *ProxyFetcher) Name() string { return "brightdata" }

func (p *ProxyFetcher) Fetch(ctx context.Context, url string, opts models.FetchOptions) (models.FetchResult, error) {
	start := time.Now()

	payload, err := json.Marshal([]proxyRequest{{URL: url}})
	if err != nil {
		return models.FetchResult{Success: false, Error: err.Error()}, err
	}

	apiURL := fmt.Sprintf("%s/datasets/v3/scrape?dataset_id=%s&include_errors=true", p.baseURL, p.datasetID)

	var lastErr error
	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(time.Duration(attempt) * time.Second)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, bytes.NewReader(payload))
		if err != nil {
			return models.FetchResult{Success: false, Error: err.Error()}, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+p.apiKey)

		resp, err := p.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			lastErr = readErr
			continue
		}

		if resp.StatusCode != http.StatusOK {
			lastErr = fmt.Errorf("brightdata returned status %d: %s", resp.StatusCode, string(body))
			if resp.StatusCode >= 400 && resp.StatusCode < 500 {
				break
			}
			continue
		}

		var rows []proxyResponse
		if err := json.Unmarshal(body, &rows); err != nil || len(rows) == 0 {
			lastErr = fmt.Errorf("brightdata: unexpected response shape")
			continue
		}

		elapsed := time.Since(start).Milliseconds()
		return models.FetchResult{
			Success:        true,
			HTML:           rows[0].HTML,
			StatusCode:     rows[0].StatusCode,
			ResponseTimeMs: elapsed,
		}, nil
	}

	p.logger.Warn("brightdata fetch exhausted retries", map[string]interface{}{"url": url, "error": lastErr})
	return models.FetchResult{Success: false, Error: lastErr.Error(), ResponseTimeMs: time.Since(start).Milliseconds()}, nil
}
