// Package cascade implements the ordered fetcher cascade: walk a
// configured list of fetcher tiers, cheapest first, trying the next tier
// whenever the current one's result trips a configured fallback trigger —
// a blocklisted status code, a matching error pattern, a poison pill, or
// suspiciously thin content.
//
// Per-domain pacing and circuit breaking use one token-bucket limiter and
// one breaker per fetcher:domain pair, so a failing domain on one tier
// doesn't throttle unrelated domains or other tiers.
package cascade

import (
	"context"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"scrapeforge/internal/breaker"
	"scrapeforge/internal/cascade/fetchers"
	"scrapeforge/internal/logging/types"
	"scrapeforge/internal/poison"
	"scrapeforge/pkg/models"
)

// Engine runs the cascade fetch for a single URL against a job's
// CascadeConfig.
type Engine struct {
	registry  *fetchers.Registry
	breakers  *breaker.Registry
	detector  *poison.Detector
	logger    types.Logger
	mu        sync.Mutex
	limiters  map[string]*rate.Limiter
	ratePerS  float64
	rateBurst int
}

func NewEngine(registry *fetchers.Registry, breakers *breaker.Registry, detector *poison.Detector, logger types.Logger, ratePerSecond float64, rateBurst int) *Engine {
	if ratePerSecond <= 0 {
		ratePerSecond = 2
	}
	if rateBurst <= 0 {
		rateBurst = 4
	}
	return &Engine{
		registry:  registry,
		breakers:  breakers,
		detector:  detector,
		logger:    logger,
		limiters:  make(map[string]*rate.Limiter),
		ratePerS:  ratePerSecond,
		rateBurst: rateBurst,
	}
}

// Fetch runs the cascade for url against cfg, returning the first successful
// attempt's outcome or the last attempt's failure once the cascade is
// exhausted.
func (e *Engine) Fetch(ctx context.Context, targetURL string, cfg models.CascadeConfig, opts models.FetchOptions) models.FetchOutcome {
	domain := domainOf(targetURL)
	outcome := models.FetchOutcome{MethodUsed: "none"}

	order := cfg.Order
	if !cfg.Enabled || len(order) == 0 {
		order = []string{"http"}
	}

	attempted := 0
	for _, name := range order {
		if !shouldTryNext(attempted, cfg.MaxAttempts) {
			break
		}

		fetcher, ok := e.registry.Get(name)
		if !ok {
			continue
		}

		cb := e.breakers.Get(name, domain)
		if !cb.Allow() {
			e.logger.Debug("cascade skipping tier: breaker open", map[string]interface{}{"fetcher": name, "domain": domain})
			continue
		}

		limiter := e.limiterFor(name, domain)
		if err := limiter.Wait(ctx); err != nil {
			break
		}

		attempted++
		start := time.Now()
		fetchResult, err := fetcher.Fetch(ctx, targetURL, opts)
		elapsed := time.Since(start).Milliseconds()

		attempt := models.FetchAttempt{
			Method:         name,
			Success:        err == nil && fetchResult.Success,
			StatusCode:     fetchResult.StatusCode,
			Error:          fetchResult.Error,
			ResponseTimeMs: elapsed,
			HTML:           fetchResult.HTML,
		}

		var pill models.PillResult
		if attempt.Success {
			pill = e.detector.Check(fetchResult.StatusCode, fetchResult.HTML, fetchResult.HTML)
		}

		fallback, reason := shouldFallback(cfg.FallbackOn, attempt, pill, len(fetchResult.HTML))
		attempt.FallbackReason = reason
		outcome.Attempts = append(outcome.Attempts, attempt)

		if attempt.Success && !fallback {
			cb.RecordSuccess()
			outcome.Success = true
			outcome.HTML = fetchResult.HTML
			outcome.MethodUsed = name
			outcome.StatusCode = fetchResult.StatusCode
			outcome.ResponseTimeMs = elapsed
			outcome.Screenshot = fetchResult.Screenshot
			return outcome
		}

		cb.RecordFailure()
		outcome.Error = attempt.Error
		if outcome.Error == "" && reason != "" {
			outcome.Error = "fallback triggered: " + reason
		}
		outcome.StatusCode = fetchResult.StatusCode
		outcome.MethodUsed = name
		outcome.ResponseTimeMs = elapsed
		outcome.Screenshot = fetchResult.Screenshot

		if !fallback {
			break
		}
	}

	return outcome
}

func (e *Engine) limiterFor(fetcherName, domain string) *rate.Limiter {
	key := breaker.Key(fetcherName, domain)

	e.mu.Lock()
	defer e.mu.Unlock()

	if l, ok := e.limiters[key]; ok {
		return l
	}
	l := rate.NewLimiter(rate.Limit(e.ratePerS), e.rateBurst)
	e.limiters[key] = l
	return l
}

func domainOf(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "unknown"
	}
	host := parsed.Hostname()
	if host == "" {
		return "unknown"
	}
	return strings.ToLower(host)
}
