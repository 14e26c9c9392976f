package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"

	"github.com/cardvault/backend/internal/metrics"
	"github.com/cardvault/backend/internal/models"
)

const (
	priceChartingBaseURL        = "https://www.pricecharting.com"
	priceChartingDefaultTimeout = 15 * time.Second

	// defaultMinRequestInterval paces every outbound request. The provider
	// rate limit is global to the whole process, so there is exactly one
	// limiter regardless of which set triggered the query.
	defaultMinRequestInterval = 1 * time.Second

	defaultMaxAttempts = 3
	defaultBackoffBase = 2 * time.Second
	backoffMultiplier  = 2

	// queryCacheSize bounds the per-run response cache. Overlapping set
	// queries within one run hit the cache instead of burning quota.
	queryCacheSize = 256
)

var (
	ErrMissingToken = errors.New("pricecharting: missing API token")
	ErrInvalidToken = errors.New("pricecharting: invalid API token")
	ErrRateLimited  = errors.New("pricecharting: rate limited")
)

// ListingProvider is the reconciler's view of the external catalog.
type ListingProvider interface {
	SearchListings(ctx context.Context, query string) ([]models.ExternalListing, error)
	IsConfigured() bool
}

// PriceChartingConfig holds the client knobs. Zero values fall back to the
// defaults above; tests inject short intervals and a local base URL.
type PriceChartingConfig struct {
	APIToken           string
	BaseURL            string
	MinRequestInterval time.Duration
	MaxAttempts        int
	BackoffBase        time.Duration
	Timeout            time.Duration
}

// PriceChartingService handles API calls to the PriceCharting products
// endpoint with process-wide pacing, retry with exponential backoff, and
// response deduplication.
type PriceChartingService struct {
	client      *http.Client
	apiToken    string
	baseURL     string
	limiter     *rate.Limiter
	maxAttempts int
	backoffBase time.Duration
	queryCache  *lru.Cache[string, []models.ExternalListing]
}

// NewPriceChartingService creates a new PriceCharting API client.
func NewPriceChartingService(cfg PriceChartingConfig) *PriceChartingService {
	if cfg.BaseURL == "" {
		cfg.BaseURL = priceChartingBaseURL
	}
	if cfg.MinRequestInterval <= 0 {
		cfg.MinRequestInterval = defaultMinRequestInterval
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = defaultBackoffBase
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = priceChartingDefaultTimeout
	}

	queryCache, err := lru.New[string, []models.ExternalListing](queryCacheSize)
	if err != nil {
		log.Printf("Failed to create query cache: %v", err)
	}

	return &PriceChartingService{
		client:      &http.Client{Timeout: cfg.Timeout},
		apiToken:    cfg.APIToken,
		baseURL:     cfg.BaseURL,
		limiter:     rate.NewLimiter(rate.Every(cfg.MinRequestInterval), 1),
		maxAttempts: cfg.MaxAttempts,
		backoffBase: cfg.BackoffBase,
		queryCache:  queryCache,
	}
}

// IsConfigured reports whether an API token is present. Checked once at
// startup; a missing token is fatal and never retried.
func (s *PriceChartingService) IsConfigured() bool {
	return s.apiToken != ""
}

// priceChartingResponse represents the products endpoint response. Prices
// arrive in pennies.
type priceChartingResponse struct {
	Status       string                 `json:"status"`
	ErrorMessage string                 `json:"error-message,omitempty"`
	Products     []priceChartingProduct `json:"products"`
}

type priceChartingProduct struct {
	ID          json.Number `json:"id"`
	ProductName string      `json:"product-name"`
	ConsoleName string      `json:"console-name"`
	LoosePrice  int64       `json:"loose-price"`
	CIBPrice    int64       `json:"cib-price"`
	NewPrice    int64       `json:"new-price"`
	Image       string      `json:"image"`
}

// SearchListings queries the products endpoint for listings matching the
// query text. Every outbound request waits on the shared pacing gate;
// transient failures (network, 5xx, 429) are retried with exponential
// backoff up to the configured attempt count. Results are deduplicated by
// external ID before being returned.
func (s *PriceChartingService) SearchListings(ctx context.Context, query string) ([]models.ExternalListing, error) {
	if !s.IsConfigured() {
		return nil, ErrMissingToken
	}

	if s.queryCache != nil {
		if cached, ok := s.queryCache.Get(query); ok {
			return cached, nil
		}
	}

	params := url.Values{}
	params.Set("t", s.apiToken)
	params.Set("q", query)
	reqURL := fmt.Sprintf("%s/api/products?%s", s.baseURL, params.Encode())

	var lastErr error
	backoff := s.backoffBase

	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		if attempt > 1 {
			metrics.ProviderRequestsTotal.WithLabelValues("retry").Inc()
			if err := sleepContext(ctx, backoff); err != nil {
				return nil, err
			}
			backoff *= backoffMultiplier
		}

		// Global pacing gate: one wait per outbound request, shared across
		// all callers of this client.
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		listings, retryable, err := s.doSearch(ctx, reqURL)
		if err == nil {
			metrics.ProviderRequestsTotal.WithLabelValues("success").Inc()
			if s.queryCache != nil {
				s.queryCache.Add(query, listings)
			}
			return listings, nil
		}
		if !retryable {
			metrics.ProviderRequestsTotal.WithLabelValues("error").Inc()
			return nil, err
		}

		lastErr = err
		log.Printf("PriceCharting: attempt %d/%d for %q failed: %v", attempt, s.maxAttempts, query, err)
	}

	metrics.ProviderRequestsTotal.WithLabelValues("error").Inc()
	return nil, fmt.Errorf("pricecharting: %d attempts exhausted: %w", s.maxAttempts, lastErr)
}

// doSearch performs a single request. The second return value reports
// whether the failure is worth retrying.
func (s *PriceChartingService) doSearch(ctx context.Context, reqURL string) ([]models.ExternalListing, bool, error) {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, false, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, true, fmt.Errorf("failed to query products: %w", err)
	}
	defer resp.Body.Close()

	metrics.ProviderRequestDuration.Observe(time.Since(start).Seconds())

	switch {
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return nil, false, ErrInvalidToken
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, true, ErrRateLimited
	case resp.StatusCode >= 500:
		return nil, true, fmt.Errorf("pricecharting API returned status %d", resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, false, fmt.Errorf("pricecharting API returned status %d", resp.StatusCode)
	}

	var searchResp priceChartingResponse
	if err := json.NewDecoder(resp.Body).Decode(&searchResp); err != nil {
		return nil, false, fmt.Errorf("failed to decode response: %w", err)
	}

	if searchResp.Status != "success" {
		if searchResp.ErrorMessage != "" {
			return nil, false, fmt.Errorf("pricecharting API error: %s", searchResp.ErrorMessage)
		}
		return nil, false, fmt.Errorf("pricecharting API returned unsuccessful response")
	}

	return dedupeListings(searchResp.Products), false, nil
}

// dedupeListings converts products to listings, dropping repeats of the
// same external ID. Overlapping provider queries can return the same
// product more than once.
func dedupeListings(products []priceChartingProduct) []models.ExternalListing {
	seen := make(map[string]struct{}, len(products))
	listings := make([]models.ExternalListing, 0, len(products))

	for _, p := range products {
		id := p.ID.String()
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		listings = append(listings, models.ExternalListing{
			ExternalID:    id,
			Title:         p.ProductName,
			CategoryLabel: p.ConsoleName,
			LoosePrice:    penniesToDollars(p.LoosePrice),
			CompletePrice: penniesToDollars(p.CIBPrice),
			NewPrice:      penniesToDollars(p.NewPrice),
			ImageURL:      p.Image,
		})
	}

	return listings
}

func penniesToDollars(pennies int64) float64 {
	if pennies <= 0 {
		return 0
	}
	return float64(pennies) / 100
}

// sleepContext waits for d, returning early if the context is cancelled so
// an interrupted run never blocks inside a backoff window.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
