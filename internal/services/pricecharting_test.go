package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

func newTestProvider(t *testing.T, handler http.HandlerFunc) (*PriceChartingService, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	svc := NewPriceChartingService(PriceChartingConfig{
		APIToken:           "test-token",
		BaseURL:            srv.URL,
		MinRequestInterval: time.Millisecond,
		MaxAttempts:        3,
		BackoffBase:        time.Millisecond,
		Timeout:            5 * time.Second,
	})
	return svc, srv
}

func productsJSON() string {
	return `{
		"status": "success",
		"products": [
			{"id": 101, "product-name": "Spider-Man #1", "console-name": "1992 Marvel Masterpieces", "loose-price": 250, "cib-price": 0, "new-price": 1000},
			{"id": 102, "product-name": "Colossus #64", "console-name": "1992 Marvel Masterpieces", "loose-price": 99},
			{"id": 101, "product-name": "Spider-Man #1", "console-name": "1992 Marvel Masterpieces", "loose-price": 250}
		]
	}`
}

func TestSearchListingsDeduplicatesByExternalID(t *testing.T) {
	svc, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, productsJSON())
	})

	listings, err := svc.SearchListings(context.Background(), "marvel masterpieces")
	if err != nil {
		t.Fatalf("SearchListings failed: %v", err)
	}
	if len(listings) != 2 {
		t.Fatalf("got %d listings, want 2 (duplicate dropped)", len(listings))
	}
	if listings[0].ExternalID != "101" || listings[1].ExternalID != "102" {
		t.Errorf("unexpected order: %q, %q", listings[0].ExternalID, listings[1].ExternalID)
	}
	if listings[0].LoosePrice != 2.50 {
		t.Errorf("LoosePrice = %v, want 2.50 (pennies converted)", listings[0].LoosePrice)
	}
	if listings[0].NewPrice != 10.00 {
		t.Errorf("NewPrice = %v, want 10.00", listings[0].NewPrice)
	}
}

func TestSearchListingsRetriesThenSucceeds(t *testing.T) {
	var mu sync.Mutex
	requests := 0

	svc, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		requests++
		n := requests
		mu.Unlock()

		// Fails twice, succeeds on the third attempt (maxAttempts=3).
		if n <= 2 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, productsJSON())
	})

	listings, err := svc.SearchListings(context.Background(), "marvel")
	if err != nil {
		t.Fatalf("SearchListings failed after retries: %v", err)
	}
	if len(listings) != 2 {
		t.Errorf("got %d listings, want 2", len(listings))
	}

	mu.Lock()
	defer mu.Unlock()
	if requests != 3 {
		t.Errorf("server saw %d requests, want 3 (2 retries)", requests)
	}
}

func TestSearchListingsExhaustsRetries(t *testing.T) {
	var mu sync.Mutex
	requests := 0

	svc, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		requests++
		mu.Unlock()
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := svc.SearchListings(context.Background(), "marvel")
	if err == nil {
		t.Fatal("expected an error after exhausting retries")
	}
	if !errors.Is(err, ErrRateLimited) {
		t.Errorf("error = %v, want ErrRateLimited in chain", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if requests != 3 {
		t.Errorf("server saw %d requests, want 3", requests)
	}
}

func TestSearchListingsInvalidTokenNotRetried(t *testing.T) {
	var mu sync.Mutex
	requests := 0

	svc, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		requests++
		mu.Unlock()
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := svc.SearchListings(context.Background(), "marvel")
	if !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("error = %v, want ErrInvalidToken", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if requests != 1 {
		t.Errorf("server saw %d requests, want 1 (auth failures are never retried)", requests)
	}
}

func TestSearchListingsMissingToken(t *testing.T) {
	svc := NewPriceChartingService(PriceChartingConfig{})
	if svc.IsConfigured() {
		t.Error("IsConfigured() = true with no token")
	}
	_, err := svc.SearchListings(context.Background(), "marvel")
	if !errors.Is(err, ErrMissingToken) {
		t.Errorf("error = %v, want ErrMissingToken", err)
	}
}

func TestSearchListingsProviderError(t *testing.T) {
	svc, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status": "error", "error-message": "invalid query"}`)
	})

	_, err := svc.SearchListings(context.Background(), "marvel")
	if err == nil {
		t.Fatal("expected an error for status=error response")
	}
}

func TestSearchListingsCachesQueries(t *testing.T) {
	var mu sync.Mutex
	requests := 0

	svc, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		requests++
		mu.Unlock()
		fmt.Fprint(w, productsJSON())
	})

	for i := 0; i < 3; i++ {
		if _, err := svc.SearchListings(context.Background(), "marvel"); err != nil {
			t.Fatalf("SearchListings failed: %v", err)
		}
	}

	mu.Lock()
	defer mu.Unlock()
	if requests != 1 {
		t.Errorf("server saw %d requests, want 1 (repeat queries served from cache)", requests)
	}
}

func TestSearchListingsPacesRequests(t *testing.T) {
	const minInterval = 100 * time.Millisecond

	var mu sync.Mutex
	var arrivals []time.Time

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		arrivals = append(arrivals, time.Now())
		mu.Unlock()
		fmt.Fprint(w, `{"status": "success", "products": []}`)
	}))
	defer srv.Close()

	svc := NewPriceChartingService(PriceChartingConfig{
		APIToken:           "test-token",
		BaseURL:            srv.URL,
		MinRequestInterval: minInterval,
		MaxAttempts:        1,
		BackoffBase:        time.Millisecond,
		Timeout:            5 * time.Second,
	})

	// Distinct queries so the cache cannot absorb any of them.
	for i := 0; i < 3; i++ {
		if _, err := svc.SearchListings(context.Background(), fmt.Sprintf("query-%d", i)); err != nil {
			t.Fatalf("SearchListings failed: %v", err)
		}
	}

	mu.Lock()
	defer mu.Unlock()
	if len(arrivals) != 3 {
		t.Fatalf("server saw %d requests, want 3", len(arrivals))
	}
	for i := 1; i < len(arrivals); i++ {
		gap := arrivals[i].Sub(arrivals[i-1])
		// Allow a little scheduler slack below the configured interval.
		if gap < minInterval-20*time.Millisecond {
			t.Errorf("requests %d and %d only %v apart, want >= %v", i-1, i, gap, minInterval)
		}
	}
}
