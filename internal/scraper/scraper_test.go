package scraper

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/pfrederiksen/visa-bulletin/internal/bulletin"
	"github.com/pfrederiksen/visa-bulletin/internal/logger"
)

func newTestScraper(indexURL string, retries int) *Scraper {
	s := New(Config{IndexURL: indexURL, Timeout: 5 * time.Second, Retries: retries}, logger.Nop())
	s.backoff = func() backoff.BackOff { return &backoff.ZeroBackOff{} }
	return s
}

func TestNewDefaults(t *testing.T) {
	s := New(Config{}, nil)
	if s.IndexURL() != IndexURL {
		t.Errorf("expected default index URL %q, got %q", IndexURL, s.IndexURL())
	}
	if s.client.Timeout != Timeout {
		t.Errorf("expected default timeout %v, got %v", Timeout, s.client.Timeout)
	}
	if s.maxRetries != 0 {
		t.Errorf("expected no retries by default, got %d", s.maxRetries)
	}
}

func TestFetchLinks(t *testing.T) {
	index := loadFixture(t, "index.html")
	var userAgent atomic.Value

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userAgent.Store(r.Header.Get("User-Agent"))
		fmt.Fprint(w, index)
	}))
	defer server.Close()

	s := newTestScraper(server.URL+"/content/visas/bulletin.html", 0)
	links, err := s.FetchLinks(context.Background())
	if err != nil {
		t.Fatalf("FetchLinks failed: %v", err)
	}

	if got, _ := userAgent.Load().(string); got != UserAgent {
		t.Errorf("expected User-Agent %q, got %q", UserAgent, got)
	}
	if len(links) != 2 {
		t.Fatalf("expected 2 links, got %d", len(links))
	}
	want := server.URL + "/content/visas/content/travel/en/legal/visa-law0/visa-bulletin/2024/visa-bulletin-for-september-2024.html"
	if links[0].URL != want {
		t.Errorf("expected link resolved against the server, got %q", links[0].URL)
	}
	if bulletin.EvaluateNext(links) != bulletin.NextPending {
		t.Errorf("expected pending availability")
	}
}

func TestFetchBulletin(t *testing.T) {
	page := loadFixture(t, "bulletin.html")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, page)
	}))
	defer server.Close()

	s := newTestScraper(server.URL, 0)
	got, err := s.FetchBulletin(context.Background(), server.URL+"/september.html")
	if err != nil {
		t.Fatalf("FetchBulletin failed: %v", err)
	}
	if got.URL != server.URL+"/september.html" {
		t.Errorf("unexpected page URL %q", got.URL)
	}
	if len(got.CutOffDates) != 15 {
		t.Errorf("expected 15 records, got %d", len(got.CutOffDates))
	}
}

func TestFetchRetries(t *testing.T) {
	tests := []struct {
		name         string
		statuses     []int
		retries      int
		wantErr      bool
		wantStatus   int
		wantAttempts int32
	}{
		{
			name:         "success first time",
			statuses:     []int{http.StatusOK},
			retries:      2,
			wantAttempts: 1,
		},
		{
			name:         "server error then success",
			statuses:     []int{http.StatusInternalServerError, http.StatusServiceUnavailable, http.StatusOK},
			retries:      2,
			wantAttempts: 3,
		},
		{
			name:         "rate limited then success",
			statuses:     []int{http.StatusTooManyRequests, http.StatusOK},
			retries:      1,
			wantAttempts: 2,
		},
		{
			name:         "not found is not retried",
			statuses:     []int{http.StatusNotFound},
			retries:      3,
			wantErr:      true,
			wantStatus:   http.StatusNotFound,
			wantAttempts: 1,
		},
		{
			name:         "retries exhausted",
			statuses:     []int{http.StatusBadGateway},
			retries:      2,
			wantErr:      true,
			wantStatus:   http.StatusBadGateway,
			wantAttempts: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var attempts int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				n := int(atomic.AddInt32(&attempts, 1)) - 1
				status := tt.statuses[len(tt.statuses)-1]
				if n < len(tt.statuses) {
					status = tt.statuses[n]
				}
				w.WriteHeader(status)
				fmt.Fprint(w, `<ul id="recent_bulletins"><li><a href="/a.html">May 2025</a></li></ul>`)
			}))
			defer server.Close()

			s := newTestScraper(server.URL+"/bulletin.html", tt.retries)
			links, err := s.FetchLinks(context.Background())

			if got := atomic.LoadInt32(&attempts); got != tt.wantAttempts {
				t.Errorf("expected %d attempts, got %d", tt.wantAttempts, got)
			}
			if !tt.wantErr {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if len(links) != 1 {
					t.Errorf("expected 1 link, got %d", len(links))
				}
				return
			}

			var fe *FetchError
			if !errors.As(err, &fe) {
				t.Fatalf("expected FetchError, got %v", err)
			}
			if fe.StatusCode != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, fe.StatusCode)
			}
		})
	}
}

func TestFetchCanceled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := newTestScraper(server.URL, 5)
	if _, err := s.FetchLinks(ctx); err == nil {
		t.Fatal("expected error for canceled context")
	}
}

func TestFetchErrorTransient(t *testing.T) {
	tests := []struct {
		name     string
		err      *FetchError
		expected bool
	}{
		{"network error", &FetchError{Err: errors.New("connection refused")}, true},
		{"canceled", &FetchError{Err: context.Canceled}, false},
		{"deadline", &FetchError{Err: context.DeadlineExceeded}, true},
		{"server error", &FetchError{StatusCode: 500}, true},
		{"too many requests", &FetchError{StatusCode: 429}, true},
		{"forbidden", &FetchError{StatusCode: 403}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Transient(); got != tt.expected {
				t.Errorf("Transient() = %v, expected %v", got, tt.expected)
			}
		})
	}
}
