package scraper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/pfrederiksen/visa-bulletin/internal/bulletin"
	"github.com/pfrederiksen/visa-bulletin/internal/logger"
)

const (
	IndexURL  = "https://travel.state.gov/content/visas/en/law-and-policy/bulletin.html"
	UserAgent = "visa-bulletin/1.0 (github.com/pfrederiksen/visa-bulletin)"
	Timeout   = 30 * time.Second

	maxPageBytes = 10 << 20
)

// FetchError reports a page that could not be retrieved
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetching %s: unexpected status code: %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetching %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Transient reports whether a later attempt could succeed: network failures,
// timeouts, server errors and rate limiting.
func (e *FetchError) Transient() bool {
	if e.StatusCode == 0 {
		return !errors.Is(e.Err, context.Canceled)
	}
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

// Config tunes a Scraper. Zero values select the defaults.
type Config struct {
	IndexURL string
	Timeout  time.Duration
	// Retries is the number of extra attempts after a transient failure
	Retries int
}

// Scraper fetches bulletin pages and hands them to the parsers
type Scraper struct {
	client     *http.Client
	indexURL   string
	maxRetries uint64
	backoff    func() backoff.BackOff
	log        *logger.Logger
}

// New creates a new Scraper
func New(cfg Config, log *logger.Logger) *Scraper {
	if cfg.IndexURL == "" {
		cfg.IndexURL = IndexURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = Timeout
	}
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}

	return &Scraper{
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		indexURL:   cfg.IndexURL,
		maxRetries: uint64(cfg.Retries),
		backoff: func() backoff.BackOff {
			return backoff.NewExponentialBackOff()
		},
		log: log,
	}
}

// IndexURL returns the address of the bulletin index page
func (s *Scraper) IndexURL() string {
	return s.indexURL
}

// FetchLinks fetches the index page and extracts its bulletin links
func (s *Scraper) FetchLinks(ctx context.Context) ([]bulletin.PageLink, error) {
	markup, err := s.fetch(ctx, s.indexURL)
	if err != nil {
		return nil, err
	}
	return ParseLinks(markup, s.indexURL, s.log), nil
}

// FetchBulletin fetches a bulletin detail page and extracts its cut-off dates
func (s *Scraper) FetchBulletin(ctx context.Context, pageURL string) (bulletin.Page, error) {
	markup, err := s.fetch(ctx, pageURL)
	if err != nil {
		return bulletin.Page{}, err
	}
	return ParseBulletin(markup, pageURL, s.log), nil
}

// fetch retrieves a page, retrying transient failures with exponential backoff
func (s *Scraper) fetch(ctx context.Context, pageURL string) (string, error) {
	var body string

	operation := func() error {
		b, err := s.fetchOnce(ctx, pageURL)
		if err != nil {
			var fe *FetchError
			if errors.As(err, &fe) && !fe.Transient() {
				return backoff.Permanent(err)
			}
			return err
		}
		body = b
		return nil
	}

	notify := func(err error, wait time.Duration) {
		s.log.Warn("page fetch failed, retrying", logger.Fields{
			"url":   pageURL,
			"error": err.Error(),
			"wait":  wait.String(),
		})
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(s.backoff(), s.maxRetries), ctx)
	if err := backoff.RetryNotify(operation, policy, notify); err != nil {
		return "", err
	}
	return body, nil
}

func (s *Scraper) fetchOnce(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", backoff.Permanent(fmt.Errorf("creating request for %s: %w", pageURL, err))
	}
	req.Header.Set("User-Agent", UserAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", &FetchError{URL: pageURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &FetchError{URL: pageURL, StatusCode: resp.StatusCode}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return "", &FetchError{URL: pageURL, Err: fmt.Errorf("reading body: %w", err)}
	}
	return string(data), nil
}
