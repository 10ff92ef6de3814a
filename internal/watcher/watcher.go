package watcher

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pfrederiksen/visa-bulletin/internal/bulletin"
	"github.com/pfrederiksen/visa-bulletin/internal/digest"
	"github.com/pfrederiksen/visa-bulletin/internal/logger"
	"github.com/pfrederiksen/visa-bulletin/internal/notifier"
	"github.com/pfrederiksen/visa-bulletin/internal/storage"
)

// Fetcher retrieves and parses bulletin pages
type Fetcher interface {
	FetchLinks(ctx context.Context) ([]bulletin.PageLink, error)
	FetchBulletin(ctx context.Context, url string) (bulletin.Page, error)
}

// Store persists bulletin artifacts
type Store interface {
	Exists(period bulletin.Period) (bool, error)
	Save(artifact bulletin.Artifact) error
	Load(period bulletin.Period) (bulletin.Artifact, error)
}

// Recorder keeps the cut-off date history
type Recorder interface {
	Record(ctx context.Context, page bulletin.Page) (int, error)
}

// Failure describes a bulletin that could not be processed
type Failure struct {
	Link  bulletin.PageLink `json:"link"`
	Error string            `json:"error"`
}

// Report summarises one run
type Report struct {
	RunID        string                `json:"run_id"`
	Availability bulletin.Availability `json:"availability"`
	Links        []bulletin.PageLink   `json:"links"`
	Saved        []bulletin.Period     `json:"saved"`
	Skipped      []bulletin.Period     `json:"skipped"`
	Notified     []bulletin.Period     `json:"notified"`
	Failed       []Failure             `json:"failed"`
}

// Watcher ties the scraper, storage and notifier together
type Watcher struct {
	fetcher  Fetcher
	store    Store
	notifier notifier.Notifier
	archive  Recorder
	log      *logger.Logger
	metrics  *logger.Metrics
	now      func() time.Time
}

// Option configures a Watcher
type Option func(*Watcher)

// WithArchive records every saved bulletin into r
func WithArchive(r Recorder) Option {
	return func(w *Watcher) {
		w.archive = r
	}
}

// WithMetrics collects run metrics into m
func WithMetrics(m *logger.Metrics) Option {
	return func(w *Watcher) {
		w.metrics = m
	}
}

// New creates a new Watcher
func New(fetcher Fetcher, store Store, n notifier.Notifier, log *logger.Logger, opts ...Option) *Watcher {
	w := &Watcher{
		fetcher:  fetcher,
		store:    store,
		notifier: n,
		log:      log,
		metrics:  logger.NewMetrics(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Metrics returns the metrics collected so far
func (w *Watcher) Metrics() *logger.Metrics {
	return w.metrics
}

// CheckNext reads the index page and reports whether next month's bulletin is out
func (w *Watcher) CheckNext(ctx context.Context) (bulletin.Availability, []bulletin.PageLink, error) {
	links, err := w.fetchLinks(ctx, w.log)
	if err != nil {
		return bulletin.NextUndetermined, nil, err
	}

	availability := bulletin.EvaluateNext(links)
	w.log.Info("next bulletin checked", logger.Fields{
		"availability": availability.String(),
		"links":        len(links),
	})
	return availability, links, nil
}

// Run saves and mails every published bulletin that has no artifact yet
func (w *Watcher) Run(ctx context.Context) (Report, error) {
	started := w.now()
	report := Report{
		RunID:    uuid.NewString(),
		Saved:    []bulletin.Period{},
		Skipped:  []bulletin.Period{},
		Notified: []bulletin.Period{},
		Failed:   []Failure{},
	}
	log := w.log.With(logger.Fields{"run_id": report.RunID})

	links, err := w.fetchLinks(ctx, log)
	if err != nil {
		log.Error("index page unavailable", logger.Fields{"duration": w.now().Sub(started).String()}, err)
		return report, err
	}
	report.Links = links
	report.Availability = bulletin.EvaluateNext(links)
	log.Info("next bulletin checked", logger.Fields{
		"availability": report.Availability.String(),
		"links":        len(links),
	})

	for _, link := range links {
		if !link.Resolvable() {
			continue
		}
		if err := ctx.Err(); err != nil {
			return report, err
		}
		w.process(ctx, log, link, &report)
	}

	log.Info("run complete", logger.Fields{
		"duration": w.now().Sub(started).String(),
		"saved":    len(report.Saved),
		"skipped":  len(report.Skipped),
		"notified": len(report.Notified),
		"failed":   len(report.Failed),
		"metrics":  w.metrics.Snapshot(),
	})
	return report, nil
}

func (w *Watcher) fetchLinks(ctx context.Context, log *logger.Logger) ([]bulletin.PageLink, error) {
	start := w.now()
	links, err := w.fetcher.FetchLinks(ctx)
	w.metrics.RecordTiming("fetch.page", w.now().Sub(start))
	if err != nil {
		return nil, fmt.Errorf("fetching bulletin index: %w", err)
	}
	w.metrics.AddCounter("links.fetched", int64(len(links)))
	log.Debug("bulletin links fetched", logger.Fields{"count": len(links)})
	return links, nil
}

func (w *Watcher) process(ctx context.Context, log *logger.Logger, link bulletin.PageLink, report *Report) {
	log = log.With(logger.Fields{"link_type": string(link.Type), "url": link.URL})

	period, saved, err := w.save(ctx, log, link)
	if err != nil {
		w.metrics.IncrCounter("bulletins.failed")
		report.Failed = append(report.Failed, Failure{Link: link, Error: err.Error()})
		log.Error("bulletin processing failed", logger.Fields{"period": period.String()}, err)
		return
	}
	if !saved {
		w.metrics.IncrCounter("bulletins.skipped")
		report.Skipped = append(report.Skipped, period)
		log.Info("bulletin already saved", logger.Fields{"period": period.String()})
		return
	}

	w.metrics.IncrCounter("bulletins.saved")
	report.Saved = append(report.Saved, period)

	if err := w.notify(ctx, period); err != nil {
		w.metrics.IncrCounter("bulletins.failed")
		report.Failed = append(report.Failed, Failure{Link: link, Error: err.Error()})
		log.Error("bulletin notification failed", logger.Fields{"period": period.String()}, err)
		return
	}

	w.metrics.IncrCounter("notifications.sent")
	report.Notified = append(report.Notified, period)
	log.Info("bulletin saved and sent", logger.Fields{"period": period.String()})
}

// save fetches and stores a bulletin. It returns false without error when the
// bulletin's period already has an artifact.
func (w *Watcher) save(ctx context.Context, log *logger.Logger, link bulletin.PageLink) (bulletin.Period, bool, error) {
	period := link.Period()
	if period.Valid() {
		exists, err := w.store.Exists(period)
		if err != nil {
			return period, false, err
		}
		if exists {
			return period, false, nil
		}
	}

	start := w.now()
	page, err := w.fetcher.FetchBulletin(ctx, link.URL)
	w.metrics.RecordTiming("fetch.page", w.now().Sub(start))
	if err != nil {
		return period, false, fmt.Errorf("fetching bulletin: %w", err)
	}

	if !period.Valid() {
		// Links to a freshly published bulletin carry no date; the page title does
		period = page.Period
		if !period.Valid() {
			return period, false, fmt.Errorf("bulletin period %q is not a month and year", period.String())
		}
		log.Debug("bulletin period taken from page title", logger.Fields{"period": period.String()})
	}

	w.metrics.AddCounter("cutoffs.parsed", int64(len(page.CutOffDates)))

	err = w.store.Save(bulletin.NewArtifact(period, page, w.now()))
	if errors.Is(err, storage.ErrExists) {
		return period, false, nil
	}
	if err != nil {
		return period, false, fmt.Errorf("saving bulletin: %w", err)
	}

	if w.archive != nil {
		n, err := w.archive.Record(ctx, page)
		if err != nil {
			log.Error("recording bulletin history failed", logger.Fields{"period": period.String()}, err)
		} else {
			log.Debug("bulletin history recorded", logger.Fields{"period": period.String(), "new_rows": n})
		}
	}

	return period, true, nil
}

// notify mails the artifact as it was read back from the store
func (w *Watcher) notify(ctx context.Context, period bulletin.Period) error {
	artifact, err := w.store.Load(period)
	if err != nil {
		return fmt.Errorf("reading saved bulletin: %w", err)
	}

	d, err := digest.Render(artifact)
	if err != nil {
		return err
	}

	return w.notifier.Notify(ctx, d)
}
