// Package scrub periodically re-verifies the hash witness of every
// registered file.
//
// Hash checks are otherwise only made when a file is read or appended to,
// so a file tampered with on disk can sit unnoticed for a long time. The
// scrubber walks the index at a bounded rate and reports what it finds:
//   - Checked: content matches the witness
//   - Corrupted: content differs from the witness or no longer decodes
//   - Missing: the backing file is gone
//   - Skipped: the file was created without hashing
//
// The scrubber only detects; it never repairs or unregisters anything.
package scrub

import (
	"context"
	"fmt"
	"time"

	"github.com/marmos91/keepfs/internal/logger"
	"github.com/marmos91/keepfs/internal/ratelimiter"
	"github.com/marmos91/keepfs/pkg/filestore"
)

// Checker is the part of *filestore.Store the scrubber needs.
type Checker interface {
	List() []string
	CheckFileHash(ctx context.Context, name string) error
}

// Metrics receives the outcome of every scrub pass.
type Metrics interface {
	ObservePass(report *Report)
}

type noopMetrics struct{}

func (noopMetrics) ObservePass(*Report) {}

// Config contains configuration for the scrubber.
type Config struct {
	// Interval between passes when running continuously (default: 1h)
	Interval time.Duration

	// Rate is the maximum number of files checked per second. 0 is unlimited.
	Rate float64

	// Burst is how many files may be checked back to back (default: 1)
	Burst int
}

// Scrubber verifies registered files against their witnesses.
//
// Thread Safety: RunOnce and Run may be called concurrently; the store
// serializes the individual checks.
type Scrubber struct {
	store   Checker
	limiter *ratelimiter.RateLimiter
	config  Config
	metrics Metrics
}

// New creates a scrubber over store. A nil metrics disables collection.
func New(store Checker, config Config, metrics Metrics) *Scrubber {
	if config.Interval <= 0 {
		config.Interval = time.Hour
	}
	if config.Burst <= 0 {
		config.Burst = 1
	}
	if metrics == nil {
		metrics = noopMetrics{}
	}

	return &Scrubber{
		store:   store,
		limiter: ratelimiter.New(config.Rate, config.Burst),
		config:  config,
		metrics: metrics,
	}
}

// Run scrubs once immediately and then every Interval until ctx is
// cancelled. Failed passes are logged and do not stop the loop.
//
// Returns ctx's error when cancelled.
func (s *Scrubber) Run(ctx context.Context) error {
	if s.limiter.Unlimited() {
		logger.Info("Starting scrubber: interval=%s rate=unlimited", s.config.Interval)
	} else {
		logger.Info("Starting scrubber: interval=%s rate=%.2f/s burst=%d",
			s.config.Interval, s.config.Rate, s.config.Burst)
	}

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		report, err := s.RunOnce(ctx)
		if err != nil {
			if ctx.Err() != nil {
				logger.Info("Scrubber stopping")
				return ctx.Err()
			}
			logger.Error("Scrub pass failed: %v", err)
		} else {
			logger.Info("Scrub pass completed: %s", report.Summary())
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			logger.Info("Scrubber stopping")
			return ctx.Err()
		}
	}
}

// RunOnce checks every registered file once.
//
// Names registered after the pass started are picked up by the next pass;
// names removed during the pass are skipped.
//
// Returns:
//   - *Report: What was found, also on error (covers the files checked so far)
//   - error: ctx's error if the pass was interrupted
func (s *Scrubber) RunOnce(ctx context.Context) (*Report, error) {
	report := &Report{StartTime: time.Now()}
	defer func() {
		report.EndTime = time.Now()
		s.metrics.ObservePass(report)
	}()

	names := s.store.List()
	logger.Debug("Scrub: checking %d files", len(names))

	for _, name := range names {
		if err := s.limiter.Wait(ctx); err != nil {
			return report, fmt.Errorf("scrub interrupted after %d of %d files: %w",
				report.Total(), len(names), err)
		}

		err := s.store.CheckFileHash(ctx, name)
		switch filestore.CodeOf(err) {
		case filestore.OK:
			report.Checked = append(report.Checked, name)
		case filestore.ErrFileCorrupted:
			logger.Warn("Scrub: %s is corrupted: %v", name, err)
			report.Corrupted = append(report.Corrupted, name)
		case filestore.ErrFileDoesNotExist:
			logger.Warn("Scrub: backing file of %s is missing", name)
			report.Missing = append(report.Missing, name)
		case filestore.ErrHashingNotEnabled, filestore.ErrNotRegistered:
			report.Skipped = append(report.Skipped, name)
		default:
			if ctx.Err() != nil {
				return report, fmt.Errorf("scrub interrupted after %d of %d files: %w",
					report.Total(), len(names), ctx.Err())
			}
			logger.Error("Scrub: failed to check %s: %v", name, err)
			report.Failed = append(report.Failed, name)
		}
	}

	return report, nil
}

// Report contains the outcome of one scrub pass.
type Report struct {
	StartTime time.Time
	EndTime   time.Time

	Checked   []string
	Corrupted []string
	Missing   []string
	Skipped   []string
	Failed    []string
}

// Total is the number of files the pass got to.
func (r *Report) Total() int {
	return len(r.Checked) + len(r.Corrupted) + len(r.Missing) + len(r.Skipped) + len(r.Failed)
}

// Healthy reports whether no corrupted, missing or failed file was found.
func (r *Report) Healthy() bool {
	return len(r.Corrupted) == 0 && len(r.Missing) == 0 && len(r.Failed) == 0
}

// Duration returns how long the pass took.
func (r *Report) Duration() time.Duration {
	if r.EndTime.IsZero() {
		return time.Since(r.StartTime)
	}
	return r.EndTime.Sub(r.StartTime)
}

// Summary returns a one-line human-readable summary.
func (r *Report) Summary() string {
	return fmt.Sprintf("checked=%d corrupted=%d missing=%d skipped=%d failed=%d duration=%s",
		len(r.Checked), len(r.Corrupted), len(r.Missing), len(r.Skipped), len(r.Failed), r.Duration())
}
