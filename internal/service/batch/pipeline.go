// Package batch runs verification checks for many (vendor, address) pairs
// under bounded concurrency and collects the results in input order.
package batch

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/walletvet/walletvet/internal/ledger"
	"github.com/walletvet/walletvet/internal/metrics"
	"github.com/walletvet/walletvet/internal/model"
	"github.com/walletvet/walletvet/internal/service/verify"
	veterr "github.com/walletvet/walletvet/pkg/errors"
)

// DefaultConcurrency is the worker pool size when none is configured.
const DefaultConcurrency = 5

// Checker runs a single check. Satisfied by *verify.Service.
type Checker interface {
	Check(ctx context.Context, req *verify.Request) (*verify.Result, error)
}

var _ Checker = (*verify.Service)(nil)

// Config holds pipeline dependencies.
type Config struct {
	Checker     Checker
	Concurrency int
	Progress    ProgressCallback
	Logger      verify.Logger

	Now   func() time.Time
	NewID func() string
}

// Pipeline dispatches pairs to a Checker.
type Pipeline struct {
	checker     Checker
	concurrency int
	progress    ProgressCallback
	logger      verify.Logger
	now         func() time.Time
	newID       func() string
}

// New creates a pipeline.
func New(cfg *Config) *Pipeline {
	p := &Pipeline{
		checker:     cfg.Checker,
		concurrency: cfg.Concurrency,
		progress:    cfg.Progress,
		logger:      cfg.Logger,
		now:         cfg.Now,
		newID:       cfg.NewID,
	}
	if p.concurrency <= 0 {
		p.concurrency = DefaultConcurrency
	}
	if p.logger == nil {
		p.logger = ledger.NopLogger{}
	}
	if p.now == nil {
		p.now = time.Now
	}
	if p.newID == nil {
		p.newID = uuid.NewString
	}
	return p
}

// Run checks every pair and returns the finished job.
//
// A failing item never stops its siblings. When ctx is canceled no further
// items are dispatched and each undispatched item gets a CANCELED error;
// items already running finish on their own terms.
func (p *Pipeline) Run(ctx context.Context, pairs []Pair) *Job {
	job := &Job{
		ID:        p.newID(),
		Pairs:     append([]Pair(nil), pairs...),
		Items:     make([]Item, len(pairs)),
		Status:    StatusRunning,
		StartedAt: p.now().UTC(),
	}
	for i, pair := range job.Pairs {
		job.Items[i] = Item{Index: i, Pair: pair}
	}

	p.logger.Debug("batch %s: %d pairs, concurrency %d", job.ID, len(pairs), p.concurrency)

	var (
		mu        sync.Mutex
		completed int
		failed    int
	)
	finish := func(i int) {
		mu.Lock()
		defer mu.Unlock()
		completed++
		if job.Items[i].Failed() {
			failed++
		}
		if p.progress != nil {
			p.progress(ProgressUpdate{
				JobID:     job.ID,
				Total:     len(job.Items),
				Completed: completed,
				Failed:    failed,
				Last:      job.Items[i],
			})
		}
	}

	g := new(errgroup.Group)
	g.SetLimit(p.concurrency)

	for i := range job.Items {
		if ctx.Err() != nil {
			job.Items[i].Err = itemError(veterr.WithCause(veterr.ErrCanceled, context.Cause(ctx)), &job.Items[i])
			finish(i)
			continue
		}

		g.Go(func() error {
			item := &job.Items[i]
			res, err := p.checker.Check(ctx, &verify.Request{
				VendorID: item.Pair.VendorID,
				Address:  item.Pair.Address,
				JobID:    job.ID,
			})
			if res != nil {
				item.Record = res.Record
			}
			if err != nil {
				item.Err = itemError(err, item)
				p.logger.Error("batch %s: item %d failed: %v", job.ID, i, err)
			}
			finish(i)
			return nil
		})
	}
	_ = g.Wait()

	job.FinishedAt = p.now().UTC()
	job.Canceled = ctx.Err() != nil
	job.Summary = summarize(job.Items)
	job.Status = StatusCompleted
	if job.Summary.Failed > 0 {
		job.Status = StatusCompletedWithErrors
	}

	metrics.BatchDuration.Observe(job.Duration().Seconds())
	p.logger.Debug("batch %s: %s in %s (%d failed, %d canceled)",
		job.ID, job.Status, job.Duration(), job.Summary.Failed, job.Summary.Canceled)

	return job
}

// itemError names the item in err's details.
func itemError(err error, item *Item) error {
	return veterr.WithDetails(err, map[string]string{
		"index":     strconv.Itoa(item.Index),
		"vendor_id": item.Pair.VendorID,
		"address":   item.Pair.Address,
	})
}

func summarize(items []Item) Summary {
	s := Summary{Total: len(items)}
	for i := range items {
		item := &items[i]
		switch {
		case veterr.Is(item.Err, veterr.ErrCanceled):
			s.Failed++
			s.Canceled++
			metrics.BatchItems.WithLabelValues(metrics.ItemCanceled).Inc()
			continue
		case item.Err != nil:
			s.Failed++
			metrics.BatchItems.WithLabelValues(metrics.ItemFailed).Inc()
			continue
		}

		metrics.BatchItems.WithLabelValues(metrics.ItemSucceeded).Inc()
		if item.Record == nil {
			continue
		}
		switch item.Record.Outcome {
		case model.OutcomeClear:
			s.Clear++
		case model.OutcomeReview:
			s.Review++
		case model.OutcomeBlacklisted:
			s.Blacklisted++
		}
	}
	return s
}
