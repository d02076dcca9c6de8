/*
scheduler.go - Scheduled outstanding-debt digest

PURPOSE:
  Logs a digest of what is still owed on a cron schedule (daily by default):
  the total debt, the unpaid counts and the outstanding amount per worker.

DESIGN:
  - robfig/cron runs the job on the DIGEST_SCHEDULE expression
  - The digest only reads; it never goes through the write queue
  - An empty schedule disables the scheduler
  - The last digest is kept and served on GET /api/debts/digest

USAGE:
  digest := NewDigestScheduler(handler.Debts, cfg.Digest.Schedule, logger)
  if err := digest.Start(); err != nil { ... }
  // ... later
  digest.Stop()

SEE ALSO:
  - debts/projection.go: Unpaid, Summarize
  - config/config.go: DigestConfig
*/
package api

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/warp/crew-ledger/debts"
	"github.com/warp/crew-ledger/records"
)

// digestTimeout bounds one digest run.
const digestTimeout = time.Minute

// WorkerDebt is what one worker is still owed, referral commissions included
// under the worker who earns them.
type WorkerDebt struct {
	WorkerID    string
	WorkerName  string
	Outstanding decimal.Decimal
}

// Digest is one run's snapshot of the unpaid partition.
type Digest struct {
	At      time.Time
	Summary debts.Summary
	Workers []WorkerDebt // largest first
}

// DigestScheduler runs the debt digest on a cron schedule.
type DigestScheduler struct {
	debts    *debts.Service
	schedule string
	logger   zerolog.Logger

	mu   sync.Mutex
	cron *cron.Cron
	last *Digest
}

// NewDigestScheduler creates a scheduler. An empty schedule disables it.
func NewDigestScheduler(svc *debts.Service, schedule string, logger zerolog.Logger) *DigestScheduler {
	return &DigestScheduler{
		debts:    svc,
		schedule: schedule,
		logger:   logger.With().Str("component", "digest").Logger(),
	}
}

// Start begins the scheduler. Calling Start twice is a no-op.
func (ds *DigestScheduler) Start() error {
	ds.mu.Lock()
	defer ds.mu.Unlock()

	if ds.schedule == "" {
		ds.logger.Info().Msg("debt digest disabled, not starting")
		return nil
	}
	if ds.cron != nil {
		return nil
	}

	c := cron.New()
	_, err := c.AddFunc(ds.schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), digestTimeout)
		defer cancel()
		if _, err := ds.RunOnce(ctx); err != nil {
			ds.logger.Error().Err(err).Msg("debt digest failed")
		}
	})
	if err != nil {
		return err
	}
	c.Start()

	ds.cron = c
	ds.logger.Info().Str("schedule", ds.schedule).Msg("debt digest scheduled")
	return nil
}

// Stop stops the scheduler and waits for a running digest to finish.
func (ds *DigestScheduler) Stop() {
	ds.mu.Lock()
	c := ds.cron
	ds.cron = nil
	ds.mu.Unlock()

	if c != nil {
		<-c.Stop().Done()
		ds.logger.Info().Msg("debt digest stopped")
	}
}

// Last returns the most recent digest, or nil before the first run.
func (ds *DigestScheduler) Last() *Digest {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	return ds.last
}

// RunOnce builds and logs a digest now.
func (ds *DigestScheduler) RunOnce(ctx context.Context) (Digest, error) {
	d, err := BuildDigest(ctx, ds.debts)
	if err != nil {
		return d, err
	}

	ev := ds.logger.Info().
		Str("total_debt", d.Summary.TotalDebt.StringFixed(2)).
		Int("unpaid_shift", d.Summary.UnpaidShift).
		Int("unpaid_event", d.Summary.UnpaidEvent)
	if len(d.Workers) > 0 {
		top := d.Workers[0]
		ev = ev.Str("top_worker", top.WorkerName).Str("top_outstanding", top.Outstanding.StringFixed(2))
	}
	ev.Int("workers_owed", len(d.Workers)).Msg("outstanding debt digest")

	ds.mu.Lock()
	ds.last = &d
	ds.mu.Unlock()
	return d, nil
}

// BuildDigest totals the unpaid partition per worker. A worker's outstanding
// amount is their own net pay plus the net commission they are owed as
// referrer.
func BuildDigest(ctx context.Context, svc *debts.Service) (Digest, error) {
	d := Digest{At: time.Now().UTC(), Summary: debts.Summary{TotalDebt: decimal.Zero}}

	items, err := svc.Unpaid(ctx, debts.Filter{})
	if err != nil {
		return d, err
	}

	owed := make(map[string]*WorkerDebt)
	add := func(id, name string, amount decimal.Decimal) {
		if amount.IsZero() {
			return
		}
		wd, ok := owed[id]
		if !ok {
			wd = &WorkerDebt{WorkerID: id, WorkerName: name, Outstanding: decimal.Zero}
			owed[id] = wd
		}
		wd.Outstanding = wd.Outstanding.Add(amount)
	}

	for _, it := range items {
		d.Summary.TotalDebt = d.Summary.TotalDebt.Add(it.TotalNet)
		if it.Kind == records.KindShift {
			d.Summary.UnpaidShift++
		} else {
			d.Summary.UnpaidEvent++
		}
		add(it.WorkerID, it.WorkerName, it.NetPayment)
		if it.ReferrerID != nil {
			add(*it.ReferrerID, it.ReferrerName, it.NetReferencePayment)
		}
	}

	for _, wd := range owed {
		d.Workers = append(d.Workers, *wd)
	}
	sort.Slice(d.Workers, func(i, j int) bool {
		if c := d.Workers[i].Outstanding.Cmp(d.Workers[j].Outstanding); c != 0 {
			return c > 0
		}
		return d.Workers[i].WorkerName < d.Workers[j].WorkerName
	})
	return d, nil
}

// GetDigest returns the last scheduled digest, or a fresh one when none has
// run yet.
func (h *Handler) GetDigest(w http.ResponseWriter, r *http.Request) {
	var d *Digest
	if h.Digest != nil {
		d = h.Digest.Last()
	}
	if d == nil {
		fresh, err := BuildDigest(r.Context(), h.Debts)
		if err != nil {
			writeDomainError(w, h.logger, "build digest", err)
			return
		}
		d = &fresh
	}
	writeJSON(w, http.StatusOK, toDigestDTO(*d))
}
