package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/warp/crew-ledger/aggregate"
	"github.com/warp/crew-ledger/debts"
	"github.com/warp/crew-ledger/live"
	"github.com/warp/crew-ledger/records"
)

// keepaliveInterval spaces the comment pings that keep idle proxies from
// closing the stream.
var keepaliveInterval = 30 * time.Second

// =============================================================================
// LIVE STREAM
// =============================================================================

// StreamDebts pushes the debt summary as server-sent events: once on connect
// and again after every write that can move it.
func (h *Handler) StreamDebts(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "Streaming not supported", nil)
		return
	}
	f, err := debtFilter(r)
	if err != nil {
		writeDomainError(w, h.logger, "stream debts", err)
		return
	}

	// The server's write timeout is for ordinary requests.
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ctx := r.Context()
	updates := live.Watch(ctx, h.Store, records.AssignmentTables, h.logger,
		func(ctx context.Context) (debts.Summary, error) {
			return h.Debts.Summarize(ctx, f)
		})

	ticker := time.NewTicker(keepaliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case sum, ok := <-updates:
			if !ok {
				return
			}
			data, err := json.Marshal(toDebtSummaryDTO(sum))
			if err != nil {
				h.logger.Error().Err(err).Msg("encode debt summary")
				continue
			}
			fmt.Fprintf(w, "event: debts\ndata: %s\n\n", data)
			flusher.Flush()
		case <-ticker.C:
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		}
	}
}

// =============================================================================
// DASHBOARD
// =============================================================================

// GetDashboard returns the debt headline and profit per employer. Failed
// figures are logged and shown as zero.
func (h *Handler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	employers, err := h.Store.ListEmployers(ctx)
	if err != nil {
		writeDomainError(w, h.logger, "load dashboard", err)
		return
	}

	var sum debts.Summary
	rows := make([]EmployerProfitDTO, len(employers))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	g.Go(func() error {
		s, err := h.Debts.Summarize(gctx, debts.Filter{})
		sum = aggregate.OrZero(h.logger, "dashboard debt", s, err)
		return nil
	})
	for i, e := range employers {
		i, e := i, e
		g.Go(func() error {
			fin, err := h.Aggregates.EmployerFinancials(gctx, e.ID)
			fin = aggregate.OrZero(h.logger, "dashboard financials", fin, err)
			rows[i] = EmployerProfitDTO{ID: e.ID, Name: e.Name, FinancialsDTO: toFinancialsDTO(fin)}
			return nil
		})
	}
	_ = g.Wait()

	writeJSON(w, http.StatusOK, DashboardDTO{
		DebtSummaryDTO: toDebtSummaryDTO(sum),
		Employers:      rows,
	})
}
