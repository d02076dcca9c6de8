package live

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/warp/crew-ledger/records"
)

// Watch evaluates eval once, then again after every change to tables, and
// sends each result on the returned channel until ctx is done. Bursts of
// changes collapse into one evaluation. A slow reader only ever sees the
// latest value.
//
// An evaluation error is logged and the zero value is sent instead, so a
// dashboard bound to the channel keeps rendering.
func Watch[T any](ctx context.Context, n records.Notifier, tables []records.Table, logger zerolog.Logger, eval func(context.Context) (T, error)) <-chan T {
	changes, unsubscribe := n.Subscribe(tables...)
	out := make(chan T, 1)

	send := func(v T) {
		select {
		case <-out:
		default:
		}
		out <- v
	}

	evaluate := func() {
		v, err := eval(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Error().Err(err).Msg("live query failed, emitting zero value")
			var zero T
			v = zero
		}
		send(v)
	}

	go func() {
		defer close(out)
		defer unsubscribe()

		evaluate()
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-changes:
				if !ok {
					return
				}
				drain(changes)
				if ctx.Err() != nil {
					return
				}
				evaluate()
			}
		}
	}()

	return out
}

func drain(ch <-chan records.Change) {
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
		default:
			return
		}
	}
}
