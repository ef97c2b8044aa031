package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"
)

const defaultConcurrency = 4

// Ticker is a settlement pipeline the runner can drive.
type Ticker interface {
	SettlementID() string
	Tick(tick uint64) (Report, error)
}

// Runner ticks many settlements in parallel. Settlements share nothing, so
// one settlement's failure is logged and never stops the others.
type Runner struct {
	managers []Ticker
	limit    int
	log      *slog.Logger
}

// NewRunner creates a runner over managers with at most limit settlements
// ticking at once.
func NewRunner(managers []Ticker, limit int, log *slog.Logger) *Runner {
	if limit <= 0 {
		limit = defaultConcurrency
	}
	if log == nil {
		log = slog.Default()
	}
	return &Runner{managers: managers, limit: limit, log: log.With("component", "runner")}
}

// TickAll runs one tick on every settlement and returns the reports of the
// ones that succeeded, in manager order. Failed settlements are reported in
// the returned map.
func (r *Runner) TickAll(ctx context.Context, tick uint64) ([]Report, map[string]error) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.limit)

	reports := make([]*Report, len(r.managers))
	var mu sync.Mutex
	failed := make(map[string]error)

	for i, m := range r.managers {
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			rep, err := r.tickOne(m, tick)
			if err != nil {
				r.log.Error("settlement tick failed", "settlement", m.SettlementID(), "tick", tick, "error", err)
				mu.Lock()
				failed[m.SettlementID()] = err
				mu.Unlock()
				return nil
			}
			reports[i] = &rep
			return nil
		})
	}
	_ = g.Wait()

	out := make([]Report, 0, len(reports))
	for _, rep := range reports {
		if rep != nil {
			out = append(out, *rep)
		}
	}
	return out, failed
}

func (r *Runner) tickOne(m Ticker, tick uint64) (rep Report, err error) {
	// Panic safety: a crashing settlement becomes an error.
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic in settlement %s: %v", m.SettlementID(), rec)
		}
	}()
	return m.Tick(tick)
}
