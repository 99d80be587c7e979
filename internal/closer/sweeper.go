package closer

import (
	"context"
	"time"

	"auction-house/utils"
)

// Sweeper periodically closes expired auctions until its context ends
type Sweeper struct {
	closer   *AuctionCloser
	interval time.Duration
}

// NewSweeper creates a sweeper running every interval
func NewSweeper(closer *AuctionCloser, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = time.Second
	}
	return &Sweeper{closer: closer, interval: interval}
}

// Start blocks, running one sweep per tick. Overlapping sweeps from several
// processes are safe because every close is a conditional write.
func (s *Sweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	results, err := s.closer.CloseExpiredAuctions(ctx)
	if err != nil {
		utils.Error("auction sweep failed", map[string]any{"error": err.Error()})
	}
	if len(results) == 0 {
		return
	}

	counts := make(map[Outcome]int)
	for _, r := range results {
		counts[r.Outcome]++
	}
	utils.Info("auction sweep finished", map[string]any{
		"examined": len(results),
		"sold":     counts[OutcomeSold],
		"ended":    counts[OutcomeEnded],
		"skipped":  counts[OutcomeAlreadyClosed] + counts[OutcomeNotExpired],
	})
}
