package closer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"auction-house/internal/auctionclock"
	"auction-house/internal/biddingerrors"
	model "auction-house/internal/models"
	"auction-house/internal/notify"
	"auction-house/internal/repository"
	"auction-house/internal/retry"
	"auction-house/utils"

	"golang.org/x/sync/errgroup"
)

// Outcome describes what a close attempt found or did
type Outcome string

const (
	OutcomeSold          Outcome = "sold"
	OutcomeEnded         Outcome = "ended"
	OutcomeAlreadyClosed Outcome = "already_closed"
	OutcomeNotExpired    Outcome = "not_expired"
)

// ClosureResult reports the state of one auction after a close attempt
type ClosureResult struct {
	AuctionID string              `json:"auction_id"`
	SellerID  string              `json:"seller_id"`
	Outcome   Outcome             `json:"outcome"`
	Status    model.AuctionStatus `json:"status"`
	Order     *model.Order        `json:"order,omitempty"`
}

// Options tune the closing sweep
type Options struct {
	BatchSize   int
	Concurrency int
	MaxAttempts int
}

// AuctionCloser finalizes expired auctions exactly once
type AuctionCloser struct {
	repo     repository.AuctionDB
	clock    auctionclock.Clock
	notifier notify.Notifier
	opts     Options
}

// NewAuctionCloser creates a closer; zero options take defaults
func NewAuctionCloser(repo repository.AuctionDB, clock auctionclock.Clock, notifier notify.Notifier, opts Options) *AuctionCloser {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 100
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 8
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = retry.DefaultAttempts
	}
	if clock == nil {
		clock = auctionclock.SystemClock{}
	}
	if notifier == nil {
		notifier = notify.NopNotifier{}
	}
	return &AuctionCloser{repo: repo, clock: clock, notifier: notifier, opts: opts}
}

// CloseAuction finalizes one auction if its deadline has passed. Calling it
// again, or concurrently, returns the existing result without side effects.
// A bid that extends the deadline first makes the close a no-op.
func (c *AuctionCloser) CloseAuction(ctx context.Context, auctionID string) (ClosureResult, error) {
	if auctionID == "" {
		return ClosureResult{}, fmt.Errorf("closer: %w - empty auction ID", biddingerrors.ErrInvalidAuction)
	}

	var (
		result  ClosureResult
		applied bool
	)
	err := retry.OnConflict(ctx, c.opts.MaxAttempts, func(int) error {
		var err error
		result, applied, err = c.tryClose(ctx, auctionID)
		return err
	})
	if err != nil {
		return ClosureResult{}, fmt.Errorf("closer: failed to close auction %s: %w", auctionID, err)
	}

	if applied {
		c.notifyClosed(result)
	}
	return result, nil
}

func (c *AuctionCloser) tryClose(ctx context.Context, auctionID string) (ClosureResult, bool, error) {
	auction, err := c.repo.GetAuction(ctx, auctionID)
	if err != nil {
		return ClosureResult{}, false, err
	}

	if auction.Status.IsClosed() {
		result, err := c.existingResult(ctx, auction)
		return result, false, err
	}
	if !auctionclock.IsExpired(auction, c.clock.Now()) {
		return ClosureResult{AuctionID: auctionID, SellerID: auction.SellerID, Outcome: OutcomeNotExpired, Status: auction.Status}, false, nil
	}

	var order *model.Order
	status := model.AuctionEnded
	highest, err := c.repo.GetHighestBid(ctx, auctionID)
	switch {
	case err == nil:
		if highest.Amount.GreaterThanOrEqual(auction.StartingPrice) {
			status = model.AuctionSold
			order = newOrder(auction, highest, c.clock.Now())
		}
	case errors.Is(err, biddingerrors.ErrNoBids):
	default:
		return ClosureResult{}, false, fmt.Errorf("check highest bid: %w", err)
	}

	if _, err := c.repo.CloseAuction(ctx, auctionID, auction.Version, status, order); err != nil {
		return ClosureResult{}, false, err
	}

	outcome := OutcomeEnded
	if status == model.AuctionSold {
		outcome = OutcomeSold
	}
	return ClosureResult{AuctionID: auctionID, SellerID: auction.SellerID, Outcome: outcome, Status: status, Order: order}, true, nil
}

func (c *AuctionCloser) existingResult(ctx context.Context, auction model.Auction) (ClosureResult, error) {
	result := ClosureResult{AuctionID: auction.AuctionID, SellerID: auction.SellerID, Outcome: OutcomeAlreadyClosed, Status: auction.Status}
	if auction.Status != model.AuctionSold {
		return result, nil
	}
	order, err := c.repo.GetOrderByAuction(ctx, auction.AuctionID)
	if err != nil {
		return ClosureResult{}, fmt.Errorf("load order of sold auction: %w", err)
	}
	result.Order = &order
	return result, nil
}

func newOrder(auction model.Auction, winning model.Bid, now time.Time) *model.Order {
	return &model.Order{
		OrderID:    utils.GenerateID(),
		AuctionID:  auction.AuctionID,
		SellerID:   auction.SellerID,
		WinnerID:   winning.BidderID,
		FinalPrice: winning.Amount,
		Status:     model.OrderPendingPayment,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func (c *AuctionCloser) notifyClosed(result ClosureResult) {
	switch result.Outcome {
	case OutcomeSold:
		event := notify.NewEvent(notify.EventAuctionWon, result.Order.WinnerID, result.AuctionID).WithAmount(result.Order.FinalPrice)
		event.OrderID = result.Order.OrderID
		c.notifier.Notify(event)
		utils.Info("auction sold", map[string]any{
			"auction_id":  result.AuctionID,
			"order_id":    result.Order.OrderID,
			"winner_id":   result.Order.WinnerID,
			"final_price": result.Order.FinalPrice.String(),
		})
	case OutcomeEnded:
		c.notifier.Notify(notify.NewEvent(notify.EventAuctionUnsold, result.SellerID, result.AuctionID))
		utils.Info("auction ended without a qualifying bid", map[string]any{"auction_id": result.AuctionID})
	}
}

// CloseExpiredAuctions closes every active auction whose deadline has passed,
// a batch at a time with bounded concurrency. A failure on one auction is
// logged and does not stop the others. Batches are paged by (ends_at,
// auction_id), so auctions that keep failing never hide the ones after them.
func (c *AuctionCloser) CloseExpiredAuctions(ctx context.Context) ([]ClosureResult, error) {
	var (
		results []ClosureResult
		cursor  repository.ExpiredCursor
		now     = c.clock.Now()
	)

	for {
		expired, err := c.repo.ListExpiredAuctions(ctx, now, cursor, c.opts.BatchSize)
		if err != nil {
			return results, fmt.Errorf("closer: failed to list expired auctions: %w", err)
		}
		if len(expired) == 0 {
			return results, nil
		}

		results = append(results, c.closeBatch(ctx, expired)...)

		if len(expired) < c.opts.BatchSize {
			return results, nil
		}
		cursor = repository.CursorAt(expired[len(expired)-1])
	}
}

func (c *AuctionCloser) closeBatch(ctx context.Context, auctions []model.Auction) []ClosureResult {
	batch := make([]*ClosureResult, len(auctions))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.opts.Concurrency)
	for i, a := range auctions {
		i, auctionID := i, a.AuctionID
		g.Go(func() error {
			result, err := c.CloseAuction(gctx, auctionID)
			if err != nil {
				utils.Error("failed to close expired auction", map[string]any{
					"auction_id": auctionID,
					"error":      err.Error(),
				})
				return nil
			}
			batch[i] = &result
			return nil
		})
	}
	_ = g.Wait()

	results := make([]ClosureResult, 0, len(batch))
	for _, r := range batch {
		if r != nil {
			results = append(results, *r)
		}
	}
	return results
}
