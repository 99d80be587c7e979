package bidding

import (
	"auction-house/internal/auctionclock"
	"auction-house/internal/biddingerrors"
	"auction-house/internal/eligibility"
	model "auction-house/internal/models"
	"auction-house/internal/notify"
	"auction-house/internal/repository"
	"auction-house/internal/retry"
	"auction-house/utils"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

const defaultBidTimeout = 2 * time.Second

// BiddingService validates bids and applies them against the ledger with optimistic concurrency
type BiddingService struct {
	repo        repository.AuctionDB
	guard       *eligibility.Guard
	clock       auctionclock.Clock
	notifier    notify.Notifier
	maxAttempts int
	timeout     time.Duration
}

// Option customizes a BiddingService
type Option func(*BiddingService)

// WithClock replaces the wall clock, mainly for tests
func WithClock(clock auctionclock.Clock) Option {
	return func(s *BiddingService) { s.clock = clock }
}

// WithNotifier sets where bid events are sent after commit
func WithNotifier(n notify.Notifier) Option {
	return func(s *BiddingService) { s.notifier = n }
}

// WithGuard replaces the default eligibility guard
func WithGuard(g *eligibility.Guard) Option {
	return func(s *BiddingService) { s.guard = g }
}

// WithMaxAttempts bounds compare-and-swap retries per bid
func WithMaxAttempts(n int) Option {
	return func(s *BiddingService) { s.maxAttempts = n }
}

// WithTimeout bounds the total time one PlaceBid call may spend retrying
func WithTimeout(d time.Duration) Option {
	return func(s *BiddingService) { s.timeout = d }
}

// NewBiddingService creates a new BiddingService instance
func NewBiddingService(repo repository.AuctionDB, opts ...Option) *BiddingService {
	s := &BiddingService{
		repo:        repo,
		guard:       eligibility.NewGuard(eligibility.DefaultMinRatingPercent),
		clock:       auctionclock.SystemClock{},
		notifier:    notify.NopNotifier{},
		maxAttempts: retry.DefaultAttempts,
		timeout:     defaultBidTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// PlaceBidParams is one bid submission
type PlaceBidParams struct {
	AuctionID string
	BidderID  string
	Amount    decimal.Decimal
	// MaxBidAmount is stored with the bid for a later proxy-bidding feature; it never triggers re-bids here.
	MaxBidAmount *decimal.Decimal
}

// BidResult is an accepted bid together with the state it produced
type BidResult struct {
	Bid      model.Bid
	Previous *model.Bid // highest bid before this one, nil for the first bid
	Auction  model.Auction
	Extended bool // the bid pushed the deadline out
}

// PlaceBid validates and records a bid. The read-validate-write sequence is
// serialized per auction by a version compare-and-swap; a lost race is retried
// from a fresh read until the attempt or time budget runs out.
func (s *BiddingService) PlaceBid(ctx context.Context, params PlaceBidParams) (BidResult, error) {
	if err := validatePlaceBid(params); err != nil {
		return BidResult{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var result BidResult
	err := retry.OnConflict(ctx, s.maxAttempts, func(attempt int) error {
		var err error
		result, err = s.tryPlaceBid(ctx, params)
		if errors.Is(err, biddingerrors.ErrVersionConflict) {
			utils.Debug("bid lost compare-and-swap, retrying", map[string]any{
				"auction_id": params.AuctionID,
				"bidder_id":  params.BidderID,
				"attempt":    attempt,
			})
		}
		return err
	})
	if err != nil {
		return BidResult{}, fmt.Errorf("service: failed to place bid on auction %s by bidder %s: %w", params.AuctionID, params.BidderID, err)
	}

	if result.Extended {
		utils.Info("auction deadline extended", map[string]any{
			"auction_id": result.Auction.AuctionID,
			"bid_id":     result.Bid.BidID,
			"ends_at":    result.Auction.EndsAt.Format(time.RFC3339),
		})
	}
	s.notifyBidAccepted(result)

	return result, nil
}

func (s *BiddingService) tryPlaceBid(ctx context.Context, params PlaceBidParams) (BidResult, error) {
	auction, err := s.repo.GetAuction(ctx, params.AuctionID)
	if err != nil {
		return BidResult{}, err
	}

	now := s.clock.Now()
	if !auction.AcceptsBidsAt(now) {
		return BidResult{}, fmt.Errorf("auction %s is %s, ends at %s: %w",
			auction.AuctionID, auction.Status, auction.EndsAt.Format(time.RFC3339), biddingerrors.ErrAuctionNotActive)
	}

	bidder, err := s.repo.GetUser(ctx, params.BidderID)
	if err != nil {
		return BidResult{}, err
	}
	blocked, err := s.repo.IsBidderBlocked(ctx, auction.AuctionID, bidder.UserID)
	if err != nil {
		return BidResult{}, fmt.Errorf("check blocklist: %w", err)
	}
	if err := s.guard.Check(auction, bidder, blocked); err != nil {
		return BidResult{}, err
	}

	var previous *model.Bid
	highest, err := s.repo.GetHighestBid(ctx, auction.AuctionID)
	switch {
	case err == nil:
		previous = &highest
	case errors.Is(err, biddingerrors.ErrNoBids):
	default:
		return BidResult{}, fmt.Errorf("check highest bid: %w", err)
	}

	minRequired := MinimumNextBid(auction, previous)
	if params.Amount.LessThan(minRequired) {
		return BidResult{}, &biddingerrors.BidTooLowError{MinRequired: minRequired}
	}

	endsAt, extended := auctionclock.ExtendedDeadline(auction, now)
	bid := model.Bid{
		BidID:        utils.GenerateOrderedID(),
		AuctionID:    auction.AuctionID,
		BidderID:     bidder.UserID,
		Amount:       params.Amount,
		MaxBidAmount: params.MaxBidAmount,
		CreatedAt:    now,
	}

	updated, err := s.repo.RecordBid(ctx, bid, auction.Version, endsAt)
	if err != nil {
		return BidResult{}, err
	}

	return BidResult{Bid: bid, Previous: previous, Auction: updated, Extended: extended}, nil
}

// MinimumNextBid is the highest non-rejected bid plus the increment, or the
// current price plus the increment before any bid exists.
func MinimumNextBid(auction model.Auction, highest *model.Bid) decimal.Decimal {
	if highest != nil {
		return highest.Amount.Add(auction.BidIncrement)
	}
	return auction.CurrentPrice.Add(auction.BidIncrement)
}

func validatePlaceBid(params PlaceBidParams) error {
	if params.AuctionID == "" || params.BidderID == "" {
		return fmt.Errorf("service: %w - missing auctionID or bidderID", biddingerrors.ErrInvalidBid)
	}
	if !params.Amount.IsPositive() {
		return fmt.Errorf("service: %w - non-positive bid amount", biddingerrors.ErrInvalidBid)
	}
	if !model.IsMoneyAmount(params.Amount) {
		return fmt.Errorf("service: %w - bid amount has more than %d decimal places", biddingerrors.ErrInvalidBid, model.MoneyScale)
	}
	if params.MaxBidAmount != nil {
		if params.MaxBidAmount.LessThan(params.Amount) {
			return fmt.Errorf("service: %w - max bid amount below bid amount", biddingerrors.ErrInvalidBid)
		}
		if !model.IsMoneyAmount(*params.MaxBidAmount) {
			return fmt.Errorf("service: %w - max bid amount has more than %d decimal places", biddingerrors.ErrInvalidBid, model.MoneyScale)
		}
	}
	return nil
}

func (s *BiddingService) notifyBidAccepted(result BidResult) {
	bid := result.Bid

	accepted := notify.NewEvent(notify.EventBidAccepted, bid.BidderID, bid.AuctionID).WithAmount(bid.Amount)
	accepted.BidID = bid.BidID
	s.notifier.Notify(accepted)

	if result.Previous != nil && result.Previous.BidderID != bid.BidderID {
		outbid := notify.NewEvent(notify.EventOutbid, result.Previous.BidderID, bid.AuctionID).WithAmount(bid.Amount)
		outbid.BidID = bid.BidID
		outbid.Context = map[string]any{"previous_amount": result.Previous.Amount.String()}
		s.notifier.Notify(outbid)
	}
}

// GetHighestBid returns the current highest non-rejected bid for an auction
func (s *BiddingService) GetHighestBid(ctx context.Context, auctionID string) (model.Bid, error) {
	if auctionID == "" {
		return model.Bid{}, fmt.Errorf("service: %w - empty auction ID", biddingerrors.ErrInvalidBid)
	}

	highest, err := s.repo.GetHighestBid(ctx, auctionID)
	if err != nil {
		return model.Bid{}, fmt.Errorf("service: failed to get highest bid for auction %s: %w", auctionID, err)
	}

	return highest, nil
}

// GetBidsForAuction returns the full bid log of an auction
func (s *BiddingService) GetBidsForAuction(ctx context.Context, auctionID string) ([]model.Bid, error) {
	if auctionID == "" {
		return nil, fmt.Errorf("service: %w - empty auction ID", biddingerrors.ErrInvalidBid)
	}

	bids, err := s.repo.GetBidsByAuction(ctx, auctionID)
	if err != nil {
		return nil, fmt.Errorf("service: failed to get bids for auction %s: %w", auctionID, err)
	}

	return bids, nil
}

// GetAuctionsByBidder returns all auctions a user has placed bids on
func (s *BiddingService) GetAuctionsByBidder(ctx context.Context, bidderID string) ([]model.Auction, error) {
	if bidderID == "" {
		return nil, fmt.Errorf("service: %w - empty user ID", biddingerrors.ErrInvalidBid)
	}

	auctions, err := s.repo.GetAuctionsByBidder(ctx, bidderID)
	if err != nil {
		return nil, fmt.Errorf("service: failed to get auctions for bidder %s: %w", bidderID, err)
	}

	return auctions, nil
}

// GetAuction returns an auction snapshot
func (s *BiddingService) GetAuction(ctx context.Context, auctionID string) (model.Auction, error) {
	if auctionID == "" {
		return model.Auction{}, fmt.Errorf("service: %w - empty auction ID", biddingerrors.ErrInvalidAuction)
	}

	auction, err := s.repo.GetAuction(ctx, auctionID)
	if err != nil {
		return model.Auction{}, fmt.Errorf("service: failed to get auction %s: %w", auctionID, err)
	}

	return auction, nil
}
