package bidding

import (
	"auction-house/internal/biddingerrors"
	model "auction-house/internal/models"
	"auction-house/internal/retry"
	"auction-house/utils"
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// CreateAuctionParams lists an item for sale
type CreateAuctionParams struct {
	SellerID            string
	Title               string
	Description         string
	StartingPrice       decimal.Decimal
	BidIncrement        decimal.Decimal
	BuyNowPrice         *decimal.Decimal
	EndsAt              time.Time
	AutoExtend          model.AutoExtendPolicy
	AllowUnratedBidders bool
}

// CreateAuction validates and stores a new active auction
func (s *BiddingService) CreateAuction(ctx context.Context, params CreateAuctionParams) (model.Auction, error) {
	now := s.clock.Now()
	if err := validateCreateAuction(params, now); err != nil {
		return model.Auction{}, err
	}

	if _, err := s.repo.GetUser(ctx, params.SellerID); err != nil {
		return model.Auction{}, fmt.Errorf("service: failed to load seller %s: %w", params.SellerID, err)
	}

	auction := model.Auction{
		AuctionID:           utils.GenerateID(),
		SellerID:            params.SellerID,
		Title:               params.Title,
		Description:         params.Description,
		StartingPrice:       params.StartingPrice,
		CurrentPrice:        params.StartingPrice,
		BidIncrement:        params.BidIncrement,
		BuyNowPrice:         params.BuyNowPrice,
		EndsAt:              params.EndsAt.UTC(),
		Status:              model.AuctionActive,
		AutoExtend:          params.AutoExtend,
		AllowUnratedBidders: params.AllowUnratedBidders,
		Version:             1,
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	if err := s.repo.CreateAuction(ctx, auction); err != nil {
		return model.Auction{}, fmt.Errorf("service: failed to create auction: %w", err)
	}

	utils.Info("auction created", map[string]any{
		"auction_id": auction.AuctionID,
		"seller_id":  auction.SellerID,
		"ends_at":    auction.EndsAt.Format(time.RFC3339),
	})
	return auction, nil
}

func validateCreateAuction(params CreateAuctionParams, now time.Time) error {
	switch {
	case params.SellerID == "":
		return fmt.Errorf("service: %w - missing seller ID", biddingerrors.ErrInvalidAuction)
	case params.Title == "":
		return fmt.Errorf("service: %w - missing title", biddingerrors.ErrInvalidAuction)
	case !params.StartingPrice.IsPositive():
		return fmt.Errorf("service: %w - starting price must be positive", biddingerrors.ErrInvalidAuction)
	case !params.BidIncrement.IsPositive():
		return fmt.Errorf("service: %w - bid increment must be positive", biddingerrors.ErrInvalidAuction)
	case params.BuyNowPrice != nil && !params.BuyNowPrice.GreaterThan(params.StartingPrice):
		return fmt.Errorf("service: %w - buy-now price must exceed starting price", biddingerrors.ErrInvalidAuction)
	case !model.IsMoneyAmount(params.StartingPrice), !model.IsMoneyAmount(params.BidIncrement),
		params.BuyNowPrice != nil && !model.IsMoneyAmount(*params.BuyNowPrice):
		return fmt.Errorf("service: %w - prices allow at most %d decimal places", biddingerrors.ErrInvalidAuction, model.MoneyScale)
	case !params.EndsAt.After(now):
		return fmt.Errorf("service: %w - end time must be in the future", biddingerrors.ErrInvalidAuction)
	case params.AutoExtend.ThresholdMinutes < 0 || params.AutoExtend.ExtendMinutes < 0:
		return fmt.Errorf("service: %w - auto-extend minutes cannot be negative", biddingerrors.ErrInvalidAuction)
	}
	return nil
}

// CancelAuction withdraws an active auction that has not received any bid.
// It goes through the same conditional write as bidding, so a bid that
// commits first makes the cancellation fail with ErrAuctionHasBids.
func (s *BiddingService) CancelAuction(ctx context.Context, auctionID, sellerID string) (model.Auction, error) {
	var cancelled model.Auction
	err := retry.OnConflict(ctx, s.maxAttempts, func(int) error {
		auction, err := s.sellerAuction(ctx, auctionID, sellerID)
		if err != nil {
			return err
		}
		if auction.Status != model.AuctionActive {
			return fmt.Errorf("auction %s is %s: %w", auctionID, auction.Status, biddingerrors.ErrAuctionNotActive)
		}
		if auction.BidCount > 0 {
			return fmt.Errorf("auction %s has %d bids: %w", auctionID, auction.BidCount, biddingerrors.ErrAuctionHasBids)
		}
		cancelled, err = s.repo.CloseAuction(ctx, auctionID, auction.Version, model.AuctionCancelled, nil)
		return err
	})
	if err != nil {
		return model.Auction{}, fmt.Errorf("service: failed to cancel auction %s: %w", auctionID, err)
	}

	utils.Info("auction cancelled", map[string]any{"auction_id": auctionID, "seller_id": sellerID})
	return cancelled, nil
}

// RejectBid lets the seller veto a bid on an active auction. The bid stays in
// the log flagged as rejected and the price falls back to the next highest bid.
func (s *BiddingService) RejectBid(ctx context.Context, auctionID, bidID, sellerID string) (model.Auction, error) {
	if bidID == "" {
		return model.Auction{}, fmt.Errorf("service: %w - empty bid ID", biddingerrors.ErrInvalidBid)
	}

	var updated model.Auction
	err := retry.OnConflict(ctx, s.maxAttempts, func(int) error {
		auction, err := s.sellerAuction(ctx, auctionID, sellerID)
		if err != nil {
			return err
		}
		if !auction.AcceptsBidsAt(s.clock.Now()) {
			return fmt.Errorf("auction %s is %s: %w", auctionID, auction.Status, biddingerrors.ErrAuctionNotActive)
		}
		updated, err = s.repo.RejectBid(ctx, auctionID, bidID, auction.Version)
		return err
	})
	if err != nil {
		return model.Auction{}, fmt.Errorf("service: failed to reject bid %s: %w", bidID, err)
	}

	utils.Info("bid rejected by seller", map[string]any{
		"auction_id":    auctionID,
		"bid_id":        bidID,
		"current_price": updated.CurrentPrice.String(),
	})
	return updated, nil
}

// BlockBidder bars a bidder from the seller's auction
func (s *BiddingService) BlockBidder(ctx context.Context, auctionID, sellerID, bidderID, reason string) error {
	if bidderID == "" {
		return fmt.Errorf("service: %w - empty bidder ID", biddingerrors.ErrInvalidBid)
	}
	if bidderID == sellerID {
		return fmt.Errorf("service: %w - seller cannot block themselves", biddingerrors.ErrInvalidBid)
	}
	if _, err := s.sellerAuction(ctx, auctionID, sellerID); err != nil {
		return fmt.Errorf("service: failed to block bidder %s: %w", bidderID, err)
	}

	block := model.BlockedBidder{
		AuctionID: auctionID,
		BidderID:  bidderID,
		Reason:    reason,
		CreatedAt: s.clock.Now(),
	}
	if err := s.repo.BlockBidder(ctx, block); err != nil {
		return fmt.Errorf("service: failed to block bidder %s: %w", bidderID, err)
	}
	return nil
}

// UnblockBidder lifts a block
func (s *BiddingService) UnblockBidder(ctx context.Context, auctionID, sellerID, bidderID string) error {
	if _, err := s.sellerAuction(ctx, auctionID, sellerID); err != nil {
		return fmt.Errorf("service: failed to unblock bidder %s: %w", bidderID, err)
	}
	if err := s.repo.UnblockBidder(ctx, auctionID, bidderID); err != nil {
		return fmt.Errorf("service: failed to unblock bidder %s: %w", bidderID, err)
	}
	return nil
}

func (s *BiddingService) sellerAuction(ctx context.Context, auctionID, sellerID string) (model.Auction, error) {
	if auctionID == "" || sellerID == "" {
		return model.Auction{}, fmt.Errorf("%w - missing auctionID or sellerID", biddingerrors.ErrInvalidAuction)
	}
	auction, err := s.repo.GetAuction(ctx, auctionID)
	if err != nil {
		return model.Auction{}, err
	}
	if auction.SellerID != sellerID {
		return model.Auction{}, fmt.Errorf("user %s on auction %s: %w", sellerID, auctionID, biddingerrors.ErrNotAuctionSeller)
	}
	return auction, nil
}
