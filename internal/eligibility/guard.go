package eligibility

import (
	"fmt"

	"auction-house/internal/biddingerrors"
	model "auction-house/internal/models"
)

// DefaultMinRatingPercent is the share of positive ratings a rated bidder needs
const DefaultMinRatingPercent = 80

// Guard decides whether a bidder may bid on an auction. It has no side effects.
type Guard struct {
	minRatingPercent int
}

// NewGuard creates a Guard; a non-positive threshold falls back to DefaultMinRatingPercent
func NewGuard(minRatingPercent int) *Guard {
	if minRatingPercent <= 0 || minRatingPercent > 100 {
		minRatingPercent = DefaultMinRatingPercent
	}
	return &Guard{minRatingPercent: minRatingPercent}
}

// MinRatingPercent returns the configured threshold
func (g *Guard) MinRatingPercent() int {
	return g.minRatingPercent
}

// Check runs the eligibility rules in order and returns the first failure:
// self-bid, then blocklist, then reputation.
func (g *Guard) Check(auction model.Auction, bidder model.User, blocked bool) error {
	if bidder.UserID == auction.SellerID {
		return fmt.Errorf("eligibility: bidder %s on auction %s: %w", bidder.UserID, auction.AuctionID, biddingerrors.ErrSellerSelfBid)
	}

	if blocked {
		return fmt.Errorf("eligibility: bidder %s on auction %s: %w", bidder.UserID, auction.AuctionID, biddingerrors.ErrBidderBlocked)
	}

	if !bidder.HasRatings() {
		if auction.AllowUnratedBidders {
			return nil
		}
		return fmt.Errorf("eligibility: auction %s does not accept unrated bidders: %w", auction.AuctionID,
			&biddingerrors.InsufficientRatingError{ThresholdPercent: g.minRatingPercent})
	}

	// integer comparison keeps 4/5 exactly on the 80% threshold
	if bidder.PositiveRatings*100 < g.minRatingPercent*bidder.TotalRatings {
		return &biddingerrors.InsufficientRatingError{
			Positive:         bidder.PositiveRatings,
			Total:            bidder.TotalRatings,
			ThresholdPercent: g.minRatingPercent,
		}
	}

	return nil
}
