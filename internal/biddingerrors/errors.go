package biddingerrors

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Error categories. Every error returned by the core wraps exactly one of these.
var (
	ErrValidation  = errors.New("validation error")
	ErrEligibility = errors.New("eligibility error")
	ErrState       = errors.New("state error")
	ErrConflict    = errors.New("conflict error")
	ErrNotFound    = errors.New("not found")
)

// Repository-level errors
var (
	ErrAuctionNotFound = fmt.Errorf("auction %w", ErrNotFound)
	ErrUserNotFound    = fmt.Errorf("user %w", ErrNotFound)
	ErrBidNotFound     = fmt.Errorf("bid %w", ErrNotFound)
	ErrOrderNotFound   = fmt.Errorf("order %w", ErrNotFound)
	ErrNoBids          = fmt.Errorf("no bids found for auction: %w", ErrNotFound)
	ErrUserNoBids      = fmt.Errorf("user has not placed any bids: %w", ErrNotFound)

	// ErrVersionConflict is returned by conditional writes whose expected
	// version or status no longer matches the stored row.
	ErrVersionConflict = fmt.Errorf("stale version: %w", ErrConflict)
	ErrDuplicate       = fmt.Errorf("duplicate record: %w", ErrConflict)
)

// business logic errors
var (
	ErrInvalidBid         = fmt.Errorf("invalid bid: %w", ErrValidation)
	ErrInvalidAuction     = fmt.Errorf("invalid auction: %w", ErrValidation)
	ErrInvalidRating      = fmt.Errorf("invalid rating: %w", ErrValidation)
	ErrInvalidOrderAction = fmt.Errorf("invalid order action: %w", ErrValidation)
	ErrBidTooLow          = fmt.Errorf("bid amount too low: %w", ErrValidation)

	ErrSellerSelfBid       = fmt.Errorf("seller cannot bid on own auction: %w", ErrEligibility)
	ErrBidderBlocked       = fmt.Errorf("bidder is blocked from this auction: %w", ErrEligibility)
	ErrInsufficientRating  = fmt.Errorf("insufficient rating: %w", ErrEligibility)
	ErrNotAuctionSeller    = fmt.Errorf("only the seller may do this: %w", ErrEligibility)
	ErrNotOrderParty       = fmt.Errorf("user is not a party to this order: %w", ErrEligibility)
	ErrOrderActionNotOwned = fmt.Errorf("action belongs to the other order party: %w", ErrEligibility)

	ErrAuctionNotActive       = fmt.Errorf("auction is not active: %w", ErrState)
	ErrAuctionHasBids         = fmt.Errorf("auction already has bids: %w", ErrState)
	ErrInvalidOrderTransition = fmt.Errorf("invalid order transition: %w", ErrState)
	ErrConcurrentModification = fmt.Errorf("concurrent modification, re-read and retry: %w", ErrConflict)
)

// BidTooLowError reports the smallest amount that would have been accepted
type BidTooLowError struct {
	MinRequired decimal.Decimal
}

func (e *BidTooLowError) Error() string {
	return fmt.Sprintf("bid amount too low: minimum required is %s", e.MinRequired.String())
}

func (e *BidTooLowError) Unwrap() error { return ErrBidTooLow }

// InsufficientRatingError carries the counts a client needs to explain the rejection
type InsufficientRatingError struct {
	Positive         int
	Total            int
	ThresholdPercent int
}

// Percent is the positive share rounded down to a whole percentage
func (e *InsufficientRatingError) Percent() int {
	if e.Total == 0 {
		return 0
	}
	return e.Positive * 100 / e.Total
}

func (e *InsufficientRatingError) Error() string {
	return fmt.Sprintf("insufficient rating: %d/%d positive (%d%%), below the %d%% threshold",
		e.Positive, e.Total, e.Percent(), e.ThresholdPercent)
}

func (e *InsufficientRatingError) Unwrap() error { return ErrInsufficientRating }

// InvalidOrderTransitionError is returned when an action does not apply to the order's current state
type InvalidOrderTransitionError struct {
	From   string
	Action string
}

func (e *InvalidOrderTransitionError) Error() string {
	return fmt.Sprintf("invalid order transition: cannot %s an order in status %s", e.Action, e.From)
}

func (e *InvalidOrderTransitionError) Unwrap() error { return ErrInvalidOrderTransition }
