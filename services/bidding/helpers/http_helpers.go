package helpers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"auction-house/internal/biddingerrors"
	model "auction-house/internal/models"
	"auction-house/utils"

	"github.com/gin-gonic/gin"
)

// HandleBindError sends a standardized JSON error for binding failures
func HandleBindError(c *gin.Context, handlerName string, err error) {
	wrappedErr := fmt.Errorf("invalid request payload: %w", err)
	utils.JSONError(c, http.StatusBadRequest, wrappedErr, "invalid request payload")
	utils.Warn(handlerName+": binding error", map[string]any{"error": err.Error()})
}

// HandleServiceError maps a service error to a JSON error response and logs it.
// Client errors are logged as warnings, everything else as errors.
func HandleServiceError(c *gin.Context, handlerName string, err error, fields map[string]any) {
	status, message := MapErrorToHTTP(err)
	utils.JSONError(c, status, fmt.Errorf("%s: %w", message, err), message, ErrorDetails(err))

	logFields := map[string]any{"handler": handlerName, "status": status, "error": err.Error()}
	for k, v := range fields {
		logFields[k] = v
	}
	if status >= http.StatusInternalServerError {
		utils.Error(handlerName+": "+message, logFields)
		return
	}
	utils.Warn(handlerName+": "+message, logFields)
}

// MapErrorToHTTP maps domain/service errors to HTTP status code and message.
// Specific errors come first; the category sentinels catch the rest.
func MapErrorToHTTP(err error) (int, string) {
	switch {
	case errors.Is(err, biddingerrors.ErrAuctionNotFound):
		return http.StatusNotFound, "auction not found"
	case errors.Is(err, biddingerrors.ErrUserNotFound):
		return http.StatusNotFound, "user not found"
	case errors.Is(err, biddingerrors.ErrBidNotFound):
		return http.StatusNotFound, "bid not found"
	case errors.Is(err, biddingerrors.ErrOrderNotFound):
		return http.StatusNotFound, "order not found"
	case errors.Is(err, biddingerrors.ErrNoBids):
		return http.StatusNotFound, "no bids found for auction"
	case errors.Is(err, biddingerrors.ErrUserNoBids):
		return http.StatusNotFound, "no auctions found for user"
	case errors.Is(err, biddingerrors.ErrNotFound):
		return http.StatusNotFound, "resource not found"

	case errors.Is(err, biddingerrors.ErrBidTooLow):
		return http.StatusBadRequest, "bid amount too low"
	case errors.Is(err, biddingerrors.ErrInvalidBid):
		return http.StatusBadRequest, "invalid bid details"
	case errors.Is(err, biddingerrors.ErrInvalidAuction):
		return http.StatusBadRequest, "invalid auction details"
	case errors.Is(err, biddingerrors.ErrInvalidRating):
		return http.StatusBadRequest, "invalid rating"
	case errors.Is(err, biddingerrors.ErrInvalidOrderAction):
		return http.StatusBadRequest, "invalid order action"
	case errors.Is(err, biddingerrors.ErrValidation):
		return http.StatusBadRequest, "invalid request"

	case errors.Is(err, biddingerrors.ErrSellerSelfBid):
		return http.StatusForbidden, "sellers cannot bid on their own auction"
	case errors.Is(err, biddingerrors.ErrBidderBlocked):
		return http.StatusForbidden, "bidder is blocked from this auction"
	case errors.Is(err, biddingerrors.ErrInsufficientRating):
		return http.StatusForbidden, "insufficient rating"
	case errors.Is(err, biddingerrors.ErrNotAuctionSeller):
		return http.StatusForbidden, "only the seller may do this"
	case errors.Is(err, biddingerrors.ErrNotOrderParty):
		return http.StatusForbidden, "user is not a party to this order"
	case errors.Is(err, biddingerrors.ErrOrderActionNotOwned):
		return http.StatusForbidden, "action belongs to the other order party"
	case errors.Is(err, biddingerrors.ErrEligibility):
		return http.StatusForbidden, "not allowed"

	case errors.Is(err, biddingerrors.ErrAuctionNotActive):
		return http.StatusConflict, "auction is not active"
	case errors.Is(err, biddingerrors.ErrAuctionHasBids):
		return http.StatusConflict, "auction already has bids"
	case errors.Is(err, biddingerrors.ErrInvalidOrderTransition):
		return http.StatusConflict, "invalid order transition"
	case errors.Is(err, biddingerrors.ErrState):
		return http.StatusConflict, "invalid state"

	case errors.Is(err, biddingerrors.ErrConcurrentModification):
		return http.StatusConflict, "concurrent modification, please retry"
	case errors.Is(err, biddingerrors.ErrDuplicate):
		return http.StatusConflict, "resource already exists"
	case errors.Is(err, biddingerrors.ErrConflict):
		return http.StatusConflict, "conflict"

	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

// ErrorDetails extracts the machine-readable fields typed errors carry
func ErrorDetails(err error) map[string]any {
	var tooLow *biddingerrors.BidTooLowError
	if errors.As(err, &tooLow) {
		return map[string]any{"min_required": tooLow.MinRequired.String()}
	}

	var rating *biddingerrors.InsufficientRatingError
	if errors.As(err, &rating) {
		return map[string]any{
			"positive_ratings":  rating.Positive,
			"total_ratings":     rating.Total,
			"percent":           rating.Percent(),
			"threshold_percent": rating.ThresholdPercent,
		}
	}

	var transition *biddingerrors.InvalidOrderTransitionError
	if errors.As(err, &transition) {
		return map[string]any{"from": transition.From, "action": transition.Action}
	}

	return nil
}

// ToBidResponse converts a bid to its wire form
func ToBidResponse(bid model.Bid) BidResponse {
	return BidResponse{
		BidID:        bid.BidID,
		AuctionID:    bid.AuctionID,
		BidderID:     bid.BidderID,
		Amount:       bid.Amount,
		MaxBidAmount: bid.MaxBidAmount,
		Rejected:     bid.Rejected,
		CreatedAt:    bid.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}

// LogSuccess is a small helper to standardize logging of successful operations
func LogSuccess(handlerName, message string, ctx map[string]any) {
	utils.Info(handlerName+": "+message, ctx)
}
