package helpers

import (
	"time"

	"github.com/shopspring/decimal"
)

// Request/Response DTOs

// Amounts are decimals and accept either a JSON number or a numeric string

type CreateUserRequest struct {
	UserID   string `json:"user_id" binding:"required"`
	Username string `json:"username" binding:"required"`
}

type CreateAuctionRequest struct {
	SellerID                   string           `json:"seller_id" binding:"required"`
	Title                      string           `json:"title" binding:"required"`
	Description                string           `json:"description"`
	StartingPrice              decimal.Decimal  `json:"starting_price"`
	BidIncrement               decimal.Decimal  `json:"bid_increment"`
	BuyNowPrice                *decimal.Decimal `json:"buy_now_price"`
	EndsAt                     time.Time        `json:"ends_at" binding:"required"`
	AutoExtendThresholdMinutes int              `json:"auto_extend_threshold_minutes"`
	AutoExtendMinutes          int              `json:"auto_extend_minutes"`
	AllowUnratedBidders        bool             `json:"allow_unrated_bidders"`
}

type SellerActionRequest struct {
	SellerID string `json:"seller_id" binding:"required"`
}

type BlockBidderRequest struct {
	SellerID string `json:"seller_id" binding:"required"`
	BidderID string `json:"bidder_id" binding:"required"`
	Reason   string `json:"reason"`
}

type PlaceBidRequest struct {
	AuctionID    string           `json:"auction_id" binding:"required"`
	BidderID     string           `json:"bidder_id" binding:"required"`
	Amount       decimal.Decimal  `json:"amount"`
	MaxBidAmount *decimal.Decimal `json:"max_bid_amount"`
}

type BidResponse struct {
	BidID        string           `json:"bid_id"`
	AuctionID    string           `json:"auction_id"`
	BidderID     string           `json:"bidder_id"`
	Amount       decimal.Decimal  `json:"amount"`
	MaxBidAmount *decimal.Decimal `json:"max_bid_amount,omitempty"`
	Rejected     bool             `json:"rejected"`
	CreatedAt    string           `json:"created_at"`
}

type PlaceBidResponse struct {
	Bid          BidResponse     `json:"bid"`
	CurrentPrice decimal.Decimal `json:"current_price"`
	MinNextBid   decimal.Decimal `json:"min_next_bid"`
	BidCount     int             `json:"bid_count"`
	EndsAt       string          `json:"ends_at"`
	Extended     bool            `json:"extended"`
}

type OrderTransitionRequest struct {
	ActorID          string `json:"actor_id" binding:"required"`
	Action           string `json:"action" binding:"required"`
	PaymentProof     string `json:"payment_proof"`
	ShippingAddress  string `json:"shipping_address"`
	ShippingProof    string `json:"shipping_proof"`
	Reason           string `json:"reason"`
	NegativeFeedback bool   `json:"negative_feedback"`
}

type RatingRequest struct {
	RaterID  string `json:"rater_id" binding:"required"`
	RatedID  string `json:"rated_user_id" binding:"required"`
	Score    string `json:"score" binding:"required"`
	Feedback string `json:"feedback"`
}

type RatingResponse struct {
	RatingID        string   `json:"rating_id"`
	OrderID         string   `json:"order_id"`
	RaterID         string   `json:"rating_user_id"`
	RatedID         string   `json:"rated_user_id"`
	Score           string   `json:"score"`
	Feedback        string   `json:"feedback"`
	PositiveRatings int      `json:"positive_ratings"`
	TotalRatings    int      `json:"total_ratings"`
	RatingScore     *float64 `json:"rating_score"`
}
