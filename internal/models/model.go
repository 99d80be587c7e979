package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// AuctionStatus is the lifecycle state of an auction
type AuctionStatus string

const (
	AuctionActive    AuctionStatus = "active"
	AuctionEnded     AuctionStatus = "ended"
	AuctionSold      AuctionStatus = "sold"
	AuctionCancelled AuctionStatus = "cancelled"
)

// IsClosed reports whether the auction no longer accepts bids
func (s AuctionStatus) IsClosed() bool {
	return s != AuctionActive
}

// OrderStatus is the state of the post-sale handshake
type OrderStatus string

const (
	OrderPendingPayment OrderStatus = "pending_payment"
	OrderPaid           OrderStatus = "paid"
	OrderShipped        OrderStatus = "shipped"
	OrderDelivered      OrderStatus = "delivered"
	OrderCompleted      OrderStatus = "completed"
	OrderCancelled      OrderStatus = "cancelled"
)

// IsTerminal reports whether no further transition is possible
func (s OrderStatus) IsTerminal() bool {
	return s == OrderCompleted || s == OrderCancelled
}

// MoneyScale is the number of decimal places stored for every money amount
const MoneyScale = 2

// IsMoneyAmount reports whether d fits in MoneyScale decimal places without rounding
func IsMoneyAmount(d decimal.Decimal) bool {
	return d.Equal(d.Truncate(MoneyScale))
}

// RatingScore is the verdict one order party gives the other
type RatingScore string

const (
	RatingPositive RatingScore = "positive"
	RatingNegative RatingScore = "negative"
)

// Valid reports whether the score is one of the known values
func (s RatingScore) Valid() bool {
	return s == RatingPositive || s == RatingNegative
}

// User represents a marketplace participant and their derived reputation
type User struct {
	UserID          string    `json:"user_id"`
	Username        string    `json:"username"`
	PositiveRatings int       `json:"positive_ratings"`
	TotalRatings    int       `json:"total_ratings"`
	RatingScore     *float64  `json:"rating_score,omitempty"` // nil while TotalRatings == 0
	CreatedAt       time.Time `json:"created_at"`
}

// HasRatings reports whether the user has received at least one rating
func (u User) HasRatings() bool {
	return u.TotalRatings > 0
}

// AutoExtendPolicy extends the deadline by ExtendMinutes when a bid lands
// within ThresholdMinutes of the end.
type AutoExtendPolicy struct {
	ThresholdMinutes int `json:"threshold_minutes"`
	ExtendMinutes    int `json:"extend_minutes"`
}

// Enabled reports whether the policy can ever extend a deadline
func (p AutoExtendPolicy) Enabled() bool {
	return p.ThresholdMinutes > 0 && p.ExtendMinutes > 0
}

// Auction represents a time-boxed ascending-price sale of one item
type Auction struct {
	AuctionID           string           `json:"auction_id"`
	SellerID            string           `json:"seller_id"`
	Title               string           `json:"title"`
	Description         string           `json:"description"`
	StartingPrice       decimal.Decimal  `json:"starting_price"`
	CurrentPrice        decimal.Decimal  `json:"current_price"`
	BidIncrement        decimal.Decimal  `json:"bid_increment"`
	BuyNowPrice         *decimal.Decimal `json:"buy_now_price,omitempty"`
	EndsAt              time.Time        `json:"ends_at"`
	Status              AuctionStatus    `json:"status"`
	BidCount            int              `json:"bid_count"`
	AutoExtend          AutoExtendPolicy `json:"auto_extend"`
	AllowUnratedBidders bool             `json:"allow_unrated_bidders"`
	Version             int64            `json:"version"`
	CreatedAt           time.Time        `json:"created_at"`
	UpdatedAt           time.Time        `json:"updated_at"`
}

// AcceptsBidsAt reports whether a bid arriving at now may be considered
func (a Auction) AcceptsBidsAt(now time.Time) bool {
	return a.Status == AuctionActive && now.Before(a.EndsAt)
}

// Bid represents a bidder's offer on an auction
type Bid struct {
	BidID        string           `json:"bid_id"`
	AuctionID    string           `json:"auction_id"`
	BidderID     string           `json:"bidder_id"`
	Amount       decimal.Decimal  `json:"amount"`
	MaxBidAmount *decimal.Decimal `json:"max_bid_amount,omitempty"`
	Rejected     bool             `json:"rejected"`
	CreatedAt    time.Time        `json:"created_at"`
}

// Outranks reports whether b sorts above other: amount descending, then
// earliest created_at.
func (b Bid) Outranks(other Bid) bool {
	if c := b.Amount.Cmp(other.Amount); c != 0 {
		return c > 0
	}
	return b.CreatedAt.Before(other.CreatedAt)
}

// BlockedBidder bars one bidder from one auction
type BlockedBidder struct {
	AuctionID string    `json:"auction_id"`
	BidderID  string    `json:"bidder_id"`
	Reason    string    `json:"reason"`
	CreatedAt time.Time `json:"created_at"`
}

// Order is the fulfillment record between the seller and the winning bidder
type Order struct {
	OrderID            string          `json:"order_id"`
	AuctionID          string          `json:"auction_id"`
	SellerID           string          `json:"seller_id"`
	WinnerID           string          `json:"winner_id"`
	FinalPrice         decimal.Decimal `json:"final_price"`
	Status             OrderStatus     `json:"status"`
	ShippingAddress    string          `json:"shipping_address,omitempty"`
	PaymentProof       string          `json:"payment_proof,omitempty"`
	ShippingProof      string          `json:"shipping_proof,omitempty"`
	CancelledBy        string          `json:"cancelled_by,omitempty"`
	CancellationReason string          `json:"cancellation_reason,omitempty"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
	PaidAt             *time.Time      `json:"paid_at,omitempty"`
	ShippedAt          *time.Time      `json:"shipped_at,omitempty"`
	DeliveredAt        *time.Time      `json:"delivered_at,omitempty"`
	CompletedAt        *time.Time      `json:"completed_at,omitempty"`
	CancelledAt        *time.Time      `json:"cancelled_at,omitempty"`
}

// IsParty reports whether userID is the seller or the winner
func (o Order) IsParty(userID string) bool {
	return userID != "" && (userID == o.SellerID || userID == o.WinnerID)
}

// Counterpart returns the other party of the order
func (o Order) Counterpart(userID string) string {
	if userID == o.SellerID {
		return o.WinnerID
	}
	return o.SellerID
}

// Rating is one party's feedback about the other, unique per (order, rater)
type Rating struct {
	RatingID     string      `json:"rating_id"`
	OrderID      string      `json:"order_id"`
	RatingUserID string      `json:"rating_user_id"`
	RatedUserID  string      `json:"rated_user_id"`
	Score        RatingScore `json:"score"`
	Feedback     string      `json:"feedback"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

// Reputation is the aggregate derived from every rating of one user
type Reputation struct {
	PositiveRatings int
	TotalRatings    int
	RatingScore     *float64
}
