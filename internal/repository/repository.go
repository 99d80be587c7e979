package repository

//go:generate mockgen -source=repository.go -destination=mock_repository.go -package=repository

import (
	"auction-house/internal/biddingerrors"
	model "auction-house/internal/models"
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// AggregateFunc recomputes a user's reputation from every rating that references them
type AggregateFunc func(ratings []model.Rating) model.Reputation

// ExpiredCursor is a position in the (ends_at, auction_id) order of expired
// auctions. The zero value starts from the beginning.
type ExpiredCursor struct {
	EndsAt    time.Time
	AuctionID string
}

// CursorAt returns the position of auction a
func CursorAt(a model.Auction) ExpiredCursor {
	return ExpiredCursor{EndsAt: a.EndsAt, AuctionID: a.AuctionID}
}

// IsZero reports whether the cursor starts from the beginning
func (c ExpiredCursor) IsZero() bool {
	return c.EndsAt.IsZero() && c.AuctionID == ""
}

// Precedes reports whether a sorts strictly after the cursor
func (c ExpiredCursor) Precedes(a model.Auction) bool {
	if c.IsZero() {
		return true
	}
	if a.EndsAt.Equal(c.EndsAt) {
		return a.AuctionID > c.AuctionID
	}
	return a.EndsAt.After(c.EndsAt)
}

// AuctionDB defines the ledger storage interface for the auction system.
//
// RecordBid, RejectBid and CloseAuction are conditional writes: they apply only
// while the stored auction still carries expectedVersion and bump the version on
// success, otherwise they return biddingerrors.ErrVersionConflict. UpdateOrder is
// conditional on the order's status in the same way.
type AuctionDB interface {
	CreateUser(ctx context.Context, user model.User) error
	GetUser(ctx context.Context, userID string) (model.User, error)

	CreateAuction(ctx context.Context, auction model.Auction) error
	GetAuction(ctx context.Context, auctionID string) (model.Auction, error)
	ListExpiredAuctions(ctx context.Context, now time.Time, after ExpiredCursor, limit int) ([]model.Auction, error)
	GetAuctionsByBidder(ctx context.Context, bidderID string) ([]model.Auction, error)
	CloseAuction(ctx context.Context, auctionID string, expectedVersion int64, status model.AuctionStatus, order *model.Order) (model.Auction, error)

	RecordBid(ctx context.Context, bid model.Bid, expectedVersion int64, endsAt time.Time) (model.Auction, error)
	GetBidsByAuction(ctx context.Context, auctionID string) ([]model.Bid, error)
	GetHighestBid(ctx context.Context, auctionID string) (model.Bid, error)
	RejectBid(ctx context.Context, auctionID, bidID string, expectedVersion int64) (model.Auction, error)

	IsBidderBlocked(ctx context.Context, auctionID, bidderID string) (bool, error)
	BlockBidder(ctx context.Context, block model.BlockedBidder) error
	UnblockBidder(ctx context.Context, auctionID, bidderID string) error

	GetOrder(ctx context.Context, orderID string) (model.Order, error)
	GetOrderByAuction(ctx context.Context, auctionID string) (model.Order, error)
	UpdateOrder(ctx context.Context, order model.Order, expectedStatus model.OrderStatus) (model.Order, error)

	UpsertRating(ctx context.Context, rating model.Rating, aggregate AggregateFunc) (model.Rating, model.User, error)
	GetRatingsForUser(ctx context.Context, userID string) ([]model.Rating, error)
}

type blockKey struct {
	auctionID string
	bidderID  string
}

type ratingKey struct {
	orderID string
	raterID string
}

// MemoryRepo is a concurrency-safe in-memory implementation of AuctionDB.
// A single lock serializes every write, which makes each conditional write atomic.
type MemoryRepo struct {
	mu             sync.RWMutex
	users          map[string]model.User
	auctions       map[string]model.Auction
	bids           map[string][]model.Bid // key: auctionID -> bids in arrival order
	bidderAuctions map[string][]string    // key: bidderID -> auctionIDs the bidder has bid on
	blocks         map[blockKey]model.BlockedBidder
	orders         map[string]model.Order
	auctionOrders  map[string]string // key: auctionID -> orderID
	ratings        map[ratingKey]model.Rating
}

// NewMemoryRepo creates a new in-memory repository instance
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		users:          make(map[string]model.User),
		auctions:       make(map[string]model.Auction),
		bids:           make(map[string][]model.Bid),
		bidderAuctions: make(map[string][]string),
		blocks:         make(map[blockKey]model.BlockedBidder),
		orders:         make(map[string]model.Order),
		auctionOrders:  make(map[string]string),
		ratings:        make(map[ratingKey]model.Rating),
	}
}

// CreateUser stores a new user
func (r *MemoryRepo) CreateUser(_ context.Context, user model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[user.UserID]; ok {
		return fmt.Errorf("create user %s: %w", user.UserID, biddingerrors.ErrDuplicate)
	}
	r.users[user.UserID] = user
	return nil
}

// GetUser returns a user with their current reputation
func (r *MemoryRepo) GetUser(_ context.Context, userID string) (model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[userID]
	if !ok {
		return model.User{}, fmt.Errorf("get user %s: %w", userID, biddingerrors.ErrUserNotFound)
	}
	return user, nil
}

// CreateAuction stores a new auction
func (r *MemoryRepo) CreateAuction(_ context.Context, auction model.Auction) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.auctions[auction.AuctionID]; ok {
		return fmt.Errorf("create auction %s: %w", auction.AuctionID, biddingerrors.ErrDuplicate)
	}
	r.auctions[auction.AuctionID] = auction
	return nil
}

// GetAuction returns a snapshot of an auction
func (r *MemoryRepo) GetAuction(_ context.Context, auctionID string) (model.Auction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	auction, ok := r.auctions[auctionID]
	if !ok {
		return model.Auction{}, fmt.Errorf("get auction %s: %w", auctionID, biddingerrors.ErrAuctionNotFound)
	}
	return auction, nil
}

// ListExpiredAuctions returns active auctions whose deadline is at or before now
// and that sort after the cursor, ordered by (ends_at, auction_id)
func (r *MemoryRepo) ListExpiredAuctions(_ context.Context, now time.Time, after ExpiredCursor, limit int) ([]model.Auction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var expired []model.Auction
	for _, a := range r.auctions {
		if a.Status == model.AuctionActive && !a.EndsAt.After(now) && after.Precedes(a) {
			expired = append(expired, a)
		}
	}
	sort.Slice(expired, func(i, j int) bool {
		if expired[i].EndsAt.Equal(expired[j].EndsAt) {
			return expired[i].AuctionID < expired[j].AuctionID
		}
		return expired[i].EndsAt.Before(expired[j].EndsAt)
	})
	if limit > 0 && len(expired) > limit {
		expired = expired[:limit]
	}
	return expired, nil
}

// GetAuctionsByBidder returns all auctions a user has bid on
func (r *MemoryRepo) GetAuctionsByBidder(_ context.Context, bidderID string) ([]model.Auction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	auctionIDs, ok := r.bidderAuctions[bidderID]
	if !ok || len(auctionIDs) == 0 {
		return nil, fmt.Errorf("get auctions for bidder %s: %w", bidderID, biddingerrors.ErrUserNoBids)
	}

	auctions := make([]model.Auction, 0, len(auctionIDs))
	for _, id := range auctionIDs {
		if auction, exists := r.auctions[id]; exists {
			auctions = append(auctions, auction)
		}
	}
	return auctions, nil
}

// CloseAuction moves an auction out of active and, when order is non-nil,
// records the order in the same step.
func (r *MemoryRepo) CloseAuction(_ context.Context, auctionID string, expectedVersion int64, status model.AuctionStatus, order *model.Order) (model.Auction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	auction, err := r.auctionAtVersion(auctionID, expectedVersion)
	if err != nil {
		return model.Auction{}, fmt.Errorf("close auction %s: %w", auctionID, err)
	}

	if order != nil {
		if _, exists := r.auctionOrders[auctionID]; exists {
			return model.Auction{}, fmt.Errorf("close auction %s: order: %w", auctionID, biddingerrors.ErrDuplicate)
		}
		r.orders[order.OrderID] = *order
		r.auctionOrders[auctionID] = order.OrderID
	}

	auction.Status = status
	auction.Version++
	auction.UpdatedAt = time.Now().UTC()
	r.auctions[auctionID] = auction
	return auction, nil
}

// RecordBid appends a bid and moves the auction's price, bid count and deadline in one step
func (r *MemoryRepo) RecordBid(_ context.Context, bid model.Bid, expectedVersion int64, endsAt time.Time) (model.Auction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	auction, err := r.auctionAtVersion(bid.AuctionID, expectedVersion)
	if err != nil {
		return model.Auction{}, fmt.Errorf("record bid for auction %s: %w", bid.AuctionID, err)
	}

	r.bids[bid.AuctionID] = append(r.bids[bid.AuctionID], bid)
	r.trackBidder(bid.BidderID, bid.AuctionID)

	auction.CurrentPrice = bid.Amount
	auction.BidCount++
	auction.EndsAt = endsAt
	auction.Version++
	auction.UpdatedAt = time.Now().UTC()
	r.auctions[bid.AuctionID] = auction
	return auction, nil
}

// GetBidsByAuction returns all bids for an auction, rejected ones included
func (r *MemoryRepo) GetBidsByAuction(_ context.Context, auctionID string) ([]model.Bid, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, ok := r.auctions[auctionID]; !ok {
		return nil, fmt.Errorf("get bids for auction %s: %w", auctionID, biddingerrors.ErrAuctionNotFound)
	}
	bids := r.bids[auctionID]
	if len(bids) == 0 {
		return nil, fmt.Errorf("get bids for auction %s: %w", auctionID, biddingerrors.ErrNoBids)
	}
	return append([]model.Bid(nil), bids...), nil
}

// GetHighestBid returns the highest non-rejected bid for an auction
func (r *MemoryRepo) GetHighestBid(_ context.Context, auctionID string) (model.Bid, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	winning, ok := highestBid(r.bids[auctionID])
	if !ok {
		return model.Bid{}, fmt.Errorf("get highest bid for auction %s: %w", auctionID, biddingerrors.ErrNoBids)
	}
	return winning, nil
}

// RejectBid flags a bid as rejected and rolls the auction price back to the
// highest remaining bid, or the starting price when none is left.
func (r *MemoryRepo) RejectBid(_ context.Context, auctionID, bidID string, expectedVersion int64) (model.Auction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	auction, err := r.auctionAtVersion(auctionID, expectedVersion)
	if err != nil {
		return model.Auction{}, fmt.Errorf("reject bid %s: %w", bidID, err)
	}

	bids := r.bids[auctionID]
	idx := -1
	for i, b := range bids {
		if b.BidID == bidID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return model.Auction{}, fmt.Errorf("reject bid %s: %w", bidID, biddingerrors.ErrBidNotFound)
	}
	if bids[idx].Rejected {
		return auction, nil
	}
	bids[idx].Rejected = true

	auction.CurrentPrice = auction.StartingPrice
	if top, ok := highestBid(bids); ok {
		auction.CurrentPrice = top.Amount
	}
	auction.Version++
	auction.UpdatedAt = time.Now().UTC()
	r.auctions[auctionID] = auction
	return auction, nil
}

// IsBidderBlocked reports whether the seller has blocked bidderID from auctionID
func (r *MemoryRepo) IsBidderBlocked(_ context.Context, auctionID, bidderID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.blocks[blockKey{auctionID: auctionID, bidderID: bidderID}]
	return ok, nil
}

// BlockBidder adds or replaces a block entry and bumps the auction version,
// so a bid checked before the block loses its conditional write
func (r *MemoryRepo) BlockBidder(_ context.Context, block model.BlockedBidder) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.auctions[block.AuctionID]; !ok {
		return fmt.Errorf("block bidder on auction %s: %w", block.AuctionID, biddingerrors.ErrAuctionNotFound)
	}
	r.blocks[blockKey{auctionID: block.AuctionID, bidderID: block.BidderID}] = block
	r.bumpVersion(block.AuctionID)
	return nil
}

// UnblockBidder removes a block entry and bumps the auction version; removing
// a missing entry is not an error
func (r *MemoryRepo) UnblockBidder(_ context.Context, auctionID, bidderID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.blocks, blockKey{auctionID: auctionID, bidderID: bidderID})
	r.bumpVersion(auctionID)
	return nil
}

// bumpVersion must be called with r.mu held
func (r *MemoryRepo) bumpVersion(auctionID string) {
	auction, ok := r.auctions[auctionID]
	if !ok {
		return
	}
	auction.Version++
	auction.UpdatedAt = time.Now().UTC()
	r.auctions[auctionID] = auction
}

// GetOrder returns an order by id
func (r *MemoryRepo) GetOrder(_ context.Context, orderID string) (model.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	order, ok := r.orders[orderID]
	if !ok {
		return model.Order{}, fmt.Errorf("get order %s: %w", orderID, biddingerrors.ErrOrderNotFound)
	}
	return order, nil
}

// GetOrderByAuction returns the order created when the auction sold
func (r *MemoryRepo) GetOrderByAuction(_ context.Context, auctionID string) (model.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	orderID, ok := r.auctionOrders[auctionID]
	if !ok {
		return model.Order{}, fmt.Errorf("get order for auction %s: %w", auctionID, biddingerrors.ErrOrderNotFound)
	}
	return r.orders[orderID], nil
}

// UpdateOrder replaces the stored order if its status still equals expectedStatus
func (r *MemoryRepo) UpdateOrder(_ context.Context, order model.Order, expectedStatus model.OrderStatus) (model.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.orders[order.OrderID]
	if !ok {
		return model.Order{}, fmt.Errorf("update order %s: %w", order.OrderID, biddingerrors.ErrOrderNotFound)
	}
	if current.Status != expectedStatus {
		return model.Order{}, fmt.Errorf("update order %s: %w", order.OrderID, biddingerrors.ErrVersionConflict)
	}
	r.orders[order.OrderID] = order
	return order, nil
}

// UpsertRating inserts or replaces the rating keyed by (order, rater) and
// recomputes the rated user's aggregate while still holding the write lock.
func (r *MemoryRepo) UpsertRating(_ context.Context, rating model.Rating, aggregate AggregateFunc) (model.Rating, model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[rating.RatedUserID]; !ok {
		return model.Rating{}, model.User{}, fmt.Errorf("upsert rating: rated %w", biddingerrors.ErrUserNotFound)
	}

	key := ratingKey{orderID: rating.OrderID, raterID: rating.RatingUserID}
	previous, existed := r.ratings[key]
	if existed {
		rating.RatingID = previous.RatingID
		rating.CreatedAt = previous.CreatedAt
	}
	r.ratings[key] = rating

	if existed && previous.RatedUserID != rating.RatedUserID {
		r.recomputeLocked(previous.RatedUserID, aggregate)
	}
	user := r.recomputeLocked(rating.RatedUserID, aggregate)
	return rating, user, nil
}

// GetRatingsForUser returns every rating received by userID
func (r *MemoryRepo) GetRatingsForUser(_ context.Context, userID string) ([]model.Rating, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.ratingsForLocked(userID), nil
}

func (r *MemoryRepo) recomputeLocked(userID string, aggregate AggregateFunc) model.User {
	user, ok := r.users[userID]
	if !ok {
		return model.User{}
	}
	rep := aggregate(r.ratingsForLocked(userID))
	user.PositiveRatings = rep.PositiveRatings
	user.TotalRatings = rep.TotalRatings
	user.RatingScore = rep.RatingScore
	r.users[userID] = user
	return user
}

func (r *MemoryRepo) ratingsForLocked(userID string) []model.Rating {
	var out []model.Rating
	for _, rt := range r.ratings {
		if rt.RatedUserID == userID {
			out = append(out, rt)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (r *MemoryRepo) auctionAtVersion(auctionID string, expectedVersion int64) (model.Auction, error) {
	auction, ok := r.auctions[auctionID]
	if !ok {
		return model.Auction{}, biddingerrors.ErrAuctionNotFound
	}
	if auction.Version != expectedVersion {
		return model.Auction{}, biddingerrors.ErrVersionConflict
	}
	return auction, nil
}

func (r *MemoryRepo) trackBidder(bidderID, auctionID string) {
	for _, id := range r.bidderAuctions[bidderID] {
		if id == auctionID {
			return
		}
	}
	r.bidderAuctions[bidderID] = append(r.bidderAuctions[bidderID], auctionID)
}

// highestBid picks the top non-rejected bid: amount descending, then earliest created_at
func highestBid(bids []model.Bid) (model.Bid, bool) {
	var (
		winning model.Bid
		found   bool
	)
	for _, b := range bids {
		if b.Rejected {
			continue
		}
		if !found || b.Outranks(winning) {
			winning = b
			found = true
		}
	}
	return winning, found
}
