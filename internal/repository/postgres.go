package repository

import (
	"auction-house/internal/biddingerrors"
	model "auction-house/internal/models"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const auctionColumns = `auction_id, seller_id, title, description,
	starting_price::text, current_price::text, bid_increment::text, buy_now_price::text,
	ends_at, status, bid_count, auto_extend_threshold_min, auto_extend_min,
	allow_unrated_bidders, version, created_at, updated_at`

const bidColumns = `bid_id, auction_id, bidder_id, amount::text, max_bid_amount::text, rejected, created_at`

const orderColumns = `order_id, auction_id, seller_id, winner_id, final_price::text, status,
	shipping_address, payment_proof, shipping_proof, cancelled_by, cancellation_reason,
	created_at, updated_at, paid_at, shipped_at, delivered_at, completed_at, cancelled_at`

const ratingColumns = `rating_id, order_id, rating_user_id, rated_user_id, score, feedback, created_at, updated_at`

const userColumns = `user_id, username, positive_ratings, total_ratings, rating_score, created_at`

// scanner is satisfied by both pgx.Row and pgx.Rows
type scanner interface {
	Scan(dest ...any) error
}

// querier is satisfied by both the pool and a transaction
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepo implements AuctionDB on PostgreSQL. Conditional writes lock
// the auction row, compare its version and bump it inside one transaction.
type PostgresRepo struct {
	pool *pgxpool.Pool
}

// NewPostgresRepo creates a repository on an existing pool
func NewPostgresRepo(pool *pgxpool.Pool) *PostgresRepo {
	return &PostgresRepo{pool: pool}
}

// inTx runs fn in a transaction and commits when it returns nil
func (r *PostgresRepo) inTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback(ctx)
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	committed = true
	return nil
}

// CreateUser stores a new user
func (r *PostgresRepo) CreateUser(ctx context.Context, user model.User) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO users (user_id, username, positive_ratings, total_ratings, rating_score, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, user.UserID, user.Username, user.PositiveRatings, user.TotalRatings, user.RatingScore, user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("create user %s: %w", user.UserID, biddingerrors.ErrDuplicate)
		}
		return fmt.Errorf("create user %s: %w", user.UserID, err)
	}
	return nil
}

// GetUser returns a user with their current reputation
func (r *PostgresRepo) GetUser(ctx context.Context, userID string) (model.User, error) {
	user, err := scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE user_id = $1`, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.User{}, fmt.Errorf("get user %s: %w", userID, biddingerrors.ErrUserNotFound)
		}
		return model.User{}, fmt.Errorf("get user %s: %w", userID, err)
	}
	return user, nil
}

// CreateAuction stores a new auction
func (r *PostgresRepo) CreateAuction(ctx context.Context, a model.Auction) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO auctions (auction_id, seller_id, title, description, starting_price, current_price,
			bid_increment, buy_now_price, ends_at, status, bid_count, auto_extend_threshold_min,
			auto_extend_min, allow_unrated_bidders, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`, a.AuctionID, a.SellerID, a.Title, a.Description, a.StartingPrice.String(), a.CurrentPrice.String(),
		a.BidIncrement.String(), decimalPtrString(a.BuyNowPrice), a.EndsAt, a.Status, a.BidCount,
		a.AutoExtend.ThresholdMinutes, a.AutoExtend.ExtendMinutes, a.AllowUnratedBidders, a.Version,
		a.CreatedAt, a.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("create auction %s: %w", a.AuctionID, biddingerrors.ErrDuplicate)
		}
		return fmt.Errorf("create auction %s: %w", a.AuctionID, err)
	}
	return nil
}

// GetAuction returns a snapshot of an auction
func (r *PostgresRepo) GetAuction(ctx context.Context, auctionID string) (model.Auction, error) {
	auction, err := scanAuction(r.pool.QueryRow(ctx, `SELECT `+auctionColumns+` FROM auctions WHERE auction_id = $1`, auctionID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Auction{}, fmt.Errorf("get auction %s: %w", auctionID, biddingerrors.ErrAuctionNotFound)
		}
		return model.Auction{}, fmt.Errorf("get auction %s: %w", auctionID, err)
	}
	return auction, nil
}

// ListExpiredAuctions returns active auctions whose deadline is at or before now
// and that sort after the cursor, ordered by (ends_at, auction_id)
func (r *PostgresRepo) ListExpiredAuctions(ctx context.Context, now time.Time, after ExpiredCursor, limit int) ([]model.Auction, error) {
	var lim any
	if limit > 0 {
		lim = limit
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+auctionColumns+`
		FROM auctions
		WHERE status = 'active' AND ends_at <= $1
		  AND ($2::boolean OR (ends_at, auction_id) > ($3::timestamptz, $4::text))
		ORDER BY ends_at, auction_id
		LIMIT $5
	`, now, after.IsZero(), after.EndsAt, after.AuctionID, lim)
	if err != nil {
		return nil, fmt.Errorf("list expired auctions: %w", err)
	}
	return collectAuctions(rows)
}

// GetAuctionsByBidder returns all auctions a user has bid on
func (r *PostgresRepo) GetAuctionsByBidder(ctx context.Context, bidderID string) ([]model.Auction, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+auctionColumns+`
		FROM auctions
		WHERE auction_id IN (SELECT auction_id FROM bids WHERE bidder_id = $1)
		ORDER BY created_at, auction_id
	`, bidderID)
	if err != nil {
		return nil, fmt.Errorf("get auctions for bidder %s: %w", bidderID, err)
	}
	auctions, err := collectAuctions(rows)
	if err != nil {
		return nil, fmt.Errorf("get auctions for bidder %s: %w", bidderID, err)
	}
	if len(auctions) == 0 {
		return nil, fmt.Errorf("get auctions for bidder %s: %w", bidderID, biddingerrors.ErrUserNoBids)
	}
	return auctions, nil
}

// CloseAuction moves an auction out of active and, when order is non-nil,
// inserts the order in the same transaction.
func (r *PostgresRepo) CloseAuction(ctx context.Context, auctionID string, expectedVersion int64, status model.AuctionStatus, order *model.Order) (model.Auction, error) {
	var closed model.Auction
	err := r.inTx(ctx, func(tx pgx.Tx) error {
		if _, err := lockAuctionAtVersion(ctx, tx, auctionID, expectedVersion); err != nil {
			return err
		}

		if order != nil {
			_, err := tx.Exec(ctx, `
				INSERT INTO orders (order_id, auction_id, seller_id, winner_id, final_price, status, created_at, updated_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			`, order.OrderID, order.AuctionID, order.SellerID, order.WinnerID, order.FinalPrice.String(),
				order.Status, order.CreatedAt, order.UpdatedAt)
			if err != nil {
				if isUniqueViolation(err) {
					return fmt.Errorf("order: %w", biddingerrors.ErrDuplicate)
				}
				return fmt.Errorf("insert order: %w", err)
			}
		}

		var err error
		closed, err = scanAuction(tx.QueryRow(ctx, `
			UPDATE auctions
			SET status = $2, version = version + 1, updated_at = $3
			WHERE auction_id = $1
			RETURNING `+auctionColumns,
			auctionID, status, time.Now().UTC()))
		return err
	})
	if err != nil {
		return model.Auction{}, fmt.Errorf("close auction %s: %w", auctionID, err)
	}
	return closed, nil
}

// RecordBid appends a bid and moves the auction's price, bid count and deadline in one transaction
func (r *PostgresRepo) RecordBid(ctx context.Context, bid model.Bid, expectedVersion int64, endsAt time.Time) (model.Auction, error) {
	var updated model.Auction
	err := r.inTx(ctx, func(tx pgx.Tx) error {
		if _, err := lockAuctionAtVersion(ctx, tx, bid.AuctionID, expectedVersion); err != nil {
			return err
		}

		_, err := tx.Exec(ctx, `
			INSERT INTO bids (bid_id, auction_id, bidder_id, amount, max_bid_amount, rejected, created_at)
			VALUES ($1, $2, $3, $4, $5, FALSE, $6)
		`, bid.BidID, bid.AuctionID, bid.BidderID, bid.Amount.String(), decimalPtrString(bid.MaxBidAmount), bid.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert bid: %w", err)
		}

		updated, err = scanAuction(tx.QueryRow(ctx, `
			UPDATE auctions
			SET current_price = $2, bid_count = bid_count + 1, ends_at = $3, version = version + 1, updated_at = $4
			WHERE auction_id = $1
			RETURNING `+auctionColumns,
			bid.AuctionID, bid.Amount.String(), endsAt, time.Now().UTC()))
		return err
	})
	if err != nil {
		return model.Auction{}, fmt.Errorf("record bid for auction %s: %w", bid.AuctionID, err)
	}
	return updated, nil
}

// GetBidsByAuction returns all bids for an auction, rejected ones included
func (r *PostgresRepo) GetBidsByAuction(ctx context.Context, auctionID string) ([]model.Bid, error) {
	if _, err := r.GetAuction(ctx, auctionID); err != nil {
		return nil, fmt.Errorf("get bids for auction %s: %w", auctionID, err)
	}

	rows, err := r.pool.Query(ctx, `
		SELECT `+bidColumns+`
		FROM bids
		WHERE auction_id = $1
		ORDER BY created_at, bid_id
	`, auctionID)
	if err != nil {
		return nil, fmt.Errorf("get bids for auction %s: %w", auctionID, err)
	}
	defer rows.Close()

	var bids []model.Bid
	for rows.Next() {
		b, err := scanBid(rows)
		if err != nil {
			return nil, fmt.Errorf("get bids for auction %s: %w", auctionID, err)
		}
		bids = append(bids, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get bids for auction %s: %w", auctionID, err)
	}
	if len(bids) == 0 {
		return nil, fmt.Errorf("get bids for auction %s: %w", auctionID, biddingerrors.ErrNoBids)
	}
	return bids, nil
}

// GetHighestBid returns the highest non-rejected bid for an auction
func (r *PostgresRepo) GetHighestBid(ctx context.Context, auctionID string) (model.Bid, error) {
	bid, err := highestBidIn(ctx, r.pool, auctionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Bid{}, fmt.Errorf("get highest bid for auction %s: %w", auctionID, biddingerrors.ErrNoBids)
		}
		return model.Bid{}, fmt.Errorf("get highest bid for auction %s: %w", auctionID, err)
	}
	return bid, nil
}

// RejectBid flags a bid as rejected and rolls the auction price back to the
// highest remaining bid, or the starting price when none is left.
func (r *PostgresRepo) RejectBid(ctx context.Context, auctionID, bidID string, expectedVersion int64) (model.Auction, error) {
	var updated model.Auction
	err := r.inTx(ctx, func(tx pgx.Tx) error {
		auction, err := lockAuctionAtVersion(ctx, tx, auctionID, expectedVersion)
		if err != nil {
			return err
		}

		var rejected bool
		err = tx.QueryRow(ctx, `SELECT rejected FROM bids WHERE bid_id = $1 AND auction_id = $2`, bidID, auctionID).Scan(&rejected)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return biddingerrors.ErrBidNotFound
			}
			return fmt.Errorf("load bid: %w", err)
		}
		if rejected {
			updated = auction
			return nil
		}

		if _, err := tx.Exec(ctx, `UPDATE bids SET rejected = TRUE WHERE bid_id = $1`, bidID); err != nil {
			return fmt.Errorf("flag bid: %w", err)
		}

		price := auction.StartingPrice
		top, err := highestBidIn(ctx, tx, auctionID)
		switch {
		case err == nil:
			price = top.Amount
		case errors.Is(err, pgx.ErrNoRows):
		default:
			return fmt.Errorf("recompute price: %w", err)
		}

		updated, err = scanAuction(tx.QueryRow(ctx, `
			UPDATE auctions
			SET current_price = $2, version = version + 1, updated_at = $3
			WHERE auction_id = $1
			RETURNING `+auctionColumns,
			auctionID, price.String(), time.Now().UTC()))
		return err
	})
	if err != nil {
		return model.Auction{}, fmt.Errorf("reject bid %s: %w", bidID, err)
	}
	return updated, nil
}

// IsBidderBlocked reports whether the seller has blocked bidderID from auctionID
func (r *PostgresRepo) IsBidderBlocked(ctx context.Context, auctionID, bidderID string) (bool, error) {
	var blocked bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM blocked_bidders WHERE auction_id = $1 AND bidder_id = $2)
	`, auctionID, bidderID).Scan(&blocked)
	if err != nil {
		return false, fmt.Errorf("check block for bidder %s: %w", bidderID, err)
	}
	return blocked, nil
}

// BlockBidder adds or replaces a block entry and bumps the auction version in
// the same transaction
func (r *PostgresRepo) BlockBidder(ctx context.Context, block model.BlockedBidder) error {
	err := r.inTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE auctions SET version = version + 1, updated_at = $2 WHERE auction_id = $1
		`, block.AuctionID, time.Now().UTC())
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return biddingerrors.ErrAuctionNotFound
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO blocked_bidders (auction_id, bidder_id, reason, created_at)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (auction_id, bidder_id) DO UPDATE SET reason = EXCLUDED.reason
		`, block.AuctionID, block.BidderID, block.Reason, block.CreatedAt)
		return err
	})
	if err != nil {
		return fmt.Errorf("block bidder on auction %s: %w", block.AuctionID, err)
	}
	return nil
}

// UnblockBidder removes a block entry and bumps the auction version; removing
// a missing entry is not an error
func (r *PostgresRepo) UnblockBidder(ctx context.Context, auctionID, bidderID string) error {
	err := r.inTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM blocked_bidders WHERE auction_id = $1 AND bidder_id = $2`, auctionID, bidderID); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `
			UPDATE auctions SET version = version + 1, updated_at = $2 WHERE auction_id = $1
		`, auctionID, time.Now().UTC())
		return err
	})
	if err != nil {
		return fmt.Errorf("unblock bidder on auction %s: %w", auctionID, err)
	}
	return nil
}

// GetOrder returns an order by id
func (r *PostgresRepo) GetOrder(ctx context.Context, orderID string) (model.Order, error) {
	order, err := scanOrder(r.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE order_id = $1`, orderID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Order{}, fmt.Errorf("get order %s: %w", orderID, biddingerrors.ErrOrderNotFound)
		}
		return model.Order{}, fmt.Errorf("get order %s: %w", orderID, err)
	}
	return order, nil
}

// GetOrderByAuction returns the order created when the auction sold
func (r *PostgresRepo) GetOrderByAuction(ctx context.Context, auctionID string) (model.Order, error) {
	order, err := scanOrder(r.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE auction_id = $1`, auctionID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Order{}, fmt.Errorf("get order for auction %s: %w", auctionID, biddingerrors.ErrOrderNotFound)
		}
		return model.Order{}, fmt.Errorf("get order for auction %s: %w", auctionID, err)
	}
	return order, nil
}

// UpdateOrder replaces the mutable order fields if its status still equals expectedStatus
func (r *PostgresRepo) UpdateOrder(ctx context.Context, o model.Order, expectedStatus model.OrderStatus) (model.Order, error) {
	updated, err := scanOrder(r.pool.QueryRow(ctx, `
		UPDATE orders
		SET status = $3, shipping_address = $4, payment_proof = $5, shipping_proof = $6,
			cancelled_by = $7, cancellation_reason = $8, updated_at = $9,
			paid_at = $10, shipped_at = $11, delivered_at = $12, completed_at = $13, cancelled_at = $14
		WHERE order_id = $1 AND status = $2
		RETURNING `+orderColumns,
		o.OrderID, expectedStatus, o.Status, o.ShippingAddress, o.PaymentProof, o.ShippingProof,
		o.CancelledBy, o.CancellationReason, o.UpdatedAt,
		o.PaidAt, o.ShippedAt, o.DeliveredAt, o.CompletedAt, o.CancelledAt))
	if err == nil {
		return updated, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return model.Order{}, fmt.Errorf("update order %s: %w", o.OrderID, err)
	}

	// nothing matched: either the order is gone or its status moved on
	if _, err := r.GetOrder(ctx, o.OrderID); err != nil {
		return model.Order{}, fmt.Errorf("update order %s: %w", o.OrderID, err)
	}
	return model.Order{}, fmt.Errorf("update order %s: %w", o.OrderID, biddingerrors.ErrVersionConflict)
}

// UpsertRating inserts or replaces the rating keyed by (order, rater) and
// recomputes the rated user's aggregate in the same transaction. The rated
// user's row is locked first so concurrent ratings of one user serialize.
func (r *PostgresRepo) UpsertRating(ctx context.Context, rating model.Rating, aggregate AggregateFunc) (model.Rating, model.User, error) {
	var (
		saved model.Rating
		user  model.User
	)
	err := r.inTx(ctx, func(tx pgx.Tx) error {
		if _, err := lockUser(ctx, tx, rating.RatedUserID); err != nil {
			return err
		}

		var previousRated string
		err := tx.QueryRow(ctx, `
			SELECT rated_user_id FROM ratings WHERE order_id = $1 AND rating_user_id = $2 FOR UPDATE
		`, rating.OrderID, rating.RatingUserID).Scan(&previousRated)
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("load previous rating: %w", err)
		}

		saved, err = scanRating(tx.QueryRow(ctx, `
			INSERT INTO ratings (rating_id, order_id, rating_user_id, rated_user_id, score, feedback, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (order_id, rating_user_id) DO UPDATE
			SET rated_user_id = EXCLUDED.rated_user_id, score = EXCLUDED.score,
				feedback = EXCLUDED.feedback, updated_at = EXCLUDED.updated_at
			RETURNING `+ratingColumns,
			rating.RatingID, rating.OrderID, rating.RatingUserID, rating.RatedUserID, rating.Score,
			rating.Feedback, rating.CreatedAt, rating.UpdatedAt))
		if err != nil {
			return fmt.Errorf("upsert rating: %w", err)
		}

		if previousRated != "" && previousRated != rating.RatedUserID {
			if _, err := lockUser(ctx, tx, previousRated); err != nil {
				return err
			}
			if _, err := recomputeUser(ctx, tx, previousRated, aggregate); err != nil {
				return err
			}
		}
		user, err = recomputeUser(ctx, tx, rating.RatedUserID, aggregate)
		return err
	})
	if err != nil {
		return model.Rating{}, model.User{}, fmt.Errorf("upsert rating: %w", err)
	}
	return saved, user, nil
}

// GetRatingsForUser returns every rating received by userID
func (r *PostgresRepo) GetRatingsForUser(ctx context.Context, userID string) ([]model.Rating, error) {
	ratings, err := ratingsFor(ctx, r.pool, userID)
	if err != nil {
		return nil, fmt.Errorf("get ratings for user %s: %w", userID, err)
	}
	return ratings, nil
}

func lockAuctionAtVersion(ctx context.Context, tx pgx.Tx, auctionID string, expectedVersion int64) (model.Auction, error) {
	auction, err := scanAuction(tx.QueryRow(ctx, `SELECT `+auctionColumns+` FROM auctions WHERE auction_id = $1 FOR UPDATE`, auctionID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Auction{}, biddingerrors.ErrAuctionNotFound
		}
		return model.Auction{}, fmt.Errorf("lock auction: %w", err)
	}
	if auction.Version != expectedVersion {
		return model.Auction{}, biddingerrors.ErrVersionConflict
	}
	return auction, nil
}

func lockUser(ctx context.Context, tx pgx.Tx, userID string) (model.User, error) {
	user, err := scanUser(tx.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE user_id = $1 FOR UPDATE`, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.User{}, fmt.Errorf("user %s: %w", userID, biddingerrors.ErrUserNotFound)
		}
		return model.User{}, fmt.Errorf("lock user %s: %w", userID, err)
	}
	return user, nil
}

func recomputeUser(ctx context.Context, tx pgx.Tx, userID string, aggregate AggregateFunc) (model.User, error) {
	ratings, err := ratingsFor(ctx, tx, userID)
	if err != nil {
		return model.User{}, err
	}
	rep := aggregate(ratings)

	user, err := scanUser(tx.QueryRow(ctx, `
		UPDATE users
		SET positive_ratings = $2, total_ratings = $3, rating_score = $4
		WHERE user_id = $1
		RETURNING `+userColumns,
		userID, rep.PositiveRatings, rep.TotalRatings, rep.RatingScore))
	if err != nil {
		return model.User{}, fmt.Errorf("recompute reputation of %s: %w", userID, err)
	}
	return user, nil
}

func ratingsFor(ctx context.Context, q querier, userID string) ([]model.Rating, error) {
	rows, err := q.Query(ctx, `SELECT `+ratingColumns+` FROM ratings WHERE rated_user_id = $1 ORDER BY created_at`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ratings []model.Rating
	for rows.Next() {
		rt, err := scanRating(rows)
		if err != nil {
			return nil, err
		}
		ratings = append(ratings, rt)
	}
	return ratings, rows.Err()
}

func highestBidIn(ctx context.Context, q querier, auctionID string) (model.Bid, error) {
	return scanBid(q.QueryRow(ctx, `
		SELECT `+bidColumns+`
		FROM bids
		WHERE auction_id = $1 AND NOT rejected
		ORDER BY amount DESC, created_at ASC
		LIMIT 1
	`, auctionID))
}

func collectAuctions(rows pgx.Rows) ([]model.Auction, error) {
	defer rows.Close()

	var auctions []model.Auction
	for rows.Next() {
		a, err := scanAuction(rows)
		if err != nil {
			return nil, err
		}
		auctions = append(auctions, a)
	}
	return auctions, rows.Err()
}

func scanUser(row scanner) (model.User, error) {
	var u model.User
	err := row.Scan(&u.UserID, &u.Username, &u.PositiveRatings, &u.TotalRatings, &u.RatingScore, &u.CreatedAt)
	return u, err
}

func scanAuction(row scanner) (model.Auction, error) {
	var (
		a                            model.Auction
		starting, current, increment string
		buyNow                       *string
	)
	err := row.Scan(&a.AuctionID, &a.SellerID, &a.Title, &a.Description,
		&starting, &current, &increment, &buyNow,
		&a.EndsAt, &a.Status, &a.BidCount, &a.AutoExtend.ThresholdMinutes, &a.AutoExtend.ExtendMinutes,
		&a.AllowUnratedBidders, &a.Version, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return model.Auction{}, err
	}

	if a.StartingPrice, err = decimal.NewFromString(starting); err != nil {
		return model.Auction{}, fmt.Errorf("parse starting price: %w", err)
	}
	if a.CurrentPrice, err = decimal.NewFromString(current); err != nil {
		return model.Auction{}, fmt.Errorf("parse current price: %w", err)
	}
	if a.BidIncrement, err = decimal.NewFromString(increment); err != nil {
		return model.Auction{}, fmt.Errorf("parse bid increment: %w", err)
	}
	if a.BuyNowPrice, err = parseDecimalPtr(buyNow); err != nil {
		return model.Auction{}, fmt.Errorf("parse buy-now price: %w", err)
	}
	a.EndsAt = a.EndsAt.UTC()
	return a, nil
}

func scanBid(row scanner) (model.Bid, error) {
	var (
		b         model.Bid
		amount    string
		maxAmount *string
	)
	if err := row.Scan(&b.BidID, &b.AuctionID, &b.BidderID, &amount, &maxAmount, &b.Rejected, &b.CreatedAt); err != nil {
		return model.Bid{}, err
	}

	var err error
	if b.Amount, err = decimal.NewFromString(amount); err != nil {
		return model.Bid{}, fmt.Errorf("parse bid amount: %w", err)
	}
	if b.MaxBidAmount, err = parseDecimalPtr(maxAmount); err != nil {
		return model.Bid{}, fmt.Errorf("parse max bid amount: %w", err)
	}
	return b, nil
}

func scanOrder(row scanner) (model.Order, error) {
	var (
		o     model.Order
		price string
	)
	err := row.Scan(&o.OrderID, &o.AuctionID, &o.SellerID, &o.WinnerID, &price, &o.Status,
		&o.ShippingAddress, &o.PaymentProof, &o.ShippingProof, &o.CancelledBy, &o.CancellationReason,
		&o.CreatedAt, &o.UpdatedAt, &o.PaidAt, &o.ShippedAt, &o.DeliveredAt, &o.CompletedAt, &o.CancelledAt)
	if err != nil {
		return model.Order{}, err
	}
	if o.FinalPrice, err = decimal.NewFromString(price); err != nil {
		return model.Order{}, fmt.Errorf("parse final price: %w", err)
	}
	return o, nil
}

func scanRating(row scanner) (model.Rating, error) {
	var rt model.Rating
	err := row.Scan(&rt.RatingID, &rt.OrderID, &rt.RatingUserID, &rt.RatedUserID, &rt.Score, &rt.Feedback, &rt.CreatedAt, &rt.UpdatedAt)
	return rt, err
}

func decimalPtrString(d *decimal.Decimal) *string {
	if d == nil {
		return nil
	}
	s := d.String()
	return &s
}

func parseDecimalPtr(s *string) (*decimal.Decimal, error) {
	if s == nil {
		return nil, nil
	}
	d, err := decimal.NewFromString(*s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
