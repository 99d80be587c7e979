package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// schema is applied statement by statement; every statement is idempotent
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		user_id          TEXT PRIMARY KEY,
		username         TEXT NOT NULL,
		positive_ratings INTEGER NOT NULL DEFAULT 0,
		total_ratings    INTEGER NOT NULL DEFAULT 0,
		rating_score     DOUBLE PRECISION,
		created_at       TIMESTAMPTZ NOT NULL,
		CHECK (positive_ratings <= total_ratings)
	)`,
	`CREATE TABLE IF NOT EXISTS auctions (
		auction_id                TEXT PRIMARY KEY,
		seller_id                 TEXT NOT NULL REFERENCES users(user_id),
		title                     TEXT NOT NULL,
		description               TEXT NOT NULL DEFAULT '',
		starting_price            NUMERIC(18,2) NOT NULL,
		current_price             NUMERIC(18,2) NOT NULL,
		bid_increment             NUMERIC(18,2) NOT NULL,
		buy_now_price             NUMERIC(18,2),
		ends_at                   TIMESTAMPTZ NOT NULL,
		status                    TEXT NOT NULL,
		bid_count                 INTEGER NOT NULL DEFAULT 0,
		auto_extend_threshold_min INTEGER NOT NULL DEFAULT 0,
		auto_extend_min           INTEGER NOT NULL DEFAULT 0,
		allow_unrated_bidders     BOOLEAN NOT NULL DEFAULT FALSE,
		version                   BIGINT NOT NULL DEFAULT 1,
		created_at                TIMESTAMPTZ NOT NULL,
		updated_at                TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS auctions_expiry_cursor_idx ON auctions (ends_at, auction_id) WHERE status = 'active'`,
	`CREATE TABLE IF NOT EXISTS bids (
		bid_id         TEXT PRIMARY KEY,
		auction_id     TEXT NOT NULL REFERENCES auctions(auction_id),
		bidder_id      TEXT NOT NULL REFERENCES users(user_id),
		amount         NUMERIC(18,2) NOT NULL,
		max_bid_amount NUMERIC(18,2),
		rejected       BOOLEAN NOT NULL DEFAULT FALSE,
		created_at     TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS bids_ranking_idx ON bids (auction_id, amount DESC, created_at ASC) WHERE NOT rejected`,
	`CREATE INDEX IF NOT EXISTS bids_bidder_idx ON bids (bidder_id)`,
	`CREATE TABLE IF NOT EXISTS blocked_bidders (
		auction_id TEXT NOT NULL REFERENCES auctions(auction_id),
		bidder_id  TEXT NOT NULL,
		reason     TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (auction_id, bidder_id)
	)`,
	`CREATE TABLE IF NOT EXISTS orders (
		order_id            TEXT PRIMARY KEY,
		auction_id          TEXT NOT NULL UNIQUE REFERENCES auctions(auction_id),
		seller_id           TEXT NOT NULL,
		winner_id           TEXT NOT NULL,
		final_price         NUMERIC(18,2) NOT NULL,
		status              TEXT NOT NULL,
		shipping_address    TEXT NOT NULL DEFAULT '',
		payment_proof       TEXT NOT NULL DEFAULT '',
		shipping_proof      TEXT NOT NULL DEFAULT '',
		cancelled_by        TEXT NOT NULL DEFAULT '',
		cancellation_reason TEXT NOT NULL DEFAULT '',
		created_at          TIMESTAMPTZ NOT NULL,
		updated_at          TIMESTAMPTZ NOT NULL,
		paid_at             TIMESTAMPTZ,
		shipped_at          TIMESTAMPTZ,
		delivered_at        TIMESTAMPTZ,
		completed_at        TIMESTAMPTZ,
		cancelled_at        TIMESTAMPTZ
	)`,
	`CREATE TABLE IF NOT EXISTS ratings (
		rating_id      TEXT PRIMARY KEY,
		order_id       TEXT NOT NULL REFERENCES orders(order_id),
		rating_user_id TEXT NOT NULL,
		rated_user_id  TEXT NOT NULL REFERENCES users(user_id),
		score          TEXT NOT NULL CHECK (score IN ('positive', 'negative')),
		feedback       TEXT NOT NULL DEFAULT '',
		created_at     TIMESTAMPTZ NOT NULL,
		updated_at     TIMESTAMPTZ NOT NULL,
		UNIQUE (order_id, rating_user_id)
	)`,
	`CREATE INDEX IF NOT EXISTS ratings_rated_idx ON ratings (rated_user_id)`,
}

// Migrate creates the ledger tables when they do not exist yet
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	for i, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema statement %d: %w", i, err)
		}
	}
	return nil
}
