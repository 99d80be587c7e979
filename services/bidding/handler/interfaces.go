package handler

import (
	"context"

	bidding "auction-house/internal/biddingService"
	"auction-house/internal/closer"
	model "auction-house/internal/models"
	"auction-house/internal/orders"
	"auction-house/internal/reputation"
)

//go:generate mockgen -source=interfaces.go -destination=mock_services.go -package=handler

type BiddingServiceInterface interface {
	PlaceBid(ctx context.Context, params bidding.PlaceBidParams) (bidding.BidResult, error)
	GetBidsForAuction(ctx context.Context, auctionID string) ([]model.Bid, error)
	GetHighestBid(ctx context.Context, auctionID string) (model.Bid, error)
	GetAuctionsByBidder(ctx context.Context, bidderID string) ([]model.Auction, error)
}

type AuctionServiceInterface interface {
	CreateAuction(ctx context.Context, params bidding.CreateAuctionParams) (model.Auction, error)
	GetAuction(ctx context.Context, auctionID string) (model.Auction, error)
	CancelAuction(ctx context.Context, auctionID, sellerID string) (model.Auction, error)
	RejectBid(ctx context.Context, auctionID, bidID, sellerID string) (model.Auction, error)
	BlockBidder(ctx context.Context, auctionID, sellerID, bidderID, reason string) error
	UnblockBidder(ctx context.Context, auctionID, sellerID, bidderID string) error
}

type AuctionCloserInterface interface {
	CloseAuction(ctx context.Context, auctionID string) (closer.ClosureResult, error)
	CloseExpiredAuctions(ctx context.Context) ([]closer.ClosureResult, error)
}

type OrderServiceInterface interface {
	GetOrder(ctx context.Context, orderID string) (model.Order, error)
	TransitionOrder(ctx context.Context, orderID, actorID string, action orders.Action, payload orders.Payload) (model.Order, error)
}

type UserServiceInterface interface {
	RegisterUser(ctx context.Context, userID, username string) (model.User, error)
	GetUser(ctx context.Context, userID string) (model.User, error)
	GetRatingsForUser(ctx context.Context, userID string) ([]model.Rating, error)
	UpsertRating(ctx context.Context, params reputation.RatingParams) (model.Rating, model.User, error)
}
