package server

import (
	handler "auction-house/services/bidding/handler"

	"github.com/gin-gonic/gin"
)

// Services bundles what the HTTP layer calls into
type Services struct {
	Bidding  handler.BiddingServiceInterface
	Auctions handler.AuctionServiceInterface
	Closer   handler.AuctionCloserInterface
	Orders   handler.OrderServiceInterface
	Users    handler.UserServiceInterface
}

// SetupRouter configures all Gin routes for the application
func SetupRouter(svc Services) *gin.Engine {
	router := gin.New() // New router without default middleware for full control over middleware and logging

	router.Use(gin.Recovery())          // recover from panics
	router.Use(RequestLoggerMiddleware) // custom request logging

	biddingHandler := handler.NewBiddingHandler(svc.Bidding)
	auctionHandler := handler.NewAuctionHandler(svc.Auctions, svc.Closer)
	orderHandler := handler.NewOrderHandler(svc.Orders, svc.Users)
	userHandler := handler.NewUserHandler(svc.Users)

	bids := router.Group("/bids")
	{
		bids.POST("", biddingHandler.RecordBidHandler)
	}

	auctions := router.Group("/auctions")
	{
		auctions.POST("", auctionHandler.CreateAuctionHandler)
		auctions.POST("/close-expired", auctionHandler.CloseExpiredAuctionsHandler)
		auctions.GET("/:auction_id", auctionHandler.GetAuctionHandler)
		auctions.POST("/:auction_id/cancel", auctionHandler.CancelAuctionHandler)
		auctions.POST("/:auction_id/close", auctionHandler.CloseAuctionHandler)
		auctions.GET("/:auction_id/bids", biddingHandler.GetBidsByAuctionHandler)
		auctions.GET("/:auction_id/highest", biddingHandler.GetHighestBidHandler)
		auctions.POST("/:auction_id/bids/:bid_id/reject", auctionHandler.RejectBidHandler)
		auctions.POST("/:auction_id/blocks", auctionHandler.BlockBidderHandler)
		auctions.DELETE("/:auction_id/blocks/:bidder_id", auctionHandler.UnblockBidderHandler)
	}

	orders := router.Group("/orders")
	{
		orders.GET("/:order_id", orderHandler.GetOrderHandler)
		orders.POST("/:order_id/transitions", orderHandler.TransitionOrderHandler)
		orders.PUT("/:order_id/ratings", orderHandler.RateOrderHandler)
	}

	users := router.Group("/users")
	{
		users.POST("", userHandler.CreateUserHandler)
		users.GET("/:user_id", userHandler.GetUserHandler)
		users.GET("/:user_id/auctions", biddingHandler.GetAuctionsByBidderHandler)
		users.GET("/:user_id/ratings", userHandler.GetUserRatingsHandler)
	}

	return router
}
