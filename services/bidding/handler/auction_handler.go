package handler

import (
	"net/http"

	bidding "auction-house/internal/biddingService"
	"auction-house/internal/closer"
	model "auction-house/internal/models"
	"auction-house/services/bidding/helpers"
	"auction-house/utils"

	"github.com/gin-gonic/gin"
)

// AuctionHandler serves seller actions and auction closing
type AuctionHandler struct {
	auctions AuctionServiceInterface
	closer   AuctionCloserInterface
}

func NewAuctionHandler(auctions AuctionServiceInterface, auctionCloser AuctionCloserInterface) *AuctionHandler {
	return &AuctionHandler{auctions: auctions, closer: auctionCloser}
}

// CreateAuctionHandler handles POST /auctions
func (h *AuctionHandler) CreateAuctionHandler(c *gin.Context) {
	var req helpers.CreateAuctionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "CreateAuctionHandler", err)
		return
	}

	auction, err := h.auctions.CreateAuction(c.Request.Context(), bidding.CreateAuctionParams{
		SellerID:      req.SellerID,
		Title:         req.Title,
		Description:   req.Description,
		StartingPrice: req.StartingPrice,
		BidIncrement:  req.BidIncrement,
		BuyNowPrice:   req.BuyNowPrice,
		EndsAt:        req.EndsAt,
		AutoExtend: model.AutoExtendPolicy{
			ThresholdMinutes: req.AutoExtendThresholdMinutes,
			ExtendMinutes:    req.AutoExtendMinutes,
		},
		AllowUnratedBidders: req.AllowUnratedBidders,
	})
	if err != nil {
		helpers.HandleServiceError(c, "CreateAuctionHandler", err, map[string]any{"seller_id": req.SellerID})
		return
	}

	utils.JSONResponse(c, http.StatusCreated, auction, "auction created successfully")
	helpers.LogSuccess("CreateAuctionHandler", "auction created successfully", map[string]any{
		"auction_id": auction.AuctionID,
		"seller_id":  auction.SellerID,
	})
}

// GetAuctionHandler handles GET /auctions/:auction_id
func (h *AuctionHandler) GetAuctionHandler(c *gin.Context) {
	auctionID := c.Param("auction_id")
	auction, err := h.auctions.GetAuction(c.Request.Context(), auctionID)
	if err != nil {
		helpers.HandleServiceError(c, "GetAuctionHandler", err, map[string]any{"auction_id": auctionID})
		return
	}

	utils.JSONResponse(c, http.StatusOK, auction, "auction retrieved successfully")
}

// CancelAuctionHandler handles POST /auctions/:auction_id/cancel
func (h *AuctionHandler) CancelAuctionHandler(c *gin.Context) {
	auctionID := c.Param("auction_id")
	var req helpers.SellerActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "CancelAuctionHandler", err)
		return
	}

	auction, err := h.auctions.CancelAuction(c.Request.Context(), auctionID, req.SellerID)
	if err != nil {
		helpers.HandleServiceError(c, "CancelAuctionHandler", err, map[string]any{
			"auction_id": auctionID,
			"seller_id":  req.SellerID,
		})
		return
	}

	utils.JSONResponse(c, http.StatusOK, auction, "auction cancelled successfully")
	helpers.LogSuccess("CancelAuctionHandler", "auction cancelled successfully", map[string]any{"auction_id": auctionID})
}

// RejectBidHandler handles POST /auctions/:auction_id/bids/:bid_id/reject
func (h *AuctionHandler) RejectBidHandler(c *gin.Context) {
	auctionID, bidID := c.Param("auction_id"), c.Param("bid_id")
	var req helpers.SellerActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "RejectBidHandler", err)
		return
	}

	auction, err := h.auctions.RejectBid(c.Request.Context(), auctionID, bidID, req.SellerID)
	if err != nil {
		helpers.HandleServiceError(c, "RejectBidHandler", err, map[string]any{
			"auction_id": auctionID,
			"bid_id":     bidID,
		})
		return
	}

	utils.JSONResponse(c, http.StatusOK, auction, "bid rejected successfully")
	helpers.LogSuccess("RejectBidHandler", "bid rejected successfully", map[string]any{
		"auction_id":    auctionID,
		"bid_id":        bidID,
		"current_price": auction.CurrentPrice.String(),
	})
}

// BlockBidderHandler handles POST /auctions/:auction_id/blocks
func (h *AuctionHandler) BlockBidderHandler(c *gin.Context) {
	auctionID := c.Param("auction_id")
	var req helpers.BlockBidderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "BlockBidderHandler", err)
		return
	}

	if err := h.auctions.BlockBidder(c.Request.Context(), auctionID, req.SellerID, req.BidderID, req.Reason); err != nil {
		helpers.HandleServiceError(c, "BlockBidderHandler", err, map[string]any{
			"auction_id": auctionID,
			"bidder_id":  req.BidderID,
		})
		return
	}

	utils.JSONResponse(c, http.StatusCreated, gin.H{"auction_id": auctionID, "bidder_id": req.BidderID}, "bidder blocked successfully")
	helpers.LogSuccess("BlockBidderHandler", "bidder blocked successfully", map[string]any{
		"auction_id": auctionID,
		"bidder_id":  req.BidderID,
	})
}

// UnblockBidderHandler handles DELETE /auctions/:auction_id/blocks/:bidder_id?seller_id=
func (h *AuctionHandler) UnblockBidderHandler(c *gin.Context) {
	auctionID, bidderID := c.Param("auction_id"), c.Param("bidder_id")
	sellerID := c.Query("seller_id")

	if err := h.auctions.UnblockBidder(c.Request.Context(), auctionID, sellerID, bidderID); err != nil {
		helpers.HandleServiceError(c, "UnblockBidderHandler", err, map[string]any{
			"auction_id": auctionID,
			"bidder_id":  bidderID,
		})
		return
	}

	utils.JSONResponse(c, http.StatusOK, gin.H{"auction_id": auctionID, "bidder_id": bidderID}, "bidder unblocked successfully")
}

// CloseAuctionHandler handles POST /auctions/:auction_id/close
func (h *AuctionHandler) CloseAuctionHandler(c *gin.Context) {
	auctionID := c.Param("auction_id")
	result, err := h.closer.CloseAuction(c.Request.Context(), auctionID)
	if err != nil {
		helpers.HandleServiceError(c, "CloseAuctionHandler", err, map[string]any{"auction_id": auctionID})
		return
	}

	utils.JSONResponse(c, http.StatusOK, result, "auction close processed")
	helpers.LogSuccess("CloseAuctionHandler", "auction close processed", map[string]any{
		"auction_id": auctionID,
		"outcome":    string(result.Outcome),
	})
}

// CloseExpiredAuctionsHandler handles POST /auctions/close-expired
func (h *AuctionHandler) CloseExpiredAuctionsHandler(c *gin.Context) {
	results, err := h.closer.CloseExpiredAuctions(c.Request.Context())
	if err != nil {
		helpers.HandleServiceError(c, "CloseExpiredAuctionsHandler", err, nil)
		return
	}

	if results == nil {
		results = []closer.ClosureResult{}
	}

	utils.JSONResponse(c, http.StatusOK, results, "expired auctions processed")
	helpers.LogSuccess("CloseExpiredAuctionsHandler", "expired auctions processed", map[string]any{"count": len(results)})
}
