package handler

import (
	"net/http"

	model "auction-house/internal/models"
	"auction-house/internal/orders"
	"auction-house/internal/reputation"
	"auction-house/services/bidding/helpers"
	"auction-house/utils"

	"github.com/gin-gonic/gin"
)

// OrderHandler serves the post-sale workflow and ratings
type OrderHandler struct {
	orders  OrderServiceInterface
	ratings UserServiceInterface
}

func NewOrderHandler(orders OrderServiceInterface, ratings UserServiceInterface) *OrderHandler {
	return &OrderHandler{orders: orders, ratings: ratings}
}

// GetOrderHandler handles GET /orders/:order_id
func (h *OrderHandler) GetOrderHandler(c *gin.Context) {
	orderID := c.Param("order_id")
	order, err := h.orders.GetOrder(c.Request.Context(), orderID)
	if err != nil {
		helpers.HandleServiceError(c, "GetOrderHandler", err, map[string]any{"order_id": orderID})
		return
	}

	utils.JSONResponse(c, http.StatusOK, order, "order retrieved successfully")
}

// TransitionOrderHandler handles POST /orders/:order_id/transitions
func (h *OrderHandler) TransitionOrderHandler(c *gin.Context) {
	orderID := c.Param("order_id")
	var req helpers.OrderTransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "TransitionOrderHandler", err)
		return
	}

	order, err := h.orders.TransitionOrder(c.Request.Context(), orderID, req.ActorID, orders.Action(req.Action), orders.Payload{
		PaymentProof:     req.PaymentProof,
		ShippingAddress:  req.ShippingAddress,
		ShippingProof:    req.ShippingProof,
		Reason:           req.Reason,
		NegativeFeedback: req.NegativeFeedback,
	})
	if err != nil {
		helpers.HandleServiceError(c, "TransitionOrderHandler", err, map[string]any{
			"order_id": orderID,
			"actor_id": req.ActorID,
			"action":   req.Action,
		})
		return
	}

	utils.JSONResponse(c, http.StatusOK, order, "order updated successfully")
	helpers.LogSuccess("TransitionOrderHandler", "order updated successfully", map[string]any{
		"order_id": orderID,
		"action":   req.Action,
		"status":   string(order.Status),
	})
}

// RateOrderHandler handles PUT /orders/:order_id/ratings
func (h *OrderHandler) RateOrderHandler(c *gin.Context) {
	orderID := c.Param("order_id")
	var req helpers.RatingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "RateOrderHandler", err)
		return
	}

	rating, rated, err := h.ratings.UpsertRating(c.Request.Context(), reputation.RatingParams{
		OrderID:  orderID,
		RaterID:  req.RaterID,
		RatedID:  req.RatedID,
		Score:    model.RatingScore(req.Score),
		Feedback: req.Feedback,
	})
	if err != nil {
		helpers.HandleServiceError(c, "RateOrderHandler", err, map[string]any{
			"order_id": orderID,
			"rater_id": req.RaterID,
		})
		return
	}

	resp := helpers.RatingResponse{
		RatingID:        rating.RatingID,
		OrderID:         rating.OrderID,
		RaterID:         rating.RatingUserID,
		RatedID:         rating.RatedUserID,
		Score:           string(rating.Score),
		Feedback:        rating.Feedback,
		PositiveRatings: rated.PositiveRatings,
		TotalRatings:    rated.TotalRatings,
		RatingScore:     rated.RatingScore,
	}

	utils.JSONResponse(c, http.StatusOK, resp, "rating saved successfully")
	helpers.LogSuccess("RateOrderHandler", "rating saved successfully", map[string]any{
		"order_id": orderID,
		"rated_id": rating.RatedUserID,
		"score":    string(rating.Score),
	})
}
