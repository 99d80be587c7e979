package handler

import (
	"net/http"

	model "auction-house/internal/models"
	"auction-house/services/bidding/helpers"
	"auction-house/utils"

	"github.com/gin-gonic/gin"
)

type UserHandler struct {
	users UserServiceInterface
}

func NewUserHandler(users UserServiceInterface) *UserHandler {
	return &UserHandler{users: users}
}

// CreateUserHandler handles POST /users
func (h *UserHandler) CreateUserHandler(c *gin.Context) {
	var req helpers.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "CreateUserHandler", err)
		return
	}

	user, err := h.users.RegisterUser(c.Request.Context(), req.UserID, req.Username)
	if err != nil {
		helpers.HandleServiceError(c, "CreateUserHandler", err, map[string]any{"user_id": req.UserID})
		return
	}

	utils.JSONResponse(c, http.StatusCreated, user, "user created successfully")
	helpers.LogSuccess("CreateUserHandler", "user created successfully", map[string]any{"user_id": user.UserID})
}

// GetUserHandler handles GET /users/:user_id
func (h *UserHandler) GetUserHandler(c *gin.Context) {
	userID := c.Param("user_id")
	user, err := h.users.GetUser(c.Request.Context(), userID)
	if err != nil {
		helpers.HandleServiceError(c, "GetUserHandler", err, map[string]any{"user_id": userID})
		return
	}

	utils.JSONResponse(c, http.StatusOK, user, "user retrieved successfully")
}

// GetUserRatingsHandler handles GET /users/:user_id/ratings
func (h *UserHandler) GetUserRatingsHandler(c *gin.Context) {
	userID := c.Param("user_id")
	ratings, err := h.users.GetRatingsForUser(c.Request.Context(), userID)
	if err != nil {
		helpers.HandleServiceError(c, "GetUserRatingsHandler", err, map[string]any{"user_id": userID})
		return
	}

	if ratings == nil {
		ratings = []model.Rating{}
	}

	utils.JSONResponse(c, http.StatusOK, ratings, "ratings retrieved successfully")
}
