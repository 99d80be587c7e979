package handler

import (
	"errors"
	"net/http"
	"testing"

	"auction-house/internal/biddingerrors"
	model "auction-house/internal/models"
	"auction-house/services/bidding/helpers"

	"github.com/gin-gonic/gin"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"
)

func newUserRouter(users UserServiceInterface) *gin.Engine {
	h := NewUserHandler(users)
	router := gin.New()
	router.POST("/users", h.CreateUserHandler)
	router.GET("/users/:user_id", h.GetUserHandler)
	router.GET("/users/:user_id/ratings", h.GetUserRatingsHandler)
	return router
}

// Test user handlers
func TestUserHandlers(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		method         string
		path           string
		requestBody    any
		mockSetup      func(m *MockUserServiceInterface)
		expectedStatus int
		expectedMsg    string
	}{
		{
			name:        "create_user",
			method:      http.MethodPost,
			path:        "/users",
			requestBody: helpers.CreateUserRequest{UserID: "user1", Username: "alice"},
			mockSetup: func(m *MockUserServiceInterface) {
				m.EXPECT().RegisterUser(gomock.Any(), "user1", "alice").Return(model.User{UserID: "user1", Username: "alice"}, nil)
			},
			expectedStatus: http.StatusCreated,
			expectedMsg:    "user created successfully",
		},
		{
			name:        "create_duplicate_user",
			method:      http.MethodPost,
			path:        "/users",
			requestBody: helpers.CreateUserRequest{UserID: "user1", Username: "alice"},
			mockSetup: func(m *MockUserServiceInterface) {
				m.EXPECT().RegisterUser(gomock.Any(), "user1", "alice").Return(model.User{}, biddingerrors.ErrDuplicate)
			},
			expectedStatus: http.StatusConflict,
			expectedMsg:    "resource already exists",
		},
		{
			name:           "create_user_missing_username",
			method:         http.MethodPost,
			path:           "/users",
			requestBody:    helpers.CreateUserRequest{UserID: "user1"},
			mockSetup:      func(m *MockUserServiceInterface) {},
			expectedStatus: http.StatusBadRequest,
			expectedMsg:    "invalid request payload",
		},
		{
			name:   "get_user",
			method: http.MethodGet,
			path:   "/users/user1",
			mockSetup: func(m *MockUserServiceInterface) {
				m.EXPECT().GetUser(gomock.Any(), "user1").Return(model.User{UserID: "user1"}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedMsg:    "user retrieved successfully",
		},
		{
			name:   "get_user_not_found",
			method: http.MethodGet,
			path:   "/users/ghost",
			mockSetup: func(m *MockUserServiceInterface) {
				m.EXPECT().GetUser(gomock.Any(), "ghost").Return(model.User{}, biddingerrors.ErrUserNotFound)
			},
			expectedStatus: http.StatusNotFound,
			expectedMsg:    "user not found",
		},
		{
			name:   "get_ratings_empty",
			method: http.MethodGet,
			path:   "/users/user1/ratings",
			mockSetup: func(m *MockUserServiceInterface) {
				m.EXPECT().GetRatingsForUser(gomock.Any(), "user1").Return(nil, nil)
			},
			expectedStatus: http.StatusOK,
			expectedMsg:    "ratings retrieved successfully",
		},
		{
			name:   "get_ratings_failure",
			method: http.MethodGet,
			path:   "/users/user1/ratings",
			mockSetup: func(m *MockUserServiceInterface) {
				m.EXPECT().GetRatingsForUser(gomock.Any(), "user1").Return(nil, errors.New("db down"))
			},
			expectedStatus: http.StatusInternalServerError,
			expectedMsg:    "internal server error",
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			ctrl := gomock.NewController(t)
			users := NewMockUserServiceInterface(ctrl)
			tc.mockSetup(users)

			status, resp := doJSON(t, newUserRouter(users), tc.method, tc.path, tc.requestBody)

			require.Equal(t, tc.expectedStatus, status)
			require.Contains(t, resp["message"], tc.expectedMsg)
		})
	}
}
