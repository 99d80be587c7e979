package integrationtests

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"auction-house/internal/auctionclock"
	bidding "auction-house/internal/biddingService"
	"auction-house/internal/closer"
	"auction-house/internal/orders"
	"auction-house/internal/reputation"
	"auction-house/internal/repository"
	"auction-house/internal/server"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

var startTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// testEnv is the full HTTP stack over an in-memory ledger and a clock the test controls
type testEnv struct {
	router *gin.Engine
	clock  *auctionclock.FixedClock
	repo   *repository.MemoryRepo
}

// SetupTestEnv wires every service the way main does, minus the network and the sweeper.
func SetupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repo := repository.NewMemoryRepo()
	clock := auctionclock.NewFixedClock(startTime)

	biddingSvc := bidding.NewBiddingService(repo, bidding.WithClock(clock))
	aggregator := reputation.NewAggregator(repo, clock)
	orderSvc := orders.NewOrderService(repo, clock, aggregator, 0)
	auctionCloser := closer.NewAuctionCloser(repo, clock, nil, closer.Options{})

	router := server.SetupRouter(server.Services{
		Bidding:  biddingSvc,
		Auctions: biddingSvc,
		Closer:   auctionCloser,
		Orders:   orderSvc,
		Users:    aggregator,
	})
	return &testEnv{router: router, clock: clock, repo: repo}
}

// ExecuteRequest executes an HTTP request and returns the response recorder.
func ExecuteRequest(t *testing.T, router *gin.Engine, method, url string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, url, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// ExecuteRequestAndParse executes an HTTP request on the given router and parses the response envelope
func ExecuteRequestAndParse(t *testing.T, router *gin.Engine, method, url string, body any) (map[string]any, *httptest.ResponseRecorder) {
	t.Helper()

	var reqBody []byte
	switch v := body.(type) {
	case nil:
	case []byte:
		reqBody = v
	case string:
		reqBody = []byte(v)
	default:
		var err error
		reqBody, err = json.Marshal(v)
		require.NoError(t, err, "failed to marshal body")
	}

	w := ExecuteRequest(t, router, method, url, reqBody)

	var resp map[string]any
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), "failed to unmarshal response")
	}
	return resp, w
}

// mustData runs the request, requires the status and returns the data object
func (e *testEnv) mustData(t *testing.T, method, url string, body any, wantStatus int) map[string]any {
	t.Helper()
	resp, w := ExecuteRequestAndParse(t, e.router, method, url, body)
	require.Equal(t, wantStatus, w.Code, "unexpected status for %s %s: %s", method, url, w.Body.String())
	data, ok := resp["data"].(map[string]any)
	require.True(t, ok, "data should be an object")
	return data
}

func (e *testEnv) createUser(t *testing.T, userID string) {
	t.Helper()
	e.mustData(t, http.MethodPost, "/users", map[string]any{"user_id": userID, "username": userID + "-name"}, http.StatusCreated)
}

// createAuction lists an auction for seller ending after d; extra overrides request fields
func (e *testEnv) createAuction(t *testing.T, seller string, d time.Duration, extra map[string]any) string {
	t.Helper()
	body := map[string]any{
		"seller_id":             seller,
		"title":                 "Vintage camera",
		"starting_price":        "100000",
		"bid_increment":         "5000",
		"ends_at":               e.clock.Now().Add(d).Format(time.RFC3339),
		"allow_unrated_bidders": true,
	}
	for k, v := range extra {
		body[k] = v
	}
	data := e.mustData(t, http.MethodPost, "/auctions", body, http.StatusCreated)
	return data["auction_id"].(string)
}
