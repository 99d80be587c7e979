package integrationtests

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	model "auction-house/internal/models"
	"auction-house/services/bidding/helpers"

	"github.com/stretchr/testify/require"
)

func placeBid(auctionID, bidderID, amount string) map[string]any {
	return map[string]any{"auction_id": auctionID, "bidder_id": bidderID, "amount": amount}
}

// RecordBidHandler Tests
func TestRecordBidHandler(t *testing.T) {
	tests := []struct {
		name        string
		bidder      string
		request     func(auctionID string) any
		wantStatus  int
		wantMessage string
		validate    func(t *testing.T, resp map[string]any)
	}{
		{
			name:       "Valid_Bid",
			bidder:     "bidder1",
			request:    func(id string) any { return placeBid(id, "bidder1", "105000") },
			wantStatus: http.StatusCreated,
			validate: func(t *testing.T, resp map[string]any) {
				data := resp["data"].(map[string]any)
				bid := data["bid"].(map[string]any)
				require.Equal(t, "105000", bid["amount"])
				require.Equal(t, "bidder1", bid["bidder_id"])
				require.Equal(t, "110000", data["min_next_bid"])
				_, err := time.Parse(time.RFC3339Nano, bid["created_at"].(string))
				require.NoError(t, err)
			},
		},
		{
			name:        "Below_Minimum_Increment",
			bidder:      "bidder1",
			request:     func(id string) any { return placeBid(id, "bidder1", "104000") },
			wantStatus:  http.StatusBadRequest,
			wantMessage: "bid amount too low",
			validate: func(t *testing.T, resp map[string]any) {
				require.Equal(t, "105000", resp["details"].(map[string]any)["min_required"])
			},
		},
		{
			name:        "Seller_Self_Bid",
			request:     func(id string) any { return placeBid(id, "seller1", "105000") },
			wantStatus:  http.StatusForbidden,
			wantMessage: "sellers cannot bid on their own auction",
		},
		{
			name:        "Unknown_Bidder",
			request:     func(id string) any { return placeBid(id, "ghost", "105000") },
			wantStatus:  http.StatusNotFound,
			wantMessage: "user not found",
		},
		{
			name:        "Unknown_Auction",
			bidder:      "bidder1",
			request:     func(string) any { return placeBid("missing", "bidder1", "105000") },
			wantStatus:  http.StatusNotFound,
			wantMessage: "auction not found",
		},
		{
			name:        "Invalid_JSON",
			request:     func(string) any { return "{auction_id: 'missing quotes', amount: 100}" },
			wantStatus:  http.StatusBadRequest,
			wantMessage: "invalid request payload",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := SetupTestEnv(t)
			env.createUser(t, "seller1")
			if tt.bidder != "" {
				env.createUser(t, tt.bidder)
			}
			auctionID := env.createAuction(t, "seller1", time.Hour, nil)

			resp, w := ExecuteRequestAndParse(t, env.router, http.MethodPost, "/bids", tt.request(auctionID))
			require.Equal(t, tt.wantStatus, w.Code, w.Body.String())
			if tt.wantMessage != "" {
				require.Equal(t, tt.wantMessage, resp["message"])
			}
			if tt.validate != nil {
				tt.validate(t, resp)
			}
		})
	}
}

// Eligibility Tests
func TestBidEligibility(t *testing.T) {
	env := SetupTestEnv(t)
	ctx := context.Background()

	env.createUser(t, "seller1")
	env.createUser(t, "newcomer")
	require.NoError(t, env.repo.CreateUser(ctx, model.User{UserID: "shaky", Username: "shaky", PositiveRatings: 3, TotalRatings: 5}))
	require.NoError(t, env.repo.CreateUser(ctx, model.User{UserID: "trusted", Username: "trusted", PositiveRatings: 4, TotalRatings: 5}))

	strict := env.createAuction(t, "seller1", time.Hour, map[string]any{"allow_unrated_bidders": false})

	resp, w := ExecuteRequestAndParse(t, env.router, http.MethodPost, "/bids", placeBid(strict, "shaky", "105000"))
	require.Equal(t, http.StatusForbidden, w.Code)
	details := resp["details"].(map[string]any)
	require.Equal(t, float64(60), details["percent"])
	require.Equal(t, float64(80), details["threshold_percent"])

	_, w = ExecuteRequestAndParse(t, env.router, http.MethodPost, "/bids", placeBid(strict, "newcomer", "105000"))
	require.Equal(t, http.StatusForbidden, w.Code)

	_, w = ExecuteRequestAndParse(t, env.router, http.MethodPost, "/bids", placeBid(strict, "trusted", "105000"))
	require.Equal(t, http.StatusCreated, w.Code)

	// a block only applies to the auction it was placed on
	env.mustData(t, http.MethodPost, "/auctions/"+strict+"/blocks",
		helpers.BlockBidderRequest{SellerID: "seller1", BidderID: "trusted", Reason: "unpaid before"}, http.StatusCreated)
	resp, w = ExecuteRequestAndParse(t, env.router, http.MethodPost, "/bids", placeBid(strict, "trusted", "120000"))
	require.Equal(t, http.StatusForbidden, w.Code)
	require.Equal(t, "bidder is blocked from this auction", resp["message"])

	env.mustData(t, http.MethodDelete, "/auctions/"+strict+"/blocks/trusted?seller_id=seller1", nil, http.StatusOK)
	_, w = ExecuteRequestAndParse(t, env.router, http.MethodPost, "/bids", placeBid(strict, "trusted", "120000"))
	require.Equal(t, http.StatusCreated, w.Code)
}

// Auto-extension Tests
func TestAutoExtendOverHTTP(t *testing.T) {
	env := SetupTestEnv(t)
	env.createUser(t, "seller1")
	env.createUser(t, "bidder1")

	auctionID := env.createAuction(t, "seller1", 10*time.Minute, map[string]any{
		"auto_extend_threshold_minutes": 5,
		"auto_extend_minutes":           10,
	})

	// outside the window: no extension
	data := env.mustData(t, http.MethodPost, "/bids", placeBid(auctionID, "bidder1", "105000"), http.StatusCreated)
	require.Equal(t, false, data["extended"])

	env.clock.Advance(7 * time.Minute)
	data = env.mustData(t, http.MethodPost, "/bids", placeBid(auctionID, "bidder1", "110000"), http.StatusCreated)
	require.Equal(t, true, data["extended"])
	require.Equal(t, startTime.Add(20*time.Minute).Format(time.RFC3339), data["ends_at"])

	// the old deadline passes and the auction is still open
	env.clock.Advance(5 * time.Minute)
	data = env.mustData(t, http.MethodPost, "/auctions/"+auctionID+"/close", nil, http.StatusOK)
	require.Equal(t, "not_expired", data["outcome"])
}

// Full sale lifecycle: bidding, closing, fulfillment and rating
func TestAuctionLifecycle(t *testing.T) {
	env := SetupTestEnv(t)
	for _, u := range []string{"seller1", "bidder1", "bidder2"} {
		env.createUser(t, u)
	}
	auctionID := env.createAuction(t, "seller1", time.Hour, nil)

	env.mustData(t, http.MethodPost, "/bids", placeBid(auctionID, "bidder1", "105000"), http.StatusCreated)
	env.mustData(t, http.MethodPost, "/bids", placeBid(auctionID, "bidder2", "110000"), http.StatusCreated)

	resp, w := ExecuteRequestAndParse(t, env.router, http.MethodGet, "/auctions/"+auctionID+"/bids", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, resp["data"].([]any), 2)

	highest := env.mustData(t, http.MethodGet, "/auctions/"+auctionID+"/highest", nil, http.StatusOK)
	require.Equal(t, "bidder2", highest["bidder_id"])

	// cancellation is refused once bids exist
	_, w = ExecuteRequestAndParse(t, env.router, http.MethodPost, "/auctions/"+auctionID+"/cancel", helpers.SellerActionRequest{SellerID: "seller1"})
	require.Equal(t, http.StatusConflict, w.Code)

	env.clock.Advance(time.Hour)

	_, w = ExecuteRequestAndParse(t, env.router, http.MethodPost, "/bids", placeBid(auctionID, "bidder1", "200000"))
	require.Equal(t, http.StatusConflict, w.Code, "bids after the deadline are refused")

	closed := env.mustData(t, http.MethodPost, "/auctions/"+auctionID+"/close", nil, http.StatusOK)
	require.Equal(t, "sold", closed["outcome"])
	order := closed["order"].(map[string]any)
	orderID := order["order_id"].(string)
	require.Equal(t, "bidder2", order["winner_id"])
	require.Equal(t, "110000", order["final_price"])
	require.Equal(t, "pending_payment", order["status"])

	again := env.mustData(t, http.MethodPost, "/auctions/"+auctionID+"/close", nil, http.StatusOK)
	require.Equal(t, "already_closed", again["outcome"])
	require.Equal(t, orderID, again["order"].(map[string]any)["order_id"])

	auction := env.mustData(t, http.MethodGet, "/auctions/"+auctionID, nil, http.StatusOK)
	require.Equal(t, "sold", auction["status"])

	transitions := []struct {
		body       helpers.OrderTransitionRequest
		wantStatus int
		wantOrder  string
	}{
		{helpers.OrderTransitionRequest{ActorID: "seller1", Action: "ship", ShippingProof: "trk-1"}, http.StatusConflict, ""},
		{helpers.OrderTransitionRequest{ActorID: "seller1", Action: "pay", PaymentProof: "txn-1"}, http.StatusForbidden, ""},
		{helpers.OrderTransitionRequest{ActorID: "bidder1", Action: "pay", PaymentProof: "txn-1"}, http.StatusForbidden, ""},
		{helpers.OrderTransitionRequest{ActorID: "bidder2", Action: "pay", PaymentProof: "txn-1", ShippingAddress: "1 Main St"}, http.StatusOK, "paid"},
		{helpers.OrderTransitionRequest{ActorID: "seller1", Action: "ship", ShippingProof: "trk-1"}, http.StatusOK, "shipped"},
		{helpers.OrderTransitionRequest{ActorID: "bidder2", Action: "confirm_delivery"}, http.StatusOK, "delivered"},
		{helpers.OrderTransitionRequest{ActorID: "seller1", Action: "complete"}, http.StatusOK, "completed"},
		{helpers.OrderTransitionRequest{ActorID: "bidder2", Action: "cancel", Reason: "too late"}, http.StatusConflict, ""},
	}
	for i, tr := range transitions {
		resp, w := ExecuteRequestAndParse(t, env.router, http.MethodPost, "/orders/"+orderID+"/transitions", tr.body)
		require.Equal(t, tr.wantStatus, w.Code, "step %d (%s by %s): %s", i, tr.body.Action, tr.body.ActorID, w.Body.String())
		if tr.wantOrder != "" {
			require.Equal(t, tr.wantOrder, resp["data"].(map[string]any)["status"])
		}
	}

	rating := env.mustData(t, http.MethodPut, "/orders/"+orderID+"/ratings",
		helpers.RatingRequest{RaterID: "bidder2", RatedID: "seller1", Score: "negative"}, http.StatusOK)
	require.Equal(t, float64(0), rating["positive_ratings"])

	// the winner changes their mind; the rating is replaced, not added
	rating = env.mustData(t, http.MethodPut, "/orders/"+orderID+"/ratings",
		helpers.RatingRequest{RaterID: "bidder2", RatedID: "seller1", Score: "positive", Feedback: "great"}, http.StatusOK)
	require.Equal(t, float64(1), rating["positive_ratings"])
	require.Equal(t, float64(1), rating["total_ratings"])

	seller := env.mustData(t, http.MethodGet, "/users/seller1", nil, http.StatusOK)
	require.Equal(t, float64(1), seller["rating_score"])

	resp, w = ExecuteRequestAndParse(t, env.router, http.MethodGet, "/users/seller1/ratings", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, resp["data"].([]any), 1)

	resp, w = ExecuteRequestAndParse(t, env.router, http.MethodGet, "/users/bidder1/auctions", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, resp["data"].([]any), 1)
}

// Seller rejection Tests
func TestRejectBidRestoresPrice(t *testing.T) {
	env := SetupTestEnv(t)
	for _, u := range []string{"seller1", "bidder1", "bidder2"} {
		env.createUser(t, u)
	}
	auctionID := env.createAuction(t, "seller1", time.Hour, nil)

	env.mustData(t, http.MethodPost, "/bids", placeBid(auctionID, "bidder1", "105000"), http.StatusCreated)
	top := env.mustData(t, http.MethodPost, "/bids", placeBid(auctionID, "bidder2", "130000"), http.StatusCreated)
	bidID := top["bid"].(map[string]any)["bid_id"].(string)

	_, w := ExecuteRequestAndParse(t, env.router, http.MethodPost, "/auctions/"+auctionID+"/bids/"+bidID+"/reject", helpers.SellerActionRequest{SellerID: "bidder1"})
	require.Equal(t, http.StatusForbidden, w.Code)

	auction := env.mustData(t, http.MethodPost, "/auctions/"+auctionID+"/bids/"+bidID+"/reject", helpers.SellerActionRequest{SellerID: "seller1"}, http.StatusOK)
	require.Equal(t, "105000", auction["current_price"])

	highest := env.mustData(t, http.MethodGet, "/auctions/"+auctionID+"/highest", nil, http.StatusOK)
	require.Equal(t, "bidder1", highest["bidder_id"])

	// the next bid is measured against the restored price
	resp, w := ExecuteRequestAndParse(t, env.router, http.MethodPost, "/bids", placeBid(auctionID, "bidder2", "109000"))
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "110000", resp["details"].(map[string]any)["min_required"])
}

// Unsold and cancelled auctions
func TestAuctionsWithoutSale(t *testing.T) {
	env := SetupTestEnv(t)
	env.createUser(t, "seller1")

	quiet := env.createAuction(t, "seller1", time.Minute, nil)
	withdrawn := env.createAuction(t, "seller1", time.Hour, nil)

	cancelled := env.mustData(t, http.MethodPost, "/auctions/"+withdrawn+"/cancel", helpers.SellerActionRequest{SellerID: "seller1"}, http.StatusOK)
	require.Equal(t, "cancelled", cancelled["status"])

	env.clock.Advance(2 * time.Minute)

	resp, w := ExecuteRequestAndParse(t, env.router, http.MethodPost, "/auctions/close-expired", nil)
	require.Equal(t, http.StatusOK, w.Code)
	results := resp["data"].([]any)
	require.Len(t, results, 1)
	require.Equal(t, quiet, results[0].(map[string]any)["auction_id"])
	require.Equal(t, "ended", results[0].(map[string]any)["outcome"])

	_, w = ExecuteRequestAndParse(t, env.router, http.MethodGet, "/auctions/"+quiet+"/highest", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}

// Concurrent bidding over HTTP: every bid is either accepted or cleanly refused
func TestConcurrentBidsOverHTTP(t *testing.T) {
	env := SetupTestEnv(t)
	env.createUser(t, "seller1")
	const bidders = 25
	for i := 0; i < bidders; i++ {
		env.createUser(t, fmt.Sprintf("bidder%d", i))
	}
	auctionID := env.createAuction(t, "seller1", time.Hour, nil)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		statuses = make(map[int]int)
	)
	for i := 0; i < bidders; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			body := fmt.Sprintf(`{"auction_id":%q,"bidder_id":"bidder%d","amount":"%d"}`, auctionID, i, 105000+i*5000)
			w := ExecuteRequest(t, env.router, http.MethodPost, "/bids", []byte(body))
			mu.Lock()
			statuses[w.Code]++
			mu.Unlock()
		}(i)
	}
	wg.Wait()

	for code := range statuses {
		require.Contains(t, []int{http.StatusCreated, http.StatusBadRequest, http.StatusConflict}, code)
	}
	require.Positive(t, statuses[http.StatusCreated])

	auction := env.mustData(t, http.MethodGet, "/auctions/"+auctionID, nil, http.StatusOK)
	require.Equal(t, float64(statuses[http.StatusCreated]), auction["bid_count"])

	highest := env.mustData(t, http.MethodGet, "/auctions/"+auctionID+"/highest", nil, http.StatusOK)
	require.Equal(t, auction["current_price"], highest["amount"])
}
