package closer

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"auction-house/internal/auctionclock"
	"auction-house/internal/biddingerrors"
	model "auction-house/internal/models"
	"auction-house/internal/notify"
	"auction-house/internal/repository"

	"github.com/golang/mock/gomock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var closeTime = time.Date(2026, 7, 1, 20, 0, 0, 0, time.UTC)

type recordingNotifier struct {
	mu     sync.Mutex
	events []notify.Event
}

func (n *recordingNotifier) Notify(e notify.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, e)
}

func (n *recordingNotifier) snapshot() []notify.Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notify.Event(nil), n.events...)
}

func expiredAuction(id string) model.Auction {
	return model.Auction{
		AuctionID:     id,
		SellerID:      "seller",
		Title:         id,
		StartingPrice: decimal.NewFromInt(100),
		CurrentPrice:  decimal.NewFromInt(100),
		BidIncrement:  decimal.NewFromInt(10),
		EndsAt:        closeTime.Add(-time.Minute),
		Status:        model.AuctionActive,
		Version:       1,
	}
}

// seed stores the auction and records the given bid amounts in order
func seed(t *testing.T, repo *repository.MemoryRepo, auction model.Auction, amounts ...int64) {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, repo.CreateAuction(ctx, auction))
	for i, amount := range amounts {
		current, err := repo.GetAuction(ctx, auction.AuctionID)
		require.NoError(t, err)
		_, err = repo.RecordBid(ctx, model.Bid{
			BidID:     fmt.Sprintf("%s-bid-%d", auction.AuctionID, i),
			AuctionID: auction.AuctionID,
			BidderID:  fmt.Sprintf("bidder-%d", i),
			Amount:    decimal.NewFromInt(amount),
			CreatedAt: closeTime.Add(-time.Hour + time.Duration(i)*time.Second),
		}, current.Version, current.EndsAt)
		require.NoError(t, err)
	}
}

func newTestCloser(repo repository.AuctionDB, notifier notify.Notifier) *AuctionCloser {
	return NewAuctionCloser(repo, auctionclock.NewFixedClock(closeTime), notifier, Options{BatchSize: 2, Concurrency: 4})
}

func TestCloseAuction_Sold(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := repository.NewMemoryRepo()
	seed(t, repo, expiredAuction("a1"), 110, 150)
	notifier := &recordingNotifier{}
	closer := newTestCloser(repo, notifier)

	result, err := closer.CloseAuction(ctx, "a1")
	require.NoError(t, err)
	require.Equal(t, OutcomeSold, result.Outcome)
	require.Equal(t, model.AuctionSold, result.Status)
	require.NotNil(t, result.Order)
	require.Equal(t, "bidder-1", result.Order.WinnerID)
	require.Equal(t, "seller", result.Order.SellerID)
	require.True(t, result.Order.FinalPrice.Equal(decimal.NewFromInt(150)))
	require.Equal(t, model.OrderPendingPayment, result.Order.Status)

	stored, err := repo.GetOrderByAuction(ctx, "a1")
	require.NoError(t, err)
	require.Equal(t, result.Order.OrderID, stored.OrderID)

	events := notifier.snapshot()
	require.Len(t, events, 1)
	require.Equal(t, notify.EventAuctionWon, events[0].Kind)
	require.Equal(t, "bidder-1", events[0].RecipientID)
	require.Equal(t, stored.OrderID, events[0].OrderID)
}

func TestCloseAuction_Ended(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("no_bids", func(t *testing.T) {
		t.Parallel()
		repo := repository.NewMemoryRepo()
		seed(t, repo, expiredAuction("a1"))
		notifier := &recordingNotifier{}

		result, err := newTestCloser(repo, notifier).CloseAuction(ctx, "a1")
		require.NoError(t, err)
		require.Equal(t, OutcomeEnded, result.Outcome)
		require.Equal(t, model.AuctionEnded, result.Status)
		require.Nil(t, result.Order)

		_, err = repo.GetOrderByAuction(ctx, "a1")
		require.ErrorIs(t, err, biddingerrors.ErrOrderNotFound)

		events := notifier.snapshot()
		require.Len(t, events, 1)
		require.Equal(t, notify.EventAuctionUnsold, events[0].Kind)
		require.Equal(t, "seller", events[0].RecipientID)
	})

	t.Run("only_rejected_bids", func(t *testing.T) {
		t.Parallel()
		repo := repository.NewMemoryRepo()
		seed(t, repo, expiredAuction("a1"), 110)
		current, err := repo.GetAuction(ctx, "a1")
		require.NoError(t, err)
		_, err = repo.RejectBid(ctx, "a1", "a1-bid-0", current.Version)
		require.NoError(t, err)

		result, err := newTestCloser(repo, nil).CloseAuction(ctx, "a1")
		require.NoError(t, err)
		require.Equal(t, OutcomeEnded, result.Outcome)
	})
}

func TestCloseAuction_NotExpired(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := repository.NewMemoryRepo()
	auction := expiredAuction("a1")
	auction.EndsAt = closeTime.Add(time.Second)
	seed(t, repo, auction, 110)

	result, err := newTestCloser(repo, nil).CloseAuction(ctx, "a1")
	require.NoError(t, err)
	require.Equal(t, OutcomeNotExpired, result.Outcome)

	stored, err := repo.GetAuction(ctx, "a1")
	require.NoError(t, err)
	require.Equal(t, model.AuctionActive, stored.Status)
}

func TestCloseAuction_Idempotent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := repository.NewMemoryRepo()
	seed(t, repo, expiredAuction("a1"), 110)
	notifier := &recordingNotifier{}
	closer := newTestCloser(repo, notifier)

	first, err := closer.CloseAuction(ctx, "a1")
	require.NoError(t, err)
	second, err := closer.CloseAuction(ctx, "a1")
	require.NoError(t, err)

	require.Equal(t, OutcomeSold, first.Outcome)
	require.Equal(t, OutcomeAlreadyClosed, second.Outcome)
	require.Equal(t, model.AuctionSold, second.Status)
	require.Equal(t, first.Order.OrderID, second.Order.OrderID)
	require.Len(t, notifier.snapshot(), 1)
}

func TestCloseAuction_ConcurrentClosersCreateOneOrder(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := repository.NewMemoryRepo()
	seed(t, repo, expiredAuction("a1"), 110, 120, 130)
	notifier := &recordingNotifier{}
	closer := newTestCloser(repo, notifier)

	const workers = 20
	var wg sync.WaitGroup
	results := make([]ClosureResult, workers)
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = closer.CloseAuction(ctx, "a1")
		}(i)
	}
	wg.Wait()

	sold := 0
	orderIDs := make(map[string]bool)
	for i := range results {
		require.NoError(t, errs[i])
		if results[i].Outcome == OutcomeSold {
			sold++
		}
		require.NotNil(t, results[i].Order)
		orderIDs[results[i].Order.OrderID] = true
	}
	require.Equal(t, 1, sold)
	require.Len(t, orderIDs, 1)
	require.Len(t, notifier.snapshot(), 1)
}

func TestCloseAuction_LosesToExtension(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	mockRepo := repository.NewMockAuctionDB(ctrl)

	expired := expiredAuction("a1")
	expired.Version = 5
	extended := expired
	extended.Version = 6
	extended.EndsAt = closeTime.Add(10 * time.Minute)

	gomock.InOrder(
		mockRepo.EXPECT().GetAuction(gomock.Any(), "a1").Return(expired, nil),
		mockRepo.EXPECT().GetHighestBid(gomock.Any(), "a1").Return(model.Bid{BidderID: "b1", Amount: decimal.NewFromInt(110)}, nil),
		// a bid extended the deadline between the read and the write
		mockRepo.EXPECT().CloseAuction(gomock.Any(), "a1", int64(5), model.AuctionSold, gomock.Any()).Return(model.Auction{}, biddingerrors.ErrVersionConflict),
		mockRepo.EXPECT().GetAuction(gomock.Any(), "a1").Return(extended, nil),
	)

	notifier := &recordingNotifier{}
	result, err := newTestCloser(mockRepo, notifier).CloseAuction(context.Background(), "a1")
	require.NoError(t, err)
	require.Equal(t, OutcomeNotExpired, result.Outcome)
	require.Empty(t, notifier.snapshot())
}

func TestCloseAuction_Errors(t *testing.T) {
	t.Parallel()

	closer := newTestCloser(repository.NewMemoryRepo(), nil)

	_, err := closer.CloseAuction(context.Background(), "")
	require.ErrorIs(t, err, biddingerrors.ErrInvalidAuction)

	_, err = closer.CloseAuction(context.Background(), "missing")
	require.ErrorIs(t, err, biddingerrors.ErrAuctionNotFound)
}

func TestCloseExpiredAuctions(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := repository.NewMemoryRepo()
	seed(t, repo, expiredAuction("a1"), 110)
	seed(t, repo, expiredAuction("a2"))
	seed(t, repo, expiredAuction("a3"), 120, 130)
	seed(t, repo, expiredAuction("a4"))
	seed(t, repo, expiredAuction("a5"), 140)
	live := expiredAuction("live")
	live.EndsAt = closeTime.Add(time.Hour)
	seed(t, repo, live, 110)

	// batch size 2 forces several rounds
	results, err := newTestCloser(repo, nil).CloseExpiredAuctions(ctx)
	require.NoError(t, err)
	require.Len(t, results, 5)

	outcomes := make(map[string]Outcome)
	for _, r := range results {
		outcomes[r.AuctionID] = r.Outcome
	}
	require.Equal(t, map[string]Outcome{
		"a1": OutcomeSold,
		"a2": OutcomeEnded,
		"a3": OutcomeSold,
		"a4": OutcomeEnded,
		"a5": OutcomeSold,
	}, outcomes)

	stillLive, err := repo.GetAuction(ctx, "live")
	require.NoError(t, err)
	require.Equal(t, model.AuctionActive, stillLive.Status)

	// a second sweep finds nothing left to do
	again, err := newTestCloser(repo, nil).CloseExpiredAuctions(ctx)
	require.NoError(t, err)
	require.Empty(t, again)
}

// stuckRepo fails every close of the listed auctions
type stuckRepo struct {
	*repository.MemoryRepo
	stuck map[string]bool
}

func (r stuckRepo) CloseAuction(ctx context.Context, auctionID string, expectedVersion int64, status model.AuctionStatus, order *model.Order) (model.Auction, error) {
	if r.stuck[auctionID] {
		return model.Auction{}, fmt.Errorf("close auction %s: connection reset", auctionID)
	}
	return r.MemoryRepo.CloseAuction(ctx, auctionID, expectedVersion, status, order)
}

func TestCloseExpiredAuctions_FailuresDoNotBlockLaterAuctions(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	mem := repository.NewMemoryRepo()
	for i, id := range []string{"a1", "a2", "a3", "a4", "a5"} {
		a := expiredAuction(id)
		a.EndsAt = closeTime.Add(-time.Duration(10-i) * time.Minute)
		seed(t, mem, a)
	}
	repo := stuckRepo{MemoryRepo: mem, stuck: map[string]bool{"a1": true, "a2": true}}

	// the oldest full batch never closes
	results, err := newTestCloser(repo, nil).CloseExpiredAuctions(ctx)
	require.NoError(t, err)
	closed := make([]string, 0, len(results))
	for _, r := range results {
		closed = append(closed, r.AuctionID)
	}
	require.ElementsMatch(t, []string{"a3", "a4", "a5"}, closed)

	again, err := newTestCloser(repo, nil).CloseExpiredAuctions(ctx)
	require.NoError(t, err)
	require.Empty(t, again)

	for _, id := range []string{"a3", "a4", "a5"} {
		a, err := mem.GetAuction(ctx, id)
		require.NoError(t, err)
		require.Equal(t, model.AuctionEnded, a.Status, id)
	}
	for _, id := range []string{"a1", "a2"} {
		a, err := mem.GetAuction(ctx, id)
		require.NoError(t, err)
		require.Equal(t, model.AuctionActive, a.Status, id)
	}
}

func TestCloseExpiredAuctions_PagesWithCursor(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	repo := repository.NewMockAuctionDB(ctrl)

	first := []model.Auction{expiredAuction("a1"), expiredAuction("a2")}
	first[0].Status, first[1].Status = model.AuctionEnded, model.AuctionEnded
	gomock.InOrder(
		repo.EXPECT().ListExpiredAuctions(gomock.Any(), closeTime, repository.ExpiredCursor{}, 2).Return(first, nil),
		repo.EXPECT().ListExpiredAuctions(gomock.Any(), closeTime, repository.CursorAt(first[1]), 2).Return(nil, nil),
	)
	// already closed by someone else, so no write happens
	repo.EXPECT().GetAuction(gomock.Any(), "a1").Return(first[0], nil)
	repo.EXPECT().GetAuction(gomock.Any(), "a2").Return(first[1], nil)

	results, err := newTestCloser(repo, nil).CloseExpiredAuctions(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 2)
	for _, r := range results {
		require.Equal(t, OutcomeAlreadyClosed, r.Outcome)
	}
}

func TestSweeper_ClosesOnTick(t *testing.T) {
	t.Parallel()

	repo := repository.NewMemoryRepo()
	seed(t, repo, expiredAuction("a1"), 110)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		NewSweeper(newTestCloser(repo, nil), 10*time.Millisecond).Start(ctx)
	}()

	require.Eventually(t, func() bool {
		a, err := repo.GetAuction(context.Background(), "a1")
		return err == nil && a.Status == model.AuctionSold
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop after cancel")
	}
}
