package perftests

import (
	"context"
	"fmt"
	"math/rand"
	"sync/atomic"
	"testing"
	"time"

	bidding "auction-house/internal/biddingService"
	model "auction-house/internal/models"
	"auction-house/internal/repository"

	"github.com/shopspring/decimal"
)

const (
	startingPrice = 100
	increment     = 1
)

// newBenchService returns a service over a fresh ledger with numUsers registered bidders and one seller
func newBenchService(tb testing.TB, numUsers int) (*repository.MemoryRepo, *bidding.BiddingService) {
	tb.Helper()
	ctx := context.Background()
	repo := repository.NewMemoryRepo()

	users := append([]string{"seller"}, userIDs(numUsers)...)
	for _, id := range users {
		if err := repo.CreateUser(ctx, model.User{UserID: id, Username: id}); err != nil {
			tb.Fatalf("failed to create user %s: %v", id, err)
		}
	}
	return repo, bidding.NewBiddingService(repo, bidding.WithMaxAttempts(20), bidding.WithTimeout(10*time.Second))
}

func userIDs(n int) []string {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("user_%d", i)
	}
	return ids
}

func createAuctions(tb testing.TB, svc *bidding.BiddingService, n int) []string {
	tb.Helper()
	ids := make([]string, n)
	for i := range ids {
		a, err := svc.CreateAuction(context.Background(), bidding.CreateAuctionParams{
			SellerID:            "seller",
			Title:               fmt.Sprintf("Benchmark auction %d", i),
			StartingPrice:       decimal.NewFromInt(startingPrice),
			BidIncrement:        decimal.NewFromInt(increment),
			EndsAt:              time.Now().Add(time.Hour),
			AllowUnratedBidders: true,
		})
		if err != nil {
			tb.Fatalf("failed to create auction: %v", err)
		}
		ids[i] = a.AuctionID
	}
	return ids
}

func bid(svc *bidding.BiddingService, auctionID, bidderID string, amount int64) error {
	_, err := svc.PlaceBid(context.Background(), bidding.PlaceBidParams{
		AuctionID: auctionID,
		BidderID:  bidderID,
		Amount:    decimal.NewFromInt(amount),
	})
	return err
}

// Benchmark 1: PlaceBid - Isolated Auctions (Low Contention - Micro Benchmark)
func Benchmark_PlaceBid_Isolated(b *testing.B) {
	_, svc := newBenchService(b, 1)
	auctions := createAuctions(b, svc, b.N)

	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		if err := bid(svc, auctions[i], "user_0", startingPrice+increment+int64(rand.Intn(100))); err != nil {
			b.Fatalf("failed to place bid: %v", err)
		}
	}
}

// Benchmark 2: PlaceBid - Shared Auction (High Contention - Concurrency Benchmark)
func Benchmark_PlaceBid_ConcurrentSharedAuction(b *testing.B) {
	_, svc := newBenchService(b, 64)
	auctionID := createAuctions(b, svc, 1)[0]

	b.ReportAllocs()
	b.ResetTimer()

	var lastBid int64 = startingPrice

	b.RunParallel(func(pb *testing.PB) {
		rnd := rand.New(rand.NewSource(time.Now().UnixNano()))
		for pb.Next() {
			userID := fmt.Sprintf("user_%d", rnd.Intn(64))
			nextBid := atomic.AddInt64(&lastBid, int64(rnd.Intn(5)+increment))
			_ = bid(svc, auctionID, userID, nextBid)
		}
	})
}

// Benchmark 3: GetHighestBid - Single-Threaded (Low Contention)
func Benchmark_GetHighestBid_SingleThreaded(b *testing.B) {
	_, svc := newBenchService(b, 10)
	auctions := createAuctions(b, svc, b.N)

	for _, auctionID := range auctions {
		for j := 0; j < 10; j++ {
			_ = bid(svc, auctionID, fmt.Sprintf("user_%d", j), int64(startingPrice+(j+1)*10))
		}
	}

	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		if _, err := svc.GetHighestBid(context.Background(), auctions[i]); err != nil {
			b.Fatalf("failed to get highest bid: %v", err)
		}
	}
}

// Benchmark 4: GetHighestBid - Concurrent (High Contention)
func Benchmark_GetHighestBid_ConcurrentSharedAuction(b *testing.B) {
	_, svc := newBenchService(b, 100)
	auctionID := createAuctions(b, svc, 1)[0]

	for j := 0; j < 100; j++ {
		_ = bid(svc, auctionID, fmt.Sprintf("user_%d", j), int64(startingPrice+j+1))
	}

	b.ReportAllocs()
	b.ResetTimer()

	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			if _, err := svc.GetHighestBid(context.Background(), auctionID); err != nil {
				b.Errorf("failed to get highest bid: %v", err)
				return
			}
		}
	})
}

// Benchmark 5: Mixed Workload (Readers + Writers concurrently)
func Benchmark_MixedWorkload_SharedAuction(b *testing.B) {
	_, svc := newBenchService(b, 50)
	auctionID := createAuctions(b, svc, 1)[0]

	for j := 0; j < 50; j++ {
		_ = bid(svc, auctionID, fmt.Sprintf("user_%d", j), int64(startingPrice+(j+1)*2))
	}

	b.ReportAllocs()
	b.ResetTimer()

	var lastBid int64 = startingPrice + 100

	// Ratio: 70% readers, 30% writers
	b.RunParallel(func(pb *testing.PB) {
		rnd := rand.New(rand.NewSource(time.Now().UnixNano()))
		for pb.Next() {
			if rnd.Intn(10) < 3 {
				nextBid := atomic.AddInt64(&lastBid, int64(rnd.Intn(5)+increment))
				_ = bid(svc, auctionID, fmt.Sprintf("user_%d", rnd.Intn(50)), nextBid)
				continue
			}
			_, _ = svc.GetHighestBid(context.Background(), auctionID)
		}
	})
}
