package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"auction-house/internal/auctionclock"
	bidding "auction-house/internal/biddingService"
	"auction-house/internal/biddingerrors"
	"auction-house/internal/closer"
	"auction-house/internal/config"
	"auction-house/internal/db"
	"auction-house/internal/eligibility"
	model "auction-house/internal/models"
	"auction-house/internal/notify"
	"auction-house/internal/orders"
	"auction-house/internal/reputation"
	"auction-house/internal/repository"
	"auction-house/internal/server"
	"auction-house/utils"

	"github.com/shopspring/decimal"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg := config.NewConfig()
	utils.SetLogLevel(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo, closeRepo, err := openRepository(ctx, cfg)
	if err != nil {
		utils.Fatal("failed to open repository", map[string]any{"error": err.Error()})
	}
	defer closeRepo()

	publisher, closePublisher := openPublisher(cfg)
	defer closePublisher()

	// Workers drain the queue on Close rather than stopping on the signal
	dispatcher := notify.NewDispatcher(publisher, cfg.NotifyBuffer, cfg.NotifyWorkers)
	dispatcher.Start(context.Background())
	defer dispatcher.Close()

	clock := auctionclock.SystemClock{}
	biddingSvc := bidding.NewBiddingService(repo,
		bidding.WithClock(clock),
		bidding.WithNotifier(dispatcher),
		bidding.WithGuard(eligibility.NewGuard(cfg.MinRatingPercent)),
		bidding.WithMaxAttempts(cfg.BidMaxAttempts),
		bidding.WithTimeout(cfg.BidTimeout),
	)
	aggregator := reputation.NewAggregator(repo, clock)
	orderSvc := orders.NewOrderService(repo, clock, aggregator, cfg.BidMaxAttempts)
	auctionCloser := closer.NewAuctionCloser(repo, clock, dispatcher, closer.Options{
		BatchSize:   cfg.SweepBatchSize,
		Concurrency: cfg.CloseConcurrency,
		MaxAttempts: cfg.BidMaxAttempts,
	})

	if _, inMemory := repo.(*repository.MemoryRepo); inMemory && cfg.SeedDemoData {
		seedDemoData(ctx, aggregator, biddingSvc)
	}

	sweeperDone := make(chan struct{})
	go func() {
		defer close(sweeperDone)
		closer.NewSweeper(auctionCloser, cfg.SweepInterval).Start(ctx)
	}()

	router := server.SetupRouter(server.Services{
		Bidding:  biddingSvc,
		Auctions: biddingSvc,
		Closer:   auctionCloser,
		Orders:   orderSvc,
		Users:    aggregator,
	})

	srv := &http.Server{
		Addr:              cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		utils.Info("starting auction server", map[string]any{"addr": cfg.Port})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			utils.Error("server stopped unexpectedly", map[string]any{"error": err.Error()})
			stop()
		}
	}()

	<-ctx.Done()
	utils.Info("shutting down", nil)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		utils.Error("graceful shutdown failed", map[string]any{"error": err.Error()})
	}
	<-sweeperDone

	utils.Info("server stopped", map[string]any{
		"notifications_dropped": dispatcher.Dropped(),
		"notifications_failed":  dispatcher.Failed(),
	})
}

// openRepository selects Postgres when DATABASE_URL is set and the in-memory ledger otherwise
func openRepository(ctx context.Context, cfg *config.Config) (repository.AuctionDB, func(), error) {
	if cfg.DatabaseURL == "" {
		utils.Info("using in-memory repository", nil)
		return repository.NewMemoryRepo(), func() {}, nil
	}

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	if err := db.Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, err
	}
	utils.Info("using postgres repository", nil)
	return repository.NewPostgresRepo(pool), pool.Close, nil
}

// openPublisher prefers RabbitMQ and falls back to logging events when no broker is configured or reachable
func openPublisher(cfg *config.Config) (notify.Publisher, func()) {
	if cfg.RabbitMQURL == "" {
		return notify.LogPublisher{}, func() {}
	}

	publisher, err := notify.NewRabbitMQPublisher(cfg.RabbitMQURL, cfg.RabbitMQQueue)
	if err != nil {
		utils.Warn("RabbitMQ unavailable, logging notifications instead", map[string]any{"error": err.Error()})
		return notify.LogPublisher{}, func() {}
	}
	return publisher, publisher.Close
}

// seedDemoData adds a seller, two bidders and one running auction
func seedDemoData(ctx context.Context, users *reputation.Aggregator, auctions *bidding.BiddingService) {
	demoUsers := []model.User{
		{UserID: "seller-1", Username: "alice"},
		{UserID: "bidder-1", Username: "bob"},
		{UserID: "bidder-2", Username: "carol"},
	}
	for _, u := range demoUsers {
		if _, err := users.RegisterUser(ctx, u.UserID, u.Username); err != nil && !errors.Is(err, biddingerrors.ErrDuplicate) {
			utils.Warn("failed to seed user", map[string]any{"user_id": u.UserID, "error": err.Error()})
		}
	}

	auction, err := auctions.CreateAuction(ctx, bidding.CreateAuctionParams{
		SellerID:            "seller-1",
		Title:               "Vintage film camera",
		Description:         "Fully working, lightly used",
		StartingPrice:       decimal.NewFromInt(100000),
		BidIncrement:        decimal.NewFromInt(5000),
		EndsAt:              time.Now().Add(time.Hour),
		AutoExtend:          model.AutoExtendPolicy{ThresholdMinutes: 5, ExtendMinutes: 10},
		AllowUnratedBidders: true,
	})
	if err != nil {
		utils.Warn("failed to seed auction", map[string]any{"error": err.Error()})
		return
	}
	utils.Info("demo data seeded", map[string]any{"auction_id": auction.AuctionID, "users": len(demoUsers)})
}
