package reputation

import (
	"context"
	"fmt"

	"auction-house/internal/auctionclock"
	"auction-house/internal/biddingerrors"
	model "auction-house/internal/models"
	"auction-house/internal/repository"
	"auction-house/utils"
)

const maxFeedbackLength = 1000

// Aggregate derives a user's reputation from every rating that references them.
// RatingScore stays nil when there are no ratings.
func Aggregate(ratings []model.Rating) model.Reputation {
	rep := model.Reputation{TotalRatings: len(ratings)}
	for _, r := range ratings {
		if r.Score == model.RatingPositive {
			rep.PositiveRatings++
		}
	}
	if rep.TotalRatings > 0 {
		score := float64(rep.PositiveRatings) / float64(rep.TotalRatings)
		rep.RatingScore = &score
	}
	return rep
}

// Aggregator owns rating writes and keeps user reputation in step with them
type Aggregator struct {
	repo  repository.AuctionDB
	clock auctionclock.Clock
}

// NewAggregator creates a new Aggregator
func NewAggregator(repo repository.AuctionDB, clock auctionclock.Clock) *Aggregator {
	if clock == nil {
		clock = auctionclock.SystemClock{}
	}
	return &Aggregator{repo: repo, clock: clock}
}

// RatingParams is one party's rating of the other for an order
type RatingParams struct {
	OrderID  string
	RaterID  string
	RatedID  string
	Score    model.RatingScore
	Feedback string
}

// UpsertRating creates or replaces the rater's rating for the order. The
// store recomputes the rated user's aggregate in the same transaction, so a
// concurrent eligibility check never reads a stale reputation.
func (a *Aggregator) UpsertRating(ctx context.Context, params RatingParams) (model.Rating, model.User, error) {
	if err := validateRating(params); err != nil {
		return model.Rating{}, model.User{}, err
	}

	order, err := a.repo.GetOrder(ctx, params.OrderID)
	if err != nil {
		return model.Rating{}, model.User{}, fmt.Errorf("reputation: failed to load order %s: %w", params.OrderID, err)
	}
	if !order.IsParty(params.RaterID) {
		return model.Rating{}, model.User{}, fmt.Errorf("reputation: rater %s: %w", params.RaterID, biddingerrors.ErrNotOrderParty)
	}
	if order.Counterpart(params.RaterID) != params.RatedID {
		return model.Rating{}, model.User{}, fmt.Errorf("reputation: %w - rated user must be the other order party", biddingerrors.ErrInvalidRating)
	}

	now := a.clock.Now()
	rating := model.Rating{
		RatingID:     utils.GenerateID(),
		OrderID:      params.OrderID,
		RatingUserID: params.RaterID,
		RatedUserID:  params.RatedID,
		Score:        params.Score,
		Feedback:     params.Feedback,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	saved, user, err := a.repo.UpsertRating(ctx, rating, Aggregate)
	if err != nil {
		return model.Rating{}, model.User{}, fmt.Errorf("reputation: failed to upsert rating for order %s: %w", params.OrderID, err)
	}

	utils.Info("rating recorded", map[string]any{
		"order_id":         saved.OrderID,
		"rater_id":         saved.RatingUserID,
		"rated_id":         saved.RatedUserID,
		"score":            saved.Score,
		"positive_ratings": user.PositiveRatings,
		"total_ratings":    user.TotalRatings,
	})
	return saved, user, nil
}

func validateRating(params RatingParams) error {
	switch {
	case params.OrderID == "" || params.RaterID == "" || params.RatedID == "":
		return fmt.Errorf("reputation: %w - missing order, rater or rated user", biddingerrors.ErrInvalidRating)
	case params.RaterID == params.RatedID:
		return fmt.Errorf("reputation: %w - users cannot rate themselves", biddingerrors.ErrInvalidRating)
	case !params.Score.Valid():
		return fmt.Errorf("reputation: %w - unknown score %q", biddingerrors.ErrInvalidRating, params.Score)
	case len(params.Feedback) > maxFeedbackLength:
		return fmt.Errorf("reputation: %w - feedback longer than %d characters", biddingerrors.ErrInvalidRating, maxFeedbackLength)
	}
	return nil
}

// RegisterUser creates a user with an empty reputation
func (a *Aggregator) RegisterUser(ctx context.Context, userID, username string) (model.User, error) {
	if userID == "" || username == "" {
		return model.User{}, fmt.Errorf("reputation: %w - missing user ID or username", biddingerrors.ErrValidation)
	}

	user := model.User{UserID: userID, Username: username, CreatedAt: a.clock.Now()}
	if err := a.repo.CreateUser(ctx, user); err != nil {
		return model.User{}, fmt.Errorf("reputation: failed to register user %s: %w", userID, err)
	}
	return user, nil
}

// GetUser returns a user with their current reputation
func (a *Aggregator) GetUser(ctx context.Context, userID string) (model.User, error) {
	if userID == "" {
		return model.User{}, fmt.Errorf("reputation: %w - empty user ID", biddingerrors.ErrValidation)
	}

	user, err := a.repo.GetUser(ctx, userID)
	if err != nil {
		return model.User{}, fmt.Errorf("reputation: failed to get user %s: %w", userID, err)
	}
	return user, nil
}

// GetRatingsForUser returns every rating a user has received
func (a *Aggregator) GetRatingsForUser(ctx context.Context, userID string) ([]model.Rating, error) {
	if userID == "" {
		return nil, fmt.Errorf("reputation: %w - empty user ID", biddingerrors.ErrValidation)
	}

	ratings, err := a.repo.GetRatingsForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("reputation: failed to get ratings for user %s: %w", userID, err)
	}
	return ratings, nil
}
