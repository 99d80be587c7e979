package orders

import (
	"context"
	"fmt"
	"time"

	"auction-house/internal/auctionclock"
	"auction-house/internal/biddingerrors"
	model "auction-house/internal/models"
	"auction-house/internal/reputation"
	"auction-house/internal/repository"
	"auction-house/internal/retry"
	"auction-house/utils"
)

// Action is a step one order party asks for
type Action string

const (
	ActionPay             Action = "pay"
	ActionShip            Action = "ship"
	ActionConfirmDelivery Action = "confirm_delivery"
	ActionComplete        Action = "complete"
	ActionCancel          Action = "cancel"
)

type role int

const (
	roleWinner role = iota
	roleSeller
	roleEither
)

type transition struct {
	from []model.OrderStatus
	to   model.OrderStatus
	by   role
}

// transitions is the whole order state graph. completed is a distinct state
// reached only through an explicit complete after delivered.
var transitions = map[Action]transition{
	ActionPay:             {from: []model.OrderStatus{model.OrderPendingPayment}, to: model.OrderPaid, by: roleWinner},
	ActionShip:            {from: []model.OrderStatus{model.OrderPaid}, to: model.OrderShipped, by: roleSeller},
	ActionConfirmDelivery: {from: []model.OrderStatus{model.OrderShipped}, to: model.OrderDelivered, by: roleWinner},
	ActionComplete:        {from: []model.OrderStatus{model.OrderDelivered}, to: model.OrderCompleted, by: roleEither},
	ActionCancel: {
		from: []model.OrderStatus{model.OrderPendingPayment, model.OrderPaid, model.OrderShipped, model.OrderDelivered},
		to:   model.OrderCancelled,
		by:   roleEither,
	},
}

func (t transition) allowsFrom(status model.OrderStatus) bool {
	for _, s := range t.from {
		if s == status {
			return true
		}
	}
	return false
}

func (t transition) allowsActor(order model.Order, actorID string) bool {
	switch t.by {
	case roleWinner:
		return actorID == order.WinnerID
	case roleSeller:
		return actorID == order.SellerID
	default:
		return order.IsParty(actorID)
	}
}

// Payload carries the data an action needs
type Payload struct {
	PaymentProof    string
	ShippingAddress string
	ShippingProof   string
	Reason          string
	// NegativeFeedback on cancel records a negative rating of the other party,
	// e.g. a seller cancelling for non-payment.
	NegativeFeedback bool
}

// RatingWriter records ratings on behalf of the order flow
type RatingWriter interface {
	UpsertRating(ctx context.Context, params reputation.RatingParams) (model.Rating, model.User, error)
}

// OrderService drives the post-sale handshake between seller and winner
type OrderService struct {
	repo        repository.AuctionDB
	clock       auctionclock.Clock
	ratings     RatingWriter
	maxAttempts int
}

// NewOrderService creates a new OrderService
func NewOrderService(repo repository.AuctionDB, clock auctionclock.Clock, ratings RatingWriter, maxAttempts int) *OrderService {
	if clock == nil {
		clock = auctionclock.SystemClock{}
	}
	return &OrderService{repo: repo, clock: clock, ratings: ratings, maxAttempts: maxAttempts}
}

// GetOrder returns an order by id
func (s *OrderService) GetOrder(ctx context.Context, orderID string) (model.Order, error) {
	if orderID == "" {
		return model.Order{}, fmt.Errorf("orders: %w - empty order ID", biddingerrors.ErrInvalidOrderAction)
	}

	order, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return model.Order{}, fmt.Errorf("orders: failed to get order %s: %w", orderID, err)
	}
	return order, nil
}

// TransitionOrder applies one action to an order as a single conditional
// status update. An action that does not follow the state graph fails with
// InvalidOrderTransitionError and leaves the order untouched.
func (s *OrderService) TransitionOrder(ctx context.Context, orderID, actorID string, action Action, payload Payload) (model.Order, error) {
	t, ok := transitions[action]
	if !ok {
		return model.Order{}, fmt.Errorf("orders: %w - unknown action %q", biddingerrors.ErrInvalidOrderAction, action)
	}
	if orderID == "" || actorID == "" {
		return model.Order{}, fmt.Errorf("orders: %w - missing order or actor ID", biddingerrors.ErrInvalidOrderAction)
	}
	if err := validatePayload(action, payload); err != nil {
		return model.Order{}, err
	}

	var updated model.Order
	err := retry.OnConflict(ctx, s.maxAttempts, func(int) error {
		order, err := s.repo.GetOrder(ctx, orderID)
		if err != nil {
			return err
		}
		if !order.IsParty(actorID) {
			return fmt.Errorf("actor %s: %w", actorID, biddingerrors.ErrNotOrderParty)
		}
		if !t.allowsFrom(order.Status) {
			return &biddingerrors.InvalidOrderTransitionError{From: string(order.Status), Action: string(action)}
		}
		if !t.allowsActor(order, actorID) {
			return fmt.Errorf("actor %s cannot %s: %w", actorID, action, biddingerrors.ErrOrderActionNotOwned)
		}

		next := apply(order, t.to, actorID, payload, s.clock.Now())
		updated, err = s.repo.UpdateOrder(ctx, next, order.Status)
		return err
	})
	if err != nil {
		return model.Order{}, fmt.Errorf("orders: failed to %s order %s: %w", action, orderID, err)
	}

	utils.Info("order transitioned", map[string]any{
		"order_id": updated.OrderID,
		"action":   action,
		"actor_id": actorID,
		"status":   updated.Status,
	})

	if action == ActionCancel && payload.NegativeFeedback {
		s.rateCounterpartNegatively(ctx, updated, actorID, payload.Reason)
	}
	return updated, nil
}

func (s *OrderService) rateCounterpartNegatively(ctx context.Context, order model.Order, actorID, reason string) {
	if s.ratings == nil {
		return
	}
	_, _, err := s.ratings.UpsertRating(ctx, reputation.RatingParams{
		OrderID:  order.OrderID,
		RaterID:  actorID,
		RatedID:  order.Counterpart(actorID),
		Score:    model.RatingNegative,
		Feedback: reason,
	})
	if err != nil {
		// the cancellation already committed; the rating can be resubmitted by the user
		utils.Error("failed to record negative rating after cancellation", map[string]any{
			"order_id": order.OrderID,
			"actor_id": actorID,
			"error":    err.Error(),
		})
	}
}

func validatePayload(action Action, payload Payload) error {
	switch action {
	case ActionPay:
		if payload.PaymentProof == "" {
			return fmt.Errorf("orders: %w - payment proof is required", biddingerrors.ErrInvalidOrderAction)
		}
	case ActionShip:
		if payload.ShippingProof == "" {
			return fmt.Errorf("orders: %w - shipping proof is required", biddingerrors.ErrInvalidOrderAction)
		}
	case ActionCancel:
		if payload.Reason == "" {
			return fmt.Errorf("orders: %w - cancellation reason is required", biddingerrors.ErrInvalidOrderAction)
		}
	}
	return nil
}

func apply(order model.Order, to model.OrderStatus, actorID string, payload Payload, now time.Time) model.Order {
	order.Status = to
	order.UpdatedAt = now

	switch to {
	case model.OrderPaid:
		order.PaymentProof = payload.PaymentProof
		if payload.ShippingAddress != "" {
			order.ShippingAddress = payload.ShippingAddress
		}
		order.PaidAt = &now
	case model.OrderShipped:
		order.ShippingProof = payload.ShippingProof
		order.ShippedAt = &now
	case model.OrderDelivered:
		order.DeliveredAt = &now
	case model.OrderCompleted:
		order.CompletedAt = &now
	case model.OrderCancelled:
		order.CancelledBy = actorID
		order.CancellationReason = payload.Reason
		order.CancelledAt = &now
	}
	return order
}
