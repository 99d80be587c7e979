package notify

import (
	"time"

	"auction-house/utils"

	"github.com/shopspring/decimal"
)

// EventKind identifies what happened to the recipient
type EventKind string

const (
	EventBidAccepted      EventKind = "bid_accepted"
	EventOutbid           EventKind = "outbid"
	EventAuctionWon       EventKind = "auction_won"
	EventAuctionUnsold    EventKind = "auction_unsold"
	EventQuestionAnswered EventKind = "question_answered"
)

// Event is an outbound notification emitted after a core transaction commits
type Event struct {
	EventID     string           `json:"event_id"`
	Kind        EventKind        `json:"kind"`
	RecipientID string           `json:"recipient_id"`
	AuctionID   string           `json:"auction_id,omitempty"`
	BidID       string           `json:"bid_id,omitempty"`
	OrderID     string           `json:"order_id,omitempty"`
	Amount      *decimal.Decimal `json:"amount,omitempty"`
	Context     map[string]any   `json:"context,omitempty"`
	OccurredAt  time.Time        `json:"occurred_at"`
}

// NewEvent stamps an event with a fresh id and the current time
func NewEvent(kind EventKind, recipientID, auctionID string) Event {
	return Event{
		EventID:     utils.GenerateID(),
		Kind:        kind,
		RecipientID: recipientID,
		AuctionID:   auctionID,
		OccurredAt:  time.Now().UTC(),
	}
}

// WithAmount attaches a monetary amount to the event
func (e Event) WithAmount(amount decimal.Decimal) Event {
	e.Amount = &amount
	return e
}

// Notifier accepts events without blocking the caller. Implementations must
// never surface delivery failures to the core.
type Notifier interface {
	Notify(event Event)
}

// NopNotifier discards every event
type NopNotifier struct{}

// Notify implements Notifier.
func (NopNotifier) Notify(Event) {}
