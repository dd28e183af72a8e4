package dispatch

import (
	"context"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Action types consumed by the widget's state container.
const (
	ActionSetConfirmationState        = "SET_CONFIRMATION_STATE"
	ActionSetShowConfirmation         = "SET_SHOW_CONFIRMATION"
	ActionSetPreviousFocusedElementID = "SET_PREVIOUS_FOCUSED_ELEMENT_ID"
)

// Lifecycle event types for downstream consumers.
const (
	EventConversationStarted = "conversation_started"
	EventConversationEnded   = "conversation_ended"
	EventCSATRecorded        = "csat_recorded"
)

// Action is one guard-driven state mutation, dispatched fire-and-forget.
// IDs are ULIDs so consumers can order actions without a shared clock.
type Action struct {
	ID             string    `json:"id"`
	Type           string    `json:"type"`
	ConversationID string    `json:"conversation_id"`
	Value          string    `json:"value"`
	At             time.Time `json:"at"`
}

// Event is a conversation lifecycle notification.
type Event struct {
	ID             string    `json:"id"`
	Type           string    `json:"type"`
	ConversationID string    `json:"conversation_id"`
	Payload        any       `json:"payload,omitempty"`
	At             time.Time `json:"at"`
}

// Sink receives actions and events. Callers never observe a result;
// delivery failures are the sink's problem to log.
type Sink interface {
	DispatchAction(ctx context.Context, a Action)
	PublishEvent(ctx context.Context, e Event)
}

func NewAction(actionType, conversationID, value string) Action {
	return Action{
		ID:             ulid.Make().String(),
		Type:           actionType,
		ConversationID: conversationID,
		Value:          value,
		At:             time.Now().UTC(),
	}
}

func NewEvent(eventType, conversationID string, payload any) Event {
	return Event{
		ID:             ulid.Make().String(),
		Type:           eventType,
		ConversationID: conversationID,
		Payload:        payload,
		At:             time.Now().UTC(),
	}
}

// MemorySink retains everything dispatched. It is the default sink
// when no broker is configured, and what tests assert against.
type MemorySink struct {
	mu      sync.Mutex
	actions []Action
	events  []Event
}

func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

func (s *MemorySink) DispatchAction(ctx context.Context, a Action) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.actions = append(s.actions, a)
}

func (s *MemorySink) PublishEvent(ctx context.Context, e Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
}

func (s *MemorySink) Actions() []Action {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Action, len(s.actions))
	copy(out, s.actions)
	return out
}

func (s *MemorySink) Events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Event, len(s.events))
	copy(out, s.events)
	return out
}
