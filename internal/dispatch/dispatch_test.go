package dispatch

import (
	"context"
	"testing"
)

func TestNewActionAssignsOrderedIDs(t *testing.T) {
	a := NewAction(ActionSetShowConfirmation, "c1", "true")
	b := NewAction(ActionSetConfirmationState, "c1", "Ok")

	if a.ID == "" || b.ID == "" {
		t.Fatal("actions must carry ids")
	}
	if a.ID == b.ID {
		t.Error("ids must be unique")
	}
	if a.At.IsZero() {
		t.Error("timestamp must be set")
	}
	if a.Type != ActionSetShowConfirmation || a.ConversationID != "c1" || a.Value != "true" {
		t.Errorf("action = %+v", a)
	}
}

func TestMemorySinkRetainsInOrder(t *testing.T) {
	s := NewMemorySink()
	ctx := context.Background()

	s.DispatchAction(ctx, NewAction(ActionSetShowConfirmation, "c1", "true"))
	s.DispatchAction(ctx, NewAction(ActionSetConfirmationState, "c1", "Ok"))
	s.PublishEvent(ctx, NewEvent(EventConversationEnded, "c1", nil))

	actions := s.Actions()
	if len(actions) != 2 {
		t.Fatalf("actions = %d, want 2", len(actions))
	}
	if actions[0].Type != ActionSetShowConfirmation || actions[1].Type != ActionSetConfirmationState {
		t.Errorf("order not retained: %+v", actions)
	}

	events := s.Events()
	if len(events) != 1 || events[0].Type != EventConversationEnded {
		t.Errorf("events = %+v", events)
	}

	// Accessors return copies.
	actions[0].Type = "tampered"
	if s.Actions()[0].Type == "tampered" {
		t.Error("Actions must return a copy")
	}
}
