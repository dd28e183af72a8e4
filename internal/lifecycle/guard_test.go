package lifecycle

import (
	"testing"

	"livechat-csat-service/internal/models"
)

func TestShouldPreventStartChat(t *testing.T) {
	cases := []struct {
		name         string
		state        models.StateSnapshot
		isPersistent bool
		want         bool
	}{
		{
			name:  "ended by customer blocks even when closed",
			state: models.StateSnapshot{ConversationState: models.StateClosed, ConversationEndedBy: models.EndedByCustomer},
			want:  true,
		},
		{
			name:  "ended by agent blocks while active",
			state: models.StateSnapshot{ConversationState: models.StateActive, ConversationEndedBy: models.EndedByAgent},
			want:  true,
		},
		{
			name:  "ended by system blocks",
			state: models.StateSnapshot{ConversationState: models.StateInActive, ConversationEndedBy: models.EndedBySystem},
			want:  true,
		},
		{
			name:  "postchat loading blocks",
			state: models.StateSnapshot{ConversationState: models.StatePostchatLoading, ConversationEndedBy: models.EndedByNotSet},
			want:  true,
		},
		{
			name:  "postchat blocks",
			state: models.StateSnapshot{ConversationState: models.StatePostchat, ConversationEndedBy: models.EndedByNotSet},
			want:  true,
		},
		{
			name:  "inactive blocks non-persistent session",
			state: models.StateSnapshot{ConversationState: models.StateInActive, ConversationEndedBy: models.EndedByNotSet},
			want:  true,
		},
		{
			name:         "inactive allows persistent session to resume",
			state:        models.StateSnapshot{ConversationState: models.StateInActive, ConversationEndedBy: models.EndedByNotSet},
			isPersistent: true,
			want:         false,
		},
		{
			name:  "closed with no end marker allows",
			state: models.StateSnapshot{ConversationState: models.StateClosed, ConversationEndedBy: models.EndedByNotSet},
			want:  false,
		},
		{
			name:  "active allows",
			state: models.StateSnapshot{ConversationState: models.StateActive, ConversationEndedBy: models.EndedByNotSet},
			want:  false,
		},
		{
			name:  "zero-value snapshot allows",
			state: models.StateSnapshot{},
			want:  false,
		},
		{
			name:  "unknown state allows",
			state: models.StateSnapshot{ConversationState: "WaitingForAgent", ConversationEndedBy: models.EndedByNotSet},
			want:  false,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ShouldPreventStartChat(tc.state, tc.isPersistent); got != tc.want {
				t.Errorf("ShouldPreventStartChat(%+v, %v) = %v, want %v", tc.state, tc.isPersistent, got, tc.want)
			}
		})
	}
}

func TestShouldPreventEndChat(t *testing.T) {
	cases := []struct {
		name  string
		state models.StateSnapshot
		want  bool
	}{
		{
			name:  "loading start in flight blocks",
			state: models.StateSnapshot{ConversationState: models.StateLoading},
			want:  true,
		},
		{
			name:  "loading but start already failed allows",
			state: models.StateSnapshot{ConversationState: models.StateLoading, StartChatFailed: true},
			want:  false,
		},
		{
			name:  "active allows",
			state: models.StateSnapshot{ConversationState: models.StateActive},
			want:  false,
		},
		{
			name:  "closed allows",
			state: models.StateSnapshot{ConversationState: models.StateClosed},
			want:  false,
		},
		{
			name:  "unknown state allows",
			state: models.StateSnapshot{ConversationState: "Reconnecting"},
			want:  false,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ShouldPreventEndChat(tc.state); got != tc.want {
				t.Errorf("ShouldPreventEndChat(%+v) = %v, want %v", tc.state, got, tc.want)
			}
		})
	}
}

func TestShouldDismissConfirmationPane(t *testing.T) {
	settled := []models.ConversationState{
		models.StateClosed,
		models.StatePostchatLoading,
		models.StatePostchat,
		models.StateError,
	}
	for _, st := range settled {
		snap := models.StateSnapshot{ConversationState: st}
		if !ShouldDismissConfirmationPane(snap, models.ConfirmationOk, true) {
			t.Errorf("pane should dismiss for confirmed %s", st)
		}
	}

	failedStart := models.StateSnapshot{ConversationState: models.StateLoading, StartChatFailed: true}
	if !ShouldDismissConfirmationPane(failedStart, models.ConfirmationOk, true) {
		t.Error("pane should dismiss for confirmed failed start")
	}

	inFlight := models.StateSnapshot{ConversationState: models.StateLoading}
	if ShouldDismissConfirmationPane(inFlight, models.ConfirmationOk, true) {
		t.Error("pane must stay open while start-chat is in flight")
	}

	closed := models.StateSnapshot{ConversationState: models.StateClosed}
	if ShouldDismissConfirmationPane(closed, models.ConfirmationNotSet, true) {
		t.Error("pane must stay open until the user confirms")
	}
	if ShouldDismissConfirmationPane(closed, models.ConfirmationCancel, true) {
		t.Error("pane must stay open after cancel")
	}
	if ShouldDismissConfirmationPane(closed, models.ConfirmationOk, false) {
		t.Error("hidden pane has nothing to dismiss")
	}

	active := models.StateSnapshot{ConversationState: models.StateActive}
	if ShouldDismissConfirmationPane(active, models.ConfirmationOk, true) {
		t.Error("pane must stay open while the conversation is still active")
	}
}
