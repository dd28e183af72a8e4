package lifecycle

import (
	"livechat-csat-service/internal/models"
)

// Guard predicates arbitrating concurrent start-chat / end-chat
// requests over a shared conversation state record. All of them are
// total, read-only functions over a snapshot value: they never mutate
// state and never fail. State values they don't recognize satisfy no
// blocking condition, so an unknown SDK state always resolves to
// "allow".

// ShouldPreventStartChat reports whether a start-chat request must be
// blocked. Starting is blocked while a prior end-by-entity marker is
// unresolved, while the post-chat survey is loading or showing, or,
// for non-persistent sessions only, while a stale inactive session
// still exists. Persistent sessions may resume from InActive.
func ShouldPreventStartChat(s models.StateSnapshot, isPersistent bool) bool {
	if s.ConversationEndedBy != "" && s.ConversationEndedBy != models.EndedByNotSet {
		return true
	}
	switch s.ConversationState {
	case models.StatePostchatLoading, models.StatePostchat:
		return true
	case models.StateInActive:
		return !isPersistent
	}
	return false
}

// ShouldPreventEndChat reports whether an end-chat request must be
// blocked. The only blocking case is a start-chat call still in
// flight: ending then would race with SDK session creation. If the
// start attempt already failed there is no session to race with, so
// ending is permitted immediately.
func ShouldPreventEndChat(s models.StateSnapshot) bool {
	return s.ConversationState == models.StateLoading && !s.StartChatFailed
}

// ShouldDismissConfirmationPane reports whether the end-chat
// confirmation pane may be closed. The pane closes only after the
// user has confirmed (Ok) and the conversation has reached a settled
// phase; while the user has not confirmed, the pane stays open no
// matter what the conversation state does.
func ShouldDismissConfirmationPane(s models.StateSnapshot, confirmation models.ConfirmationState, showConfirmationPane bool) bool {
	if !showConfirmationPane || confirmation != models.ConfirmationOk {
		return false
	}
	return isSettled(s)
}

func isSettled(s models.StateSnapshot) bool {
	switch s.ConversationState {
	case models.StateClosed, models.StatePostchatLoading, models.StatePostchat, models.StateError:
		return true
	case models.StateLoading:
		return s.StartChatFailed
	}
	return false
}
