package models

import "time"

// ConversationState is the chat SDK's session phase. The SDK reports
// more states than we enumerate, so the type stays an open string;
// unknown values must never satisfy a guard's blocking condition.
type ConversationState string

const (
	StateLoading         ConversationState = "Loading"
	StateActive          ConversationState = "Active"
	StateInActive        ConversationState = "InActive"
	StateClosed          ConversationState = "Closed"
	StatePostchat        ConversationState = "Postchat"
	StatePostchatLoading ConversationState = "PostchatLoading"
	StateError           ConversationState = "Error"
)

// ConversationEndEntity records who ended the conversation. Reset to
// EndedByNotSet when a new conversation starts.
type ConversationEndEntity string

const (
	EndedByNotSet   ConversationEndEntity = "NotSet"
	EndedByCustomer ConversationEndEntity = "Customer"
	EndedByAgent    ConversationEndEntity = "Agent"
	EndedBySystem   ConversationEndEntity = "System"
)

// ConfirmationState tracks the end-chat confirmation dialog.
type ConfirmationState string

const (
	ConfirmationNotSet ConfirmationState = "NotSet"
	ConfirmationOk     ConfirmationState = "Ok"
	ConfirmationCancel ConfirmationState = "Cancel"
)

// StateSnapshot is a read-only view of one conversation's shared app
// state, taken at guard-evaluation time. Guards never mutate it.
type StateSnapshot struct {
	ConversationState                       ConversationState
	ConversationEndedBy                     ConversationEndEntity
	StartChatFailed                         bool
	IsMinimized                             bool
	PreviousElementIDOnFocusBeforeModalOpen string
}

type Sender string

const (
	SenderCustomer Sender = "customer"
	SenderAgent    Sender = "agent"
	SenderBot      Sender = "bot"
)

// ChatMessage is one transcript entry, derived from the SDK transcript
// and used only as scoring input. Never persisted.
type ChatMessage struct {
	Content   string    `json:"content"`
	Sender    Sender    `json:"sender"`
	Timestamp time.Time `json:"timestamp"`
}

// TranscriptPayload is what the chat SDK hands back for a finished
// conversation. Either field may hold a structured list or JSON text,
// sometimes double-encoded.
type TranscriptPayload struct {
	ChatMessagesJSON any `json:"chatMessagesJson,omitempty"`
	Messages         any `json:"messages,omitempty"`
}

type SentimentLabel string

const (
	SentimentPositive SentimentLabel = "positive"
	SentimentNegative SentimentLabel = "negative"
	SentimentNeutral  SentimentLabel = "neutral"
	SentimentMixed    SentimentLabel = "mixed"
)

// CSATResult is the per-conversation satisfaction estimate, produced
// once at conversation end and not mutated afterward.
type CSATResult struct {
	CSATScore              int            `json:"csat_score"`
	Confidence             float64        `json:"confidence"`
	Sentiment              SentimentLabel `json:"sentiment"`
	SatisfactionLevel      string         `json:"satisfaction_level"`
	Reasoning              string         `json:"reasoning,omitempty"`
	SurveyResponseIncluded bool           `json:"survey_response_included,omitempty"`
}

// CopilotSurveyResponse is an explicit 1-5 rating extracted from an
// inbound widget activity. Immutable once created.
type CopilotSurveyResponse struct {
	Response       string    `json:"response"`
	Timestamp      time.Time `json:"timestamp"`
	ConversationID string    `json:"conversation_id,omitempty"`
	UserID         string    `json:"user_id,omitempty"`
	BotID          string    `json:"bot_id,omitempty"`
	Confidence     float64   `json:"confidence,omitempty"`
}

// SurveyActivity is the raw inbound protocol message checked by the
// survey recognizer before a CopilotSurveyResponse is extracted.
type SurveyActivity struct {
	Type             string `json:"type"`
	Text             string `json:"text"`
	TextFormat       string `json:"textFormat,omitempty"`
	ClientActivityID string `json:"clientActivityID,omitempty"`
	From             struct {
		ID   string `json:"id,omitempty"`
		Name string `json:"name,omitempty"`
		Role string `json:"role,omitempty"`
	} `json:"from"`
	ChannelData struct {
		BotID string `json:"botId,omitempty"`
	} `json:"channelData"`
}

type StartChatRequest struct {
	ConversationID string `json:"conversation_id,omitempty"`
	IsPersistent   bool   `json:"is_persistent,omitempty"`
}

type ConfirmationRequest struct {
	Confirmation string `json:"confirmation"`
}

type EndChatRequest struct {
	EndedBy                  string `json:"ended_by,omitempty"`
	PreviousFocusedElementID string `json:"previous_focused_element_id,omitempty"`
}

type ConversationView struct {
	ConversationID    string                `json:"conversation_id"`
	ConversationState ConversationState     `json:"conversation_state"`
	EndedBy           ConversationEndEntity `json:"ended_by"`
	IsPersistent      bool                  `json:"is_persistent"`
	ShowConfirmation  bool                  `json:"show_confirmation"`
	ConfirmationState ConfirmationState     `json:"confirmation_state"`
	CreatedAt         time.Time             `json:"created_at"`
	UpdatedAt         time.Time             `json:"updated_at"`
}

type CSATRecord struct {
	ConversationID string     `json:"conversation_id"`
	Result         CSATResult `json:"result"`
	CreatedAt      time.Time  `json:"created_at"`
}
