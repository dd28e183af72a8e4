package csat

import (
	"encoding/json"
	"strings"
	"testing"

	"livechat-csat-service/internal/models"
)

func TestDecodeTranscriptStructured(t *testing.T) {
	payload := models.TranscriptPayload{
		Messages: []any{
			map[string]any{"content": "hello, I need help", "role": "user", "created": "2026-08-01T10:00:00Z"},
			map[string]any{"content": "Sure, let me look", "displayName": "Support Agent"},
			map[string]any{"content": "   ", "role": "user"},
			map[string]any{"content": "session transferred", "isControlMessage": true},
		},
	}

	msgs := DecodeTranscript(payload)
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages after filtering, got %d", len(msgs))
	}
	if msgs[0].Sender != models.SenderCustomer {
		t.Errorf("first sender = %s, want customer", msgs[0].Sender)
	}
	if msgs[1].Sender != models.SenderAgent {
		t.Errorf("second sender = %s, want agent", msgs[1].Sender)
	}
	if msgs[0].Timestamp.IsZero() {
		t.Error("expected parsed timestamp on first message")
	}
}

func TestDecodeTranscriptDoubleEncoded(t *testing.T) {
	inner := `[{"content":"thanks!","role":"user"}]`
	outer, err := json.Marshal(inner) // adds the outer quoting layer the SDK sometimes emits
	if err != nil {
		t.Fatal(err)
	}

	payload := models.TranscriptPayload{ChatMessagesJSON: string(outer)}
	msgs := DecodeTranscript(payload)
	if len(msgs) != 1 {
		t.Fatalf("expected 1 message from double-encoded payload, got %d", len(msgs))
	}
	if msgs[0].Content != "thanks!" {
		t.Errorf("content = %q", msgs[0].Content)
	}
}

func TestDecodeTranscriptGarbage(t *testing.T) {
	cases := []models.TranscriptPayload{
		{},
		{ChatMessagesJSON: "not json at all"},
		{Messages: "{\"oops\": true"},
		{ChatMessagesJSON: 42},
	}
	for _, payload := range cases {
		if msgs := DecodeTranscript(payload); len(msgs) != 0 {
			t.Errorf("payload %+v: expected empty list, got %d messages", payload, len(msgs))
		}
	}
}

func TestClassifySenderPriority(t *testing.T) {
	cases := []struct {
		name string
		msg  rawTranscriptMessage
		want models.Sender
	}{
		{"customer tag wins over bot name", rawTranscriptMessage{Tags: "customer", DisplayName: "Helper Bot"}, models.SenderCustomer},
		{"agent tag", rawTranscriptMessage{Tags: []any{"public", "agent"}}, models.SenderAgent},
		{"virtual in name means bot", rawTranscriptMessage{DisplayName: "Virtual Assistant"}, models.SenderBot},
		{"agent in name", rawTranscriptMessage{DisplayName: "Agent Smith"}, models.SenderAgent},
		{"role user means customer", rawTranscriptMessage{Role: "user"}, models.SenderCustomer},
		{"from role agent", rawTranscriptMessage{From: struct {
			DisplayName string `json:"displayName"`
			Role        string `json:"role"`
		}{Role: "agent"}}, models.SenderAgent},
		{"nothing resolvable defaults to bot", rawTranscriptMessage{}, models.SenderBot},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := classifySender(tc.msg); got != tc.want {
				t.Errorf("classifySender = %s, want %s", got, tc.want)
			}
		})
	}
}

func TestAssembleTextWithinBudget(t *testing.T) {
	msgs := []models.ChatMessage{
		{Sender: models.SenderCustomer, Content: "hi"},
		{Sender: models.SenderAgent, Content: "hello"},
	}
	got := AssembleText(msgs, MaxTranscriptChars)
	want := "customer: hi\nagent: hello"
	if got != want {
		t.Errorf("AssembleText = %q, want %q", got, want)
	}
}

func TestAssembleTextDropsOldestFirst(t *testing.T) {
	msgs := []models.ChatMessage{
		{Sender: models.SenderCustomer, Content: strings.Repeat("a", 40)},
		{Sender: models.SenderAgent, Content: strings.Repeat("b", 40)},
		{Sender: models.SenderCustomer, Content: "bye"},
	}
	got := AssembleText(msgs, 70)
	if strings.Contains(got, "aaa") {
		t.Error("oldest message should have been dropped")
	}
	if !strings.HasSuffix(got, "customer: bye") {
		t.Errorf("newest message missing from tail: %q", got)
	}
	if !strings.Contains(got, "bbb") {
		t.Errorf("middle message should fit: %q", got)
	}
}

func TestAssembleTextKeepsOversizedNewestMessage(t *testing.T) {
	huge := strings.Repeat("x", MaxTranscriptChars+500)
	msgs := []models.ChatMessage{
		{Sender: models.SenderAgent, Content: "older"},
		{Sender: models.SenderCustomer, Content: huge},
	}
	got := AssembleText(msgs, MaxTranscriptChars)
	if !strings.Contains(got, huge) {
		t.Error("newest message must be kept whole even when it alone exceeds the budget")
	}
	if strings.Contains(got, "older") {
		t.Error("no room should remain for the older message")
	}
}
