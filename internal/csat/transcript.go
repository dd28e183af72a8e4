package csat

import (
	"encoding/json"
	"strings"
	"time"

	"livechat-csat-service/internal/models"
)

// rawTranscriptMessage covers the shapes the chat SDK emits for one
// transcript entry. Different SDK versions put the sender in different
// places, so several optional fields are carried and tried in order.
type rawTranscriptMessage struct {
	Content          string `json:"content"`
	Created          string `json:"created"`
	Tags             any    `json:"tags"`
	MessageType      string `json:"messageType"`
	Type             string `json:"type"`
	Sender           string `json:"sender"`
	Role             string `json:"role"`
	DisplayName      string `json:"displayName"`
	IsControlMessage bool   `json:"isControlMessage"`
	From             struct {
		DisplayName string `json:"displayName"`
		Role        string `json:"role"`
	} `json:"from"`
}

// DecodeTranscript turns a transcript payload into normalized chat
// messages. The payload's message list may be structured, JSON text,
// or JSON text wrapped in JSON text; up to two levels of string
// decoding are attempted. Any decode failure yields an empty list,
// never an error: a missing transcript only means no CSAT.
func DecodeTranscript(payload models.TranscriptPayload) []models.ChatMessage {
	raw := decodeMessages(payload.ChatMessagesJSON)
	if len(raw) == 0 {
		raw = decodeMessages(payload.Messages)
	}

	out := make([]models.ChatMessage, 0, len(raw))
	for _, m := range raw {
		if isControlMessage(m) {
			continue
		}
		content := strings.TrimSpace(m.Content)
		if content == "" {
			continue
		}
		out = append(out, models.ChatMessage{
			Content:   content,
			Sender:    classifySender(m),
			Timestamp: parseCreated(m.Created),
		})
	}
	return out
}

func decodeMessages(v any) []rawTranscriptMessage {
	if v == nil {
		return nil
	}
	for i := 0; i < 2; i++ {
		s, ok := v.(string)
		if !ok {
			break
		}
		var next any
		if err := json.Unmarshal([]byte(s), &next); err != nil {
			return nil
		}
		v = next
	}

	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	var msgs []rawTranscriptMessage
	if err := json.Unmarshal(b, &msgs); err != nil {
		return nil
	}
	return msgs
}

func isControlMessage(m rawTranscriptMessage) bool {
	if m.IsControlMessage {
		return true
	}
	if strings.EqualFold(m.MessageType, "control") || strings.EqualFold(m.Type, "control") {
		return true
	}
	return hasTag(m.Tags, "system")
}

func hasTag(tags any, want string) bool {
	for _, t := range tagList(tags) {
		if strings.EqualFold(t, want) {
			return true
		}
	}
	return false
}

// tagList accepts the SDK's two tag encodings: a comma-separated
// string or a list of strings.
func tagList(tags any) []string {
	switch v := tags.(type) {
	case string:
		parts := strings.Split(v, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if s := strings.TrimSpace(p); s != "" {
				out = append(out, s)
			}
		}
		return out
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			if s, ok := e.(string); ok && strings.TrimSpace(s) != "" {
				out = append(out, strings.TrimSpace(s))
			}
		}
		return out
	case []string:
		return v
	}
	return nil
}

// classifySender resolves who authored a message, trying the most
// explicit signal first: tag markers, then display-name heuristics,
// then the type/sender field. Anything unresolved is attributed to
// the bot.
func classifySender(m rawTranscriptMessage) models.Sender {
	if hasTag(m.Tags, "customer") || hasTag(m.Tags, "client") {
		return models.SenderCustomer
	}
	if hasTag(m.Tags, "agent") {
		return models.SenderAgent
	}
	if hasTag(m.Tags, "bot") {
		return models.SenderBot
	}

	name := strings.ToLower(strings.TrimSpace(m.DisplayName))
	if name == "" {
		name = strings.ToLower(strings.TrimSpace(m.From.DisplayName))
	}
	if name != "" {
		if strings.Contains(name, "bot") || strings.Contains(name, "virtual") {
			return models.SenderBot
		}
		if strings.Contains(name, "agent") {
			return models.SenderAgent
		}
	}

	role := strings.ToLower(strings.TrimSpace(m.Sender))
	if role == "" {
		role = strings.ToLower(strings.TrimSpace(m.Role))
	}
	if role == "" {
		role = strings.ToLower(strings.TrimSpace(m.From.Role))
	}
	switch role {
	case "customer", "client", "user":
		return models.SenderCustomer
	case "agent":
		return models.SenderAgent
	case "bot", "assistant":
		return models.SenderBot
	}

	return models.SenderBot
}

func parseCreated(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	return time.Time{}
}

// MaxTranscriptChars bounds the text submitted to the sentiment
// provider in a single document.
const MaxTranscriptChars = 5000

// AssembleText concatenates "{sender}: {content}" lines within the
// character budget. When the transcript is over budget the newest
// messages win: older lines are dropped first, and the single newest
// message is always kept even if it alone exceeds the budget.
func AssembleText(messages []models.ChatMessage, budget int) string {
	if len(messages) == 0 {
		return ""
	}
	if budget <= 0 {
		budget = MaxTranscriptChars
	}

	lines := make([]string, 0, len(messages))
	used := 0
	for i := len(messages) - 1; i >= 0; i-- {
		line := string(messages[i].Sender) + ": " + messages[i].Content
		cost := len(line)
		if len(lines) > 0 {
			cost++ // separating newline
			if used+cost > budget {
				break
			}
		}
		lines = append(lines, line)
		used += cost
	}

	// lines were collected newest-first; restore chronological order.
	for i, j := 0, len(lines)-1; i < j; i, j = i+1, j-1 {
		lines[i], lines[j] = lines[j], lines[i]
	}
	return strings.Join(lines, "\n")
}
