package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"

	"livechat-csat-service/internal/models"
)

func lcDebugEnabled() bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv("GO_LOG")))
	return v == "debug" || v == "1" || v == "true"
}

func lcDebugLogf(format string, args ...any) {
	if !lcDebugEnabled() {
		return
	}
	log.Printf(format, args...)
}

// LiveChatClient wraps the hosted chat SDK's REST surface: session
// start/end plus transcript retrieval for finished conversations.
type LiveChatClient struct {
	BaseURL string
	APIKey  string
	HTTP    *http.Client
}

func (c *LiveChatClient) buildURL(path string) (string, error) {
	base := strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	if base == "" {
		return "", errors.New("livechat base url is empty")
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return base + path, nil
}

func (c *LiveChatClient) doJSON(ctx context.Context, method, path string, body any) (int, []byte, error) {
	u, err := c.buildURL(path)
	if err != nil {
		return 0, nil, err
	}

	lcDebugLogf("livechat %s %s", method, u)

	var rbody io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		rbody = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, rbody)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("X-API-Key", c.APIKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	hc := c.HTTP
	if hc == nil {
		hc = http.DefaultClient
	}
	resp, err := hc.Do(req)
	if err != nil {
		lcDebugLogf("livechat %s %s -> err=%v", method, u, err)
		return 0, nil, err
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	lcDebugLogf("livechat %s %s -> status=%d bytes=%d", method, u, resp.StatusCode, len(b))
	return resp.StatusCode, b, nil
}

// StartSession opens an SDK chat session for the conversation.
func (c *LiveChatClient) StartSession(ctx context.Context, conversationID string) error {
	status, body, err := c.doJSON(ctx, http.MethodPost, "/livechat/sessions", map[string]string{"conversation_id": conversationID})
	if err != nil {
		return err
	}
	if status < 200 || status >= 300 {
		return fmt.Errorf("livechat start failed: status=%d body=%s", status, strings.TrimSpace(string(body)))
	}
	return nil
}

// EndSession closes the SDK chat session.
func (c *LiveChatClient) EndSession(ctx context.Context, conversationID string) error {
	status, body, err := c.doJSON(ctx, http.MethodDelete, "/livechat/sessions/"+conversationID, nil)
	if err != nil {
		return err
	}
	if status < 200 || status >= 300 {
		return fmt.Errorf("livechat end failed: status=%d body=%s", status, strings.TrimSpace(string(body)))
	}
	return nil
}

// GetLiveChatTranscript fetches the conversation transcript. The SDK
// is inconsistent about the payload encoding, so the raw shape is
// returned and decoding is left to the scoring pipeline.
func (c *LiveChatClient) GetLiveChatTranscript(ctx context.Context, conversationID string) (models.TranscriptPayload, error) {
	status, body, err := c.doJSON(ctx, http.MethodGet, "/livechat/sessions/"+conversationID+"/transcript", nil)
	if err != nil {
		return models.TranscriptPayload{}, err
	}
	if status < 200 || status >= 300 {
		return models.TranscriptPayload{}, fmt.Errorf("livechat transcript failed: status=%d body=%s", status, strings.TrimSpace(string(body)))
	}
	var payload models.TranscriptPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return models.TranscriptPayload{}, fmt.Errorf("livechat transcript invalid json: %w", err)
	}
	return payload, nil
}
