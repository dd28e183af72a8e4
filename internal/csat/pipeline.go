package csat

import (
	"context"
	"log"
	"time"

	"livechat-csat-service/internal/models"
)

// TranscriptProvider fetches the finished conversation's transcript
// from the chat SDK.
type TranscriptProvider interface {
	GetLiveChatTranscript(ctx context.Context, conversationID string) (models.TranscriptPayload, error)
}

// SentimentAnalyzer scores one assembled transcript document.
type SentimentAnalyzer interface {
	AnalyzeSentiment(ctx context.Context, text string) (SentimentScores, error)
}

// Pipeline produces a best-effort CSAT estimate at conversation end.
// Scoring is an enhancement, never a requirement: every failure mode
// (disabled config, missing transcript, provider error, malformed
// response) degrades to a nil result instead of surfacing an error.
type Pipeline struct {
	Enabled     bool
	Transcripts TranscriptProvider
	Sentiment   SentimentAnalyzer
}

// Run executes one scoring pass for a conversation and optionally
// blends in an explicit survey response. A nil return means no CSAT
// is recorded for this conversation, which is silent by design.
func (p *Pipeline) Run(ctx context.Context, conversationID string, survey *models.CopilotSurveyResponse) *models.CSATResult {
	ai := p.analyzeTranscript(ctx, conversationID)
	return BlendWithSurvey(ai, survey)
}

func (p *Pipeline) analyzeTranscript(ctx context.Context, conversationID string) *models.CSATResult {
	if p == nil || !p.Enabled || p.Sentiment == nil || p.Transcripts == nil {
		return nil
	}

	payload, err := p.Transcripts.GetLiveChatTranscript(ctx, conversationID)
	if err != nil {
		log.Printf("csat: transcript fetch failed conversation=%s err=%v", conversationID, err)
		return nil
	}

	messages := DecodeTranscript(payload)
	if len(messages) == 0 {
		return nil
	}

	text := AssembleText(messages, MaxTranscriptChars)
	if text == "" {
		return nil
	}

	scores, err := p.Sentiment.AnalyzeSentiment(ctx, text)
	if err != nil {
		log.Printf("csat: sentiment analysis failed conversation=%s err=%v", conversationID, err)
		return nil
	}

	result := MapSentimentScore(scores)
	return &result
}

// ExtractSurveyResponse builds the immutable survey record from a
// recognized survey activity. Callers must have accepted the activity
// via IsCopilotSurveyResponse first.
func ExtractSurveyResponse(a models.SurveyActivity, conversationID string) *models.CopilotSurveyResponse {
	return &models.CopilotSurveyResponse{
		Response:       a.Text,
		Timestamp:      time.Now().UTC(),
		ConversationID: conversationID,
		UserID:         a.From.ID,
		BotID:          a.ChannelData.BotID,
	}
}
