package csat

import (
	"context"
	"errors"
	"strings"
	"testing"

	"livechat-csat-service/internal/models"
)

type fakeTranscripts struct {
	payload models.TranscriptPayload
	err     error
	calls   int
}

func (f *fakeTranscripts) GetLiveChatTranscript(ctx context.Context, conversationID string) (models.TranscriptPayload, error) {
	f.calls++
	return f.payload, f.err
}

type fakeAnalyzer struct {
	scores   SentimentScores
	err      error
	lastText string
	calls    int
}

func (f *fakeAnalyzer) AnalyzeSentiment(ctx context.Context, text string) (SentimentScores, error) {
	f.calls++
	f.lastText = text
	return f.scores, f.err
}

func transcriptWith(contents ...string) models.TranscriptPayload {
	msgs := make([]any, 0, len(contents))
	for _, c := range contents {
		msgs = append(msgs, map[string]any{"content": c, "role": "user"})
	}
	return models.TranscriptPayload{Messages: msgs}
}

func TestPipelineRunScores(t *testing.T) {
	transcripts := &fakeTranscripts{payload: transcriptWith("great service", "thanks")}
	analyzer := &fakeAnalyzer{scores: SentimentScores{Sentiment: models.SentimentPositive, Positive: 0.9, Neutral: 0.05, Negative: 0.05}}
	p := &Pipeline{Enabled: true, Transcripts: transcripts, Sentiment: analyzer}

	got := p.Run(context.Background(), "conv-1", nil)
	if got == nil {
		t.Fatal("expected a result")
	}
	if got.CSATScore != 5 {
		t.Errorf("score = %d, want 5", got.CSATScore)
	}
	if transcripts.calls != 1 || analyzer.calls != 1 {
		t.Errorf("collaborators called %d/%d times, want 1/1", transcripts.calls, analyzer.calls)
	}
	if !strings.Contains(analyzer.lastText, "customer: great service") {
		t.Errorf("assembled text missing sender prefix: %q", analyzer.lastText)
	}
}

func TestPipelineDisabledShortCircuits(t *testing.T) {
	transcripts := &fakeTranscripts{payload: transcriptWith("hello")}
	analyzer := &fakeAnalyzer{}
	p := &Pipeline{Enabled: false, Transcripts: transcripts, Sentiment: analyzer}

	if got := p.Run(context.Background(), "conv-1", nil); got != nil {
		t.Errorf("disabled pipeline must return nil, got %+v", got)
	}
	if transcripts.calls != 0 || analyzer.calls != 0 {
		t.Error("disabled pipeline must not touch collaborators")
	}
}

func TestPipelineMissingAnalyzerShortCircuits(t *testing.T) {
	transcripts := &fakeTranscripts{payload: transcriptWith("hello")}
	p := &Pipeline{Enabled: true, Transcripts: transcripts}

	if got := p.Run(context.Background(), "conv-1", nil); got != nil {
		t.Errorf("unconfigured analyzer must yield nil, got %+v", got)
	}
	if transcripts.calls != 0 {
		t.Error("no transcript fetch without an analyzer to feed")
	}
}

func TestPipelineEmptyTranscript(t *testing.T) {
	transcripts := &fakeTranscripts{payload: models.TranscriptPayload{}}
	analyzer := &fakeAnalyzer{}
	p := &Pipeline{Enabled: true, Transcripts: transcripts, Sentiment: analyzer}

	if got := p.Run(context.Background(), "conv-1", nil); got != nil {
		t.Errorf("empty transcript must yield nil, got %+v", got)
	}
	if analyzer.calls != 0 {
		t.Error("nothing to analyze for an empty transcript")
	}
}

func TestPipelineProviderErrorDegradesToSurvey(t *testing.T) {
	transcripts := &fakeTranscripts{payload: transcriptWith("hello")}
	analyzer := &fakeAnalyzer{err: errors.New("503 from provider")}
	p := &Pipeline{Enabled: true, Transcripts: transcripts, Sentiment: analyzer}

	got := p.Run(context.Background(), "conv-1", &models.CopilotSurveyResponse{Response: "4"})
	if got == nil {
		t.Fatal("survey must still produce a result when the provider fails")
	}
	if got.CSATScore != 4 || got.Confidence != 0.95 || !got.SurveyResponseIncluded {
		t.Errorf("got %+v", got)
	}
}

func TestPipelineFetchErrorYieldsNil(t *testing.T) {
	transcripts := &fakeTranscripts{err: errors.New("sdk unavailable")}
	analyzer := &fakeAnalyzer{}
	p := &Pipeline{Enabled: true, Transcripts: transcripts, Sentiment: analyzer}

	if got := p.Run(context.Background(), "conv-1", nil); got != nil {
		t.Errorf("fetch failure without a survey must yield nil, got %+v", got)
	}
}

func TestExtractSurveyResponse(t *testing.T) {
	a := surveyActivity("4")
	a.From.ID = "user-7"

	got := ExtractSurveyResponse(a, "conv-9")
	if got.Response != "4" || got.ConversationID != "conv-9" || got.UserID != "user-7" || got.BotID != "bot-42" {
		t.Errorf("got %+v", got)
	}
	if got.Timestamp.IsZero() {
		t.Error("timestamp must be set")
	}
}
