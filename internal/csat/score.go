package csat

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"livechat-csat-service/internal/models"
)

// SentimentScores is the provider's verdict for one document: a label
// plus per-class confidence scores.
type SentimentScores struct {
	Sentiment models.SentimentLabel
	Positive  float64
	Neutral   float64
	Negative  float64
}

// MapSentimentScore converts a provider verdict into a 1-5 CSAT
// estimate. "mixed" counts as neutral. Positive transcripts never map
// below 4 and negative ones never above 2; confidence is the highest
// per-class score.
func MapSentimentScore(s SentimentScores) models.CSATResult {
	sentiment := s.Sentiment
	if sentiment == models.SentimentMixed {
		sentiment = models.SentimentNeutral
	}

	var score int
	switch sentiment {
	case models.SentimentPositive:
		if s.Positive > 0.8 {
			score = 5
		} else {
			score = 4
		}
	case models.SentimentNegative:
		if s.Negative > 0.8 {
			score = 1
		} else {
			score = 2
		}
	default:
		sentiment = models.SentimentNeutral
		score = 3
	}

	confidence := math.Max(s.Positive, math.Max(s.Neutral, s.Negative))

	return models.CSATResult{
		CSATScore:         score,
		Confidence:        confidence,
		Sentiment:         sentiment,
		SatisfactionLevel: satisfactionLabel(score),
		Reasoning:         fmt.Sprintf("transcript sentiment %s (confidence %.2f)", sentiment, confidence),
	}
}

func satisfactionLabel(score int) string {
	switch score {
	case 5:
		return "Very Satisfied"
	case 4:
		return "Satisfied"
	case 2:
		return "Dissatisfied"
	case 1:
		return "Very Dissatisfied"
	}
	return "Neutral"
}

func sentimentForScore(score int) models.SentimentLabel {
	switch {
	case score >= 4:
		return models.SentimentPositive
	case score <= 2:
		return models.SentimentNegative
	}
	return models.SentimentNeutral
}

// neutralFallback is returned when a survey response exists but its
// value is unusable and no AI estimate is available.
func neutralFallback() *models.CSATResult {
	return &models.CSATResult{
		CSATScore:         3,
		Confidence:        0.5,
		Sentiment:         models.SentimentNeutral,
		SatisfactionLevel: satisfactionLabel(3),
		Reasoning:         "invalid survey response, no transcript estimate",
	}
}

// BlendWithSurvey folds an explicit survey rating into the AI
// estimate. The survey dominates: final = round(0.7*survey + 0.3*ai),
// clamped to [1,5], with confidence raised to at least 0.95 and the
// sentiment re-derived from the blended score. A survey arriving
// without an AI estimate becomes the result on its own; an
// out-of-range survey value never degrades an existing estimate and
// falls back to neutral only when it is the sole signal.
func BlendWithSurvey(ai *models.CSATResult, survey *models.CopilotSurveyResponse) *models.CSATResult {
	if survey == nil {
		return ai
	}

	n, err := strconv.Atoi(strings.TrimSpace(survey.Response))
	if err != nil || n < 1 || n > 5 {
		if ai != nil {
			return ai
		}
		return neutralFallback()
	}

	if ai == nil {
		return &models.CSATResult{
			CSATScore:              n,
			Confidence:             0.95,
			Sentiment:              sentimentForScore(n),
			SatisfactionLevel:      satisfactionLabel(n),
			Reasoning:              "explicit survey response",
			SurveyResponseIncluded: true,
		}
	}

	final := int(math.Round(float64(n)*0.7 + float64(ai.CSATScore)*0.3))
	if final < 1 {
		final = 1
	}
	if final > 5 {
		final = 5
	}

	return &models.CSATResult{
		CSATScore:              final,
		Confidence:             math.Max(ai.Confidence, 0.95),
		Sentiment:              sentimentForScore(final),
		SatisfactionLevel:      satisfactionLabel(final),
		Reasoning:              fmt.Sprintf("survey %d blended with transcript estimate %d", n, ai.CSATScore),
		SurveyResponseIncluded: true,
	}
}

// IsCopilotSurveyResponse reports whether an inbound activity is an
// explicit survey rating. Only a plain-text message carrying both a
// client activity id and a bot id, whose text is exactly one digit
// 1-5, qualifies; everything else is ordinary conversation traffic.
func IsCopilotSurveyResponse(a models.SurveyActivity) bool {
	if !strings.EqualFold(strings.TrimSpace(a.Type), "message") {
		return false
	}
	if strings.TrimSpace(a.ClientActivityID) == "" || strings.TrimSpace(a.ChannelData.BotID) == "" {
		return false
	}
	text := strings.TrimSpace(a.Text)
	if len(text) != 1 || text[0] < '1' || text[0] > '5' {
		return false
	}
	format := strings.ToLower(strings.TrimSpace(a.TextFormat))
	return format == "" || format == "plain"
}
