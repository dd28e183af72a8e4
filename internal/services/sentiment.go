package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"livechat-csat-service/internal/csat"
	"livechat-csat-service/internal/models"
)

const sentimentAPIVersion = "2023-04-01"

// SentimentClient calls the Azure Language sentiment-analysis API.
type SentimentClient struct {
	Endpoint string
	APIKey   string
	Timeout  time.Duration
	HTTP     *http.Client
}

type sentimentRequest struct {
	Kind          string                 `json:"kind"`
	Parameters    sentimentParameters    `json:"parameters"`
	AnalysisInput sentimentAnalysisInput `json:"analysisInput"`
}

type sentimentParameters struct {
	ModelVersion  string `json:"modelVersion"`
	OpinionMining bool   `json:"opinionMining"`
}

type sentimentAnalysisInput struct {
	Documents []sentimentDocument `json:"documents"`
}

type sentimentDocument struct {
	ID       string `json:"id"`
	Language string `json:"language"`
	Text     string `json:"text"`
}

type sentimentResponse struct {
	Results struct {
		Documents []struct {
			Sentiment        string `json:"sentiment"`
			ConfidenceScores struct {
				Positive float64 `json:"positive"`
				Neutral  float64 `json:"neutral"`
				Negative float64 `json:"negative"`
			} `json:"confidenceScores"`
		} `json:"documents"`
		Errors []struct {
			ID    string `json:"id"`
			Error struct {
				Code    string `json:"code"`
				Message string `json:"message"`
			} `json:"error"`
		} `json:"errors"`
	} `json:"results"`
}

func (c *SentimentClient) httpClient() *http.Client {
	if c.HTTP != nil {
		return c.HTTP
	}
	return http.DefaultClient
}

func (c *SentimentClient) timeout() time.Duration {
	if c.Timeout > 0 {
		return c.Timeout
	}
	return 10 * time.Second
}

// AnalyzeSentiment submits the assembled transcript as a single
// document with opinion mining requested.
func (c *SentimentClient) AnalyzeSentiment(ctx context.Context, text string) (csat.SentimentScores, error) {
	endpoint := strings.TrimRight(strings.TrimSpace(c.Endpoint), "/")
	if endpoint == "" || strings.TrimSpace(c.APIKey) == "" {
		return csat.SentimentScores{}, errors.New("sentiment client not configured")
	}

	payload := sentimentRequest{
		Kind:       "SentimentAnalysis",
		Parameters: sentimentParameters{ModelVersion: "latest", OpinionMining: true},
		AnalysisInput: sentimentAnalysisInput{
			Documents: []sentimentDocument{{ID: "1", Language: "en", Text: text}},
		},
	}
	buf, _ := json.Marshal(payload)

	ctx, cancel := context.WithTimeout(ctx, c.timeout())
	defer cancel()

	u := endpoint + "/language/:analyze-text?api-version=" + sentimentAPIVersion
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(buf))
	if err != nil {
		return csat.SentimentScores{}, err
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", c.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return csat.SentimentScores{}, err
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return csat.SentimentScores{}, fmt.Errorf("sentiment request failed: status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out sentimentResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return csat.SentimentScores{}, fmt.Errorf("sentiment invalid json: %w", err)
	}
	if len(out.Results.Documents) == 0 {
		if len(out.Results.Errors) > 0 {
			e := out.Results.Errors[0].Error
			return csat.SentimentScores{}, fmt.Errorf("sentiment document error: code=%s message=%s", e.Code, e.Message)
		}
		return csat.SentimentScores{}, errors.New("sentiment: empty documents")
	}

	doc := out.Results.Documents[0]
	return csat.SentimentScores{
		Sentiment: models.SentimentLabel(strings.ToLower(strings.TrimSpace(doc.Sentiment))),
		Positive:  doc.ConfidenceScores.Positive,
		Neutral:   doc.ConfidenceScores.Neutral,
		Negative:  doc.ConfidenceScores.Negative,
	}, nil
}
