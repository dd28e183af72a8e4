package store

import (
	"context"
	"database/sql"
	"strings"

	"livechat-csat-service/internal/models"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS chat_conversations (
			conversation_id TEXT PRIMARY KEY,
			owner_key TEXT NOT NULL,
			is_persistent BOOLEAN NOT NULL DEFAULT FALSE,
			conversation_state TEXT NOT NULL DEFAULT 'Loading',
			ended_by TEXT NOT NULL DEFAULT 'NotSet',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS chat_conversations_owner_key_idx ON chat_conversations(owner_key)`,
		`CREATE TABLE IF NOT EXISTS csat_results (
			conversation_id TEXT PRIMARY KEY REFERENCES chat_conversations(conversation_id) ON DELETE CASCADE,
			csat_score INT NOT NULL,
			confidence DOUBLE PRECISION NOT NULL,
			sentiment TEXT NOT NULL,
			satisfaction_level TEXT NOT NULL,
			reasoning TEXT NOT NULL DEFAULT '',
			survey_included BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS survey_responses (
			id BIGSERIAL PRIMARY KEY,
			conversation_id TEXT NOT NULL REFERENCES chat_conversations(conversation_id) ON DELETE CASCADE,
			response TEXT NOT NULL,
			user_id TEXT NOT NULL DEFAULT '',
			bot_id TEXT NOT NULL DEFAULT '',
			received_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS survey_responses_conversation_id_idx ON survey_responses(conversation_id, id)`,
	}
	for _, q := range stmts {
		if _, err := s.db.ExecContext(ctx, q); err != nil {
			return err
		}
	}
	return nil
}

// UpsertConversation records the latest lifecycle snapshot for a
// conversation. The in-memory registry stays authoritative while the
// service runs; rows exist so finished conversations survive restarts
// and so CSAT rows have something to reference.
func (s *PostgresStore) UpsertConversation(ctx context.Context, ownerKey string, v models.ConversationView) error {
	if strings.TrimSpace(v.ConversationID) == "" {
		return nil
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO chat_conversations (conversation_id, owner_key, is_persistent, conversation_state, ended_by)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (conversation_id) DO UPDATE SET
			is_persistent = EXCLUDED.is_persistent,
			conversation_state = EXCLUDED.conversation_state,
			ended_by = EXCLUDED.ended_by,
			updated_at = NOW()`,
		v.ConversationID, ownerKey, v.IsPersistent, string(v.ConversationState), string(v.EndedBy),
	)
	return err
}

func (s *PostgresStore) GetConversation(ctx context.Context, ownerKey, conversationID string) (models.ConversationView, error) {
	var v models.ConversationView
	var state, endedBy string
	err := s.db.QueryRowContext(ctx,
		`SELECT conversation_id, is_persistent, conversation_state, ended_by, created_at, updated_at
		 FROM chat_conversations WHERE owner_key = $1 AND conversation_id = $2`,
		ownerKey, conversationID,
	).Scan(&v.ConversationID, &v.IsPersistent, &state, &endedBy, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		return models.ConversationView{}, err
	}
	v.ConversationState = models.ConversationState(state)
	v.EndedBy = models.ConversationEndEntity(endedBy)
	return v, nil
}

// SaveCSATResult records at most one result per conversation: the
// upsert keeps a duplicate scoring run from double-recording.
func (s *PostgresStore) SaveCSATResult(ctx context.Context, conversationID string, r models.CSATResult) error {
	if strings.TrimSpace(conversationID) == "" {
		return nil
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO csat_results (conversation_id, csat_score, confidence, sentiment, satisfaction_level, reasoning, survey_included)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (conversation_id) DO UPDATE SET
			csat_score = EXCLUDED.csat_score,
			confidence = EXCLUDED.confidence,
			sentiment = EXCLUDED.sentiment,
			satisfaction_level = EXCLUDED.satisfaction_level,
			reasoning = EXCLUDED.reasoning,
			survey_included = EXCLUDED.survey_included`,
		conversationID, r.CSATScore, r.Confidence, string(r.Sentiment), r.SatisfactionLevel, r.Reasoning, r.SurveyResponseIncluded,
	)
	return err
}

func (s *PostgresStore) GetCSATResult(ctx context.Context, conversationID string) (models.CSATRecord, error) {
	var rec models.CSATRecord
	var sentiment string
	err := s.db.QueryRowContext(ctx,
		`SELECT conversation_id, csat_score, confidence, sentiment, satisfaction_level, reasoning, survey_included, created_at
		 FROM csat_results WHERE conversation_id = $1`,
		conversationID,
	).Scan(&rec.ConversationID, &rec.Result.CSATScore, &rec.Result.Confidence, &sentiment,
		&rec.Result.SatisfactionLevel, &rec.Result.Reasoning, &rec.Result.SurveyResponseIncluded, &rec.CreatedAt)
	if err != nil {
		return models.CSATRecord{}, err
	}
	rec.Result.Sentiment = models.SentimentLabel(sentiment)
	return rec, nil
}

func (s *PostgresStore) SaveSurveyResponse(ctx context.Context, r models.CopilotSurveyResponse) error {
	if strings.TrimSpace(r.ConversationID) == "" {
		return nil
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO survey_responses (conversation_id, response, user_id, bot_id, received_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		r.ConversationID, r.Response, r.UserID, r.BotID, r.Timestamp,
	)
	return err
}

func (s *PostgresStore) LatestSurveyResponse(ctx context.Context, conversationID string) (*models.CopilotSurveyResponse, error) {
	var r models.CopilotSurveyResponse
	err := s.db.QueryRowContext(ctx,
		`SELECT conversation_id, response, user_id, bot_id, received_at
		 FROM survey_responses WHERE conversation_id = $1
		 ORDER BY id DESC LIMIT 1`,
		conversationID,
	).Scan(&r.ConversationID, &r.Response, &r.UserID, &r.BotID, &r.Timestamp)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &r, nil
}
