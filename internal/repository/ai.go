package repository

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/wealthsutra/backend/internal/ai"
)

const RequestTypeCoach = "coach"

type AIRepository struct {
	db *pgxpool.Pool
}

type AIRequestLog struct {
	UserID          uuid.UUID
	RequestType     string
	Provider        string
	Model           string
	Prompt          string
	RequestPayload  []byte
	ResponsePayload []byte
	RawResponse     string
	Success         bool
	ErrorMessage    *string
}

// NewAIRepository создает репозиторий для AI-запросов.
func NewAIRepository(db *pgxpool.Pool) *AIRepository {
	return &AIRepository{db: db}
}

// LogRequest сохраняет лог AI-запроса.
func (r *AIRepository) LogRequest(ctx context.Context, log AIRequestLog) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO ai_requests
		 (user_id, request_type, provider, model, prompt, request_payload, response_payload, raw_response, success, error_message)
		 VALUES ($1, $2, $3, $4, $5, NULLIF($6, '')::jsonb, NULLIF($7, '')::jsonb, $8, $9, $10)`,
		log.UserID,
		log.RequestType,
		log.Provider,
		log.Model,
		log.Prompt,
		string(log.RequestPayload),
		string(log.ResponsePayload),
		log.RawResponse,
		log.Success,
		log.ErrorMessage,
	)
	return err
}

// RecordExchange пишет обмен с моделью в журнал ai_requests.
func (r *AIRepository) RecordExchange(ctx context.Context, exchange ai.Exchange) {
	var errMessage *string
	if exchange.Err != nil {
		msg := exchange.Err.Error()
		errMessage = &msg
	}

	responsePayload := exchange.Raw
	if !json.Valid(responsePayload) {
		responsePayload = nil
	}

	err := r.LogRequest(ctx, AIRequestLog{
		UserID:          exchange.UserID,
		RequestType:     RequestTypeCoach + "_" + exchange.Kind,
		Provider:        exchange.Provider,
		Model:           exchange.Model,
		Prompt:          exchange.Prompt,
		RequestPayload:  exchange.Request,
		ResponsePayload: responsePayload,
		RawResponse:     exchange.Content,
		Success:         exchange.Err == nil,
		ErrorMessage:    errMessage,
	})
	if err != nil {
		slog.Warn("failed to log ai request", "user_id", exchange.UserID.String(), "error", err)
	}
}
