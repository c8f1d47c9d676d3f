package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"example.com/wealthsutra/backend/internal/auth"
	"example.com/wealthsutra/backend/internal/models"
	"example.com/wealthsutra/backend/internal/notifications"
	"example.com/wealthsutra/backend/internal/repository"
)

const (
	maxIngestEvents = 500
	wsReadLimit     = 1 << 20
	wsWriteWait     = 10 * time.Second
)

type TransactionStore interface {
	CreateBatch(ctx context.Context, userID uuid.UUID, inputs []repository.TransactionInput) ([]models.Transaction, error)
	ListRecent(ctx context.Context, userID uuid.UUID, limit int) ([]models.Transaction, error)
	ListBetween(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]models.Transaction, error)
}

type TransactionHandler struct {
	Transactions TransactionStore
	Dashboard    CacheInvalidator
	Notifier     *notifications.Hub
	Logger       *slog.Logger

	upgrader websocket.Upgrader
}

// NewTransactionHandler создает обработчик транзакций. allowedOrigins пустой -
// WebSocket принимает любой Origin.
func NewTransactionHandler(store TransactionStore, dashboard CacheInvalidator, notifier *notifications.Hub, allowedOrigins []string, logger *slog.Logger) *TransactionHandler {
	if logger == nil {
		logger = slog.Default()
	}

	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			allowed[trimmed] = struct{}{}
		}
	}

	return &TransactionHandler{
		Transactions: store,
		Dashboard:    dashboard,
		Notifier:     notifier,
		Logger:       logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				if len(allowed) == 0 {
					return true
				}
				_, ok := allowed[r.Header.Get("Origin")]
				return ok
			},
		},
	}
}

type TransactionEvent struct {
	OccurredAt time.Time `json:"occurred_at" validate:"required"`
	Amount     float64   `json:"amount" validate:"gt=0"`
	Direction  string    `json:"direction" validate:"required,oneof=credit debit"`
	Channel    string    `json:"channel" validate:"max=32"`
	Merchant   string    `json:"merchant" validate:"max=200"`
	Category   string    `json:"category" validate:"max=64"`
	Source     string    `json:"source" validate:"max=32"`
	RawText    string    `json:"raw_text" validate:"max=2000"`
}

type IngestRequest struct {
	Events []TransactionEvent `json:"events" validate:"required,min=1,max=500,dive"`
}

type IngestResponse struct {
	Accepted     int                  `json:"accepted"`
	Transactions []models.Transaction `json:"transactions,omitempty"`
}

type TransactionsResponse struct {
	Transactions []models.Transaction `json:"transactions"`
}

type wsReply struct {
	Accepted *int   `json:"accepted,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Ingest сохраняет пачку SMS/UPI событий.
func (h *TransactionHandler) Ingest(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	var req IngestRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return badRequest(c, "validation failed")
	}

	created, err := h.ingest(c.Request().Context(), userID, req.Events)
	if err != nil {
		if errors.Is(err, repository.ErrInvalid) {
			return badRequest(c, "invalid transaction")
		}
		return serverError(c)
	}

	return c.JSON(http.StatusCreated, IngestResponse{Accepted: len(created), Transactions: created})
}

// List возвращает последние транзакции, новые первыми.
func (h *TransactionHandler) List(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	limit := repository.DefaultTransactionLimit
	if raw := strings.TrimSpace(c.QueryParam("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			return badRequest(c, "invalid limit")
		}
		limit = min(parsed, repository.MaxTransactionLimit)
	}

	transactions, err := h.Transactions.ListRecent(c.Request().Context(), userID, limit)
	if err != nil {
		return serverError(c)
	}

	return c.JSON(http.StatusOK, TransactionsResponse{Transactions: transactions})
}

// Stream принимает события по WebSocket от оболочки приложения. Каждый кадр -
// IngestRequest, ответ - число принятых событий или ошибка.
func (h *TransactionHandler) Stream(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.Logger.Warn("websocket upgrade failed", slog.String("error", err.Error()))
		return nil
	}
	defer conn.Close()

	conn.SetReadLimit(wsReadLimit)
	ctx := c.Request().Context()

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.Logger.Warn("websocket closed",
					slog.String("user_id", userID.String()),
					slog.String("error", err.Error()),
				)
			}
			return nil
		}

		reply := h.handleFrame(ctx, c, userID, payload)
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		if err := conn.WriteJSON(reply); err != nil {
			return nil
		}
	}
}

func (h *TransactionHandler) handleFrame(ctx context.Context, c echo.Context, userID uuid.UUID, payload []byte) wsReply {
	var req IngestRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return wsReply{Error: "invalid message format"}
	}
	if err := c.Validate(&req); err != nil {
		return wsReply{Error: "validation failed"}
	}

	created, err := h.ingest(ctx, userID, req.Events)
	if err != nil {
		if errors.Is(err, repository.ErrInvalid) {
			return wsReply{Error: "invalid transaction"}
		}
		h.Logger.Error("websocket ingest failed",
			slog.String("user_id", userID.String()),
			slog.String("error", err.Error()),
		)
		return wsReply{Error: "internal server error"}
	}

	accepted := len(created)
	return wsReply{Accepted: &accepted}
}

func (h *TransactionHandler) ingest(ctx context.Context, userID uuid.UUID, events []TransactionEvent) ([]models.Transaction, error) {
	if len(events) == 0 || len(events) > maxIngestEvents {
		return nil, repository.ErrInvalid
	}

	inputs := make([]repository.TransactionInput, 0, len(events))
	for _, event := range events {
		inputs = append(inputs, repository.TransactionInput{
			OccurredAt: event.OccurredAt,
			Amount:     event.Amount,
			Direction:  models.Direction(event.Direction),
			Channel:    event.Channel,
			Merchant:   event.Merchant,
			Category:   event.Category,
			Source:     event.Source,
			RawText:    event.RawText,
		})
	}

	created, err := h.Transactions.CreateBatch(ctx, userID, inputs)
	if err != nil {
		return nil, err
	}

	if h.Dashboard != nil {
		h.Dashboard.Invalidate(userID)
	}
	h.Notifier.Publish(userID, notifications.TransactionsIngested(created))

	return created, nil
}
