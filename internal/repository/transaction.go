package repository

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/wealthsutra/backend/internal/models"
)

const (
	DefaultTransactionLimit = 100
	MaxTransactionLimit     = 500
)

type TransactionRepository struct {
	db *pgxpool.Pool
}

// TransactionInput описывает одно событие SMS/UPI до нормализации.
type TransactionInput struct {
	OccurredAt time.Time
	Amount     float64
	Direction  models.Direction
	Channel    string
	Merchant   string
	Category   string
	Source     string
	RawText    string
}

const transactionColumns = `id, user_id, occurred_at, amount, direction, channel, merchant, category, source, raw_text, created_at`

// NewTransactionRepository создает репозиторий транзакций.
func NewTransactionRepository(db *pgxpool.Pool) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// NormalizeTransaction применяет значения по умолчанию и проверяет событие.
func NormalizeTransaction(input TransactionInput) (TransactionInput, error) {
	if input.Direction != models.DirectionCredit && input.Direction != models.DirectionDebit {
		return input, ErrInvalid
	}

	input.Amount = roundAmount(input.Amount)
	if input.Amount <= 0 || input.OccurredAt.IsZero() {
		return input, ErrInvalid
	}

	input.Category = strings.TrimSpace(input.Category)
	if input.Category == "" {
		input.Category = models.DefaultCategory
	}

	input.Source = strings.TrimSpace(input.Source)
	if input.Source == "" {
		input.Source = models.DefaultSource
	}

	input.Channel = strings.TrimSpace(input.Channel)
	input.Merchant = strings.TrimSpace(input.Merchant)
	input.OccurredAt = input.OccurredAt.UTC()

	return input, nil
}

// CreateBatch сохраняет пачку событий в одной транзакции.
func (r *TransactionRepository) CreateBatch(ctx context.Context, userID uuid.UUID, inputs []TransactionInput) ([]models.Transaction, error) {
	if len(inputs) == 0 {
		return nil, ErrInvalid
	}

	normalized := make([]TransactionInput, 0, len(inputs))
	for _, input := range inputs {
		item, err := NormalizeTransaction(input)
		if err != nil {
			return nil, err
		}
		normalized = append(normalized, item)
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	created := make([]models.Transaction, 0, len(normalized))
	for _, item := range normalized {
		record, err := scanTransaction(tx.QueryRow(ctx,
			`INSERT INTO transactions (user_id, occurred_at, amount, direction, channel, merchant, category, source, raw_text)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			 RETURNING `+transactionColumns,
			userID, item.OccurredAt, item.Amount, item.Direction, item.Channel, item.Merchant, item.Category, item.Source, item.RawText,
		))
		if err != nil {
			return nil, err
		}
		created = append(created, record)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	return created, nil
}

// ListRecent возвращает последние транзакции пользователя, новые первыми.
func (r *TransactionRepository) ListRecent(ctx context.Context, userID uuid.UUID, limit int) ([]models.Transaction, error) {
	if limit <= 0 {
		limit = DefaultTransactionLimit
	}
	if limit > MaxTransactionLimit {
		limit = MaxTransactionLimit
	}

	rows, err := r.db.Query(ctx,
		`SELECT `+transactionColumns+`
		 FROM transactions
		 WHERE user_id = $1
		 ORDER BY occurred_at DESC, created_at DESC
		 LIMIT $2`,
		userID, limit,
	)
	if err != nil {
		return nil, err
	}

	return collectTransactions(rows)
}

// ListBetween возвращает транзакции в окне [from, to) в хронологическом порядке.
func (r *TransactionRepository) ListBetween(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]models.Transaction, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+transactionColumns+`
		 FROM transactions
		 WHERE user_id = $1 AND occurred_at >= $2 AND occurred_at < $3
		 ORDER BY occurred_at ASC, created_at ASC`,
		userID, from, to,
	)
	if err != nil {
		return nil, err
	}

	return collectTransactions(rows)
}

// ActiveUserIDs возвращает пользователей с транзакциями начиная с since.
// Выборка идет страницами по возрастанию id, after - последний id предыдущей страницы.
func (r *TransactionRepository) ActiveUserIDs(ctx context.Context, since time.Time, after uuid.UUID, limit int) ([]uuid.UUID, error) {
	rows, err := r.db.Query(ctx,
		`SELECT DISTINCT user_id
		 FROM transactions
		 WHERE occurred_at >= $1 AND user_id > $2
		 ORDER BY user_id
		 LIMIT $3`,
		since, after, limit,
	)
	if err != nil {
		return nil, err
	}

	return pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
}

func collectTransactions(rows pgx.Rows) ([]models.Transaction, error) {
	defer rows.Close()

	transactions := make([]models.Transaction, 0)
	for rows.Next() {
		record, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, record)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return transactions, nil
}

func scanTransaction(row pgx.Row) (models.Transaction, error) {
	var record models.Transaction
	err := row.Scan(
		&record.ID,
		&record.UserID,
		&record.OccurredAt,
		&record.Amount,
		&record.Direction,
		&record.Channel,
		&record.Merchant,
		&record.Category,
		&record.Source,
		&record.RawText,
		&record.CreatedAt,
	)
	return record, err
}
