package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/wealthsutra/backend/internal/models"
)

type UserRepository struct {
	db *pgxpool.Pool
}

const userColumns = `id, phone_number, persona_type, password_hash, created_at, updated_at`

// NewUserRepository создает репозиторий пользователей.
func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{db: db}
}

// Create создает пользователя с номером телефона и типом персоны.
func (r *UserRepository) Create(ctx context.Context, phoneNumber string, persona models.PersonaType, passwordHash string) (models.User, error) {
	user, err := scanUser(r.db.QueryRow(ctx,
		`INSERT INTO users (phone_number, persona_type, password_hash)
		 VALUES ($1, $2, $3)
		 RETURNING `+userColumns,
		phoneNumber, persona, passwordHash,
	))
	if err != nil {
		if isUniqueViolation(err) {
			return user, ErrConflict
		}
		return user, err
	}

	return user, nil
}

// GetByPhone возвращает пользователя по номеру телефона.
func (r *UserRepository) GetByPhone(ctx context.Context, phoneNumber string) (models.User, error) {
	user, err := scanUser(r.db.QueryRow(ctx,
		`SELECT `+userColumns+`
		 FROM users
		 WHERE phone_number = $1`,
		phoneNumber,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user, ErrNotFound
		}
		return user, err
	}

	return user, nil
}

// GetByID возвращает пользователя по идентификатору.
func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (models.User, error) {
	user, err := scanUser(r.db.QueryRow(ctx,
		`SELECT `+userColumns+`
		 FROM users
		 WHERE id = $1`,
		id,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user, ErrNotFound
		}
		return user, err
	}

	return user, nil
}

func scanUser(row pgx.Row) (models.User, error) {
	var user models.User
	err := row.Scan(&user.ID, &user.PhoneNumber, &user.PersonaType, &user.PasswordHash, &user.CreatedAt, &user.UpdatedAt)
	return user, err
}
