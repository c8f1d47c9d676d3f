package jobs

import (
	"context"
	"time"
)

type TokenCleaner interface {
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

// TokenCleanupJob удаляет истекшие refresh-токены.
type TokenCleanupJob struct {
	Tokens TokenCleaner

	now func() time.Time
}

// NewTokenCleanupJob создает задачу очистки токенов.
func NewTokenCleanupJob(tokens TokenCleaner) *TokenCleanupJob {
	return &TokenCleanupJob{Tokens: tokens, now: func() time.Time { return time.Now().UTC() }}
}

func (j *TokenCleanupJob) Run(ctx context.Context) (int, error) {
	deleted, err := j.Tokens.DeleteExpired(ctx, j.now())
	return int(deleted), err
}
