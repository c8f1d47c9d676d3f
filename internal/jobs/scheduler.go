package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Runner - одна фоновая задача. Возвращает число обработанных записей.
type Runner interface {
	Run(ctx context.Context) (int, error)
}

type Scheduler struct {
	cron     *cron.Cron
	location *time.Location
	logger   *slog.Logger
}

// NewScheduler создает планировщик в часовом поясе timeZone.
// Неизвестный пояс заменяется на UTC.
func NewScheduler(timeZone string, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}

	loc, err := time.LoadLocation(timeZone)
	if err != nil {
		logger.Warn("invalid jobs timezone, falling back to UTC",
			slog.String("timezone", timeZone),
			slog.String("error", err.Error()),
		)
		loc = time.UTC
	}

	return &Scheduler{
		cron:     cron.New(cron.WithLocation(loc)),
		location: loc,
		logger:   logger,
	}
}

// Location возвращает часовой пояс расписаний.
func (s *Scheduler) Location() *time.Location {
	return s.location
}

// Add регистрирует задачу. timeout ограничивает один запуск.
func (s *Scheduler) Add(name, spec string, timeout time.Duration, job Runner) error {
	_, err := s.cron.AddFunc(spec, func() {
		s.run(name, timeout, job)
	})
	if err != nil {
		return fmt.Errorf("schedule %s job: %w", name, err)
	}

	s.logger.Info("job scheduled",
		slog.String("job", name),
		slog.String("schedule", spec),
		slog.String("timezone", s.location.String()),
	)
	return nil
}

func (s *Scheduler) run(name string, timeout time.Duration, job Runner) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	started := time.Now()
	processed, err := job.Run(ctx)
	if err != nil {
		s.logger.Error("job failed",
			slog.String("job", name),
			slog.Int("processed", processed),
			slog.Duration("duration", time.Since(started)),
			slog.String("error", err.Error()),
		)
		return
	}

	s.logger.Info("job completed",
		slog.String("job", name),
		slog.Int("processed", processed),
		slog.Duration("duration", time.Since(started)),
	)
}

// Start запускает расписание в фоне.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop останавливает расписание и ждет завершения запущенных задач, но не дольше ctx.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.logger.Warn("jobs did not finish before shutdown")
	}
}
