package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"

	"example.com/wealthsutra/backend/internal/agent"
	"example.com/wealthsutra/backend/internal/ai"
	"example.com/wealthsutra/backend/internal/auth"
	"example.com/wealthsutra/backend/internal/config"
	"example.com/wealthsutra/backend/internal/dashboard"
	"example.com/wealthsutra/backend/internal/handlers"
	"example.com/wealthsutra/backend/internal/jobs"
	"example.com/wealthsutra/backend/internal/notifications"
	"example.com/wealthsutra/backend/internal/repository"
)

// Server объединяет HTTP-слой и фоновые задачи.
type Server struct {
	Echo *echo.Echo
	Jobs *jobs.Scheduler

	dashboard *dashboard.Service
}

// New собирает HTTP-сервер Echo с роутами и зависимостями.
func New(cfg config.Config, rules agent.Rules, logger *slog.Logger, db *pgxpool.Pool) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = NewValidator()

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(requestLogger(logger))

	tokenManager := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer, cfg.Auth.AccessTokenTTL, cfg.Auth.RefreshTokenTTL)
	userRepo := repository.NewUserRepository(db)
	tokenRepo := repository.NewRefreshTokenRepository(db)
	profileRepo := repository.NewProfileRepository(db)
	transactionRepo := repository.NewTransactionRepository(db)
	goalRepo := repository.NewGoalRepository(db)
	planRepo := repository.NewPlanRepository(db)
	riskEventRepo := repository.NewRiskEventRepository(db)
	healthScoreRepo := repository.NewHealthScoreRepository(db)
	aiRepo := repository.NewAIRepository(db)
	adminRepo := repository.NewAdminRepository(db)
	planningStore := repository.NewPlanningStore(db)
	notificationHub := notifications.NewHub()

	aiService := ai.NewService(newAIClient(cfg.AI), cfg.AI.Provider, cfg.AI.Model, aiRepo)
	coach := agent.NewCoach(aiService, cfg.AI.Timeout, rules, logger)
	orchestrator := agent.NewOrchestrator(planningStore, coach, rules, logger)

	dashboardService, err := dashboard.NewService(planningStore, rules, cfg.Cache.DashboardTTL)
	if err != nil {
		return nil, fmt.Errorf("dashboard cache: %w", err)
	}

	authHandler := handlers.NewAuthHandler(userRepo, tokenRepo, tokenManager)
	profileHandler := handlers.NewProfileHandler(profileRepo, dashboardService)
	transactionHandler := handlers.NewTransactionHandler(transactionRepo, dashboardService, notificationHub, cfg.Ingest.AllowedOrigins, logger)
	goalHandler := handlers.NewGoalHandler(goalRepo)
	planHandler := handlers.NewPlanHandler(planRepo, riskEventRepo)
	agentHandler := handlers.NewAgentHandler(orchestrator, notificationHub, logger)
	dashboardHandler := handlers.NewDashboardHandler(dashboardService)
	notificationHandler := handlers.NewNotificationHandler(notificationHub)
	adminHandler := handlers.NewAdminHandler(adminRepo)
	healthHandler := handlers.NewHealthHandler(db)

	registerRoutes(e, routeHandlers{
		health:        healthHandler,
		auth:          authHandler,
		profile:       profileHandler,
		transactions:  transactionHandler,
		goals:         goalHandler,
		plans:         planHandler,
		agent:         agentHandler,
		dashboard:     dashboardHandler,
		notifications: notificationHandler,
		admin:         adminHandler,
	}, routeMiddleware{
		auth:          auth.JWTMiddleware(tokenManager),
		stream:        auth.StreamJWTMiddleware(tokenManager),
		admin:         handlers.AdminMiddleware(userRepo, cfg.Admin.PhoneNumbers),
		authRateLimit: rateLimiter(cfg.Auth.RateLimitPerMinute, cfg.Auth.RateLimitBurst),
		aiRateLimit:   rateLimiter(cfg.AI.RateLimitPerMinute, cfg.AI.RateLimitBurst),
		ingestLimit:   rateLimiter(cfg.Ingest.RateLimitPerMinute, cfg.Ingest.RateLimitBurst),
	})

	srv := &Server{Echo: e, dashboard: dashboardService}

	if cfg.Jobs.Enabled {
		scheduler, err := newScheduler(cfg.Jobs, rules, logger, schedulerDeps{
			transactions: transactionRepo,
			dashboard:    dashboardService,
			snapshots:    healthScoreRepo,
			plans:        planRepo,
			generator:    orchestrator,
			hub:          notificationHub,
			tokens:       tokenRepo,
		})
		if err != nil {
			dashboardService.Close()
			return nil, err
		}
		srv.Jobs = scheduler
	}

	return srv, nil
}

// Close останавливает фоновые задачи и освобождает кэш.
func (s *Server) Close(ctx context.Context) {
	if s.Jobs != nil {
		s.Jobs.Stop(ctx)
	}
	s.dashboard.Close()
}

func newAIClient(cfg config.AIConfig) ai.Client {
	switch cfg.Provider {
	case config.ProviderAnthropic:
		return ai.NewAnthropicClient(cfg.APIKey, cfg.BaseURL, cfg.Model, cfg.Timeout, cfg.MaxOutputTokens)
	case config.ProviderGroq:
		return ai.NewGroqClient(cfg.APIKey, cfg.BaseURL, cfg.Model, cfg.Timeout, cfg.MaxOutputTokens)
	default:
		return ai.NewGeminiClient(cfg.APIKey, cfg.BaseURL, cfg.Model, cfg.Timeout, cfg.MaxOutputTokens)
	}
}

type schedulerDeps struct {
	transactions *repository.TransactionRepository
	dashboard    *dashboard.Service
	snapshots    *repository.HealthScoreRepository
	plans        *repository.PlanRepository
	generator    jobs.PlanGenerator
	hub          *notifications.Hub
	tokens       *repository.RefreshTokenRepository
}

func newScheduler(cfg config.JobsConfig, rules agent.Rules, logger *slog.Logger, deps schedulerDeps) (*jobs.Scheduler, error) {
	scheduler := jobs.NewScheduler(cfg.TimeZone, logger)
	window := time.Duration(rules.WindowDays) * 24 * time.Hour

	healthScore := jobs.NewHealthScoreJob(deps.transactions, deps.dashboard, deps.snapshots, window, cfg.BatchSize, logger)
	if err := scheduler.Add("health_score", cfg.HealthScoreSchedule, 30*time.Minute, healthScore); err != nil {
		return nil, err
	}

	planRefresh := jobs.NewPlanRefreshJob(deps.plans, deps.generator, deps.hub, cfg.BatchSize, logger)
	if err := scheduler.Add("plan_refresh", cfg.PlanRefreshSchedule, time.Hour, planRefresh); err != nil {
		return nil, err
	}

	if err := scheduler.Add("token_cleanup", cfg.TokenCleanupSchedule, 5*time.Minute, jobs.NewTokenCleanupJob(deps.tokens)); err != nil {
		return nil, err
	}

	return scheduler, nil
}

// NewHTTPServer создает net/http сервер с заданными таймаутами.
func NewHTTPServer(cfg config.ServerConfig, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
}

func requestLogger(logger *slog.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogMethod:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogError:     true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []slog.Attr{
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.String("remote_ip", v.RemoteIP),
				slog.String("request_id", v.RequestID),
				slog.Duration("latency", v.Latency),
			}

			if userID, ok := auth.UserIDFromContext(c); ok {
				attrs = append(attrs, slog.String("user_id", userID.String()))
			}

			if v.Error != nil {
				attrs = append(attrs, slog.String("error", v.Error.Error()))
			}

			msg := "request completed"
			if v.Status >= http.StatusInternalServerError {
				logger.LogAttrs(c.Request().Context(), slog.LevelError, msg, attrs...)
				return nil
			}

			logger.LogAttrs(c.Request().Context(), slog.LevelInfo, msg, attrs...)
			return nil
		},
	})
}

func rateLimiter(perMinute, burst int) echo.MiddlewareFunc {
	limit := rate.Limit(float64(perMinute) / 60.0)
	store := middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
		Rate:      limit,
		Burst:     burst,
		ExpiresIn: time.Minute,
	})

	return middleware.RateLimiter(store)
}
