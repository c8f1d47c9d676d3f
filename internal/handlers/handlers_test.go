package handlers

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/xuri/excelize/v2"

	"example.com/wealthsutra/backend/internal/agent"
	"example.com/wealthsutra/backend/internal/auth"
	"example.com/wealthsutra/backend/internal/dashboard"
	"example.com/wealthsutra/backend/internal/models"
	"example.com/wealthsutra/backend/internal/notifications"
	"example.com/wealthsutra/backend/internal/repository"
)

type testValidator struct {
	validate *validator.Validate
}

func (v testValidator) Validate(i any) error {
	return v.validate.Struct(i)
}

func newTestEcho(userID uuid.UUID) *echo.Echo {
	e := echo.New()
	e.Validator = testValidator{validate: validator.New()}
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set(auth.ContextUserIDKey, userID)
			return next(c)
		}
	})
	return e
}

type memoryTransactions struct {
	created []models.Transaction
	err     error
}

func (m *memoryTransactions) CreateBatch(_ context.Context, userID uuid.UUID, inputs []repository.TransactionInput) ([]models.Transaction, error) {
	if m.err != nil {
		return nil, m.err
	}

	out := make([]models.Transaction, 0, len(inputs))
	for _, input := range inputs {
		normalized, err := repository.NormalizeTransaction(input)
		if err != nil {
			return nil, err
		}
		out = append(out, models.Transaction{
			ID:         uuid.New(),
			UserID:     userID,
			OccurredAt: normalized.OccurredAt,
			Amount:     normalized.Amount,
			Direction:  normalized.Direction,
			Category:   normalized.Category,
			Source:     normalized.Source,
			Merchant:   normalized.Merchant,
		})
	}
	m.created = append(m.created, out...)
	return out, nil
}

func (m *memoryTransactions) ListRecent(_ context.Context, _ uuid.UUID, limit int) ([]models.Transaction, error) {
	out := make([]models.Transaction, 0, limit)
	return append(out, m.created[:min(limit, len(m.created))]...), nil
}

func (m *memoryTransactions) ListBetween(_ context.Context, _ uuid.UUID, from, to time.Time) ([]models.Transaction, error) {
	out := make([]models.Transaction, 0)
	for _, t := range m.created {
		if !t.OccurredAt.Before(from) && t.OccurredAt.Before(to) {
			out = append(out, t)
		}
	}
	return out, nil
}

type invalidations struct {
	users []uuid.UUID
}

func (i *invalidations) Invalidate(userID uuid.UUID) {
	i.users = append(i.users, userID)
}

const ingestBody = `{"events":[
	{"occurred_at":"2024-05-09T10:00:00Z","amount":250.5,"direction":"debit","merchant":"Swiggy"},
	{"occurred_at":"2024-05-09T12:00:00Z","amount":900,"direction":"credit","category":"salary","source":"upi"}
]}`

// TestIngestTransactions проверяет прием пачки событий и значения по умолчанию.
func TestIngestTransactions(t *testing.T) {
	userID := uuid.New()
	store := &memoryTransactions{}
	cache := &invalidations{}
	hub := notifications.NewHub()
	events, unsubscribe := hub.Subscribe(userID)
	defer unsubscribe()

	h := NewTransactionHandler(store, cache, hub, nil, nil)
	e := newTestEcho(userID)
	e.POST("/transactions/ingest", h.Ingest)

	req := httptest.NewRequest(http.MethodPost, "/transactions/ingest", strings.NewReader(ingestBody))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var response IngestResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if response.Accepted != 2 {
		t.Fatalf("expected 2 accepted, got %d", response.Accepted)
	}
	if store.created[0].Category != models.DefaultCategory || store.created[0].Source != models.DefaultSource {
		t.Fatalf("expected defaults applied, got %+v", store.created[0])
	}
	if len(cache.users) != 1 || cache.users[0] != userID {
		t.Fatal("expected dashboard cache invalidation")
	}

	select {
	case event := <-events:
		if event.Type != notifications.EventTransactionsIngested {
			t.Fatalf("unexpected event %s", event.Type)
		}
	default:
		t.Fatal("expected transactions_ingested event")
	}
}

// TestIngestRejectsInvalid проверяет валидацию направления и суммы.
func TestIngestRejectsInvalid(t *testing.T) {
	h := NewTransactionHandler(&memoryTransactions{}, nil, nil, nil, nil)
	e := newTestEcho(uuid.New())
	e.POST("/transactions/ingest", h.Ingest)

	bodies := []string{
		`{"events":[]}`,
		`{"events":[{"occurred_at":"2024-05-09T10:00:00Z","amount":10,"direction":"refund"}]}`,
		`{"events":[{"occurred_at":"2024-05-09T10:00:00Z","amount":0,"direction":"debit"}]}`,
		`{"events":[{"amount":10,"direction":"debit"}]}`,
	}

	for _, body := range bodies {
		req := httptest.NewRequest(http.MethodPost, "/transactions/ingest", strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400 for %s, got %d", body, rec.Code)
		}
	}
}

// TestListTransactionsLimit проверяет разбор limit.
func TestListTransactionsLimit(t *testing.T) {
	h := NewTransactionHandler(&memoryTransactions{}, nil, nil, nil, nil)
	e := newTestEcho(uuid.New())
	e.GET("/transactions", h.List)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/transactions?limit=abc", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/transactions?limit=1000", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"transactions":[]`) {
		t.Fatalf("expected empty list, got %d: %s", rec.Code, rec.Body.String())
	}
}

func seededStore(t *testing.T, userID uuid.UUID) *memoryTransactions {
	t.Helper()

	store := &memoryTransactions{}
	_, err := store.CreateBatch(context.Background(), userID, []repository.TransactionInput{
		{OccurredAt: time.Date(2024, 5, 9, 10, 0, 0, 0, time.UTC), Amount: 250.5, Direction: models.DirectionDebit, Category: "Food"},
		{OccurredAt: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC), Amount: 100, Direction: models.DirectionDebit},
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	return store
}

// TestExportCSV проверяет выгрузку транзакций в CSV за период.
func TestExportCSV(t *testing.T) {
	userID := uuid.New()
	h := NewTransactionHandler(seededStore(t, userID), nil, nil, nil, nil)
	e := newTestEcho(userID)
	e.GET("/transactions/export", h.Export)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/transactions/export?format=csv&from=2024-05-05&to=2024-05-09", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	rows, err := csv.NewReader(rec.Body).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected header and one row, got %d rows", len(rows))
	}
	if rows[1][2] != "250.50" || rows[1][3] != "Food" {
		t.Fatalf("unexpected row: %v", rows[1])
	}
	if !strings.Contains(rec.Header().Get(echo.HeaderContentDisposition), "transactions-2024-05-05-2024-05-09.csv") {
		t.Fatalf("unexpected filename: %s", rec.Header().Get(echo.HeaderContentDisposition))
	}
}

// TestExportXLSX проверяет выгрузку в XLSX с числовой суммой.
func TestExportXLSX(t *testing.T) {
	userID := uuid.New()
	h := NewTransactionHandler(seededStore(t, userID), nil, nil, nil, nil)
	e := newTestEcho(userID)
	e.GET("/transactions/export", h.Export)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/transactions/export?format=xlsx&from=2024-05-01&to=2024-05-31", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	f, err := excelize.OpenReader(rec.Body)
	if err != nil {
		t.Fatalf("open xlsx: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(exportSheet)
	if err != nil {
		t.Fatalf("read rows: %v", err)
	}
	if len(rows) != 3 || rows[0][0] != "occurred_at" {
		t.Fatalf("unexpected rows: %v", rows)
	}
}

// TestParseExportPeriod проверяет границы периода выгрузки.
func TestParseExportPeriod(t *testing.T) {
	now := time.Date(2024, 5, 10, 15, 0, 0, 0, time.UTC)

	from, to, err := parseExportPeriod("", "", now)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if to.Format(dateLayout) != "2024-05-11" || from.Format(dateLayout) != "2024-04-11" {
		t.Fatalf("unexpected default period: %s - %s", from, to)
	}

	if _, _, err := parseExportPeriod("2024-05-10", "2024-05-01", now); err == nil {
		t.Fatal("expected error for inverted period")
	}
	if _, _, err := parseExportPeriod("2022-01-01", "2024-05-01", now); err == nil {
		t.Fatal("expected error for long period")
	}
	if _, _, err := parseExportPeriod("01/05/2024", "", now); err == nil {
		t.Fatal("expected error for bad format")
	}
}

// TestTransactionStream проверяет прием событий через WebSocket.
func TestTransactionStream(t *testing.T) {
	userID := uuid.New()
	store := &memoryTransactions{}
	h := NewTransactionHandler(store, nil, nil, nil, nil)
	e := newTestEcho(userID)
	e.GET("/transactions/ws", h.Stream)

	server := httptest.NewServer(e)
	defer server.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(server.URL, "http")+"/transactions/ws", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if err := conn.WriteMessage(websocket.TextMessage, []byte(ingestBody)); err != nil {
		t.Fatalf("write: %v", err)
	}
	var reply map[string]any
	if err := conn.ReadJSON(&reply); err != nil {
		t.Fatalf("read: %v", err)
	}
	if reply["accepted"] != float64(2) {
		t.Fatalf("unexpected reply: %v", reply)
	}

	if err := conn.WriteMessage(websocket.TextMessage, []byte("not json")); err != nil {
		t.Fatalf("write: %v", err)
	}
	reply = nil
	if err := conn.ReadJSON(&reply); err != nil {
		t.Fatalf("read: %v", err)
	}
	if reply["error"] != "invalid message format" {
		t.Fatalf("unexpected reply: %v", reply)
	}
	if len(store.created) != 2 {
		t.Fatalf("expected 2 stored transactions, got %d", len(store.created))
	}
}

type generatorStub struct {
	trigger models.PlanTrigger
	err     error
}

func (g *generatorStub) GeneratePlan(_ context.Context, userID uuid.UUID, trigger models.PlanTrigger) (agent.Result, error) {
	g.trigger = trigger
	if g.err != nil {
		return agent.Result{}, g.err
	}
	return agent.Result{
		Plan:  models.Plan{ID: uuid.New(), UserID: userID, DailySavingTarget: 105, Trigger: models.TriggerInitialPlan},
		Risk:  agent.RiskOutput{Level: models.RiskMedium, Reasons: []string{"High income volatility"}},
		Coach: agent.CoachOutput{Message: "hi", Summary: "s", RiskExplanation: "r", CoachIntro: "hi", Nudges: []string{"n"}, Source: agent.CoachSourceFallback},
	}, nil
}

// TestGeneratePlanHandler проверяет ответ 201 и событие plan_generated.
func TestGeneratePlanHandler(t *testing.T) {
	userID := uuid.New()
	generator := &generatorStub{}
	hub := notifications.NewHub()
	events, unsubscribe := hub.Subscribe(userID)
	defer unsubscribe()

	h := NewAgentHandler(generator, hub, nil)
	e := newTestEcho(userID)
	e.POST("/agent/plan", h.GeneratePlan)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/agent/plan", nil))
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var body map[string]json.RawMessage
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	for _, key := range []string{"plan", "coach", "risk"} {
		if _, ok := body[key]; !ok {
			t.Fatalf("missing %s in response", key)
		}
	}
	if !strings.Contains(string(body["coach"]), `"risk_explanation":"r"`) {
		t.Fatalf("unexpected coach payload: %s", body["coach"])
	}
	if generator.trigger != "" {
		t.Fatalf("expected empty trigger to pass through, got %s", generator.trigger)
	}

	select {
	case event := <-events:
		if event.Type != notifications.EventPlanGenerated {
			t.Fatalf("unexpected event %s", event.Type)
		}
	default:
		t.Fatal("expected plan_generated event")
	}
}

// TestGeneratePlanHandlerErrors проверяет ошибки триггера и хранилища.
func TestGeneratePlanHandlerErrors(t *testing.T) {
	e := newTestEcho(uuid.New())
	e.POST("/agent/plan", NewAgentHandler(&generatorStub{}, nil, nil).GeneratePlan)

	req := httptest.NewRequest(http.MethodPost, "/agent/plan", strings.NewReader(`{"trigger":"weekly"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}

	e = newTestEcho(uuid.New())
	e.POST("/agent/plan", NewAgentHandler(&generatorStub{err: errors.New("db down")}, nil, nil).GeneratePlan)

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/agent/plan", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}

type dashboardStub struct{}

func (dashboardStub) Summary(context.Context, uuid.UUID) (dashboard.Summary, error) {
	return dashboard.Build(agent.Profile{}, agent.TransactionSummary{IncomeTotal: 7000, SpendTotal: 3500}, agent.DefaultRules()), nil
}

// TestDashboardHandler проверяет выдачу сводки.
func TestDashboardHandler(t *testing.T) {
	e := newTestEcho(uuid.New())
	e.GET("/dashboard", NewDashboardHandler(dashboardStub{}).Get)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/dashboard", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"label":"Stable"`) {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
}

type userLookupStub map[uuid.UUID]models.User

func (s userLookupStub) GetByID(_ context.Context, id uuid.UUID) (models.User, error) {
	user, ok := s[id]
	if !ok {
		return models.User{}, repository.ErrNotFound
	}
	return user, nil
}

// TestAdminMiddleware проверяет доступ по нормализованному номеру телефона.
func TestAdminMiddleware(t *testing.T) {
	adminID := uuid.New()
	userID := uuid.New()
	users := userLookupStub{
		adminID: {ID: adminID, PhoneNumber: "+919876543210"},
		userID:  {ID: userID, PhoneNumber: "+911111111111"},
	}
	mw := AdminMiddleware(users, []string{"+91 98765-43210"})

	cases := map[uuid.UUID]int{
		adminID:    http.StatusOK,
		userID:     http.StatusForbidden,
		uuid.New(): http.StatusForbidden,
	}
	for id, want := range cases {
		e := newTestEcho(id)
		e.GET("/admin/users", func(c echo.Context) error { return c.NoContent(http.StatusOK) }, mw)

		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/users", nil))
		if rec.Code != want {
			t.Fatalf("user %s: expected %d, got %d", id, want, rec.Code)
		}
	}
}

// TestParsePagination проверяет разбор limit и offset.
func TestParsePagination(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/?limit=500&offset=10", nil), httptest.NewRecorder())

	limit, offset, err := parsePagination(c, 20, 100)
	if err != nil || limit != 100 || offset != 10 {
		t.Fatalf("unexpected pagination: %d %d %v", limit, offset, err)
	}

	c = e.NewContext(httptest.NewRequest(http.MethodGet, "/?offset=-1", nil), httptest.NewRecorder())
	if _, _, err := parsePagination(c, 20, 100); err == nil {
		t.Fatal("expected error for negative offset")
	}
}

type pingStub struct {
	err error
}

func (p pingStub) Ping(context.Context) error {
	return p.err
}

// TestHealth проверяет статус сервиса при доступной и недоступной базе.
func TestHealth(t *testing.T) {
	e := echo.New()
	e.GET("/ok", NewHealthHandler(pingStub{}).Health)
	e.GET("/down", NewHealthHandler(pingStub{err: errors.New("down")}).Health)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ok", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/down", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}
