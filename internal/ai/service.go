package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	KindStructured = "structured"
	KindText       = "text"
)

// recordTimeout ограничивает запись в журнал запросов после ответа модели.
const recordTimeout = 2 * time.Second

const coachTextSystemPrompt = `You are a friendly financial coach for irregular-income workers in India.
Provide simple, encouraging advice in plain language.
Focus on practical tips for saving money and managing expenses.
Keep responses concise (2-3 sentences).
Never suggest specific investment schemes or products.
Output only the message text, no JSON or formatting.`

// Exchange описывает один обмен с моделью для журнала запросов.
type Exchange struct {
	UserID   uuid.UUID
	Kind     string
	Provider string
	Model    string
	Prompt   string
	Request  []byte
	Raw      []byte
	Content  string
	Err      error
}

// Recorder сохраняет обмены с моделью. Ошибки записи не влияют на ответ.
type Recorder interface {
	RecordExchange(ctx context.Context, exchange Exchange)
}

type Service struct {
	client   Client
	provider string
	model    string
	recorder Recorder
}

type subjectKey struct{}

// WithSubject привязывает пользователя к контексту, чтобы обмен попал в журнал с его id.
func WithSubject(ctx context.Context, userID uuid.UUID) context.Context {
	return context.WithValue(ctx, subjectKey{}, userID)
}

// SubjectFromContext возвращает пользователя, привязанного через WithSubject.
func SubjectFromContext(ctx context.Context) (uuid.UUID, bool) {
	userID, ok := ctx.Value(subjectKey{}).(uuid.UUID)
	return userID, ok
}

// NewService создает сервис генерации текста поверх AI-клиента.
func NewService(client Client, provider, model string, recorder Recorder) *Service {
	return &Service{client: client, provider: provider, model: model, recorder: recorder}
}

// Provider возвращает имя настроенного провайдера.
func (s *Service) Provider() string {
	return s.provider
}

// GenerateStructured запрашивает JSON-ответ и декодирует его в out.
// Без настроенного ключа возвращает ErrUnavailable.
func (s *Service) GenerateStructured(ctx context.Context, prompt, system string, out any) error {
	if s == nil || s.client == nil {
		return ErrUnavailable
	}

	request := ChatRequest{
		Messages: []Message{
			{Role: "system", Content: system},
			{Role: "user", Content: prompt},
		},
		JSON: true,
	}

	content, raw, err := s.client.Chat(ctx, request)
	if err == nil {
		err = parseJSON(content, out)
	}

	s.record(ctx, KindStructured, prompt, request, raw, content, err)
	return err
}

// GenerateText запрашивает короткое сообщение коуча простым текстом.
func (s *Service) GenerateText(ctx context.Context, prompt string) (string, error) {
	if s == nil || s.client == nil {
		return "", ErrUnavailable
	}

	request := ChatRequest{
		Messages: []Message{
			{Role: "system", Content: coachTextSystemPrompt},
			{Role: "user", Content: prompt},
		},
	}

	content, raw, err := s.client.Chat(ctx, request)
	content = strings.TrimSpace(content)
	if err == nil && content == "" {
		err = errors.New("ai response is empty")
	}

	s.record(ctx, KindText, prompt, request, raw, content, err)
	if err != nil {
		return "", err
	}

	return content, nil
}

func (s *Service) record(ctx context.Context, kind, prompt string, request ChatRequest, raw []byte, content string, err error) {
	if s.recorder == nil || errors.Is(err, ErrUnavailable) {
		return
	}

	userID, ok := SubjectFromContext(ctx)
	if !ok {
		return
	}

	payload, _ := json.Marshal(request.Messages)
	recordCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancel()

	s.recorder.RecordExchange(recordCtx, Exchange{
		UserID:   userID,
		Kind:     kind,
		Provider: s.provider,
		Model:    s.model,
		Prompt:   prompt,
		Request:  payload,
		Raw:      raw,
		Content:  content,
		Err:      err,
	})
}

func parseJSON(input string, target any) error {
	payload := extractJSON(input)
	if payload == "" {
		return errors.New("ai response does not contain json")
	}

	if err := json.Unmarshal([]byte(payload), target); err != nil {
		return fmt.Errorf("decode ai response: %w", err)
	}
	return nil
}

func extractJSON(input string) string {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return ""
	}

	if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```")
		trimmed = strings.TrimPrefix(strings.TrimSpace(trimmed), "json")
		trimmed = strings.TrimSpace(trimmed)
		if idx := strings.LastIndex(trimmed, "```"); idx >= 0 {
			trimmed = trimmed[:idx]
		}
		trimmed = strings.TrimSpace(trimmed)
	}

	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start == -1 || end == -1 || end <= start {
		return ""
	}

	return trimmed[start : end+1]
}
