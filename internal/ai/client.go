package ai

import (
	"context"
	"errors"
)

// ErrUnavailable возвращается, когда генерация текста не настроена (нет ключа API).
var ErrUnavailable = errors.New("text generation unavailable")

const defaultMaxTokens = 1024

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest описывает один вызов модели. JSON просит провайдера вернуть JSON-объект.
type ChatRequest struct {
	Messages []Message
	JSON     bool
}

type Client interface {
	Chat(ctx context.Context, request ChatRequest) (string, []byte, error)
}

func resolveMaxTokens(value int) int {
	if value > 0 {
		return value
	}

	return defaultMaxTokens
}

func splitSystem(messages []Message) (string, []Message) {
	var system string
	rest := make([]Message, 0, len(messages))
	for _, message := range messages {
		if message.Role == "system" {
			if system != "" {
				system += "\n"
			}
			system += message.Content
			continue
		}
		rest = append(rest, message)
	}
	return system, rest
}
