package config

import (
	"reflect"
	"testing"
	"time"
)

// TestParseCSVEnv проверяет разбор списка телефонов администраторов из ENV.
func TestParseCSVEnv(t *testing.T) {
	t.Setenv("ADMIN_PHONE_NUMBERS", " +91 98765-43210, ,919876543211 ")

	got := parseCSVEnv("ADMIN_PHONE_NUMBERS")
	want := []string{"+919876543210", "919876543211"}

	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

// TestParseCSVEnvMissing проверяет поведение при отсутствии переменной.
func TestParseCSVEnvMissing(t *testing.T) {
	got := parseCSVEnv("MISSING_ENV")
	if got != nil {
		t.Fatalf("expected nil, got %v", got)
	}
}

// TestNormalizePhone проверяет нормализацию номера.
func TestNormalizePhone(t *testing.T) {
	if got := NormalizePhone("+91 (987) 654-3210"); got != "+919876543210" {
		t.Fatalf("unexpected phone: %s", got)
	}

	if got := NormalizePhone(" + "); got != "" {
		t.Fatalf("expected empty phone, got %q", got)
	}
}

// TestLoadDefaults проверяет значения по умолчанию для AI и задач.
func TestLoadDefaults(t *testing.T) {
	t.Setenv("ENV_FILE", "")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("AI_PROVIDER", "anthropic")
	t.Setenv("ANTHROPIC_API_KEY", "key")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if cfg.AI.Provider != ProviderAnthropic {
		t.Fatalf("expected anthropic provider, got %s", cfg.AI.Provider)
	}
	if cfg.AI.APIKey != "key" {
		t.Fatalf("expected provider key fallback, got %q", cfg.AI.APIKey)
	}
	if cfg.AI.Timeout != 8*time.Second {
		t.Fatalf("expected 8s ai timeout, got %s", cfg.AI.Timeout)
	}
	if cfg.Jobs.TimeZone != "Asia/Kolkata" {
		t.Fatalf("unexpected jobs timezone: %s", cfg.Jobs.TimeZone)
	}
}

// TestLoadRejectsUnknownProvider проверяет валидацию провайдера.
func TestLoadRejectsUnknownProvider(t *testing.T) {
	t.Setenv("ENV_FILE", "")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("AI_PROVIDER", "openai")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}

// TestParseListEnv проверяет разбор списка Origin для WebSocket.
func TestParseListEnv(t *testing.T) {
	t.Setenv("WS_ALLOWED_ORIGINS", "https://app.example.com, ,http://localhost:3000")

	got := parseListEnv("WS_ALLOWED_ORIGINS")
	want := []string{"https://app.example.com", "http://localhost:3000"}

	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}
