package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Port != "8080" {
		t.Errorf("Expected default port 8080, got %q", cfg.Port)
	}
	if cfg.DBPath != "./data/tienda.db" {
		t.Errorf("Expected default db path, got %q", cfg.DBPath)
	}
	if cfg.Classifier.Model != "gemini-1.5-flash" {
		t.Errorf("Expected default model, got %q", cfg.Classifier.Model)
	}
	if cfg.RateLimit.RequestsPerWindow != 10 || cfg.RateLimit.WindowDuration != time.Minute {
		t.Errorf("Unexpected rate limit defaults: %+v", cfg.RateLimit)
	}
	if !cfg.ConversationLog.Enabled || cfg.ConversationLog.QueueSize != 1000 {
		t.Errorf("Unexpected conversation log defaults: %+v", cfg.ConversationLog)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9999")
	t.Setenv("GOOGLE_AI_API_KEY", "test-key")
	t.Setenv("CHAT_RATE_LIMIT", "3")
	t.Setenv("CHAT_RATE_WINDOW", "30s")
	t.Setenv("CONVERSATION_LOG_ENABLED", "false")
	t.Setenv("CLASSIFIER_TIMEOUT", "5s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Port != "9999" {
		t.Errorf("Expected overridden port, got %q", cfg.Port)
	}
	if !cfg.AIEnabled() {
		t.Error("Expected AI enabled with api key set")
	}
	if cfg.RateLimit.RequestsPerWindow != 3 || cfg.RateLimit.WindowDuration != 30*time.Second {
		t.Errorf("Unexpected rate limit: %+v", cfg.RateLimit)
	}
	if cfg.ConversationLog.Enabled {
		t.Error("Expected conversation log disabled")
	}
	if cfg.Classifier.Timeout != 5*time.Second {
		t.Errorf("Expected 5s classifier timeout, got %v", cfg.Classifier.Timeout)
	}
}

func TestLoadIgnoresMalformedValues(t *testing.T) {
	t.Setenv("CHAT_RATE_LIMIT", "not-a-number")
	t.Setenv("CHAT_RATE_WINDOW", "-5s")
	t.Setenv("CONVERSATION_LOG_ENABLED", "maybe")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.RateLimit.RequestsPerWindow != 10 {
		t.Errorf("Expected fallback rate limit, got %d", cfg.RateLimit.RequestsPerWindow)
	}
	if cfg.RateLimit.WindowDuration != time.Minute {
		t.Errorf("Expected fallback window, got %v", cfg.RateLimit.WindowDuration)
	}
	if !cfg.ConversationLog.Enabled {
		t.Error("Expected fallback conversation log setting")
	}
}

func TestValidate(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	cfg.Port = ""
	if err := cfg.Validate(); err == nil {
		t.Error("Expected error for empty port")
	}

	cfg, _ = Load()
	cfg.RateLimit.RequestsPerWindow = 0
	if err := cfg.Validate(); err == nil {
		t.Error("Expected error for zero rate limit")
	}
}

func TestIsDevelopment(t *testing.T) {
	cases := []struct {
		frontendURL string
		want        bool
	}{
		{"", true},
		{"http://localhost:5173", true},
		{"http://127.0.0.1:5173", true},
		{"https://tienda.example.com", false},
	}
	for _, tc := range cases {
		cfg := &Config{FrontendURL: tc.frontendURL}
		if got := cfg.IsDevelopment(); got != tc.want {
			t.Errorf("IsDevelopment(%q) = %v, want %v", tc.frontendURL, got, tc.want)
		}
	}
}
