package main

import (
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig([]string{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Addr != "127.0.0.1:5000" {
		t.Errorf("expected default addr 127.0.0.1:5000, got %s", cfg.Addr)
	}
	if cfg.Store != "memory" {
		t.Errorf("expected memory store, got %s", cfg.Store)
	}
	if cfg.ChatTimeout != 60*time.Second {
		t.Errorf("expected default chat timeout of 60s, got %v", cfg.ChatTimeout)
	}
	if cfg.ChatRPS != 0 {
		t.Errorf("expected unlimited chat rps, got %v", cfg.ChatRPS)
	}
	if cfg.GeminiModel != "gemini-2.5-flash" {
		t.Errorf("expected default model, got %s", cfg.GeminiModel)
	}
	if cfg.MQTTBroker != "" || cfg.MQTTTopic != "wattwise" {
		t.Errorf("unexpected MQTT defaults: %q %q", cfg.MQTTBroker, cfg.MQTTTopic)
	}
	if cfg.RatesPath != "" {
		t.Errorf("expected no rates file, got %s", cfg.RatesPath)
	}
}

func TestLoadConfig_Addr(t *testing.T) {
	t.Run("port from env", func(t *testing.T) {
		t.Setenv("WATTWISE_PORT", "5050")
		cfg, err := LoadConfig(nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.Addr != "127.0.0.1:5050" {
			t.Errorf("got %s", cfg.Addr)
		}
	})

	t.Run("addr env wins over port", func(t *testing.T) {
		t.Setenv("WATTWISE_PORT", "5050")
		t.Setenv("WATTWISE_ADDR", "0.0.0.0:9000")
		cfg, err := LoadConfig(nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.Addr != "0.0.0.0:9000" {
			t.Errorf("got %s", cfg.Addr)
		}
	})

	t.Run("flag wins over env", func(t *testing.T) {
		t.Setenv("WATTWISE_ADDR", "0.0.0.0:9000")
		cfg, err := LoadConfig([]string{"-addr", "127.0.0.1:7000"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.Addr != "127.0.0.1:7000" {
			t.Errorf("got %s", cfg.Addr)
		}
	})
}

func TestLoadConfig_RelativePathsResolved(t *testing.T) {
	cfg, err := LoadConfig([]string{"-store", "sqlite", "-db", "data/w.db", "-rates", "rates.yaml"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !filepath.IsAbs(cfg.DBPath) || !strings.HasSuffix(cfg.DBPath, filepath.Join("data", "w.db")) {
		t.Errorf("DBPath = %s", cfg.DBPath)
	}
	if !filepath.IsAbs(cfg.RatesPath) {
		t.Errorf("RatesPath = %s", cfg.RatesPath)
	}
}

func TestLoadConfig_Validation(t *testing.T) {
	tests := []struct {
		name        string
		args        []string
		envVars     map[string]string
		expectError bool
		errorSubstr string
	}{
		{
			name: "redis store",
			args: []string{"-store", "REDIS", "-redis", "localhost:6379"},
		},
		{
			name:        "unknown store",
			args:        []string{"-store", "postgres"},
			expectError: true,
			errorSubstr: "unsupported store",
		},
		{
			name:        "empty addr",
			args:        []string{"-addr", " "},
			expectError: true,
			errorSubstr: "addr cannot be empty",
		},
		{
			name:        "zero chat timeout from flag",
			args:        []string{"-chat-timeout", "0s"},
			expectError: true,
			errorSubstr: "chat timeout must be positive",
		},
		{
			name:        "invalid chat timeout from flag",
			args:        []string{"-chat-timeout", "soon"},
			expectError: true,
			errorSubstr: "invalid chat timeout",
		},
		{
			name:        "invalid chat timeout from env",
			envVars:     map[string]string{"WATTWISE_CHAT_TIMEOUT": "soon"},
			expectError: true,
			errorSubstr: "invalid WATTWISE_CHAT_TIMEOUT",
		},
		{
			name:        "negative chat timeout from env",
			envVars:     map[string]string{"WATTWISE_CHAT_TIMEOUT": "-1s"},
			expectError: true,
			errorSubstr: "WATTWISE_CHAT_TIMEOUT must be positive",
		},
		{
			name:    "chat rps from env",
			envVars: map[string]string{"WATTWISE_CHAT_RPS": "0.5"},
		},
		{
			name:        "invalid chat rps from env",
			envVars:     map[string]string{"WATTWISE_CHAT_RPS": "fast"},
			expectError: true,
			errorSubstr: "invalid WATTWISE_CHAT_RPS",
		},
		{
			name:        "negative chat rps",
			args:        []string{"-chat-rps", "-1"},
			expectError: true,
			errorSubstr: "chat rps cannot be negative",
		},
		{
			name:        "unknown log level",
			args:        []string{"-log-level", "loud"},
			expectError: true,
			errorSubstr: "unknown log level",
		},
		{
			name:        "unknown log format",
			envVars:     map[string]string{"WATTWISE_LOG_FORMAT": "xml"},
			expectError: true,
			errorSubstr: "unsupported log format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}

			_, err := LoadConfig(tt.args)

			if tt.expectError {
				if err == nil {
					t.Errorf("expected error containing %q, got nil", tt.errorSubstr)
				} else if !strings.Contains(err.Error(), tt.errorSubstr) {
					t.Errorf("expected error containing %q, got %q", tt.errorSubstr, err.Error())
				}
			} else if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}
