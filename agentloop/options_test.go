package agentloop

import (
	"strings"
	"testing"
	"time"
)

func TestOptionsFromMap(t *testing.T) {
	opts, err := OptionsFromMap(map[string]any{
		"model":              "claude-sonnet-4-5",
		"api":                "anthropic",
		"apiKey":             "key123",
		"apiTimeout":         "30s",
		"maxTokens":          2048,
		"maxTurns":           10,
		"maxToolCalls":       5,
		"maxToolCallRetries": 2,
		"summarize":          true,
		"secrets":            map[string]any{"TOKEN": "t"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opts.Model != "claude-sonnet-4-5" || opts.API != "anthropic" {
		t.Errorf("unexpected options %+v", opts)
	}
	if opts.APITimeout != 30*time.Second {
		t.Errorf("expected 30s timeout, got %v", opts.APITimeout)
	}
	if opts.MaxTokens != 2048 || opts.MaxTurns != 10 || opts.MaxToolCalls != 5 || opts.MaxToolCallRetries != 2 {
		t.Errorf("budget options lost: %+v", opts)
	}
	if !opts.Summarize {
		t.Error("summarize lost")
	}
	if opts.Secrets["TOKEN"] != "t" {
		t.Errorf("secrets lost: %v", opts.Secrets)
	}
}

func TestOptionsFromMapRejectsUnknownKeys(t *testing.T) {
	_, err := OptionsFromMap(map[string]any{
		"model":    "gpt-4o",
		"maxTurnz": 5,
	})
	if err == nil {
		t.Fatal("expected error for unknown option key")
	}
	if !strings.Contains(err.Error(), "maxTurnz") {
		t.Errorf("error should name the offending key, got %v", err)
	}
}
