package agentloop

import (
	"testing"
	"time"
)

func TestOptionsFromEnv(t *testing.T) {
	t.Setenv("LOWIRE_MODEL", "claude-sonnet-4-5")
	t.Setenv("LOWIRE_API", "anthropic")
	t.Setenv("LOWIRE_API_KEY", "key123")
	t.Setenv("LOWIRE_API_TIMEOUT_MS", "45000")
	t.Setenv("LOWIRE_MAX_TOKENS", "4096")
	t.Setenv("LOWIRE_MAX_TURNS", "7")
	t.Setenv("LOWIRE_TEMPERATURE", "0.3")
	t.Setenv("LOWIRE_SUMMARIZE", "true")

	opts := OptionsFromEnv()

	if opts.Model != "claude-sonnet-4-5" || opts.API != "anthropic" || opts.APIKey != "key123" {
		t.Errorf("unexpected options %+v", opts)
	}
	if opts.APITimeout != 45*time.Second {
		t.Errorf("expected 45s timeout, got %v", opts.APITimeout)
	}
	if opts.MaxTokens != 4096 || opts.MaxTurns != 7 {
		t.Errorf("budget options lost: %+v", opts)
	}
	if opts.Temperature == nil || *opts.Temperature != 0.3 {
		t.Errorf("temperature lost: %v", opts.Temperature)
	}
	if !opts.Summarize {
		t.Error("summarize lost")
	}
}

func TestOptionsFromEnvProviderKeyFallback(t *testing.T) {
	t.Setenv("LOWIRE_MODEL", "claude-sonnet-4-5")
	t.Setenv("LOWIRE_API_KEY", "")
	t.Setenv("ANTHROPIC_API_KEY", "anthropic-key")

	opts := OptionsFromEnv()
	if opts.APIKey != "anthropic-key" {
		t.Errorf("expected the provider key fallback, got %q", opts.APIKey)
	}
}
