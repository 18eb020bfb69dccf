package llm

import "testing"

func TestAPIForModel(t *testing.T) {
	cases := []struct {
		model string
		api   string
	}{
		{"gpt-4o", APIOpenAIResponses},
		{"o3-mini", APIOpenAIResponses},
		{"claude-sonnet-4-5", APIAnthropic},
		{"gemini-2.5-pro", APIGoogle},
		{"llama-3", ""},
	}
	for _, tc := range cases {
		if got := APIForModel(tc.model); got != tc.api {
			t.Errorf("APIForModel(%q) = %q, want %q", tc.model, got, tc.api)
		}
	}
}

func TestForAPI(t *testing.T) {
	for _, api := range []string{APIOpenAIResponses, APIOpenAIChat, APIAnthropic, APIGoogle} {
		provider, err := ForAPI(api)
		if err != nil {
			t.Fatalf("ForAPI(%q): %v", api, err)
		}
		if provider.Name() != api {
			t.Errorf("ForAPI(%q).Name() = %q", api, provider.Name())
		}
	}

	_, err := ForAPI("smoke-signals")
	if err == nil {
		t.Fatal("expected error for unknown api")
	}
	if _, ok := err.(*ConfigurationError); !ok {
		t.Errorf("expected ConfigurationError, got %T", err)
	}
}
