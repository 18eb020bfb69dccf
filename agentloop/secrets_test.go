package agentloop

import (
	"reflect"
	"testing"
)

func TestSubstituteSecrets(t *testing.T) {
	secrets := map[string]string{"API_TOKEN": "tok-123", "USER": "alice"}
	args := map[string]any{
		"header": "Bearer %API_TOKEN%",
		"nested": map[string]any{"who": "%USER%"},
		"list":   []any{"%API_TOKEN%", 42},
		"count":  7,
	}

	out := substituteSecrets(args, secrets)

	if out["header"] != "Bearer tok-123" {
		t.Errorf("unexpected header %v", out["header"])
	}
	if out["nested"].(map[string]any)["who"] != "alice" {
		t.Errorf("nested substitution failed: %v", out["nested"])
	}
	list := out["list"].([]any)
	if list[0] != "tok-123" || list[1] != 42 {
		t.Errorf("list substitution failed: %v", list)
	}
	if out["count"] != 7 {
		t.Errorf("non-string values must pass through, got %v", out["count"])
	}
}

func TestSubstituteSecretsUnknownTokenVerbatim(t *testing.T) {
	out := substituteSecrets(map[string]any{"v": "use %UNKNOWN% here"}, map[string]string{"OTHER": "x"})
	if out["v"] != "use %UNKNOWN% here" {
		t.Errorf("unknown tokens must stay verbatim, got %v", out["v"])
	}
}

func TestSubstituteSecretsDoesNotMutateInput(t *testing.T) {
	args := map[string]any{"v": "%NAME%"}
	original := map[string]any{"v": "%NAME%"}

	substituteSecrets(args, map[string]string{"NAME": "value"})

	if !reflect.DeepEqual(args, original) {
		t.Errorf("input arguments were mutated: %v", args)
	}
}

func TestSubstituteSecretsNoSecretsCopies(t *testing.T) {
	args := map[string]any{"v": "%NAME%"}
	out := substituteSecrets(args, nil)
	if out["v"] != "%NAME%" {
		t.Errorf("expected verbatim value, got %v", out["v"])
	}
	out["extra"] = true
	if _, ok := args["extra"]; ok {
		t.Error("returned map must not alias the input")
	}
}
