package agentloop

import (
	"encoding/json"
	"fmt"
	"slices"

	"github.com/invopop/jsonschema"
	"github.com/mitchellh/mapstructure"

	"github.com/lowire-dev/lowire/llm"
)

// isDoneProperty is the completion-signal argument injected into every
// tool schema. A tool call carrying it as true, whose result is not an
// error, ends the run with status ok.
const isDoneProperty = "_is_done"

const isDoneDescription = "Whether the task is complete. If false, agentic loop will continue to perform the task."

// WrapTools returns the caller's tools with the completion-signal
// property added to each input schema. The originals are not mutated:
// each tool and its schema are shallow-copied. Wrapping is idempotent,
// so a wrapped list can safely be wrapped again.
func WrapTools(tools []llm.Tool) []llm.Tool {
	wrapped := make([]llm.Tool, len(tools))
	for i, tool := range tools {
		wrapped[i] = wrapTool(tool)
	}
	return wrapped
}

func wrapTool(tool llm.Tool) llm.Tool {
	props := make(map[string]any, len(tool.InputSchema.Properties)+1)
	for k, v := range tool.InputSchema.Properties {
		props[k] = v
	}
	props[isDoneProperty] = map[string]any{
		"type":        "boolean",
		"description": isDoneDescription,
	}

	required := slices.Clone(tool.InputSchema.Required)
	if !slices.Contains(required, isDoneProperty) {
		required = append(required, isDoneProperty)
	}

	tool.InputSchema = llm.Schema{
		Type:       tool.InputSchema.Type,
		Properties: props,
		Required:   required,
	}
	return tool
}

// signalsDone reports whether the arguments carry the completion signal.
func signalsDone(arguments map[string]any) bool {
	done, ok := arguments[isDoneProperty].(bool)
	return ok && done
}

// NewTool reflects a Go struct type into a tool definition. Field names
// and descriptions come from json and jsonschema struct tags.
func NewTool[T any](name, description string) (llm.Tool, error) {
	reflector := jsonschema.Reflector{
		Anonymous:      true,
		DoNotReference: true,
	}
	reflected := reflector.Reflect(new(T))

	raw, err := json.Marshal(reflected)
	if err != nil {
		return llm.Tool{}, fmt.Errorf("reflect schema for tool %q: %w", name, err)
	}
	var schema llm.Schema
	if err := json.Unmarshal(raw, &schema); err != nil {
		return llm.Tool{}, fmt.Errorf("reflect schema for tool %q: %w", name, err)
	}
	if schema.Type == "" {
		schema.Type = "object"
	}

	return llm.Tool{Name: name, Description: description, InputSchema: schema}, nil
}

// DecodeArguments decodes a tool call's argument map into a typed
// struct, matching fields by their json tags. The reserved control keys
// the loop injects are ignored.
func DecodeArguments[T any](arguments map[string]any) (T, error) {
	var out T
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:  &out,
		TagName: "json",
	})
	if err != nil {
		return out, err
	}
	if err := decoder.Decode(arguments); err != nil {
		return out, fmt.Errorf("invalid tool arguments: %w", err)
	}
	return out, nil
}
