// Package hook turns Claude Code hook payloads into chronicle events.
package hook

import (
	"encoding/json"
	"fmt"
	"io"
)

// Input is the common subset of the JSON a hook receives on stdin.
type Input struct {
	SessionID     string `json:"session_id"`
	CWD           string `json:"cwd"`
	HookEventName string `json:"hook_event_name"`

	// PostToolUse
	ToolName     string         `json:"tool_name"`
	ToolInput    map[string]any `json:"tool_input"`
	ToolResponse map[string]any `json:"tool_response"`
}

// ReadInputFrom parses hook input from r. Empty input yields a zero Input.
func ReadInputFrom(r io.Reader) (*Input, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read stdin: %w", err)
	}
	if len(data) == 0 {
		return &Input{}, nil
	}

	var input Input
	if err := json.Unmarshal(data, &input); err != nil {
		return nil, fmt.Errorf("parse input: %w", err)
	}
	return &input, nil
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}
