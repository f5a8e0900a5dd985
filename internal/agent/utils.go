package agent

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var errEmptyModelOutput = errors.New("empty model output")

// removes a fenced code block wrapper: when the text opens with a fence the
// first and last lines are dropped
func stripCodeFence(raw string) string {
	text := strings.TrimSpace(raw)
	if !strings.HasPrefix(text, "```") {
		return text
	}

	lines := strings.Split(text, "\n")
	if len(lines) < 2 {
		return ""
	}

	lines = lines[1:]
	if strings.HasPrefix(strings.TrimSpace(lines[len(lines)-1]), "```") {
		lines = lines[:len(lines)-1]
	}

	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// decodes exactly one JSON object from model output into v
func decodeModelJSON(raw string, v any) error {
	text := stripCodeFence(raw)
	if text == "" {
		return errEmptyModelOutput
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(text)))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}

	if dec.More() {
		return errors.New("invalid JSON: trailing data after object")
	}

	return nil
}

// returns the last n messages of the history
func tail(history []Message, n int) []Message {
	if len(history) <= n {
		return history
	}

	return history[len(history)-n:]
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}

	return string(runes[:limit]) + "..."
}
