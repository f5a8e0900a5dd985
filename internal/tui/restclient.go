package tui

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	apiagent "codeberg.org/scribe/server/api/rest/agent"
	"codeberg.org/scribe/server/internal/errors"
	"codeberg.org/scribe/server/internal/stream"
)

const (
	chatPath = "/api/v1/agent/chat"

	// largest single SSE line; a section of document text fits comfortably
	maxEventLine = 1 << 20

	eventBuffer = 32
)

// manages SSE requests to the agent REST API
type AgentClient struct {
	endpoint   string
	token      string
	httpClient *http.Client
}

// creates a new agent client. no client timeout: runs are bounded by ctx
func NewAgentClient(cfg Config) *AgentClient {
	return &AgentClient{
		endpoint:   strings.TrimRight(cfg.Endpoint, "/"),
		token:      cfg.Token,
		httpClient: &http.Client{},
	}
}

// sends a chat request and calls onMessage for every streamed message until
// the server sends its result
func (c *AgentClient) Chat(ctx context.Context, req apiagent.ChatRequest, onMessage func(stream.Message)) (*apiagent.ResultEvent, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+chatPath, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	if c.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body) //nolint:errcheck

		var errResp errors.ErrorResponse
		if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != "" {
			return nil, fmt.Errorf("%s: %s", errResp.Error, errResp.Message)
		}

		return nil, fmt.Errorf("request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var result *apiagent.ResultEvent

	err = readEvents(resp.Body, func(event, data string) (bool, error) {
		switch event {
		case "message":
			var msg stream.Message
			if err := json.Unmarshal([]byte(data), &msg); err != nil {
				return false, fmt.Errorf("failed to parse message event: %w", err)
			}

			if onMessage != nil {
				onMessage(msg)
			}

		case "result":
			result = &apiagent.ResultEvent{}
			if err := json.Unmarshal([]byte(data), result); err != nil {
				return false, fmt.Errorf("failed to parse result event: %w", err)
			}

		case "done":
			return false, nil
		}

		return true, nil
	})
	if err != nil {
		return nil, err
	}

	if result == nil {
		return nil, fmt.Errorf("stream ended without a result")
	}

	return result, nil
}

// runs Chat in the background and delivers its events as tea messages. the
// channel is closed after the result or error message
func (c *AgentClient) Start(ctx context.Context, req apiagent.ChatRequest) <-chan tea.Msg {
	out := make(chan tea.Msg, eventBuffer)

	go func() {
		defer close(out)

		result, err := c.Chat(ctx, req, func(msg stream.Message) {
			out <- agentEventMsg{message: msg}
		})
		if err != nil {
			out <- agentErrorMsg{err: err}
			return
		}

		out <- agentResultMsg{event: *result}
	}()

	return out
}

// waits for the next event of a run
func waitForEvent(events <-chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-events
		if !ok {
			return streamClosedMsg{}
		}

		return msg
	}
}

// parses a server-sent event stream, calling handle once per event until it
// returns false
func readEvents(r io.Reader, handle func(event, data string) (bool, error)) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxEventLine)

	var event string
	var data []string

	for scanner.Scan() {
		line := scanner.Text()

		switch {
		case line == "":
			if event == "" && len(data) == 0 {
				continue
			}

			more, err := handle(event, strings.Join(data, "\n"))
			if err != nil || !more {
				return err
			}

			event, data = "", nil

		case strings.HasPrefix(line, ":"):
			// comment

		case strings.HasPrefix(line, "event:"):
			event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))

		case strings.HasPrefix(line, "data:"):
			data = append(data, strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read event stream: %w", err)
	}

	return nil
}
