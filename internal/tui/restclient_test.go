package tui

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apiagent "codeberg.org/scribe/server/api/rest/agent"
	"codeberg.org/scribe/server/internal/stream"
)

func TestReadEvents(t *testing.T) {
	raw := ": keepalive\n\n" +
		"event:message\ndata:{\"label\":\"PROCESSING\"}\n\n" +
		"event: multi\ndata: line one\ndata: line two\n\n" +
		"event:done\ndata:[DONE]\n\n" +
		"event:ignored\ndata:after done\n\n"

	type got struct{ event, data string }
	var events []got

	err := readEvents(strings.NewReader(raw), func(event, data string) (bool, error) {
		events = append(events, got{event, data})
		return event != "done", nil
	})

	require.NoError(t, err)
	assert.Equal(t, []got{
		{"message", `{"label":"PROCESSING"}`},
		{"multi", "line one\nline two"},
		{"done", "[DONE]"},
	}, events)
}

func newSSEServer(t *testing.T, handler http.HandlerFunc) *AgentClient {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewAgentClient(Config{Endpoint: srv.URL + "/", Token: "tok"})
}

func writeEvent(t *testing.T, w http.ResponseWriter, event string, v any) {
	t.Helper()

	raw, err := json.Marshal(v)
	require.NoError(t, err)

	fmt.Fprintf(w, "event:%s\ndata:%s\n\n", event, raw)
}

func TestAgentClientChat(t *testing.T) {
	client := newSSEServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, chatPath, r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))

		var req apiagent.ChatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "목차를 만들어줘", req.Message)
		assert.Equal(t, "doc-1", req.Context.DocumentID)

		w.Header().Set("Content-Type", "text/event-stream")
		writeEvent(t, w, "message", stream.Message{Label: stream.LabelProcessing, Content: "분석 중"})
		writeEvent(t, w, "message", stream.Message{Label: stream.LabelIndexContent, Content: "# 1. 개요\n## 1.1 배경"})
		writeEvent(t, w, "result", apiagent.ResultEvent{RequestID: "req-1"})
		fmt.Fprint(w, "event:done\ndata:[DONE]\n\n")
	})

	var messages []stream.Message
	result, err := client.Chat(context.Background(), apiagent.ChatRequest{
		Message: "목차를 만들어줘",
		Context: apiagent.ChatContext{DocumentID: "doc-1"},
	}, func(msg stream.Message) {
		messages = append(messages, msg)
	})

	require.NoError(t, err)
	assert.Equal(t, "req-1", result.RequestID)
	require.Len(t, messages, 2)
	assert.Equal(t, "# 1. 개요\n## 1.1 배경", messages[1].Content)
}

func TestAgentClientChatErrorResponse(t *testing.T) {
	client := newSSEServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"error":"too_many_requests","message":"slow down"}`)
	})

	_, err := client.Chat(context.Background(), apiagent.ChatRequest{Message: "hi"}, nil)

	require.Error(t, err)
	assert.Equal(t, "too_many_requests: slow down", err.Error())
}

func TestAgentClientChatWithoutResult(t *testing.T) {
	client := newSSEServer(t, func(w http.ResponseWriter, _ *http.Request) {
		writeEvent(t, w, "message", stream.Message{Label: stream.LabelProcessing})
	})

	_, err := client.Chat(context.Background(), apiagent.ChatRequest{Message: "hi"}, nil)
	assert.ErrorContains(t, err, "without a result")
}

func TestAgentClientStartDeliversTeaMessages(t *testing.T) {
	client := newSSEServer(t, func(w http.ResponseWriter, _ *http.Request) {
		writeEvent(t, w, "message", stream.Message{Label: stream.LabelFinal, Content: "안녕하세요"})
		writeEvent(t, w, "result", apiagent.ResultEvent{RequestID: "req-2"})
	})

	events := client.Start(context.Background(), apiagent.ChatRequest{Message: "hi"})

	first := waitForEvent(events)()
	require.IsType(t, agentEventMsg{}, first)
	assert.Equal(t, "안녕하세요", first.(agentEventMsg).message.Content)

	second := waitForEvent(events)()
	require.IsType(t, agentResultMsg{}, second)
	assert.Equal(t, "req-2", second.(agentResultMsg).event.RequestID)

	assert.IsType(t, streamClosedMsg{}, waitForEvent(events)())
}
