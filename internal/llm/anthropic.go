package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	anthropicBaseURL   = "https://api.anthropic.com"
	anthropicVersion   = "2023-06-01"
	defaultMaxTokens   = 1024
	defaultTemperature = 0.3

	// the Messages API has no response_format; JSON output is requested in the system prompt
	jsonOnlyInstruction = "Respond with a single valid JSON object. Do not wrap it in markdown or add any other text."
)

// shared HTTP client for Anthropic API calls. no overall timeout: section
// generation responses can take minutes and the caller's ctx bounds the call
var anthropicHTTPClient = &http.Client{
	Transport: &http.Transport{
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 120 * time.Second,
	},
}

type messagesRequest struct {
	Model       string    `json:"model"`
	MaxTokens   int       `json:"max_tokens"`
	System      string    `json:"system,omitempty"`
	Messages    []message `json:"messages"`
	Temperature float32   `json:"temperature"`
	Stream      bool      `json:"stream,omitempty"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesResponse struct {
	ID      string    `json:"id"`
	Type    string    `json:"type"`
	Role    string    `json:"role"`
	Content []content `json:"content"`
	Model   string    `json:"model"`
	Usage   struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

type content struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// one "data:" payload of the messages stream
type streamEvent struct {
	Type  string `json:"type"`
	Delta struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"delta"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

type AnthropicGateway struct {
	config     GatewayConfig
	httpClient *http.Client
	limiter    *rate.Limiter
	endpoint   string
}

func NewAnthropicGateway(config GatewayConfig) *AnthropicGateway {
	if config.MaxTokens == 0 {
		config.MaxTokens = defaultMaxTokens
	}

	if config.Temperature == 0 {
		config.Temperature = defaultTemperature
	}

	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = anthropicBaseURL
	}

	return &AnthropicGateway{
		config:     config,
		httpClient: anthropicHTTPClient,
		limiter:    newLimiter(config),
		endpoint:   strings.TrimRight(baseURL, "/") + "/v1/messages",
	}
}

func (g *AnthropicGateway) Model() string {
	return g.config.Model
}

func (g *AnthropicGateway) Complete(ctx context.Context, prompt string, opts Options) (string, error) {
	resp, err := g.send(ctx, g.buildRequest(prompt, opts, false))
	if err != nil {
		return "", err
	}

	defer resp.Body.Close() //nolint:errcheck

	var apiResp messagesResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	var text strings.Builder
	for _, block := range apiResp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	out := strings.TrimSpace(text.String())
	if out == "" {
		return "", ErrEmptyResponse
	}

	return out, nil
}

func (g *AnthropicGateway) Stream(ctx context.Context, prompt string, opts Options, onToken func(string)) (string, error) {
	resp, err := g.send(ctx, g.buildRequest(prompt, opts, true))
	if err != nil {
		return "", err
	}

	defer resp.Body.Close() //nolint:errcheck

	var text strings.Builder

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data:") {
			continue
		}

		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == "" {
			continue
		}

		var event streamEvent
		if err := json.Unmarshal([]byte(payload), &event); err != nil {
			return text.String(), fmt.Errorf("failed to decode stream event: %w", err)
		}

		switch event.Type {
		case "content_block_delta":
			if event.Delta.Type != "text_delta" || event.Delta.Text == "" {
				continue
			}

			text.WriteString(event.Delta.Text)

			if onToken != nil {
				onToken(event.Delta.Text)
			}
		case "error":
			msg := "unknown stream error"
			if event.Error != nil {
				msg = event.Error.Type + ": " + event.Error.Message
			}

			if strings.Contains(msg, "overloaded") || strings.Contains(msg, "rate_limit") {
				return text.String(), fmt.Errorf("%w: %s", ErrRateLimited, msg)
			}

			return text.String(), fmt.Errorf("stream error: %s", msg)
		case "message_stop":
			return g.finishStream(text.String())
		}
	}

	if err := scanner.Err(); err != nil {
		return text.String(), fmt.Errorf("failed to read stream: %w", err)
	}

	return g.finishStream(text.String())
}

func (g *AnthropicGateway) finishStream(text string) (string, error) {
	out := strings.TrimSpace(text)
	if out == "" {
		return "", ErrEmptyResponse
	}

	return out, nil
}

func (g *AnthropicGateway) buildRequest(prompt string, opts Options, stream bool) messagesRequest {
	maxTokens := opts.MaxTokens
	if maxTokens == 0 {
		maxTokens = g.config.MaxTokens
	}

	temperature := g.config.Temperature
	if opts.Temperature != nil {
		temperature = *opts.Temperature
	}

	system := opts.System
	if opts.JSON {
		system = strings.TrimSpace(system + "\n\n" + jsonOnlyInstruction)
	}

	return messagesRequest{
		Model:       g.config.Model,
		MaxTokens:   maxTokens,
		System:      system,
		Temperature: temperature,
		Stream:      stream,
		Messages: []message{
			{Role: "user", Content: prompt},
		},
	}
}

// posts the request and returns the response when the status is 200; the
// caller owns the body
func (g *AnthropicGateway) send(ctx context.Context, reqBody messagesRequest) (*http.Response, error) {
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", g.config.APIKey)
	httpReq.Header.Set("anthropic-version", anthropicVersion)

	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("request pacing wait failed: %w", err)
		}
	}

	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()          //nolint:errcheck
		body, _ := io.ReadAll(resp.Body) //nolint:errcheck

		return nil, &StatusError{
			Provider:   ProviderAnthropic,
			StatusCode: resp.StatusCode,
			Body:       string(body),
		}
	}

	return resp, nil
}

func newLimiter(config GatewayConfig) *rate.Limiter {
	if config.RequestsPerSecond <= 0 {
		return nil
	}

	burst := config.Burst
	if burst < 1 {
		burst = 1
	}

	return rate.NewLimiter(rate.Limit(config.RequestsPerSecond), burst)
}
