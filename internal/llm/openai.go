package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"
)

// gateway backed by the OpenAI chat completions API (or any compatible host)
type OpenAIGateway struct {
	client  *openai.Client
	config  GatewayConfig
	limiter *rate.Limiter
}

func NewOpenAIGateway(config GatewayConfig) *OpenAIGateway {
	if config.MaxTokens == 0 {
		config.MaxTokens = defaultMaxTokens
	}

	if config.Temperature == 0 {
		config.Temperature = defaultTemperature
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}

	return &OpenAIGateway{
		client:  openai.NewClientWithConfig(clientConfig),
		config:  config,
		limiter: newLimiter(config),
	}
}

func (g *OpenAIGateway) Model() string {
	return g.config.Model
}

func (g *OpenAIGateway) Complete(ctx context.Context, prompt string, opts Options) (string, error) {
	if err := g.wait(ctx); err != nil {
		return "", err
	}

	resp, err := g.client.CreateChatCompletion(ctx, g.buildRequest(prompt, opts, false))
	if err != nil {
		return "", translateOpenAIError(err)
	}

	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}

	out := strings.TrimSpace(resp.Choices[0].Message.Content)
	if out == "" {
		return "", ErrEmptyResponse
	}

	return out, nil
}

func (g *OpenAIGateway) Stream(ctx context.Context, prompt string, opts Options, onToken func(string)) (string, error) {
	if err := g.wait(ctx); err != nil {
		return "", err
	}

	stream, err := g.client.CreateChatCompletionStream(ctx, g.buildRequest(prompt, opts, true))
	if err != nil {
		return "", translateOpenAIError(err)
	}

	defer stream.Close() //nolint:errcheck

	var text strings.Builder

	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return text.String(), translateOpenAIError(err)
		}

		if len(chunk.Choices) == 0 {
			continue
		}

		delta := chunk.Choices[0].Delta.Content
		if delta == "" {
			continue
		}

		text.WriteString(delta)

		if onToken != nil {
			onToken(delta)
		}
	}

	out := strings.TrimSpace(text.String())
	if out == "" {
		return "", ErrEmptyResponse
	}

	return out, nil
}

func (g *OpenAIGateway) buildRequest(prompt string, opts Options, stream bool) openai.ChatCompletionRequest {
	var messages []openai.ChatCompletionMessage

	if opts.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: opts.System,
		})
	}

	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: prompt,
	})

	maxTokens := opts.MaxTokens
	if maxTokens == 0 {
		maxTokens = g.config.MaxTokens
	}

	temperature := g.config.Temperature
	if opts.Temperature != nil {
		temperature = *opts.Temperature
	}

	req := openai.ChatCompletionRequest{
		Model:       g.config.Model,
		Messages:    messages,
		MaxTokens:   maxTokens,
		Temperature: temperature,
		Stream:      stream,
	}

	if opts.JSON {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	return req
}

func (g *OpenAIGateway) wait(ctx context.Context) error {
	if g.limiter == nil {
		return nil
	}

	if err := g.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter error: %w", err)
	}

	return nil
}

// maps go-openai errors onto StatusError so rate limits are detected the same
// way for every provider
func translateOpenAIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode != 0 {
		return &StatusError{Provider: ProviderOpenAI, StatusCode: apiErr.HTTPStatusCode, Body: apiErr.Message}
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode != 0 {
		body := http.StatusText(reqErr.HTTPStatusCode)
		if reqErr.Err != nil {
			body = reqErr.Err.Error()
		}

		return &StatusError{Provider: ProviderOpenAI, StatusCode: reqErr.HTTPStatusCode, Body: body}
	}

	return fmt.Errorf("openai request failed: %w", err)
}
