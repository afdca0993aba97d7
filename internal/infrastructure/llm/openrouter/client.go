// Package openrouter talks to an OpenAI-compatible chat completions
// API. The same client backs both the answer model and the cheaper
// query rewrite model, which differ only in the model identifier.
package openrouter

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/kkucdk/assistant-backend/internal/infrastructure/resilience"
)

type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	executor   *resilience.Executor
}

func New(baseURL, apiKey string, logger *slog.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 120 * time.Second},
		executor: resilience.NewExecutor("openrouter", resilience.Policy{
			Classify: resilience.ClassifyHTTP,
		}, logger),
	}
}

// Generator produces completions with one specific model. Build one
// per model from a shared Client so they share the circuit breaker.
type Generator struct {
	client      *Client
	model       string
	temperature float64
}

func NewGenerator(client *Client, model string, temperature float64) *Generator {
	return &Generator{client: client, model: model, temperature: temperature}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	Stream      bool          `json:"stream"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (g *Generator) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	request := chatRequest{
		Model:       g.model,
		Temperature: g.temperature,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
	}

	var response chatResponse
	err := g.client.executor.Execute(ctx, "chat", func(ctx context.Context) error {
		response = chatResponse{}
		return g.client.postJSON(ctx, "/chat/completions", request, &response, "chat")
	})
	if err != nil {
		return "", err
	}
	if response.Error != nil {
		return "", fmt.Errorf("openrouter chat: %s", response.Error.Message)
	}
	if len(response.Choices) == 0 {
		return "", fmt.Errorf("openrouter chat: empty choices for model %s", g.model)
	}
	return strings.TrimSpace(response.Choices[0].Message.Content), nil
}
