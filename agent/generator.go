package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	nob "github.com/hetpatel-11/nob"
)

// TextGenerator produces one assistant reply for a conversation window.
// Implementations must be safe for sequential reuse; the controller never
// calls Generate concurrently.
type TextGenerator interface {
	Generate(ctx context.Context, systemPrompt string, turns []nob.Turn) (string, error)
}

// RateLimitError reports an upstream 429. Hint carries a remediation
// suggestion shown alongside the message.
type RateLimitError struct {
	Message string
	Hint    string
}

func (e *RateLimitError) Error() string {
	return "rate limited: " + e.Message
}

// Generator performs text generation via an OpenAI-compatible API.
type Generator struct {
	baseURL     string
	apiKey      string
	model       string
	apiType     string // "responses" or "chat_completions"
	user        string
	maxTokens   int
	temperature float64
	stop        []string
	client      *http.Client
}

// NewGenerator creates a generator from resolved config values.
func NewGenerator(cfg *nob.Config) *Generator {
	return &Generator{
		baseURL:     nob.ResolveGenerationBaseURL(cfg),
		apiKey:      nob.ResolveGenerationAPIKey(cfg),
		model:       nob.ResolveGenerationModel(cfg),
		apiType:     cfg.Generation.APIType,
		user:        cfg.Generation.User,
		maxTokens:   cfg.Generation.MaxTokens,
		temperature: cfg.Generation.Temperature,
		stop:        cfg.Generation.Stop,
		client:      &http.Client{Timeout: 60 * time.Second},
	}
}

// Generate sends the conversation to the API and returns the reply text.
// The caller bounds the request with ctx; per-request deadlines belong to
// the controller, not here.
func (g *Generator) Generate(ctx context.Context, systemPrompt string, turns []nob.Turn) (string, error) {
	if g.apiType == "chat_completions" {
		return g.generateChatCompletions(ctx, systemPrompt, turns)
	}
	return g.generateResponses(ctx, systemPrompt, turns)
}

// --- Responses API ---

type responsesRequest struct {
	Model       string           `json:"model"`
	Input       []responsesInput `json:"input"`
	MaxTokens   int              `json:"max_output_tokens,omitempty"`
	Temperature float64          `json:"temperature,omitempty"`
	Stop        []string         `json:"stop,omitempty"`
	User        string           `json:"user,omitempty"`
}

type responsesInput struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responsesResponse struct {
	Output []responsesOutput `json:"output"`
	Error  *apiError         `json:"error,omitempty"`
}

type responsesOutput struct {
	Type    string             `json:"type"`
	Content []responsesContent `json:"content,omitempty"`
}

type responsesContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

func (g *Generator) generateResponses(ctx context.Context, systemPrompt string, turns []nob.Turn) (string, error) {
	input := make([]responsesInput, 0, len(turns)+1)
	input = append(input, responsesInput{Role: "system", Content: systemPrompt})
	for _, t := range turns {
		input = append(input, responsesInput{Role: string(t.Role), Content: t.Content})
	}

	reqBody := responsesRequest{
		Model:       g.model,
		Input:       input,
		MaxTokens:   g.maxTokens,
		Temperature: g.temperature,
		Stop:        g.stop,
		User:        g.user,
	}

	body, err := g.post(ctx, "/responses", reqBody)
	if err != nil {
		return "", err
	}

	var result responsesResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("failed to parse response: %w (body: %s)", err, string(body))
	}
	if result.Error != nil {
		return "", fmt.Errorf("API error: %s", result.Error.Message)
	}

	for _, out := range result.Output {
		if out.Type == "message" {
			for _, c := range out.Content {
				if c.Type == "output_text" {
					return c.Text, nil
				}
			}
		}
	}
	return "", fmt.Errorf("no text content in response")
}

// --- Chat Completions API ---

type chatCompletionsRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature,omitempty"`
	Stop        []string      `json:"stop,omitempty"`
	User        string        `json:"user,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionsResponse struct {
	Choices []chatChoice `json:"choices"`
	Error   *apiError    `json:"error,omitempty"`
}

type chatChoice struct {
	Message chatMessage `json:"message"`
}

func (g *Generator) generateChatCompletions(ctx context.Context, systemPrompt string, turns []nob.Turn) (string, error) {
	messages := make([]chatMessage, 0, len(turns)+1)
	messages = append(messages, chatMessage{Role: "system", Content: systemPrompt})
	for _, t := range turns {
		messages = append(messages, chatMessage{Role: string(t.Role), Content: t.Content})
	}

	reqBody := chatCompletionsRequest{
		Model:       g.model,
		Messages:    messages,
		MaxTokens:   g.maxTokens,
		Temperature: g.temperature,
		Stop:        g.stop,
		User:        g.user,
	}

	body, err := g.post(ctx, "/chat/completions", reqBody)
	if err != nil {
		return "", err
	}

	var result chatCompletionsResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("failed to parse response: %w (body: %s)", err, string(body))
	}
	if result.Error != nil {
		return "", fmt.Errorf("API error: %s", result.Error.Message)
	}
	if len(result.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}
	return result.Choices[0].Message.Content, nil
}

// post sends a JSON request and returns the raw body of a 200 reply. 429
// maps to *RateLimitError so the caller can show a remediation hint.
func (g *Generator) post(ctx context.Context, path string, reqBody any) ([]byte, error) {
	data, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", g.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if g.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+g.apiKey)
	}

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, &RateLimitError{
			Message: string(body),
			Hint:    "the shared quota may be exhausted; set NOB_GENERATION_API_KEY to your own key or switch models with NOB_GENERATION_MODEL",
		}
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
	}
	return body, nil
}
