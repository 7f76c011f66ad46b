package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"draftly/internal/apperror"
	"draftly/internal/logger"
	"draftly/internal/service"
)

const (
	ProviderOpenAI   = "openai"
	ProviderDeepSeek = "deepseek"
	ProviderGemini   = "gemini"

	serviceName = "completion"
)

// Options selects the provider and its endpoint. Empty Model and BaseURL
// fall back to the provider defaults.
type Options struct {
	Provider   string
	APIKey     string
	Model      string
	BaseURL    string
	HTTPClient *http.Client
}

type aiClient struct {
	provider   string
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
	logger     *logger.Logger
}

func NewAIClient(opts Options, logger *logger.Logger) service.CompletionClient {
	provider := strings.ToLower(opts.Provider)
	if provider == "" {
		provider = ProviderOpenAI
	}

	client := &aiClient{
		provider:   provider,
		apiKey:     opts.APIKey,
		model:      opts.Model,
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		httpClient: opts.HTTPClient,
		logger:     logger,
	}
	if client.model == "" {
		client.model = defaultModel(provider)
	}
	if client.baseURL == "" {
		client.baseURL = defaultBaseURL(provider)
	}
	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: 60 * time.Second}
	}

	return client
}

func defaultBaseURL(provider string) string {
	switch provider {
	case ProviderDeepSeek:
		return "https://api.deepseek.com"
	case ProviderGemini:
		return "https://generativelanguage.googleapis.com/v1beta"
	default:
		return "https://api.openai.com/v1"
	}
}

func defaultModel(provider string) string {
	switch provider {
	case ProviderDeepSeek:
		return "deepseek-chat"
	case ProviderGemini:
		return "gemini-2.0-flash-lite"
	default:
		return "gpt-4o-mini"
	}
}

// OpenAI/DeepSeek API request/response structures
type chatCompletionRequest struct {
	Model    string    `json:"model"`
	Messages []message `json:"messages"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionResponse struct {
	ID      string   `json:"id"`
	Model   string   `json:"model"`
	Choices []choice `json:"choices"`
}

type choice struct {
	Index        int     `json:"index"`
	Message      message `json:"message"`
	FinishReason string  `json:"finish_reason"`
}

// Gemini API request/response structures
type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiRequest struct {
	SystemInstruction *geminiContent  `json:"systemInstruction,omitempty"`
	Contents          []geminiContent `json:"contents"`
}

type geminiResponse struct {
	Candidates []geminiCandidate `json:"candidates"`
}

type geminiCandidate struct {
	Content      geminiContent `json:"content"`
	FinishReason string        `json:"finishReason"`
}

// Generate returns the model's reply to the system and user prompts.
func (a *aiClient) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if a.apiKey == "" {
		return "", apperror.Unexpected("API key is not configured", nil)
	}

	var text string
	var err error
	switch a.provider {
	case ProviderGemini:
		text, err = a.generateWithGemini(ctx, systemPrompt, userPrompt)
	default:
		text, err = a.generateWithOpenAIStyle(ctx, systemPrompt, userPrompt)
	}
	if err != nil {
		return "", err
	}

	a.logger.Infof("Generated %d characters with %s (%s)", len(text), a.provider, a.model)
	return text, nil
}

func (a *aiClient) generateWithOpenAIStyle(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	request := chatCompletionRequest{
		Model: a.model,
		Messages: []message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
	}

	var resp chatCompletionResponse
	if err := a.post(ctx, a.baseURL+"/chat/completions", request, &resp, func(req *http.Request) {
		req.Header.Set("Authorization", "Bearer "+a.apiKey)
	}); err != nil {
		return "", err
	}

	if len(resp.Choices) == 0 {
		return "", apperror.NewRemoteError(serviceName, 0, "generate reply", "", errors.New("no choices returned from AI"))
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func (a *aiClient) generateWithGemini(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	request := geminiRequest{
		SystemInstruction: &geminiContent{Parts: []geminiPart{{Text: systemPrompt}}},
		Contents: []geminiContent{
			{Role: "user", Parts: []geminiPart{{Text: userPrompt}}},
		},
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s", a.baseURL, a.model, url.QueryEscape(a.apiKey))
	var resp geminiResponse
	if err := a.post(ctx, endpoint, request, &resp, nil); err != nil {
		return "", err
	}

	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", apperror.NewRemoteError(serviceName, 0, "generate reply", "", errors.New("no candidates returned from Gemini"))
	}
	return strings.TrimSpace(resp.Candidates[0].Content.Parts[0].Text), nil
}

// post sends body as JSON and decodes a 2xx response into out. Non-2xx
// responses become *apperror.RemoteError carrying the status.
func (a *aiClient) post(ctx context.Context, endpoint string, body, out interface{}, decorate func(*http.Request)) error {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if decorate != nil {
		decorate(req)
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return apperror.NewRemoteError(serviceName, 0, "reach completion service", "", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		a.logger.Errorf("%s API request failed with status %d: %s", a.provider, resp.StatusCode, string(respBody))
		return apperror.NewRemoteError(serviceName, resp.StatusCode, "generate reply", string(respBody), nil)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperror.NewRemoteError(serviceName, resp.StatusCode, "decode completion response", "", err)
	}
	return nil
}
