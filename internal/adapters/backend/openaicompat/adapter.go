package openaicompat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/bnema/prometheus-orchestrator/internal/domain"
	"github.com/bnema/prometheus-orchestrator/internal/ports"
)

const (
	chatCompletionsPath = "/chat/completions"
	maxResponseBytes    = 4 << 20
)

// Adapter speaks the OpenAI-compatible chat completions dialect, which every
// registered provider exposes. The backend entry supplies the base URL and the
// secret reference for its API key.
type Adapter struct {
	Secrets        ports.SecretStore
	HTTPClient     *http.Client
	RequestTimeout time.Duration
}

var _ ports.BackendAdapter = (*Adapter)(nil)

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		TotalTokens int64 `json:"total_tokens"`
	} `json:"usage"`
}

type apiErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

func (a *Adapter) Invoke(ctx context.Context, backend domain.Backend, prompt domain.PromptContext) (domain.BackendResponse, error) {
	endpoint, err := buildEndpoint(backend.BaseURL)
	if err != nil {
		return domain.BackendResponse{}, fmt.Errorf("backend %s: %w", backend.ID, err)
	}

	payload := chatRequest{
		Model:    backend.Model,
		Messages: buildMessages(prompt),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return domain.BackendResponse{}, fmt.Errorf("encode chat request: %w", err)
	}

	requestCtx, cancel := a.requestContext(ctx)
	defer cancel()
	req, err := http.NewRequestWithContext(requestCtx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return domain.BackendResponse{}, fmt.Errorf("create chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	if backend.SecretRef != "" {
		apiKey, err := a.Secrets.Get(ctx, backend.SecretRef)
		if err != nil {
			return domain.BackendResponse{}, fmt.Errorf("resolve credential %s: %w", backend.SecretRef, err)
		}
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}

	resp, err := a.httpClient().Do(req)
	if err != nil {
		switch {
		case errors.Is(err, context.DeadlineExceeded):
			return domain.BackendResponse{}, fmt.Errorf("backend %s: %w", backend.ID, domain.ErrBackendTimeout)
		case errors.Is(err, context.Canceled):
			return domain.BackendResponse{}, context.Canceled
		default:
			return domain.BackendResponse{}, fmt.Errorf("backend %s: %v: %w", backend.ID, err, domain.ErrBackendUnavailable)
		}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return domain.BackendResponse{}, fmt.Errorf("backend %s: %s: %w", backend.ID, decodeAPIError(resp), domain.ErrBackendUnavailable)
	}

	var decoded chatResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&decoded); err != nil {
		return domain.BackendResponse{}, fmt.Errorf("decode chat response: %v: %w", err, domain.ErrBackendUnavailable)
	}
	if len(decoded.Choices) == 0 {
		return domain.BackendResponse{}, fmt.Errorf("backend %s returned no choices: %w", backend.ID, domain.ErrBackendUnavailable)
	}

	return domain.BackendResponse{
		Content:    decoded.Choices[0].Message.Content,
		TokensUsed: decoded.Usage.TotalTokens,
	}, nil
}

// buildMessages flattens scoped context into system messages ahead of the
// user turn.
func buildMessages(prompt domain.PromptContext) []chatMessage {
	messages := make([]chatMessage, 0, len(prompt.Segments)+1)
	for _, segment := range prompt.Segments {
		messages = append(messages, chatMessage{
			Role:    "system",
			Content: fmt.Sprintf("[%s] %s", segment.Scope, segment.Content),
		})
	}
	messages = append(messages, chatMessage{Role: "user", Content: prompt.Message})

	return messages
}

func (a *Adapter) httpClient() *http.Client {
	if a.HTTPClient != nil {
		return a.HTTPClient
	}
	return http.DefaultClient
}

func (a *Adapter) requestContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, hasDeadline := ctx.Deadline(); hasDeadline {
		return ctx, func() {}
	}

	requestTimeout := a.RequestTimeout
	if requestTimeout <= 0 {
		requestTimeout = 60 * time.Second
	}

	return context.WithTimeout(ctx, requestTimeout)
}

func decodeAPIError(resp *http.Response) string {
	var apiErr apiErrorResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&apiErr); err != nil || apiErr.Error.Message == "" {
		return fmt.Sprintf("status %d", resp.StatusCode)
	}
	return apiErr.Error.Message
}

func buildEndpoint(baseURL string) (string, error) {
	if baseURL == "" {
		return "", errors.New("base url is required")
	}

	parsed, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", errors.New("base url must use http or https")
	}
	if parsed.Host == "" {
		return "", errors.New("base url host is required")
	}

	endpoint, err := parsed.Parse(parsed.Path + chatCompletionsPath)
	if err != nil {
		return "", fmt.Errorf("parse chat completions path: %w", err)
	}
	return endpoint.String(), nil
}
