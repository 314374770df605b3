package generate

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

	"github.com/gattil/sup-hcls-generate-clinical-notes-with-ai/internal/logger"
)

const messagesPath = "/v1/messages"

// maxEventSize bounds a single SSE line; delta payloads are small but a
// misbehaving server could emit one oversized event.
const maxEventSize = 1 << 20

// Client calls the managed text-generation endpoint in blocking or streaming
// mode.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewClient(baseURL, apiKey string) *Client {
	normalized := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	return &Client{
		baseURL: normalized,
		apiKey:  strings.TrimSpace(apiKey),
		httpClient: &http.Client{
			// Generation of a long summary can take a while; streaming reads
			// are bounded by the server closing the stream.
			Timeout: 5 * time.Minute,
		},
	}
}

// Invoke sends the request in blocking mode and returns the full response.
func (c *Client) Invoke(ctx context.Context, request Request) (*Response, error) {
	logger.Info(ctx, "invoking generation endpoint", logger.Fields{
		"model":      request.Model,
		"max_tokens": request.MaxTokens,
		"streaming":  false,
	})

	resp, err := c.post(ctx, request, false)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read generation response: %w", err)
	}

	var parsed Response
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse generation response: %w", err)
	}
	if len(parsed.Content) == 0 {
		return nil, fmt.Errorf("generation response has empty content")
	}

	logger.Info(ctx, "generation complete", logger.Fields{
		"response_id": parsed.ID,
		"stop_reason": parsed.StopReason,
	})
	return &parsed, nil
}

// InvokeStream sends the request in streaming mode, calling onDelta for each
// text fragment in arrival order, and returns the concatenated text. The
// stream ends at message_stop or when the server closes the connection.
func (c *Client) InvokeStream(ctx context.Context, request Request, onDelta func(text string)) (string, error) {
	logger.Info(ctx, "invoking generation endpoint", logger.Fields{
		"model":      request.Model,
		"max_tokens": request.MaxTokens,
		"streaming":  true,
	})

	resp, err := c.post(ctx, request, true)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var accumulated strings.Builder
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), maxEventSize)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == "" || payload == "[DONE]" {
			continue
		}

		var event streamEvent
		if err := json.Unmarshal([]byte(payload), &event); err != nil {
			return "", fmt.Errorf("failed to parse stream event: %w", err)
		}

		switch event.Type {
		case "content_block_delta":
			if event.Delta.Text != "" {
				accumulated.WriteString(event.Delta.Text)
				if onDelta != nil {
					onDelta(event.Delta.Text)
				}
			}
		case "message_stop":
			logger.Info(ctx, "generation stream complete")
			return accumulated.String(), nil
		}
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("stream read failed: %w", err)
	}

	// Stream close without message_stop is an implicit terminator.
	logger.Info(ctx, "generation stream closed")
	return accumulated.String(), nil
}

func (c *Client) post(ctx context.Context, request Request, stream bool) (*http.Response, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("generation API key is not configured")
	}
	if request.Model == "" {
		return nil, fmt.Errorf("model identifier is empty")
	}

	wireReq := messagesRequest{
		Model:       request.Model,
		Messages:    request.Messages,
		MaxTokens:   request.MaxTokens,
		Temperature: request.Temperature,
		Stream:      stream,
	}

	reqBody, err := json.Marshal(wireReq)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal generation request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+messagesPath, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create generation request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	if stream {
		req.Header.Set("Accept", "text/event-stream")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("generation request failed: %w", err)
	}

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, fmt.Errorf("API returned %d: %s", resp.StatusCode, string(body))
	}
	return resp, nil
}
