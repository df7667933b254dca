package transcription

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// maxErrorBody caps how much of an error response ends up in logs.
const maxErrorBody = 512

// HTTPClient calls the transcription function over HTTPS with a bearer key.
type HTTPClient struct {
	url        string
	apiKey     string
	httpClient *http.Client
}

var _ Service = (*HTTPClient)(nil)

func NewHTTPClient(url, apiKey string, timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &HTTPClient{
		url:        url,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *HTTPClient) Invoke(ctx context.Context, p Payload) (Response, error) {
	if c.url == "" {
		return Response{}, fmt.Errorf("transcription url is not configured")
	}
	if err := p.Validate(); err != nil {
		return Response{}, err
	}

	reqBody, err := json.Marshal(p)
	if err != nil {
		return Response{}, fmt.Errorf("failed to marshal transcription payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(reqBody))
	if err != nil {
		return Response{}, fmt.Errorf("failed to create transcription request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Response{}, fmt.Errorf("transcription request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Response{}, fmt.Errorf("failed to read transcription response: %w", err)
	}
	if resp.StatusCode >= 400 {
		if len(body) > maxErrorBody {
			body = body[:maxErrorBody]
		}
		return Response{}, fmt.Errorf("transcription returned %d: %s", resp.StatusCode, string(body))
	}

	var out Response
	if err := json.Unmarshal(body, &out); err != nil {
		return Response{}, fmt.Errorf("failed to parse transcription response: %w", err)
	}
	return out, nil
}
