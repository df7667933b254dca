package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Request is what the analysis service receives.
type Request struct {
	RecordingID string `json:"recording_id"`
	UserID      string `json:"user_id"`
	SubjectName string `json:"subject_name"`
	OwnerName   string `json:"owner_name"`
	Transcript  string `json:"transcript"`
}

type Analyzer interface {
	Analyze(ctx context.Context, r Request) error
}

// AnalyzerFunc adapts a function to Analyzer.
type AnalyzerFunc func(ctx context.Context, r Request) error

func (f AnalyzerFunc) Analyze(ctx context.Context, r Request) error { return f(ctx, r) }

type HTTPAnalyzer struct {
	url        string
	apiKey     string
	httpClient *http.Client
}

func NewHTTPAnalyzer(url, apiKey string, timeout time.Duration) *HTTPAnalyzer {
	if timeout <= 0 {
		timeout = time.Minute
	}
	return &HTTPAnalyzer{url: url, apiKey: apiKey, httpClient: &http.Client{Timeout: timeout}}
}

func (a *HTTPAnalyzer) Analyze(ctx context.Context, r Request) error {
	if a.url == "" {
		return fmt.Errorf("analysis url is not configured")
	}
	reqBody, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to marshal analysis request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.url, bytes.NewReader(reqBody))
	if err != nil {
		return fmt.Errorf("failed to create analysis request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if a.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+a.apiKey)
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("analysis request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("analysis returned %d: %s", resp.StatusCode, string(body))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
