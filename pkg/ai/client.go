// Package ai wraps an OpenAI-compatible chat-completions endpoint.
// The pipeline core treats every call here as an opaque, possibly-slow,
// possibly-failing text generator; callers bound each call with a
// context deadline.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultBaseURL = "https://api.openai.com"
	defaultModel   = "gpt-4.1-mini"
	defaultTimeout = 30 * time.Second
)

// Config defines chat-completion client settings
type Config struct {
	APIKey     string
	BaseURL    string
	Model      string
	HTTPClient *http.Client
	Timeout    time.Duration
}

// Client calls an OpenAI-compatible chat completions API
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

// NewClient instantiates a chat-completion client
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("ai: api key is required")
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	baseURL = strings.TrimSuffix(baseURL, "/")

	model := cfg.Model
	if model == "" {
		model = defaultModel
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    baseURL,
		model:      model,
		httpClient: httpClient,
	}, nil
}

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
}

func (c *Client) complete(ctx context.Context, system, user string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
	})
	if err != nil {
		return "", fmt.Errorf("ai: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("ai: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("ai: request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= http.StatusBadRequest {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("ai: API error (%d): %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	var payload chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("ai: decode response: %w", err)
	}
	if len(payload.Choices) == 0 {
		return "", fmt.Errorf("ai: no choices in response")
	}

	return payload.Choices[0].Message.Content, nil
}

// Summarize turns assembled pipeline context into short digest prose.
func (c *Client) Summarize(ctx context.Context, prompt string) (string, error) {
	system := "You are a concise job-search operations assistant. " +
		"Given today's queue, due follow-ups, and a pipeline summary, write a short daily digest: " +
		"3-6 sentences of priorities, then a dash-bulleted action list. Plain text only."
	return c.complete(ctx, system, prompt)
}

// ScoreFit scores a resume against a job description on a 1-10 scale.
func (c *Client) ScoreFit(ctx context.Context, resume, jobDescription string) (FitResult, error) {
	system := "You are a rigorous hiring screener. Compare the resume to the job description and " +
		"respond with ONLY a JSON object with keys: fit_score (integer 1-10), score_rationale (string), " +
		"top_strengths (array of strings), gaps_or_risks (array of strings), ats_keywords (array of strings)."
	user := fmt.Sprintf("RESUME:\n%s\n\nJOB DESCRIPTION:\n%s", resume, jobDescription)

	raw, err := c.complete(ctx, system, user)
	if err != nil {
		return FitResult{}, err
	}

	var result FitResult
	if err := json.Unmarshal([]byte(stripFences(raw)), &result); err != nil {
		return FitResult{}, fmt.Errorf("ai: parse fit result: %w", err)
	}
	if result.Score < 1 || result.Score > 10 {
		return FitResult{}, fmt.Errorf("ai: fit score %d out of range", result.Score)
	}
	return result, nil
}

// DraftOutreach drafts a LinkedIn note and email for a contact.
func (c *Client) DraftOutreach(ctx context.Context, octx OutreachContext) (OutreachDraft, error) {
	system := "You draft warm, specific networking outreach for a job seeker. " +
		"Respond with ONLY a JSON object with keys: linkedin_note (string, max 300 chars), " +
		"subject_line (string), inmail_or_email (string)."
	user := fmt.Sprintf(
		"Contact: %s (%s) at %s\nContact type: %s\nHook: %s",
		octx.ContactName, octx.ContactTitle, octx.Company, octx.ContactType, octx.Hook,
	)

	raw, err := c.complete(ctx, system, user)
	if err != nil {
		return OutreachDraft{}, err
	}

	var draft OutreachDraft
	if err := json.Unmarshal([]byte(stripFences(raw)), &draft); err != nil {
		return OutreachDraft{}, fmt.Errorf("ai: parse outreach draft: %w", err)
	}
	return draft, nil
}

// stripFences removes a markdown code fence if the model wrapped its
// JSON in one.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
