// Package ai is a thin client for an OpenAI-compatible chat completion
// endpoint, used for the two data-cleanup tasks the import pipeline can
// delegate: fixing values no deterministic parser accepts, and suggesting a
// column mapping for unrecognized spreadsheet headers. Every method is
// best-effort; callers are expected to proceed without the result on error.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const defaultBaseURL = "https://api.openai.com/v1"

type Client struct {
	baseURL string
	apiKey  string
	model   string
	http    *http.Client
	log     *slog.Logger
}

func NewClient(baseURL, apiKey, model string, log *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if log == nil {
		log = slog.Default()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		http:    &http.Client{Timeout: 60 * time.Second},
		log:     log,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    float64         `json:"temperature"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// complete runs one chat completion and unmarshals the JSON answer into out.
func (c *Client) complete(ctx context.Context, system, user string, out any) error {
	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature:    0,
		ResponseFormat: &responseFormat{Type: "json_object"},
	})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("call completion endpoint: %w", err)
	}
	defer resp.Body.Close()
	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("completion endpoint returned %d: %s", resp.StatusCode, truncate(payload, 200))
	}
	var parsed chatResponse
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return fmt.Errorf("completion returned no choices")
	}
	content := strings.TrimSpace(parsed.Choices[0].Message.Content)
	if err := json.Unmarshal([]byte(content), out); err != nil {
		return fmt.Errorf("decode completion content: %w", err)
	}
	return nil
}

const fixValuesSystem = `You normalize messy spreadsheet values for a trucking back office.
You receive a JSON object mapping a field name to a list of raw values that failed parsing.
Reply with a JSON object of the same shape where each raw value maps to its corrected form:
dates as YYYY-MM-DD, numbers as plain digits with an optional decimal point,
US states as 2-letter codes, enumerations as a best-guess canonical word.
Omit any value you cannot confidently correct. Reply with JSON only.`

// FixValues asks for corrections for every queued raw value in one call.
// The result maps field -> raw value -> corrected value; fields and values
// the model declined are absent.
func (c *Client) FixValues(ctx context.Context, byField map[string][]string) (map[string]map[string]string, error) {
	if len(byField) == 0 {
		return map[string]map[string]string{}, nil
	}
	payload, err := json.Marshal(byField)
	if err != nil {
		return nil, fmt.Errorf("marshal values: %w", err)
	}
	var out map[string]map[string]string
	if err := c.complete(ctx, fixValuesSystem, string(payload), &out); err != nil {
		return nil, err
	}
	c.log.Debug("value correction completed", "fields", len(out))
	return out, nil
}

const suggestMappingSystem = `You map spreadsheet column headers to canonical system fields for a trucking back office.
You receive a JSON object with "entity" (the record type) and "headers" (the file's column names),
plus "fields" (the allowed system field names). Reply with a JSON object mapping each header you can
place to one system field name from the list. Omit headers that match nothing. Reply with JSON only.`

// SuggestColumnMapping proposes source header -> system field assignments
// for headers the synonym tables did not place.
func (c *Client) SuggestColumnMapping(ctx context.Context, entity string, headers, fields []string) (map[string]string, error) {
	payload, err := json.Marshal(map[string]any{
		"entity":  entity,
		"headers": headers,
		"fields":  fields,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal headers: %w", err)
	}
	var out map[string]string
	if err := c.complete(ctx, suggestMappingSystem, string(payload), &out); err != nil {
		return nil, err
	}
	// Drop hallucinated targets.
	allowed := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		allowed[f] = struct{}{}
	}
	for header, field := range out {
		if _, ok := allowed[field]; !ok {
			delete(out, header)
		}
	}
	return out, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
