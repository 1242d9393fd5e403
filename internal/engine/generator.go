package engine

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

// Generator completes a prompt for an llm node.
type Generator interface {
	Generate(ctx context.Context, system, prompt string) (string, error)
}

// Ollama calls a local Ollama server's /api/generate.
type Ollama struct {
	URL   string
	Model string
	hc    *http.Client
}

func NewOllama(url, model string, timeout time.Duration) *Ollama {
	if url == "" {
		url = "http://localhost:11434"
	}
	if model == "" {
		model = "llama3:instruct"
	}
	return &Ollama{URL: strings.TrimRight(url, "/"), Model: model, hc: &http.Client{Timeout: timeout}}
}

func (o *Ollama) Generate(ctx context.Context, system, prompt string) (string, error) {
	b, err := json.Marshal(map[string]any{
		"model":  o.Model,
		"system": system,
		"prompt": prompt,
		"stream": false,
		"options": map[string]any{
			"temperature": 1,
			"top_p":       0.95,
			"top_k":       40,
			"num_predict": 2048,
		},
	})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.URL+"/api/generate", bytes.NewReader(b))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := o.hc.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return "", fmt.Errorf("ollama: status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	var raw struct {
		Response string `json:"response"`
		Error    string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return "", fmt.Errorf("ollama: %w", err)
	}
	if raw.Error != "" {
		return "", fmt.Errorf("ollama: %s", raw.Error)
	}
	return raw.Response, nil
}

// Echo returns the combined prompt unchanged. Useful offline and in tests.
type Echo struct{}

func (Echo) Generate(_ context.Context, system, prompt string) (string, error) {
	return combine(system, prompt), nil
}

func combine(system, prompt string) string {
	if system == "" {
		return prompt
	}
	return system + "\n\n" + prompt
}
