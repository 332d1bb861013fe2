package completion

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"

	"weibosim/internal/config"
)

// GeminiProvider calls models.generateContent through the genai SDK.
type GeminiProvider struct {
	client      *genai.Client
	model       string
	temperature float64
}

// NewGeminiProvider creates a provider for the Gemini API. ProxyURL is used
// as the API base so a relay can sit in front of Google.
func NewGeminiProvider(ctx context.Context, cfg config.APIConfig) (*GeminiProvider, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}

	clientCfg := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: &http.Client{Timeout: timeout},
	}
	if cfg.ProxyURL != "" {
		baseURL := cfg.ProxyURL
		if !strings.HasSuffix(baseURL, "/") {
			baseURL += "/"
		}
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	return &GeminiProvider{client: client, model: cfg.Model, temperature: cfg.Temperature}, nil
}

// Complete sends prompt and returns the first candidate's first text part.
func (p *GeminiProvider) Complete(ctx context.Context, prompt string, opts Options) (string, error) {
	startTime := time.Now()

	temperature := p.temperature
	if opts.Temperature != 0 {
		temperature = opts.Temperature
	}
	genCfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(temperature)),
	}
	if opts.JSONMode {
		genCfg.ResponseMIMEType = "application/json"
	}

	result, err := p.client.Models.GenerateContent(ctx, p.model, genai.Text(prompt), genCfg)
	if err != nil {
		log.Printf("[Completion] gemini FAILED: model=%s err=%v duration=%v", p.model, err, time.Since(startTime))
		var apiErr genai.APIError
		if errors.As(err, &apiErr) {
			return "", &HTTPError{StatusCode: apiErr.Code, Body: apiErr.Message}
		}
		return "", fmt.Errorf("completion request: %w", err)
	}

	if result == nil || len(result.Candidates) == 0 || result.Candidates[0].Content == nil ||
		len(result.Candidates[0].Content.Parts) == 0 {
		return "", ErrEmptyResponse
	}
	text := result.Candidates[0].Content.Parts[0].Text
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyResponse
	}

	log.Printf("[Completion] gemini OK: model=%s chars=%d duration=%v", p.model, len(text), time.Since(startTime))
	return text, nil
}
