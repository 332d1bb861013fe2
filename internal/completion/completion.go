// Package completion talks to the text-completion endpoint that fabricates
// posts, comments and DMs, and turns its reply into JSON.
package completion

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"weibosim/internal/config"
)

// Provider sends one prompt and returns the raw completion text.
type Provider interface {
	Complete(ctx context.Context, prompt string, opts Options) (string, error)
}

// Options tune a single request.
type Options struct {
	// Temperature overrides the configured default when non-zero.
	Temperature float64
	// JSONMode asks the provider for a JSON response.
	JSONMode bool
}

// NewProvider builds the provider selected by cfg.Provider.
func NewProvider(ctx context.Context, cfg config.APIConfig) (Provider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Provider {
	case config.ProviderGemini:
		return NewGeminiProvider(ctx, cfg)
	case config.ProviderOpenAI, "":
		return NewOpenAIProvider(cfg), nil
	}
	return nil, fmt.Errorf("unsupported provider %q", cfg.Provider)
}

// HTTPError is returned for a non-2xx status.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("API请求失败: %d - %s", e.StatusCode, e.Body)
}

// ErrEmptyResponse means the provider returned no usable text, usually
// because a safety filter blocked the output.
var ErrEmptyResponse = errors.New("API返回了空内容，可能被安全策略拦截。")

// ParseError wraps the JSON decoder error for a malformed completion.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return "failed to parse completion JSON: " + e.Err.Error()
}

func (e *ParseError) Unwrap() error { return e.Err }

var (
	leadingFence  = regexp.MustCompile("^```(?:json)?\\s*")
	trailingFence = regexp.MustCompile("\\s*```$")
)

// StripCodeFence removes a surrounding ```json ... ``` block.
func StripCodeFence(text string) string {
	text = strings.TrimSpace(text)
	text = leadingFence.ReplaceAllString(text, "")
	text = trailingFence.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}

// DecodeJSON strips a fence and unmarshals text into v.
func DecodeJSON(text string, v interface{}) error {
	if err := json.Unmarshal([]byte(StripCodeFence(text)), v); err != nil {
		return &ParseError{Err: err}
	}
	return nil
}

// DecodeList decodes a completion expected to hold a list of T.
//
// Accepted shapes, in order: a bare array; an object whose field named by one
// of keys holds the array; a wrapper object whose only field is an array;
// any other object, taken as a single-element list.
func DecodeList[T any](text string, keys ...string) ([]T, error) {
	raw := bytes.TrimSpace([]byte(StripCodeFence(text)))
	if len(raw) == 0 {
		return nil, &ParseError{Err: errors.New("empty JSON document")}
	}

	if raw[0] == '[' {
		return decodeArray[T](raw)
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, &ParseError{Err: err}
	}

	for _, k := range keys {
		if v, ok := obj[k]; ok && isArray(v) {
			return decodeArray[T](v)
		}
	}

	if len(obj) == 1 {
		for _, v := range obj {
			if isArray(v) {
				if items, err := decodeArray[T](v); err == nil {
					return items, nil
				}
			}
		}
	}

	var single T
	if err := json.Unmarshal(raw, &single); err != nil {
		return nil, &ParseError{Err: err}
	}
	return []T{single}, nil
}

func decodeArray[T any](raw []byte) ([]T, error) {
	var items []T
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, &ParseError{Err: err}
	}
	return items, nil
}

func isArray(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '['
}
