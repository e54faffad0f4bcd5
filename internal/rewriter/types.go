package rewriter

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	ErrNoAPIKey      = errors.New("OpenRouter API key required")
	ErrEmptyResponse = errors.New("empty response from model")
)

// StatusError reports a non-2xx answer from a model endpoint. It is returned
// as is; callers decide whether the upstream failure is fatal.
type StatusError struct {
	Service    string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s returned status %d", e.Service, e.StatusCode)
	}
	return fmt.Sprintf("%s returned status %d: %s", e.Service, e.StatusCode, e.Body)
}

type ServiceConfig struct {
	APIKey      string        `mapstructure:"api_key" json:"api_key"`
	Model       string        `mapstructure:"model" json:"model"`
	BaseURL     string        `mapstructure:"base_url" json:"base_url"`
	Temperature float64       `mapstructure:"temperature" json:"temperature"`
	Timeout     time.Duration `mapstructure:"timeout" json:"timeout"`
}

type RewriteRequest struct {
	Text string `json:"text"`
	// Instructions are appended to the system prompt, e.g. the placeholder hint.
	Instructions string `json:"instructions,omitempty"`
}

type ServiceResult struct {
	ServiceName   string            `json:"service_name"`
	RewrittenText string            `json:"rewritten_text"`
	Metadata      map[string]string `json:"metadata"`
	Latency       time.Duration     `json:"latency"`
	Error         string            `json:"error,omitempty"`
}

// Service is a chat-completion backend that rewrites one piece of a paper.
type Service interface {
	Name() string
	Model() string
	Rewrite(ctx context.Context, req RewriteRequest) (*ServiceResult, error)
	IsAvailable(ctx context.Context) error
}
