// Package rewriter holds the chat-completion backends that produce the
// first, model-written draft of a paper. The humanizer runs on their output.
package rewriter

import (
	"fmt"
	"strings"
)

// New returns the backend named by backend ("openrouter" or "ollama").
func New(backend string, cfg ServiceConfig) (Service, error) {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "", "openrouter":
		return NewOpenRouterService(cfg), nil
	case "ollama":
		return NewOllamaService(cfg), nil
	default:
		return nil, fmt.Errorf("unknown rewrite backend %q", backend)
	}
}
