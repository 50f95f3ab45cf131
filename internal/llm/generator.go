// Package llm generates answers from a local Ollama model or a hosted
// Hugging Face inference endpoint.
package llm

import (
	"context"
	"regexp"
	"strings"

	"github.com/chadiek/jarvis/internal/config"
	"github.com/chadiek/jarvis/internal/errorsx"
)

// Generator produces a completion for prompt. Implementations return
// BackendError on any failure and never return user-facing apologies.
type Generator interface {
	Generate(ctx context.Context, prompt string, cfg config.RuntimeConfig) (string, error)
}

var ErrEmptyCompletion = errorsx.New(errorsx.BackendError, "empty completion")

var specialTokens = regexp.MustCompile(`<\|[a-zA-Z0-9_]+\|>|</?s>|\[/?INST\]|<unk>|<pad>`)

// StripSpecialTokens removes model control tokens from text.
func StripSpecialTokens(text string) string {
	return specialTokens.ReplaceAllString(text, "")
}

// cleanCompletion drops an echoed prompt and control tokens.
func cleanCompletion(prompt, raw string) (string, error) {
	out := strings.TrimSpace(raw)
	out = strings.TrimPrefix(out, strings.TrimSpace(prompt))
	out = strings.TrimSpace(StripSpecialTokens(out))
	if out == "" {
		return "", ErrEmptyCompletion
	}
	return out, nil
}
