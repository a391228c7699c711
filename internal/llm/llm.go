package llm

import (
	"context"
	"encoding/json"
	"errors"
)

var ErrInvalidJSON = errors.New("llm: invalid JSON from model")

// Media is an inline attachment (for example a screenshot) sent alongside the prompt.
type Media struct {
	MIMEType string
	Data     []byte
}

type LLMClient interface {
	Name() string
	GenerateJSON(ctx context.Context, prompt string, input any, media ...Media) (json.RawMessage, error)
	Close() error
}
