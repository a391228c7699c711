// Package classifier turns a free-text incident description into a
// category, severity and summary using the LLM backend.
package classifier

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cyberguard/internal/llm"
	"cyberguard/internal/prompt"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/sirupsen/logrus"
)

var (
	// ErrClassificationFailed covers every transport, parse and validation
	// failure of a classification call.
	ErrClassificationFailed = errors.New("classifier: classification failed")
	ErrEmptyDescription     = errors.New("classifier: empty description")
)

// Result is what the model said about an incident. Category is the raw
// string returned by the model; it may not name a known playbook.
type Result struct {
	Category string `json:"incidentType" jsonschema:"description=One of the known incident categories"`
	Severity string `json:"severity" jsonschema:"enum=Low,enum=Medium,enum=High"`
	Summary  string `json:"summary" jsonschema:"description=One sentence summary of the incident"`
}

type Classifier interface {
	Classify(ctx context.Context, description string) (Result, error)
}

// Func adapts a plain function to Classifier.
type Func func(ctx context.Context, description string) (Result, error)

func (f Func) Classify(ctx context.Context, description string) (Result, error) {
	return f(ctx, description)
}

type Options struct {
	// Categories are offered to the model as the allowed answers.
	Categories []string
	// CacheSize > 0 enables a result cache keyed by the trimmed description.
	CacheSize int
	CacheTTL  time.Duration
	Logger    *logrus.Entry
}

// LLMClassifier classifies through an llm.LLMClient. It never retries.
type LLMClassifier struct {
	client     llm.LLMClient
	categories []string
	cache      *expirable.LRU[string, Result]
	log        *logrus.Entry
}

func New(client llm.LLMClient, opts Options) *LLMClassifier {
	c := &LLMClassifier{
		client:     client,
		categories: append([]string(nil), opts.Categories...),
		log:        opts.Logger,
	}
	if c.log == nil {
		c.log = logrus.NewEntry(logrus.StandardLogger())
	}
	if opts.CacheSize > 0 {
		c.cache = expirable.NewLRU[string, Result](opts.CacheSize, nil, opts.CacheTTL)
	}
	return c
}

var classifyPrompt = prompt.Spec{
	Purpose:    "Classify a cybersecurity incident reported by a non-expert user.",
	Background: "You are an incident response assistant. The user describes in their own words something that happened to their computer, phone or online accounts.",
	Schema:     Result{},
	Rules: []string{
		"incidentType MUST be exactly one of the categories listed in input.categories.",
		"Use \"Unknown\" when none of the categories fits.",
		"severity MUST be Low, Medium or High.",
		"summary MUST be a single short sentence without line breaks.",
	},
	OutputFormat: "A single JSON object. No prose, no markdown.",
	Language:     "English",
}

type classifyInput struct {
	Description string   `json:"description"`
	Categories  []string `json:"categories"`
}

func (c *LLMClassifier) Classify(ctx context.Context, description string) (Result, error) {
	key := strings.TrimSpace(description)
	if key == "" {
		return Result{}, fmt.Errorf("%w: %w", ErrClassificationFailed, ErrEmptyDescription)
	}
	if c.cache != nil {
		if r, ok := c.cache.Get(key); ok {
			c.log.WithField("category", r.Category).Debug("classification cache hit")
			return r, nil
		}
	}

	in := classifyInput{Description: key, Categories: c.categories}
	p, err := prompt.Build(classifyPrompt, in)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrClassificationFailed, err)
	}
	raw, err := c.client.GenerateJSON(llm.WithPhase(ctx, llm.PhaseClassify), p, in)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrClassificationFailed, err)
	}
	var r Result
	if err := prompt.Decode(raw, &r); err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrClassificationFailed, err)
	}
	// Category stays verbatim; playbook matching is exact and an empty
	// category resolves to Unknown.
	r.Severity = strings.TrimSpace(r.Severity)
	r.Summary = strings.TrimSpace(r.Summary)

	if c.cache != nil {
		c.cache.Add(key, r)
	}
	return r, nil
}
