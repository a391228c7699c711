// Package news fetches a short digest of recent cybersecurity news through
// the LLM backend and caches it in memory.
package news

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cyberguard/internal/cache/memory"
	"cyberguard/internal/llm"
	"cyberguard/internal/prompt"

	"github.com/sirupsen/logrus"
)

var ErrFetchFailed = errors.New("news: failed to fetch news articles")

type Article struct {
	ID            string `json:"id" jsonschema:"-"`
	Title         string `json:"title"`
	Source        string `json:"source"`
	Summary       string `json:"summary"`
	ImageURL      string `json:"imageUrl"`
	ArticleURL    string `json:"articleUrl"`
	PublishedDate string `json:"publishedDate" jsonschema:"description=YYYY-MM-DD"`
}

type digest struct {
	Articles []Article `json:"articles"`
}

const cacheKey = "latest"

type Service struct {
	client llm.LLMClient
	cache  *memory.LRUTTL[string, []Article]
	count  int
	now    func() time.Time
	log    *logrus.Entry
}

type Options struct {
	CacheTTL time.Duration
	// Count is the number of articles requested from the model.
	Count  int
	Now    func() time.Time
	Logger *logrus.Entry
}

func New(client llm.LLMClient, opts Options) *Service {
	if opts.Count <= 0 {
		opts.Count = 6
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Service{
		client: client,
		cache:  memory.NewLRUTTL[string, []Article](1, 0, opts.CacheTTL),
		count:  opts.Count,
		now:    opts.Now,
		log:    opts.Logger,
	}
}

var newsPrompt = prompt.Spec{
	Purpose:    "List the most important recent cybersecurity news for everyday internet users.",
	Background: "Readers are non-experts who want to know about current scams, breaches and security updates that may affect them.",
	Schema:     digest{},
	Rules: []string{
		"Return exactly input.count articles, newest first.",
		"summary is two sentences at most, in plain language.",
		"articleUrl links to the original story; imageUrl may be empty.",
	},
	OutputFormat: "A single JSON object with an articles array. No prose, no markdown.",
	Language:     "English",
}

// Fetch returns the cached digest or asks the model for a fresh one.
func (s *Service) Fetch(ctx context.Context) ([]Article, error) {
	articles, err := s.cache.GetOrLoad(ctx, cacheKey, s.load)
	if err != nil {
		return nil, err
	}
	return append([]Article(nil), articles...), nil
}

// Refresh drops the cache and fetches again.
func (s *Service) Refresh(ctx context.Context) ([]Article, error) {
	s.cache.Delete(cacheKey)
	return s.Fetch(ctx)
}

func (s *Service) load(ctx context.Context) ([]Article, int, error) {
	in := map[string]int{"count": s.count}
	p, err := prompt.Build(newsPrompt, in)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}
	raw, err := s.client.GenerateJSON(llm.WithPhase(ctx, llm.PhaseNews), p, in)
	if err != nil {
		s.log.WithError(err).Warn("news fetch failed")
		return nil, 0, fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}
	var d digest
	if err := prompt.Decode(raw, &d); err != nil {
		return nil, 0, fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}

	stamp := s.now().UnixMilli()
	out := make([]Article, 0, len(d.Articles))
	for _, a := range d.Articles {
		if strings.TrimSpace(a.Title) == "" {
			continue
		}
		a.ID = fmt.Sprintf("news-%d-%d", len(out), stamp)
		out = append(out, a)
	}
	s.log.WithField("articles", len(out)).Debug("news digest loaded")
	return out, len(raw), nil
}
