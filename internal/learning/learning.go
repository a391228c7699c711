// Package learning serves the learning arena: built-in and user-authored
// articles and quizzes, and per-quiz score history.
package learning

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"cyberguard/internal/kvstore"

	"gopkg.in/yaml.v3"
)

var (
	ErrInvalidArticle = errors.New("learning: invalid article")
	ErrInvalidQuiz    = errors.New("learning: invalid quiz")
	ErrInvalidResult  = errors.New("learning: invalid quiz result")
	ErrQuizNotFound   = errors.New("learning: quiz not found")
)

const (
	keyQuizProgress   = "quizProgress"
	keyCustomArticles = "customArticles"
	keyCustomQuizzes  = "customQuizzes"
)

type Article struct {
	ID       string `yaml:"id" json:"id"`
	Title    string `yaml:"title" json:"title"`
	Category string `yaml:"category" json:"category"`
	Summary  string `yaml:"summary" json:"summary"`
	Content  string `yaml:"content" json:"content"`
}

type Question struct {
	Question      string   `yaml:"question" json:"question"`
	Options       []string `yaml:"options" json:"options"`
	CorrectAnswer int      `yaml:"correctAnswer" json:"correctAnswer"`
	Explanation   string   `yaml:"explanation" json:"explanation"`
}

type Quiz struct {
	ID          string     `yaml:"id" json:"id"`
	Title       string     `yaml:"title" json:"title"`
	Description string     `yaml:"description" json:"description"`
	Questions   []Question `yaml:"questions" json:"questions"`
}

// Score is the stored history of one quiz, in percent.
type Score struct {
	HighScore int `json:"highScore"`
	LastScore int `json:"lastScore"`
	Attempts  int `json:"attempts"`
}

type Library struct {
	Articles []Article       `json:"articles"`
	Quizzes  []Quiz          `json:"quizzes"`
	Progress map[string]Score `json:"progress"`
}

//go:embed content.yaml
var builtinYAML []byte

type builtin struct {
	Articles []Article `yaml:"articles"`
	Quizzes  []Quiz    `yaml:"quizzes"`
}

type Arena struct {
	store    kvstore.Store
	articles []Article
	quizzes  []Quiz
	now      func() time.Time
}

func New(store kvstore.Store, now func() time.Time) (*Arena, error) {
	var b builtin
	if err := yaml.Unmarshal(builtinYAML, &b); err != nil {
		return nil, fmt.Errorf("learning: builtin content: %w", err)
	}
	if now == nil {
		now = time.Now
	}
	return &Arena{store: store, articles: b.Articles, quizzes: b.Quizzes, now: now}, nil
}

// Library lists built-in content followed by the user's own.
func (a *Arena) Library(ctx context.Context) (Library, error) {
	lib := Library{
		Articles: append([]Article(nil), a.articles...),
		Quizzes:  append([]Quiz(nil), a.quizzes...),
		Progress: map[string]Score{},
	}
	var customArticles []Article
	if _, err := kvstore.Get(ctx, a.store, keyCustomArticles, &customArticles); err != nil {
		return lib, err
	}
	var customQuizzes []Quiz
	if _, err := kvstore.Get(ctx, a.store, keyCustomQuizzes, &customQuizzes); err != nil {
		return lib, err
	}
	if _, err := kvstore.Get(ctx, a.store, keyQuizProgress, &lib.Progress); err != nil {
		return lib, err
	}
	lib.Articles = append(lib.Articles, customArticles...)
	lib.Quizzes = append(lib.Quizzes, customQuizzes...)
	return lib, nil
}

func (a *Arena) Quiz(ctx context.Context, id string) (Quiz, error) {
	lib, err := a.Library(ctx)
	if err != nil {
		return Quiz{}, err
	}
	for _, q := range lib.Quizzes {
		if q.ID == id {
			return q, nil
		}
	}
	return Quiz{}, ErrQuizNotFound
}

// AddArticle stores a user-authored article under a fresh id.
func (a *Arena) AddArticle(ctx context.Context, art Article) (Article, error) {
	art.Title = strings.TrimSpace(art.Title)
	art.Content = strings.TrimSpace(art.Content)
	if art.Title == "" || art.Content == "" {
		return Article{}, fmt.Errorf("%w: title and content are required", ErrInvalidArticle)
	}
	art.ID = fmt.Sprintf("custom-article-%d", a.now().UnixMilli())
	if err := kvstore.Append(ctx, a.store, keyCustomArticles, art); err != nil {
		return Article{}, err
	}
	return art, nil
}

// AddQuiz stores a user-authored quiz under a fresh id.
func (a *Arena) AddQuiz(ctx context.Context, q Quiz) (Quiz, error) {
	q.Title = strings.TrimSpace(q.Title)
	if q.Title == "" || len(q.Questions) == 0 {
		return Quiz{}, fmt.Errorf("%w: title and at least one question are required", ErrInvalidQuiz)
	}
	for i, qq := range q.Questions {
		if strings.TrimSpace(qq.Question) == "" || len(qq.Options) < 2 {
			return Quiz{}, fmt.Errorf("%w: question %d needs text and two options", ErrInvalidQuiz, i+1)
		}
		if qq.CorrectAnswer < 0 || qq.CorrectAnswer >= len(qq.Options) {
			return Quiz{}, fmt.Errorf("%w: question %d has no valid answer", ErrInvalidQuiz, i+1)
		}
	}
	q.ID = fmt.Sprintf("custom-quiz-%d", a.now().UnixMilli())
	if err := kvstore.Append(ctx, a.store, keyCustomQuizzes, q); err != nil {
		return Quiz{}, err
	}
	return q, nil
}

// RecordResult stores a finished attempt: score correct answers out of total.
func (a *Arena) RecordResult(ctx context.Context, quizID string, score, total int) (Score, error) {
	quizID = strings.TrimSpace(quizID)
	if quizID == "" || total <= 0 || score < 0 || score > total {
		return Score{}, fmt.Errorf("%w: %d/%d", ErrInvalidResult, score, total)
	}
	pct := int(math.Round(float64(score) / float64(total) * 100))

	progress, err := kvstore.Modify(ctx, a.store, keyQuizProgress, func(p *map[string]Score) error {
		if *p == nil {
			*p = map[string]Score{}
		}
		cur := (*p)[quizID]
		(*p)[quizID] = Score{
			HighScore: max(cur.HighScore, pct),
			LastScore: pct,
			Attempts:  cur.Attempts + 1,
		}
		return nil
	})
	if err != nil {
		return Score{}, err
	}
	return progress[quizID], nil
}

// Grade counts correct answers. Missing answers count as wrong.
func Grade(q Quiz, answers []int) (score, total int) {
	for i, question := range q.Questions {
		if i < len(answers) && answers[i] == question.CorrectAnswer {
			score++
		}
	}
	return score, len(q.Questions)
}
