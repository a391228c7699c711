package server

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"

	"cyberguard/internal/detector"
	"cyberguard/internal/learning"

	"github.com/go-chi/chi/v5"
)

type analyzeRequest struct {
	Text string `json:"text"`
	// Image is a data URL as produced by FileReader.readAsDataURL.
	Image string `json:"image,omitempty"`
}

type quizResultRequest struct {
	Score int `json:"score"`
	Total int `json:"total"`
	// Answers, when given, are graded here and override Score and Total.
	Answers []int `json:"answers,omitempty"`
}

func (a *API) analyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := decode(w, r, &req); err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}
	var img *detector.Image
	if strings.TrimSpace(req.Image) != "" {
		parsed, err := parseDataURL(req.Image)
		if err != nil {
			Error(w, http.StatusBadRequest, err.Error())
			return
		}
		img = parsed
	}
	res, err := a.Detector.Analyze(r.Context(), req.Text, img)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	JSON(w, http.StatusOK, res)
}

func (a *API) detectorProgress(w http.ResponseWriter, r *http.Request) {
	p, err := a.Detector.Progress(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	JSON(w, http.StatusOK, p)
}

// parseDataURL accepts "data:<mime>;base64,<payload>".
func parseDataURL(s string) (*detector.Image, error) {
	meta, payload, ok := strings.Cut(strings.TrimSpace(s), ",")
	if !ok || !strings.HasPrefix(meta, "data:") || !strings.HasSuffix(meta, ";base64") {
		return nil, fmt.Errorf("%w: expected a base64 data URL", detector.ErrInvalidImage)
	}
	mime := strings.TrimSuffix(strings.TrimPrefix(meta, "data:"), ";base64")
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", detector.ErrInvalidImage, err)
	}
	return &detector.Image{MIMEType: mime, Data: data}, nil
}

func (a *API) listNews(w http.ResponseWriter, r *http.Request) {
	fetch := a.News.Fetch
	if r.URL.Query().Get("refresh") == "true" {
		fetch = a.News.Refresh
	}
	articles, err := fetch(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	JSON(w, http.StatusOK, articles)
}

func (a *API) learningLibrary(w http.ResponseWriter, r *http.Request) {
	lib, err := a.Learning.Library(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	JSON(w, http.StatusOK, lib)
}

func (a *API) addArticle(w http.ResponseWriter, r *http.Request) {
	var art learning.Article
	if err := decode(w, r, &art); err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}
	out, err := a.Learning.AddArticle(r.Context(), art)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	JSON(w, http.StatusCreated, out)
}

func (a *API) addQuiz(w http.ResponseWriter, r *http.Request) {
	var q learning.Quiz
	if err := decode(w, r, &q); err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}
	out, err := a.Learning.AddQuiz(r.Context(), q)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	JSON(w, http.StatusCreated, out)
}

func (a *API) recordQuizResult(w http.ResponseWriter, r *http.Request) {
	var req quizResultRequest
	if err := decode(w, r, &req); err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}
	quizID := chi.URLParam(r, "id")
	score, total := req.Score, req.Total
	if req.Answers != nil {
		q, err := a.Learning.Quiz(r.Context(), quizID)
		if err != nil {
			a.fail(w, r, err)
			return
		}
		score, total = learning.Grade(q, req.Answers)
	}
	out, err := a.Learning.RecordResult(r.Context(), quizID, score, total)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	JSON(w, http.StatusOK, out)
}
