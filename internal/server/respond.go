package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"cyberguard/internal/detector"
	"cyberguard/internal/incident"
	"cyberguard/internal/learning"
	"cyberguard/internal/news"
	reportrepo "cyberguard/internal/repository/report"
)

// maxBodyBytes caps request bodies. Screenshots arrive base64 encoded.
const maxBodyBytes = 12 << 20

// JSON writes v with the given status code.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error body.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

func decode(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, incident.ErrEmptyInput),
		errors.Is(err, detector.ErrEmptyInput),
		errors.Is(err, detector.ErrInvalidImage),
		errors.Is(err, learning.ErrInvalidArticle),
		errors.Is(err, learning.ErrInvalidQuiz),
		errors.Is(err, learning.ErrInvalidResult),
		errors.Is(err, reportrepo.ErrInvalidName):
		return http.StatusBadRequest
	case errors.Is(err, incident.ErrSessionNotFound),
		errors.Is(err, learning.ErrQuizNotFound),
		errors.Is(err, reportrepo.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, incident.ErrClassificationInFlight),
		errors.Is(err, incident.ErrAlreadyClassified),
		errors.Is(err, incident.ErrSessionFinished),
		errors.Is(err, incident.ErrNoActivePlaybook),
		errors.Is(err, incident.ErrNotClassifying),
		errors.Is(err, incident.ErrNotFinished):
		return http.StatusConflict
	case errors.Is(err, detector.ErrAnalysisFailed),
		errors.Is(err, news.ErrFetchFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (a *API) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		a.log.WithError(err).WithField("path", r.URL.Path).Error("request failed")
	}
	Error(w, status, err.Error())
}
