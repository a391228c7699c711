// Package server exposes the incident assistant and its companion tools
// over a local HTTP API.
package server

import (
	"net/http"

	"cyberguard/internal/detector"
	"cyberguard/internal/incident"
	"cyberguard/internal/learning"
	"cyberguard/internal/news"
	"cyberguard/internal/playbook"
	reportrepo "cyberguard/internal/repository/report"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
)

// Deps are the services behind the API. Nil tools leave their routes out.
type Deps struct {
	Incidents *incident.Service
	Catalog   *playbook.Catalog
	Reports   reportrepo.Store
	Detector  *detector.Detector
	News      *news.Service
	Learning  *learning.Arena
	// Metrics serves /metrics when set.
	Metrics http.Handler
	Logger  *logrus.Entry
}

type API struct {
	Deps
	log *logrus.Entry
}

func NewRouter(d Deps) http.Handler {
	a := &API{Deps: d, log: d.Logger}
	if a.log == nil {
		a.log = logrus.NewEntry(logrus.StandardLogger())
	}

	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))
	r.Use(CORS)

	if d.Metrics != nil {
		r.Handle("/metrics", d.Metrics)
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/playbooks", a.listPlaybooks)

		r.Route("/incidents", func(r chi.Router) {
			r.Post("/", a.openIncident)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", a.getIncident)
				r.Delete("/", a.closeIncident)
				r.Post("/messages", a.submitMessage)
				r.Post("/confirm", a.confirmStep)
				r.Post("/reset", a.resetIncident)
				r.Get("/report", a.downloadReport)
				r.Post("/export", a.exportReport)
				r.Get("/ws", a.watchIncident)
			})
		})

		if d.Detector != nil {
			r.Post("/detector/analyze", a.analyze)
			r.Get("/detector/progress", a.detectorProgress)
		}
		if d.News != nil {
			r.Get("/news", a.listNews)
		}
		if d.Learning != nil {
			r.Route("/learning", func(r chi.Router) {
				r.Get("/", a.learningLibrary)
				r.Post("/articles", a.addArticle)
				r.Post("/quizzes", a.addQuiz)
				r.Post("/quizzes/{id}/results", a.recordQuizResult)
			})
		}
	})
	return r
}
