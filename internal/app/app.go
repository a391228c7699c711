// Package app wires configuration into the running services shared by the
// HTTP server and the terminal commands.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"cyberguard/internal/classifier"
	"cyberguard/internal/config"
	"cyberguard/internal/detector"
	"cyberguard/internal/incident"
	"cyberguard/internal/kvstore"
	"cyberguard/internal/learning"
	"cyberguard/internal/llm"
	"cyberguard/internal/logging"
	"cyberguard/internal/metrics"
	"cyberguard/internal/news"
	"cyberguard/internal/playbook"
	reportrepo "cyberguard/internal/repository/report"
	"cyberguard/internal/server"
)

type App struct {
	Config    *config.Config
	Catalog   *playbook.Catalog
	Metrics   *metrics.Metrics
	LLM       llm.LLMClient
	Reports   reportrepo.Store
	KV        kvstore.Store
	Incidents *incident.Service
	Detector  *detector.Detector
	News      *news.Service
	Learning  *learning.Arena

	server *server.Server
}

func New(ctx context.Context, cfg *config.Config) (*App, error) {
	catalog, err := playbook.LoadFile(cfg.Playbook.File)
	if err != nil {
		return nil, fmt.Errorf("failed to load playbooks: %w", err)
	}
	m := metrics.New()

	client, err := llm.NewClient(ctx, llm.Options{
		APIKey: cfg.LLM.APIKey,
		Model:  cfg.LLM.Model,
		Fake:   cfg.LLM.Fake,
		RPS:    cfg.LLM.RPS,
		Burst:  cfg.LLM.Burst,
		Logger: logging.NewLogger("llm"),
		Extra:  []llm.Middleware{m.LLMMiddleware()},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}

	reports, err := newReportStore(cfg.Report)
	if err != nil {
		_ = client.Close()
		return nil, err
	}

	kv, err := kvstore.NewSQLite(cfg.KVPath)
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to open %s: %w", cfg.KVPath, err)
	}

	arena, err := learning.New(kv, nil)
	if err != nil {
		_ = kv.Close()
		_ = client.Close()
		return nil, err
	}

	// Only the companion tools retry. Classification failures go straight
	// back to the user.
	retrying := llm.WithRetry(client, cfg.LLM.Retries+1)

	a := &App{
		Config:  cfg,
		Catalog: catalog,
		Metrics: m,
		LLM:     client,
		Reports: reports,
		KV:      kv,
		Incidents: incident.New(incident.Options{
			Classifier: classifier.New(client, classifier.Options{
				Categories: catalog.KnownCategories(),
				CacheSize:  128,
				CacheTTL:   10 * time.Minute,
				Logger:     logging.NewLogger("classifier"),
			}),
			Catalog:         catalog,
			Reports:         reports,
			Metrics:         m,
			Logger:          logging.NewLogger("incident"),
			TTL:             cfg.Session.TTL,
			MaxSessions:     cfg.Session.MaxEntries,
			ClassifyTimeout: 60 * time.Second,
		}),
		Detector: detector.New(retrying, kv, m, logging.NewLogger("detector")),
		News: news.New(retrying, news.Options{
			CacheTTL: cfg.News.CacheTTL,
			Logger:   logging.NewLogger("news"),
		}),
		Learning: arena,
	}
	a.server = server.New(cfg.Port, a.Handler(), logging.NewLogger("server"))
	return a, nil
}

func newReportStore(cfg config.ReportConfig) (reportrepo.Store, error) {
	if cfg.S3.Enabled {
		s, err := reportrepo.NewS3Store(reportrepo.S3Config{
			Endpoint:  cfg.S3.Endpoint,
			Region:    cfg.S3.Region,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
			Bucket:    cfg.S3.Bucket,
			UseSSL:    cfg.S3.UseSSL,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create S3 report store: %w", err)
		}
		return s, nil
	}
	s, err := reportrepo.NewFileStore(cfg.Dir)
	if err != nil {
		return nil, fmt.Errorf("failed to create report directory: %w", err)
	}
	return s, nil
}

func (a *App) Handler() http.Handler {
	return server.NewRouter(server.Deps{
		Incidents: a.Incidents,
		Catalog:   a.Catalog,
		Reports:   a.Reports,
		Detector:  a.Detector,
		News:      a.News,
		Learning:  a.Learning,
		Metrics:   a.Metrics.Handler(),
		Logger:    logging.NewLogger("http"),
	})
}

// Start serves the HTTP API until Shutdown.
func (a *App) Start() error {
	return a.server.Start()
}

func (a *App) Shutdown(ctx context.Context) error {
	return errors.Join(a.server.Shutdown(ctx), a.Close())
}

// Close releases the LLM client and the key-value store.
func (a *App) Close() error {
	return errors.Join(a.LLM.Close(), a.KV.Close())
}
