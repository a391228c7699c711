package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port     string
	Env      string
	Log      LogConfig
	LLM      LLMConfig
	Playbook PlaybookConfig
	DataDir  string
	KVPath   string
	Report   ReportConfig
	Session  SessionConfig
	News     NewsConfig
}

type LogConfig struct {
	Level  string
	Format string
}

type LLMConfig struct {
	APIKey  string
	Model   string
	Fake    bool
	RPS     float64
	Burst   int
	Retries int
}

type PlaybookConfig struct {
	// File overrides the embedded catalog when set.
	File string
}

type ReportConfig struct {
	Dir string
	S3  S3Config
}

type S3Config struct {
	Enabled   bool
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

type SessionConfig struct {
	TTL        time.Duration
	MaxEntries int
}

type NewsConfig struct {
	CacheTTL time.Duration
}

// Load reads .env (if present) and then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	env := firstNonEmpty(strings.TrimSpace(os.Getenv("APP_ENV")), "local")
	dataDir := firstNonEmpty(strings.TrimSpace(os.Getenv("DATA_DIR")), "./data")

	cfg := &Config{
		Port: resolvePort(os.Getenv("PORT")),
		Env:  env,
		Log: LogConfig{
			Level:  firstNonEmpty(strings.TrimSpace(os.Getenv("LOG_LEVEL")), "info"),
			Format: firstNonEmpty(strings.TrimSpace(os.Getenv("LOG_FORMAT")), "text"),
		},
		LLM: LLMConfig{
			APIKey:  strings.TrimSpace(os.Getenv("GEMINI_API_KEY")),
			Model:   firstNonEmpty(strings.TrimSpace(os.Getenv("GEMINI_MODEL")), "gemini-2.5-flash"),
			Fake:    getEnvBool("LLM_FAKE", false),
			RPS:     getEnvFloat("LLM_RPS", 0),
			Burst:   getEnvInt("LLM_BURST", 1),
			Retries: getEnvInt("LLM_RETRIES", 2),
		},
		Playbook: PlaybookConfig{
			File: strings.TrimSpace(os.Getenv("PLAYBOOK_FILE")),
		},
		DataDir: dataDir,
		KVPath:  firstNonEmpty(strings.TrimSpace(os.Getenv("KV_DB_PATH")), filepath.Join(dataDir, "cyberguard.db")),
		Report: ReportConfig{
			Dir: firstNonEmpty(strings.TrimSpace(os.Getenv("REPORT_DIR")), filepath.Join(dataDir, "reports")),
			S3:  loadS3Config(),
		},
		Session: SessionConfig{
			TTL:        getEnvDuration("SESSION_TTL", time.Hour),
			MaxEntries: getEnvInt("SESSION_MAX", 256),
		},
		News: NewsConfig{
			CacheTTL: getEnvDuration("NEWS_CACHE_TTL", 15*time.Minute),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks the fields every entry point relies on.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if !c.LLM.Fake && c.LLM.APIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY is required unless LLM_FAKE is set")
	}
	if c.LLM.Retries < 0 {
		return fmt.Errorf("LLM_RETRIES must be >= 0")
	}
	if c.Session.MaxEntries <= 0 {
		return fmt.Errorf("SESSION_MAX must be > 0")
	}
	if c.Session.TTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be > 0")
	}
	if c.Report.S3.Enabled && c.Report.S3.Bucket == "" {
		return fmt.Errorf("REPORT_S3_BUCKET cannot be empty when REPORT_S3_ENDPOINT is set")
	}
	return nil
}

// IsDevelopment reports whether the app runs on a developer machine.
func (c *Config) IsDevelopment() bool {
	return strings.EqualFold(c.Env, "local") || strings.EqualFold(c.Env, "development")
}

func loadS3Config() S3Config {
	endpoint := strings.TrimSpace(os.Getenv("REPORT_S3_ENDPOINT"))
	return S3Config{
		Enabled:   endpoint != "",
		Endpoint:  endpoint,
		Region:    firstNonEmpty(strings.TrimSpace(os.Getenv("REPORT_S3_REGION")), "us-east-1"),
		AccessKey: firstNonEmpty(strings.TrimSpace(os.Getenv("REPORT_S3_ACCESS_KEY")), strings.TrimSpace(os.Getenv("MINIO_ROOT_USER"))),
		SecretKey: firstNonEmpty(strings.TrimSpace(os.Getenv("REPORT_S3_SECRET_KEY")), strings.TrimSpace(os.Getenv("MINIO_ROOT_PASSWORD"))),
		Bucket:    firstNonEmpty(strings.TrimSpace(os.Getenv("REPORT_S3_BUCKET")), "cyberguard-reports"),
		UseSSL:    getEnvBool("REPORT_S3_USE_SSL", true),
	}
}

// resolvePort accepts "8080", ":8080" or "host:port". A bare port binds to
// loopback since the UI is meant for the local user only.
func resolvePort(raw string) string {
	raw = strings.TrimSpace(raw)
	switch {
	case raw == "":
		return "127.0.0.1:8080"
	case strings.HasPrefix(raw, ":"):
		return "127.0.0.1" + raw
	case !strings.Contains(raw, ":"):
		return "127.0.0.1:" + raw
	default:
		return raw
	}
}

func getEnvBool(key string, def bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return def
	}
	return v
}

func getEnvInt(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

func getEnvFloat(key string, def float64) float64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return def
	}
	return f
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return def
	}
	return d
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
