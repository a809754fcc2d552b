// Package config loads and validates backend configuration from environment
// variables. A .env file in the working directory is honored when present.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all runtime parameters for the driveflow backend.
type Config struct {
	// HTTPAddr is the listen address of the HTTP API (default ":8000").
	HTTPAddr string

	// UploadDir is the directory where organizer uploads are staged.
	UploadDir string

	// DownloadDir is the directory where fetched Drive files are written.
	DownloadDir string

	// CredentialsFile is the path to the OAuth client-secret JSON supplied
	// out of band (Google Cloud Console download).
	CredentialsFile string

	// TokenFile is the path where the persisted OAuth token is kept.
	TokenFile string

	// OAuthCallbackPort is the local port used to catch the consent
	// redirect during the interactive authorization flow.
	OAuthCallbackPort int

	// LLMAPIKey authenticates against the chat-completion provider.
	LLMAPIKey string

	// LLMBaseURL optionally points the OpenAI-compatible client at a
	// different provider endpoint. Empty means the default endpoint.
	LLMBaseURL string

	// LLMModel is the model identifier used for classification and the
	// fetch-and-send agent.
	LLMModel string

	// AgentTimeout bounds one agent run including all tool invocations.
	AgentTimeout time.Duration

	// HTTPReadTimeout / HTTPWriteTimeout apply to the API server.
	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration

	// ShutdownTimeout bounds graceful shutdown of the HTTP server.
	ShutdownTimeout time.Duration

	// LogLevel is the slog level (debug, info, warn, error).
	LogLevel slog.Level

	// LogFormat selects the slog handler: "json" or "text".
	LogFormat string
}

// Load reads configuration from the environment, applying defaults and
// validating the few fields that have constraints. A .env file is loaded
// first when one exists; real environment variables win over it.
func Load() (*Config, error) {
	// Ignore a missing .env; it is a development convenience only.
	_ = godotenv.Load()

	cfg := &Config{
		HTTPAddr:        getEnv("DRIVEFLOW_HTTP_ADDR", ":8000"),
		UploadDir:       getEnv("DRIVEFLOW_UPLOAD_DIR", "user_upload"),
		DownloadDir:     getEnv("DRIVEFLOW_DOWNLOAD_DIR", "download"),
		CredentialsFile: getEnv("DRIVEFLOW_CREDENTIALS_FILE", "credentials.json"),
		TokenFile:       getEnv("DRIVEFLOW_TOKEN_FILE", "token.json"),
		LLMAPIKey:       os.Getenv("DRIVEFLOW_LLM_API_KEY"),
		LLMBaseURL:      os.Getenv("DRIVEFLOW_LLM_BASE_URL"),
		LLMModel:        getEnv("DRIVEFLOW_LLM_MODEL", "gpt-4o"),
		LogFormat:       getEnv("DRIVEFLOW_LOG_FORMAT", "text"),
	}

	port, err := getEnvInt("DRIVEFLOW_OAUTH_CALLBACK_PORT", 9876)
	if err != nil {
		return nil, fmt.Errorf("DRIVEFLOW_OAUTH_CALLBACK_PORT: %w", err)
	}
	if port <= 0 || port > 65535 {
		return nil, fmt.Errorf("DRIVEFLOW_OAUTH_CALLBACK_PORT: port %d out of range", port)
	}
	cfg.OAuthCallbackPort = port

	cfg.AgentTimeout, err = getEnvDuration("DRIVEFLOW_AGENT_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("DRIVEFLOW_AGENT_TIMEOUT: %w", err)
	}
	cfg.HTTPReadTimeout, err = getEnvDuration("DRIVEFLOW_HTTP_READ_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("DRIVEFLOW_HTTP_READ_TIMEOUT: %w", err)
	}
	cfg.HTTPWriteTimeout, err = getEnvDuration("DRIVEFLOW_HTTP_WRITE_TIMEOUT", 120*time.Second)
	if err != nil {
		return nil, fmt.Errorf("DRIVEFLOW_HTTP_WRITE_TIMEOUT: %w", err)
	}
	cfg.ShutdownTimeout, err = getEnvDuration("DRIVEFLOW_SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("DRIVEFLOW_SHUTDOWN_TIMEOUT: %w", err)
	}

	cfg.LogLevel, err = parseLogLevel(getEnv("DRIVEFLOW_LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("DRIVEFLOW_LOG_LEVEL: %w", err)
	}

	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("DRIVEFLOW_LOG_FORMAT: unknown format %q", cfg.LogFormat)
	}

	return cfg, nil
}

// NewLogger builds the process logger according to the configuration.
func (c *Config) NewLogger() *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.LogLevel}
	var handler slog.Handler
	if c.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid integer %q", v)
	}
	return n, nil
}

func getEnvDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", v)
	}
	return d, nil
}

func parseLogLevel(s string) (slog.Level, error) {
	switch s {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("unknown level %q", s)
}
