package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/hupe1980/viewflow/logging"
	"github.com/joho/godotenv"
)

// Settings are the process-level options of a viewflow runtime.
type Settings struct {
	LogLevel  string `env:"VIEWFLOW_LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"VIEWFLOW_LOG_FORMAT" envDefault:"json"`
	LogFile   string `env:"VIEWFLOW_LOG_FILE"`
	// LogBackend selects slog or zap.
	LogBackend string `env:"VIEWFLOW_LOG_BACKEND" envDefault:"slog"`

	Debounce time.Duration `env:"VIEWFLOW_DEBOUNCE" envDefault:"300ms"`

	APIBaseURL string        `env:"VIEWFLOW_API_URL" envDefault:"http://localhost:8080"`
	APITimeout time.Duration `env:"VIEWFLOW_API_TIMEOUT" envDefault:"10s"`

	FlagsFile  string `env:"VIEWFLOW_FLAGS_FILE"`
	WatchFlags bool   `env:"VIEWFLOW_WATCH_FLAGS" envDefault:"true"`

	RedisAddr       string  `env:"VIEWFLOW_REDIS_ADDR"`
	RedisEventsKey  string  `env:"VIEWFLOW_REDIS_EVENTS_KEY" envDefault:"viewflow:events"`
	RedisSessionKey string  `env:"VIEWFLOW_REDIS_SESSION_KEY" envDefault:"viewflow:session"`
	AnalyticsRate   float64 `env:"VIEWFLOW_ANALYTICS_RATE" envDefault:"50"`
	AnalyticsBuffer int     `env:"VIEWFLOW_ANALYTICS_BUFFER" envDefault:"256"`

	RefreshSchedule string `env:"VIEWFLOW_REFRESH_SCHEDULE" envDefault:"@every 15m"`

	AssistProvider  string `env:"VIEWFLOW_ASSIST_PROVIDER" envDefault:"none"`
	AnthropicAPIKey string `env:"ANTHROPIC_API_KEY"`
	OpenAIAPIKey    string `env:"OPENAI_API_KEY"`
}

// Load reads settings from the process environment. Variables found in the
// given .env files fill in what the environment leaves unset; missing files
// are ignored.
func Load(dotenvFiles ...string) (*Settings, error) {
	environ := make(map[string]string)
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			environ[k] = v
		}
	}

	for _, file := range dotenvFiles {
		values, err := godotenv.Read(file)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", file, err)
		}
		for k, v := range values {
			if _, set := environ[k]; !set {
				environ[k] = v
			}
		}
	}

	return LoadFrom(environ)
}

// LoadFrom parses settings from an explicit environment map.
func LoadFrom(environ map[string]string) (*Settings, error) {
	s := &Settings{}
	if err := env.Parse(s, env.Options{Environment: environ}); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate checks cross-field constraints.
func (s *Settings) Validate() error {
	if _, err := logging.ParseLevel(s.LogLevel); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	switch s.LogFormat {
	case "json", "text":
	default:
		return fmt.Errorf("config: unknown log format %q", s.LogFormat)
	}
	switch s.LogBackend {
	case "slog", "zap":
	default:
		return fmt.Errorf("config: unknown log backend %q", s.LogBackend)
	}
	switch s.AssistProvider {
	case "none", "anthropic", "openai":
	default:
		return fmt.Errorf("config: unknown assist provider %q", s.AssistProvider)
	}
	if s.Debounce < 0 {
		return fmt.Errorf("config: negative debounce %s", s.Debounce)
	}
	return nil
}

// LoggerConfig maps the logging settings onto a logging.LoggerConfig. Logs go
// to stderr unless a log file is set.
func (s *Settings) LoggerConfig() *logging.LoggerConfig {
	cfg := logging.DefaultLoggerConfig()
	cfg.Output = os.Stderr
	cfg.Level, _ = logging.ParseLevel(s.LogLevel)
	cfg.Format = s.LogFormat
	cfg.Filename = s.LogFile
	return cfg
}

// Logger builds the logger selected by LogBackend.
func (s *Settings) Logger() logging.Logger {
	if s.LogBackend == "zap" {
		return logging.NewZapLogger(s.LoggerConfig())
	}
	return logging.NewLogger(s.LoggerConfig())
}
