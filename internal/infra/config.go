package infra

import (
	"fmt"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv   string `env:"APP_ENV" env-default:"development"`
	LogLevel string `env:"LOG_LEVEL"`
	Port     string `env:"PORT" env-default:"8080"`

	DatabaseURL string `env:"DATABASE_URL" env-required:"true"`

	JWTSecret  string        `env:"JWT_SECRET" env-required:"true"`
	JWTIssuer  string        `env:"JWT_ISSUER" env-default:"promptarchitect"`
	SessionTTL time.Duration `env:"SESSION_TTL" env-default:"168h"`

	StorageBaseURL  string `env:"STORAGE_BASE_URL"`
	StoragePath     string `env:"STORAGE_PATH" env-default:"./storage"`
	DeviceStorePath string `env:"DEVICE_STORE_PATH" env-default:"./data/device"`
	GeoIPDBPath     string `env:"GEOIP_DB_PATH"`

	GoogleClientID     string `env:"GOOGLE_CLIENT_ID"`
	GoogleIssuer       string `env:"GOOGLE_ISSUER" env-default:"https://accounts.google.com"`
	GoogleRedirectURL  string `env:"GOOGLE_REDIRECT_URL"`
	GitHubClientID     string `env:"GITHUB_CLIENT_ID"`
	GitHubClientSecret string `env:"GITHUB_CLIENT_SECRET"`
	GitHubRedirectURL  string `env:"GITHUB_REDIRECT_URL"`

	GeminiAPIKey     string        `env:"GEMINI_API_KEY"`
	GeminiBaseURL    string        `env:"GEMINI_BASE_URL" env-default:"https://generativelanguage.googleapis.com/v1beta"`
	GeminiTextModel  string        `env:"GEMINI_TEXT_MODEL" env-default:"gemini-2.5-flash"`
	GeminiImageModel string        `env:"GEMINI_IMAGE_MODEL" env-default:"gemini-2.5-flash-image"`
	AITimeout        time.Duration `env:"AI_TIMEOUT" env-default:"90s"`

	HTTPReadTimeout  time.Duration `env:"HTTP_READ_TIMEOUT" env-default:"15s"`
	HTTPWriteTimeout time.Duration `env:"HTTP_WRITE_TIMEOUT" env-default:"120s"`
	HTTPIdleTimeout  time.Duration `env:"HTTP_IDLE_TIMEOUT" env-default:"60s"`
	RateLimitPerMin  int           `env:"RATE_LIMIT_PER_MINUTE" env-default:"60"`
	MaxUploadBytes   int64         `env:"MAX_UPLOAD_BYTES" env-default:"10485760"`
	CORSOrigins      []string      `env:"CORS_ALLOWED_ORIGINS" env-separator:"," env-default:"http://localhost:5173"`
	DraftIdleTTL     time.Duration `env:"DRAFT_IDLE_TTL" env-default:"2h"`
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("config: read env: %w", err)
	}

	if strings.TrimSpace(cfg.StorageBaseURL) == "" {
		cfg.StorageBaseURL = fmt.Sprintf("http://localhost:%s/static", cfg.Port)
	}
	cfg.StorageBaseURL = strings.TrimRight(cfg.StorageBaseURL, "/")

	origins := cfg.CORSOrigins[:0]
	for _, origin := range cfg.CORSOrigins {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	cfg.CORSOrigins = origins

	return &cfg, nil
}

// IsDevelopment reports whether the service runs with developer defaults.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}
