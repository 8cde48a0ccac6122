package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

const Production = "production"

type DatabaseOptions struct {
	Name     string `env:"DB_NAME" envDefault:"lead_intake"`
	Host     string `env:"DB_HOST" envDefault:"localhost"`
	Port     string `env:"DB_PORT" envDefault:"5432"`
	User     string `env:"DB_USER" envDefault:"postgres"`
	Password string `env:"DB_PASSWORD" envDefault:"postgres"`
	// ReadHost points reads at a replica; empty uses Host
	ReadHost string `env:"DB_READ_HOST"`
	SSLMode  string `env:"DB_SSLMODE" envDefault:"disable"`
}

func (d *DatabaseOptions) ConnectionString() string {
	return d.connectionString(d.Host)
}

func (d *DatabaseOptions) ReadConnectionString() string {
	if d.ReadHost == "" {
		return d.ConnectionString()
	}
	return d.connectionString(d.ReadHost)
}

func (d *DatabaseOptions) connectionString(host string) string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s dbname=%s password=%s sslmode=%s",
		host, d.Port, d.User, d.Name, d.Password, d.SSLMode,
	)
}

type RedisOptions struct {
	Addr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
	// Disabled sends every read to postgres
	Disabled bool `env:"REDIS_DISABLED" envDefault:"false"`
}

type OutreachOptions struct {
	WebhookURL string        `env:"OUTREACH_WEBHOOK_URL"`
	Timeout    time.Duration `env:"OUTREACH_TIMEOUT" envDefault:"15s"`
	// CallbackSecret must be sent in X-Callback-Secret by the call-outcome webhook
	CallbackSecret string `env:"OUTREACH_CALLBACK_SECRET"`
}

type Configuration struct {
	Database DatabaseOptions
	Redis    RedisOptions
	Outreach OutreachOptions

	ServerPort       int    `env:"PORT" envDefault:"8000"`
	GoAppEnvironment string `env:"GO_APP_ENV" envDefault:"development"`
	LogLevel         string `env:"LOG_LEVEL" envDefault:"info"`
	StorageDebug     bool   `env:"STORAGE_DEBUG" envDefault:"false"`

	MaxUploadSize int64 `env:"MAX_UPLOAD_SIZE" envDefault:"10485760"`
	PageSize      int   `env:"PAGE_SIZE" envDefault:"25"`
	MaxPageSize   int   `env:"MAX_PAGE_SIZE" envDefault:"100"`

	// the authenticating proxy in front of the service puts the account id here
	UserIDHeader    string `env:"USER_ID_HEADER" envDefault:"X-User-ID"`
	RequestIDHeader string `env:"REQUEST_ID_HEADER" envDefault:"X-Request-ID"`
	MetricsPath     string `env:"PROMETHEUS_METRICS_PATH" envDefault:"/debug/prometheus"`
	// origins of the browser app; empty disables CORS
	AllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:","`

	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"15s"`

	SocketAddress string `env:"-"`
	logger        *logrus.Logger
}

// LoadEnv loads whichever of the env files exist and returns how many were loaded
func LoadEnv(envFiles []string) (int, error) {
	existing := make([]string, 0, len(envFiles))
	for _, file := range envFiles {
		if _, err := os.Stat(file); err == nil {
			existing = append(existing, file)
		}
	}

	if len(existing) == 0 {
		return 0, nil
	}

	return len(existing), godotenv.Load(existing...)
}

// Load reads the env files (variables already set win) and then the environment
func Load(envFiles ...string) (*Configuration, error) {
	if _, err := LoadEnv(envFiles); err != nil {
		return nil, err
	}

	c := &Configuration{}
	if err := env.Parse(c); err != nil {
		return nil, err
	}
	if err := c.validate(); err != nil {
		return nil, err
	}

	c.logger = logrus.New()
	c.logger.SetLevel(c.LogrusLogLevel())
	if c.GoAppEnvironment == Production {
		c.logger.SetFormatter(&logrus.JSONFormatter{})
		c.SocketAddress = fmt.Sprintf(":%d", c.ServerPort)
	} else {
		c.SocketAddress = fmt.Sprintf("localhost:%d", c.ServerPort)
	}

	return c, nil
}

func (c *Configuration) validate() error {
	if c.MaxUploadSize <= 0 {
		return fmt.Errorf("MAX_UPLOAD_SIZE must be positive, got %d", c.MaxUploadSize)
	}
	if c.PageSize <= 0 || c.MaxPageSize < c.PageSize {
		return fmt.Errorf("PAGE_SIZE must be positive and at most MAX_PAGE_SIZE, got %d/%d", c.PageSize, c.MaxPageSize)
	}
	if strings.TrimSpace(c.UserIDHeader) == "" {
		return fmt.Errorf("USER_ID_HEADER must not be empty")
	}
	if c.GoAppEnvironment == Production && c.Outreach.WebhookURL != "" && c.Outreach.CallbackSecret == "" {
		return fmt.Errorf("OUTREACH_CALLBACK_SECRET is required in production when OUTREACH_WEBHOOK_URL is set")
	}
	return nil
}

func (c *Configuration) Logger() *logrus.Logger {
	return c.logger
}

func (c *Configuration) LogrusLogLevel() logrus.Level {
	switch c.LogLevel {
	case "silent":
		return logrus.PanicLevel
	case "error":
		return logrus.ErrorLevel
	case "warn":
		return logrus.WarnLevel
	case "info":
		return logrus.InfoLevel
	case "debug":
		return logrus.DebugLevel
	default:
		return logrus.ErrorLevel
	}
}
