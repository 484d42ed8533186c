package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	DriverSQLite    = "sqlite"
	DriverPostgres  = "postgres"
	DriverFirestore = "firestore"

	SessionStoreMemory = "memory"
	SessionStoreRedis  = "redis"

	PolicyOwner = "owner"
	PolicyOpen  = "open"

	FallbackEmpty = "empty"
	FallbackAll   = "all"
)

type Config struct {
	ServerPort         string        `env:"SERVER_PORT" envDefault:"8080"`
	CORSAllowedOrigins []string      `env:"CORS_ALLOWED_ORIGINS" envSeparator:","`
	LogLevel           string        `env:"LOG_LEVEL" envDefault:"info"`
	StaticDir          string        `env:"STATIC_DIR" envDefault:"static"`
	ShutdownTimeout    time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"15s"`

	DBDriver   string `env:"DB_DRIVER" envDefault:"sqlite"`
	SQLitePath string `env:"SQLITE_PATH" envDefault:"taskboard.db"`
	Postgres   PostgresConfig

	FirebaseCredentialsPath string `env:"FIREBASE_CREDENTIALS_PATH"`
	FirebaseProjectID       string `env:"FIREBASE_PROJECT_ID"`

	SessionStore        string        `env:"SESSION_STORE" envDefault:"memory"`
	SessionTTL          time.Duration `env:"SESSION_TTL" envDefault:"24h"`
	SessionCookieName   string        `env:"SESSION_COOKIE_NAME" envDefault:"taskboard_session"`
	SessionCookieSecure bool          `env:"SESSION_COOKIE_SECURE" envDefault:"false"`
	RedisAddr           string        `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword       string        `env:"REDIS_PASSWORD"`
	RedisDB             int           `env:"REDIS_DB" envDefault:"0"`

	AuthzPolicy           string   `env:"AUTHZ_POLICY" envDefault:"owner"`
	TaskPriorities        []string `env:"TASK_PRIORITIES" envDefault:"Low,Med,High" envSeparator:","`
	DefaultPriority       string   `env:"DEFAULT_PRIORITY" envDefault:"Med"`
	PersonalScopeFallback string   `env:"PERSONAL_SCOPE_FALLBACK" envDefault:"empty"`
	BcryptCost            int      `env:"BCRYPT_COST" envDefault:"12"`
}

// PostgresConfig keeps the variable names the backend has always used.
type PostgresConfig struct {
	Host     string `env:"DB_HOST" envDefault:"localhost"`
	Port     string `env:"DB_PORT" envDefault:"5432"`
	User     string `env:"DB_USER"`
	Password string `env:"DB_PASSWORD"`
	Name     string `env:"DB_NAME"`
	SSLMode  string `env:"DB_SSLMODE" envDefault:"disable"`
}

// DSN renders the lib/pq key=value connection string.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Name, p.SSLMode)
}

// Load reads envFile into the process environment (a missing file is fine
// unless required is set) and parses the result into a validated Config.
func Load(envFile string, required bool) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			if required || !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("load env file %s: %w", envFile, err)
			}
		}
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if err := oneOf("DB_DRIVER", c.DBDriver, DriverSQLite, DriverPostgres, DriverFirestore); err != nil {
		return err
	}
	if err := oneOf("SESSION_STORE", c.SessionStore, SessionStoreMemory, SessionStoreRedis); err != nil {
		return err
	}
	if err := oneOf("AUTHZ_POLICY", c.AuthzPolicy, PolicyOwner, PolicyOpen); err != nil {
		return err
	}
	if err := oneOf("PERSONAL_SCOPE_FALLBACK", c.PersonalScopeFallback, FallbackEmpty, FallbackAll); err != nil {
		return err
	}

	found := false
	nonBlank := 0
	for _, p := range c.TaskPriorities {
		if strings.TrimSpace(p) == "" {
			continue
		}
		nonBlank++
		if strings.TrimSpace(p) == c.DefaultPriority {
			found = true
		}
	}
	if nonBlank == 0 {
		return errors.New("config: TASK_PRIORITIES must name at least one priority")
	}
	if !found {
		return fmt.Errorf("config: DEFAULT_PRIORITY %q is not in TASK_PRIORITIES %v", c.DefaultPriority, c.TaskPriorities)
	}
	if c.SessionTTL <= 0 {
		return errors.New("config: SESSION_TTL must be positive")
	}
	return nil
}

func oneOf(name, value string, allowed ...string) error {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return fmt.Errorf("config: %s must be one of %s, got %q", name, strings.Join(allowed, "|"), value)
}
