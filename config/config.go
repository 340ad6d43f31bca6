package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Supabase SupabaseConfig `yaml:"supabase"`
	Web      WebConfig      `yaml:"web"`
	Sync     SyncConfig     `yaml:"sync"`
	Auth     AuthConfig     `yaml:"auth"`
	Redis    RedisConfig    `yaml:"redis"`
}

// DatabaseConfig defines the local store.
type DatabaseConfig struct {
	Driver   string         `yaml:"driver"` // "sqlite" or "postgres"
	Path     string         `yaml:"path"`
	Postgres PostgresConfig `yaml:"postgres"`
}

// PostgresConfig defines an optional postgres-backed local store.
type PostgresConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode"`
}

// SupabaseConfig defines the hosted replica endpoint.
type SupabaseConfig struct {
	URL            string        `yaml:"url"`
	Key            string        `yaml:"key"`
	ServiceRoleKey string        `yaml:"service_role_key"`
	Enabled        bool          `yaml:"enabled"`
	Timeout        time.Duration `yaml:"timeout"`
}

// WebConfig defines the HTTP server settings.
type WebConfig struct {
	Host          string `yaml:"host"`
	Port          int    `yaml:"port"`
	SessionSecret string `yaml:"session_secret"`
}

// SyncConfig defines the background push worker.
type SyncConfig struct {
	PollInterval time.Duration `yaml:"poll_interval"`
	PullCooldown time.Duration `yaml:"pull_cooldown"`
	BatchSize    int           `yaml:"batch_size"`
}

// AuthConfig defines session and password settings.
type AuthConfig struct {
	PasswordSalt     string        `yaml:"password_salt"`
	SessionTimeout   time.Duration `yaml:"session_timeout"`
	MaxLoginAttempts int           `yaml:"max_login_attempts"`
}

// RedisConfig defines the optional cache backend.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// Defaults returns a Config with sane defaults.
func Defaults() *Config {
	return &Config{
		Database: DatabaseConfig{
			Driver: "sqlite",
			Path:   "pos_cremeria.db",
			Postgres: PostgresConfig{
				Host:    "localhost",
				Port:    5432,
				SSLMode: "disable",
			},
		},
		Supabase: SupabaseConfig{
			Timeout: 25 * time.Second,
		},
		Web: WebConfig{
			Host: "0.0.0.0",
			Port: 8090,
		},
		Sync: SyncConfig{
			PollInterval: 300 * time.Second,
			PullCooldown: 30 * time.Second,
			BatchSize:    100,
		},
		Auth: AuthConfig{
			SessionTimeout:   12 * time.Hour,
			MaxLoginAttempts: 3,
		},
	}
}

// Load reads a YAML config file, then applies .env and environment overrides.
// A missing config file is not an error; defaults are used.
func Load(path string) (*Config, error) {
	cfg := Defaults()
	data, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	// .env is optional; real environment variables win over it.
	godotenv.Load()
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("DB_PATH"); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv("SUPABASE_URL"); v != "" {
		c.Supabase.URL = v
	}
	if v := os.Getenv("SUPABASE_KEY"); v != "" {
		c.Supabase.Key = v
	}
	if v := os.Getenv("SUPABASE_SERVICE_ROLE_KEY"); v != "" {
		c.Supabase.ServiceRoleKey = v
	}
	if v := os.Getenv("USE_SUPABASE"); v != "" {
		c.Supabase.Enabled = v == "true" || v == "1"
	}
	if v := os.Getenv("PASSWORD_SALT"); v != "" {
		c.Auth.PasswordSalt = v
	}
	if v := os.Getenv("SESSION_TIMEOUT"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			c.Auth.SessionTimeout = time.Duration(secs) * time.Second
		}
	}
	if v := os.Getenv("SYNC_POLL_INTERVAL"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			c.Sync.PollInterval = time.Duration(secs) * time.Second
		}
	}
	if v := os.Getenv("MAX_LOGIN_ATTEMPTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Auth.MaxLoginAttempts = n
		}
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
}

// RemoteURL returns the replica endpoint, or empty when replication is not
// enabled. USE_SUPABASE gates sync even when a URL is configured.
func (c *Config) RemoteURL() string {
	if !c.Supabase.Enabled {
		return ""
	}
	return c.Supabase.URL
}

// SupabaseAuthKey returns the service role key when present, else the anon key.
func (c *Config) SupabaseAuthKey() string {
	if c.Supabase.ServiceRoleKey != "" {
		return c.Supabase.ServiceRoleKey
	}
	return c.Supabase.Key
}
