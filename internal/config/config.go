package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// Environment names
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
	EnvTest        = "test"
)

// Database drivers
const (
	DriverPostgres = "postgres"
	DriverPGX      = "pgx"
	DriverMemory   = "memory"
)

// Config represents the application configuration
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	API      APIConfig      `yaml:"api"`
	Web      WebConfig      `yaml:"web"`
	Database DatabaseConfig `yaml:"database"`
	NATS     NATSConfig     `yaml:"nats"`
	JWT      JWTConfig      `yaml:"jwt"`
	Auth     AuthConfig     `yaml:"auth"`
	Gateway  GatewayConfig  `yaml:"gateway"`
	Log      LogConfig      `yaml:"log"`
}

// ServerConfig represents server configuration
type ServerConfig struct {
	Name            string        `yaml:"name"`
	Version         string        `yaml:"version"`
	Environment     string        `yaml:"environment"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// APIConfig represents API configuration
type APIConfig struct {
	Host           string        `yaml:"host"`
	Port           int           `yaml:"port"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	AllowedOrigins []string      `yaml:"allowed_origins"`
}

// WebConfig represents the SPA static file configuration
type WebConfig struct {
	StaticDir string `yaml:"static_dir"`
}

// DatabaseConfig represents database configuration.
// DSN wins over the discrete connection fields when both are set.
type DatabaseConfig struct {
	Driver          string        `yaml:"driver"`
	DSN             string        `yaml:"dsn"`
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Name            string        `yaml:"name"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslmode"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	MigrateOnStart  bool          `yaml:"migrate_on_start"`
}

// NATSConfig represents NATS configuration. An empty URL disables change events.
type NATSConfig struct {
	URL               string        `yaml:"url"`
	Username          string        `yaml:"username"`
	Password          string        `yaml:"password"`
	SubjectPrefix     string        `yaml:"subject_prefix"`
	MaxReconnects     int           `yaml:"max_reconnects"`
	ReconnectInterval time.Duration `yaml:"reconnect_interval"`
}

// JWTConfig represents JWT configuration
type JWTConfig struct {
	Secret   string        `yaml:"secret"`
	Issuer   string        `yaml:"issuer"`
	TokenTTL time.Duration `yaml:"token_ttl"`
}

// AuthConfig represents credential settings
type AuthConfig struct {
	BcryptCost        int `yaml:"bcrypt_cost"`
	MinPasswordLength int `yaml:"min_password_length"`
}

// GatewayConfig represents table gateway limits. A zero DefaultLimit lists
// every matching row when the request has no limit; MaxLimit bounds an
// explicit limit.
type GatewayConfig struct {
	DefaultLimit int `yaml:"default_limit"`
	MaxLimit     int `yaml:"max_limit"`
}

// LogConfig represents logging configuration
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load loads configuration from file. An empty filename skips the file and
// builds the configuration from defaults and the environment only.
func Load(filename string) (*Config, error) {
	var cfg Config

	if filename != "" {
		data, err := os.ReadFile(filename)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}

		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("unmarshal config: %w", err)
		}
	}

	cfg.applyEnvOverrides()
	cfg.setDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// applyEnvOverrides applies environment variable overrides
func (c *Config) applyEnvOverrides() {
	if env := os.Getenv("APP_ENV"); env != "" {
		c.Server.Environment = env
	} else if env := os.Getenv("NODE_ENV"); env != "" {
		c.Server.Environment = env
	}

	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.API.Port = p
		} else {
			log.Warn().Str("PORT", port).Msg("Ignoring invalid PORT")
		}
	}

	if driver := os.Getenv("DB_DRIVER"); driver != "" {
		c.Database.Driver = driver
	}
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		c.Database.DSN = dsn
	}
	if host := os.Getenv("DB_HOST"); host != "" {
		c.Database.Host = host
	}
	if port := os.Getenv("DB_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Database.Port = p
		} else {
			log.Warn().Str("DB_PORT", port).Msg("Ignoring invalid DB_PORT")
		}
	}
	if name := os.Getenv("DB_NAME"); name != "" {
		c.Database.Name = name
	}
	if user := os.Getenv("DB_USER"); user != "" {
		c.Database.User = user
	}
	if password := os.Getenv("DB_PASSWORD"); password != "" {
		c.Database.Password = password
	}
	if sslMode := os.Getenv("DB_SSLMODE"); sslMode != "" {
		c.Database.SSLMode = sslMode
	}

	if natsURL := os.Getenv("NATS_URL"); natsURL != "" {
		c.NATS.URL = natsURL
	}

	if jwtSecret := os.Getenv("JWT_SECRET"); jwtSecret != "" {
		c.JWT.Secret = jwtSecret
	}

	if logLevel := os.Getenv("LOG_LEVEL"); logLevel != "" {
		c.Log.Level = logLevel
	}

	if webDir := os.Getenv("WEB_DIR"); webDir != "" {
		c.Web.StaticDir = webDir
	}
}

// setDefaults fills every unset field
func (c *Config) setDefaults() {
	if c.Server.Name == "" {
		c.Server.Name = "gestaopro-server"
	}
	if c.Server.Version == "" {
		c.Server.Version = "1.0.0"
	}
	if c.Server.Environment == "" {
		c.Server.Environment = EnvDevelopment
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 15 * time.Second
	}

	if c.API.Port == 0 {
		c.API.Port = 3001
	}
	if c.API.RequestTimeout == 0 {
		c.API.RequestTimeout = 60 * time.Second
	}
	if len(c.API.AllowedOrigins) == 0 {
		c.API.AllowedOrigins = []string{"*"}
	}

	if c.Web.StaticDir == "" {
		c.Web.StaticDir = "web/dist"
	}

	if c.Database.Driver == "" {
		c.Database.Driver = DriverPostgres
	}
	if c.Database.Host == "" {
		c.Database.Host = "localhost"
	}
	if c.Database.Port == 0 {
		c.Database.Port = 5432
	}
	if c.Database.Name == "" {
		c.Database.Name = "gestaopro"
	}
	if c.Database.User == "" {
		c.Database.User = "postgres"
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}
	if c.Database.MaxOpenConns == 0 {
		c.Database.MaxOpenConns = 20
	}
	if c.Database.MaxIdleConns == 0 {
		c.Database.MaxIdleConns = 5
	}
	if c.Database.ConnMaxLifetime == 0 {
		c.Database.ConnMaxLifetime = 30 * time.Minute
	}

	if c.NATS.SubjectPrefix == "" {
		c.NATS.SubjectPrefix = "gestaopro"
	}
	if c.NATS.MaxReconnects == 0 {
		c.NATS.MaxReconnects = 60
	}
	if c.NATS.ReconnectInterval == 0 {
		c.NATS.ReconnectInterval = 2 * time.Second
	}

	if c.JWT.Issuer == "" {
		c.JWT.Issuer = "gestaopro"
	}
	if c.JWT.TokenTTL == 0 {
		c.JWT.TokenTTL = 7 * 24 * time.Hour
	}

	if c.Auth.BcryptCost == 0 {
		c.Auth.BcryptCost = 12
	}
	if c.Auth.MinPasswordLength == 0 {
		c.Auth.MinPasswordLength = 6
	}

	if c.Gateway.MaxLimit == 0 {
		c.Gateway.MaxLimit = 1000
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		if c.IsProduction() {
			c.Log.Format = "json"
		} else {
			c.Log.Format = "console"
		}
	}
}

// Validate checks settings that cannot be defaulted
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverPostgres, DriverPGX, DriverMemory:
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}

	if c.JWT.Secret == "" {
		return errors.New("jwt secret is required (JWT_SECRET)")
	}
	if c.IsProduction() && len(c.JWT.Secret) < 32 {
		return errors.New("jwt secret must be at least 32 bytes in production")
	}

	if c.Auth.BcryptCost < 4 || c.Auth.BcryptCost > 31 {
		return fmt.Errorf("bcrypt cost %d out of range", c.Auth.BcryptCost)
	}

	if c.Gateway.DefaultLimit < 0 || c.Gateway.DefaultLimit > c.Gateway.MaxLimit {
		return fmt.Errorf("gateway default_limit %d exceeds max_limit %d",
			c.Gateway.DefaultLimit, c.Gateway.MaxLimit)
	}

	return nil
}

// IsProduction reports whether the server runs in production mode
func (c *Config) IsProduction() bool {
	return c.Server.Environment == EnvProduction
}

// ConnectionString returns the DSN for the configured database
func (d *DatabaseConfig) ConnectionString() string {
	if d.DSN != "" {
		return d.DSN
	}

	u := url.URL{
		Scheme: "postgres",
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   "/" + d.Name,
	}
	if d.Password != "" {
		u.User = url.UserPassword(d.User, d.Password)
	} else {
		u.User = url.User(d.User)
	}
	q := url.Values{}
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()

	return u.String()
}

// Addr returns the API listen address
func (a *APIConfig) Addr() string {
	return fmt.Sprintf("%s:%d", a.Host, a.Port)
}

// PrintConfigSummary prints the effective configuration without secrets
func (c *Config) PrintConfigSummary() {
	fmt.Printf("=== GestãoPro Server Configuration ===\n")
	fmt.Printf("Server: %s v%s (%s)\n", c.Server.Name, c.Server.Version, c.Server.Environment)
	fmt.Printf("API: %s (timeout %s)\n", c.API.Addr(), c.API.RequestTimeout)
	fmt.Printf("Database: driver=%s host=%s:%d name=%s user=%s pool=%d/%d\n",
		c.Database.Driver, c.Database.Host, c.Database.Port, c.Database.Name,
		c.Database.User, c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	fmt.Printf("Migrate on start: %v\n", c.Database.MigrateOnStart)
	if c.NATS.URL != "" {
		fmt.Printf("NATS: %s (prefix %s)\n", c.NATS.URL, c.NATS.SubjectPrefix)
	} else {
		fmt.Printf("NATS: disabled\n")
	}
	fmt.Printf("Token TTL: %s\n", c.JWT.TokenTTL)
	fmt.Printf("Gateway limits: default=%d max=%d\n", c.Gateway.DefaultLimit, c.Gateway.MaxLimit)
	fmt.Printf("Web UI: %s\n", c.Web.StaticDir)
	fmt.Printf("Log: level=%s format=%s\n", c.Log.Level, c.Log.Format)
}
