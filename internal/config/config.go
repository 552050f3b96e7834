package config

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type ServerConfig struct {
	RunAddr         string `env:"SERVER_ADDRESS" mapstructure:"server_address"`
	RedirectBaseURL string `env:"BASE_URL" mapstructure:"base_url"`
	FrontendURL     string `env:"FRONTEND_URL" mapstructure:"frontend_url"`
	DatabaseDSN     string `env:"DATABASE_DSN" mapstructure:"database_dsn"`
	SQLitePath      string `env:"SQLITE_PATH" mapstructure:"sqlite_path"`
	RedisAddr       string `env:"REDIS_ADDR" mapstructure:"redis_addr"`
	RedisPassword   string `env:"REDIS_PASSWORD" mapstructure:"redis_password"`
	Secret          string `env:"SECRET" mapstructure:"secret"`
	TrustedSubnet   string `env:"TRUSTED_SUBNET" mapstructure:"trusted_subnet"`
	TLSCertPath     string `env:"TLS_CERT_PATH" mapstructure:"tls_cert_path"`
	TLSKeyPath      string `env:"TLS_KEY_PATH" mapstructure:"tls_key_path"`
	SMTPHost        string `env:"SMTP_HOST" mapstructure:"smtp_host"`
	SMTPPort        string `env:"SMTP_PORT" mapstructure:"smtp_port"`
	SMTPUsername    string `env:"SMTP_USERNAME" mapstructure:"smtp_username"`
	SMTPPassword    string `env:"SMTP_PASSWORD" mapstructure:"smtp_password"`
	SMTPFrom        string `env:"SMTP_FROM" mapstructure:"smtp_from"`
	JanitorSchedule string `env:"JANITOR_SCHEDULE" mapstructure:"janitor_schedule"`
	LogLevel        string `env:"LOG_LEVEL" mapstructure:"log_level"`
	Config          string `env:"CONFIG" mapstructure:"-"`

	// TrustedProxies may set X-Forwarded-For. Empty means the peer address is the client.
	TrustedProxies []string `env:"TRUSTED_PROXIES" envSeparator:"," mapstructure:"trusted_proxies"`

	AccessTTL       time.Duration `env:"ACCESS_TOKEN_TTL" mapstructure:"access_token_ttl"`
	RefreshTTL      time.Duration `env:"REFRESH_TOKEN_TTL" mapstructure:"refresh_token_ttl"`
	GuestTTL        time.Duration `env:"GUEST_SESSION_TTL" mapstructure:"guest_session_ttl"`
	VerificationTTL time.Duration `env:"VERIFICATION_TTL" mapstructure:"verification_ttl"`
	CacheTTL        time.Duration `env:"CACHE_TTL" mapstructure:"cache_ttl"`

	RateLimit float64 `env:"RATE_LIMIT" mapstructure:"rate_limit"`

	RedisDB         int   `env:"REDIS_DB" mapstructure:"redis_db"`
	CodeLength      int   `env:"CODE_LENGTH" mapstructure:"code_length"`
	CodeMaxAttempts int   `env:"CODE_MAX_ATTEMPTS" mapstructure:"code_max_attempts"`
	RateBurst       int   `env:"RATE_BURST" mapstructure:"rate_burst"`
	CacheSize       int64 `env:"CACHE_SIZE" mapstructure:"cache_size"`

	GuestSessions bool `env:"GUEST_SESSIONS" mapstructure:"guest_sessions"`
	CacheEnabled  bool `env:"CACHE_ENABLED" mapstructure:"cache_enabled"`
	EnableHTTPS   bool `env:"ENABLE_HTTPS" mapstructure:"enable_https"`
	ProfileMode   bool `env:"PROFILE_MODE" mapstructure:"profile_mode"`
}

func defaults() ServerConfig {
	return ServerConfig{
		RunAddr:         ":8080",
		RedirectBaseURL: "http://localhost:8080",
		FrontendURL:     "http://localhost:3000",
		Secret:          "b4952c3809196592c026529df00774e46bfb5be0",
		TLSCertPath:     "./certs/cert.pem",
		TLSKeyPath:      "./certs/private.pem",
		SMTPPort:        "587",
		JanitorSchedule: "@every 1h",
		LogLevel:        "debug",
		AccessTTL:       15 * time.Minute,
		RefreshTTL:      7 * 24 * time.Hour,
		GuestTTL:        30 * 24 * time.Hour,
		VerificationTTL: 30 * time.Second,
		CacheTTL:        10 * time.Minute,
		RateLimit:       5,
		RateBurst:       10,
		CodeLength:      7,
		CodeMaxAttempts: 8,
		CacheSize:       10_000,
		GuestSessions:   true,
		CacheEnabled:    true,
	}
}

// ParseFlags reads os.Args and the environment.
func ParseFlags() (*ServerConfig, error) {
	return parse(os.Args[1:])
}

// parse layers defaults, the JSON config file, command-line flags and the environment,
// later sources winning.
func parse(args []string) (*ServerConfig, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("error loading .env: %w", err)
	}

	config := defaults()
	fset := flag.NewFlagSet("shortener", flag.ContinueOnError)
	fset.StringVar(&config.RunAddr, "a", config.RunAddr, "address and port to run server")
	fset.StringVar(&config.RedirectBaseURL, "b", config.RedirectBaseURL, "server URI prefix")
	fset.StringVar(&config.FrontendURL, "frontend", config.FrontendURL, "page unknown short codes redirect to")
	fset.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "Data Source Name (DSN)")
	fset.StringVar(&config.SQLitePath, "sqlite", config.SQLitePath, "SQLite file or libsql URL")
	fset.StringVar(&config.RedisAddr, "redis", config.RedisAddr, "Redis address for sessions")
	fset.StringVar(&config.Secret, "s", config.Secret, "Secret")
	fset.StringVar(&config.TrustedSubnet, "t", config.TrustedSubnet, "trusted subnet in CIDR notation")
	fset.BoolVar(&config.EnableHTTPS, "https", config.EnableHTTPS, "serve HTTPS with a self-signed certificate")
	fset.BoolVar(&config.ProfileMode, "p", config.ProfileMode, "mount pprof handlers")
	fset.BoolVar(&config.GuestSessions, "guests", config.GuestSessions, "allow link creation without an account")
	fset.IntVar(&config.CodeLength, "l", config.CodeLength, "generated short code length")
	fset.StringVar(&config.Config, "c", config.Config, "path to JSON config file")

	if err := fset.Parse(args); err != nil {
		return nil, fmt.Errorf("error parsing flags: %w", err)
	}
	if path, ok := os.LookupEnv("CONFIG"); ok {
		config.Config = path
	}

	if config.Config != "" {
		if err := readFile(config.Config, &config); err != nil {
			return nil, err
		}
		// Explicit flags override the file.
		if err := fset.Parse(args); err != nil {
			return nil, fmt.Errorf("error parsing flags: %w", err)
		}
	}

	if err := env.Parse(&config); err != nil {
		return nil, fmt.Errorf("error parsing env variables: %w", err)
	}

	return &config, nil
}

func readFile(path string, config *ServerConfig) error {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("error reading config file %s: %w", path, err)
	}
	if err := v.Unmarshal(config); err != nil {
		return fmt.Errorf("error decoding config file %s: %w", path, err)
	}
	return nil
}
