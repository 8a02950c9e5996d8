// Package config loads the application settings from an optional
// config.toml file, environment variables and command line flags.
package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/yukikurage/task-tracker/internal/constants"
)

var (
	validDBDrivers       = []string{"mysql", "postgres", "sqlite"}
	validSessionStores   = []string{"cookie", "redis"}
	validMailDrivers     = []string{"smtp", "log"}
	validLogLevels       = []string{"debug", "info", "warn", "error"}
	validDueDatePolicies = []string{constants.DueDatePolicyFallback, constants.DueDatePolicyReject}
)

// DefaultSessionSecret is only good for local development. Release mode
// refuses to start with it.
const DefaultSessionSecret = "default-secret-key-change-me"

type Config struct {
	HTTPAddr string
	GinMode  string
	LogLevel string

	DBDriver   string
	DBDSN      string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	SessionStore  string
	SessionSecret string
	RedisHost     string
	RedisPort     string
	RedisPassword string

	MailDriver   string
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	MailFrom     string
	MailTimeout  time.Duration

	OTPTTL             time.Duration
	OTPCleanupInterval time.Duration
	DueDatePolicy      string

	OpenAIAPIKey string
}

// IsProduction reports whether gin runs in release mode.
func (c *Config) IsProduction() bool {
	return c.GinMode == "release"
}

// RedisAddr returns host:port of the session redis.
func (c *Config) RedisAddr() string {
	return c.RedisHost + ":" + c.RedisPort
}

// Load reads the configuration. Values are resolved in the order
// flag > env > config.toml > default.
func Load(args []string) (*Config, error) {
	v := viper.New()

	fs := pflag.NewFlagSet("task-tracker", pflag.ContinueOnError)
	fs.String("config", "", "path to a config.toml file")
	fs.String("http_addr", "", "address to listen on")
	fs.String("log_level", "", "log level (debug, info, warn, error)")
	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("failed to parse flags: %w", err)
	}

	setDefaults(v)
	bindEnvs(v)

	if err := v.BindPFlag("http_addr", fs.Lookup("http_addr")); err != nil {
		return nil, fmt.Errorf("failed to bind flag: %w", err)
	}
	if err := v.BindPFlag("log_level", fs.Lookup("log_level")); err != nil {
		return nil, fmt.Errorf("failed to bind flag: %w", err)
	}

	if path, _ := fs.GetString("config"); path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("toml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{
		HTTPAddr: v.GetString("http_addr"),
		GinMode:  v.GetString("gin_mode"),
		LogLevel: strings.ToLower(v.GetString("log_level")),

		DBDriver:   strings.ToLower(v.GetString("db.driver")),
		DBDSN:      v.GetString("db.dsn"),
		DBHost:     v.GetString("db.host"),
		DBPort:     v.GetString("db.port"),
		DBUser:     v.GetString("db.user"),
		DBPassword: v.GetString("db.password"),
		DBName:     v.GetString("db.name"),

		SessionStore:  strings.ToLower(v.GetString("session.store")),
		SessionSecret: v.GetString("session.secret"),
		RedisHost:     v.GetString("redis.host"),
		RedisPort:     v.GetString("redis.port"),
		RedisPassword: v.GetString("redis.password"),

		MailDriver:   strings.ToLower(v.GetString("mail.driver")),
		SMTPHost:     v.GetString("mail.smtp_host"),
		SMTPPort:     v.GetInt("mail.smtp_port"),
		SMTPUsername: v.GetString("mail.smtp_username"),
		SMTPPassword: v.GetString("mail.smtp_password"),
		MailFrom:     v.GetString("mail.from"),
		MailTimeout:  v.GetDuration("mail.timeout"),

		OTPTTL:             v.GetDuration("otp.ttl"),
		OTPCleanupInterval: v.GetDuration("otp.cleanup_interval"),
		DueDatePolicy:      strings.ToLower(v.GetString("tasks.due_date_policy")),

		OpenAIAPIKey: v.GetString("openai.api_key"),
	}

	if cfg.MailFrom == "" {
		cfg.MailFrom = cfg.SMTPUsername
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http_addr", ":8080")
	v.SetDefault("gin_mode", "debug")
	v.SetDefault("log_level", "info")

	v.SetDefault("db.driver", "mysql")
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", "3306")
	v.SetDefault("db.user", "taskuser")
	v.SetDefault("db.password", "taskpassword")
	v.SetDefault("db.name", "task_tracker")

	v.SetDefault("session.store", "cookie")
	v.SetDefault("session.secret", DefaultSessionSecret)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", "6379")

	v.SetDefault("mail.driver", "smtp")
	v.SetDefault("mail.smtp_host", "smtp.gmail.com")
	v.SetDefault("mail.smtp_port", 465)
	v.SetDefault("mail.timeout", 15*time.Second)

	v.SetDefault("otp.ttl", constants.DefaultOTPTTL)
	v.SetDefault("otp.cleanup_interval", time.Duration(0))
	v.SetDefault("tasks.due_date_policy", constants.DueDatePolicyFallback)
}

func bindEnvs(v *viper.Viper) {
	envs := map[string]string{
		"http_addr":             "HTTP_ADDR",
		"gin_mode":              "GIN_MODE",
		"log_level":             "LOG_LEVEL",
		"db.driver":             "DB_DRIVER",
		"db.dsn":                "DB_DSN",
		"db.host":               "DB_HOST",
		"db.port":               "DB_PORT",
		"db.user":               "DB_USER",
		"db.password":           "DB_PASSWORD",
		"db.name":               "DB_NAME",
		"session.store":         "SESSION_STORE",
		"session.secret":        "SESSION_SECRET",
		"redis.host":            "REDIS_HOST",
		"redis.port":            "REDIS_PORT",
		"redis.password":        "REDIS_PASSWORD",
		"mail.driver":           "MAIL_DRIVER",
		"mail.smtp_host":        "SMTP_HOST",
		"mail.smtp_port":        "SMTP_PORT",
		"mail.smtp_username":    "SMTP_USERNAME",
		"mail.smtp_password":    "SMTP_PASSWORD",
		"mail.from":             "MAIL_FROM",
		"mail.timeout":          "MAIL_TIMEOUT",
		"otp.ttl":               "OTP_TTL",
		"otp.cleanup_interval":  "OTP_CLEANUP_INTERVAL",
		"tasks.due_date_policy": "DUE_DATE_POLICY",
		"openai.api_key":        "OPENAI_API_KEY",
	}
	for key, env := range envs {
		_ = v.BindEnv(key, env)
	}
}

// Validate checks that the loaded values can be used to start the server.
func (c *Config) Validate() error {
	if !slices.Contains(validLogLevels, c.LogLevel) {
		return fmt.Errorf("invalid log level %q", c.LogLevel)
	}
	if !slices.Contains(validDBDrivers, c.DBDriver) {
		return fmt.Errorf("invalid database driver %q", c.DBDriver)
	}
	if c.DBDriver == "sqlite" && c.DBDSN == "" {
		return errors.New("db.dsn is required for the sqlite driver")
	}
	if !slices.Contains(validSessionStores, c.SessionStore) {
		return fmt.Errorf("invalid session store %q", c.SessionStore)
	}
	if len(c.SessionSecret) < 16 {
		return errors.New("session secret must be at least 16 characters")
	}
	if c.IsProduction() && c.SessionSecret == DefaultSessionSecret {
		return errors.New("SESSION_SECRET must be set in release mode")
	}
	if !slices.Contains(validMailDrivers, c.MailDriver) {
		return fmt.Errorf("invalid mail driver %q", c.MailDriver)
	}
	if c.MailDriver == "smtp" {
		if c.SMTPHost == "" || c.SMTPPort <= 0 {
			return errors.New("smtp host and port are required")
		}
		if c.MailFrom == "" {
			return errors.New("mail sender address is required")
		}
	}
	if c.MailTimeout <= 0 {
		return errors.New("mail timeout must be positive")
	}
	if c.OTPTTL <= 0 {
		return errors.New("otp ttl must be positive")
	}
	if c.OTPCleanupInterval < 0 {
		return errors.New("otp cleanup interval cannot be negative")
	}
	if !slices.Contains(validDueDatePolicies, c.DueDatePolicy) {
		return fmt.Errorf("invalid due date policy %q", c.DueDatePolicy)
	}
	return nil
}
