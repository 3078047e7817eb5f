package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	JWT        JWTConfig
	Encryption EncryptionConfig
	RateLimit  RateLimitConfig
	CORS       CORSConfig
	Cookie     CookieConfig
	Tenant     TenantConfig
	Jobs       JobsConfig
	Session    SessionConfig
}

type ServerConfig struct {
	Host string
	Port int
	Env  string
}

type DatabaseConfig struct {
	Host        string
	Port        int
	User        string
	Password    string
	Name        string
	SSLMode     string
	AutoMigrate bool
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
}

type JWTConfig struct {
	Secret      string
	ExpiryHours int
}

type EncryptionConfig struct {
	Key string
}

type RateLimitConfig struct {
	Requests      int
	WindowSeconds int
	// Auth endpoints get their own, stricter window.
	AuthRequests int
}

type CORSConfig struct {
	AllowedOrigins []string
}

type CookieConfig struct {
	Secure bool
}

type TenantConfig struct {
	CacheTTLSeconds int
}

type JobsConfig struct {
	OrphanSweepCron    string
	OrphanGraceMinutes int
	WorkerConcurrency  int
}

// SessionConfig is read by the inkctl client, not the server.
type SessionConfig struct {
	APIBaseURL            string
	File                  string
	VerifyIntervalMinutes int
}

func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
}

func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

func (j *JWTConfig) Expiry() time.Duration {
	return time.Duration(j.ExpiryHours) * time.Hour
}

func (s *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

func (s *ServerConfig) IsDevelopment() bool {
	return s.Env == "development"
}

func (t *TenantConfig) CacheTTL() time.Duration {
	return time.Duration(t.CacheTTLSeconds) * time.Second
}

func (j *JobsConfig) OrphanGrace() time.Duration {
	return time.Duration(j.OrphanGraceMinutes) * time.Minute
}

func (s *SessionConfig) VerifyInterval() time.Duration {
	return time.Duration(s.VerifyIntervalMinutes) * time.Minute
}

func Load() (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_PORT", 1337)
	v.SetDefault("SERVER_ENV", "development")
	v.SetDefault("DATABASE_HOST", "localhost")
	v.SetDefault("DATABASE_PORT", 5432)
	v.SetDefault("DATABASE_USER", "inkpress")
	v.SetDefault("DATABASE_PASSWORD", "inkpress_secret")
	v.SetDefault("DATABASE_NAME", "inkpress")
	v.SetDefault("DATABASE_SSLMODE", "disable")
	v.SetDefault("DATABASE_AUTO_MIGRATE", true)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("JWT_SECRET", "change-me-in-production")
	v.SetDefault("JWT_EXPIRY_HOURS", 24)
	v.SetDefault("RATE_LIMIT_REQUESTS", 100)
	v.SetDefault("RATE_LIMIT_WINDOW_SECONDS", 60)
	v.SetDefault("RATE_LIMIT_AUTH_REQUESTS", 20)
	v.SetDefault("CORS_ALLOWED_ORIGINS", "")
	v.SetDefault("COOKIE_SECURE", false)
	v.SetDefault("TENANT_CACHE_TTL_SECONDS", 300)
	v.SetDefault("ORPHAN_SWEEP_CRON", "*/30 * * * *")
	v.SetDefault("ORPHAN_GRACE_MINUTES", 30)
	v.SetDefault("WORKER_CONCURRENCY", 10)
	v.SetDefault("API_BASE_URL", "http://localhost:1337")
	v.SetDefault("SESSION_FILE", ".inkpress-session")
	v.SetDefault("SESSION_VERIFY_INTERVAL_MINUTES", 5)

	// Load from .env file if present
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	// Override with environment variables
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	cfg := &Config{
		Server: ServerConfig{
			Host: v.GetString("SERVER_HOST"),
			Port: v.GetInt("SERVER_PORT"),
			Env:  v.GetString("SERVER_ENV"),
		},
		Database: DatabaseConfig{
			Host:        v.GetString("DATABASE_HOST"),
			Port:        v.GetInt("DATABASE_PORT"),
			User:        v.GetString("DATABASE_USER"),
			Password:    v.GetString("DATABASE_PASSWORD"),
			Name:        v.GetString("DATABASE_NAME"),
			SSLMode:     v.GetString("DATABASE_SSLMODE"),
			AutoMigrate: v.GetBool("DATABASE_AUTO_MIGRATE"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("REDIS_HOST"),
			Port:     v.GetInt("REDIS_PORT"),
			Password: v.GetString("REDIS_PASSWORD"),
		},
		JWT: JWTConfig{
			Secret:      v.GetString("JWT_SECRET"),
			ExpiryHours: v.GetInt("JWT_EXPIRY_HOURS"),
		},
		Encryption: EncryptionConfig{
			Key: v.GetString("ENCRYPTION_KEY"),
		},
		RateLimit: RateLimitConfig{
			Requests:      v.GetInt("RATE_LIMIT_REQUESTS"),
			WindowSeconds: v.GetInt("RATE_LIMIT_WINDOW_SECONDS"),
			AuthRequests:  v.GetInt("RATE_LIMIT_AUTH_REQUESTS"),
		},
		CORS: CORSConfig{
			AllowedOrigins: splitList(v.GetString("CORS_ALLOWED_ORIGINS")),
		},
		Cookie: CookieConfig{
			Secure: v.GetBool("COOKIE_SECURE"),
		},
		Tenant: TenantConfig{
			CacheTTLSeconds: v.GetInt("TENANT_CACHE_TTL_SECONDS"),
		},
		Jobs: JobsConfig{
			OrphanSweepCron:    v.GetString("ORPHAN_SWEEP_CRON"),
			OrphanGraceMinutes: v.GetInt("ORPHAN_GRACE_MINUTES"),
			WorkerConcurrency:  v.GetInt("WORKER_CONCURRENCY"),
		},
		Session: SessionConfig{
			APIBaseURL:            strings.TrimRight(v.GetString("API_BASE_URL"), "/"),
			File:                  v.GetString("SESSION_FILE"),
			VerifyIntervalMinutes: v.GetInt("SESSION_VERIFY_INTERVAL_MINUTES"),
		},
	}

	return cfg, nil
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
