package config

import (
	"errors"
	"strconv"
	"time"

	"github.com/vysahq/vysa-server/internal/pkg/env"
)

// Config is built once at process start and handed to each component's
// constructor. Components never read the environment themselves, so every
// external dependency is visible in a constructor signature.
type Config struct {
	AppHost string
	AppPort string
	AppEnv  string

	PublicDomain string

	DB    DatabaseConfig
	Cache CacheConfig

	Identity IdentityConfig
	Voice    VoiceConfig
	Payment  PaymentConfig
	LLM      LLMConfig
	Mail     MailConfig
	RagIndex RagIndexConfig
	Media    MediaConfig

	// InternalToken guards the session-report and cleanup endpoints that are
	// called by the voice-agent runtime and the external scheduler.
	InternalToken string

	// SweepSchedule is a cron expression for the in-process expiry sweep.
	// Empty disables the internal schedule (the endpoint still works).
	SweepSchedule string

	// InterviewTTL is how long completed interviews are retained.
	InterviewTTL time.Duration
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
}

type CacheConfig struct {
	Host string
	Port string
}

// IdentityConfig covers the hosted identity provider: JWT verification for
// API calls and HMAC verification for its user-lifecycle webhooks.
type IdentityConfig struct {
	JWTSecret     string
	WebhookSecret string
}

// VoiceConfig covers the hosted WebRTC platform: API-key/secret pair used to
// mint room access tokens and to call the egress API.
type VoiceConfig struct {
	APIKey    string
	APISecret string
	APIURL    string
}

type PaymentConfig struct {
	APIKey        string
	WebhookSecret string
	APIURL        string
	SuccessURL    string
	CancelURL     string
}

type LLMConfig struct {
	APIKey          string
	ClassifierModel string
	ReportModel     string
}

type MailConfig struct {
	APIKey string
	APIURL string
	Sender string
}

type RagIndexConfig struct {
	APIKey string
	APIURL string
}

// MediaConfig points at the S3-compatible bucket the voice platform's egress
// writes recordings into. Deletion is handled by a bucket lifecycle policy,
// not by this service.
type MediaConfig struct {
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
}

// Load reads the .env file (when present) and assembles the Config.
func Load() (*Config, error) {
	env.SetupEnvFile()

	cfg := &Config{
		AppHost:      env.GetEnv("APP_HOST", "localhost"),
		AppPort:      env.GetEnv("APP_PORT", "4000"),
		AppEnv:       env.GetEnv("APP_ENV", "prod"),
		PublicDomain: env.GetEnv("PUBLIC_DOMAIN", "http://localhost:4000"),
		DB: DatabaseConfig{
			Host:     env.GetEnv("DB_HOST", "127.0.0.1"),
			Port:     env.GetEnv("DB_PORT", "3306"),
			User:     env.GetEnv("DB_USER", ""),
			Password: env.GetEnv("DB_PASSWORD", ""),
			Name:     env.GetEnv("DB_NAME", ""),
		},
		Cache: CacheConfig{
			Host: env.GetEnv("CACHE_HOST", "localhost"),
			Port: env.GetEnv("CACHE_PORT", "6379"),
		},
		Identity: IdentityConfig{
			JWTSecret:     env.GetEnv("IDENTITY_JWT_SECRET", ""),
			WebhookSecret: env.GetEnv("IDENTITY_WEBHOOK_SECRET", ""),
		},
		Voice: VoiceConfig{
			APIKey:    env.GetEnv("VOICE_API_KEY", ""),
			APISecret: env.GetEnv("VOICE_API_SECRET", ""),
			APIURL:    env.GetEnv("VOICE_API_URL", ""),
		},
		Payment: PaymentConfig{
			APIKey:        env.GetEnv("PAYMENT_API_KEY", ""),
			WebhookSecret: env.GetEnv("PAYMENT_WEBHOOK_SECRET", ""),
			APIURL:        env.GetEnv("PAYMENT_API_URL", "https://api.payment.example.com/v1"),
			SuccessURL:    env.GetEnv("PAYMENT_SUCCESS_URL", ""),
			CancelURL:     env.GetEnv("PAYMENT_CANCEL_URL", ""),
		},
		LLM: LLMConfig{
			APIKey:          env.GetEnv("GEMINI_API_KEY", ""),
			ClassifierModel: env.GetEnv("GEMINI_CLASSIFIER_MODEL", "gemini-2.0-flash"),
			ReportModel:     env.GetEnv("GEMINI_REPORT_MODEL", "gemini-2.0-flash"),
		},
		Mail: MailConfig{
			APIKey: env.GetEnv("MAIL_API_KEY", ""),
			APIURL: env.GetEnv("MAIL_API_URL", "https://api.mail.example.com"),
			Sender: env.GetEnv("MAIL_SENDER", "Vysa <no-reply@vysa.app>"),
		},
		RagIndex: RagIndexConfig{
			APIKey: env.GetEnv("RAGINDEX_API_KEY", ""),
			APIURL: env.GetEnv("RAGINDEX_API_URL", ""),
		},
		Media: MediaConfig{
			Endpoint:  env.GetEnv("MEDIA_S3_ENDPOINT", ""),
			Region:    env.GetEnv("MEDIA_S3_REGION", "auto"),
			Bucket:    env.GetEnv("MEDIA_S3_BUCKET", ""),
			AccessKey: env.GetEnv("MEDIA_S3_ACCESS_KEY", ""),
			SecretKey: env.GetEnv("MEDIA_S3_SECRET_KEY", ""),
		},
		InternalToken: env.GetEnv("INTERNAL_API_TOKEN", ""),
		SweepSchedule: env.GetEnv("SWEEP_SCHEDULE", "0 * * * *"),
		InterviewTTL:  parseTTLDays(env.GetEnv("INTERVIEW_TTL_DAYS", "30")),
	}

	if cfg.DB.Name == "" {
		return nil, errors.New("DB_NAME is required")
	}
	return cfg, nil
}

func parseTTLDays(raw string) time.Duration {
	days, err := strconv.Atoi(raw)
	if err != nil || days <= 0 {
		days = 30
	}
	return time.Duration(days) * 24 * time.Hour
}

func (c *Config) IsDev() bool {
	return c.AppEnv == "dev"
}
