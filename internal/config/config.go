package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	SLA          SLAConfig
	Escalation   EscalationConfig
	Payment      PaymentConfig
	Notification NotificationConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level  string
	Format string
}

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	JWTSecret               string
	AccessTokenTTLMinutes   int
	PasswordResetTTLMinutes int
	BcryptCost              int
}

// TierConfig is the SLA budget for one priority tier.
type TierConfig struct {
	ResponseTimeMinutes         int
	ResolutionTimeHours         int
	InternalInterventionMinutes int
}

// SLAConfig is the injected SLA policy. Cases snapshot these values at
// creation, so edits here never retroactively affect in-flight cases.
type SLAConfig struct {
	Urgent    TierConfig
	Important TierConfig
	Aesthetic TierConfig

	HoldPercent  int
	MinHoldCents int64
	MaxHoldCents int64
}

// EscalationConfig controls the deadline sweep.
type EscalationConfig struct {
	SweepIntervalSeconds   int
	ApproachingLeadMinutes int
}

// PaymentConfig configures the payment gateway.
type PaymentConfig struct {
	StripeKey      string
	Currency       string
	TimeoutSeconds int
}

// NotificationConfig holds outbound delivery endpoints.
type NotificationConfig struct {
	EmailFrom  string
	WebhookURL string
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "aftersales-service"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Auth: AuthConfig{
			JWTSecret:               getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes:   getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
			PasswordResetTTLMinutes: getEnvAsInt("AUTH_PASSWORD_RESET_TTL_MINUTES", 30),
			BcryptCost:              getEnvAsInt("AUTH_BCRYPT_COST", 12),
		},
		SLA: SLAConfig{
			Urgent: TierConfig{
				ResponseTimeMinutes:         getEnvAsInt("SLA_URGENT_RESPONSE_MINUTES", 60),
				ResolutionTimeHours:         getEnvAsInt("SLA_URGENT_RESOLUTION_HOURS", 24),
				InternalInterventionMinutes: getEnvAsInt("SLA_URGENT_INTERVENTION_MINUTES", 30),
			},
			Important: TierConfig{
				ResponseTimeMinutes:         getEnvAsInt("SLA_IMPORTANT_RESPONSE_MINUTES", 240),
				ResolutionTimeHours:         getEnvAsInt("SLA_IMPORTANT_RESOLUTION_HOURS", 72),
				InternalInterventionMinutes: getEnvAsInt("SLA_IMPORTANT_INTERVENTION_MINUTES", 120),
			},
			Aesthetic: TierConfig{
				ResponseTimeMinutes:         getEnvAsInt("SLA_AESTHETIC_RESPONSE_MINUTES", 1440),
				ResolutionTimeHours:         getEnvAsInt("SLA_AESTHETIC_RESOLUTION_HOURS", 168),
				InternalInterventionMinutes: getEnvAsInt("SLA_AESTHETIC_INTERVENTION_MINUTES", 480),
			},
			HoldPercent:  getEnvAsInt("HOLD_PERCENT", 25),
			MinHoldCents: int64(getEnvAsInt("HOLD_MIN_CENTS", 5000)),
			MaxHoldCents: int64(getEnvAsInt("HOLD_MAX_CENTS", 500000)),
		},
		Escalation: EscalationConfig{
			SweepIntervalSeconds:   getEnvAsInt("ESCALATION_SWEEP_INTERVAL_SECONDS", 60),
			ApproachingLeadMinutes: getEnvAsInt("ESCALATION_APPROACHING_LEAD_MINUTES", 30),
		},
		Payment: PaymentConfig{
			StripeKey:      os.Getenv("STRIPE_API_KEY"),
			Currency:       getEnv("PAYMENT_CURRENCY", "cad"),
			TimeoutSeconds: getEnvAsInt("PAYMENT_TIMEOUT_SECONDS", 10),
		},
		Notification: NotificationConfig{
			EmailFrom:  getEnv("NOTIFY_EMAIL_FROM", "noreply@example.com"),
			WebhookURL: getEnv("NOTIFY_WEBHOOK_URL", ""),
		},
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// SweepInterval returns the deadline sweep cadence.
func (e EscalationConfig) SweepInterval() time.Duration {
	if e.SweepIntervalSeconds <= 0 {
		return time.Minute
	}
	return time.Duration(e.SweepIntervalSeconds) * time.Second
}

// ApproachingLead returns the deadline_approaching lead time.
func (e EscalationConfig) ApproachingLead() time.Duration {
	if e.ApproachingLeadMinutes <= 0 {
		return 30 * time.Minute
	}
	return time.Duration(e.ApproachingLeadMinutes) * time.Minute
}

// Timeout returns the bound on a single gateway call.
func (p PaymentConfig) Timeout() time.Duration {
	if p.TimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(p.TimeoutSeconds) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
