package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Server   ServerConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Database DatabaseConfig
	Wompi    WompiConfig
	Auth     AuthConfig
	Booking  BookingConfig
}

type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type RedisConfig struct {
	Addr string
}

type KafkaConfig struct {
	Brokers []string
	GroupID string
	Topics  TopicConfig
	Enabled bool
}

type TopicConfig struct {
	BookingConfirmed string
	PaymentUpdated   string
	TeamUpdated      string
}

type DatabaseConfig struct {
	Host         string
	Port         string
	Username     string
	Password     string
	Database     string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  time.Duration
}

// DSN renders the lib/pq connection string.
func (d DatabaseConfig) DSN() string {
	return "postgres://" + d.Username + ":" + d.Password + "@" + d.Host + ":" + d.Port +
		"/" + d.Database + "?sslmode=" + d.SSLMode
}

type WompiConfig struct {
	// BaseURL of the payment function host exposing /createWompiTransaction.
	BaseURL      string
	EventsSecret string
	Currency     string
	// MinAmountInCents is enforced before the gateway is called.
	MinAmountInCents int64
	// PollDelay is the fixed wait before the payment-status record is read.
	PollDelay time.Duration
	// HoldTTL bounds how long a slot stays held while checkout is in flight.
	HoldTTL time.Duration
}

type AuthConfig struct {
	OIDCIssuer string
	PassSecret string
}

type BookingConfig struct {
	// MaxTxAttempts bounds retries of the versioned schedules update.
	MaxTxAttempts int
	// HistoryQueueSize buffers best-effort booked-game writes.
	HistoryQueueSize    int
	HistoryMaxAttempts  int
	HistoryRetryBackoff time.Duration
}

func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", ":8080"),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Redis: RedisConfig{
			Addr: getEnv("REDIS_ADDR", "localhost:6379"),
		},
		Kafka: KafkaConfig{
			Brokers: []string{getEnv("KAFKA_BROKERS", "localhost:9092")},
			GroupID: getEnv("KAFKA_GROUP_ID", "cancha-booking-group"),
			Enabled: getEnvBool("KAFKA_ENABLED", true),
			Topics: TopicConfig{
				BookingConfirmed: getEnv("KAFKA_TOPIC_BOOKING_CONFIRMED", "cancha.booking.confirmed"),
				PaymentUpdated:   getEnv("KAFKA_TOPIC_PAYMENT_UPDATED", "cancha.payment.updated"),
				TeamUpdated:      getEnv("KAFKA_TOPIC_TEAM_UPDATED", "cancha.team.updated"),
			},
		},
		Database: DatabaseConfig{
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnv("DB_PORT", "5432"),
			Username:     getEnv("DB_USERNAME", "cancha_user"),
			Password:     getEnv("DB_PASSWORD", "cancha_pass"),
			Database:     getEnv("DB_NAME", "cancha_booking"),
			SSLMode:      getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns: getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvInt("DB_MAX_IDLE_CONNS", 25),
			MaxLifetime:  time.Duration(getEnvInt("DB_MAX_LIFETIME_MINUTES", 5)) * time.Minute,
		},
		Wompi: WompiConfig{
			BaseURL:          getEnv("WOMPI_FUNCTION_URL", "http://localhost:5001"),
			EventsSecret:     getEnv("WOMPI_EVENTS_SECRET", ""),
			Currency:         getEnv("WOMPI_CURRENCY", "COP"),
			MinAmountInCents: int64(getEnvInt("WOMPI_MIN_AMOUNT_CENTS", 150000)),
			PollDelay:        time.Duration(getEnvInt("PAYMENT_POLL_DELAY_SECONDS", 4)) * time.Second,
			HoldTTL:          time.Duration(getEnvInt("SLOT_HOLD_TTL_MINUTES", 10)) * time.Minute,
		},
		Auth: AuthConfig{
			OIDCIssuer: getEnv("OIDC_ISSUER", ""),
			PassSecret: getEnv("BOOKING_PASS_SECRET", "cancha-pass-secret"),
		},
		Booking: BookingConfig{
			MaxTxAttempts:       getEnvInt("BOOKING_MAX_TX_ATTEMPTS", 5),
			HistoryQueueSize:    getEnvInt("HISTORY_QUEUE_SIZE", 256),
			HistoryMaxAttempts:  getEnvInt("HISTORY_MAX_ATTEMPTS", 5),
			HistoryRetryBackoff: time.Duration(getEnvInt("HISTORY_RETRY_BACKOFF_SECONDS", 2)) * time.Second,
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
