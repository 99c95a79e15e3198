package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Publish sinks for the verification request outbox.
const (
	SinkKafka       = "kafka"
	SinkRedisStream = "redis_stream"
	SinkLog         = "log"
)

// Server captures process level configuration.
type Server struct {
	Addr        string
	Environment string

	Redis    RedisConfig
	Database DatabaseConfig
	Kafka    KafkaConfig
	OCR      OCRConfig
	KYC      KYCConfig
	Face     FaceConfig
	Stream   StreamConfig

	// PublishSink selects where outbox entries are delivered.
	PublishSink string
}

// RedisConfig configures the session store, publish guard and stream sink.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DatabaseConfig configures the Postgres outbox. An empty URL selects the in-memory outbox.
type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// KafkaConfig configures the request producer and the result consumer.
type KafkaConfig struct {
	Brokers         string
	Acks            string
	Retries         int
	DeliveryTimeout time.Duration
	RequestTopic    string
	ResultTopic     string
	ConsumerGroup   string
}

// OCRConfig configures the Tesseract ensemble.
type OCRConfig struct {
	Languages      string
	TessdataPrefix string
	Concurrency    int
	CallTimeout    time.Duration
}

// KYCConfig bounds the session lifecycle.
type KYCConfig struct {
	SessionTTL          time.Duration
	PendingTTL          time.Duration
	MaxCorrectionRounds int
	PublishGuardTTL     time.Duration
	MinFaceImages       int
	MinFaceMatches      int
}

// FaceConfig points at the face comparison collaborator.
type FaceConfig struct {
	URL     string
	Timeout time.Duration
}

// StreamConfig configures the Redis stream sink.
type StreamConfig struct {
	Name   string
	MaxLen int64
}

// Defaults mirror the values the verification flow was tuned with.
var (
	DefaultSessionTTL          = 5 * time.Minute
	DefaultPendingTTL          = 24 * time.Hour
	DefaultMaxCorrectionRounds = 3
	DefaultPublishGuardTTL     = 24 * time.Hour
)

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	return Server{
		Addr:        envString("SUIVERIFY_ADDR", ":8080"),
		Environment: envString("SUIVERIFY_ENV", "development"),
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     envInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    envInt("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: envDuration("DATABASE_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Kafka: KafkaConfig{
			Brokers:         os.Getenv("KAFKA_BROKERS"),
			Acks:            envString("KAFKA_ACKS", "all"),
			Retries:         envInt("KAFKA_RETRIES", 3),
			DeliveryTimeout: envDuration("KAFKA_DELIVERY_TIMEOUT", 30*time.Second),
			RequestTopic:    envString("KAFKA_REQUEST_TOPIC", "suiverify.verification.requests"),
			ResultTopic:     envString("KAFKA_RESULT_TOPIC", "suiverify.verification.results"),
			ConsumerGroup:   envString("KAFKA_CONSUMER_GROUP", "suiverify-verification"),
		},
		OCR: OCRConfig{
			Languages:      envString("OCR_LANGUAGES", "eng"),
			TessdataPrefix: os.Getenv("TESSDATA_PREFIX"),
			Concurrency:    envInt("OCR_CONCURRENCY", 4),
			CallTimeout:    envDuration("OCR_CALL_TIMEOUT", 20*time.Second),
		},
		KYC: KYCConfig{
			SessionTTL:          envDuration("KYC_SESSION_TTL", DefaultSessionTTL),
			PendingTTL:          envDuration("KYC_PENDING_TTL", DefaultPendingTTL),
			MaxCorrectionRounds: envInt("KYC_MAX_CORRECTION_ROUNDS", DefaultMaxCorrectionRounds),
			PublishGuardTTL:     envDuration("KYC_PUBLISH_GUARD_TTL", DefaultPublishGuardTTL),
			MinFaceImages:       envInt("KYC_MIN_FACE_IMAGES", 3),
			MinFaceMatches:      envInt("KYC_MIN_FACE_MATCHES", 2),
		},
		Face: FaceConfig{
			URL:     os.Getenv("FACE_SERVICE_URL"),
			Timeout: envDuration("FACE_SERVICE_TIMEOUT", 30*time.Second),
		},
		Stream: StreamConfig{
			Name:   envString("VERIFICATION_STREAM", "verification_stream"),
			MaxLen: int64(envInt("VERIFICATION_STREAM_MAXLEN", 10000)),
		},
		PublishSink: strings.ToLower(envString("PUBLISH_SINK", SinkKafka)),
	}
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// envInt ignores unparseable or non-positive values.
func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
