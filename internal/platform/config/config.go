package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	pkgstrings "docverify/pkg/platform/strings"
)

// Server captures HTTP server level configuration.
type Server struct {
	Addr     string
	LogLevel string
	// LogFormat is "json" or "text".
	LogFormat string

	Auth         Auth
	Upload       Upload
	Verification Verification
	RateLimit    RateLimit
	Redis        RedisConfig
	Postgres     PostgresConfig
	Kafka        KafkaConfig
	OCR          OCRConfig
}

// Auth configures bearer authentication. With nothing set the API is open.
type Auth struct {
	APIKey        string
	APIKeyHash    string
	JWTSigningKey string
	JWTIssuer     string
	JWTAudience   string
}

// Enabled reports whether any credential is configured.
func (a Auth) Enabled() bool {
	return a.APIKey != "" || a.APIKeyHash != "" || a.JWTSigningKey != ""
}

// Upload bounds accepted image files, both encoded size and decoded
// width*height.
type Upload struct {
	MaxFileSize      int64
	MaxImagePixels   int64
	AllowedFileTypes []string
}

// Verification tunes the verification pipeline.
type Verification struct {
	Parallel    bool
	Threshold   float64
	Aggregation string
	RecordTTL   time.Duration
	// HistorySize bounds the in-memory record store used without Redis.
	HistorySize int
}

// RateLimit throttles each API client. A zero rate disables it.
type RateLimit struct {
	RequestsPerSecond float64
	Burst             int
	MaxClients        int
}

// RedisConfig configures the optional verification record store.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// PostgresConfig configures the optional audit store.
type PostgresConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// KafkaConfig configures the optional audit event sink.
type KafkaConfig struct {
	Brokers    []string
	AuditTopic string
	// With Materialize set and Postgres configured, the service writes audit
	// events to Kafka only and a ConsumerGroup member copies them into
	// Postgres. Otherwise both sinks are written directly.
	Materialize   bool
	ConsumerGroup string
}

// OCRConfig configures text recognition when compiled in.
type OCRConfig struct {
	Languages string
}

const (
	defaultAddr           = ":8000"
	defaultMaxFileSize    = 10 << 20
	defaultMaxImagePixels = 40_000_000
)

var defaultAllowedFileTypes = []string{
	"image/jpeg",
	"image/png",
	"image/tiff",
	"image/bmp",
	"image/webp",
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() (Server, error) {
	return fromLookup(os.LookupEnv)
}

func fromLookup(lookup func(string) (string, bool)) (Server, error) {
	env := envReader{lookup: lookup}

	cfg := Server{
		Addr:      env.string("DOCVERIFY_ADDR", defaultAddr),
		LogLevel:  env.string("LOG_LEVEL", "info"),
		LogFormat: env.string("LOG_FORMAT", "json"),
		Auth: Auth{
			APIKey:        env.string("DOCVERIFY_API_KEY", ""),
			APIKeyHash:    env.string("DOCVERIFY_API_KEY_HASH", ""),
			JWTSigningKey: env.string("JWT_SIGNING_KEY", ""),
			JWTIssuer:     env.string("JWT_ISSUER", "docverify"),
			JWTAudience:   env.string("JWT_AUDIENCE", "docverify-api"),
		},
		Upload: Upload{
			MaxFileSize:      env.int64("MAX_FILE_SIZE", defaultMaxFileSize),
			MaxImagePixels:   env.int64("MAX_IMAGE_PIXELS", defaultMaxImagePixels),
			AllowedFileTypes: pkgstrings.DedupeAndTrimLower(env.list("ALLOWED_FILE_TYPES", defaultAllowedFileTypes)),
		},
		Verification: Verification{
			Parallel:    env.bool("VERIFY_PARALLEL", true),
			Threshold:   env.float("AUTHENTICITY_THRESHOLD", 0.7),
			Aggregation: env.string("AGGREGATION", "mean"),
			RecordTTL:   env.duration("RECORD_TTL", 24*time.Hour),
			HistorySize: int(env.int64("HISTORY_SIZE", 10000)),
		},
		RateLimit: RateLimit{
			RequestsPerSecond: env.float("RATE_LIMIT_RPS", 0),
			Burst:             int(env.int64("RATE_LIMIT_BURST", 10)),
			MaxClients:        int(env.int64("RATE_LIMIT_MAX_CLIENTS", 10000)),
		},
		Redis: RedisConfig{
			URL:          env.string("REDIS_URL", ""),
			PoolSize:     int(env.int64("REDIS_POOL_SIZE", 10)),
			MinIdleConns: int(env.int64("REDIS_MIN_IDLE_CONNS", 2)),
			DialTimeout:  env.duration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  env.duration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: env.duration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Postgres: PostgresConfig{
			URL:             env.string("DATABASE_URL", ""),
			MaxOpenConns:    int(env.int64("DATABASE_MAX_OPEN_CONNS", 10)),
			MaxIdleConns:    int(env.int64("DATABASE_MAX_IDLE_CONNS", 5)),
			ConnMaxLifetime: env.duration("DATABASE_CONN_MAX_LIFETIME", 30*time.Minute),
		},
		Kafka: KafkaConfig{
			Brokers:       env.list("KAFKA_BROKERS", nil),
			AuditTopic:    env.string("KAFKA_AUDIT_TOPIC", "docverify.audit"),
			Materialize:   env.bool("KAFKA_AUDIT_MATERIALIZE", true),
			ConsumerGroup: env.string("KAFKA_CONSUMER_GROUP", "docverify-audit"),
		},
		OCR: OCRConfig{
			Languages: env.string("OCR_LANGUAGES", "eng+fra"),
		},
	}
	if err := env.err(); err != nil {
		return Server{}, err
	}
	if err := cfg.validate(); err != nil {
		return Server{}, err
	}
	return cfg, nil
}

func (c Server) validate() error {
	if c.Upload.MaxFileSize <= 0 {
		return fmt.Errorf("MAX_FILE_SIZE must be positive")
	}
	if c.Upload.MaxImagePixels <= 0 {
		return fmt.Errorf("MAX_IMAGE_PIXELS must be positive")
	}
	if c.Verification.Threshold < 0 || c.Verification.Threshold > 1 {
		return fmt.Errorf("AUTHENTICITY_THRESHOLD must be within [0, 1]")
	}
	if c.RateLimit.RequestsPerSecond < 0 {
		return fmt.Errorf("RATE_LIMIT_RPS must not be negative")
	}
	switch c.LogFormat {
	case "json", "text":
	default:
		return fmt.Errorf("LOG_FORMAT must be json or text")
	}
	return nil
}

// envReader parses typed values and remembers the first malformed one.
type envReader struct {
	lookup func(string) (string, bool)
	errs   []string
}

func (e *envReader) raw(key string) (string, bool) {
	v, ok := e.lookup(key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

func (e *envReader) string(key, def string) string {
	if v, ok := e.raw(key); ok {
		return v
	}
	return def
}

func (e *envReader) int64(key string, def int64) int64 {
	v, ok := e.raw(key)
	if !ok {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		e.errs = append(e.errs, key)
		return def
	}
	return n
}

func (e *envReader) float(key string, def float64) float64 {
	v, ok := e.raw(key)
	if !ok {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		e.errs = append(e.errs, key)
		return def
	}
	return f
}

func (e *envReader) bool(key string, def bool) bool {
	v, ok := e.raw(key)
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		e.errs = append(e.errs, key)
		return def
	}
	return b
}

func (e *envReader) duration(key string, def time.Duration) time.Duration {
	v, ok := e.raw(key)
	if !ok {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.errs = append(e.errs, key)
		return def
	}
	return d
}

func (e *envReader) list(key string, def []string) []string {
	v, ok := e.raw(key)
	if !ok {
		return def
	}
	return pkgstrings.DedupeAndTrim(strings.Split(v, ","))
}

func (e *envReader) err() error {
	if len(e.errs) == 0 {
		return nil
	}
	return fmt.Errorf("invalid environment values: %s", strings.Join(e.errs, ", "))
}
