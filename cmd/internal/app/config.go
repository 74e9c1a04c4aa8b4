package app

import "time"

// Config contains all runtime configuration loaded from environment variables.
type Config struct {
	HTTPAddr  string
	LogLevel  string
	LogFormat string

	ReadHeaderTimeout time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	MaxHeaderBytes    int

	// Auth collaborator boundary. When the key is empty, the dev verifier is
	// used ("user:<id>" tokens) and a warning is logged.
	TokenHMACKey string

	// Delivery log (optional persistence collaborator).
	DatabaseURL  string
	DBMaxConns   int32
	DBMinConns   int32
	NotifyBuffer int

	// If true, /readyz returns 503 unless DB is configured and reachable.
	ReadinessRequireDB bool
}

// LoadConfig loads Config from environment variables with defaults.
func LoadConfig() Config {
	return Config{
		HTTPAddr:  EnvString("BEACON_HTTP_ADDR", "0.0.0.0:8080"),
		LogLevel:  EnvString("BEACON_LOG_LEVEL", "info"),
		LogFormat: EnvString("BEACON_LOG_FORMAT", "json"),

		ReadHeaderTimeout: EnvDuration("BEACON_HTTP_READ_HEADER_TIMEOUT", 5*time.Second),
		ReadTimeout:       EnvDuration("BEACON_HTTP_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:      EnvDuration("BEACON_HTTP_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:       EnvDuration("BEACON_HTTP_IDLE_TIMEOUT", 60*time.Second),

		MaxHeaderBytes: EnvInt("BEACON_HTTP_MAX_HEADER_BYTES", 1<<20),

		TokenHMACKey: EnvString("BEACON_TOKEN_HMAC_KEY", ""),

		DatabaseURL:  EnvString("BEACON_DATABASE_URL", ""),
		DBMaxConns:   EnvInt32("BEACON_DB_MAX_CONNS", 10),
		DBMinConns:   EnvInt32("BEACON_DB_MIN_CONNS", 0),
		NotifyBuffer: EnvInt("BEACON_NOTIFY_BUFFER", 1024),

		ReadinessRequireDB: EnvBool("BEACON_READINESS_REQUIRE_DB", false),
	}
}
