// Package config provides centralized configuration management for the application.
// It loads configuration from environment variables with sensible defaults and
// validates all settings on startup to fail fast on misconfiguration.
package config

import (
	"fmt"
	"net"
	"strings"
	"time"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Sheets   SheetsConfig
	Sync     SyncConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Alert    AlertConfig
	Rate     RateLimitConfig
	Security SecurityConfig
	Logging  LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 4003)
	Port int `env:"SERVER_PORT" envAlt:"PORT" default:"4003"`

	// ReadTimeout is the maximum duration for reading request body (default: 15s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`

	// WriteTimeout is the maximum duration for writing response (default: 0 for websockets)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"0s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 60s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"60s"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string (required)
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	URL string `env:"DATABASE_URL" envAlt:"DB_URL" required:"true"`

	// MaxConns is the maximum number of connections in the pool (default: 10)
	MaxConns int `env:"DB_MAX_CONNS" default:"10"`

	// MinConns is the minimum number of connections to keep open (default: 2)
	MinConns int `env:"DB_MIN_CONNS" default:"2"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`

	// MaxConnIdleTime is the maximum idle time before a connection is closed (default: 30m)
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`

	// ApplySchema creates the tables and indexes on startup (default: true)
	ApplySchema bool `env:"DB_APPLY_SCHEMA" default:"true"`
}

// SheetsConfig selects the row source.
// SourceCSVPath, when set, replaces the Google Sheets source.
type SheetsConfig struct {
	SpreadsheetID string `env:"SPREADSHEET_ID"`

	// Range is the A1 range holding the lead block (default: Sheet2!A1:Z)
	Range string `env:"SHEET_RANGE" default:"Sheet2!A1:Z"`

	// ClientEmail and PrivateKey identify the service account.
	ClientEmail string `env:"GOOGLE_CLIENT_EMAIL"`
	PrivateKey  string `env:"GOOGLE_PRIVATE_KEY"`

	// CredentialsFile is a service account JSON key, used instead of
	// ClientEmail/PrivateKey when set.
	CredentialsFile string `env:"GOOGLE_APPLICATION_CREDENTIALS"`

	// BaseURL overrides the Sheets API endpoint
	BaseURL string `env:"SHEETS_API_BASE_URL" default:"https://sheets.googleapis.com"`

	// SourceCSVPath reads rows from a CSV export instead of the API
	SourceCSVPath string `env:"SOURCE_CSV_PATH"`

	// FetchTimeout bounds one values.get call (default: 30s)
	FetchTimeout time.Duration `env:"SHEETS_FETCH_TIMEOUT" default:"30s"`
}

// SyncConfig holds sync cycle settings.
type SyncConfig struct {
	// Interval between cycles (default: 10s)
	Interval time.Duration `env:"SYNC_INTERVAL" default:"10s"`

	// RunOnStart runs a cycle before the first tick (default: true)
	RunOnStart bool `env:"SYNC_RUN_ON_START" default:"true"`

	// ColumnMapFile is a YAML column map override
	ColumnMapFile string `env:"SYNC_COLUMN_MAP_FILE"`

	// PrimarySource and SecondarySource label every inserted lead
	PrimarySource   string `env:"SYNC_PRIMARY_SOURCE" default:"Meta"`
	SecondarySource string `env:"SYNC_SECONDARY_SOURCE" default:"Facebook (Paid)"`

	// LockKey names the cross-process cycle lock (default: leadsync:cycle)
	LockKey string `env:"SYNC_LOCK_KEY" default:"leadsync:cycle"`

	// LockTTL bounds a Redis lock left by a crashed process; a live holder
	// renews it until the cycle ends (default: 5m)
	LockTTL time.Duration `env:"SYNC_LOCK_TTL" default:"5m"`
}

// RedisConfig enables the Redis cycle lock when URL is set.
type RedisConfig struct {
	URL string `env:"REDIS_URL"`
}

// KafkaConfig enables outcome publishing when Brokers is set.
type KafkaConfig struct {
	Brokers []string `env:"KAFKA_BROKERS"`
	Topic   string   `env:"KAFKA_OUTCOME_TOPIC" default:"leadsync.outcomes"`
}

// AlertConfig holds the SMTP settings for the down alert.
type AlertConfig struct {
	SMTPHost     string   `env:"ALERT_SMTP_HOST"`
	SMTPPort     int      `env:"ALERT_SMTP_PORT" default:"587"`
	SMTPUser     string   `env:"ALERT_SMTP_USER"`
	SMTPPassword string   `env:"ALERT_SMTP_PASSWORD"`
	From         string   `env:"ALERT_FROM"`
	To           []string `env:"ALERT_TO"`
}

// RateLimitConfig holds rate limiting settings per time window.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the default rate limit per IP (default: 100)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"100"`

	// SyncLimit is requests per minute for the manual sync endpoint (default: 6)
	SyncLimit int `env:"RATE_LIMIT_SYNC" default:"6"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of proxy CIDRs or bare IPs
	// whose X-Real-IP and X-Forwarded-For headers are believed
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// EnableCSP enables Content-Security-Policy headers (default: true)
	EnableCSP bool `env:"SECURITY_ENABLE_CSP" default:"true"`

	// AllowedOrigins is the CORS origin list (default: *)
	AllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" default:"*"`

	// RequireAPIKey protects the manual sync endpoint (default: false)
	RequireAPIKey bool `env:"REQUIRE_API_KEY" default:"false"`

	// APIKeys is a comma-separated list of accepted keys
	APIKeys []string `env:"API_KEYS"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	if c.Host == "" {
		return ":" + itoa(c.Port)
	}
	return c.Host + ":" + itoa(c.Port)
}

// UsesFileSource reports whether rows come from a CSV file.
func (c *SheetsConfig) UsesFileSource() bool {
	return c.SourceCSVPath != ""
}

// Enabled reports whether the down alert is sent by email.
func (c *AlertConfig) Enabled() bool {
	return c.SMTPHost != "" && len(c.To) > 0
}

// itoa converts an int to string without importing strconv in this file.
func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	var b [20]byte
	n := len(b)
	neg := i < 0
	if neg {
		i = -i
	}
	for i > 0 {
		n--
		b[n] = byte('0' + i%10)
		i /= 10
	}
	if neg {
		n--
		b[n] = '-'
	}
	return string(b[n:])
}

// TrustedNets parses TrustedProxies. A bare IP is treated as a single-host
// network. Blank entries are ignored; any other unparsable entry is an error.
func (c *SecurityConfig) TrustedNets() ([]*net.IPNet, error) {
	var nets []*net.IPNet
	var bad []string
	for _, entry := range c.TrustedProxies {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if _, network, err := net.ParseCIDR(entry); err == nil {
			nets = append(nets, network)
			continue
		}
		ip := net.ParseIP(entry)
		if ip == nil {
			bad = append(bad, entry)
			continue
		}
		bits := 8 * net.IPv6len
		if v4 := ip.To4(); v4 != nil {
			ip, bits = v4, 8*net.IPv4len
		}
		nets = append(nets, &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)})
	}
	if len(bad) > 0 {
		return nil, fmt.Errorf("TRUSTED_PROXIES has invalid entries: %s", strings.Join(bad, ", "))
	}
	return nets, nil
}
