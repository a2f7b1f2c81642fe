package config

import (
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	maxRateLimit        = 200
	minRateLimit        = 0
	maxHTTPRetries      = 10
	minHTTPRetries      = 0
	minRequestTimeout   = 100 * time.Millisecond
	maxRequestTimeout   = 5 * time.Minute
	minSessionCacheSize = 1
	maxSessionCacheSize = 10000
	minSessionIdleTTL   = time.Second
	maxSessionIdleTTL   = 24 * time.Hour
	minIdleConnsPerHost = 1
	maxIdleConnsPerHost = 512
)

// Config holds 12-factor environment configuration shared by the transport,
// session cache and provider packages.
type Config struct {
	ProviderURL         string
	RateLimit           int
	HTTPRetries         int
	HTTPBackoffBase     time.Duration
	RequestTimeout      time.Duration
	SessionCacheSize    int
	SessionIdleTTL      time.Duration
	MaxIdleConnsPerHost int
	Log                 LoggerConfig
}

// LoggerConfig configures the process-wide zap logger.
type LoggerConfig struct {
	Level      string
	Format     string // "json" or "console"
	File       string // optional rotated file sink
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// defaults doubles as the fallback table for unparsable values.
var defaults = map[string]string{
	"ETH_PROVIDER_URL":        "",
	"RATE_LIMIT":              "0",
	"HTTP_RETRIES":            "2",
	"HTTP_BACKOFF_BASE":       "100ms",
	"REQUEST_TIMEOUT":         "10s",
	"SESSION_CACHE_SIZE":      "100",
	"SESSION_IDLE_TTL":        "5m",
	"MAX_IDLE_CONNS_PER_HOST": "32",
	"LOG_LEVEL":               "info",
	"LOG_FORMAT":              "json",
	"LOG_FILE":                "",
	"LOG_MAX_SIZE_MB":         "100",
	"LOG_MAX_BACKUPS":         "5",
	"LOG_MAX_AGE_DAYS":        "30",
	"LOG_COMPRESS":            "true",
}

// SetDefaults registers every known key on v.
func SetDefaults(v *viper.Viper) {
	for k, d := range defaults {
		v.SetDefault(k, d)
	}
}

func newViper() *viper.Viper {
	v := viper.New()
	v.AutomaticEnv()
	SetDefaults(v)
	return v
}

func str(v *viper.Viper, key string) string {
	return strings.TrimSpace(v.GetString(key))
}

func parseInt(v *viper.Viper, key string) int {
	def, _ := strconv.Atoi(defaults[key])
	raw := str(v, key)
	if raw == "" {
		return def
	}
	if i, err := strconv.Atoi(raw); err == nil {
		return i
	}
	return def
}

func parseDur(v *viper.Viper, key string) time.Duration {
	def, _ := time.ParseDuration(defaults[key])
	raw := str(v, key)
	if raw == "" {
		return def
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return def
}

func parseBool(v *viper.Viper, key string) bool {
	def, _ := strconv.ParseBool(defaults[key])
	if b, err := strconv.ParseBool(str(v, key)); err == nil {
		return b
	}
	return def
}

func clampInt(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

func clampDuration(v, min, max time.Duration) time.Duration {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// RedactURL hides credentials in endpoint URLs to avoid logging secrets.
func RedactURL(s string) string {
	if s == "" {
		return s
	}
	if u, err := url.Parse(s); err == nil && u.User != nil {
		if name := u.User.Username(); name != "" {
			u.User = url.UserPassword(name, "***")
		} else {
			u.User = url.User("***")
		}
		return u.String()
	}
	// Best-effort scan for user:pass@ when parsing did not surface user info.
	if i := strings.Index(s, "//"); i >= 0 {
		j := strings.Index(s[i+2:], "@")
		if j > 0 {
			prefix := s[:i+2]
			creds := s[i+2 : i+2+j]
			if strings.Contains(creds, ":") {
				user := strings.SplitN(creds, ":", 2)[0]
				return prefix + user + ":***@" + s[i+2+j+1:]
			}
		}
	}
	return s
}

// Load reads environment variables and returns a Config with defaults applied.
func Load() Config {
	v := newViper()
	return Config{
		ProviderURL:         str(v, "ETH_PROVIDER_URL"),
		RateLimit:           clampInt(parseInt(v, "RATE_LIMIT"), minRateLimit, maxRateLimit),
		HTTPRetries:         clampInt(parseInt(v, "HTTP_RETRIES"), minHTTPRetries, maxHTTPRetries),
		HTTPBackoffBase:     parseDur(v, "HTTP_BACKOFF_BASE"),
		RequestTimeout:      clampDuration(parseDur(v, "REQUEST_TIMEOUT"), minRequestTimeout, maxRequestTimeout),
		SessionCacheSize:    clampInt(parseInt(v, "SESSION_CACHE_SIZE"), minSessionCacheSize, maxSessionCacheSize),
		SessionIdleTTL:      clampDuration(parseDur(v, "SESSION_IDLE_TTL"), minSessionIdleTTL, maxSessionIdleTTL),
		MaxIdleConnsPerHost: clampInt(parseInt(v, "MAX_IDLE_CONNS_PER_HOST"), minIdleConnsPerHost, maxIdleConnsPerHost),
		Log: LoggerConfig{
			Level:      strings.ToLower(str(v, "LOG_LEVEL")),
			Format:     strings.ToLower(str(v, "LOG_FORMAT")),
			File:       str(v, "LOG_FILE"),
			MaxSizeMB:  parseInt(v, "LOG_MAX_SIZE_MB"),
			MaxBackups: parseInt(v, "LOG_MAX_BACKUPS"),
			MaxAgeDays: parseInt(v, "LOG_MAX_AGE_DAYS"),
			Compress:   parseBool(v, "LOG_COMPRESS"),
		},
	}
}
