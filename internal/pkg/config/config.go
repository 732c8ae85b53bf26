// Package config loads the bot settings from the environment.
//
// Values are read once at startup, defaults are applied and the result is
// validated. Any problem with the required settings is reported as an error
// so the process can refuse to start instead of running misconfigured.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

var (
	ErrMissingToken = errors.New("BOT_TOKEN environment variable is not set")
	ErrMissingOwner = errors.New("OWNER_USER_ID environment variable is not set")
)

type Config struct {
	// Telegram
	BotToken            string
	OwnerUserID         int64
	DestinationChannel  *int64        // nil: echo back to the sender
	TelegramAPIEndpoint string        // empty: library default
	TelegramHTTPTimeout time.Duration // must outlive the long-poll timeout

	// Albums
	MediaGroupDelay time.Duration

	// Outbound pacing
	SendRateRPS   float64 // 0 disables the limiter
	SendRateBurst int

	// Logging
	LogLevel  string
	LogPretty bool

	// Ops server
	WebEnabled bool
	WebPort    string

	// Journal
	DatabaseURL string // empty: in-memory journal
}

// PollTimeout is the long-poll timeout, in seconds, requested from Telegram.
const PollTimeout = 60

// Load reads the configuration from the environment and validates it.
func Load() (Config, error) {
	var env envReader
	cfg := Config{
		BotToken:            strings.TrimSpace(os.Getenv("BOT_TOKEN")),
		TelegramAPIEndpoint: getenv("TELEGRAM_API_ENDPOINT", ""),
		TelegramHTTPTimeout: env.duration("TELEGRAM_HTTP_TIMEOUT", 90*time.Second),

		MediaGroupDelay: env.duration("MEDIA_GROUP_DELAY", time.Second),

		SendRateRPS:   env.number("SEND_RATE_RPS", 1),
		SendRateBurst: env.integer("SEND_RATE_BURST", 5),

		LogLevel:  strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty: env.flag("LOG_PRETTY", false),

		WebEnabled: env.flag("WEB_ENABLED", true),
		WebPort:    getenv("WEB_PORT", "8080"),

		DatabaseURL: getenv("DATABASE_URL", ""),
	}

	if cfg.BotToken == "" {
		return cfg, ErrMissingToken
	}

	owner := firstNonEmpty(os.Getenv("OWNER_USER_ID"), os.Getenv("USER_ID"))
	if owner == "" {
		return cfg, ErrMissingOwner
	}
	ownerID, err := strconv.ParseInt(owner, 10, 64)
	if err != nil {
		return cfg, fmt.Errorf("OWNER_USER_ID must be a valid integer, got: %q", owner)
	}
	cfg.OwnerUserID = ownerID

	if dest := firstNonEmpty(os.Getenv("DESTINATION_CHANNEL_ID"), os.Getenv("CHANNEL_ID")); dest != "" {
		destID, err := strconv.ParseInt(dest, 10, 64)
		if err != nil {
			return cfg, fmt.Errorf("DESTINATION_CHANNEL_ID must be a valid integer or empty, got: %q", dest)
		}
		cfg.DestinationChannel = &destID
	}

	if env.err != nil {
		return cfg, env.err
	}

	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	switch cfg.LogLevel {
	case "trace", "debug", "info", "warn", "error":
	default:
		return cfg, errors.New("LOG_LEVEL must be one of: trace, debug, info, warn, error")
	}

	if cfg.MediaGroupDelay <= 0 {
		return cfg, errors.New("MEDIA_GROUP_DELAY must be a positive duration")
	}
	if cfg.TelegramHTTPTimeout <= PollTimeout*time.Second {
		return cfg, fmt.Errorf("TELEGRAM_HTTP_TIMEOUT must be longer than the %ds poll timeout", PollTimeout)
	}
	if cfg.TelegramAPIEndpoint != "" && strings.Count(cfg.TelegramAPIEndpoint, "%s") != 2 {
		return cfg, errors.New("TELEGRAM_API_ENDPOINT must contain two %s placeholders (token, method)")
	}
	if cfg.SendRateRPS < 0 {
		return cfg, errors.New("SEND_RATE_RPS must be >= 0")
	}
	if cfg.SendRateBurst < 1 {
		return cfg, errors.New("SEND_RATE_BURST must be >= 1")
	}
	if cfg.WebEnabled && strings.TrimSpace(cfg.WebPort) == "" {
		return cfg, errors.New("WEB_PORT must not be empty when WEB_ENABLED is set")
	}

	return cfg, nil
}

// Redacted renders the configuration for humans with the token masked.
func (c Config) Redacted() string {
	dest := "sender (no channel configured)"
	if c.DestinationChannel != nil {
		dest = strconv.FormatInt(*c.DestinationChannel, 10)
	}
	journal := "memory"
	if c.DatabaseURL != "" {
		journal = "postgres"
	}
	web := "disabled"
	if c.WebEnabled {
		web = ":" + c.WebPort
	}

	var b strings.Builder
	fmt.Fprintf(&b, "bot token:          %s\n", maskToken(c.BotToken))
	fmt.Fprintf(&b, "owner user id:      %d\n", c.OwnerUserID)
	fmt.Fprintf(&b, "destination:        %s\n", dest)
	fmt.Fprintf(&b, "media group delay:  %s\n", c.MediaGroupDelay)
	fmt.Fprintf(&b, "send rate:          %g rps (burst %d)\n", c.SendRateRPS, c.SendRateBurst)
	fmt.Fprintf(&b, "log level:          %s\n", c.LogLevel)
	fmt.Fprintf(&b, "ops server:         %s\n", web)
	fmt.Fprintf(&b, "journal:            %s\n", journal)
	return b.String()
}

func maskToken(token string) string {
	if len(token) <= 8 {
		return strings.Repeat("*", len(token))
	}
	return token[:4] + strings.Repeat("*", len(token)-8) + token[len(token)-4:]
}

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return def
}

// envReader parses typed variables. Unset or blank ones take the default;
// the first malformed one is kept in err.
type envReader struct {
	err error
}

func (r *envReader) fail(k, want, v string) {
	if r.err == nil {
		r.err = fmt.Errorf("%s must be %s, got: %q", k, want, v)
	}
}

func (r *envReader) number(k string, def float64) float64 {
	v := getenv(k, "")
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		r.fail(k, "a number", v)
		return def
	}
	return f
}

func (r *envReader) integer(k string, def int) int {
	v := getenv(k, "")
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		r.fail(k, "an integer", v)
		return def
	}
	return i
}

func (r *envReader) flag(k string, def bool) bool {
	v := getenv(k, "")
	if v == "" {
		return def
	}
	switch strings.ToLower(v) {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	}
	r.fail(k, "a boolean (true/false)", v)
	return def
}

func (r *envReader) duration(k string, def time.Duration) time.Duration {
	v := getenv(k, "")
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		r.fail(k, "a duration with a unit such as 500ms or 1s", v)
		return def
	}
	return d
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
