// Package logging configures the process-wide zerolog logger.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ParseLevel maps a LOG_LEVEL value onto a zerolog level.
// Unknown or empty values fall back to info.
func ParseLevel(lvl string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(lvl)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// Setup installs the global logger. pretty switches to a human readable
// console writer, otherwise JSON lines are written to w.
func Setup(w io.Writer, level string, pretty bool) {
	if w == nil {
		w = os.Stderr
	}
	zerolog.SetGlobalLevel(ParseLevel(level))
	zerolog.TimeFieldFormat = time.RFC3339

	if pretty {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05"}
	}
	log.Logger = zerolog.New(w).With().Timestamp().Str("service", "media_relay_bot").Logger()

	_ = tgbotapi.SetLogger(BotLogger{})
}

// BotLogger routes the Bot API library's own messages (mostly long-poll
// failures) into the structured log.
type BotLogger struct{}

func (BotLogger) Println(v ...interface{}) {
	log.Warn().Str("component", "tgbotapi").Msg(strings.TrimSuffix(fmt.Sprintln(v...), "\n"))
}

func (BotLogger) Printf(format string, v ...interface{}) {
	log.Warn().Str("component", "tgbotapi").Msg(strings.TrimSuffix(fmt.Sprintf(format, v...), "\n"))
}
