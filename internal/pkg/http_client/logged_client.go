// Package http_client wraps the Bot API transport with request logging.
package http_client

import (
	"bytes"
	"io"
	"net/http"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// maxLoggedBody caps request and response bodies written at trace level.
const maxLoggedBody = 1000

var tokenInPath = regexp.MustCompile(`/bot[^/]+/`)

// LoggedClient satisfies tgbotapi.HTTPClient and logs every round trip.
// The bot token is part of each Bot API URL and never reaches the log.
type LoggedClient struct {
	*http.Client
}

type LogEntry struct {
	ID           string
	Method       string
	URL          string
	RequestBody  string
	StatusCode   int
	ResponseBody string
	Duration     time.Duration
	Err          error
}

func NewLoggedClient(timeout time.Duration) *LoggedClient {
	return &LoggedClient{
		Client: &http.Client{
			Timeout: timeout,
		},
	}
}

func (c *LoggedClient) Do(req *http.Request) (*http.Response, error) {
	startTime := time.Now()
	tracing := log.Logger.GetLevel() <= zerolog.TraceLevel && zerolog.GlobalLevel() <= zerolog.TraceLevel

	// bodies are only buffered when they will be printed
	var requestBody []byte
	if tracing && req.Body != nil {
		requestBody, _ = io.ReadAll(req.Body)
		req.Body = io.NopCloser(bytes.NewBuffer(requestBody))
	}

	resp, err := c.Client.Do(req)

	entry := LogEntry{
		ID:          uuid.NewString(),
		Method:      req.Method,
		URL:         RedactURL(req.URL.String()),
		RequestBody: string(requestBody),
		Duration:    time.Since(startTime),
	}

	if err != nil {
		entry.Err = err
		c.write(entry)
		return nil, err
	}

	entry.StatusCode = resp.StatusCode
	if tracing {
		responseBody, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		resp.Body = io.NopCloser(bytes.NewBuffer(responseBody))
		entry.ResponseBody = string(responseBody)
	}

	c.write(entry)
	return resp, nil
}

func (c *LoggedClient) write(entry LogEntry) {
	var ev *zerolog.Event
	switch {
	case entry.Err != nil:
		// tgbotapi redacts the token from its own errors; net/http does not.
		ev = log.Warn().Str("error", RedactURL(entry.Err.Error()))
	case entry.StatusCode >= http.StatusInternalServerError:
		ev = log.Warn()
	default:
		ev = log.Debug()
	}

	ev = ev.
		Str("request_id", entry.ID).
		Str("method", entry.Method).
		Str("url", entry.URL).
		Dur("duration", entry.Duration)
	if entry.StatusCode > 0 {
		ev = ev.Int("status", entry.StatusCode)
	}
	if entry.RequestBody != "" {
		ev = ev.Str("request_body", truncate(entry.RequestBody))
	}
	if entry.ResponseBody != "" {
		ev = ev.Str("response_body", truncate(entry.ResponseBody))
	}
	ev.Msg("telegram api call")
}

// RedactURL hides the token segment of a Bot API URL.
func RedactURL(s string) string {
	return tokenInPath.ReplaceAllString(s, "/bot<redacted>/")
}

func truncate(s string) string {
	if len(s) > maxLoggedBody {
		return s[:maxLoggedBody] + "... [truncated]"
	}
	return s
}
