// Package web_server_service serves the operational endpoints of the bot:
// liveness with the number of albums still collecting, Prometheus metrics and
// the relay journal.
package web_server_service

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"media_relay_bot/internal/pkg/journal/repository"
)

const (
	defaultRecentLimit = 20
	maxRecentLimit     = 200
)

// PendingCounter reports albums that have not been flushed yet.
type PendingCounter interface {
	Pending() int
}

type WebServer struct {
	pending PendingCounter
	journal repository.RelayRepository
	srv     *http.Server
	started time.Time
}

func NewWebServer(pending PendingCounter, journal repository.RelayRepository, port string) *WebServer {
	ws := &WebServer{
		pending: pending,
		journal: journal,
		started: time.Now(),
	}
	ws.srv = &http.Server{
		Addr:              ":" + port,
		Handler:           ws.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
	}
	return ws
}

// Router builds the gin engine; exported for tests.
func (ws *WebServer) Router() *gin.Engine {
	r := gin.New()
	r.Use(requestLogger(), gin.Recovery())

	r.GET("/health", ws.handleHealthCheck)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/stats", ws.handleStats)
	return r
}

// Start blocks serving until Shutdown. It returns nil after a clean shutdown.
func (ws *WebServer) Start() error {
	log.Info().Str("addr", ws.srv.Addr).Msg("starting ops server")
	if err := ws.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (ws *WebServer) Shutdown(ctx context.Context) error {
	return ws.srv.Shutdown(ctx)
}

func (ws *WebServer) handleHealthCheck(c *gin.Context) {
	pending := 0
	if ws.pending != nil {
		pending = ws.pending.Pending()
	}
	c.JSON(http.StatusOK, gin.H{
		"status":         "ok",
		"pending_albums": pending,
		"uptime":         time.Since(ws.started).Round(time.Second).String(),
	})
}

func (ws *WebServer) handleStats(c *gin.Context) {
	if ws.journal == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "journal disabled"})
		return
	}

	limit := defaultRecentLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = min(n, maxRecentLimit)
	}

	ctx := c.Request.Context()
	stats, err := ws.journal.GetRelayStats(ctx)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read journal"})
		return
	}
	recent, err := ws.journal.GetRecentRelays(ctx, limit)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read journal"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"stats":  stats,
		"recent": recent,
	})
}

// requestLogger writes one access log line per request.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		rid := c.GetHeader("X-Request-ID")
		if rid == "" {
			rid = uuid.NewString()
		}
		c.Writer.Header().Set("X-Request-ID", rid)

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		status := c.Writer.Status()

		ev := log.Debug()
		switch {
		case len(c.Errors) > 0 || status >= 500:
			ev = log.Error().Str("errors", c.Errors.String())
		case status >= 400:
			ev = log.Warn()
		}
		ev.Str("request_id", rid).
			Str("method", c.Request.Method).
			Str("path", path).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Msg("request")
	}
}
