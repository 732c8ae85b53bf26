package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"media_relay_bot/internal/pkg/logging"
	"media_relay_bot/internal/pkg/mock-api/handlers"
)

func main() {
	var (
		port  string
		token string
	)

	cmd := &cobra.Command{
		Use:   "mock_api",
		Short: "Fake Telegram Bot API for running the relay bot locally",
		RunE: func(cmd *cobra.Command, args []string) error {
			logging.Setup(os.Stderr, "debug", true)
			gin.SetMode(gin.ReleaseMode)

			srv := &http.Server{
				Addr:              ":" + port,
				Handler:           handlers.NewServer(token).Router(),
				ReadHeaderTimeout: 5 * time.Second,
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			go func() {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = srv.Shutdown(shutdownCtx)
			}()

			log.Info().
				Str("addr", srv.Addr).
				Str("endpoint", "http://localhost:"+port+"/bot%s/%s").
				Msg("mock Bot API listening")
			log.Info().Msg("control: POST /_mock/updates, POST /_mock/fail, GET /_mock/calls, POST /_mock/reset")

			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&port, "port", "8082", "listen port")
	cmd.Flags().StringVar(&token, "token", "123456:MOCK", "bot token the fake API accepts")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
