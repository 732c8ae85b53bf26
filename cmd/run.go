package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"

	"media_relay_bot/internal/bot"
	"media_relay_bot/internal/pkg/config"
	"media_relay_bot/internal/pkg/http_client"
	"media_relay_bot/internal/pkg/journal/repository"
	"media_relay_bot/internal/pkg/logging"
	"media_relay_bot/internal/pkg/relay"
	"media_relay_bot/internal/pkg/telegram"
	"media_relay_bot/internal/pkg/web_server/web_server_service"
)

const shutdownTimeout = 10 * time.Second

func runBot(ctx context.Context) error {
	// log with defaults until the configuration is known
	logging.Setup(os.Stderr, os.Getenv("LOG_LEVEL"), false)

	cfg, err := config.Load()
	if err != nil {
		log.Error().Err(err).Msg("configuration error")
		return fmt.Errorf("configuration error: %w", err)
	}
	logging.Setup(os.Stderr, cfg.LogLevel, cfg.LogPretty)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var journal repository.RelayRepository = repository.NewMemoryStorage(repository.DefaultMemoryCapacity)
	if cfg.DatabaseURL != "" {
		db, err := repository.OpenPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer db.Close()
		journal = repository.NewPostgresStorage(db)
		log.Info().Msg("relay journal stored in postgres")
	}

	endpoint := cfg.TelegramAPIEndpoint
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}
	api, err := tgbotapi.NewBotAPIWithClient(cfg.BotToken, endpoint, http_client.NewLoggedClient(cfg.TelegramHTTPTimeout))
	if err != nil {
		return fmt.Errorf("connect to telegram: %w", err)
	}
	log.Info().Str("username", api.Self.UserName).Msg("authorized on account")

	dispatcher := relay.NewDispatcher(
		telegram.NewSender(api),
		journal,
		relay.NewLimiter(cfg.SendRateRPS, cfg.SendRateBurst),
	)

	b := bot.New(ctx, api, dispatcher, journal, bot.Settings{
		OwnerID:            cfg.OwnerUserID,
		DestinationChannel: cfg.DestinationChannel,
		GroupDelay:         cfg.MediaGroupDelay,
		PollTimeout:        config.PollTimeout,
	})

	var ws *web_server_service.WebServer
	if cfg.WebEnabled {
		gin.SetMode(gin.ReleaseMode)
		ws = web_server_service.NewWebServer(b, journal, cfg.WebPort)
		go func() {
			if err := ws.Start(); err != nil {
				log.Error().Err(err).Msg("ops server failed")
			}
		}()
	}

	err = b.Start(ctx)

	log.Info().Int("pending_albums", b.Pending()).Msg("shutting down")
	b.Close()

	if ws != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := ws.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("ops server shutdown")
		}
	}
	return err
}
