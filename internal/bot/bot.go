// Package bot wires Telegram updates to the relay: it owns the long-poll
// loop, the owner gate, command replies and the album aggregator.
package bot

import (
	"context"
	"runtime/debug"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"

	"media_relay_bot/internal/pkg/access"
	"media_relay_bot/internal/pkg/aggregator"
	"media_relay_bot/internal/pkg/journal/repository"
	"media_relay_bot/internal/pkg/media/domain"
	"media_relay_bot/internal/pkg/relay"
)

const defaultPollTimeout = 60

// API is the part of *tgbotapi.BotAPI the bot talks to.
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

type Dispatcher interface {
	DispatchSingle(ctx context.Context, dest relay.Destination, item domain.Item) error
	DispatchAlbum(ctx context.Context, dest relay.Destination, groupID string, items []domain.Item) error
}

type Settings struct {
	OwnerID            int64
	DestinationChannel *int64 // nil: media goes back to its sender
	GroupDelay         time.Duration
	PollTimeout        int // seconds
}

type Bot struct {
	api        API
	gate       *access.Gate
	dispatcher Dispatcher
	journal    repository.RelayRepository
	albums     *aggregator.Aggregator
	settings   Settings
}

// New builds the bot. ctx supplies values to album flushes triggered by
// timers but not its cancellation: a group that comes due while the process
// shuts down is still sent. journal may be nil, which disables /stats.
func New(ctx context.Context, api API, dispatcher Dispatcher, journal repository.RelayRepository, settings Settings) *Bot {
	if settings.PollTimeout <= 0 {
		settings.PollTimeout = defaultPollTimeout
	}
	b := &Bot{
		api:        api,
		gate:       access.NewGate(settings.OwnerID),
		dispatcher: dispatcher,
		journal:    journal,
		settings:   settings,
	}
	b.albums = aggregator.New(context.WithoutCancel(ctx), settings.GroupDelay, b.flushAlbum)
	return b
}

// Start consumes updates until ctx is cancelled or the update channel closes.
func (b *Bot) Start(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = b.settings.PollTimeout

	updates := b.api.GetUpdatesChan(u)

	target := "user"
	if b.settings.DestinationChannel != nil {
		target = "channel"
	}
	log.Info().
		Int64("owner_id", b.settings.OwnerID).
		Str("destination", target).
		Dur("media_group_delay", b.settings.GroupDelay).
		Msg("bot started, send media to clean and save to channel/user")

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			log.Info().Msg("update loop stopped")
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			b.safeHandle(ctx, update)
		}
	}
}

// Close flushes albums that are still collecting. Call it after Start returned.
func (b *Bot) Close() {
	b.albums.Close()
}

// Pending reports how many albums are still collecting.
func (b *Bot) Pending() int {
	return b.albums.Pending()
}

func (b *Bot) safeHandle(ctx context.Context, update tgbotapi.Update) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Error().
				Interface("panic", rec).
				Bytes("stack", debug.Stack()).
				Int("update_id", update.UpdateID).
				Msg("panic recovered while handling update")
		}
	}()
	b.HandleUpdate(ctx, update)
}

func (b *Bot) destination(senderID int64) relay.Destination {
	if b.settings.DestinationChannel != nil {
		return relay.Destination{ChatID: *b.settings.DestinationChannel, Channel: true}
	}
	return relay.Destination{ChatID: senderID}
}

func (b *Bot) flushAlbum(ctx context.Context, groupID string, items []domain.Item) {
	if len(items) == 0 {
		return
	}
	dest := b.destination(items[0].SenderID)
	if err := b.dispatcher.DispatchAlbum(ctx, dest, groupID, items); err != nil {
		log.Debug().Err(err).Str("media_group_id", groupID).Msg("album not fully relayed")
	}
}
