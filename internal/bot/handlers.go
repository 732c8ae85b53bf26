package bot

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"

	"media_relay_bot/internal/pkg/aggregator"
	"media_relay_bot/internal/pkg/media"
)

// HandleUpdate processes one update. Errors never escape: they are logged.
func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	msg := update.Message
	if msg == nil || msg.From == nil || msg.Chat == nil {
		log.Debug().Int("update_id", update.UpdateID).Msg("update without message or user skipped")
		return
	}

	switch {
	case msg.IsCommand():
		if b.authorize(msg, "command") {
			b.handleCommand(ctx, msg)
		}
	case media.HasMedia(msg):
		if b.authorize(msg, "media") {
			b.handleMedia(ctx, msg)
		}
	case msg.Text != "":
		if b.authorize(msg, "text") {
			b.reply(msg, msgSendMedia)
			log.Info().Int64("user_id", msg.From.ID).Msg("text message instead of media")
		}
	default:
		if b.authorize(msg, "other") {
			log.Warn().Int64("user_id", msg.From.ID).Msg("no media found in message")
		}
	}
}

func (b *Bot) authorize(msg *tgbotapi.Message, action string) bool {
	if b.gate.Allow(msg.From.ID, action) {
		return true
	}
	b.reply(msg, msgAccessDenied)
	return false
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	userID := msg.From.ID

	switch msg.Command() {
	case "start":
		b.reply(msg, msgWelcome)
		log.Info().Int64("user_id", userID).Msg("user started the bot")
	case "help":
		b.reply(msg, msgHelp)
		log.Info().Int64("user_id", userID).Msg("user requested help")
	case "stats":
		b.reply(msg, b.statsText(ctx))
	default:
		b.reply(msg, msgUnknownCommand)
	}
}

func (b *Bot) handleMedia(ctx context.Context, msg *tgbotapi.Message) {
	item, err := media.Classify(msg)
	if err != nil {
		log.Warn().Err(err).Int64("user_id", msg.From.ID).Msg("no media found in message")
		return
	}

	log.Info().
		Int64("user_id", item.SenderID).
		Str("kind", string(item.Kind)).
		Str("media_group_id", msg.MediaGroupID).
		Msgf("processing %s", item.Kind)

	if msg.MediaGroupID != "" {
		if err := b.albums.Add(msg.MediaGroupID, item); err != nil {
			if errors.Is(err, aggregator.ErrClosed) {
				log.Warn().Str("media_group_id", msg.MediaGroupID).Msg("album item arrived during shutdown, dropped")
				return
			}
			log.Error().Err(err).Str("media_group_id", msg.MediaGroupID).Msg("failed to buffer album item")
		}
		return
	}

	// failures are logged by the dispatcher and not reported to the sender;
	// an accepted item is sent even if shutdown starts meanwhile
	_ = b.dispatcher.DispatchSingle(context.WithoutCancel(ctx), b.destination(item.SenderID), item)
}

func (b *Bot) statsText(ctx context.Context) string {
	if b.journal == nil {
		return msgStatsUnavailable
	}
	stats, err := b.journal.GetRelayStats(ctx)
	if err != nil {
		log.Error().Err(err).Msg("failed to read relay stats")
		return msgStatsUnavailable
	}

	var sb strings.Builder
	sb.WriteString("📊 Relay statistics\n\n")
	fmt.Fprintf(&sb, "Items relayed: %d\n", stats.Total)
	fmt.Fprintf(&sb, "Albums: %d\n", stats.Albums)
	fmt.Fprintf(&sb, "Failed: %d\n", stats.Failed)
	fmt.Fprintf(&sb, "Albums collecting: %d\n", b.albums.Pending())

	if len(stats.ByKind) > 0 {
		kinds := make([]string, 0, len(stats.ByKind))
		for k := range stats.ByKind {
			kinds = append(kinds, k)
		}
		sort.Strings(kinds)

		sb.WriteString("\nBy kind:\n")
		for _, k := range kinds {
			fmt.Fprintf(&sb, "• %s: %d\n", k, stats.ByKind[k])
		}
	}
	return sb.String()
}

func (b *Bot) reply(msg *tgbotapi.Message, text string) {
	if _, err := b.api.Send(tgbotapi.NewMessage(msg.Chat.ID, text)); err != nil {
		log.Error().Err(err).Int64("chat_id", msg.Chat.ID).Msg("failed to send reply")
	}
}
