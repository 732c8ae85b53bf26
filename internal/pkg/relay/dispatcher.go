// Package relay sends classified media to the destination chat.
//
// A Dispatcher owns the outbound side: pacing against the Bot API limits,
// album sizing, failure logging and the relay journal. Failures are logged
// and returned wrapped in ErrDispatch; nothing is retried.
package relay

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	journal "media_relay_bot/internal/pkg/journal/domain"
	"media_relay_bot/internal/pkg/journal/repository"
	"media_relay_bot/internal/pkg/media/domain"
	"media_relay_bot/internal/pkg/telegram"
)

const (
	modeSingle = "single"
	modeAlbum  = "album"
)

// MediaSender performs the actual Bot API calls.
type MediaSender interface {
	SendSingle(ctx context.Context, chatID int64, item domain.Item) error
	SendAlbum(ctx context.Context, chatID int64, items []domain.Item) error
}

// Destination is where relayed media ends up.
type Destination struct {
	ChatID  int64
	Channel bool
}

func (d Destination) String() string {
	if d.Channel {
		return "channel"
	}
	return "user"
}

type Dispatcher struct {
	sender  MediaSender
	journal repository.RelayRepository
	limiter *rate.Limiter
	now     func() time.Time
}

// NewDispatcher wires the sender with an optional journal and limiter;
// either may be nil.
func NewDispatcher(sender MediaSender, journal repository.RelayRepository, limiter *rate.Limiter) *Dispatcher {
	return &Dispatcher{
		sender:  sender,
		journal: journal,
		limiter: limiter,
		now:     time.Now,
	}
}

// NewLimiter returns a limiter for rps sends per second, or nil when rps is 0.
func NewLimiter(rps float64, burst int) *rate.Limiter {
	if rps <= 0 {
		return nil
	}
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(rps), burst)
}

// DispatchSingle sends one item right away.
func (d *Dispatcher) DispatchSingle(ctx context.Context, dest Destination, item domain.Item) error {
	return d.single(ctx, dest, "", item)
}

// DispatchAlbum sends a drained media group. Items whose kind has no grouped
// variant are dropped, a lone survivor is sent as a single and larger
// groups are split into albums of at most telegram.MaxAlbumSize.
func (d *Dispatcher) DispatchAlbum(ctx context.Context, dest Destination, groupID string, items []domain.Item) error {
	logger := log.With().
		Str("media_group_id", groupID).
		Str("destination", dest.String()).
		Int64("chat_id", dest.ChatID).
		Logger()

	sendable := make([]domain.Item, 0, len(items))
	for _, it := range items {
		if !it.Kind.Groupable() {
			droppedItems.WithLabelValues(string(it.Kind)).Inc()
			logger.Error().
				Str("kind", string(it.Kind)).
				Str("content_ref", it.ContentRef).
				Msg("media kind cannot be grouped, dropped from album")
			continue
		}
		sendable = append(sendable, it)
	}

	if len(sendable) == 0 {
		relayedAlbums.WithLabelValues("empty").Inc()
		logger.Warn().Int("received", len(items)).Msg("nothing left to send in album")
		return fmt.Errorf("%w: group %s", ErrEmptyAlbum, groupID)
	}

	var errs []error
	for _, chunk := range chunks(sendable, telegram.MaxAlbumSize) {
		var err error
		if len(chunk) == 1 {
			err = d.single(ctx, dest, groupID, chunk[0])
		} else {
			err = d.album(ctx, dest, groupID, chunk, logger)
		}
		if err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		relayedAlbums.WithLabelValues("failed").Inc()
		return errors.Join(errs...)
	}
	relayedAlbums.WithLabelValues("sent").Inc()
	return nil
}

func (d *Dispatcher) single(ctx context.Context, dest Destination, groupID string, item domain.Item) error {
	relayID := uuid.NewString()
	logger := log.With().
		Str("relay_id", relayID).
		Str("kind", string(item.Kind)).
		Int64("user_id", item.SenderID).
		Str("destination", dest.String()).
		Int64("chat_id", dest.ChatID).
		Logger()

	err := d.send(ctx, modeSingle, func(ctx context.Context) error {
		return d.sender.SendSingle(ctx, dest.ChatID, item)
	})
	d.record(ctx, relayID, dest, groupID, item, err)

	if err != nil {
		relayedItems.WithLabelValues(string(item.Kind), modeSingle, "failed").Inc()
		logger.Error().Err(err).Msgf("failed to send %s to %s", item.Kind, dest)
		return fmt.Errorf("%w: %s to %d: %w", ErrDispatch, item.Kind, dest.ChatID, err)
	}

	relayedItems.WithLabelValues(string(item.Kind), modeSingle, "sent").Inc()
	logger.Info().Msgf("%s sent to %s", item.Kind, dest)
	return nil
}

func (d *Dispatcher) album(ctx context.Context, dest Destination, groupID string, items []domain.Item, logger zerolog.Logger) error {
	relayID := uuid.NewString()
	logger = logger.With().Str("relay_id", relayID).Int("items", len(items)).Logger()

	err := d.send(ctx, modeAlbum, func(ctx context.Context) error {
		return d.sender.SendAlbum(ctx, dest.ChatID, items)
	})

	status := "sent"
	if err != nil {
		status = "failed"
	}
	for _, it := range items {
		d.record(ctx, relayID, dest, groupID, it, err)
		relayedItems.WithLabelValues(string(it.Kind), modeAlbum, status).Inc()
	}

	if err != nil {
		logger.Error().Err(err).Msgf("failed to send album to %s", dest)
		return fmt.Errorf("%w: album %s to %d: %w", ErrDispatch, groupID, dest.ChatID, err)
	}
	logger.Info().Msgf("album with %d items sent to %s", len(items), dest)
	return nil
}

func (d *Dispatcher) send(ctx context.Context, mode string, call func(context.Context) error) error {
	start := d.now()
	defer func() {
		sendLatency.WithLabelValues(mode).Observe(d.now().Sub(start).Seconds())
	}()

	if d.limiter != nil {
		if err := d.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}
	}
	return call(ctx)
}

// record writes a journal entry; the journal never fails a dispatch.
func (d *Dispatcher) record(ctx context.Context, relayID string, dest Destination, groupID string, item domain.Item, sendErr error) {
	if d.journal == nil {
		return
	}

	r := &journal.RelayRecord{
		ID:            uuid.NewString(),
		GroupID:       groupID,
		Kind:          string(item.Kind),
		ContentRef:    item.ContentRef,
		SenderID:      item.SenderID,
		DestinationID: dest.ChatID,
		Status:        journal.StatusSent,
		CreatedAt:     d.now(),
	}
	if sendErr != nil {
		r.Status = journal.StatusFailed
		r.Error = sendErr.Error()
	}

	// the send context may already be cancelled during shutdown
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := d.journal.SaveRelay(saveCtx, r); err != nil {
		log.Warn().Err(err).Str("relay_id", relayID).Msg("failed to write relay journal")
	}
}

func chunks(items []domain.Item, size int) [][]domain.Item {
	out := make([][]domain.Item, 0, (len(items)+size-1)/size)
	for len(items) > size {
		out = append(out, items[:size:size])
		items = items[size:]
	}
	return append(out, items)
}
