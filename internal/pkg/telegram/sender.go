// Package telegram turns media items into Bot API send calls.
package telegram

import (
	"context"
	"errors"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"media_relay_bot/internal/pkg/media/domain"
)

// MaxAlbumSize is the largest album sendMediaGroup accepts.
const MaxAlbumSize = 10

var (
	ErrNotGroupable = errors.New("media kind cannot be part of an album")
	ErrUnknownKind  = errors.New("unknown media kind")
	ErrAlbumSize    = fmt.Errorf("album must have between 2 and %d items", MaxAlbumSize)
)

// Messenger is the subset of *tgbotapi.BotAPI the sender needs.
type Messenger interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	SendMediaGroup(config tgbotapi.MediaGroupConfig) ([]tgbotapi.Message, error)
}

type Sender struct {
	api Messenger
}

func NewSender(api Messenger) *Sender {
	return &Sender{api: api}
}

// SendSingle re-sends one item to chatID by file id. No caption is attached.
func (s *Sender) SendSingle(ctx context.Context, chatID int64, item domain.Item) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c, err := SingleConfig(chatID, item)
	if err != nil {
		return err
	}
	if _, err := s.api.Send(c); err != nil {
		return fmt.Errorf("send %s: %w", item.Kind, err)
	}
	return nil
}

// SendAlbum re-sends items to chatID as one album in the given order.
func (s *Sender) SendAlbum(ctx context.Context, chatID int64, items []domain.Item) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(items) < 2 || len(items) > MaxAlbumSize {
		return fmt.Errorf("%w: got %d", ErrAlbumSize, len(items))
	}

	media := make([]interface{}, 0, len(items))
	for _, item := range items {
		m, err := InputMedia(item)
		if err != nil {
			return err
		}
		media = append(media, m)
	}

	if _, err := s.api.SendMediaGroup(tgbotapi.NewMediaGroup(chatID, media)); err != nil {
		return fmt.Errorf("send media group: %w", err)
	}
	return nil
}

// SingleConfig builds the kind-specific send request for item.
func SingleConfig(chatID int64, item domain.Item) (tgbotapi.Chattable, error) {
	file := tgbotapi.FileID(item.ContentRef)

	switch item.Kind {
	case domain.KindPhoto:
		return tgbotapi.NewPhoto(chatID, file), nil
	case domain.KindVideo:
		return tgbotapi.NewVideo(chatID, file), nil
	case domain.KindAudio:
		return tgbotapi.NewAudio(chatID, file), nil
	case domain.KindDocument:
		return tgbotapi.NewDocument(chatID, file), nil
	case domain.KindVoice:
		return tgbotapi.NewVoice(chatID, file), nil
	case domain.KindVideoNote:
		// length is only used for uploads; Telegram keeps the original for file ids
		return tgbotapi.NewVideoNote(chatID, 0, file), nil
	case domain.KindAnimation:
		return tgbotapi.NewAnimation(chatID, file), nil
	case domain.KindSticker:
		return tgbotapi.NewSticker(chatID, file), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownKind, item.Kind)
}

// InputMedia maps a groupable item to its album entry.
func InputMedia(item domain.Item) (interface{}, error) {
	file := tgbotapi.FileID(item.ContentRef)

	switch item.Kind {
	case domain.KindPhoto:
		return tgbotapi.NewInputMediaPhoto(file), nil
	case domain.KindVideo:
		return tgbotapi.NewInputMediaVideo(file), nil
	case domain.KindAudio:
		return tgbotapi.NewInputMediaAudio(file), nil
	case domain.KindDocument:
		return tgbotapi.NewInputMediaDocument(file), nil
	}
	if item.Kind.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrNotGroupable, item.Kind)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownKind, item.Kind)
}
