package media

import (
	"errors"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"media_relay_bot/internal/pkg/media/domain"
)

// ErrNoMedia is returned when a message carries none of the supported payloads.
var ErrNoMedia = errors.New("message has no supported media")

// Classify picks the payload to relay from msg. Variants are checked in a
// fixed order and the first present one wins; caption and text are ignored.
func Classify(msg *tgbotapi.Message) (domain.Item, error) {
	if msg == nil {
		return domain.Item{}, ErrNoMedia
	}

	var senderID int64
	if msg.From != nil {
		senderID = msg.From.ID
	}

	kind, ref := payload(msg)
	if ref == "" {
		return domain.Item{}, ErrNoMedia
	}

	return domain.Item{
		Kind:       kind,
		ContentRef: ref,
		SenderID:   senderID,
	}, nil
}

func payload(msg *tgbotapi.Message) (domain.Kind, string) {
	switch {
	case len(msg.Photo) > 0:
		// sizes come smallest first, the last one is the original
		return domain.KindPhoto, msg.Photo[len(msg.Photo)-1].FileID
	case msg.Video != nil:
		return domain.KindVideo, msg.Video.FileID
	case msg.Audio != nil:
		return domain.KindAudio, msg.Audio.FileID
	case msg.Voice != nil:
		return domain.KindVoice, msg.Voice.FileID
	case msg.VideoNote != nil:
		return domain.KindVideoNote, msg.VideoNote.FileID
	case msg.Document != nil:
		return domain.KindDocument, msg.Document.FileID
	case msg.Animation != nil:
		return domain.KindAnimation, msg.Animation.FileID
	case msg.Sticker != nil:
		return domain.KindSticker, msg.Sticker.FileID
	}
	return "", ""
}

// HasMedia reports whether Classify would find something in msg.
func HasMedia(msg *tgbotapi.Message) bool {
	if msg == nil {
		return false
	}
	_, ref := payload(msg)
	return ref != ""
}
