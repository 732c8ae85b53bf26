package domain

import "fmt"

type Kind string

const (
	KindPhoto     Kind = "photo"
	KindVideo     Kind = "video"
	KindAudio     Kind = "audio"
	KindDocument  Kind = "document"
	KindVoice     Kind = "voice"
	KindVideoNote Kind = "video_note"
	KindAnimation Kind = "animation"
	KindSticker   Kind = "sticker"
)

// Groupable reports whether Telegram has an InputMedia variant for the kind,
// i.e. whether it may travel inside a sendMediaGroup payload.
func (k Kind) Groupable() bool {
	switch k {
	case KindPhoto, KindVideo, KindAudio, KindDocument:
		return true
	}
	return false
}

func (k Kind) Valid() bool {
	switch k {
	case KindPhoto, KindVideo, KindAudio, KindDocument,
		KindVoice, KindVideoNote, KindAnimation, KindSticker:
		return true
	}
	return false
}

// Item is a single piece of media stripped down to what is needed to re-send
// it: the platform file reference and who sent it. Captions never make it here.
type Item struct {
	Kind       Kind   `json:"kind"`
	ContentRef string `json:"content_ref"`
	SenderID   int64  `json:"sender_id"`
}

func (i Item) String() string {
	return fmt.Sprintf("%s:%s", i.Kind, i.ContentRef)
}
