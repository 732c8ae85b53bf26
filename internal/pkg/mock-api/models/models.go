package models

import "time"

// APIResponse mirrors the Bot API response envelope.
type APIResponse struct {
	Ok          bool        `json:"ok"`
	Result      interface{} `json:"result,omitempty"`
	ErrorCode   int         `json:"error_code,omitempty"`
	Description string      `json:"description,omitempty"`
}

// InputMedia is one entry of a sendMediaGroup "media" parameter.
type InputMedia struct {
	Type    string `json:"type"`
	Media   string `json:"media"`
	Caption string `json:"caption,omitempty"`
}

// Call is a recorded Bot API request.
type Call struct {
	Method string            `json:"method"`
	ChatID int64             `json:"chat_id,omitempty"`
	Params map[string]string `json:"params"`
	Media  []InputMedia      `json:"media,omitempty"`
	At     time.Time         `json:"at"`
}

// FileRef returns the file id a single send* call carried, if any.
func (c Call) FileRef() string {
	for _, k := range []string{"photo", "video", "audio", "document", "voice", "video_note", "animation", "sticker"} {
		if v, ok := c.Params[k]; ok {
			return v
		}
	}
	return ""
}

// Failure makes the next call to Method fail with the given Bot API error.
type Failure struct {
	Method      string `json:"method"`
	ErrorCode   int    `json:"error_code"`
	Description string `json:"description"`
}
