package domain

import "time"

type Status string

const (
	StatusSent   Status = "sent"
	StatusFailed Status = "failed"
)

// RelayRecord is one item handed to Telegram, successfully or not.
type RelayRecord struct {
	ID            string    `json:"id"`
	GroupID       string    `json:"group_id,omitempty"` // empty for single items
	Kind          string    `json:"kind"`
	ContentRef    string    `json:"content_ref"`
	SenderID      int64     `json:"sender_id"`
	DestinationID int64     `json:"destination_id"`
	Status        Status    `json:"status"`
	Error         string    `json:"error,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

type RelayStats struct {
	Total  int            `json:"total"`
	Failed int            `json:"failed"`
	Albums int            `json:"albums"`
	ByKind map[string]int `json:"by_kind"`
}
