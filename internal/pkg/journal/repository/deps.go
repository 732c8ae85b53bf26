package repository

import (
	"context"

	"media_relay_bot/internal/pkg/journal/domain"
)

type RelayRepository interface {
	SaveRelay(ctx context.Context, record *domain.RelayRecord) error
	// GetRecentRelays returns up to limit records, newest first.
	GetRecentRelays(ctx context.Context, limit int) ([]*domain.RelayRecord, error)
	GetRelayStats(ctx context.Context) (*domain.RelayStats, error)
}
