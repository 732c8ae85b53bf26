package bot

import (
	"context"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"media_relay_bot/internal/pkg/journal/repository"
	"media_relay_bot/internal/pkg/relay"
	"media_relay_bot/internal/pkg/telegram"
)

// countingMessenger stands in for the Bot API behind a real Sender.
type countingMessenger struct {
	mu      sync.Mutex
	singles int
	albums  [][]interface{}
}

func (m *countingMessenger) Send(tgbotapi.Chattable) (tgbotapi.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.singles++
	return tgbotapi.Message{}, nil
}

func (m *countingMessenger) SendMediaGroup(c tgbotapi.MediaGroupConfig) ([]tgbotapi.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.albums = append(m.albums, c.Media)
	return make([]tgbotapi.Message, len(c.Media)), nil
}

func (m *countingMessenger) counts() (singles int, albums int, albumItems int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.albums {
		albumItems += len(a)
	}
	return m.singles, len(m.albums), albumItems
}

func newRelayBot(ctx context.Context, delay time.Duration) (*Bot, *countingMessenger) {
	msgr := &countingMessenger{}
	disp := relay.NewDispatcher(
		telegram.NewSender(msgr),
		repository.NewMemoryStorage(10),
		relay.NewLimiter(1, 5),
	)
	b := New(ctx, newFakeAPI(), disp, nil, Settings{OwnerID: owner, GroupDelay: delay})
	return b, msgr
}

func TestShutdown_AlbumDueAfterCancelIsStillSent(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	b, msgr := newRelayBot(ctx, 20*time.Millisecond)

	b.HandleUpdate(ctx, photo(owner, "p1", "g"))
	b.HandleUpdate(ctx, photo(owner, "p2", "g"))

	// the group's timer fires after the signal, before Close
	cancel()
	time.Sleep(80 * time.Millisecond)
	b.Close()

	if _, albums, items := msgr.counts(); albums != 1 || items != 2 {
		t.Fatalf("albums sent = %d with %d items, want 1 with 2", albums, items)
	}
}

func TestShutdown_PendingAlbumFlushedByCloseAfterCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	b, msgr := newRelayBot(ctx, time.Hour)

	b.HandleUpdate(ctx, photo(owner, "p1", "g"))
	b.HandleUpdate(ctx, photo(owner, "p2", "g"))
	cancel()
	b.Close()

	if _, albums, items := msgr.counts(); albums != 1 || items != 2 {
		t.Fatalf("albums sent = %d with %d items, want 1 with 2", albums, items)
	}
}

func TestShutdown_SingleAcceptedDuringCancelIsSent(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	b, msgr := newRelayBot(ctx, time.Hour)
	defer b.Close()

	cancel()
	b.HandleUpdate(ctx, photo(owner, "solo", ""))

	if singles, _, _ := msgr.counts(); singles != 1 {
		t.Fatalf("singles sent = %d, want 1", singles)
	}
}
