package bot

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	journal "media_relay_bot/internal/pkg/journal/domain"
	"media_relay_bot/internal/pkg/journal/repository"
	"media_relay_bot/internal/pkg/media/domain"
	"media_relay_bot/internal/pkg/relay"
)

const (
	owner    int64 = 1001
	stranger int64 = 666
)

type fakeAPI struct {
	mu      sync.Mutex
	replies []tgbotapi.MessageConfig
	updates chan tgbotapi.Update
	stopped bool
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{updates: make(chan tgbotapi.Update, 16)}
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if m, ok := c.(tgbotapi.MessageConfig); ok {
		f.replies = append(f.replies, m)
	}
	return tgbotapi.Message{}, nil
}

func (f *fakeAPI) GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return f.updates
}

func (f *fakeAPI) StopReceivingUpdates() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = true
}

func (f *fakeAPI) texts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.replies))
	for i, r := range f.replies {
		out[i] = r.Text
	}
	return out
}

type dispatched struct {
	dest    relay.Destination
	groupID string
	items   []domain.Item
}

type fakeDispatcher struct {
	mu      sync.Mutex
	singles []dispatched
	albums  []dispatched
	panicOn string
}

func (f *fakeDispatcher) DispatchSingle(_ context.Context, dest relay.Destination, item domain.Item) error {
	if item.ContentRef == f.panicOn {
		panic("dispatcher exploded")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.singles = append(f.singles, dispatched{dest: dest, items: []domain.Item{item}})
	return nil
}

func (f *fakeDispatcher) DispatchAlbum(_ context.Context, dest relay.Destination, groupID string, items []domain.Item) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.albums = append(f.albums, dispatched{dest: dest, groupID: groupID, items: items})
	return nil
}

func (f *fakeDispatcher) counts() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.singles), len(f.albums)
}

func newBot(t *testing.T, channel *int64) (*Bot, *fakeAPI, *fakeDispatcher) {
	t.Helper()
	api := newFakeAPI()
	disp := &fakeDispatcher{}
	b := New(context.Background(), api, disp, repository.NewMemoryStorage(10), Settings{
		OwnerID:            owner,
		DestinationChannel: channel,
		GroupDelay:         time.Hour, // albums flush on Close in these tests
	})
	t.Cleanup(b.Close)
	return b, api, disp
}

func command(from int64, cmd string) tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{
		From:     &tgbotapi.User{ID: from},
		Chat:     &tgbotapi.Chat{ID: from},
		Text:     cmd,
		Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(cmd)}},
	}}
}

func text(from int64, s string) tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{
		From: &tgbotapi.User{ID: from},
		Chat: &tgbotapi.Chat{ID: from},
		Text: s,
	}}
}

func photo(from int64, ref, group string) tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{
		From:         &tgbotapi.User{ID: from},
		Chat:         &tgbotapi.Chat{ID: from},
		MediaGroupID: group,
		Caption:      "caption that must disappear",
		Photo:        []tgbotapi.PhotoSize{{FileID: ref + "-thumb"}, {FileID: ref}},
	}}
}

func TestStranger_IsDeniedEverywhere(t *testing.T) {
	b, api, disp := newBot(t, nil)
	ctx := context.Background()

	for _, u := range []tgbotapi.Update{
		command(stranger, "/start"),
		command(stranger, "/help"),
		text(stranger, "hi"),
		photo(stranger, "p1", ""),
		photo(stranger, "p2", "album"),
	} {
		b.HandleUpdate(ctx, u)
	}
	b.Close()

	for i, got := range api.texts() {
		if got != msgAccessDenied {
			t.Fatalf("reply %d = %q, want denial", i, got)
		}
	}
	if n := len(api.texts()); n != 5 {
		t.Fatalf("replies = %d, want 5", n)
	}
	if s, a := disp.counts(); s != 0 || a != 0 {
		t.Fatalf("stranger caused dispatch: singles=%d albums=%d", s, a)
	}
}

func TestCommands(t *testing.T) {
	b, api, _ := newBot(t, nil)
	ctx := context.Background()

	b.HandleUpdate(ctx, command(owner, "/start"))
	b.HandleUpdate(ctx, command(owner, "/help@media_relay_bot"))
	b.HandleUpdate(ctx, command(owner, "/settings"))

	got := api.texts()
	if len(got) != 3 {
		t.Fatalf("replies = %d, want 3", len(got))
	}
	if got[0] != msgWelcome || got[1] != msgHelp || got[2] != msgUnknownCommand {
		t.Fatalf("unexpected replies: %q", got)
	}
	if api.replies[0].ChatID != owner {
		t.Fatalf("reply went to %d", api.replies[0].ChatID)
	}
}

func TestStatsCommand(t *testing.T) {
	b, api, _ := newBot(t, nil)
	ctx := context.Background()

	_ = b.journal.SaveRelay(ctx, &journal.RelayRecord{ID: "1", Kind: "photo", Status: journal.StatusSent})
	_ = b.journal.SaveRelay(ctx, &journal.RelayRecord{ID: "2", Kind: "video", Status: journal.StatusFailed})

	b.HandleUpdate(ctx, command(owner, "/stats"))

	got := api.texts()
	if len(got) != 1 {
		t.Fatalf("replies = %d", len(got))
	}
	for _, want := range []string{"Items relayed: 2", "Failed: 1", "• photo: 1", "• video: 1"} {
		if !strings.Contains(got[0], want) {
			t.Fatalf("stats reply missing %q:\n%s", want, got[0])
		}
	}

	b.journal = nil
	b.HandleUpdate(ctx, command(owner, "/stats"))
	if last := api.texts()[1]; last != msgStatsUnavailable {
		t.Fatalf("without journal: %q", last)
	}
}

func TestOwnerText_GetsHint(t *testing.T) {
	b, api, disp := newBot(t, nil)
	b.HandleUpdate(context.Background(), text(owner, "hello"))

	if got := api.texts(); len(got) != 1 || got[0] != msgSendMedia {
		t.Fatalf("replies = %q", got)
	}
	if s, a := disp.counts(); s+a != 0 {
		t.Fatalf("text must not be dispatched")
	}
}

func TestSingleMedia_DispatchedImmediately(t *testing.T) {
	ch := int64(-100200)
	b, api, disp := newBot(t, &ch)

	b.HandleUpdate(context.Background(), photo(owner, "big", ""))

	if len(disp.singles) != 1 {
		t.Fatalf("singles = %d, want 1", len(disp.singles))
	}
	got := disp.singles[0]
	if got.dest != (relay.Destination{ChatID: ch, Channel: true}) {
		t.Fatalf("dest = %+v", got.dest)
	}
	if got.items[0] != (domain.Item{Kind: domain.KindPhoto, ContentRef: "big", SenderID: owner}) {
		t.Fatalf("item = %+v", got.items[0])
	}
	if len(api.texts()) != 0 {
		t.Fatalf("media must not produce replies: %q", api.texts())
	}
}

func TestAlbum_AggregatedAndSentBackToSender(t *testing.T) {
	b, _, disp := newBot(t, nil)
	ctx := context.Background()

	b.HandleUpdate(ctx, photo(owner, "ref1", "g1"))
	b.HandleUpdate(ctx, photo(owner, "ref2", "g1"))
	b.HandleUpdate(ctx, photo(owner, "other", "g2"))

	if b.Pending() != 2 {
		t.Fatalf("pending = %d, want 2", b.Pending())
	}
	if s, a := disp.counts(); s != 0 || a != 0 {
		t.Fatalf("album items dispatched before the window closed")
	}

	b.Close()

	if len(disp.albums) != 2 {
		t.Fatalf("albums = %d, want 2", len(disp.albums))
	}
	byGroup := map[string]dispatched{}
	for _, a := range disp.albums {
		byGroup[a.groupID] = a
	}
	g1 := byGroup["g1"]
	if fmt.Sprint(refs(g1.items)) != "[ref1 ref2]" {
		t.Fatalf("g1 items = %v", refs(g1.items))
	}
	if g1.dest != (relay.Destination{ChatID: owner}) {
		t.Fatalf("g1 dest = %+v", g1.dest)
	}

	// after shutdown new album items are dropped, not lost silently into a timer
	b.HandleUpdate(ctx, photo(owner, "late", "g3"))
	if b.Pending() != 0 {
		t.Fatalf("closed bot buffered a new album")
	}
}

func TestAlbum_FlushesAfterDelay(t *testing.T) {
	api := newFakeAPI()
	disp := &fakeDispatcher{}
	b := New(context.Background(), api, disp, nil, Settings{OwnerID: owner, GroupDelay: 30 * time.Millisecond})
	defer b.Close()

	b.HandleUpdate(context.Background(), photo(owner, "ref1", "g"))
	b.HandleUpdate(context.Background(), photo(owner, "ref2", "g"))

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if _, a := disp.counts(); a == 1 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("album was not flushed after the delay")
}

func TestStart_RecoversPanicsAndStopsOnCancel(t *testing.T) {
	b, api, disp := newBot(t, nil)
	disp.panicOn = "boom"

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- b.Start(ctx) }()

	api.updates <- tgbotapi.Update{} // no message
	api.updates <- photo(owner, "boom", "")
	api.updates <- photo(owner, "fine", "")

	deadline := time.Now().Add(2 * time.Second)
	for {
		if s, _ := disp.counts(); s == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("loop did not survive the panic")
		}
		time.Sleep(5 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Start: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after cancel")
	}
	api.mu.Lock()
	stopped := api.stopped
	api.mu.Unlock()
	if !stopped {
		t.Fatalf("StopReceivingUpdates not called")
	}
}

func TestStart_ReturnsWhenChannelCloses(t *testing.T) {
	b, api, _ := newBot(t, nil)
	close(api.updates)
	if err := b.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
}

func refs(items []domain.Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.ContentRef
	}
	return out
}
