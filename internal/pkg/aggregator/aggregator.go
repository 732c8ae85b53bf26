// Package aggregator coalesces Telegram album items into one batch.
//
// Telegram delivers every album item as its own update with a shared
// media_group_id and no marker for the last one. The aggregator buffers items
// per group and flushes the group once no new item arrived for the configured
// delay. Every arrival restarts the countdown.
package aggregator

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"media_relay_bot/internal/pkg/media/domain"
)

// DefaultDelay is the quiescence window used when none is configured.
const DefaultDelay = time.Second

// closeFlushTimeout bounds the flushes performed by Close.
const closeFlushTimeout = 30 * time.Second

var ErrClosed = errors.New("aggregator is closed")

// FlushFunc receives the drained items of one group in arrival order.
// It is called exactly once per group, never while the aggregator lock is held.
type FlushFunc func(ctx context.Context, groupID string, items []domain.Item)

type timer interface {
	Stop() bool
}

type afterFunc func(d time.Duration, f func()) timer

type pendingGroup struct {
	items     []domain.Item
	timer     timer
	gen       uint64
	firstSeen time.Time
}

type Aggregator struct {
	mu     sync.Mutex
	groups map[string]*pendingGroup
	closed bool
	wg     sync.WaitGroup

	ctx   context.Context
	delay time.Duration
	flush FlushFunc
	after afterFunc
	now   func() time.Time
}

// New returns an aggregator that hands drained groups to flush. ctx is passed
// to every timer-driven flush.
func New(ctx context.Context, delay time.Duration, flush FlushFunc) *Aggregator {
	if delay <= 0 {
		delay = DefaultDelay
	}
	return &Aggregator{
		groups: make(map[string]*pendingGroup),
		ctx:    ctx,
		delay:  delay,
		flush:  flush,
		after: func(d time.Duration, f func()) timer {
			return time.AfterFunc(d, f)
		},
		now: time.Now,
	}
}

// Add appends item to its group and (re)arms the group's timer.
func (a *Aggregator) Add(groupID string, item domain.Item) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return ErrClosed
	}

	g, ok := a.groups[groupID]
	if !ok {
		g = &pendingGroup{firstSeen: a.now()}
		a.groups[groupID] = g
	} else if g.timer != nil {
		// Stop may lose the race against a timer that already fired and is
		// waiting for the lock; bumping gen below turns that callback into a no-op.
		g.timer.Stop()
	}

	g.items = append(g.items, item)
	g.gen++
	gen := g.gen
	g.timer = a.after(a.delay, func() { a.expire(groupID, gen) })

	log.Debug().
		Str("media_group_id", groupID).
		Str("kind", string(item.Kind)).
		Int("buffered", len(g.items)).
		Msg("album item buffered")

	return nil
}

// expire drains the group if gen still identifies its latest timer.
func (a *Aggregator) expire(groupID string, gen uint64) {
	a.mu.Lock()
	g, ok := a.groups[groupID]
	if !ok || g.gen != gen {
		a.mu.Unlock()
		return
	}
	delete(a.groups, groupID)
	g.timer = nil
	a.wg.Add(1)
	a.mu.Unlock()

	defer a.wg.Done()
	a.flush(a.ctx, groupID, g.items)
}

// Pending returns the number of groups still collecting.
func (a *Aggregator) Pending() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.groups)
}

// Close stops all timers, flushes whatever is still buffered (oldest group
// first) and waits for in-flight flushes. Add fails with ErrClosed afterwards.
func (a *Aggregator) Close() {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	a.closed = true

	type drained struct {
		id    string
		group *pendingGroup
	}
	pending := make([]drained, 0, len(a.groups))
	for id, g := range a.groups {
		if g.timer != nil {
			g.timer.Stop()
		}
		pending = append(pending, drained{id: id, group: g})
	}
	a.groups = make(map[string]*pendingGroup)
	a.mu.Unlock()

	sort.Slice(pending, func(i, j int) bool {
		return pending[i].group.firstSeen.Before(pending[j].group.firstSeen)
	})

	if len(pending) > 0 {
		log.Info().Int("groups", len(pending)).Msg("flushing pending albums before shutdown")

		ctx, cancel := context.WithTimeout(context.WithoutCancel(a.ctx), closeFlushTimeout)
		defer cancel()
		for _, p := range pending {
			a.flush(ctx, p.id, p.group.items)
		}
	}

	a.wg.Wait()
}
