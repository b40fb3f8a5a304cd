package workers

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/vartik/vartikgpt/internal/models"
	"github.com/vartik/vartikgpt/internal/services"
)

const DefaultRecentChatsInterval = 10 * time.Second

// Ticker is the part of time.Ticker the poller uses.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// Clock hands out tickers; tests replace it to drive ticks by hand.
type Clock interface {
	NewTicker(d time.Duration) Ticker
}

type realClock struct{}

type realTicker struct{ t *time.Ticker }

func (realClock) NewTicker(d time.Duration) Ticker { return realTicker{time.NewTicker(d)} }
func (t realTicker) C() <-chan time.Time           { return t.t.C }
func (t realTicker) Stop()                         { t.t.Stop() }

// RecentChatsPoller refreshes one owner's recent chats: once on start, then on every tick,
// until its context is cancelled.
type RecentChatsPoller struct {
	Chats    services.RecentChatsService
	Owner    string
	Interval time.Duration
	Clock    Clock
	Logger   *logrus.Logger

	// Publish receives every successful fetch. It runs on the poller goroutine.
	Publish func([]models.RecentChat) error
}

// Run blocks until ctx is done or Publish fails, and always stops its ticker.
func (p *RecentChatsPoller) Run(ctx context.Context) error {
	if p.Interval <= 0 {
		p.Interval = DefaultRecentChatsInterval
	}
	if p.Clock == nil {
		p.Clock = realClock{}
	}
	if p.Logger == nil {
		p.Logger = logrus.New()
	}
	log := p.Logger.WithFields(logrus.Fields{"worker": "recent_chats", "owner": p.Owner})

	t := p.Clock.NewTicker(p.Interval)
	defer t.Stop()

	if err := p.poll(ctx, log); err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			log.Debug("poller stopped")
			return nil
		case <-t.C():
			if err := p.poll(ctx, log); err != nil {
				return err
			}
		}
	}
}

// poll only returns the publish error; a failed fetch is logged and the next tick retries.
func (p *RecentChatsPoller) poll(ctx context.Context, log *logrus.Entry) error {
	chats, err := p.Chats.List(ctx, p.Owner)
	if err != nil {
		if ctx.Err() == nil {
			log.WithError(err).Warn("recent chats fetch failed")
		}
		return nil
	}
	if p.Publish == nil {
		return nil
	}
	return p.Publish(chats)
}
