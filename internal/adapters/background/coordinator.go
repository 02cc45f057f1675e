// Package background runs the work that outlives any single tab: credential
// messages, blacklist refreshes and the keepalive ping.
package background

import (
	"context"
	"sync"

	"github.com/robfig/cron/v3"

	"datahunter/pkg/log"
)

// Message kinds.
const (
	KindRefreshBlacklist = "refresh_x_blacklist"
	KindOpenKeepalive    = "open_keepalive"
	KindAuth             = "auth"
	KindLogout           = "logout"
)

// DefaultQueueSize bounds pending messages.
const DefaultQueueSize = 32

// BlacklistSchedule refreshes the reply blacklist.
const BlacklistSchedule = "@every 30m"

// Message is one request to the coordinator.
type Message struct {
	Kind    string
	Access  string
	Refresh string
}

// Hub is the part of the data hub the coordinator calls.
type Hub interface {
	Blacklist(ctx context.Context) ([]string, error)
	SendEvent(ctx context.Context) error
}

// Store persists what the coordinator receives.
type Store interface {
	SetTokens(ctx context.Context, access, refresh string) error
	ClearTokens(ctx context.Context) error
	SetBlacklist(ctx context.Context, handles []string) error
}

// Coordinator serializes background messages on one goroutine.
type Coordinator struct {
	hub       Hub
	store     Store
	keepalive *Keepalive
	cron      *cron.Cron
	queue     chan Message

	// handled is called after each message, for tests.
	handled func(Message, error)

	startOnce sync.Once
	stopOnce  sync.Once
	done      chan struct{}
}

// NewCoordinator wires a coordinator. Call Run to start it.
func NewCoordinator(hub Hub, store Store) *Coordinator {
	c := cron.New()
	return &Coordinator{
		hub:       hub,
		store:     store,
		cron:      c,
		keepalive: NewKeepalive(c, hub.SendEvent, KeepaliveSchedule),
		queue:     make(chan Message, DefaultQueueSize),
		done:      make(chan struct{}),
	}
}

// Keepalive returns the keepalive slot.
func (c *Coordinator) Keepalive() *Keepalive {
	return c.keepalive
}

// Send queues a message without payload.
func (c *Coordinator) Send(kind string) {
	c.Post(Message{Kind: kind})
}

// Post queues m and reports whether it was accepted. A full queue drops it.
func (c *Coordinator) Post(m Message) bool {
	select {
	case c.queue <- m:
		return true
	default:
		log.GlobalWarn("background queue full, message dropped", "kind", m.Kind)
		return false
	}
}

// Run handles messages and runs the schedules until ctx is done.
func (c *Coordinator) Run(ctx context.Context) error {
	c.startOnce.Do(func() {
		if _, err := c.cron.AddFunc(BlacklistSchedule, func() {
			if err := c.refreshBlacklist(ctx); err != nil {
				log.GlobalWarnCtx(ctx, "scheduled blacklist refresh failed", "error", err)
			}
		}); err != nil {
			log.GlobalErrorCtx(ctx, "blacklist schedule rejected", "error", err)
		}
		c.cron.Start()
	})
	defer c.stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case m := <-c.queue:
			err := c.handle(ctx, m)
			if err != nil {
				log.GlobalWarnCtx(ctx, "background message failed", "kind", m.Kind, "error", err)
			}
			if c.handled != nil {
				c.handled(m, err)
			}
		}
	}
}

func (c *Coordinator) stop() {
	c.stopOnce.Do(func() {
		c.keepalive.DisposeAll()
		<-c.cron.Stop().Done()
		close(c.done)
	})
}

// Done is closed once Run has stopped the schedules.
func (c *Coordinator) Done() <-chan struct{} {
	return c.done
}

func (c *Coordinator) handle(ctx context.Context, m Message) error {
	switch m.Kind {
	case KindRefreshBlacklist:
		return c.refreshBlacklist(ctx)
	case KindOpenKeepalive:
		_, err := c.keepalive.Ensure(KeepaliveKey)
		return err
	case KindAuth:
		if m.Access == "" {
			return nil
		}
		return c.store.SetTokens(ctx, m.Access, m.Refresh)
	case KindLogout:
		c.keepalive.Dispose(KeepaliveKey)
		return c.store.ClearTokens(ctx)
	default:
		log.GlobalDebugCtx(ctx, "unknown background message", "kind", m.Kind)
		return nil
	}
}

func (c *Coordinator) refreshBlacklist(ctx context.Context) error {
	list, err := c.hub.Blacklist(ctx)
	if err != nil {
		return err
	}
	return c.store.SetBlacklist(ctx, list)
}
