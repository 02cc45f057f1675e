package background

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/singleflight"

	"datahunter/pkg/log"
)

// KeepaliveSchedule pings the hub while a reply is being written.
const KeepaliveSchedule = "@every 5m"

// KeepaliveKey identifies the single keepalive job.
const KeepaliveKey = "offscreen"

const pingTimeout = 30 * time.Second

// Keepalive owns scheduled ping jobs, at most one per key. Concurrent Ensure
// calls for a key share one creation.
type Keepalive struct {
	cron     *cron.Cron
	ping     func(ctx context.Context) error
	schedule string

	group   singleflight.Group
	mu      sync.Mutex
	entries map[string]cron.EntryID
}

// NewKeepalive schedules ping on c.
func NewKeepalive(c *cron.Cron, ping func(ctx context.Context) error, schedule string) *Keepalive {
	return &Keepalive{
		cron:     c,
		ping:     ping,
		schedule: schedule,
		entries:  make(map[string]cron.EntryID),
	}
}

// Ensure schedules the job for key unless it already runs.
func (k *Keepalive) Ensure(key string) (cron.EntryID, error) {
	v, err, shared := k.group.Do(key, func() (any, error) {
		k.mu.Lock()
		id, ok := k.entries[key]
		k.mu.Unlock()
		if ok {
			return id, nil
		}

		id, err := k.cron.AddFunc(k.schedule, func() {
			ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
			defer cancel()
			if err := k.ping(ctx); err != nil {
				log.GlobalWarn("keepalive ping failed", "key", key, "error", err)
			}
		})
		if err != nil {
			return cron.EntryID(0), err
		}

		k.mu.Lock()
		k.entries[key] = id
		k.mu.Unlock()
		log.GlobalDebug("keepalive scheduled", "key", key, "entry", int(id))
		return id, nil
	})
	if err != nil {
		return 0, err
	}
	if shared {
		log.GlobalTrace("keepalive creation shared", "key", key)
	}
	return v.(cron.EntryID), nil
}

// Active reports whether a job is scheduled for key.
func (k *Keepalive) Active(key string) bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	_, ok := k.entries[key]
	return ok
}

// Dispose stops the job for key. A later Ensure creates a new one.
func (k *Keepalive) Dispose(key string) {
	k.mu.Lock()
	id, ok := k.entries[key]
	delete(k.entries, key)
	k.mu.Unlock()
	if ok {
		k.cron.Remove(id)
		k.group.Forget(key)
	}
}

// DisposeAll stops every job.
func (k *Keepalive) DisposeAll() {
	k.mu.Lock()
	keys := make([]string, 0, len(k.entries))
	for key := range k.entries {
		keys = append(keys, key)
	}
	k.mu.Unlock()
	for _, key := range keys {
		k.Dispose(key)
	}
}
