package log

import (
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
)

// DefaultQueueSize is the number of entries a logger holds before it starts
// dropping the oldest.
const DefaultQueueSize = 1000

// queue delivers entries to the transporters on a single goroutine, so a
// slow destination never blocks a widget or the browser event loop.
type queue struct {
	mu           sync.RWMutex
	entries      chan Entry
	closed       bool
	transporters []Transporter
	dropped      atomic.Int64
	stopped      chan struct{}
	fallback     io.Writer
}

func newQueue(size int, transporters ...Transporter) *queue {
	q := &queue{
		entries:      make(chan Entry, size),
		transporters: transporters,
		stopped:      make(chan struct{}),
		fallback:     os.Stderr,
	}
	go q.drain()
	return q
}

// push enqueues entry, evicting the oldest one when full. Entries pushed
// after close are discarded.
func (q *queue) push(entry Entry) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return
	}
	for {
		select {
		case q.entries <- entry:
			return
		default:
		}
		select {
		case <-q.entries:
			q.dropped.Add(1)
		default:
		}
	}
}

func (q *queue) drain() {
	defer close(q.stopped)
	for entry := range q.entries {
		for _, t := range q.transporters {
			if err := t.Write(entry); err != nil {
				fmt.Fprintf(q.fallback, "log transporter %q failed: %v\n", t.Name(), err)
			}
		}
	}
}

// close flushes what is queued and closes every transporter. Later calls
// return immediately.
func (q *queue) close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.entries)
	q.mu.Unlock()

	<-q.stopped
	if n := q.dropped.Load(); n > 0 {
		fmt.Fprintf(q.fallback, "log queue dropped %d entries\n", n)
	}
	for _, t := range q.transporters {
		if err := t.Close(); err != nil {
			fmt.Fprintf(q.fallback, "log transporter %q close failed: %v\n", t.Name(), err)
		}
	}
}
