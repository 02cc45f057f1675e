package browser

import (
	"context"
	"fmt"
	"sync"

	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/chromedp"

	"datahunter/internal/collector/locate"
	"datahunter/pkg/log"
)

// Tab is one open Chrome tab. It snapshots the rendered document and fans
// DOM mutation events out to subscribers.
type Tab struct {
	ctx     context.Context
	cancel  context.CancelFunc
	release func()

	mu      sync.Mutex
	subs    map[int]chan struct{}
	nextSub int

	closeOnce sync.Once
}

func newTab(ctx context.Context, cancel context.CancelFunc, release func()) *Tab {
	t := &Tab{
		ctx:     ctx,
		cancel:  cancel,
		release: release,
		subs:    make(map[int]chan struct{}),
	}
	chromedp.ListenTarget(ctx, t.onEvent)
	return t
}

func (t *Tab) onEvent(ev any) {
	switch ev.(type) {
	case *dom.EventChildNodeInserted, *dom.EventChildNodeRemoved,
		*dom.EventChildNodeCountUpdated, *dom.EventAttributeModified,
		*dom.EventCharacterDataModified, *dom.EventSetChildNodes:
		t.broadcast()
	case *dom.EventDocumentUpdated:
		t.broadcast()
		// the listener must not block on CDP calls
		go func() {
			if err := t.track(t.ctx); err != nil && t.ctx.Err() == nil {
				log.GlobalDebug("re-tracking document failed", "error", err)
			}
		}()
	}
}

// track requests the whole tree so Chrome reports mutations anywhere in it.
func (t *Tab) track(ctx context.Context) error {
	return chromedp.Run(ctx,
		dom.Enable(),
		chromedp.ActionFunc(func(ctx context.Context) error {
			_, err := dom.GetDocument().WithDepth(-1).WithPierce(true).Do(ctx)
			return err
		}),
	)
}

func (t *Tab) broadcast() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, ch := range t.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// run executes actions on the tab, bounded by ctx as well.
func (t *Tab) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(t.ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(runCtx, actions...)
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

// Navigate loads url and starts tracking its document.
func (t *Tab) Navigate(ctx context.Context, url string) error {
	if err := t.run(ctx, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("navigate to %s: %w", url, err)
	}
	if err := t.run(ctx, chromedp.ActionFunc(t.track)); err != nil {
		return fmt.Errorf("track document: %w", err)
	}
	t.broadcast()
	return nil
}

// Snapshot reads the location, title and rendered markup of the tab.
func (t *Tab) Snapshot(ctx context.Context) (*locate.Snapshot, error) {
	var url, title, html string
	err := t.run(ctx,
		chromedp.Location(&url),
		chromedp.Title(&title),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return nil, fmt.Errorf("snapshot tab: %w", err)
	}
	return locate.Parse(url, title, html)
}

// Subscribe delivers a notification after DOM mutations. Bursts coalesce into
// one pending notification.
func (t *Tab) Subscribe(ctx context.Context) (<-chan struct{}, func(), error) {
	if err := t.ctx.Err(); err != nil {
		return nil, nil, fmt.Errorf("tab closed: %w", err)
	}

	ch := make(chan struct{}, 1)
	t.mu.Lock()
	id := t.nextSub
	t.nextSub++
	t.subs[id] = ch
	t.mu.Unlock()

	var once sync.Once
	stop := func() {
		once.Do(func() {
			t.mu.Lock()
			delete(t.subs, id)
			t.mu.Unlock()
		})
	}
	return ch, stop, nil
}

// InsertText focuses the first element matching selector and types text into
// it as a paste would.
func (t *Tab) InsertText(ctx context.Context, selector, text string) error {
	err := t.run(ctx,
		chromedp.Focus(selector, chromedp.ByQuery, chromedp.AtLeast(0)),
		input.InsertText(text),
	)
	if err != nil {
		return fmt.Errorf("insert text into %s: %w", selector, err)
	}
	return nil
}

// Close closes the tab and frees its slot.
func (t *Tab) Close() {
	t.closeOnce.Do(func() {
		t.cancel()
		t.mu.Lock()
		t.subs = make(map[int]chan struct{})
		t.mu.Unlock()
		if t.release != nil {
			t.release()
		}
	})
}
