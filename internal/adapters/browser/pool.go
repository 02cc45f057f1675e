// Package browser drives Chrome through chromedp and exposes its tabs as
// pages the collector can watch.
package browser

import (
	"context"
	"fmt"
	"sync"

	"github.com/chromedp/chromedp"

	"datahunter/pkg/log"
)

// DefaultMaxTabs bounds the tabs open at once.
const DefaultMaxTabs = 4

// Options configure the Chrome process.
type Options struct {
	// ExecPath is the Chrome binary. Empty uses chromedp's lookup.
	ExecPath string
	// RemoteURL attaches to a running Chrome DevTools endpoint instead of
	// starting one.
	RemoteURL string
	Headless  bool
	MaxTabs   int
}

// Pool manages a single Chrome process and bounds how many tabs are open.
type Pool struct {
	opts     Options
	execOpts []chromedp.ExecAllocatorOption

	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc

	slots *slots
}

// NewPool starts Chrome, or attaches to it when RemoteURL is set.
func NewPool(opts Options) (*Pool, error) {
	if opts.MaxTabs <= 0 {
		opts.MaxTabs = DefaultMaxTabs
	}

	execOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-setuid-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-gpu", true),

		chromedp.Flag("disable-sync", true),
		chromedp.Flag("disable-background-networking", true),
		chromedp.Flag("disable-default-apps", true),
		chromedp.Flag("disable-notifications", true),
		chromedp.Flag("disable-translate", true),
		chromedp.Flag("disable-features", "Translate,BackForwardCache"),
		chromedp.Flag("mute-audio", true),
		chromedp.Flag("no-first-run", true),
	)
	if opts.ExecPath != "" {
		log.GlobalInfo("browser using custom chrome path", "path", opts.ExecPath)
		execOpts = append(execOpts, chromedp.ExecPath(opts.ExecPath))
	}

	p := &Pool{
		opts:     opts,
		execOpts: execOpts,
		slots:    newSlots(opts.MaxTabs),
	}
	if err := p.start(); err != nil {
		return nil, err
	}
	return p, nil
}

// start initializes or restarts the browser connection.
func (p *Pool) start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cancel != nil {
		p.cancel()
	}

	var (
		allocCtx context.Context
		cancel   context.CancelFunc
	)
	if p.opts.RemoteURL != "" {
		allocCtx, cancel = chromedp.NewRemoteAllocator(context.Background(), p.opts.RemoteURL)
	} else {
		allocCtx, cancel = chromedp.NewExecAllocator(context.Background(), p.execOpts...)
	}
	ctx, _ := chromedp.NewContext(allocCtx)

	if err := chromedp.Run(ctx); err != nil {
		cancel()
		return fmt.Errorf("start chrome: %w", err)
	}

	p.ctx = ctx
	p.cancel = cancel
	log.GlobalInfo("browser started", "remote", p.opts.RemoteURL != "")
	return nil
}

// Open takes a tab slot, opens a tab and navigates it to url. The slot is
// held until the tab is closed.
func (p *Pool) Open(ctx context.Context, url string) (*Tab, error) {
	if err := p.slots.acquire(ctx); err != nil {
		return nil, err
	}

	tabCtx, tabCancel, err := p.acquireTab()
	if err != nil {
		p.slots.release()
		return nil, err
	}

	t := newTab(tabCtx, tabCancel, p.slots.release)
	if err := t.Navigate(ctx, url); err != nil {
		t.Close()
		return nil, err
	}
	log.GlobalDebugCtx(ctx, "tab opened", "url", url)
	return t, nil
}

// acquireTab creates a tab and checks it. A failing tab restarts the browser
// once.
func (p *Pool) acquireTab() (context.Context, context.CancelFunc, error) {
	p.mu.Lock()
	tabCtx, tabCancel := chromedp.NewContext(p.ctx)
	p.mu.Unlock()

	if err := chromedp.Run(tabCtx); err != nil {
		tabCancel()
		log.GlobalWarn("browser tab failed, restarting chrome", "error", err)

		if restartErr := p.start(); restartErr != nil {
			return nil, nil, restartErr
		}

		p.mu.Lock()
		tabCtx, tabCancel = chromedp.NewContext(p.ctx)
		p.mu.Unlock()
	}
	return tabCtx, tabCancel, nil
}

// Close shuts the browser down.
func (p *Pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
		log.GlobalInfo("browser stopped")
	}
}

// slots is a counting semaphore that gives up when the caller's context ends.
type slots struct {
	ch chan struct{}
}

func newSlots(n int) *slots {
	return &slots{ch: make(chan struct{}, n)}
}

func (s *slots) acquire(ctx context.Context) error {
	select {
	case s.ch <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *slots) release() {
	<-s.ch
}
