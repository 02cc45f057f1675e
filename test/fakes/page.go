// Package fakes provides in-memory collaborators for collector tests.
package fakes

import (
	"context"
	"sync"

	"datahunter/internal/collector/locate"
)

// Page is a scripted host page. Each Snapshot call serves the next frame and
// keeps serving the last one once the script runs out.
type Page struct {
	mu        sync.Mutex
	url       string
	title     string
	frames    []string
	urls      []string
	served    int
	subs      map[int]chan struct{}
	nextSub   int
	subscribe int
	err       error
	inserted  []Insert
	insertErr error
}

// Insert is one InsertText call.
type Insert struct {
	Selector string
	Text     string
}

// NewPage returns a page at url serving frames in order.
func NewPage(url string, frames ...string) *Page {
	return &Page{url: url, frames: frames, subs: make(map[int]chan struct{})}
}

// Frame is one scripted page state with its own URL.
type Frame struct {
	URL  string
	HTML string
}

// NewNavigatingPage returns a page whose URL follows the frame it serves.
func NewNavigatingPage(frames ...Frame) *Page {
	p := &Page{subs: make(map[int]chan struct{})}
	for _, f := range frames {
		p.frames = append(p.frames, f.HTML)
		p.urls = append(p.urls, f.URL)
	}
	if len(frames) > 0 {
		p.url = frames[0].URL
	}
	return p
}

// Snapshot parses the current frame.
func (p *Page) Snapshot(ctx context.Context) (*locate.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.mu.Lock()
	if p.err != nil {
		err := p.err
		p.mu.Unlock()
		return nil, err
	}
	html := ""
	if len(p.frames) > 0 {
		i := p.served
		if i >= len(p.frames) {
			i = len(p.frames) - 1
		}
		html = p.frames[i]
		if i < len(p.urls) {
			p.url = p.urls[i]
		}
	}
	p.served++
	url, title := p.url, p.title
	p.mu.Unlock()

	return locate.Parse(url, title, html)
}

// Subscribe registers a mutation subscriber.
func (p *Page) Subscribe(ctx context.Context) (<-chan struct{}, func(), error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	id := p.nextSub
	p.nextSub++
	p.subscribe++
	ch := make(chan struct{}, 1)
	p.subs[id] = ch

	var once sync.Once
	stop := func() {
		once.Do(func() {
			p.mu.Lock()
			delete(p.subs, id)
			p.mu.Unlock()
		})
	}
	return ch, stop, nil
}

// Show replaces the script with a single frame and notifies subscribers.
func (p *Page) Show(html string) {
	p.mu.Lock()
	p.frames = []string{html}
	p.urls = nil
	p.served = 0
	p.mu.Unlock()
	p.Notify()
}

// Navigate changes the URL and shows html.
func (p *Page) Navigate(url, html string) {
	p.mu.Lock()
	p.url = url
	p.mu.Unlock()
	p.Show(html)
}

// SetTitle overrides the document title reported by snapshots.
func (p *Page) SetTitle(title string) {
	p.mu.Lock()
	p.title = title
	p.mu.Unlock()
}

// Fail makes every following Snapshot return err; nil restores the page.
func (p *Page) Fail(err error) {
	p.mu.Lock()
	p.err = err
	p.mu.Unlock()
}

// Notify delivers one mutation notification to every live subscriber.
func (p *Page) Notify() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, ch := range p.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// LiveSubscriptions returns the number of subscriptions not yet stopped.
func (p *Page) LiveSubscriptions() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.subs)
}

// Subscriptions returns how many subscriptions were ever opened.
func (p *Page) Subscriptions() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.subscribe
}

// Snapshots returns how many snapshots were served.
func (p *Page) Snapshots() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.served
}

// InsertText records the text typed into selector.
func (p *Page) InsertText(ctx context.Context, selector, text string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.insertErr != nil {
		return p.insertErr
	}
	p.inserted = append(p.inserted, Insert{Selector: selector, Text: text})
	return nil
}

// FailInsert makes InsertText return err.
func (p *Page) FailInsert(err error) {
	p.mu.Lock()
	p.insertErr = err
	p.mu.Unlock()
}

// Inserted returns every InsertText call so far.
func (p *Page) Inserted() []Insert {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Insert(nil), p.inserted...)
}
