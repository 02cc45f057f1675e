// Package session watches one browser tab, mounts the widgets its page calls
// for and keeps them in step with the page through the reconciler.
package session

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"datahunter/internal/collector/extract"
	"datahunter/internal/collector/locate"
	"datahunter/internal/collector/reconcile"
	"datahunter/internal/collector/widget"
	"datahunter/internal/domain"
	"datahunter/pkg/log"
)

// Tab is the live page a session watches.
type Tab interface {
	extract.Page

	// InsertText types text into the first element matching selector.
	InsertText(ctx context.Context, selector, text string) error
}

// Hub is the data hub as seen by widgets.
type Hub interface {
	SubmitTweet(ctx context.Context, p domain.TweetPayload) (domain.SubmitResult, error)
	SubmitChat(ctx context.Context, p domain.ChatPayload) (domain.SubmitResult, error)
	CheckReply(ctx context.Context, p domain.ReplyPayload) (ok bool, msg string, err error)
	GenerateReply(ctx context.Context, p domain.ReplyPayload) (string, error)
}

// Accounts exposes the credential store.
type Accounts interface {
	HasAccount() bool
	Blacklist() []string
}

// Sender is the best-effort channel to the background coordinator.
type Sender interface {
	Send(msg string)
}

// Background messages sent by widgets.
const (
	MsgRefreshBlacklist = "refresh_x_blacklist"
	MsgOpenKeepalive    = "open_keepalive"
)

// Options configure the widgets a session mounts.
type Options struct {
	Selectors locate.Provider
	Hub       Hub
	Accounts  Accounts
	Sender    Sender
	Navigator widget.Navigator
	Links     widget.Links

	Chat  Mode
	Tweet Mode
	Reply Mode

	// ReplyCheck caches reply availability per tweet.
	ReplyCheck *ReplyCheck
}

// Mode is the extraction strategy and budget of one page type.
type Mode struct {
	Strategy extract.Strategy
	Policy   extract.Policy
}

// DefaultOptions returns the page type modes used in production.
func DefaultOptions() Options {
	return Options{
		Selectors: locate.Static(locate.DefaultSelectors()),
		Chat:      Mode{Strategy: extract.Polling, Policy: extract.ChatPolicy},
		Tweet:     Mode{Strategy: extract.Polling, Policy: extract.TweetPolicy},
		Reply:     Mode{Strategy: extract.Observing, Policy: extract.ReplyPolicy},
	}
}

// mount is a live widget plus the reconciler tracking its subject.
type mount struct {
	w   widget.Controller
	rec *reconcile.Reconciler
	key string
}

// Session is one watched tab.
type Session struct {
	tab  Tab
	opts Options
	ctx  context.Context

	mu      sync.Mutex
	subject *mount
	replies map[string]*mount
	closed  bool
}

// New creates a session. Nothing is mounted until Run or Sync.
func New(ctx context.Context, tab Tab, opts Options) *Session {
	return &Session{
		tab:     tab,
		opts:    opts,
		ctx:     ctx,
		replies: make(map[string]*mount),
	}
}

// Run syncs on start and after every page mutation until ctx is done, then
// disposes every widget.
func (s *Session) Run(ctx context.Context) error {
	defer s.Close()

	notes, stop, err := s.tab.Subscribe(ctx)
	if err != nil {
		return fmt.Errorf("subscribe to tab: %w", err)
	}
	defer stop()

	if err := s.Sync(ctx); err != nil {
		log.GlobalWarnCtx(ctx, "session sync failed", "error", err)
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case _, ok := <-notes:
			if !ok {
				return nil
			}
			if err := s.Sync(ctx); err != nil {
				log.GlobalDebugCtx(ctx, "session sync failed", "error", err)
			}
		}
	}
}

// Sync reads the page once and mounts, refreshes, resets or unmounts widgets
// accordingly.
func (s *Session) Sync(ctx context.Context) error {
	snap, err := s.tab.Snapshot(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}

	sels := s.opts.Selectors.Selectors()
	switch siteOf(snap.URL) {
	case siteChat:
		s.syncSubject(domain.TargetChat, locate.ChatID(snap.URL), locate.ChatPageInfo(snap, sels))
	case siteX:
		id := locate.TweetID(snap.URL)
		s.syncSubject(domain.TargetTweet, id, domain.PageInfo{ID: id})
		s.syncReplies(snap, sels)
	default:
		s.unmountSubject()
	}
	return nil
}

// syncSubject keeps the page-wide widget bound to the subject the URL names.
func (s *Session) syncSubject(kind domain.TargetKind, id string, page domain.PageInfo) {
	if s.subject != nil && s.subject.w.Kind() != kind {
		s.unmountSubject()
	}
	if id == "" {
		s.unmountSubject()
		return
	}

	if s.subject == nil {
		s.subject = s.mountSubject(kind, id)
		s.subject.rec.Observe(domain.PageInfo{}, page)
		s.subject.w.Start()
		return
	}

	m := s.subject
	switch d := m.rec.Observe(m.w.Held(), page); d {
	case reconcile.ReExtract:
		m.w.Refresh()
	case reconcile.SubjectChanged:
		m.rec.Forget()
		m.w.Reset()
	case reconcile.Unmount:
		s.unmountSubject()
		s.subject = s.mountSubject(kind, id)
		s.subject.rec.Observe(domain.PageInfo{}, page)
		s.subject.w.Start()
	}
}

func (s *Session) unmountSubject() {
	if s.subject == nil {
		return
	}
	log.GlobalDebugCtx(s.ctx, "unmounting widget", "widget", s.subject.w.ID(), "bound", s.subject.w.Bound())
	s.subject.w.Dispose()
	s.subject = nil
}

// syncReplies mounts a reply widget on the open reply composer and drops the
// ones whose composer went away.
func (s *Session) syncReplies(snap *locate.Snapshot, sels locate.Selectors) {
	var blacklist []string
	if s.opts.Accounts != nil {
		blacklist = s.opts.Accounts.Blacklist()
	}
	at, ok := locate.FindReplyMount(snap, sels, blacklist)

	for key, m := range s.replies {
		if ok && key == at.Key {
			continue
		}
		m.w.Dispose()
		delete(s.replies, key)
	}
	if !ok {
		return
	}
	if _, mounted := s.replies[at.Key]; mounted {
		return
	}

	m := &mount{w: s.newReply(at.Key), key: at.Key}
	s.replies[at.Key] = m
	log.GlobalDebugCtx(s.ctx, "reply widget mounted", "widget", m.w.ID(), "key", at.Key, "author", at.ScreenName)
	s.send(MsgRefreshBlacklist)
	m.w.Start()
}

func (s *Session) mountSubject(kind domain.TargetKind, id string) *mount {
	var w widget.Controller
	if kind == domain.TargetChat {
		w = s.newChat(id)
	} else {
		w = s.newTweet(id)
	}
	log.GlobalDebugCtx(s.ctx, "widget mounted", "widget", w.ID(), "kind", string(kind), "bound", id)
	return &mount{w: w, rec: reconcile.New(id), key: id}
}

// Widgets returns the live widgets, page-wide first.
func (s *Session) Widgets() []widget.Controller {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []widget.Controller
	if s.subject != nil {
		out = append(out, s.subject.w)
	}
	for _, m := range s.replies {
		out = append(out, m.w)
	}
	return out
}

// AccountChanged forwards a credential change to every widget.
func (s *Session) AccountChanged(hasAccount bool) {
	for _, w := range s.Widgets() {
		w.AccountChanged(hasAccount)
	}
}

// Close disposes every widget. The session mounts nothing afterwards.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.unmountSubject()
	for key, m := range s.replies {
		m.w.Dispose()
		delete(s.replies, key)
	}
}

func (s *Session) send(msg string) {
	if s.opts.Sender != nil {
		s.opts.Sender.Send(msg)
	}
}

type site int

const (
	siteOther site = iota
	siteChat
	siteX
)

func siteOf(raw string) site {
	u, err := url.Parse(raw)
	if err != nil {
		return siteOther
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	switch host {
	case "chatgpt.com", "chat.openai.com":
		return siteChat
	case "x.com", "twitter.com":
		return siteX
	}
	return siteOther
}
