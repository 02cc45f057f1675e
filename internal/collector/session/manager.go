package session

import (
	"context"
	"sort"
	"sync"

	"datahunter/internal/collector/widget"
	"datahunter/pkg/log"
)

// Manager runs the sessions of every watched tab and finds widgets across
// them.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*watched
	wg       sync.WaitGroup
}

type watched struct {
	s      *Session
	cancel context.CancelFunc
}

// NewManager returns an empty manager.
func NewManager() *Manager {
	return &Manager{sessions: make(map[string]*watched)}
}

// Watch runs s under name until ctx is done or Forget is called. A session
// already watched under name is stopped.
func (m *Manager) Watch(ctx context.Context, name string, s *Session) {
	ctx, cancel := context.WithCancel(ctx)

	w := &watched{s: s, cancel: cancel}

	m.mu.Lock()
	old := m.sessions[name]
	m.sessions[name] = w
	m.mu.Unlock()
	if old != nil {
		old.cancel()
	}

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer cancel()
		if err := s.Run(ctx); err != nil {
			log.GlobalWarnCtx(ctx, "session stopped", "tab", name, "error", err)
		}
		m.mu.Lock()
		if m.sessions[name] == w {
			delete(m.sessions, name)
		}
		m.mu.Unlock()
	}()
}

// Forget stops the session watched under name.
func (m *Manager) Forget(name string) {
	m.mu.Lock()
	w, ok := m.sessions[name]
	delete(m.sessions, name)
	m.mu.Unlock()
	if ok {
		w.cancel()
	}
}

// Tabs returns the watched tab names in order.
func (m *Manager) Tabs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, 0, len(m.sessions))
	for name := range m.sessions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Widgets returns every live widget, grouped by tab.
func (m *Manager) Widgets() []widget.Controller {
	var out []widget.Controller
	for _, s := range m.snapshot() {
		out = append(out, s.Widgets()...)
	}
	return out
}

// Widget finds a live widget by id.
func (m *Manager) Widget(id string) (widget.Controller, bool) {
	for _, w := range m.Widgets() {
		if w.ID() == id {
			return w, true
		}
	}
	return nil, false
}

// AccountChanged forwards a credential change to every session.
func (m *Manager) AccountChanged(hasAccount bool) {
	for _, s := range m.snapshot() {
		s.AccountChanged(hasAccount)
	}
}

// Close closes every session and waits for their loops to end.
func (m *Manager) Close() {
	m.mu.Lock()
	all := m.sessions
	m.sessions = make(map[string]*watched)
	m.mu.Unlock()
	for _, w := range all {
		w.cancel()
	}
	m.wg.Wait()
}

func (m *Manager) snapshot() []*Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, 0, len(m.sessions))
	for name := range m.sessions {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]*Session, 0, len(names))
	for _, name := range names {
		out = append(out, m.sessions[name].s)
	}
	return out
}
