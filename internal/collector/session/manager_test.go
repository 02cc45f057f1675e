package session

import (
	"context"
	"testing"
	"time"

	"datahunter/internal/domain"
	"datahunter/test/fixtures"
)

func waitWidgets(t *testing.T, m *Manager, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for len(m.Widgets()) < n {
		if time.Now().After(deadline) {
			t.Fatalf("widgets = %d, want %d", len(m.Widgets()), n)
		}
		time.Sleep(time.Millisecond)
	}
}

func TestManager_FindsWidgetsAcrossTabs(t *testing.T) {
	// Arrange
	tweet := newEnv(t, "https://x.com/alice/status/123", fixtures.StatusPage(fixtures.Alice(), false))
	chat := newEnv(t, "https://chatgpt.com/c/abc", fixtures.ChatPage("Greeting", []fixtures.ChatTurn{
		{ID: "m1", Role: "user", Content: "hi"},
	}, false))
	m := NewManager()
	defer m.Close()

	// Act
	m.Watch(context.Background(), "tab-1", tweet.s)
	m.Watch(context.Background(), "tab-2", chat.s)
	waitWidgets(t, m, 2)

	// Assert
	if got := m.Tabs(); len(got) != 2 || got[0] != "tab-1" || got[1] != "tab-2" {
		t.Errorf("Tabs = %v", got)
	}
	chatWidget := chat.widget(t, domain.TargetChat)
	found, ok := m.Widget(chatWidget.ID())
	if !ok || found != chatWidget {
		t.Errorf("Widget(%q) = %v, %v", chatWidget.ID(), found, ok)
	}
	if _, ok := m.Widget("missing"); ok {
		t.Error("unknown id found")
	}
}

func TestManager_ForgetStopsSession(t *testing.T) {
	e := newEnv(t, "https://x.com/alice/status/123", fixtures.StatusPage(fixtures.Alice(), false))
	m := NewManager()
	defer m.Close()
	m.Watch(context.Background(), "tab-1", e.s)
	waitWidgets(t, m, 1)

	m.Forget("tab-1")

	deadline := time.Now().Add(2 * time.Second)
	for len(e.s.Widgets()) != 0 || e.page.LiveSubscriptions() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("session still live: widgets %d subscriptions %d", len(e.s.Widgets()), e.page.LiveSubscriptions())
		}
		time.Sleep(time.Millisecond)
	}
	if n := len(m.Tabs()); n != 0 {
		t.Errorf("Tabs = %d, want 0", n)
	}
}

func TestManager_CloseWaitsForSessions(t *testing.T) {
	// Arrange
	a := newEnv(t, "https://x.com/alice/status/123", fixtures.StatusPage(fixtures.Alice(), false))
	b := newEnv(t, "https://chatgpt.com/c/abc", fixtures.ChatPage("Greeting", []fixtures.ChatTurn{
		{ID: "m1", Role: "user", Content: "hi"},
	}, false))
	m := NewManager()
	m.Watch(context.Background(), "a", a.s)
	m.Watch(context.Background(), "b", b.s)
	waitWidgets(t, m, 2)

	// Act
	m.Close()

	// Assert
	if a.page.LiveSubscriptions() != 0 || b.page.LiveSubscriptions() != 0 {
		t.Error("subscriptions still live after Close")
	}
	if len(m.Widgets()) != 0 {
		t.Error("widgets still listed after Close")
	}
}

func TestManager_AccountChangedReachesWidgets(t *testing.T) {
	// Arrange: the reply widget waits for an account
	e := newEnv(t, "https://x.com/alice/status/123", fixtures.StatusPage(fixtures.Alice(), true))
	e.acc.has.Store(false)
	m := NewManager()
	defer m.Close()
	m.Watch(context.Background(), "tab", e.s)
	waitWidgets(t, m, 2)

	// Act
	e.acc.has.Store(true)
	m.AccountChanged(true)

	// Assert
	v := settle(t, e.widget(t, domain.TargetReply))
	if v.Record == nil {
		t.Errorf("reply not collected after account bound: %+v", v)
	}
}
