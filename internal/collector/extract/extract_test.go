package extract

import (
	"context"
	"errors"
	"testing"
	"time"

	"datahunter/internal/collector/locate"
	"datahunter/internal/domain"
	"datahunter/test/fakes"
	"datahunter/test/fixtures"
)

const statusURL = "https://x.com/alice/status/123"

var fast = Policy{Interval: time.Millisecond, MaxAttempts: 5}

func tweetTarget() TweetTarget {
	return TweetTarget{Selectors: locate.Static(locate.DefaultSelectors())}
}

func chatTarget() ChatTarget {
	return ChatTarget{Selectors: locate.Static(locate.DefaultSelectors())}
}

// recordingTarget never completes and keeps every accumulator it produced.
type recordingTarget struct {
	TweetTarget
	history []domain.TweetRecord
}

func (r *recordingTarget) Merge(acc, partial domain.TweetRecord) domain.TweetRecord {
	next := r.TweetTarget.Merge(acc, partial)
	r.history = append(r.history, next)
	return next
}

func (r *recordingTarget) Complete(domain.TweetRecord) bool { return false }

func TestPoll_ResolvesCompleteSubject(t *testing.T) {
	// Arrange
	page := fakes.NewPage(statusURL, fixtures.StatusPage(fixtures.Alice(), true))

	// Act
	rec, err := Poll[domain.TweetRecord](context.Background(), page, tweetTarget(), fast)

	// Assert
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Username != "Alice" || rec.ScreenName != "alice" || rec.Timestamp != 1704067200 || rec.Content != "hello" {
		t.Errorf("record = %+v", rec)
	}
	if page.Snapshots() != 1 {
		t.Errorf("Snapshots = %d, want 1", page.Snapshots())
	}
}

func TestPoll_NoStructureIsMissingContent(t *testing.T) {
	page := fakes.NewPage("https://x.com/home", fixtures.EmptyPage())

	_, err := Poll[domain.TweetRecord](context.Background(), page, tweetTarget(), fast)

	if !errors.Is(err, domain.ErrMissingContent) {
		t.Fatalf("err = %v, want ErrMissingContent", err)
	}
	if page.Snapshots() != fast.MaxAttempts {
		t.Errorf("Snapshots = %d, want %d", page.Snapshots(), fast.MaxAttempts)
	}
}

func TestPoll_StructureWithoutCompletionIsTimeout(t *testing.T) {
	// text shows up on tick 3 but the author never does
	headless := fixtures.Page("x", fixtures.Article(fixtures.Tweet{Text: "<span>hi</span>"}))
	page := fakes.NewPage(statusURL, fixtures.EmptyPage(), fixtures.EmptyPage(), headless)

	_, err := Poll[domain.TweetRecord](context.Background(), page, tweetTarget(), fast)

	if !errors.Is(err, domain.ErrTimeout) {
		t.Fatalf("err = %v, want ErrTimeout", err)
	}
	if domain.Classify(err) != domain.KindTimeout {
		t.Errorf("Classify = %q", domain.Classify(err))
	}
}

func TestPoll_MergeIsMonotonic(t *testing.T) {
	// Arrange
	noAvatar := fixtures.Alice()
	noAvatar.Avatar = ""
	noText := fixtures.Alice()
	noText.Text = ""
	page := fakes.NewPage(statusURL,
		fixtures.StatusPage(fixtures.Alice(), true),
		fixtures.EmptyPage(),
		fixtures.StatusPage(noAvatar, true),
		fixtures.StatusPage(noText, true),
	)
	target := &recordingTarget{TweetTarget: tweetTarget()}

	// Act
	_, err := Poll[domain.TweetRecord](context.Background(), page, target, fast)

	// Assert
	if !errors.Is(err, domain.ErrTimeout) {
		t.Fatalf("err = %v, want ErrTimeout", err)
	}
	if len(target.history) != fast.MaxAttempts {
		t.Fatalf("merges = %d, want %d", len(target.history), fast.MaxAttempts)
	}
	for i, acc := range target.history {
		if acc.ScreenName != "alice" || acc.Avatar == "" || acc.Content != "hello" || acc.Timestamp != 1704067200 {
			t.Errorf("tick %d cleared a field: %+v", i+1, acc)
		}
	}
}

func TestPoll_SubjectChangeRestartsAttempt(t *testing.T) {
	alice := fixtures.Alice()
	alice.Text = ""
	const bobURL = "https://x.com/bob/status/456"
	bobText := fixtures.Tweet{ID: "456", Text: "<span>bob speaking</span>"}
	bob := fixtures.Tweet{
		ID: "456", Display: "Bob", Handle: "bob",
		Avatar:   "https://pbs.twimg.com/profile_images/2/bob_normal.jpg",
		Datetime: "2024-02-01T00:00:00Z", Text: "<span>bob speaking</span>",
	}

	t.Run("fields of the old subject are dropped", func(t *testing.T) {
		page := fakes.NewNavigatingPage(
			fakes.Frame{URL: statusURL, HTML: fixtures.StatusPage(alice, true)},
			fakes.Frame{URL: bobURL, HTML: fixtures.Page("x", fixtures.Article(bobText))},
		)

		rec, err := Poll[domain.TweetRecord](context.Background(), page, tweetTarget(), fast)

		if !errors.Is(err, domain.ErrTimeout) {
			t.Fatalf("err = %v, want ErrTimeout (record %+v)", err, rec)
		}
		if rec.ScreenName == "alice" {
			t.Errorf("record mixes subjects: %+v", rec)
		}
	})

	t.Run("new subject resolves on its own", func(t *testing.T) {
		page := fakes.NewNavigatingPage(
			fakes.Frame{URL: statusURL, HTML: fixtures.StatusPage(alice, true)},
			fakes.Frame{URL: bobURL, HTML: fixtures.Page("x", fixtures.Article(bobText))},
			fakes.Frame{URL: bobURL, HTML: fixtures.StatusPage(bob, true)},
		)

		rec, err := Poll[domain.TweetRecord](context.Background(), page, tweetTarget(), fast)

		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if rec.ID != "456" || rec.ScreenName != "bob" || rec.Avatar != bob.Avatar || rec.Content != "bob speaking" {
			t.Errorf("record = %+v", rec)
		}
	})
}

func TestPoll_BusyTicksCountButDoNotMerge(t *testing.T) {
	turns := []fixtures.ChatTurn{{ID: "m1", Role: "user", Content: "hi"}}
	streaming := fixtures.ChatPage("Chat", turns, true)
	done := fixtures.ChatPage("Chat", turns, false)

	t.Run("resolves after busy ticks", func(t *testing.T) {
		page := fakes.NewPage("https://chatgpt.com/c/abc", streaming, streaming, done)

		rec, err := Poll[domain.ChatRecord](context.Background(), page, chatTarget(), fast)

		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if page.Snapshots() != 3 || len(rec.Turns) != 1 || rec.ID != "abc" {
			t.Errorf("snapshots = %d, record = %+v", page.Snapshots(), rec)
		}
	})

	t.Run("busy for the whole budget", func(t *testing.T) {
		page := fakes.NewPage("https://chatgpt.com/c/abc", streaming)

		_, err := Poll[domain.ChatRecord](context.Background(), page, chatTarget(), fast)

		if !errors.Is(err, domain.ErrTimeout) {
			t.Fatalf("err = %v, want ErrTimeout", err)
		}
		if page.Snapshots() != fast.MaxAttempts {
			t.Errorf("Snapshots = %d, want %d", page.Snapshots(), fast.MaxAttempts)
		}
	})
}

func TestPoll_SnapshotErrorsUseBudget(t *testing.T) {
	page := fakes.NewPage(statusURL, fixtures.StatusPage(fixtures.Alice(), true))
	page.Fail(errors.New("target closed"))

	_, err := Poll[domain.TweetRecord](context.Background(), page, tweetTarget(), fast)

	if !errors.Is(err, domain.ErrMissingContent) {
		t.Fatalf("err = %v, want ErrMissingContent", err)
	}
}

func TestPoll_Cancellation(t *testing.T) {
	page := fakes.NewPage("https://x.com/home", fixtures.EmptyPage())
	ctx, cancel := context.WithCancel(context.Background())
	policy := Policy{Interval: 5 * time.Millisecond, MaxAttempts: 1000}

	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	_, err := Poll[domain.TweetRecord](ctx, page, tweetTarget(), policy)

	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	served := page.Snapshots()
	time.Sleep(30 * time.Millisecond)
	if page.Snapshots() != served {
		t.Error("page was read after Poll returned")
	}
}

func TestObserve_ResolvesOnMutation(t *testing.T) {
	// Arrange
	page := fakes.NewPage(statusURL, fixtures.EmptyPage())
	policy := Policy{Interval: 10 * time.Millisecond, MaxAttempts: 100}

	// Act
	type result struct {
		rec domain.TweetRecord
		err error
	}
	done := make(chan result, 1)
	go func() {
		rec, err := Observe[domain.TweetRecord](context.Background(), page, tweetTarget(), policy)
		done <- result{rec, err}
	}()

	waitFor(t, func() bool { return page.LiveSubscriptions() == 1 })
	page.Show(fixtures.StatusPage(fixtures.Alice(), true))

	// Assert
	select {
	case r := <-done:
		if r.err != nil {
			t.Fatalf("unexpected error: %v", r.err)
		}
		if r.rec.ScreenName != "alice" || r.rec.ID != "123" {
			t.Errorf("record = %+v", r.rec)
		}
	case <-time.After(time.Second):
		t.Fatal("Observe did not resolve")
	}
	if page.LiveSubscriptions() != 0 {
		t.Errorf("LiveSubscriptions = %d, want 0", page.LiveSubscriptions())
	}
}

func TestObserve_AccumulatesAcrossNotifications(t *testing.T) {
	handleOnly := fixtures.Page("x", fixtures.Article(fixtures.Tweet{Display: "Alice", Handle: "alice"}))
	textOnly := fixtures.Page("x", fixtures.Article(fixtures.Tweet{Text: "<span>hello</span>"}))
	page := fakes.NewPage(statusURL, handleOnly)
	policy := Policy{Interval: 10 * time.Millisecond, MaxAttempts: 100}

	done := make(chan domain.TweetRecord, 1)
	go func() {
		rec, _ := Observe[domain.TweetRecord](context.Background(), page, tweetTarget(), policy)
		done <- rec
	}()

	waitFor(t, func() bool { return page.Snapshots() >= 1 })
	page.Show(textOnly)

	select {
	case rec := <-done:
		if rec.ScreenName != "alice" || rec.Content != "hello" {
			t.Errorf("record = %+v", rec)
		}
	case <-time.After(time.Second):
		t.Fatal("Observe did not resolve")
	}
}

func TestObserve_BudgetAndDisconnect(t *testing.T) {
	tests := []struct {
		name string
		html string
		want error
	}{
		{"nothing observed", fixtures.EmptyPage(), domain.ErrMissingContent},
		{"text without author", fixtures.Page("x", fixtures.Article(fixtures.Tweet{Text: "<span>x</span>"})), domain.ErrTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page := fakes.NewPage(statusURL, tt.html)

			_, err := Observe[domain.TweetRecord](context.Background(), page, tweetTarget(), fast)

			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
			if page.LiveSubscriptions() != 0 {
				t.Errorf("LiveSubscriptions = %d, want 0", page.LiveSubscriptions())
			}
		})
	}
}

func TestObserve_CancelDisconnects(t *testing.T) {
	page := fakes.NewPage(statusURL, fixtures.EmptyPage())
	ctx, cancel := context.WithCancel(context.Background())
	policy := Policy{Interval: time.Second, MaxAttempts: 100}

	done := make(chan error, 1)
	go func() {
		_, err := Observe[domain.TweetRecord](ctx, page, tweetTarget(), policy)
		done <- err
	}()
	waitFor(t, func() bool { return page.LiveSubscriptions() == 1 })
	cancel()

	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if page.LiveSubscriptions() != 0 {
		t.Errorf("LiveSubscriptions = %d, want 0", page.LiveSubscriptions())
	}
}

func TestObserve_ReplyWithoutComposerIsAbnormalEnvironment(t *testing.T) {
	page := fakes.NewPage(statusURL, fixtures.StatusPage(fixtures.Alice(), false))
	target := ReplyTarget{Selectors: locate.Static(locate.DefaultSelectors())}

	_, err := Observe[domain.ReplyContext](context.Background(), page, target, fast)

	if !errors.Is(err, domain.ErrAbnormalEnvironment) {
		t.Fatalf("err = %v, want ErrAbnormalEnvironment", err)
	}
	if domain.ShortenError(err) != "EnvError" {
		t.Errorf("ShortenError = %q", domain.ShortenError(err))
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestRun_SelectsStrategy(t *testing.T) {
	for _, strategy := range []Strategy{Polling, Observing, ""} {
		page := fakes.NewPage(statusURL, fixtures.StatusPage(fixtures.Alice(), true))

		rec, err := Run[domain.TweetRecord](context.Background(), strategy, page, tweetTarget(), fast)

		if err != nil || rec.ScreenName != "alice" {
			t.Errorf("%q: rec %+v err %v", strategy, rec, err)
		}
		wantSubs := 0
		if strategy == Observing {
			wantSubs = 1
		}
		if page.Subscriptions() != wantSubs {
			t.Errorf("%q: subscriptions = %d, want %d", strategy, page.Subscriptions(), wantSubs)
		}
	}
}
