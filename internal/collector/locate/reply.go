package locate

import (
	"strconv"
	"strings"

	"datahunter/internal/domain"

	"github.com/PuerkitoBio/goquery"
)

// replyTab returns the tab list of the inline reply toolbar.
func replyTab(s *Snapshot, sels Selectors) *goquery.Selection {
	return s.Doc.Find(sels.Reply.Toolbar).First().Find(sels.Reply.Tablist).First()
}

// replyAncestor walks up from the toolbar to the first div that also holds
// the page's progress bar. That div scopes both the tweet and the composer.
func replyAncestor(tab *goquery.Selection, sels Selectors) *goquery.Selection {
	div := tab.Closest("div")
	for div.Length() > 0 {
		if div.Find(sels.Tweet.Progress).Length() > 0 {
			return div
		}
		div = div.Parent().Closest("div")
	}
	return div
}

// matchingCell finds the timeline cell showing the same author and time as
// rec. The ancestor path needs it because the engagement bar lives there.
func matchingCell(s *Snapshot, sels Selectors, rec domain.TweetRecord) *goquery.Selection {
	return s.Doc.Find(sels.Tweet.Cell).FilterFunction(func(_ int, cell *goquery.Selection) bool {
		display, handle := UserName(cell, sels)
		return display == rec.Username && handle == rec.ScreenName && Timestamp(cell, sels) == rec.Timestamp
	}).First()
}

// LocateReply reads the tweet an inline reply composer answers. When the URL
// carries a status id the focused tweet is used (id path); otherwise the tweet
// is read from the composer's ancestor (ancestor path). The id path wins when
// both are possible. found reports whether the tweet text was observed.
func LocateReply(s *Snapshot, sels Selectors) (rc domain.ReplyContext, found bool) {
	tab := replyTab(s, sels)
	if tab.Length() == 0 {
		return rc, false
	}
	ancestor := replyAncestor(tab, sels)
	if ancestor.Length() == 0 {
		return rc, false
	}

	if id := TweetID(s.URL); id != "" {
		root := FocusedTweet(s, sels)
		if root.Length() == 0 {
			return rc, false
		}
		rc.Tweet, found = TweetFields(root, sels)
		rc.Tweet.ID = id
		rc.Tweet.Engagement = Engagement(root, sels)
		rc.Path = domain.RootByID
	} else {
		rc.Tweet, found = TweetFields(ancestor, sels)
		if cell := matchingCell(s, sels, rc.Tweet); cell.Length() > 0 {
			rc.Tweet.Engagement = Engagement(cell, sels)
		}
		rc.Tweet.ID = rc.Tweet.Engagement["id"]
		rc.Path = domain.RootByAncestor
	}

	rc.BoxReady = ancestor.Find(sels.Reply.Box).Length() > 0 &&
		ancestor.Find(sels.Reply.Submit).Length() > 0
	return rc, found
}

// ReplyMount describes where a reply widget can be mounted.
type ReplyMount struct {
	// Key identifies the composer the widget belongs to.
	Key        string
	ScreenName string
}

// FindReplyMount reports whether the page offers a reply composer that a
// reply widget should attach to. Composers for blacklisted authors and the
// standalone new-tweet dialog are skipped.
func FindReplyMount(s *Snapshot, sels Selectors, blacklist []string) (ReplyMount, bool) {
	toolbar := s.Doc.Find(sels.Reply.Toolbar).First()
	tab := toolbar.Find(sels.Reply.Tablist).First()
	submit := toolbar.Find(sels.Reply.ToolbarSubmit).First()
	if tab.Length() == 0 || submit.Length() == 0 {
		return ReplyMount{}, false
	}

	rc, _ := LocateReply(s, sels)
	handle := rc.Tweet.ScreenName
	if handle == "" {
		return ReplyMount{}, false
	}

	lower := strings.ToLower(handle)
	for _, blocked := range blacklist {
		if blocked == lower {
			return ReplyMount{}, false
		}
	}

	sideLabel, _ := s.Doc.Find(sels.Reply.NewTweetButton).First().Attr("aria-label")
	if sideLabel != "" && InnerText(submit) == sideLabel {
		return ReplyMount{}, false
	}

	// Keyed by the URL status id, else by author and time; never by engagement.
	key := TweetID(s.URL)
	if key == "" {
		if rc.Tweet.Timestamp == 0 {
			return ReplyMount{}, false
		}
		key = handle + "@" + strconv.FormatInt(rc.Tweet.Timestamp, 10)
	}
	return ReplyMount{Key: key, ScreenName: handle}, true
}
