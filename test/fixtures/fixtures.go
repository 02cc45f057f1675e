// Package fixtures provides HTML fixtures of the host pages for locator,
// extractor and widget tests.
package fixtures

import (
	"fmt"
	"strings"
)

// Tweet describes one tweet article.
type Tweet struct {
	ID         string
	Display    string
	Handle     string
	Avatar     string
	Datetime   string
	Text       string // raw inner HTML of the tweetText block
	Engagement bool
}

// Alice is the tweet used across scenario tests.
func Alice() Tweet {
	return Tweet{
		ID:       "123",
		Display:  "Alice",
		Handle:   "alice",
		Avatar:   "https://pbs.twimg.com/profile_images/1/alice_normal.jpg",
		Datetime: "2024-01-01T00:00:00Z",
		Text:     `<span>hello</span>`,
	}
}

// Article renders a tweet article.
func Article(t Tweet) string {
	var b strings.Builder
	b.WriteString(`<article data-testid="tweet">`)
	if t.Avatar != "" {
		fmt.Fprintf(&b, `<div data-testid="Tweet-User-Avatar"><a href="/%s"><img src="%s"/></a></div>`, t.Handle, t.Avatar)
	}
	if t.Display != "" || t.Handle != "" {
		fmt.Fprintf(&b, `<div data-testid="User-Name"><div><span>%s</span></div><div><a href="/%s"><span>@%s</span></a></div></div>`,
			t.Display, t.Handle, t.Handle)
	}
	if t.Datetime != "" {
		fmt.Fprintf(&b, `<a href="/%s/status/%s"><time datetime="%s">Jan 1</time></a>`, t.Handle, t.ID, t.Datetime)
	}
	if t.Text != "" {
		fmt.Fprintf(&b, `<div data-testid="tweetText" dir="ltr" lang="en">%s</div>`, t.Text)
	}
	if t.Engagement {
		fmt.Fprintf(&b, `<div role="group" aria-label="3 replies, 5 reposts, 10 likes, 200 views">`+
			`<div><button data-testid="reply" aria-label="3 Replies. Reply"></button></div>`+
			`<div><button data-testid="retweet" aria-label="5 reposts. Repost"></button></div>`+
			`<div><button data-testid="like" aria-label="10 Likes. Like"></button></div>`+
			`<div><a href="/%s/status/%s/analytics" aria-label="200 views. View post analytics"></a></div>`+
			`</div>`, t.Handle, t.ID)
	}
	b.WriteString(`</article>`)
	return b.String()
}

// Page wraps body into a full document.
func Page(title, body string) string {
	return fmt.Sprintf("<!DOCTYPE html><html><head><title>%s</title></head><body>%s</body></html>", title, body)
}

// StatusPage renders a status page focused on t, with the inline reply
// composer next to it. composer controls whether the reply box and button
// are present.
func StatusPage(t Tweet, composer bool) string {
	return Page("Post / X", `<main><div data-testid="primaryColumn"><div class="conversation">`+
		Article(t)+
		`<div data-testid="inline_reply_offscreen">`+
		`<div role="progressbar" aria-valuemax="100"></div>`+
		replyComposer(composer)+
		`</div></div></div></main>`)
}

// TimelineReplyPage renders a timeline with an opened reply dialog for t.
// There is no status id in the page URL for this layout.
func TimelineReplyPage(t Tweet, composer bool) string {
	return Page("Home / X", `<main>`+
		`<div data-testid="cellInnerDiv">`+Article(t)+`</div>`+
		`<div role="dialog"><div class="modal">`+
		`<div role="progressbar"></div>`+
		Article(Tweet{Display: t.Display, Handle: t.Handle, Datetime: t.Datetime, Text: t.Text})+
		replyComposer(composer)+
		`</div></div></main>`)
}

func replyComposer(withBox bool) string {
	box := ""
	if withBox {
		box = `<div class="DraftEditor-root"><div contenteditable="true" role="textbox"></div></div>`
	}
	button := `<button data-testid="tweetButtonInline"><span>Reply</span></button>`
	if !withBox {
		button = `<button data-testid="tweetButtonDisabled"><span>Reply</span></button>`
	}
	return `<div class="composer">` + box +
		`<div data-testid="toolBar"><div><div role="tablist"><div role="presentation"></div></div></div>` +
		button + `</div></div>`
}

// EmptyPage is a page that never shows any target structure.
func EmptyPage() string {
	return Page("Loading", `<div id="react-root"><div class="spinner"></div></div>`)
}

// ChatTurn is one message of a conversation fixture.
type ChatTurn struct {
	ID      string
	Role    string
	Content string
}

// ChatPage renders a conversation. streaming adds the stop button shown
// while an answer is being generated.
func ChatPage(title string, turns []ChatTurn, streaming bool) string {
	var b strings.Builder
	b.WriteString(`<main><div class="conversation">`)
	for _, t := range turns {
		fmt.Fprintf(&b, `<article><div data-message-author-role="%s" data-message-id="%s"><div class="markdown"><p>%s</p></div></div></article>`,
			t.Role, t.ID, t.Content)
	}
	b.WriteString(`</div>`)
	if streaming {
		b.WriteString(`<button data-testid="stop-button" aria-label="Stop streaming"></button>`)
	} else {
		b.WriteString(`<button data-testid="send-button"></button>`)
	}
	b.WriteString(`</main>`)
	return Page(title, b.String())
}
