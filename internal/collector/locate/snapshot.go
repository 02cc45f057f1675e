// Package locate finds and parses the sub-structures of the host pages. Every
// function reads an immutable snapshot, performs no I/O and never waits.
// Absent structures yield empty fields, never errors.
package locate

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Snapshot is one read of the live page.
type Snapshot struct {
	URL   string
	Title string
	Doc   *goquery.Document
}

// Parse builds a snapshot from rendered HTML. An empty title falls back to the
// document's <title>.
func Parse(url, title, html string) (*Snapshot, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}
	if title == "" {
		title = strings.TrimSpace(doc.Find("title").First().Text())
	}
	return &Snapshot{URL: url, Title: title, Doc: doc}, nil
}

// Selectors holds every CSS selector the locators use.
type Selectors struct {
	Tweet TweetSelectors `yaml:"tweet"`
	Chat  ChatSelectors  `yaml:"chat"`
	Reply ReplySelectors `yaml:"reply"`
}

// TweetSelectors address the parts of a tweet article.
type TweetSelectors struct {
	Article     string `yaml:"article"`
	Text        string `yaml:"text"`
	UserName    string `yaml:"user_name"`
	Avatar      string `yaml:"avatar"`
	Time        string `yaml:"time"`
	Engagement  string `yaml:"engagement"`
	Cell        string `yaml:"cell"`
	Progress    string `yaml:"progressbar"`
	InlineReply string `yaml:"inline_reply"`
}

// ChatSelectors address the conversation turns.
type ChatSelectors struct {
	Turn     string `yaml:"turn"`
	RoleAttr string `yaml:"role_attr"`
	IDAttr   string `yaml:"id_attr"`
	Busy     string `yaml:"busy"`
}

// ReplySelectors address the inline reply composer.
type ReplySelectors struct {
	Toolbar        string `yaml:"toolbar"`
	Tablist        string `yaml:"tablist"`
	Box            string `yaml:"box"`
	Submit         string `yaml:"submit"`
	ToolbarSubmit  string `yaml:"toolbar_submit"`
	NewTweetButton string `yaml:"new_tweet_button"`
}

// DefaultSelectors returns the selectors matching the current host pages.
func DefaultSelectors() Selectors {
	return Selectors{
		Tweet: TweetSelectors{
			Article:     `article[data-testid="tweet"]`,
			Text:        `[data-testid="tweetText"]`,
			UserName:    `[data-testid="User-Name"]`,
			Avatar:      `[data-testid="Tweet-User-Avatar"] img, img[data-testid="Tweet-User-Avatar"]`,
			Time:        `time`,
			Engagement:  `[role="group"]`,
			Cell:        `[data-testid="cellInnerDiv"]`,
			Progress:    `[role="progressbar"]`,
			InlineReply: `div > [data-testid="inline_reply_offscreen"]`,
		},
		Chat: ChatSelectors{
			Turn:     `[data-message-author-role]`,
			RoleAttr: "data-message-author-role",
			IDAttr:   "data-message-id",
			Busy:     `[data-testid="stop-button"]`,
		},
		Reply: ReplySelectors{
			Toolbar:        `[data-testid="toolBar"]`,
			Tablist:        `[role="tablist"]`,
			Box:            `[contenteditable="true"]`,
			Submit:         `[data-testid="tweetButton"], [data-testid="tweetButtonInline"]`,
			ToolbarSubmit:  `[data-testid*="tweetButton"]`,
			NewTweetButton: `[data-testid="SideNav_NewTweet_Button"]`,
		},
	}
}

// WithDefaults fills every empty selector from DefaultSelectors.
func (s Selectors) WithDefaults() Selectors {
	d := DefaultSelectors()
	fill := func(v *string, def string) {
		if strings.TrimSpace(*v) == "" {
			*v = def
		}
	}

	fill(&s.Tweet.Article, d.Tweet.Article)
	fill(&s.Tweet.Text, d.Tweet.Text)
	fill(&s.Tweet.UserName, d.Tweet.UserName)
	fill(&s.Tweet.Avatar, d.Tweet.Avatar)
	fill(&s.Tweet.Time, d.Tweet.Time)
	fill(&s.Tweet.Engagement, d.Tweet.Engagement)
	fill(&s.Tweet.Cell, d.Tweet.Cell)
	fill(&s.Tweet.Progress, d.Tweet.Progress)
	fill(&s.Tweet.InlineReply, d.Tweet.InlineReply)

	fill(&s.Chat.Turn, d.Chat.Turn)
	fill(&s.Chat.RoleAttr, d.Chat.RoleAttr)
	fill(&s.Chat.IDAttr, d.Chat.IDAttr)
	fill(&s.Chat.Busy, d.Chat.Busy)

	fill(&s.Reply.Toolbar, d.Reply.Toolbar)
	fill(&s.Reply.Tablist, d.Reply.Tablist)
	fill(&s.Reply.Box, d.Reply.Box)
	fill(&s.Reply.Submit, d.Reply.Submit)
	fill(&s.Reply.ToolbarSubmit, d.Reply.ToolbarSubmit)
	fill(&s.Reply.NewTweetButton, d.Reply.NewTweetButton)

	return s
}

// Provider hands out the selectors in effect. Implementations may reload them
// between calls, so callers fetch once per pass.
type Provider interface {
	Selectors() Selectors
}

// Static is a Provider that never changes.
type Static Selectors

// Selectors returns s.
func (s Static) Selectors() Selectors {
	return Selectors(s)
}
