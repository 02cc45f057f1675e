package locate

import (
	"regexp"
	"strings"

	"datahunter/internal/domain"

	"github.com/PuerkitoBio/goquery"
)

var statusPattern = regexp.MustCompile(`status/(\d+)`)

// TweetID returns the status id in a URL or href, or "".
func TweetID(url string) string {
	m := statusPattern.FindStringSubmatch(url)
	if m == nil {
		return ""
	}
	return m[1]
}

// Avatar returns the author avatar URL under root.
func Avatar(root *goquery.Selection, sels Selectors) string {
	src, _ := root.Find(sels.Tweet.Avatar).First().Attr("src")
	return strings.TrimSpace(src)
}

// Engagement reads the metric labels of the action bar under root. The bar's
// own label is stored as "all_data", each labelled child under its test id,
// and the analytics link as "views" together with the status id it points to.
func Engagement(root *goquery.Selection, sels Selectors) map[string]string {
	group := root.Find(sels.Tweet.Engagement).First()
	if group.Length() == 0 {
		return nil
	}

	all, _ := group.Attr("aria-label")
	info := map[string]string{"all_data": all}

	group.Children().Each(func(_ int, node *goquery.Selection) {
		node.Children().Each(func(_ int, e *goquery.Selection) {
			label, ok := e.Attr("aria-label")
			if !ok || label == "" {
				return
			}
			if testID, ok := e.Attr("data-testid"); ok && testID != "" {
				info[testID] = label
			}
			if goquery.NodeName(e) != "a" {
				return
			}
			href, _ := e.Attr("href")
			if !strings.Contains(href, "analytics") {
				return
			}
			info["views"] = label
			if id := TweetID(href); id != "" {
				info["id"] = id
			}
		})
	})
	return info
}

// TweetFields reads the author, time and text of the tweet rooted at root.
// The second result reports whether the tweet text block exists.
func TweetFields(root *goquery.Selection, sels Selectors) (domain.TweetRecord, bool) {
	var rec domain.TweetRecord
	rec.Username, rec.ScreenName = UserName(root, sels)
	rec.Avatar = Avatar(root, sels)
	rec.Timestamp = Timestamp(root, sels)

	text := root.Find(sels.Tweet.Text).First()
	if text.Length() == 0 {
		return rec, false
	}
	rec.Content = TweetContent(text)
	return rec, true
}

// FocusedTweet finds the tweet a status page is about: the article next to
// the inline reply composer, which sits beside the page's progress bar.
func FocusedTweet(s *Snapshot, sels Selectors) *goquery.Selection {
	progress := s.Doc.Find(sels.Tweet.Progress).First()
	if progress.Length() == 0 {
		return progress
	}
	return progress.Closest(sels.Tweet.InlineReply).Parent().Find(sels.Tweet.Article).First()
}

// TweetRoot returns the article of the tweet a page shows. The focused tweet
// wins, then the article linking to the status id in the URL, then the first
// article.
func TweetRoot(s *Snapshot, sels Selectors) *goquery.Selection {
	if root := FocusedTweet(s, sels); root.Length() > 0 {
		return root
	}

	articles := s.Doc.Find(sels.Tweet.Article)
	if id := TweetID(s.URL); id != "" {
		match := articles.FilterFunction(func(_ int, a *goquery.Selection) bool {
			return a.Find(`a[href*="/status/`+id+`"]`).Length() > 0
		}).First()
		if match.Length() > 0 {
			return match
		}
	}
	return articles.First()
}

// LocateTweet reads the tweet a page shows. found reports whether its text
// block was observed.
func LocateTweet(s *Snapshot, sels Selectors) (rec domain.TweetRecord, found bool) {
	root := TweetRoot(s, sels)
	if root.Length() == 0 {
		return domain.TweetRecord{}, false
	}
	rec, found = TweetFields(root, sels)
	rec.ID = TweetID(s.URL)
	rec.Engagement = Engagement(root, sels)
	return rec, found
}

// TweetPageInfo reports the identity of a tweet page.
func TweetPageInfo(s *Snapshot, sels Selectors) domain.PageInfo {
	return domain.PageInfo{
		ID:    TweetID(s.URL),
		Count: s.Doc.Find(sels.Tweet.Article).Length(),
		Title: s.Title,
	}
}
