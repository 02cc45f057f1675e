package locate

import (
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

var blockTags = map[string]bool{
	"address": true, "article": true, "aside": true, "blockquote": true,
	"div": true, "dl": true, "dt": true, "dd": true, "figure": true,
	"footer": true, "h1": true, "h2": true, "h3": true, "h4": true,
	"h5": true, "h6": true, "header": true, "li": true, "main": true,
	"nav": true, "ol": true, "p": true, "pre": true, "section": true,
	"table": true, "tr": true, "ul": true,
}

var (
	spaceRun      = regexp.MustCompile(`[ \t\r\f\v]+`)
	handlePattern = regexp.MustCompile(`@([A-Za-z0-9_]+)`)
)

// InnerText approximates the browser's innerText: block elements and <br>
// break lines, runs of spaces collapse, empty lines are dropped.
func InnerText(sel *goquery.Selection) string {
	var b strings.Builder
	sel.Each(func(_ int, s *goquery.Selection) {
		collectText(&b, s)
	})
	return normalizeText(b.String())
}

func collectText(b *strings.Builder, s *goquery.Selection) {
	s.Contents().Each(func(_ int, c *goquery.Selection) {
		switch name := goquery.NodeName(c); {
		case name == "#text":
			b.WriteString(spaceRun.ReplaceAllString(strings.ReplaceAll(c.Text(), "\n", " "), " "))
		case name == "br":
			b.WriteByte('\n')
		case name == "script" || name == "style" || name == "#comment":
		case name == "pre":
			b.WriteByte('\n')
			b.WriteString(c.Text())
			b.WriteByte('\n')
		case blockTags[name]:
			b.WriteByte('\n')
			collectText(b, c)
			b.WriteByte('\n')
		default:
			collectText(b, c)
		}
	})
}

func normalizeText(raw string) string {
	lines := strings.Split(raw, "\n")
	out := lines[:0]
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}

// SplitUserName splits a "DisplayName\n@handle" blob. The handle is the run
// of letters, digits and underscores after the last '@'; the display name is
// the last line of text before it.
func SplitUserName(text string) (display, handle string) {
	locs := handlePattern.FindAllStringSubmatchIndex(text, -1)
	if len(locs) == 0 {
		return "", ""
	}
	last := locs[len(locs)-1]
	handle = text[last[2]:last[3]]

	before := strings.TrimRight(text[:last[0]], " \t\n")
	if i := strings.LastIndexByte(before, '\n'); i >= 0 {
		before = before[i+1:]
	}
	return strings.TrimSpace(before), handle
}

// UserName reads display name and handle from the User-Name block under root.
func UserName(root *goquery.Selection, sels Selectors) (display, handle string) {
	u := root.Find(sels.Tweet.UserName).First()
	if u.Length() == 0 {
		return "", ""
	}
	return SplitUserName(InnerText(u))
}

// Timestamp returns the machine-readable datetime under root as Unix
// seconds, or zero when absent or unparsable.
func Timestamp(root *goquery.Selection, sels Selectors) int64 {
	t := root.Find(sels.Tweet.Time).First()
	raw, ok := t.Attr("datetime")
	if !ok {
		return 0
	}
	parsed, err := time.Parse(time.RFC3339, strings.TrimSpace(raw))
	if err != nil {
		return 0
	}
	return parsed.Unix()
}

// ellipsis artifacts left at the end of shortened link text.
var linkEllipsis = []string{"…", "â€¦"}

// TweetContent joins the inline children of a tweet text block: emoji images
// contribute their alt text, spans and divs their text, links their text
// without the trailing ellipsis.
func TweetContent(text *goquery.Selection) string {
	var b strings.Builder
	text.First().Children().Each(func(_ int, c *goquery.Selection) {
		switch goquery.NodeName(c) {
		case "img":
			src, _ := c.Attr("src")
			alt, _ := c.Attr("alt")
			draggable, _ := c.Attr("draggable")
			if alt != "" && draggable != "true" && strings.Contains(src, "emoji") {
				b.WriteString(alt)
			}
		case "span", "div":
			collectText(&b, c)
		case "a":
			var link strings.Builder
			collectText(&link, c)
			s := strings.TrimRight(link.String(), " ")
			for _, e := range linkEllipsis {
				s = strings.TrimSuffix(s, e)
			}
			b.WriteString(s)
		}
	})
	return normalizeText(b.String())
}
