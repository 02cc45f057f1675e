package domain

import (
	"regexp"
	"strings"
)

// MaxTweetLength is the weighted length limit of a tweet.
const MaxTweetLength = 280

const (
	weightScale   = 100
	defaultWeight = 200
	urlLength     = 23
)

// lightRanges are the code point ranges that count as one character; all
// others count as two.
var lightRanges = [][2]rune{
	{0, 4351},
	{8192, 8205},
	{8208, 8223},
	{8242, 8247},
}

var urlPattern = regexp.MustCompile(`https?://[^\s]+`)

func runeWeight(r rune) int {
	for _, rg := range lightRanges {
		if r >= rg[0] && r <= rg[1] {
			return weightScale
		}
	}
	return defaultWeight
}

// TweetLength returns the weighted length of text. URLs count as a fixed
// length regardless of how long they are.
func TweetLength(text string) int {
	total := 0
	walkTweet(text, func(_ string, weight int) bool {
		total += weight
		return true
	})
	return total / weightScale
}

// TruncateTweet cuts text so that its weighted length fits in limit. URLs are
// never split.
func TruncateTweet(text string, limit int) string {
	budget := limit * weightScale
	used := 0
	var b strings.Builder
	walkTweet(text, func(chunk string, weight int) bool {
		if used+weight > budget {
			return false
		}
		used += weight
		b.WriteString(chunk)
		return true
	})
	return b.String()
}

func walkTweet(text string, fn func(chunk string, weight int) bool) {
	urls := urlPattern.FindAllStringIndex(text, -1)
	pos := 0
	emit := func(plain string) bool {
		for _, r := range plain {
			if !fn(string(r), runeWeight(r)) {
				return false
			}
		}
		return true
	}
	for _, loc := range urls {
		if !emit(text[pos:loc[0]]) {
			return
		}
		if !fn(text[loc[0]:loc[1]], urlLength*weightScale) {
			return
		}
		pos = loc[1]
	}
	emit(text[pos:])
}
