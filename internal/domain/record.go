// Package domain contains the records extracted from host pages and the rules
// that decide when they may be submitted.
package domain

// TargetKind identifies which host page structure a widget extracts from.
type TargetKind string

const (
	TargetChat  TargetKind = "chat"
	TargetTweet TargetKind = "tweet"
	TargetReply TargetKind = "reply"
)

// ExtractionTarget identifies what an attempt is extracting. It is captured at
// the start of every attempt and compared across attempts to detect a subject
// change.
type ExtractionTarget struct {
	Kind TargetKind
	ID   string
	// Discriminant is the conversation title or the tweet author handle.
	Discriminant string
	// VersionMarker changes when the subject changes (URL or document title).
	VersionMarker string
}

// SameSubject reports whether two targets point at the same subject.
func (t ExtractionTarget) SameSubject(other ExtractionTarget) bool {
	return t.Kind == other.Kind && t.ID == other.ID
}

// TweetRecord is one tweet as read from the page.
type TweetRecord struct {
	ID         string            `json:"id,omitempty"`
	Username   string            `json:"username,omitempty"`
	ScreenName string            `json:"screen_name,omitempty"`
	Avatar     string            `json:"avatar,omitempty"`
	Content    string            `json:"content,omitempty"`
	Timestamp  int64             `json:"timestamp,omitempty"`
	Engagement map[string]string `json:"info,omitempty"`
}

// Complete reports whether every field required to submit the tweet is present.
func (r TweetRecord) Complete() bool {
	return r.ID != "" && r.ScreenName != "" && r.Avatar != "" && r.Content != ""
}

// Target returns the extraction target of the record.
func (r TweetRecord) Target(url string) ExtractionTarget {
	return ExtractionTarget{Kind: TargetTweet, ID: r.ID, Discriminant: r.ScreenName, VersionMarker: url}
}

// MergeTweet folds next into acc. Non-empty fields of next overwrite, empty
// fields never clear what acc already holds.
func MergeTweet(acc, next TweetRecord) TweetRecord {
	acc.ID = pick(acc.ID, next.ID)
	acc.Username = pick(acc.Username, next.Username)
	acc.ScreenName = pick(acc.ScreenName, next.ScreenName)
	acc.Avatar = pick(acc.Avatar, next.Avatar)
	acc.Content = pick(acc.Content, next.Content)
	if next.Timestamp != 0 {
		acc.Timestamp = next.Timestamp
	}
	if len(next.Engagement) > 0 {
		merged := make(map[string]string, len(acc.Engagement)+len(next.Engagement))
		for k, v := range acc.Engagement {
			merged[k] = v
		}
		for k, v := range next.Engagement {
			if v != "" {
				merged[k] = v
			}
		}
		acc.Engagement = merged
	}
	return acc
}

// Turn is one message of a conversation.
type Turn struct {
	ID      string `json:"id"`
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRecord is one conversation as read from the page.
type ChatRecord struct {
	ID    string `json:"id,omitempty"`
	Title string `json:"title,omitempty"`
	Turns []Turn `json:"turns,omitempty"`
}

// Complete reports whether the conversation can be submitted.
func (r ChatRecord) Complete() bool {
	return r.ID != "" && len(r.Turns) > 0
}

// Target returns the extraction target of the record.
func (r ChatRecord) Target() ExtractionTarget {
	return ExtractionTarget{Kind: TargetChat, ID: r.ID, Discriminant: r.Title, VersionMarker: r.Title}
}

// MergeChat folds next into acc. A non-empty turn list replaces the held one
// because the page always renders the whole conversation.
func MergeChat(acc, next ChatRecord) ChatRecord {
	acc.ID = pick(acc.ID, next.ID)
	acc.Title = pick(acc.Title, next.Title)
	if len(next.Turns) > 0 {
		acc.Turns = append([]Turn(nil), next.Turns...)
	}
	return acc
}

// RootPath records how the reply flow found the tweet it replies to.
type RootPath string

const (
	RootByID       RootPath = "id"
	RootByAncestor RootPath = "ancestor"
)

// ReplyContext is the tweet a reply is generated for, plus whether the page
// currently offers a usable reply box.
type ReplyContext struct {
	Tweet    TweetRecord `json:"tweet"`
	Path     RootPath    `json:"path,omitempty"`
	BoxReady bool        `json:"box_ready"`
}

// Complete reports whether a reply can be generated for the context.
func (r ReplyContext) Complete() bool {
	return r.Tweet.ScreenName != "" && r.Tweet.Content != ""
}

// Target returns the extraction target of the reply context.
func (r ReplyContext) Target(url string) ExtractionTarget {
	t := r.Tweet.Target(url)
	t.Kind = TargetReply
	return t
}

// MergeReply folds next into acc.
func MergeReply(acc, next ReplyContext) ReplyContext {
	acc.Tweet = MergeTweet(acc.Tweet, next.Tweet)
	if next.Path != "" {
		acc.Path = next.Path
	}
	acc.BoxReady = acc.BoxReady || next.BoxReady
	return acc
}

// SubmitResult is what the data hub returns for an accepted submission.
type SubmitResult struct {
	Reward    float64 `json:"reward,omitempty"`
	DatasetID string  `json:"dataset_id,omitempty"`
	Promotion string  `json:"promotion,omitempty"`
}

// UserInfo is the account bound to the stored access token.
type UserInfo struct {
	Name         string  `json:"name,omitempty"`
	Email        string  `json:"email,omitempty"`
	Avatar       string  `json:"avatar,omitempty"`
	TwitterName  string  `json:"twitter_name,omitempty"`
	Wallet       string  `json:"wallet,omitempty"`
	ReferralCode string  `json:"referral_code,omitempty"`
	Earnings     float64 `json:"earnings,omitempty"`
	EarnMoreLink string  `json:"earn_more_link,omitempty"`
	BuilderPoint float64 `json:"builder_point,omitempty"`
	Level        int     `json:"level,omitempty"`
	LevelName    string  `json:"level_name,omitempty"`
	Work         int     `json:"work,omitempty"`
}

func pick(held, next string) string {
	if next != "" {
		return next
	}
	return held
}

// PageInfo is the identity of the subject a page currently shows.
type PageInfo struct {
	ID    string `json:"id"`
	Count int    `json:"count"`
	Title string `json:"title"`
	// Busy is set while the page is still producing content, such as an
	// assistant answer that is streaming.
	Busy bool `json:"busy,omitempty"`
}
