package domain

// TweetPayload is the body of a tweet submission.
type TweetPayload struct {
	AuthorID    string `json:"author_id,omitempty"`
	AuthorImage string `json:"author_image"`
	AuthorName  string `json:"author_name"`
	Tweet       string `json:"tweet"`
	TweetID     string `json:"tweet_id"`
	Timestamp   int64  `json:"timestamp,omitempty"`
}

// ChatPayload is the body of a conversation submission.
type ChatPayload struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Turns []Turn `json:"turns"`
}

// ReplyPayload is the body of the reply availability and generation calls.
type ReplyPayload struct {
	ID      string            `json:"id,omitempty"`
	Content string            `json:"content"`
	Info    map[string]string `json:"info,omitempty"`
	Time    int64             `json:"time,omitempty"`
}

// NewTweetPayload builds the submission body. Incomplete records are refused.
func NewTweetPayload(r TweetRecord) (TweetPayload, error) {
	if !r.Complete() {
		return TweetPayload{}, ErrNotFound
	}
	return TweetPayload{
		AuthorImage: r.Avatar,
		AuthorName:  r.ScreenName,
		Tweet:       r.Content,
		TweetID:     r.ID,
		Timestamp:   r.Timestamp,
	}, nil
}

// NewChatPayload builds the submission body. Incomplete records are refused.
func NewChatPayload(r ChatRecord) (ChatPayload, error) {
	if !r.Complete() {
		return ChatPayload{}, ErrNotFound
	}
	turns := make([]Turn, 0, len(r.Turns))
	for _, t := range r.Turns {
		if t.ID == "" || t.Content == "" {
			continue
		}
		turns = append(turns, t)
	}
	if len(turns) == 0 {
		return ChatPayload{}, ErrNotFound
	}
	return ChatPayload{ID: r.ID, Title: r.Title, Turns: turns}, nil
}

// NewReplyPayload builds the body sent to the reply endpoints.
func NewReplyPayload(r ReplyContext) (ReplyPayload, error) {
	if !r.Complete() {
		return ReplyPayload{}, ErrNotFound
	}
	return ReplyPayload{
		ID:      r.Tweet.ID,
		Content: r.Tweet.Content,
		Info:    r.Tweet.Engagement,
		Time:    r.Tweet.Timestamp,
	}, nil
}
