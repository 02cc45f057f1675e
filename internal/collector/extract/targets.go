package extract

import (
	"datahunter/internal/collector/locate"
	"datahunter/internal/domain"
)

// TweetTarget extracts the tweet a status page is about. It is complete once
// the author handle and the text are known.
type TweetTarget struct {
	Selectors locate.Provider
}

func (t TweetTarget) Locate(s *locate.Snapshot) (domain.TweetRecord, bool) {
	return locate.LocateTweet(s, t.Selectors.Selectors())
}

func (t TweetTarget) Subject(s *locate.Snapshot) domain.ExtractionTarget {
	return domain.TweetRecord{ID: locate.TweetID(s.URL)}.Target(s.URL)
}

func (t TweetTarget) Busy(*locate.Snapshot) bool { return false }

func (t TweetTarget) Merge(acc, partial domain.TweetRecord) domain.TweetRecord {
	return domain.MergeTweet(acc, partial)
}

func (t TweetTarget) Complete(acc domain.TweetRecord) bool {
	return acc.ScreenName != "" && acc.Content != ""
}

func (t TweetTarget) Finalize(_ *locate.Snapshot, acc domain.TweetRecord) (domain.TweetRecord, error) {
	return acc, nil
}

// ChatTarget extracts a conversation. Nothing is merged while the assistant
// is still streaming.
type ChatTarget struct {
	Selectors locate.Provider
}

func (t ChatTarget) Locate(s *locate.Snapshot) (domain.ChatRecord, bool) {
	return locate.LocateChat(s, t.Selectors.Selectors())
}

func (t ChatTarget) Subject(s *locate.Snapshot) domain.ExtractionTarget {
	return domain.ChatRecord{ID: locate.ChatID(s.URL), Title: s.Title}.Target()
}

func (t ChatTarget) Busy(s *locate.Snapshot) bool {
	return locate.ChatBusy(s, t.Selectors.Selectors())
}

func (t ChatTarget) Merge(acc, partial domain.ChatRecord) domain.ChatRecord {
	return domain.MergeChat(acc, partial)
}

func (t ChatTarget) Complete(acc domain.ChatRecord) bool {
	return len(acc.Turns) > 0
}

func (t ChatTarget) Finalize(_ *locate.Snapshot, acc domain.ChatRecord) (domain.ChatRecord, error) {
	return acc, nil
}

// ReplyTarget extracts the tweet an inline reply composer answers. A complete
// context without a usable reply box is an abnormal environment.
type ReplyTarget struct {
	Selectors locate.Provider
}

func (t ReplyTarget) Locate(s *locate.Snapshot) (domain.ReplyContext, bool) {
	return locate.LocateReply(s, t.Selectors.Selectors())
}

// Subject follows the status id of the URL. Timeline dialogs have none, so
// their composer keeps one subject until it closes.
func (t ReplyTarget) Subject(s *locate.Snapshot) domain.ExtractionTarget {
	return domain.ReplyContext{Tweet: domain.TweetRecord{ID: locate.TweetID(s.URL)}}.Target(s.URL)
}

func (t ReplyTarget) Busy(*locate.Snapshot) bool { return false }

func (t ReplyTarget) Merge(acc, partial domain.ReplyContext) domain.ReplyContext {
	return domain.MergeReply(acc, partial)
}

func (t ReplyTarget) Complete(acc domain.ReplyContext) bool {
	return acc.Tweet.ScreenName != "" && acc.Tweet.Content != ""
}

func (t ReplyTarget) Finalize(s *locate.Snapshot, acc domain.ReplyContext) (domain.ReplyContext, error) {
	if s != nil {
		// the composer is re-checked on the final snapshot, not taken from
		// an earlier pass
		fresh, _ := locate.LocateReply(s, t.Selectors.Selectors())
		acc.BoxReady = fresh.BoxReady
	}
	if !acc.BoxReady {
		return acc, domain.ErrAbnormalEnvironment
	}
	return acc, nil
}
