package session

import (
	"context"
	"fmt"
	"time"

	"datahunter/internal/adapters/cache"
	"datahunter/internal/collector/extract"
	"datahunter/internal/collector/widget"
	"datahunter/internal/domain"
)

// ReplyCheck remembers the data hub's reply availability verdict per tweet.
type ReplyCheck struct {
	cache *cache.MemoryCache[availability]
}

type availability struct {
	ok  bool
	msg string
}

// NewReplyCheck caches verdicts for ttl.
func NewReplyCheck(ttl time.Duration) *ReplyCheck {
	return &ReplyCheck{cache: cache.NewMemoryCache[availability](ttl)}
}

// Close stops the cache cleanup.
func (c *ReplyCheck) Close() {
	c.cache.Close()
}

// check asks the hub unless a verdict for the tweet is cached. Failed calls
// are not cached.
func (c *ReplyCheck) check(ctx context.Context, hub Hub, rc domain.ReplyContext, p domain.ReplyPayload) (bool, string, error) {
	key := ""
	if c != nil && rc.Tweet.ID != "" {
		key = cache.NormalizedKey(rc.Tweet.ScreenName, rc.Tweet.ID)
		if a, ok := c.cache.Get(key); ok {
			return a.ok, a.msg, nil
		}
	}

	ok, msg, err := hub.CheckReply(ctx, p)
	if err != nil {
		return false, "", err
	}
	if key != "" {
		c.cache.Set(key, availability{ok: ok, msg: msg})
	}
	return ok, msg, nil
}

func (s *Session) base() (widget.Accounts, widget.Navigator, widget.Links) {
	var acc widget.Accounts
	if s.opts.Accounts != nil {
		acc = s.opts.Accounts
	}
	return acc, s.opts.Navigator, s.opts.Links
}

func (s *Session) newChat(id string) widget.Controller {
	acc, nav, links := s.base()
	target := extract.ChatTarget{Selectors: s.opts.Selectors}
	mode := s.opts.Chat

	return widget.New(s.ctx, widget.Config[domain.ChatRecord]{
		Kind:  domain.TargetChat,
		Bound: id,
		Extract: func(ctx context.Context) (domain.ChatRecord, error) {
			return extract.Run[domain.ChatRecord](ctx, mode.Strategy, s.tab, target, mode.Policy)
		},
		Complete: domain.ChatRecord.Complete,
		Subject:  func(r domain.ChatRecord) string { return r.ID },
		Info: func(r domain.ChatRecord) domain.PageInfo {
			return domain.PageInfo{ID: r.ID, Count: len(r.Turns), Title: r.Title}
		},
		Submit: func(ctx context.Context, r domain.ChatRecord) (domain.SubmitResult, error) {
			p, err := domain.NewChatPayload(r)
			if err != nil {
				return domain.SubmitResult{}, err
			}
			return s.opts.Hub.SubmitChat(ctx, p)
		},
		Accounts:  acc,
		Navigator: nav,
		Links:     links,
	})
}

func (s *Session) newTweet(id string) widget.Controller {
	acc, nav, links := s.base()
	target := extract.TweetTarget{Selectors: s.opts.Selectors}
	mode := s.opts.Tweet

	return widget.New(s.ctx, widget.Config[domain.TweetRecord]{
		Kind:  domain.TargetTweet,
		Bound: id,
		Extract: func(ctx context.Context) (domain.TweetRecord, error) {
			return extract.Run[domain.TweetRecord](ctx, mode.Strategy, s.tab, target, mode.Policy)
		},
		Complete: domain.TweetRecord.Complete,
		Subject:  func(r domain.TweetRecord) string { return r.ID },
		Info: func(r domain.TweetRecord) domain.PageInfo {
			return domain.PageInfo{ID: r.ID}
		},
		Submit: func(ctx context.Context, r domain.TweetRecord) (domain.SubmitResult, error) {
			p, err := domain.NewTweetPayload(r)
			if err != nil {
				return domain.SubmitResult{}, err
			}
			return s.opts.Hub.SubmitTweet(ctx, p)
		},
		Accounts:  acc,
		Navigator: nav,
		Links:     links,
	})
}

// newReply builds the widget that generates a promotional reply for the tweet
// an open composer answers.
func (s *Session) newReply(key string) widget.Controller {
	acc, nav, links := s.base()
	target := extract.ReplyTarget{Selectors: s.opts.Selectors}
	mode := s.opts.Reply

	return widget.New(s.ctx, widget.Config[domain.ReplyContext]{
		Kind:  domain.TargetReply,
		Bound: key,
		Extract: func(ctx context.Context) (domain.ReplyContext, error) {
			rc, err := extract.Run[domain.ReplyContext](ctx, mode.Strategy, s.tab, target, mode.Policy)
			if err != nil {
				return rc, err
			}
			p, err := domain.NewReplyPayload(rc)
			if err != nil {
				return rc, err
			}
			ok, msg, err := s.opts.ReplyCheck.check(ctx, s.opts.Hub, rc, p)
			if err != nil {
				return rc, fmt.Errorf("check reply: %w", err)
			}
			if !ok {
				if msg == "" {
					msg = "failed"
				}
				return rc, &domain.LimitedError{Msg: msg}
			}
			return rc, nil
		},
		Complete: domain.ReplyContext.Complete,
		Info: func(r domain.ReplyContext) domain.PageInfo {
			return domain.PageInfo{ID: r.Tweet.ID}
		},
		Submit: func(ctx context.Context, rc domain.ReplyContext) (domain.SubmitResult, error) {
			s.send(MsgOpenKeepalive)
			p, err := domain.NewReplyPayload(rc)
			if err != nil {
				return domain.SubmitResult{}, err
			}
			promotion, err := s.opts.Hub.GenerateReply(ctx, p)
			if err != nil {
				return domain.SubmitResult{}, fmt.Errorf("generate reply: %w", err)
			}
			promotion = domain.TruncateTweet(promotion, domain.MaxTweetLength)
			if err := s.tab.InsertText(ctx, s.opts.Selectors.Selectors().Reply.Box, promotion); err != nil {
				return domain.SubmitResult{}, fmt.Errorf("%w: %v", domain.ErrAbnormalEnvironment, err)
			}
			return domain.SubmitResult{Promotion: promotion}, nil
		},
		Accounts:            acc,
		Navigator:           nav,
		Links:               links,
		CollectNeedsAccount: true,
	})
}
