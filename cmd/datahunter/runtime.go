package main

import (
	"context"
	"fmt"
	"io"

	"datahunter/internal/adapters/authstore"
	"datahunter/internal/adapters/background"
	"datahunter/internal/adapters/browser"
	"datahunter/internal/adapters/datahub"
	"datahunter/internal/adapters/navigator"
	"datahunter/internal/collector/extract"
	"datahunter/internal/collector/session"
	"datahunter/internal/collector/widget"
	"datahunter/internal/config"
	"datahunter/pkg/log"
	"datahunter/pkg/log/transporters"
)

// runtime holds the long-lived adapters shared by every command.
type runtime struct {
	cfg        *config.Config
	logger     *log.Logger
	store      *authstore.Store
	hub        *datahub.Client
	coord      *background.Coordinator
	selectors  *config.SelectorFile
	pool       *browser.Pool
	replyCheck *session.ReplyCheck
}

// setup loads the configuration and opens every adapter. Logs go to logOut.
func setup(logOut io.Writer) (*runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	r := &runtime{cfg: cfg}
	r.logger = log.New(cfg.LogLevel, transporters.NewStdoutWithWriter(logOut))
	log.SetDefault(r.logger)

	ok := false
	defer func() {
		if !ok {
			r.close()
		}
	}()

	if r.store, err = authstore.Open(cfg.StorePath); err != nil {
		return nil, err
	}
	r.hub = datahub.New(cfg.DatahubBaseURL, r.store)
	r.coord = background.NewCoordinator(r.hub, r.store)

	if r.selectors, err = config.LoadSelectors(cfg.SelectorsPath, config.DefaultReloadInterval); err != nil {
		return nil, fmt.Errorf("load selectors: %w", err)
	}

	r.pool, err = browser.NewPool(browser.Options{
		ExecPath:  cfg.ChromePath,
		RemoteURL: cfg.ChromeRemoteURL,
		Headless:  cfg.Headless,
		MaxTabs:   max(browser.DefaultMaxTabs, len(cfg.WatchURLs)+1),
	})
	if err != nil {
		return nil, fmt.Errorf("start browser: %w", err)
	}

	r.replyCheck = session.NewReplyCheck(cfg.ReplyCacheTTL)
	ok = true
	return r, nil
}

// sessionOptions wires a session to the shared adapters.
func (r *runtime) sessionOptions() session.Options {
	opts := session.DefaultOptions()
	opts.Selectors = r.selectors
	opts.Hub = r.hub
	opts.Accounts = r.store
	opts.Sender = r.coord
	opts.Navigator = navigator.System{}
	opts.Links = widget.Links(navigator.NewLinks(r.cfg.DatahubBaseURL))
	opts.ReplyCheck = r.replyCheck

	opts.Tweet.Policy = extract.Policy{Interval: r.cfg.TweetPollInterval, MaxAttempts: r.cfg.PollMaxAttempts}
	opts.Chat.Policy = extract.Policy{Interval: r.cfg.ChatPollInterval, MaxAttempts: r.cfg.PollMaxAttempts}
	opts.Reply.Policy = extract.Policy{Interval: r.cfg.TweetPollInterval, MaxAttempts: r.cfg.PollMaxAttempts}
	return opts
}

// open opens url in a new tab and returns a session over it.
func (r *runtime) open(ctx context.Context, url string) (*session.Session, *browser.Tab, error) {
	tab, err := r.pool.Open(ctx, url)
	if err != nil {
		return nil, nil, err
	}
	return session.New(ctx, tab, r.sessionOptions()), tab, nil
}

func (r *runtime) close() {
	if r.replyCheck != nil {
		r.replyCheck.Close()
	}
	if r.pool != nil {
		r.pool.Close()
	}
	if r.selectors != nil {
		r.selectors.Close()
	}
	if r.store != nil {
		if err := r.store.Close(); err != nil {
			log.GlobalWarn("closing store failed", "error", err)
		}
	}
	if r.logger != nil {
		r.logger.Close()
	}
}
