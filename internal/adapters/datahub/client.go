// Package datahub is the HTTP client of the data hub API.
package datahub

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"datahunter/internal/domain"
	"datahunter/pkg/log"
)

// DefaultTimeout bounds every call.
const DefaultTimeout = 5 * time.Minute

// API paths.
const (
	pathSelf       = "api/data_hunter/self"
	pathTweet      = "api/data_hunter/tweet"
	pathChat       = "api/data_hunter/chat"
	pathEvent      = "api/data_hunter/event"
	pathPromotion  = "api/data_hunter/promotion/text"
	pathCheckReply = "api/data_hunter/promotion/check_reply"
	pathBlacklist  = "api/data_hunter/twitter/blacklist"
)

// Credentials supplies the bearer token and forgets it when the hub refuses it.
type Credentials interface {
	Access(ctx context.Context) string
	ClearTokens(ctx context.Context) error
}

// Client talks to the data hub.
type Client struct {
	http  *resty.Client
	creds Credentials
}

// Option customizes a Client.
type Option func(*resty.Client)

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(c *resty.Client) { c.SetTimeout(d) }
}

// New creates a client for the hub at baseURL.
func New(baseURL string, creds Credentials, opts ...Option) *Client {
	client := resty.New()
	client.SetBaseURL(baseURL)
	client.SetTimeout(DefaultTimeout)
	client.SetRetryCount(0)
	client.SetHeader("Content-Type", "application/json")
	client.SetHeader("Accept", "application/json")
	for _, opt := range opts {
		opt(client)
	}
	return &Client{http: client, creds: creds}
}

type envelope struct {
	Code int             `json:"code"`
	Data json.RawMessage `json:"data"`
	Msg  string          `json:"msg"`
}

// do sends one request and unwraps the envelope into out. It returns the
// envelope message.
func (c *Client) do(ctx context.Context, method, path string, body, out any) (string, error) {
	req := c.http.R().SetContext(ctx)
	if c.creds != nil {
		if access := c.creds.Access(ctx); access != "" {
			req.SetAuthToken(access)
		}
	}
	if body != nil {
		req.SetBody(body)
	}

	res, err := req.Execute(method, path)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		return "", &domain.NetworkError{Err: err}
	}

	if res.StatusCode() == http.StatusUnauthorized {
		c.forget(ctx)
		return "", &domain.AuthError{Code: http.StatusUnauthorized, Msg: messageOf(res.Body())}
	}

	var env envelope
	if err := json.Unmarshal(res.Body(), &env); err != nil {
		return "", fmt.Errorf("unexpected token in %s response (status %d): %w", path, res.StatusCode(), err)
	}
	if env.Code == http.StatusUnauthorized {
		c.forget(ctx)
		return "", &domain.AuthError{Code: env.Code, Msg: env.Msg}
	}
	if env.Code != http.StatusOK {
		msg := env.Msg
		if msg == "" {
			msg = "failed"
		}
		return "", &domain.ServerError{Code: env.Code, Msg: msg}
	}

	if out != nil && len(env.Data) > 0 && !bytes.Equal(env.Data, []byte("null")) {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return "", fmt.Errorf("unexpected token in %s data: %w", path, err)
		}
	}
	return env.Msg, nil
}

func (c *Client) forget(ctx context.Context) {
	if c.creds == nil {
		return
	}
	if err := c.creds.ClearTokens(ctx); err != nil {
		log.GlobalErrorCtx(ctx, "failed to clear rejected credentials", "error", err)
	}
}

func messageOf(body []byte) string {
	var env envelope
	if json.Unmarshal(body, &env) == nil && env.Msg != "" {
		return env.Msg
	}
	return http.StatusText(http.StatusUnauthorized)
}

// Self returns the account bound to the stored token.
func (c *Client) Self(ctx context.Context) (domain.UserInfo, error) {
	var info domain.UserInfo
	_, err := c.do(ctx, http.MethodGet, pathSelf, nil, &info)
	return info, err
}

// SubmitTweet uploads a tweet.
func (c *Client) SubmitTweet(ctx context.Context, p domain.TweetPayload) (domain.SubmitResult, error) {
	var out struct {
		DatasetID string `json:"dataset_id"`
	}
	if _, err := c.do(ctx, http.MethodPost, pathTweet, p, &out); err != nil {
		return domain.SubmitResult{}, err
	}
	return domain.SubmitResult{DatasetID: out.DatasetID}, nil
}

// SubmitChat uploads a conversation.
func (c *Client) SubmitChat(ctx context.Context, p domain.ChatPayload) (domain.SubmitResult, error) {
	var out struct {
		Reward float64 `json:"reward"`
	}
	if _, err := c.do(ctx, http.MethodPost, pathChat, p, &out); err != nil {
		return domain.SubmitResult{}, err
	}
	return domain.SubmitResult{Reward: out.Reward}, nil
}

// SendEvent pings the hub to keep the session active.
func (c *Client) SendEvent(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodPost, pathEvent, nil, nil)
	return err
}

// GenerateReply asks for the promotional reply to a tweet.
func (c *Client) GenerateReply(ctx context.Context, p domain.ReplyPayload) (string, error) {
	var out struct {
		Promotion string `json:"promotion"`
	}
	if _, err := c.do(ctx, http.MethodPost, pathPromotion, p, &out); err != nil {
		return "", err
	}
	return out.Promotion, nil
}

// CheckReply reports whether a reply may be generated for a tweet. A refusal
// comes with the hub's explanation.
func (c *Client) CheckReply(ctx context.Context, p domain.ReplyPayload) (bool, string, error) {
	var out struct {
		Result *bool  `json:"result"`
		Msg    string `json:"msg"`
	}
	envMsg, err := c.do(ctx, http.MethodPost, pathCheckReply, p, &out)
	if err != nil {
		return false, "", err
	}
	msg := out.Msg
	if msg == "" {
		msg = envMsg
	}
	return out.Result == nil || *out.Result, msg, nil
}

// Blacklist returns the author handles replies must skip.
func (c *Client) Blacklist(ctx context.Context) ([]string, error) {
	var out struct {
		Blacklist []string `json:"blacklist"`
	}
	if _, err := c.do(ctx, http.MethodGet, pathBlacklist, nil, &out); err != nil {
		return nil, err
	}
	return out.Blacklist, nil
}
