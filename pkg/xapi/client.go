// Package xapi is a minimal X API v2 client covering what a publishing
// run needs: create posts, chain replies into threads, and read public
// engagement metrics.
package xapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/dghubble/oauth1"
	"github.com/failsafe-go/failsafe-go"

	"crier/pkg/clients"
)

// DefaultBaseURL is the production X API host.
const DefaultBaseURL = "https://api.x.com"

// Credentials carry the OAuth 1.0a user context used to sign requests.
type Credentials struct {
	APIKey       string
	APISecret    string
	AccessToken  string
	AccessSecret string
}

// APIError is the decoded X API v2 error envelope.
type APIError struct {
	StatusCode int
	Title      string
	Detail     string
}

func (e *APIError) Error() string {
	if e.Title != "" {
		return fmt.Sprintf("x api returned status %d: %s", e.StatusCode, e.Title)
	}
	return fmt.Sprintf("x api returned status %d", e.StatusCode)
}

// IsRateLimit reports whether the error was a 429.
func (e *APIError) IsRateLimit() bool {
	return e.StatusCode == http.StatusTooManyRequests
}

// Engagement holds the public metrics of a single post.
type Engagement struct {
	Likes       int
	Retweets    int
	Replies     int
	Impressions int
}

// User identifies the authenticated account.
type User struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Username string `json:"username"`
}

type Client struct {
	baseURL      string
	client       *http.Client
	httpExecutor failsafe.Executor[*http.Response]
	shouldRetry  func(resp *http.Response, err error) bool
}

type Option func(*Client)

// NewClient builds a signing client for the given credentials. All requests
// run through a failsafe executor that retries network errors, 5xx, and 429
// responses with backoff.
func NewClient(creds Credentials, opts ...Option) *Client {
	defaultConfig := clients.DefaultHTTPExecutorConfig()
	c := &Client{
		baseURL:      DefaultBaseURL,
		client:       newSigningClient(creds),
		httpExecutor: clients.NewHTTPExecutor(defaultConfig),
		shouldRetry:  defaultConfig.ShouldRetry,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func newSigningClient(creds Credentials) *http.Client {
	oauthConfig := oauth1.NewConfig(creds.APIKey, creds.APISecret)
	token := oauth1.NewToken(creds.AccessToken, creds.AccessSecret)
	base := &http.Client{Transport: clients.DefaultTransport()}
	ctx := context.WithValue(oauth1.NoContext, oauth1.HTTPClient, base)
	signing := oauthConfig.Client(ctx, token)
	signing.Timeout = 15 * time.Second
	return signing
}

func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if baseURL != "" {
			c.baseURL = baseURL
		}
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.client = httpClient
		}
	}
}

func WithHTTPExecutorConfig(cfg clients.HTTPExecutorConfig) Option {
	return func(c *Client) {
		c.httpExecutor = clients.NewHTTPExecutor(cfg)
		c.shouldRetry = cfg.ShouldRetry
	}
}

func (c *Client) doRequest(ctx context.Context, build func(ctx context.Context) (*http.Request, error)) (*http.Response, error) {
	if c.httpExecutor == nil {
		req, err := build(ctx)
		if err != nil {
			return nil, err
		}
		return c.client.Do(req)
	}

	return clients.ExecuteHTTP(ctx, c.httpExecutor, func() (*http.Response, error) {
		req, err := build(ctx)
		if err != nil {
			return nil, err
		}
		resp, err := c.client.Do(req)
		if c.shouldRetry != nil && c.shouldRetry(resp, err) {
			if resp != nil && resp.Body != nil {
				_ = resp.Body.Close()
			}
		}
		return resp, err
	})
}

type tweetRequest struct {
	Text  string      `json:"text"`
	Reply *tweetReply `json:"reply,omitempty"`
}

type tweetReply struct {
	InReplyToTweetID string `json:"in_reply_to_tweet_id"`
}

// CreatePost publishes a standalone post and returns its ID.
func (c *Client) CreatePost(ctx context.Context, text string) (string, error) {
	return c.createTweet(ctx, tweetRequest{Text: text})
}

// CreateReply publishes a post in reply to inReplyToID and returns its ID.
// Chaining replies to the immediately preceding ID produces a thread.
func (c *Client) CreateReply(ctx context.Context, text, inReplyToID string) (string, error) {
	return c.createTweet(ctx, tweetRequest{
		Text:  text,
		Reply: &tweetReply{InReplyToTweetID: inReplyToID},
	})
}

func (c *Client) createTweet(ctx context.Context, body tweetRequest) (string, error) {
	reqURL := fmt.Sprintf("%s/2/tweets", c.baseURL)

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return "", err
	}

	resp, err := c.doRequest(ctx, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, "POST", reqURL, bytes.NewBuffer(jsonBody))
		if err != nil {
			return nil, err
		}

		req.Header.Set("Content-Type", "application/json")
		return req, nil
	})
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		return "", decodeAPIError(resp)
	}

	var result struct {
		Data struct {
			ID   string `json:"id"`
			Text string `json:"text"`
		} `json:"data"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if result.Data.ID == "" {
		return "", fmt.Errorf("response carried no post id")
	}

	return result.Data.ID, nil
}

// GetEngagement fetches the public metrics for a post.
func (c *Client) GetEngagement(ctx context.Context, postID string) (Engagement, error) {
	reqURL := fmt.Sprintf("%s/2/tweets/%s?tweet.fields=public_metrics", c.baseURL, url.PathEscape(postID))

	resp, err := c.doRequest(ctx, func(ctx context.Context) (*http.Request, error) {
		return http.NewRequestWithContext(ctx, "GET", reqURL, nil)
	})
	if err != nil {
		return Engagement{}, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		return Engagement{}, decodeAPIError(resp)
	}

	var result struct {
		Data struct {
			PublicMetrics struct {
				RetweetCount    int `json:"retweet_count"`
				ReplyCount      int `json:"reply_count"`
				LikeCount       int `json:"like_count"`
				ImpressionCount int `json:"impression_count"`
			} `json:"public_metrics"`
		} `json:"data"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return Engagement{}, fmt.Errorf("failed to decode response: %w", err)
	}

	m := result.Data.PublicMetrics
	return Engagement{
		Likes:       m.LikeCount,
		Retweets:    m.RetweetCount,
		Replies:     m.ReplyCount,
		Impressions: m.ImpressionCount,
	}, nil
}

// Me returns the authenticated account. Used by preflight to verify
// credentials actually work before a live run.
func (c *Client) Me(ctx context.Context) (User, error) {
	reqURL := fmt.Sprintf("%s/2/users/me", c.baseURL)

	resp, err := c.doRequest(ctx, func(ctx context.Context) (*http.Request, error) {
		return http.NewRequestWithContext(ctx, "GET", reqURL, nil)
	})
	if err != nil {
		return User{}, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		return User{}, decodeAPIError(resp)
	}

	var result struct {
		Data User `json:"data"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return User{}, fmt.Errorf("failed to decode response: %w", err)
	}

	return result.Data, nil
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}

	var envelope struct {
		Title  string `json:"title"`
		Detail string `json:"detail"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err == nil {
		apiErr.Title = envelope.Title
		apiErr.Detail = envelope.Detail
	}

	return apiErr
}
