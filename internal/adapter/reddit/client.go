package reddit

import (
	"context"
	"fmt"
	"net/http/cookiejar"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/user/snapbot/internal/repository"
)

var (
	_ repository.LinkSource  = (*Client)(nil)
	_ repository.CommentSink = (*Client)(nil)
)

// linkType prefixes a link id to form its reply target on reddit.com.
const linkType = "t3_"

// Options configures the site client. An empty Username yields an
// unauthenticated client that can search but not comment.
type Options struct {
	BaseURL   string
	Username  string
	Password  string
	UserAgent string
	Proxy     string
	Timeout   time.Duration
}

// Client talks to the link aggregation site over a cookie session.
type Client struct {
	http     *resty.Client
	baseURL  string
	username string
	password string
	loggedIn bool
	logger   *zap.Logger
}

// NewClient builds the client and attempts to log in once. A failed login is
// logged and leaves the client unauthenticated; posting then fails at use time.
func NewClient(ctx context.Context, opts Options, logger *zap.Logger) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}

	client := resty.New()
	client.SetBaseURL(strings.TrimRight(opts.BaseURL, "/"))
	client.SetCookieJar(jar)
	client.SetTimeout(opts.Timeout)
	if opts.UserAgent != "" {
		client.SetHeader("User-Agent", opts.UserAgent)
	}
	if opts.Proxy != "" {
		client.SetProxy(opts.Proxy)
	}

	c := &Client{
		http:     client,
		baseURL:  strings.TrimRight(opts.BaseURL, "/"),
		username: opts.Username,
		password: opts.Password,
		logger:   logger,
	}

	if c.username != "" {
		if ok, err := c.Login(ctx); err != nil {
			logger.Warn("login failed, continuing unauthenticated", zap.String("username", c.username), zap.Error(err))
		} else if !ok {
			logger.Warn("login rejected, continuing unauthenticated", zap.String("username", c.username))
		}
	}
	return c, nil
}

// BaseURL returns the site root used to build comment pages.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// LoggedIn reports whether the last login attempt succeeded.
func (c *Client) LoggedIn() bool {
	return c.loggedIn
}

// Login posts the credentials. The site answers 200 either way, so success
// is read from the page body.
func (c *Client) Login(ctx context.Context) (bool, error) {
	if c.username == "" {
		c.loggedIn = false
		return false, nil
	}
	if c.loggedIn {
		return true, nil
	}

	res, err := c.http.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"op":     "login-main",
			"user":   c.username,
			"passwd": c.password,
		}).
		Post("/post/login")
	if err != nil {
		return false, fmt.Errorf("failed to post login: %w", err)
	}
	if res.IsError() {
		return false, fmt.Errorf("login returned status %d", res.StatusCode())
	}

	c.loggedIn = strings.Contains(res.String(), fmt.Sprintf("logged: '%s'", c.username))
	if c.loggedIn {
		c.logger.Info("logged in", zap.String("username", c.username))
	}
	return c.loggedIn, nil
}
