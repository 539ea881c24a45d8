// SoundCloud API v2 client
//
// [Client] owns the client-wide defaults (credentials, user agent, base query)
// and executes requests built from [Route] declarations.
package services

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/scarchive/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL   = "https://api-v2.soundcloud.com"
	DefaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/128.0.0.0 Safari/537.36"

	datadomeHeader = "x-datadome-clientid"
)

// ClientOpts contains configuration options for creating a Client.
type ClientOpts struct {
	BaseURL            string
	OAuthToken         string
	ClientID           string
	DatadomeClientID   string
	AppVersion         string
	AppLocale          string
	UserAgent          string
	RateLimit          float64      // Requests per second, 0 disables limiting
	HTTPClient         *http.Client // Takes precedence over Proxy and InsecureSkipVerify
	Proxy              string
	InsecureSkipVerify bool
	Logger             *log.Logger
}

// Client executes SoundCloud API requests.
type Client struct {
	baseURL    string
	token      *oauth2.Token
	headers    http.Header
	params     url.Values
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *log.Logger
}

// Response is the raw result of a request.
type Response struct {
	StatusCode int
	URL        string
	Header     http.Header
	Body       []byte
}

// NewClient creates a Client from opts, filling unset fields with defaults.
func NewClient(opts ClientOpts) (*Client, error) {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		transport, err := newTransport(opts.Proxy, opts.InsecureSkipVerify)
		if err != nil {
			return nil, err
		}
		httpClient = &http.Client{Transport: transport}
	}

	headers := http.Header{}
	headers.Set("User-Agent", opts.UserAgent)
	if opts.DatadomeClientID != "" {
		headers.Set(datadomeHeader, opts.DatadomeClientID)
	}

	params := url.Values{}
	for k, v := range map[string]string{
		"client_id":   opts.ClientID,
		"app_version": opts.AppVersion,
		"app_locale":  opts.AppLocale,
	} {
		if v != "" {
			params.Set(k, v)
		}
	}

	var token *oauth2.Token
	if opts.OAuthToken != "" {
		token = &oauth2.Token{AccessToken: opts.OAuthToken, TokenType: "OAuth"}
	}

	var limiter *rate.Limiter
	if opts.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	}

	return &Client{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		token:      token,
		headers:    headers,
		params:     params,
		httpClient: httpClient,
		limiter:    limiter,
		logger:     opts.Logger,
	}, nil
}

// NewClientFromConfig creates a Client from the soundcloud section of the application config.
func NewClientFromConfig(cfg shared.SoundCloudConfig, logger *log.Logger) (*Client, error) {
	return NewClient(ClientOpts{
		BaseURL:            cfg.BaseURL,
		OAuthToken:         cfg.OAuthToken,
		ClientID:           cfg.ClientID,
		DatadomeClientID:   cfg.DatadomeClientID,
		AppVersion:         cfg.AppVersion,
		AppLocale:          cfg.AppLocale,
		UserAgent:          cfg.UserAgent,
		RateLimit:          cfg.RateLimit,
		Proxy:              cfg.Proxy,
		InsecureSkipVerify: cfg.InsecureSkipVerify,
		Logger:             logger,
	})
}

func newTransport(proxy string, insecure bool) (*http.Transport, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if proxy != "" {
		if !strings.Contains(proxy, "://") {
			proxy = "http://" + proxy
		}
		proxyURL, err := url.Parse(proxy)
		if err != nil {
			return nil, fmt.Errorf("%w: proxy %q: %v", shared.ErrInvalidConfig, proxy, err)
		}
		transport.Proxy = http.ProxyURL(proxyURL)
	}
	if insecure {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}
	return transport, nil
}

// BaseURL returns the API root every route path is joined to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// MakeURL joins the base URL with a formatted route path.
func (c *Client) MakeURL(path string) string {
	return c.baseURL + "/" + strings.TrimLeft(path, "/")
}

// Do splits args against r, sends the request and reads the whole response.
//
// Transport failures are returned wrapped in [shared.ErrAPIRequest]; the status
// code is not inspected here.
func (c *Client) Do(ctx context.Context, r Route, args Args) (*Response, error) {
	split, err := SplitParams(r, c.params, args)
	if err != nil {
		return nil, err
	}

	reqURL := c.MakeURL(split.Path)
	if encoded := split.Query.Encode(); encoded != "" {
		reqURL += "?" + encoded
	}

	var body io.Reader
	if split.Content != nil {
		body = bytes.NewReader(split.Content)
	}

	req, err := http.NewRequestWithContext(ctx, r.Method, reqURL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	c.applyHeaders(req, split.Header, split.Content != nil)

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", shared.ErrAPIRequest, r.Name, err)
		}
	}

	c.logger.Info("Making request", "method", r.Method, "url", c.MakeURL(split.Path))
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %v", shared.ErrAPIRequest, r.Method, r.Name, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %v", shared.ErrAPIRequest, err)
	}

	c.logger.Info("Response "+strconv.Itoa(resp.StatusCode), "method", r.Method, "url", c.MakeURL(split.Path))

	return &Response{
		StatusCode: resp.StatusCode,
		URL:        reqURL,
		Header:     resp.Header,
		Body:       data,
	}, nil
}

// applyHeaders copies the caller's headers onto req and fills the gaps with client defaults.
func (c *Client) applyHeaders(req *http.Request, caller http.Header, hasBody bool) {
	for k, vs := range caller {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	for k, vs := range c.headers {
		if req.Header.Get(k) == "" {
			req.Header[k] = append([]string(nil), vs...)
		}
	}
	if c.token != nil && req.Header.Get("Authorization") == "" {
		c.token.SetAuthHeader(req)
	}
	if hasBody && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}
}

func (r *Response) checkStatus(route Route) error {
	if r.StatusCode < 200 || r.StatusCode >= 300 {
		return fmt.Errorf("%w: %s: status %d", shared.ErrAPIRequest, route.Name, r.StatusCode)
	}
	return nil
}
