// Package client talks to the shortlinks HTTP API. Calls that need an account
// refresh an expired access token once and retry before giving up.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"
)

// ErrSessionExpired means the refresh token is gone too; the user has to sign in again.
var ErrSessionExpired = errors.New("session expired, sign in again")

const defaultTimeout = 10 * time.Second

type APIError struct {
	Message    string `json:"message"`
	StatusCode int    `json:"statusCode"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
}

type Tokens struct {
	AccessToken  string
	RefreshToken string
}

type User struct {
	CreatedAt time.Time `json:"createdAt"`
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Verified  bool      `json:"verified"`
}

type Session struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	User         User   `json:"user"`
}

type Verification struct {
	Email     string `json:"email"`
	ExpiresIn int    `json:"expiresIn"`
}

type URL struct {
	CreatedAt time.Time `json:"createdAt"`
	ID        string    `json:"id"`
	ShortCode string    `json:"shortCode"`
	LongURL   string    `json:"longUrl"`
	ShortURL  string    `json:"shortUrl"`
	Clicks    int64     `json:"clicks"`
}

type History struct {
	URLs       []URL `json:"urls"`
	TotalPages int   `json:"totalPages"`
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		c.http = h
	}
}

// WithTokens resumes a previously stored session.
func WithTokens(t Tokens) Option {
	return func(c *Client) {
		c.tokens = t
	}
}

type Client struct {
	http    *http.Client
	baseURL string
	tokens  Tokens
	mu      sync.Mutex
	// refreshMu keeps concurrent calls from spending the single-use refresh token twice.
	refreshMu sync.Mutex
}

func New(baseURL string, opts ...Option) *Client {
	jar, _ := cookiejar.New(nil)
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: defaultTimeout, Jar: jar},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Tokens() Tokens {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tokens
}

func (c *Client) setTokens(t Tokens) {
	c.mu.Lock()
	c.tokens = t
	c.mu.Unlock()
}

type envelope struct {
	Data       json.RawMessage `json:"data"`
	StatusCode int             `json:"statusCode"`
}

func (c *Client) send(ctx context.Context, method, path string, body []byte, bearer string) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("error building request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	res, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error calling %s %s: %w", method, path, err)
	}
	return res, nil
}

func decode(res *http.Response, out any) error {
	defer res.Body.Close()

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return fmt.Errorf("error reading response: %w", err)
	}
	if res.StatusCode >= http.StatusBadRequest {
		apiErr := &APIError{StatusCode: res.StatusCode}
		if err := json.Unmarshal(raw, apiErr); err != nil || apiErr.Message == "" {
			apiErr.Message = http.StatusText(res.StatusCode)
		}
		apiErr.StatusCode = res.StatusCode
		return apiErr
	}
	if out == nil {
		return nil
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("error decoding response: %w", err)
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("error decoding response data: %w", err)
	}
	return nil
}

func marshal(in any) ([]byte, error) {
	if in == nil {
		return nil, nil
	}
	body, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("error encoding request: %w", err)
	}
	return body, nil
}

// call makes an unauthenticated request.
func (c *Client) call(ctx context.Context, method, path string, in, out any) error {
	body, err := marshal(in)
	if err != nil {
		return err
	}
	res, err := c.send(ctx, method, path, body, "")
	if err != nil {
		return err
	}
	return decode(res, out)
}

// authCall sends the access token when there is one. A 401 triggers one
// refresh and one retry; a second 401 ends the session.
func (c *Client) authCall(ctx context.Context, method, path string, in, out any) error {
	body, err := marshal(in)
	if err != nil {
		return err
	}

	used := c.Tokens().AccessToken
	res, err := c.send(ctx, method, path, body, used)
	if err != nil {
		return err
	}
	if res.StatusCode != http.StatusUnauthorized {
		return decode(res, out)
	}
	_ = res.Body.Close()

	access, err := c.refresh(ctx, used)
	if err != nil {
		return err
	}

	res, err = c.send(ctx, method, path, body, access)
	if err != nil {
		return err
	}
	if res.StatusCode == http.StatusUnauthorized {
		_ = res.Body.Close()
		c.setTokens(Tokens{})
		return ErrSessionExpired
	}
	return decode(res, out)
}

// refresh rotates the token pair unless another call already did so after stale was used.
func (c *Client) refresh(ctx context.Context, stale string) (string, error) {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	current := c.Tokens()
	if current.AccessToken != "" && current.AccessToken != stale {
		return current.AccessToken, nil
	}
	if current.RefreshToken == "" {
		return "", ErrSessionExpired
	}

	res, err := c.send(ctx, http.MethodGet, "/auth/refresh", nil, current.RefreshToken)
	if err != nil {
		return "", err
	}
	var s Session
	if err := decode(res, &s); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized {
			c.setTokens(Tokens{})
			return "", ErrSessionExpired
		}
		return "", err
	}

	c.setTokens(Tokens{AccessToken: s.AccessToken, RefreshToken: s.RefreshToken})
	return s.AccessToken, nil
}

func (c *Client) startSession(s *Session) *Session {
	c.setTokens(Tokens{AccessToken: s.AccessToken, RefreshToken: s.RefreshToken})
	return s
}

func (c *Client) SignUp(ctx context.Context, name, email, password string) (*Verification, error) {
	var v Verification
	in := map[string]string{"name": name, "email": email, "password": password}
	if err := c.call(ctx, http.MethodPost, "/auth/signup", in, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

func (c *Client) SignIn(ctx context.Context, email, password string) (*Session, error) {
	var s Session
	in := map[string]string{"email": email, "password": password}
	if err := c.call(ctx, http.MethodPost, "/auth/signin", in, &s); err != nil {
		return nil, err
	}
	return c.startSession(&s), nil
}

func (c *Client) VerifyCode(ctx context.Context, email, code string) (*Session, error) {
	var s Session
	in := map[string]string{"email": email, "code": code}
	if err := c.call(ctx, http.MethodPost, "/auth/verifyCode", in, &s); err != nil {
		return nil, err
	}
	return c.startSession(&s), nil
}

func (c *Client) ResendCode(ctx context.Context, email string) (*Verification, error) {
	var v Verification
	if err := c.call(ctx, http.MethodPost, "/auth/verify", map[string]string{"email": email}, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// SignOut revokes the refresh token and forgets the session.
func (c *Client) SignOut(ctx context.Context) error {
	t := c.Tokens()
	c.setTokens(Tokens{})
	if t.RefreshToken == "" {
		return nil
	}
	res, err := c.send(ctx, http.MethodPost, "/auth/logout", nil, t.RefreshToken)
	if err != nil {
		return err
	}
	return decode(res, nil)
}

func (c *Client) CreateURL(ctx context.Context, longURL string) (*URL, error) {
	var u URL
	if err := c.authCall(ctx, http.MethodPost, "/url/create", map[string]string{"url": longURL}, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *Client) CreateAlias(ctx context.Context, longURL, alias string) (*URL, error) {
	var u URL
	in := map[string]string{"url": longURL, "customizedEndpoint": alias}
	if err := c.authCall(ctx, http.MethodPost, "/url/alias", in, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *Client) GetURL(ctx context.Context, shortCode string) (*URL, error) {
	var u URL
	if err := c.authCall(ctx, http.MethodGet, "/url/"+url.PathEscape(shortCode), nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *Client) History(ctx context.Context, page, pageSize int) (*History, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("pageSize", strconv.Itoa(pageSize))

	var h History
	if err := c.authCall(ctx, http.MethodGet, "/url/history?"+q.Encode(), nil, &h); err != nil {
		return nil, err
	}
	return &h, nil
}

// DeleteURL removes a link by id or short code.
func (c *Client) DeleteURL(ctx context.Context, ref string) error {
	return c.authCall(ctx, http.MethodDelete, "/url/"+url.PathEscape(ref), nil, nil)
}
