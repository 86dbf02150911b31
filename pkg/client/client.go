package client

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

var (
	// ErrNotFound is matched by errors returned for 404 responses.
	ErrNotFound = errors.New("not found")
	// ErrUnauthorized is matched by errors returned for 401 responses.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrConflict is matched by errors returned for 409 responses.
	ErrConflict = errors.New("conflict")
)

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server error %d: %s", e.StatusCode, e.Message)
}

// Unwrap maps well-known status codes onto the package sentinels.
func (e *APIError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusConflict:
		return ErrConflict
	}
	return nil
}

// Client talks to a custodyd server.
type Client struct {
	base       string
	httpClient *http.Client
	dialer     *websocket.Dialer

	mu          sync.Mutex
	bearerToken string
}

// Option is a functional option for configuring a Client.
type Option func(*Client) error

// WithHTTPClient sets a custom http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) error {
		c.httpClient = hc
		return nil
	}
}

// WithBearerToken attaches a pre-obtained operator token to every request.
func WithBearerToken(token string) Option {
	return func(c *Client) error {
		c.bearerToken = token
		return nil
	}
}

// WithDialer sets the websocket dialer used by Watch.
func WithDialer(d *websocket.Dialer) Option {
	return func(c *Client) error {
		c.dialer = d
		return nil
	}
}

// New creates a Client for the server at base, e.g. "http://localhost:8080".
func New(base string, opts ...Option) (*Client, error) {
	u, err := url.Parse(base)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("invalid server URL %q", base)
	}
	c := &Client{
		base:       strings.TrimRight(base, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
		dialer:     websocket.DefaultDialer,
	}
	for _, o := range opts {
		if err := o(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Login exchanges operator credentials for a token and uses it for every
// subsequent request.
func (c *Client) Login(ctx context.Context, operator, password string) (*Token, error) {
	var tok Token
	if err := c.call(ctx, http.MethodPost, "/auth/token", map[string]string{
		"operator": operator,
		"password": password,
	}, &tok); err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	c.mu.Lock()
	c.bearerToken = tok.Token
	c.mu.Unlock()
	return &tok, nil
}

// Register creates an evidence record.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*RegisterResult, error) {
	var res RegisterResult
	if err := c.call(ctx, http.MethodPost, "/evidence", map[string]string{
		"id":        req.ID,
		"content":   base64.StdEncoding.EncodeToString(req.Content),
		"encoding":  "base64",
		"custodian": req.Custodian,
	}, &res); err != nil {
		return nil, fmt.Errorf("register %s: %w", req.ID, err)
	}
	return &res, nil
}

// Transfer hands an item to custodian.
func (c *Client) Transfer(ctx context.Context, id, custodian string) (*TransferResult, error) {
	var res TransferResult
	if err := c.call(ctx, http.MethodPost, "/evidence/"+url.PathEscape(id)+"/transfer",
		map[string]string{"custodian": custodian}, &res); err != nil {
		return nil, fmt.Errorf("transfer %s: %w", id, err)
	}
	return &res, nil
}

// ListEvidence returns every item in registration order.
func (c *Client) ListEvidence(ctx context.Context) ([]Evidence, error) {
	var resp struct {
		Evidence []Evidence `json:"evidence"`
	}
	if err := c.call(ctx, http.MethodGet, "/evidence", nil, &resp); err != nil {
		return nil, fmt.Errorf("list evidence: %w", err)
	}
	return resp.Evidence, nil
}

// GetEvidence returns one item.
func (c *Client) GetEvidence(ctx context.Context, id string) (*Evidence, error) {
	var e Evidence
	if err := c.call(ctx, http.MethodGet, "/evidence/"+url.PathEscape(id), nil, &e); err != nil {
		return nil, fmt.Errorf("get %s: %w", id, err)
	}
	return &e, nil
}

// History returns the custody history of id.
func (c *Client) History(ctx context.Context, id string) ([]CustodyEvent, error) {
	var resp struct {
		History []CustodyEvent `json:"history"`
	}
	if err := c.call(ctx, http.MethodGet, "/evidence/"+url.PathEscape(id)+"/history", nil, &resp); err != nil {
		return nil, fmt.Errorf("history %s: %w", id, err)
	}
	return resp.History, nil
}

// Roles returns the accepted custodian roles.
func (c *Client) Roles(ctx context.Context) ([]string, error) {
	var resp struct {
		Roles []string `json:"roles"`
	}
	if err := c.call(ctx, http.MethodGet, "/roles", nil, &resp); err != nil {
		return nil, fmt.Errorf("roles: %w", err)
	}
	return resp.Roles, nil
}

// Ledger returns the chain overview.
func (c *Client) Ledger(ctx context.Context) (*LedgerOverview, error) {
	var o LedgerOverview
	if err := c.call(ctx, http.MethodGet, "/ledger", nil, &o); err != nil {
		return nil, fmt.Errorf("ledger: %w", err)
	}
	return &o, nil
}

// Verify asks the server to check the chain.
func (c *Client) Verify(ctx context.Context) (*VerifyResult, error) {
	var v VerifyResult
	if err := c.call(ctx, http.MethodGet, "/ledger/verify", nil, &v); err != nil {
		return nil, fmt.Errorf("verify: %w", err)
	}
	return &v, nil
}

// Blocks returns the whole chain.
func (c *Client) Blocks(ctx context.Context) ([]Block, error) {
	var resp struct {
		Blocks []Block `json:"blocks"`
	}
	if err := c.call(ctx, http.MethodGet, "/ledger/blocks", nil, &resp); err != nil {
		return nil, fmt.Errorf("blocks: %w", err)
	}
	return resp.Blocks, nil
}

// Block returns the block at index.
func (c *Client) Block(ctx context.Context, index int) (*Block, error) {
	var b Block
	if err := c.call(ctx, http.MethodGet, "/ledger/blocks/"+strconv.Itoa(index), nil, &b); err != nil {
		return nil, fmt.Errorf("block %d: %w", index, err)
	}
	return &b, nil
}

// Watch streams ledger blocks to fn until ctx ends, fn returns an error or the
// server closes the stream. The existing chain is delivered first.
func (c *Client) Watch(ctx context.Context, fn func(Block) error) error {
	wsURL := "ws" + strings.TrimPrefix(c.base, "http") + "/api/v1/ledger/stream"

	header := http.Header{}
	if tok := c.token(); tok != "" {
		header.Set("Authorization", "Bearer "+tok)
	}
	conn, resp, err := c.dialer.DialContext(ctx, wsURL, header)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("watch: %w", &APIError{StatusCode: resp.StatusCode, Message: resp.Status})
		}
		return fmt.Errorf("watch: %w", err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	for {
		var b Block
		if err := conn.ReadJSON(&b); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return nil
			}
			return fmt.Errorf("watch: %w", err)
		}
		if err := fn(b); err != nil {
			return err
		}
	}
}

func (c *Client) token() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.bearerToken
}

// call issues a JSON request against /api/v1 and decodes the response into out.
func (c *Client) call(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+"/api/v1"+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	respBody, err := c.do(req)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	if tok := c.token(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 300 {
		msg := strings.TrimSpace(string(body))
		var e struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(body, &e) == nil && e.Error != "" {
			msg = e.Error
		}
		return nil, &APIError{StatusCode: resp.StatusCode, Message: msg}
	}
	return body, nil
}
