package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"finchat/internal/config"
	"finchat/internal/logging"
	"finchat/internal/types"
)

const defaultTimeout = 10 * time.Second

type Options struct {
	BaseURL     string
	Token       string
	Timeout     time.Duration
	IdleTimeout time.Duration
	StreamDebug bool
	Logger      logging.Logger
}

type Client struct {
	baseURL     string
	token       string
	http        *http.Client
	stream      *http.Client
	idleTimeout time.Duration
	streamDebug bool
	logger      logging.Logger
}

func New(opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Nop()
	}
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/"),
		token:   strings.TrimSpace(opts.Token),
		http: &http.Client{
			Timeout: timeout,
		},
		// Streaming responses are bounded by the idle watchdog instead of a
		// total deadline.
		stream:      &http.Client{},
		idleTimeout: opts.IdleTimeout,
		streamDebug: opts.StreamDebug,
		logger:      logger,
	}
}

func NewFromConfig(cfg config.Config, logger logging.Logger) *Client {
	return New(Options{
		BaseURL:     cfg.BaseURL(),
		Token:       cfg.Token(),
		Timeout:     cfg.ReloadTimeout(),
		IdleTimeout: cfg.IdleTimeout(),
		StreamDebug: cfg.StreamDebug(),
		Logger:      logger,
	})
}

func NewWithBaseURL(baseURL, token string) *Client {
	return New(Options{BaseURL: baseURL, Token: token})
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) ListChats(ctx context.Context) ([]*types.ChatSummary, error) {
	var resp []*types.ChatSummary
	if err := c.doJSON(ctx, http.MethodGet, endpointChats, nil, &resp); err != nil {
		return nil, err
	}
	if resp == nil {
		resp = []*types.ChatSummary{}
	}
	return resp, nil
}

func (c *Client) GetChat(ctx context.Context, id string) (*types.ChatSession, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, errors.New("chat id is required")
	}
	var session types.ChatSession
	if err := c.doJSON(ctx, http.MethodGet, chatPath(id), nil, &session); err != nil {
		return nil, err
	}
	if session.ID == "" {
		session.ID = id
	}
	return &session, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, body any, out any) error {
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeAPIError(resp)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}

func chatPath(id string) string {
	return fmt.Sprintf(endpointChatByID, url.PathEscape(id))
}

func decodeAPIError(resp *http.Response) error {
	type errorPayload struct {
		Error string `json:"error"`
	}
	var payload errorPayload
	_ = json.NewDecoder(resp.Body).Decode(&payload)
	if strings.TrimSpace(payload.Error) != "" {
		return &APIError{StatusCode: resp.StatusCode, Message: payload.Error}
	}
	return &APIError{StatusCode: resp.StatusCode, Message: resp.Status}
}

type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("api error (%d): %s", e.StatusCode, e.Message)
}

// Reason is the server's explanation, suitable for showing to the user.
func (e *APIError) Reason() string {
	if e == nil {
		return ""
	}
	return e.Message
}

func AsAPIError(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return nil
}
