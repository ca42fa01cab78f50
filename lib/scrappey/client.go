package scrappey

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
)

// Client is the blocking API client, it is safe for concurrent use.
//
// Cancelling ctx only stops waiting for the answer, work already
// started by the API is not aborted.
type Client struct {
	dispatcher Dispatcher
	closed     atomic.Bool
}

func NewClient(opts ClientOptions) (*Client, error) {
	dispatcher, err := NewHTTPDispatcher(opts)
	if err != nil {
		return nil, err
	}
	return &Client{dispatcher: dispatcher}, nil
}

// NewClientWithDispatcher creates a client that sends every command through `dispatcher`.
func NewClientWithDispatcher(dispatcher Dispatcher) *Client {
	return &Client{dispatcher: dispatcher}
}

func (c *Client) send(ctx context.Context, cmd string, fields Fields) (*Response, error) {
	if c.closed.Load() {
		return nil, newError(ErrClientClosed, "client is closed", nil)
	}
	return c.dispatcher.Send(ctx, cmd, fields)
}

func (c *Client) Get(ctx context.Context, url string, opts *RequestOptions) (*Response, error) {
	return c.send(ctx, "request.get", opts.Envelope(url))
}

func (c *Client) Post(ctx context.Context, url string, opts *RequestOptions) (*Response, error) {
	return c.send(ctx, "request.post", opts.Envelope(url))
}

func (c *Client) Put(ctx context.Context, url string, opts *RequestOptions) (*Response, error) {
	return c.send(ctx, "request.put", opts.Envelope(url))
}

func (c *Client) Patch(ctx context.Context, url string, opts *RequestOptions) (*Response, error) {
	return c.send(ctx, "request.patch", opts.Envelope(url))
}

func (c *Client) Delete(ctx context.Context, url string, opts *RequestOptions) (*Response, error) {
	return c.send(ctx, "request.delete", opts.Envelope(url))
}

// Request sends an arbitrary command, "cmd" defaults to "request.get".
// Every other field is forwarded unchanged.
func (c *Client) Request(ctx context.Context, fields Fields) (*Response, error) {
	if fields == nil {
		return nil, InvalidArgument("request fields are required")
	}
	cmd := "request.get"
	if value, ok := fields["cmd"]; ok {
		s, isString := value.(string)
		if !isString || s == "" {
			return nil, InvalidArgument("cmd must be a non-empty string, got %v", value)
		}
		cmd = s
	}
	return c.send(ctx, cmd, fields)
}

func decodeAs[T any](res *Response) (*T, error) {
	out := new(T)
	err := res.Decode(out)
	var typeErr *json.UnmarshalTypeError
	if err != nil && !errors.As(err, &typeErr) {
		return nil, &Error{
			Kind:     ErrAPI,
			Message:  "failed to parse API response",
			Response: res,
			Err:      err,
		}
	}
	return out, nil
}

func (c *Client) CreateSession(ctx context.Context, opts *SessionOptions) (*SessionCreateResponse, error) {
	return c.createSession(ctx, opts.fields())
}

func (c *Client) createSession(ctx context.Context, fields Fields) (*SessionCreateResponse, error) {
	res, err := c.send(ctx, "sessions.create", fields)
	if err != nil {
		return nil, err
	}
	out, err := decodeAs[SessionCreateResponse](res)
	if err != nil {
		return nil, err
	}
	out.Raw = res.Raw
	return out, nil
}

func (c *Client) DestroySession(ctx context.Context, session string) (*Response, error) {
	if session == "" {
		return nil, InvalidArgument("session is required")
	}
	return c.send(ctx, "sessions.destroy", Fields{"session": session})
}

func (c *Client) ListSessions(ctx context.Context) (*SessionListResponse, error) {
	res, err := c.send(ctx, "sessions.list", Fields{})
	if err != nil {
		return nil, err
	}
	out, err := decodeAs[SessionListResponse](res)
	if err != nil {
		return nil, err
	}
	out.Raw = res.Raw
	return out, nil
}

// IsSessionActive reports the "active" flag of a session, a missing flag reads as false.
func (c *Client) IsSessionActive(ctx context.Context, session string) (bool, error) {
	res, err := c.send(ctx, "sessions.active", Fields{"session": session})
	if err != nil {
		return false, err
	}
	active, _ := res.Raw["active"].(bool)
	return active, nil
}

// BrowserAction loads `url` in a browser and runs `actions` on it.
func (c *Client) BrowserAction(ctx context.Context, url string, actions []BrowserAction, opts *RequestOptions) (*Response, error) {
	return c.Get(ctx, url, withActions(opts, actions))
}

func withActions(opts *RequestOptions, actions []BrowserAction) *RequestOptions {
	out := RequestOptions{}
	if opts != nil {
		out = *opts
	}
	out.BrowserActions = actions
	return &out
}

// Screenshot loads `url` and captures it, the image is in Solution.Screenshot.
func (c *Client) Screenshot(ctx context.Context, url string, opts *ScreenshotOptions) (*Response, error) {
	return c.send(ctx, "request.get", opts.fields(url))
}

// Close releases pooled connections, calls made afterwards fail with ErrClientClosed.
func (c *Client) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	return c.dispatcher.Close()
}
