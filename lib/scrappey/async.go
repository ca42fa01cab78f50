package scrappey

import (
	"context"
)

// Future is the eventual result of a call made through AsyncClient.
type Future[T any] struct {
	done  chan struct{}
	value T
	err   error
}

// goFuture runs fn on its own goroutine. fn does not observe the
// cancellation of ctx, only its values.
func goFuture[T any](ctx context.Context, fn func(ctx context.Context) (T, error)) *Future[T] {
	f := &Future[T]{done: make(chan struct{})}
	ctx = context.WithoutCancel(ctx)
	go func() {
		defer close(f.done)
		f.value, f.err = fn(ctx)
	}()
	return f
}

// Done is closed once the result is available.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Wait blocks until the result is available or ctx is done. Giving up
// on ctx leaves the call running, a later Wait or Get still observes it.
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Get blocks until the result is available.
func (f *Future[T]) Get() (T, error) {
	<-f.done
	return f.value, f.err
}

// AsyncClient is the non-blocking counterpart of Client, every
// call returns immediately with a Future.
type AsyncClient struct {
	client *Client
}

func NewAsyncClient(opts ClientOptions) (*AsyncClient, error) {
	client, err := NewClient(opts)
	if err != nil {
		return nil, err
	}
	return &AsyncClient{client: client}, nil
}

func NewAsyncClientWithDispatcher(dispatcher Dispatcher) *AsyncClient {
	return &AsyncClient{client: NewClientWithDispatcher(dispatcher)}
}

// The envelope of every call is built before it starts, so callers may
// reuse their options once a method returns.

func (c *AsyncClient) send(ctx context.Context, cmd string, fields Fields) *Future[*Response] {
	return goFuture(ctx, func(ctx context.Context) (*Response, error) {
		return c.client.send(ctx, cmd, fields)
	})
}

func (c *AsyncClient) Get(ctx context.Context, url string, opts *RequestOptions) *Future[*Response] {
	return c.send(ctx, "request.get", opts.Envelope(url))
}

func (c *AsyncClient) Post(ctx context.Context, url string, opts *RequestOptions) *Future[*Response] {
	return c.send(ctx, "request.post", opts.Envelope(url))
}

func (c *AsyncClient) Put(ctx context.Context, url string, opts *RequestOptions) *Future[*Response] {
	return c.send(ctx, "request.put", opts.Envelope(url))
}

func (c *AsyncClient) Patch(ctx context.Context, url string, opts *RequestOptions) *Future[*Response] {
	return c.send(ctx, "request.patch", opts.Envelope(url))
}

func (c *AsyncClient) Delete(ctx context.Context, url string, opts *RequestOptions) *Future[*Response] {
	return c.send(ctx, "request.delete", opts.Envelope(url))
}

func (c *AsyncClient) Request(ctx context.Context, fields Fields) *Future[*Response] {
	fields = fields.cloneOrNil()
	return goFuture(ctx, func(ctx context.Context) (*Response, error) {
		return c.client.Request(ctx, fields)
	})
}

func (c *AsyncClient) CreateSession(ctx context.Context, opts *SessionOptions) *Future[*SessionCreateResponse] {
	fields := opts.fields()
	return goFuture(ctx, func(ctx context.Context) (*SessionCreateResponse, error) {
		return c.client.createSession(ctx, fields)
	})
}

func (c *AsyncClient) DestroySession(ctx context.Context, session string) *Future[*Response] {
	return goFuture(ctx, func(ctx context.Context) (*Response, error) {
		return c.client.DestroySession(ctx, session)
	})
}

func (c *AsyncClient) ListSessions(ctx context.Context) *Future[*SessionListResponse] {
	return goFuture(ctx, func(ctx context.Context) (*SessionListResponse, error) {
		return c.client.ListSessions(ctx)
	})
}

func (c *AsyncClient) IsSessionActive(ctx context.Context, session string) *Future[bool] {
	return goFuture(ctx, func(ctx context.Context) (bool, error) {
		return c.client.IsSessionActive(ctx, session)
	})
}

func (c *AsyncClient) BrowserAction(ctx context.Context, url string, actions []BrowserAction, opts *RequestOptions) *Future[*Response] {
	return c.send(ctx, "request.get", withActions(opts, actions).Envelope(url))
}

func (c *AsyncClient) Screenshot(ctx context.Context, url string, opts *ScreenshotOptions) *Future[*Response] {
	return c.send(ctx, "request.get", opts.fields(url))
}

// Close releases pooled connections. Calls still in flight finish normally,
// calls made afterwards fail with ErrClientClosed.
func (c *AsyncClient) Close() error {
	return c.client.Close()
}
