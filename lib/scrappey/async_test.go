package scrappey

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/pim97/scrappey-go/lib/testutil"

	"github.com/stretchr/testify/require"
)

func TestAsyncClient(t *testing.T) {
	vendor, cleanup := testutil.SetupVendor(t, testutil.VendorParams{Name: "lib/scrappey"})
	defer cleanup()

	client, err := NewAsyncClient(ClientOptions{APIKey: "k", BaseURL: vendor.URL()})
	if err != nil {
		t.Fatal(err)
	}
	defer client.Close()

	ctx := context.Background()
	futures := []*Future[*Response]{
		client.Get(ctx, "https://example.com/1", nil),
		client.Post(ctx, "https://example.com/2", nil),
		client.Put(ctx, "https://example.com/3", nil),
		client.Patch(ctx, "https://example.com/4", nil),
		client.Delete(ctx, "https://example.com/5", nil),
	}
	for _, future := range futures {
		res, err := future.Wait(ctx)
		if err != nil {
			t.Fatal(err)
		}
		require.Equal(t, 200, res.Solution.StatusCode)
	}
	require.Len(t, vendor.Calls(), len(futures))

	{
		_, err := client.Request(ctx, nil).Get()
		require.ErrorIs(t, err, ErrInvalidArgument)

		_, err = client.DestroySession(ctx, "").Get()
		require.ErrorIs(t, err, ErrInvalidArgument)
	}
	{
		vendor.RespondJSON(http.StatusOK, map[string]any{"active": true})
		active, err := client.IsSessionActive(ctx, "sess-1").Get()
		if err != nil {
			t.Fatal(err)
		}
		require.True(t, active)
	}
}

type blockingDispatcher struct {
	release chan struct{}
	mu      sync.Mutex
	sent    []string
	// envelopes are marshalled once the call is released
	envelopes []string
}

func (d *blockingDispatcher) Send(ctx context.Context, cmd string, fields Fields) (*Response, error) {
	select {
	case <-d.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	envelope, err := json.Marshal(fields)
	if err != nil {
		return nil, err
	}
	d.mu.Lock()
	d.sent = append(d.sent, cmd)
	d.envelopes = append(d.envelopes, string(envelope))
	d.mu.Unlock()
	return &Response{Data: DataSuccess}, nil
}

func (d *blockingDispatcher) Close() error {
	return nil
}

func TestFutureOutlivesWaitCancellation(t *testing.T) {
	dispatcher := &blockingDispatcher{release: make(chan struct{})}
	client := NewAsyncClientWithDispatcher(dispatcher)
	defer client.Close()

	callCtx, cancelCall := context.WithCancel(context.Background())
	future := client.Get(callCtx, "https://example.com", nil)

	waitCtx, cancelWait := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancelWait()
	_, err := future.Wait(waitCtx)
	require.True(t, errors.Is(err, context.DeadlineExceeded))

	// cancelling the caller's context does not abort the call
	cancelCall()
	select {
	case <-future.Done():
		t.Fatal("future completed before the dispatcher was released")
	default:
	}

	close(dispatcher.release)
	res, err := future.Get()
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, DataSuccess, res.Data)
	require.Equal(t, []string{"request.get"}, dispatcher.sent)
}

func TestAsyncCallsSnapshotOptions(t *testing.T) {
	dispatcher := &blockingDispatcher{release: make(chan struct{})}
	client := NewAsyncClientWithDispatcher(dispatcher)
	defer client.Close()

	ctx := context.Background()
	opts := &RequestOptions{
		Session:       String("sess-1"),
		CustomHeaders: map[string]string{"X-Test": "before"},
		Extra:         Fields{"note": "before"},
	}
	sessionOpts := &SessionOptions{Locales: []string{"en-US"}}
	actions := []BrowserAction{ClickAction{CSSSelector: "#before"}}

	futures := []*Future[*Response]{
		client.Get(ctx, "https://example.com", opts),
		client.BrowserAction(ctx, "https://example.com", actions, opts),
	}
	created := client.CreateSession(ctx, sessionOpts)

	opts.Session = String("sess-2")
	opts.CustomHeaders["X-Test"] = "after"
	opts.Extra["note"] = "after"
	sessionOpts.Locales[0] = "fr-FR"
	actions[0] = ClickAction{CSSSelector: "#after"}

	close(dispatcher.release)
	for _, future := range futures {
		_, err := future.Get()
		if err != nil {
			t.Fatal(err)
		}
	}
	_, err := created.Get()
	if err != nil {
		t.Fatal(err)
	}

	dispatcher.mu.Lock()
	defer dispatcher.mu.Unlock()
	require.Len(t, dispatcher.envelopes, 3)
	for _, envelope := range dispatcher.envelopes {
		require.NotContains(t, envelope, "after")
		require.NotContains(t, envelope, "sess-2")
		require.NotContains(t, envelope, "fr-FR")
	}
}
