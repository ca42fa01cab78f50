package scrappey

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pim97/scrappey-go/lib/testutil"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func setup(t testing.TB, opts ClientOptions) (*Client, *testutil.FakeVendor, func()) {
	vendor, cleanupVendor := testutil.SetupVendor(t, testutil.VendorParams{
		Name: "lib/scrappey",
	})
	if opts.APIKey == "" {
		opts.APIKey = "test-key"
	}
	if opts.BaseURL == "" {
		opts.BaseURL = vendor.URL()
	}
	client, err := NewClient(opts)
	if err != nil {
		t.Fatal(err)
	}
	return client, vendor, func() {
		client.Close()
		cleanupVendor()
	}
}

func TestSendEnvelope(t *testing.T) {
	client, vendor, cleanup := setup(t, ClientOptions{})
	defer cleanup()

	ctx := context.Background()
	res, err := client.Get(ctx, "https://example.com", &RequestOptions{
		ProxyCountry: String("UnitedStates"),
		PremiumProxy: Bool(true),
	})
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, "success", res.Data)
	require.True(t, res.HasSolution())
	require.Equal(t, 200, res.Solution.StatusCode)

	call := vendor.LastCall(t)
	require.Equal(t, "/api/v1", call.Path)
	require.Equal(t, "test-key", call.Key)

	expected := map[string]any{
		"cmd":          "request.get",
		"url":          "https://example.com",
		"proxyCountry": "UnitedStates",
		"premiumProxy": true,
	}
	if diff := cmp.Diff(expected, call.Envelope); diff != "" {
		t.Fatal(diff)
	}
}

func TestSendOmitsUnsetOptions(t *testing.T) {
	client, vendor, cleanup := setup(t, ClientOptions{})
	defer cleanup()

	_, err := client.Get(context.Background(), "https://example.com", nil)
	if err != nil {
		t.Fatal(err)
	}
	_, err = client.Post(context.Background(), "https://example.com", &RequestOptions{})
	if err != nil {
		t.Fatal(err)
	}

	calls := vendor.Calls()
	require.Len(t, calls, 2)
	if diff := cmp.Diff(map[string]any{"cmd": "request.get", "url": "https://example.com"}, calls[0].Envelope); diff != "" {
		t.Fatal(diff)
	}
	if diff := cmp.Diff(map[string]any{"cmd": "request.post", "url": "https://example.com"}, calls[1].Envelope); diff != "" {
		t.Fatal(diff)
	}
}

func TestSendExtraFieldsMergeFirst(t *testing.T) {
	client, vendor, cleanup := setup(t, ClientOptions{})
	defer cleanup()

	_, err := client.Get(context.Background(), "https://example.com", &RequestOptions{
		ProxyCountry: String("Germany"),
		Extra: Fields{
			"proxyCountry":      "France",
			"includeImages":     false,
			"url":               "https://ignored.example.com",
			"interceptFetchUrl": "https://example.com/api",
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	expected := map[string]any{
		"cmd":               "request.get",
		"url":               "https://example.com",
		"proxyCountry":      "Germany",
		"includeImages":     false,
		"interceptFetchUrl": "https://example.com/api",
	}
	if diff := cmp.Diff(expected, vendor.LastCall(t).Envelope); diff != "" {
		t.Fatal(diff)
	}
}

func TestDispatcherCmdWins(t *testing.T) {
	vendor, cleanup := testutil.SetupVendor(t, testutil.VendorParams{Name: "lib/scrappey"})
	defer cleanup()

	dispatcher, err := NewHTTPDispatcher(ClientOptions{APIKey: "k", BaseURL: vendor.URL() + "//"})
	if err != nil {
		t.Fatal(err)
	}
	defer dispatcher.Close()

	_, err = dispatcher.Send(context.Background(), "request.post", Fields{"cmd": "sessions.list", "url": "u"})
	if err != nil {
		t.Fatal(err)
	}
	call := vendor.LastCall(t)
	require.Equal(t, "request.post", call.Cmd())
	require.Equal(t, "/api/v1", call.Path)

	_, err = dispatcher.Send(context.Background(), "", Fields{})
	require.ErrorIs(t, err, ErrInvalidArgument)
	require.Len(t, vendor.Calls(), 1)
}

func TestNewDispatcherRequiresKey(t *testing.T) {
	_, err := NewClient(ClientOptions{})
	require.ErrorIs(t, err, ErrAuthentication)

	_, err = NewAsyncClient(ClientOptions{BaseURL: "http://localhost"})
	require.ErrorIs(t, err, ErrAuthentication)
}

func TestSendUnauthorized(t *testing.T) {
	client, vendor, cleanup := setup(t, ClientOptions{})
	defer cleanup()
	vendor.RespondJSON(http.StatusUnauthorized, map[string]any{"error": "bad key"})

	_, err := client.Get(context.Background(), "https://example.com", nil)
	require.ErrorIs(t, err, ErrAuthentication)

	var apiErr *Error
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
}

func TestSendUndecodableBody(t *testing.T) {
	testCases := []struct {
		name   string
		status int
		body   string
	}{
		{name: "html", status: http.StatusBadGateway, body: "<html>bad gateway</html>"},
		{name: "array", status: http.StatusOK, body: `["data"]`},
		{name: "empty", status: http.StatusOK, body: ""},
		{name: "null", status: http.StatusOK, body: "null"},
	}

	client, vendor, cleanup := setup(t, ClientOptions{})
	defer cleanup()

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			vendor.RespondJSON(tc.status, tc.body)

			_, err := client.Get(context.Background(), "https://example.com", nil)
			require.ErrorIs(t, err, ErrAPI)

			var apiErr *Error
			require.True(t, errors.As(err, &apiErr))
			require.Equal(t, tc.status, apiErr.StatusCode)
		})
	}
}

func TestSendRemoteErrorIsNotAFailure(t *testing.T) {
	client, vendor, cleanup := setup(t, ClientOptions{})
	defer cleanup()
	vendor.RespondJSON(http.StatusOK, map[string]any{
		"data":  "error",
		"error": "CODE-0001 proxy failure",
	})

	res, err := client.Get(context.Background(), "https://example.com", nil)
	if err != nil {
		t.Fatal(err)
	}
	require.True(t, res.IsError())
	require.False(t, res.HasSolution())
	require.Equal(t, "CODE-0001 proxy failure", res.Error)

	remote := RemoteAPIError(res)
	require.ErrorIs(t, remote, ErrRemoteAPI)
	require.Equal(t, "scrappey error: CODE-0001 proxy failure", remote.Error())
	require.Equal(t, "scrappey error: Unknown error", RemoteAPIError(&Response{Data: "error"}).Error())
}

func TestSendToleratesUnexpectedFieldTypes(t *testing.T) {
	client, vendor, cleanup := setup(t, ClientOptions{})
	defer cleanup()
	vendor.RespondJSON(http.StatusOK, map[string]any{
		"data": "success",
		"solution": map[string]any{
			"statusCode": 200,
			"response":   "ok",
			"verified":   "true",
		},
	})

	res, err := client.Get(context.Background(), "https://example.com", nil)
	if err != nil {
		t.Fatal(err)
	}
	require.False(t, res.IsError())
	require.Equal(t, 200, res.Solution.StatusCode)
	require.Equal(t, "ok", res.Solution.Response)
	require.Nil(t, res.Solution.Verified)
}

func TestSendReportsOutcome(t *testing.T) {
	api := &testutil.RecordingAPI{}
	client, vendor, cleanup := setup(t, ClientOptions{Telemetry: api})
	defer cleanup()
	ctx := context.Background()

	_, err := client.Get(ctx, "https://example.com", nil)
	if err != nil {
		t.Fatal(err)
	}
	vendor.RespondJSON(http.StatusOK, map[string]any{"data": "error", "error": "blocked"})
	_, err = client.Get(ctx, "https://example.com", nil)
	if err != nil {
		t.Fatal(err)
	}

	var outcomes [][]any
	for _, report := range api.Reports("debug") {
		if report.ID == "dispatcher: send" {
			outcomes = append(outcomes, report.Params)
		}
	}
	require.Equal(t, [][]any{
		{"cmd", "request.get", "outcome", "success"},
		{"cmd", "request.get", "outcome", "remote_error"},
	}, outcomes)
}

func TestSendConnectionRefused(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	baseURL := server.URL
	server.Close()

	client, err := NewClient(ClientOptions{APIKey: "k", BaseURL: baseURL})
	if err != nil {
		t.Fatal(err)
	}
	defer client.Close()

	_, err = client.Get(context.Background(), "https://example.com", nil)
	require.ErrorIs(t, err, ErrConnection)
	require.NotErrorIs(t, err, ErrTimeout)
}

func TestSendTimeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	defer server.Close()
	defer close(release)

	client, err := NewClient(ClientOptions{
		APIKey:  "k",
		BaseURL: server.URL,
		Timeout: 50 * time.Millisecond,
	})
	if err != nil {
		t.Fatal(err)
	}
	defer client.Close()

	_, err = client.Get(context.Background(), "https://example.com", nil)
	require.ErrorIs(t, err, ErrTimeout)
	require.NotErrorIs(t, err, ErrConnection)
}

func TestSendAfterClose(t *testing.T) {
	client, vendor, cleanup := setup(t, ClientOptions{})
	defer cleanup()

	require.NoError(t, client.Close())
	require.NoError(t, client.Close())

	_, err := client.Get(context.Background(), "https://example.com", nil)
	require.ErrorIs(t, err, ErrClientClosed)
	require.Empty(t, vendor.Calls())
}

type memoryOutput struct {
	mu    sync.Mutex
	dumps map[string]string
}

func (o *memoryOutput) Write(id string, contents string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.dumps[id] = contents
}

func TestDebugOutputRedactsKey(t *testing.T) {
	output := &memoryOutput{dumps: map[string]string{}}
	client, _, cleanup := setup(t, ClientOptions{
		APIKey:      "super-secret",
		DebugOutput: output,
		RateLimit:   100,
	})
	defer cleanup()

	_, err := client.Get(context.Background(), "https://example.com", nil)
	if err != nil {
		t.Fatal(err)
	}

	output.mu.Lock()
	defer output.mu.Unlock()
	dump, ok := output.dumps["0001.txt"]
	require.True(t, ok)
	require.Contains(t, dump, "REDACTED")
	require.Contains(t, dump, "request.get")
	require.False(t, strings.Contains(dump, "super-secret"))
}
