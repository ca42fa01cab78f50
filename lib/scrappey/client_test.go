package scrappey

import (
	"context"
	"encoding/base64"
	"net/http"
	"testing"

	"github.com/pim97/scrappey-go/lib/testutil"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestVerbCommands(t *testing.T) {
	client, vendor, cleanup := setup(t, ClientOptions{})
	defer cleanup()

	type verb func(ctx context.Context, url string, opts *RequestOptions) (*Response, error)
	testCases := []struct {
		cmd  string
		call verb
	}{
		{cmd: "request.get", call: client.Get},
		{cmd: "request.post", call: client.Post},
		{cmd: "request.put", call: client.Put},
		{cmd: "request.patch", call: client.Patch},
		{cmd: "request.delete", call: client.Delete},
	}

	for _, tc := range testCases {
		_, err := tc.call(context.Background(), "https://example.com", &RequestOptions{
			PostData: "a=1",
		})
		if err != nil {
			t.Fatal(err)
		}
		call := vendor.LastCall(t)
		require.Equal(t, tc.cmd, call.Cmd())
		require.Equal(t, "a=1", call.Envelope["postData"])
	}
}

func TestRequest(t *testing.T) {
	client, vendor, cleanup := setup(t, ClientOptions{})
	defer cleanup()
	ctx := context.Background()

	{
		_, err := client.Request(ctx, nil)
		require.ErrorIs(t, err, ErrInvalidArgument)
	}
	{
		_, err := client.Request(ctx, Fields{"cmd": ""})
		require.ErrorIs(t, err, ErrInvalidArgument)
	}
	{
		_, err := client.Request(ctx, Fields{"cmd": 42})
		require.ErrorIs(t, err, ErrInvalidArgument)
	}
	require.Empty(t, vendor.Calls())

	{
		_, err := client.Request(ctx, Fields{"url": "https://example.com", "customField": "x"})
		if err != nil {
			t.Fatal(err)
		}
		expected := map[string]any{
			"cmd":         "request.get",
			"url":         "https://example.com",
			"customField": "x",
		}
		if diff := cmp.Diff(expected, vendor.LastCall(t).Envelope); diff != "" {
			t.Fatal(diff)
		}
	}
	{
		_, err := client.Request(ctx, Fields{"cmd": "request.post", "url": "https://example.com"})
		if err != nil {
			t.Fatal(err)
		}
		require.Equal(t, "request.post", vendor.LastCall(t).Cmd())
	}
}

func TestSessions(t *testing.T) {
	client, vendor, cleanup := setup(t, ClientOptions{})
	defer cleanup()
	ctx := context.Background()

	{
		vendor.RespondJSON(http.StatusOK, map[string]any{
			"data":        "success",
			"session":     "sess-1",
			"fingerprint": map[string]any{"os": "windows"},
		})
		res, err := client.CreateSession(ctx, &SessionOptions{
			ProxyCountry: String("Germany"),
			Browser:      []BrowserSpec{{Name: "chrome", MinVersion: 120}},
		})
		if err != nil {
			t.Fatal(err)
		}
		require.Equal(t, "sess-1", res.Session)
		require.False(t, res.IsError())
		require.Equal(t, "windows", res.Fingerprint["os"])
		require.Equal(t, "sess-1", res.Raw["session"])

		expected := map[string]any{
			"cmd":          "sessions.create",
			"proxyCountry": "Germany",
			"browser": []any{
				map[string]any{"name": "chrome", "minVersion": float64(120)},
			},
		}
		if diff := cmp.Diff(expected, vendor.LastCall(t).Envelope); diff != "" {
			t.Fatal(diff)
		}
	}

	{
		_, err := client.CreateSession(ctx, nil)
		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff(map[string]any{"cmd": "sessions.create"}, vendor.LastCall(t).Envelope); diff != "" {
			t.Fatal(diff)
		}
	}

	{
		before := len(vendor.Calls())
		_, err := client.DestroySession(ctx, "")
		require.ErrorIs(t, err, ErrInvalidArgument)
		require.Len(t, vendor.Calls(), before)

		vendor.RespondJSON(http.StatusOK, map[string]any{"data": "success"})
		_, err = client.DestroySession(ctx, "sess-1")
		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff(map[string]any{"cmd": "sessions.destroy", "session": "sess-1"}, vendor.LastCall(t).Envelope); diff != "" {
			t.Fatal(diff)
		}
	}

	{
		vendor.RespondJSON(http.StatusOK, map[string]any{
			"sessions": []any{
				map[string]any{"session": "a", "lastAccessed": 1700000000000},
				map[string]any{"session": "b"},
			},
			"open":  2,
			"limit": 100,
		})
		res, err := client.ListSessions(ctx)
		if err != nil {
			t.Fatal(err)
		}
		require.Equal(t, []SessionInfo{
			{Session: "a", LastAccessed: 1700000000000},
			{Session: "b"},
		}, res.Sessions)
		require.Equal(t, 2, res.Open)
		require.Equal(t, 100, res.Limit)
		if diff := cmp.Diff(map[string]any{"cmd": "sessions.list"}, vendor.LastCall(t).Envelope); diff != "" {
			t.Fatal(diff)
		}
	}
	{
		vendor.RespondJSON(http.StatusOK, map[string]any{
			"sessions": []any{map[string]any{"session": "a", "lastAccessed": "yesterday"}},
			"open":     "1",
			"limit":    100,
		})
		res, err := client.ListSessions(ctx)
		if err != nil {
			t.Fatal(err)
		}
		require.Equal(t, []SessionInfo{{Session: "a"}}, res.Sessions)
		require.Zero(t, res.Open)
		require.Equal(t, 100, res.Limit)
		require.Equal(t, "1", res.Raw["open"])
	}
}

func TestIsSessionActive(t *testing.T) {
	client, vendor, cleanup := setup(t, ClientOptions{})
	defer cleanup()
	ctx := context.Background()

	testCases := []struct {
		body     map[string]any
		expected bool
	}{
		{body: map[string]any{"active": true}, expected: true},
		{body: map[string]any{"active": false}, expected: false},
		{body: map[string]any{}, expected: false},
		{body: map[string]any{"active": "yes"}, expected: false},
	}

	for _, tc := range testCases {
		vendor.RespondJSON(http.StatusOK, tc.body)
		active, err := client.IsSessionActive(ctx, "sess-1")
		if err != nil {
			t.Fatal(err)
		}
		require.Equal(t, tc.expected, active)
	}

	// the id is forwarded without validation
	_, err := client.IsSessionActive(ctx, "")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(map[string]any{"cmd": "sessions.active", "session": ""}, vendor.LastCall(t).Envelope); diff != "" {
		t.Fatal(diff)
	}
}

func TestBrowserAction(t *testing.T) {
	client, vendor, cleanup := setup(t, ClientOptions{})
	defer cleanup()

	_, err := client.BrowserAction(context.Background(), "https://example.com/login", []BrowserAction{
		TypeAction{CSSSelector: "#user", Text: "me"},
		ClickAction{CSSSelector: "#submit", ActionOptions: ActionOptions{Wait: 1000}},
	}, &RequestOptions{Session: String("sess-1")})
	if err != nil {
		t.Fatal(err)
	}

	expected := map[string]any{
		"cmd":     "request.get",
		"url":     "https://example.com/login",
		"session": "sess-1",
		"browserActions": []any{
			map[string]any{"type": "type", "cssSelector": "#user", "text": "me"},
			map[string]any{"type": "click", "cssSelector": "#submit", "wait": float64(1000)},
		},
	}
	if diff := cmp.Diff(expected, vendor.LastCall(t).Envelope); diff != "" {
		t.Fatal(diff)
	}
}

func TestScreenshot(t *testing.T) {
	client, vendor, cleanup := setup(t, ClientOptions{})
	defer cleanup()

	png := []byte{0x89, 'P', 'N', 'G'}
	vendor.Respond(func(call testutil.Call) (int, any) {
		return http.StatusOK, map[string]any{
			"data": "success",
			"solution": map[string]any{
				"statusCode": 200,
				"screenshot": base64.StdEncoding.EncodeToString(png),
			},
		}
	})

	res, err := client.Screenshot(context.Background(), "https://example.com", &ScreenshotOptions{
		Width:  Int(1920),
		Height: Int(1080),
	})
	if err != nil {
		t.Fatal(err)
	}

	expected := map[string]any{
		"cmd":              "request.get",
		"url":              "https://example.com",
		"screenshot":       true,
		"screenshotWidth":  float64(1920),
		"screenshotHeight": float64(1080),
	}
	if diff := cmp.Diff(expected, vendor.LastCall(t).Envelope); diff != "" {
		t.Fatal(diff)
	}

	image, err := res.Solution.ScreenshotBytes()
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, png, image)

	_, err = (&Solution{}).ScreenshotBytes()
	require.ErrorIs(t, err, ErrInvalidArgument)
}
