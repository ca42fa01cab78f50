package requests

import (
	"errors"
	"reflect"
	"slices"
	"testing"
	"time"

	"github.com/pim97/scrappey-go/lib/scrappey"

	"github.com/stretchr/testify/require"
)

func newTestResponse(t testing.TB, raw map[string]any) *Response {
	res, err := scrappey.NewResponse(raw)
	if err != nil {
		t.Fatal(err)
	}
	return NewResponse(res, nil)
}

func solutionResponse(t testing.TB, solution map[string]any) *Response {
	return newTestResponse(t, map[string]any{
		"data":        "success",
		"solution":    solution,
		"timeElapsed": 1500,
	})
}

func TestResponseJSON(t *testing.T) {
	res := solutionResponse(t, map[string]any{
		"statusCode": 200,
		"response":   `{"a":1}`,
	})

	require.True(t, res.OK())
	require.True(t, res.Truthy())
	require.Equal(t, "OK", res.Reason)
	require.Equal(t, 1500*time.Millisecond, res.Elapsed)
	require.Equal(t, "<Response [200]>", res.String())

	first, err := res.JSON()
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, map[string]any{"a": float64(1)}, first)

	second, err := res.JSON()
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, reflect.ValueOf(first).Pointer(), reflect.ValueOf(second).Pointer())

	var decoded struct {
		A int `json:"a"`
	}
	require.NoError(t, res.DecodeJSON(&decoded))
	require.Equal(t, 1, decoded.A)
}

func TestResponseJSONDecodeFailure(t *testing.T) {
	res := solutionResponse(t, map[string]any{
		"statusCode": 200,
		"response":   "<html></html>",
	})
	_, err := res.JSON()
	require.ErrorIs(t, err, scrappey.ErrDecode)
	// failures are not cached
	_, err = res.JSON()
	require.ErrorIs(t, err, scrappey.ErrDecode)

	var v map[string]any
	require.ErrorIs(t, res.DecodeJSON(&v), scrappey.ErrDecode)
}

func TestRaiseForStatus(t *testing.T) {
	ok := solutionResponse(t, map[string]any{"statusCode": 200})
	for range 3 {
		require.NoError(t, ok.RaiseForStatus())
	}

	notFound := newTestResponse(t, map[string]any{
		"solution": map[string]any{
			"statusCode": 404,
			"response":   "",
			"currentUrl": "https://example.com/missing",
		},
	})
	err := notFound.RaiseForStatus()
	require.ErrorIs(t, err, scrappey.ErrHTTPStatus)

	var httpErr *HTTPError
	require.True(t, errors.As(err, &httpErr))
	require.Equal(t, 404, httpErr.StatusCode)
	require.Equal(t, "Not Found", httpErr.Reason)
	require.Equal(t, "https://example.com/missing", httpErr.URL)
	require.Same(t, notFound, httpErr.Response)
	require.Equal(t, "404 Error: Not Found for url: https://example.com/missing", err.Error())

	unknown := solutionResponse(t, map[string]any{"statusCode": 599})
	require.Equal(t, "Unknown", unknown.Reason)
	require.Error(t, unknown.RaiseForStatus())
}

func TestRedirectFlags(t *testing.T) {
	redirects := []int{301, 302, 303, 307, 308}
	permanent := []int{301, 308}

	for _, status := range []int{0, 200, 204, 300, 301, 302, 303, 304, 305, 307, 308, 400, 404, 500} {
		res := solutionResponse(t, map[string]any{"statusCode": status})
		require.Equal(t, slices.Contains(redirects, status), res.IsRedirect(), "status %d", status)
		require.Equal(t, slices.Contains(permanent, status), res.IsPermanentRedirect(), "status %d", status)
	}
}

func TestResponseWithoutSolution(t *testing.T) {
	res := newTestResponse(t, map[string]any{"data": "success"})

	require.Equal(t, 0, res.StatusCode)
	require.Equal(t, "", res.Text())
	require.Equal(t, "", res.URL)
	require.Equal(t, "utf-8", res.Encoding)
	require.Equal(t, map[string]string{}, res.Headers)
	require.Equal(t, 0, res.Cookies.Len())
	require.NotNil(t, res.History)
	require.Empty(t, res.History)
	require.Empty(t, res.Links())
	require.Equal(t, "Unknown", res.Reason)
	require.True(t, res.OK())
	require.Equal(t, "/", res.Request.PathURL)

	empty := NewResponse(nil, nil)
	require.Equal(t, 0, empty.StatusCode)
	require.NoError(t, empty.Close())
}

func TestResponseHeadersAndCookies(t *testing.T) {
	res := solutionResponse(t, map[string]any{
		"statusCode": 200,
		"responseHeaders": map[string]any{
			"Content-Type": "text/html; charset=ISO-8859-1",
			"X-Trace":      "abc",
		},
		"cookies": []any{
			map[string]any{"name": "sid", "value": "1"},
			"theme=dark",
			map[string]any{"value": "nameless"},
		},
	})

	require.Equal(t, map[string]string{
		"content-type": "text/html; charset=ISO-8859-1",
		"x-trace":      "abc",
	}, res.Headers)
	require.Equal(t, "iso-8859-1", res.Encoding)
	require.Equal(t, map[string]string{"sid": "1", "theme": "dark"}, res.Cookies.Dict())
}

func TestResponseDuplicateHeaderLastWins(t *testing.T) {
	raw, err := scrappey.NewResponse(map[string]any{})
	if err != nil {
		t.Fatal(err)
	}
	raw.Solution = &scrappey.Solution{
		StatusCode: 200,
		ResponseHeaders: scrappey.Header{
			{Name: "Set-Cookie", Value: "a=1"},
			{Name: "set-cookie", Value: "b=2"},
		},
	}
	res := NewResponse(raw, nil)
	require.Equal(t, map[string]string{"set-cookie": "b=2"}, res.Headers)
}

func TestResponseContent(t *testing.T) {
	res := solutionResponse(t, map[string]any{
		"statusCode":      200,
		"response":        "café ☃",
		"responseHeaders": map[string]any{"content-type": "text/plain; charset=latin1"},
	})

	// unsupported runes become the charset substitute byte
	require.Equal(t, []byte("caf\xe9 \x1a"), res.Content())

	res.Encoding = "utf-8"
	require.Equal(t, []byte("café ☃"), res.Content())

	res.Encoding = "not-a-real-encoding"
	require.Equal(t, []byte("café ☃"), res.Content())

	var chunks [][]byte
	for chunk := range res.IterContent() {
		chunks = append(chunks, chunk)
	}
	require.Equal(t, [][]byte{[]byte("café ☃")}, chunks)
}

func TestIterLines(t *testing.T) {
	res := solutionResponse(t, map[string]any{
		"statusCode": 200,
		"response":   "one\r\ntwo\nthree\rfour\n",
	})

	collect := func() []string {
		var lines []string
		for line := range res.IterLines() {
			lines = append(lines, line)
		}
		return lines
	}
	require.Equal(t, []string{"one", "two", "three", "four"}, collect())
	require.Equal(t, collect(), collect())

	empty := solutionResponse(t, map[string]any{"statusCode": 200})
	for range empty.IterLines() {
		t.Fatal("expected no lines")
	}
}

func TestLinks(t *testing.T) {
	res := solutionResponse(t, map[string]any{
		"statusCode": 200,
		"responseHeaders": map[string]any{
			"Link": `<https://api.example.com/items?page=2>; rel="next", <https://api.example.com/items?page=9>; rel="last"; title="end, really", <https://api.example.com/norel>`,
		},
	})

	links := res.Links()
	require.Len(t, links, 3)
	require.Equal(t, Link{"url": "https://api.example.com/items?page=2", "rel": "next"}, links["next"])
	require.Equal(t, Link{"url": "https://api.example.com/items?page=9", "rel": "last", "title": "end, really"}, links["last"])
	require.Equal(t, Link{"url": "https://api.example.com/norel"}, links["https://api.example.com/norel"])

	malformed := solutionResponse(t, map[string]any{
		"statusCode":      200,
		"responseHeaders": map[string]any{"link": "not a link header"},
	})
	require.Empty(t, malformed.Links())
}

func TestHTML(t *testing.T) {
	res := solutionResponse(t, map[string]any{
		"statusCode": 200,
		"response":   `<html><head><meta charset="windows-1252"><title>Hello</title></head><body></body></html>`,
	})

	doc, err := res.HTML()
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, "Hello", doc.Find("title").Text())
	require.Equal(t, "windows-1252", res.ApparentEncoding())
}
