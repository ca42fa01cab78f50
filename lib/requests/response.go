package requests

import (
	"encoding/json"
	"fmt"
	"iter"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/pim97/scrappey-go/lib/scrappey"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
)

const defaultEncoding = "utf-8"

// PreparedRequest describes the request a Response answers.
type PreparedRequest struct {
	Method  string
	URL     string
	Headers map[string]string
	// Body is the postData forwarded to the API, nil if none was sent.
	Body any
	// PathURL is the path of URL, "/" when it is empty.
	PathURL string
}

func newPreparedRequest(method, rawURL string, headers map[string]string, body any) *PreparedRequest {
	path := "/"
	parsed, err := url.Parse(rawURL)
	if err == nil && parsed.Path != "" {
		path = parsed.Path
	}
	if headers == nil {
		headers = map[string]string{}
	}
	return &PreparedRequest{
		Method:  strings.ToUpper(method),
		URL:     rawURL,
		Headers: headers,
		Body:    body,
		PathURL: path,
	}
}

// Response is a read-mostly view of the page the API fetched, shaped like a
// conventional HTTP response.
type Response struct {
	// StatusCode is 0 when the API reported no HTTP status.
	StatusCode int
	// URL is the final url after redirects.
	URL string
	// Headers has lowercase names.
	Headers map[string]string
	Cookies *CookieJar
	// Encoding is used by Content, it can be changed.
	Encoding string
	Reason   string
	Elapsed  time.Duration
	// History is always empty, the API does not report redirect hops.
	History []*Response
	Request *PreparedRequest
	Raw     *scrappey.Response

	text string

	contentMu       sync.Mutex
	content         []byte
	contentEncoding string

	jsonMu    sync.Mutex
	jsonValue any
	jsonDone  bool
}

func NewResponse(raw *scrappey.Response, req *PreparedRequest) *Response {
	if raw == nil {
		raw = &scrappey.Response{}
	}
	if req == nil {
		req = newPreparedRequest("", "", nil, nil)
	}
	res := &Response{
		Headers: map[string]string{},
		Cookies: NewCookieJar(),
		History: []*Response{},
		Request: req,
		Raw:     raw,
		Elapsed: time.Duration(raw.TimeElapsed * float64(time.Millisecond)),
	}

	if solution := raw.Solution; solution != nil {
		res.StatusCode = solution.StatusCode
		res.text = solution.Response
		res.URL = solution.CurrentURL
		for _, field := range solution.ResponseHeaders {
			res.Headers[strings.ToLower(field.Name)] = field.Value
		}
		for _, cookie := range solution.Cookies {
			if cookie.Name != "" {
				res.Cookies.Set(cookie.Name, cookie.Value)
			}
		}
	}
	res.Encoding = encodingFromContentType(res.Headers["content-type"])
	res.Reason = reasonPhrase(res.StatusCode)
	return res
}

func encodingFromContentType(contentType string) string {
	_, after, found := strings.Cut(strings.ToLower(contentType), "charset=")
	if !found {
		return defaultEncoding
	}
	value, _, _ := strings.Cut(after, ";")
	value = strings.Trim(strings.TrimSpace(value), `"'`)
	if value == "" {
		return defaultEncoding
	}
	return value
}

func reasonPhrase(status int) string {
	reason := http.StatusText(status)
	if reason == "" {
		return "Unknown"
	}
	return reason
}

// Text is the body as reported by the API.
func (r *Response) Text() string {
	return r.text
}

// Content is Text encoded with Encoding, runes the encoding cannot
// represent are replaced. Unknown encodings fall back to utf-8.
func (r *Response) Content() []byte {
	r.contentMu.Lock()
	defer r.contentMu.Unlock()
	if r.content != nil && r.contentEncoding == r.Encoding {
		return r.content
	}
	r.content = encodeText(r.text, r.Encoding)
	r.contentEncoding = r.Encoding
	return r.content
}

func encodeText(text, name string) []byte {
	enc, err := htmlindex.Get(name)
	if err != nil || enc == encoding.Nop {
		return []byte(text)
	}
	if canonical, err := htmlindex.Name(enc); err == nil && canonical == defaultEncoding {
		return []byte(text)
	}
	out, err := encoding.ReplaceUnsupported(enc.NewEncoder()).String(text)
	if err != nil {
		return []byte(text)
	}
	return []byte(out)
}

// ApparentEncoding is the encoding declared by the document itself
// (byte order mark, content type or meta tag).
func (r *Response) ApparentEncoding() string {
	_, name, _ := charset.DetermineEncoding([]byte(r.text), r.Headers["content-type"])
	return name
}

// JSON decodes Text, the result is cached after the first successful call.
func (r *Response) JSON() (any, error) {
	r.jsonMu.Lock()
	defer r.jsonMu.Unlock()
	if r.jsonDone {
		return r.jsonValue, nil
	}
	var value any
	err := json.Unmarshal([]byte(r.text), &value)
	if err != nil {
		return nil, &scrappey.Error{
			Kind:    scrappey.ErrDecode,
			Message: "response is not valid JSON",
			Err:     err,
		}
	}
	r.jsonValue = value
	r.jsonDone = true
	return value, nil
}

// DecodeJSON decodes Text into v.
func (r *Response) DecodeJSON(v any) error {
	err := json.Unmarshal([]byte(r.text), v)
	if err != nil {
		return &scrappey.Error{
			Kind:    scrappey.ErrDecode,
			Message: "response is not valid JSON",
			Err:     err,
		}
	}
	return nil
}

// HTML parses Text as an html document.
func (r *Response) HTML() (*goquery.Document, error) {
	return goquery.NewDocumentFromReader(strings.NewReader(r.text))
}

func (r *Response) OK() bool {
	return r.StatusCode < 400
}

// Truthy mirrors OK.
func (r *Response) Truthy() bool {
	return r.OK()
}

func (r *Response) IsRedirect() bool {
	switch r.StatusCode {
	case 301, 302, 303, 307, 308:
		return true
	}
	return false
}

func (r *Response) IsPermanentRedirect() bool {
	return r.StatusCode == 301 || r.StatusCode == 308
}

// HTTPError is returned by RaiseForStatus.
type HTTPError struct {
	StatusCode int
	Reason     string
	URL        string
	Response   *Response
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%d Error: %s for url: %s", e.StatusCode, e.Reason, e.URL)
}

func (e *HTTPError) Unwrap() error {
	return scrappey.ErrHTTPStatus
}

// RaiseForStatus returns an *HTTPError if the status is 400 or above.
func (r *Response) RaiseForStatus() error {
	if r.OK() {
		return nil
	}
	return &HTTPError{
		StatusCode: r.StatusCode,
		Reason:     r.Reason,
		URL:        r.URL,
		Response:   r,
	}
}

// Link is one entry of a Link header, "url" holds the target and
// every other key is a parameter.
type Link map[string]string

// Links parses the Link header, entries are keyed by their rel (or url when it has none).
func (r *Response) Links() map[string]Link {
	links := map[string]Link{}
	header := r.Headers["link"]
	if header == "" {
		return links
	}
	for _, entry := range splitLinkHeader(header) {
		link, ok := parseLink(entry)
		if !ok {
			continue
		}
		key := link["rel"]
		if key == "" {
			key = link["url"]
		}
		links[key] = link
	}
	return links
}

// splitLinkHeader splits on commas outside of <...> and quotes.
func splitLinkHeader(header string) []string {
	var entries []string
	var current strings.Builder
	inURL, inQuote := false, false
	for _, c := range header {
		switch {
		case c == '<' && !inQuote:
			inURL = true
		case c == '>' && !inQuote:
			inURL = false
		case c == '"' && !inURL:
			inQuote = !inQuote
		case c == ',' && !inURL && !inQuote:
			entries = append(entries, current.String())
			current.Reset()
			continue
		}
		current.WriteRune(c)
	}
	entries = append(entries, current.String())
	return entries
}

func parseLink(entry string) (Link, bool) {
	parts := strings.Split(entry, ";")
	target := strings.TrimSpace(parts[0])
	if !strings.HasPrefix(target, "<") || !strings.HasSuffix(target, ">") {
		return nil, false
	}
	link := Link{"url": strings.TrimSpace(target[1 : len(target)-1])}
	for _, param := range parts[1:] {
		key, value, found := strings.Cut(param, "=")
		if !found {
			continue
		}
		key = strings.ToLower(strings.TrimSpace(key))
		value = strings.Trim(strings.TrimSpace(value), `"'`)
		if key == "" {
			continue
		}
		link[key] = value
	}
	return link, true
}

// IterContent yields Content as a single chunk, the API never streams.
func (r *Response) IterContent() iter.Seq[[]byte] {
	return func(yield func([]byte) bool) {
		yield(r.Content())
	}
}

// IterLines yields the lines of Text without their line endings.
// The sequence can be iterated more than once.
func (r *Response) IterLines() iter.Seq[string] {
	return func(yield func(string) bool) {
		if r.text == "" {
			return
		}
		text := strings.ReplaceAll(r.text, "\r\n", "\n")
		text = strings.ReplaceAll(text, "\r", "\n")
		text = strings.TrimSuffix(text, "\n")
		for _, line := range strings.Split(text, "\n") {
			if !yield(line) {
				return
			}
		}
	}
}

// Close does nothing, the body is already fully read.
func (r *Response) Close() error {
	return nil
}

func (r *Response) String() string {
	return fmt.Sprintf("<Response [%d]>", r.StatusCode)
}
