package requests

import (
	"fmt"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/pim97/scrappey-go/lib/scrappey"
)

// RequestOptions are the conventional HTTP client parameters of a request.
// The zero value sends a plain request.
type RequestOptions struct {
	// Params is merged into the url query, it accepts url.Values, map[string]string,
	// map[string][]string, map[string]any, [][2]string or an encoded query string.
	Params any
	// Data is the body of POST, PUT and PATCH requests. Maps, url.Values and
	// [][2]string are form encoded, string and []byte are sent as is.
	Data any
	// JSON is sent as a structured body and takes precedence over Data.
	JSON    any
	Headers map[string]string
	// Cookies is a map[string]string or a *CookieJar.
	Cookies any
	// Proxies maps "http" and "https" to proxy urls, "https" is preferred.
	Proxies     map[string]string
	Timeout     *Timeout
	RequestType string

	// The following are accepted but not supported by the API, setting them
	// only produces a warning.
	Files          any
	Auth           any
	Hooks          any
	Stream         bool
	Verify         *bool
	Cert           string
	AllowRedirects *bool

	// Extra is forwarded to the API, named options win on collision.
	Extra scrappey.Fields
}

// Timeout bounds the work the API does for a request, the larger of the
// two durations is used.
type Timeout struct {
	Connect time.Duration
	Read    time.Duration
}

// TimeoutOf is a Timeout with the same connect and read duration.
func TimeoutOf(d time.Duration) *Timeout {
	return &Timeout{Connect: d, Read: d}
}

func (t *Timeout) millis() int {
	return int(max(t.Connect, t.Read).Milliseconds())
}

// toValues converts any of the accepted params forms, a key repeated in
// pairs or in a query string keeps its last values.
func toValues(params any) (url.Values, error) {
	out := url.Values{}
	switch params := params.(type) {
	case nil:
	case url.Values:
		for key, values := range params {
			out[key] = slices.Clone(values)
		}
	case map[string][]string:
		for key, values := range params {
			out[key] = slices.Clone(values)
		}
	case map[string]string:
		for key, value := range params {
			out.Set(key, value)
		}
	case map[string]any:
		for key, value := range params {
			out[key] = paramValues(value)
		}
	case [][2]string:
		for _, pair := range params {
			out.Set(pair[0], pair[1])
		}
	case string:
		parsed, err := url.ParseQuery(strings.TrimPrefix(params, "?"))
		if err != nil {
			return nil, scrappey.InvalidArgument("invalid params %q: %s", params, err)
		}
		return parsed, nil
	default:
		return nil, scrappey.InvalidArgument("unsupported params type %T", params)
	}
	return out, nil
}

func paramValues(value any) []string {
	switch value := value.(type) {
	case []string:
		return slices.Clone(value)
	case []any:
		out := make([]string, len(value))
		for i, v := range value {
			out[i] = fmt.Sprint(v)
		}
		return out
	default:
		return []string{fmt.Sprint(value)}
	}
}

// withParams merges `params` into the query of `rawURL`, params replace
// existing values of the same key.
func withParams(rawURL string, params url.Values) (string, error) {
	if len(params) == 0 {
		return rawURL, nil
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", scrappey.InvalidArgument("invalid url %q: %s", rawURL, err)
	}
	query := parsed.Query()
	for key, values := range params {
		query[key] = values
	}
	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}

// formBody encodes Data, the second return value is false when there is no body.
func formBody(data any) (string, bool, error) {
	switch data := data.(type) {
	case nil:
		return "", false, nil
	case string:
		return data, true, nil
	case []byte:
		return string(data), true, nil
	case [][2]string:
		parts := make([]string, len(data))
		for i, pair := range data {
			parts[i] = url.QueryEscape(pair[0]) + "=" + url.QueryEscape(pair[1])
		}
		return strings.Join(parts, "&"), true, nil
	case url.Values, map[string][]string, map[string]string, map[string]any:
		values, err := toValues(data)
		if err != nil {
			return "", false, err
		}
		return values.Encode(), true, nil
	default:
		return "", false, scrappey.InvalidArgument("unsupported data type %T", data)
	}
}

// cookieString renders Cookies, map names are sorted.
func cookieString(cookies any) (string, error) {
	switch cookies := cookies.(type) {
	case nil:
		return "", nil
	case *CookieJar:
		if cookies == nil {
			return "", nil
		}
		return cookies.String(), nil
	case map[string]string:
		return CookieJarFrom(cookies).String(), nil
	default:
		return "", scrappey.InvalidArgument("unsupported cookies type %T", cookies)
	}
}

func proxyFrom(proxies map[string]string) string {
	if proxy := proxies["https"]; proxy != "" {
		return proxy
	}
	return proxies["http"]
}
