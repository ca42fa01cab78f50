package requests

import (
	"context"
	"fmt"
	"maps"
	"net/http"
	"net/url"
	"os"
	"sync"

	"github.com/pim97/scrappey-go/lib/scrappey"
	"github.com/pim97/scrappey-go/lib/telemetry"

	"golang.org/x/sync/singleflight"
)

const (
	report_session_create = "session-create"
	report_session_close  = "session-close"
)

type SessionConfig struct {
	// APIKey defaults to the SCRAPPEY_API_KEY environment variable, it is
	// ignored when Client is set.
	APIKey  string
	BaseURL string
	// RequestType is the default "browser" or "request" mode of every request.
	RequestType string
	// Client is used instead of creating one, the session does not close it.
	Client    *scrappey.Client
	Telemetry telemetry.API
}

// Session keeps headers, cookies and other defaults across requests and
// sends all of them through a single API session, created on first use.
//
// Cookies returned by every response are merged into Cookies.
type Session struct {
	Headers     map[string]string
	Cookies     *CookieJar
	Proxies     map[string]string
	Params      url.Values
	RequestType string
	// Verify, Cert and Auth are applied to every request, like their
	// RequestOptions counterparts they only produce warnings.
	Verify bool
	Cert   string
	Auth   any
	// MaxRedirects and TrustEnv have no effect.
	MaxRedirects int
	TrustEnv     bool

	client     *scrappey.Client
	ownsClient bool
	tel        telemetry.API

	group  singleflight.Group
	mu     sync.Mutex
	handle string
	closed bool
	// creating is set while sessions.create is in flight, Close then leaves
	// the cleanup of the new handle and the client to the creating call.
	creating bool
}

func NewSession(cfg SessionConfig) (*Session, error) {
	api := cfg.Telemetry
	if api == nil {
		api = telemetry.SlogAPI{}
	}
	s := &Session{
		Headers:      map[string]string{},
		Cookies:      NewCookieJar(),
		Proxies:      map[string]string{},
		Params:       url.Values{},
		RequestType:  cfg.RequestType,
		Verify:       true,
		MaxRedirects: 30,
		TrustEnv:     true,

		client: cfg.Client,
		tel:    telemetry.NewScopedAPI("requests", api),
	}
	if s.client != nil {
		return s, nil
	}

	key, err := apiKeyFromEnv(cfg.APIKey)
	if err != nil {
		return nil, err
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = os.Getenv(BaseURLEnv)
	}
	client, err := scrappey.NewClient(scrappey.ClientOptions{
		APIKey:    key,
		BaseURL:   baseURL,
		Telemetry: api,
	})
	if err != nil {
		return nil, err
	}
	s.client = client
	s.ownsClient = true
	return s, nil
}

// WithSession creates a session, passes it to fn and closes it once fn returns.
func WithSession(ctx context.Context, cfg SessionConfig, fn func(ctx context.Context, s *Session) error) error {
	s, err := NewSession(cfg)
	if err != nil {
		return err
	}
	defer s.Close()
	return fn(ctx, s)
}

// Handle is the API session id, empty until the first request.
func (s *Session) Handle() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.handle
}

func (s *Session) ensureHandle(ctx context.Context) (string, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return "", errSessionClosed()
	}
	if s.handle != "" {
		handle := s.handle
		s.mu.Unlock()
		return handle, nil
	}
	s.mu.Unlock()

	handle, err, _ := s.group.Do("handle", func() (any, error) {
		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			return "", errSessionClosed()
		}
		if s.handle != "" {
			handle := s.handle
			s.mu.Unlock()
			return handle, nil
		}
		s.creating = true
		s.mu.Unlock()

		opts := &scrappey.SessionOptions{}
		if proxy := proxyFrom(s.Proxies); proxy != "" {
			opts.Proxy = scrappey.String(proxy)
		}
		res, err := s.client.CreateSession(ctx, opts)

		s.mu.Lock()
		s.creating = false
		closed := s.closed
		if !closed && err == nil && !res.IsError() {
			s.handle = res.Session
		}
		s.mu.Unlock()

		if closed {
			if err == nil && !res.IsError() && res.Session != "" {
				s.destroy(res.Session)
			}
			s.closeClient()
			return "", errSessionClosed()
		}
		if err != nil {
			return "", err
		}
		if res.IsError() {
			return "", scrappey.RemoteAPIError(&scrappey.Response{
				Data:  res.Data,
				Error: res.Error,
				Raw:   res.Raw,
			})
		}
		if res.Session == "" {
			return "", &scrappey.Error{
				Kind:    scrappey.ErrAPI,
				Message: "sessions.create returned no session id",
			}
		}

		s.tel.ReportDebug(report_session_create, "session", res.Session)
		return res.Session, nil
	})
	if err != nil {
		return "", err
	}
	return handle.(string), nil
}

// merge applies the session defaults under the request level options.
func (s *Session) merge(opts *RequestOptions) (*RequestOptions, error) {
	merged := RequestOptions{}
	if opts != nil {
		merged = *opts
	}

	headers := maps.Clone(s.Headers)
	if headers == nil {
		headers = map[string]string{}
	}
	maps.Copy(headers, merged.Headers)
	merged.Headers = headers

	cookies := s.Cookies.Clone()
	switch requestCookies := merged.Cookies.(type) {
	case nil:
	case map[string]string:
		cookies.UpdateMap(requestCookies)
	case *CookieJar:
		cookies.Update(requestCookies)
	default:
		return nil, scrappey.InvalidArgument("unsupported cookies type %T", requestCookies)
	}
	merged.Cookies = cookies

	params, err := toValues(merged.Params)
	if err != nil {
		return nil, err
	}
	sessionParams := url.Values{}
	for key, values := range s.Params {
		sessionParams[key] = values
	}
	maps.Copy(sessionParams, params)
	merged.Params = sessionParams

	if merged.Proxies == nil {
		merged.Proxies = s.Proxies
	}
	if merged.RequestType == "" {
		merged.RequestType = s.RequestType
	}
	if merged.Verify == nil && !s.Verify {
		merged.Verify = &s.Verify
	}
	if merged.Cert == "" {
		merged.Cert = s.Cert
	}
	if merged.Auth == nil {
		merged.Auth = s.Auth
	}
	return &merged, nil
}

// Request sends a request within the session, creating the API session first if needed.
func (s *Session) Request(ctx context.Context, method, url string, opts *RequestOptions) (*Response, error) {
	handle, err := s.ensureHandle(ctx)
	if err != nil {
		return nil, err
	}
	merged, err := s.merge(opts)
	if err != nil {
		return nil, err
	}
	res, err := performRequest(ctx, method, url, merged, target{
		client:  s.client,
		session: handle,
		tel:     s.tel,
	})
	if err != nil {
		return nil, err
	}
	s.Cookies.Update(res.Cookies)
	return res, nil
}

func (s *Session) Get(ctx context.Context, url string, opts *RequestOptions) (*Response, error) {
	return s.Request(ctx, http.MethodGet, url, opts)
}

func (s *Session) Post(ctx context.Context, url string, opts *RequestOptions) (*Response, error) {
	return s.Request(ctx, http.MethodPost, url, opts)
}

func (s *Session) Put(ctx context.Context, url string, opts *RequestOptions) (*Response, error) {
	return s.Request(ctx, http.MethodPut, url, opts)
}

func (s *Session) Patch(ctx context.Context, url string, opts *RequestOptions) (*Response, error) {
	return s.Request(ctx, http.MethodPatch, url, opts)
}

func (s *Session) Delete(ctx context.Context, url string, opts *RequestOptions) (*Response, error) {
	return s.Request(ctx, http.MethodDelete, url, opts)
}

func (s *Session) Head(ctx context.Context, url string, opts *RequestOptions) (*Response, error) {
	return s.Request(ctx, http.MethodHead, url, opts)
}

func (s *Session) Options(ctx context.Context, url string, opts *RequestOptions) (*Response, error) {
	return s.Request(ctx, http.MethodOptions, url, opts)
}

// Close destroys the API session and, if the session created it, closes
// the client. Failures are reported as warnings, Close always returns nil.
//
// A sessions.create still in flight is not waited for, its handle is
// destroyed as soon as it arrives.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	handle := s.handle
	s.handle = ""
	creating := s.creating
	s.mu.Unlock()

	if handle != "" {
		s.destroy(handle)
	}
	if !creating {
		s.closeClient()
	}
	return nil
}

func (s *Session) destroy(handle string) {
	res, err := s.client.DestroySession(context.Background(), handle)
	switch {
	case err != nil:
		s.tel.ReportWarning(report_session_close, "session", handle, "err", err)
	case res.IsError():
		s.tel.ReportWarning(report_session_close, "session", handle, "err", res.Error)
	}
}

func (s *Session) closeClient() {
	if !s.ownsClient {
		return
	}
	err := s.client.Close()
	if err != nil {
		s.tel.ReportWarning(report_session_close, "err", err)
	}
}

func errSessionClosed() error {
	return &scrappey.Error{Kind: scrappey.ErrClientClosed, Message: "session is closed"}
}

func (s *Session) String() string {
	handle := s.Handle()
	if handle == "" {
		handle = "not started"
	}
	return fmt.Sprintf("<Session [%s]>", handle)
}
