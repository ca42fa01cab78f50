// Package requests mirrors the surface of a conventional HTTP client library
// (verbs, sessions, cookie jars and response objects) on top of the scraping API.
package requests

import (
	"context"
	"net/http"
	"os"

	"github.com/pim97/scrappey-go/lib/scrappey"
	"github.com/pim97/scrappey-go/lib/telemetry"
)

const (
	// APIKeyEnv is read when no API key is given explicitly.
	APIKeyEnv = "SCRAPPEY_API_KEY"
	// BaseURLEnv optionally overrides the API endpoint.
	BaseURLEnv = "SCRAPPEY_BASE_URL"
)

var tel = telemetry.NewScopedAPI("requests", telemetry.SlogAPI{})

func apiKeyFromEnv(explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	key := os.Getenv(APIKeyEnv)
	if key == "" {
		return "", scrappey.InvalidArgument("API key required, set %s or pass one explicitly", APIKeyEnv)
	}
	return key, nil
}

// Request sends a single request through a client created for this call
// only and closed before returning. Every call pays for a new connection,
// prefer a Requester or a Session for more than one request.
func Request(ctx context.Context, method, url string, opts *RequestOptions) (*Response, error) {
	key, err := apiKeyFromEnv("")
	if err != nil {
		return nil, err
	}
	client, err := scrappey.NewClient(scrappey.ClientOptions{
		APIKey:    key,
		BaseURL:   os.Getenv(BaseURLEnv),
		Telemetry: tel,
	})
	if err != nil {
		return nil, err
	}
	defer client.Close()

	return performRequest(ctx, method, url, opts, target{client: client, tel: tel})
}

func Get(ctx context.Context, url string, opts *RequestOptions) (*Response, error) {
	return Request(ctx, http.MethodGet, url, opts)
}

func Post(ctx context.Context, url string, opts *RequestOptions) (*Response, error) {
	return Request(ctx, http.MethodPost, url, opts)
}

func Put(ctx context.Context, url string, opts *RequestOptions) (*Response, error) {
	return Request(ctx, http.MethodPut, url, opts)
}

func Patch(ctx context.Context, url string, opts *RequestOptions) (*Response, error) {
	return Request(ctx, http.MethodPatch, url, opts)
}

func Delete(ctx context.Context, url string, opts *RequestOptions) (*Response, error) {
	return Request(ctx, http.MethodDelete, url, opts)
}

// Head is sent as a GET, the API has no HEAD command.
func Head(ctx context.Context, url string, opts *RequestOptions) (*Response, error) {
	return Request(ctx, http.MethodHead, url, opts)
}

// Options is sent as a GET, the API has no OPTIONS command.
func Options(ctx context.Context, url string, opts *RequestOptions) (*Response, error) {
	return Request(ctx, http.MethodOptions, url, opts)
}

// Requester sends conventional requests through a client owned by the caller.
type Requester struct {
	client *scrappey.Client
	tel    telemetry.API
}

// NewRequester wraps `client`, `api` receives the warnings about
// unsupported options and defaults to slog.
func NewRequester(client *scrappey.Client, api telemetry.API) *Requester {
	return &Requester{
		client: client,
		tel:    telemetry.NewScopedAPI("requests", api),
	}
}

func (r *Requester) Request(ctx context.Context, method, url string, opts *RequestOptions) (*Response, error) {
	return performRequest(ctx, method, url, opts, target{client: r.client, tel: r.tel})
}

func (r *Requester) Get(ctx context.Context, url string, opts *RequestOptions) (*Response, error) {
	return r.Request(ctx, http.MethodGet, url, opts)
}

func (r *Requester) Post(ctx context.Context, url string, opts *RequestOptions) (*Response, error) {
	return r.Request(ctx, http.MethodPost, url, opts)
}

func (r *Requester) Put(ctx context.Context, url string, opts *RequestOptions) (*Response, error) {
	return r.Request(ctx, http.MethodPut, url, opts)
}

func (r *Requester) Patch(ctx context.Context, url string, opts *RequestOptions) (*Response, error) {
	return r.Request(ctx, http.MethodPatch, url, opts)
}

func (r *Requester) Delete(ctx context.Context, url string, opts *RequestOptions) (*Response, error) {
	return r.Request(ctx, http.MethodDelete, url, opts)
}

func (r *Requester) Head(ctx context.Context, url string, opts *RequestOptions) (*Response, error) {
	return r.Request(ctx, http.MethodHead, url, opts)
}

func (r *Requester) Options(ctx context.Context, url string, opts *RequestOptions) (*Response, error) {
	return r.Request(ctx, http.MethodOptions, url, opts)
}
