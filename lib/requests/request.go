package requests

import (
	"context"
	"maps"
	"net/http"
	"strings"

	"github.com/pim97/scrappey-go/lib/scrappey"
	"github.com/pim97/scrappey-go/lib/telemetry"
)

const (
	report_unsupported_option = "unsupported_option"
	report_approximate_method = "approximate_method"
)

// target is where performRequest sends to.
type target struct {
	client *scrappey.Client
	// session is the handle attached to the request, empty for none.
	session string
	tel     telemetry.API
}

func warnUnsupported(tel telemetry.API, opts *RequestOptions) {
	warn := func(option, detail string) {
		tel.ReportWarning(report_unsupported_option, "option", option, "detail", detail)
	}
	if opts.Files != nil {
		warn("files", "file uploads are not supported and are ignored")
	}
	if opts.Auth != nil {
		warn("auth", "auth is not supported, set an Authorization header instead")
	}
	if opts.Stream {
		warn("stream", "streaming is not supported, the content is returned in full")
	}
	if opts.Verify != nil && !*opts.Verify {
		warn("verify", "tls verification is handled by the API")
	}
	if opts.Cert != "" {
		warn("cert", "client certificates are not supported")
	}
	if opts.AllowRedirects != nil && !*opts.AllowRedirects {
		warn("allow_redirects", "redirects are always followed by the API")
	}
	if opts.Hooks != nil {
		warn("hooks", "hooks are not supported")
	}
}

func hasBody(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
		return true
	}
	return false
}

// performRequest translates a conventional request into an API command.
func performRequest(ctx context.Context, method, rawURL string, opts *RequestOptions, t target) (*Response, error) {
	if opts == nil {
		opts = &RequestOptions{}
	}
	if t.tel == nil {
		t.tel = telemetry.SlogAPI{}
	}
	method = strings.ToUpper(strings.TrimSpace(method))
	if method == "" {
		return nil, scrappey.InvalidArgument("method is required")
	}
	warnUnsupported(t.tel, opts)

	params, err := toValues(opts.Params)
	if err != nil {
		return nil, err
	}
	fullURL, err := withParams(rawURL, params)
	if err != nil {
		return nil, err
	}

	options := &scrappey.RequestOptions{Extra: opts.Extra}
	if opts.RequestType != "" {
		options.RequestType = scrappey.String(opts.RequestType)
	}
	if t.session != "" {
		options.Session = scrappey.String(t.session)
	}
	if len(opts.Headers) > 0 {
		options.CustomHeaders = maps.Clone(opts.Headers)
	}
	cookies, err := cookieString(opts.Cookies)
	if err != nil {
		return nil, err
	}
	if cookies != "" {
		options.Cookies = scrappey.String(cookies)
	}
	if proxy := proxyFrom(opts.Proxies); proxy != "" {
		options.Proxy = scrappey.String(proxy)
	}
	if opts.Timeout != nil {
		options.Timeout = scrappey.Int(opts.Timeout.millis())
	}
	if hasBody(method) {
		if opts.JSON != nil {
			options.PostData = opts.JSON
		} else {
			body, ok, err := formBody(opts.Data)
			if err != nil {
				return nil, err
			}
			if ok {
				options.PostData = body
			}
		}
	}

	prepared := newPreparedRequest(method, fullURL, maps.Clone(opts.Headers), options.PostData)

	var res *scrappey.Response
	switch method {
	case http.MethodGet:
		res, err = t.client.Get(ctx, fullURL, options)
	case http.MethodPost:
		res, err = t.client.Post(ctx, fullURL, options)
	case http.MethodPut:
		res, err = t.client.Put(ctx, fullURL, options)
	case http.MethodPatch:
		res, err = t.client.Patch(ctx, fullURL, options)
	case http.MethodDelete:
		res, err = t.client.Delete(ctx, fullURL, options)
	case http.MethodHead, http.MethodOptions:
		t.tel.ReportWarning(
			report_approximate_method,
			"method", method,
			"detail", "the API has no such command, a GET is sent instead",
		)
		res, err = t.client.Get(ctx, fullURL, options)
	default:
		fields := options.Envelope(fullURL)
		fields["cmd"] = "request." + strings.ToLower(method)
		res, err = t.client.Request(ctx, fields)
	}
	if err != nil {
		return nil, err
	}
	if res.IsError() {
		return nil, scrappey.RemoteAPIError(res)
	}
	return NewResponse(res, prepared), nil
}
