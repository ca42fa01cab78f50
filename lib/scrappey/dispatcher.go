package scrappey

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net"
	"net/http"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/pim97/scrappey-go/lib/restyutil"
	"github.com/pim97/scrappey-go/lib/telemetry"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL = "https://publisher.scrappey.com/api/v1"
	DefaultTimeout = 5 * time.Minute
)

const (
	report_dispatcher_send   = "send"
	report_dispatcher_decode = "decode"
)

var tracer = otel.Tracer("scrappey")
var meter = otel.Meter("scrappey")

var dispatchCalls, _ = meter.Int64Counter(
	"scrappey.dispatch.calls",
	metric.WithDescription("The total amount of commands sent to the API, by command and outcome."),
)

// Dispatcher sends one command to the API and decodes the answer.
type Dispatcher interface {
	Send(ctx context.Context, cmd string, fields Fields) (*Response, error)
	Close() error
}

type ClientOptions struct {
	APIKey string
	// BaseURL defaults to DefaultBaseURL, trailing slashes are ignored.
	BaseURL string
	// Timeout bounds every API call, it defaults to DefaultTimeout.
	Timeout time.Duration
	// RateLimit is the maximum amount of API calls per second, 0 means unlimited.
	RateLimit float64
	// CloudflareTransport wraps the transport with a cloudflare friendly TLS configuration.
	CloudflareTransport bool
	UserAgent           string
	// Telemetry defaults to slog.
	Telemetry telemetry.API
	// DebugOutput receives a dump of every API round trip, the API key is redacted.
	DebugOutput restyutil.InstrumentOutput
}

// HTTPDispatcher is a Dispatcher that POSTs JSON envelopes over HTTP.
type HTTPDispatcher struct {
	client   *resty.Client
	endpoint string
	tel      telemetry.API
	closed   atomic.Bool
}

func NewHTTPDispatcher(opts ClientOptions) (*HTTPDispatcher, error) {
	if opts.APIKey == "" {
		return nil, newError(ErrAuthentication, "API key is required", nil)
	}
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = "scrappey-go"
	}

	tel := telemetry.NewScopedAPI("dispatcher", opts.Telemetry)

	client := resty.New()
	client.SetTimeout(timeout)
	client.SetRetryCount(0)
	client.SetHeader("content-type", "application/json")
	client.SetHeader("user-agent", userAgent)
	if opts.CloudflareTransport {
		client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)
	}
	if opts.RateLimit > 0 {
		burst := int(math.Ceil(opts.RateLimit))
		limiter := rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
		client.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
			return limiter.Wait(req.Context())
		})
	}
	telemetry.InstrumentResty(client, "scrappey/http", tel, "key")
	restyutil.InstrumentClient(client, opts.DebugOutput, "key")

	return &HTTPDispatcher{
		client:   client,
		endpoint: strings.TrimRight(baseURL, "/") + "?key=" + opts.APIKey,
		tel:      tel,
	}, nil
}

func (d *HTTPDispatcher) Send(ctx context.Context, cmd string, fields Fields) (res *Response, err error) {
	ctx, span := tracer.Start(ctx, "dispatcher:Send")
	defer span.End()
	span.SetAttributes(attribute.String("scrappey.cmd", cmd))

	defer func() {
		outcome := "success"
		switch {
		case err != nil:
			outcome = "failure"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		case res.IsError():
			outcome = "remote_error"
		}
		dispatchCalls.Add(ctx, 1, metric.WithAttributes(
			attribute.String("cmd", cmd),
			attribute.String("outcome", outcome),
		))
		d.tel.ReportDebug(report_dispatcher_send, "cmd", cmd, "outcome", outcome)
	}()

	if d.closed.Load() {
		return nil, newError(ErrClientClosed, "client is closed", nil)
	}
	if cmd == "" {
		return nil, InvalidArgument("cmd must not be empty")
	}

	envelope := fields.Clone()
	envelope["cmd"] = cmd
	payload, err := json.Marshal(envelope)
	if err != nil {
		return nil, newError(ErrInvalidArgument, "failed to encode request", err)
	}

	raw, err := d.client.R().
		SetContext(ctx).
		SetBody(payload).
		Post(d.endpoint)
	if err != nil {
		return nil, classifyTransportError(err)
	}

	if raw.StatusCode() == http.StatusUnauthorized {
		return nil, &Error{
			Kind:       ErrAuthentication,
			Message:    "invalid API key",
			StatusCode: http.StatusUnauthorized,
		}
	}

	res, err = decodeResponse(raw.Body())
	if err != nil {
		d.tel.ReportBroken(report_dispatcher_decode, "status", raw.StatusCode(), "err", err)
		return nil, &Error{
			Kind:       ErrAPI,
			Message:    "failed to parse API response",
			StatusCode: raw.StatusCode(),
			Err:        err,
		}
	}
	return res, nil
}

// Close releases pooled connections, later sends fail with ErrClientClosed.
func (d *HTTPDispatcher) Close() error {
	if d.closed.Swap(true) {
		return nil
	}
	d.client.GetClient().CloseIdleConnections()
	return nil
}

func classifyTransportError(err error) *Error {
	switch {
	case isConnectionFailure(err):
		return newError(ErrConnection, "failed to connect to the API", err)
	case isTimeout(err):
		return newError(ErrTimeout, "request timed out", err)
	default:
		return newError(ErrAPI, "http error", err)
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func isConnectionFailure(err error) bool {
	if isTimeout(err) {
		return false
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return true
	}
	return errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ENETUNREACH) ||
		errors.Is(err, syscall.EHOSTUNREACH)
}
