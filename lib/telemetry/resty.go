package telemetry

import (
	"context"
	"fmt"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

const (
	report_resty_request  = "resty.request"
	report_resty_response = "resty.response"
)

type instrumentResty struct {
	tel       API
	tracer    trace.Tracer
	redact    []string
	idcounter *uint64
}

// InstrumentResty attaches tracing and debug reporting to a resty client.
// Query parameters named in `redact` are masked in every reported url.
func InstrumentResty(client *resty.Client, tracerName string, tel API, redact ...string) {
	if tel == nil {
		tel = SlogAPI{}
	}
	var idcounter uint64
	i := instrumentResty{
		tel:       tel,
		tracer:    otel.Tracer(tracerName),
		redact:    redact,
		idcounter: &idcounter,
	}

	client.OnBeforeRequest(i.onBeforeRequest)
	client.OnAfterResponse(i.onAfterResponse)
	client.OnError(i.onError)
}

// RedactURL masks the values of the given query parameters.
func RedactURL(raw string, params ...string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "<unparsable url>"
	}
	if u.RawQuery == "" || len(params) == 0 {
		return raw
	}
	query := u.Query()
	for _, p := range params {
		if query.Has(p) {
			query.Set(p, "REDACTED")
		}
	}
	u.RawQuery = query.Encode()
	return u.String()
}

type reqCtxKeyType int

var reqCtxKey reqCtxKeyType

type reqCtx struct {
	id uint64
	// only the difference in time matters here
	startTime time.Time
}

func (i instrumentResty) onBeforeRequest(_ *resty.Client, req *resty.Request) error {
	ctx, _ := i.tracer.Start(req.Context(), fmt.Sprintf("http %s", req.Method))

	id := atomic.AddUint64(i.idcounter, 1)
	ctx = context.WithValue(ctx, reqCtxKey, reqCtx{
		id:        id,
		startTime: time.Now(),
	})
	i.tel.ReportDebug(report_resty_request, id, req.Method, RedactURL(req.URL, i.redact...))

	req.SetContext(ctx)
	return nil
}

func (i instrumentResty) onAfterResponse(_ *resty.Client, res *resty.Response) error {
	ctx := res.Request.Context()
	span := trace.SpanFromContext(ctx)
	defer span.End()

	redacted := RedactURL(res.Request.URL, i.redact...)
	span.SetAttributes(
		semconv.HTTPRequestMethodKey.String(res.Request.Method),
		semconv.URLFull(redacted),
		semconv.HTTPResponseStatusCode(res.StatusCode()),
	)

	rctx, ok := ctx.Value(reqCtxKey).(reqCtx)
	if !ok {
		i.tel.ReportDebug(report_resty_response, res.Status())
		return nil
	}
	i.tel.ReportDebug(
		report_resty_response,
		rctx.id,
		time.Since(rctx.startTime).String(),
		res.Status(),
	)
	return nil
}

func (i instrumentResty) onError(req *resty.Request, err error) {
	ctx := req.Context()
	span := trace.SpanFromContext(ctx)
	defer span.End()

	span.RecordError(err)
	span.SetStatus(codes.Error, "request failed")

	redacted := RedactURL(req.URL, i.redact...)
	span.SetAttributes(
		semconv.HTTPRequestMethodKey.String(req.Method),
		semconv.URLFull(redacted),
	)

	var duration time.Duration
	if rctx, ok := ctx.Value(reqCtxKey).(reqCtx); ok {
		duration = time.Since(rctx.startTime)
	}
	i.tel.ReportDebug(
		report_resty_response,
		req.Method,
		redacted,
		duration.String(),
		err,
	)
}
