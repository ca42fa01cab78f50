package testutil

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/pim97/scrappey-go/lib/telemetry"
)

// Call is one command received by a FakeVendor.
type Call struct {
	Path     string
	Key      string
	Envelope map[string]any
}

// Cmd returns the "cmd" field of the envelope.
func (c Call) Cmd() string {
	cmd, _ := c.Envelope["cmd"].(string)
	return cmd
}

// Responder produces the status and body answered to a call. A string or
// []byte body is written as is, anything else is encoded as JSON.
type Responder func(call Call) (status int, body any)

// FakeVendor is an in-process stand-in for the scraping API that
// records every envelope it receives.
type FakeVendor struct {
	Server *httptest.Server

	mu        sync.Mutex
	calls     []Call
	responder Responder
}

type VendorParams struct {
	Name string
	// if unspecified, every call is answered with a successful 200 solution
	Responder Responder
}

func SetupVendor(t testing.TB, params VendorParams) (*FakeVendor, func()) {
	cleanupTelemetry := telemetry.SetupForTesting(fmt.Sprintf("test:%s", params.Name))

	vendor := &FakeVendor{responder: params.Responder}
	if vendor.responder == nil {
		vendor.responder = SolutionResponder(200, "<html></html>")
	}
	vendor.Server = httptest.NewServer(http.HandlerFunc(vendor.serve))

	return vendor, func() {
		vendor.Server.Close()
		cleanupTelemetry()
	}
}

func (v *FakeVendor) serve(w http.ResponseWriter, r *http.Request) {
	call := Call{
		Path: r.URL.Path,
		Key:  r.URL.Query().Get("key"),
	}
	body, err := io.ReadAll(r.Body)
	if err == nil {
		_ = json.Unmarshal(body, &call.Envelope)
	}

	v.mu.Lock()
	v.calls = append(v.calls, call)
	responder := v.responder
	v.mu.Unlock()

	status, out := responder(call)
	var payload []byte
	switch out := out.(type) {
	case string:
		payload = []byte(out)
	case []byte:
		payload = out
	default:
		payload, err = json.Marshal(out)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	}
	w.Header().Set("content-type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(payload)
}

// URL is the base url to configure clients with.
func (v *FakeVendor) URL() string {
	return v.Server.URL + "/api/v1"
}

// Respond replaces the responder for subsequent calls.
func (v *FakeVendor) Respond(responder Responder) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.responder = responder
}

// RespondJSON answers every subsequent call with `body`.
func (v *FakeVendor) RespondJSON(status int, body any) {
	v.Respond(func(Call) (int, any) {
		return status, body
	})
}

func (v *FakeVendor) Calls() []Call {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]Call, len(v.calls))
	copy(out, v.calls)
	return out
}

// LastCall fails the test if nothing was received.
func (v *FakeVendor) LastCall(t testing.TB) Call {
	t.Helper()
	calls := v.Calls()
	if len(calls) == 0 {
		t.Fatal("fake vendor received no calls")
	}
	return calls[len(calls)-1]
}

// SolutionResponder answers with a successful solution carrying the page `status` and `body`.
func SolutionResponder(status int, body string) Responder {
	return func(call Call) (int, any) {
		return http.StatusOK, map[string]any{
			"data": "success",
			"solution": map[string]any{
				"verified":   true,
				"statusCode": status,
				"response":   body,
				"currentUrl": call.Envelope["url"],
			},
			"timeElapsed": 1200,
			"session":     call.Envelope["session"],
		}
	}
}

// Report is one report received by RecordingAPI.
type Report struct {
	// Level is "broken", "warning", "debug" or "count".
	Level  string
	ID     string
	Params []any
}

// RecordingAPI is a telemetry.API that keeps every report for later assertions.
type RecordingAPI struct {
	mu      sync.Mutex
	reports []Report
}

var _ telemetry.API = (*RecordingAPI)(nil)

func (r *RecordingAPI) record(level, id string, params []any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports = append(r.reports, Report{Level: level, ID: id, Params: params})
}

func (r *RecordingAPI) ReportBroken(id string, params ...any) {
	r.record("broken", id, params)
}

func (r *RecordingAPI) ReportWarning(id string, params ...any) {
	r.record("warning", id, params)
}

func (r *RecordingAPI) ReportDebug(msg string, params ...any) {
	r.record("debug", msg, params)
}

func (r *RecordingAPI) ReportCount(id string, count int64) {
	r.record("count", id, []any{count})
}

// Reports returns the reports of the given level.
func (r *RecordingAPI) Reports(level string) []Report {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Report
	for _, report := range r.reports {
		if report.Level == level {
			out = append(out, report)
		}
	}
	return out
}

// Warnings returns the ids of every warning, in order.
func (r *RecordingAPI) Warnings() []string {
	var ids []string
	for _, report := range r.Reports("warning") {
		ids = append(ids, report.ID)
	}
	return ids
}
