package scrappey

import (
	"errors"
	"fmt"
)

// Error kinds, match them with errors.Is.
var (
	// ErrInvalidArgument indicates a missing or malformed parameter.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrAuthentication indicates an empty or rejected API key.
	ErrAuthentication = errors.New("authentication failed")
	// ErrConnection indicates the API could not be reached.
	ErrConnection = errors.New("connection failed")
	// ErrTimeout indicates the configured timeout was exceeded.
	ErrTimeout = errors.New("timed out")
	// ErrAPI indicates a transport level failure or an undecodable response body.
	ErrAPI = errors.New("api failure")
	// ErrRemoteAPI indicates the API answered with data "error".
	ErrRemoteAPI = errors.New("remote api error")
	// ErrDecode indicates a response body that is not valid JSON.
	ErrDecode = errors.New("decode failure")
	// ErrHTTPStatus indicates a scraped page answered with a 4xx or 5xx status.
	ErrHTTPStatus = errors.New("http status")
	// ErrClientClosed indicates a call on a client after Close.
	ErrClientClosed = errors.New("client closed")
)

// Error carries the kind of a failure along with whatever diagnostics
// were available when it happened.
type Error struct {
	// Kind is one of the Err* sentinels of this package.
	Kind    error
	Message string
	// StatusCode is the HTTP status of the API response, 0 if there was none.
	StatusCode int
	// Response is the decoded API response, if one was received.
	Response *Response
	// Err is the underlying cause.
	Err error
}

func newError(kind error, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Err: cause}
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	message := e.Message
	if message == "" && e.Kind != nil {
		message = e.Kind.Error()
	}
	if e.StatusCode != 0 {
		message = fmt.Sprintf("%s (HTTP %d)", message, e.StatusCode)
	}
	if e.Err != nil {
		message = fmt.Sprintf("%s: %s", message, e.Err.Error())
	}
	return message
}

func (e *Error) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// InvalidArgument builds an ErrInvalidArgument error.
func InvalidArgument(format string, args ...any) *Error {
	return newError(ErrInvalidArgument, fmt.Sprintf(format, args...), nil)
}

// RemoteAPIError builds the error returned when the API answers with data "error".
func RemoteAPIError(res *Response) *Error {
	message := "Unknown error"
	if res != nil && res.Error != "" {
		message = res.Error
	}
	return &Error{
		Kind:     ErrRemoteAPI,
		Message:  fmt.Sprintf("scrappey error: %s", message),
		Response: res,
	}
}
