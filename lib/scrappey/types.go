package scrappey

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

const (
	DataSuccess = "success"
	DataError   = "error"
)

// Response is the body the API answers every command with.
//
// Which fields are populated depends on the command, every one of them is optional.
// Raw always holds the complete decoded object, including fields this type does not model.
type Response struct {
	// Data is "success" or "error".
	Data     string    `json:"data,omitempty"`
	Solution *Solution `json:"solution,omitempty"`
	// TimeElapsed is in milliseconds.
	TimeElapsed float64 `json:"timeElapsed,omitempty"`
	Session     string  `json:"session,omitempty"`
	Error       string  `json:"error,omitempty"`
	Info        string  `json:"info,omitempty"`

	Raw map[string]any `json:"-"`

	body []byte
}

// IsError reports whether the API flagged the command as failed.
func (r *Response) IsError() bool {
	return r != nil && r.Data == DataError
}

// HasSolution reports whether a solution object was returned.
func (r *Response) HasSolution() bool {
	return r != nil && r.Solution != nil
}

// Decode decodes the full response body into v, useful for fields
// that are not modelled by Response.
func (r *Response) Decode(v any) error {
	body := r.body
	if body == nil {
		var err error
		body, err = json.Marshal(r.Raw)
		if err != nil {
			return err
		}
	}
	return json.Unmarshal(body, v)
}

// decodeResponse decodes an API body, it fails if the body is not a JSON object.
func decodeResponse(body []byte) (*Response, error) {
	var raw map[string]any
	err := json.Unmarshal(body, &raw)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, fmt.Errorf("response body is not a json object")
	}
	// A modelled field of an unexpected type is left at its zero value, the
	// decoder still fills every other field and Raw keeps the original.
	res := &Response{}
	err = json.Unmarshal(body, res)
	var typeErr *json.UnmarshalTypeError
	if err != nil && !errors.As(err, &typeErr) {
		return nil, err
	}
	res.Raw = raw
	res.body = body
	return res, nil
}

// NewResponse builds a Response out of an already decoded body.
func NewResponse(raw map[string]any) (*Response, error) {
	body, err := json.Marshal(raw)
	if err != nil {
		return nil, err
	}
	return decodeResponse(body)
}

type Solution struct {
	Verified *bool `json:"verified,omitempty"`

	// Type is "browser" or "request".
	Type            string         `json:"type,omitempty"`
	Response        string         `json:"response,omitempty"`
	StatusCode      int            `json:"statusCode,omitempty"`
	CurrentURL      string         `json:"currentUrl,omitempty"`
	UserAgent       string         `json:"userAgent,omitempty"`
	Cookies         []Cookie       `json:"cookies,omitempty"`
	CookieString    string         `json:"cookieString,omitempty"`
	ResponseHeaders Header         `json:"responseHeaders,omitempty"`
	RequestHeaders  Header         `json:"requestHeaders,omitempty"`
	RequestBody     string         `json:"requestBody,omitempty"`
	Method          string         `json:"method,omitempty"`
	IPInfo          *IPInfo        `json:"ipInfo,omitempty"`
	InnerText       string         `json:"innerText,omitempty"`
	LocalStorage    map[string]any `json:"localStorageData,omitempty"`

	Screenshot    string `json:"screenshot,omitempty"`
	ScreenshotURL string `json:"screenshotUrl,omitempty"`
	VideoURL      string `json:"videoUrl,omitempty"`

	InterceptFetchRequestResponse json.RawMessage     `json:"interceptFetchRequestResponse,omitempty"`
	JavascriptReturn              []any               `json:"javascriptReturn,omitempty"`
	Base64Response                string              `json:"base64Response,omitempty"`
	ListAllRedirectsResponse      []string            `json:"listAllRedirectsResponse,omitempty"`
	AdditionalCost                float64             `json:"additionalCost,omitempty"`
	WSEndpoint                    string              `json:"wsEndpoint,omitempty"`
	DetectedAntibotProviders      *AntibotProviders   `json:"detectedAntibotProviders,omitempty"`
	CaptchaSolveResult            *CaptchaSolveResult `json:"captchaSolveResult,omitempty"`
	Autoparse                     map[string]any      `json:"autoparse,omitempty"`
	AbortOnDetectionResponse      []map[string]any    `json:"abortOnDetectionResponse,omitempty"`
}

// ScreenshotBytes decodes the base64 screenshot, a data url prefix is tolerated.
func (s *Solution) ScreenshotBytes() ([]byte, error) {
	if s == nil || s.Screenshot == "" {
		return nil, InvalidArgument("solution carries no screenshot")
	}
	data := s.Screenshot
	if strings.HasPrefix(data, "data:") {
		_, after, found := strings.Cut(data, ",")
		if found {
			data = after
		}
	}
	return base64.StdEncoding.DecodeString(data)
}

type IPInfo struct {
	IP       string `json:"ip,omitempty"`
	Country  string `json:"country,omitempty"`
	City     string `json:"city,omitempty"`
	Region   string `json:"region,omitempty"`
	Timezone string `json:"timezone,omitempty"`
	ISP      string `json:"isp,omitempty"`
}

type AntibotProviders struct {
	Providers       []string           `json:"providers,omitempty"`
	Confidence      map[string]float64 `json:"confidence,omitempty"`
	PrimaryProvider string             `json:"primaryProvider,omitempty"`
}

type CaptchaSolveResult struct {
	Type      string  `json:"type,omitempty"`
	Status    string  `json:"status,omitempty"`
	TimeTaken float64 `json:"timeTaken,omitempty"`
}

// Cookie is a cookie reported by the API. The API sends either objects
// (keyed by "name" or "key") or plain "name=value" strings, both decode here.
type Cookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain,omitempty"`
	Path     string  `json:"path,omitempty"`
	Expires  float64 `json:"expires,omitempty"`
	HTTPOnly bool    `json:"httpOnly,omitempty"`
	Secure   bool    `json:"secure,omitempty"`
	SameSite string  `json:"sameSite,omitempty"`
}

func (c *Cookie) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}

	switch data[0] {
	case '"':
		var pair string
		err := json.Unmarshal(data, &pair)
		if err != nil {
			return err
		}
		name, value, found := strings.Cut(pair, "=")
		if !found {
			return nil
		}
		*c = Cookie{Name: name, Value: value}
		return nil
	case '{':
		var obj struct {
			Name     string          `json:"name"`
			Key      string          `json:"key"`
			Value    json.RawMessage `json:"value"`
			Domain   string          `json:"domain"`
			Path     string          `json:"path"`
			Expires  float64         `json:"expires"`
			HTTPOnly bool            `json:"httpOnly"`
			Secure   bool            `json:"secure"`
			SameSite string          `json:"sameSite"`
		}
		err := json.Unmarshal(data, &obj)
		var typeErr *json.UnmarshalTypeError
		if err != nil && !errors.As(err, &typeErr) {
			return err
		}
		name := obj.Name
		if name == "" {
			name = obj.Key
		}
		*c = Cookie{
			Name:     name,
			Value:    scalarString(obj.Value),
			Domain:   obj.Domain,
			Path:     obj.Path,
			Expires:  obj.Expires,
			HTTPOnly: obj.HTTPOnly,
			Secure:   obj.Secure,
			SameSite: obj.SameSite,
		}
		return nil
	}
	// anything else carries no usable cookie
	return nil
}

// HeaderField is one header as reported by the API.
type HeaderField struct {
	Name  string
	Value string
}

// Header is a header mapping that keeps the order the API sent it in,
// so that "last value wins" stays meaningful for duplicate names.
type Header []HeaderField

// Get returns the last value whose name matches case-insensitively.
func (h Header) Get(name string) string {
	value := ""
	for _, f := range h {
		if strings.EqualFold(f.Name, name) {
			value = f.Value
		}
	}
	return value
}

func (h *Header) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*h = nil
		return nil
	}
	// anything but an object carries no usable headers
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		*h = nil
		return nil
	}

	fields := Header{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name, ok := tok.(string)
		if !ok {
			return fmt.Errorf("headers: expected name, got %v", tok)
		}
		var value json.RawMessage
		err = dec.Decode(&value)
		if err != nil {
			return err
		}
		fields = append(fields, HeaderField{Name: name, Value: headerValue(value)})
	}
	*h = fields
	return nil
}

func (h Header) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range h {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, err := json.Marshal(f.Name)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(f.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(name)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// headerValue flattens a header value, lists are joined the way
// repeated HTTP headers are.
func headerValue(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '[' {
		var list []json.RawMessage
		if json.Unmarshal(raw, &list) == nil {
			parts := make([]string, 0, len(list))
			for _, item := range list {
				parts = append(parts, scalarString(item))
			}
			return strings.Join(parts, ", ")
		}
	}
	return scalarString(raw)
}

func scalarString(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	if raw[0] == '"' {
		var s string
		if json.Unmarshal(raw, &s) == nil {
			return s
		}
	}
	return string(raw)
}

// SessionCreateResponse is the answer to sessions.create.
type SessionCreateResponse struct {
	Data        string         `json:"data,omitempty"`
	Session     string         `json:"session,omitempty"`
	Fingerprint map[string]any `json:"fingerprint,omitempty"`
	Context     map[string]any `json:"context,omitempty"`
	Error       string         `json:"error,omitempty"`
	TimeElapsed float64        `json:"timeElapsed,omitempty"`

	Raw map[string]any `json:"-"`
}

// IsError reports whether the API flagged the command as failed.
func (r *SessionCreateResponse) IsError() bool {
	return r != nil && r.Data == DataError
}

type SessionInfo struct {
	Session      string `json:"session"`
	LastAccessed int64  `json:"lastAccessed,omitempty"`
}

// SessionListResponse is the answer to sessions.list.
type SessionListResponse struct {
	Sessions    []SessionInfo `json:"sessions,omitempty"`
	Open        int           `json:"open,omitempty"`
	Limit       int           `json:"limit,omitempty"`
	TimeElapsed float64       `json:"timeElapsed,omitempty"`

	Raw map[string]any `json:"-"`
}
