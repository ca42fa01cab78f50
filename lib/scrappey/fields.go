package scrappey

import (
	"maps"
	"slices"
)

// Fields is the flat payload of a command, keys are forwarded to the API verbatim.
type Fields map[string]any

// Clone returns a shallow copy, a nil receiver yields an empty map.
func (f Fields) Clone() Fields {
	out := make(Fields, len(f)+1)
	maps.Copy(out, f)
	return out
}

// RequestOptions are the optional parameters of the request.* commands.
// Nil fields are left out of the payload entirely.
type RequestOptions struct {
	// RequestType is "browser" or "request".
	RequestType  *string
	Session      *string
	Proxy        *string
	ProxyCountry *string
	PremiumProxy *bool
	MobileProxy  *bool

	BrowserActions             []BrowserAction
	AutomaticallySolveCaptchas *bool
	CloudflareBypass           *bool
	DatadomeBypass             *bool
	KasadaBypass               *bool

	Screenshot       *bool
	ScreenshotWidth  *int
	ScreenshotHeight *int
	Video            *bool
	CSSSelector      *string
	InnerText        *bool

	// PostData is a form string or a value marshalled to JSON.
	PostData      any
	CustomHeaders map[string]string
	// Cookies is a "name=value; name2=value2" string.
	Cookies   *string
	Referer   *string
	UserAgent *string

	// Timeout is in milliseconds, it bounds the work done by the API.
	Timeout *int
	Retries *int

	// Extra is merged into the payload first, named fields win on collision.
	Extra Fields
}

func setString(fields Fields, key string, value *string) {
	if value != nil {
		fields[key] = *value
	}
}

func setBool(fields Fields, key string, value *bool) {
	if value != nil {
		fields[key] = *value
	}
}

func setInt(fields Fields, key string, value *int) {
	if value != nil {
		fields[key] = *value
	}
}

// Envelope returns the payload fields these options produce for `url`,
// without the "cmd" field.
func (o *RequestOptions) Envelope(url string) Fields {
	var out Fields
	if o == nil {
		out = Fields{}
	} else {
		out = o.Extra.Clone()
	}
	out["url"] = url
	if o == nil {
		return out
	}

	setString(out, "requestType", o.RequestType)
	setString(out, "session", o.Session)
	setString(out, "proxy", o.Proxy)
	setString(out, "proxyCountry", o.ProxyCountry)
	setBool(out, "premiumProxy", o.PremiumProxy)
	setBool(out, "mobileProxy", o.MobileProxy)
	if o.BrowserActions != nil {
		out["browserActions"] = slices.Clone(o.BrowserActions)
	}
	setBool(out, "automaticallySolveCaptchas", o.AutomaticallySolveCaptchas)
	setBool(out, "cloudflareBypass", o.CloudflareBypass)
	setBool(out, "datadomeBypass", o.DatadomeBypass)
	setBool(out, "kasadaBypass", o.KasadaBypass)
	setBool(out, "screenshot", o.Screenshot)
	setInt(out, "screenshotWidth", o.ScreenshotWidth)
	setInt(out, "screenshotHeight", o.ScreenshotHeight)
	setBool(out, "video", o.Video)
	setString(out, "cssSelector", o.CSSSelector)
	setBool(out, "innerText", o.InnerText)
	if o.PostData != nil {
		out["postData"] = o.PostData
	}
	if o.CustomHeaders != nil {
		out["customHeaders"] = maps.Clone(o.CustomHeaders)
	}
	setString(out, "cookies", o.Cookies)
	setString(out, "referer", o.Referer)
	setString(out, "userAgent", o.UserAgent)
	setInt(out, "timeout", o.Timeout)
	setInt(out, "retries", o.Retries)
	return out
}

// BrowserSpec constrains the browser a session fingerprint is generated for.
type BrowserSpec struct {
	Name       string `json:"name"`
	MinVersion int    `json:"minVersion,omitempty"`
	MaxVersion int    `json:"maxVersion,omitempty"`
}

// SessionOptions are the optional parameters of sessions.create.
type SessionOptions struct {
	// Session requests a specific session id.
	Session      *string
	Proxy        *string
	ProxyCountry *string
	PremiumProxy *bool
	MobileProxy  *bool
	Browser      []BrowserSpec
	UserAgent    *string
	Locales      []string

	Extra Fields
}

func (o *SessionOptions) fields() Fields {
	if o == nil {
		return Fields{}
	}
	out := o.Extra.Clone()
	setString(out, "session", o.Session)
	setString(out, "proxy", o.Proxy)
	setString(out, "proxyCountry", o.ProxyCountry)
	setBool(out, "premiumProxy", o.PremiumProxy)
	setBool(out, "mobileProxy", o.MobileProxy)
	if o.Browser != nil {
		out["browser"] = slices.Clone(o.Browser)
	}
	setString(out, "userAgent", o.UserAgent)
	if o.Locales != nil {
		out["locales"] = slices.Clone(o.Locales)
	}
	return out
}

// ScreenshotOptions are the optional parameters of Screenshot.
type ScreenshotOptions struct {
	Width          *int
	Height         *int
	Session        *string
	BrowserActions []BrowserAction

	Extra Fields
}

func (o *ScreenshotOptions) fields(url string) Fields {
	var out Fields
	if o == nil {
		out = Fields{}
	} else {
		out = o.Extra.Clone()
	}
	out["url"] = url
	out["screenshot"] = true
	if o == nil {
		return out
	}
	setInt(out, "screenshotWidth", o.Width)
	setInt(out, "screenshotHeight", o.Height)
	setString(out, "session", o.Session)
	if o.BrowserActions != nil {
		out["browserActions"] = slices.Clone(o.BrowserActions)
	}
	return out
}

// String returns a pointer to v, for filling optional fields.
func String(v string) *string { return &v }

// Bool returns a pointer to v, for filling optional fields.
func Bool(v bool) *bool { return &v }

// Int returns a pointer to v, for filling optional fields.
func Int(v int) *int { return &v }

func (f Fields) cloneOrNil() Fields {
	if f == nil {
		return nil
	}
	return f.Clone()
}
