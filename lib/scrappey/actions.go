package scrappey

import (
	"bytes"
	"encoding/json"
)

// BrowserAction is one step of a browser automation script executed by the API.
// Actions are inert data, they are only marshalled into the "browserActions" field.
type BrowserAction interface {
	// ActionType is the value of the "type" tag.
	ActionType() string
	browserAction()
}

// When values.
const (
	BeforeLoad = "beforeload"
	AfterLoad  = "afterload"
)

// ActionOptions are the fields shared by every action.
type ActionOptions struct {
	// Wait is a delay in milliseconds after the action.
	Wait    int `json:"wait,omitempty"`
	Timeout int `json:"timeout,omitempty"`
	// When is BeforeLoad or AfterLoad.
	When         string `json:"when,omitempty"`
	IgnoreErrors bool   `json:"ignoreErrors,omitempty"`
}

// marshalAction marshals v and prepends the "type" tag,
// v must not implement json.Marshaler itself.
func marshalAction(kind string, v any) ([]byte, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	tag, err := json.Marshal(kind)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.WriteString(`{"type":`)
	buf.Write(tag)
	inner := bytes.TrimSpace(body[1 : len(body)-1])
	if len(inner) > 0 {
		buf.WriteByte(',')
		buf.Write(inner)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

type ClickAction struct {
	CSSSelector     string `json:"cssSelector"`
	WaitForSelector string `json:"waitForSelector,omitempty"`
	Direct          bool   `json:"direct,omitempty"`
	ActionOptions
}

func (ClickAction) ActionType() string { return "click" }
func (ClickAction) browserAction()     {}

func (a ClickAction) MarshalJSON() ([]byte, error) {
	type plain ClickAction
	return marshalAction(a.ActionType(), plain(a))
}

type TypeAction struct {
	CSSSelector string `json:"cssSelector"`
	Text        string `json:"text"`
	Direct      bool   `json:"direct,omitempty"`
	ActionOptions
}

func (TypeAction) ActionType() string { return "type" }
func (TypeAction) browserAction()     {}

func (a TypeAction) MarshalJSON() ([]byte, error) {
	type plain TypeAction
	return marshalAction(a.ActionType(), plain(a))
}

type GotoAction struct {
	URL string `json:"url"`
	ActionOptions
}

func (GotoAction) ActionType() string { return "goto" }
func (GotoAction) browserAction()     {}

func (a GotoAction) MarshalJSON() ([]byte, error) {
	type plain GotoAction
	return marshalAction(a.ActionType(), plain(a))
}

// WaitAction pauses for Duration milliseconds.
type WaitAction struct {
	Duration     int    `json:"wait"`
	Timeout      int    `json:"timeout,omitempty"`
	When         string `json:"when,omitempty"`
	IgnoreErrors bool   `json:"ignoreErrors,omitempty"`
}

func (WaitAction) ActionType() string { return "wait" }
func (WaitAction) browserAction()     {}

func (a WaitAction) MarshalJSON() ([]byte, error) {
	type plain WaitAction
	return marshalAction(a.ActionType(), plain(a))
}

type WaitForSelectorAction struct {
	CSSSelector string `json:"cssSelector"`
	ActionOptions
}

func (WaitForSelectorAction) ActionType() string { return "wait_for_selector" }
func (WaitForSelectorAction) browserAction()     {}

func (a WaitForSelectorAction) MarshalJSON() ([]byte, error) {
	type plain WaitForSelectorAction
	return marshalAction(a.ActionType(), plain(a))
}

// WaitForFunctionAction waits until the javascript expression Code is truthy.
type WaitForFunctionAction struct {
	Code string `json:"code"`
	ActionOptions
}

func (WaitForFunctionAction) ActionType() string { return "wait_for_function" }
func (WaitForFunctionAction) browserAction()     {}

func (a WaitForFunctionAction) MarshalJSON() ([]byte, error) {
	type plain WaitForFunctionAction
	return marshalAction(a.ActionType(), plain(a))
}

// WaitForLoadStateAction waits for "domcontentloaded", "networkidle" or "load".
type WaitForLoadStateAction struct {
	State string `json:"waitForLoadState"`
	ActionOptions
}

func (WaitForLoadStateAction) ActionType() string { return "wait_for_load_state" }
func (WaitForLoadStateAction) browserAction()     {}

func (a WaitForLoadStateAction) MarshalJSON() ([]byte, error) {
	type plain WaitForLoadStateAction
	return marshalAction(a.ActionType(), plain(a))
}

type WaitForCookieAction struct {
	CookieName     string `json:"cookieName"`
	CookieValue    string `json:"cookieValue,omitempty"`
	CookieDomain   string `json:"cookieDomain,omitempty"`
	PollIntervalMs int    `json:"pollIntervalMs,omitempty"`
	ActionOptions
}

func (WaitForCookieAction) ActionType() string { return "wait_for_cookie" }
func (WaitForCookieAction) browserAction()     {}

func (a WaitForCookieAction) MarshalJSON() ([]byte, error) {
	type plain WaitForCookieAction
	return marshalAction(a.ActionType(), plain(a))
}

// ExecuteJSAction runs Code on the page, its result ends up in Solution.JavascriptReturn.
type ExecuteJSAction struct {
	Code            string `json:"code"`
	DontReturnValue bool   `json:"dontReturnValue,omitempty"`
	ActionOptions
}

func (ExecuteJSAction) ActionType() string { return "execute_js" }
func (ExecuteJSAction) browserAction()     {}

func (a ExecuteJSAction) MarshalJSON() ([]byte, error) {
	type plain ExecuteJSAction
	return marshalAction(a.ActionType(), plain(a))
}

// ScrollAction scrolls to CSSSelector, or to the bottom of the page when it is empty.
type ScrollAction struct {
	CSSSelector string `json:"cssSelector,omitempty"`
	Repeat      int    `json:"repeat,omitempty"`
	DelayMs     int    `json:"delayMs,omitempty"`
	ActionOptions
}

func (ScrollAction) ActionType() string { return "scroll" }
func (ScrollAction) browserAction()     {}

func (a ScrollAction) MarshalJSON() ([]byte, error) {
	type plain ScrollAction
	return marshalAction(a.ActionType(), plain(a))
}

type HoverAction struct {
	CSSSelector string `json:"cssSelector"`
	ActionOptions
}

func (HoverAction) ActionType() string { return "hover" }
func (HoverAction) browserAction()     {}

func (a HoverAction) MarshalJSON() ([]byte, error) {
	type plain HoverAction
	return marshalAction(a.ActionType(), plain(a))
}

// KeyboardAction presses Key: "tab", "enter", "space", "arrowdown", "arrowup",
// "arrowleft", "arrowright", "backspace" or "clear".
type KeyboardAction struct {
	Key             string `json:"value"`
	CSSSelector     string `json:"cssSelector,omitempty"`
	WaitForSelector string `json:"waitForSelector,omitempty"`
	ActionOptions
}

func (KeyboardAction) ActionType() string { return "keyboard" }
func (KeyboardAction) browserAction()     {}

func (a KeyboardAction) MarshalJSON() ([]byte, error) {
	type plain KeyboardAction
	return marshalAction(a.ActionType(), plain(a))
}

// DropdownAction selects an option either by Index or by Value.
type DropdownAction struct {
	CSSSelector     string `json:"cssSelector"`
	Index           *int   `json:"index,omitempty"`
	Value           string `json:"value,omitempty"`
	WaitForSelector string `json:"waitForSelector,omitempty"`
	ActionOptions
}

func (DropdownAction) ActionType() string { return "dropdown" }
func (DropdownAction) browserAction()     {}

func (a DropdownAction) MarshalJSON() ([]byte, error) {
	type plain DropdownAction
	return marshalAction(a.ActionType(), plain(a))
}

type SwitchIframeAction struct {
	CSSSelector string `json:"cssSelector"`
	ActionOptions
}

func (SwitchIframeAction) ActionType() string { return "switch_iframe" }
func (SwitchIframeAction) browserAction()     {}

func (a SwitchIframeAction) MarshalJSON() ([]byte, error) {
	type plain SwitchIframeAction
	return marshalAction(a.ActionType(), plain(a))
}

type SetViewportAction struct {
	Width  int `json:"width"`
	Height int `json:"height"`
	ActionOptions
}

func (SetViewportAction) ActionType() string { return "set_viewport" }
func (SetViewportAction) browserAction()     {}

func (a SetViewportAction) MarshalJSON() ([]byte, error) {
	type plain SetViewportAction
	return marshalAction(a.ActionType(), plain(a))
}

// IfAction runs Then when the javascript Condition is truthy, otherwise Or.
type IfAction struct {
	Condition string          `json:"condition"`
	Then      []BrowserAction `json:"then,omitempty"`
	Or        []BrowserAction `json:"or,omitempty"`
	ActionOptions
}

func (IfAction) ActionType() string { return "if" }
func (IfAction) browserAction()     {}

func (a IfAction) MarshalJSON() ([]byte, error) {
	type plain IfAction
	return marshalAction(a.ActionType(), plain(a))
}

type WhileAction struct {
	Condition   string          `json:"condition"`
	Then        []BrowserAction `json:"then,omitempty"`
	MaxAttempts int             `json:"maxAttempts,omitempty"`
	ActionOptions
}

func (WhileAction) ActionType() string { return "while" }
func (WhileAction) browserAction()     {}

func (a WhileAction) MarshalJSON() ([]byte, error) {
	type plain WhileAction
	return marshalAction(a.ActionType(), plain(a))
}

// CaptchaData is extra information for solving a captcha.
type CaptchaData struct {
	SiteKey     string `json:"sitekey,omitempty"`
	Action      string `json:"action,omitempty"`
	PageAction  string `json:"pageAction,omitempty"`
	Invisible   bool   `json:"invisible,omitempty"`
	Base64Image string `json:"base64Image,omitempty"`
	CSSSelector string `json:"cssSelector,omitempty"`
	Reset       bool   `json:"reset,omitempty"`
	Fast        bool   `json:"fast,omitempty"`
}

// SolveCaptchaAction solves a captcha of kind Captcha ("turnstile", "recaptcha", "hcaptcha", ...).
type SolveCaptchaAction struct {
	Captcha        string       `json:"captcha"`
	CaptchaData    *CaptchaData `json:"captchaData,omitempty"`
	WebsiteURL     string       `json:"websiteUrl,omitempty"`
	WebsiteKey     string       `json:"websiteKey,omitempty"`
	CSSSelector    string       `json:"cssSelector,omitempty"`
	InputSelector  string       `json:"inputSelector,omitempty"`
	ClickSelector  string       `json:"clickSelector,omitempty"`
	IframeSelector string       `json:"iframeSelector,omitempty"`
	CoreName       string       `json:"coreName,omitempty"`
	ActionOptions
}

func (SolveCaptchaAction) ActionType() string { return "solve_captcha" }
func (SolveCaptchaAction) browserAction()     {}

func (a SolveCaptchaAction) MarshalJSON() ([]byte, error) {
	type plain SolveCaptchaAction
	return marshalAction(a.ActionType(), plain(a))
}

type DiscordLoginAction struct {
	Token  string `json:"token"`
	Direct bool   `json:"direct,omitempty"`
	ActionOptions
}

func (DiscordLoginAction) ActionType() string { return "discord_login" }
func (DiscordLoginAction) browserAction()     {}

func (a DiscordLoginAction) MarshalJSON() ([]byte, error) {
	type plain DiscordLoginAction
	return marshalAction(a.ActionType(), plain(a))
}

type RemoveIframesAction struct {
	ActionOptions
}

func (RemoveIframesAction) ActionType() string { return "remove_iframes" }
func (RemoveIframesAction) browserAction()     {}

func (a RemoveIframesAction) MarshalJSON() ([]byte, error) {
	type plain RemoveIframesAction
	return marshalAction(a.ActionType(), plain(a))
}

// RawAction is an action the API supports but this package does not model.
// It is marshalled as is and must carry its own "type" key.
type RawAction map[string]any

func (a RawAction) ActionType() string {
	kind, _ := a["type"].(string)
	return kind
}

func (RawAction) browserAction() {}
