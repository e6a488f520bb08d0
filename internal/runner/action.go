// Package runner executes UI automation steps against per-run browser sessions.
package runner

// ActionKind identifies one executable instruction kind.
type ActionKind string

const (
	ActionClickText       ActionKind = "click_text"
	ActionClickID         ActionKind = "click_id"
	ActionClickCSS        ActionKind = "click_css"
	ActionTypeID          ActionKind = "type_id"
	ActionWaitText        ActionKind = "wait_text"
	ActionAssertText      ActionKind = "assert_text"
	ActionWaitURLContains ActionKind = "wait_url_contains"
	ActionWaitMS          ActionKind = "wait_ms"
	ActionScreenshot      ActionKind = "screenshot"
)

// Action is one parsed instruction, ready to execute.
type Action struct {
	Kind   ActionKind `json:"action"`
	Value  string     `json:"value,omitempty"`
	Field  string     `json:"field,omitempty"`
	Millis int        `json:"millis,omitempty"`
}
