package runner

import (
	"regexp"
	"strconv"
	"strings"
)

// Instruction patterns, tried in table order. Prefixes are case-insensitive.
var (
	clickTextPattern  = regexp.MustCompile(`(?i)^CLICK_TEXT:\s*(.+)$`)
	clickIDPattern    = regexp.MustCompile(`(?i)^CLICK_ID:\s*(.+)$`)
	clickCSSPattern   = regexp.MustCompile(`(?i)^CLICK_CSS:\s*(.+)$`)
	typeIDPattern     = regexp.MustCompile(`(?i)^TYPE_ID:\s*([A-Za-z0-9_\-]+)\s*=\s*(.*)$`)
	waitTextPattern   = regexp.MustCompile(`(?i)^WAIT_TEXT:\s*(.+)$`)
	assertTextPattern = regexp.MustCompile(`(?i)^ASSERT_TEXT:\s*(.+)$`)
	waitURLPattern    = regexp.MustCompile(`(?i)^WAIT_URL_CONTAINS:\s*(.+)$`)
	waitMSPattern     = regexp.MustCompile(`(?i)^WAIT_MS:\s*(\d+)\s*$`)
	screenshotPattern = regexp.MustCompile(`(?i)^SCREENSHOT\s*(?::\s*(.*))?$`)
)

// ParseInstruction turns one instruction string into an Action. An
// unrecognized instruction falls back to click_text on the whole trimmed
// string, so parsing never fails; plan validation upstream rejects forms that
// should not reach execution.
func ParseInstruction(instruction string) Action {
	instruction = strings.TrimSpace(instruction)

	if m := clickTextPattern.FindStringSubmatch(instruction); m != nil {
		return Action{Kind: ActionClickText, Value: strings.TrimSpace(m[1])}
	}
	if m := clickIDPattern.FindStringSubmatch(instruction); m != nil {
		return Action{Kind: ActionClickID, Value: strings.TrimSpace(m[1])}
	}
	if m := clickCSSPattern.FindStringSubmatch(instruction); m != nil {
		return Action{Kind: ActionClickCSS, Value: strings.TrimSpace(m[1])}
	}
	if m := typeIDPattern.FindStringSubmatch(instruction); m != nil {
		// The value keeps everything after the separator, including any
		// further '=' characters. Only leading whitespace is consumed.
		return Action{Kind: ActionTypeID, Field: m[1], Value: m[2]}
	}
	if m := waitTextPattern.FindStringSubmatch(instruction); m != nil {
		return Action{Kind: ActionWaitText, Value: strings.TrimSpace(m[1])}
	}
	if m := assertTextPattern.FindStringSubmatch(instruction); m != nil {
		return Action{Kind: ActionAssertText, Value: strings.TrimSpace(m[1])}
	}
	if m := waitURLPattern.FindStringSubmatch(instruction); m != nil {
		return Action{Kind: ActionWaitURLContains, Value: strings.TrimSpace(m[1])}
	}
	if m := waitMSPattern.FindStringSubmatch(instruction); m != nil {
		ms, _ := strconv.Atoi(m[1])
		return Action{Kind: ActionWaitMS, Millis: ms}
	}
	if m := screenshotPattern.FindStringSubmatch(instruction); m != nil {
		label := strings.TrimSpace(m[1])
		if label == "" {
			label = "shot"
		}
		return Action{Kind: ActionScreenshot, Value: label}
	}

	return Action{Kind: ActionClickText, Value: instruction}
}

var grammarPatterns = []*regexp.Regexp{
	clickTextPattern,
	clickIDPattern,
	clickCSSPattern,
	typeIDPattern,
	waitTextPattern,
	assertTextPattern,
	waitURLPattern,
	waitMSPattern,
	screenshotPattern,
}

// MatchesGrammar reports whether the instruction matches one of the known
// forms, without the click_text fallback ParseInstruction applies.
func MatchesGrammar(instruction string) bool {
	instruction = strings.TrimSpace(instruction)
	for _, p := range grammarPatterns {
		if p.MatchString(instruction) {
			return true
		}
	}
	return false
}
