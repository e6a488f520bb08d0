package runner

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/chromedp"
)

// Name reported in step results.
const runnerName = "chromedp-local-stateful"

// Timeout taxonomy. Every browser wait is bounded by one of these.
const (
	settleDelay     = 250 * time.Millisecond
	probeTimeout    = 5 * time.Second
	clickTimeout    = 20 * time.Second
	waitTimeout     = 25 * time.Second
	assertTimeout   = 8 * time.Second
	postLoadTimeout = 15 * time.Second
	pageInfoTimeout = 10 * time.Second
	urlPollInterval = 250 * time.Millisecond
)

// StepResult is the payload recorded for a successfully executed step.
type StepResult struct {
	OK             bool   `json:"ok"`
	Runner         string `json:"runner"`
	RunID          int64  `json:"run_id"`
	StartingURL    string `json:"starting_url"`
	Instruction    string `json:"instruction"`
	Parsed         Action `json:"parsed"`
	FinalURL       string `json:"final_url"`
	Title          string `json:"title"`
	ScreenshotPath string `json:"screenshot_path,omitempty"`
	ScreenshotURL  string `json:"screenshot_url,omitempty"`
}

// Executor performs one parsed action against a session's page. It must only
// be called from the session's serialized lane.
type Executor struct {
	artifactsDir string
}

// NewExecutor creates an executor that writes screenshots under artifactsDir.
func NewExecutor(artifactsDir string) *Executor {
	return &Executor{artifactsDir: artifactsDir}
}

// Execute parses and runs one instruction. A fixed settle delay precedes the
// action; afterwards (screenshots aside, which capture the page as-is) the
// page is given a bounded chance to finish any navigation the action
// triggered.
func (e *Executor) Execute(sess *Session, startURL, instruction string) (*StepResult, error) {
	action := ParseInstruction(instruction)

	time.Sleep(settleDelay)

	var shotPath, shotURL string
	var err error
	switch action.Kind {
	case ActionClickText:
		err = e.clickText(sess, action.Value)
	case ActionClickID:
		err = e.click(sess, "#"+action.Value)
	case ActionClickCSS:
		err = e.click(sess, action.Value)
	case ActionTypeID:
		err = e.typeID(sess, action.Field, action.Value)
	case ActionWaitText:
		err = e.waitForText(sess, action.Value, waitTimeout)
	case ActionAssertText:
		err = e.assertText(sess, action.Value)
	case ActionWaitURLContains:
		err = e.waitURLContains(sess, action.Value)
	case ActionWaitMS:
		time.Sleep(time.Duration(action.Millis) * time.Millisecond)
	case ActionScreenshot:
		shotPath, shotURL, err = e.screenshot(sess, action.Value)
	default:
		err = fmt.Errorf("%w: %s", ErrUnsupportedAction, action.Kind)
	}
	if err != nil {
		if sess.Dead() {
			err = fmt.Errorf("%w: %v", ErrSessionUnavailable, err)
		}
		return nil, &StepError{Action: action, Err: err}
	}

	if action.Kind != ActionScreenshot {
		e.settleAfterNavigation(sess)
	}

	finalURL, title, err := e.pageInfo(sess)
	if err != nil {
		if sess.Dead() {
			err = fmt.Errorf("%w: %v", ErrSessionUnavailable, err)
		}
		return nil, &StepError{Action: action, Err: err}
	}

	return &StepResult{
		OK:             true,
		Runner:         runnerName,
		RunID:          sess.RunID,
		StartingURL:    startURL,
		Instruction:    instruction,
		Parsed:         action,
		FinalURL:       finalURL,
		Title:          title,
		ScreenshotPath: shotPath,
		ScreenshotURL:  shotURL,
	}, nil
}

// clickText clicks the first element whose text equals target, falling back
// to a substring match when nothing matches exactly.
func (e *Executor) clickText(sess *Session, target string) error {
	lit := xpathLiteral(target)
	exact := fmt.Sprintf(`//*[normalize-space(text()) = %s]`, lit)
	substr := fmt.Sprintf(`//*[contains(normalize-space(text()), %s)]`, lit)

	// Non-waiting probe: does an exact match exist right now?
	probeCtx, cancel := context.WithTimeout(sess.browserCtx, probeTimeout)
	defer cancel()
	var nodes []*cdp.Node
	if err := chromedp.Run(probeCtx, chromedp.Nodes(exact, &nodes, chromedp.AtLeast(0), chromedp.BySearch)); err != nil {
		return fmt.Errorf("text probe failed: %w", err)
	}
	sel := exact
	if len(nodes) == 0 {
		sel = substr
	}

	clickCtx, cancelClick := context.WithTimeout(sess.browserCtx, clickTimeout)
	defer cancelClick()
	if err := chromedp.Run(clickCtx, chromedp.Click(sel, chromedp.BySearch, chromedp.NodeVisible)); err != nil {
		return fmt.Errorf("%w: no clickable element with text %q: %v", ErrElementNotFound, target, err)
	}
	return nil
}

// click clicks the first element matching a CSS selector.
func (e *Executor) click(sess *Session, sel string) error {
	ctx, cancel := context.WithTimeout(sess.browserCtx, clickTimeout)
	defer cancel()
	if err := chromedp.Run(ctx, chromedp.Click(sel, chromedp.ByQuery, chromedp.NodeVisible)); err != nil {
		return fmt.Errorf("%w: no clickable element for %q: %v", ErrElementNotFound, sel, err)
	}
	return nil
}

// typeID waits for #field to become visible, then replaces its value.
func (e *Executor) typeID(sess *Session, field, value string) error {
	sel := "#" + field

	waitCtx, cancel := context.WithTimeout(sess.browserCtx, waitTimeout)
	defer cancel()
	if err := chromedp.Run(waitCtx, chromedp.WaitVisible(sel, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("%w: field %q never became visible: %v", ErrElementNotFound, sel, err)
	}

	fillCtx, cancelFill := context.WithTimeout(sess.browserCtx, clickTimeout)
	defer cancelFill()
	if err := chromedp.Run(fillCtx,
		chromedp.Clear(sel, chromedp.ByQuery),
		chromedp.SendKeys(sel, value, chromedp.ByQuery),
	); err != nil {
		return fmt.Errorf("failed to fill %q: %w", sel, err)
	}
	return nil
}

func (e *Executor) waitForText(sess *Session, target string, timeout time.Duration) error {
	xpath := fmt.Sprintf(`//*[contains(normalize-space(text()), %s)]`, xpathLiteral(target))
	ctx, cancel := context.WithTimeout(sess.browserCtx, timeout)
	defer cancel()
	if err := chromedp.Run(ctx, chromedp.WaitVisible(xpath, chromedp.BySearch)); err != nil {
		return fmt.Errorf("%w: text %q not visible: %v", ErrElementNotFound, target, err)
	}
	return nil
}

// assertText is waitForText with a short grace period and a distinct failure
// kind, so a missing assertion reads differently from an infrastructure
// timeout.
func (e *Executor) assertText(sess *Session, target string) error {
	xpath := fmt.Sprintf(`//*[contains(normalize-space(text()), %s)]`, xpathLiteral(target))
	ctx, cancel := context.WithTimeout(sess.browserCtx, assertTimeout)
	defer cancel()
	if err := chromedp.Run(ctx, chromedp.WaitVisible(xpath, chromedp.BySearch)); err != nil {
		return fmt.Errorf("%w: %q not found/visible", ErrAssertionFailed, target)
	}
	return nil
}

// waitURLContains polls the current location until it contains fragment.
func (e *Executor) waitURLContains(sess *Session, fragment string) error {
	ctx, cancel := context.WithTimeout(sess.browserCtx, waitTimeout)
	defer cancel()

	var current string
	for {
		if err := chromedp.Run(ctx, chromedp.Location(&current)); err != nil {
			if ctx.Err() != nil {
				return fmt.Errorf("%w: url never contained %q (last seen %q)", ErrElementNotFound, fragment, current)
			}
			return fmt.Errorf("failed to read current url: %w", err)
		}
		if strings.Contains(current, fragment) {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: url never contained %q (last seen %q)", ErrElementNotFound, fragment, current)
		case <-time.After(urlPollInterval):
		}
	}
}

// screenshot captures a full-page PNG into the run's artifact directory.
func (e *Executor) screenshot(sess *Session, label string) (string, string, error) {
	path, publicURL, err := ArtifactPaths(e.artifactsDir, sess.RunID, label)
	if err != nil {
		return "", "", err
	}

	ctx, cancel := context.WithTimeout(sess.browserCtx, waitTimeout)
	defer cancel()
	var buf []byte
	if err := chromedp.Run(ctx, chromedp.FullScreenshot(&buf, 90)); err != nil {
		return "", "", fmt.Errorf("failed to capture screenshot: %w", err)
	}
	if err := os.WriteFile(path, buf, 0644); err != nil {
		return "", "", fmt.Errorf("failed to write screenshot: %w", err)
	}
	return path, publicURL, nil
}

// settleAfterNavigation gives the page a bounded chance to finish loading
// after an action that may have navigated. Best effort; failure is ignored.
func (e *Executor) settleAfterNavigation(sess *Session) {
	ctx, cancel := context.WithTimeout(sess.browserCtx, postLoadTimeout)
	defer cancel()
	_ = chromedp.Run(ctx, chromedp.WaitReady("body", chromedp.ByQuery))
}

func (e *Executor) pageInfo(sess *Session) (string, string, error) {
	ctx, cancel := context.WithTimeout(sess.browserCtx, pageInfoTimeout)
	defer cancel()
	var url, title string
	if err := chromedp.Run(ctx, chromedp.Location(&url), chromedp.Title(&title)); err != nil {
		return "", "", fmt.Errorf("failed to read page state: %w", err)
	}
	return url, title, nil
}

// xpathLiteral quotes s as an XPath string literal. Strings containing both
// quote kinds need concat().
func xpathLiteral(s string) string {
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	if !strings.Contains(s, "'") {
		return "'" + s + "'"
	}
	parts := strings.Split(s, `"`)
	var b strings.Builder
	b.WriteString("concat(")
	for i, part := range parts {
		if i > 0 {
			b.WriteString(`, '"', `)
		}
		b.WriteString(`"` + part + `"`)
	}
	b.WriteString(")")
	return b.String()
}
