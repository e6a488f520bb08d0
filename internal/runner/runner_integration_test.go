package runner

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"
)

// These tests drive a real Chrome via chromedp against a local fixture site.
// They are opt-in: set NOVAFLOW_BROWSER_TESTS=1 to run them.

const fixtureIndex = `<!DOCTYPE html>
<html><head><title>Fixture Home</title></head>
<body>
  <h1>Available Examples</h1>
  <ul><li><a href="/login">Form Authentication</a></li></ul>
</body></html>`

const fixtureLogin = `<!DOCTYPE html>
<html><head><title>Login Page</title></head>
<body>
  <h2>Login Page</h2>
  <form method="post" action="/authenticate">
    <input type="text" id="username" name="username">
    <input type="password" id="password" name="password">
    <button type="submit">Login</button>
  </form>
</body></html>`

const fixtureSecure = `<!DOCTYPE html>
<html><head><title>Secure Area</title></head>
<body>
  <div class="flash">You logged into a secure area!</div>
  <h2>Secure Area</h2>
</body></html>`

func newFixtureServer(t *testing.T) *httptest.Server {
	t.Helper()
	page := func(body string) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			w.Write([]byte(body))
		}
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		page(fixtureIndex)(w, r)
	})
	mux.HandleFunc("/login", page(fixtureLogin))
	mux.HandleFunc("/authenticate", func(w http.ResponseWriter, r *http.Request) {
		if r.FormValue("username") == "tomsmith" && r.FormValue("password") == "SuperSecretPassword!" {
			http.Redirect(w, r, "/secure", http.StatusSeeOther)
			return
		}
		http.Redirect(w, r, "/login", http.StatusSeeOther)
	})
	mux.HandleFunc("/secure", page(fixtureSecure))

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func requireBrowser(t *testing.T) {
	t.Helper()
	if os.Getenv("NOVAFLOW_BROWSER_TESTS") == "" {
		t.Skip("Skipping: NOVAFLOW_BROWSER_TESTS not set")
	}
}

func TestRunnerFormAuthenticationFlow(t *testing.T) {
	requireBrowser(t)

	srv := newFixtureServer(t)
	r := New(true, 60*time.Second, t.TempDir())
	defer r.Shutdown()

	const runID = int64(101)
	ctx := context.Background()
	startURL := srv.URL + "/"

	steps := []string{
		"CLICK_TEXT: Form Authentication",
		"TYPE_ID: username=tomsmith",
		"TYPE_ID: password=SuperSecretPassword!",
		`CLICK_CSS: button[type="submit"]`,
		"WAIT_TEXT: You logged into a secure area!",
		"SCREENSHOT: after_login",
	}

	var last *StepResult
	for i, instruction := range steps {
		res, err := r.RunStep(ctx, runID, startURL, instruction)
		if err != nil {
			t.Fatalf("step %d (%s) failed: %v", i+1, instruction, err)
		}
		if !res.OK {
			t.Fatalf("step %d (%s) reported not ok", i+1, instruction)
		}
		last = res
	}

	// The click on submit navigated; later steps ran on the secure page of
	// the same session, never re-navigating to the starting URL.
	if !strings.Contains(last.FinalURL, "/secure") {
		t.Errorf("final url %q should be the secure page", last.FinalURL)
	}
	if last.ScreenshotPath == "" {
		t.Fatal("screenshot step returned no path")
	}
	if _, err := os.Stat(last.ScreenshotPath); err != nil {
		t.Errorf("screenshot file missing: %v", err)
	}
	if !strings.HasPrefix(last.ScreenshotURL, "/artifacts/screenshots/run_101/") {
		t.Errorf("screenshot url %q has the wrong prefix", last.ScreenshotURL)
	}

	stats := r.Stats()
	if stats.SessionsCreated != 1 {
		t.Errorf("expected exactly one session for the whole flow, created %d", stats.SessionsCreated)
	}
	if stats.SessionsActive != 1 {
		t.Errorf("expected the session to stay open, active %d", stats.SessionsActive)
	}
	if stats.StepsExecuted != int64(len(steps)) {
		t.Errorf("steps executed = %d, want %d", stats.StepsExecuted, len(steps))
	}

	r.CloseSession(runID)
	r.CloseSession(runID) // idempotent
	if active := r.Stats().SessionsActive; active != 0 {
		t.Errorf("sessions still active after close: %d", active)
	}
}

func TestRunnerAssertTextFailureKind(t *testing.T) {
	requireBrowser(t)

	srv := newFixtureServer(t)
	r := New(true, 60*time.Second, t.TempDir())
	defer r.Shutdown()

	const runID = int64(102)
	ctx := context.Background()

	_, err := r.RunStep(ctx, runID, srv.URL+"/", "ASSERT_TEXT: This Text Does Not Exist")
	if !errors.Is(err, ErrAssertionFailed) {
		t.Fatalf("expected ErrAssertionFailed, got %v", err)
	}
	if kind := Classify(err); kind != KindAssertionFailed {
		t.Errorf("Classify = %q, want %q", kind, KindAssertionFailed)
	}
	if r.Stats().StepsFailed != 1 {
		t.Errorf("failed step counter = %d", r.Stats().StepsFailed)
	}

	// The session survives an assertion failure and can keep executing.
	res, err := r.RunStep(ctx, runID, srv.URL+"/", "ASSERT_TEXT: Available Examples")
	if err != nil {
		t.Fatalf("assert on present text failed: %v", err)
	}
	if !res.OK {
		t.Fatal("assert on present text reported not ok")
	}
}
