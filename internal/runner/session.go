package runner

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
)

// Session owns one live Chrome for one run. It must only ever be touched from
// that run's serialized lane; chromedp contexts are not safe for concurrent
// callers.
type Session struct {
	RunID      int64
	CreatedAt  time.Time
	LastUsedAt time.Time

	allocCtx      context.Context
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
}

// Dead reports whether the underlying browser context has gone away.
func (s *Session) Dead() bool {
	select {
	case <-s.browserCtx.Done():
		return true
	default:
		return false
	}
}

// cleanup cancels both chromedp contexts. Safe to call repeatedly; teardown
// never fails outward.
func (s *Session) cleanup() {
	if s.browserCancel != nil {
		s.browserCancel()
	}
	if s.allocCancel != nil {
		s.allocCancel()
	}
}

// Registry tracks at most one Session per run id.
type Registry struct {
	mu       sync.Mutex
	sessions map[int64]*Session

	headless   bool
	navTimeout time.Duration
	metrics    *Metrics
}

// NewRegistry creates an empty session registry.
func NewRegistry(headless bool, navTimeout time.Duration, metrics *Metrics) *Registry {
	return &Registry{
		sessions:   make(map[int64]*Session),
		headless:   headless,
		navTimeout: navTimeout,
		metrics:    metrics,
	}
}

// Acquire returns the live session for runID, launching a browser and opening
// startURL if none exists. Reuse never re-navigates, so page state carries
// across steps. A session whose browser died is replaced transparently.
func (r *Registry) Acquire(ctx context.Context, runID int64, startURL string) (*Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	if sess, ok := r.sessions[runID]; ok {
		if !sess.Dead() {
			sess.LastUsedAt = time.Now()
			r.mu.Unlock()
			return sess, nil
		}
		sess.cleanup()
		delete(r.sessions, runID)
		r.metrics.SessionsClosed.Add(1)
	}
	r.mu.Unlock()

	sess, err := r.launch(runID, startURL)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.sessions[runID] = sess
	r.mu.Unlock()
	r.metrics.SessionsCreated.Add(1)
	return sess, nil
}

// launch starts a browser and navigates it to startURL. The chromedp contexts
// derive from context.Background because the session outlives any one request.
func (r *Registry) launch(runID int64, startURL string) (*Session, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.NoSandbox,
		chromedp.Flag("headless", r.headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("no-default-browser-check", true),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	now := time.Now()
	sess := &Session{
		RunID:         runID,
		CreatedAt:     now,
		LastUsedAt:    now,
		allocCtx:      allocCtx,
		allocCancel:   allocCancel,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
	}

	navCtx, cancel := context.WithTimeout(browserCtx, r.navTimeout)
	defer cancel()
	if err := chromedp.Run(navCtx, chromedp.Navigate(startURL)); err != nil {
		sess.cleanup()
		return nil, fmt.Errorf("%w: failed to open %s: %v", ErrSessionUnavailable, startURL, err)
	}
	return sess, nil
}

// Close tears down runID's session. Idempotent; closing an absent session is
// a no-op.
func (r *Registry) Close(runID int64) {
	r.mu.Lock()
	sess, ok := r.sessions[runID]
	if ok {
		delete(r.sessions, runID)
	}
	r.mu.Unlock()
	if !ok {
		return
	}
	sess.cleanup()
	r.metrics.SessionsClosed.Add(1)
}

// Evict removes a session the executor found dead so the next acquire
// recreates it from the plan's starting URL.
func (r *Registry) Evict(runID int64) {
	r.Close(runID)
}

// Shutdown closes every session.
func (r *Registry) Shutdown() {
	r.mu.Lock()
	sessions := r.sessions
	r.sessions = make(map[int64]*Session)
	r.mu.Unlock()

	for _, sess := range sessions {
		sess.cleanup()
		r.metrics.SessionsClosed.Add(1)
	}
}

// Active returns the number of live sessions.
func (r *Registry) Active() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
