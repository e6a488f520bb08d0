package runner

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"assertion", fmt.Errorf("text missing: %w", ErrAssertionFailed), KindAssertionFailed},
		{"unsupported", ErrUnsupportedAction, KindUnsupportedAction},
		{"session", fmt.Errorf("launch: %w", ErrSessionUnavailable), KindSessionUnavailable},
		{"lane closed", ErrLaneClosed, KindLaneClosed},
		{"outer deadline", ErrDeadlineExceeded, KindDeadlineExceeded},
		{"not found", fmt.Errorf("no match: %w", ErrElementNotFound), KindElementNotFound},
		{"bare context deadline", context.DeadlineExceeded, KindElementNotFound},
		{"unknown", errors.New("boom"), KindInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.err); got != tt.want {
				t.Errorf("Classify(%v) = %q, want %q", tt.err, got, tt.want)
			}
		})
	}
}

func TestStepErrorUnwraps(t *testing.T) {
	err := &StepError{
		Action: Action{Kind: ActionAssertText, Value: "Welcome"},
		Err:    fmt.Errorf("%w: %q not visible", ErrAssertionFailed, "Welcome"),
	}
	if !errors.Is(err, ErrAssertionFailed) {
		t.Fatal("StepError should unwrap to the sentinel")
	}
	if Classify(err) != KindAssertionFailed {
		t.Errorf("Classify through StepError = %q", Classify(err))
	}
}

func TestIsSessionDead(t *testing.T) {
	if !IsSessionDead(fmt.Errorf("browser exited: %w", ErrSessionUnavailable)) {
		t.Error("wrapped session error should read as dead")
	}
	if IsSessionDead(ErrElementNotFound) {
		t.Error("locator failure is not a dead session")
	}
}
