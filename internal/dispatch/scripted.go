package dispatch

import (
	"context"
	"fmt"

	"github.com/weftlabs/weft/internal/ir"
)

// Scripted is a handler that replays configured outcomes per action.
// Used by tests and by `weft run` bundles, where concept business logic is
// out of scope and only the coordination behavior matters.
type Scripted struct {
	outcomes map[string]Outcome
	errs     map[string]error
}

// NewScripted builds a scripted handler from a per-action outcome table.
func NewScripted(outcomes map[string]Outcome) *Scripted {
	if outcomes == nil {
		outcomes = make(map[string]Outcome)
	}
	return &Scripted{outcomes: outcomes, errs: make(map[string]error)}
}

// Script adds or replaces the outcome for one action.
func (s *Scripted) Script(action string, out Outcome) *Scripted {
	s.outcomes[action] = out
	return s
}

// Fail makes the named action return a handler error.
func (s *Scripted) Fail(action string, msg string) *Scripted {
	s.errs[action] = fmt.Errorf("%s", msg)
	return s
}

// Invoke implements Handler. Actions without a scripted outcome succeed
// with their input echoed back, which keeps happy-path bundles short.
func (s *Scripted) Invoke(_ context.Context, action string, input ir.Object) (Outcome, error) {
	if err, ok := s.errs[action]; ok {
		return Outcome{}, err
	}
	if out, ok := s.outcomes[action]; ok {
		return out, nil
	}
	return OK(input), nil
}
