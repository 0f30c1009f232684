package conflict

import (
	"context"
	"errors"
	"sync"
)

// ErrScriptExhausted is returned by ScriptedResolver when it runs out of answers
var ErrScriptExhausted = errors.New("scripted resolver has no answers left")

// ScriptedResolver replays a fixed sequence of decisions and records every
// conflict it was asked about, in order
type ScriptedResolver struct {
	mu      sync.Mutex
	answers []Decision
	asked   []Conflict
}

var _ Resolver = (*ScriptedResolver)(nil)

// NewScriptedResolver creates a resolver answering with decisions in order
func NewScriptedResolver(decisions ...Decision) *ScriptedResolver {
	return &ScriptedResolver{answers: decisions}
}

// Resolve returns the next scripted decision
func (s *ScriptedResolver) Resolve(_ context.Context, c Conflict) (Decision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.asked = append(s.asked, c)
	if len(s.answers) == 0 {
		return DecisionSkip, ErrScriptExhausted
	}
	next := s.answers[0]
	s.answers = s.answers[1:]
	return next, nil
}

// Asked returns the conflicts seen so far
func (s *ScriptedResolver) Asked() []Conflict {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Conflict{}, s.asked...)
}
