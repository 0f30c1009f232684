package conflict

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

// Policy is the sticky overwrite policy of a run
type Policy int

const (
	// PolicyNone means every conflict is prompted
	PolicyNone Policy = iota
	// PolicyOverwriteAll means every later conflict is overwritten without prompting
	PolicyOverwriteAll
	// PolicySkipAll means every later conflict is skipped without prompting
	PolicySkipAll
)

// String returns the policy name
func (p Policy) String() string {
	switch p {
	case PolicyOverwriteAll:
		return "overwrite-all"
	case PolicySkipAll:
		return "skip-all"
	default:
		return "none"
	}
}

// Arbiter resolves destination conflicts for one run. It is shared by every
// fetcher of every unit in the run and is the serialization point for prompts.
type Arbiter struct {
	resolver Resolver

	// promptMu is held across the resolver call so only one prompt is outstanding
	promptMu sync.Mutex

	// mu guards the fields below and is never held across a prompt
	mu      sync.Mutex
	policy  Policy
	prompts int
}

// NewArbiter creates an Arbiter with no sticky policy
func NewArbiter(resolver Resolver) *Arbiter {
	return &Arbiter{resolver: resolver}
}

// Resolve reports whether the existing file at path should be overwritten.
// A sticky policy answers immediately; otherwise the resolver is asked and a
// sticky answer is recorded before returning. Any prompt failure skips.
func (a *Arbiter) Resolve(ctx context.Context, path, label string) bool {
	if overwrite, decided := a.sticky(); decided {
		return overwrite
	}

	a.promptMu.Lock()
	defer a.promptMu.Unlock()

	// Another unit may have set a sticky policy while this one waited for the prompt
	if overwrite, decided := a.sticky(); decided {
		return overwrite
	}

	decision, err := a.ask(ctx, Conflict{Path: path, Label: label})
	if err != nil {
		slog.Warn("Conflict prompt failed, keeping existing file",
			"path", path,
			"source", label,
			"error", err)
		return false
	}

	slog.Debug("Conflict resolved", "path", path, "decision", decision.String())

	switch decision {
	case DecisionOverwriteAll:
		a.setPolicy(PolicyOverwriteAll)
	case DecisionSkipAll:
		a.setPolicy(PolicySkipAll)
	}
	return decision.Overwrites()
}

// Policy returns the current sticky policy
func (a *Arbiter) Policy() Policy {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.policy
}

// Prompts returns how many times the resolver has been asked
func (a *Arbiter) Prompts() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.prompts
}

func (a *Arbiter) sticky() (overwrite bool, decided bool) {
	switch a.Policy() {
	case PolicyOverwriteAll:
		return true, true
	case PolicySkipAll:
		return false, true
	default:
		return false, false
	}
}

func (a *Arbiter) ask(ctx context.Context, c Conflict) (Decision, error) {
	if a.resolver == nil {
		return DecisionSkip, errors.New("no conflict resolver configured")
	}
	if err := ctx.Err(); err != nil {
		return DecisionSkip, err
	}

	a.mu.Lock()
	a.prompts++
	a.mu.Unlock()

	decision, err := a.resolver.Resolve(ctx, c)
	if err != nil {
		return DecisionSkip, err
	}
	switch decision {
	case DecisionSkip, DecisionOverwrite, DecisionOverwriteAll, DecisionSkipAll:
		return decision, nil
	default:
		return DecisionSkip, errors.New("resolver returned unknown decision " + decision.String())
	}
}

// setPolicy records a sticky policy; the first sticky policy of a run wins
func (a *Arbiter) setPolicy(p Policy) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.policy == PolicyNone {
		a.policy = p
	}
}
