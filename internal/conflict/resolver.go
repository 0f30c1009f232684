// Package conflict decides what happens when a fetched file would replace an
// existing one. The Arbiter owns the run-scoped sticky policy and serializes
// prompts; a Resolver answers the per-file question.
package conflict

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

//go:generate mockgen -destination=mocks/mock_resolver.go -package=mocks -source=resolver.go Resolver

// Decision is the outcome of a single conflict prompt
type Decision int

const (
	// DecisionSkip keeps the existing file
	DecisionSkip Decision = iota
	// DecisionOverwrite replaces the existing file
	DecisionOverwrite
	// DecisionOverwriteAll replaces this file and every later conflict in the run
	DecisionOverwriteAll
	// DecisionSkipAll keeps this file and every later conflicting file in the run
	DecisionSkipAll
)

// String returns the decision name
func (d Decision) String() string {
	switch d {
	case DecisionSkip:
		return "skip"
	case DecisionOverwrite:
		return "overwrite"
	case DecisionOverwriteAll:
		return "overwrite-all"
	case DecisionSkipAll:
		return "skip-all"
	default:
		return fmt.Sprintf("decision(%d)", int(d))
	}
}

// Overwrites reports whether the decision replaces the file at hand
func (d Decision) Overwrites() bool {
	return d == DecisionOverwrite || d == DecisionOverwriteAll
}

// CombineAnswers maps the two prompt answers onto a Decision:
// (overwrite, all) -> OverwriteAll, (overwrite, this one) -> Overwrite,
// (skip, all) -> SkipAll, (skip, this one) -> Skip.
func CombineAnswers(overwrite, applyToAll bool) Decision {
	switch {
	case overwrite && applyToAll:
		return DecisionOverwriteAll
	case overwrite:
		return DecisionOverwrite
	case applyToAll:
		return DecisionSkipAll
	default:
		return DecisionSkip
	}
}

// Conflict describes a destination path that already exists
type Conflict struct {
	// Path is the destination path that already exists
	Path string

	// Label identifies the source being processed when the conflict was found
	Label string
}

// Resolver answers conflict prompts. Implementations may block for user input;
// the Arbiter guarantees at most one outstanding call at a time.
type Resolver interface {
	// Resolve asks whether Conflict.Path should be overwritten and whether the
	// answer applies to all remaining conflicts of the run
	Resolve(ctx context.Context, c Conflict) (Decision, error)
}

// Conflict modes accepted by NewResolverForMode
const (
	ModeAsk       = "ask"
	ModeOverwrite = "overwrite"
	ModeSkip      = "skip"
)

// ErrNotInteractive is returned by resolvers that cannot prompt
var ErrNotInteractive = errors.New("conflict prompt requires an interactive terminal")

// StaticResolver answers every prompt with the same decision
type StaticResolver struct {
	decision Decision
}

var _ Resolver = (*StaticResolver)(nil)

// NewStaticResolver creates a resolver that always returns decision
func NewStaticResolver(decision Decision) *StaticResolver {
	return &StaticResolver{decision: decision}
}

// Resolve returns the configured decision
func (s *StaticResolver) Resolve(ctx context.Context, _ Conflict) (Decision, error) {
	if err := ctx.Err(); err != nil {
		return DecisionSkip, err
	}
	return s.decision, nil
}

// NewResolverForMode builds the resolver for a configured conflict mode.
// The "ask" mode prompts through the terminal resolver built by ask.
func NewResolverForMode(mode string, ask func() Resolver) (Resolver, error) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case ModeAsk, "":
		if ask == nil {
			return nil, fmt.Errorf("conflict mode %q requires a prompt", ModeAsk)
		}
		return ask(), nil
	case ModeOverwrite:
		return NewStaticResolver(DecisionOverwriteAll), nil
	case ModeSkip:
		return NewStaticResolver(DecisionSkipAll), nil
	default:
		return nil, fmt.Errorf("unknown conflict mode %q (expected %s, %s or %s)", mode, ModeAsk, ModeOverwrite, ModeSkip)
	}
}
