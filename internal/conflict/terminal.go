package conflict

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"golang.org/x/term"
)

const maxPromptAttempts = 3

// TerminalResolver asks the two conflict questions on a terminal
type TerminalResolver struct {
	in          *bufio.Reader
	out         io.Writer
	interactive bool
}

var _ Resolver = (*TerminalResolver)(nil)

// TerminalOption configures a TerminalResolver
type TerminalOption func(*TerminalResolver)

// WithInteractive overrides terminal detection, for scripted input
func WithInteractive(interactive bool) TerminalOption {
	return func(r *TerminalResolver) {
		r.interactive = interactive
	}
}

// fder is implemented by *os.File
type fder interface {
	Fd() uintptr
}

// NewTerminalResolver creates a resolver reading answers from in and writing
// questions to out. Input that is not a terminal makes every prompt fail,
// which the Arbiter turns into a skip.
func NewTerminalResolver(in io.Reader, out io.Writer, opts ...TerminalOption) *TerminalResolver {
	r := &TerminalResolver{
		in:  bufio.NewReader(in),
		out: out,
	}
	if f, ok := in.(fder); ok {
		// #nosec G115 -- file descriptors fit in an int
		r.interactive = term.IsTerminal(int(f.Fd()))
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Interactive reports whether the resolver will prompt
func (r *TerminalResolver) Interactive() bool {
	return r.interactive
}

// Resolve asks whether to overwrite Conflict.Path, then whether to apply the
// answer to all remaining conflicts
func (r *TerminalResolver) Resolve(ctx context.Context, c Conflict) (Decision, error) {
	if !r.interactive {
		return DecisionSkip, ErrNotInteractive
	}

	header := fmt.Sprintf("File %s already exists", c.Path)
	if c.Label != "" {
		header += fmt.Sprintf(" (from %s)", c.Label)
	}
	if _, err := fmt.Fprintln(r.out, header); err != nil {
		return DecisionSkip, fmt.Errorf("failed to write prompt: %w", err)
	}

	overwrite, err := r.askYesNo(ctx, "Overwrite this file? [y/N]: ")
	if err != nil {
		return DecisionSkip, err
	}
	applyToAll, err := r.askYesNo(ctx, "Apply this choice to all remaining conflicts? [y/N]: ")
	if err != nil {
		return DecisionSkip, err
	}

	return CombineAnswers(overwrite, applyToAll), nil
}

func (r *TerminalResolver) askYesNo(ctx context.Context, question string) (bool, error) {
	for attempt := 0; attempt < maxPromptAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		if _, err := fmt.Fprint(r.out, question); err != nil {
			return false, fmt.Errorf("failed to write prompt: %w", err)
		}

		line, err := r.in.ReadString('\n')
		if err != nil && (err != io.EOF || line == "") {
			return false, fmt.Errorf("failed to read answer: %w", err)
		}

		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes":
			return true, nil
		case "", "n", "no":
			return false, nil
		default:
			if _, err := fmt.Fprintln(r.out, "Please answer y or n."); err != nil {
				return false, fmt.Errorf("failed to write prompt: %w", err)
			}
		}
	}
	return false, fmt.Errorf("no valid answer after %d attempts", maxPromptAttempts)
}
