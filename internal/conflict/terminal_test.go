package conflict

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTerminalResolver_Resolve(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		expected Decision
		wantErr  bool
	}{
		{name: "overwrite once", input: "y\nn\n", expected: DecisionOverwrite},
		{name: "overwrite all", input: "yes\nyes\n", expected: DecisionOverwriteAll},
		{name: "skip once by default", input: "\n\n", expected: DecisionSkip},
		{name: "skip all", input: "n\ny\n", expected: DecisionSkipAll},
		{name: "upper case answers", input: "Y\nY\n", expected: DecisionOverwriteAll},
		{name: "invalid answer is asked again", input: "maybe\ny\nno\n", expected: DecisionOverwrite},
		{name: "last answer without newline", input: "y\ny", expected: DecisionOverwriteAll},
		{name: "input closed before second answer", input: "y\n", wantErr: true},
		{name: "too many invalid answers", input: "a\nb\nc\n", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var out bytes.Buffer
			r := NewTerminalResolver(strings.NewReader(tt.input), &out, WithInteractive(true))

			decision, err := r.Resolve(context.Background(), Conflict{Path: "/out/sigma/x.yml", Label: "https://example.com/repo.git"})
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, DecisionSkip, decision)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, decision)
			assert.Contains(t, out.String(), "File /out/sigma/x.yml already exists (from https://example.com/repo.git)")
			assert.Contains(t, out.String(), "Overwrite this file?")
			assert.Contains(t, out.String(), "Apply this choice to all remaining conflicts?")
		})
	}
}

func TestTerminalResolver_NotInteractive(t *testing.T) {
	t.Parallel()

	// A strings.Reader is not a terminal
	r := NewTerminalResolver(strings.NewReader("y\ny\n"), &bytes.Buffer{})
	assert.False(t, r.Interactive())
	assert.True(t, NewTerminalResolver(strings.NewReader(""), &bytes.Buffer{}, WithInteractive(true)).Interactive())
	decision, err := r.Resolve(context.Background(), Conflict{Path: "x"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotInteractive))
	assert.Equal(t, DecisionSkip, decision)
}

func TestTerminalResolver_CancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := NewTerminalResolver(strings.NewReader("y\ny\n"), &bytes.Buffer{}, WithInteractive(true))
	_, err := r.Resolve(ctx, Conflict{Path: "x"})
	require.ErrorIs(t, err, context.Canceled)
}

func TestDecision_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "skip", DecisionSkip.String())
	assert.Equal(t, "overwrite", DecisionOverwrite.String())
	assert.Equal(t, "overwrite-all", DecisionOverwriteAll.String())
	assert.Equal(t, "skip-all", DecisionSkipAll.String())
	assert.Equal(t, "decision(9)", Decision(9).String())
	assert.Equal(t, "none", PolicyNone.String())
}
