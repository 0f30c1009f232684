package filtering

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPathFilter(t *testing.T) {
	t.Parallel()

	t.Run("no patterns returns nil filter", func(t *testing.T) {
		t.Parallel()
		pf, err := NewPathFilter(nil, nil)
		require.NoError(t, err)
		assert.Nil(t, pf)

		ok, reason := pf.ShouldInclude("any/path.yml")
		assert.True(t, ok)
		assert.Equal(t, "no path filters specified", reason)
		assert.Nil(t, pf.Patterns())
	})

	t.Run("invalid include pattern", func(t *testing.T) {
		t.Parallel()
		_, err := NewPathFilter([]string{"[invalid"}, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid include pattern")
	})

	t.Run("invalid exclude pattern", func(t *testing.T) {
		t.Parallel()
		_, err := NewPathFilter(nil, []string{"[invalid"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid exclude pattern")
	})
}

func TestPathFilter_ShouldInclude(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		include  []string
		exclude  []string
		path     string
		expected bool
	}{
		{
			name:     "include match across directories",
			include:  []string{"rules/*"},
			path:     "rules/windows/process_creation/proc.yml",
			expected: true,
		},
		{
			name:     "include no match",
			include:  []string{"rules/*"},
			path:     "deprecated/old.yml",
			expected: false,
		},
		{
			name:     "exclude match",
			exclude:  []string{"*/deprecated/*"},
			path:     "rules/deprecated/old.yml",
			expected: false,
		},
		{
			name:     "exclude no match",
			exclude:  []string{"*/deprecated/*"},
			path:     "rules/windows/new.yml",
			expected: true,
		},
		{
			name:     "exclude takes precedence over include",
			include:  []string{"rules/*"},
			exclude:  []string{"*test*"},
			path:     "rules/tests/sample.yml",
			expected: false,
		},
		{
			name:     "include match one level deep",
			include:  []string{"rules/*"},
			path:     "rules/linux/a.yml",
			expected: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			pf, err := NewPathFilter(tt.include, tt.exclude)
			require.NoError(t, err)
			got, reason := pf.ShouldInclude(tt.path)
			assert.Equal(t, tt.expected, got, reason)
		})
	}
}

func TestPathFilter_Patterns(t *testing.T) {
	t.Parallel()

	pf, err := NewPathFilter([]string{"a/*"}, []string{"b/*"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a/*", "b/*"}, pf.Patterns())
}
