package conflict_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/rulegrab/rulegrab/internal/conflict"
	"github.com/rulegrab/rulegrab/internal/conflict/mocks"
)

func TestCombineAnswers(t *testing.T) {
	t.Parallel()

	tests := []struct {
		overwrite  bool
		applyToAll bool
		expected   conflict.Decision
	}{
		{overwrite: true, applyToAll: true, expected: conflict.DecisionOverwriteAll},
		{overwrite: true, applyToAll: false, expected: conflict.DecisionOverwrite},
		{overwrite: false, applyToAll: true, expected: conflict.DecisionSkipAll},
		{overwrite: false, applyToAll: false, expected: conflict.DecisionSkip},
	}

	for _, tt := range tests {
		t.Run(tt.expected.String(), func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, conflict.CombineAnswers(tt.overwrite, tt.applyToAll))
		})
	}
}

func TestArbiter_StickyOverwriteAll(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	resolver := mocks.NewMockResolver(ctrl)
	resolver.EXPECT().
		Resolve(gomock.Any(), conflict.Conflict{Path: "/out/sigma/a.yml", Label: "repo-a"}).
		Return(conflict.DecisionOverwriteAll, nil).
		Times(1)

	arbiter := conflict.NewArbiter(resolver)
	ctx := context.Background()

	assert.True(t, arbiter.Resolve(ctx, "/out/sigma/a.yml", "repo-a"))
	assert.Equal(t, conflict.PolicyOverwriteAll, arbiter.Policy())

	for _, path := range []string{"/out/sigma/b.yml", "/out/sigma/c.yml", "/out/sigma/d.yml"} {
		assert.True(t, arbiter.Resolve(ctx, path, "repo-b"))
	}
	assert.Equal(t, 1, arbiter.Prompts())
}

func TestArbiter_StickySkipAll(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	resolver := mocks.NewMockResolver(ctrl)
	resolver.EXPECT().
		Resolve(gomock.Any(), gomock.Any()).
		Return(conflict.DecisionSkipAll, nil).
		Times(1)

	arbiter := conflict.NewArbiter(resolver)
	ctx := context.Background()

	assert.False(t, arbiter.Resolve(ctx, "/out/yara/a.yar", "repo"))
	assert.Equal(t, conflict.PolicySkipAll, arbiter.Policy())
	assert.False(t, arbiter.Resolve(ctx, "/out/yara/b.yar", "repo"))
	assert.False(t, arbiter.Resolve(ctx, "/out/yara/c.yar", "repo"))
	assert.Equal(t, 1, arbiter.Prompts())
}

func TestArbiter_NonStickyDecisionsPromptEveryTime(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	resolver := mocks.NewMockResolver(ctrl)
	gomock.InOrder(
		resolver.EXPECT().Resolve(gomock.Any(), gomock.Any()).Return(conflict.DecisionOverwrite, nil),
		resolver.EXPECT().Resolve(gomock.Any(), gomock.Any()).Return(conflict.DecisionSkip, nil),
		resolver.EXPECT().Resolve(gomock.Any(), gomock.Any()).Return(conflict.DecisionOverwrite, nil),
	)

	arbiter := conflict.NewArbiter(resolver)
	ctx := context.Background()

	assert.True(t, arbiter.Resolve(ctx, "a", ""))
	assert.False(t, arbiter.Resolve(ctx, "b", ""))
	assert.True(t, arbiter.Resolve(ctx, "c", ""))
	assert.Equal(t, conflict.PolicyNone, arbiter.Policy())
	assert.Equal(t, 3, arbiter.Prompts())
}

func TestArbiter_PromptFailureSkips(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	resolver := mocks.NewMockResolver(ctrl)
	gomock.InOrder(
		resolver.EXPECT().Resolve(gomock.Any(), gomock.Any()).Return(conflict.DecisionOverwriteAll, errors.New("tty closed")),
		resolver.EXPECT().Resolve(gomock.Any(), gomock.Any()).Return(conflict.Decision(42), nil),
	)

	arbiter := conflict.NewArbiter(resolver)
	ctx := context.Background()

	assert.False(t, arbiter.Resolve(ctx, "a", ""))
	assert.False(t, arbiter.Resolve(ctx, "b", ""))
	assert.Equal(t, conflict.PolicyNone, arbiter.Policy(), "failed prompts must not set a sticky policy")
}

func TestArbiter_NilResolverSkips(t *testing.T) {
	t.Parallel()

	arbiter := conflict.NewArbiter(nil)
	assert.False(t, arbiter.Resolve(context.Background(), "a", ""))
	assert.Equal(t, 0, arbiter.Prompts())
}

func TestArbiter_CancelledContextSkipsWithoutPrompt(t *testing.T) {
	t.Parallel()

	resolver := conflict.NewScriptedResolver(conflict.DecisionOverwrite)
	arbiter := conflict.NewArbiter(resolver)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.False(t, arbiter.Resolve(ctx, "a", ""))
	assert.Empty(t, resolver.Asked())
}

func TestArbiter_PromptsInEncounterOrderUntilSticky(t *testing.T) {
	t.Parallel()

	resolver := conflict.NewScriptedResolver(
		conflict.DecisionSkip,
		conflict.DecisionOverwrite,
		conflict.DecisionOverwriteAll,
	)
	arbiter := conflict.NewArbiter(resolver)
	ctx := context.Background()

	results := []bool{
		arbiter.Resolve(ctx, "p1", "src"),
		arbiter.Resolve(ctx, "p2", "src"),
		arbiter.Resolve(ctx, "p3", "src"),
		arbiter.Resolve(ctx, "p4", "src"),
		arbiter.Resolve(ctx, "p5", "src"),
	}

	assert.Equal(t, []bool{false, true, true, true, true}, results)

	asked := resolver.Asked()
	require.Len(t, asked, 3)
	assert.Equal(t, "p1", asked[0].Path)
	assert.Equal(t, "p2", asked[1].Path)
	assert.Equal(t, "p3", asked[2].Path)
}

// slowResolver records the maximum number of concurrent Resolve calls
type slowResolver struct {
	inFlight    atomic.Int32
	maxInFlight atomic.Int32
	calls       atomic.Int32
	decision    conflict.Decision
}

func (s *slowResolver) Resolve(_ context.Context, _ conflict.Conflict) (conflict.Decision, error) {
	n := s.inFlight.Add(1)
	defer s.inFlight.Add(-1)
	for {
		current := s.maxInFlight.Load()
		if n <= current || s.maxInFlight.CompareAndSwap(current, n) {
			break
		}
	}
	s.calls.Add(1)
	time.Sleep(5 * time.Millisecond)
	return s.decision, nil
}

func TestArbiter_SerializesPrompts(t *testing.T) {
	t.Parallel()

	resolver := &slowResolver{decision: conflict.DecisionOverwrite}
	arbiter := conflict.NewArbiter(resolver)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.True(t, arbiter.Resolve(context.Background(), "same/path", "unit"))
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), resolver.maxInFlight.Load())
	assert.Equal(t, int32(8), resolver.calls.Load())
}

func TestArbiter_StickyPolicyReleasesQueuedUnits(t *testing.T) {
	t.Parallel()

	resolver := &slowResolver{decision: conflict.DecisionSkipAll}
	arbiter := conflict.NewArbiter(resolver)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.False(t, arbiter.Resolve(context.Background(), "path", "unit"))
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), resolver.calls.Load(), "units queued behind a sticky answer must not be prompted")
	assert.Equal(t, conflict.PolicySkipAll, arbiter.Policy())
}

func TestNewResolverForMode(t *testing.T) {
	t.Parallel()

	ask := func() conflict.Resolver { return conflict.NewScriptedResolver() }

	tests := []struct {
		mode     string
		expected conflict.Decision
		static   bool
		wantErr  bool
	}{
		{mode: "overwrite", expected: conflict.DecisionOverwriteAll, static: true},
		{mode: "SKIP", expected: conflict.DecisionSkipAll, static: true},
		{mode: "ask"},
		{mode: ""},
		{mode: "prompt", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.mode, func(t *testing.T) {
			t.Parallel()
			resolver, err := conflict.NewResolverForMode(tt.mode, ask)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			if tt.static {
				decision, err := resolver.Resolve(context.Background(), conflict.Conflict{})
				require.NoError(t, err)
				assert.Equal(t, tt.expected, decision)
			} else {
				assert.IsType(t, &conflict.ScriptedResolver{}, resolver)
			}
		})
	}

	_, err := conflict.NewResolverForMode("ask", nil)
	require.Error(t, err)
}
