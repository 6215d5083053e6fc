package pipeline

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tashkeelcards/internal/ports"
)

func noop(context.Context, State, ports.TextGenerator) (Update, error) {
	return Update{}, nil
}

func produce(field Field, value string) StageFunc {
	return func(context.Context, State, ports.TextGenerator) (Update, error) {
		v := value
		switch field {
		case FieldTashkeel:
			return Update{TashkeelSentence: &v}, nil
		case FieldTranslation:
			return Update{TranslatedSentence: &v}, nil
		case FieldVocabulary:
			return Update{Vocabulary: &v}, nil
		case FieldExplanation:
			return Update{Explanation: &v}, nil
		}
		return Update{}, nil
	}
}

func TestNewGraphRejectsInvalidShapes(t *testing.T) {
	t.Parallel()

	a := Node{Name: "a", Run: noop}
	b := Node{Name: "b", Run: noop}

	tests := []struct {
		name  string
		nodes []Node
		edges []Edge
		kind  error
		msg   string
	}{
		{name: "no nodes", kind: ErrInvalidGraph, msg: "no nodes"},
		{name: "empty name", nodes: []Node{{Run: noop}}, kind: ErrInvalidGraph, msg: "empty name"},
		{name: "reserved", nodes: []Node{{Name: Entry, Run: noop}}, kind: ErrInvalidGraph, msg: "reserved"},
		{name: "nil run", nodes: []Node{{Name: "a"}}, kind: ErrInvalidGraph, msg: "no run function"},
		{name: "duplicate node", nodes: []Node{a, a}, kind: ErrInvalidGraph, msg: "duplicate node"},
		{
			name:  "unknown target",
			nodes: []Node{a},
			edges: []Edge{{Entry, "a"}, {"a", "ghost"}},
			kind:  ErrInvalidGraph,
			msg:   "unknown",
		},
		{
			name:  "self loop",
			nodes: []Node{a},
			edges: []Edge{{Entry, "a"}, {"a", "a"}, {"a", Exit}},
			kind:  ErrInvalidGraph,
			msg:   "self-loop",
		},
		{
			name:  "duplicate edge",
			nodes: []Node{a},
			edges: []Edge{{Entry, "a"}, {Entry, "a"}, {"a", Exit}},
			kind:  ErrInvalidGraph,
			msg:   "duplicate edge",
		},
		{
			name:  "unreachable",
			nodes: []Node{a, b},
			edges: []Edge{{Entry, "a"}, {"a", Exit}, {"b", Exit}},
			kind:  ErrInvalidGraph,
			msg:   "not reachable",
		},
		{
			name:  "dead end",
			nodes: []Node{a, b},
			edges: []Edge{{Entry, "a"}, {"a", "b"}, {Entry, "b"}},
			kind:  ErrInvalidGraph,
			msg:   "does not lead",
		},
		{
			name:  "cycle",
			nodes: []Node{a, b},
			edges: []Edge{{Entry, "a"}, {"a", "b"}, {"b", "a"}, {"b", Exit}},
			kind:  ErrCycle,
			msg:   "a -> b -> a",
		},
		{
			name: "unproduced requirement",
			nodes: []Node{
				{Name: "a", Requires: []Field{FieldTashkeel}, Run: noop},
			},
			edges: []Edge{{Entry, "a"}, {"a", Exit}},
			kind:  ErrInvalidGraph,
			msg:   "requires tashkeel_sentence",
		},
		{
			name: "two producers",
			nodes: []Node{
				{Name: "a", Produces: []Field{FieldTranslation}, Run: noop},
				{Name: "b", Produces: []Field{FieldTranslation}, Run: noop},
			},
			edges: []Edge{{Entry, "a"}, {Entry, "b"}, {"a", Exit}, {"b", Exit}},
			kind:  ErrInvalidGraph,
			msg:   "produced by both",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := NewGraph(tt.nodes, tt.edges)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.kind)
			assert.Contains(t, err.Error(), tt.msg)

			var gerr *GraphError
			assert.True(t, errors.As(err, &gerr))
		})
	}
}

func TestGraphDepthUsesLongestPath(t *testing.T) {
	t.Parallel()

	nodes := []Node{
		{Name: "a", Run: noop},
		{Name: "b", Run: noop},
		{Name: "c", Run: noop},
	}
	edges := []Edge{
		{Entry, "a"}, {Entry, "c"},
		{"a", "b"}, {"b", "c"},
		{"c", Exit},
	}
	g, err := NewGraph(nodes, edges)
	require.NoError(t, err)

	d, ok := g.Depth("c")
	require.True(t, ok)
	assert.Equal(t, 3, d)
	assert.Equal(t, []string{"a", "b", "c"}, g.Order())
}

func TestInvokeRejectsUndeclaredOutput(t *testing.T) {
	t.Parallel()

	nodes := []Node{{Name: "sneaky", Run: produce(FieldTranslation, "x")}}
	g, err := NewGraph(nodes, []Edge{{Entry, "sneaky"}, {"sneaky", Exit}})
	require.NoError(t, err)

	_, err = g.Invoke(context.Background(), NewState("s"))
	assert.ErrorIs(t, err, ErrUndeclaredField)
}

func TestInvokeRunsSiblingsConcurrently(t *testing.T) {
	t.Parallel()

	var inFlight, peak atomic.Int32
	release := make(chan struct{})
	started := make(chan struct{}, 3)

	blocking := func(field Field) StageFunc {
		inner := produce(field, string(field))
		return func(ctx context.Context, s State, gen ports.TextGenerator) (Update, error) {
			n := inFlight.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			started <- struct{}{}
			<-release
			inFlight.Add(-1)
			return inner(ctx, s, gen)
		}
	}

	nodes := []Node{
		{Name: "t", Produces: []Field{FieldTranslation}, Run: blocking(FieldTranslation)},
		{Name: "v", Produces: []Field{FieldVocabulary}, Run: blocking(FieldVocabulary)},
		{Name: "e", Produces: []Field{FieldExplanation}, Run: blocking(FieldExplanation)},
	}
	edges := []Edge{
		{Entry, "t"}, {Entry, "v"}, {Entry, "e"},
		{"t", Exit}, {"v", Exit}, {"e", Exit},
	}
	g, err := NewGraph(nodes, edges, WithConcurrency(true))
	require.NoError(t, err)

	done := make(chan error, 1)
	var final State
	go func() {
		var err error
		final, err = g.Invoke(context.Background(), NewState("s"))
		done <- err
	}()

	for range 3 {
		<-started
	}
	close(release)
	require.NoError(t, <-done)

	assert.Equal(t, int32(3), peak.Load())
	require.NotNil(t, final.TranslatedSentence)
	assert.Equal(t, "vocabulary", *final.Vocabulary)
	assert.Equal(t, "explanation", *final.Explanation)
}

func TestStateApplyRefusesOverwrite(t *testing.T) {
	t.Parallel()

	first := "one"
	second := "two"
	s, err := NewState("s").Apply(Update{TranslatedSentence: &first})
	require.NoError(t, err)

	kept, err := s.Apply(Update{TranslatedSentence: &second})
	require.ErrorIs(t, err, ErrFieldOverwrite)
	assert.Equal(t, "one", *kept.TranslatedSentence)
}

func TestInvokeStopsOnCancelledContext(t *testing.T) {
	t.Parallel()

	g, err := NewGraph([]Node{{Name: "a", Run: noop}}, []Edge{{Entry, "a"}, {"a", Exit}})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = g.Invoke(ctx, NewState("s"))
	assert.ErrorIs(t, err, context.Canceled)
}
