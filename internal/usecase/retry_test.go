package usecase

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tashkeelcards/internal/domain"
	"tashkeelcards/internal/pipeline"
)

var errFlaky = errors.New("rate limited")

func isFlaky(err error) bool { return errors.Is(err, errFlaky) }

type flakyGraph struct {
	failures int
	err      error
	calls    atomic.Int32
	seen     []pipeline.State
}

func (g *flakyGraph) Invoke(_ context.Context, state pipeline.State) (pipeline.State, error) {
	n := int(g.calls.Add(1))
	g.seen = append(g.seen, state)
	if n <= g.failures {
		return state, g.err
	}
	state.Combined = &domain.LLMOutput{ArabicSentence: state.ArabicSentence}
	return state, nil
}

func countingBackoff(waits *atomic.Int32) BackoffFactory {
	return func() retry.Backoff {
		return retry.BackoffFunc(func() (time.Duration, bool) {
			waits.Add(1)
			return 0, false
		})
	}
}

func TestRetrierRecoversAfterTransientFailures(t *testing.T) {
	t.Parallel()

	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))

	graph := &flakyGraph{failures: 2, err: errFlaky}
	var waits atomic.Int32
	r := NewRetrier(graph, countingBackoff(&waits), isFlaky, logger)

	state, err := r.Invoke(context.Background(), "ذهب الولد")
	require.NoError(t, err)
	require.NotNil(t, state.Combined)

	assert.Equal(t, int32(3), graph.calls.Load())
	assert.Equal(t, int32(2), waits.Load())
	for _, s := range graph.seen {
		assert.Equal(t, pipeline.NewState("ذهب الولد"), s)
	}
	assert.Equal(t, 2, strings.Count(logs.String(), "transient failure, cooling down"))
	assert.Contains(t, logs.String(), "attempt=2")
}

func TestRetrierStopsOnPermanentError(t *testing.T) {
	t.Parallel()

	boom := errors.New("bad request")
	graph := &flakyGraph{failures: 5, err: boom}
	var waits atomic.Int32
	r := NewRetrier(graph, countingBackoff(&waits), isFlaky, nil)

	_, err := r.Invoke(context.Background(), "s")
	require.ErrorIs(t, err, boom)
	assert.Equal(t, int32(1), graph.calls.Load())
	assert.Zero(t, waits.Load())
}

func TestRetrierHonoursCancellationDuringCooldown(t *testing.T) {
	t.Parallel()

	graph := &flakyGraph{failures: 1000, err: errFlaky}
	r := NewRetrier(graph, ConstantBackoff(time.Hour), isFlaky, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := r.Invoke(ctx, "s")
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, int32(1), graph.calls.Load())
}

func TestConstantBackoff(t *testing.T) {
	t.Parallel()

	wait, stop := ConstantBackoff(time.Minute)().Next()
	assert.Equal(t, time.Minute, wait)
	assert.False(t, stop)

	wait, stop = ConstantBackoff(0)().Next()
	assert.Zero(t, wait)
	assert.False(t, stop)
}
