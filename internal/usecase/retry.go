package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/sethvargo/go-retry"

	"tashkeelcards/internal/pipeline"
)

// GraphInvoker runs one full pass of the stage graph.
type GraphInvoker interface {
	Invoke(ctx context.Context, state pipeline.State) (pipeline.State, error)
}

// BackoffFactory yields a fresh backoff for each sentence.
type BackoffFactory func() retry.Backoff

// ConstantBackoff waits d between attempts, forever. A non-positive d retries
// immediately.
func ConstantBackoff(d time.Duration) BackoffFactory {
	return func() retry.Backoff {
		if d <= 0 {
			return retry.BackoffFunc(func() (time.Duration, bool) { return 0, false })
		}
		return retry.NewConstant(d)
	}
}

// Retrier re-runs the whole graph for a sentence while failures are transient.
type Retrier struct {
	graph     GraphInvoker
	backoff   BackoffFactory
	transient func(error) bool
	logger    *slog.Logger
}

// NewRetrier wires the graph with a backoff policy and a transient-error test.
func NewRetrier(graph GraphInvoker, backoff BackoffFactory, transient func(error) bool, logger *slog.Logger) *Retrier {
	if logger == nil {
		logger = slog.Default()
	}
	if transient == nil {
		transient = func(error) bool { return false }
	}
	return &Retrier{graph: graph, backoff: backoff, transient: transient, logger: logger}
}

// Invoke runs the graph from a fresh state until it succeeds, fails with a
// non-transient error, or ctx is cancelled.
func (r *Retrier) Invoke(ctx context.Context, sentence string) (pipeline.State, error) {
	var (
		attempt int
		lastErr error
	)

	next := r.backoff()
	logged := retry.BackoffFunc(func() (time.Duration, bool) {
		wait, stop := next.Next()
		if !stop {
			r.logger.Warn("transient failure, cooling down",
				"attempt", attempt,
				"wait", wait,
				"error", lastErr,
			)
		}
		return wait, stop
	})

	return retry.DoValue(ctx, logged, func(ctx context.Context) (pipeline.State, error) {
		attempt++
		state, err := r.graph.Invoke(ctx, pipeline.NewState(sentence))
		if err == nil {
			return state, nil
		}
		if ctx.Err() == nil && r.transient(err) {
			lastErr = err
			return pipeline.State{}, retry.RetryableError(err)
		}
		return pipeline.State{}, err
	})
}
