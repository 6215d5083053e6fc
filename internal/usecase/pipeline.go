package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"tashkeelcards/internal/domain"
	"tashkeelcards/internal/pipeline"
	"tashkeelcards/internal/ports"
)

const notifyTimeout = 10 * time.Second

// SentenceRunner produces the final graph state for one sentence.
type SentenceRunner interface {
	Invoke(ctx context.Context, sentence string) (pipeline.State, error)
}

// PipelineDeps wires all driven adapters into the orchestration pipeline.
type PipelineDeps struct {
	Store    ports.ResultStore
	Runner   SentenceRunner
	Notifier ports.Notifier
	Logger   *slog.Logger
	RunID    string
	Now      func() time.Time
}

// Pipeline drives the per-sentence graph over a batch, skipping sentences the
// store already holds and persisting each new result before moving on.
type Pipeline struct {
	store    ports.ResultStore
	runner   SentenceRunner
	notifier ports.Notifier
	logger   *slog.Logger
	runID    string
	now      func() time.Time
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &Pipeline{
		store:    deps.Store,
		runner:   deps.Runner,
		notifier: deps.Notifier,
		logger:   logger,
		runID:    deps.RunID,
		now:      now,
	}
}

// ProcessSentences runs every record not yet in the store. On the first
// non-transient failure the run halts; everything saved before it stays.
func (p *Pipeline) ProcessSentences(ctx context.Context, records []domain.SentenceRecord) (domain.RunReport, error) {
	start := p.now()
	report := domain.RunReport{RunID: p.runID, Status: domain.RunCompleted, Total: len(records)}

	err := p.process(ctx, records, start, &report)
	report.Elapsed = p.now().Sub(start)
	if err != nil {
		report.Status = domain.RunHalted
		report.Err = err
	}

	p.logger.Info("translation run finished",
		"status", report.Status,
		"total", report.Total,
		"skipped", report.Skipped,
		"processed", report.Processed,
		"elapsed", report.Elapsed,
	)
	p.notify(ctx, report)
	return report, err
}

func (p *Pipeline) process(ctx context.Context, records []domain.SentenceRecord, start time.Time, report *domain.RunReport) error {
	if p.store == nil || p.runner == nil {
		return fmt.Errorf("pipeline is missing its store or runner")
	}

	results, err := p.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load results: %w", err)
	}
	p.logger.Info("translation run started", "sentences", len(records), "cached", results.Len())

	for i, record := range records {
		if results.Has(record.ArabicSentence) {
			report.Skipped++
			continue
		}

		sentenceStart := p.now()
		output, err := p.RunSentence(ctx, record.ArabicSentence)
		if err != nil {
			return fmt.Errorf("sentence %d/%d: %w", i+1, len(records), err)
		}

		entry := domain.ResultEntry{SentenceRecord: record, LLMOutput: output}
		results.Set(record.ArabicSentence, entry)
		if err := p.store.Save(ctx, results, entry); err != nil {
			return fmt.Errorf("persist sentence %d/%d: %w", i+1, len(records), err)
		}
		report.Processed++

		p.logger.Info("sentence processed",
			"index", i+1,
			"total", len(records),
			"sentence_elapsed", p.now().Sub(sentenceStart),
			"run_elapsed", p.now().Sub(start),
		)
	}
	return nil
}

// RunSentence runs the graph for a single sentence and returns its combined
// output.
func (p *Pipeline) RunSentence(ctx context.Context, sentence string) (domain.LLMOutput, error) {
	state, err := p.runner.Invoke(ctx, sentence)
	if err != nil {
		return domain.LLMOutput{}, err
	}
	if state.Combined == nil {
		return domain.LLMOutput{}, fmt.Errorf("%w: combined output missing", pipeline.ErrIncompleteState)
	}
	return *state.Combined, nil
}

func (p *Pipeline) notify(ctx context.Context, report domain.RunReport) {
	if p.notifier == nil {
		return
	}
	notifyCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()
	if err := p.notifier.PublishReport(notifyCtx, report); err != nil {
		p.logger.Warn("publish run report", "error", err)
	}
}
