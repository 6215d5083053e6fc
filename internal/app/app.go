package app

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	_ "github.com/lib/pq"

	"tashkeelcards/internal/config"
	"tashkeelcards/internal/domain"
	"tashkeelcards/internal/flashcard"
	"tashkeelcards/internal/infrastructure/llm"
	"tashkeelcards/internal/infrastructure/parser"
	"tashkeelcards/internal/infrastructure/storage"
	"tashkeelcards/internal/infrastructure/telegram"
	"tashkeelcards/internal/logging"
	"tashkeelcards/internal/pipeline"
	"tashkeelcards/internal/ports"
	"tashkeelcards/internal/scanner"
	"tashkeelcards/internal/usecase"
)

// Application wires configs to use cases.
type Application struct {
	cfg    config.Config
	logger *slog.Logger
}

// New builds an application instance.
func New(cfg config.Config, baseLogger *slog.Logger) *Application {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level, cfg.Logging.Format)
	}
	return &Application{cfg: cfg, logger: baseLogger}
}

// Scrape crawls the configured sites and writes the article document to
// scraper.output.
func (a *Application) Scrape(ctx context.Context) (int, error) {
	logger, _ := logging.WithRun(a.logger)

	client := &http.Client{Timeout: a.cfg.Scraper.RequestTimeout}
	registry := scanner.NewRegistry()
	registry.Register(parser.NewListingScanner(client, a.cfg.Scraper.UserAgent, logger.With("component", "scanner.listing")))
	source := parser.NewStrategySource(registry, a.cfg.Scraper.Sites, logger.With("component", "source"))

	var buf bytes.Buffer
	n, err := usecase.Scrape(ctx, source, &buf)
	if err != nil {
		return 0, err
	}
	if err := storage.WriteFileAtomic(a.cfg.Scraper.Output, buf.Bytes(), 0o644); err != nil {
		return 0, fmt.Errorf("write %s: %w", a.cfg.Scraper.Output, err)
	}
	logger.Info("articles written", "articles", n, "path", a.cfg.Scraper.Output)
	return n, nil
}

// Translate runs the sentence pipeline over pipeline.input and persists
// results to the configured store.
func (a *Application) Translate(ctx context.Context) (domain.RunReport, error) {
	logger, runID := logging.WithRun(a.logger)

	f, err := os.Open(a.cfg.Pipeline.Input)
	if err != nil {
		return domain.RunReport{}, fmt.Errorf("open input: %w", err)
	}
	articles, err := usecase.LoadArticles(f)
	f.Close()
	if err != nil {
		return domain.RunReport{}, fmt.Errorf("%s: %w", a.cfg.Pipeline.Input, err)
	}

	records, skipped := usecase.ExpandSentences(articles, a.cfg.Pipeline.IncludeUndiacritized)
	for _, title := range skipped {
		logger.Warn("skipping article without aligned tashkeel", "title", title)
	}

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return domain.RunReport{}, err
	}
	defer closeStore()

	runner, err := a.newRunner(ctx, logger)
	if err != nil {
		return domain.RunReport{}, err
	}

	deps := usecase.PipelineDeps{
		Store:  store,
		Runner: runner,
		Logger: logger.With("component", "pipeline"),
		RunID:  runID,
	}
	if tg := a.cfg.Notifications.Telegram; tg.Enabled() {
		deps.Notifier = telegram.NewNotifier(tg.APIURL, tg.BotToken, tg.ChatID)
	}
	return usecase.NewPipeline(deps).ProcessSentences(ctx, records)
}

// TranslateSentence runs the graph for one sentence without touching the
// store.
func (a *Application) TranslateSentence(ctx context.Context, sentence string) (domain.LLMOutput, time.Duration, error) {
	logger, _ := logging.WithRun(a.logger)

	runner, err := a.newRunner(ctx, logger)
	if err != nil {
		return domain.LLMOutput{}, 0, err
	}

	start := time.Now()
	out, err := usecase.NewPipeline(usecase.PipelineDeps{Runner: runner, Logger: logger}).RunSentence(ctx, sentence)
	return out, time.Since(start), err
}

// BuildFlashcards writes the Anki import file and its card templates. An
// empty input reads from the configured result store.
func (a *Application) BuildFlashcards(ctx context.Context, input, output string) (int, error) {
	var results *domain.ResultSet
	var err error
	if input != "" {
		results, err = storage.NewFileStore(input).Load(ctx)
	} else {
		results, err = a.loadResults(ctx)
	}
	if err != nil {
		return 0, fmt.Errorf("load results: %w", err)
	}

	builder := flashcard.NewBuilder(flashcard.Options{
		Deck:     a.cfg.Flashcards.Deck,
		NoteType: a.cfg.Flashcards.NoteType,
		Labels:   a.cfg.Flashcards.Labels,
		Logger:   a.logger.With("component", "flashcard"),
	})

	var deck bytes.Buffer
	n, err := builder.WriteDeck(&deck, results)
	if err != nil {
		return 0, err
	}
	if err := storage.WriteFileAtomic(output, deck.Bytes(), 0o644); err != nil {
		return 0, fmt.Errorf("write deck: %w", err)
	}

	var templates bytes.Buffer
	if err := builder.WriteTemplates(&templates); err != nil {
		return 0, fmt.Errorf("render templates: %w", err)
	}
	if err := storage.WriteFileAtomic(flashcard.TemplatesPath(output), templates.Bytes(), 0o644); err != nil {
		return 0, fmt.Errorf("write templates: %w", err)
	}

	a.logger.Info("flashcards written", "notes", n, "skipped", results.Len()-n, "path", output)
	return n, nil
}

func (a *Application) loadResults(ctx context.Context) (*domain.ResultSet, error) {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return nil, err
	}
	defer closeStore()
	return store.Load(ctx)
}

func (a *Application) newRunner(ctx context.Context, logger *slog.Logger) (*usecase.Retrier, error) {
	gen, err := llm.New(ctx, a.cfg.LLM)
	if err != nil {
		return nil, err
	}
	logger.Info("llm backend ready", "backend", a.cfg.LLM.Backend, "model", gen.Model())

	graph, err := pipeline.NewSentenceGraph(gen, pipeline.SentenceOptions{
		Concurrent: a.cfg.Pipeline.ConcurrentStages,
		Logger:     logger.With("component", "graph"),
	})
	if err != nil {
		return nil, fmt.Errorf("build sentence graph: %w", err)
	}

	return usecase.NewRetrier(
		graph,
		usecase.ConstantBackoff(a.cfg.Pipeline.Cooldown),
		llm.IsTransient,
		logger.With("component", "retry"),
	), nil
}

func (a *Application) openStore(ctx context.Context) (ports.ResultStore, func(), error) {
	switch a.cfg.Storage.Driver {
	case config.DriverPostgres:
		db, err := sql.Open("postgres", a.cfg.Database.DSN)
		if err != nil {
			return nil, nil, fmt.Errorf("open database: %w", err)
		}
		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("ping database: %w", err)
		}
		store := storage.NewPostgresStore(db, a.cfg.Storage.Table)
		if err := store.EnsureSchema(ctx); err != nil {
			db.Close()
			return nil, nil, err
		}
		return store, func() { db.Close() }, nil
	default:
		return storage.NewFileStore(a.cfg.Pipeline.Output), func() {}, nil
	}
}
