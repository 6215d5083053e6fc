package ports

import (
	"context"

	"tashkeelcards/internal/domain"
)

// TextGenerator turns a single prompt into a completion from an LLM backend.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
	Model() string
}

// ResultStore persists completed sentences so interrupted runs can resume.
type ResultStore interface {
	Load(ctx context.Context) (*domain.ResultSet, error)
	Save(ctx context.Context, results *domain.ResultSet, latest domain.ResultEntry) error
}

// ArticleSource crawls upstream pages and returns articles in crawl order.
type ArticleSource interface {
	FetchArticles(ctx context.Context) ([]domain.Article, error)
}

// Notifier publishes run summaries to Telegram or other channels.
type Notifier interface {
	PublishReport(ctx context.Context, report domain.RunReport) error
}
