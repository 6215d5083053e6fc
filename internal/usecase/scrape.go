package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"tashkeelcards/internal/domain"
	"tashkeelcards/internal/ports"
)

// Scrape crawls every configured site and writes the title-keyed article
// document to w. It returns the number of distinct titles written.
func Scrape(ctx context.Context, source ports.ArticleSource, w io.Writer) (int, error) {
	articles, err := source.FetchArticles(ctx)
	if err != nil {
		return 0, fmt.Errorf("fetch articles: %w", err)
	}

	set := domain.NewArticleSet()
	for _, a := range articles {
		if set.Has(a.Title) {
			continue
		}
		set.Set(a.Title, a)
	}

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(set); err != nil {
		return 0, fmt.Errorf("encode articles: %w", err)
	}
	return set.Len(), nil
}
