package usecase

import (
	"encoding/json"
	"fmt"
	"io"

	"tashkeelcards/internal/domain"
)

// LoadArticles decodes the scraper output, keeping the title order of the
// document.
func LoadArticles(r io.Reader) (*domain.ArticleSet, error) {
	raw := domain.NewArticleSet()
	if err := json.NewDecoder(r).Decode(raw); err != nil {
		return nil, fmt.Errorf("decode articles: %w", err)
	}

	articles := domain.NewArticleSet()
	raw.Each(func(title string, a domain.Article) bool {
		a.Title = title
		articles.Set(title, a)
		return true
	})
	return articles, nil
}

// ExpandSentences yields one record per sentence. Articles whose tashkeel list
// does not line up with their sentences are skipped, unless
// includeUndiacritized is set, and reported by title. A sentence seen twice
// keeps its first position and takes the later record.
func ExpandSentences(articles *domain.ArticleSet, includeUndiacritized bool) ([]domain.SentenceRecord, []string) {
	records := domain.NewOrderedMap[domain.SentenceRecord]()
	var skipped []string

	articles.Each(func(title string, a domain.Article) bool {
		switch {
		case a.HasTashkeel():
			for i, sentence := range a.Sentences {
				tashkeel := a.Tashkeel[i]
				records.Set(sentence, domain.SentenceRecord{
					ArabicSentence:   sentence,
					TrueTashkeel:     &tashkeel,
					Title:            title,
					Link:             a.Link,
					LangBreakContent: a.LangBreakContent,
				})
			}
		case includeUndiacritized && len(a.Sentences) > 0:
			for _, sentence := range a.Sentences {
				records.Set(sentence, domain.SentenceRecord{
					ArabicSentence:   sentence,
					Title:            title,
					Link:             a.Link,
					LangBreakContent: a.LangBreakContent,
				})
			}
		default:
			skipped = append(skipped, title)
		}
		return true
	})

	out := make([]domain.SentenceRecord, 0, records.Len())
	records.Each(func(_ string, r domain.SentenceRecord) bool {
		out = append(out, r)
		return true
	})
	return out, skipped
}
