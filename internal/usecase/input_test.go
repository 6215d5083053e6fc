package usecase

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const articlesDoc = `{
    "Morning in the village": {
        "link": "https://example.org/village",
        "lang_break_content": "Level: beginner",
        "article": ["ذهب الولد", "جاء المعلم"],
        "tashkeel": ["ذَهَبَ الوَلَدُ", "جَاءَ المُعَلِّمُ"]
    },
    "No marks": {
        "link": "https://example.org/plain",
        "lang_break_content": null,
        "article": ["قرأ الطالب"]
    },
    "Empty": {
        "link": "https://example.org/empty",
        "lang_break_content": null
    },
    "Repeat": {
        "link": "https://example.org/repeat",
        "lang_break_content": null,
        "article": ["ذهب الولد"],
        "tashkeel": ["ذَهَبَ الوَلَدُ"]
    }
}`

func TestLoadArticlesKeepsDocumentOrder(t *testing.T) {
	t.Parallel()

	articles, err := LoadArticles(strings.NewReader(articlesDoc))
	require.NoError(t, err)
	assert.Equal(t, []string{"Morning in the village", "No marks", "Empty", "Repeat"}, articles.Keys())

	village, ok := articles.Get("Morning in the village")
	require.True(t, ok)
	assert.Equal(t, "Morning in the village", village.Title)
	require.NotNil(t, village.LangBreakContent)
	assert.Equal(t, "Level: beginner", *village.LangBreakContent)
}

func TestLoadArticlesRejectsMalformedInput(t *testing.T) {
	t.Parallel()

	_, err := LoadArticles(strings.NewReader(`["not", "an", "object"]`))
	assert.Error(t, err)
}

func TestExpandSentences(t *testing.T) {
	t.Parallel()

	articles, err := LoadArticles(strings.NewReader(articlesDoc))
	require.NoError(t, err)

	t.Run("diacritized only", func(t *testing.T) {
		records, skipped := ExpandSentences(articles, false)
		require.Len(t, records, 2)
		assert.Equal(t, []string{"No marks", "Empty"}, skipped)

		first := records[0]
		assert.Equal(t, "ذهب الولد", first.ArabicSentence)
		require.NotNil(t, first.TrueTashkeel)
		assert.Equal(t, "ذَهَبَ الوَلَدُ", *first.TrueTashkeel)
		assert.Equal(t, "Repeat", first.Title)
		assert.Equal(t, "جاء المعلم", records[1].ArabicSentence)
		assert.Equal(t, "Morning in the village", records[1].Title)
	})

	t.Run("include undiacritized", func(t *testing.T) {
		records, skipped := ExpandSentences(articles, true)
		require.Len(t, records, 3)
		assert.Equal(t, []string{"Empty"}, skipped)
		assert.Equal(t, "قرأ الطالب", records[2].ArabicSentence)
		assert.Nil(t, records[2].TrueTashkeel)
	})
}
