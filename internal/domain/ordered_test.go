package domain

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderedMapKeepsInsertionOrder(t *testing.T) {
	t.Parallel()

	m := NewOrderedMap[int]()
	m.Set("zeta", 1)
	m.Set("alpha", 2)
	m.Set("zeta", 3)

	assert.Equal(t, []string{"zeta", "alpha"}, m.Keys())
	v, ok := m.Get("zeta")
	require.True(t, ok)
	assert.Equal(t, 3, v)
	assert.Equal(t, 2, m.Len())
}

func TestOrderedMapJSONRoundTripPreservesOrder(t *testing.T) {
	t.Parallel()

	src := []byte(`{"b": {"link": "<x>"}, "a": {"link": "y"}}`)
	set := NewArticleSet()
	require.NoError(t, json.Unmarshal(src, set))
	assert.Equal(t, []string{"b", "a"}, set.Keys())

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	require.NoError(t, enc.Encode(set))
	out := buf.String()

	assert.Less(t, bytes.Index(buf.Bytes(), []byte(`"b"`)), bytes.Index(buf.Bytes(), []byte(`"a"`)))
	assert.Contains(t, out, `"<x>"`)
}

func TestResultEntryFlattensRecord(t *testing.T) {
	t.Parallel()

	entry := ResultEntry{
		SentenceRecord: SentenceRecord{ArabicSentence: "ذهب الولد", Title: "t", Link: "l"},
		LLMOutput:      LLMOutput{ArabicSentence: "ذهب الولد", TranslatedSentence: "The boy went"},
	}
	raw, err := json.Marshal(entry)
	require.NoError(t, err)

	var generic map[string]any
	require.NoError(t, json.Unmarshal(raw, &generic))
	assert.Equal(t, "ذهب الولد", generic["arabic_sentence"])
	assert.Nil(t, generic["true_tashkeel"])
	assert.Contains(t, generic, "llm_output")
}

func TestArticleHasTashkeel(t *testing.T) {
	t.Parallel()

	assert.False(t, Article{Sentences: []string{"a"}}.HasTashkeel())
	assert.False(t, Article{Sentences: []string{"a", "b"}, Tashkeel: []string{"a"}}.HasTashkeel())
	assert.True(t, Article{Sentences: []string{"a"}, Tashkeel: []string{"á"}}.HasTashkeel())
}
