package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSentenceGraphShape(t *testing.T) {
	t.Parallel()

	g, err := NewSentenceGraph(newScriptedGenerator(), SentenceOptions{})
	require.NoError(t, err)

	assert.Equal(t, [][]string{
		{StageDiacritize},
		{StageTranslate, StageVocabulary, StageExplain},
		{StageAggregate},
	}, g.Levels())
	assert.Equal(t, StageDiacritize, g.Order()[0])
	assert.Equal(t, StageAggregate, g.Order()[4])
}

func TestSentenceGraphInvoke(t *testing.T) {
	t.Parallel()

	for _, concurrent := range []bool{false, true} {
		gen := newScriptedGenerator()
		g, err := NewSentenceGraph(gen, SentenceOptions{Concurrent: concurrent})
		require.NoError(t, err)

		final, err := g.Invoke(context.Background(), NewState("ذهب الولد"))
		require.NoError(t, err)
		require.NotNil(t, final.Combined)

		out := *final.Combined
		assert.Equal(t, "ذهب الولد", out.ArabicSentence)
		assert.Equal(t, "ذَهَبَ الوَلَدُ", out.TashkeelSentence)
		assert.Equal(t, "The boy went", out.TranslatedSentence)
		assert.Equal(t, "{\n    \"ذَهَبَ\": {\n        \"meanings\": [\n            \"went\"\n        ],\n        \"pronounciation\": \"dhahaba\"\n    }\n}", out.Vocabulary)
		assert.Contains(t, out.Explanation, "<h2>Grammar</h2>")
		assert.Contains(t, out.Explanation, "<strong>ذَهَبَ</strong>")

		for _, stage := range []string{StageDiacritize, StageTranslate, StageVocabulary, StageExplain} {
			assert.Equal(t, 1, gen.callCount(stage), stage)
		}
		assert.Contains(t, gen.prompts[StageDiacritize], "Input: ذهب الولد\nOutput:")
		assert.Contains(t, gen.prompts[StageTranslate], "Input: ذَهَبَ الوَلَدُ\nOutput:")
		assert.Contains(t, gen.prompts[StageExplain], "ذَهَبَ الوَلَدُ")
	}
}

func TestSentenceGraphKeepsRawVocabularyWithoutJSON(t *testing.T) {
	t.Parallel()

	gen := newScriptedGenerator()
	gen.vocab = "I cannot produce JSON for this sentence."
	g, err := NewSentenceGraph(gen, SentenceOptions{Concurrent: true})
	require.NoError(t, err)

	final, err := g.Invoke(context.Background(), NewState("ذهب الولد"))
	require.NoError(t, err)
	assert.Equal(t, gen.vocab, final.Combined.Vocabulary)
}

func TestSentenceGraphPropagatesStageError(t *testing.T) {
	t.Parallel()

	boom := errors.New("provider exploded")
	gen := newScriptedGenerator()
	gen.failStage = StageVocabulary
	gen.failErr = boom

	g, err := NewSentenceGraph(gen, SentenceOptions{Concurrent: true})
	require.NoError(t, err)

	final, err := g.Invoke(context.Background(), NewState("ذهب الولد"))
	require.ErrorIs(t, err, boom)
	assert.Nil(t, final.Combined)
	assert.Zero(t, gen.callCount(StageAggregate))
}

func TestExtractVocabulary(t *testing.T) {
	t.Parallel()

	got, err := ExtractVocabulary("text\n```json\n{\"b\": 1, \"a\": \"<x>\"}\n```\nmore")
	require.NoError(t, err)
	assert.Equal(t, "{\n    \"b\": 1,\n    \"a\": \"<x>\"\n}", got)

	_, err = ExtractVocabulary("no fence here")
	assert.ErrorIs(t, err, ErrNoJSON)

	_, err = ExtractVocabulary("```json\n{broken\n```")
	assert.ErrorIs(t, err, ErrInvalidJSON)

	_, err = ExtractVocabulary("```json\n{\"a\": 1} {\"b\": 2}\n```")
	assert.ErrorIs(t, err, ErrInvalidJSON)
}

func TestExtractVocabularyDecodesEscapesAndRepeatedKeys(t *testing.T) {
	t.Parallel()

	response := "```json\n" +
		`{"\u0630\u0647\u0628": {"meanings": ["gold"]}, "x": [1.50, true, null, {}], "\u0630\u0647\u0628": {"meanings": ["went"]}}` +
		"\n```"

	got, err := ExtractVocabulary(response)
	require.NoError(t, err)
	assert.Equal(t, "{\n"+
		"    \"ذهب\": {\n"+
		"        \"meanings\": [\n"+
		"            \"went\"\n"+
		"        ]\n"+
		"    },\n"+
		"    \"x\": [\n"+
		"        1.50,\n"+
		"        true,\n"+
		"        null,\n"+
		"        {}\n"+
		"    ]\n"+
		"}", got)
}

func TestAggregateReportsMissingFields(t *testing.T) {
	t.Parallel()

	tashkeel := "ذَهَبَ"
	s := NewState("ذهب")
	s.TashkeelSentence = &tashkeel

	_, err := Aggregate(s)
	require.ErrorIs(t, err, ErrIncompleteState)
	assert.Contains(t, err.Error(), "translated_sentence, vocabulary, explanation")
}

func TestRenderPromptEmbedsVocabularyExample(t *testing.T) {
	t.Parallel()

	prompt, err := RenderPrompt(StageVocabulary, "ذَهَبَ")
	require.NoError(t, err)
	assert.Contains(t, prompt, "\"جابر\"")
	assert.Contains(t, prompt, "Input: ذَهَبَ\nOutput:")

	_, err = RenderPrompt("missing", "x")
	assert.Error(t, err)
}
