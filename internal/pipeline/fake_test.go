package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync"
)

type scriptedGenerator struct {
	mu        sync.Mutex
	tashkeel  string
	english   string
	vocab     string
	markdown  string
	failStage string
	failErr   error
	calls     map[string]int
	prompts   map[string]string
}

func newScriptedGenerator() *scriptedGenerator {
	return &scriptedGenerator{
		tashkeel: "ذَهَبَ الوَلَدُ",
		english:  "The boy went",
		vocab:    "Here you go:\n```json\n{\"ذَهَبَ\": {\"meanings\": [\"went\"], \"pronounciation\": \"dhahaba\"}}\n```",
		markdown: "## Grammar\n**ذَهَبَ** is a past tense verb.",
		calls:    map[string]int{},
		prompts:  map[string]string{},
	}
}

func stageOf(prompt string) string {
	switch {
	case strings.HasPrefix(prompt, "Get the 'tashkeel'"):
		return StageDiacritize
	case strings.HasPrefix(prompt, "Translate the given"):
		return StageTranslate
	case strings.HasPrefix(prompt, "Provide a detailed word-by-word"):
		return StageVocabulary
	case strings.HasPrefix(prompt, "Analyze the following"):
		return StageExplain
	default:
		return "unknown"
	}
}

func (g *scriptedGenerator) Generate(_ context.Context, prompt string) (string, error) {
	stage := stageOf(prompt)

	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls[stage]++
	g.prompts[stage] = prompt

	if stage == g.failStage {
		return "", g.failErr
	}
	switch stage {
	case StageDiacritize:
		return g.tashkeel, nil
	case StageTranslate:
		return g.english, nil
	case StageVocabulary:
		return g.vocab, nil
	case StageExplain:
		return g.markdown, nil
	}
	return "", errors.New("unexpected prompt")
}

func (g *scriptedGenerator) Model() string { return "scripted" }

func (g *scriptedGenerator) callCount(stage string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls[stage]
}
