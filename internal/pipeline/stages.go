package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"

	"tashkeelcards/internal/domain"
	"tashkeelcards/internal/ports"
)

// Stage names of the sentence graph.
const (
	StageDiacritize = "diacritize"
	StageTranslate  = "translate"
	StageVocabulary = "vocabulary"
	StageExplain    = "explain"
	StageAggregate  = "aggregate"
)

var (
	ErrNoJSON      = errors.New("no JSON found")
	ErrInvalidJSON = errors.New("invalid JSON format")
)

var fencedJSON = regexp.MustCompile("(?s)```json\n(.*?)\n```")

var markdown = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithRendererOptions(html.WithUnsafe()),
)

// SentenceOptions configures the standard sentence graph.
type SentenceOptions struct {
	Concurrent bool
	Logger     *slog.Logger
}

// NewSentenceGraph builds entry -> diacritize -> {translate, vocabulary,
// explain} -> aggregate -> exit.
func NewSentenceGraph(gen ports.TextGenerator, opts SentenceOptions) (*Graph, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	nodes := []Node{
		{
			Name:     StageDiacritize,
			Requires: []Field{FieldArabic},
			Produces: []Field{FieldTashkeel},
			Run:      diacritize,
		},
		{
			Name:     StageTranslate,
			Requires: []Field{FieldTashkeel},
			Produces: []Field{FieldTranslation},
			Run:      translate,
		},
		{
			Name:     StageVocabulary,
			Requires: []Field{FieldTashkeel},
			Produces: []Field{FieldVocabulary},
			Run:      vocabularyStage(logger),
		},
		{
			Name:     StageExplain,
			Requires: []Field{FieldTashkeel},
			Produces: []Field{FieldExplanation},
			Run:      explain,
		},
		{
			Name:     StageAggregate,
			Requires: []Field{FieldArabic, FieldTashkeel, FieldTranslation, FieldVocabulary, FieldExplanation},
			Produces: []Field{FieldCombined},
			Run:      aggregate,
		},
	}

	edges := []Edge{
		{From: Entry, To: StageDiacritize},
		{From: StageDiacritize, To: StageTranslate},
		{From: StageDiacritize, To: StageVocabulary},
		{From: StageDiacritize, To: StageExplain},
		{From: StageTranslate, To: StageAggregate},
		{From: StageVocabulary, To: StageAggregate},
		{From: StageExplain, To: StageAggregate},
		{From: StageAggregate, To: Exit},
	}

	return NewGraph(nodes, edges,
		WithGenerator(gen),
		WithConcurrency(opts.Concurrent),
		WithLogger(logger),
	)
}

func ask(ctx context.Context, gen ports.TextGenerator, stage, sentence string) (string, error) {
	if gen == nil {
		return "", fmt.Errorf("%s: no text generator configured", stage)
	}
	prompt, err := RenderPrompt(stage, sentence)
	if err != nil {
		return "", err
	}
	return gen.Generate(ctx, prompt)
}

func diacritize(ctx context.Context, s State, gen ports.TextGenerator) (Update, error) {
	out, err := ask(ctx, gen, StageDiacritize, s.ArabicSentence)
	if err != nil {
		return Update{}, err
	}
	return Update{TashkeelSentence: &out}, nil
}

func translate(ctx context.Context, s State, gen ports.TextGenerator) (Update, error) {
	out, err := ask(ctx, gen, StageTranslate, *s.TashkeelSentence)
	if err != nil {
		return Update{}, err
	}
	return Update{TranslatedSentence: &out}, nil
}

func vocabularyStage(logger *slog.Logger) StageFunc {
	return func(ctx context.Context, s State, gen ports.TextGenerator) (Update, error) {
		raw, err := ask(ctx, gen, StageVocabulary, *s.TashkeelSentence)
		if err != nil {
			return Update{}, err
		}
		vocab, err := ExtractVocabulary(raw)
		if err != nil {
			logger.Warn("keeping raw vocabulary response", "error", err)
			vocab = raw
		}
		return Update{Vocabulary: &vocab}, nil
	}
}

func explain(ctx context.Context, s State, gen ports.TextGenerator) (Update, error) {
	raw, err := ask(ctx, gen, StageExplain, *s.TashkeelSentence)
	if err != nil {
		return Update{}, err
	}
	out, err := MarkdownToHTML(raw)
	if err != nil {
		return Update{}, err
	}
	return Update{Explanation: &out}, nil
}

func aggregate(_ context.Context, s State, _ ports.TextGenerator) (Update, error) {
	out, err := Aggregate(s)
	if err != nil {
		return Update{}, err
	}
	return Update{Combined: &out}, nil
}

// ExtractVocabulary pulls the first fenced json block out of a model response
// and re-encodes it with four-space indentation. Object keys keep their first
// position, a repeated key takes its last value, and escaped non-ASCII text is
// written out literally.
func ExtractVocabulary(response string) (string, error) {
	match := fencedJSON.FindStringSubmatch(response)
	if match == nil {
		return "", ErrNoJSON
	}

	dec := json.NewDecoder(strings.NewReader(match[1]))
	dec.UseNumber()
	value, err := decodeOrdered(dec)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return "", fmt.Errorf("%w: trailing data after value", ErrInvalidJSON)
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(value); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}

// decodeOrdered reads one JSON value, turning objects into ordered maps so
// that re-encoding keeps the document's key order.
func decodeOrdered(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}

	delim, ok := tok.(json.Delim)
	if !ok {
		return tok, nil
	}

	switch delim {
	case '{':
		obj := domain.NewOrderedMap[any]()
		for dec.More() {
			keyTok, err := dec.Token()
			if err != nil {
				return nil, err
			}
			key, ok := keyTok.(string)
			if !ok {
				return nil, fmt.Errorf("object key %v is not a string", keyTok)
			}
			value, err := decodeOrdered(dec)
			if err != nil {
				return nil, err
			}
			obj.Set(key, value)
		}
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		return obj, nil
	case '[':
		items := []any{}
		for dec.More() {
			value, err := decodeOrdered(dec)
			if err != nil {
				return nil, err
			}
			items = append(items, value)
		}
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		return items, nil
	default:
		return nil, fmt.Errorf("unexpected %q", delim)
	}
}

// MarkdownToHTML renders a model's markdown answer as HTML.
func MarkdownToHTML(src string) (string, error) {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(src), &buf); err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}

// Aggregate copies the five sentence fields into the combined output.
func Aggregate(s State) (domain.LLMOutput, error) {
	missing := s.Missing(FieldTashkeel, FieldTranslation, FieldVocabulary, FieldExplanation)
	if len(missing) > 0 {
		return domain.LLMOutput{}, kindf(ErrIncompleteState, "%s", fieldNames(missing))
	}
	return domain.LLMOutput{
		ArabicSentence:     s.ArabicSentence,
		TashkeelSentence:   *s.TashkeelSentence,
		TranslatedSentence: *s.TranslatedSentence,
		Vocabulary:         *s.Vocabulary,
		Explanation:        *s.Explanation,
	}, nil
}
