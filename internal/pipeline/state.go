package pipeline

import (
	"strings"

	"tashkeelcards/internal/domain"
)

// Field names one slot of the per-sentence state.
type Field string

const (
	FieldArabic      Field = "arabic_sentence"
	FieldTashkeel    Field = "tashkeel_sentence"
	FieldTranslation Field = "translated_sentence"
	FieldVocabulary  Field = "vocabulary"
	FieldExplanation Field = "explanation"
	FieldCombined    Field = "combined_output"
)

// canonicalFields fixes the order in which fields are reported and merged.
var canonicalFields = []Field{
	FieldArabic,
	FieldTashkeel,
	FieldTranslation,
	FieldVocabulary,
	FieldExplanation,
	FieldCombined,
}

// State is the record threaded through the stage graph for one sentence.
// Optional fields stay nil until the stage that produces them has run.
type State struct {
	ArabicSentence     string
	TashkeelSentence   *string
	TranslatedSentence *string
	Vocabulary         *string
	Explanation        *string
	Combined           *domain.LLMOutput
}

// NewState returns the initial state for a sentence.
func NewState(sentence string) State {
	return State{ArabicSentence: sentence}
}

// Has reports whether field carries a value.
func (s State) Has(field Field) bool {
	switch field {
	case FieldArabic:
		return true
	case FieldTashkeel:
		return s.TashkeelSentence != nil
	case FieldTranslation:
		return s.TranslatedSentence != nil
	case FieldVocabulary:
		return s.Vocabulary != nil
	case FieldExplanation:
		return s.Explanation != nil
	case FieldCombined:
		return s.Combined != nil
	default:
		return false
	}
}

// Missing returns the subset of fields that are unset, in canonical order.
func (s State) Missing(fields ...Field) []Field {
	want := make(map[Field]bool, len(fields))
	for _, f := range fields {
		want[f] = true
	}
	var out []Field
	for _, f := range canonicalFields {
		if want[f] && !s.Has(f) {
			out = append(out, f)
		}
	}
	return out
}

// Update is the partial record a stage returns.
type Update struct {
	TashkeelSentence   *string
	TranslatedSentence *string
	Vocabulary         *string
	Explanation        *string
	Combined           *domain.LLMOutput
}

// Fields lists the fields the update sets, in canonical order.
func (u Update) Fields() []Field {
	var out []Field
	if u.TashkeelSentence != nil {
		out = append(out, FieldTashkeel)
	}
	if u.TranslatedSentence != nil {
		out = append(out, FieldTranslation)
	}
	if u.Vocabulary != nil {
		out = append(out, FieldVocabulary)
	}
	if u.Explanation != nil {
		out = append(out, FieldExplanation)
	}
	if u.Combined != nil {
		out = append(out, FieldCombined)
	}
	return out
}

// Apply merges u into a copy of s. Setting a field that already has a value
// fails with ErrFieldOverwrite and leaves s untouched.
func (s State) Apply(u Update) (State, error) {
	var clash []string
	for _, f := range u.Fields() {
		if s.Has(f) {
			clash = append(clash, string(f))
		}
	}
	if len(clash) > 0 {
		return s, kindf(ErrFieldOverwrite, "%s", strings.Join(clash, ", "))
	}

	next := s
	if u.TashkeelSentence != nil {
		next.TashkeelSentence = u.TashkeelSentence
	}
	if u.TranslatedSentence != nil {
		next.TranslatedSentence = u.TranslatedSentence
	}
	if u.Vocabulary != nil {
		next.Vocabulary = u.Vocabulary
	}
	if u.Explanation != nil {
		next.Explanation = u.Explanation
	}
	if u.Combined != nil {
		next.Combined = u.Combined
	}
	return next, nil
}

func fieldNames(fields []Field) string {
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = string(f)
	}
	return strings.Join(names, ", ")
}
