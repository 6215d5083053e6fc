package flashcard

import (
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"strings"

	"tashkeelcards/internal/domain"
)

const notAvailable = "N/A"

// ErrVocabularyFormat is returned when the vocabulary is not a word-keyed JSON object.
var ErrVocabularyFormat = errors.New("vocabulary is not a JSON object")

type wordDetails struct {
	Pronunciation *string                                `json:"pronounciation"`
	Meanings      []string                               `json:"meanings"`
	Root          *wordRoot                              `json:"root"`
	Examples      []*domain.OrderedMap[json.RawMessage] `json:"examples"`
}

type wordRoot struct {
	RootWord    *string `json:"root_word"`
	RootMeaning *string `json:"root_meaning"`
}

// VocabularyHTML renders the word-by-word analysis as HTML, one section per
// word in document order.
func VocabularyHTML(raw string) (string, error) {
	words := domain.NewOrderedMap[wordDetails]()
	if err := json.Unmarshal([]byte(raw), words); err != nil {
		return "", fmt.Errorf("%w: %w", ErrVocabularyFormat, err)
	}

	var b strings.Builder
	words.Each(func(word string, d wordDetails) bool {
		writeWord(&b, word, d)
		return true
	})
	return b.String(), nil
}

func writeWord(b *strings.Builder, word string, d wordDetails) {
	fmt.Fprintf(b, "<h2>%s</h2>", html.EscapeString(word))
	fmt.Fprintf(b, "<p><strong>Pronunciation:</strong> %s</p>", orNA(d.Pronunciation))

	if d.Meanings != nil {
		meanings := make([]string, len(d.Meanings))
		for i, m := range d.Meanings {
			meanings[i] = html.EscapeString(m)
		}
		fmt.Fprintf(b, "<p><strong>Meanings:</strong> %s</p>", strings.Join(meanings, ", "))
	}

	if d.Root != nil {
		fmt.Fprintf(b, "<p><strong>Root Word:</strong> %s</p>", orNA(d.Root.RootWord))
		fmt.Fprintf(b, "<p><strong>Root Meaning:</strong> %s</p>", orNA(d.Root.RootMeaning))
	}

	if len(d.Examples) > 0 {
		b.WriteString("<p><strong>Examples:</strong></p><ul>")
		for _, example := range d.Examples {
			example.Each(func(phrase string, meaning json.RawMessage) bool {
				fmt.Fprintf(b, "<li><strong>%s:</strong> %s</li>",
					html.EscapeString(phrase), html.EscapeString(scalarText(meaning)))
				return true
			})
		}
		b.WriteString("</ul>")
	}

	b.WriteString("<hr>")
}

func orNA(s *string) string {
	if s == nil {
		return notAvailable
	}
	return html.EscapeString(*s)
}

// scalarText prints a JSON string without quotes and anything else verbatim.
func scalarText(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(raw))
}
