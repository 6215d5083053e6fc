// Package flashcard turns persisted sentence results into an Anki text-import
// deck with reversible Arabic/English notes.
package flashcard

import (
	"bufio"
	"embed"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"tashkeelcards/internal/domain"
)

//go:embed templates/*.html
var templateFS embed.FS

var guidNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("tashkeelcards/flashcard"))

// Note is one reversible flashcard.
type Note struct {
	GUID        string
	Arabic      string
	Tashkeel    string
	English     string
	Vocabulary  string
	Explanation string
	Link        string
	Tags        []string
}

func (n Note) fields() []string {
	return []string{n.GUID, n.Arabic, n.Tashkeel, n.English, n.Vocabulary, n.Explanation, n.Link, strings.Join(n.Tags, " ")}
}

// Options configures the deck writer.
type Options struct {
	Deck     string
	NoteType string
	Labels   []string
	Logger   *slog.Logger
}

// Builder converts result sets into notes and writes them out.
type Builder struct {
	deck     string
	noteType string
	tags     []string
	logger   *slog.Logger
}

// NewBuilder creates a deck builder.
func NewBuilder(opts Options) *Builder {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	tags := make([]string, 0, len(opts.Labels))
	for _, l := range opts.Labels {
		if t := strings.Join(strings.Fields(l), "_"); t != "" {
			tags = append(tags, t)
		}
	}
	return &Builder{deck: opts.Deck, noteType: opts.NoteType, tags: tags, logger: logger}
}

// GUID is stable per sentence so re-imports update existing notes.
func GUID(sentence string) string {
	return uuid.NewSHA1(guidNamespace, []byte(sentence)).String()
}

// Notes builds one note per result entry. Entries whose vocabulary cannot be
// rendered are skipped with a warning.
func (b *Builder) Notes(results *domain.ResultSet) []Note {
	notes := make([]Note, 0, results.Len())
	results.Each(func(sentence string, entry domain.ResultEntry) bool {
		vocabulary, err := VocabularyHTML(entry.LLMOutput.Vocabulary)
		if err != nil {
			b.logger.Warn("skipping note", "sentence", sentence, "error", err)
			return true
		}

		tashkeel := entry.LLMOutput.TashkeelSentence
		if entry.TrueTashkeel != nil {
			tashkeel = *entry.TrueTashkeel
		}
		notes = append(notes, Note{
			GUID:        GUID(sentence),
			Arabic:      entry.ArabicSentence,
			Tashkeel:    tashkeel,
			English:     entry.LLMOutput.TranslatedSentence,
			Vocabulary:  vocabulary,
			Explanation: entry.LLMOutput.Explanation,
			Link:        entry.Link,
			Tags:        b.tags,
		})
		return true
	})
	return notes
}

// WriteDeck writes the import header followed by one tab-separated row per
// note and returns the number of notes written.
func (b *Builder) WriteDeck(w io.Writer, results *domain.ResultSet) (int, error) {
	bw := bufio.NewWriter(w)
	for _, h := range []string{
		"#separator:tab",
		"#html:true",
		"#notetype:" + b.noteType,
		"#deck:" + b.deck,
		"#guid column:1",
		"#tags column:8",
	} {
		if _, err := bw.WriteString(h + "\n"); err != nil {
			return 0, fmt.Errorf("write header: %w", err)
		}
	}

	notes := b.Notes(results)
	rows := csv.NewWriter(bw)
	rows.Comma = '\t'
	for _, n := range notes {
		if err := rows.Write(n.fields()); err != nil {
			return 0, fmt.Errorf("write note %s: %w", n.GUID, err)
		}
	}
	rows.Flush()
	if err := rows.Error(); err != nil {
		return 0, fmt.Errorf("write notes: %w", err)
	}
	if err := bw.Flush(); err != nil {
		return 0, fmt.Errorf("flush deck: %w", err)
	}
	return len(notes), nil
}

// WriteTemplates writes the front/back HTML of both card directions.
func (b *Builder) WriteTemplates(w io.Writer) error {
	arabic, err := templateFS.ReadFile("templates/arabic.html")
	if err != nil {
		return err
	}
	english, err := templateFS.ReadFile("templates/english.html")
	if err != nil {
		return err
	}
	shared, err := templateFS.ReadFile("templates/shared.html")
	if err != nil {
		return err
	}

	sections := []struct {
		title string
		body  []byte
	}{
		{"Card 1 (Arabic to English): front", arabic},
		{"Card 1 (Arabic to English): back", english},
		{"Card 2 (English to Arabic): front", english},
		{"Card 2 (English to Arabic): back", arabic},
		{"Styling and script (append to every side)", shared},
	}

	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "<!-- Note type: %s -->\n", b.noteType)
	for _, s := range sections {
		fmt.Fprintf(bw, "\n<!-- %s -->\n", s.title)
		bw.Write(s.body)
	}
	return bw.Flush()
}

// TemplatesPath derives the templates file name from the deck path.
func TemplatesPath(deckPath string) string {
	return strings.TrimSuffix(deckPath, filepath.Ext(deckPath)) + ".templates.html"
}
