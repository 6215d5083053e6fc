package pipeline

import (
	"bytes"
	"embed"
	"fmt"
	"strings"
	"text/template"
)

//go:embed prompts/*.tmpl prompts/vocabulary_example.json
var promptFS embed.FS

var promptTemplates = template.Must(template.ParseFS(promptFS, "prompts/*.tmpl"))

type promptData struct {
	Sentence string
	Example  string
}

// RenderPrompt fills the named prompt template with sentence.
func RenderPrompt(name, sentence string) (string, error) {
	data := promptData{Sentence: sentence}
	if name == StageVocabulary {
		example, err := promptFS.ReadFile("prompts/vocabulary_example.json")
		if err != nil {
			return "", fmt.Errorf("read vocabulary example: %w", err)
		}
		data.Example = strings.TrimSpace(string(example))
	}

	var buf bytes.Buffer
	if err := promptTemplates.ExecuteTemplate(&buf, name+".tmpl", data); err != nil {
		return "", fmt.Errorf("render %s prompt: %w", name, err)
	}
	return buf.String(), nil
}
