package domain

import "time"

// SentenceRecord is the unit of work for the translation pipeline.
// ArabicSentence is the unique key.
type SentenceRecord struct {
	ArabicSentence   string  `json:"arabic_sentence"`
	TrueTashkeel     *string `json:"true_tashkeel"`
	Title            string  `json:"title"`
	Link             string  `json:"link"`
	LangBreakContent *string `json:"lang_break_content"`
}

// LLMOutput is the aggregated output of the per-sentence stage graph.
type LLMOutput struct {
	ArabicSentence     string `json:"arabic_sentence"`
	TashkeelSentence   string `json:"tashkeel_sentence"`
	TranslatedSentence string `json:"translated_sentence"`
	Vocabulary         string `json:"vocabulary"`
	Explanation        string `json:"explanation"`
}

// ResultEntry is a completed sentence as persisted in the result store.
type ResultEntry struct {
	SentenceRecord
	LLMOutput LLMOutput `json:"llm_output"`
}

// ResultSet maps sentence text to its result in completion order.
type ResultSet = OrderedMap[ResultEntry]

// NewResultSet returns an empty result set.
func NewResultSet() *ResultSet {
	return NewOrderedMap[ResultEntry]()
}

// RunStatus enumerates how a translation run ended.
type RunStatus string

const (
	RunCompleted RunStatus = "completed"
	RunHalted    RunStatus = "halted"
)

// RunReport summarizes one translation run.
type RunReport struct {
	RunID     string
	Status    RunStatus
	Total     int
	Skipped   int
	Processed int
	Elapsed   time.Duration
	Err       error
}
