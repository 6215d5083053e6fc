package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	configPathEnv     = "TASHKEEL_CONFIG"
	databaseDSNEnv    = "DATABASE_DSN"
	llmBackendEnv     = "LLM_BACKEND"
	llmModelEnv       = "LLM_MODEL"
	llmBaseURLEnv     = "LLM_BASE_URL"
	openAIKeyEnv      = "OPENAI_API_KEY"
	groqKeyEnv        = "GROQ_API_KEY"
	geminiKeyEnv      = "GEMINI_API_KEY"
	googleKeyEnv      = "GOOGLE_API_KEY"
	anthropicKeyEnv   = "ANTHROPIC_API_KEY"
	telegramTokenEnv  = "TELEGRAM_BOT_TOKEN"
	telegramChatIDEnv = "TELEGRAM_CHAT_ID"
	logLevelEnv       = "LOG_LEVEL"
)

// Backend names accepted by llm.backend.
const (
	BackendLocal     = "local"
	BackendOpenAI    = "openai"
	BackendGemini    = "gemini"
	BackendAnthropic = "anthropic"
)

// Storage drivers accepted by storage.driver.
const (
	DriverFile     = "file"
	DriverPostgres = "postgres"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging       LoggingConfig      `yaml:"logging"`
	LLM           LLMConfig          `yaml:"llm"`
	Pipeline      PipelineConfig     `yaml:"pipeline"`
	Storage       StorageConfig      `yaml:"storage"`
	Database      DatabaseConfig     `yaml:"database"`
	Scraper       ScraperConfig      `yaml:"scraper"`
	Flashcards    FlashcardConfig    `yaml:"flashcards"`
	Notifications NotificationConfig `yaml:"notifications"`
}

// LoggingConfig selects verbosity and handler format.
type LoggingConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn warning error"`
	Format string `yaml:"format" validate:"oneof=text json"`
}

// LLMConfig defines how to contact the language model backend.
type LLMConfig struct {
	Backend      string        `yaml:"backend" validate:"oneof=local openai gemini anthropic"`
	Model        string        `yaml:"model"`
	BaseURL      string        `yaml:"baseUrl" validate:"omitempty,url"`
	APIKey       string        `yaml:"apiKey"`
	SystemPrompt string        `yaml:"systemPrompt"`
	Temperature  float64       `yaml:"temperature" validate:"gte=0,lte=2"`
	MaxTokens    int           `yaml:"maxTokens" validate:"gt=0"`
	MaxRetries   int           `yaml:"maxRetries" validate:"gte=0"`
	Timeout      time.Duration `yaml:"timeout" validate:"gt=0"`
}

// PipelineConfig drives the per-sentence translation run.
type PipelineConfig struct {
	Input                string        `yaml:"input"`
	Output               string        `yaml:"output"`
	Cooldown             time.Duration `yaml:"cooldown" validate:"gte=0"`
	ConcurrentStages     bool          `yaml:"concurrentStages"`
	IncludeUndiacritized bool          `yaml:"includeUndiacritized"`
}

// StorageConfig picks where completed sentences are persisted.
type StorageConfig struct {
	Driver string `yaml:"driver" validate:"oneof=file postgres"`
	Table  string `yaml:"table" validate:"required"`
}

// DatabaseConfig describes Postgres connection details.
type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

// ScraperConfig lists the sites to crawl and where to write the result.
type ScraperConfig struct {
	Output         string        `yaml:"output"`
	UserAgent      string        `yaml:"userAgent"`
	RequestTimeout time.Duration `yaml:"requestTimeout" validate:"gt=0"`
	Sites          []SiteConfig  `yaml:"sites" validate:"dive"`
}

// SiteConfig describes a single site with its scanner strategy.
type SiteConfig struct {
	Name      string            `yaml:"name" validate:"required"`
	Scanner   string            `yaml:"scanner" validate:"required"`
	BaseURL   string            `yaml:"baseUrl" validate:"required,url"`
	MaxPages  int               `yaml:"maxPages" validate:"gte=1"`
	Selectors SelectorConfig    `yaml:"selectors"`
	Options   map[string]string `yaml:"options"`
}

// SelectorConfig holds the CSS selectors of a listing site.
type SelectorConfig struct {
	Container    string `yaml:"container"`
	Card         string `yaml:"card" validate:"required"`
	Link         string `yaml:"link" validate:"required"`
	LangBreak    string `yaml:"langBreak"`
	Body         string `yaml:"body" validate:"required"`
	HiddenBody   string `yaml:"hiddenBody"`
	TashkeelFlag string `yaml:"tashkeelFlag"`
}

// FlashcardConfig controls the generated deck.
type FlashcardConfig struct {
	Input    string   `yaml:"input"`
	Output   string   `yaml:"output"`
	Deck     string   `yaml:"deck" validate:"required"`
	NoteType string   `yaml:"noteType" validate:"required"`
	Labels   []string `yaml:"labels"`
}

// NotificationConfig encapsulates outbound channels (Telegram, etc.).
type NotificationConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
}

// TelegramConfig wires all data required to send messages.
type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
	APIURL   string `yaml:"apiUrl" validate:"omitempty,url"`
}

// Enabled reports whether both credentials are present.
func (t TelegramConfig) Enabled() bool {
	return t.BotToken != "" && t.ChatID != ""
}

// Load reads YAML configuration (if present), the .env file (if present) and
// applies environment overrides. An empty path falls back to TASHKEEL_CONFIG.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv(configPathEnv)
	}
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
		// Keys absent from the file keep their defaults.
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("config: load .env: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = strings.ToLower(v)
	}

	if v := os.Getenv(llmBackendEnv); v != "" {
		c.LLM.Backend = strings.ToLower(v)
	}
	if v := os.Getenv(llmModelEnv); v != "" {
		c.LLM.Model = v
	}
	if v := os.Getenv(llmBaseURLEnv); v != "" {
		c.LLM.BaseURL = v
	}
	if v := firstEnv(apiKeyEnvs(c.LLM.Backend)...); v != "" {
		c.LLM.APIKey = v
	}

	if v := os.Getenv(databaseDSNEnv); v != "" {
		c.Database.DSN = v
	}

	if v := os.Getenv(telegramTokenEnv); v != "" {
		c.Notifications.Telegram.BotToken = v
	}
	if v := os.Getenv(telegramChatIDEnv); v != "" {
		c.Notifications.Telegram.ChatID = v
	}
}

func apiKeyEnvs(backend string) []string {
	switch backend {
	case BackendOpenAI:
		return []string{openAIKeyEnv, groqKeyEnv}
	case BackendGemini:
		return []string{geminiKeyEnv, googleKeyEnv}
	case BackendAnthropic:
		return []string{anthropicKeyEnv}
	default:
		return nil
	}
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks every section, as needed by a translation run.
func (c Config) Validate() error {
	return c.ValidatePipeline()
}

// ValidateScraper checks what the scraper needs; no language model settings
// are required.
func (c Config) ValidateScraper() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if len(c.Scraper.Sites) == 0 {
		return fmt.Errorf("config: scraper.sites is empty")
	}
	return nil
}

// ValidatePipeline checks field constraints plus the backend and storage
// requirements of a translation run.
func (c Config) ValidatePipeline() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	switch c.LLM.Backend {
	case BackendOpenAI, BackendGemini, BackendAnthropic:
		if c.LLM.APIKey == "" {
			return fmt.Errorf("config: llm backend %s needs an api key (%s)", c.LLM.Backend, strings.Join(apiKeyEnvs(c.LLM.Backend), " or "))
		}
	case BackendLocal:
		if c.LLM.BaseURL == "" {
			return fmt.Errorf("config: llm backend local needs llm.baseUrl")
		}
	}
	return c.validateStorage()
}

// ValidateFlashcards checks the deck settings and, when results are read
// from the store, its connection settings.
func (c Config) ValidateFlashcards(fromStore bool) error {
	if err := validate.Struct(c.Flashcards); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if !fromStore {
		return nil
	}
	if err := validate.Struct(c.Storage); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return c.validateStorage()
}

func (c Config) validateStorage() error {
	if c.Storage.Driver == DriverPostgres && c.Database.DSN == "" {
		return fmt.Errorf("config: storage driver postgres needs database.dsn (%s)", databaseDSNEnv)
	}
	return nil
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Logging: LoggingConfig{Level: "info", Format: "text"},
		LLM: LLMConfig{
			Backend:      BackendOpenAI,
			SystemPrompt: "You are a helpful assistant, expert in arabic and english language.",
			Temperature:  0.7,
			MaxTokens:    8192,
			MaxRetries:   2,
			Timeout:      5 * time.Minute,
		},
		Pipeline: PipelineConfig{
			Input:            "data/arabic_text.json",
			Output:           "data/llm_output.json",
			Cooldown:         60 * time.Second,
			ConcurrentStages: true,
		},
		Storage: StorageConfig{Driver: DriverFile, Table: "sentence_results"},
		Scraper: ScraperConfig{
			Output:         "data/arabic_text.json",
			UserAgent:      "tashkeelcards/1.0",
			RequestTimeout: 30 * time.Second,
			Sites: []SiteConfig{
				{
					Name:     "aljazeera-learning",
					Scanner:  "listing",
					BaseURL:  "https://learning.aljazeera.net/en",
					MaxPages: 5,
					Selectors: SelectorConfig{
						Container:    ".region-content-bottom",
						Card:         "div.card.col-md-4",
						Link:         "a",
						LangBreak:    "div.lang-break",
						Body:         "div.body-text.field:not(.hidden)",
						HiddenBody:   "div.body-text.hidden.field",
						TashkeelFlag: "li.pull-right.btn.tashkeel",
					},
				},
			},
		},
		Flashcards: FlashcardConfig{
			Input:    "data/llm_output.json",
			Output:   "data/arabic_flashcards.txt",
			Deck:     "Arabic Sentences",
			NoteType: "Arabic Sentence (and reversed card)",
		},
		Notifications: NotificationConfig{
			Telegram: TelegramConfig{APIURL: "https://api.telegram.org"},
		},
	}
}
