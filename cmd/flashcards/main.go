package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"tashkeelcards/internal/app"
	"tashkeelcards/internal/config"
	"tashkeelcards/internal/logging"
)

func main() {
	var configPath, input, title, output, labels string
	flag.StringVar(&configPath, "config", "", "path to the YAML config")
	flag.StringVar(&input, "i", "", "result JSON file (default: the configured result store)")
	flag.StringVar(&input, "input-json", "", "result JSON file (default: the configured result store)")
	flag.StringVar(&title, "title", "", "deck name (overrides flashcards.deck)")
	flag.StringVar(&output, "o", "", "Anki import file (overrides flashcards.output)")
	flag.StringVar(&output, "out", "", "Anki import file (overrides flashcards.output)")
	flag.StringVar(&labels, "labels", "", "comma-separated tags added to every note")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(configPath)
	if err != nil {
		logging.New("error", "text").Error("load config", "error", err)
		os.Exit(1)
	}
	if input == "" && cfg.Storage.Driver != config.DriverPostgres {
		input = cfg.Flashcards.Input
	}
	if title != "" {
		cfg.Flashcards.Deck = title
	}
	if output != "" {
		cfg.Flashcards.Output = output
	}
	if labels != "" {
		cfg.Flashcards.Labels = strings.Split(labels, ",")
	}

	logger := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err := cfg.ValidateFlashcards(input == ""); err != nil {
		logger.Error("invalid config", "error", err)
		os.Exit(1)
	}

	application := app.New(cfg, logger)
	if _, err := application.BuildFlashcards(ctx, input, cfg.Flashcards.Output); err != nil {
		logger.Error("flashcards failed", "error", err)
		os.Exit(1)
	}
}
