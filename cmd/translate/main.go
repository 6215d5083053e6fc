package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tashkeelcards/internal/app"
	"tashkeelcards/internal/config"
	"tashkeelcards/internal/infrastructure/storage"
	"tashkeelcards/internal/logging"
)

func main() {
	var configPath, input, output, sentence string
	flag.StringVar(&configPath, "config", "", "path to the YAML config")
	flag.StringVar(&input, "i", "", "scraped articles JSON (overrides pipeline.input)")
	flag.StringVar(&input, "input", "", "scraped articles JSON (overrides pipeline.input)")
	flag.StringVar(&output, "o", "", "result JSON file (overrides pipeline.output)")
	flag.StringVar(&output, "output", "", "result JSON file (overrides pipeline.output)")
	flag.StringVar(&sentence, "sentence", "", "translate a single sentence and print the result")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(configPath)
	if err != nil {
		logging.New("error", "text").Error("load config", "error", err)
		os.Exit(1)
	}
	if input != "" {
		cfg.Pipeline.Input = input
	}
	if output != "" {
		cfg.Pipeline.Output = output
	}

	logger := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err := cfg.ValidatePipeline(); err != nil {
		logger.Error("invalid config", "error", err)
		os.Exit(1)
	}

	application := app.New(cfg, logger)

	if sentence != "" {
		out, elapsed, err := application.TranslateSentence(ctx, sentence)
		if err != nil {
			logger.Error("translation failed", "error", err)
			os.Exit(1)
		}
		data, err := storage.EncodeJSON(out)
		if err != nil {
			logger.Error("encode output", "error", err)
			os.Exit(1)
		}
		fmt.Printf("%s", data)
		fmt.Printf("elapsed: %s\n", elapsed.Round(time.Millisecond))
		if output != "" {
			if err := storage.WriteFileAtomic(output, data, 0o644); err != nil {
				logger.Error("write output", "error", err)
				os.Exit(1)
			}
		}
		return
	}

	report, err := application.Translate(ctx)
	if err != nil {
		logger.Error("translation run halted", "error", err, "processed", report.Processed)
		os.Exit(1)
	}
}
