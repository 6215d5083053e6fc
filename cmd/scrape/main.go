package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"tashkeelcards/internal/app"
	"tashkeelcards/internal/config"
	"tashkeelcards/internal/logging"
)

func main() {
	var configPath, output string
	var maxPages int
	flag.StringVar(&configPath, "config", "", "path to the YAML config")
	flag.StringVar(&output, "o", "", "output JSON file (overrides scraper.output)")
	flag.StringVar(&output, "output", "", "output JSON file (overrides scraper.output)")
	flag.IntVar(&maxPages, "max-pages", 0, "listing pages per site (overrides sites[].maxPages)")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(configPath)
	if err != nil {
		logging.New("error", "text").Error("load config", "error", err)
		os.Exit(1)
	}
	if output != "" {
		cfg.Scraper.Output = output
	}
	if maxPages > 0 {
		for i := range cfg.Scraper.Sites {
			cfg.Scraper.Sites[i].MaxPages = maxPages
		}
	}

	logger := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err := cfg.ValidateScraper(); err != nil {
		logger.Error("invalid config", "error", err)
		os.Exit(1)
	}

	application := app.New(cfg, logger)
	if _, err := application.Scrape(ctx); err != nil {
		logger.Error("scrape stopped", "error", err)
		os.Exit(1)
	}
}
