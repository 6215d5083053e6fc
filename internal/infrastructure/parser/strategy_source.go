package parser

import (
	"context"
	"fmt"
	"log/slog"

	"tashkeelcards/internal/config"
	"tashkeelcards/internal/domain"
	"tashkeelcards/internal/ports"
	"tashkeelcards/internal/scanner"
)

// StrategySource implements ArticleSource via registered scanner strategies.
type StrategySource struct {
	registry *scanner.Registry
	sites    []config.SiteConfig
	logger   *slog.Logger
}

var _ ports.ArticleSource = (*StrategySource)(nil)

// NewStrategySource wires scanner registry with config-defined sites.
func NewStrategySource(reg *scanner.Registry, sites []config.SiteConfig, log *slog.Logger) *StrategySource {
	return &StrategySource{
		registry: reg,
		sites:    sites,
		logger:   log,
	}
}

// FetchArticles runs each configured site through its scanner strategy, in
// configuration order. The first failing site aborts the crawl.
func (s *StrategySource) FetchArticles(ctx context.Context) ([]domain.Article, error) {
	if s.registry == nil {
		return nil, fmt.Errorf("scanner registry is not configured")
	}
	if len(s.sites) == 0 {
		return nil, fmt.Errorf("no sites configured (known scanners: %v)", s.registry.Names())
	}

	var aggregated []domain.Article
	for _, site := range s.sites {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		s.debug("process site", "site", site.Name, "scanner", site.Scanner, "max_pages", site.MaxPages)
		strategy, err := s.registry.Resolve(site.Scanner)
		if err != nil {
			return nil, fmt.Errorf("site %s: %w", site.Name, err)
		}

		results, err := strategy.Scan(ctx, scanner.Request{
			SiteName:  site.Name,
			BaseURL:   site.BaseURL,
			MaxPages:  site.MaxPages,
			Selectors: toScannerSelectors(site.Selectors),
			Options:   site.Options,
		})
		if err != nil {
			return nil, fmt.Errorf("scan site %s: %w", site.Name, err)
		}

		diacritized := 0
		for _, a := range results {
			if a.HasTashkeel() {
				diacritized++
			}
		}
		s.info("site scanned", "site", site.Name, "articles", len(results), "with_tashkeel", diacritized)
		aggregated = append(aggregated, results...)
	}
	return aggregated, nil
}

func toScannerSelectors(cfg config.SelectorConfig) scanner.Selectors {
	return scanner.Selectors{
		Container:    cfg.Container,
		Card:         cfg.Card,
		Link:         cfg.Link,
		LangBreak:    cfg.LangBreak,
		Body:         cfg.Body,
		HiddenBody:   cfg.HiddenBody,
		TashkeelFlag: cfg.TashkeelFlag,
	}
}

func (s *StrategySource) debug(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}

func (s *StrategySource) info(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Info(msg, args...)
	}
}
