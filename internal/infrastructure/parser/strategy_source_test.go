package parser

import (
	"context"
	"errors"
	"strings"
	"testing"

	"tashkeelcards/internal/config"
	"tashkeelcards/internal/domain"
	"tashkeelcards/internal/scanner"
)

type stubScanner struct {
	name     string
	articles []domain.Article
	err      error
	requests []scanner.Request
}

func (s *stubScanner) Name() string { return s.name }

func (s *stubScanner) Scan(_ context.Context, req scanner.Request) ([]domain.Article, error) {
	s.requests = append(s.requests, req)
	return s.articles, s.err
}

func TestStrategySourceFetchArticles(t *testing.T) {
	stub := &stubScanner{name: "listing", articles: []domain.Article{{Title: "A"}}}
	reg := scanner.NewRegistry()
	reg.Register(stub)

	sites := []config.SiteConfig{
		{Name: "one", Scanner: "listing", BaseURL: "https://one.example", MaxPages: 2, Selectors: config.SelectorConfig{Card: "div.card"}},
		{Name: "two", Scanner: "listing", BaseURL: "https://two.example", MaxPages: 1},
	}
	articles, err := NewStrategySource(reg, sites, nil).FetchArticles(context.Background())
	if err != nil {
		t.Fatalf("FetchArticles: %v", err)
	}
	if len(articles) != 2 {
		t.Fatalf("expected one article per site, got %d", len(articles))
	}
	if len(stub.requests) != 2 {
		t.Fatalf("expected 2 scans, got %d", len(stub.requests))
	}
	first := stub.requests[0]
	if first.SiteName != "one" || first.MaxPages != 2 || first.Selectors.Card != "div.card" {
		t.Fatalf("unexpected request: %+v", first)
	}
}

func TestStrategySourceErrors(t *testing.T) {
	boom := errors.New("listing unreachable")
	reg := scanner.NewRegistry()
	reg.Register(&stubScanner{name: "listing", err: boom})

	_, err := NewStrategySource(reg, []config.SiteConfig{{Name: "one", Scanner: "listing"}}, nil).FetchArticles(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("expected scan error, got %v", err)
	}

	_, err = NewStrategySource(reg, []config.SiteConfig{{Name: "one", Scanner: "rss"}}, nil).FetchArticles(context.Background())
	if err == nil || !strings.Contains(err.Error(), "scanner rss is not registered") {
		t.Fatalf("expected unknown scanner error, got %v", err)
	}

	_, err = NewStrategySource(reg, nil, nil).FetchArticles(context.Background())
	if err == nil || !strings.Contains(err.Error(), "no sites configured") {
		t.Fatalf("expected missing sites error, got %v", err)
	}
}
