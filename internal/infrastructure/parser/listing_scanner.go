package parser

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"tashkeelcards/internal/arabic"
	"tashkeelcards/internal/domain"
	"tashkeelcards/internal/scanner"
)

// ListingScanner crawls paginated article listings and the linked detail
// pages, collecting plain and diacritized sentences.
type ListingScanner struct {
	client    *http.Client
	userAgent string
	logger    *slog.Logger
}

// NewListingScanner wires an HTTP client; a nil client gets a 20s timeout.
func NewListingScanner(client *http.Client, userAgent string, logger *slog.Logger) *ListingScanner {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	if userAgent == "" {
		userAgent = "tashkeelcards/1.0"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ListingScanner{client: client, userAgent: userAgent, logger: logger}
}

// Name identifies the strategy inside the registry.
func (l *ListingScanner) Name() string {
	return "listing"
}

type card struct {
	title     string
	link      string
	langBreak *string
}

// Scan walks listing pages until one yields no new cards or MaxPages is hit,
// then fetches every card's detail page. Detail failures are logged and the
// card is kept without sentences.
func (l *ListingScanner) Scan(ctx context.Context, req scanner.Request) ([]domain.Article, error) {
	base, err := url.Parse(req.BaseURL)
	if err != nil || req.BaseURL == "" {
		return nil, fmt.Errorf("site %s: invalid base url %q", req.SiteName, req.BaseURL)
	}
	maxPages := req.MaxPages
	if maxPages < 1 {
		maxPages = 1
	}

	var cards []card
	seen := map[string]struct{}{}
	for page := 0; page < maxPages; page++ {
		doc, err := l.fetchDocument(ctx, buildPageURL(base, page))
		if err != nil {
			return nil, fmt.Errorf("site %s page %d: %w", req.SiteName, page, err)
		}

		fresh := 0
		for _, c := range extractCards(doc, base, req.Selectors) {
			if _, ok := seen[c.title]; ok {
				continue
			}
			seen[c.title] = struct{}{}
			cards = append(cards, c)
			fresh++
		}
		l.logger.Debug("listing page scanned", "site", req.SiteName, "page", page, "new_cards", fresh, "cards", len(cards))
		if fresh == 0 {
			break
		}
	}

	articles := make([]domain.Article, 0, len(cards))
	for _, c := range cards {
		article := domain.Article{Title: c.title, Link: c.link, LangBreakContent: c.langBreak}

		text, tashkeel, err := l.fetchArticle(ctx, c.link, req.Selectors)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			l.logger.Warn("cannot extract article, continuing", "title", c.title, "link", c.link, "error", err)
			articles = append(articles, article)
			continue
		}

		article.Sentences = arabic.SplitSentences(text)
		if tashkeel != "" {
			article.Tashkeel = arabic.SplitSentences(tashkeel)
			article.Sentences = make([]string, len(article.Tashkeel))
			for i, s := range article.Tashkeel {
				article.Sentences[i] = arabic.StripTashkeel(s)
			}
		}
		l.logger.Debug("article extracted", "title", c.title, "sentences", len(article.Sentences), "tashkeel", len(article.Tashkeel))
		articles = append(articles, article)
	}

	return articles, nil
}

func (l *ListingScanner) fetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", l.userAgent)

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s returned %s", pageURL, resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}

	return doc, nil
}

func (l *ListingScanner) fetchArticle(ctx context.Context, link string, sel scanner.Selectors) (string, string, error) {
	doc, err := l.fetchDocument(ctx, link)
	if err != nil {
		return "", "", err
	}

	body := doc.Find(sel.Body).First()
	if body.Length() == 0 {
		return "", "", fmt.Errorf("body %q not found", sel.Body)
	}
	text := extractText(body)

	var tashkeel string
	if sel.TashkeelFlag != "" && sel.HiddenBody != "" && doc.Find(sel.TashkeelFlag).Length() > 0 {
		hidden := doc.Find(sel.HiddenBody).First()
		if hidden.Length() > 0 {
			tashkeel = extractText(hidden)
		}
	}
	return text, tashkeel, nil
}

func extractCards(doc *goquery.Document, base *url.URL, sel scanner.Selectors) []card {
	scope := doc.Selection
	if sel.Container != "" {
		scope = doc.Find(sel.Container)
	}

	var cards []card
	scope.Find(sel.Card).Each(func(_ int, s *goquery.Selection) {
		anchor := s.Find(sel.Link).First()
		href, ok := anchor.Attr("href")
		if !ok {
			return
		}
		title := arabic.NormalizeSpace(anchor.Text())
		if title == "" {
			return
		}

		var langBreak *string
		if sel.LangBreak != "" {
			node := s.Find(sel.LangBreak).First()
			if node.Length() == 0 {
				return
			}
			text := arabic.NormalizeSpace(node.Text())
			langBreak = &text
		}

		link, err := base.Parse(href)
		if err != nil {
			return
		}
		cards = append(cards, card{title: title, link: link.String(), langBreak: langBreak})
	})
	return cards
}

// extractText joins the normalized paragraphs of a body, or its whole text
// when it has no paragraphs.
func extractText(body *goquery.Selection) string {
	paragraphs := body.Find("p")
	if paragraphs.Length() == 0 {
		return arabic.NormalizeSpace(body.Text())
	}
	parts := make([]string, 0, paragraphs.Length())
	paragraphs.Each(func(_ int, p *goquery.Selection) {
		parts = append(parts, arabic.NormalizeSpace(p.Text()))
	})
	return strings.Join(parts, " ")
}

func buildPageURL(base *url.URL, page int) string {
	if page == 0 {
		return base.String()
	}
	u := *base
	query := u.Query()
	query.Set("page", strconv.Itoa(page))
	u.RawQuery = query.Encode()
	return u.String()
}
