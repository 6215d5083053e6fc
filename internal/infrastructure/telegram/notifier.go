package telegram

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"tashkeelcards/internal/domain"
	"tashkeelcards/internal/ports"
)

const defaultAPIURL = "https://api.telegram.org"

// Notifier sends run reports to a Telegram chat via bot API.
type Notifier struct {
	apiURL   string
	botToken string
	chatID   string
	client   *http.Client
}

var _ ports.Notifier = (*Notifier)(nil)

// NewNotifier registers bot token and chat identifier. An empty apiURL uses
// the public bot API.
func NewNotifier(apiURL, botToken, chatID string) *Notifier {
	if apiURL == "" {
		apiURL = defaultAPIURL
	}
	return &Notifier{
		apiURL:   strings.TrimRight(apiURL, "/"),
		botToken: botToken,
		chatID:   chatID,
		client:   &http.Client{Timeout: 5 * time.Second},
	}
}

// PublishReport posts a Markdown summary of a translation run.
func (n *Notifier) PublishReport(ctx context.Context, report domain.RunReport) error {
	return n.send(ctx, FormatReport(report))
}

// FormatReport renders a run summary as a Telegram Markdown message.
func FormatReport(report domain.RunReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "*Translation run %s*\n", report.Status)
	fmt.Fprintf(&b, "run: `%s`\n", report.RunID)
	fmt.Fprintf(&b, "sentences: %d total, %d skipped, %d processed\n", report.Total, report.Skipped, report.Processed)
	fmt.Fprintf(&b, "elapsed: %s", report.Elapsed.Round(time.Second))
	if report.Err != nil {
		fmt.Fprintf(&b, "\nerror:\n```\n%s\n```", preformatted(report.Err.Error()))
	}
	return b.String()
}

// preformatted makes text safe inside a Markdown pre block, where entity
// markers such as _ and * are taken literally but a backtick ends the block.
func preformatted(text string) string {
	return strings.ReplaceAll(text, "`", "'")
}

func (n *Notifier) send(ctx context.Context, text string) error {
	if n.botToken == "" || n.chatID == "" || n.client == nil {
		return fmt.Errorf("telegram notifier misconfigured")
	}

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", n.apiURL, n.botToken)
	form := url.Values{}
	form.Set("chat_id", n.chatID)
	form.Set("text", text)
	form.Set("parse_mode", "Markdown")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("telegram error: %s: %s", resp.Status, strings.TrimSpace(string(detail)))
	}

	return nil
}
