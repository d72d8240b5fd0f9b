package notify

import (
	"fmt"
	"log/slog"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"platewise/internal/metrics"
)

// Notifier sends operational alerts to the admin over Telegram. A nil
// Notifier is valid and drops everything, so wiring it stays optional.
type Notifier struct {
	api     *tgbotapi.BotAPI
	adminID int64
}

// NewNotifier creates a Notifier, or nil when the token or admin ID is unset.
func NewNotifier(botToken string, adminID int64) (*Notifier, error) {
	if botToken == "" || adminID == 0 {
		return nil, nil
	}
	api, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	return &Notifier{api: api, adminID: adminID}, nil
}

// GenerationFailed alerts the admin that a plan generation failed.
func (n *Notifier) GenerationFailed(operation string, err error) {
	safeErr := strings.ReplaceAll(err.Error(), "`", "'")
	n.send(fmt.Sprintf("❌ *%s failed:*\n```\n%s\n```", operation, safeErr))
}

// PromptBloat alerts the admin that a prompt grew past the alert threshold.
func (n *Notifier) PromptBloat(operation string, promptTokens int) {
	n.send(fmt.Sprintf("⚠️ *Prompt bloat in %s:* %d prompt tokens", operation, promptTokens))
}

// UsageReport sends a daily usage summary together with system health.
func (n *Notifier) UsageReport(usage []metrics.DailyUsage, health metrics.SysHealth) {
	var sb strings.Builder
	sb.WriteString("📊 *Token Usage*\n")
	if len(usage) == 0 {
		sb.WriteString("No calls recorded.\n")
	}
	for _, day := range usage {
		fmt.Fprintf(&sb, "`%s` — %d calls, %d prompt / %d completion\n",
			day.Date, day.TotalCalls, day.TotalPrompt, day.TotalCompletion)
	}
	fmt.Fprintf(&sb, "\n🖥 *System*\nHeap: %d MB | Goroutines: %d | Data: %s",
		health.AllocMB, health.Goroutines, health.DataSize)
	n.send(sb.String())
}

func (n *Notifier) send(text string) {
	if n == nil || n.adminID == 0 {
		return
	}
	msg := tgbotapi.NewMessage(n.adminID, text)
	msg.ParseMode = "Markdown"
	if _, err := n.api.Send(msg); err != nil {
		slog.Warn("failed to send admin alert", "error", err)
	}
}
