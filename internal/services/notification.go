package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"
	"github.com/irfndi/sector-rotation-go/internal/config"
	"github.com/irfndi/sector-rotation-go/internal/models"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ErrNotifierDisabled is returned by SendDigest when no bot token or chat is configured.
var ErrNotifierDisabled = errors.New("telegram notifier is disabled")

// MessageSender is the subset of *bot.Bot the notifier needs.
type MessageSender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*tgmodels.Message, error)
}

// DigestNotifier posts a short report digest to a Telegram chat.
type DigestNotifier struct {
	sender MessageSender
	chatID int64
	logger *logrus.Logger
}

// NewDigestNotifier creates a notifier from configuration. A missing token or
// chat id yields a disabled notifier.
func NewDigestNotifier(cfg config.TelegramConfig, logger *logrus.Logger, opts ...bot.Option) (*DigestNotifier, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	n := &DigestNotifier{chatID: cfg.ChatID, logger: logger}
	if !cfg.Enabled() {
		logger.Info("Telegram digest disabled")
		return n, nil
	}

	opts = append([]bot.Option{bot.WithSkipGetMe()}, opts...)
	b, err := bot.New(cfg.BotToken, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	n.sender = b
	return n, nil
}

// NewDigestNotifierWithSender wires an existing sender.
func NewDigestNotifierWithSender(sender MessageSender, chatID int64, logger *logrus.Logger) *DigestNotifier {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &DigestNotifier{sender: sender, chatID: chatID, logger: logger}
}

func (n *DigestNotifier) Enabled() bool {
	return n != nil && n.sender != nil && n.chatID != 0
}

// SendDigest formats report and sends it to the configured chat.
func (n *DigestNotifier) SendDigest(ctx context.Context, report *models.RotationReport) error {
	if !n.Enabled() {
		return ErrNotifierDisabled
	}

	_, err := n.sender.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: n.chatID,
		Text:   FormatDigest(report),
	})
	if err != nil {
		return fmt.Errorf("failed to send telegram message: %w", err)
	}

	n.logger.WithFields(logrus.Fields{
		"report_id": report.ID,
		"chat_id":   n.chatID,
	}).Info("Sent rotation digest")
	return nil
}

var regimeOrder = []models.Regime{
	models.RegimeAccumulation,
	models.RegimeStealthBuying,
	models.RegimeStable,
	models.RegimeDistribution,
}

// RegimeLabel renders a regime for people, e.g. "Stealth Buying".
func RegimeLabel(r models.Regime) string {
	return cases.Title(language.English).String(strings.ReplaceAll(string(r), "_", " "))
}

// FormatDigest renders the plain-text digest for a report.
func FormatDigest(report *models.RotationReport) string {
	var b strings.Builder
	summary := report.Summary()

	fmt.Fprintf(&b, "Sector Rotation Report %s\n", report.GeneratedAt.Format("2006-01-02"))
	fmt.Fprintf(&b, "Tickers: %d | Sectors: %d | Months: %d\n", len(summary.Tickers), summary.Sectors, summary.Months)
	if n := report.Matrix.Len(); n > 0 {
		fmt.Fprintf(&b, "Latest month volume: %.0f (%s)\n", report.Matrix.MonthTotal(n-1), report.Matrix.Months[n-1].Format("2006-01"))
	}

	ins := report.Insights
	if ins.TopVolume != nil || ins.StrongestGain != nil || ins.MostMacroSensitive != nil {
		b.WriteString("\n")
	}
	if ins.TopVolume != nil {
		fmt.Fprintf(&b, "Top volume: %s (%.0f)\n", ins.TopVolume.Sector, ins.TopVolume.Value)
	}
	if ins.StrongestGain != nil {
		fmt.Fprintf(&b, "Strongest gain: %s (%s)\n", ins.StrongestGain.Sector, formatChange(ins.StrongestGain.Value))
	}
	if ins.StrongestDecline != nil {
		fmt.Fprintf(&b, "Strongest decline: %s (%s)\n", ins.StrongestDecline.Sector, formatChange(ins.StrongestDecline.Value))
	}
	if p := ins.MostMacroSensitive; p != nil {
		fmt.Fprintf(&b, "Most macro-sensitive: %s vs %s (%.2f)", p.Sector, p.Indicator, p.Coefficient)
		if row, ok := report.Correlation.Row(p.Indicator); ok {
			fmt.Fprintf(&b, " over %d months", len(row.Months))
		}
		b.WriteString("\n")
	}

	grouped := make(map[models.Regime][]string)
	for _, c := range report.Classifications {
		grouped[c.Regime] = append(grouped[c.Regime], c.Sector)
	}
	if len(grouped) > 0 {
		b.WriteString("\nRegimes:\n")
		for _, r := range regimeOrder {
			if sectors := grouped[r]; len(sectors) > 0 {
				fmt.Fprintf(&b, "- %s: %s\n", RegimeLabel(r), strings.Join(sectors, ", "))
			}
		}
	} else if report.ClassificationError != "" {
		fmt.Fprintf(&b, "\nRegimes unavailable: %s\n", report.ClassificationError)
	}

	if n := len(report.FetchFailures); n > 0 {
		fmt.Fprintf(&b, "\n%d ticker(s) could not be fetched\n", n)
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatChange(v float64) string {
	if math.IsInf(v, 1) {
		return "new volume"
	}
	if math.IsNaN(v) || math.IsInf(v, -1) {
		return "n/a"
	}
	pct := decimal.NewFromFloat(v).Shift(2).Round(1)
	if pct.IsNegative() {
		return pct.StringFixed(1) + "%"
	}
	return "+" + pct.StringFixed(1) + "%"
}
