package telegram

import (
	"fmt"
	"strings"
	"time"
)

// FormatSentimentAlert renders a sentiment spike alert as a Markdown message.
func FormatSentimentAlert(symbol string, score, confidence float64, alertType string, at time.Time) string {
	var b strings.Builder

	icon := "🚀"
	if strings.HasPrefix(alertType, "negative") {
		icon = "⚠️"
	}

	b.WriteString(fmt.Sprintf("%s *Sentiment Alert: %s*\n", icon, symbol))
	b.WriteString(fmt.Sprintf("Type: `%s`\n", alertType))
	b.WriteString(fmt.Sprintf("Score: `%.2f`\n", score))
	b.WriteString(fmt.Sprintf("Confidence: `%.2f`\n", confidence))
	b.WriteString(fmt.Sprintf("Time: `%s`", at.UTC().Format(time.RFC3339)))

	return b.String()
}
