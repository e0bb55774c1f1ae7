package repository

import (
	"fmt"
	"strings"

	"market-sentiment-pipeline/internal/pipeline/dto"
)

// BuildSentimentPrompt renders the analysis prompt for one item. The model is
// instructed to answer with bare JSON matching dto.Analysis.
func BuildSentimentPrompt(text string, analyzeCtx dto.AnalyzeContext) string {
	var b strings.Builder

	b.WriteString("You are a financial sentiment analyst. Score the following text for market sentiment.\n\n")

	if analyzeCtx.Symbol != "" {
		b.WriteString(fmt.Sprintf("Symbol: %s\n", analyzeCtx.Symbol))
	}
	b.WriteString(fmt.Sprintf("Source: %s\n", analyzeCtx.Source))
	b.WriteString(fmt.Sprintf("Text:\n%s\n\n", text))

	b.WriteString(`Respond with JSON only, no markdown, in this exact shape:
{
  "score": <float, -1.0 very negative to 1.0 very positive>,
  "confidence": <float, 0.0 to 1.0, your certainty in the score>,
  "polarity": <float, -1.0 to 1.0, raw tone of the language>,
  "subjectivity": <float, 0.0 objective to 1.0 subjective>,
  "keywords": [<up to 5 short phrases driving the score>]
}`)

	return b.String()
}
