package dto

import (
	"encoding/json"

	"market-sentiment-pipeline/internal/entity"
)

// AnalyzeContext carries the item context passed alongside the text.
type AnalyzeContext struct {
	Symbol   string          `json:"symbol,omitempty"`
	Source   entity.Source   `json:"source"`
	Metadata json.RawMessage `json:"metadata,omitempty"`
	UserID   string          `json:"user_id,omitempty"`
}

// Analysis is the structured scoring result returned by the Analyzer.
type Analysis struct {
	Score        float64  `json:"score"`
	Confidence   float64  `json:"confidence"`
	Polarity     float64  `json:"polarity"`
	Subjectivity float64  `json:"subjectivity"`
	Keywords     []string `json:"keywords,omitempty"`
}

// GeminiAPIRequest is the request body for the Gemini generateContent API.
type GeminiAPIRequest struct {
	Contents []Content `json:"contents"`
}

// Content is a single conversation turn in a Gemini request or response.
type Content struct {
	Parts []Part `json:"parts"`
}

// Part is one piece of content in a Gemini turn.
type Part struct {
	Text string `json:"text"`
}

// GeminiAPIResponse is the response body from the Gemini generateContent API.
type GeminiAPIResponse struct {
	Candidates []struct {
		Content Content `json:"content"`
	} `json:"candidates"`
}
