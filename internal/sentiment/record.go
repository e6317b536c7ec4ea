// Package sentiment implements the department, master, and advisor
// analyzers that produce AnalysisRecords from review text.
package sentiment

import "strings"

// Sentiment is one of the three recognized polarities. Any value outside
// this set collapses to SentimentNeutral on ingest.
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNeutral  Sentiment = "neutral"
	SentimentNegative Sentiment = "negative"
)

// NormalizeSentiment lower-cases and trims s, mapping anything that isn't
// a recognized polarity to neutral. Idempotent.
func NormalizeSentiment(s string) Sentiment {
	switch Sentiment(strings.ToLower(strings.TrimSpace(s))) {
	case SentimentPositive:
		return SentimentPositive
	case SentimentNegative:
		return SentimentNegative
	default:
		return SentimentNeutral
	}
}

const maxFreeTextLen = 500

// truncate clamps s to maxFreeTextLen runes. Idempotent.
func truncate(s string) string {
	r := []rune(s)
	if len(r) <= maxFreeTextLen {
		return s
	}
	return string(r[:maxFreeTextLen])
}

// clampConfidence clamps c to [0,1]. Idempotent.
func clampConfidence(c float64) float64 {
	switch {
	case c < 0:
		return 0
	case c > 1:
		return 1
	default:
		return c
	}
}

// AnalysisRecord is the fundamental output unit of every analyzer.
type AnalysisRecord struct {
	AgentType      string    `json:"agent_type"`
	AgentName      string    `json:"agent_name"`
	Sentiment      Sentiment `json:"sentiment"`
	Confidence     float64   `json:"confidence"`
	Emotions       []string  `json:"emotions"`
	Topics         []string  `json:"topics"`
	Reasoning      string    `json:"reasoning"`
	BusinessImpact string    `json:"business_impact"`
	Error          string    `json:"error,omitempty"`
}

// Normalize runs the normalization pipeline described in spec §4.1:
// sentiment to enum, confidence clamped, free text truncated. Idempotent.
func (r AnalysisRecord) Normalize() AnalysisRecord {
	r.Sentiment = NormalizeSentiment(string(r.Sentiment))
	r.Confidence = clampConfidence(r.Confidence)
	r.Reasoning = truncate(r.Reasoning)
	r.BusinessImpact = truncate(r.BusinessImpact)
	if r.Emotions == nil {
		r.Emotions = []string{}
	}
	if r.Topics == nil {
		r.Topics = []string{}
	}
	return r
}

// FallbackRecord builds the well-formed fallback record required by spec
// §4.1 and §7 whenever an analyzer, master, or advisor invocation fails.
func FallbackRecord(agentType, agentName string, cause error) AnalysisRecord {
	return AnalysisRecord{
		AgentType:      agentType,
		AgentName:      agentName,
		Sentiment:      SentimentNeutral,
		Confidence:     0.5,
		Emotions:       []string{},
		Topics:         []string{},
		Reasoning:      truncate("analysis error: " + cause.Error()),
		BusinessImpact: "unable to assess",
		Error:          cause.Error(),
	}.Normalize()
}
