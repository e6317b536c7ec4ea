package sentiment

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeSentiment(t *testing.T) {
	cases := map[string]Sentiment{
		"positive": SentimentPositive,
		" POSITIVE ": SentimentPositive,
		"negative": SentimentNegative,
		"neutral":  SentimentNeutral,
		"":         SentimentNeutral,
		"unknown":  SentimentNeutral,
		"MIXED":    SentimentNeutral,
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizeSentiment(in), "input %q", in)
	}
}

func TestAnalysisRecord_Normalize_ClampsConfidence(t *testing.T) {
	r := AnalysisRecord{Confidence: 1.5}.Normalize()
	assert.Equal(t, 1.0, r.Confidence)

	r = AnalysisRecord{Confidence: -0.3}.Normalize()
	assert.Equal(t, 0.0, r.Confidence)
}

func TestAnalysisRecord_Normalize_TruncatesFreeText(t *testing.T) {
	long := strings.Repeat("a", 1000)
	r := AnalysisRecord{Reasoning: long, BusinessImpact: long}.Normalize()
	assert.Len(t, r.Reasoning, 500)
	assert.Len(t, r.BusinessImpact, 500)
}

func TestAnalysisRecord_Normalize_Idempotent(t *testing.T) {
	r := AnalysisRecord{
		Sentiment:  "POSITIVE",
		Confidence: 2.0,
		Reasoning:  strings.Repeat("x", 900),
	}
	once := r.Normalize()
	twice := once.Normalize()
	assert.Equal(t, once, twice)
}

func TestFallbackRecord(t *testing.T) {
	r := FallbackRecord("quality", "ProductQualityAnalyzer", errors.New("boom"))
	assert.Equal(t, SentimentNeutral, r.Sentiment)
	assert.Equal(t, 0.5, r.Confidence)
	assert.NotEmpty(t, r.Error)
	assert.Equal(t, []string{}, r.Emotions)
	assert.Equal(t, []string{}, r.Topics)
}
