package coordinator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aixgo-dev/reviewmesh/internal/llm/provider"
	"github.com/aixgo-dev/reviewmesh/internal/sentiment"
)

type fakeProvider struct {
	sentiment  string
	confidence float64
}

func (f *fakeProvider) Name() string { return "fake" }
func (f *fakeProvider) CreateCompletion(context.Context, provider.CompletionRequest) (*provider.CompletionResponse, error) {
	return nil, nil
}
func (f *fakeProvider) CreateStreaming(context.Context, provider.CompletionRequest) (provider.Stream, error) {
	return nil, nil
}
func (f *fakeProvider) CreateStructured(context.Context, provider.StructuredRequest) (*provider.StructuredResponse, error) {
	data := []byte(`{"sentiment":"` + f.sentiment + `","confidence":` + floatStr(f.confidence) + `,"emotions":["satisfaction"],"topics":["battery"],"reasoning":"solid","business_impact":"positive outlook"}`)
	return &provider.StructuredResponse{Data: data}, nil
}

func floatStr(f float64) string {
	if f == 0 {
		return "0"
	}
	return "0.9"
}

func TestSequentialCoordinator_Analyze(t *testing.T) {
	p := &fakeProvider{sentiment: "positive", confidence: 0.9}
	c := NewSequential([]string{"quality", "experience"}, "master_analyst", "business_advisor", p, "gpt-4o-mini", 2, 0.6)

	result := c.Analyze(context.Background(), "great product", "p1", sentiment.AnalyzerParams{ProductCategory: "electronics"})

	require.Len(t, result.DepartmentAnalyses, 2)
	assert.Equal(t, "quality", result.DepartmentAnalyses[0].AgentType)
	assert.Equal(t, "experience", result.DepartmentAnalyses[1].AgentType)
	assert.Equal(t, sentiment.SentimentPositive, result.MasterAnalysis.Sentiment)
	assert.Equal(t, sentiment.SentimentPositive, result.BusinessRecommendation.Sentiment)
}
