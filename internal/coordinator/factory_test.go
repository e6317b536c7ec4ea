package coordinator

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aixgo-dev/reviewmesh/internal/llm/provider"
	"github.com/aixgo-dev/reviewmesh/internal/sentiment"
	"github.com/aixgo-dev/reviewmesh/pkg/config"
)

// splitSentimentProvider returns a fixed sentiment keyed off which
// department's system prompt names it, so a built coordinator disagrees
// on the first pass without needing a live LLM.
type splitSentimentProvider struct{}

func (splitSentimentProvider) Name() string { return "split" }
func (splitSentimentProvider) CreateCompletion(context.Context, provider.CompletionRequest) (*provider.CompletionResponse, error) {
	return nil, nil
}
func (splitSentimentProvider) CreateStreaming(context.Context, provider.CompletionRequest) (provider.Stream, error) {
	return nil, nil
}
func (splitSentimentProvider) CreateStructured(_ context.Context, req provider.StructuredRequest) (*provider.StructuredResponse, error) {
	sentiment := "positive"
	for _, msg := range req.Messages {
		if msg.Role == "system" && strings.Contains(msg.Content, "experience department") {
			sentiment = "negative"
		}
	}
	data := []byte(`{"sentiment":"` + sentiment + `","confidence":0.8,"emotions":["x"],"topics":["y"],"reasoning":"r","business_impact":"b"}`)
	return &provider.StructuredResponse{Data: data}, nil
}

func boolPtr(b bool) *bool { return &b }

func baseTestConfig() *config.Config {
	return &config.Config{
		DefaultModel: "gpt-4o-mini",
		Departments: []config.DepartmentConfig{
			{AgentType: "quality", Port: 8001},
			{AgentType: "experience", Port: 8002},
		},
		Coordinator: config.CoordinatorConfig{
			Strategy:              "sequential",
			MaxDiscussionRounds:   2,
			DisagreementThreshold: 0.3,
			MasterAgentType:       "master_analyst",
			AdvisorAgentType:      "business_advisor",
		},
	}
}

func TestBuildFromConfig_DiscussionRunsWhenConsensusDebateEnabled(t *testing.T) {
	cfg := baseTestConfig()
	cfg.Coordinator.EnableConsensusDebate = boolPtr(true)

	coord := BuildFromConfig(cfg, splitSentimentProvider{})
	result := coord.Analyze(context.Background(), "mixed review", "p1", sentiment.AnalyzerParams{ProductCategory: cfg.ProductCategory})

	assert.Greater(t, result.Metadata.DiscussionRounds, 0)
}

func TestBuildFromConfig_DiscussionSkippedWhenConsensusDebateDisabled(t *testing.T) {
	cfg := baseTestConfig()
	cfg.Coordinator.EnableConsensusDebate = boolPtr(false)

	coord := BuildFromConfig(cfg, splitSentimentProvider{})
	result := coord.Analyze(context.Background(), "mixed review", "p2", sentiment.AnalyzerParams{ProductCategory: cfg.ProductCategory})

	require.Equal(t, 0, result.Metadata.DiscussionRounds)
	assert.Empty(t, result.DiscussionLog)
}
