package workflow

import (
	"context"
	"testing"

	"github.com/aixgo-dev/reviewmesh/internal/sentiment"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubAnalyzer is a deterministic Analyzer double for exercising the
// engine's control flow without an LLM round trip.
type stubAnalyzer struct {
	agentType  string
	queue      []sentiment.AnalysisRecord
	calls      int
	recommend  sentiment.AnalysisRecord
	synthesize sentiment.AnalysisRecord
}

func (s *stubAnalyzer) AgentType() string { return s.agentType }
func (s *stubAnalyzer) AgentName() string { return s.agentType }

func (s *stubAnalyzer) Analyze(context.Context, string, sentiment.AnalyzerParams) sentiment.AnalysisRecord {
	i := s.calls
	s.calls++
	if i < len(s.queue) {
		return s.queue[i]
	}
	return s.queue[len(s.queue)-1]
}

func (s *stubAnalyzer) Synthesize(context.Context, []sentiment.AnalysisRecord, string) sentiment.AnalysisRecord {
	return s.synthesize
}

func (s *stubAnalyzer) Recommend(context.Context, sentiment.AnalysisRecord, []sentiment.AnalysisRecord, string) sentiment.AnalysisRecord {
	return s.recommend
}

func rec(agentType string, sent sentiment.Sentiment) sentiment.AnalysisRecord {
	return sentiment.AnalysisRecord{AgentType: agentType, Sentiment: sent, Confidence: 0.8, Reasoning: "because"}
}

func TestEngine_Run_ConsensusOnFirstPass_NoDiscussion(t *testing.T) {
	quality := &stubAnalyzer{agentType: "quality", queue: []sentiment.AnalysisRecord{rec("quality", sentiment.SentimentPositive)}}
	experience := &stubAnalyzer{agentType: "experience", queue: []sentiment.AnalysisRecord{rec("experience", sentiment.SentimentPositive)}}
	master := &stubAnalyzer{agentType: "master_analyst", synthesize: rec("master_analyst", sentiment.SentimentPositive)}
	advisor := &stubAnalyzer{agentType: "business_advisor", recommend: rec("business_advisor", sentiment.SentimentPositive)}

	e := New([]sentiment.Analyzer{quality, experience}, master, advisor, 2, 0.6)
	result := e.Run(context.Background(), "great product", "p1", sentiment.AnalyzerParams{})

	assert.True(t, result.Metadata.ConsensusReached)
	assert.Equal(t, 0, result.Metadata.DiscussionRounds)
	require.Len(t, result.DepartmentAnalyses, 2)
	assert.Equal(t, sentiment.SentimentPositive, result.MasterAnalysis.Sentiment)
}

func TestEngine_Run_DisagreementTriggersDiscussion_ThenConverges(t *testing.T) {
	quality := &stubAnalyzer{agentType: "quality", queue: []sentiment.AnalysisRecord{
		rec("quality", sentiment.SentimentPositive),
		rec("quality", sentiment.SentimentPositive),
	}}
	experience := &stubAnalyzer{agentType: "experience", queue: []sentiment.AnalysisRecord{
		rec("experience", sentiment.SentimentNegative),
		rec("experience", sentiment.SentimentPositive),
	}}
	master := &stubAnalyzer{agentType: "master_analyst", synthesize: rec("master_analyst", sentiment.SentimentPositive)}
	advisor := &stubAnalyzer{agentType: "business_advisor", recommend: rec("business_advisor", sentiment.SentimentPositive)}

	e := New([]sentiment.Analyzer{quality, experience}, master, advisor, 2, 0.4)
	result := e.Run(context.Background(), "mixed review", "p2", sentiment.AnalyzerParams{})

	assert.True(t, result.Metadata.ConsensusReached)
	assert.Equal(t, 1, result.Metadata.DiscussionRounds)
	assert.Len(t, result.DiscussionLog, 2)
}

func TestEngine_Run_ZeroMaxRounds_SkipsDiscussionEvenOnDisagreement(t *testing.T) {
	quality := &stubAnalyzer{agentType: "quality", queue: []sentiment.AnalysisRecord{rec("quality", sentiment.SentimentPositive)}}
	experience := &stubAnalyzer{agentType: "experience", queue: []sentiment.AnalysisRecord{rec("experience", sentiment.SentimentNegative)}}
	master := &stubAnalyzer{agentType: "master_analyst", synthesize: rec("master_analyst", sentiment.SentimentNeutral)}
	advisor := &stubAnalyzer{agentType: "business_advisor", recommend: rec("business_advisor", sentiment.SentimentNeutral)}

	e := New([]sentiment.Analyzer{quality, experience}, master, advisor, 0, 0.4)
	result := e.Run(context.Background(), "mixed review", "p-disabled", sentiment.AnalyzerParams{})

	assert.False(t, result.Metadata.ConsensusReached)
	assert.Equal(t, 0, result.Metadata.DiscussionRounds)
	assert.Empty(t, result.DiscussionLog)
	assert.Equal(t, sentiment.SentimentNeutral, result.MasterAnalysis.Sentiment)
}

func TestEngine_Run_MaxRoundsReachedWithoutConsensus_StillSynthesizes(t *testing.T) {
	quality := &stubAnalyzer{agentType: "quality", queue: []sentiment.AnalysisRecord{rec("quality", sentiment.SentimentPositive)}}
	experience := &stubAnalyzer{agentType: "experience", queue: []sentiment.AnalysisRecord{rec("experience", sentiment.SentimentNegative)}}
	master := &stubAnalyzer{agentType: "master_analyst", synthesize: rec("master_analyst", sentiment.SentimentNeutral)}
	advisor := &stubAnalyzer{agentType: "business_advisor", recommend: rec("business_advisor", sentiment.SentimentNeutral)}

	e := New([]sentiment.Analyzer{quality, experience}, master, advisor, 1, 0.4)
	result := e.Run(context.Background(), "torn review", "p3", sentiment.AnalyzerParams{})

	assert.False(t, result.Metadata.ConsensusReached)
	assert.Equal(t, 1, result.Metadata.DiscussionRounds)
	assert.Equal(t, sentiment.SentimentNeutral, result.MasterAnalysis.Sentiment)
}

func TestEngine_Run_SingleDepartment_AlwaysConsensus(t *testing.T) {
	quality := &stubAnalyzer{agentType: "quality", queue: []sentiment.AnalysisRecord{rec("quality", sentiment.SentimentNegative)}}
	master := &stubAnalyzer{agentType: "master_analyst", synthesize: rec("master_analyst", sentiment.SentimentNegative)}
	advisor := &stubAnalyzer{agentType: "business_advisor", recommend: rec("business_advisor", sentiment.SentimentNegative)}

	e := New([]sentiment.Analyzer{quality}, master, advisor, 2, 0.1)
	result := e.Run(context.Background(), "bad", "p4", sentiment.AnalyzerParams{})

	assert.True(t, result.Metadata.ConsensusReached)
	assert.Equal(t, 0.0, result.Metadata.DisagreementLevel)
}

func TestEngine_DiscussionRound_KeepsPriorRecordOnFailure(t *testing.T) {
	quality := &stubAnalyzer{agentType: "quality", queue: []sentiment.AnalysisRecord{
		rec("quality", sentiment.SentimentPositive),
		{AgentType: "quality", Sentiment: sentiment.SentimentNeutral, Error: "provider down"},
	}}
	experience := &stubAnalyzer{agentType: "experience", queue: []sentiment.AnalysisRecord{
		rec("experience", sentiment.SentimentNegative),
		rec("experience", sentiment.SentimentPositive),
	}}
	master := &stubAnalyzer{agentType: "master_analyst", synthesize: rec("master_analyst", sentiment.SentimentPositive)}
	advisor := &stubAnalyzer{agentType: "business_advisor", recommend: rec("business_advisor", sentiment.SentimentPositive)}

	e := New([]sentiment.Analyzer{quality, experience}, master, advisor, 2, 0.4)
	result := e.Run(context.Background(), "review", "p5", sentiment.AnalyzerParams{})

	require.Len(t, result.DepartmentAnalyses, 2)
	assert.Equal(t, sentiment.SentimentPositive, result.DepartmentAnalyses[0].Sentiment)
}

func TestDisagreement_TableDriven(t *testing.T) {
	cases := []struct {
		name string
		recs []sentiment.AnalysisRecord
		want float64
	}{
		{"empty", nil, 0},
		{"single", []sentiment.AnalysisRecord{rec("a", sentiment.SentimentPositive)}, 0},
		{"all agree", []sentiment.AnalysisRecord{rec("a", sentiment.SentimentPositive), rec("b", sentiment.SentimentPositive)}, 0},
		{"full split three-way", []sentiment.AnalysisRecord{
			rec("a", sentiment.SentimentPositive), rec("b", sentiment.SentimentNegative), rec("c", sentiment.SentimentNeutral),
		}, 1.0 - 1.0/3.0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.InDelta(t, tc.want, disagreement(tc.recs), 1e-9)
		})
	}
}
