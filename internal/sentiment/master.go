package sentiment

import (
	"context"
	"fmt"
	"strings"

	"github.com/aixgo-dev/reviewmesh/internal/llm/provider"
)

// masterAnalyzer is the "master_analyst" specialization: it synthesizes
// every department record plus the original review into one final
// verdict. Analyze is unsupported; only Synthesize is.
type masterAnalyzer struct {
	*baseAnalyzer
}

// NewMasterAnalyzer constructs the master_analyst specialization.
func NewMasterAnalyzer(p provider.Provider, model string) Analyzer {
	return &masterAnalyzer{&baseAnalyzer{
		agentType: "master_analyst",
		agentName: analyzerClassName("master_analyst"),
		provider:  p,
		model:     model,
	}}
}

func (m *masterAnalyzer) Analyze(context.Context, string, AnalyzerParams) AnalysisRecord {
	return FallbackRecord(m.agentType, m.agentName, ErrNotSupported)
}

func (m *masterAnalyzer) Synthesize(ctx context.Context, departmentRecords []AnalysisRecord, review string) AnalysisRecord {
	var ctxBuilder strings.Builder
	ctxBuilder.WriteString("DEPARTMENT ANALYSES:\n\n")
	for _, rec := range departmentRecords {
		fmt.Fprintf(&ctxBuilder, "%s DEPARTMENT:\n", strings.ToUpper(rec.AgentType))
		fmt.Fprintf(&ctxBuilder, "- Sentiment: %s (confidence: %.2f)\n", rec.Sentiment, rec.Confidence)
		fmt.Fprintf(&ctxBuilder, "- Reasoning: %s\n\n", rec.Reasoning)
	}
	fmt.Fprintf(&ctxBuilder, "\nORIGINAL REVIEW: %s\n\nProvide your final synthesis:", review)

	system := "You are the master sentiment analyst. Weigh every department's findings and the " +
		"original review to produce one final, well-reasoned verdict. Respond with JSON containing " +
		"sentiment, confidence, emotions, topics, reasoning, business_impact."

	return m.call(ctx, system, ctxBuilder.String(), AnalyzerParams{})
}

func (m *masterAnalyzer) Recommend(context.Context, AnalysisRecord, []AnalysisRecord, string) AnalysisRecord {
	return FallbackRecord(m.agentType, m.agentName, ErrNotSupported)
}
