package sentiment

import (
	"context"
	"fmt"
	"strings"

	"github.com/aixgo-dev/reviewmesh/internal/llm/provider"
)

// advisorAnalyzer is the "business_advisor" specialization: it turns the
// master verdict plus department records into actionable recommendations.
// Only Recommend is supported.
type advisorAnalyzer struct {
	*baseAnalyzer
}

// NewAdvisorAnalyzer constructs the business_advisor specialization.
func NewAdvisorAnalyzer(p provider.Provider, model string) Analyzer {
	return &advisorAnalyzer{&baseAnalyzer{
		agentType: "business_advisor",
		agentName: analyzerClassName("business_advisor"),
		provider:  p,
		model:     model,
	}}
}

func (a *advisorAnalyzer) Analyze(context.Context, string, AnalyzerParams) AnalysisRecord {
	return FallbackRecord(a.agentType, a.agentName, ErrNotSupported)
}

func (a *advisorAnalyzer) Synthesize(context.Context, []AnalysisRecord, string) AnalysisRecord {
	return FallbackRecord(a.agentType, a.agentName, ErrNotSupported)
}

func (a *advisorAnalyzer) Recommend(ctx context.Context, master AnalysisRecord, departmentRecords []AnalysisRecord, review string) AnalysisRecord {
	var b strings.Builder
	b.WriteString("SENTIMENT ANALYSIS RESULTS:\n\n")
	fmt.Fprintf(&b, "MASTER ANALYST FINAL ASSESSMENT:\n")
	fmt.Fprintf(&b, "- Final Sentiment: %s (confidence: %.2f)\n", master.Sentiment, master.Confidence)
	fmt.Fprintf(&b, "- Reasoning: %s\n\n", master.Reasoning)

	b.WriteString("DEPARTMENT INSIGHTS:\n")
	for _, rec := range departmentRecords {
		fmt.Fprintf(&b, "- %s: %s\n", strings.ToUpper(rec.AgentType), rec.Sentiment)
	}
	fmt.Fprintf(&b, "\nORIGINAL REVIEW: %s\n\nProvide actionable business recommendations:", review)

	system := "You are a business advisor. Using the master sentiment verdict and the department " +
		"insights, provide concrete, actionable business recommendations. Respond with JSON containing " +
		"sentiment, confidence, emotions, topics, reasoning, business_impact."

	record := a.call(ctx, system, b.String(), AnalyzerParams{})
	if record.Error != "" {
		// Per spec §4.4/§7: an advisor failure falls back to the master's
		// sentiment rather than a blind neutral, since the master verdict
		// is already known good at this point in the workflow.
		record.Sentiment = master.Sentiment
		record.BusinessImpact = "unable to provide recommendations"
	}
	return record
}
