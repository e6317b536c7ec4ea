// Package workflow implements the fixed multi-agent review analysis
// pipeline: department fan-out, consensus check, a bounded discussion
// loop, master synthesis, and business advisor recommendations.
package workflow

import (
	"fmt"
	"strings"

	"github.com/aixgo-dev/reviewmesh/internal/sentiment"
)

// State threads through every node of the workflow. It is passed by
// value between nodes, mirroring the original's dict-of-state approach
// but with the node functions taking ownership of the copy they return
// rather than mutating in place.
type State struct {
	Review          string
	ProductCategory string
	ProductID       string

	DepartmentAnalyses []sentiment.AnalysisRecord
	DiscussionLog      []string

	ConsensusReached bool
	DisagreementLevel float64
	CurrentRound      int
	MaxRounds         int

	MasterAnalysis         sentiment.AnalysisRecord
	BusinessRecommendation sentiment.AnalysisRecord
}

// Result is the externally visible outcome of a completed run.
type Result struct {
	ProductID              string                     `json:"product_id"`
	ProductCategory        string                     `json:"product_category"`
	ReviewText             string                     `json:"review_text"`
	DepartmentAnalyses     []sentiment.AnalysisRecord `json:"department_analyses"`
	DiscussionLog          []string                   `json:"discussion_messages"`
	MasterAnalysis         sentiment.AnalysisRecord   `json:"master_analysis"`
	BusinessRecommendation sentiment.AnalysisRecord   `json:"business_recommendations"`
	Metadata               Metadata                   `json:"workflow_metadata"`
}

// Metadata records how the run proceeded, independent of its verdict.
type Metadata struct {
	TotalDepartments  int     `json:"total_departments"`
	DiscussionRounds  int     `json:"discussion_rounds"`
	DisagreementLevel float64 `json:"disagreement_level"`
	ConsensusReached  bool    `json:"consensus_reached"`
}

// disagreement computes 1 - (count of the most common sentiment) / n,
// per spec §5.2. Fewer than two records always yields zero disagreement.
func disagreement(records []sentiment.AnalysisRecord) float64 {
	if len(records) < 2 {
		return 0
	}
	counts := map[sentiment.Sentiment]int{}
	for _, r := range records {
		counts[r.Sentiment]++
	}
	max := 0
	for _, c := range counts {
		if c > max {
			max = c
		}
	}
	return 1.0 - float64(max)/float64(len(records))
}

// buildDiscussionContext renders the shared context string every
// department analyzer sees during a discussion round, mirroring
// _agent_discussion_node's discussion_context format.
func buildDiscussionContext(review string, records []sentiment.AnalysisRecord, level float64) string {
	var b strings.Builder
	fmt.Fprintf(&b, "REVIEW: %s\n\nCURRENT AGENT ANALYSES:\n", review)
	for _, r := range records {
		fmt.Fprintf(&b, "\n%s AGENT:\n- Sentiment: %s (confidence: %.2f)\n- Reasoning: %s\n",
			strings.ToUpper(r.AgentType), r.Sentiment, r.Confidence, r.Reasoning)
	}
	fmt.Fprintf(&b, "\nDISAGREEMENT LEVEL: %.2f\n\n"+
		"Please discuss and refine your analyses considering other agents' perspectives.\n"+
		"Each agent should provide a refined analysis considering the discussion.\n", level)
	return b.String()
}

// agentDiscussionPrompt mirrors the per-agent prompt built inside the
// discussion loop: shared context plus a specialization reminder.
func agentDiscussionPrompt(agentType, sharedContext string) string {
	return fmt.Sprintf(
		"You are the %s specialist.\n\n%s\n"+
			"Based on the discussion above, provide your REFINED analysis of the review.\n"+
			"Consider other agents' perspectives but maintain your specialized focus on %s.\n"+
			"Be willing to adjust your sentiment if other agents make valid points.",
		strings.ToUpper(agentType), sharedContext, agentType,
	)
}
