package workflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/aixgo-dev/reviewmesh/internal/observability"
	"github.com/aixgo-dev/reviewmesh/internal/sentiment"
	metricsobs "github.com/aixgo-dev/reviewmesh/pkg/observability"
)

// Engine runs the fixed department -> consensus -> discussion ->
// synthesis -> recommendation pipeline over one review at a time.
// Department order is the configured order; it is also the order
// department analyses are threaded as prior context into later
// departments within the same pass, mirroring the original's
// sequential-for-cost-control node chaining.
type Engine struct {
	departments           []sentiment.Analyzer
	master                sentiment.Analyzer
	advisor               sentiment.Analyzer
	maxDiscussionRounds   int
	disagreementThreshold float64
}

// New constructs an Engine. master and advisor must be the
// master_analyst and business_advisor specializations respectively;
// the engine does not validate their AgentType beyond trusting the
// caller's wiring (internal/coordinator.BuildFromConfig is the sole
// constructor site).
func New(departments []sentiment.Analyzer, master, advisor sentiment.Analyzer, maxDiscussionRounds int, disagreementThreshold float64) *Engine {
	return &Engine{
		departments:           departments,
		master:                master,
		advisor:               advisor,
		maxDiscussionRounds:   maxDiscussionRounds,
		disagreementThreshold: disagreementThreshold,
	}
}

// Run executes the full workflow for one review and returns its
// Result. It never returns an error: every node degrades to a
// fallback AnalysisRecord on failure per spec §7, so the workflow as a
// whole always produces a well-formed Result.
func (e *Engine) Run(ctx context.Context, review, productID string, params sentiment.AnalyzerParams) Result {
	state := State{
		Review:          review,
		ProductCategory: params.ProductCategory,
		ProductID:       productID,
		MaxRounds:       e.maxDiscussionRounds,
	}

	state = e.runDepartmentPass(ctx, state, params)
	state = e.checkConsensus(state)

	for !state.ConsensusReached && state.CurrentRound < state.MaxRounds {
		state = e.discussionRound(ctx, state, params)
		state = e.checkConsensus(state)
	}

	state = e.synthesize(ctx, state)
	state = e.recommend(ctx, state)

	metricsobs.RecordWorkflowRun(strategyLabel(e), state.ConsensusReached, state.CurrentRound, state.DisagreementLevel)

	return Result{
		ProductID:              productID,
		ProductCategory:        state.ProductCategory,
		ReviewText:             review,
		DepartmentAnalyses:     state.DepartmentAnalyses,
		DiscussionLog:          state.DiscussionLog,
		MasterAnalysis:         state.MasterAnalysis,
		BusinessRecommendation: state.BusinessRecommendation,
		Metadata: Metadata{
			TotalDepartments:  len(e.departments),
			DiscussionRounds:  state.CurrentRound,
			DisagreementLevel: state.DisagreementLevel,
			ConsensusReached:  state.ConsensusReached,
		},
	}
}

// strategyLabel is always "sequential": the engine itself only ever
// runs one analyzer at a time. The parallel A2A strategy in
// internal/coordinator does not call Run — it replaces the department
// fan-out entirely and re-enters the workflow at checkConsensus via
// RunFromDepartmentAnalyses, which records no workflow-run metric.
func strategyLabel(*Engine) string { return "sequential" }

func (e *Engine) runDepartmentPass(ctx context.Context, state State, params sentiment.AnalyzerParams) State {
	for _, dept := range e.departments {
		analysisContext := state.Review
		if len(state.DepartmentAnalyses) > 0 {
			var b strings.Builder
			b.WriteString(analysisContext)
			b.WriteString("\n\nPREVIOUS AGENT ANALYSES:\n")
			for _, prior := range state.DepartmentAnalyses {
				reasoning := prior.Reasoning
				if len(reasoning) > 100 {
					reasoning = reasoning[:100]
				}
				fmt.Fprintf(&b, "- %s: %s (%s...)\n", prior.AgentType, prior.Sentiment, reasoning)
			}
			analysisContext = b.String()
		}
		spanCtx, span := observability.StartSpanWithContext(ctx, "department.analyze", map[string]any{"agent_type": dept.AgentType()})
		record := dept.Analyze(spanCtx, analysisContext, params)
		if record.Error != "" {
			span.SetError(fmt.Errorf("%s", record.Error))
		}
		span.SetAttribute("sentiment", string(record.Sentiment))
		span.End()

		state.DepartmentAnalyses = append(state.DepartmentAnalyses, record)
		metricsobs.RecordAnalyzeCall(record.AgentType, string(record.Sentiment), record.Error != "", 0)
	}
	return state
}

// checkConsensus mirrors _check_consensus_node exactly, including its
// fewer-than-two-records early exit to full consensus.
func (e *Engine) checkConsensus(state State) State {
	state.DisagreementLevel = disagreement(state.DepartmentAnalyses)
	state.ConsensusReached = state.DisagreementLevel < e.disagreementThreshold
	if len(state.DepartmentAnalyses) < 2 {
		state.ConsensusReached = true
		state.DisagreementLevel = 0
	}
	return state
}

// discussionRound mirrors _agent_discussion_node: every department
// re-analyzes with the shared discussion context, and a department
// whose refined analysis fails keeps its prior record rather than
// being overwritten with a fallback.
func (e *Engine) discussionRound(ctx context.Context, state State, params sentiment.AnalyzerParams) State {
	shared := buildDiscussionContext(state.Review, state.DepartmentAnalyses, state.DisagreementLevel)

	refined := make([]sentiment.AnalysisRecord, len(state.DepartmentAnalyses))
	copy(refined, state.DepartmentAnalyses)

	for i, dept := range e.departments {
		prompt := agentDiscussionPrompt(dept.AgentType(), shared)
		spanCtx, span := observability.StartSpanWithContext(ctx, "department.discuss", map[string]any{"agent_type": dept.AgentType()})
		record := dept.Analyze(spanCtx, prompt, params)
		span.SetAttribute("sentiment", string(record.Sentiment))
		if record.Error != "" {
			span.SetError(fmt.Errorf("%s", record.Error))
			span.End()
			// Keep the prior round's record; do not regress a working
			// analysis to a discussion-round fallback.
			continue
		}
		span.End()
		refined[i] = record
		state.DiscussionLog = append(state.DiscussionLog,
			fmt.Sprintf("%s: %s - %s", strings.ToUpper(dept.AgentType()), record.Sentiment, truncate(record.Reasoning, 100)))
	}

	state.DepartmentAnalyses = refined
	state.CurrentRound++
	return state
}

func (e *Engine) synthesize(ctx context.Context, state State) State {
	spanCtx, span := observability.StartSpanWithContext(ctx, "master.synthesize", map[string]any{"department_count": len(state.DepartmentAnalyses)})
	state.MasterAnalysis = e.master.Synthesize(spanCtx, state.DepartmentAnalyses, state.Review)
	if state.MasterAnalysis.Error != "" {
		span.SetError(fmt.Errorf("%s", state.MasterAnalysis.Error))
	}
	span.End()
	metricsobs.RecordAnalyzeCall(state.MasterAnalysis.AgentType, string(state.MasterAnalysis.Sentiment), state.MasterAnalysis.Error != "", 0)
	return state
}

func (e *Engine) recommend(ctx context.Context, state State) State {
	spanCtx, span := observability.StartSpanWithContext(ctx, "advisor.recommend", nil)
	state.BusinessRecommendation = e.advisor.Recommend(spanCtx, state.MasterAnalysis, state.DepartmentAnalyses, state.Review)
	if state.BusinessRecommendation.Error != "" {
		span.SetError(fmt.Errorf("%s", state.BusinessRecommendation.Error))
	}
	span.End()
	metricsobs.RecordAnalyzeCall(state.BusinessRecommendation.AgentType, string(state.BusinessRecommendation.Sentiment), state.BusinessRecommendation.Error != "", 0)
	return state
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// RunFromDepartmentAnalyses re-enters the workflow at the consensus
// check, skipping the department fan-out. It exists for the parallel
// A2A coordinator strategy, which performs department analysis itself
// over HTTP and only needs the engine's discussion/synthesis tail.
func (e *Engine) RunFromDepartmentAnalyses(ctx context.Context, review, productID string, params sentiment.AnalyzerParams, departmentAnalyses []sentiment.AnalysisRecord) Result {
	state := State{
		Review:             review,
		ProductCategory:    params.ProductCategory,
		ProductID:          productID,
		MaxRounds:          e.maxDiscussionRounds,
		DepartmentAnalyses: departmentAnalyses,
	}

	state = e.checkConsensus(state)
	for !state.ConsensusReached && state.CurrentRound < state.MaxRounds {
		state = e.discussionRound(ctx, state, params)
		state = e.checkConsensus(state)
	}
	state = e.synthesize(ctx, state)
	state = e.recommend(ctx, state)

	return Result{
		ProductID:              productID,
		ProductCategory:        state.ProductCategory,
		ReviewText:             review,
		DepartmentAnalyses:     state.DepartmentAnalyses,
		DiscussionLog:          state.DiscussionLog,
		MasterAnalysis:         state.MasterAnalysis,
		BusinessRecommendation: state.BusinessRecommendation,
		Metadata: Metadata{
			TotalDepartments:  len(departmentAnalyses),
			DiscussionRounds:  state.CurrentRound,
			DisagreementLevel: state.DisagreementLevel,
			ConsensusReached:  state.ConsensusReached,
		},
	}
}
