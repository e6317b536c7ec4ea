package coordinator

import (
	"context"

	"github.com/aixgo-dev/reviewmesh/internal/llm/provider"
	"github.com/aixgo-dev/reviewmesh/internal/sentiment"
	"github.com/aixgo-dev/reviewmesh/internal/workflow"
)

// SequentialCoordinator runs every analyzer in-process, in configured
// order. It is the reference-semantics strategy: its output ordering
// and field values are what the parallel strategy is checked against.
type SequentialCoordinator struct {
	engine *workflow.Engine
}

// NewSequential builds a SequentialCoordinator by constructing an
// analyzer per configured department plus master and advisor, all
// sharing the same provider and model.
func NewSequential(departmentTypes []string, masterType, advisorType string, p provider.Provider, model string, maxDiscussionRounds int, disagreementThreshold float64) *SequentialCoordinator {
	departments := sentiment.BuildTeam(departmentTypes, p, model)
	master := sentiment.NewAnalyzerForType(masterType, p, model)
	advisor := sentiment.NewAnalyzerForType(advisorType, p, model)

	return &SequentialCoordinator{
		engine: workflow.New(departments, master, advisor, maxDiscussionRounds, disagreementThreshold),
	}
}

func (c *SequentialCoordinator) Analyze(ctx context.Context, review, productID string, params sentiment.AnalyzerParams) workflow.Result {
	return c.engine.Run(ctx, review, productID, params)
}
