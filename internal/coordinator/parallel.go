package coordinator

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/aixgo-dev/reviewmesh/internal/sentiment"
	"github.com/aixgo-dev/reviewmesh/internal/workflow"
)

// DepartmentEndpoint pairs an agent type with the A2A endpoint hosting
// it, in configured order.
type DepartmentEndpoint struct {
	AgentType string
	Endpoint  string
}

// ParallelCoordinator fans department analysis out over HTTP to
// independently hosted Agent Services, then re-enters the workflow
// engine's discussion/synthesis tail in-process. Department calls run
// concurrently with a per-call timeout; a failed or slow department
// degrades to a fallback record rather than failing the whole run, and
// output order always matches the configured department order
// regardless of which call returned first.
type ParallelCoordinator struct {
	departments []DepartmentEndpoint
	clients     []*AgentClient
	timeout     time.Duration
	engine      *workflow.Engine
}

// NewParallel builds a ParallelCoordinator. master and advisor still
// run in-process against the shared provider, mirroring the spec's
// resolution that only department analysis is distributed. One
// AgentClient per department is built up front and reused across every
// Analyze call, so each department's circuit breaker accumulates
// failures across discussion rounds and separate review requests
// instead of resetting on every call.
func NewParallel(departments []DepartmentEndpoint, master, advisor sentiment.Analyzer, timeout time.Duration, maxDiscussionRounds int, disagreementThreshold float64) *ParallelCoordinator {
	clients := make([]*AgentClient, len(departments))
	for i, dept := range departments {
		clients[i] = NewAgentClient(dept.Endpoint, timeout)
	}
	return &ParallelCoordinator{
		departments: departments,
		clients:     clients,
		timeout:     timeout,
		engine:      workflow.New(nil, master, advisor, maxDiscussionRounds, disagreementThreshold),
	}
}

func (c *ParallelCoordinator) Analyze(ctx context.Context, review, productID string, params sentiment.AnalyzerParams) workflow.Result {
	records := make([]sentiment.AnalysisRecord, len(c.departments))

	group, groupCtx := errgroup.WithContext(ctx)
	for i, dept := range c.departments {
		i, dept := i, dept
		group.Go(func() error {
			callCtx, cancel := context.WithTimeout(groupCtx, c.timeout)
			defer cancel()

			client := c.clients[i]
			metadata := map[string]interface{}{
				"product_category": params.ProductCategory,
				"max_tokens":       params.MaxTokens,
			}
			record, err := client.Analyze(callCtx, review, metadata)
			if err != nil {
				record = sentiment.FallbackRecord(dept.AgentType, dept.AgentType, err)
			}
			records[i] = record
			return nil
		})
	}
	// errgroup.Wait never returns an error here: every department call
	// converts its own failure into a fallback record instead of
	// propagating, so one slow or unreachable department never cancels
	// the others' in-flight requests.
	_ = group.Wait()

	return c.engine.RunFromDepartmentAnalyses(ctx, review, productID, params, records)
}
