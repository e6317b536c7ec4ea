// Package coordinator implements the two strategies for turning a
// department agent roster into a completed workflow.Result: an
// in-process sequential strategy and an HTTP fan-out parallel strategy
// that talks A2A JSON-RPC to independently hosted Agent Services.
package coordinator

import (
	"context"

	"github.com/aixgo-dev/reviewmesh/internal/sentiment"
	"github.com/aixgo-dev/reviewmesh/internal/workflow"
)

// Coordinator runs one full analysis for a review.
type Coordinator interface {
	Analyze(ctx context.Context, review, productID string, params sentiment.AnalyzerParams) workflow.Result
}
