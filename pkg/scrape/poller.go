package scrape

import (
	"context"
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"

	"github.com/aixgo-dev/reviewmesh/internal/sentiment"
	"github.com/aixgo-dev/reviewmesh/internal/workflow"
)

// Analyzer is the minimal coordinator surface a Poller depends on,
// satisfied by *coordinator.SequentialCoordinator and
// *coordinator.ParallelCoordinator alike.
type Analyzer interface {
	Analyze(ctx context.Context, review, productID string, params sentiment.AnalyzerParams) workflow.Result
}

// CombineReviews merges a batch of scraped reviews into the single
// text blob an analyzer expects, capped at maxItems.
func CombineReviews(reviews []Review, productID string, maxItems int) string {
	if maxItems > 0 && len(reviews) > maxItems {
		reviews = reviews[:maxItems]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "COMPREHENSIVE PRODUCT ANALYSIS DATASET\nProduct: %s\nTotal Reviews: %d\n\n", productID, len(reviews))
	for i, r := range reviews {
		fmt.Fprintf(&b, "Review %d (rating %d): %s\n", i+1, r.Rating, r.Text)
	}
	return b.String()
}

// Poller runs on a cron schedule, pulling reviews from a Source and
// feeding the combined text through an Analyzer.
type Poller struct {
	source         Source
	analyzer       Analyzer
	productID      string
	maxItemsPerRun int
	params         sentiment.AnalyzerParams

	cron    *cron.Cron
	onResult func(workflow.Result)
}

// NewPoller builds a Poller. onResult is invoked with each run's
// result; pass nil to discard results (the scheduler still runs).
func NewPoller(source Source, analyzer Analyzer, productID string, maxItemsPerRun int, params sentiment.AnalyzerParams, onResult func(workflow.Result)) *Poller {
	return &Poller{
		source:         source,
		analyzer:       analyzer,
		productID:      productID,
		maxItemsPerRun: maxItemsPerRun,
		params:         params,
		cron:           cron.New(),
		onResult:       onResult,
	}
}

// Start schedules the poller on schedule (a standard cron expression)
// and begins running it in the background.
func (p *Poller) Start(schedule string) error {
	_, err := p.cron.AddFunc(schedule, p.runOnce)
	if err != nil {
		return fmt.Errorf("invalid scrape schedule %q: %w", schedule, err)
	}
	p.cron.Start()
	return nil
}

// Stop halts the scheduler, waiting for any in-flight run to finish.
func (p *Poller) Stop() {
	ctx := p.cron.Stop()
	<-ctx.Done()
}

// RunOnce runs a single scrape-and-analyze cycle synchronously; Start
// calls this on the cron schedule, but it is also exported for manual
// triggering.
func (p *Poller) RunOnce(ctx context.Context) workflow.Result {
	reviews, err := p.source.GetReviews(p.productID)
	if err != nil || len(reviews) == 0 {
		return workflow.Result{ProductID: p.productID, ReviewText: fmt.Sprintf("no reviews found for %s", p.productID)}
	}

	combined := CombineReviews(reviews, p.productID, p.maxItemsPerRun)
	return p.analyzer.Analyze(ctx, combined, p.productID, p.params)
}

func (p *Poller) runOnce() {
	result := p.RunOnce(context.Background())
	if p.onResult != nil {
		p.onResult(result)
	}
}
