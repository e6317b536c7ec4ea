// Package scrape implements the optional review-ingestion front end:
// a pluggable Source of review text plus a cron-scheduled poller that
// feeds scraped reviews into a coordinator.
package scrape

// Review is one piece of ingested review text.
type Review struct {
	ID     string `json:"review_id"`
	Text   string `json:"text"`
	Rating int    `json:"rating"`
}

// Source yields reviews for a product. Real deployments would back
// this with an e-commerce API; this module carries only the
// deterministic mock source the original used for demoing the
// pipeline end to end.
type Source interface {
	GetReviews(productID string) ([]Review, error)
}

// MockSource returns a fixed set of reviews regardless of productID,
// useful for exercising the scheduler and coordinator wiring without
// a live data source.
type MockSource struct{}

func (MockSource) GetReviews(string) ([]Review, error) {
	return []Review{
		{ID: "1", Text: "Great product, fast shipping!", Rating: 5},
		{ID: "2", Text: "Not as described, disappointed.", Rating: 2},
		{ID: "3", Text: "Average quality, okay for the price.", Rating: 3},
	}, nil
}
