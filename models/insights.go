package models

// ReviewSummary is computed on read for the detail endpoint; nothing is
// pre-aggregated in the store.
type ReviewSummary struct {
	AverageRating      float64     `json:"average_rating"`
	TotalReviews       int         `json:"total_reviews"`
	RatingDistribution map[int]int `json:"rating_distribution"`
}

// AspectInsight is the review sentiment for one product aspect (battery,
// display, ...) found by keyword matching.
type AspectInsight struct {
	Name      string  `json:"name"`
	Mentions  int     `json:"mentions"`
	AvgRating float64 `json:"avg_rating"`
}

// TrendPoint is one month of review volume and mean rating.
type TrendPoint struct {
	Month     string  `json:"month"` // YYYY-MM
	Count     int     `json:"count"`
	AvgRating float64 `json:"avg_rating"`
}

// ReviewInsights bundles the aspect and trend views for one laptop.
type ReviewInsights struct {
	LaptopID int64           `json:"laptop_id"`
	Aspects  []AspectInsight `json:"aspects"`
	Trends   []TrendPoint    `json:"trends"`
}
