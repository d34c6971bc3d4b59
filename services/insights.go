package services

import (
	"fmt"
	"sort"
	"strings"

	"laptop-intelligence/models"
	"laptop-intelligence/utils"
)

// aspectLexicon maps product aspects to the review keywords that signal them.
var aspectLexicon = map[string][]string{
	"battery":     {"battery", "charge", "hours"},
	"display":     {"display", "screen", "brightness", "color"},
	"keyboard":    {"keyboard", "keys", "typing"},
	"performance": {"performance", "speed", "lag", "snappy"},
	"build":       {"build", "chassis", "quality", "hinge"},
	"speakers":    {"speaker", "audio", "sound"},
	"thermals":    {"fan", "thermal", "hot", "warm", "cool"},
	"price":       {"price", "value", "expensive", "cheap"},
	"portability": {"weight", "light", "portable"},
}

const maxAspects = 6

// InsightService computes read-time review aggregates and prints the
// ingestion run summary.
type InsightService struct {
	logger *utils.Logger
}

func NewInsightService(logger *utils.Logger) *InsightService {
	return &InsightService{logger: logger}
}

// Summarize computes the review summary: count, mean rating (two decimals)
// and an integer rating histogram.
func (s *InsightService) Summarize(reviews []*models.Review) models.ReviewSummary {
	summary := models.ReviewSummary{
		TotalReviews:       len(reviews),
		RatingDistribution: make(map[int]int),
	}
	if len(reviews) == 0 {
		return summary
	}

	var total float64
	for _, r := range reviews {
		total += r.Rating
		summary.RatingDistribution[int(r.Rating)]++
	}
	summary.AverageRating = round2(total / float64(len(reviews)))
	return summary
}

// Insights computes aspect buckets and monthly trends for one laptop's
// reviews.
func (s *InsightService) Insights(laptopID int64, reviews []*models.Review) models.ReviewInsights {
	return models.ReviewInsights{
		LaptopID: laptopID,
		Aspects:  s.aspects(reviews),
		Trends:   s.trends(reviews),
	}
}

func (s *InsightService) aspects(reviews []*models.Review) []models.AspectInsight {
	buckets := make(map[string][]float64)
	for _, r := range reviews {
		text := strings.ToLower(r.Text)
		for aspect, keywords := range aspectLexicon {
			for _, kw := range keywords {
				if strings.Contains(text, kw) {
					buckets[aspect] = append(buckets[aspect], r.Rating)
					break
				}
			}
		}
	}

	aspects := make([]models.AspectInsight, 0, len(buckets))
	for aspect, ratings := range buckets {
		var total float64
		for _, v := range ratings {
			total += v
		}
		aspects = append(aspects, models.AspectInsight{
			Name:      aspect,
			Mentions:  len(ratings),
			AvgRating: round2(total / float64(len(ratings))),
		})
	}

	sort.Slice(aspects, func(i, j int) bool {
		if aspects[i].Mentions != aspects[j].Mentions {
			return aspects[i].Mentions > aspects[j].Mentions
		}
		return aspects[i].Name < aspects[j].Name
	})
	if len(aspects) > maxAspects {
		aspects = aspects[:maxAspects]
	}
	return aspects
}

func (s *InsightService) trends(reviews []*models.Review) []models.TrendPoint {
	byMonth := make(map[string][]float64)
	for _, r := range reviews {
		if r.ObservedAt.IsZero() {
			continue
		}
		month := r.ObservedAt.Format("2006-01")
		byMonth[month] = append(byMonth[month], r.Rating)
	}

	months := make([]string, 0, len(byMonth))
	for m := range byMonth {
		months = append(months, m)
	}
	sort.Strings(months)

	trends := make([]models.TrendPoint, 0, len(months))
	for _, month := range months {
		ratings := byMonth[month]
		var total float64
		for _, v := range ratings {
			total += v
		}
		trends = append(trends, models.TrendPoint{
			Month:     month,
			Count:     len(ratings),
			AvgRating: round2(total / float64(len(ratings))),
		})
	}
	return trends
}

// PrintRunSummary prints the ingestion run report in a banner block.
func (s *InsightService) PrintRunSummary(r *models.IngestReport) {
	sep := strings.Repeat("═", 54)
	thin := strings.Repeat("─", 54)

	fmt.Printf("\n\033[1;35m%s\033[0m\n", sep)
	fmt.Printf("\033[1;35m  INGESTION RUN SUMMARY\033[0m\n")
	fmt.Printf("\033[1;35m%s\033[0m\n\n", sep)

	fmt.Printf("  %s\n", thin)
	fmt.Printf("  Laptops upserted   : \033[1m%d\033[0m\n", r.LaptopsUpserted)
	fmt.Printf("  Offers appended    : \033[1m%d\033[0m\n", r.OffersInserted)
	fmt.Printf("  Reviews appended   : \033[1m%d\033[0m\n", r.ReviewsInserted)
	fmt.Printf("  Q&A appended       : \033[1m%d\033[0m\n", r.QnAInserted)
	fmt.Printf("  Categories skipped : %d\n", r.SkippedCategories)
	if r.FailedCategories > 0 {
		fmt.Printf("  \033[1;31mCategories failed  : %d\033[0m\n", r.FailedCategories)
	}

	if len(r.IdentityConflicts) > 0 {
		fmt.Printf("\n\033[1;31m  Identity conflicts (live data without a laptop)\033[0m\n")
		fmt.Printf("  %s\n", thin)
		for _, key := range r.IdentityConflicts {
			fmt.Printf("  - %s\n", key)
		}
	}

	fmt.Printf("\n\033[1;35m%s\033[0m\n\n", sep)
}

func round2(f float64) float64 {
	return float64(int(f*100+0.5)) / 100
}
