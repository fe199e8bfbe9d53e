package popularity

import (
	"math"

	"github.com/FACorreiaa/hansikdang-api/internal/app/models"
)

const (
	// MaxProviderRating is the top of every provider's rating scale.
	MaxProviderRating = 5.0
	// ReviewThreshold is the review count at which a provider's review points saturate.
	ReviewThreshold = 100
	// providerWeight is the share of the 100 points each provider contributes per dimension.
	providerWeight = 25.0
)

// CalculateScore computes the composite popularity score in [0, 100] from the providers'
// ratings and review counts. Each provider contributes up to 25 rating points
// (rating / 5 * 25) and up to 25 review points (min(count / 100, 1) * 25). Absent or
// non-positive values contribute nothing. The result has one decimal.
func CalculateScore(naver, google *models.ProviderRating) float64 {
	var ratingPoints, reviewPoints float64
	for _, p := range []*models.ProviderRating{naver, google} {
		if p == nil {
			continue
		}
		if p.Rating != nil && *p.Rating > 0 {
			ratingPoints += math.Min(*p.Rating, MaxProviderRating) / MaxProviderRating * providerWeight
		}
		if p.ReviewCount != nil && *p.ReviewCount > 0 {
			reviewPoints += math.Min(float64(*p.ReviewCount)/ReviewThreshold, 1) * providerWeight
		}
	}
	return math.Round((ratingPoints+reviewPoints)*10) / 10
}

// ScoreRestaurant returns the composite score and tier of a stored restaurant.
func ScoreRestaurant(r models.Restaurant) (float64, models.Tier) {
	score := CalculateScore(r.NaverRatings(), r.GoogleRatings())
	return score, ClassifyTier(score)
}
