package popularity

import (
	"fmt"
	"math"
	"strconv"

	"github.com/FACorreiaa/hansikdang-api/internal/app/models"
)

const (
	ProviderNaver  = "naver"
	ProviderGoogle = "google"
)

// BuildPopularityView assembles the popularity card of a restaurant. Every input is optional;
// when no provider has a rating and there is no composite score the result is nil, which means
// "render nothing" and is not an error. A provider section exists only when its rating exists,
// and its review count is shown independently of the rating. Providers are never merged here:
// composite is taken as computed upstream.
//
// Negative ratings or review counts and composite scores outside [0, 100] are rejected.
func BuildPopularityView(naver, google *models.ProviderRating, composite *float64, locale string) (*models.PopularityView, error) {
	if err := validateProvider(ProviderNaver, naver); err != nil {
		return nil, err
	}
	if err := validateProvider(ProviderGoogle, google); err != nil {
		return nil, err
	}
	if composite != nil && !(*composite >= 0 && *composite <= 100) {
		return nil, fmt.Errorf("%w: composite score %v outside [0, 100]", models.ErrInvalidScore, *composite)
	}

	if !hasRating(naver) && !hasRating(google) && composite == nil {
		return nil, nil
	}

	locale = ResolveLocale(locale)
	view := &models.PopularityView{
		Locale: locale,
		Title:  titleLabel.in(locale),
	}

	if composite != nil {
		view.Overall = &models.OverallSection{
			Label:   overallLabel.in(locale),
			Score:   *composite,
			Display: formatOneDecimal(*composite),
			Tier:    DescribeTier(ClassifyTier(*composite), locale),
		}
	}
	if hasRating(naver) {
		view.Naver = providerSection(ProviderNaver, naverLabel, naver, locale)
	}
	if hasRating(google) {
		view.Google = providerSection(ProviderGoogle, googleLabel, google, locale)
	}

	return view, nil
}

func hasRating(p *models.ProviderRating) bool {
	return p != nil && p.Rating != nil
}

func validateProvider(name string, p *models.ProviderRating) error {
	if p == nil {
		return nil
	}
	if p.Rating != nil && !(*p.Rating >= 0) {
		return fmt.Errorf("%w: %s rating %v is negative", models.ErrInvalidRating, name, *p.Rating)
	}
	if p.ReviewCount != nil && *p.ReviewCount < 0 {
		return fmt.Errorf("%w: %s review count %d is negative", models.ErrInvalidRating, name, *p.ReviewCount)
	}
	return nil
}

func providerSection(provider string, label localized, p *models.ProviderRating, locale string) *models.ProviderSection {
	section := &models.ProviderSection{
		Provider:      provider,
		Label:         label.in(locale),
		Rating:        *p.Rating,
		RatingDisplay: formatOneDecimal(*p.Rating),
	}
	if p.ReviewCount != nil {
		count := *p.ReviewCount
		section.ReviewCount = &count
		section.ReviewCountDisplay = FormatCount(count, locale) + " " + reviewsUnitLabel.in(locale)
	}
	return section
}

func formatOneDecimal(v float64) string {
	return strconv.FormatFloat(math.Round(v*10)/10, 'f', 1, 64)
}
