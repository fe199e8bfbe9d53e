// Package popularity turns provider ratings and the composite popularity score into the
// display model of a restaurant's popularity card.
package popularity

import (
	"github.com/FACorreiaa/hansikdang-api/internal/app/models"
)

type tierBound struct {
	min  float64
	tier models.Tier
}

// Evaluated top-down, first match wins, lower bounds inclusive.
var tierBounds = []tierBound{
	{min: 90, tier: models.TierTopRated},
	{min: 70, tier: models.TierHighlyPopular},
	{min: 50, tier: models.TierPopular},
	{min: 30, tier: models.TierAverage},
}

type tierStyle struct {
	label     localized
	color     string
	textColor string
}

var tierStyles = map[models.Tier]tierStyle{
	models.TierTopRated:      {label: localized{ko: "최고 인기", en: "Top Rated"}, color: "bg-green-500", textColor: "text-green-500"},
	models.TierHighlyPopular: {label: localized{ko: "높은 인기", en: "Highly Popular"}, color: "bg-blue-500", textColor: "text-blue-500"},
	models.TierPopular:       {label: localized{ko: "인기", en: "Popular"}, color: "bg-yellow-500", textColor: "text-yellow-500"},
	models.TierAverage:       {label: localized{ko: "보통", en: "Average"}, color: "bg-gray-500", textColor: "text-muted-foreground"},
	models.TierNewOrLimited:  {label: localized{ko: "신규/정보 부족", en: "New/Limited Data"}, color: "bg-gray-400", textColor: "text-muted-foreground"},
}

// Tiers lists every tier from highest to lowest.
func Tiers() []models.Tier {
	return []models.Tier{
		models.TierTopRated,
		models.TierHighlyPopular,
		models.TierPopular,
		models.TierAverage,
		models.TierNewOrLimited,
	}
}

// ClassifyTier maps a composite score to its tier. Scores are expected in [0, 100] and are not
// clamped: anything at or above 90 is TopRated, anything below 30 (NaN included) is
// NewOrLimited.
func ClassifyTier(score float64) models.Tier {
	for _, b := range tierBounds {
		if score >= b.min {
			return b.tier
		}
	}
	return models.TierNewOrLimited
}

// DescribeTier resolves the label and color tokens of a tier for a locale.
func DescribeTier(tier models.Tier, locale string) models.TierInfo {
	style, ok := tierStyles[tier]
	if !ok {
		style = tierStyles[models.TierNewOrLimited]
		tier = models.TierNewOrLimited
	}
	return models.TierInfo{
		Tier:      tier,
		Label:     style.label.in(ResolveLocale(locale)),
		Color:     style.color,
		TextColor: style.textColor,
	}
}

// TierLabel is a shortcut for DescribeTier(tier, locale).Label.
func TierLabel(tier models.Tier, locale string) string {
	return DescribeTier(tier, locale).Label
}
