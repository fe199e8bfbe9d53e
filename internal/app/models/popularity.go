package models

// ProviderRating is the (rating, review count) pair published by one external rating provider.
// Nil fields are absent; zero is a legitimate value for both.
type ProviderRating struct {
	Rating      *float64 `json:"rating,omitempty"`
	ReviewCount *int     `json:"review_count,omitempty"`
}

// Tier is the display bucket derived from a composite popularity score.
type Tier string

const (
	TierTopRated      Tier = "top_rated"
	TierHighlyPopular Tier = "highly_popular"
	TierPopular       Tier = "popular"
	TierAverage       Tier = "average"
	TierNewOrLimited  Tier = "new_or_limited"
)

// TierInfo is a tier resolved for one locale.
type TierInfo struct {
	Tier      Tier   `json:"tier"`
	Label     string `json:"label"`
	Color     string `json:"color"`
	TextColor string `json:"text_color"`
}

// OverallSection renders the composite score.
type OverallSection struct {
	Label   string   `json:"label"`
	Score   float64  `json:"score"`
	Display string   `json:"display"`
	Tier    TierInfo `json:"tier"`
}

// ProviderSection renders one provider's rating. ReviewCount and ReviewCountDisplay are
// absent when the provider did not publish a count.
type ProviderSection struct {
	Provider           string  `json:"provider"`
	Label              string  `json:"label"`
	Rating             float64 `json:"rating"`
	RatingDisplay      string  `json:"rating_display"`
	ReviewCount        *int    `json:"review_count,omitempty"`
	ReviewCountDisplay string  `json:"review_count_display,omitempty"`
}

// PopularityView holds the sections a client renders, always in the order
// Overall, Naver, Google. A nil section is not rendered.
type PopularityView struct {
	Locale  string           `json:"locale"`
	Title   string           `json:"title"`
	Overall *OverallSection  `json:"overall,omitempty"`
	Naver   *ProviderSection `json:"naver,omitempty"`
	Google  *ProviderSection `json:"google,omitempty"`
}
