package models

import (
	"time"

	"github.com/google/uuid"
)

// Restaurant is a stored restaurant record. Provider ratings, coordinates and the composite
// popularity score are optional: partial coverage is the normal state.
type Restaurant struct {
	ID                uuid.UUID `json:"id" db:"id"`
	Name              string    `json:"name" db:"name"`
	NameEn            string    `json:"name_en" db:"name_en"`
	Category          string    `json:"category" db:"category"`
	Cuisine           string    `json:"cuisine" db:"cuisine"`
	District          string    `json:"district" db:"district"`
	Address           string    `json:"address" db:"address"`
	Latitude          *float64  `json:"latitude,omitempty" db:"latitude"`
	Longitude         *float64  `json:"longitude,omitempty" db:"longitude"`
	NaverPlaceID      *string   `json:"naver_place_id,omitempty" db:"naver_place_id"`
	NaverRating       *float64  `json:"naver_rating,omitempty" db:"naver_rating"`
	NaverReviewCount  *int      `json:"naver_review_count,omitempty" db:"naver_review_count"`
	GooglePlaceID     *string   `json:"google_place_id,omitempty" db:"google_place_id"`
	GoogleRating      *float64  `json:"google_rating,omitempty" db:"google_rating"`
	GoogleReviewCount *int      `json:"google_review_count,omitempty" db:"google_review_count"`
	PopularityScore   *float64  `json:"popularity_score,omitempty" db:"popularity_score"`
	UpdatedAt         time.Time `json:"updated_at" db:"updated_at"`
}

// Coordinate returns the restaurant location, or false when it has none.
func (r Restaurant) Coordinate() (Coordinate, bool) {
	if r.Latitude == nil || r.Longitude == nil {
		return Coordinate{}, false
	}
	return Coordinate{Latitude: *r.Latitude, Longitude: *r.Longitude}, true
}

// NaverRatings returns the Naver pair, or nil when Naver supplied nothing.
func (r Restaurant) NaverRatings() *ProviderRating {
	return providerRating(r.NaverRating, r.NaverReviewCount)
}

// GoogleRatings returns the Google pair, or nil when Google supplied nothing.
func (r Restaurant) GoogleRatings() *ProviderRating {
	return providerRating(r.GoogleRating, r.GoogleReviewCount)
}

func providerRating(rating *float64, count *int) *ProviderRating {
	if rating == nil && count == nil {
		return nil
	}
	return &ProviderRating{Rating: rating, ReviewCount: count}
}

// ListParams filters and orders a restaurant listing.
type ListParams struct {
	District string
	Category string
	SortBy   string // popularity, rating, reviews or name
	Limit    int
	Offset   int
}

// RatingsUpdate carries the provider data written back by the rating sync and rescoring jobs.
// Nil fields keep their stored value.
type RatingsUpdate struct {
	NaverPlaceID      *string  `json:"naver_place_id,omitempty"`
	NaverRating       *float64 `json:"naver_rating,omitempty"`
	NaverReviewCount  *int     `json:"naver_review_count,omitempty"`
	GooglePlaceID     *string  `json:"google_place_id,omitempty"`
	GoogleRating      *float64 `json:"google_rating,omitempty"`
	GoogleReviewCount *int     `json:"google_review_count,omitempty"`
	PopularityScore   *float64 `json:"-"`
}

// NearbyRestaurant is a restaurant annotated with its distance from a search origin.
// DistanceKm and DistanceLabel are absent when the origin is unknown.
type NearbyRestaurant struct {
	Restaurant    Restaurant `json:"restaurant"`
	DistanceKm    *float64   `json:"distance_km,omitempty"`
	DistanceLabel string     `json:"distance_label,omitempty"`
}

// TierCount is one row of the tier distribution in a rescoring report.
type TierCount struct {
	Tier  Tier `json:"tier"`
	Count int  `json:"count"`
}

// ScoreChange records one restaurant's composite score before and after rescoring.
type ScoreChange struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	OldScore float64   `json:"old_score"`
	NewScore float64   `json:"new_score"`
}

// RecalculationReport summarizes a popularity rescoring run.
type RecalculationReport struct {
	Total        int           `json:"total"`
	Updated      int           `json:"updated"`
	Failed       int           `json:"failed"`
	Average      float64       `json:"average"`
	Max          float64       `json:"max"`
	Min          float64       `json:"min"`
	Distribution []TierCount   `json:"distribution"`
	Top          []ScoreChange `json:"top"`
	Duration     time.Duration `json:"duration"`
}
