package models

import "errors"

// Domain specific errors shared by the geo, popularity and restaurants packages.
var (
	ErrNotFound            = errors.New("requested item not found")
	ErrBadRequest          = errors.New("bad request")
	ErrInvalidCoordinate   = errors.New("invalid coordinate")
	ErrInvalidRating       = errors.New("invalid provider rating")
	ErrInvalidScore        = errors.New("invalid popularity score")
	ErrPositionUnavailable = errors.New("position unavailable")
)
