package models

import "time"

// Bar is one close-price observation. Bars are handed around in ascending
// timestamp order and never mutated.
type Bar struct {
	Timestamp time.Time
	Close     float64
}

type ExtremumKind string

const (
	Peak   ExtremumKind = "peak"
	Valley ExtremumKind = "valley"
)

// Extremum is a swing high or low picked out of a bar series.
type Extremum struct {
	Timestamp   time.Time
	Price       float64
	Kind        ExtremumKind
	Index       int // position of the bar in the scanned series
	WindowStart int // cursor position the detection window started at
	Width       int // detection window width in bars
}

// CandidateZone is a cluster representative with its touch count.
type CandidateZone struct {
	Price   float64
	Touches int
}

// ZoneInterval is a maximal run of consecutive calendar dates that all
// carry the same price.
type ZoneInterval struct {
	Price float64   `json:"price"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// ZoneParams holds the tuning knobs of a build.
type ZoneParams struct {
	Period       int     // trailing window length in days
	MinHeightPct float64 // extremum height threshold, percent of price
	ZoneWidth    float64 // full width of a zone in price units
	MinTouches   int
	Clusters     int // K handed to the clusterer
	MinExtrema   int // windows with fewer extrema are skipped
}
