// Package model contains domain models passed between layers.
package model

// ResultRecord is one competitor's performance on one stage of one match.
// (MatchID, Stage, CompetitorName) identifies a record.
type ResultRecord struct {
	MatchID               string  `json:"match_id"`
	CompetitorName        string  `json:"competitor_name"`
	CompetitorClass       string  `json:"competitor_class"`
	CompetitorPowerFactor string  `json:"competitor_power_factor"`
	CompetitorCategory    string  `json:"competitor_category"`
	Stage                 int     `json:"stage"`
	HitFactor             float64 `json:"hit_factor"`
	RawPoints             int     `json:"raw_points"` // max points obtainable on the stage
	Time                  float64 `json:"time"`
	LastModified          string  `json:"last_modified"`
}

// Key returns the unique identity of the record.
func (r ResultRecord) Key() RecordKey {
	return RecordKey{MatchID: r.MatchID, Stage: r.Stage, CompetitorName: r.CompetitorName}
}

// PartitionKey returns the scoring partition the record belongs to.
func (r ResultRecord) PartitionKey() PartitionKey {
	return PartitionKey{MatchID: r.MatchID, Stage: r.Stage, Class: r.CompetitorClass}
}

// RecordKey is the uniqueness key of a ResultRecord.
type RecordKey struct {
	MatchID        string
	Stage          int
	CompetitorName string
}

// PartitionKey groups records that are normalized and ranked together.
type PartitionKey struct {
	MatchID string
	Stage   int
	Class   string
}

// Filter selects records on scan. Zero fields match everything.
type Filter struct {
	MatchID        string
	Stage          int
	Class          string
	CompetitorName string
}

// Match reports whether r passes the filter.
func (f Filter) Match(r ResultRecord) bool {
	switch {
	case f.MatchID != "" && f.MatchID != r.MatchID:
		return false
	case f.Stage != 0 && f.Stage != r.Stage:
		return false
	case f.Class != "" && f.Class != r.CompetitorClass:
		return false
	case f.CompetitorName != "" && f.CompetitorName != r.CompetitorName:
		return false
	}
	return true
}

// StageResult is a derived, per-partition score for one record.
type StageResult struct {
	MatchID        string  `json:"match_id"`
	Stage          int     `json:"stage"`
	Class          string  `json:"class"`
	CompetitorName string  `json:"competitor_name"`
	Rank           int     `json:"rank"`
	StagePoints    float64 `json:"stage_points"`
	StagePercent   float64 `json:"stage_percent"`
	Time           float64 `json:"time"`
}
