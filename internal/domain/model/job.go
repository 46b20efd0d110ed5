package model

// JobKind tells a worker how to read an ingest job's target.
type JobKind string

// Job kinds.
const (
	JobURL  JobKind = "url"
	JobFile JobKind = "file"
)

// IngestJob asks a worker to ingest one results document.
type IngestJob struct {
	ID     string  `json:"id"`
	Kind   JobKind `json:"kind"`
	Target string  `json:"target"` // address or file path
	Origin string  `json:"origin"` // poll, watch, api
}
