// Package scoring computes ranked, normalized stage results from stored records.
//
// Scores are scoped to a partition: the records sharing match, stage and
// competitor class. Within a partition the best hit factor earns the stage's
// maximum raw points and everyone else is scaled against it.
package scoring

import (
	"context"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/okian/stagerank/internal/domain/model"
	"github.com/okian/stagerank/pkg/metrics"
)

// Default rounding.
const (
	defaultPointsPlaces  = 1
	defaultPercentPlaces = 2
	percentScale         = 100
)

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithRounding sets the decimal places used for stage points and percentages.
func WithRounding(pointsPlaces, percentPlaces int) Option {
	return func(e *Engine) {
		if pointsPlaces >= 0 {
			e.pointsPlaces = pointsPlaces
		}
		if percentPlaces >= 0 {
			e.percentPlaces = percentPlaces
		}
	}
}

// Source is the read side of a result store.
type Source interface {
	// Scan returns the records matching f in source order.
	Scan(ctx context.Context, f model.Filter) []model.ResultRecord
}

// Engine answers stage result queries. Results are recomputed on every call.
type Engine struct {
	source        Source
	pointsPlaces  int
	percentPlaces int
}

// NewEngine creates an engine reading from source.
func NewEngine(source Source, opts ...Option) *Engine {
	e := &Engine{
		source:        source,
		pointsPlaces:  defaultPointsPlaces,
		percentPlaces: defaultPercentPlaces,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// StagesByCompetitor returns every stage result of the named competitor,
// each ranked within its own partition, ordered by match and stage.
func (e *Engine) StagesByCompetitor(ctx context.Context, name string) []model.StageResult {
	defer observe("stages_by_competitor", time.Now())
	return e.stagesFor(ctx, func(n string) bool { return n == name })
}

// StagesByCompetitorNumber is StagesByCompetitor for sources that prefix names
// with a start number, as in "#12 J. Doe".
func (e *Engine) StagesByCompetitorNumber(ctx context.Context, number string) []model.StageResult {
	defer observe("stages_by_competitor_number", time.Now())
	prefix := "#" + strings.TrimPrefix(strings.TrimSpace(number), "#") + " "
	return e.stagesFor(ctx, func(n string) bool { return strings.HasPrefix(n, prefix) })
}

// StagesByClass returns the results of one class on one stage ordered by rank.
// With several matches loaded, ranks of equal value are ordered by match.
// The class is matched exactly, so an empty class selects only records whose
// class is empty. A stage below 1 selects nothing.
func (e *Engine) StagesByClass(ctx context.Context, class string, stage int) []model.StageResult {
	defer observe("stages_by_class", time.Now())

	if stage < 1 {
		return []model.StageResult{}
	}
	scanned := e.source.Scan(ctx, model.Filter{Class: class, Stage: stage})
	rows := scanned[:0:0]
	for _, r := range scanned {
		if r.CompetitorClass == class && r.Stage == stage {
			rows = append(rows, r)
		}
	}
	keys, parts := partition(rows)

	out := make([]model.StageResult, 0, len(rows))
	for _, k := range keys {
		out = append(out, e.Score(parts[k])...)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Rank != out[j].Rank {
			return out[i].Rank < out[j].Rank
		}
		return out[i].MatchID < out[j].MatchID
	})
	return out
}

// stagesFor scores every partition holding a competitor accepted by match and
// keeps that competitor's rows. All partitions come from a single scan.
func (e *Engine) stagesFor(ctx context.Context, match func(name string) bool) []model.StageResult {
	rows := e.source.Scan(ctx, model.Filter{})

	wanted := make(map[model.PartitionKey]bool)
	for _, r := range rows {
		if match(r.CompetitorName) {
			wanted[r.PartitionKey()] = true
		}
	}

	out := make([]model.StageResult, 0, len(wanted))
	if len(wanted) == 0 {
		return out
	}

	keys, parts := partition(rows)
	for _, k := range keys {
		if !wanted[k] {
			continue
		}
		for _, res := range e.Score(parts[k]) {
			if match(res.CompetitorName) {
				out = append(out, res)
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].MatchID != out[j].MatchID {
			return out[i].MatchID < out[j].MatchID
		}
		return out[i].Stage < out[j].Stage
	})
	return out
}

// Score ranks the rows of one partition, given in source order, and returns
// them in rank order.
//
// Ranks are sequential row numbers: tied stage points keep source order and
// still get distinct ranks. A partition where nobody scored gets zero points,
// and a stage worth zero raw points gets zero percent.
func (e *Engine) Score(rows []model.ResultRecord) []model.StageResult {
	if len(rows) == 0 {
		return []model.StageResult{}
	}

	var maxHF float64
	var maxRaw int
	for _, r := range rows {
		maxHF = math.Max(maxHF, r.HitFactor)
		if r.RawPoints > maxRaw {
			maxRaw = r.RawPoints
		}
	}

	points := make([]float64, len(rows))
	order := make([]int, len(rows))
	for i, r := range rows {
		order[i] = i
		if maxHF > 0 {
			points[i] = r.HitFactor / maxHF * float64(maxRaw)
		}
	}
	sort.SliceStable(order, func(a, b int) bool {
		return points[order[a]] > points[order[b]]
	})

	out := make([]model.StageResult, len(rows))
	for rank, i := range order {
		r := rows[i]
		var percent float64
		if maxRaw != 0 {
			percent = points[i] / float64(maxRaw) * percentScale
		}
		out[rank] = model.StageResult{
			MatchID:        r.MatchID,
			Stage:          r.Stage,
			Class:          r.CompetitorClass,
			CompetitorName: r.CompetitorName,
			Rank:           rank + 1,
			StagePoints:    Round(points[i], e.pointsPlaces),
			StagePercent:   Round(percent, e.percentPlaces),
			Time:           r.Time,
		}
	}
	return out
}

// Round rounds x to places decimals, halves away from zero.
func Round(x float64, places int) float64 {
	p := math.Pow10(places)
	return math.Round(x*p) / p
}

// partition groups rows by partition key, preserving source order within each
// group. Keys are returned in order of first appearance.
func partition(rows []model.ResultRecord) ([]model.PartitionKey, map[model.PartitionKey][]model.ResultRecord) {
	parts := make(map[model.PartitionKey][]model.ResultRecord)
	var keys []model.PartitionKey
	for _, r := range rows {
		k := r.PartitionKey()
		if _, ok := parts[k]; !ok {
			keys = append(keys, k)
		}
		parts[k] = append(parts[k], r)
	}
	return keys, parts
}

func observe(query string, start time.Time) {
	metrics.RecordQueryLatency(query, float64(time.Since(start).Milliseconds()))
}
