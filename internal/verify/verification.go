package verify

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/okian/stagerank/internal/domain/model"
)

// Rounding slack of served values: points carry one decimal, percents two.
const (
	pointsTolerance  = 0.0501
	percentTolerance = 0.00501
	percentScale     = 100
)

// ErrMismatch is returned when the served rankings disagree with the
// generated match.
var ErrMismatch = errors.New("rankings do not match the generated match")

// Partition is one (stage, class) group of a generated match.
type Partition struct {
	Stage int
	Class string
}

// expectedRow is a ranked row computed from generated values.
type expectedRow struct {
	name    string
	points  float64
	percent float64
	time    float64
}

// Partitions lists every (stage, class) group present in the match, by stage
// then class in order of first appearance.
func (m *Match) Partitions() []Partition {
	if len(m.Competitors) == 0 {
		return nil
	}
	var classes []string
	seen := make(map[string]bool)
	for _, c := range m.Competitors {
		if !seen[c.Class] {
			seen[c.Class] = true
			classes = append(classes, c.Class)
		}
	}
	var out []Partition
	for s := range m.Competitors[0].Stages {
		for _, class := range classes {
			out = append(out, Partition{Stage: s + 1, Class: class})
		}
	}
	return out
}

// expected ranks one partition from the generated rows: points scale each
// hit factor against the best one and the best raw points, ties keep page order.
func (m *Match) expected(p Partition) []expectedRow {
	type entry struct {
		name string
		row  StageRow
	}
	var rows []entry
	var maxHF float64
	var maxRaw int
	for _, c := range m.Competitors {
		if c.Class != p.Class {
			continue
		}
		r := c.Stages[p.Stage-1]
		rows = append(rows, entry{name: c.Name, row: r})
		maxHF = math.Max(maxHF, r.HitFactor)
		if r.RawPoints > maxRaw {
			maxRaw = r.RawPoints
		}
	}

	out := make([]expectedRow, len(rows))
	for i, e := range rows {
		var points, percent float64
		if maxHF > 0 {
			points = e.row.HitFactor / maxHF * float64(maxRaw)
		}
		if maxRaw != 0 {
			percent = points / float64(maxRaw) * percentScale
		}
		out[i] = expectedRow{name: e.name, points: points, percent: percent, time: e.row.Time}
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].points > out[b].points })
	return out
}

// CheckPartition compares served results of one partition with the expected
// ranking and returns one message per disagreement.
func (m *Match) CheckPartition(p Partition, got []model.StageResult) []string {
	want := m.expected(p)
	where := fmt.Sprintf("stage %d class %s", p.Stage, p.Class)
	if len(got) != len(want) {
		return []string{fmt.Sprintf("%s: got %d results, want %d", where, len(got), len(want))}
	}

	var problems []string
	for i, r := range got {
		w := want[i]
		switch {
		case r.MatchID != m.ID || r.Stage != p.Stage || r.Class != p.Class:
			problems = append(problems, fmt.Sprintf("%s row %d: belongs to %s/%d/%s", where, i, r.MatchID, r.Stage, r.Class))
		case r.Rank != i+1:
			problems = append(problems, fmt.Sprintf("%s row %d: rank %d, want %d", where, i, r.Rank, i+1))
		case r.CompetitorName != w.name:
			problems = append(problems, fmt.Sprintf("%s rank %d: %q, want %q", where, i+1, r.CompetitorName, w.name))
		case math.Abs(r.StagePoints-w.points) > pointsTolerance:
			problems = append(problems, fmt.Sprintf("%s rank %d: points %v, want %.4f", where, i+1, r.StagePoints, w.points))
		case math.Abs(r.StagePercent-w.percent) > percentTolerance:
			problems = append(problems, fmt.Sprintf("%s rank %d: percent %v, want %.4f", where, i+1, r.StagePercent, w.percent))
		case r.Time != w.time:
			problems = append(problems, fmt.Sprintf("%s rank %d: time %v, want %v", where, i+1, r.Time, w.time))
		}
	}
	if len(got) > 0 && got[0].StagePercent != percentScale {
		problems = append(problems, fmt.Sprintf("%s: winner has %v percent", where, got[0].StagePercent))
	}
	return problems
}

// CheckCompetitor compares the served stages of one competitor with the
// generated stage list.
func (m *Match) CheckCompetitor(c Competitor, got []model.StageResult) []string {
	var problems []string
	if len(got) != len(c.Stages) {
		return []string{fmt.Sprintf("competitor %q: got %d stages, want %d", c.Name, len(got), len(c.Stages))}
	}
	for i, r := range got {
		if r.Stage != i+1 || r.CompetitorName != c.Name || r.Class != c.Class {
			problems = append(problems, fmt.Sprintf("competitor %q row %d: got %s stage %d class %s",
				c.Name, i, r.CompetitorName, r.Stage, r.Class))
		}
	}
	return problems
}

func mismatch(problems []string) error {
	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %d problems, first: %s", ErrMismatch, len(problems), problems[0])
}
