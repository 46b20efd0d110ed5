package verify

import (
	"context"
	"crypto/rand"
	"fmt"
	"html"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/okian/stagerank/pkg/logger"
)

// Value ranges of generated stage rows.
const (
	randomFloatDivisor = 1000000

	hitFactorMin   = 0.5
	hitFactorRange = 11.5
	timeMin        = 5.0
	timeRange      = 55.0
	stagePointsMin = 40
	stagePointsMax = 150
	pointsStep     = 5

	countryCode = "RUS"
)

var (
	powerFactors = []string{"Minor", "Major"}
	categories   = []string{"Regular", "Senior", "Lady", "Junior"}
)

// Match is a generated results page.
type Match struct {
	ID          string
	Competitors []Competitor
}

// Competitor is one generated shooter with a row per stage.
type Competitor struct {
	Number      int
	Name        string
	Class       string
	PowerFactor string
	Category    string
	Stages      []StageRow
}

// StageRow holds values exactly as they read back from the page.
type StageRow struct {
	Stage     int
	HitFactor float64
	RawPoints int
	Time      float64
	Modified  string
}

// randomFloat returns a float in [0, 1) from crypto/rand.
func randomFloat() float64 {
	n, _ := rand.Int(rand.Reader, big.NewInt(randomFloatDivisor))
	return float64(n.Int64()) / float64(randomFloatDivisor)
}

// randomInt returns an int in [0, n).
func randomInt(n int) int {
	v, _ := rand.Int(rand.Reader, big.NewInt(int64(n)))
	return int(v.Int64())
}

func pick(values []string) string { return values[randomInt(len(values))] }

// roundTo rounds to places decimals so a value survives the page round trip.
func roundTo(x float64, places int) float64 {
	v, _ := strconv.ParseFloat(strconv.FormatFloat(x, 'f', places, 64), 64)
	return v
}

// GenerateMatch builds a match with unique competitor names. Every stage has
// a maximum worth of points; each competitor's raw points fall at or below it.
func GenerateMatch(ctx context.Context, cfg *Config) *Match {
	id := "verify-" + uuid.NewString()[:8]
	logger.Get().Info(ctx, "generating synthetic match",
		logger.String("match", id),
		logger.Int("competitors", cfg.Competitors),
		logger.Int("stages", cfg.Stages))

	stageMax := make([]int, cfg.Stages)
	for s := range stageMax {
		steps := (stagePointsMax - stagePointsMin) / pointsStep
		stageMax[s] = stagePointsMin + randomInt(steps+1)*pointsStep
	}

	modified := time.Now().UTC().Format("2006-01-02 15:04")
	m := &Match{ID: id, Competitors: make([]Competitor, cfg.Competitors)}
	for i := range m.Competitors {
		c := Competitor{
			Number:      i + 1,
			Name:        "Shooter " + uuid.NewString()[:8],
			Class:       pick(cfg.Classes),
			PowerFactor: pick(powerFactors),
			Category:    pick(categories),
			Stages:      make([]StageRow, cfg.Stages),
		}
		for s := range c.Stages {
			c.Stages[s] = StageRow{
				Stage:     s + 1,
				HitFactor: roundTo(hitFactorMin+randomFloat()*hitFactorRange, 4),
				RawPoints: stageMax[s]/2 + randomInt(stageMax[s]/2+1),
				Time:      roundTo(timeMin+randomFloat()*timeRange, 2),
				Modified:  modified,
			}
		}
		m.Competitors[i] = c
	}
	return m
}

// decimalComma formats like the results site: a comma as decimal separator.
func decimalComma(x float64, places int) string {
	return strings.Replace(strconv.FormatFloat(x, 'f', places, 64), ".", ",", 1)
}

// HTML renders the match as a results page: an h3 heading, then one table per
// competitor holding its header row, two column-title rows and a row per stage.
func (m *Match) HTML() []byte {
	var b strings.Builder
	b.WriteString("<html><body>\n<h3>")
	b.WriteString(html.EscapeString(m.ID))
	b.WriteString("</h3>\n")

	for _, c := range m.Competitors {
		b.WriteString("<table>\n")
		fmt.Fprintf(&b, "<tr><td>%d</td><td>%s&nbsp;%s</td><td>%s / %s / %s</td></tr>\n",
			c.Number, html.EscapeString(c.Name), countryCode,
			html.EscapeString(c.Class), c.PowerFactor, c.Category)
		b.WriteString("<tr><td>Stage</td><td>HF</td><td>Points</td></tr>\n")
		b.WriteString("<tr><td>-</td><td>-</td><td>-</td></tr>\n")
		for _, s := range c.Stages {
			fmt.Fprintf(&b, "<tr><td>%d</td><td>%s</td><td>%d</td>%s<td>%s</td><td>%s</td></tr>\n",
				s.Stage, decimalComma(s.HitFactor, 4), s.RawPoints,
				strings.Repeat("<td></td>", 7),
				decimalComma(s.Time, 2), s.Modified)
		}
		b.WriteString("</table>\n")
	}
	b.WriteString("</body></html>\n")
	return []byte(b.String())
}

// Address returns the results address of the match under base.
func (m *Match) Address(base string) string {
	return strings.TrimRight(base, "/") + "/results/" + m.ID + "/?mode=verify"
}
