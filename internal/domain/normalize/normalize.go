// Package normalize turns extracted result tables into canonical result records.
//
// Each source table holds one competitor: row 0 is the competitor header, rows 1
// and 2 are intermediate header/summary rows, and every row after them is a stage.
package normalize

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/okian/stagerank/internal/domain/model"
)

// Table layout.
const (
	minTableRows   = 2
	firstStageRow  = 3
	headerCells    = 3
	stageRowCells  = 12
	compositeParts = 3

	colName      = 1
	colComposite = 2

	colStage        = 0
	colHitFactor    = 1
	colRawPoints    = 2
	colTime         = 10
	colLastModified = 11
)

const compositeSeparator = " / "

var countryCodeSuffix = regexp.MustCompile(` +[a-zA-Z]{3}$`)

// Normalize converts the tables of one source document into result records
// tagged with matchID. Either every record is returned or none is.
func Normalize(matchID string, tables [][][]string) ([]model.ResultRecord, error) {
	if len(tables) == 0 {
		return nil, malformed(0, -1, "no tables")
	}

	var out []model.ResultRecord
	for ti, table := range tables {
		if len(table) < minTableRows {
			continue
		}

		header := table[0]
		if len(header) < headerCells {
			return nil, malformed(ti, 0, "competitor header has %d cells, want %d", len(header), headerCells)
		}
		name := NormalizeName(header[colName])
		if name == "" {
			return nil, malformed(ti, 0, "empty competitor name")
		}
		parts := strings.Split(header[colComposite], compositeSeparator)
		if len(parts) != compositeParts {
			return nil, malformed(ti, 0, "class/power factor/category %q has %d parts, want %d",
				header[colComposite], len(parts), compositeParts)
		}

		for ri := firstStageRow; ri < len(table); ri++ {
			rec, err := stageRecord(table[ri], ti, ri)
			if err != nil {
				return nil, err
			}
			rec.MatchID = matchID
			rec.CompetitorName = name
			rec.CompetitorClass = strings.TrimSpace(parts[0])
			rec.CompetitorPowerFactor = strings.TrimSpace(parts[1])
			rec.CompetitorCategory = strings.TrimSpace(parts[2])
			out = append(out, rec)
		}
	}
	return out, nil
}

// NormalizeName replaces non-breaking spaces and strips a trailing
// three-letter country code: "J.\u00a0Doe USA" becomes "J. Doe".
func NormalizeName(raw string) string {
	name := strings.ReplaceAll(raw, "\u00a0", " ")
	name = countryCodeSuffix.ReplaceAllString(name, "")
	return strings.TrimSpace(name)
}

func stageRecord(row []string, ti, ri int) (model.ResultRecord, error) {
	if len(row) < stageRowCells {
		return model.ResultRecord{}, malformed(ti, ri, "stage row has %d cells, want %d", len(row), stageRowCells)
	}

	stage, err := parseInt(row[colStage])
	if err != nil {
		return model.ResultRecord{}, malformed(ti, ri, "stage %q: %v", row[colStage], err)
	}
	if stage < 1 {
		return model.ResultRecord{}, malformed(ti, ri, "stage %d must be >= 1", stage)
	}
	hf, err := parseFloat(row[colHitFactor])
	if err != nil {
		return model.ResultRecord{}, malformed(ti, ri, "hit factor %q: %v", row[colHitFactor], err)
	}
	if hf < 0 || !finite(hf) {
		return model.ResultRecord{}, malformed(ti, ri, "hit factor %v must be finite and >= 0", hf)
	}
	raw, err := parseInt(row[colRawPoints])
	if err != nil {
		return model.ResultRecord{}, malformed(ti, ri, "raw points %q: %v", row[colRawPoints], err)
	}
	tm, err := parseFloat(row[colTime])
	if err != nil {
		return model.ResultRecord{}, malformed(ti, ri, "time %q: %v", row[colTime], err)
	}
	if tm < 0 || !finite(tm) {
		return model.ResultRecord{}, malformed(ti, ri, "time %v must be finite and >= 0", tm)
	}

	return model.ResultRecord{
		Stage:        stage,
		HitFactor:    hf,
		RawPoints:    raw,
		Time:         tm,
		LastModified: strings.TrimSpace(row[colLastModified]),
	}, nil
}

// cleanNumber strips formatting artifacts. An empty cell reads as zero.
func cleanNumber(s string) string {
	s = strings.ReplaceAll(s, "\u00a0", "")
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, ",", ".")
	if s == "" {
		return "0"
	}
	return s
}

func parseFloat(s string) (float64, error) {
	return strconv.ParseFloat(cleanNumber(s), 64)
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// parseInt accepts integral values written with a fractional part ("10.00").
func parseInt(s string) (int, error) {
	s = cleanNumber(s)
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if !finite(f) || f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return 0, strconv.ErrSyntax
	}
	return int(f), nil
}
