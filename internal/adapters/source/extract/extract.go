// Package extract turns a results HTML document into raw table data.
package extract

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ErrNoMatchID is returned when no match id can be derived for a document.
var ErrNoMatchID = errors.New("match id not found")

var addressMatchID = regexp.MustCompile(`results/([^/?#]+)/?\?mode`)

// tablesOf returns every table under root as rows of cell text.
//
// Tables come in document order, nested tables included. Rows hold only the
// table's own cells; rows made entirely of header cells are dropped.
func tablesOf(root *goquery.Selection) [][][]string {
	tables := make([][][]string, 0)
	root.Find("table").Each(func(_ int, tbl *goquery.Selection) {
		rows := make([][]string, 0)
		tbl.Find("tr").Each(func(_ int, tr *goquery.Selection) {
			if !tr.Closest("table").IsSelection(tbl) {
				return
			}
			cells := tr.ChildrenFiltered("td, th")
			if cells.Length() == 0 || cells.Length() == cells.Filter("th").Length() {
				return
			}
			row := make([]string, 0, cells.Length())
			cells.Each(func(_ int, c *goquery.Selection) {
				row = append(row, strings.TrimSpace(c.Text()))
			})
			rows = append(rows, row)
		})
		tables = append(tables, rows)
	})
	return tables
}

// Document is a parsed results page.
type Document struct {
	Heading string
	Tables  [][][]string
}

// Parse reads an HTML document and returns its first h3 heading and tables.
func Parse(r io.Reader) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	return &Document{
		Heading: strings.TrimSpace(doc.Find("h3").First().Text()),
		Tables:  tablesOf(doc.Selection),
	}, nil
}

// MatchIDFromAddress returns the match id embedded in a results address,
// e.g. "kubok" for ".../results/kubok/?mode=verify".
func MatchIDFromAddress(address string) (string, error) {
	m := addressMatchID.FindStringSubmatch(address)
	if m == nil {
		return "", fmt.Errorf("%w in address %q", ErrNoMatchID, address)
	}
	id, err := url.PathUnescape(m[1])
	if err != nil {
		return m[1], nil
	}
	return id, nil
}

// MatchIDFromFile derives a match id from a local file name without extension.
func MatchIDFromFile(path string) (string, error) {
	base := filepath.Base(path)
	id := strings.TrimSuffix(base, filepath.Ext(base))
	if id == "" || id == "." || id == string(filepath.Separator) {
		return "", fmt.Errorf("%w in file name %q", ErrNoMatchID, path)
	}
	return id, nil
}

// MatchID picks the match id of a document: the address first, then the
// document heading, then the file name.
func MatchID(address, path string, doc *Document) (string, error) {
	if address != "" {
		if id, err := MatchIDFromAddress(address); err == nil {
			return id, nil
		}
	}
	if doc != nil && doc.Heading != "" {
		return doc.Heading, nil
	}
	if path != "" {
		return MatchIDFromFile(path)
	}
	return "", ErrNoMatchID
}
