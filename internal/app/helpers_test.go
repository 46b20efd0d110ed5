package service_test

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/okian/stagerank/pkg/logger"
)

func init() {
	logger.SetOutput(io.Discard)
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

// competitor is one competitor block of a results page.
type competitor struct {
	name, composite string
	stages          [][3]string // stage, hit factor, raw points
}

// resultsPage renders competitors the way the results site lays them out:
// a header row, two filler rows, then one row of twelve cells per stage.
func resultsPage(heading string, comps ...competitor) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<html><body><h3>%s</h3>", heading)
	for _, c := range comps {
		b.WriteString("<table>")
		fmt.Fprintf(&b, "<tr><td>1</td><td>%s</td><td>%s</td></tr>", c.name, c.composite)
		b.WriteString("<tr><td>Stage</td><td>HF</td></tr><tr><td>-</td></tr>")
		for _, s := range c.stages {
			fmt.Fprintf(&b, "<tr><td>%s</td><td>%s</td><td>%s</td>", s[0], s[1], s[2])
			b.WriteString("<td></td><td></td><td></td><td></td><td></td><td></td><td></td>")
			b.WriteString("<td>12,5</td><td>2019-06-01 12:00</td></tr>")
		}
		b.WriteString("</table>")
	}
	b.WriteString("</body></html>")
	return b.String()
}

// ssaStage13 is the two-competitor page used across the tests.
func ssaStage13() string {
	return resultsPage("Kubok",
		competitor{"J.&nbsp;Doe USA", "SSA / Minor / Senior", [][3]string{{"13", "4,25", "10"}}},
		competitor{"R. Roe RUS", "SSA / Minor / Regular", [][3]string{{"13", "8,5", "10"}}},
	)
}

// fakeFetcher serves canned bodies and counts calls per address.
type fakeFetcher struct {
	mu     sync.Mutex
	bodies map[string]string
	errs   map[string]error
	calls  map[string]int
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		bodies: make(map[string]string),
		errs:   make(map[string]error),
		calls:  make(map[string]int),
	}
}

func (f *fakeFetcher) set(address, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bodies[address] = body
	delete(f.errs, address)
}

func (f *fakeFetcher) fail(address string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[address] = err
}

func (f *fakeFetcher) count(address string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[address]
}

func (f *fakeFetcher) Fetch(_ context.Context, address string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[address]++
	if err := f.errs[address]; err != nil {
		return nil, err
	}
	body, ok := f.bodies[address]
	if !ok {
		return nil, fmt.Errorf("no body for %s", address)
	}
	return []byte(body), nil
}
