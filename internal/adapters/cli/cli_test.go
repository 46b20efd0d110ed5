package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/stagerank/internal/config"
	"github.com/okian/stagerank/internal/domain/model"
	"github.com/okian/stagerank/internal/verify"
	"github.com/okian/stagerank/pkg/logger"
)

func init() {
	logger.SetOutput(io.Discard)
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

const kubokPage = `<html><body><h3>Kubok</h3>
<table>
<tr><td>1</td><td>J.&nbsp;Doe USA</td><td>SSA / Minor / Senior</td></tr>
<tr><td>Stage</td><td>HF</td></tr><tr><td>-</td></tr>
<tr><td>13</td><td>4,25</td><td>10</td><td></td><td></td><td></td><td></td><td></td><td></td><td></td><td>12,5</td><td>2019-06-01 12:00</td></tr>
</table>
<table>
<tr><td>2</td><td>R. Roe RUS</td><td>SSA / Minor / Regular</td></tr>
<tr><td>Stage</td><td>HF</td></tr><tr><td>-</td></tr>
<tr><td>13</td><td>8,5</td><td>10</td><td></td><td></td><td></td><td></td><td></td><td></td><td></td><td>12,5</td><td>2019-06-01 12:00</td></tr>
</table>
</body></html>`

func writeResults(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "kubok.html")
	if err := os.WriteFile(path, []byte(kubokPage), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

// execute runs the root command with args and fresh flag values.
func execute(args ...string) (string, error) {
	cfgFile, logLevel = "", ""
	queryURLs, queryFiles = nil, nil
	competitorsClass = ""
	stagesCompetitor, stagesNumber, stagesClass = "", "", ""
	stagesStage = 0
	stagesTable = false
	verifyTarget, verifyListen = verify.DefaultBaseURL, verify.DefaultListenAddr
	verifyCompetitors, verifyStages = verify.DefaultCompetitors, verify.DefaultStages
	verifyClasses, verifyTimeout = verify.DefaultClasses, verify.DefaultTimeout

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()
	return buf.String(), err
}

func TestRootCommand(t *testing.T) {
	Convey("Given the root command", t, func() {
		Convey("Then it carries the persistent flags", func() {
			So(rootCmd.PersistentFlags().Lookup("config"), ShouldNotBeNil)
			flag := rootCmd.PersistentFlags().Lookup("loglevel")
			So(flag, ShouldNotBeNil)
			So(flag.Shorthand, ShouldEqual, "l")
		})

		Convey("Then every subcommand is registered", func() {
			names := map[string]bool{}
			for _, c := range rootCmd.Commands() {
				names[c.Name()] = true
			}
			So(names["serve"], ShouldBeTrue)
			So(names["classes"], ShouldBeTrue)
			So(names["competitors"], ShouldBeTrue)
			So(names["stages"], ShouldBeTrue)
			So(names["verify"], ShouldBeTrue)
		})
	})
}

func TestQueryCommands(t *testing.T) {
	path := writeResults(t)

	Convey("Given a results document on disk", t, func() {
		Convey("When listing classes", func() {
			out, err := execute("classes", "--file", path)

			Convey("Then the classes are printed as JSON", func() {
				So(err, ShouldBeNil)
				var classes []string
				So(json.Unmarshal([]byte(out), &classes), ShouldBeNil)
				So(classes, ShouldResemble, []string{"SSA"})
			})
		})

		Convey("When listing competitors of a class", func() {
			out, err := execute("competitors", "--file", path, "--class", "SSA")

			Convey("Then the normalized names are printed sorted", func() {
				So(err, ShouldBeNil)
				var names []string
				So(json.Unmarshal([]byte(out), &names), ShouldBeNil)
				So(names, ShouldResemble, []string{"J. Doe", "R. Roe"})
			})
		})

		Convey("When ranking one stage of a class", func() {
			out, err := execute("stages", "--file", path, "--class", "SSA", "--stage", "13")

			Convey("Then the results are ranked by hit factor", func() {
				So(err, ShouldBeNil)
				var results []model.StageResult
				So(json.Unmarshal([]byte(out), &results), ShouldBeNil)
				So(results, ShouldHaveLength, 2)
				So(results[0].CompetitorName, ShouldEqual, "R. Roe")
				So(results[0].Rank, ShouldEqual, 1)
				So(results[0].StagePercent, ShouldEqual, 100.0)
				So(results[1].CompetitorName, ShouldEqual, "J. Doe")
				So(results[1].StagePoints, ShouldEqual, 5.0)
				So(results[1].MatchID, ShouldEqual, "Kubok")
			})
		})

		Convey("When printing a competitor's stages as a table", func() {
			out, err := execute("stages", "--file", path, "--competitor", "J. Doe", "--table")

			Convey("Then a header and one row are printed", func() {
				So(err, ShouldBeNil)
				So(out, ShouldContainSubstring, "COMPETITOR")
				So(out, ShouldContainSubstring, "J. Doe")
				So(out, ShouldContainSubstring, "50.00")
			})
		})

		Convey("When the competitor is unknown", func() {
			out, err := execute("stages", "--file", path, "--competitor", "Nobody", "--table")

			Convey("Then nothing is found", func() {
				So(err, ShouldBeNil)
				So(out, ShouldContainSubstring, "No results found.")
			})
		})
	})
}

func TestQueryCommandErrors(t *testing.T) {
	path := writeResults(t)

	Convey("Given the query commands", t, func() {
		Convey("When no source is given", func() {
			_, err := execute("classes")

			Convey("Then nothing is ingested", func() {
				So(errors.Is(err, ErrNothingToIngest), ShouldBeTrue)
			})
		})

		Convey("When two stage selectors are given", func() {
			_, err := execute("stages", "--file", path, "--competitor", "J. Doe", "--class", "SSA")

			Convey("Then the command fails", func() {
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldContainSubstring, "exactly one")
			})
		})

		Convey("When a class is given without a stage", func() {
			_, err := execute("stages", "--file", path, "--class", "SSA")

			Convey("Then the command fails", func() {
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldContainSubstring, "--stage")
			})
		})

		Convey("When the start number is not an integer", func() {
			_, err := execute("stages", "--file", path, "--number", "seven")

			Convey("Then the command fails", func() {
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldContainSubstring, "--number")
			})
		})

		Convey("When the file does not exist", func() {
			_, err := execute("classes", "--file", filepath.Join(t.TempDir(), "missing.html"))

			Convey("Then the read error is returned", func() {
				So(err, ShouldNotBeNil)
			})
		})
	})
}

func TestLoadConfig(t *testing.T) {
	Convey("Given a log level flag", t, func() {
		cfgFile = ""
		defer func() { logLevel = "" }()

		Convey("When it is valid", func() {
			logLevel = "debug"
			cfg, err := loadConfig(context.Background())

			Convey("Then it overrides the config", func() {
				So(err, ShouldBeNil)
				So(cfg.LogLevel, ShouldEqual, "debug")
			})
		})

		Convey("When it is unknown", func() {
			logLevel = "verbose"
			cfg, err := loadConfig(context.Background())

			Convey("Then loading still succeeds", func() {
				So(err, ShouldBeNil)
				So(cfg, ShouldNotBeNil)
			})
		})
	})
}

func TestNewService(t *testing.T) {
	Convey("Given a config", t, func() {
		cfg := config.New()

		Convey("When the source pattern is valid", func() {
			cfg.SourcePattern = `results/.+/\?mode=`
			svc, err := newService(cfg)

			Convey("Then addresses outside it are rejected", func() {
				So(err, ShouldBeNil)
				_, err := svc.IngestURL(context.Background(), "https://example.org/other")
				So(err, ShouldNotBeNil)
			})
		})

		Convey("When the source pattern does not compile", func() {
			cfg.SourcePattern = "results/(("
			_, err := newService(cfg)

			Convey("Then an error is returned", func() {
				So(err, ShouldNotBeNil)
			})
		})
	})
}

func TestServerMux(t *testing.T) {
	path := writeResults(t)

	Convey("Given a service with ingested results behind the mux", t, func() {
		ctx := context.Background()
		svc, err := newService(config.New())
		So(err, ShouldBeNil)
		_, err = svc.IngestFile(ctx, path)
		So(err, ShouldBeNil)

		ts := httptest.NewServer(newMux(ctx, svc))
		defer ts.Close()

		Convey("Then the API answers", func() {
			resp, err := http.Get(ts.URL + "/classes")
			So(err, ShouldBeNil)
			defer resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusOK)

			var classes []string
			So(json.NewDecoder(resp.Body).Decode(&classes), ShouldBeNil)
			So(classes, ShouldResemble, []string{"SSA"})
		})

		Convey("Then the API document is served", func() {
			resp, err := http.Get(ts.URL + "/openapi.yaml")
			So(err, ShouldBeNil)
			defer resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
		})

		Convey("Then health is reported", func() {
			resp, err := http.Get(ts.URL + "/healthz")
			So(err, ShouldBeNil)
			defer resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
		})
	})
}

func TestVerifyCommand(t *testing.T) {
	Convey("Given a serving API", t, func() {
		ctx := context.Background()
		svc, err := newService(config.New())
		So(err, ShouldBeNil)
		ts := httptest.NewServer(newMux(ctx, svc))
		defer ts.Close()

		Convey("When verify runs against it", func() {
			out, err := execute("verify", "--target", ts.URL, "--competitors", "6", "--stages", "2", "--classes", "SSA")

			Convey("Then the stats show a clean run", func() {
				So(err, ShouldBeNil)
				var stats verify.Stats
				So(json.Unmarshal([]byte(out), &stats), ShouldBeNil)
				So(stats.RecordsIngested, ShouldEqual, 12)
				So(stats.PartitionsChecked, ShouldEqual, 2)
				So(stats.Problems, ShouldBeEmpty)
			})
		})

		Convey("When the settings are invalid", func() {
			_, err := execute("verify", "--target", ts.URL, "--stages", "0")

			Convey("Then the command fails", func() {
				So(errors.Is(err, verify.ErrInvalidConfig), ShouldBeTrue)
			})
		})
	})
}

func TestServe(t *testing.T) {
	Convey("Given a running server", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		srv := &http.Server{
			Addr:              "127.0.0.1:0",
			Handler:           http.NewServeMux(),
			ReadHeaderTimeout: readHeaderTimeout,
		}

		done := make(chan error, 1)
		go func() { done <- serve(ctx, srv) }()

		Convey("When the context is cancelled", func() {
			time.Sleep(50 * time.Millisecond)
			cancel()

			Convey("Then it shuts down cleanly", func() {
				select {
				case err := <-done:
					So(err, ShouldBeNil)
				case <-time.After(5 * time.Second):
					So("serve did not return", ShouldBeEmpty)
				}
			})
		})
	})
}

func TestMetricsUpdaters(t *testing.T) {
	Convey("Given the metric updaters", t, func() {
		svc, err := newService(config.New())
		So(err, ShouldBeNil)

		So(func() {
			updateSystemMetrics()
			updateServiceMetrics(context.Background(), svc)
		}, ShouldNotPanic)
	})
}
