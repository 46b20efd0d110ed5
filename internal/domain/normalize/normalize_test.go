package normalize_test

import (
	"errors"
	"testing"

	"github.com/okian/stagerank/internal/domain/normalize"
	. "github.com/smartystreets/goconvey/convey"
)

func stageRow(stage, hf, raw, tm, modified string) []string {
	return []string{stage, hf, raw, "", "", "", "", "", "", "", tm, modified}
}

func competitorTable(name, composite string, stages ...[]string) [][]string {
	table := [][]string{
		{"1", name, composite},
		{"Stage", "HF", "Points"},
		{"Total", "", ""},
	}
	return append(table, stages...)
}

func TestNormalize(t *testing.T) {
	Convey("Given extracted tables for two competitors", t, func() {
		tables := [][][]string{
			competitorTable("J.\u00a0Doe USA", "SSA / Minor / Senior",
				stageRow("1", "8.5000", "10", "12.34", "2024-05-01 10:00"),
				stageRow("2", "4,25", "20", "20.00", "2024-05-01 10:05"),
			),
			competitorTable("#7 Anna Smith", "SSA / Major / Lady",
				stageRow("1", "6.1", "10", "9.10", "2024-05-01 11:00"),
			),
		}

		Convey("When normalizing", func() {
			records, err := normalize.Normalize("kubok-2024", tables)

			Convey("Then one record per stage row is emitted", func() {
				So(err, ShouldBeNil)
				So(records, ShouldHaveLength, 3)
			})

			Convey("And the competitor header is split into its fields", func() {
				r := records[0]
				So(r.MatchID, ShouldEqual, "kubok-2024")
				So(r.CompetitorName, ShouldEqual, "J. Doe")
				So(r.CompetitorClass, ShouldEqual, "SSA")
				So(r.CompetitorPowerFactor, ShouldEqual, "Minor")
				So(r.CompetitorCategory, ShouldEqual, "Senior")
			})

			Convey("And the stage cells are parsed", func() {
				r := records[1]
				So(r.Stage, ShouldEqual, 2)
				So(r.HitFactor, ShouldAlmostEqual, 4.25)
				So(r.RawPoints, ShouldEqual, 20)
				So(r.Time, ShouldAlmostEqual, 20.0)
				So(r.LastModified, ShouldEqual, "2024-05-01 10:05")
			})

			Convey("And a name without a country code is kept", func() {
				So(records[2].CompetitorName, ShouldEqual, "#7 Anna Smith")
			})
		})
	})

	Convey("Given tables with fewer than two rows", t, func() {
		tables := [][][]string{
			{{"only header"}},
			{},
			competitorTable("Lee KOR", "SSA / Minor / Regular", stageRow("3", "1", "5", "3", "x")),
		}

		Convey("Then they are skipped", func() {
			records, err := normalize.Normalize("m", tables)
			So(err, ShouldBeNil)
			So(records, ShouldHaveLength, 1)
			So(records[0].CompetitorName, ShouldEqual, "Lee")
		})
	})

	Convey("Given a competitor without stage rows", t, func() {
		tables := [][][]string{competitorTable("Lee", "SSA / Minor / Regular")}

		Convey("Then no records and no error are returned", func() {
			records, err := normalize.Normalize("m", tables)
			So(err, ShouldBeNil)
			So(records, ShouldBeEmpty)
		})
	})
}

func TestNormalize_Malformed(t *testing.T) {
	Convey("Given malformed input", t, func() {
		Convey("When there are no tables", func() {
			_, err := normalize.Normalize("m", nil)

			Convey("Then a malformed input error is returned", func() {
				So(errors.Is(err, normalize.ErrMalformedInput), ShouldBeTrue)
			})
		})

		Convey("When the composite has too few parts", func() {
			tables := [][][]string{competitorTable("Lee", "SSA / Minor", stageRow("1", "1", "5", "3", "x"))}
			_, err := normalize.Normalize("m", tables)

			Convey("Then the error names the header row", func() {
				var me *normalize.MalformedInputError
				So(errors.As(err, &me), ShouldBeTrue)
				So(me.Table, ShouldEqual, 0)
				So(me.Row, ShouldEqual, 0)
			})
		})

		Convey("When the header is too short", func() {
			tables := [][][]string{{{"1", "Lee"}, {"x"}}}
			_, err := normalize.Normalize("m", tables)

			Convey("Then a malformed input error is returned", func() {
				So(errors.Is(err, normalize.ErrMalformedInput), ShouldBeTrue)
			})
		})

		Convey("When a stage row is too short", func() {
			tables := [][][]string{
				competitorTable("Lee", "SSA / Minor / Regular", stageRow("1", "1", "5", "3", "x")),
				competitorTable("Kim", "SSA / Minor / Regular", []string{"1", "2", "3"}),
			}
			records, err := normalize.Normalize("m", tables)

			Convey("Then nothing is returned", func() {
				So(records, ShouldBeNil)
				var me *normalize.MalformedInputError
				So(errors.As(err, &me), ShouldBeTrue)
				So(me.Table, ShouldEqual, 1)
				So(me.Row, ShouldEqual, 3)
			})
		})

		Convey("When a hit factor is not a number", func() {
			tables := [][][]string{competitorTable("Lee", "SSA / Minor / Regular", stageRow("1", "DQ", "5", "3", "x"))}
			_, err := normalize.Normalize("m", tables)

			Convey("Then a malformed input error is returned", func() {
				So(errors.Is(err, normalize.ErrMalformedInput), ShouldBeTrue)
			})
		})

		Convey("When a hit factor or time is not finite", func() {
			for _, row := range [][]string{
				stageRow("1", "NaN", "10", "3", "x"),
				stageRow("1", "Inf", "10", "3", "x"),
				stageRow("1", "+Inf", "10", "3", "x"),
				stageRow("1", "4,25", "10", "NaN", "x"),
				stageRow("1", "4,25", "10", "-Inf", "x"),
				stageRow("1", "4,25", "NaN", "3", "x"),
			} {
				tables := [][][]string{
					competitorTable("Lee", "SSA / Minor / Regular", row),
					competitorTable("Roe", "SSA / Minor / Regular", stageRow("1", "4,25", "10", "3", "x")),
				}
				records, err := normalize.Normalize("m1", tables)

				So(errors.Is(err, normalize.ErrMalformedInput), ShouldBeTrue)
				So(records, ShouldBeNil)
			}
		})

		Convey("When the stage number is zero", func() {
			tables := [][][]string{competitorTable("Lee", "SSA / Minor / Regular", stageRow("0", "1", "5", "3", "x"))}
			_, err := normalize.Normalize("m", tables)

			Convey("Then a malformed input error is returned", func() {
				So(errors.Is(err, normalize.ErrMalformedInput), ShouldBeTrue)
			})
		})
	})

	Convey("Given empty numeric cells", t, func() {
		tables := [][][]string{competitorTable("Lee", "SSA / Minor / Regular", stageRow("4", "", "5", "", ""))}

		Convey("Then they read as zero", func() {
			records, err := normalize.Normalize("m", tables)
			So(err, ShouldBeNil)
			So(records[0].HitFactor, ShouldEqual, 0)
			So(records[0].Time, ShouldEqual, 0)
		})
	})
}

func TestNormalizeName(t *testing.T) {
	Convey("Given raw competitor names", t, func() {
		cases := map[string]string{
			"J.\u00a0Doe USA":             "J. Doe",
			"Ivan\u00a0Petrov\u00a0RUS": "Ivan Petrov",
			"Ivan Petrov  RUS":          "Ivan Petrov",
			"Ivan Petrov":               "Ivan Petrov",
			"#12 Li Weiming":            "#12 Li Weiming",
			"  Kim KOR ":                "Kim KOR",
		}

		Convey("Then non-breaking spaces and country codes are removed", func() {
			for raw, want := range cases {
				So(normalize.NormalizeName(raw), ShouldEqual, want)
			}
		})
	})
}
