package model_test

import (
	"testing"

	"github.com/okian/stagerank/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func TestResultRecord(t *testing.T) {
	convey.Convey("Given a result record", t, func() {
		r := model.ResultRecord{
			MatchID:         "kubok",
			CompetitorName:  "J. Doe",
			CompetitorClass: "SSA",
			Stage:           13,
			HitFactor:       4.25,
			RawPoints:       10,
		}

		convey.Convey("When taking its keys", func() {
			convey.Convey("Then the identity ignores the class", func() {
				convey.So(r.Key(), convey.ShouldResemble, model.RecordKey{MatchID: "kubok", Stage: 13, CompetitorName: "J. Doe"})
			})

			convey.Convey("Then the partition ignores the competitor", func() {
				convey.So(r.PartitionKey(), convey.ShouldResemble, model.PartitionKey{MatchID: "kubok", Stage: 13, Class: "SSA"})
			})

			convey.Convey("And a later ingest of the same competitor shares the key", func() {
				later := r
				later.HitFactor = 9
				convey.So(later.Key(), convey.ShouldResemble, r.Key())
			})
		})
	})
}

func TestFilter(t *testing.T) {
	convey.Convey("Given a record and several filters", t, func() {
		r := model.ResultRecord{MatchID: "kubok", CompetitorName: "R. Roe", CompetitorClass: "SSA", Stage: 2}

		convey.Convey("Then the zero filter matches", func() {
			convey.So(model.Filter{}.Match(r), convey.ShouldBeTrue)
		})

		convey.Convey("Then every set field must agree", func() {
			convey.So(model.Filter{MatchID: "kubok", Stage: 2, Class: "SSA", CompetitorName: "R. Roe"}.Match(r), convey.ShouldBeTrue)
			convey.So(model.Filter{MatchID: "other"}.Match(r), convey.ShouldBeFalse)
			convey.So(model.Filter{Stage: 3}.Match(r), convey.ShouldBeFalse)
			convey.So(model.Filter{Class: "SSO"}.Match(r), convey.ShouldBeFalse)
			convey.So(model.Filter{CompetitorName: "J. Doe"}.Match(r), convey.ShouldBeFalse)
		})
	})
}
