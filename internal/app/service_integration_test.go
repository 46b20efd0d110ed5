package service_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	service "github.com/okian/stagerank/internal/app"
	"github.com/okian/stagerank/internal/adapters/source/cache"
	"github.com/okian/stagerank/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func eventually(cond func() bool) bool {
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return cond()
}

func TestService_Lifecycle(t *testing.T) {
	Convey("Given a service that is not started", t, func() {
		svc := service.New()

		Convey("Then background submits are refused", func() {
			_, err := svc.Submit(context.Background(), model.JobURL, kubokURL, "api")
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
		})

		Convey("Then Stop is a no-op", func() {
			So(func() { svc.Stop() }, ShouldNotPanic)
		})
	})

	Convey("Given a started service", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		fetcher := newFakeFetcher()
		fetcher.set(kubokURL, ssaStage13())
		svc := service.New(service.WithFetcher(fetcher), service.WithWorkerCount(1))
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		Convey("Then starting twice is harmless", func() {
			So(svc.Start(ctx), ShouldBeNil)
			So(svc.Stats(ctx).Started, ShouldBeTrue)
		})

		Convey("When a job is submitted", func() {
			id, err := svc.Submit(ctx, model.JobURL, kubokURL, "api")

			Convey("Then a worker ingests it", func() {
				So(err, ShouldBeNil)
				So(id, ShouldNotBeEmpty)
				So(eventually(func() bool { return svc.Stats(ctx).Records == 2 }), ShouldBeTrue)
			})
		})

		Convey("When the service is stopped", func() {
			svc.Stop()

			Convey("Then it reports as stopped", func() {
				So(svc.Stats(ctx).Started, ShouldBeFalse)
			})
		})
	})
}

func TestService_Polling(t *testing.T) {
	Convey("Given a service polling one source", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		fetcher := newFakeFetcher()
		fetcher.set(kubokURL, ssaStage13())
		svc := service.New(
			service.WithFetcher(fetcher),
			service.WithCache(cache.New(cache.WithCooldown(0))),
			service.WithSources([]string{kubokURL}, 20*time.Millisecond),
		)
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		Convey("Then the source is ingested at start", func() {
			So(eventually(func() bool { return svc.Stats(ctx).Records == 2 }), ShouldBeTrue)
		})

		Convey("Then it is fetched again every interval", func() {
			So(eventually(func() bool { return fetcher.count(kubokURL) >= 3 }), ShouldBeTrue)
		})
	})
}

func TestService_WatchFile(t *testing.T) {
	Convey("Given a service watching a results file", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		path := filepath.Join(t.TempDir(), "kubok.html")
		So(os.WriteFile(path, []byte(resultsPage("Kubok",
			competitor{"J. Doe USA", "SSA / Minor / Senior", [][3]string{{"1", "2", "10"}}},
		)), 0o600), ShouldBeNil)

		svc := service.New(service.WithWatchFile(path))
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		Convey("Then the file is ingested at start", func() {
			So(eventually(func() bool { return svc.Stats(ctx).Records == 1 }), ShouldBeTrue)
		})

		Convey("When the file gains a stage", func() {
			So(eventually(func() bool { return svc.Stats(ctx).Records == 1 }), ShouldBeTrue)
			time.Sleep(50 * time.Millisecond)
			So(os.WriteFile(path, []byte(resultsPage("Kubok",
				competitor{"J. Doe USA", "SSA / Minor / Senior", [][3]string{{"1", "2", "10"}, {"2", "3", "15"}}},
			)), 0o600), ShouldBeNil)

			Convey("Then the new stage is ingested", func() {
				So(eventually(func() bool { return svc.Stats(ctx).Records == 2 }), ShouldBeTrue)
			})
		})
	})
}
