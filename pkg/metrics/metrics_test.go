package metrics

import (
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with a fresh registry", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithPrometheusRegistry(registry))

			Convey("Then it should be created successfully", func() {
				So(manager, ShouldNotBeNil)
				So(manager.namespace, ShouldEqual, "stagerank")
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test"),
				WithSubsystem("sub"),
				WithHistogramBuckets([]float64{1, 10}),
				WithConstLabels(map[string]string{"env": "test"}),
				WithPrometheusRegistry(registry),
			)

			Convey("Then the options are applied", func() {
				So(manager.namespace, ShouldEqual, "test")
				So(manager.subsystem, ShouldEqual, "sub")
				So(manager.histogramBuckets, ShouldResemble, []float64{1, 10})
				So(manager.constLabels["env"], ShouldEqual, "test")
			})

			Convey("And metrics are registered on the given registry", func() {
				manager.ingestBatches.Inc()
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				So(len(families), ShouldBeGreaterThan, 0)
			})
		})

		Convey("When empty options are given", func() {
			manager := NewManager(
				WithNamespace(""),
				WithSubsystem(""),
				WithHistogramBuckets(nil),
				WithPrometheusRegistry(prometheus.NewRegistry()),
			)

			Convey("Then defaults are kept", func() {
				So(manager.namespace, ShouldEqual, "stagerank")
				So(manager.subsystem, ShouldEqual, "results")
				So(manager.histogramBuckets, ShouldNotBeEmpty)
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the global metrics", t, func() {
		Convey("When recording an ingest", func() {
			before := testutil.ToFloat64(globalManager.ingestRecords)
			RecordIngest(12)

			Convey("Then the record counter grows by the batch size", func() {
				So(testutil.ToFloat64(globalManager.ingestRecords), ShouldEqual, before+12)
			})
		})

		Convey("When updating the store size", func() {
			UpdateStoreRecords(42)

			Convey("Then the gauge reflects it", func() {
				So(testutil.ToFloat64(globalManager.storeRecords), ShouldEqual, 42)
			})
		})

		Convey("When recording fetch outcomes", func() {
			before := testutil.ToFloat64(globalManager.fetches.WithLabelValues("ok"))
			RecordFetch("ok", 12.5)
			RecordFetchSkipped()

			Convey("Then they are counted per outcome", func() {
				So(testutil.ToFloat64(globalManager.fetches.WithLabelValues("ok")), ShouldEqual, before+1)
			})
		})

		Convey("When recording everything else", func() {
			So(func() {
				RecordIngestError("malformed_input")
				UpdateCacheEntries(3)
				RecordWatchReload()
				RecordPollCycle()
				UpdateQueueSize(1)
				UpdateQueueCapacity(16)
				RecordQueueEnqueue()
				RecordQueueDequeue()
				RecordJob("ok", 4)
				UpdateWorkerCount(2)
				RecordStoreUpsertLatency(1)
				RecordStoreScanLatency(1)
				RecordQueryLatency("stages_by_class", 2)
				RecordHTTPRequest("classes", "GET", "200")
				RecordHTTPRequestDuration("classes", "GET", "200", 3)
				RecordErrorByComponent("repository", "invalid_record")
				RecordErrorByEndpoint("ingest", "POST", "client_error")
				UpdateSystemMemoryUsage(1024)
				UpdateSystemGoroutineCount(8)
			}, ShouldNotPanic)
		})

		Convey("When gathering the custom registry", func() {
			families, err := GetRegistry().Gather()

			Convey("Then it exposes the service metrics", func() {
				So(err, ShouldBeNil)
				So(len(families), ShouldBeGreaterThan, 0)
			})
		})
	})
}

func TestMetricsConcurrency(t *testing.T) {
	Convey("Given concurrent recorders", t, func() {
		before := testutil.ToFloat64(globalManager.ingestBatches)

		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < 100; j++ {
					RecordIngest(1)
					RecordQueryLatency("stages_by_competitor", float64(j))
				}
			}()
		}
		wg.Wait()

		Convey("Then no increment is lost", func() {
			So(testutil.ToFloat64(globalManager.ingestBatches), ShouldEqual, before+1000)
		})
	})
}
