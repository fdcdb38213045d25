package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test"),
				WithSubsystem("unit"),
				WithHistogramBuckets([]float64{1, 2, 3}),
				WithConstLabels(map[string]string{"env": "test"}),
				WithPrometheusRegistry(registry),
			)

			Convey("Then metrics are registered under the namespace", func() {
				manager.highlightsInserted.Inc()
				families, err := registry.Gather()
				So(err, ShouldBeNil)

				var found bool
				for _, f := range families {
					if f.GetName() == "test_unit_highlights_inserted_total" {
						found = true
					}
				}
				So(found, ShouldBeTrue)
			})
		})

		Convey("When two managers share a registry", func() {
			registry := prometheus.NewRegistry()
			NewManager(WithPrometheusRegistry(registry))

			Convey("Then the second registration panics", func() {
				So(func() { NewManager(WithPrometheusRegistry(registry)) }, ShouldPanic)
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the global manager", t, func() {
		Convey("When recording pipeline metrics", func() {
			before := testutil.ToFloat64(globalManager.highlightsDuplicate)
			RecordHighlightDuplicate()
			RecordHighlightDuplicate()

			Convey("Then counters move", func() {
				So(testutil.ToFloat64(globalManager.highlightsDuplicate), ShouldEqual, before+2)
			})
		})

		Convey("When recording scanned plays in bulk", func() {
			before := testutil.ToFloat64(globalManager.playsScanned)
			RecordPlaysScanned(12)
			So(testutil.ToFloat64(globalManager.playsScanned), ShouldEqual, before+12)
		})

		Convey("When recording upstream calls", func() {
			before := testutil.ToFloat64(globalManager.upstreamRequests.WithLabelValues("search", "error"))
			RecordUpstream("search", "error", 12.5)
			So(testutil.ToFloat64(globalManager.upstreamRequests.WithLabelValues("search", "error")), ShouldEqual, before+1)
		})

		Convey("When setting gauges", func() {
			UpdateQueueSize(7)
			UpdateStoreRecords(3)
			UpdateBreakerState("feed", 2)

			Convey("Then the last value is kept", func() {
				So(testutil.ToFloat64(globalManager.queueSize), ShouldEqual, 7)
				So(testutil.ToFloat64(globalManager.storeRecords), ShouldEqual, 3)
				So(testutil.ToFloat64(globalManager.breakerState.WithLabelValues("feed")), ShouldEqual, 2)
			})
		})

		Convey("When recording the remaining helpers", func() {
			So(func() {
				RecordHighlightsFound(2)
				RecordHighlightInserted()
				RecordClipMatched(0.75)
				RecordClipMissed()
				RecordGeneration("completed")
				RecordGenerationLatency(120)
				RecordStoreLatency("insert", 0.4)
				UpdateQueueCapacity(100)
				UpdateQueueUtilization(0.07)
				RecordQueueEnqueue()
				RecordQueueDequeue()
				RecordQueueEnqueueError()
				UpdateWorkerCount(4)
				UpdateWorkerActiveCount(1)
				RecordWorkerProcessingLatency(33)
				RecordWorkerError()
				RecordHTTPRequest("/healthz", "GET", "200")
				RecordHTTPRequestDuration("/healthz", "GET", "200", 1)
				RecordErrorByComponent("feed", "fetch_failed")
			}, ShouldNotPanic)
		})

		Convey("When recording is disabled", func() {
			SetEnabled(false)
			defer SetEnabled(true)
			before := testutil.ToFloat64(globalManager.clipsMissed)
			RecordClipMissed()

			Convey("Then nothing is recorded", func() {
				So(testutil.ToFloat64(globalManager.clipsMissed), ShouldEqual, before)
			})
		})
	})
}

func TestMetricsConcurrency(t *testing.T) {
	Convey("Given concurrent recorders", t, func() {
		before := testutil.ToFloat64(globalManager.queueEnqueue)
		var wg sync.WaitGroup
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				RecordQueueEnqueue()
			}()
		}
		wg.Wait()

		Convey("Then every increment lands", func() {
			So(testutil.ToFloat64(globalManager.queueEnqueue), ShouldEqual, before+50)
		})
	})
}

func TestHandler(t *testing.T) {
	Convey("Given the metrics handler", t, func() {
		RecordHighlightInserted()
		rec := httptest.NewRecorder()
		Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

		Convey("Then it exposes the custom registry", func() {
			body, _ := io.ReadAll(rec.Body)
			So(rec.Code, ShouldEqual, 200)
			So(strings.Contains(string(body), "highlights_highlights_inserted_total"), ShouldBeTrue)
			So(GetRegistry(), ShouldNotBeNil)
		})
	})
}
