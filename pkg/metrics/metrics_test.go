package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestManager(t *testing.T) {
	Convey("Given a manager on a private registry", t, func() {
		registry := prometheus.NewRegistry()
		m := NewManager(
			WithPrometheusRegistry(registry),
			WithNamespace("test"),
			WithSubsystem("unit"),
			WithHistogramBuckets([]float64{1, 10, 100}),
			WithConstLabels(map[string]string{"env": "test"}),
		)

		Convey("Then the options are applied", func() {
			So(m.namespace, ShouldEqual, "test")
			So(m.subsystem, ShouldEqual, "unit")
			So(m.histogramBuckets, ShouldResemble, []float64{1, 10, 100})
			So(m.constLabels["env"], ShouldEqual, "test")
		})

		Convey("Then collectors count what they observe", func() {
			m.awardsGranted.WithLabelValues("camping").Inc()
			m.awardsGranted.WithLabelValues("camping").Inc()
			m.importDuplicates.WithLabelValues("gpx").Inc()
			So(testutil.ToFloat64(m.awardsGranted.WithLabelValues("camping")), ShouldEqual, 2)
			So(testutil.ToFloat64(m.importDuplicates.WithLabelValues("gpx")), ShouldEqual, 1)
		})

		Convey("Then every collector is registered", func() {
			m.awardPasses.Inc()
			count, err := testutil.GatherAndCount(registry, "test_unit_award_passes_total")
			So(err, ShouldBeNil)
			So(count, ShouldEqual, 1)
		})

		Convey("Then empty options keep defaults", func() {
			d := NewManager(WithPrometheusRegistry(prometheus.NewRegistry()), WithNamespace(""), WithHistogramBuckets(nil))
			So(d.namespace, ShouldEqual, "logbook")
			So(d.histogramBuckets, ShouldResemble, prometheus.DefBuckets)
		})
	})
}

func TestGlobalRecorders(t *testing.T) {
	Convey("Given the global recorders", t, func() {
		Convey("Award recorders update the global manager", func() {
			before := testutil.ToFloat64(globalManager.awardsGranted.WithLabelValues("walkabout"))
			RecordAwardGranted("walkabout")
			So(testutil.ToFloat64(globalManager.awardsGranted.WithLabelValues("walkabout")), ShouldEqual, before+1)

			passes := testutil.ToFloat64(globalManager.awardPassErrors)
			RecordAwardPass(3, true)
			RecordAwardPass(2, false)
			So(testutil.ToFloat64(globalManager.awardPassErrors), ShouldEqual, passes+1)
		})

		Convey("Notification outcomes are split by result", func() {
			ok := testutil.ToFloat64(globalManager.notificationsPublished.WithLabelValues("t"))
			bad := testutil.ToFloat64(globalManager.notificationsFailed.WithLabelValues("t"))
			RecordNotification("t", nil)
			RecordNotification("t", errors.New("broker down"))
			So(testutil.ToFloat64(globalManager.notificationsPublished.WithLabelValues("t")), ShouldEqual, ok+1)
			So(testutil.ToFloat64(globalManager.notificationsFailed.WithLabelValues("t")), ShouldEqual, bad+1)
		})

		Convey("The remaining recorders do not panic", func() {
			So(func() {
				RecordImportRecorded("strava")
				RecordImportDuplicate("strava")
				RecordActivityCreated("manual")
				RecordActivityDeleted()
				RecordStoreLatency("totals", 1.5)
				RecordHTTPRequest("/awards", "GET", "200")
				RecordHTTPRequestDuration("/awards", "GET", "200", 4)
				RecordErrorByEndpoint("/awards", "GET", "internal_error")
				RecordErrorByComponent("ledger", "duplicate")
				UpdateSystemMetrics()
			}, ShouldNotPanic)
			So(GetRegistry(), ShouldEqual, customRegistry)
		})
	})
}
