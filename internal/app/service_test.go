package service_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/logbook/internal/adapters/mq/publisher"
	"github.com/okian/logbook/internal/adapters/repository"
	"github.com/okian/logbook/internal/adapters/strava"
	service "github.com/okian/logbook/internal/app"
	"github.com/okian/logbook/internal/domain/awards"
	"github.com/okian/logbook/internal/domain/gpx"
	"github.com/okian/logbook/internal/domain/ledger"
	"github.com/okian/logbook/internal/domain/model"
	"github.com/okian/logbook/pkg/logger"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

var today = time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC)

type harness struct {
	svc *service.Service
	mem *publisher.MemoryWriter
}

func start(t *testing.T, opts ...service.Option) harness {
	t.Helper()
	store, err := repository.NewSQLiteStore(fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	catalog, err := awards.DefaultCatalog()
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	mem := publisher.NewMemoryWriter(50)
	base := []service.Option{
		service.WithCatalog(catalog),
		service.WithClock(func() time.Time { return today }),
		service.WithPublisher(publisher.New(mem, publisher.WithTopics("awards", "reports"))),
	}
	svc := service.New(store, append(base, opts...)...)
	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	t.Cleanup(svc.Stop)
	return harness{svc: svc, mem: mem}
}

func walk(name, date string, km float64, nights int) model.Activity {
	return model.Activity{Name: name, Date: date, Type: model.TypeHiking, Distance: km, Duration: 3, Nights: nights}
}

func TestServiceLifecycle(t *testing.T) {
	Convey("Given a service that was never started", t, func() {
		store, err := repository.NewSQLiteStore(fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()))
		So(err, ShouldBeNil)
		svc := service.New(store)
		Reset(func() { _ = store.Close() })

		_, err = svc.ProcessAwards(context.Background())
		So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
	})
}

func TestAwardsFlow(t *testing.T) {
	Convey("Given a started service with the default catalog", t, func() {
		ctx := context.Background()
		h := start(t)

		Convey("With no activities nothing is granted and every type has a next award", func() {
			n, err := h.svc.ProcessAwards(ctx)
			So(err, ShouldBeNil)
			So(n, ShouldEqual, 0)

			st, err := h.svc.AwardStatus(ctx)
			So(err, ShouldBeNil)
			So(st.HighestAwards, ShouldBeEmpty)
			So(len(st.NextAwards), ShouldEqual, 2)
		})

		Convey("When five nights of camping are logged", func() {
			_, err := h.svc.CreateActivity(ctx, model.Activity{
				Name: "Scout camp", Date: "2024-06-01", Type: model.TypeCamping, Nights: 5,
			})
			So(err, ShouldBeNil)

			n, err := h.svc.ProcessAwards(ctx)
			So(err, ShouldBeNil)
			So(n, ShouldEqual, 1)

			again, err := h.svc.ProcessAwards(ctx)
			So(err, ShouldBeNil)
			So(again, ShouldEqual, 0)

			Convey("Then the status shows it as highest and publishes one event", func() {
				st, err := h.svc.AwardStatus(ctx)
				So(err, ShouldBeNil)
				So(len(st.HighestAwards), ShouldEqual, 1)
				So(st.HighestAwards[0].Type, ShouldEqual, model.AwardCamping)
				So(st.HighestAwards[0].DateEarned, ShouldEqual, "2024-06-15")
				So(st.Totals.Nights, ShouldEqual, 5)
				So(len(h.mem.Messages("awards")), ShouldEqual, 1)
			})
		})
	})
}

func TestActivities(t *testing.T) {
	Convey("Given a started service", t, func() {
		ctx := context.Background()
		h := start(t)

		Convey("Invalid activities are rejected", func() {
			_, err := h.svc.CreateActivity(ctx, model.Activity{Name: "x", Date: "June", Type: model.TypeHiking})
			So(errors.Is(err, model.ErrValidation), ShouldBeTrue)
		})

		Convey("Unknown ids are not found", func() {
			_, err := h.svc.GetActivity(ctx, 999)
			So(errors.Is(err, service.ErrNotFound), ShouldBeTrue)
			_, err = h.svc.DeleteActivity(ctx, 999)
			So(errors.Is(err, service.ErrNotFound), ShouldBeTrue)
		})

		Convey("When an activity is created and updated", func() {
			a, err := h.svc.CreateActivity(ctx, walk("Ridge", "2024-05-01", 10, 0))
			So(err, ShouldBeNil)
			So(a.Source, ShouldEqual, model.SourceManual)

			upd := walk("Ridge loop", "2024-05-02", 12, 1)
			upd.Source = model.SourceStrava
			got, err := h.svc.UpdateActivity(ctx, a.ID, upd)
			So(err, ShouldBeNil)

			Convey("Then the editable fields change and the source does not", func() {
				So(got.Name, ShouldEqual, "Ridge loop")
				So(got.Source, ShouldEqual, model.SourceManual)
				stored, err := h.svc.GetActivity(ctx, a.ID)
				So(err, ShouldBeNil)
				So(stored.Distance, ShouldEqual, 12.0)
			})

			Convey("Then stats reflect it", func() {
				st, err := h.svc.Stats(ctx)
				So(err, ShouldBeNil)
				So(st.Totals.Activities, ShouldEqual, 1)
				So(st.Totals.Distance, ShouldEqual, 12.0)
				So(len(st.Monthly), ShouldEqual, 1)
				So(st.Monthly[0].Month, ShouldEqual, "2024-05")
				So(len(st.Recent), ShouldEqual, 1)
			})
		})

		Convey("Stats only count the last twelve months by month", func() {
			_, err := h.svc.CreateActivity(ctx, walk("Old", "2022-01-01", 5, 0))
			So(err, ShouldBeNil)
			for i := 0; i < 6; i++ {
				_, err := h.svc.CreateActivity(ctx, walk(fmt.Sprintf("Walk %d", i), fmt.Sprintf("2024-0%d-10", i+1), 1, 0))
				So(err, ShouldBeNil)
			}
			st, err := h.svc.Stats(ctx)
			So(err, ShouldBeNil)
			So(st.Totals.Activities, ShouldEqual, 7)
			So(len(st.Monthly), ShouldEqual, 6)
			So(len(st.Recent), ShouldEqual, 5)
			So(st.Recent[0].Date, ShouldEqual, "2024-06-10")
		})
	})
}

func TestDeletePolicy(t *testing.T) {
	Convey("Given a cascade delete policy", t, func() {
		ctx := context.Background()
		h := start(t, service.WithDeletePolicy(service.DeleteCascade))

		res, err := h.svc.ImportStravaActivity(ctx, strava.Activity{
			ID: 555, Name: "Long walk", Type: "Walk", StartDateLocal: "2024-06-01T07:00:00Z", Distance: 60000,
		})
		So(err, ShouldBeNil)
		n, err := h.svc.ProcessAwards(ctx)
		So(err, ShouldBeNil)
		So(n, ShouldEqual, 1)

		Convey("Deleting the activity removes its ledger row and revokes the award", func() {
			out, err := h.svc.DeleteActivity(ctx, res.ActivityID)
			So(err, ShouldBeNil)
			So(out.ImportsRemoved, ShouldEqual, 1)
			So(out.AwardsRevoked, ShouldEqual, 1)

			ok, err := h.svc.IsImported(ctx, model.SourceStrava, "555")
			So(err, ShouldBeNil)
			So(ok, ShouldBeFalse)
		})
	})

	Convey("Given the default retain policy", t, func() {
		ctx := context.Background()
		h := start(t)

		res, err := h.svc.ImportStravaActivity(ctx, strava.Activity{
			ID: 556, Name: "Long walk", Type: "Walk", StartDateLocal: "2024-06-01T07:00:00Z", Distance: 60000,
		})
		So(err, ShouldBeNil)
		_, err = h.svc.ProcessAwards(ctx)
		So(err, ShouldBeNil)

		out, err := h.svc.DeleteActivity(ctx, res.ActivityID)
		So(err, ShouldBeNil)
		So(out, ShouldResemble, repository.DeleteResult{})

		Convey("Then the ledger and the award stay", func() {
			ok, err := h.svc.IsImported(ctx, model.SourceStrava, "556")
			So(err, ShouldBeNil)
			So(ok, ShouldBeTrue)
			st, err := h.svc.AwardStatus(ctx)
			So(err, ShouldBeNil)
			So(len(st.AllAwarded), ShouldEqual, 1)
		})
	})
}

const loop = `<gpx><trk><name>Lake Loop</name><trkseg>
<trkpt lat="46.0" lon="7.0"><ele>1000</ele><time>2024-05-20T09:00:00Z</time></trkpt>
<trkpt lat="46.01" lon="7.0"><ele>1040</ele><time>2024-05-20T10:00:00Z</time></trkpt>
</trkseg></trk></gpx>`

func TestImports(t *testing.T) {
	Convey("Given a started service", t, func() {
		ctx := context.Background()
		h := start(t)

		Convey("When a GPX file is uploaded", func() {
			res, err := h.svc.ImportGPX(ctx, "lake.gpx", strings.NewReader(loop))
			So(err, ShouldBeNil)
			So(res.ActivityID, ShouldBeGreaterThan, 0)
			So(res.Analysis.Distance, ShouldAlmostEqual, gpx.Haversine(46, 7, 46.01, 7), 1e-9)

			Convey("Then the activity and ledger are written", func() {
				a, err := h.svc.GetActivity(ctx, res.ActivityID)
				So(err, ShouldBeNil)
				So(a.Name, ShouldEqual, "Lake Loop")
				So(a.Date, ShouldEqual, "2024-05-20")
				So(a.Elevation, ShouldEqual, 40)

				ids, err := h.svc.ListImports(ctx, model.SourceGPX)
				So(err, ShouldBeNil)
				So(ids, ShouldResemble, []string{"lake.gpx"})
			})

			Convey("Then uploading it again is reported as a duplicate", func() {
				_, err := h.svc.ImportGPX(ctx, "lake.gpx", strings.NewReader(loop))
				So(errors.Is(err, ledger.ErrAlreadyImported), ShouldBeTrue)
				all, err := h.svc.ListActivities(ctx)
				So(err, ShouldBeNil)
				So(len(all), ShouldEqual, 1)
			})
		})

		Convey("A broken GPX upload writes nothing", func() {
			_, err := h.svc.ImportGPX(ctx, "bad.gpx", strings.NewReader("<gpx><trk>"))
			So(errors.Is(err, gpx.ErrInvalidGPX), ShouldBeTrue)
			ok, err := h.svc.IsImported(ctx, model.SourceGPX, "bad.gpx")
			So(err, ShouldBeNil)
			So(ok, ShouldBeFalse)
		})

		Convey("A manual record follows the ledger rules", func() {
			a, err := h.svc.CreateActivity(ctx, walk("Trail", "2024-04-01", 3, 0))
			So(err, ShouldBeNil)
			_, err = h.svc.RecordImport(ctx, model.SourceGPX, "trail1.gpx", a.ID)
			So(err, ShouldBeNil)
			_, err = h.svc.RecordImport(ctx, model.SourceGPX, "trail1.gpx", a.ID)
			So(errors.Is(err, ledger.ErrAlreadyImported), ShouldBeTrue)
		})

		Convey("Strava calls need a configured client", func() {
			_, err := h.svc.StravaExchange(ctx, "code")
			So(errors.Is(err, service.ErrStravaDisabled), ShouldBeTrue)
		})
	})
}

func TestReport(t *testing.T) {
	Convey("Given activities and an award", t, func() {
		ctx := context.Background()
		h := start(t)
		_, err := h.svc.CreateActivity(ctx, walk("A", "2024-06-01", 30, 0))
		So(err, ShouldBeNil)
		_, err = h.svc.CreateActivity(ctx, walk("B", "2024-06-02", 30, 0))
		So(err, ShouldBeNil)
		_, err = h.svc.ProcessAwards(ctx)
		So(err, ShouldBeNil)

		Convey("The report carries totals and the average and is published", func() {
			r, err := h.svc.SendReport(ctx)
			So(err, ShouldBeNil)
			So(r.Activities, ShouldEqual, 2)
			So(r.Distance, ShouldEqual, 60.0)
			So(r.AverageDistance, ShouldEqual, 30.0)
			So(len(r.Awards), ShouldEqual, 1)
			So(len(h.mem.Messages("reports")), ShouldEqual, 1)
		})
	})
}
