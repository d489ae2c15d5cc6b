package ledger_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/logbook/internal/adapters/repository"
	"github.com/okian/logbook/internal/domain/ledger"
	"github.com/okian/logbook/internal/domain/model"
)

func openStore(t *testing.T) *repository.SQLiteStore {
	t.Helper()
	s, err := repository.NewSQLiteStore(fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	return s
}

func trail(name string) model.Activity {
	return model.Activity{Name: name, Date: "2024-04-02", Type: model.TypeHiking, Distance: 8.25, Duration: 3}
}

func TestParseSource(t *testing.T) {
	Convey("Sources parse case-insensitively", t, func() {
		src, err := ledger.ParseSource("GPX")
		So(err, ShouldBeNil)
		So(src, ShouldEqual, model.SourceGPX)

		src, err = ledger.ParseSource("strava")
		So(err, ShouldBeNil)
		So(src, ShouldEqual, model.SourceStrava)

		_, err = ledger.ParseSource("manual")
		So(errors.Is(err, ledger.ErrUnknownSource), ShouldBeTrue)
		_, err = ledger.ParseSource("garmin")
		So(errors.Is(err, ledger.ErrUnknownSource), ShouldBeTrue)
	})
}

func TestRecord(t *testing.T) {
	Convey("Given a ledger over an empty store", t, func() {
		ctx := context.Background()
		store := openStore(t)
		Reset(func() { _ = store.Close() })
		l := ledger.New(store)

		a42 := trail("Trail one")
		So(store.CreateActivity(ctx, &a42), ShouldBeNil)

		Convey("Unseen ids are not imported", func() {
			ok, err := l.IsImported(ctx, model.SourceGPX, "trail1.gpx")
			So(err, ShouldBeNil)
			So(ok, ShouldBeFalse)
		})

		Convey("When trail1.gpx is recorded", func() {
			id, err := l.Record(ctx, model.SourceGPX, "trail1.gpx", a42.ID)
			So(err, ShouldBeNil)
			So(id, ShouldBeGreaterThan, 0)

			Convey("Then it reads back as imported", func() {
				ok, err := l.IsImported(ctx, model.SourceGPX, "trail1.gpx")
				So(err, ShouldBeNil)
				So(ok, ShouldBeTrue)
			})

			Convey("Then the other source is unaffected", func() {
				ok, err := l.IsImported(ctx, model.SourceStrava, "trail1.gpx")
				So(err, ShouldBeNil)
				So(ok, ShouldBeFalse)
			})

			Convey("Then a second record reports it already exists", func() {
				other := trail("Trail again")
				So(store.CreateActivity(ctx, &other), ShouldBeNil)
				_, err := l.Record(ctx, model.SourceGPX, "trail1.gpx", other.ID)
				So(errors.Is(err, ledger.ErrAlreadyImported), ShouldBeTrue)

				ids, err := l.List(ctx, model.SourceGPX)
				So(err, ShouldBeNil)
				So(ids, ShouldResemble, []string{"trail1.gpx"})
			})
		})

		Convey("Invalid input is rejected", func() {
			_, err := l.Record(ctx, model.SourceGPX, "  ", a42.ID)
			So(errors.Is(err, ledger.ErrInvalidRecord), ShouldBeTrue)

			_, err = l.Record(ctx, model.SourceGPX, "x.gpx", 0)
			So(errors.Is(err, ledger.ErrInvalidRecord), ShouldBeTrue)

			_, err = l.Record(ctx, model.Source("garmin"), "x", a42.ID)
			So(errors.Is(err, ledger.ErrUnknownSource), ShouldBeTrue)

			_, err = l.IsImported(ctx, model.SourceManual, "x")
			So(errors.Is(err, ledger.ErrUnknownSource), ShouldBeTrue)
		})

		Convey("Recording against a missing activity fails", func() {
			_, err := l.Record(ctx, model.SourceStrava, "123", a42.ID+100)
			So(errors.Is(err, ledger.ErrActivityMissing), ShouldBeTrue)
		})

		Convey("An empty ledger lists as an empty slice", func() {
			ids, err := l.List(ctx, model.SourceStrava)
			So(err, ShouldBeNil)
			So(ids, ShouldNotBeNil)
			So(ids, ShouldBeEmpty)
		})
	})
}

func TestImport(t *testing.T) {
	Convey("Given a ledger over an empty store", t, func() {
		ctx := context.Background()
		store := openStore(t)
		Reset(func() { _ = store.Close() })
		l := ledger.New(store)

		Convey("When an activity is imported", func() {
			activityID, recordID, err := l.Import(ctx, model.SourceStrava, "987654", trail("Morning hike"))
			So(err, ShouldBeNil)
			So(activityID, ShouldBeGreaterThan, 0)
			So(recordID, ShouldBeGreaterThan, 0)

			Convey("Then the activity carries its source", func() {
				got, err := store.GetActivity(ctx, activityID)
				So(err, ShouldBeNil)
				So(got.Source, ShouldEqual, model.SourceStrava)
				So(got.SourceID, ShouldEqual, "987654")
			})

			Convey("Then importing it again writes nothing", func() {
				_, _, err := l.Import(ctx, model.SourceStrava, "987654", trail("Morning hike"))
				So(errors.Is(err, ledger.ErrAlreadyImported), ShouldBeTrue)

				all, err := store.ListActivities(ctx)
				So(err, ShouldBeNil)
				So(len(all), ShouldEqual, 1)
			})
		})

		Convey("An invalid activity is not imported", func() {
			bad := trail("")
			_, _, err := l.Import(ctx, model.SourceGPX, "empty.gpx", bad)
			So(errors.Is(err, model.ErrValidation), ShouldBeTrue)

			ok, err := l.IsImported(ctx, model.SourceGPX, "empty.gpx")
			So(err, ShouldBeNil)
			So(ok, ShouldBeFalse)
		})
	})
}
