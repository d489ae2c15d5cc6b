package model_test

import (
	"errors"
	"testing"
	"time"

	model "github.com/okian/logbook/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func validActivity() model.Activity {
	return model.Activity{
		Name:     "Ridge walk",
		Date:     "2024-05-04",
		Type:     model.TypeHiking,
		Duration: 4.5,
		Distance: 12.3,
		Nights:   0,
	}
}

func TestActivityValidate(t *testing.T) {
	convey.Convey("Given an activity", t, func() {
		a := validActivity()
		a.Normalize()

		convey.Convey("When every required field is present", func() {
			convey.Convey("Then it validates and defaults to a manual source", func() {
				convey.So(a.Validate(), convey.ShouldBeNil)
				convey.So(a.Source, convey.ShouldEqual, model.SourceManual)
			})
		})

		convey.Convey("When the name is blank after trimming", func() {
			a.Name = "   "
			a.Normalize()
			err := a.Validate()
			convey.Convey("Then it is a validation error", func() {
				convey.So(errors.Is(err, model.ErrValidation), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "name")
			})
		})

		convey.Convey("When the date is not a calendar date", func() {
			a.Date = "04/05/2024"
			convey.So(errors.Is(a.Validate(), model.ErrValidation), convey.ShouldBeTrue)
		})

		convey.Convey("When the type is unknown", func() {
			a.Type = "Kayaking"
			convey.So(errors.Is(a.Validate(), model.ErrValidation), convey.ShouldBeTrue)
		})

		convey.Convey("When a numeric field is negative", func() {
			a.Nights = -1
			convey.So(errors.Is(a.Validate(), model.ErrValidation), convey.ShouldBeTrue)
		})

		convey.Convey("When the source is unknown", func() {
			a.Source = "garmin"
			convey.So(errors.Is(a.Validate(), model.ErrValidation), convey.ShouldBeTrue)
		})
	})
}

func TestSourceAndType(t *testing.T) {
	convey.Convey("Given sources and types", t, func() {
		convey.So(model.SourceGPX.Importable(), convey.ShouldBeTrue)
		convey.So(model.SourceStrava.Importable(), convey.ShouldBeTrue)
		convey.So(model.SourceManual.Importable(), convey.ShouldBeFalse)
		convey.So(model.TypeCamping.Valid(), convey.ShouldBeTrue)
		convey.So(model.ActivityType("hiking").Valid(), convey.ShouldBeFalse)
	})
}

func TestToday(t *testing.T) {
	convey.Convey("Given a time late in the day east of UTC", t, func() {
		loc := time.FixedZone("plus10", 10*60*60)
		now := time.Date(2024, 6, 2, 8, 0, 0, 0, loc)
		convey.Convey("Then the award date is the UTC calendar date", func() {
			convey.So(model.Today(now), convey.ShouldEqual, "2024-06-01")
		})
	})
}
