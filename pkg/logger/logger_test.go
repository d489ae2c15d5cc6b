package logger_test

import (
	"bytes"
	"context"
	"errors"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/logbook/pkg/logger"
)

func TestLogger(t *testing.T) {
	Convey("Given a logger writing to a buffer", t, func() {
		var buf bytes.Buffer
		So(logger.InitWithWriter(&buf), ShouldBeNil)
		ctx := context.Background()

		Convey("Info lines carry fields and the caller", func() {
			logger.Get().Info(ctx, "award granted", logger.String("award", "Camper 5"), logger.Int("nights", 5))
			out := buf.String()
			So(out, ShouldContainSubstring, "award granted")
			So(out, ShouldContainSubstring, "award=\"Camper 5\"")
			So(out, ShouldContainSubstring, "nights=5")
			So(out, ShouldContainSubstring, "logger_test.go")
		})

		Convey("Request ids from the context are attached", func() {
			rctx := logger.WithRequestID(ctx, "req-42")
			logger.Get().Warn(rctx, "duplicate import")
			So(buf.String(), ShouldContainSubstring, "request_id=req-42")
			So(logger.RequestID(rctx), ShouldEqual, "req-42")
		})

		Convey("Named loggers tag the component", func() {
			logger.Named("ledger").Error(ctx, "insert failed", logger.Error(errors.New("boom")))
			So(buf.String(), ShouldContainSubstring, "component=ledger")
			So(buf.String(), ShouldContainSubstring, "error=boom")
		})

		Convey("Debug is suppressed at info level and shown after raising verbosity", func() {
			logger.Get().Debug(ctx, "hidden")
			So(buf.String(), ShouldNotContainSubstring, "hidden")
			So(logger.SetLevelString("debug"), ShouldBeNil)
			logger.Get().Debug(ctx, "visible")
			So(buf.String(), ShouldContainSubstring, "visible")
		})

		Convey("Unknown levels are rejected", func() {
			So(logger.SetLevelString("loud"), ShouldNotBeNil)
			So(logger.SetLevelString("WARNING"), ShouldBeNil)
		})

		Convey("With binds fields to every line", func() {
			logger.Get().With(logger.Int64("user_id", 1)).Info(ctx, "status read")
			So(buf.String(), ShouldContainSubstring, "user_id=1")
		})

		Reset(func() { _ = logger.SetLevelString("info") })
	})

	Convey("A nil writer is rejected", t, func() {
		So(logger.InitWithWriter(nil), ShouldNotBeNil)
		So(logger.Sync(), ShouldBeNil)
	})
}
