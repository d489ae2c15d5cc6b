package publisher_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/logbook/internal/adapters/mq/publisher"
	"github.com/okian/logbook/internal/domain/awards"
	"github.com/okian/logbook/internal/domain/model"
	"github.com/okian/logbook/pkg/logger"
)

type failingWriter struct{}

func (failingWriter) WriteMessages(context.Context, string, ...kafka.Message) error {
	return errors.New("no brokers")
}

func (failingWriter) Close() error { return nil }

func TestPublisher(t *testing.T) {
	at := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)

	Convey("Given a publisher over an in-memory writer", t, func() {
		ctx := logger.WithRequestID(context.Background(), "req-1")
		mem := publisher.NewMemoryWriter(10)
		p := publisher.New(mem,
			publisher.WithTopics("awards", "reports"),
			publisher.WithClock(func() time.Time { return at }))

		Convey("When an award grant is published", func() {
			err := p.AwardGranted(ctx, awards.Grant{
				UserID:     3,
				Award:      model.AwardDefinition{ID: 1, Name: "Camp 5", Type: model.AwardCamping, Value: 5},
				DateEarned: "2024-06-01",
				Nights:     5,
			})
			So(err, ShouldBeNil)

			msgs := mem.Messages("awards")
			So(len(msgs), ShouldEqual, 1)

			Convey("Then the message is keyed by user and wrapped in an envelope", func() {
				m := msgs[0]
				So(string(m.Key), ShouldEqual, "3")
				So(string(m.Headers[0].Value), ShouldEqual, publisher.EventAwardGranted)
				So(string(m.Headers[1].Value), ShouldEqual, "req-1")

				var env publisher.Envelope
				So(json.Unmarshal(m.Value, &env), ShouldBeNil)
				So(env.EventType, ShouldEqual, publisher.EventAwardGranted)
				So(env.OccurredAt.Equal(at), ShouldBeTrue)

				var g awards.Grant
				So(json.Unmarshal(env.Payload, &g), ShouldBeNil)
				So(g.Award.Name, ShouldEqual, "Camp 5")
				So(g.Nights, ShouldEqual, 5)
			})
		})

		Convey("When a report is published it lands on the report topic", func() {
			So(p.ReportSummary(ctx, model.Report{UserID: 3, Activities: 2}), ShouldBeNil)
			So(len(mem.Messages("reports")), ShouldEqual, 1)
			So(mem.Messages("awards"), ShouldBeEmpty)
		})
	})

	Convey("Given a writer that fails", t, func() {
		p := publisher.New(failingWriter{})
		err := p.ReportSummary(context.Background(), model.Report{UserID: 1})
		So(errors.Is(err, publisher.ErrPublish), ShouldBeTrue)
	})

	Convey("Given a bounded memory writer", t, func() {
		mem := publisher.NewMemoryWriter(2)
		for i := 0; i < 5; i++ {
			_ = mem.WriteMessages(context.Background(), "t", kafka.Message{Key: []byte{byte('a' + i)}})
		}
		msgs := mem.Messages("t")
		So(len(msgs), ShouldEqual, 2)
		So(string(msgs[0].Key), ShouldEqual, "d")
		So(string(msgs[1].Key), ShouldEqual, "e")
	})
}
