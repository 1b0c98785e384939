package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/teamalloc/internal/domain/model"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func stored(id string, flagged bool) model.StoredTeam {
	return model.StoredTeam{
		ID:           id,
		ContestID:    "c1",
		UniversityID: "u1",
		NamedTeam: model.NamedTeam{
			Name: "Uni Team " + id,
			Team: model.Team{Members: []string{"a", "b", "c"}, Names: []string{"A", "B", "C"}, Score: 12, Flagged: flagged},
		},
	}
}

func TestPublisher(t *testing.T) {
	ctx := context.Background()

	Convey("Given a publisher with a recording writer", t, func() {
		w := &fakeWriter{}
		p, err := New(Config{}, WithWriter(w))
		So(err, ShouldBeNil)

		Convey("When two teams are published", func() {
			So(p.PublishTeams(ctx, []model.StoredTeam{stored("t1", false), stored("t2", true)}), ShouldBeNil)

			Convey("Then one keyed JSON message per team is written", func() {
				So(w.msgs, ShouldHaveLength, 2)
				So(string(w.msgs[1].Key), ShouldEqual, "t2")
				var ev TeamEvent
				So(json.Unmarshal(w.msgs[1].Value, &ev), ShouldBeNil)
				So(ev.Flagged, ShouldBeTrue)
				So(ev.Members, ShouldResemble, []string{"a", "b", "c"})
				So(ev.UniversityID, ShouldEqual, "u1")
				So(string(w.msgs[1].Headers[0].Value), ShouldEqual, "c1")
			})
		})

		Convey("When there is nothing to publish", func() {
			So(p.PublishTeams(ctx, nil), ShouldBeNil)
			So(w.msgs, ShouldBeEmpty)
		})

		Convey("When the broker fails", func() {
			w.err = errors.New("leader not available")
			err := p.PublishTeams(ctx, []model.StoredTeam{stored("t1", false)})
			So(err, ShouldNotBeNil)
			So(errors.Is(err, w.err), ShouldBeTrue)
		})

		Convey("When closed", func() {
			So(p.Close(), ShouldBeNil)
			So(w.closed, ShouldBeTrue)
		})
	})

	Convey("Given brokers without a topic", t, func() {
		_, err := New(Config{Brokers: []string{"localhost:9092"}})
		So(errors.Is(err, ErrNoTopic), ShouldBeTrue)
	})

	Convey("Given a full configuration", t, func() {
		p, err := New(Config{Brokers: []string{"localhost:9092"}, Topic: "teams"})
		So(err, ShouldBeNil)
		So(p.writer, ShouldHaveSameTypeAs, &kafka.Writer{})
	})
}
