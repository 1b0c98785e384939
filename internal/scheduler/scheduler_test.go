package scheduler_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/okian/teamalloc/internal/config"
	"github.com/okian/teamalloc/internal/domain/model"
	"github.com/okian/teamalloc/internal/scheduler"
	. "github.com/smartystreets/goconvey/convey"
)

type fired struct {
	contest string
	stage   model.Stage
}

type recorder struct {
	mu    sync.Mutex
	calls []fired
	fail  int
}

func (r *recorder) trigger(_ context.Context, contestID string, stage model.Stage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, fired{contestID, stage})
	if r.fail > 0 {
		r.fail--
		return errors.New("queue full")
	}
	return nil
}

func TestEvents(t *testing.T) {
	Convey("Given configured schedules", t, func() {
		events, err := scheduler.Events([]config.Schedule{
			{ContestID: "c1", EarlyBird: "2026-09-01T12:00:00Z", Final: "2026-09-15T12:00:00Z"},
			{ContestID: "c2", Final: "2026-10-01T08:00:00+02:00"},
		})

		Convey("Then each yields its trigger stages", func() {
			So(err, ShouldBeNil)
			So(events, ShouldHaveLength, 3)
			So(events[0].Stage, ShouldEqual, model.StageEarlyBird)
			So(events[1].Stage, ShouldEqual, model.StageFinal)
			So(events[2].ContestID, ShouldEqual, "c2")
			So(events[2].At.UTC().Hour(), ShouldEqual, 6)
		})
	})

	Convey("Given a malformed schedule", t, func() {
		_, err := scheduler.Events([]config.Schedule{{ContestID: "c1", Final: "soon"}})

		So(errors.Is(err, config.ErrInvalidConfig), ShouldBeTrue)
	})
}

func TestScheduler_Run(t *testing.T) {
	Convey("Given past and future events", t, func() {
		now := time.Now()
		rec := &recorder{}
		s := scheduler.New(rec.trigger, []scheduler.Event{
			{ContestID: "c1", Stage: model.StageFinal, At: now.Add(40 * time.Millisecond)},
			{ContestID: "c1", Stage: model.StageEarlyBird, At: now.Add(10 * time.Millisecond)},
			{ContestID: "old", Stage: model.StageFinal, At: now.Add(-time.Hour)},
		})

		Convey("When run to completion", func() {
			err := s.Run(context.Background())

			Convey("Then future events fire in time order and past ones are skipped", func() {
				So(err, ShouldBeNil)
				So(rec.calls, ShouldResemble, []fired{
					{"c1", model.StageEarlyBird},
					{"c1", model.StageFinal},
				})
			})
		})
	})

	Convey("Given a failing trigger", t, func() {
		rec := &recorder{fail: 2}
		s := scheduler.New(rec.trigger,
			[]scheduler.Event{{ContestID: "c1", Stage: model.StageFinal, At: time.Now().Add(5 * time.Millisecond)}},
			scheduler.WithRetry(3, time.Millisecond),
		)

		Convey("Then it is retried until it succeeds", func() {
			So(s.Run(context.Background()), ShouldBeNil)
			So(rec.calls, ShouldHaveLength, 3)
		})
	})

	Convey("Given a clock past every event", t, func() {
		rec := &recorder{}
		s := scheduler.New(rec.trigger,
			[]scheduler.Event{{ContestID: "c1", Stage: model.StageFinal, At: time.Now().Add(time.Hour)}},
			scheduler.WithClock(func() time.Time { return time.Now().Add(2 * time.Hour) }),
		)

		Convey("Then nothing fires", func() {
			So(s.Run(context.Background()), ShouldBeNil)
			So(rec.calls, ShouldBeEmpty)
		})
	})

	Convey("Given an event far in the future", t, func() {
		rec := &recorder{}
		s := scheduler.New(rec.trigger, []scheduler.Event{{ContestID: "c1", Stage: model.StageFinal, At: time.Now().Add(time.Hour)}})
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		Convey("Then canceling the context stops the scheduler", func() {
			So(errors.Is(s.Run(ctx), context.DeadlineExceeded), ShouldBeTrue)
			So(rec.calls, ShouldBeEmpty)
		})
	})
}
