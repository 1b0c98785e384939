package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/okian/teamalloc/internal/adapters/http/api"
	service "github.com/okian/teamalloc/internal/app"
	. "github.com/smartystreets/goconvey/convey"
)

const roster = `{
	"universities": [{"id": "a", "name": "Alpha"}],
	"students": [
		{"id": "s1", "university_id": "a", "given_name": "Ann", "family_name": "One", "contest_experience": 1, "spoken_languages": ["en"], "experience": {"python": "proficient"}},
		{"id": "s2", "university_id": "a", "given_name": "Bob", "family_name": "Two", "contest_experience": 2, "spoken_languages": ["en"], "experience": {"python": "some"}},
		{"id": "s3", "university_id": "a", "given_name": "Cat", "family_name": "Three", "contest_experience": 3, "spoken_languages": ["en"], "experience": {"c++": "proficient", "python": "some"}},
		{"id": "s4", "university_id": "a", "given_name": "Dan", "family_name": "Four", "contest_experience": 4, "spoken_languages": ["en"], "experience": {"python": "proficient"}}
	]
}`

type ack struct {
	Status     string   `json:"status"`
	Duplicate  bool     `json:"duplicate"`
	Enqueued   []string `json:"enqueued"`
	Duplicates []string `json:"duplicates"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type fixture struct {
	svc     *service.Service
	handler http.Handler
}

func newFixture(opts ...api.Option) *fixture {
	svc := service.New(service.WithWorkerCount(1))
	return &fixture{svc: svc, handler: api.NewServer(svc, opts...).Handler(context.Background())}
}

func (f *fixture) do(method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, http.NoBody)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	w := httptest.NewRecorder()
	f.handler.ServeHTTP(w, req)
	return w
}

func decodeBody[T any](w *httptest.ResponseRecorder) T {
	var v T
	So(json.NewDecoder(w.Body).Decode(&v), ShouldBeNil)
	return v
}

// panickyDeps fails every stats request.
type panickyDeps struct {
	*service.Service
}

func (panickyDeps) GetStats() map[string]any { panic("stats exploded") }

func TestRoster(t *testing.T) {
	Convey("Given an API server", t, func() {
		f := newFixture()

		Convey("When a roster is imported", func() {
			w := f.do(http.MethodPost, "/contests/c1/roster", roster)

			Convey("Then it is created", func() {
				So(w.Code, ShouldEqual, http.StatusCreated)
				body := decodeBody[map[string]int](w)
				So(body["universities"], ShouldEqual, 1)
				So(body["students"], ShouldEqual, 4)
			})

			Convey("And importing it again conflicts", func() {
				again := f.do(http.MethodPost, "/contests/c1/roster", roster)
				So(again.Code, ShouldEqual, http.StatusConflict)
				So(decodeBody[apiError](again).Code, ShouldEqual, "conflict")
			})
		})

		Convey("Malformed rosters are rejected", func() {
			cases := []struct {
				name string
				body string
				code int
			}{
				{"invalid JSON", `{`, http.StatusBadRequest},
				{"an unknown field", `{"teams": []}`, http.StatusBadRequest},
				{"a missing student id", `{"universities":[{"id":"a"}],"students":[{"university_id":"a"}]}`, http.StatusBadRequest},
				{"an unknown level", `{"universities":[{"id":"a"}],"students":[{"id":"s1","university_id":"a","experience":{"python":"guru"}}]}`, http.StatusBadRequest},
				{"an unknown language", `{"universities":[{"id":"a"}],"students":[{"id":"s1","university_id":"a","experience":{"cobol":"some"}}]}`, http.StatusBadRequest},
				{"an unregistered university", `{"universities":[{"id":"a"}],"students":[{"id":"s1","university_id":"b"}]}`, http.StatusNotFound},
			}
			for _, tc := range cases {
				Convey("With "+tc.name, func() {
					So(f.do(http.MethodPost, "/contests/c1/roster", tc.body).Code, ShouldEqual, tc.code)
				})
			}
		})
	})
}

func TestAllocations(t *testing.T) {
	Convey("Given an imported roster", t, func() {
		f := newFixture()
		So(f.do(http.MethodPost, "/contests/c1/roster", roster).Code, ShouldEqual, http.StatusCreated)

		Convey("When the final stage runs synchronously", func() {
			w := f.do(http.MethodPost, "/contests/c1/allocations/sync", `{"stage": "final"}`)
			So(w.Code, ShouldEqual, http.StatusOK)

			var rep struct {
				Runs []struct {
					UniversityID string `json:"university_id"`
					Teams        int    `json:"teams"`
					Leftovers    int    `json:"leftovers"`
				} `json:"runs"`
				Duplicates []string `json:"duplicates"`
			}
			So(json.NewDecoder(w.Body).Decode(&rep), ShouldBeNil)

			Convey("Then one team forms and one student is left over", func() {
				So(rep.Runs, ShouldHaveLength, 1)
				So(rep.Runs[0].Teams, ShouldEqual, 1)
				So(rep.Runs[0].Leftovers, ShouldEqual, 1)
			})

			Convey("And the team is listed", func() {
				teams := f.do(http.MethodGet, "/contests/c1/teams", "")
				So(teams.Code, ShouldEqual, http.StatusOK)
				var list []struct {
					Name    string   `json:"name"`
					Members []string `json:"members"`
					Flagged bool     `json:"flagged"`
				}
				So(json.NewDecoder(teams.Body).Decode(&list), ShouldBeNil)
				So(list, ShouldHaveLength, 1)
				So(list[0].Name, ShouldEqual, "Alpha Team 1")
				So(list[0].Members, ShouldResemble, []string{"s4", "s3", "s2"})
			})

			Convey("And filtering by another university lists nothing", func() {
				teams := f.do(http.MethodGet, "/contests/c1/teams?university=b", "")
				So(teams.Code, ShouldEqual, http.StatusOK)
				So(strings.TrimSpace(teams.Body.String()), ShouldEqual, "[]")
			})

			Convey("And the teams export as a workbook", func() {
				x := f.do(http.MethodGet, "/contests/c1/teams.xlsx", "")
				So(x.Code, ShouldEqual, http.StatusOK)
				So(x.Header().Get("Content-Type"), ShouldStartWith, "application/vnd.openxmlformats")
				So(x.Body.String(), ShouldStartWith, "PK")
			})

			Convey("And repeating the stage reports a duplicate", func() {
				again := f.do(http.MethodPost, "/contests/c1/allocations/sync", `{"stage": "final"}`)
				So(again.Code, ShouldEqual, http.StatusOK)
				So(rep.Duplicates, ShouldBeEmpty)
				So(again.Body.String(), ShouldContainSubstring, `"duplicates":["a"]`)
			})

			Convey("And the run is recorded", func() {
				runs := f.do(http.MethodGet, "/runs?limit=5", "")
				So(runs.Code, ShouldEqual, http.StatusOK)
				So(runs.Body.String(), ShouldContainSubstring, `"university_id":"a"`)
			})
		})

		Convey("Queued triggers need a started service", func() {
			w := f.do(http.MethodPost, "/contests/c1/allocations", `{"stage": "early_bird"}`)
			So(w.Code, ShouldEqual, http.StatusServiceUnavailable)
		})

		Convey("When the service is started", func() {
			ctx := context.Background()
			So(f.svc.Start(ctx), ShouldBeNil)
			defer func() { _ = f.svc.Stop(ctx) }()

			w := f.do(http.MethodPost, "/contests/c1/allocations", `{"stage": "early_bird"}`)

			Convey("Then the trigger is accepted", func() {
				So(w.Code, ShouldEqual, http.StatusAccepted)
				a := decodeBody[ack](w)
				So(a.Status, ShouldEqual, "accepted")
				So(a.Enqueued, ShouldResemble, []string{"a"})
			})

			Convey("And the same trigger is a duplicate", func() {
				again := f.do(http.MethodPost, "/contests/c1/allocations", `{"stage": "early_bird"}`)
				So(again.Code, ShouldEqual, http.StatusOK)
				a := decodeBody[ack](again)
				So(a.Duplicate, ShouldBeTrue)
				So(a.Duplicates, ShouldResemble, []string{"a"})
			})
		})

		Convey("Bad allocation requests are rejected", func() {
			So(f.do(http.MethodPost, "/contests/c1/allocations", `{"stage": "midterm"}`).Code, ShouldEqual, http.StatusBadRequest)
			So(f.do(http.MethodPost, "/contests/c1/allocations/sync", `{}`).Code, ShouldEqual, http.StatusBadRequest)
			So(f.do(http.MethodPost, "/contests/c1/allocations", `stage=final`).Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("An unknown contest is not found", func() {
			So(f.do(http.MethodPost, "/contests/zz/allocations/sync", `{"stage": "final"}`).Code, ShouldEqual, http.StatusNotFound)
			So(f.do(http.MethodGet, "/contests/zz/teams", "").Code, ShouldEqual, http.StatusNotFound)
		})
	})

	Convey("Given a tight trigger limit", t, func() {
		f := newFixture(api.WithTriggerLimit(0.001, 1))

		Convey("Then the second trigger is rate limited", func() {
			_ = f.do(http.MethodPost, "/contests/c1/allocations/sync", `{"stage": "final"}`)
			w := f.do(http.MethodPost, "/contests/c1/allocations/sync", `{"stage": "final"}`)
			So(w.Code, ShouldEqual, http.StatusTooManyRequests)
			So(decodeBody[apiError](w).Code, ShouldEqual, "rate_limited")
		})
	})
}

func TestOperationalRoutes(t *testing.T) {
	Convey("Given an API server", t, func() {
		f := newFixture(api.WithMaxRuns(10))

		Convey("Health serves Prometheus metrics", func() {
			w := f.do(http.MethodGet, "/healthz", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, "teamalloc_")
		})

		Convey("Stats serve service statistics", func() {
			w := f.do(http.MethodGet, "/stats", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(decodeBody[map[string]any](w)["workers"], ShouldEqual, float64(1))
		})

		Convey("Runs validate the limit", func() {
			So(f.do(http.MethodGet, "/runs", "").Code, ShouldEqual, http.StatusOK)
			So(f.do(http.MethodGet, "/runs?limit=0", "").Code, ShouldEqual, http.StatusBadRequest)
			w := f.do(http.MethodGet, "/runs?limit=11", "")
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(decodeBody[apiError](w).Code, ShouldEqual, "limit_exceeded")
		})

		Convey("Unknown routes and methods are refused", func() {
			So(f.do(http.MethodGet, "/unknown", "").Code, ShouldEqual, http.StatusNotFound)
			So(f.do(http.MethodPost, "/stats", "").Code, ShouldEqual, http.StatusMethodNotAllowed)
		})
	})

	Convey("Given a handler that panics", t, func() {
		svc := service.New(service.WithWorkerCount(1))
		h := api.NewServer(panickyDeps{svc}).Handler(context.Background())

		Convey("Then the request fails with 500 instead of crashing", func() {
			w := httptest.NewRecorder()
			h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/stats", http.NoBody))
			So(w.Code, ShouldEqual, http.StatusInternalServerError)
		})
	})
}
