package service_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/okian/tutorboard/internal/adapters/source"
	service "github.com/okian/tutorboard/internal/app"
	"github.com/okian/tutorboard/internal/domain/ranking"
	"github.com/okian/tutorboard/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	// Initialize logging for tests
	err := logger.Init()
	if err != nil {
		panic(err)
	}
}

const sheet = `StudentCode,Name,Assignment,Score,Comments,Date,Level,Link
s1,Alice,HW1,80,,1/10/2024,A1,
s1,Alice,HW2,90,,1/11/2024,A1,
s1,Alice,HW3,70,,1/12/2024,A1,
s2,Bob,HW1,100,,1/10/2024,A1,
s2,Bob,HW2,100,,1/11/2024,A1,
s2,Bob,HW3,40,,1/12/2024,A1,
s3,Cara,Essay,95,,2/01/2024,B2,
s3,Cara,Essay 2,85,,2/02/2024,B2,
s3,Cara,Essay 3,75,,2/03/2024,B2,
s4,Dan,HW1,50,,1/10/2024,A1,
`

// sheetSource serves fixed bodies per tab and counts calls.
type sheetSource struct {
	bodies map[string]string
	errs   map[string]error
	calls  atomic.Int32
	gens   []uint64
}

func (s *sheetSource) Fetch(_ context.Context, req source.Request) ([]byte, error) {
	s.calls.Add(1)
	s.gens = append(s.gens, req.Generation)
	if err, ok := s.errs[req.Tab]; ok {
		return nil, err
	}
	return []byte(s.bodies[req.Tab]), nil
}

func started(src source.Source, opts ...service.Option) *service.Service {
	opts = append([]service.Option{
		service.WithSource(src),
		service.WithTabCandidates([]string{"Scores"}),
	}, opts...)
	svc := service.New(opts...)
	So(svc.Start(context.Background()), ShouldBeNil)
	return svc
}

func TestService_New(t *testing.T) {
	Convey("Given a new service with default options", t, func() {
		svc := service.New()

		Convey("Then it should have sensible defaults", func() {
			So(svc, ShouldNotBeNil)
			stats := svc.GetStats()
			So(stats["started"], ShouldBeFalse)
			So(stats["min_assignments"], ShouldEqual, 3)
			So(stats["top_n"], ShouldEqual, 50)
			So(stats["cache_ttl"], ShouldEqual, "5m0s")
			So(stats["tab_candidates"], ShouldResemble, []string{"Scores", "scores", "SCORES", "Sheet1"})
		})
	})

	Convey("Given a new service with custom options", t, func() {
		svc := service.New(
			service.WithSheetID("sheet-x"),
			service.WithMinAssignments(2),
			service.WithTopN(10),
			service.WithCacheTTL(time.Minute),
		)

		Convey("Then the options are reflected in its stats", func() {
			stats := svc.GetStats()
			So(stats["sheet_id"], ShouldEqual, "sheet-x")
			So(stats["min_assignments"], ShouldEqual, 2)
			So(stats["top_n"], ShouldEqual, 10)
			So(stats["cache_ttl"], ShouldEqual, "1m0s")
		})
	})
}

func TestService_StartStop(t *testing.T) {
	Convey("Given a service backed by a fixed sheet", t, func() {
		src := &sheetSource{bodies: map[string]string{"Scores": sheet}}
		svc := service.New(service.WithSource(src))

		Convey("When used before Start", func() {
			res := svc.Leaderboard(context.Background(), service.Query{})
			_, err := svc.Levels(context.Background())

			Convey("Then it reports that it is not running", func() {
				So(res.Status, ShouldEqual, service.StatusError)
				So(res.Entries, ShouldBeEmpty)
				So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
				So(errors.Is(svc.InvalidateCache(context.Background()), service.ErrNotStarted), ShouldBeTrue)
			})
		})

		Convey("When started and stopped", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			So(svc.Start(ctx), ShouldBeNil)
			So(svc.Start(ctx), ShouldBeNil)
			So(svc.GetStats()["started"], ShouldBeTrue)
			So(svc.GetStats()["cache_generation"], ShouldEqual, uint64(0))

			svc.Stop()
			svc.Stop()

			Convey("Then it is marked as stopped", func() {
				So(svc.GetStats()["started"], ShouldBeFalse)
			})
		})
	})
}

func TestService_Leaderboard(t *testing.T) {
	Convey("Given a started service over a school sheet", t, func() {
		src := &sheetSource{bodies: map[string]string{"Scores": sheet}}
		svc := started(src)
		defer svc.Stop()
		ctx := context.Background()

		Convey("When asking for the global view", func() {
			res := svc.Leaderboard(ctx, service.Query{})

			Convey("Then qualifying students are ranked by total marks", func() {
				So(res.Status, ShouldEqual, service.StatusOK)
				So(res.RunID, ShouldNotBeEmpty)
				So(res.Tab, ShouldEqual, "Scores")
				So(res.Entries, ShouldHaveLength, 3)
				So(res.Entries[0].StudentCode, ShouldEqual, "s3")
				So(res.Entries[0].TotalMarks, ShouldEqual, float64(255))
				So(res.Entries[1].StudentCode, ShouldEqual, "s1")
				So(res.Entries[2].StudentCode, ShouldEqual, "s2")
				So(res.Entries[1].Rank, ShouldEqual, 2)
				So(res.Entries[2].Rank, ShouldEqual, 3)
			})

			Convey("And the run is reflected in stats", func() {
				stats := svc.GetStats()
				So(stats["runs"], ShouldEqual, 1)
				So(stats["last_status"], ShouldEqual, "ok")
				So(stats["rows_read"], ShouldEqual, 10)
				So(stats["students"], ShouldEqual, 4)
				So(stats["levels"], ShouldEqual, 2)
			})
		})

		Convey("When asking for a single level", func() {
			res := svc.Leaderboard(ctx, service.Query{Level: " a1 "})

			Convey("Then only that level is ranked", func() {
				So(res.Entries, ShouldHaveLength, 2)
				for _, e := range res.Entries {
					So(e.Level, ShouldEqual, "A1")
				}
			})
		})

		Convey("When lowering the threshold and truncating", func() {
			res := svc.Leaderboard(ctx, service.Query{MinAssignments: 1, TopN: 1})

			Convey("Then the top entry alone is returned", func() {
				So(res.Entries, ShouldHaveLength, 1)
				So(res.Entries[0].StudentCode, ShouldEqual, "s3")
			})
		})

		Convey("When filtering by date and search", func() {
			res := svc.Leaderboard(ctx, service.Query{
				MinAssignments: 1,
				Filter: ranking.Filter{
					From:   time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
					To:     time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC),
					Search: "ALI",
				},
			})

			Convey("Then only matching January attempts count", func() {
				So(res.Entries, ShouldHaveLength, 1)
				So(res.Entries[0].StudentCode, ShouldEqual, "s1")
				So(res.Entries[0].TotalMarks, ShouldEqual, float64(240))
			})
		})

		Convey("When nobody meets the threshold", func() {
			res := svc.Leaderboard(ctx, service.Query{MinAssignments: 10})

			Convey("Then the result is empty with a friendly message", func() {
				So(res.Status, ShouldEqual, service.StatusEmpty)
				So(res.Message, ShouldEqual, service.EmptyMessage)
				So(res.Entries, ShouldNotBeNil)
				So(res.Entries, ShouldBeEmpty)
			})
		})

		Convey("When two views are computed within the cache TTL", func() {
			svc.Leaderboard(ctx, service.Query{})
			svc.Leaderboard(ctx, service.Query{Level: "B2"})

			Convey("Then the sheet is fetched once", func() {
				So(src.calls.Load(), ShouldEqual, 1)
			})
		})
	})
}

func TestService_SourceFailures(t *testing.T) {
	Convey("Given a sheet that is not shared publicly", t, func() {
		fetchErr := &source.FetchError{Tab: "Scores", Kind: source.KindHTML}
		svc := started(&sheetSource{errs: map[string]error{"Scores": fetchErr}})
		defer svc.Stop()

		Convey("When computing the leaderboard", func() {
			res := svc.Leaderboard(context.Background(), service.Query{})

			Convey("Then an error status with a sharing hint and no rows is returned", func() {
				So(res.Status, ShouldEqual, service.StatusError)
				So(res.Error, ShouldContainSubstring, "HTML")
				So(res.Entries, ShouldNotBeNil)
				So(res.Entries, ShouldBeEmpty)
				So(svc.GetStats()["last_status"], ShouldEqual, "error")
			})
		})
	})

	Convey("Given a sheet whose body is broken CSV", t, func() {
		svc := started(&sheetSource{bodies: map[string]string{
			"Scores": "StudentCode,Assignment,Score\ns1,HW\"1,80\n",
		}})
		defer svc.Stop()

		Convey("When listing levels", func() {
			_, err := svc.Levels(context.Background())

			Convey("Then the failure is reported as malformed", func() {
				So(errors.Is(err, service.ErrSourceMalformed), ShouldBeTrue)
				So(service.Describe(err), ShouldContainSubstring, "could not be read as CSV")
			})
		})
	})

	Convey("Given several candidate tabs", t, func() {
		src := &sheetSource{
			bodies: map[string]string{
				"Sheet1": "StudentCode,Assignment\n",
				"Scores": sheet,
			},
			errs: map[string]error{
				"scores": &source.FetchError{Tab: "scores", Kind: source.KindStatus, Status: 404},
			},
		}
		svc := started(src, service.WithTabCandidates([]string{"Sheet1", "scores", "Scores"}))
		defer svc.Stop()

		Convey("When the first tabs are empty or missing", func() {
			res := svc.Leaderboard(context.Background(), service.Query{})

			Convey("Then the first tab with rows is used", func() {
				So(res.Status, ShouldEqual, service.StatusOK)
				So(res.Tab, ShouldEqual, "Scores")
				So(res.Entries, ShouldHaveLength, 3)
			})
		})
	})

	Convey("Given only empty tabs", t, func() {
		svc := started(&sheetSource{bodies: map[string]string{"Scores": ""}})
		defer svc.Stop()

		Convey("Then the leaderboard is empty rather than failed", func() {
			res := svc.Leaderboard(context.Background(), service.Query{})
			So(res.Status, ShouldEqual, service.StatusEmpty)
			So(res.Error, ShouldBeEmpty)
		})
	})
}

func TestService_FetchBudget(t *testing.T) {
	Convey("Given a sheet server that hangs", t, func() {
		var hits atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
			select {
			case <-r.Context().Done():
			case <-time.After(300 * time.Millisecond):
				_, _ = w.Write([]byte(sheet))
			}
		}))
		defer srv.Close()

		run := func(clientTimeout, budget time.Duration) (service.Result, time.Duration) {
			client := source.NewSheetsClient(
				source.WithBaseURL(srv.URL),
				source.WithTimeout(clientTimeout),
				source.WithRateLimit(1000, 100),
			)
			svc := service.New(service.WithSource(client), service.WithFetchBudget(budget))
			So(svc.Start(context.Background()), ShouldBeNil)
			defer svc.Stop()

			start := time.Now()
			res := svc.Leaderboard(context.Background(), service.Query{})
			return res, time.Since(start)
		}

		Convey("When each attempt times out inside the budget", func() {
			res, elapsed := run(100*time.Millisecond, time.Second)

			Convey("Then the first timeout ends the fetch without retries or other tabs", func() {
				So(res.Status, ShouldEqual, service.StatusError)
				So(res.Entries, ShouldBeEmpty)
				So(res.Error, ShouldContainSubstring, "timeout")
				So(hits.Load(), ShouldEqual, 1)
				So(elapsed, ShouldBeLessThan, 250*time.Millisecond)
			})
		})

		Convey("When the budget is shorter than one attempt", func() {
			res, elapsed := run(5*time.Second, 100*time.Millisecond)

			Convey("Then the budget bounds the whole request", func() {
				So(res.Status, ShouldEqual, service.StatusError)
				So(res.Error, ShouldContainSubstring, "could not load scores")
				So(elapsed, ShouldBeLessThan, 250*time.Millisecond)
			})
		})
	})
}

func TestService_LevelsAndInvalidate(t *testing.T) {
	Convey("Given a started service", t, func() {
		src := &sheetSource{bodies: map[string]string{"Scores": sheet}}
		svc := started(src)
		defer svc.Stop()
		ctx := context.Background()

		Convey("When listing levels", func() {
			levels, err := svc.Levels(ctx)

			Convey("Then distinct levels are sorted", func() {
				So(err, ShouldBeNil)
				So(levels, ShouldResemble, []string{"A1", "B2"})
			})
		})

		Convey("When the cache is invalidated between reads", func() {
			_, err := svc.Levels(ctx)
			So(err, ShouldBeNil)
			So(svc.InvalidateCache(ctx), ShouldBeNil)
			_, err = svc.Levels(ctx)
			So(err, ShouldBeNil)

			Convey("Then the sheet is refetched with a new cache-busting generation", func() {
				So(src.calls.Load(), ShouldEqual, 2)
				So(src.gens, ShouldResemble, []uint64{0, 1})
				So(svc.GetStats()["cache_generation"], ShouldEqual, uint64(1))
			})
		})
	})
}

func TestDescribe(t *testing.T) {
	Convey("Given pipeline errors", t, func() {
		So(service.Describe(nil), ShouldBeEmpty)
		So(service.Describe(service.ErrNotStarted), ShouldContainSubstring, "not running")
		So(service.Describe(&source.FetchError{Tab: "Scores", Kind: source.KindTimeout}),
			ShouldStartWith, "could not load scores")
		So(service.Describe(errors.New("boom")), ShouldEqual, "boom")
	})
}
