package source_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/okian/tutorboard/internal/adapters/source"
	"github.com/okian/tutorboard/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

const csvBody = "studentcode,assignment,score\ns1,HW1,80\n"

func newClient(srv *httptest.Server, opts ...source.Option) *source.SheetsClient {
	base := []source.Option{
		source.WithBaseURL(srv.URL),
		source.WithHTTPClient(srv.Client()),
		source.WithRetryPause(0),
		source.WithRateLimit(1000, 10),
	}
	return source.NewSheetsClient(append(base, opts...)...)
}

func TestSheetsClientURL(t *testing.T) {
	Convey("Given a sheets client", t, func() {
		c := source.NewSheetsClient()

		Convey("When building the export address", func() {
			u := c.URL(source.Request{SheetID: "abc", Tab: "Scores & Marks 2", Generation: 3})

			Convey("Then the tab is escaped and the generation appended", func() {
				So(u, ShouldEqual, "https://docs.google.com/spreadsheets/d/abc/gviz/tq?tqx=out:csv&sheet=Scores%20%26%20Marks%202&cb=3")
			})
		})
	})
}

func TestSheetsClientFetch(t *testing.T) {
	_ = logger.Init()

	Convey("Given a sheet server that returns CSV", t, func() {
		var hits atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
			if r.URL.Path != "/spreadsheets/d/sheet-1/gviz/tq" ||
				r.URL.Query().Get("sheet") != "Scores" ||
				r.URL.Query().Get("tqx") != "out:csv" ||
				r.Header.Get("Cache-Control") != "no-cache" ||
				r.Header.Get("Pragma") != "no-cache" ||
				r.Header.Get("User-Agent") == "" {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			_, _ = w.Write([]byte(csvBody))
		}))
		defer srv.Close()

		body, err := newClient(srv).Fetch(context.Background(), source.Request{SheetID: "sheet-1", Tab: "Scores"})

		Convey("Then the body is returned as-is", func() {
			So(err, ShouldBeNil)
			So(string(body), ShouldEqual, csvBody)
			So(hits.Load(), ShouldEqual, 1)
		})
	})

	Convey("Given a sheet that is not shared", t, func() {
		var hits atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			hits.Add(1)
			_, _ = w.Write([]byte("<!DOCTYPE html><HTML><body>Sign in</body></HTML>"))
		}))
		defer srv.Close()

		body, err := newClient(srv, source.WithRetries(3)).Fetch(context.Background(), source.Request{SheetID: "s", Tab: "Scores"})

		Convey("Then an HTML error is reported without retrying", func() {
			So(body, ShouldBeNil)
			So(errors.Is(err, source.ErrSourceUnavailable), ShouldBeTrue)
			var fe *source.FetchError
			So(errors.As(err, &fe), ShouldBeTrue)
			So(fe.Kind, ShouldEqual, source.KindHTML)
			So(err.Error(), ShouldContainSubstring, "expected CSV but received HTML")
			So(hits.Load(), ShouldEqual, 1)
		})
	})

	Convey("Given a server that fails once with 503", t, func() {
		var hits atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			if hits.Add(1) == 1 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			_, _ = w.Write([]byte(csvBody))
		}))
		defer srv.Close()

		body, err := newClient(srv, source.WithRetries(1)).Fetch(context.Background(), source.Request{SheetID: "s", Tab: "Scores"})

		Convey("Then the retry succeeds", func() {
			So(err, ShouldBeNil)
			So(string(body), ShouldEqual, csvBody)
			So(hits.Load(), ShouldEqual, 2)
		})
	})

	Convey("Given a missing tab", t, func() {
		var hits atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			hits.Add(1)
			w.WriteHeader(http.StatusNotFound)
		}))
		defer srv.Close()

		_, err := newClient(srv, source.WithRetries(2)).Fetch(context.Background(), source.Request{SheetID: "s", Tab: "Nope"})

		Convey("Then the status is reported and not retried", func() {
			var fe *source.FetchError
			So(errors.As(err, &fe), ShouldBeTrue)
			So(fe.Kind, ShouldEqual, source.KindStatus)
			So(fe.Status, ShouldEqual, http.StatusNotFound)
			So(hits.Load(), ShouldEqual, 1)
		})
	})

	Convey("Given a server slower than the timeout", t, func() {
		release := make(chan struct{})
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-release:
			case <-r.Context().Done():
			}
		}))
		defer srv.Close()
		defer close(release)

		_, err := newClient(srv, source.WithTimeout(50*time.Millisecond), source.WithRetries(0)).
			Fetch(context.Background(), source.Request{SheetID: "s", Tab: "Scores"})

		Convey("Then a timeout error is returned", func() {
			var fe *source.FetchError
			So(errors.As(err, &fe), ShouldBeTrue)
			So(fe.Kind, ShouldEqual, source.KindTimeout)
			So(errors.Is(err, source.ErrSourceUnavailable), ShouldBeTrue)
		})
	})
}

func TestLooksLikeHTML(t *testing.T) {
	Convey("HTML is detected only near the start of the body", t, func() {
		So(source.LooksLikeHTML([]byte("<html>")), ShouldBeTrue)
		So(source.LooksLikeHTML([]byte("  <HtMl lang=en>")), ShouldBeTrue)
		So(source.LooksLikeHTML([]byte(csvBody)), ShouldBeFalse)
		So(source.LooksLikeHTML(nil), ShouldBeFalse)

		padded := make([]byte, 600)
		for i := range padded {
			padded[i] = 'a'
		}
		So(source.LooksLikeHTML(append(padded, []byte("<html")...)), ShouldBeFalse)
	})
}
