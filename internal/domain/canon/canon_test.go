package canon_test

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/okian/tutorboard/internal/domain/canon"
	. "github.com/smartystreets/goconvey/convey"
)

func TestOf(t *testing.T) {
	Convey("Given assignment titles typed by different tutors", t, func() {
		Convey("When they differ only in case and spacing", func() {
			So(canon.Of("  Essay   1 "), ShouldEqual, canon.Of("essay 1"))
			So(canon.Of("ESSAY\t1"), ShouldEqual, canon.Key("essay 1"))
		})

		Convey("When they use en or em dashes", func() {
			So(canon.Of("Lesson – 3"), ShouldEqual, canon.Key("lesson - 3"))
			So(canon.Of("Lesson — 3"), ShouldEqual, canon.Key("lesson - 3"))
			So(canon.Of("Lesson - 3"), ShouldEqual, canon.Key("lesson - 3"))
		})

		Convey("When they carry a leading level tag", func() {
			So(canon.Of("A1 HW1"), ShouldEqual, canon.Of("hw1"))
			So(canon.Of("b2  Final test"), ShouldEqual, canon.Key("final test"))
			So(canon.Of("A1 B1 hw"), ShouldEqual, canon.Key("hw"))
		})

		Convey("When the tag is not a separate word or stands alone", func() {
			So(canon.Of("A1HW"), ShouldEqual, canon.Key("a1hw"))
			So(canon.Of("A1"), ShouldEqual, canon.Key("a1"))
			So(canon.Of("HW A1"), ShouldEqual, canon.Key("hw a1"))
			So(canon.Of("D1 essay"), ShouldEqual, canon.Key("d1 essay"))
		})

		Convey("When the title is blank", func() {
			So(canon.Of("   "), ShouldEqual, canon.Key(""))
		})
	})
}

func TestOfIdempotent(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	title := gen.OneGenOf(
		gen.AnyString(),
		gen.AlphaString(),
		gen.SliceOf(gen.OneConstOf("A1", "b2", "c1", " ", "\t", "–", "—", "hw", "Essay", " ", "1")).
			Map(func(parts []string) string {
				out := ""
				for _, p := range parts {
					out += p
				}
				return out
			}),
	)

	properties.Property("Of(Of(x)) == Of(x)", prop.ForAll(
		func(x string) bool {
			k := canon.Of(x)
			return canon.Of(string(k)) == k
		},
		title,
	))

	properties.TestingRun(t)
}
