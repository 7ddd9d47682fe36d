package types_test

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/okian/tutorboard/internal/domain/model"
	types "github.com/okian/tutorboard/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func TestEntryCSV(t *testing.T) {
	Convey("Given a ranked table", t, func() {
		entries := []types.Entry{
			{
				Rank:                 1,
				DisplayName:          "Alice",
				StudentCode:          "s1",
				Level:                "A1",
				TotalMarks:           240,
				AssignmentsCompleted: 3,
				AverageScore:         80,
				LastActivity:         model.Day(2024, time.February, 2),
			},
			{
				Rank:                 2,
				DisplayName:          "Bob, Jr.",
				StudentCode:          "s2",
				Level:                "A1",
				TotalMarks:           70.5,
				AssignmentsCompleted: 3,
				AverageScore:         23.5,
				LastActivity:         model.Missing(),
			},
		}

		Convey("When exporting to CSV", func() {
			raw, err := types.MarshalCSV(entries)
			So(err, ShouldBeNil)
			lines := strings.Split(strings.TrimSpace(string(raw)), "\n")

			Convey("Then the header lists the documented columns in order", func() {
				So(lines[0], ShouldEqual, strings.Join(types.Columns, ","))
			})

			Convey("And averages use two decimals while missing dates are empty", func() {
				So(lines[1], ShouldEqual, "1,Alice,s1,A1,240,3,80.00,2024-02-02")
				So(lines[2], ShouldEqual, `2,"Bob, Jr.",s2,A1,70.5,3,23.50,`)
			})

			Convey("And re-parsing yields an equal table", func() {
				back, err := types.ReadCSV(bytes.NewReader(raw))
				So(err, ShouldBeNil)
				So(back, ShouldHaveLength, len(entries))
				for i := range entries {
					So(back[i].Rank, ShouldEqual, entries[i].Rank)
					So(back[i].DisplayName, ShouldEqual, entries[i].DisplayName)
					So(back[i].StudentCode, ShouldEqual, entries[i].StudentCode)
					So(back[i].Level, ShouldEqual, entries[i].Level)
					So(back[i].TotalMarks, ShouldEqual, entries[i].TotalMarks)
					So(back[i].AssignmentsCompleted, ShouldEqual, entries[i].AssignmentsCompleted)
					So(float64(back[i].AverageScore), ShouldAlmostEqual, float64(entries[i].AverageScore), 0.001)
					So(back[i].LastActivity.Compare(entries[i].LastActivity), ShouldEqual, 0)
				}
			})
		})

		Convey("When exporting an empty table", func() {
			raw, err := types.MarshalCSV(nil)

			Convey("Then only the header row is written", func() {
				So(err, ShouldBeNil)
				So(strings.TrimSpace(string(raw)), ShouldEqual, strings.Join(types.Columns, ","))
			})
		})
	})
}

func TestExportFilename(t *testing.T) {
	Convey("Given a level view", t, func() {
		So(types.ExportFilename(""), ShouldEqual, "leaderboard_all_levels.csv")
		So(types.ExportFilename("  "), ShouldEqual, "leaderboard_all_levels.csv")
		So(types.ExportFilename(" b2 "), ShouldEqual, "leaderboard_B2.csv")
	})
}
