package config_test

import (
	"errors"
	"testing"
	"time"

	"github.com/okian/tutorboard/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.SheetID, convey.ShouldEqual, config.DefaultSheetID)
			convey.So(cfg.TabCandidates, convey.ShouldResemble, []string{"Scores", "scores", "SCORES", "Sheet1"})
			convey.So(cfg.MinAssignments, convey.ShouldEqual, 3)
			convey.So(cfg.TopN, convey.ShouldEqual, 50)
			convey.So(cfg.CacheTTL(), convey.ShouldEqual, 5*time.Minute)
			convey.So(cfg.FetchTimeout(), convey.ShouldEqual, 12*time.Second)
			convey.So(cfg.Source, convey.ShouldEqual, config.SourceSheets)
			convey.So(cfg.CacheBackend, convey.ShouldEqual, config.CacheMemory)
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given an otherwise valid config", t, func() {
		cfg := config.New()

		convey.Convey("When several keys are invalid", func() {
			cfg.MinAssignments = 0
			cfg.LogLevel = "loud"
			cfg.TabCandidates = nil
			err := cfg.Validate()

			convey.Convey("Then every key is reported by its config name", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "min_assignments")
				convey.So(err.Error(), convey.ShouldContainSubstring, "log_level")
				convey.So(err.Error(), convey.ShouldContainSubstring, "tab_candidates")
			})
		})

		convey.Convey("When max_top_n is below top_n", func() {
			cfg.MaxTopN = 10
			convey.So(cfg.Validate(), convey.ShouldNotBeNil)
		})

		convey.Convey("When postgres is selected without a url", func() {
			cfg.Source = config.SourcePostgres
			err := cfg.Validate()
			convey.So(err, convey.ShouldNotBeNil)
			convey.So(err.Error(), convey.ShouldContainSubstring, "postgres_url is required")

			cfg.PostgresURL = "postgres://localhost/school"
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})

		convey.Convey("When redis is selected without an address", func() {
			cfg.CacheBackend = config.CacheRedis
			convey.So(cfg.Validate(), convey.ShouldNotBeNil)

			cfg.RedisAddr = "localhost:6379"
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})

		convey.Convey("When the retry budget is too large", func() {
			cfg.FetchRetries = 9
			convey.So(cfg.Validate(), convey.ShouldNotBeNil)
		})
	})
}
