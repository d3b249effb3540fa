package config_test

import (
	"errors"
	"testing"
	"time"

	"github.com/okian/covidtrend/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with defaults", t, func() {
		cfg := config.New()

		convey.Convey("Then it should reproduce the published charts", func() {
			convey.So(cfg.SourceURL, convey.ShouldEqual, config.DefaultSourceURL)
			convey.So(cfg.FetchTimeout, convey.ShouldEqual, 30*time.Second)
			convey.So(cfg.Countries, convey.ShouldHaveLength, 12)
			convey.So(cfg.Countries, convey.ShouldContain, "United Kingdom")
			convey.So(cfg.Countries, convey.ShouldContain, "US")
			convey.So(cfg.Countries, convey.ShouldNotContain, "Finland")
			convey.So(cfg.DeathThreshold, convey.ShouldEqual, 8)
			convey.So(cfg.RateThreshold, convey.ShouldEqual, 3.0)
			convey.So(cfg.Window, convey.ShouldEqual, 7)
			convey.So(cfg.OutputPath, convey.ShouldEqual, "docs/index.html")
			convey.So(cfg.ExportPath, convey.ShouldBeEmpty)
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given a config with several problems", t, func() {
		cfg := config.New()
		cfg.SourceURL = " "
		cfg.Countries = nil
		cfg.Window = 0
		cfg.DateDomainStart = "25/02/2020"
		cfg.ExportCompression = "brotli"

		convey.Convey("When validating", func() {
			err := cfg.Validate()

			convey.Convey("Then every problem is reported", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "source_url")
				convey.So(err.Error(), convey.ShouldContainSubstring, "countries")
				convey.So(err.Error(), convey.ShouldContainSubstring, "window")
				convey.So(err.Error(), convey.ShouldContainSubstring, "date_domain_start")
				convey.So(err.Error(), convey.ShouldContainSubstring, "export_compression")
			})
		})
	})
}
