package config

import (
	"context"
	"os"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestLoad(t *testing.T) {
	Convey("Given a clean environment", t, func() {
		os.Unsetenv("TALLY_CONFIG")
		os.Unsetenv("TALLY_ADDR")
		os.Unsetenv("TALLY_TOP_K")

		Convey("When loading with no overrides", func() {
			cfg, err := Load(context.Background())

			Convey("Then defaults should come back", func() {
				So(err, ShouldBeNil)
				So(cfg.Addr, ShouldEqual, ":9080")
				So(cfg.TopK, ShouldEqual, 10)
			})
		})

		Convey("When overriding via environment", func() {
			os.Setenv("TALLY_ADDR", ":7070")
			os.Setenv("TALLY_TOP_K", "25")
			defer os.Unsetenv("TALLY_ADDR")
			defer os.Unsetenv("TALLY_TOP_K")

			cfg, err := Load(context.Background())

			Convey("Then env values should win over defaults", func() {
				So(err, ShouldBeNil)
				So(cfg.Addr, ShouldEqual, ":7070")
				So(cfg.TopK, ShouldEqual, 25)
			})
		})

		Convey("When a YAML file provides values", func() {
			f, err := os.CreateTemp(t.TempDir(), "tally-*.yaml")
			So(err, ShouldBeNil)
			_, err = f.WriteString("addr: \":6060\"\ncache_ttl_ms: 2000\n")
			So(err, ShouldBeNil)
			So(f.Close(), ShouldBeNil)

			os.Setenv("TALLY_CONFIG", f.Name())
			defer os.Unsetenv("TALLY_CONFIG")

			cfg, err := Load(context.Background())

			Convey("Then file values should win over defaults", func() {
				So(err, ShouldBeNil)
				So(cfg.Addr, ShouldEqual, ":6060")
				So(cfg.CacheTTLMS, ShouldEqual, 2000)
			})
		})

		Convey("When the file path does not exist", func() {
			os.Setenv("TALLY_CONFIG", "/nonexistent/tally.yaml")
			defer os.Unsetenv("TALLY_CONFIG")

			_, err := Load(context.Background())

			Convey("Then loading should fail", func() {
				So(err, ShouldNotBeNil)
			})
		})
	})
}
