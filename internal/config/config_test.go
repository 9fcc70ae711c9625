package config

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestNew(t *testing.T) {
	Convey("Given default configuration", t, func() {
		cfg := New()

		Convey("Then it should hold runnable defaults", func() {
			So(cfg.Addr, ShouldEqual, ":9080")
			So(cfg.TopK, ShouldEqual, 10)
			So(cfg.CacheTTLMS, ShouldEqual, 5000)
			So(cfg.RateLimitMax, ShouldEqual, 100)
			So(cfg.RateLimitWindowMS, ShouldEqual, 60000)
			So(cfg.MaxLeaderboardLimit, ShouldEqual, 100)
			So(cfg.SubscriberQueueSize, ShouldEqual, 16)
			So(len(cfg.ActionLimits), ShouldBeGreaterThan, 0)
		})

		Convey("Then defaults should pass validation", func() {
			So(cfg.validate(), ShouldBeNil)
		})
	})
}

func TestValidate(t *testing.T) {
	Convey("Given a valid configuration", t, func() {
		base := New()

		Convey("When addr is empty", func() {
			cfg := *base
			cfg.Addr = ""
			So(cfg.validate(), ShouldNotBeNil)
		})

		Convey("When top_k is zero", func() {
			cfg := *base
			cfg.TopK = 0
			So(cfg.validate(), ShouldNotBeNil)
		})

		Convey("When an action limit is non-positive", func() {
			cfg := *base
			cfg.ActionLimits = map[string]int64{"login": 0}
			So(cfg.validate(), ShouldNotBeNil)
		})

		Convey("When the leaderboard cap is below top_k", func() {
			cfg := *base
			cfg.MaxLeaderboardLimit = cfg.TopK - 1
			So(cfg.validate(), ShouldNotBeNil)
		})
	})
}
