package logger

import (
	"context"
	"log/slog"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestLogger(t *testing.T) {
	Convey("Given an initialized global logger", t, func() {
		So(Init(), ShouldBeNil)

		Convey("Then Get should return a usable logger", func() {
			l := Get()
			So(l, ShouldNotBeNil)

			// None of these should panic.
			ctx := context.Background()
			l.Info(ctx, "info message", String("k", "v"))
			l.Debug(ctx, "debug message", Int("n", 1))
			l.Warn(ctx, "warn message", Int64("n64", 2))
			l.Error(ctx, "error message", Bool("flag", true))
		})

		Convey("Then Named should return a namespaced logger", func() {
			l := Named("hub")
			So(l, ShouldNotBeNil)
			l.Info(context.Background(), "named message")
		})

		Convey("When setting levels from strings", func() {
			So(SetLevelString("debug"), ShouldBeNil)
			So(levelVar.Level(), ShouldEqual, slog.LevelDebug)
			So(SetLevelString("WARN"), ShouldBeNil)
			So(levelVar.Level(), ShouldEqual, slog.LevelWarn)
			So(SetLevelString(""), ShouldBeNil)
			So(levelVar.Level(), ShouldEqual, slog.LevelInfo)

			Convey("Then unknown levels should error", func() {
				So(SetLevelString("verbose"), ShouldNotBeNil)
			})
		})
	})
}
