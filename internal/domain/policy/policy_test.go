package policy

import (
	"context"
	"errors"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestMapValidator(t *testing.T) {
	ctx := context.Background()

	Convey("Given a validator with configured action limits", t, func() {
		v := NewMapValidator(
			WithActionLimitsFromConfig(map[string]int64{
				"login":       10,
				"contest_win": 500,
				"broken":      0,
			}),
		)

		Convey("When the increment is within bounds", func() {
			So(v.Validate(ctx, "login", 1), ShouldBeNil)
			So(v.Validate(ctx, "login", 10), ShouldBeNil)
			So(v.Validate(ctx, "contest_win", 500), ShouldBeNil)
		})

		Convey("When the increment exceeds the maximum", func() {
			err := v.Validate(ctx, "login", 11)
			So(errors.Is(err, ErrValidation), ShouldBeTrue)
		})

		Convey("When the increment is not positive", func() {
			So(errors.Is(v.Validate(ctx, "login", 0), ErrValidation), ShouldBeTrue)
			So(errors.Is(v.Validate(ctx, "login", -5), ErrValidation), ShouldBeTrue)
		})

		Convey("When the action type is unknown", func() {
			err := v.Validate(ctx, "jackpot", 1)
			So(errors.Is(err, ErrValidation), ShouldBeTrue)
		})

		Convey("When an action type was configured with a non-positive maximum", func() {
			// Dropped at construction, so it behaves as unknown.
			err := v.Validate(ctx, "broken", 1)
			So(errors.Is(err, ErrValidation), ShouldBeTrue)
		})

		Convey("When the configured types are listed", func() {
			So(len(v.ActionTypes()), ShouldEqual, 2)
		})
	})

	Convey("Given a validator with no configured limits", t, func() {
		v := NewMapValidator()

		Convey("Then every action type is rejected", func() {
			So(errors.Is(v.Validate(ctx, "login", 1), ErrValidation), ShouldBeTrue)
		})
	})
}
