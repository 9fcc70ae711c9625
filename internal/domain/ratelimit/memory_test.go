package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestMemoryLimiter(t *testing.T) {
	ctx := context.Background()

	Convey("Given a limiter with a quota of three per window", t, func() {
		now := time.Unix(1000, 0)
		l := NewMemoryLimiter(
			WithWindow(time.Minute),
			WithMaxCount(3),
			WithClock(func() time.Time { return now }),
		)

		Convey("When a user submits within quota", func() {
			for i := 0; i < 3; i++ {
				ok, err := l.Allow(ctx, "u1")
				So(err, ShouldBeNil)
				So(ok, ShouldBeTrue)
			}

			Convey("Then the next call in the same window is denied", func() {
				ok, err := l.Allow(ctx, "u1")
				So(err, ShouldBeNil)
				So(ok, ShouldBeFalse)
			})

			Convey("And a different user is unaffected", func() {
				ok, err := l.Allow(ctx, "u2")
				So(err, ShouldBeNil)
				So(ok, ShouldBeTrue)
			})

			Convey("And the next window resets the counter", func() {
				now = now.Add(time.Minute)
				ok, err := l.Allow(ctx, "u1")
				So(err, ShouldBeNil)
				So(ok, ShouldBeTrue)
			})
		})
	})

	Convey("Given concurrent callers sharing one user", t, func() {
		l := NewMemoryLimiter(WithWindow(time.Minute), WithMaxCount(50))

		Convey("When more calls arrive than the quota admits", func() {
			const calls = 200
			var wg sync.WaitGroup
			allowed := make(chan struct{}, calls)
			for i := 0; i < calls; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					if ok, _ := l.Allow(context.Background(), "u1"); ok {
						allowed <- struct{}{}
					}
				}()
			}
			wg.Wait()
			close(allowed)

			Convey("Then exactly the quota is admitted", func() {
				So(len(allowed), ShouldEqual, 50)
			})
		})
	})
}
