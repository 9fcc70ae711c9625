package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/tally/internal/domain/model"
)

func TestMemoryStoreApplyAction(t *testing.T) {
	ctx := context.Background()

	Convey("Given an empty store", t, func() {
		s := NewMemoryStore()

		Convey("When an action is applied", func() {
			res, err := s.ApplyAction(ctx, model.Action{
				UserID: "u1", Username: "One", ActionID: "a1", ActionType: "login", Increment: 10,
			})

			Convey("Then it should commit and return the new score", func() {
				So(err, ShouldBeNil)
				So(res.Applied, ShouldBeTrue)
				So(res.NewScore, ShouldEqual, 10)
			})
		})

		Convey("When the same action is applied twice", func() {
			first := model.Action{UserID: "u1", Username: "One", ActionID: "a1", ActionType: "login", Increment: 10}
			_, err := s.ApplyAction(ctx, first)
			So(err, ShouldBeNil)

			res, err := s.ApplyAction(ctx, first)

			Convey("Then the second apply should report the prior action and mutate nothing", func() {
				So(err, ShouldBeNil)
				So(res.Applied, ShouldBeFalse)
				So(res.Prior, ShouldNotBeNil)
				So(res.Prior.ActionID, ShouldEqual, "a1")
				So(res.Prior.Increment, ShouldEqual, 10)

				entry, rankErr := s.Rank(ctx, "u1")
				So(rankErr, ShouldBeNil)
				So(entry.Score, ShouldEqual, 10)
			})
		})

		Convey("When the same action ID is reused by another user", func() {
			_, err := s.ApplyAction(ctx, model.Action{UserID: "u1", ActionID: "a1", ActionType: "login", Increment: 10})
			So(err, ShouldBeNil)

			res, err := s.ApplyAction(ctx, model.Action{UserID: "u2", ActionID: "a1", ActionType: "login", Increment: 5})

			Convey("Then it should commit; idempotency is scoped per user", func() {
				So(err, ShouldBeNil)
				So(res.Applied, ShouldBeTrue)
				So(res.NewScore, ShouldEqual, 5)
			})
		})

		Convey("When a user applies several distinct actions", func() {
			for i, inc := range []int64{10, 5, 7} {
				res, err := s.ApplyAction(ctx, model.Action{
					UserID: "u1", ActionID: fmt.Sprintf("a%d", i), ActionType: "login", Increment: inc,
				})
				So(err, ShouldBeNil)
				So(res.Applied, ShouldBeTrue)
			}

			Convey("Then the score should accumulate monotonically", func() {
				entry, err := s.Rank(ctx, "u1")
				So(err, ShouldBeNil)
				So(entry.Score, ShouldEqual, 22)
			})
		})
	})
}

func TestMemoryStoreOrdering(t *testing.T) {
	ctx := context.Background()

	Convey("Given a store with a controllable clock", t, func() {
		now := time.Unix(1000, 0).UTC()
		s := NewMemoryStore(WithClock(func() time.Time { return now }))

		apply := func(userID string, inc int64) {
			res, err := s.ApplyAction(ctx, model.Action{
				UserID: userID, Username: userID, ActionID: userID + "-a", ActionType: "login", Increment: inc,
			})
			So(err, ShouldBeNil)
			So(res.Applied, ShouldBeTrue)
		}

		Convey("When users hold distinct scores", func() {
			apply("low", 10)
			apply("high", 50)
			apply("mid", 30)

			entries, err := s.TopN(ctx, 10)

			Convey("Then entries should be ordered by score descending with sequential ranks", func() {
				So(err, ShouldBeNil)
				So(len(entries), ShouldEqual, 3)
				So(entries[0].UserID, ShouldEqual, "high")
				So(entries[1].UserID, ShouldEqual, "mid")
				So(entries[2].UserID, ShouldEqual, "low")
				So(entries[0].Rank, ShouldEqual, 1)
				So(entries[1].Rank, ShouldEqual, 2)
				So(entries[2].Rank, ShouldEqual, 3)
			})
		})

		Convey("When two users tie on score", func() {
			apply("later", 50)
			now = now.Add(-time.Hour)
			apply("earlier", 50)

			entries, err := s.TopN(ctx, 10)

			Convey("Then the user who reached the score first ranks higher", func() {
				So(err, ShouldBeNil)
				So(entries[0].UserID, ShouldEqual, "earlier")
				So(entries[0].Rank, ShouldEqual, 1)
				So(entries[1].UserID, ShouldEqual, "later")
				So(entries[1].Rank, ShouldEqual, 2)
			})
		})

		Convey("When two users tie on score and timestamp", func() {
			apply("bbb", 50)
			apply("aaa", 50)

			entries, err := s.TopN(ctx, 10)

			Convey("Then the user ID breaks the tie deterministically", func() {
				So(err, ShouldBeNil)
				So(entries[0].UserID, ShouldEqual, "aaa")
				So(entries[1].UserID, ShouldEqual, "bbb")
			})
		})

		Convey("When more users exist than requested", func() {
			apply("u1", 10)
			apply("u2", 20)
			apply("u3", 30)

			entries, err := s.TopN(ctx, 2)

			Convey("Then only the top entries come back", func() {
				So(err, ShouldBeNil)
				So(len(entries), ShouldEqual, 2)
				So(entries[0].UserID, ShouldEqual, "u3")
			})
		})

		Convey("When the limit is invalid", func() {
			_, err := s.TopN(ctx, 0)
			So(errors.Is(err, ErrInvalidLimit), ShouldBeTrue)
		})
	})
}

func TestMemoryStoreRankAndCount(t *testing.T) {
	ctx := context.Background()

	Convey("Given a store with two users", t, func() {
		s := NewMemoryStore()
		_, err := s.ApplyAction(ctx, model.Action{UserID: "u1", ActionID: "a1", ActionType: "login", Increment: 10})
		So(err, ShouldBeNil)
		_, err = s.ApplyAction(ctx, model.Action{UserID: "u2", ActionID: "a2", ActionType: "login", Increment: 50})
		So(err, ShouldBeNil)

		Convey("When a known user's rank is requested", func() {
			entry, err := s.Rank(ctx, "u1")

			Convey("Then the rank reflects the full ordering", func() {
				So(err, ShouldBeNil)
				So(entry.Rank, ShouldEqual, 2)
				So(entry.Score, ShouldEqual, 10)
			})
		})

		Convey("When an unknown user's rank is requested", func() {
			_, err := s.Rank(ctx, "ghost")
			So(errors.Is(err, ErrNotFound), ShouldBeTrue)
		})

		Convey("When the user count is requested", func() {
			count, err := s.Count(ctx)
			So(err, ShouldBeNil)
			So(count, ShouldEqual, 2)
		})
	})
}

func TestMemoryStoreConcurrency(t *testing.T) {
	ctx := context.Background()

	Convey("Given concurrent appliers and readers", t, func() {
		s := NewMemoryStore()

		Convey("When they run together", func() {
			const workers = 8
			const perWorker = 25

			var wg sync.WaitGroup
			for w := 0; w < workers; w++ {
				wg.Add(1)
				go func(w int) {
					defer wg.Done()
					for i := 0; i < perWorker; i++ {
						_, _ = s.ApplyAction(ctx, model.Action{
							UserID:     fmt.Sprintf("u%d", w),
							ActionID:   fmt.Sprintf("a%d", i),
							ActionType: "login",
							Increment:  1,
						})
						_, _ = s.TopN(ctx, 5)
					}
				}(w)
			}
			wg.Wait()

			Convey("Then every user's total is intact", func() {
				for w := 0; w < workers; w++ {
					entry, err := s.Rank(ctx, fmt.Sprintf("u%d", w))
					So(err, ShouldBeNil)
					So(entry.Score, ShouldEqual, perWorker)
				}
			})
		})
	})
}
