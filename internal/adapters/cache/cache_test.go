package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/tally/internal/adapters/repository"
	"github.com/okian/tally/internal/domain/model"
)

// countingStore wraps a MemoryStore and counts TopN scans.
type countingStore struct {
	*repository.MemoryStore
	topNCalls int
}

func (c *countingStore) TopN(ctx context.Context, n int) ([]repository.Entry, error) {
	c.topNCalls++
	return c.MemoryStore.TopN(ctx, n)
}

func seed(t *testing.T, s *repository.MemoryStore, userID string, score int64) {
	t.Helper()
	_, err := s.ApplyAction(context.Background(), model.Action{
		UserID: userID, Username: userID, ActionID: userID + "-seed", ActionType: "login", Increment: score,
	})
	if err != nil {
		t.Fatalf("seed %s: %v", userID, err)
	}
}

func TestLeaderboardQuery(t *testing.T) {
	ctx := context.Background()

	Convey("Given a cache over a store with five users", t, func() {
		store := &countingStore{MemoryStore: repository.NewMemoryStore()}
		for i, userID := range []string{"u1", "u2", "u3", "u4", "u5"} {
			seed(t, store.MemoryStore, userID, int64((i+1)*10))
		}

		now := time.Unix(1000, 0)
		board := New(store,
			WithTopK(3),
			WithTTL(5*time.Second),
			WithClock(func() time.Time { return now }),
		)

		Convey("When queried repeatedly within the TTL", func() {
			first, err := board.Query(ctx, 3)
			So(err, ShouldBeNil)
			second, err := board.Query(ctx, 3)
			So(err, ShouldBeNil)

			Convey("Then only the first query should scan the store", func() {
				So(store.topNCalls, ShouldEqual, 1)
				So(len(first), ShouldEqual, 3)
				So(first[0].UserID, ShouldEqual, "u5")
				So(second[0].UserID, ShouldEqual, "u5")
			})
		})

		Convey("When the snapshot ages past the TTL", func() {
			_, err := board.Query(ctx, 3)
			So(err, ShouldBeNil)
			now = now.Add(6 * time.Second)
			_, err = board.Query(ctx, 3)
			So(err, ShouldBeNil)

			Convey("Then the second query should recompute", func() {
				So(store.topNCalls, ShouldEqual, 2)
			})
		})

		Convey("When the limit is below the cached prefix", func() {
			entries, err := board.Query(ctx, 1)

			Convey("Then it should serve the prefix from the snapshot", func() {
				So(err, ShouldBeNil)
				So(len(entries), ShouldEqual, 1)
				So(entries[0].UserID, ShouldEqual, "u5")
			})
		})

		Convey("When the limit exceeds the cached top-K", func() {
			entries, err := board.Query(ctx, 5)

			Convey("Then it should read through to the store", func() {
				So(err, ShouldBeNil)
				So(len(entries), ShouldEqual, 5)
				So(entries[4].UserID, ShouldEqual, "u1")
			})

			Convey("And a subsequent small query stays warm", func() {
				calls := store.topNCalls
				_, err := board.Query(ctx, 2)
				So(err, ShouldBeNil)
				So(store.topNCalls, ShouldEqual, calls)
			})
		})

		Convey("When the limit is invalid", func() {
			_, err := board.Query(ctx, 0)
			So(errors.Is(err, repository.ErrInvalidLimit), ShouldBeTrue)
		})
	})
}

func TestLeaderboardNotify(t *testing.T) {
	ctx := context.Background()

	Convey("Given a warm cache holding the top three of five users", t, func() {
		store := &countingStore{MemoryStore: repository.NewMemoryStore()}
		for i, userID := range []string{"u1", "u2", "u3", "u4", "u5"} {
			seed(t, store.MemoryStore, userID, int64((i+1)*10))
		}
		board := New(store, WithTopK(3), WithTTL(time.Hour))
		_, err := board.Query(ctx, 3)
		So(err, ShouldBeNil)

		// Cached: u5=50, u4=40, u3=30. Kth score is 30.

		Convey("When a cached user's score changes", func() {
			invalidated := board.Notify("u5", 60)

			Convey("Then the snapshot should be invalidated", func() {
				So(invalidated, ShouldBeTrue)
				So(board.Stale(), ShouldBeTrue)
			})
		})

		Convey("When an outside user reaches the Kth score", func() {
			invalidated := board.Notify("u2", 30)

			Convey("Then the snapshot should be invalidated", func() {
				So(invalidated, ShouldBeTrue)
			})
		})

		Convey("When an outside user stays below the Kth score", func() {
			invalidated := board.Notify("u1", 29)

			Convey("Then the snapshot should survive", func() {
				So(invalidated, ShouldBeFalse)
				So(board.Stale(), ShouldBeFalse)
			})
		})

		Convey("When the snapshot was invalidated", func() {
			board.Notify("u5", 60)
			seed(t, store.MemoryStore, "u5", 10)

			entries, err := board.Query(ctx, 3)

			Convey("Then the next query should recompute from the store", func() {
				So(err, ShouldBeNil)
				So(entries[0].UserID, ShouldEqual, "u5")
				So(entries[0].Score, ShouldEqual, 60)
			})
		})
	})

	Convey("Given a cache over a board smaller than top-K", t, func() {
		store := &countingStore{MemoryStore: repository.NewMemoryStore()}
		seed(t, store.MemoryStore, "u1", 10)
		board := New(store, WithTopK(3), WithTTL(time.Hour))
		_, err := board.Query(context.Background(), 3)
		So(err, ShouldBeNil)

		Convey("When any new user scores", func() {
			invalidated := board.Notify("u2", 1)

			Convey("Then the snapshot should be invalidated; the board has room", func() {
				So(invalidated, ShouldBeTrue)
			})
		})
	})
}

func TestLeaderboardRank(t *testing.T) {
	ctx := context.Background()

	Convey("Given a warm cache holding the top two of three users", t, func() {
		store := &countingStore{MemoryStore: repository.NewMemoryStore()}
		seed(t, store.MemoryStore, "u1", 10)
		seed(t, store.MemoryStore, "u2", 20)
		seed(t, store.MemoryStore, "u3", 30)
		board := New(store, WithTopK(2), WithTTL(time.Hour))
		_, err := board.Query(ctx, 2)
		So(err, ShouldBeNil)

		Convey("When a cached user's rank is requested", func() {
			entry, err := board.Rank(ctx, "u3")

			Convey("Then it should serve from the snapshot", func() {
				So(err, ShouldBeNil)
				So(entry.Rank, ShouldEqual, 1)
			})
		})

		Convey("When an uncached user's rank is requested", func() {
			entry, err := board.Rank(ctx, "u1")

			Convey("Then it should fall back to the store", func() {
				So(err, ShouldBeNil)
				So(entry.Rank, ShouldEqual, 3)
			})
		})

		Convey("When an unknown user's rank is requested", func() {
			_, err := board.Rank(ctx, "ghost")
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
		})
	})
}
