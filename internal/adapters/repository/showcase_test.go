package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/okian/rebar/internal/domain/identity"
	"github.com/okian/rebar/internal/domain/model"
	"github.com/okian/rebar/internal/domain/ratelimit"
	"github.com/smartystreets/goconvey/convey"
)

func newItem(owner, repo, desc string, submitter identity.CallerID) model.Item {
	return model.Item{
		Description: desc,
		Source:      model.GitHubSource{Owner: owner, Repo: repo},
		Submitter:   submitter,
	}
}

func TestMemoryStore_Submit(t *testing.T) {
	convey.Convey("Given an empty store on a fake clock", t, func() {
		ctx := context.Background()
		clock := clockwork.NewFakeClockAt(time.Unix(1000, 0))
		store := NewMemoryStore(WithClock(clock))

		convey.Convey("When an item is submitted", func() {
			idx, err := store.Submit(ctx, newItem("golang", "go", "the go toolchain", 1))

			convey.Convey("Then it gets index 0 and is stamped with the clock", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(idx, convey.ShouldEqual, 0)
				it, ok := store.GetItem(ctx, 0)
				convey.So(ok, convey.ShouldBeTrue)
				convey.So(it.SubmittedAt, convey.ShouldEqual, 1000.0)
				convey.So(it.Votes, convey.ShouldEqual, 0)
			})

			convey.Convey("Then the submit weight triggers a recompute", func() {
				convey.So(store.ListRanked(ctx), convey.ShouldResemble, []int{0})
				convey.So(store.Stats(ctx).Pending, convey.ShouldEqual, 0)
			})
		})

		convey.Convey("When another submitter posts the same source and description", func() {
			_, err := store.Submit(ctx, newItem("golang", "go", "the go toolchain", 1))
			convey.So(err, convey.ShouldBeNil)
			_, err = store.Submit(ctx, newItem("golang", "go", "the go toolchain", 2))

			convey.Convey("Then it is rejected as a duplicate and the store is unchanged", func() {
				convey.So(errors.Is(err, ErrDuplicate), convey.ShouldBeTrue)
				convey.So(store.Stats(ctx).Items, convey.ShouldEqual, 1)
			})
		})

		convey.Convey("When the same source is posted with a different description", func() {
			_, err := store.Submit(ctx, newItem("golang", "go", "the go toolchain", 1))
			convey.So(err, convey.ShouldBeNil)
			idx, err := store.Submit(ctx, newItem("golang", "go", "a compiler", 1))

			convey.Convey("Then both are kept", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(idx, convey.ShouldEqual, 1)
			})
		})

		convey.Convey("When an item has no source", func() {
			_, err := store.Submit(ctx, model.Item{Description: "nothing"})

			convey.Convey("Then it is rejected as invalid", func() {
				convey.So(errors.Is(err, ErrInvalidItem), convey.ShouldBeTrue)
				convey.So(store.Stats(ctx).Items, convey.ShouldEqual, 0)
			})
		})
	})
}

func TestMemoryStore_RateLimit(t *testing.T) {
	convey.Convey("Given a store with the default hourly gate", t, func() {
		ctx := context.Background()
		clock := clockwork.NewFakeClockAt(time.Unix(1000, 0))
		store := NewMemoryStore(WithClock(clock))
		const submitter = identity.CallerID(42)

		for i := 0; i < ratelimit.DefaultLimit; i++ {
			_, err := store.Submit(ctx, newItem("owner", fmt.Sprintf("repo%d", i), "d", submitter))
			convey.So(err, convey.ShouldBeNil)
		}

		convey.Convey("When the eleventh submission arrives within the hour", func() {
			_, err := store.Submit(ctx, newItem("owner", "late", "d", submitter))

			convey.Convey("Then it is rate limited and nothing is recorded", func() {
				convey.So(errors.Is(err, ErrRateLimited), convey.ShouldBeTrue)
				convey.So(store.Stats(ctx).Items, convey.ShouldEqual, ratelimit.DefaultLimit)
			})

			convey.Convey("Then another submitter is unaffected", func() {
				_, err := store.Submit(ctx, newItem("owner", "late", "d", submitter+1))
				convey.So(err, convey.ShouldBeNil)
			})

			convey.Convey("Then the rejected content can be submitted once the window lapses", func() {
				clock.Advance(time.Hour + time.Second)
				_, err := store.Submit(ctx, newItem("owner", "late", "d", submitter))
				convey.So(err, convey.ShouldBeNil)
			})
		})

		convey.Convey("When the window lapses", func() {
			clock.Advance(time.Hour + time.Second)

			convey.Convey("Then the count is reseeded rather than reset", func() {
				accepted := 0
				for i := 0; i < ratelimit.DefaultLimit; i++ {
					if _, err := store.Submit(ctx, newItem("next", fmt.Sprintf("repo%d", i), "d", submitter)); err == nil {
						accepted++
					}
				}
				convey.So(accepted, convey.ShouldEqual, ratelimit.DefaultLimit-ratelimit.DefaultReseed+1)
			})
		})

		convey.Convey("When exactly one hour has passed", func() {
			clock.Advance(time.Hour)

			convey.Convey("Then the window has not lapsed yet", func() {
				_, err := store.Submit(ctx, newItem("owner", "edge", "d", submitter))
				convey.So(errors.Is(err, ErrRateLimited), convey.ShouldBeTrue)
			})
		})
	})
}

func TestMemoryStore_Vote(t *testing.T) {
	convey.Convey("Given a store with one item and no automatic recompute", t, func() {
		ctx := context.Background()
		store := NewMemoryStore(
			WithClock(clockwork.NewFakeClockAt(time.Unix(1000, 0))),
			WithRecomputeTrigger(0, 1, 1000),
		)
		_, err := store.Submit(ctx, newItem("a", "b", "c", 1))
		convey.So(err, convey.ShouldBeNil)

		convey.Convey("When the same caller votes twice", func() {
			first := store.Vote(ctx, 0, 9)
			second := store.Vote(ctx, 0, 9)

			convey.Convey("Then only the first vote counts", func() {
				convey.So(first, convey.ShouldBeTrue)
				convey.So(second, convey.ShouldBeFalse)
				it, _ := store.GetItem(ctx, 0)
				convey.So(it.Votes, convey.ShouldEqual, 1)
				convey.So(it.HasVoted(9), convey.ShouldBeTrue)
			})

			convey.Convey("Then both requests advance the pending counter", func() {
				convey.So(store.Stats(ctx).Pending, convey.ShouldEqual, 2)
			})
		})

		convey.Convey("When voting for an index that does not exist", func() {
			applied := store.Vote(ctx, 7, 9)
			negative := store.Vote(ctx, -1, 9)

			convey.Convey("Then nothing changes except the pending counter", func() {
				convey.So(applied, convey.ShouldBeFalse)
				convey.So(negative, convey.ShouldBeFalse)
				it, _ := store.GetItem(ctx, 0)
				convey.So(it.Votes, convey.ShouldEqual, 0)
				convey.So(store.Stats(ctx).Pending, convey.ShouldEqual, 2)
			})
		})

		convey.Convey("When a returned item is modified", func() {
			it, _ := store.GetItem(ctx, 0)
			it.Upvote(5)

			convey.Convey("Then the stored item is untouched", func() {
				again, _ := store.GetItem(ctx, 0)
				convey.So(again.Votes, convey.ShouldEqual, 0)
				convey.So(again.HasVoted(5), convey.ShouldBeFalse)
			})
		})
	})
}

func TestMemoryStore_Recompute(t *testing.T) {
	convey.Convey("Given two items submitted a thousand seconds apart", t, func() {
		ctx := context.Background()
		store := NewMemoryStore()

		a := newItem("alpha", "one", "older", 1)
		a.SubmittedAt = 1000
		b := newItem("beta", "two", "newer", 2)
		b.SubmittedAt = 2000
		_, err := store.Submit(ctx, a)
		convey.So(err, convey.ShouldBeNil)
		_, err = store.Submit(ctx, b)
		convey.So(err, convey.ShouldBeNil)

		convey.Convey("Then the newer item ranks first", func() {
			convey.So(store.ListRanked(ctx), convey.ShouldResemble, []int{1, 0})
		})

		convey.Convey("When twenty distinct callers vote for the older item", func() {
			for c := 0; c < 20; c++ {
				store.Vote(ctx, 0, identity.CallerID(100+c))
			}
			store.Recompute(ctx)

			convey.Convey("Then the older item overtakes", func() {
				convey.So(store.ListRanked(ctx), convey.ShouldResemble, []int{0, 1})
				it, _ := store.GetItem(ctx, 0)
				convey.So(it.Votes, convey.ShouldEqual, 20)
			})

			convey.Convey("Then recomputing again changes nothing", func() {
				before := store.ListRanked(ctx)
				store.Recompute(ctx)
				convey.So(store.ListRanked(ctx), convey.ShouldResemble, before)
				convey.So(store.Stats(ctx).Pending, convey.ShouldEqual, 0)
			})
		})
	})

	convey.Convey("Given items with equal scores", t, func() {
		ctx := context.Background()
		store := NewMemoryStore()
		for i := 0; i < 3; i++ {
			it := newItem("tie", fmt.Sprintf("r%d", i), "same", identity.CallerID(i))
			it.SubmittedAt = 5000
			_, err := store.Submit(ctx, it)
			convey.So(err, convey.ShouldBeNil)
		}

		convey.Convey("Then the lower index ranks first", func() {
			convey.So(store.ListRanked(ctx), convey.ShouldResemble, []int{0, 1, 2})
		})
	})
}

func TestMemoryStore_Retention(t *testing.T) {
	convey.Convey("Given six hundred submissions", t, func() {
		ctx := context.Background()
		store := NewMemoryStore()
		const total = 600

		for i := 0; i < total; i++ {
			it := newItem("owner", fmt.Sprintf("repo%d", i), "d", identity.CallerID(i%identity.Space))
			// Alternate timestamps so score order differs from index order.
			it.SubmittedAt = float64(10000 + (i%7)*100 + i)
			_, err := store.Submit(ctx, it)
			convey.So(err, convey.ShouldBeNil)
		}
		store.Vote(ctx, 50, 1)  // outside the window
		store.Vote(ctx, 599, 1) // inside the window
		store.Recompute(ctx)

		ranked := store.ListRanked(ctx)

		convey.Convey("Then the ranked view holds only the most recent retention window", func() {
			convey.So(len(ranked), convey.ShouldEqual, DefaultRetention)
			for _, idx := range ranked {
				convey.So(idx, convey.ShouldBeGreaterThanOrEqualTo, total-DefaultRetention)
			}
		})

		convey.Convey("Then it is sorted by descending score", func() {
			for i := 1; i < len(ranked); i++ {
				prev, _ := store.Score(ctx, ranked[i-1])
				cur, _ := store.Score(ctx, ranked[i])
				convey.So(prev, convey.ShouldBeGreaterThanOrEqualTo, cur)
			}
		})

		convey.Convey("Then old items stay readable", func() {
			it, ok := store.GetItem(ctx, 50)
			convey.So(ok, convey.ShouldBeTrue)
			convey.So(it.Votes, convey.ShouldEqual, 1)
		})
	})
}

func TestMemoryStore_ExportImport(t *testing.T) {
	convey.Convey("Given a populated store", t, func() {
		ctx := context.Background()
		clock := clockwork.NewFakeClockAt(time.Unix(1000, 0))
		src := NewMemoryStore(WithClock(clock))
		for i := 0; i < 4; i++ {
			_, err := src.Submit(ctx, newItem("o", fmt.Sprintf("r%d", i), "d", identity.CallerID(i)))
			convey.So(err, convey.ShouldBeNil)
			clock.Advance(time.Minute)
		}
		src.Vote(ctx, 2, 77)

		convey.Convey("When the state is imported into a fresh store", func() {
			st := src.Export(ctx)
			dst := NewMemoryStore(WithClock(clock))
			convey.So(dst.Import(ctx, st), convey.ShouldBeNil)

			convey.Convey("Then the ranked view and items match", func() {
				convey.So(dst.ListRanked(ctx), convey.ShouldResemble, src.ListRanked(ctx))
				it, ok := dst.GetItem(ctx, 2)
				convey.So(ok, convey.ShouldBeTrue)
				convey.So(it.HasVoted(77), convey.ShouldBeTrue)
				convey.So(dst.Stats(ctx), convey.ShouldResemble, src.Stats(ctx))
			})

			convey.Convey("Then deduplication and voter sets survive", func() {
				_, err := dst.Submit(ctx, newItem("o", "r1", "d", 99))
				convey.So(errors.Is(err, ErrDuplicate), convey.ShouldBeTrue)
				convey.So(dst.Vote(ctx, 2, 77), convey.ShouldBeFalse)
			})
		})

		convey.Convey("When the exported state is mutated", func() {
			st := src.Export(ctx)
			st.Ranked[0] = 3
			st.Items[2].Upvote(1234)

			convey.Convey("Then the source store is unaffected", func() {
				it, _ := src.GetItem(ctx, 2)
				convey.So(it.HasVoted(1234), convey.ShouldBeFalse)
			})
		})

		convey.Convey("When the seen set is missing from a snapshot", func() {
			st := src.Export(ctx)
			st.Seen = nil
			dst := NewMemoryStore()
			convey.So(dst.Import(ctx, st), convey.ShouldBeNil)

			convey.Convey("Then canonical keys are rebuilt from the items", func() {
				_, err := dst.Submit(ctx, newItem("o", "r0", "d", 99))
				convey.So(errors.Is(err, ErrDuplicate), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the state is corrupt", func() {
			dst := NewMemoryStore()
			corruptions := []func(*State){
				func(st *State) { st.Ranked = append(st.Ranked, 10) },
				func(st *State) { st.Ranked = []int{0, 0} },
				func(st *State) { st.Items[0].Votes = -1 },
				func(st *State) { st.Items[1].Votes = 3 },
				func(st *State) { st.Items[3].Source = nil },
				func(st *State) { st.Pending = -2 },
			}

			for _, corrupt := range corruptions {
				st := src.Export(ctx)
				corrupt(st)
				convey.So(errors.Is(dst.Import(ctx, st), ErrCorruptState), convey.ShouldBeTrue)
			}

			convey.Convey("Then the target store is left untouched", func() {
				convey.So(dst.Stats(ctx).Items, convey.ShouldEqual, 0)
			})
		})

		convey.Convey("When the ranked view exceeds the retention window", func() {
			st := src.Export(ctx)
			dst := NewMemoryStore(WithRetention(2))

			convey.So(errors.Is(dst.Import(ctx, st), ErrCorruptState), convey.ShouldBeTrue)
		})

		convey.Convey("When the state is nil", func() {
			convey.So(errors.Is(NewMemoryStore().Import(ctx, nil), ErrCorruptState), convey.ShouldBeTrue)
		})
	})
}

func TestMemoryStore_Concurrent(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	const workers = 8
	const perWorker = 50

	var wg sync.WaitGroup
	var mu sync.Mutex
	accepted := 0

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				// Every worker races for the same content.
				_, err := store.Submit(ctx, newItem("race", fmt.Sprintf("r%d", i), "d", identity.CallerID(w*perWorker+i)))
				if err == nil {
					mu.Lock()
					accepted++
					mu.Unlock()
				}
				store.Vote(ctx, i, identity.CallerID(w))
				_ = store.ListRanked(ctx)
			}
		}(w)
	}
	wg.Wait()

	if accepted != perWorker {
		t.Fatalf("expected %d accepted submissions, got %d", perWorker, accepted)
	}
	for i := 0; i < perWorker; i++ {
		it, ok := store.GetItem(ctx, i)
		if !ok {
			t.Fatalf("item %d missing", i)
		}
		if it.Votes != len(it.Voters) {
			t.Fatalf("item %d: votes %d != voters %d", i, it.Votes, len(it.Voters))
		}
		if it.Votes > workers {
			t.Fatalf("item %d: %d votes from %d callers", i, it.Votes, workers)
		}
	}
}
