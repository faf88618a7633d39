package ratelimit_test

import (
	"testing"
	"time"

	"github.com/okian/rebar/internal/domain/identity"
	"github.com/okian/rebar/internal/domain/ratelimit"
	. "github.com/smartystreets/goconvey/convey"
)

func TestLedger(t *testing.T) {
	Convey("Given a ledger with default limits", t, func() {
		l := ratelimit.NewLedger()
		caller := identity.CallerID(11)
		now := 1_700_000_000.0

		Convey("When a new submitter asks", func() {
			Convey("Then it should be allowed", func() {
				So(l.Allow(caller, now), ShouldBeTrue)
			})
		})

		Convey("When a submitter books ten submissions within the hour", func() {
			for i := 0; i < 10; i++ {
				So(l.Allow(caller, now+float64(i)), ShouldBeTrue)
				l.Record(caller, now+float64(i))
			}

			Convey("Then the eleventh should be refused", func() {
				So(l.Allow(caller, now+60), ShouldBeFalse)
				e, ok := l.Get(caller)
				So(ok, ShouldBeTrue)
				So(e.Count, ShouldEqual, 10)
			})

			Convey("And after the window lapses it should be allowed and reseeded", func() {
				later := now + 9 + time.Hour.Seconds() + 1
				So(l.Allow(caller, later), ShouldBeTrue)
				l.Record(caller, later)

				e, _ := l.Get(caller)
				So(e.Count, ShouldEqual, ratelimit.DefaultReseed)
				So(e.LastTime, ShouldEqual, later)
			})

			Convey("And other submitters should be unaffected", func() {
				So(l.Allow(identity.CallerID(12), now+60), ShouldBeTrue)
			})
		})

		Convey("When exactly one window has elapsed", func() {
			for i := 0; i < 10; i++ {
				l.Record(caller, now)
			}

			Convey("Then the gate should still be closed", func() {
				So(l.Allow(caller, now+time.Hour.Seconds()), ShouldBeFalse)
			})
		})

		Convey("When restoring entries", func() {
			src := map[identity.CallerID]ratelimit.Entry{1: {LastTime: 5, Count: 2}}
			l.Restore(src)
			src[2] = ratelimit.Entry{}

			Convey("Then the ledger should hold its own copy", func() {
				So(l.Len(), ShouldEqual, 1)
				So(l.Entries(), ShouldResemble, map[identity.CallerID]ratelimit.Entry{1: {LastTime: 5, Count: 2}})
			})
		})
	})
}

func TestLedgerOptions(t *testing.T) {
	Convey("Given a ledger with custom options", t, func() {
		l := ratelimit.NewLedger(
			ratelimit.WithLimit(2),
			ratelimit.WithWindow(time.Minute),
			ratelimit.WithReseed(1),
		)
		caller := identity.CallerID(3)

		l.Record(caller, 100)
		l.Record(caller, 101)

		So(l.Allow(caller, 102), ShouldBeFalse)
		So(l.Allow(caller, 162), ShouldBeTrue)

		l.Record(caller, 162)
		e, _ := l.Get(caller)
		So(e.Count, ShouldEqual, 1)
	})

	Convey("Given invalid options", t, func() {
		l := ratelimit.NewLedger(ratelimit.WithLimit(0), ratelimit.WithWindow(-time.Second), ratelimit.WithReseed(-1))
		caller := identity.CallerID(4)
		for i := 0; i < ratelimit.DefaultLimit; i++ {
			l.Record(caller, 0)
		}

		Convey("Then defaults should be kept", func() {
			So(l.Allow(caller, 10), ShouldBeFalse)
			So(l.Allow(caller, 3601), ShouldBeTrue)
		})
	})
}
