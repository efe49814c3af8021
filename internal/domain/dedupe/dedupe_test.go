package dedupe_test

import (
	"context"
	"testing"
	"time"

	"github.com/voicemetrics/callbridge/internal/domain/costbasis"
	"github.com/voicemetrics/callbridge/internal/domain/dedupe"
	"github.com/voicemetrics/callbridge/internal/domain/linker"
	"github.com/voicemetrics/callbridge/internal/domain/record"
	. "github.com/smartystreets/goconvey/convey"
)

func TestDeduplicate(t *testing.T) {
	Convey("Given joined rows with duplicate (phone, order, title) groups", t, func() {
		ctx := context.Background()
		costs := costbasis.NewInMemoryResolver(
			costbasis.WithEntries([]record.CostBasisEntry{{ProductTitle: "widget", UnitCost: 40}}),
		)

		start := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
		older := record.Order{OrderNumber: "A1", Phone: "5551234567", Title: "Widget", CreatedAt: start, TotalPrice: 90, Email: "old@x.com"}
		newer := older
		newer.CreatedAt = start.Add(time.Hour)
		newer.TotalPrice = 100
		newer.Email = "new@x.com"

		call := record.Call{ID: "c1", ToNumber: "555-123-4567", StartedAt: start, DurationSec: 120}

		joined := linker.Link(ctx, []record.Order{older, newer}, []record.Call{call})

		Convey("When deduplicating", func() {
			out := dedupe.Deduplicate(ctx, joined, costs)

			Convey("Then exactly one row survives per group", func() {
				So(out, ShouldHaveLength, 1)
			})

			Convey("Then the most recent order snapshot is authoritative", func() {
				So(out[0].TotalPrice, ShouldEqual, 100)
				So(out[0].Email, ShouldEqual, "new@x.com")
				So(out[0].OrderCreatedAt, ShouldEqual, newer.CreatedAt)
			})

			Convey("Then the resolved cost comes from the cost-basis table", func() {
				So(out[0].Cost, ShouldEqual, 40)
			})
		})

		Convey("When two calls hit the same phone for one order", func() {
			second := call
			second.ID = "c2"
			second.StartedAt = start.Add(10 * time.Minute)
			j := linker.Link(ctx, []record.Order{newer}, []record.Call{call, second})
			out := dedupe.Deduplicate(ctx, j, costs)

			Convey("Then the pair still collapses to one reconciled row", func() {
				So(j, ShouldHaveLength, 2)
				So(out, ShouldHaveLength, 1)
			})
		})

		Convey("When the output is checked for the dedup invariant", func() {
			many := linker.Link(ctx,
				[]record.Order{older, newer, {OrderNumber: "B2", Phone: "5551234567", Title: "Widget", CreatedAt: start}},
				[]record.Call{call},
			)
			out := dedupe.Deduplicate(ctx, many, costs)

			Convey("Then no two rows share the full triple", func() {
				type key struct{ p, o, t string }
				seen := map[key]bool{}
				for _, r := range out {
					k := key{r.PhoneKey, r.OrderNumber, r.Title}
					So(seen[k], ShouldBeFalse)
					seen[k] = true
				}
			})
		})
	})
}

func TestEmailResolution(t *testing.T) {
	Convey("Given rows with emails missing on one or both sides", t, func() {
		ctx := context.Background()
		costs := costbasis.NewInMemoryResolver()
		start := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

		mk := func(orderEmail, callEmail string) record.Reconciled {
			j := linker.Link(ctx,
				[]record.Order{{OrderNumber: "A1", Phone: "5551234567", Title: "Widget", CreatedAt: start, Email: orderEmail}},
				[]record.Call{{ID: "c1", ToNumber: "5551234567", StartedAt: start, Email: callEmail}},
			)
			out := dedupe.Deduplicate(ctx, j, costs)
			So(out, ShouldHaveLength, 1)
			return out[0]
		}

		Convey("Then the order-side email wins when present", func() {
			So(mk("o@x.com", "c@x.com").Email, ShouldEqual, "o@x.com")
		})

		Convey("Then the call-side email is the fallback", func() {
			So(mk("", "c@x.com").Email, ShouldEqual, "c@x.com")
		})

		Convey("Then the sentinel is used when both are missing", func() {
			So(mk("", "").Email, ShouldEqual, record.EmailUnknown)
		})
	})
}
