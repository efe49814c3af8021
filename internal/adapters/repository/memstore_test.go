package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/voicemetrics/callbridge/internal/adapters/repository"
	"github.com/voicemetrics/callbridge/internal/domain/record"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMemStore(t *testing.T) {
	Convey("Given an in-memory store", t, func() {
		ctx := context.Background()
		store := repository.NewMemStore(
			repository.WithCostBasis([]record.CostBasisEntry{{ProductTitle: "widget", UnitCost: 40}}),
		)

		Convey("When upserting a call twice under the same ID", func() {
			c := record.Call{ID: "c1", ToNumber: "5551234567", DurationSec: 10}
			So(store.UpsertCall(ctx, c), ShouldBeNil)
			c.DurationSec = 99
			So(store.UpsertCall(ctx, c), ShouldBeNil)

			Convey("Then the re-fetch wins and no duplicate exists", func() {
				calls, err := store.Calls(ctx)
				So(err, ShouldBeNil)
				So(calls, ShouldHaveLength, 1)
				So(calls[0].DurationSec, ShouldEqual, 99)
			})
		})

		Convey("When upserting orders keyed by order number", func() {
			So(store.UpsertOrder(ctx, record.Order{OrderNumber: "A1", TotalPrice: 90}), ShouldBeNil)
			So(store.UpsertOrder(ctx, record.Order{OrderNumber: "A1", TotalPrice: 100}), ShouldBeNil)
			So(store.UpsertOrder(ctx, record.Order{OrderNumber: "B2", TotalPrice: 50}), ShouldBeNil)

			Convey("Then the snapshot holds one row per order number", func() {
				orders, err := store.Orders(ctx)
				So(err, ShouldBeNil)
				So(orders, ShouldHaveLength, 2)
				So(orders[0].TotalPrice, ShouldEqual, 100)
			})
		})

		Convey("When replacing the reconciled dataset", func() {
			rows := []record.Reconciled{
				{PhoneKey: "5551234567", OrderNumber: "A1", Title: "Widget", CallStartedAt: time.Now()},
			}
			n, err := store.ReplaceReconciled(ctx, rows)
			So(err, ShouldBeNil)
			So(n, ShouldEqual, 1)

			n, err = store.ReplaceReconciled(ctx, nil)
			So(err, ShouldBeNil)

			Convey("Then the old dataset is fully swapped out", func() {
				So(n, ShouldEqual, 0)
				got, err := store.Reconciled(ctx)
				So(err, ShouldBeNil)
				So(got, ShouldBeEmpty)
			})
		})

		Convey("When asking for counts", func() {
			So(store.UpsertCall(ctx, record.Call{ID: "c1"}), ShouldBeNil)
			counts, err := store.Counts(ctx)

			Convey("Then every table is reported", func() {
				So(err, ShouldBeNil)
				So(counts.Calls, ShouldEqual, 1)
				So(counts.CostBasis, ShouldEqual, 1)
			})
		})
	})
}
