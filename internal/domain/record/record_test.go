package record_test

import (
	"testing"

	"github.com/voicemetrics/callbridge/internal/domain/record"
	. "github.com/smartystreets/goconvey/convey"
)

func TestParseDiscountCodes(t *testing.T) {
	Convey("Given serialized discount_codes payloads", t, func() {
		Convey("When the payload is well-formed", func() {
			codes := record.ParseDiscountCodes(`[{"code":"OFF5","amount":"5.00"},{"code":"SUMMER"}]`)

			Convey("Then every entry's code is decoded", func() {
				So(codes, ShouldHaveLength, 2)
				So(codes[0].Code, ShouldEqual, "OFF5")
				So(codes[1].Code, ShouldEqual, "SUMMER")
			})
		})

		Convey("When the payload is empty or an empty list", func() {
			Convey("Then no codes are returned", func() {
				So(record.ParseDiscountCodes(""), ShouldBeEmpty)
				So(record.ParseDiscountCodes("[]"), ShouldBeEmpty)
			})
		})

		Convey("When the payload is malformed", func() {
			Convey("Then parsing fails closed to no codes", func() {
				So(record.ParseDiscountCodes("{'code': 'OFF5'}"), ShouldBeEmpty)
				So(record.ParseDiscountCodes("__import__('os')"), ShouldBeEmpty)
				So(record.ParseDiscountCodes("not json"), ShouldBeEmpty)
			})
		})
	})
}

func TestHasCode(t *testing.T) {
	Convey("Given an order's discount payload", t, func() {
		payload := `[{"code":"off5"}]`

		Convey("Then the promo code match is case-insensitive and exact", func() {
			So(record.HasCode(payload, "OFF5"), ShouldBeTrue)
			So(record.HasCode(payload, "OFF50"), ShouldBeFalse)
			So(record.HasCode(payload, ""), ShouldBeFalse)
			So(record.HasCode("[]", "OFF5"), ShouldBeFalse)
			So(record.HasCode("garbage", "OFF5"), ShouldBeFalse)
		})
	})
}

func TestFirstTitle(t *testing.T) {
	Convey("Given serialized line_items payloads", t, func() {
		Convey("Then the first item's title is extracted", func() {
			So(record.FirstTitle(`[{"title":"Widget","qty":2},{"title":"Gadget"}]`), ShouldEqual, "Widget")
		})

		Convey("Then empty and malformed payloads yield no title", func() {
			So(record.FirstTitle(""), ShouldEqual, "")
			So(record.FirstTitle("[]"), ShouldEqual, "")
			So(record.FirstTitle("nope"), ShouldEqual, "")
		})
	})
}

func TestPhoneKeys(t *testing.T) {
	Convey("Given a call and an order for the same line", t, func() {
		c := record.Call{ToNumber: "+1 (510) 941-1358"}
		o := record.Order{Phone: "510-941-1358"}

		Convey("Then both sides derive the same join key", func() {
			So(c.PhoneKey(), ShouldEqual, o.PhoneKey())
			So(c.PhoneKey(), ShouldEqual, "5109411358")
		})
	})
}
