package dedupe_test

import (
	"context"
	"testing"
	"time"

	dedupe "github.com/okian/covidtrend/internal/domain/dedupe"
	. "github.com/smartystreets/goconvey/convey"
)

func TestInMemoryDeduper(t *testing.T) {
	Convey("Given a new InMemoryDeduper", t, func() {
		ctx := context.Background()
		d := dedupe.NewInMemoryDeduper(4)

		Convey("Then it starts empty", func() {
			So(d.Size(), ShouldEqual, 0)
		})

		Convey("When recording a new key", func() {
			seen := d.SeenAndRecord(ctx, "Italy|2020-03-01")

			Convey("Then it should return false and record the key", func() {
				So(seen, ShouldBeFalse)
				So(d.Size(), ShouldEqual, 1)
			})
		})

		Convey("When recording the same key twice", func() {
			d.SeenAndRecord(ctx, "Italy|2020-03-01")
			seen := d.SeenAndRecord(ctx, "Italy|2020-03-01")

			Convey("Then the second call reports it as seen", func() {
				So(seen, ShouldBeTrue)
				So(d.Size(), ShouldEqual, 1)
			})
		})

		Convey("When recording more keys than the size hint", func() {
			for i := 0; i < 10; i++ {
				d.SeenAndRecord(ctx, dedupe.ObservationKey("Spain", time.Date(2020, 3, 1+i, 0, 0, 0, 0, time.UTC)))
			}

			Convey("Then nothing is evicted", func() {
				So(d.Size(), ShouldEqual, 10)
				So(d.SeenAndRecord(ctx, dedupe.ObservationKey("Spain", time.Date(2020, 3, 1, 0, 0, 0, 0, time.UTC))), ShouldBeTrue)
			})
		})
	})

	Convey("Given a negative size hint", t, func() {
		d := dedupe.NewInMemoryDeduper(-1)

		Convey("Then the deduper is still usable", func() {
			So(d.SeenAndRecord(context.Background(), "x"), ShouldBeFalse)
		})
	})
}

func TestObservationKey(t *testing.T) {
	Convey("Given a country and a date", t, func() {
		date := time.Date(2020, 3, 1, 0, 0, 0, 0, time.UTC)

		Convey("Then the key joins them with the ISO date", func() {
			So(dedupe.ObservationKey("United Kingdom", date), ShouldEqual, "United Kingdom|2020-03-01")
		})
	})
}
