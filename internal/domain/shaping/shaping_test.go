package shaping_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/okian/covidtrend/internal/domain/model"
	"github.com/okian/covidtrend/internal/domain/shaping"
	. "github.com/smartystreets/goconvey/convey"
)

var header = []string{"Province/State", "Country/Region", "Lat", "Long", "3/1/20", "3/2/20", "3/3/20"}

var records = [][]string{
	{"", "Italy", "41.8", "12.5", "34", "52", "79"},
	{"Ontario", "Canada", "51.2", "-85.3", "0", "0", "1"},
	{"British Columbia", "Canada", "53.7", "-127.6", "1", "1", "1"},
	{"", "Finland", "61.9", "25.7", "0", "0", ""},
	{"Bermuda", "United Kingdom", "32.3", "-64.7", "0", "0", "0"},
	{"", "United Kingdom", "55.3", "-3.4", "0", "0", "1"},
}

func day(s string) time.Time {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestClean(t *testing.T) {
	Convey("Given a raw deaths table", t, func() {
		Convey("When cleaning it", func() {
			wide, err := shaping.Clean(header, records)

			Convey("Then qualifier columns are dropped and values parsed", func() {
				So(err, ShouldBeNil)
				So(wide.Dates, ShouldResemble, []string{"3/1/20", "3/2/20", "3/3/20"})
				So(wide.Rows, ShouldHaveLength, 6)
				So(wide.Rows[0], ShouldResemble, model.WideRow{Country: "Italy", Values: []int{34, 52, 79}})
			})

			Convey("Then empty cells count as zero", func() {
				So(wide.Rows[3].Values, ShouldResemble, []int{0, 0, 0})
			})
		})

		Convey("When the country column is missing", func() {
			_, err := shaping.Clean([]string{"Lat", "1/1/20"}, nil)

			Convey("Then ErrMissingColumn is returned", func() {
				So(errors.Is(err, shaping.ErrMissingColumn), ShouldBeTrue)
			})
		})

		Convey("When a value is not a count", func() {
			bad := [][]string{{"", "Italy", "0", "0", "1", "two", "3"}}
			_, err := shaping.Clean(header, bad)

			Convey("Then ErrMalformedRow names the row and column", func() {
				So(errors.Is(err, shaping.ErrMalformedRow), ShouldBeTrue)
				So(err.Error(), ShouldContainSubstring, "Italy")
				So(err.Error(), ShouldContainSubstring, "3/2/20")
			})
		})

		Convey("When a value is negative", func() {
			bad := [][]string{{"", "Italy", "0", "0", "1", "-2", "3"}}
			_, err := shaping.Clean(header, bad)

			Convey("Then ErrMalformedRow is returned", func() {
				So(errors.Is(err, shaping.ErrMalformedRow), ShouldBeTrue)
			})
		})

		Convey("When a record has no country", func() {
			bad := [][]string{{"", " ", "0", "0", "1", "2", "3"}}
			_, err := shaping.Clean(header, bad)

			Convey("Then ErrMalformedRow is returned", func() {
				So(errors.Is(err, shaping.ErrMalformedRow), ShouldBeTrue)
			})
		})
	})
}

func TestAggregateAndFilter(t *testing.T) {
	Convey("Given a cleaned table", t, func() {
		wide, err := shaping.Clean(header, records)
		So(err, ShouldBeNil)

		Convey("When aggregating", func() {
			agg := shaping.Aggregate(wide)

			Convey("Then regions collapse into sorted national rows", func() {
				So(agg.Countries(), ShouldResemble, []string{"Canada", "Finland", "Italy", "United Kingdom"})
				So(agg.Rows[0].Values, ShouldResemble, []int{1, 1, 2})
				So(agg.Rows[3].Values, ShouldResemble, []int{0, 0, 1})
			})

			Convey("And filtering on an allow-list", func() {
				filtered := shaping.Filter(agg, []string{"Italy", "Canada", "Atlantis"})

				Convey("Then only known allow-listed countries remain", func() {
					So(filtered.Countries(), ShouldResemble, []string{"Canada", "Italy"})
				})

				Convey("Then the input table is left untouched", func() {
					filtered.Rows[0].Values[0] = 99
					So(agg.Rows[0].Values[0], ShouldEqual, 1)
				})
			})
		})
	})
}

func TestMelt(t *testing.T) {
	Convey("Given an aggregated wide table", t, func() {
		ctx := context.Background()
		wide := model.WideTable{
			Dates: []string{"3/2/20", "3/1/20"},
			Rows: []model.WideRow{
				{Country: "Spain", Values: []int{5, 0}},
				{Country: "Italy", Values: []int{52, 34}},
			},
		}

		Convey("When melting", func() {
			obs, err := shaping.Melt(ctx, wide)

			Convey("Then there is one row per country and date, sorted", func() {
				So(err, ShouldBeNil)
				want := []model.Observation{
					{Country: "Italy", Date: day("2020-03-01"), Deaths: 34},
					{Country: "Italy", Date: day("2020-03-02"), Deaths: 52},
					{Country: "Spain", Date: day("2020-03-01"), Deaths: 0},
					{Country: "Spain", Date: day("2020-03-02"), Deaths: 5},
				}
				So(cmp.Diff(want, obs), ShouldBeEmpty)
			})
		})

		Convey("When a date label is unparseable", func() {
			wide.Dates[1] = "March 1st"
			_, err := shaping.Melt(ctx, wide)

			Convey("Then ErrBadDate is returned", func() {
				So(errors.Is(err, shaping.ErrBadDate), ShouldBeTrue)
			})
		})

		Convey("When two labels resolve to the same day", func() {
			wide.Dates[1] = "03/02/20"
			_, err := shaping.Melt(ctx, wide)

			Convey("Then ErrDuplicateDate is returned", func() {
				So(errors.Is(err, shaping.ErrDuplicateDate), ShouldBeTrue)
			})
		})
	})
}

func TestShape(t *testing.T) {
	Convey("Given raw records and an allow-list", t, func() {
		ctx := context.Background()

		Convey("When shaping", func() {
			obs, err := shaping.Shape(ctx, header, records, []string{"Canada", "United Kingdom"})

			Convey("Then each country's dates are sorted and unique", func() {
				So(err, ShouldBeNil)
				So(obs, ShouldHaveLength, 6)
				names, groups := model.GroupByCountry(obs)
				So(names, ShouldResemble, []string{"Canada", "United Kingdom"})
				for _, name := range names {
					series := groups[name]
					for i := 1; i < len(series); i++ {
						So(series[i].Date.After(series[i-1].Date), ShouldBeTrue)
					}
				}
				So(groups["United Kingdom"][2].Deaths, ShouldEqual, 1)
			})
		})

		Convey("When one country is removed from the allow-list", func() {
			both, err := shaping.Shape(ctx, header, records, []string{"Canada", "Italy"})
			So(err, ShouldBeNil)
			one, err := shaping.Shape(ctx, header, records, []string{"Canada"})
			So(err, ShouldBeNil)

			Convey("Then exactly that country's rows disappear", func() {
				So(one, ShouldHaveLength, 3)
				So(cmp.Diff(both[:3], one), ShouldBeEmpty)
			})
		})
	})
}
