package model_test

import (
	"testing"
	"time"

	"github.com/okian/covidtrend/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func day(s string) time.Time {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestGroupByCountry(t *testing.T) {
	Convey("Given observations in mixed order", t, func() {
		obs := []model.Observation{
			{Country: "Spain", Date: day("2020-03-02"), Deaths: 5},
			{Country: "Italy", Date: day("2020-03-02"), Deaths: 52},
			{Country: "Spain", Date: day("2020-03-01"), Deaths: 0},
			{Country: "Italy", Date: day("2020-03-01"), Deaths: 34},
		}

		Convey("When grouping by country", func() {
			names, groups := model.GroupByCountry(obs)

			Convey("Then names are sorted and each series is date ordered", func() {
				So(names, ShouldResemble, []string{"Italy", "Spain"})
				So(groups["Italy"], ShouldHaveLength, 2)
				So(groups["Italy"][0].Deaths, ShouldEqual, 34)
				So(groups["Spain"][0].Date, ShouldEqual, day("2020-03-01"))
				So(groups["Spain"][1].Deaths, ShouldEqual, 5)
			})
		})

		Convey("When sorting the table", func() {
			model.SortObservations(obs)

			Convey("Then rows are ordered by country then date", func() {
				So(obs[0].Country, ShouldEqual, "Italy")
				So(obs[0].Deaths, ShouldEqual, 34)
				So(obs[3].Country, ShouldEqual, "Spain")
				So(obs[3].Deaths, ShouldEqual, 5)
			})
		})
	})
}

func TestWideTableCountries(t *testing.T) {
	Convey("Given a wide table with a repeated country", t, func() {
		tbl := model.WideTable{
			Dates: []string{"1/22/20"},
			Rows: []model.WideRow{
				{Country: "Canada", Values: []int{0}},
				{Country: "Australia", Values: []int{0}},
				{Country: "Canada", Values: []int{1}},
			},
		}

		Convey("Then Countries lists each name once in table order", func() {
			So(tbl.Countries(), ShouldResemble, []string{"Canada", "Australia"})
		})
	})
}

func TestIntPtr(t *testing.T) {
	Convey("Given IntPtr", t, func() {
		p := model.IntPtr(-3)

		Convey("Then it points at an independent copy", func() {
			So(p, ShouldNotBeNil)
			So(*p, ShouldEqual, -3)
			So(model.IntPtr(0), ShouldNotPointTo, model.IntPtr(0))
		})
	})
}
