package derive

import (
	"time"

	"github.com/okian/covidtrend/internal/domain/model"
)

const hoursPerDay = 24

// FindAnchor returns the date of the first point, in ascending date order,
// whose metric meets or exceeds bound. ok is false when no point qualifies.
// dates must already be sorted; ties go to the earliest date.
func FindAnchor[T int | float64](dates []time.Time, metric []T, bound T) (anchor time.Time, ok bool) {
	for i, v := range metric {
		if v >= bound {
			return dates[i], true
		}
	}
	return time.Time{}, false
}

// FindAnchors applies FindAnchor to every country's series. Countries that
// never reach the bound are absent from the map.
func FindAnchors(groups map[string][]model.Observation, bound int) map[string]time.Time {
	anchors := make(map[string]time.Time, len(groups))
	for country, series := range groups {
		dates, deaths := columns(series)
		if a, ok := FindAnchor(dates, deaths, bound); ok {
			anchors[country] = a
		}
	}
	return anchors
}

// OffsetDays is the signed number of whole days from anchor to date.
func OffsetDays(date, anchor time.Time) int {
	return int(date.Sub(anchor).Round(time.Hour).Hours()) / hoursPerDay
}

// offsetPtr returns nil when there is no anchor, never a placeholder value.
func offsetPtr(date time.Time, anchor time.Time, ok bool) *int {
	if !ok {
		return nil
	}
	return model.IntPtr(OffsetDays(date, anchor))
}

func columns(series []model.Observation) ([]time.Time, []int) {
	dates := make([]time.Time, len(series))
	deaths := make([]int, len(series))
	for i, o := range series {
		dates[i] = o.Date
		deaths[i] = o.Deaths
	}
	return dates, deaths
}
