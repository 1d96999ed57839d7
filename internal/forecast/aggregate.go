package forecast

import (
	"math"
	"sort"
	"time"

	"skycast/internal/icon"
	"skycast/internal/types"
)

const hourlyEntries = 11

// HourlyEntry is one slot of the hourly strip on the weather view.
type HourlyEntry struct {
	Time       string           `json:"time"`
	Temp       float64          `json:"temp"`
	Conditions types.Conditions `json:"weather"`
	Icon       string           `json:"icon"`
}

// Day is one card of the 5-day forecast view.
type Day struct {
	DayName    string           `json:"dayName"`
	Date       string           `json:"date"`
	MinTemp    int              `json:"minTemp"`
	MaxTemp    int              `json:"maxTemp"`
	Pop        int              `json:"pop"`
	Conditions types.Conditions `json:"weather"`
	Icon       string           `json:"icon"`
}

// Hourly returns up to 11 forecast entries at or after now, in chronological
// order, with timestamps formatted as 24-hour local time in tz.
func Hourly(rec types.WeatherRecord, now time.Time, tz *time.Location) []HourlyEntry {
	var out []HourlyEntry
	for _, e := range rec.Daily {
		if e.Time < now.Unix() {
			continue
		}
		var cond types.Conditions
		if len(e.Conditions) > 0 {
			cond = e.Conditions[0]
		}
		out = append(out, HourlyEntry{
			Time:       time.Unix(e.Time, 0).In(tz).Format("15:04"),
			Temp:       e.Main.Temp,
			Conditions: cond,
			Icon:       icon.Path(cond.Icon),
		})
		if len(out) == hourlyEntries {
			break
		}
	}
	return out
}

type dayBucket struct {
	date     time.Time
	temps    []float64
	pops     []float64
	cond     types.Conditions
	noonDist int
}

// FiveDay buckets the raw forecast list into calendar days in tz, dropping
// days before today and keeping the first five. Per day it reports the
// rounded min/max of the temperature samples, the rounded mean probability
// of precipitation in percent, and the conditions of the entry whose local
// hour is closest to noon. Ties on noon distance keep the first entry seen.
func FiveDay(rec types.WeatherRecord, today time.Time, tz *time.Location) []Day {
	buckets := make(map[string]*dayBucket)
	for _, e := range rec.Daily {
		t := time.Unix(e.Time, 0).In(tz)
		key := t.Format("2006-01-02")
		b, ok := buckets[key]
		if !ok {
			b = &dayBucket{
				date:     time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, tz),
				noonDist: math.MaxInt32,
			}
			buckets[key] = b
		}
		b.temps = append(b.temps, e.Main.Temp)
		if e.Pop != nil {
			b.pops = append(b.pops, *e.Pop*100)
		}
		if dist := absInt(t.Hour() - 12); dist < b.noonDist {
			b.noonDist = dist
			if len(e.Conditions) > 0 {
				b.cond = e.Conditions[0]
			} else {
				b.cond = types.Conditions{}
			}
		}
	}

	keys := make([]string, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	todayStart := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, tz)

	var out []Day
	for _, k := range keys {
		if len(out) == 5 {
			break
		}
		b := buckets[k]
		if b.date.Before(todayStart) {
			continue
		}
		var minTemp, maxTemp int
		if len(b.temps) > 0 {
			lo, hi := b.temps[0], b.temps[0]
			for _, v := range b.temps[1:] {
				if v < lo {
					lo = v
				}
				if v > hi {
					hi = v
				}
			}
			minTemp, maxTemp = int(math.Round(lo)), int(math.Round(hi))
		}
		var pop int
		if len(b.pops) > 0 {
			var sum float64
			for _, v := range b.pops {
				sum += v
			}
			pop = int(math.Round(sum / float64(len(b.pops))))
		}
		out = append(out, Day{
			DayName:    b.date.Format("Mon"),
			Date:       k,
			MinTemp:    minTemp,
			MaxTemp:    maxTemp,
			Pop:        pop,
			Conditions: b.cond,
			Icon:       icon.Path(b.cond.Icon),
		})
	}
	return out
}

// RainChance reports the probability of precipitation in percent for the
// forecast entry closest to now. Ties on distance keep the first entry.
// Without a pop value it falls back to a flat 10 when current conditions
// carry a rain object, otherwise 0.
func RainChance(rec types.WeatherRecord, now time.Time) int {
	var nearest *types.ForecastEntry
	best := int64(math.MaxInt64)
	for i := range rec.Daily {
		d := rec.Daily[i].Time - now.Unix()
		if d < 0 {
			d = -d
		}
		if d < best {
			best = d
			nearest = &rec.Daily[i]
		}
	}
	if nearest != nil && nearest.Pop != nil {
		return int(math.Round(*nearest.Pop * 100))
	}
	if rec.Current.Rain != nil {
		return 10
	}
	return 0
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
