package domain

import (
	"fmt"
	"time"
)

// TargetDate identifies a calendar day independent of year. Validation is a
// range check only: a date like February 30 is accepted and simply matches no
// files in any year.
type TargetDate struct {
	Day   int `json:"day"`
	Month int `json:"month"`
}

// Validate checks that day and month are inside calendar ranges.
func (d TargetDate) Validate() error {
	if d.Day < 1 || d.Day > 31 {
		return fmt.Errorf("%w: day %d out of range 1-31", ErrInvalidParameter, d.Day)
	}
	if d.Month < 1 || d.Month > 12 {
		return fmt.Errorf("%w: month %d out of range 1-12", ErrInvalidParameter, d.Month)
	}
	return nil
}

// Tag returns the YYYYMMDD date tag embedded in MERRA-2 file names for this
// day in the given year.
func (d TargetDate) Tag(year int) string {
	return fmt.Sprintf("%04d%02d%02d", year, d.Month, d.Day)
}

// LookbackWindow is the span of past calendar years a lookup covers. EndYear
// is exclusive (normally the current year, which has no complete archive yet).
type LookbackWindow struct {
	EndYear   int
	YearsBack int
}

// Years returns the candidate years oldest to newest: [EndYear-YearsBack, EndYear).
func (w LookbackWindow) Years() []int {
	if w.YearsBack <= 0 {
		return nil
	}
	years := make([]int, 0, w.YearsBack)
	for y := w.EndYear - w.YearsBack; y < w.EndYear; y++ {
		years = append(years, y)
	}
	return years
}

// Metric enumerates the derived per-day values the extraction engine can
// produce from one grid file.
type Metric int

const (
	MetricTemperature Metric = iota
	MetricPrecipitation
	MetricWind
)

func (m Metric) String() string {
	switch m {
	case MetricTemperature:
		return "temperature"
	case MetricPrecipitation:
		return "precipitation"
	case MetricWind:
		return "wind"
	default:
		return fmt.Sprintf("metric(%d)", int(m))
	}
}

// DayMetrics holds the scalars derived from one year's files. A nil field
// means the source file lacked that variable (or no file was obtained); it is
// not an error.
type DayMetrics struct {
	TemperatureC       *float64
	PrecipitationMMDay *float64
	WindSpeedMS        *float64
}

// Merge folds non-nil fields of other into m, keeping existing values.
func (m *DayMetrics) Merge(other DayMetrics) {
	if m.TemperatureC == nil {
		m.TemperatureC = other.TemperatureC
	}
	if m.PrecipitationMMDay == nil {
		m.PrecipitationMMDay = other.PrecipitationMMDay
	}
	if m.WindSpeedMS == nil {
		m.WindSpeedMS = other.WindSpeedMS
	}
}

// Any reports whether at least one metric is present.
func (m DayMetrics) Any() bool {
	return m.TemperatureC != nil || m.PrecipitationMMDay != nil || m.WindSpeedMS != nil
}

// Report is the aggregation result for one day/month/location. Each statistic
// is independently nil when no year contributed to it.
type Report struct {
	YearsChecked         int      `json:"years_checked"`
	AvgTemperatureC      *float64 `json:"average_temperature_c"`
	PrecipitationFreqPct *int     `json:"precipitation_frequency_percent"`
	HeatFreqPct          *int     `json:"heat_frequency_percent"`
	WindFreqPct          *int     `json:"wind_frequency_percent"`
}

// HasData reports whether any year contributed at least one data point.
func (r Report) HasData() bool { return r.YearsChecked > 0 }

// ReportRecord is the published form of a completed lookup, carrying the
// query alongside the report so downstream consumers need no extra context.
type ReportRecord struct {
	Date        TargetDate `json:"date"`
	Lat         float64    `json:"lat"`
	Lon         float64    `json:"lon"`
	YearsBack   int        `json:"years_back"`
	Report      Report     `json:"report"`
	GeneratedAt time.Time  `json:"generated_at"`
}
