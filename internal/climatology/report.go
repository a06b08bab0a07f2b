package climatology

import (
	"math"

	"github.com/montanaflynn/stats"

	"github.com/pastcast/climatology/internal/domain"
)

// Thresholds for the frequency statistics, chosen to match the service's
// user-facing definitions of a "rainy", "hot", and "windy" day.
const (
	PrecipThresholdMMDay = 2.0
	HeatThresholdC       = 35.0
	WindThresholdMS      = 15.0
)

// yearSamples accumulates per-year metric values across the lookback loop.
// A year missing from a list simply never contributed to that statistic.
type yearSamples struct {
	temps   []float64
	precips []float64
	winds   []float64
	checked int
}

func (s *yearSamples) add(m domain.DayMetrics) {
	if m.TemperatureC != nil {
		s.temps = append(s.temps, *m.TemperatureC)
	}
	if m.PrecipitationMMDay != nil {
		s.precips = append(s.precips, *m.PrecipitationMMDay)
	}
	if m.WindSpeedMS != nil {
		s.winds = append(s.winds, *m.WindSpeedMS)
	}
	if m.Any() {
		s.checked++
	}
}

func (s *yearSamples) report() domain.Report {
	return domain.Report{
		YearsChecked:         s.checked,
		AvgTemperatureC:      meanOf(s.temps),
		PrecipitationFreqPct: frequencyPct(s.precips, PrecipThresholdMMDay),
		HeatFreqPct:          frequencyPct(s.temps, HeatThresholdC),
		WindFreqPct:          frequencyPct(s.winds, WindThresholdMS),
	}
}

func meanOf(values []float64) *float64 {
	if len(values) == 0 {
		return nil
	}
	mean, err := stats.Mean(values)
	if err != nil {
		return nil
	}
	return &mean
}

// frequencyPct returns the rounded percentage of values strictly above
// threshold, or nil when no values were collected.
func frequencyPct(values []float64, threshold float64) *int {
	if len(values) == 0 {
		return nil
	}
	count := 0
	for _, v := range values {
		if v > threshold {
			count++
		}
	}
	pct := int(math.Round(100 * float64(count) / float64(len(values))))
	return &pct
}
