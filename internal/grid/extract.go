package grid

import (
	"errors"
	"fmt"
	"math"

	"github.com/pastcast/climatology/internal/domain"
)

// MERRA-2 variable names the reducers read.
const (
	varTemperature   = "T2MMEAN"  // daily mean 2-m temperature, K
	varPrecipitation = "TPRECMAX" // daily max precipitation rate, kg m-2 s-1
	varWindU         = "U10M"     // 10-m eastward wind, m s-1
	varWindV         = "V10M"     // 10-m northward wind, m s-1
)

const (
	kelvinOffset = 273.15
	// Seconds per day: converts a precipitation rate (kg m-2 s-1 ≡ mm/s) to a
	// daily accumulation. Applying it to the daily maximum rate overstates
	// the total; documented approximation, kept deliberately.
	secondsPerDay = 86400
	// halfBox is the half-width of the extraction neighborhood in degrees.
	halfBox = 0.5
)

// errEmptyBox means the cropped neighborhood contained no grid cells; it is
// treated exactly like a missing variable (metric absent, not an error).
var errEmptyBox = errors.New("empty coordinate box")

// box holds the index window selected around the target coordinate. hi
// bounds are exclusive.
type box struct {
	latLo, latHi int
	lonLo, lonHi int
}

func (b box) empty() bool {
	return b.latLo >= b.latHi || b.lonLo >= b.lonHi
}

// cropIndices returns the index range of coords falling inside
// [center-halfBox, center+halfBox]. coords are assumed ascending, the
// MERRA-2 convention.
func cropIndices(coords []float64, center float64) (lo, hi int) {
	for i, c := range coords {
		if c < center-halfBox {
			lo = i + 1
			continue
		}
		if c > center+halfBox {
			break
		}
		hi = i + 1
	}
	if hi < lo {
		hi = lo
	}
	return lo, hi
}

// A reducer turns the cropped neighborhood of one file into a single scalar
// for its metric. The set is closed: one variant per metric.
type reducer interface {
	metric() domain.Metric
	reduce(ds Dataset, b box) (float64, error)
}

func reducerFor(m domain.Metric) (reducer, error) {
	switch m {
	case domain.MetricTemperature:
		return temperatureReducer{}, nil
	case domain.MetricPrecipitation:
		return precipitationReducer{}, nil
	case domain.MetricWind:
		return windReducer{}, nil
	default:
		return nil, fmt.Errorf("no reducer for %s", m)
	}
}

// temperatureReducer computes the spatial mean of the daily-mean temperature
// field, converted from Kelvin to Celsius.
type temperatureReducer struct{}

func (temperatureReducer) metric() domain.Metric { return domain.MetricTemperature }

func (temperatureReducer) reduce(ds Dataset, b box) (float64, error) {
	mean, err := boxMean(ds, varTemperature, b)
	if err != nil {
		return 0, err
	}
	return mean - kelvinOffset, nil
}

// precipitationReducer computes the spatial mean of the daily-maximum
// precipitation rate, converted to mm/day.
type precipitationReducer struct{}

func (precipitationReducer) metric() domain.Metric { return domain.MetricPrecipitation }

func (precipitationReducer) reduce(ds Dataset, b box) (float64, error) {
	mean, err := boxMean(ds, varPrecipitation, b)
	if err != nil {
		return 0, err
	}
	return mean * secondsPerDay, nil
}

// windReducer computes the day's representative wind: the maximum Euclidean
// magnitude of the two horizontal components over every cell and time step
// in the box.
type windReducer struct{}

func (windReducer) metric() domain.Metric { return domain.MetricWind }

func (windReducer) reduce(ds Dataset, b box) (float64, error) {
	u, err := ds.Field(varWindU)
	if err != nil {
		return 0, err
	}
	v, err := ds.Field(varWindV)
	if err != nil {
		return 0, err
	}

	maxMag := math.Inf(-1)
	found := false
	for t := range u {
		if t >= len(v) {
			break
		}
		for y := b.latLo; y < b.latHi && y < len(u[t]); y++ {
			if y >= len(v[t]) {
				break
			}
			for x := b.lonLo; x < b.lonHi && x < len(u[t][y]); x++ {
				if x >= len(v[t][y]) {
					break
				}
				mag := math.Hypot(u[t][y][x], v[t][y][x])
				if math.IsNaN(mag) {
					continue
				}
				if mag > maxMag {
					maxMag = mag
					found = true
				}
			}
		}
	}
	if !found {
		return 0, errEmptyBox
	}
	return maxMag, nil
}

// boxMean averages one field over all time steps and the cropped cells,
// skipping masked (NaN) cells. A box of nothing but masked cells counts as
// empty.
func boxMean(ds Dataset, name string, b box) (float64, error) {
	field, err := ds.Field(name)
	if err != nil {
		return 0, err
	}

	var sum float64
	var count int
	for t := range field {
		for y := b.latLo; y < b.latHi && y < len(field[t]); y++ {
			for x := b.lonLo; x < b.lonHi && x < len(field[t][y]); x++ {
				val := field[t][y][x]
				if math.IsNaN(val) {
					continue
				}
				sum += val
				count++
			}
		}
	}
	if count == 0 {
		return 0, errEmptyBox
	}
	return sum / float64(count), nil
}

// ExtractDay reduces ds to per-day metrics over the 1°×1° box centered on
// (lat, lon). A variable the file lacks, or an empty box, leaves that metric
// absent; only unreadable coordinates are an error.
func ExtractDay(ds Dataset, lat, lon float64, metrics []domain.Metric) (domain.DayMetrics, error) {
	lats, err := ds.Coords("lat")
	if err != nil {
		return domain.DayMetrics{}, err
	}
	lons, err := ds.Coords("lon")
	if err != nil {
		return domain.DayMetrics{}, err
	}

	var b box
	b.latLo, b.latHi = cropIndices(lats, lat)
	b.lonLo, b.lonHi = cropIndices(lons, lon)

	var out domain.DayMetrics
	for _, m := range metrics {
		r, err := reducerFor(m)
		if err != nil {
			return domain.DayMetrics{}, err
		}

		val, err := r.reduce(ds, b)
		if err != nil {
			if errors.Is(err, domain.ErrMissingVariable) || errors.Is(err, errEmptyBox) {
				continue
			}
			return domain.DayMetrics{}, err
		}

		v := val
		switch m {
		case domain.MetricTemperature:
			out.TemperatureC = &v
		case domain.MetricPrecipitation:
			out.PrecipitationMMDay = &v
		case domain.MetricWind:
			out.WindSpeedMS = &v
		}
	}
	return out, nil
}

// FileExtractor opens grid files from disk and extracts day metrics; it is
// the production implementation of the aggregation engine's Extractor.
type FileExtractor struct{}

func (FileExtractor) ExtractFile(path string, lat, lon float64, metrics []domain.Metric) (domain.DayMetrics, error) {
	ds, err := Open(path)
	if err != nil {
		return domain.DayMetrics{}, err
	}
	defer ds.Close()
	return ExtractDay(ds, lat, lon, metrics)
}
