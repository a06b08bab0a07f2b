// Package grid reads gridded NetCDF-4 archive files and reduces a 1°×1°
// neighborhood around a coordinate to per-day scalar metrics.
package grid

import (
	"fmt"
	"math"

	"github.com/batchatco/go-native-netcdf/netcdf"
	"github.com/batchatco/go-native-netcdf/netcdf/api"

	"github.com/pastcast/climatology/internal/domain"
)

// Dataset is the minimal read view the reducers need over one grid file.
// Splitting it from the NetCDF binding keeps the numeric policy testable
// with in-memory data.
type Dataset interface {
	// Coords returns a 1-D coordinate variable such as "lat" or "lon".
	Coords(name string) ([]float64, error)
	// Field returns a data variable as [time][lat][lon], with filled or
	// missing cells mapped to NaN. A variable the file lacks yields
	// domain.ErrMissingVariable.
	Field(name string) ([][][]float64, error)
	Close() error
}

// Open reads a NetCDF-4 file from disk.
func Open(path string) (Dataset, error) {
	group, err := netcdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open grid file %s: %w", path, err)
	}
	return &ncDataset{group: group}, nil
}

type ncDataset struct {
	group api.Group
}

func (d *ncDataset) Close() error {
	d.group.Close()
	return nil
}

func (d *ncDataset) Coords(name string) ([]float64, error) {
	v, err := d.group.GetVariable(name)
	if err != nil {
		return nil, fmt.Errorf("coordinate %s: %w", name, domain.ErrMissingVariable)
	}

	switch vals := v.Values.(type) {
	case []float64:
		return vals, nil
	case []float32:
		out := make([]float64, len(vals))
		for i, x := range vals {
			out[i] = float64(x)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("coordinate %s: unexpected type %T", name, v.Values)
	}
}

func (d *ncDataset) Field(name string) ([][][]float64, error) {
	v, err := d.group.GetVariable(name)
	if err != nil {
		return nil, fmt.Errorf("field %s: %w", name, domain.ErrMissingVariable)
	}

	var field [][][]float64
	switch vals := v.Values.(type) {
	case [][][]float64:
		field = vals
	case [][][]float32:
		field = make([][][]float64, len(vals))
		for t, plane := range vals {
			field[t] = make([][]float64, len(plane))
			for y, row := range plane {
				field[t][y] = make([]float64, len(row))
				for x, val := range row {
					field[t][y][x] = float64(val)
				}
			}
		}
	case [][]float64:
		// Some derived subset files drop the time dimension.
		field = [][][]float64{vals}
	case [][]float32:
		plane := make([][]float64, len(vals))
		for y, row := range vals {
			plane[y] = make([]float64, len(row))
			for x, val := range row {
				plane[y][x] = float64(val)
			}
		}
		field = [][][]float64{plane}
	default:
		return nil, fmt.Errorf("field %s: unexpected type %T", name, v.Values)
	}

	if fill, ok := fillValue(v.Attributes); ok {
		maskFill(field, fill)
	}
	return field, nil
}

// fillValue extracts the variable's fill or missing-value marker. MERRA-2
// files carry both attributes with the same 1e15 sentinel.
func fillValue(attrs api.AttributeMap) (float64, bool) {
	if attrs == nil {
		return 0, false
	}
	for _, key := range []string{"_FillValue", "missing_value"} {
		raw, has := attrs.Get(key)
		if !has {
			continue
		}
		switch v := raw.(type) {
		case float64:
			return v, true
		case float32:
			return float64(v), true
		case []float64:
			if len(v) > 0 {
				return v[0], true
			}
		case []float32:
			if len(v) > 0 {
				return float64(v[0]), true
			}
		}
	}
	return 0, false
}

// maskFill replaces filled cells with NaN so the reducers skip them, the
// same masking CF-aware readers apply on decode.
func maskFill(field [][][]float64, fill float64) {
	for _, plane := range field {
		for _, row := range plane {
			for x, val := range row {
				if val == fill {
					row[x] = math.NaN()
				}
			}
		}
	}
}
