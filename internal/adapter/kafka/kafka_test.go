package kafka

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pastcast/climatology/internal/domain"
)

func TestSerializeToMessage(t *testing.T) {
	now := time.Date(2026, 8, 14, 9, 30, 0, 0, time.UTC)
	temp := 28.4
	freq := 35
	rec := domain.ReportRecord{
		Date:      domain.TargetDate{Day: 4, Month: 7},
		Lat:       30.25,
		Lon:       -97.75,
		YearsBack: 20,
		Report: domain.Report{
			YearsChecked:         18,
			AvgTemperatureC:      &temp,
			PrecipitationFreqPct: &freq,
		},
		GeneratedAt: now,
	}

	msg, err := serializeToMessage(rec)
	require.NoError(t, err)

	assert.Equal(t, []byte("07-04:30.2:-97.8"), msg.Key)
	assert.Contains(t, string(msg.Value), `"years_checked":18`)
	assert.Contains(t, string(msg.Value), `"average_temperature_c":28.4`)

	require.Len(t, msg.Headers, 2)
	assert.Equal(t, "years_back", msg.Headers[0].Key)
	assert.Equal(t, []byte("20"), msg.Headers[0].Value)
	assert.Equal(t, "generated_at", msg.Headers[1].Key)
	assert.Equal(t, []byte(now.Format(time.RFC3339)), msg.Headers[1].Value)
}

func TestSerializeToMessage_KeyStableForSameQuery(t *testing.T) {
	a := domain.ReportRecord{Date: domain.TargetDate{Day: 1, Month: 2}, Lat: 10.04, Lon: 20.04}
	b := domain.ReportRecord{Date: domain.TargetDate{Day: 1, Month: 2}, Lat: 10.01, Lon: 20.01}

	ma, err := serializeToMessage(a)
	require.NoError(t, err)
	mb, err := serializeToMessage(b)
	require.NoError(t, err)

	// Nearby coordinates round to the same key for partition locality.
	assert.Equal(t, ma.Key, mb.Key)
}
