package chart

import (
	"testing"

	"github.com/stretchr/testify/require"

	"spendbook/internal/core"
	"spendbook/internal/stats"
)

func testSeries() []stats.DayTotal {
	l := core.Ledger{
		{Day: 1, Month: 1, Year: 2024}: {{Price: "10"}},
		{Day: 2, Month: 1, Year: 2024}: {{Price: "30"}},
		{Day: 3, Month: 1, Year: 2024}: {{Price: "5"}},
	}
	return stats.DailyTotals(l)
}

func TestDailyTotalsPNG(t *testing.T) {
	buf, err := DailyTotalsPNG(testSeries(), "Last week")
	require.NoError(t, err)
	require.NotEmpty(t, buf)
	// PNG magic bytes
	require.Equal(t, []byte{0x89, 'P', 'N', 'G'}, buf[:4])
}

func TestDailyTotalsPNGEmpty(t *testing.T) {
	_, err := DailyTotalsPNG(nil, "empty")
	require.Error(t, err)
}

func TestTopDaysPNG(t *testing.T) {
	buf, err := TopDaysPNG(testSeries(), 2)
	require.NoError(t, err)
	require.NotEmpty(t, buf)
	require.Equal(t, []byte{0x89, 'P', 'N', 'G'}, buf[:4])

	// Limit larger than the series is fine
	_, err = TopDaysPNG(testSeries(), 99)
	require.NoError(t, err)

	_, err = TopDaysPNG(nil, 3)
	require.Error(t, err)
}
