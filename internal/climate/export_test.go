package climate_test

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weatherodds/weatherodds/internal/climate"
)

func exportFixture(t *testing.T) *climate.AnalysisResult {
	t.Helper()

	ref := mustDate(t, "2024-07-15")
	temp, est, err := climate.Estimate(climate.ParamTemperature, climate.RawSample{Values: []float64{25, 27, 32}})
	require.NoError(t, err)

	return &climate.AnalysisResult{
		ID:            "ana_test",
		Coordinate:    climate.Coordinate{Lat: 37.7749, Lon: -122.4194},
		ReferenceDate: ref,
		DateRange:     climate.WindowAround(ref, 5),
		Parameters:    []climate.ParameterKey{climate.ParamTemperature, climate.ParamPrecipitation},
		Results: map[climate.ParameterKey]climate.ParameterResult{
			climate.ParamTemperature: {
				Key:         climate.ParamTemperature,
				Title:       "Temperature",
				Description: "Air temperature at 2 meters",
				Unit:        "°C",
				Provenance:  climate.ProvenanceProvider,
				Statistic:   temp,
				Estimate:    est,
			},
			climate.ParamPrecipitation: {
				Key:         climate.ParamPrecipitation,
				Title:       "Precipitation",
				Description: "Daily total precipitation",
				Unit:        "mm",
				Provenance:  climate.ProvenanceProvider,
			},
		},
		Provider:    "nasa-power",
		GeneratedAt: time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, climate.WriteCSV(&buf, exportFixture(t), climate.ReportMeta{Location: "San Francisco"}))

	r := csv.NewReader(&buf)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	require.NoError(t, err)

	assert.Equal(t, []string{"Weather Probability Analysis Report"}, records[0])
	assert.Equal(t, []string{"Location: San Francisco"}, records[1])
	assert.Equal(t, []string{"Date: 2024-07-15"}, records[2])
	assert.Equal(t, []string{"Window: 2019-07-15 to 2029-07-15"}, records[3])
	assert.Equal(t, []string{"Generated by weatherodds"}, records[4])
	assert.Equal(t, climate.CSVHeader, records[5], "csv reader skips blank lines")

	assert.Equal(t, []string{
		"Temperature", "89%", "Very High", "Air temperature at 2 meters",
		climate.Recommendation(climate.ParamTemperature, climate.LevelVeryHigh),
		"28.0", "25.0", "32.0", "°C", "3", "provider",
	}, records[6])
	assert.Equal(t, []string{
		"Precipitation", "no data", "", "Daily total precipitation", "", "", "", "", "mm", "0", "provider",
	}, records[7])

	require.Len(t, records, 9)
	assert.Equal(t, "Note: probabilities based on nasa-power historical weather data analysis", records[8][0])
}

func TestWriteCSV_BlankSeparators(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, climate.WriteCSV(&buf, exportFixture(t), climate.ReportMeta{}))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	assert.Equal(t, `"Location: 37.7749, -122.4194"`, lines[1])
	assert.Equal(t, "", lines[5])
	assert.Equal(t, "", lines[len(lines)-2])
}

func TestWriteCSV_FallbackNote(t *testing.T) {
	res := exportFixture(t)
	res.Fallback = true

	var buf bytes.Buffer
	require.NoError(t, climate.WriteCSV(&buf, res, climate.ReportMeta{}))

	assert.Contains(t, buf.String(), "synthetic fallback data")
}

func TestShareText(t *testing.T) {
	text := climate.ShareText(exportFixture(t), climate.ReportMeta{Location: "San Francisco"})

	assert.Contains(t, text, "Location: San Francisco\n")
	assert.Contains(t, text, "Date: 2024-07-15\n")
	assert.Contains(t, text, "Temperature: 89% probability - Very High\n")
	assert.Contains(t, text, "Precipitation: no data\n")
	assert.True(t, strings.HasSuffix(text, "Generated by weatherodds"))
	assert.NotContains(t, text, "fallback")
}

func TestShareLine(t *testing.T) {
	res := exportFixture(t)
	assert.Equal(t,
		"Temperature: 89% probability - Very High",
		climate.ShareLine(res.Results[climate.ParamTemperature]))
}
