package climate

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
)

const (
	defaultReportTitle = "Weather Probability Analysis Report"
	defaultGenerator   = "Generated by weatherodds"
	noDataLabel        = "no data"
)

// ReportMeta carries the presentation fields of an exported report.
// Zero values fall back to defaults derived from the result.
type ReportMeta struct {
	Title     string
	Location  string
	Generator string
}

func (m ReportMeta) withDefaults(res *AnalysisResult) ReportMeta {
	if m.Title == "" {
		m.Title = defaultReportTitle
	}
	if m.Location == "" {
		m.Location = fmt.Sprintf("%.4f, %.4f", res.Coordinate.Lat, res.Coordinate.Lon)
	}
	if m.Generator == "" {
		m.Generator = defaultGenerator
	}
	return m
}

// CSVHeader is the column layout of the result table.
var CSVHeader = []string{
	"Condition", "Probability", "Level", "Description", "Recommendation",
	"Average", "Min", "Max", "Unit", "Samples", "Source",
}

// WriteCSV renders the analysis as a CSV report: a preamble, the result table
// in query order and a provenance note.
func WriteCSV(w io.Writer, res *AnalysisResult, meta ReportMeta) error {
	meta = meta.withDefaults(res)
	cw := csv.NewWriter(w)

	records := [][]string{
		{meta.Title},
		{"Location: " + meta.Location},
		{"Date: " + res.ReferenceDate.Format("2006-01-02")},
		{fmt.Sprintf("Window: %s to %s", res.DateRange.Start.Format("2006-01-02"), res.DateRange.End.Format("2006-01-02"))},
		{meta.Generator},
		{},
		CSVHeader,
	}
	for _, r := range res.Ordered() {
		records = append(records, csvRow(r))
	}
	records = append(records, []string{}, []string{provenanceNote(res)})

	for _, rec := range records {
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("writing csv record: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func csvRow(r ParameterResult) []string {
	if r.NoData() {
		return []string{r.Title, noDataLabel, "", r.Description, "", "", "", "", r.Unit, "0", string(r.Provenance)}
	}

	decimals := 2
	if spec, ok := Spec(r.Key); ok {
		decimals = spec.Decimals
	}
	format := func(v float64) string {
		return strconv.FormatFloat(v, 'f', decimals, 64)
	}

	return []string{
		r.Title,
		fmt.Sprintf("%d%%", r.Estimate.ProbabilityPercent),
		string(r.Estimate.Level),
		r.Description,
		r.Estimate.Recommendation,
		format(r.Statistic.Average),
		format(r.Statistic.Min),
		format(r.Statistic.Max),
		r.Unit,
		strconv.Itoa(r.Statistic.SampleCount),
		string(r.Provenance),
	}
}

func provenanceNote(res *AnalysisResult) string {
	if res.Fallback {
		return "Note: some values are synthetic fallback data because the climatology provider was unavailable"
	}
	return fmt.Sprintf("Note: probabilities based on %s historical weather data analysis", res.Provider)
}

// ShareText renders a short plain-text summary, one line per parameter.
func ShareText(res *AnalysisResult, meta ReportMeta) string {
	meta = meta.withDefaults(res)

	var b strings.Builder
	b.WriteString(meta.Title + "\n\n")
	b.WriteString("Location: " + meta.Location + "\n")
	b.WriteString("Date: " + res.ReferenceDate.Format("2006-01-02") + "\n\n")
	b.WriteString("Analysis Results:\n")
	for _, r := range res.Ordered() {
		b.WriteString(ShareLine(r) + "\n")
	}
	b.WriteString("\n")
	if res.Fallback {
		b.WriteString(provenanceNote(res) + "\n")
	}
	b.WriteString(meta.Generator)
	return b.String()
}

// ShareLine formats a single parameter result for the share text.
func ShareLine(r ParameterResult) string {
	if r.NoData() {
		return fmt.Sprintf("%s: %s", r.Title, noDataLabel)
	}
	return fmt.Sprintf("%s: %d%% probability - %s", r.Title, r.Estimate.ProbabilityPercent, r.Estimate.Level)
}
