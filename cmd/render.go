package cmd

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/naka-gawa/repo-compare/internal/domain"
)

// renderer writes a comparison table, optionally followed by its summary statistics.
type renderer func(w io.Writer, t *domain.Table, describe bool) error

func rendererFor(format string) (renderer, error) {
	switch format {
	case "table":
		return renderTable, nil
	case "json":
		return renderJSON, nil
	case "csv":
		return renderCSV, nil
	default:
		return nil, fmt.Errorf("unknown output format %q (want table, json or csv)", format)
	}
}

var (
	cellStyle    = lipgloss.NewStyle().Padding(0, 1)
	numericStyle = cellStyle.Align(lipgloss.Right)
	headerStyle  = cellStyle.Bold(true)
)

func renderTable(w io.Writer, t *domain.Table, describe bool) error {
	if _, err := fmt.Fprintln(w, styledTable(t.Records(), 7).String()); err != nil {
		return err
	}
	if !describe {
		return nil
	}
	summaries, err := t.Describe()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, styledTable(summaryRecords(summaries), len(summaryHeader)).String())
	return err
}

// styledTable lays records out with a header row. Columns 1 to numericUpTo-1
// hold numbers and are right-aligned.
func styledTable(records [][]string, numericUpTo int) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers(records[0]...).
		Rows(records[1:]...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case col > 0 && col < numericUpTo:
				return numericStyle
			default:
				return cellStyle
			}
		})
}

// comparisonJSON is the JSON shape of a comparison with summary statistics.
type comparisonJSON struct {
	Rows     []domain.RepoStats     `json:"rows"`
	Describe []domain.ColumnSummary `json:"describe"`
}

func renderJSON(w io.Writer, t *domain.Table, describe bool) error {
	var v any = t.Rows()
	if describe {
		summaries, err := t.Describe()
		if err != nil {
			return err
		}
		v = comparisonJSON{Rows: t.Rows(), Describe: summaries}
	}
	jsonData, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results to JSON: %w", err)
	}
	_, err = fmt.Fprintln(w, string(jsonData))
	return err
}

func renderCSV(w io.Writer, t *domain.Table, describe bool) error {
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(t.Records()); err != nil {
		return err
	}
	if !describe {
		return nil
	}
	summaries, err := t.Describe()
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintln(w); err != nil {
		return err
	}
	return cw.WriteAll(summaryRecords(summaries))
}

var summaryHeader = []string{"column", "count", "mean", "std", "min", "median", "max"}

func summaryRecords(summaries []domain.ColumnSummary) [][]string {
	records := [][]string{summaryHeader}
	for _, s := range summaries {
		records = append(records, []string{
			s.Column,
			strconv.Itoa(s.Count),
			formatFloat(s.Mean),
			formatFloat(s.Std),
			formatFloat(s.Min),
			formatFloat(s.Median),
			formatFloat(s.Max),
		})
	}
	return records
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', 2, 64)
}
