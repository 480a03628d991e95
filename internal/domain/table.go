package domain

import (
	"math"
	"strconv"

	"github.com/montanaflynn/stats"
)

// IndexColumn is the column that keys the rows of a Table.
const IndexColumn = "name"

var columns = []string{
	"stars", "forks", "contributors", "commits", "open_issues",
	"closed_issues", "created", "last_commit", "license",
}

var numericColumns = columns[:6]

// Table is an ordered set of RepoStats rows indexed by repository name.
// It is built once by NewTable and never mutated afterwards.
type Table struct {
	rows  []RepoStats
	index map[string]int
}

// NewTable builds a Table keeping rows in the given order. When two rows share
// a name, Row returns the later one.
func NewTable(rows []RepoStats) *Table {
	t := &Table{
		rows:  make([]RepoStats, len(rows)),
		index: make(map[string]int, len(rows)),
	}
	copy(t.rows, rows)
	for i, r := range t.rows {
		t.index[r.Name] = i
	}
	return t
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.rows)
}

// Rows returns a copy of the rows in order.
func (t *Table) Rows() []RepoStats {
	out := make([]RepoStats, len(t.rows))
	copy(out, t.rows)
	return out
}

// Names returns the row keys in order.
func (t *Table) Names() []string {
	names := make([]string, len(t.rows))
	for i, r := range t.rows {
		names[i] = r.Name
	}
	return names
}

// Row looks a row up by repository name.
func (t *Table) Row(name string) (RepoStats, bool) {
	i, ok := t.index[name]
	if !ok {
		return RepoStats{}, false
	}
	return t.rows[i], true
}

// Columns returns the data columns, excluding the index column.
func (t *Table) Columns() []string {
	out := make([]string, len(columns))
	copy(out, columns)
	return out
}

// Records returns the table as string records. The first record is the
// header, and every record starts with the index column.
func (t *Table) Records() [][]string {
	records := make([][]string, 0, len(t.rows)+1)
	records = append(records, append([]string{IndexColumn}, columns...))
	for _, r := range t.rows {
		records = append(records, []string{
			r.Name,
			strconv.Itoa(r.Stars),
			strconv.Itoa(r.Forks),
			strconv.Itoa(r.Contributors),
			strconv.Itoa(r.Commits),
			strconv.Itoa(r.OpenIssues),
			strconv.Itoa(r.ClosedIssues),
			r.Created,
			r.LastCommit,
			r.License,
		})
	}
	return records
}

// ColumnSummary holds descriptive statistics for one numeric column.
type ColumnSummary struct {
	Column string  `json:"column"`
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	Std    float64 `json:"std"`
	Min    float64 `json:"min"`
	Median float64 `json:"median"`
	Max    float64 `json:"max"`
}

// Describe summarizes every numeric column. An empty table yields summaries
// with a zero count. Std is the sample standard deviation and is zero for
// fewer than two rows.
func (t *Table) Describe() ([]ColumnSummary, error) {
	out := make([]ColumnSummary, 0, len(numericColumns))
	for _, col := range numericColumns {
		data := t.numeric(col)
		s := ColumnSummary{Column: col, Count: len(data)}
		if len(data) == 0 {
			out = append(out, s)
			continue
		}
		var err error
		if s.Mean, err = stats.Mean(data); err != nil {
			return nil, err
		}
		if s.Median, err = stats.Median(data); err != nil {
			return nil, err
		}
		if s.Min, err = stats.Min(data); err != nil {
			return nil, err
		}
		if s.Max, err = stats.Max(data); err != nil {
			return nil, err
		}
		if len(data) > 1 {
			if s.Std, err = stats.StandardDeviationSample(data); err != nil {
				return nil, err
			}
			if math.IsNaN(s.Std) {
				s.Std = 0
			}
		}
		out = append(out, s)
	}
	return out, nil
}

func (t *Table) numeric(col string) stats.Float64Data {
	data := make(stats.Float64Data, 0, len(t.rows))
	for _, r := range t.rows {
		var v int
		switch col {
		case "stars":
			v = r.Stars
		case "forks":
			v = r.Forks
		case "contributors":
			v = r.Contributors
		case "commits":
			v = r.Commits
		case "open_issues":
			v = r.OpenIssues
		case "closed_issues":
			v = r.ClosedIssues
		}
		data = append(data, float64(v))
	}
	return data
}
