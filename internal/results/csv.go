package results

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

var csvColumns = []string{
	"iteration", "project", "mode", "variant", "job",
	"coverage", "covered", "total_edges", "execs", "valid_execs",
	"line", "branch",
}

var requiredColumns = []string{"project", "mode", "coverage"}

// WriteCSV writes one line per row under a header.
func WriteCSV(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvColumns); err != nil {
		return err
	}
	for _, r := range rows {
		record := []string{
			strconv.Itoa(r.Iteration),
			r.Project,
			r.Mode,
			r.Variant,
			r.Job,
			strconv.FormatFloat(r.Coverage, 'f', -1, 64),
			strconv.FormatInt(r.Covered, 10),
			strconv.FormatInt(r.TotalEdges, 10),
			strconv.FormatInt(r.Execs, 10),
			strconv.FormatInt(r.ValidExecs, 10),
			formatOptional(r.Line),
			formatOptional(r.Branch),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatOptional(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

// ReadCSV reads rows written by WriteCSV. Columns are matched by header
// name, so unknown columns such as a leading unnamed index are ignored.
// Only project, mode and coverage are required.
func ReadCSV(r io.Reader) ([]Row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("empty csv: missing header")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.TrimSpace(strings.ToLower(name))] = i
	}
	for _, col := range requiredColumns {
		if _, ok := index[col]; !ok {
			return nil, fmt.Errorf("csv is missing required column %q", col)
		}
	}

	var rows []Row
	for line := 2; ; line++ {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read csv line %d: %w", line, err)
		}
		row, err := parseRecord(index, record)
		if err != nil {
			return nil, fmt.Errorf("csv line %d: %w", line, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func parseRecord(index map[string]int, record []string) (Row, error) {
	field := func(name string) string {
		i, ok := index[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	var (
		row Row
		err error
	)
	row.Project = field("project")
	row.Mode = field("mode")
	row.Variant = field("variant")
	row.Job = field("job")
	if row.Coverage, err = strconv.ParseFloat(field("coverage"), 64); err != nil {
		return Row{}, fmt.Errorf("invalid coverage: %w", err)
	}
	if s := field("iteration"); s != "" {
		if row.Iteration, err = strconv.Atoi(s); err != nil {
			return Row{}, fmt.Errorf("invalid iteration: %w", err)
		}
	}
	for _, c := range []struct {
		name string
		dst  *int64
	}{
		{"covered", &row.Covered},
		{"total_edges", &row.TotalEdges},
		{"execs", &row.Execs},
		{"valid_execs", &row.ValidExecs},
	} {
		s := field(c.name)
		if s == "" {
			continue
		}
		n, err := parseCount(s)
		if err != nil {
			return Row{}, fmt.Errorf("invalid %s: %w", c.name, err)
		}
		*c.dst = n
	}
	for _, c := range []struct {
		name string
		dst  **float64
	}{
		{"line", &row.Line},
		{"branch", &row.Branch},
	} {
		s := field(c.name)
		if s == "" {
			continue
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return Row{}, fmt.Errorf("invalid %s: %w", c.name, err)
		}
		*c.dst = &v
	}
	return row, nil
}

// parseCount accepts integers and integral floats ("1200.0"), which older
// result files contain.
func parseCount(s string) (int64, error) {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	return int64(f), nil
}
