package results

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// Key identifies a group of rows. Rows of every variant of a project and
// mode share a group.
type Key struct {
	Project string
	Mode    string
}

func (k Key) compare(o Key) int {
	return cmp.Or(
		cmp.Compare(k.Project, o.Project),
		cmp.Compare(k.Mode, o.Mode),
	)
}

// Group is the mean of all rows sharing a key.
type Group struct {
	Key
	Coverage float64
	Execs    float64
	Samples  int
	// CoverageChange and ExecsChange are percentages relative to the
	// baseline, nil without a comparable baseline group.
	CoverageChange *float64
	ExecsChange    *float64
}

// Summary is the aggregated campaign result.
type Summary struct {
	Groups      []Group
	HasBaseline bool
}

type mean struct {
	key      Key
	coverage float64
	execs    float64
	n        int
}

func means(rows []Row) map[Key]*mean {
	out := make(map[Key]*mean)
	for _, r := range rows {
		m, ok := out[r.Key()]
		if !ok {
			m = &mean{key: r.Key()}
			out[r.Key()] = m
		}
		m.coverage += r.Coverage
		m.execs += float64(r.Execs)
		m.n++
	}
	for _, m := range out {
		m.coverage /= float64(m.n)
		m.execs /= float64(m.n)
	}
	return out
}

// change returns (new - old) * 100 / old, nil when old is zero.
func change(newVal, oldVal float64) *float64 {
	if oldVal == 0 {
		return nil
	}
	c := (newVal - oldVal) * 100 / oldVal
	return &c
}

// Summarize groups rows by key and compares them with the baseline rows of
// a previous campaign. With a baseline, groups are ordered by coverage
// change, largest first, and groups that cannot be compared go last.
// Without one they are ordered by key.
func Summarize(rows, baseline []Row) Summary {
	current := means(rows)
	var previous map[Key]*mean
	if len(baseline) > 0 {
		previous = means(baseline)
	}

	s := Summary{HasBaseline: previous != nil}
	for key, m := range current {
		g := Group{Key: key, Coverage: m.coverage, Execs: m.execs, Samples: m.n}
		if old, ok := previous[key]; ok {
			g.CoverageChange = change(m.coverage, old.coverage)
			g.ExecsChange = change(m.execs, old.execs)
		}
		s.Groups = append(s.Groups, g)
	}

	slices.SortFunc(s.Groups, func(a, b Group) int {
		if s.HasBaseline {
			switch {
			case a.CoverageChange != nil && b.CoverageChange == nil:
				return -1
			case a.CoverageChange == nil && b.CoverageChange != nil:
				return 1
			case a.CoverageChange != nil && b.CoverageChange != nil:
				if c := cmp.Compare(*b.CoverageChange, *a.CoverageChange); c != 0 {
					return c
				}
			}
		}
		return a.Key.compare(b.Key)
	})
	return s
}

// Group returns the group for key.
func (s Summary) Group(key Key) (Group, bool) {
	for _, g := range s.Groups {
		if g.Key == key {
			return g, true
		}
	}
	return Group{}, false
}

// Table renders the summary as a fixed-format text table. Identical
// summaries render identically.
func (s Summary) Table() string {
	header := table.Row{"Project", "Mode", "Runs", "Coverage %", "Execs"}
	if s.HasBaseline {
		header = append(header, "Coverage Δ", "Execs Δ")
	}

	t := table.NewWriter()
	t.AppendHeader(header)
	for _, g := range s.Groups {
		row := table.Row{g.Project, g.Mode, g.Samples, fmt.Sprintf("%.2f", g.Coverage), fmt.Sprintf("%.2f", g.Execs)}
		if s.HasBaseline {
			row = append(row, formatChange(g.CoverageChange), formatChange(g.ExecsChange))
		}
		t.AppendRow(row)
	}

	align := make([]table.ColumnConfig, 0, len(header))
	for i := 2; i < len(header); i++ {
		align = append(align, table.ColumnConfig{Number: i + 1, Align: text.AlignRight})
	}
	t.SetColumnConfigs(align)
	return t.Render()
}

func formatChange(c *float64) string {
	if c == nil {
		return "-"
	}
	return fmt.Sprintf("%+.2f%%", *c)
}
