package core

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// CoreSet is a sorted list of CPU core ids.
type CoreSet []int

// Range returns the cores [start, start+n).
func Range(start, n int) CoreSet {
	cs := make(CoreSet, n)
	for i := range cs {
		cs[i] = start + i
	}
	return cs
}

// ParseCoreSet parses the comma separated form produced by String.
func ParseCoreSet(s string) (CoreSet, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return CoreSet{}, nil
	}
	var cs CoreSet
	for part := range strings.SplitSeq(s, ",") {
		id, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || id < 0 {
			return nil, fmt.Errorf("invalid core id %q", part)
		}
		cs = append(cs, id)
	}
	slices.Sort(cs)
	return slices.Compact(cs), nil
}

// String renders the set in the engine's --cores list format, e.g. "0,1,2".
func (cs CoreSet) String() string {
	parts := make([]string, len(cs))
	for i, c := range cs {
		parts[i] = strconv.Itoa(c)
	}
	return strings.Join(parts, ",")
}

// Overlaps reports whether the two sets share a core id.
func (cs CoreSet) Overlaps(other CoreSet) bool {
	for _, c := range cs {
		if slices.Contains(other, c) {
			return true
		}
	}
	return false
}
