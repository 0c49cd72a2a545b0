// Package duration parses the job timeouts accepted in configuration.
package duration

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var dayPattern = regexp.MustCompile(`(\d+)d`)

// Parse accepts a bare number of seconds ("90") or a Go duration with an
// additional 'd' unit for days ("1d12h", "30m"). Zero is allowed and
// negative values are rejected.
func Parse(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty duration string")
	}

	if secs, err := strconv.Atoi(s); err == nil {
		if secs < 0 {
			return 0, fmt.Errorf("negative duration not allowed: %q", s)
		}
		return time.Duration(secs) * time.Second, nil
	}

	expanded := dayPattern.ReplaceAllStringFunc(s, func(match string) string {
		days, _ := strconv.Atoi(strings.TrimSuffix(match, "d"))
		return strconv.Itoa(days*24) + "h"
	})
	d, err := time.ParseDuration(expanded)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", s, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("negative duration not allowed: %q", s)
	}
	return d, nil
}
