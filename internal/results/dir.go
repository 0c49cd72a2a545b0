package results

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/mayant15/railcar-bench/internal/cmn/fileutil"
	"github.com/shirou/gopsutil/v4/host"
)

// Files written at the top of a results root.
const (
	SummaryFileName  = "summary.txt"
	RowsFileName     = "coverage.csv"
	ReportFileName   = "coverage.json"
	unknownRevision  = "unknown"
	rootDirTimestamp = "2006-01-02"
)

// NycSummaryFileName is written to a job's coverage dir by nyc's
// json-summary reporter.
const NycSummaryFileName = "coverage-summary.json"

// ErrNoReport means a job left no coverage report.
var ErrNoReport = errors.New("no coverage report")

// EnsureDir creates a fresh results root <base>/<prefix>-<date>-<unix>. An
// existing directory of the same name is removed first.
func EnsureDir(base, prefix string, now time.Time) (string, error) {
	name := fmt.Sprintf("%s-%s-%d", prefix, now.Format(rootDirTimestamp), now.Unix())
	dir := filepath.Join(base, name)
	if err := os.RemoveAll(dir); err != nil {
		return "", fmt.Errorf("failed to remove stale results dir %s: %w", dir, err)
	}
	if err := os.MkdirAll(dir, 0750); err != nil {
		return "", fmt.Errorf("failed to create results dir %s: %w", dir, err)
	}
	return dir, nil
}

// PreviousDir returns the most recently modified directory in base whose
// name starts with prefix, skipping exclude. It returns "" when there is
// none.
func PreviousDir(base, prefix, exclude string) (string, error) {
	entries, err := os.ReadDir(base)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to list %s: %w", base, err)
	}

	var (
		newest  string
		newestT time.Time
	)
	exclude = filepath.Clean(exclude)
	for _, e := range entries {
		if !e.IsDir() || !strings.HasPrefix(e.Name(), prefix+"-") {
			continue
		}
		path := filepath.Join(base, e.Name())
		if path == exclude {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if newest == "" || info.ModTime().After(newestT) {
			newest, newestT = path, info.ModTime()
		}
	}
	return newest, nil
}

// LoadBaseline reads the rows of a previous root. A missing directory or
// rows file yields a nil baseline.
func LoadBaseline(dir string) ([]Row, error) {
	if dir == "" {
		return nil, nil
	}
	f, err := os.Open(filepath.Join(dir, RowsFileName))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open baseline: %w", err)
	}
	defer func() { _ = f.Close() }()

	rows, err := ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read baseline %s: %w", f.Name(), err)
	}
	return rows, nil
}

// Header is the metadata printed above the summary table.
type Header struct {
	Revision   string
	Host       string
	Timeout    time.Duration
	Seeds      []int
	CampaignID string
	Baseline   string
}

func (h Header) String() string {
	var b strings.Builder
	if h.CampaignID != "" {
		fmt.Fprintf(&b, "campaign: %s\n", h.CampaignID)
	}
	fmt.Fprintf(&b, "revision: %s\n", h.Revision)
	if h.Host != "" {
		fmt.Fprintf(&b, "host: %s\n", h.Host)
	}
	if h.Timeout > 0 {
		fmt.Fprintf(&b, "timeout: %s\n", h.Timeout)
	} else {
		b.WriteString("timeout: none\n")
	}
	for i, s := range h.Seeds {
		fmt.Fprintf(&b, "iter_%d seed: %d\n", i, s)
	}
	if h.Baseline != "" {
		fmt.Fprintf(&b, "baseline: %s\n", filepath.Base(h.Baseline))
	}
	return b.String()
}

// Render returns the full summary text: header, blank line, table.
func Render(header Header, summary Summary) string {
	return header.String() + "\n" + summary.Table() + "\n"
}

// WriteSummary writes summary.txt into dir and returns its path.
func WriteSummary(dir string, header Header, summary Summary) (string, error) {
	path := filepath.Join(dir, SummaryFileName)
	if err := os.WriteFile(path, []byte(Render(header, summary)), 0600); err != nil {
		return "", fmt.Errorf("failed to write summary: %w", err)
	}
	return path, nil
}

// WriteRows writes coverage.csv into dir and returns its path.
func WriteRows(dir string, rows []Row) (string, error) {
	path := filepath.Join(dir, RowsFileName)
	var buf bytes.Buffer
	if err := WriteCSV(&buf, rows); err != nil {
		return "", fmt.Errorf("failed to encode rows: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0600); err != nil {
		return "", fmt.Errorf("failed to write rows: %w", err)
	}
	return path, nil
}

// GitRevision returns the HEAD commit of the repository containing dir as
// "<hash> <subject>", or "unknown".
func GitRevision(_ context.Context, dir string) string {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return unknownRevision
	}
	head, err := repo.Head()
	if err != nil {
		return unknownRevision
	}
	commit, err := repo.CommitObject(head.Hash())
	if err != nil {
		return head.Hash().String()
	}
	subject, _, _ := strings.Cut(strings.TrimSpace(commit.Message), "\n")
	return head.Hash().String() + " " + subject
}

// HostName describes the machine the campaign ran on.
func HostName(ctx context.Context) string {
	info, err := host.InfoWithContext(ctx)
	if err != nil {
		return ""
	}
	if info.Platform == "" {
		return info.Hostname
	}
	return fmt.Sprintf("%s (%s %s)", info.Hostname, info.Platform, info.PlatformVersion)
}

// CoverageReport is the line and branch coverage scraped from the nyc report.
type CoverageReport struct {
	Line   float64 `json:"line"`
	Branch float64 `json:"branch"`
}

type nycMetric struct {
	Pct float64 `json:"pct"`
}

// nycSummary is the part of nyc's json-summary output that is read.
type nycSummary struct {
	Total struct {
		Lines    nycMetric `json:"lines"`
		Branches nycMetric `json:"branches"`
	} `json:"total"`
}

// ReadCoverageReport reads the line and branch percentages of the coverage
// report in dir. A scraped coverage.json takes precedence over the totals
// of nyc's json-summary report.
func ReadCoverageReport(dir string) (CoverageReport, error) {
	path := filepath.Join(dir, ReportFileName)
	if fileutil.FileExists(path) {
		var report CoverageReport
		if err := readJSON(path, &report); err != nil {
			return CoverageReport{}, err
		}
		return report, nil
	}

	path = filepath.Join(dir, NycSummaryFileName)
	if fileutil.FileExists(path) {
		var summary nycSummary
		if err := readJSON(path, &summary); err != nil {
			return CoverageReport{}, err
		}
		return CoverageReport{Line: summary.Total.Lines.Pct, Branch: summary.Total.Branches.Pct}, nil
	}
	return CoverageReport{}, ErrNoReport
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("invalid coverage report %s: %w", path, err)
	}
	return nil
}
