package campaign

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/mayant15/railcar-bench/internal/results"
)

// RecordFile is the campaign metadata kept at the top of a results root.
const RecordFile = "campaign.yaml"

// Record describes a campaign run. It holds everything the summary header
// needs so a root can be summarized again with identical output.
type Record struct {
	ID        string    `yaml:"id"`
	CreatedAt time.Time `yaml:"createdAt"`
	Engine    string    `yaml:"engine"`
	Seeds     []int     `yaml:"seeds"`
	Timeout   string    `yaml:"timeout"`
	Capacity  int       `yaml:"capacity"`
	Jobs      int       `yaml:"jobs"`
	Revision  string    `yaml:"revision"`
	Host      string    `yaml:"host,omitempty"`
	// Baseline is the root this campaign is compared against.
	Baseline string `yaml:"baseline,omitempty"`
}

// Header returns the summary header of the campaign.
func (r Record) Header() results.Header {
	timeout, _ := time.ParseDuration(r.Timeout)
	return results.Header{
		Revision:   r.Revision,
		Host:       r.Host,
		Timeout:    timeout,
		Seeds:      r.Seeds,
		CampaignID: r.ID,
		Baseline:   r.Baseline,
	}
}

func writeRecord(root string, rec Record) error {
	data, err := yaml.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal campaign record: %w", err)
	}
	if err := os.WriteFile(filepath.Join(root, RecordFile), data, 0600); err != nil {
		return fmt.Errorf("failed to write campaign record: %w", err)
	}
	return nil
}

// ReadRecord reads the campaign record of root.
func ReadRecord(root string) (Record, error) {
	data, err := os.ReadFile(filepath.Join(root, RecordFile))
	if err != nil {
		return Record{}, fmt.Errorf("failed to read campaign record: %w", err)
	}
	var rec Record
	if err := yaml.Unmarshal(data, &rec); err != nil {
		return Record{}, fmt.Errorf("failed to parse campaign record: %w", err)
	}
	return rec, nil
}
