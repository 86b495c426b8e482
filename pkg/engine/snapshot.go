package engine

import (
	"encoding/json"
	"fmt"
	"os"
)

// Snapshot is a saved batch of outputs, used as a baseline for comparison
type Snapshot struct {
	RunID   string   `json:"run_id,omitempty"`
	Outputs []Output `json:"outputs"`
}

// SaveSnapshot writes outputs to a JSON file
func SaveSnapshot(path string, s Snapshot) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// LoadSnapshot reads a file written by SaveSnapshot
func LoadSnapshot(path string) (Snapshot, error) {
	var s Snapshot
	data, err := os.ReadFile(path)
	if err != nil {
		return s, err
	}
	if err := json.Unmarshal(data, &s); err != nil {
		return s, fmt.Errorf("failed to parse snapshot %s: %w", path, err)
	}
	return s, nil
}

// Change describes one control across two snapshots
type Change struct {
	ControlText string  `json:"control_text"`
	Before      *Result `json:"before,omitempty"`
	After       *Result `json:"after,omitempty"`
}

// ScoreDelta is After.Score - Before.Score, or 0 when either side is missing
func (c Change) ScoreDelta() int {
	if c.Before == nil || c.After == nil {
		return 0
	}
	return c.After.Score - c.Before.Score
}

// SnapshotDiff groups controls by how their assessment moved
type SnapshotDiff struct {
	Improved  []Change `json:"improved"`
	Regressed []Change `json:"regressed"`
	Unchanged []Change `json:"unchanged"`
	Added     []Change `json:"added"`
	Removed   []Change `json:"removed"`
}

var statusRank = map[Status]int{
	StatusNonCompliant: 0,
	StatusPartial:      1,
	StatusCompliant:    2,
}

// CompareSnapshots matches results by control text and classifies each
// control. Failed outputs are ignored. Order follows the current snapshot,
// then removed controls in baseline order.
func CompareSnapshots(baseline, current Snapshot) SnapshotDiff {
	before := indexResults(baseline.Outputs)
	seen := make(map[string]bool)

	var d SnapshotDiff
	for _, o := range current.Outputs {
		if o.Failed() || seen[o.Result.InputControlText] {
			continue
		}
		key := o.Result.InputControlText
		seen[key] = true

		prev, ok := before[key]
		if !ok {
			d.Added = append(d.Added, Change{ControlText: key, After: o.Result})
			continue
		}

		c := Change{ControlText: key, Before: prev, After: o.Result}
		rankDelta := statusRank[o.Result.Status] - statusRank[prev.Status]
		switch {
		case rankDelta > 0 || (rankDelta == 0 && c.ScoreDelta() > 0):
			d.Improved = append(d.Improved, c)
		case rankDelta < 0 || (rankDelta == 0 && c.ScoreDelta() < 0):
			d.Regressed = append(d.Regressed, c)
		default:
			d.Unchanged = append(d.Unchanged, c)
		}
	}

	for _, o := range baseline.Outputs {
		if o.Failed() || seen[o.Result.InputControlText] {
			continue
		}
		seen[o.Result.InputControlText] = true
		d.Removed = append(d.Removed, Change{ControlText: o.Result.InputControlText, Before: o.Result})
	}
	return d
}

// indexResults keeps the first result for each control text
func indexResults(outputs []Output) map[string]*Result {
	idx := make(map[string]*Result)
	for _, o := range outputs {
		if o.Failed() {
			continue
		}
		if _, ok := idx[o.Result.InputControlText]; !ok {
			idx[o.Result.InputControlText] = o.Result
		}
	}
	return idx
}
