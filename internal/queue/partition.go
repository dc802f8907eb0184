package queue

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// PartitionState is the persisted cursor over the seed universe. One run
// scans exactly one partition; the cursor advances only after the run
// completes successfully, so a crashed run does not skip its partition.
type PartitionState struct {
	CurrentIndex int `json:"current_index"`
}

// LoadPartitionState reads the cursor file. An absent or corrupt file is
// treated as index 0.
func LoadPartitionState(path string) PartitionState {
	data, err := os.ReadFile(path)
	if err != nil {
		return PartitionState{}
	}

	var state PartitionState
	if err := json.Unmarshal(data, &state); err != nil || state.CurrentIndex < 0 {
		return PartitionState{}
	}
	return state
}

// Save writes the cursor file.
func (s PartitionState) Save(path string) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal partition state: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write partition state %s: %w", path, err)
	}
	return nil
}

// SelectPartition picks the seed for this run. Indexes outside the
// universe wrap, so a shrunk seed list never strands the cursor.
func SelectPartition(universe []string, index int) (string, int) {
	if len(universe) == 0 {
		return "", 0
	}
	idx := index % len(universe)
	if idx < 0 {
		idx = 0
	}
	return universe[idx], idx
}

// Advance moves the cursor one position forward, wrapping modulo the
// universe size, and persists it. Call only after a successful run.
func Advance(path string, universeSize int) error {
	if universeSize <= 0 {
		return fmt.Errorf("advance partition: empty universe")
	}
	state := LoadPartitionState(path)
	state.CurrentIndex = (state.CurrentIndex + 1) % universeSize
	return state.Save(path)
}

// LoadSeeds reads the line-oriented seed universe file. Blank lines are
// ignored.
func LoadSeeds(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open seeds file %s: %w", path, err)
	}
	defer f.Close()

	var seeds []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		seeds = append(seeds, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read seeds file %s: %w", path, err)
	}
	return seeds, nil
}
