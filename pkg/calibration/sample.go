package calibration

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Sample is one historical (provider, operation, node count) data point.
// Samples are immutable once written; they are only ever appended by the
// capture mode after a successful run.
type Sample struct {
	Provider   string
	Operation  string
	Nodes      int
	TotalLines int
	Duration   time.Duration
	RecordedAt time.Time
}

// fileName encodes provider, operation, and node count so samples for the
// same pair of names but different node counts never collide.
func fileName(provider, operation string, nodes int) string {
	return fmt.Sprintf("%s_%s_n%d.sample", provider, operation, nodes)
}

// requiredKeys are the keys every sample file must carry.
var requiredKeys = []string{"provider", "operation", "nodes", "total_lines", "duration", "timestamp"}

// LoadSample reads one sample file of key = value lines.
func LoadSample(path string) (*Sample, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read sample file: %w", err)
	}

	values := make(map[string]string)
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return nil, fmt.Errorf("malformed sample line in %s: %q", path, line)
		}
		values[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}

	for _, key := range requiredKeys {
		if _, ok := values[key]; !ok {
			return nil, fmt.Errorf("sample file %s is missing key %q", path, key)
		}
	}

	nodes, err := strconv.Atoi(values["nodes"])
	if err != nil {
		return nil, fmt.Errorf("invalid nodes value in %s: %w", path, err)
	}
	lines, err := strconv.Atoi(values["total_lines"])
	if err != nil {
		return nil, fmt.Errorf("invalid total_lines value in %s: %w", path, err)
	}
	durationSecs, err := strconv.ParseFloat(values["duration"], 64)
	if err != nil {
		return nil, fmt.Errorf("invalid duration value in %s: %w", path, err)
	}
	recordedAt, err := time.Parse(time.RFC3339, values["timestamp"])
	if err != nil {
		return nil, fmt.Errorf("invalid timestamp value in %s: %w", path, err)
	}

	return &Sample{
		Provider:   values["provider"],
		Operation:  values["operation"],
		Nodes:      nodes,
		TotalLines: lines,
		Duration:   time.Duration(durationSecs * float64(time.Second)),
		RecordedAt: recordedAt,
	}, nil
}

// WriteSample records one sample in the calibration directory, replacing
// any previous sample for the same (provider, operation, nodes) key.
func WriteSample(dir string, s Sample) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create calibration directory: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "provider = %s\n", s.Provider)
	fmt.Fprintf(&b, "operation = %s\n", s.Operation)
	fmt.Fprintf(&b, "nodes = %d\n", s.Nodes)
	fmt.Fprintf(&b, "total_lines = %d\n", s.TotalLines)
	fmt.Fprintf(&b, "duration = %.1f\n", s.Duration.Seconds())
	fmt.Fprintf(&b, "timestamp = %s\n", s.RecordedAt.UTC().Format(time.RFC3339))

	path := filepath.Join(dir, fileName(s.Provider, s.Operation, s.Nodes))
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("failed to write sample file: %w", err)
	}
	return nil
}

// Discover loads every sample for a (provider, operation) pair from the
// calibration directory, sorted by node count. A missing directory yields
// an empty slice.
func Discover(dir, provider, operation string) ([]Sample, error) {
	pattern := filepath.Join(dir, fmt.Sprintf("%s_%s_n*.sample", provider, operation))
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to scan calibration directory: %w", err)
	}

	samples := make([]Sample, 0, len(matches))
	for _, path := range matches {
		s, err := LoadSample(path)
		if err != nil {
			return nil, err
		}
		if s.Provider != provider || s.Operation != operation {
			continue
		}
		samples = append(samples, *s)
	}

	sort.Slice(samples, func(i, j int) bool {
		return samples[i].Nodes < samples[j].Nodes
	})
	return samples, nil
}
