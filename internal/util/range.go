// Package util provides small, dependency-free helpers shared across the
// engine: integer range expansion/compaction (grounded on the teacher's
// pkg/util/range.go).
package util

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ExpandRange expands "1-5", "1,3,5", or "1-3,5,7-9" into a sorted,
// deduplicated slice of ints.
func ExpandRange(spec string) ([]int, error) {
	if spec == "" {
		return nil, nil
	}
	var result []int
	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if strings.Contains(part, "-") {
			bounds := strings.SplitN(part, "-", 2)
			if len(bounds) != 2 {
				return nil, fmt.Errorf("invalid range: %s", part)
			}
			start, err := strconv.Atoi(strings.TrimSpace(bounds[0]))
			if err != nil {
				return nil, fmt.Errorf("invalid range start %q: %w", part, err)
			}
			end, err := strconv.Atoi(strings.TrimSpace(bounds[1]))
			if err != nil {
				return nil, fmt.Errorf("invalid range end %q: %w", part, err)
			}
			if start > end {
				return nil, fmt.Errorf("range start %d exceeds end %d in %q", start, end, part)
			}
			for i := start; i <= end; i++ {
				result = append(result, i)
			}
		} else {
			v, err := strconv.Atoi(part)
			if err != nil {
				return nil, fmt.Errorf("invalid value %q: %w", part, err)
			}
			result = append(result, v)
		}
	}
	sort.Ints(result)
	return dedupInts(result), nil
}

// CompactRange compacts a list of ints into range notation, e.g.
// [1,2,3,5,7,8,9] -> "1-3,5,7-9". Used by the Brocade planner to collapse
// consecutive ports into "ethe A to B" clauses.
func CompactRange(values []int) string {
	if len(values) == 0 {
		return ""
	}
	sorted := append([]int(nil), values...)
	sort.Ints(sorted)
	sorted = dedupInts(sorted)

	var parts []string
	start, end := sorted[0], sorted[0]
	for i := 1; i < len(sorted); i++ {
		if sorted[i] == end+1 {
			end = sorted[i]
			continue
		}
		parts = append(parts, formatRange(start, end))
		start, end = sorted[i], sorted[i]
	}
	parts = append(parts, formatRange(start, end))
	return strings.Join(parts, ",")
}

func formatRange(start, end int) string {
	if start == end {
		return strconv.Itoa(start)
	}
	return fmt.Sprintf("%d-%d", start, end)
}

func dedupInts(sorted []int) []int {
	if len(sorted) == 0 {
		return sorted
	}
	result := []int{sorted[0]}
	for i := 1; i < len(sorted); i++ {
		if sorted[i] != sorted[i-1] {
			result = append(result, sorted[i])
		}
	}
	return result
}

// Consecutive reports whether the values in v form one contiguous run
// (i.e. whether a port set would collapse into a single "ethe A to B"
// clause). It sorts a copy of v itself.
func Consecutive(v []int) bool {
	if len(v) < 2 {
		return true
	}
	sorted := append([]int(nil), v...)
	sort.Ints(sorted)
	for i := 1; i < len(sorted); i++ {
		if sorted[i] != sorted[i-1]+1 {
			return false
		}
	}
	return true
}
