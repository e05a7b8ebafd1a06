package tools

import (
	"fmt"
	"strings"
)

// SILStats holds line counts from a SIL dump. Counting is a substring
// heuristic: a line is counted once per marker it contains, so a line like
// "dealloc_stack" counts both as an allocation and a deallocation.
type SILStats struct {
	Allocations   int
	Deallocations int
	Retains       int
	Releases      int
}

// AllocationBalance is allocations minus deallocations
func (s SILStats) AllocationBalance() int {
	return s.Allocations - s.Deallocations
}

// RetainBalance is retains minus releases
func (s SILStats) RetainBalance() int {
	return s.Retains - s.Releases
}

// AnalyzeSIL counts lines containing alloc_, dealloc, strong_retain and
// strong_release.
func AnalyzeSIL(sil string) SILStats {
	var stats SILStats

	for _, line := range strings.Split(sil, "\n") {
		if strings.Contains(line, "alloc_") {
			stats.Allocations++
		}
		if strings.Contains(line, "dealloc") {
			stats.Deallocations++
		}
		if strings.Contains(line, "strong_retain") {
			stats.Retains++
		}
		if strings.Contains(line, "strong_release") {
			stats.Releases++
		}
	}
	return stats
}

// Report renders the stats for the dispatcher
func (s SILStats) Report() string {
	return fmt.Sprintf(`Memory Analysis Results (heuristic):
- Allocations: %d
- Deallocations: %d
- Retains: %d
- Releases: %d
- Balance: %d allocations, %d retains
Note: counts are substring matches over SIL text, not a data-flow analysis; instructions may be double-counted or missed.`,
		s.Allocations,
		s.Deallocations,
		s.Retains,
		s.Releases,
		s.AllocationBalance(),
		s.RetainBalance(),
	)
}
