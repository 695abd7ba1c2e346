package azimuth

import "slices"

// AccessSet declares, by component name, what state a system reads and
// writes. The core runs systems sequentially; the declarations exist so an
// external scheduler can decide which systems could safely run in parallel.
type AccessSet struct {
	Reads  []string
	Writes []string
}

// ConflictsWith reports whether two declarations touch overlapping state in a
// way that forbids running their systems concurrently: any write on one side
// against any access of the same component on the other.
func (a AccessSet) ConflictsWith(other AccessSet) bool {
	for _, name := range a.Writes {
		if slices.Contains(other.Writes, name) || slices.Contains(other.Reads, name) {
			return true
		}
	}
	for _, name := range other.Writes {
		if slices.Contains(a.Reads, name) {
			return true
		}
	}
	return false
}
