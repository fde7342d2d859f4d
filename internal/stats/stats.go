package stats

// Counter registry for the optimizer. Passes bump named counters as they
// rewrite the module; the final values are exported as a flat name,count CSV
// next to the output file and optionally printed as an aligned report.

import (
	"fmt"
	"io"
	"os"
	"sort"
)

// Counter is a named statistic with a human-readable description.
type Counter struct {
	Name string
	Desc string
	n    int64
}

// Add bumps the counter.
func (c *Counter) Add(delta int64) { c.n += delta }

// Inc bumps the counter by one.
func (c *Counter) Inc() { c.n++ }

// Value returns the current count.
func (c *Counter) Value() int64 { return c.n }

var registry []*Counter

// New registers a counter. Counters are package-level variables registered
// at init time, so the registry order is stable for the life of the process.
func New(name, desc string) *Counter {
	for _, c := range registry {
		if c.Name == name {
			panic("stats: duplicate counter " + name)
		}
	}
	c := &Counter{Name: name, Desc: desc}
	registry = append(registry, c)
	return c
}

// Reset zeroes every registered counter. Tests use it between runs.
func Reset() {
	for _, c := range registry {
		c.n = 0
	}
}

// Snapshot returns all counters in registration order.
func Snapshot() []*Counter {
	out := make([]*Counter, len(registry))
	copy(out, registry)
	return out
}

// WriteCSV writes every counter as a name,count row.
func WriteCSV(w io.Writer) error {
	for _, c := range registry {
		if _, err := fmt.Fprintf(w, "%s,%d\n", c.Name, c.n); err != nil {
			return err
		}
	}
	return nil
}

// ExportCSV writes the counter CSV to path.
func ExportCSV(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return WriteCSV(f)
}

// Print renders the verbose aligned report, widest counts first, sorted by
// name within equal widths.
func Print(w io.Writer) {
	sorted := Snapshot()
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	wide := 0
	for _, c := range sorted {
		if n := len(fmt.Sprintf("%d", c.n)); n > wide {
			wide = n
		}
	}

	fmt.Fprintf(w, "===%s===\n", "------- Statistics -------")
	for _, c := range sorted {
		fmt.Fprintf(w, "%*d %s - %s\n", wide, c.n, c.Name, c.Desc)
	}
}
