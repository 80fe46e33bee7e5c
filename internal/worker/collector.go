package worker

import "sort"

// Collect drains the results channel and returns the results sorted by
// filename, so the report is deterministic regardless of completion
// order.
func Collect(results <-chan Result) []Result {
	var out []Result
	for r := range results {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Name < out[j].Name
	})
	return out
}
