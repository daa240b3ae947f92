package gpio

import (
	"sort"
	"time"
)

// edge is the point within a PWM period where one line drops low.
type edge struct {
	At    time.Duration
	Index int
}

// fallingEdges returns, in time order, when each partially driven line must
// go low within a period. Lines at 0 or 1 have no edge.
func fallingEdges(duties []float64, period time.Duration) []edge {
	var edges []edge
	for i, d := range duties {
		if d <= 0 || d >= 1 {
			continue
		}
		edges = append(edges, edge{At: time.Duration(d * float64(period)), Index: i})
	}
	sort.SliceStable(edges, func(a, b int) bool { return edges[a].At < edges[b].At })
	return edges
}

// isStatic reports whether every line is fully on or fully off, so no
// toggling is needed.
func isStatic(duties []float64) bool {
	for _, d := range duties {
		if d > 0 && d < 1 {
			return false
		}
	}
	return true
}

func level(d float64) int {
	if d > 0 {
		return 1
	}
	return 0
}
