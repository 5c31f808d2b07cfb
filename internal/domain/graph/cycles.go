package graph

import (
	"sort"
	"strings"

	"github.com/archlint/archlint/internal/domain"
)

// Cycles returns one cycle per strongly connected component of size
// greater than one: the shortest cycle through the component,
// normalized to start at its smallest element. External sinks have no
// outgoing edges and can never participate. Output order is stable
// regardless of file-discovery order.
func (g *DependencyGraph) Cycles() [][]string {
	if g == nil || len(g.Units) == 0 {
		return nil
	}

	adj := g.internalAdjacency()
	names := make([]string, 0, len(adj))
	for n := range adj {
		names = append(names, n)
	}
	sort.Strings(names)

	sccs := tarjanSCCs(names, adj)

	cycles := make([][]string, 0, len(sccs))
	for _, scc := range sccs {
		if c := shortestCycle(scc, adj); c != nil {
			cycles = append(cycles, c)
		}
	}
	sort.Slice(cycles, func(i, j int) bool {
		return strings.Join(cycles[i], "\x00") < strings.Join(cycles[j], "\x00")
	})
	if len(cycles) == 0 {
		return nil
	}
	return cycles
}

// tarjanSCCs computes strongly connected components of size > 1.
func tarjanSCCs(names []string, adj map[string][]string) [][]string {
	var (
		counter int
		index   = make(map[string]int, len(names))
		lowlink = make(map[string]int, len(names))
		onStack = make(map[string]bool, len(names))
		stack   []string
		sccs    [][]string
	)

	var strongconnect func(v string)
	strongconnect = func(v string) {
		index[v] = counter
		lowlink[v] = counter
		counter++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range adj[v] {
			if _, seen := index[w]; !seen {
				strongconnect(w)
				if lowlink[w] < lowlink[v] {
					lowlink[v] = lowlink[w]
				}
			} else if onStack[w] && index[w] < lowlink[v] {
				lowlink[v] = index[w]
			}
		}

		if lowlink[v] == index[v] {
			var scc []string
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			if len(scc) > 1 {
				sccs = append(sccs, scc)
			}
		}
	}

	for _, v := range names {
		if _, seen := index[v]; !seen {
			strongconnect(v)
		}
	}
	return sccs
}

// shortestCycle finds the shortest directed cycle inside one component
// by BFS from each member, restricted to the component. Starts are
// visited in sorted order so equal-length ties break the same way
// every run.
func shortestCycle(scc []string, adj map[string][]string) []string {
	member := make(map[string]bool, len(scc))
	for _, n := range scc {
		member[n] = true
	}
	starts := append([]string(nil), scc...)
	sort.Strings(starts)

	var best []string
	for _, start := range starts {
		cycle := bfsBackTo(start, member, adj)
		if cycle != nil && (best == nil || len(cycle) < len(best)) {
			best = cycle
		}
	}
	return normalizeCycle(best)
}

// bfsBackTo returns the shortest path start → ... → start inside the
// member set, without repeating the start at the end.
func bfsBackTo(start string, member map[string]bool, adj map[string][]string) []string {
	parent := make(map[string]string)
	visited := map[string]bool{start: true}
	queue := []string{start}

	for len(queue) > 0 {
		v := queue[0]
		queue = queue[1:]
		for _, w := range adj[v] {
			if !member[w] {
				continue
			}
			if w == start {
				path := []string{v}
				for cur := v; cur != start; {
					cur = parent[cur]
					path = append(path, cur)
				}
				for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
					path[i], path[j] = path[j], path[i]
				}
				return path
			}
			if !visited[w] {
				visited[w] = true
				parent[w] = v
				queue = append(queue, w)
			}
		}
	}
	return nil
}

// normalizeCycle rotates a cycle so the lexicographically smallest
// element comes first.
func normalizeCycle(cycle []string) []string {
	if len(cycle) == 0 {
		return nil
	}
	minIdx := 0
	for i, s := range cycle {
		if s < cycle[minIdx] {
			minIdx = i
		}
	}
	result := make([]string, len(cycle))
	for i := range cycle {
		result[i] = cycle[(minIdx+i)%len(cycle)]
	}
	return result
}

// internalAdjacency builds the sorted, deduplicated adjacency among
// indexed units only.
func (g *DependencyGraph) internalAdjacency() map[string][]string {
	adj := make(map[string][]string, len(g.Units))
	for path := range g.Units {
		node := g.Nodes[path]
		var out []string
		for to := range node.Out {
			if !domain.IsExternal(to) {
				out = append(out, to)
			}
		}
		sort.Strings(out)
		adj[path] = out
	}
	return adj
}

// CouplingOutlier is a unit whose internal fan-out is far above the
// project's median.
type CouplingOutlier struct {
	Unit      string  `json:"unit"`
	FanOut    int     `json:"fan_out"`
	MedianOut float64 `json:"median_fan_out"`
}

// CouplingOutliers returns units whose internal fan-out exceeds
// multiplier × median(fan-out). A median below 1 means most units
// import almost nothing internally; no confident signal, no outliers.
func (g *DependencyGraph) CouplingOutliers(multiplier float64) []CouplingOutlier {
	if g == nil || len(g.Units) == 0 {
		return nil
	}

	fanOuts := make([]int, 0, len(g.Units))
	for path := range g.Units {
		fanOuts = append(fanOuts, g.FanOutInternal(path))
	}
	sort.Ints(fanOuts)

	median := medianInt(fanOuts)
	if median < 1.0 {
		return nil
	}
	threshold := multiplier * median

	var outliers []CouplingOutlier
	for _, path := range sortedKeys(g.Units) {
		fo := g.FanOutInternal(path)
		if float64(fo) > threshold {
			outliers = append(outliers, CouplingOutlier{
				Unit:      path,
				FanOut:    fo,
				MedianOut: median,
			})
		}
	}
	return outliers
}

// medianInt returns the median of a sorted int slice.
func medianInt(sorted []int) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n%2 == 0 {
		return float64(sorted[n/2-1]+sorted[n/2]) / 2.0
	}
	return float64(sorted[n/2])
}
