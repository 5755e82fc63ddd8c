package bind

import (
	"fmt"
	"sort"
	"strings"
)

// Report renders a Markdown dependency-graph summary: most-depended-
// upon modules, orphan modules (no incoming or outgoing edges), and a
// cycle-free confirmation, grounded on code_analyze_tools.py's
// generate_report.
func Report(g *DependencyGraph) string {
	modules := g.Modules()
	edgeCount := 0
	inDegree := make(map[string]int, len(modules))
	outDegree := make(map[string]int, len(modules))

	for _, m := range modules {
		edges := g.Edges(m)
		outDegree[m] = len(edges)
		edgeCount += len(edges)
		for _, e := range edges {
			inDegree[g.ModuleName(e.Target)]++
		}
	}

	var b strings.Builder
	fmt.Fprintln(&b, "# Dependency Graph Report")
	fmt.Fprintln(&b)
	fmt.Fprintln(&b, "## Overview")
	fmt.Fprintf(&b, "- Modules: %d\n", len(modules))
	fmt.Fprintf(&b, "- Edges: %d\n", edgeCount)
	fmt.Fprintln(&b)

	ranked := make([]string, len(modules))
	copy(ranked, modules)
	sort.Slice(ranked, func(i, j int) bool {
		if inDegree[ranked[i]] != inDegree[ranked[j]] {
			return inDegree[ranked[i]] > inDegree[ranked[j]]
		}
		return ranked[i] < ranked[j]
	})

	fmt.Fprintln(&b, "## Most-depended-upon modules")
	top := ranked
	if len(top) > 10 {
		top = top[:10]
	}
	for _, m := range top {
		if inDegree[m] == 0 {
			break
		}
		fmt.Fprintf(&b, "- %s: %d incoming reference(s)\n", m, inDegree[m])
	}
	fmt.Fprintln(&b)

	var orphans []string
	for _, m := range modules {
		if inDegree[m] == 0 && outDegree[m] == 0 {
			orphans = append(orphans, m)
		}
	}
	sort.Strings(orphans)
	fmt.Fprintln(&b, "## Orphan modules")
	if len(orphans) == 0 {
		fmt.Fprintln(&b, "(none)")
	} else {
		for _, m := range orphans {
			fmt.Fprintf(&b, "- %s\n", m)
		}
	}
	fmt.Fprintln(&b)

	fmt.Fprintln(&b, "## Cycles")
	if cycle := findCycle(g, modules); cycle != nil {
		fmt.Fprintf(&b, "Cycle detected: %s\n", strings.Join(cycle, " -> "))
	} else {
		fmt.Fprintln(&b, "No cycles detected.")
	}

	return b.String()
}

// findCycle runs DFS over the module graph, returning the first cycle
// found as a path of module names, or nil if the graph is acyclic.
func findCycle(g *DependencyGraph, modules []string) []string {
	const (
		unvisited = 0
		visiting  = 1
		done      = 2
	)
	state := make(map[string]int, len(modules))
	var path []string
	var cycle []string

	var visit func(m string) bool
	visit = func(m string) bool {
		state[m] = visiting
		path = append(path, m)
		for _, e := range g.Edges(m) {
			target := g.ModuleName(e.Target)
			switch state[target] {
			case visiting:
				cycle = append(append([]string{}, path...), target)
				return true
			case unvisited:
				if visit(target) {
					return true
				}
			}
		}
		path = path[:len(path)-1]
		state[m] = done
		return false
	}

	for _, m := range modules {
		if state[m] == unvisited {
			if visit(m) {
				return cycle
			}
		}
	}
	return nil
}
