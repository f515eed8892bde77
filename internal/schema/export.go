package schema

// ExportedNode is one node entry in the dependency-graph JSON export.
type ExportedNode struct {
	Name            string `json:"name"`
	DependencyCount int    `json:"dependency_count"`
	DependentCount  int    `json:"dependent_count"`
	IsRoot          bool   `json:"is_root"`
}

// ExportedEdge is one edge entry in the dependency-graph JSON export.
type ExportedEdge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// ExportedCycle mirrors a CyclePath for the JSON export.
type ExportedCycle struct {
	Types     []string `json:"types"`
	Path      string   `json:"path"`
	IsSelfRef bool     `json:"is_self_reference"`
}

// ExportStats summarizes the graph for quick dashboards.
type ExportStats struct {
	CycleCount int `json:"cycle_count"`
	UnusedCount int `json:"unused_count"`
}

// Export is the stable wire format for the dependency graph, matching the
// CLI's `depgraph` command output.
type Export struct {
	TypeCount   int            `json:"type_count"`
	Nodes       []ExportedNode `json:"nodes"`
	Edges       []ExportedEdge `json:"edges"`
	Cycles      []ExportedCycle `json:"cycles"`
	UnusedTypes []string       `json:"unused_types"`
	Stats       ExportStats    `json:"stats"`
}

// Export produces the JSON-serializable snapshot of the graph described in
// the external-interfaces contract: type_count, nodes (with dependency and
// dependent counts and root flag), edges, normalized cycles, unused types,
// and summary stats.
func (g *Graph) Export() Export {
	names := g.AllTypes()
	nodes := make([]ExportedNode, 0, len(names))
	var edges []ExportedEdge

	for _, n := range names {
		_, isRoot := g.roots[n]
		deps := g.DependenciesOf(n)
		nodes = append(nodes, ExportedNode{
			Name:            n,
			DependencyCount: len(deps),
			DependentCount:  len(g.DependentsOf(n)),
			IsRoot:          isRoot,
		})
		for _, to := range deps {
			edges = append(edges, ExportedEdge{From: n, To: to})
		}
	}

	cycles := g.FindCycles()
	expCycles := make([]ExportedCycle, 0, len(cycles))
	for _, c := range cycles {
		expCycles = append(expCycles, ExportedCycle{
			Types:     c.Nodes,
			Path:      c.Path,
			IsSelfRef: c.IsSelfRef,
		})
	}

	unused := g.FindUnused()

	return Export{
		TypeCount:   g.TypeCount(),
		Nodes:       nodes,
		Edges:       edges,
		Cycles:      expCycles,
		UnusedTypes: unused,
		Stats: ExportStats{
			CycleCount:  len(expCycles),
			UnusedCount: len(unused),
		},
	}
}
