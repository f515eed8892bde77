package schema

import (
	"sort"

	"github.com/fraiseql/fraiseql-engine/internal/ferr"
	lru "github.com/hashicorp/golang-lru"
)

const rootQuery = "Query"
const rootMutation = "Mutation"
const rootSubscription = "Subscription"

// CyclePath is a normalized cycle reported by FindCycles.
type CyclePath struct {
	Nodes          []string
	Path           string // human readable "A → B → A" form
	IsSelfRef bool
}

// ChangeImpact is the result of ImpactOfDeletion: everything that would
// break if the target type were removed.
type ChangeImpact struct {
	Target          string
	AffectedTypes   []string
	BreakingChanges []string
}

// Graph is the directed dependency graph over type names. Outgoing holds
// depends-on edges; Incoming holds depended-by edges. They are maintained
// as consistent inverses of each other.
type Graph struct {
	outgoing map[string]map[string]struct{}
	incoming map[string]map[string]struct{}
	roots    map[string]struct{}

	// lookupCache memoizes DependenciesOf/DependentsOf results for large,
	// read-mostly schemas. It is invalidated whenever Build repopulates the
	// graph.
	lookupCache *lru.Cache
}

// Build constructs the dependency graph from a compiled schema in one pass.
// Edges are added for: each field whose resolved type is non-scalar, each
// declared interface implementation, each union member, each input field's
// referenced type, and each operation's return type. A referenced type name
// that cannot be resolved is skipped (forward-compatible), matching the
// elision rule for the Unknown field-type case.
func Build(s *Schema) (*Graph, error) {
	g := &Graph{
		outgoing: map[string]map[string]struct{}{},
		incoming: map[string]map[string]struct{}{},
		roots:    map[string]struct{}{},
	}
	g.lookupCache, _ = lru.New(1024)

	ensure := func(name string) {
		if _, ok := g.outgoing[name]; !ok {
			g.outgoing[name] = map[string]struct{}{}
		}
		if _, ok := g.incoming[name]; !ok {
			g.incoming[name] = map[string]struct{}{}
		}
	}

	addEdge := func(from, to string) {
		if !s.HasType(to) {
			// Unknown referenced type during resolution: skip the edge
			// rather than failing the whole build (forward compatible).
			return
		}
		ensure(from)
		ensure(to)
		g.outgoing[from][to] = struct{}{}
		g.incoming[to][from] = struct{}{}
	}

	for name, obj := range s.Objects {
		ensure(name)
		for _, f := range obj.Fields {
			if !f.Type.IsScalar() {
				if tn := f.Type.TypeName(); tn != "" {
					addEdge(name, tn)
				}
			}
		}
		for _, iface := range obj.Implements {
			addEdge(name, iface)
		}
	}
	for name := range s.Enums {
		ensure(name)
	}
	for name, in := range s.Inputs {
		ensure(name)
		for _, f := range in.Fields {
			if !f.Type.IsScalar() {
				if tn := f.Type.TypeName(); tn != "" {
					addEdge(name, tn)
				}
			}
		}
	}
	for name := range s.Interfaces {
		ensure(name)
	}
	for name, u := range s.Unions {
		ensure(name)
		for _, m := range u.Members {
			addEdge(name, m)
		}
	}

	// Virtual root types are inserted only when the schema declares an
	// operation of that kind, so that an engine with no mutations never
	// reports "Mutation" as unused.
	haveRoot := map[OperationKind]bool{}
	for _, op := range s.Operations {
		haveRoot[op.Kind] = true
	}
	for kind, have := range haveRoot {
		if !have {
			continue
		}
		root := kind.RootName()
		ensure(root)
		g.roots[root] = struct{}{}
	}
	for _, op := range s.Operations {
		root := op.Kind.RootName()
		addEdge(root, op.ReturnType)
	}

	return g, nil
}

// AllTypes returns every node name, sorted lexicographically.
func (g *Graph) AllTypes() []string {
	out := make([]string, 0, len(g.outgoing))
	for name := range g.outgoing {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// TypeCount returns the number of nodes in the graph.
func (g *Graph) TypeCount() int { return len(g.outgoing) }

// HasType reports whether name is a node in the graph.
func (g *Graph) HasType(name string) bool {
	_, ok := g.outgoing[name]
	return ok
}

// DependenciesOf returns the sorted set of types name directly depends on.
func (g *Graph) DependenciesOf(name string) []string {
	if v, ok := g.lookupCache.Get("dep:" + name); ok {
		return v.([]string)
	}
	out := setToSortedSlice(g.outgoing[name])
	g.lookupCache.Add("dep:"+name, out)
	return out
}

// DependentsOf returns the sorted set of types that directly depend on
// name.
func (g *Graph) DependentsOf(name string) []string {
	if v, ok := g.lookupCache.Get("rdep:" + name); ok {
		return v.([]string)
	}
	out := setToSortedSlice(g.incoming[name])
	g.lookupCache.Add("rdep:"+name, out)
	return out
}

func setToSortedSlice(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// FindUnused returns every node with no incoming edges that is not a
// virtual root, sorted lexicographically.
func (g *Graph) FindUnused() []string {
	var out []string
	for name := range g.outgoing {
		if _, isRoot := g.roots[name]; isRoot {
			continue
		}
		if len(g.incoming[name]) == 0 {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// FindCycles runs a standard DFS with an explicit recursion stack; on a
// back-edge (an outgoing edge into a node already on the stack) the path is
// sliced from the repeated node to the current node and recorded as a
// cycle. Cycles are then normalized: each is rotated to start at its
// lexicographically smallest member, and the resulting list is sorted and
// deduplicated. Self-cycles (single-node, node → node) are preserved.
func (g *Graph) FindCycles() []CyclePath {
	visited := map[string]bool{}
	onStack := map[string]bool{}
	var stack []string
	var raw [][]string

	var visit func(node string)
	visit = func(node string) {
		visited[node] = true
		onStack[node] = true
		stack = append(stack, node)

		for _, next := range g.DependenciesOf(node) {
			if onStack[next] {
				// Back-edge: slice from next's position to the end.
				idx := -1
				for i, n := range stack {
					if n == next {
						idx = i
						break
					}
				}
				if idx >= 0 {
					cyclePath := append([]string{}, stack[idx:]...)
					raw = append(raw, cyclePath)
				}
				continue
			}
			if !visited[next] {
				visit(next)
			}
		}

		stack = stack[:len(stack)-1]
		onStack[node] = false
	}

	for _, name := range g.AllTypes() {
		if !visited[name] {
			visit(name)
		}
	}

	return normalizeCycles(raw)
}

func normalizeCycles(raw [][]string) []CyclePath {
	seen := map[string]CyclePath{}
	for _, nodes := range raw {
		rotated := rotateToMin(nodes)
		key := joinKey(rotated)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = CyclePath{
			Nodes:     rotated,
			Path:      pathString(rotated),
			IsSelfRef: len(rotated) == 1,
		}
	}

	out := make([]CyclePath, 0, len(seen))
	for _, c := range seen {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		return joinKey(out[i].Nodes) < joinKey(out[j].Nodes)
	})
	return out
}

func rotateToMin(nodes []string) []string {
	if len(nodes) == 0 {
		return nodes
	}
	minIdx := 0
	for i, n := range nodes {
		if n < nodes[minIdx] {
			minIdx = i
		}
	}
	out := make([]string, 0, len(nodes))
	out = append(out, nodes[minIdx:]...)
	out = append(out, nodes[:minIdx]...)
	return out
}

func joinKey(nodes []string) string {
	s := ""
	for i, n := range nodes {
		if i > 0 {
			s += "\x00"
		}
		s += n
	}
	return s
}

func pathString(nodes []string) string {
	s := ""
	for i, n := range nodes {
		if i > 0 {
			s += " → "
		}
		s += n
	}
	if len(nodes) > 0 {
		s += " → " + nodes[0]
	}
	return s
}

// ImpactOfDeletion performs a BFS over incoming edges from target,
// collecting every direct and transitive dependent. The target itself is
// excluded from the affected set. A breaking-change message is recorded
// per dependent.
func (g *Graph) ImpactOfDeletion(target string) (ChangeImpact, error) {
	if !g.HasType(target) {
		return ChangeImpact{}, ferr.Validation("unknown type %q", target)
	}

	visited := map[string]bool{target: true}
	queue := []string{target}
	var affected []string
	var breaking []string

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, dep := range g.DependentsOf(cur) {
			if visited[dep] {
				continue
			}
			visited[dep] = true
			affected = append(affected, dep)
			breaking = append(breaking, dep+" depends on "+target+" and would break if it were removed")
			queue = append(queue, dep)
		}
	}

	sort.Strings(affected)
	return ChangeImpact{
		Target:          target,
		AffectedTypes:   affected,
		BreakingChanges: breaking,
	}, nil
}

// TransitiveDependencies returns every type reachable by following
// outgoing edges from name, excluding name itself.
func (g *Graph) TransitiveDependencies(name string) []string {
	return g.transitiveClosure(name, g.outgoing)
}

// TransitiveDependents returns every type that can reach name by following
// outgoing edges, i.e. every transitive consumer of name.
func (g *Graph) TransitiveDependents(name string) []string {
	return g.transitiveClosure(name, g.incoming)
}

func (g *Graph) transitiveClosure(name string, edges map[string]map[string]struct{}) []string {
	visited := map[string]bool{name: true}
	queue := []string{name}
	var out []string
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for next := range edges[cur] {
			if visited[next] {
				continue
			}
			visited[next] = true
			out = append(out, next)
			queue = append(queue, next)
		}
	}
	sort.Strings(out)
	return out
}
