package activities

import (
	"sort"

	"github.com/logflow/patternflow/pkg/eventclass"
)

// NodeID indexes a node of a Forest.
type NodeID int

// Node is one activity of the hierarchy. Every child's classes are a
// subset of its parent's.
type Node struct {
	Classes        ClassSet
	Children       []NodeID
	Level          int
	Name           string
	Representative *AnchoredSpan
}

// Namer labels the activity represented by a span.
type Namer func(span AnchoredSpan) string

// Forest is an arena of activity nodes. It is read-only once built and
// safe for concurrent readers.
type Forest struct {
	nodes []Node
	roots []NodeID
}

// Len returns the number of nodes.
func (f *Forest) Len() int {
	return len(f.nodes)
}

// Node returns the node with the given id. Callers must not modify it.
func (f *Forest) Node(id NodeID) *Node {
	return &f.nodes[id]
}

// Roots returns the top-level activities in construction order.
func (f *Forest) Roots() []NodeID {
	return f.roots
}

// Visit calls fn for every node in depth-first order from each root.
// A node reachable from several parents is visited once per parent.
func (f *Forest) Visit(fn func(id NodeID, depth int)) {
	var visit func(id NodeID, depth int)
	visit = func(id NodeID, depth int) {
		fn(id, depth)
		for _, c := range f.nodes[id].Children {
			visit(c, depth+1)
		}
	}
	for _, r := range f.roots {
		visit(r, 0)
	}
}

// BuildForest creates one node per repeat and nests every node under a
// node whose classes contain its own. Nodes of the largest class-set size
// become roots. Smaller nodes are placed in descending size order: a node
// attaches to the first superset in the nearest larger size bucket, else
// to the first superset root, else it becomes a root itself. Roots are
// never compared with roots created after them.
func BuildForest(log [][]eventclass.Symbol, repeats []AnchoredSpan, level int, namer Namer) *Forest {
	f := &Forest{}
	if len(repeats) == 0 {
		return f
	}

	f.nodes = make([]Node, len(repeats))
	for i, rep := range repeats {
		rep := rep
		n := Node{
			Classes:        NewClassSet(rep.Symbols(log)),
			Level:          level,
			Representative: &rep,
		}
		if namer != nil {
			n.Name = namer(rep)
		}
		f.nodes[i] = n
	}

	order := make([]NodeID, len(f.nodes))
	for i := range order {
		order[i] = NodeID(i)
	}
	sort.SliceStable(order, func(i, j int) bool {
		return f.nodes[order[i]].Classes.Len() > f.nodes[order[j]].Classes.Len()
	})

	maxSize := f.nodes[order[0]].Classes.Len()
	next := 0
	for next < len(order) && f.nodes[order[next]].Classes.Len() == maxSize {
		f.roots = append(f.roots, order[next])
		next++
	}

	buckets := [][]NodeID{append([]NodeID(nil), f.roots...)}
	bucketSize := maxSize

	for _, id := range order[next:] {
		classes := f.nodes[id].Classes
		if classes.Len() != bucketSize {
			buckets = append(buckets, nil)
			bucketSize = classes.Len()
		}
		current := len(buckets) - 1

		parent, found := f.findParent(buckets[:current], id)
		if !found {
			parent, found = f.findRootParent(id)
		}
		if found {
			f.nodes[parent].Children = append(f.nodes[parent].Children, id)
		} else {
			f.roots = append(f.roots, id)
		}
		buckets[current] = append(buckets[current], id)
	}
	return f
}

// findParent searches the larger buckets from the nearest outward.
func (f *Forest) findParent(larger [][]NodeID, id NodeID) (NodeID, bool) {
	classes := f.nodes[id].Classes
	for b := len(larger) - 1; b >= 0; b-- {
		for _, cand := range larger[b] {
			if f.nodes[cand].Classes.ContainsAll(classes) {
				return cand, true
			}
		}
	}
	return 0, false
}

func (f *Forest) findRootParent(id NodeID) (NodeID, bool) {
	classes := f.nodes[id].Classes
	for _, r := range f.roots {
		if r != id && f.nodes[r].Classes.ContainsAll(classes) {
			return r, true
		}
	}
	return 0, false
}

// Narrow returns the largest descendant of id whose classes contain
// window, the last one in breadth-first order on ties, or id itself when
// no descendant matches.
func (f *Forest) Narrow(id NodeID, window ClassSet) NodeID {
	best, bestSize := id, -1
	queue := append([]NodeID(nil), f.nodes[id].Children...)
	for len(queue) > 0 {
		c := queue[0]
		queue = queue[1:]

		n := &f.nodes[c]
		if !n.Classes.ContainsAll(window) {
			continue
		}
		if n.Classes.Len() >= bestSize {
			best, bestSize = c, n.Classes.Len()
		}
		queue = append(queue, n.Children...)
	}
	return best
}

// Merge returns a forest holding the nodes of f followed by those of
// other. Node ids of f are unchanged; ids of other are shifted by f.Len().
func (f *Forest) Merge(other *Forest) *Forest {
	offset := NodeID(len(f.nodes))
	m := &Forest{
		nodes: make([]Node, 0, len(f.nodes)+len(other.nodes)),
		roots: make([]NodeID, 0, len(f.roots)+len(other.roots)),
	}
	m.nodes = append(m.nodes, f.nodes...)
	m.roots = append(m.roots, f.roots...)

	for _, n := range other.nodes {
		children := make([]NodeID, len(n.Children))
		for i, c := range n.Children {
			children[i] = c + offset
		}
		n.Children = children
		m.nodes = append(m.nodes, n)
	}
	for _, r := range other.roots {
		m.roots = append(m.roots, r+offset)
	}
	return m
}
