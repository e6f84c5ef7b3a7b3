package suffixtree

// node is one vertex of the tree. The edge entering it is labelled by
// slice positions [left, right). Leaves extend to the end of the slice.
type node[T comparable] struct {
	left, right int
	parent      int
	link        int
	children    map[Key[T]]int
}

func (n *node[T]) length() int {
	return n.right - n.left
}

// point addresses a location inside the tree: pos elements down the edge
// entering node.
type point struct {
	node, pos int
}

var nowhere = point{-1, -1}

// Tree is a generalized suffix tree built online over a Slice.
// Node 0 is the root. A tree is immutable once Build returns.
type Tree[T comparable] struct {
	slice  *Slice[T]
	nodes  []node[T]
	active point
}

// Build constructs the suffix tree of every suffix of s.
func Build[T comparable](s *Slice[T]) *Tree[T] {
	t := &Tree[T]{
		slice: s,
		nodes: make([]node[T], 1, 2*s.Len()+1),
	}
	t.nodes[0] = node[T]{parent: -1, link: -1}

	for i := 0; i < s.Len(); i++ {
		t.extend(i)
	}
	return t
}

// Slice returns the slice the tree was built over.
func (t *Tree[T]) Slice() *Slice[T] {
	return t.slice
}

// NodeCount returns the number of nodes, root included.
func (t *Tree[T]) NodeCount() int {
	return len(t.nodes)
}

func (t *Tree[T]) isLeaf(v int) bool {
	return v != 0 && len(t.nodes[v].children) == 0
}

// walk descends from p along slice positions [l, r). It returns nowhere
// when the path leaves the tree.
func (t *Tree[T]) walk(p point, l, r int) point {
	keys := t.slice.keys
	for l < r {
		n := &t.nodes[p.node]
		if p.pos == n.length() {
			next, ok := n.children[keys[l]]
			if !ok {
				return nowhere
			}
			p = point{node: next}
			continue
		}
		if keys[n.left+p.pos] != keys[l] {
			return nowhere
		}
		if r-l < n.length()-p.pos {
			return point{node: p.node, pos: p.pos + r - l}
		}
		l += n.length() - p.pos
		p.pos = n.length()
	}
	return p
}

// split makes p an explicit node and returns its index.
func (t *Tree[T]) split(p point) int {
	n := t.nodes[p.node]
	if p.pos == n.length() {
		return p.node
	}
	if p.pos == 0 {
		return n.parent
	}

	keys := t.slice.keys
	mid := len(t.nodes)
	t.nodes = append(t.nodes, node[T]{
		left:     n.left,
		right:    n.left + p.pos,
		parent:   n.parent,
		link:     -1,
		children: map[Key[T]]int{keys[n.left+p.pos]: p.node},
	})
	t.nodes[n.parent].children[keys[n.left]] = mid
	t.nodes[p.node].parent = mid
	t.nodes[p.node].left += p.pos
	return mid
}

// suffixLink resolves the suffix link of v, creating the target node when
// it is still implicit.
func (t *Tree[T]) suffixLink(v int) int {
	n := t.nodes[v]
	if n.link != -1 {
		return n.link
	}
	if n.parent == -1 {
		return 0
	}

	to := t.suffixLink(n.parent)
	l := n.left
	if n.parent == 0 {
		l++
	}
	link := t.split(t.walk(point{node: to, pos: t.nodes[to].length()}, l, n.right))
	t.nodes[v].link = link
	return link
}

func (t *Tree[T]) addChild(parent int, k Key[T], child int) {
	if t.nodes[parent].children == nil {
		t.nodes[parent].children = make(map[Key[T]]int)
	}
	t.nodes[parent].children[k] = child
}

// extend adds slice position pos to every suffix built so far.
func (t *Tree[T]) extend(pos int) {
	keys := t.slice.keys
	for {
		next := t.walk(t.active, pos, pos+1)
		if next != nowhere {
			t.active = next
			return
		}

		mid := t.split(t.active)
		leaf := len(t.nodes)
		t.nodes = append(t.nodes, node[T]{
			left:   pos,
			right:  len(keys),
			parent: mid,
			link:   -1,
		})
		t.addChild(mid, keys[pos], leaf)

		v := t.suffixLink(mid)
		t.active = point{node: v, pos: t.nodes[v].length()}
		if mid == 0 {
			return
		}
	}
}

// leafStarts returns the suffix start of every leaf below v, where depth
// is the string depth of v.
func (t *Tree[T]) leafStarts(v, depth int) []int {
	type frame struct{ node, depth int }

	var starts []int
	stack := []frame{{v, depth}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if t.isLeaf(f.node) {
			starts = append(starts, len(t.slice.keys)-f.depth)
			continue
		}
		for _, c := range t.nodes[f.node].children {
			stack = append(stack, frame{c, f.depth + t.nodes[c].length()})
		}
	}
	return starts
}
