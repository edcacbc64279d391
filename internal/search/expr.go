package search

// node is a boolean expression over term indexes. Leaves carry a term
// index; groups carry children combined left to right, each child joining
// with its own op. The op of a group's first child is ignored.
type node struct {
	op   LogicalOp
	term int
	kids []*node
}

func (n *node) isLeaf() bool { return n.term >= 0 }

// buildTree turns the positional group counts on terms into a tree. Groups
// left open at the end are closed there; closes with no open group are
// ignored. There is no depth limit.
func buildTree(terms []Term) *node {
	root := &node{term: -1}
	stack := []*node{root}

	for i, t := range terms {
		m := t.Modifiers
		parent := stack[len(stack)-1]
		op := m.Op
		for g := 0; g < m.BeginGroup; g++ {
			grp := &node{op: op, term: -1}
			parent.kids = append(parent.kids, grp)
			stack = append(stack, grp)
			parent = grp
			op = OpAnd
		}
		parent.kids = append(parent.kids, &node{op: op, term: i})
		for g := 0; g < m.EndGroup && len(stack) > 1; g++ {
			stack = stack[:len(stack)-1]
		}
	}
	return root
}

// eval evaluates the tree, calling leaf for terms as needed. Evaluation
// short-circuits: a term is skipped when its result cannot change the
// outcome of its group.
func (n *node) eval(leaf func(i int) bool) bool {
	if n.isLeaf() {
		return leaf(n.term)
	}
	result := true
	for j, k := range n.kids {
		switch {
		case j == 0:
			result = k.eval(leaf)
		case k.op == OpOr:
			if !result {
				result = k.eval(leaf)
			}
		default:
			if result {
				result = k.eval(leaf)
			}
		}
	}
	return result
}

// depth returns the nesting depth of the tree, for diagnostics.
func (n *node) depth() int {
	d := 0
	for _, k := range n.kids {
		if !k.isLeaf() {
			d = max(d, k.depth())
		}
	}
	if n.isLeaf() {
		return 0
	}
	return d + 1
}
