package parser

// nodeIndex is the index of a trie node in its arena.
type nodeIndex int

// opTrie indexes operator spellings byte by byte so that the lexer can find
// the longest operator starting a run in one pass. Nodes live in a single
// slice and refer to their children by index.
type opTrie struct {
	nodes []opNode
}

type opNode struct {
	children map[byte]nodeIndex
	isEnd    bool
}

func newOpTrie(ops []string) *opTrie {
	t := &opTrie{nodes: make([]opNode, 1, 64)}
	t.nodes[0] = opNode{children: make(map[byte]nodeIndex)}
	for _, op := range ops {
		t.insert(op)
	}
	return t
}

func (t *opTrie) newNode() nodeIndex {
	idx := nodeIndex(len(t.nodes))
	t.nodes = append(t.nodes, opNode{children: make(map[byte]nodeIndex)})
	return idx
}

func (t *opTrie) insert(op string) {
	if op == "" {
		return
	}
	current := nodeIndex(0)
	for i := 0; i < len(op); i++ {
		child, ok := t.nodes[current].children[op[i]]
		if !ok {
			child = t.newNode()
			t.nodes[current].children[op[i]] = child
		}
		current = child
	}
	t.nodes[current].isEnd = true
}

// longestPrefix returns the length of the longest operator that s starts
// with, or 0.
func (t *opTrie) longestPrefix(s string) int {
	current := nodeIndex(0)
	best := 0
	for i := 0; i < len(s); i++ {
		child, ok := t.nodes[current].children[s[i]]
		if !ok {
			break
		}
		current = child
		if t.nodes[current].isEnd {
			best = i + 1
		}
	}
	return best
}
