package ast

// NodeID is a stable handle to a node stored in an Arena. Identity checks
// between nodes are handle comparisons.
type NodeID int32

// NoNode is the zero handle; it never refers to a node.
const NoNode NodeID = 0

// Valid reports whether id refers to a node.
func (id NodeID) Valid() bool { return id > NoNode }

// Arena owns every node of one parsed file. Nodes are allocated from a
// single pre-grown slice and addressed by NodeID. Replacing the node behind
// a handle is how rewrites splice new structure into the tree: every parent
// that holds the handle sees the replacement.
type Arena struct {
	nodes     []Node
	positions []Pos
}

// Pos is the source location a node was parsed from. Nodes built by
// rewrites have the zero Pos unless they inherit one.
type Pos struct {
	Line   int // 1-based
	Column int // 1-based
	Offset int // 0-based byte offset
}

// NewArena creates a new arena with pre-allocated capacity.
func NewArena() *Arena {
	return &Arena{
		nodes:     make([]Node, 1, 1024),
		positions: make([]Pos, 1, 1024),
	}
}

// Reset clears the arena for reuse, keeping backing memory allocated.
func (a *Arena) Reset() {
	clear(a.nodes)
	a.nodes = a.nodes[:1]
	a.positions = a.positions[:1]
}

// Len returns the number of allocated handles, including NoNode.
func (a *Arena) Len() int { return len(a.nodes) }

// New stores n and returns its handle.
func (a *Arena) New(n Node) NodeID {
	a.nodes = append(a.nodes, n)
	a.positions = append(a.positions, Pos{})
	return NodeID(len(a.nodes) - 1)
}

// SetPos records where id came from.
func (a *Arena) SetPos(id NodeID, p Pos) {
	if id.Valid() && int(id) < len(a.positions) {
		a.positions[id] = p
	}
}

// PosOf returns the recorded location of id.
func (a *Arena) PosOf(id NodeID) Pos {
	if id.Valid() && int(id) < len(a.positions) {
		return a.positions[id]
	}
	return Pos{}
}

// Get returns the node behind id, or nil for NoNode and out-of-range ids.
func (a *Arena) Get(id NodeID) Node {
	if id <= NoNode || int(id) >= len(a.nodes) {
		return nil
	}
	return a.nodes[id]
}

// Replace swaps the node behind id for n.
func (a *Arena) Replace(id NodeID, n Node) {
	if id <= NoNode || int(id) >= len(a.nodes) {
		return
	}
	a.nodes[id] = n
}

// KindOf returns the kind of the node behind id, KindInvalid for NoNode.
func (a *Arena) KindOf(id NodeID) Kind {
	n := a.Get(id)
	if n == nil {
		return KindInvalid
	}
	return n.Kind()
}

// As returns the node behind id as T when it has that concrete type.
func As[T Node](a *Arena, id NodeID) (T, bool) {
	n, ok := a.Get(id).(T)
	return n, ok
}

// Allocation helpers for the shapes rewrites build most often.

func (a *Arena) NewIdent(name string) NodeID {
	return a.New(&Ident{Name: name})
}

func (a *Arena) NewString(value string) NodeID {
	return a.New(&Literal{LitKind: LitString, Raw: quote(value), Value: value})
}

func (a *Arena) NewBool(v bool) NodeID {
	raw := "false"
	if v {
		raw = "true"
	}
	return a.New(&Literal{LitKind: LitBool, Raw: raw})
}

func (a *Arena) NewMember(object NodeID, property string) NodeID {
	return a.New(&Member{Object: object, Property: a.NewIdent(property)})
}

func (a *Arena) NewExprStmt(expr NodeID) NodeID {
	return a.New(&ExprStmt{Expr: expr})
}

// Clone deep-copies the subtree rooted at id and returns the new root.
func (a *Arena) Clone(id NodeID) NodeID {
	n := a.Get(id)
	if n == nil {
		return NoNode
	}
	c := shallowCopy(n)
	for _, child := range Children(c) {
		ReplaceChild(c, child, a.Clone(child))
	}
	clone := a.New(c)
	a.SetPos(clone, a.PosOf(id))
	return clone
}

func quote(s string) string {
	b := make([]byte, 0, len(s)+2)
	b = append(b, '"')
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '"', '\\':
			b = append(b, '\\', c)
		case '\n':
			b = append(b, '\\', 'n')
		case '\r':
			b = append(b, '\\', 'r')
		case '\t':
			b = append(b, '\\', 't')
		default:
			b = append(b, c)
		}
	}
	return string(append(b, '"'))
}
