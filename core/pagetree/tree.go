package pagetree

import (
	"sort"
	"strings"

	"github.com/pkg/errors"
)

var (
	ErrNoRoot       = errors.New("hierarchy has no root section")
	ErrManyRoots    = errors.New("hierarchy has more than one root section")
	ErrOrphan       = errors.New("section parent not found")
	ErrNodeNotFound = errors.New("section not found")
)

// Node is a Section placed in its Tree.
type Node struct {
	Section
	Parent   *Node
	Children []*Node
	Blocks   []PageBlock // ordered by position
	Path     string      // slugs from the root, eg: "intro/welcome"
	Depth    int

	index int // preorder index
}

// Tree is a Hierarchy with its sections laid out in depth-first (preorder) order.
type Tree struct {
	Hierarchy
	root   *Node
	nodes  []*Node // preorder, root first
	byID   map[int64]*Node
	byPath map[string]*Node
}

// BuildTree lays the sections & blocks of h out. Siblings are ordered by position, then by ID.
func BuildTree(h Hierarchy, sections []Section, blocks []PageBlock) (*Tree, error) {
	t := &Tree{
		Hierarchy: h,
		byID:      make(map[int64]*Node, len(sections)),
		byPath:    make(map[string]*Node, len(sections)),
	}

	for _, s := range sections {
		t.byID[s.ID] = &Node{Section: s}
	}
	for _, s := range sections {
		n := t.byID[s.ID]
		if s.IsRoot() {
			if t.root != nil {
				return nil, ErrManyRoots
			}
			t.root = n
			continue
		}
		parent, ok := t.byID[s.ParentID]
		if !ok {
			return nil, errors.Wrapf(ErrOrphan, "section %d", s.ID)
		}
		n.Parent = parent
		parent.Children = append(parent.Children, n)
	}
	if t.root == nil {
		return nil, ErrNoRoot
	}

	for _, pb := range blocks {
		if n, ok := t.byID[pb.SectionID]; ok {
			n.Blocks = append(n.Blocks, pb)
		}
	}

	var walk func(n *Node)
	walk = func(n *Node) {
		sort.SliceStable(n.Children, func(i, j int) bool {
			a, b := n.Children[i], n.Children[j]
			if a.Position != b.Position {
				return a.Position < b.Position
			}
			return a.ID < b.ID
		})
		sort.SliceStable(n.Blocks, func(i, j int) bool {
			if n.Blocks[i].Position != n.Blocks[j].Position {
				return n.Blocks[i].Position < n.Blocks[j].Position
			}
			return n.Blocks[i].ID < n.Blocks[j].ID
		})

		n.index = len(t.nodes)
		t.nodes = append(t.nodes, n)
		if n.Parent != nil {
			n.Depth = n.Parent.Depth + 1
			n.Path = strings.TrimPrefix(n.Parent.Path+"/"+n.Slug, "/")
		}
		t.byPath[n.Path] = n

		for _, c := range n.Children {
			walk(c)
		}
	}
	walk(t.root)

	return t, nil
}

func (t *Tree) Root() *Node { return t.root }

// Nodes returns every section, root first, in depth-first order.
func (t *Tree) Nodes() []*Node { return t.nodes }

// Descendants returns every section but the root, in depth-first order.
func (t *Tree) Descendants() []*Node { return t.nodes[1:] }

// FirstChild returns the first child of the root, or the root itself when it has none.
func (t *Tree) FirstChild() *Node {
	if len(t.root.Children) == 0 {
		return t.root
	}
	return t.root.Children[0]
}

func (t *Tree) Node(sectionID int64) (*Node, bool) {
	n, ok := t.byID[sectionID]
	return n, ok
}

// NodeByPath finds a section from its slug path. Leading & trailing slashes are ignored.
func (t *Tree) NodeByPath(path string) (*Node, bool) {
	n, ok := t.byPath[strings.Trim(path, "/")]
	return n, ok
}

// URL returns the absolute URL of n, eg: "/pages/a/intro/welcome/".
func (t *Tree) URL(n *Node) string {
	base := t.BaseURL
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	if n.Path == "" {
		return base
	}
	return base + n.Path + "/"
}

// Previous returns the section right before n in depth-first order.
func (t *Tree) Previous(n *Node) *Node {
	if n.index == 0 {
		return nil
	}
	return t.nodes[n.index-1]
}

// Next returns the section right after n in depth-first order.
func (t *Tree) Next(n *Node) *Node {
	if n.index+1 >= len(t.nodes) {
		return nil
	}
	return t.nodes[n.index+1]
}

// HasDescendants reports whether the tree has any section besides its root.
func (t *Tree) HasDescendants() bool { return len(t.nodes) > 1 }

// VisitsIndex maps section IDs to visits.
type VisitsIndex map[int64]Visit

func IndexVisits(visits []Visit) VisitsIndex {
	idx := make(VisitsIndex, len(visits))
	for _, v := range visits {
		idx[v.SectionID] = v
	}
	return idx
}

// IsComplete reports whether n is completed. The root never needs completing.
func (idx VisitsIndex) IsComplete(n *Node) bool {
	if n.Parent == nil {
		return true
	}
	v, ok := idx[n.ID]
	return ok && v.IsComplete()
}

// GateCheck reports whether every section before n is completed.
// When it is not, the first incomplete section is returned.
func (t *Tree) GateCheck(n *Node, visits VisitsIndex) (bool, *Node) {
	for _, prev := range t.nodes[:n.index] {
		if !visits.IsComplete(prev) {
			return false, prev
		}
	}
	return true, nil
}

// NextUnlocked returns the first section that is not completed yet, or the last one if all are.
func (t *Tree) NextUnlocked(visits VisitsIndex) *Node {
	for _, n := range t.Descendants() {
		if !visits.IsComplete(n) {
			return n
		}
	}
	return t.nodes[len(t.nodes)-1]
}
