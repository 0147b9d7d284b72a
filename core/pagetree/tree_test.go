package pagetree

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// root
// ├── welcome (1)
// │   └── part-one (5)
// └── outro (3)
func newTestTree(t *testing.T) *Tree {
	t.Helper()
	sections := []Section{
		{ID: 3, ParentID: 1, Slug: "outro", Position: 1},
		{ID: 1, Label: "Root"},
		{ID: 2, ParentID: 1, Slug: "welcome", Position: 0},
		{ID: 5, ParentID: 2, Slug: "part-one"},
	}
	blocks := []PageBlock{
		{ID: 11, SectionID: 2, Position: 1, Kind: "youtube"},
		{ID: 10, SectionID: 2, Position: 0, Kind: "text"},
		{ID: 12, SectionID: 99, Kind: "text"},
	}
	tree, err := BuildTree(Hierarchy{ID: 1, Name: "a", BaseURL: "/pages/a"}, sections, blocks)
	require.NoError(t, err)
	return tree
}

func TestBuildTree(t *testing.T) {
	tree := newTestTree(t)

	var paths []string
	for _, n := range tree.Nodes() {
		paths = append(paths, n.Path)
	}
	assert.Equal(t, []string{"", "welcome", "welcome/part-one", "outro"}, paths)
	assert.Len(t, tree.Descendants(), 3)
	assert.True(t, tree.HasDescendants())
	assert.Equal(t, int64(2), tree.FirstChild().ID)

	welcome, ok := tree.NodeByPath("/welcome/")
	require.True(t, ok)
	assert.Equal(t, 1, welcome.Depth)
	require.Len(t, welcome.Blocks, 2)
	assert.Equal(t, "text", welcome.Blocks[0].Kind)

	part, ok := tree.Node(5)
	require.True(t, ok)
	assert.Equal(t, 2, part.Depth)
	assert.Equal(t, welcome, part.Parent)

	_, ok = tree.NodeByPath("part-one")
	assert.False(t, ok)
}

func TestBuildTree_errors(t *testing.T) {
	tests := []struct {
		name     string
		sections []Section
		wantErr  error
	}{
		{name: "no sections", wantErr: ErrNoRoot},
		{name: "no root", sections: []Section{{ID: 2, ParentID: 1}}, wantErr: ErrOrphan},
		{name: "many roots", sections: []Section{{ID: 1}, {ID: 2}}, wantErr: ErrManyRoots},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := BuildTree(Hierarchy{Name: "a"}, tt.sections, nil)
			assert.Equal(t, tt.wantErr, errors.Cause(err))
		})
	}
}

func TestTree_FirstChild_rootOnly(t *testing.T) {
	tree, err := BuildTree(Hierarchy{Name: "a"}, []Section{{ID: 1}}, nil)
	require.NoError(t, err)
	assert.Equal(t, tree.Root(), tree.FirstChild())
	assert.False(t, tree.HasDescendants())
}

func TestTree_URL(t *testing.T) {
	tree := newTestTree(t)
	part, _ := tree.Node(5)

	assert.Equal(t, "/pages/a/", tree.URL(tree.Root()))
	assert.Equal(t, "/pages/a/welcome/part-one/", tree.URL(part))
}

func TestTree_NextPrevious(t *testing.T) {
	tree := newTestTree(t)
	root := tree.Root()
	welcome, _ := tree.Node(2)
	part, _ := tree.Node(5)
	outro, _ := tree.Node(3)

	assert.Nil(t, tree.Previous(root))
	assert.Equal(t, welcome, tree.Next(root))
	assert.Equal(t, part, tree.Next(welcome))
	assert.Equal(t, outro, tree.Next(part))
	assert.Nil(t, tree.Next(outro))
	assert.Equal(t, part, tree.Previous(outro))
}

func TestTree_GateCheck(t *testing.T) {
	tree := newTestTree(t)
	welcome, _ := tree.Node(2)
	part, _ := tree.Node(5)
	outro, _ := tree.Node(3)

	visits := IndexVisits([]Visit{
		{SectionID: 2, Status: StatusComplete},
		{SectionID: 5, Status: StatusIncomplete},
	})

	tests := []struct {
		name      string
		node      *Node
		wantOK    bool
		wantFirst *Node
	}{
		{name: "root", node: tree.Root(), wantOK: true},
		{name: "first section", node: welcome, wantOK: true},
		{name: "after a completed section", node: part, wantOK: true},
		{name: "after an incomplete section", node: outro, wantFirst: part},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, first := tree.GateCheck(tt.node, visits)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantFirst, first)
		})
	}
}

func TestTree_NextUnlocked(t *testing.T) {
	tree := newTestTree(t)
	welcome, _ := tree.Node(2)
	part, _ := tree.Node(5)
	outro, _ := tree.Node(3)

	assert.Equal(t, welcome, tree.NextUnlocked(IndexVisits(nil)))
	assert.Equal(t, part, tree.NextUnlocked(IndexVisits([]Visit{{SectionID: 2, Status: StatusComplete}})))

	all := IndexVisits([]Visit{
		{SectionID: 2, Status: StatusComplete},
		{SectionID: 5, Status: StatusComplete},
		{SectionID: 3, Status: StatusComplete},
	})
	assert.Equal(t, outro, tree.NextUnlocked(all))
}

func TestPageBlock_HasClass(t *testing.T) {
	pb := PageBlock{CSSExtra: "assessment final"}
	assert.True(t, pb.HasClass("assessment"))
	assert.False(t, pb.HasClass("survey"))
}
