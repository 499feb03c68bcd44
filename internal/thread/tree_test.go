package thread

import (
	"testing"
	"time"

	"threadhub/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(id int64) *int64 { return &id }

// makeComment builds a comment with CreatedAt spaced by id so the input
// order matches created_at ascending, as the store delivers it.
func makeComment(id int64, parentID *int64) *models.Comment {
	return &models.Comment{
		ID:              id,
		CompanyID:       1,
		PostID:          10,
		ParentCommentID: parentID,
		AuthorID:        100 + id,
		AuthorName:      "author",
		Text:            "text",
		CreatedAt:       time.Unix(1700000000+id, 0),
	}
}

func TestBuildCommentTree(t *testing.T) {
	t.Run("empty input", func(t *testing.T) {
		tree := BuildCommentTree(nil)
		assert.Empty(t, tree)
	})

	t.Run("nested replies attach under their parents", func(t *testing.T) {
		flat := []*models.Comment{
			makeComment(1, nil),
			makeComment(2, nil),
			makeComment(3, ptr(1)),
			makeComment(4, ptr(1)),
			makeComment(5, ptr(3)),
		}

		tree := BuildCommentTree(flat)

		require.Len(t, tree, 2)
		assert.Equal(t, int64(1), tree[0].ID)
		assert.Equal(t, int64(2), tree[1].ID)

		require.Len(t, tree[0].Replies, 2)
		assert.Equal(t, int64(3), tree[0].Replies[0].ID)
		assert.Equal(t, int64(4), tree[0].Replies[1].ID)

		require.Len(t, tree[0].Replies[0].Replies, 1)
		assert.Equal(t, int64(5), tree[0].Replies[0].Replies[0].ID)
		assert.Empty(t, tree[1].Replies)
	})

	t.Run("sibling order follows input order", func(t *testing.T) {
		flat := []*models.Comment{
			makeComment(1, nil),
			makeComment(2, ptr(1)),
			makeComment(3, ptr(1)),
			makeComment(4, ptr(1)),
		}

		tree := BuildCommentTree(flat)

		require.Len(t, tree, 1)
		require.Len(t, tree[0].Replies, 3)
		for i, want := range []int64{2, 3, 4} {
			assert.Equal(t, want, tree[0].Replies[i].ID)
		}
	})

	t.Run("orphans are dropped", func(t *testing.T) {
		flat := []*models.Comment{
			makeComment(1, nil),
			makeComment(2, ptr(99)), // parent deleted
			makeComment(3, ptr(1)),
		}

		tree := BuildCommentTree(flat)

		require.Len(t, tree, 1)
		assert.Equal(t, 2, CountNodes(tree))
	})

	t.Run("deleting a parent orphans its replies", func(t *testing.T) {
		flat := []*models.Comment{
			makeComment(1, nil),
			makeComment(2, ptr(1)),
			makeComment(3, ptr(1)),
		}
		require.Equal(t, 3, CountNodes(BuildCommentTree(flat)))

		// Comment 1 removed from the store; its replies now reference a
		// missing parent and fall out of the rebuilt tree.
		remaining := flat[1:]
		tree := BuildCommentTree(remaining)
		assert.Empty(t, tree)
		assert.Equal(t, 0, CountNodes(tree))
	})

	t.Run("node count plus dropped equals input size", func(t *testing.T) {
		flat := []*models.Comment{
			makeComment(1, nil),
			makeComment(2, ptr(1)),
			makeComment(3, ptr(77)), // orphan
			makeComment(4, ptr(3)),  // child of orphan, transitively dropped
			makeComment(5, nil),
		}

		tree := BuildCommentTree(flat)

		dropped := len(flat) - CountNodes(tree)
		assert.Equal(t, 2, dropped)
	})

	t.Run("cycle in parent chain does not loop", func(t *testing.T) {
		// Corrupt data: 1 and 2 reference each other. Neither is a root,
		// but both parents are present, so without a guard the walk
		// would never terminate if either were reachable.
		flat := []*models.Comment{
			makeComment(1, ptr(2)),
			makeComment(2, ptr(1)),
			makeComment(3, nil),
		}

		tree := BuildCommentTree(flat)

		require.Len(t, tree, 1)
		assert.Equal(t, int64(3), tree[0].ID)
	})

	t.Run("rebuild of flattened output is isomorphic", func(t *testing.T) {
		flat := []*models.Comment{
			makeComment(1, nil),
			makeComment(2, ptr(1)),
			makeComment(3, ptr(2)),
			makeComment(4, nil),
			makeComment(5, ptr(4)),
		}

		first := BuildCommentTree(flat)
		second := BuildCommentTree(Flatten(first))

		assert.Equal(t, treeShape(first), treeShape(second))
		assert.Equal(t, CountNodes(first), CountNodes(second))
	})

	t.Run("input is not mutated", func(t *testing.T) {
		flat := []*models.Comment{
			makeComment(1, nil),
			makeComment(2, ptr(1)),
		}
		BuildCommentTree(flat)

		assert.Equal(t, int64(1), flat[0].ID)
		assert.Nil(t, flat[0].ParentCommentID)
		require.NotNil(t, flat[1].ParentCommentID)
		assert.Equal(t, int64(1), *flat[1].ParentCommentID)
	})
}

// treeShape reduces a tree to nested ids for structural comparison.
func treeShape(nodes []*models.CommentNode) []map[int64][]int64 {
	var shape []map[int64][]int64
	for _, n := range nodes {
		childIDs := make([]int64, 0, len(n.Replies))
		for _, r := range n.Replies {
			childIDs = append(childIDs, r.ID)
		}
		shape = append(shape, map[int64][]int64{n.ID: childIDs})
		shape = append(shape, treeShape(n.Replies)...)
	}
	return shape
}
