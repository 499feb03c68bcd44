// Package thread turns the flat, time-ordered comment stream for a post
// into its reply tree. The builder is pure and runs on every real-time
// push, so it must stay linear in the number of comments.
package thread

import "threadhub/internal/models"

// BuildCommentTree reconstructs the reply hierarchy from flatComments.
//
// Top-level nodes preserve the relative order of the input filtered to
// comments without a parent; each node's replies preserve the relative
// order of same-parent comments in the input. A comment whose declared
// parent is absent from the input (the parent was deleted) is dropped
// from the output entirely.
//
// The store does not guarantee acyclicity of parent chains, so the walk
// carries a visited set; a comment reachable through a cycle is never
// attached twice.
func BuildCommentTree(flatComments []*models.Comment) []*models.CommentNode {
	if len(flatComments) == 0 {
		return []*models.CommentNode{}
	}

	// Single pass: partition into root candidates and a parent->children
	// index, both in encounter order.
	present := make(map[int64]struct{}, len(flatComments))
	for _, c := range flatComments {
		present[c.ID] = struct{}{}
	}

	var roots []*models.Comment
	children := make(map[int64][]*models.Comment)
	for _, c := range flatComments {
		if c.ParentCommentID == nil {
			roots = append(roots, c)
			continue
		}
		parentID := *c.ParentCommentID
		if _, ok := present[parentID]; !ok {
			// Orphan: parent no longer in the snapshot.
			continue
		}
		children[parentID] = append(children[parentID], c)
	}

	visited := make(map[int64]struct{}, len(flatComments))
	nodes := make([]*models.CommentNode, 0, len(roots))
	for _, root := range roots {
		if node := attach(root, children, visited); node != nil {
			nodes = append(nodes, node)
		}
	}
	return nodes
}

// attach builds the node for c and recursively attaches its children.
func attach(c *models.Comment, children map[int64][]*models.Comment, visited map[int64]struct{}) *models.CommentNode {
	if _, seen := visited[c.ID]; seen {
		return nil
	}
	visited[c.ID] = struct{}{}

	node := &models.CommentNode{
		Comment: c,
		Replies: []*models.CommentNode{},
	}
	for _, child := range children[c.ID] {
		if reply := attach(child, children, visited); reply != nil {
			node.Replies = append(node.Replies, reply)
		}
	}
	return node
}

// CountNodes returns the number of comments in the tree, counting every
// node transitively.
func CountNodes(nodes []*models.CommentNode) int {
	total := 0
	for _, n := range nodes {
		total += 1 + CountNodes(n.Replies)
	}
	return total
}

// Flatten walks the tree depth-first and returns the underlying comments.
// Applying BuildCommentTree to the result yields an isomorphic tree.
func Flatten(nodes []*models.CommentNode) []*models.Comment {
	var flat []*models.Comment
	var walk func(ns []*models.CommentNode)
	walk = func(ns []*models.CommentNode) {
		for _, n := range ns {
			flat = append(flat, n.Comment)
			walk(n.Replies)
		}
	}
	walk(nodes)
	return flat
}
