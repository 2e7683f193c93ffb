package scraper

import "github.com/Adithya-Monish-Kumar-K/forum-corpus/internal/forum"

// FlattenStats counts what Flatten dropped.
type FlattenStats struct {
	DeletedSubtrees int
	DepthLimited    int
}

// Flatten walks the comment forest in pre-order (parent before its replies,
// siblings in order) and returns the flat records. A deleted comment is
// dropped together with its whole subtree. maxDepth bounds the levels read,
// counting top-level comments as depth 1; zero means unbounded.
func Flatten(roots []*forum.CommentNode, maxDepth int) ([]forum.Comment, FlattenStats) {
	type item struct {
		node  *forum.CommentNode
		depth int
	}
	var stats FlattenStats
	out := make([]forum.Comment, 0, len(roots))
	stack := make([]item, 0, len(roots))
	for i := len(roots) - 1; i >= 0; i-- {
		stack = append(stack, item{node: roots[i], depth: 1})
	}
	for len(stack) > 0 {
		it := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if it.node.Deleted() {
			stats.DeletedSubtrees++
			continue
		}
		if maxDepth > 0 && it.depth > maxDepth {
			stats.DepthLimited++
			continue
		}
		out = append(out, it.node.Comment())
		for i := len(it.node.Children) - 1; i >= 0; i-- {
			stack = append(stack, item{node: it.node.Children[i], depth: it.depth + 1})
		}
	}
	return out, stats
}
