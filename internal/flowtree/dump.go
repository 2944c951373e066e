package flowtree

import (
	"fmt"
	"strings"

	"github.com/xlab/treeprint"
)

// Dump renders n as an indented tree, markers included.
func Dump(n *Node) string {
	tree := treeprint.NewWithRoot(label(n))
	addBranches(tree, n)
	return tree.String()
}

func addBranches(tree treeprint.Tree, n *Node) {
	for _, c := range n.Children {
		if len(c.Children) == 0 {
			tree.AddNode(label(c))
			continue
		}
		addBranches(tree.AddBranch(label(c)), c)
	}
}

func label(n *Node) string {
	var sb strings.Builder
	switch n.Kind {
	case ElementNode:
		sb.WriteString("<" + n.Tag)
		for _, a := range n.Attrs {
			fmt.Fprintf(&sb, " %s=%q", a.Key, a.Val)
		}
		sb.WriteString(">")
	case TextNode:
		fmt.Fprintf(&sb, "%q", n.Data)
	default:
		fmt.Fprintf(&sb, "%s %q", n.Kind, n.Data)
	}
	if n.marks != 0 {
		sb.WriteString(" [" + n.marks.String() + "]")
	}
	return sb.String()
}
