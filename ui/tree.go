package ui

import (
	"strings"
	"unicode/utf8"
)

// Tree hierarchy symbols using box drawing characters
const (
	TreeBranch     = "├── "
	TreeLastBranch = "└── "
	TreeContinue   = "│   "
	TreeIndent     = "    "

	BoxTopLeft     = "┌"
	BoxTopRight    = "┐"
	BoxBottomLeft  = "└"
	BoxBottomRight = "┘"
	BoxVertical    = "│"
	BoxHorizontal  = "─"
	BoxTeeRight    = "├"
	BoxTeeLeft     = "┤"
)

// Node is one entry of a rendered tree.
type Node struct {
	Label    string
	Children []*Node
}

// Child returns the child with the given label, creating it when missing.
func (n *Node) Child(label string) *Node {
	for _, c := range n.Children {
		if c.Label == label {
			return c
		}
	}
	c := &Node{Label: label}
	n.Children = append(n.Children, c)
	return c
}

// AddPath adds the slash separated path below n, one node per segment.
func (n *Node) AddPath(path string) *Node {
	cur := n
	for _, seg := range strings.Split(path, "/") {
		if seg == "" {
			continue
		}
		cur = cur.Child(seg)
	}
	return cur
}

// BuildTreePrefix returns the connector drawn before an entry at depth.
// parentIsLast records, per ancestor level, whether that ancestor was the
// last of its siblings.
func BuildTreePrefix(depth int, isLast bool, parentIsLast []bool) string {
	if depth == 0 {
		return ""
	}

	var b strings.Builder
	for i := 0; i < depth-1; i++ {
		if i < len(parentIsLast) && parentIsLast[i] {
			b.WriteString(TreeIndent)
		} else {
			b.WriteString(TreeContinue)
		}
	}
	if isLast {
		b.WriteString(TreeLastBranch)
	} else {
		b.WriteString(TreeBranch)
	}
	return b.String()
}

// RenderTree draws root and its descendants, one line per node.
func RenderTree(root *Node) string {
	var b strings.Builder
	b.WriteString(root.Label)
	b.WriteString("\n")
	renderChildren(&b, root, 1, nil)
	return b.String()
}

func renderChildren(b *strings.Builder, n *Node, depth int, parentIsLast []bool) {
	for i, c := range n.Children {
		last := i == len(n.Children)-1
		b.WriteString(BuildTreePrefix(depth, last, parentIsLast))
		b.WriteString(c.Label)
		b.WriteString("\n")
		renderChildren(b, c, depth+1, append(append([]bool(nil), parentIsLast...), last))
	}
}

// BuildBoxHeader creates a box header with the given title and width
func BuildBoxHeader(title string, width int) string {
	titleLen := utf8.RuneCountInString(title)
	if width < titleLen+4 {
		width = titleLen + 4
	}
	padding := width - 4 - titleLen

	header := BoxTopLeft + strings.Repeat(BoxHorizontal, width-2) + BoxTopRight + "\n"
	header += BoxVertical + " " + title + strings.Repeat(" ", padding+1) + BoxVertical + "\n"
	header += BoxTeeRight + strings.Repeat(BoxHorizontal, width-2) + BoxTeeLeft + "\n"
	return header
}
