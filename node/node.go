// Package node tracks the set of file paths present on one output branch
// as cvsupfilter streams fast-import commands past it, so it can flag a D
// for a path the branch doesn't have. CVS/RCS paths are case-sensitive throughout this module (no
// case-folding knob, unlike a tree meant to mirror a case-insensitive
// filesystem), and children are walked in the same deep-path order
// model.DeepPathLess imposes elsewhere, so a listing always matches the
// order cvsup itself would emit that branch's files in.
package node

import "strings"

// Tree is one directory level of a branch's current file set. The root
// Tree for a branch has an empty Name and Path.
type Tree struct {
	Name     string
	Path     string
	IsFile   bool
	Children []*Tree
}

// NewTree returns an empty named directory node.
func NewTree(name string) *Tree {
	return &Tree{Name: name}
}

func (n *Tree) child(name string) *Tree {
	for _, c := range n.Children {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// AddFile records fullPath as present on this branch.
func (n *Tree) AddFile(fullPath string) {
	n.addSubFile(fullPath, fullPath)
}

func (n *Tree) addSubFile(fullPath, subPath string) {
	parts := strings.SplitN(subPath, "/", 2)
	if len(parts) == 1 {
		if n.child(parts[0]) == nil {
			n.Children = append(n.Children, &Tree{Name: parts[0], IsFile: true, Path: fullPath})
		}
		return
	}
	c := n.child(parts[0])
	if c == nil {
		c = NewTree(parts[0])
		n.Children = append(n.Children, c)
	}
	c.addSubFile(fullPath, parts[1])
}

// DeleteFile removes fullPath from this branch's file set, if present.
func (n *Tree) DeleteFile(fullPath string) {
	n.deleteSubFile(fullPath)
}

func (n *Tree) deleteSubFile(subPath string) {
	parts := strings.SplitN(subPath, "/", 2)
	if len(parts) == 1 {
		for i, c := range n.Children {
			if c.Name == parts[0] {
				n.Children[i] = n.Children[len(n.Children)-1]
				n.Children = n.Children[:len(n.Children)-1]
				return
			}
		}
		return
	}
	if c := n.child(parts[0]); c != nil {
		c.deleteSubFile(parts[1])
	}
}

// FindFile reports whether fileName is currently present on this branch.
func (n *Tree) FindFile(fileName string) bool {
	parts := strings.SplitN(fileName, "/", 2)
	c := n.child(parts[0])
	if c == nil {
		return false
	}
	if len(parts) == 1 {
		return c.IsFile
	}
	return c.FindFile(parts[1])
}

// GetFiles returns every file path under this branch's tree, in deep-path
// order: siblings sorted by name, files and subdirectories interleaved,
// each subdirectory's files listed where its name sorts.
func (n *Tree) GetFiles() []string {
	children := make([]*Tree, len(n.Children))
	copy(children, n.Children)
	sortByDeepPath(children)

	var files []string
	for _, c := range children {
		if c.IsFile {
			files = append(files, c.Path)
		} else {
			files = append(files, c.GetFiles()...)
		}
	}
	return files
}

// sortByDeepPath orders children the way model.DeepPathLess orders full
// paths: a plain string compare segment by segment is equivalent here
// since every child shares this node's path prefix.
func sortByDeepPath(children []*Tree) {
	for i := 1; i < len(children); i++ {
		for j := i; j > 0 && children[j-1].Name > children[j].Name; j-- {
			children[j-1], children[j] = children[j], children[j-1]
		}
	}
}
