package project

import (
	"path"
	"sort"
	"strings"
)

// FileNode is a node of the file explorer tree.
type FileNode struct {
	Name     string      `json:"name"`
	Type     string      `json:"type"` // "file" or "directory"
	Path     string      `json:"path"`
	FileType string      `json:"file_type,omitempty"`
	Size     int         `json:"size,omitempty"`
	Children []*FileNode `json:"children,omitempty"`
}

// Tree builds a directory tree from the project's flat file list.
// Names containing "/" produce intermediate directories.
func Tree(p Project) *FileNode {
	root := &FileNode{Name: p.Name, Type: "directory", Children: make([]*FileNode, 0)}
	dirs := map[string]*FileNode{"": root}

	for _, f := range p.Files {
		parts := strings.Split(strings.Trim(f.Name, "/"), "/")
		current := ""
		for _, part := range parts[:len(parts)-1] {
			parent := dirs[current]
			current = path.Join(current, part)
			if _, ok := dirs[current]; !ok {
				dir := &FileNode{Name: part, Type: "directory", Path: current, Children: make([]*FileNode, 0)}
				parent.Children = append(parent.Children, dir)
				dirs[current] = dir
			}
		}
		dirs[current].Children = append(dirs[current].Children, &FileNode{
			Name:     parts[len(parts)-1],
			Type:     "file",
			Path:     f.Name,
			FileType: f.Type,
			Size:     len(f.Content),
		})
	}

	sortNodes(root)
	return root
}

// directories first, then files, each group case-insensitively by name
func sortNodes(node *FileNode) {
	sort.SliceStable(node.Children, func(i, j int) bool {
		a, b := node.Children[i], node.Children[j]
		if a.Type != b.Type {
			return a.Type == "directory"
		}
		return strings.ToLower(a.Name) < strings.ToLower(b.Name)
	})
	for _, child := range node.Children {
		sortNodes(child)
	}
}

// PreviewContentType maps a file type tag to the content type used for previews.
// Only HTML is rendered; everything else is shown as source.
func PreviewContentType(f File) string {
	if f.Type == "html" || strings.HasSuffix(strings.ToLower(f.Name), ".html") {
		return "text/html; charset=utf-8"
	}
	return "text/plain; charset=utf-8"
}
