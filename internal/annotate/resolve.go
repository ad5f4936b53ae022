// Package annotate maps rendered DOM elements back to the template that
// produced them, using BEGIN/END marker comments left in the markup.
package annotate

import (
	"golang.org/x/net/html"
)

// MaxChainDepth bounds ResolveChain.
const MaxChainDepth = 20

// Result pairs an element with the path of the nearest region enclosing it.
// Element is the first element, walking up from the queried node, at which
// an enclosing marker was found.
type Result struct {
	Element *html.Node
	Path    string
}

// FindEnclosingPath scans n's preceding siblings backwards for the closest
// BEGIN marker that is neither closed by an END seen earlier in the scan
// nor listed in ignore.
func FindEnclosingPath(n *html.Node, ignore map[string]bool) (string, bool) {
	if n == nil {
		return "", false
	}

	closed := make(map[string]bool)
	for prev := n.PrevSibling; prev != nil; prev = prev.PrevSibling {
		if prev.Type != html.CommentNode {
			continue
		}
		m, ok := ParseMarker(prev.Data)
		if !ok {
			continue
		}
		switch m.Kind {
		case End:
			closed[m.Path] = true
		case Begin:
			if closed[m.Path] || ignore[m.Path] {
				continue
			}
			return m.Path, true
		}
	}
	return "", false
}

// Resolve finds the nearest annotated region around n.
func Resolve(n *html.Node) (Result, bool) {
	return ResolveIgnoring(n, nil)
}

// ResolveIgnoring is Resolve with a set of paths that never count as
// enclosing. It tries n first, then each parent element in turn.
func ResolveIgnoring(n *html.Node, ignore map[string]bool) (Result, bool) {
	for cur := n; cur != nil; cur = parentElement(cur) {
		if path, ok := FindEnclosingPath(cur, ignore); ok {
			return Result{Element: cur, Path: path}, true
		}
	}
	return Result{}, false
}

// ResolveChain returns the regions enclosing the region path found at
// element, outermost first. path itself is excluded. The last entry is the
// region immediately around it.
func ResolveChain(element *html.Node, path string) []Result {
	ignore := map[string]bool{path: true}

	var chain []Result
	cur := element
	for range MaxChainDepth {
		r, ok := ResolveIgnoring(cur, ignore)
		if !ok {
			break
		}
		chain = append(chain, r)
		ignore[r.Path] = true
		cur = r.Element
	}

	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain
}

// Paths projects a chain onto its paths.
func Paths(chain []Result) []string {
	paths := make([]string, len(chain))
	for i, r := range chain {
		paths[i] = r.Path
	}
	return paths
}

// parentElement mirrors DOM parentElement: the document node is not an
// element, so the climb ends at <html>.
func parentElement(n *html.Node) *html.Node {
	if n.Parent == nil || n.Parent.Type != html.ElementNode {
		return nil
	}
	return n.Parent
}
