// Package outline indexes every annotated region of a document into a tree,
// for listings and reports. Point queries go through package annotate.
package outline

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/dgallion1/tmplinspect/internal/annotate"
	"github.com/yuin/goldmark"
	"golang.org/x/net/html"
)

// Outline is the region tree of one document.
type Outline struct {
	Regions  []*Region `json:"regions"`
	Dangling []string  `json:"dangling"` // END markers with no open BEGIN
	Unclosed []string  `json:"unclosed"` // BEGIN markers never matched by an END
}

// Region is one BEGIN/END span.
type Region struct {
	Path     string    `json:"path"`
	Depth    int       `json:"depth"`
	Closed   bool      `json:"closed"`
	Children []*Region `json:"children,omitempty"`
}

// Build walks root in document order and pairs markers with a stack.
// An END closes the nearest open region with the same path; regions opened
// after it and still open are closed implicitly and reported as unclosed.
func Build(root *html.Node) *Outline {
	o := &Outline{Dangling: []string{}, Unclosed: []string{}}
	var stack []*Region

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.CommentNode {
			if m, ok := annotate.ParseMarker(n.Data); ok {
				switch m.Kind {
				case annotate.Begin:
					r := &Region{Path: m.Path, Depth: len(stack)}
					if len(stack) == 0 {
						o.Regions = append(o.Regions, r)
					} else {
						parent := stack[len(stack)-1]
						parent.Children = append(parent.Children, r)
					}
					stack = append(stack, r)
				case annotate.End:
					i := len(stack) - 1
					for i >= 0 && stack[i].Path != m.Path {
						i--
					}
					if i < 0 {
						o.Dangling = append(o.Dangling, m.Path)
						return
					}
					for _, open := range stack[i+1:] {
						o.Unclosed = append(o.Unclosed, open.Path)
					}
					stack[i].Closed = true
					stack = stack[:i]
				}
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	if root != nil {
		walk(root)
	}

	for _, open := range stack {
		o.Unclosed = append(o.Unclosed, open.Path)
	}
	return o
}

// Count returns the total number of regions.
func (o *Outline) Count() int {
	n := 0
	o.each(func(*Region) { n++ })
	return n
}

// Paths returns each distinct region path once, in document order.
func (o *Outline) Paths() []string {
	seen := make(map[string]bool)
	paths := []string{}
	o.each(func(r *Region) {
		if !seen[r.Path] {
			seen[r.Path] = true
			paths = append(paths, r.Path)
		}
	})
	return paths
}

func (o *Outline) each(fn func(*Region)) {
	var visit func([]*Region)
	visit = func(rs []*Region) {
		for _, r := range rs {
			fn(r)
			visit(r.Children)
		}
	}
	visit(o.Regions)
}

// Markdown renders the outline as a nested list.
func (o *Outline) Markdown(title string) string {
	if title == "" {
		title = "Template regions"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", title)

	if len(o.Regions) == 0 {
		b.WriteString("No annotated regions.\n")
	}
	var write func([]*Region)
	write = func(rs []*Region) {
		for _, r := range rs {
			b.WriteString(strings.Repeat("  ", r.Depth))
			fmt.Fprintf(&b, "- `%s`", r.Path)
			if !r.Closed {
				b.WriteString(" *(unclosed)*")
			}
			b.WriteString("\n")
			write(r.Children)
		}
	}
	write(o.Regions)

	if len(o.Dangling) > 0 {
		b.WriteString("\n## Dangling END markers\n\n")
		for _, p := range o.Dangling {
			fmt.Fprintf(&b, "- `%s`\n", p)
		}
	}
	return b.String()
}

// HTML renders Markdown(title) to HTML.
func (o *Outline) HTML(title string) (string, error) {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(o.Markdown(title)), &buf); err != nil {
		return "", fmt.Errorf("render outline: %w", err)
	}
	return buf.String(), nil
}
