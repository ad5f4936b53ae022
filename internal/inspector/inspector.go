// Package inspector turns resolver output into what the overlay shows: the
// highlighted element, its template path and the breadcrumb of enclosing
// templates.
package inspector

import (
	"path"

	"github.com/dgallion1/tmplinspect/internal/annotate"
	"github.com/dgallion1/tmplinspect/internal/document"
	"golang.org/x/net/html"
)

// Link is one enclosing region in a chain.
type Link struct {
	Path    string            `json:"path"`
	Element document.NodeInfo `json:"element"`
}

// DropdownItem is one entry of the path picker.
type DropdownItem struct {
	Path    string `json:"path"`
	Label   string `json:"label"`
	Current bool   `json:"current"`
}

// Breadcrumb lists the parent paths outermost first, followed by the
// current path. Dropdown lists the same paths, innermost first.
type Breadcrumb struct {
	Parents  []string       `json:"parents"`
	Current  string         `json:"current"`
	Dropdown []DropdownItem `json:"dropdown"`
}

// Inspection is the answer to "which template rendered this element?".
type Inspection struct {
	Target     document.NodeInfo `json:"target"`
	Path       string            `json:"path"`
	Element    document.NodeInfo `json:"element"`
	Chain      []Link            `json:"chain"`
	Breadcrumb Breadcrumb        `json:"breadcrumb"`
}

// Inspect resolves target and its enclosing chain. It reports false when
// no annotated region encloses target.
func Inspect(target *html.Node) (Inspection, bool) {
	res, ok := annotate.Resolve(target)
	if !ok {
		return Inspection{}, false
	}
	chain := annotate.ResolveChain(res.Element, res.Path)

	links := make([]Link, len(chain))
	for i, r := range chain {
		links[i] = Link{Path: r.Path, Element: document.Describe(r.Element)}
	}

	return Inspection{
		Target:     document.Describe(target),
		Path:       res.Path,
		Element:    document.Describe(res.Element),
		Chain:      links,
		Breadcrumb: NewBreadcrumb(res.Path, annotate.Paths(chain)),
	}, true
}

// NewBreadcrumb builds the breadcrumb for current with parents ordered
// outermost first.
func NewBreadcrumb(current string, parents []string) Breadcrumb {
	if parents == nil {
		parents = []string{}
	}
	items := make([]DropdownItem, 0, len(parents)+1)
	items = append(items, DropdownItem{Path: current, Label: path.Base(current), Current: true})
	for i := len(parents) - 1; i >= 0; i-- {
		items = append(items, DropdownItem{Path: parents[i], Label: path.Base(parents[i])})
	}
	return Breadcrumb{Parents: parents, Current: current, Dropdown: items}
}
