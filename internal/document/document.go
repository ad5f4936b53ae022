// Package document loads annotated HTML snapshots and locates elements
// inside them.
package document

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"
)

// ErrNoMatch is returned when a selector matches no element.
var ErrNoMatch = errors.New("selector matched no element")

// maxTextLen caps NodeInfo.Text.
const maxTextLen = 80

// NodeInfo is a JSON-safe description of an element.
type NodeInfo struct {
	Tag     string   `json:"tag"`
	ID      string   `json:"id,omitempty"`
	Classes []string `json:"classes,omitempty"`
	XPath   string   `json:"xpath"`
	Text    string   `json:"text,omitempty"`
}

// Parse parses a full HTML document. Comments are preserved as nodes.
func Parse(r io.Reader) (*html.Node, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return doc, nil
}

// Select returns the first node matching the XPath expression expr. The
// match must be an element inside the document: text, comment and
// attribute results are rejected.
func Select(root *html.Node, expr string) (*html.Node, error) {
	if strings.TrimSpace(expr) == "" {
		return nil, fmt.Errorf("empty xpath expression")
	}
	n, err := htmlquery.Query(root, expr)
	if err != nil {
		return nil, fmt.Errorf("xpath %q: %w", expr, err)
	}
	if n == nil {
		return nil, fmt.Errorf("xpath %q: %w", expr, ErrNoMatch)
	}
	// htmlquery wraps attribute matches in a detached element.
	if n.Type != html.ElementNode || n.Parent == nil {
		return nil, fmt.Errorf("xpath %q matched a non-element node", expr)
	}
	return n, nil
}

// ByID returns the element whose id attribute equals id.
func ByID(root *html.Node, id string) (*html.Node, error) {
	if id == "" {
		return nil, fmt.Errorf("empty element id")
	}
	if strings.ContainsAny(id, `'"`) {
		return nil, fmt.Errorf("element id %q contains a quote", id)
	}
	return Select(root, "//*[@id='"+id+"']")
}

// Describe summarises n for API responses and CLI output.
func Describe(n *html.Node) NodeInfo {
	if n == nil {
		return NodeInfo{}
	}
	info := NodeInfo{
		Tag:   n.Data,
		ID:    Attr(n, "id"),
		XPath: XPath(n),
	}
	if class := Attr(n, "class"); class != "" {
		info.Classes = strings.Fields(class)
	}
	if n.Type == html.ElementNode {
		info.Text = truncate(collapseSpace(TextContent(n)), maxTextLen)
	}
	return info
}

// Attr returns the value of attribute key, or "".
func Attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// XPath builds an absolute, position-indexed path to n such as
// /html/body/div[2]/span. The index is omitted when n is the only sibling
// with its tag.
func XPath(n *html.Node) string {
	var parts []string
	for cur := n; cur != nil && cur.Type == html.ElementNode; cur = cur.Parent {
		same, pos := 1, 1
		if cur.Parent != nil {
			same, pos = siblingIndex(cur)
		}
		step := cur.Data
		if same > 1 {
			step += "[" + strconv.Itoa(pos) + "]"
		}
		parts = append(parts, step)
	}
	if len(parts) == 0 {
		return "/"
	}

	var b strings.Builder
	for i := len(parts) - 1; i >= 0; i-- {
		b.WriteString("/")
		b.WriteString(parts[i])
	}
	return b.String()
}

// siblingIndex counts n's element siblings sharing its tag and n's
// 1-based position among them.
func siblingIndex(n *html.Node) (same, pos int) {
	for s := n.Parent.FirstChild; s != nil; s = s.NextSibling {
		if s.Type == html.ElementNode && s.Data == n.Data {
			same++
			if s == n {
				pos = same
			}
		}
	}
	return same, pos
}

// TextContent concatenates all text below n, skipping script and style.
func TextContent(n *html.Node) string {
	var buf strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
			return
		}
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return strings.TrimSpace(buf.String())
}

// FindTitle returns the text of the first <title> element.
func FindTitle(n *html.Node) string {
	if n.Type == html.ElementNode && n.Data == "title" {
		return TextContent(n)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if t := FindTitle(c); t != "" {
			return t
		}
	}
	return ""
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit-1]) + "…"
}
