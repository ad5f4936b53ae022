package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/dgallion1/tmplinspect/internal/inspector"
	"github.com/dgallion1/tmplinspect/internal/outline"
)

// formatInspectionText prints the resolved path, the highlighted element
// and the breadcrumb, outermost template first.
func formatInspectionText(w io.Writer, insp inspector.Inspection) {
	fmt.Fprintf(w, "%s\n", insp.Path)
	fmt.Fprintf(w, "  element: %s\n", insp.Element.XPath)

	crumbs := append(append([]string{}, insp.Breadcrumb.Parents...), insp.Breadcrumb.Current)
	fmt.Fprintf(w, "  breadcrumb: %s\n", strings.Join(crumbs, " > "))

	if len(insp.Chain) == 0 {
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "DEPTH\tPATH\tELEMENT")
	for i, l := range insp.Chain {
		fmt.Fprintf(tw, "%d\t%s\t%s\n", i, l.Path, l.Element.XPath)
	}
	tw.Flush()
}

// formatOutlineText prints the region tree as an indented list.
func formatOutlineText(w io.Writer, o *outline.Outline) {
	if o.Count() == 0 {
		fmt.Fprintln(w, "no annotated regions")
	}
	var write func([]*outline.Region)
	write = func(rs []*outline.Region) {
		for _, r := range rs {
			suffix := ""
			if !r.Closed {
				suffix = " (unclosed)"
			}
			fmt.Fprintf(w, "%s%s%s\n", strings.Repeat("  ", r.Depth), r.Path, suffix)
			write(r.Children)
		}
	}
	write(o.Regions)

	for _, p := range o.Dangling {
		fmt.Fprintf(w, "dangling END: %s\n", p)
	}
}
