package annotate

import (
	"regexp"
	"strings"
)

// MarkerKind distinguishes the opening and closing comment of a region.
type MarkerKind string

const (
	Begin MarkerKind = "BEGIN"
	End   MarkerKind = "END"
)

// Marker is a parsed BEGIN/END annotation comment.
type Marker struct {
	Kind MarkerKind
	Path string
}

var markerPattern = regexp.MustCompile(`^(BEGIN|END)\s+(\S+)$`)

// ParseMarker parses comment text such as "BEGIN app/views/home.html.erb".
// Comments that are not markers report false and are treated as ordinary
// content by the resolver.
func ParseMarker(text string) (Marker, bool) {
	m := markerPattern.FindStringSubmatch(strings.TrimSpace(text))
	if m == nil {
		return Marker{}, false
	}
	return Marker{Kind: MarkerKind(m[1]), Path: m[2]}, true
}
