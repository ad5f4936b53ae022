// Package combo matches keyboard shortcuts such as "meta-shift-v" against
// key events reported by the browser, and tracks the inspector's
// enabled state.
package combo

import (
	"strings"
	"sync"
)

// DefaultCombo toggles the inspector when no combo is configured.
const DefaultCombo = "meta-shift-v"

// KeyEvent is the subset of a DOM KeyboardEvent the predicate reads.
type KeyEvent struct {
	Key     string `json:"key"`
	Shift   bool   `json:"shift_key"`
	Control bool   `json:"ctrl_key"`
	Alt     bool   `json:"alt_key"`
	Meta    bool   `json:"meta_key"`
}

// IsCombo reports whether every hyphen-separated token of spec is active
// on ev. Token order and case do not matter; "command" is an alias for
// "meta".
func IsCombo(spec string, ev KeyEvent) bool {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return false
	}
	for _, key := range strings.Split(strings.ToLower(spec), "-") {
		if !isKeyActive(key, ev) {
			return false
		}
	}
	return true
}

func isKeyActive(key string, ev KeyEvent) bool {
	switch key {
	case "shift":
		return ev.Shift
	case "control":
		return ev.Control
	case "alt":
		return ev.Alt
	case "meta", "command":
		return ev.Meta
	case "":
		return false
	default:
		return key == strings.ToLower(ev.Key)
	}
}

// Toggle is the enable/disable state driven by the combo key. It is safe
// for concurrent use.
type Toggle struct {
	Combo string
	// KeepEnabled leaves the inspector on after a path is opened.
	KeepEnabled bool

	mu      sync.Mutex
	enabled bool
}

// NewToggle returns a disabled toggle for combo, or DefaultCombo when
// combo is empty.
func NewToggle(combo string) *Toggle {
	if combo == "" {
		combo = DefaultCombo
	}
	return &Toggle{Combo: combo}
}

func (t *Toggle) Enabled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.enabled
}

func (t *Toggle) Enable()  { t.set(true) }
func (t *Toggle) Disable() { t.set(false) }

func (t *Toggle) set(v bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.enabled = v
}

// HandleKey applies a keydown event and returns the resulting state.
// Escape only ever disables.
func (t *Toggle) HandleKey(ev KeyEvent) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch ev.Key {
	case "Escape", "Esc":
		t.enabled = false
		return t.enabled
	}
	if IsCombo(t.Combo, ev) {
		t.enabled = !t.enabled
	}
	return t.enabled
}

// Opened records that a path was sent to the editor and returns the
// resulting state.
func (t *Toggle) Opened() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.KeepEnabled {
		t.enabled = false
	}
	return t.enabled
}
