package hotkey

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Action identifies a dictation command that can be bound to a key chord.
// The set is fixed for the lifetime of the application and is not
// user-extensible.
type Action string

const (
	ActionPushToTalk      Action = "push-to-talk"
	ActionToggleHandsFree Action = "toggle-hands-free"
	ActionToggleBar       Action = "toggle-bar"
	ActionSwitchEN        Action = "switch-en"
	ActionSwitchPT        Action = "switch-pt"
	ActionSwitchES        Action = "switch-es"
)

// Actions returns the known actions in display order.
func Actions() []Action {
	return []Action{
		ActionPushToTalk,
		ActionToggleHandsFree,
		ActionToggleBar,
		ActionSwitchEN,
		ActionSwitchPT,
		ActionSwitchES,
	}
}

var defaults = map[Action]string{
	ActionPushToTalk:      "Alt+Space",
	ActionToggleHandsFree: "Alt+H",
	ActionToggleBar:       "Alt+B",
	ActionSwitchEN:        "Alt+1",
	ActionSwitchPT:        "Alt+2",
	ActionSwitchES:        "Alt+3",
}

// Default returns the built-in chord for an action, "" for unknown actions.
func Default(a Action) string {
	return defaults[a]
}

// Known reports whether a belongs to the fixed action set.
func Known(a Action) bool {
	_, ok := defaults[a]
	return ok
}

// Modifier is a bitmask of the chord modifier keys.
type Modifier uint8

const (
	ModNone Modifier = 0

	ModCtrl Modifier = 1 << iota
	ModAlt
	ModShift
)

// Has reports whether m contains mod.
func (m Modifier) Has(mod Modifier) bool {
	return m&mod != 0
}

// String renders the modifiers in canonical order: Ctrl, Alt, Shift.
func (m Modifier) String() string {
	var parts []string
	if m.Has(ModCtrl) {
		parts = append(parts, "Ctrl")
	}
	if m.Has(ModAlt) {
		parts = append(parts, "Alt")
	}
	if m.Has(ModShift) {
		parts = append(parts, "Shift")
	}
	return strings.Join(parts, "+")
}

// KeyEvent is a raw key-down as delivered by the windowing layer: three
// independent modifier flags plus the key identifier. Key carries the
// symbolic name for special keys ("Space", "F5", "Up") or the character
// itself; a press of a bare modifier arrives with Key set to the modifier's
// own name.
type KeyEvent struct {
	Ctrl  bool
	Alt   bool
	Shift bool
	Key   string
}

// Modifiers collects the event's modifier flags into a bitmask.
func (e KeyEvent) Modifiers() Modifier {
	m := ModNone
	if e.Ctrl {
		m |= ModCtrl
	}
	if e.Alt {
		m |= ModAlt
	}
	if e.Shift {
		m |= ModShift
	}
	return m
}

func isModifierName(key string) bool {
	switch strings.ToLower(strings.TrimSpace(key)) {
	case "ctrl", "control", "alt", "shift":
		return true
	}
	return false
}

// Normalize turns a key-down event into a Canonical Hotkey String: present
// modifiers in the fixed order Ctrl, Alt, Shift followed by exactly one
// non-modifier key token, joined with "+". Single printable characters are
// upper-cased; named keys pass through unchanged.
//
// It returns ok=false when the event carries no primary key, i.e. the press
// is a bare modifier. A modifier-only press never completes a chord.
func Normalize(ev KeyEvent) (string, bool) {
	key := strings.TrimSpace(ev.Key)
	if key == "" || isModifierName(key) {
		return "", false
	}
	if utf8.RuneCountInString(key) == 1 {
		key = strings.ToUpper(key)
	}

	var parts []string
	if mods := ev.Modifiers().String(); mods != "" {
		parts = append(parts, mods)
	}
	parts = append(parts, key)
	return strings.Join(parts, "+"), true
}

// ParseChord validates a typed chord such as "ctrl+shift+p" and returns its
// canonical form. Every token before the last must be a modifier name; the
// last token must be a non-modifier key.
func ParseChord(s string) (string, error) {
	tokens := strings.Split(s, "+")
	ev := KeyEvent{}
	for i, tok := range tokens {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			return "", fmt.Errorf("malformed chord %q", s)
		}
		if i < len(tokens)-1 {
			switch strings.ToLower(tok) {
			case "ctrl", "control":
				ev.Ctrl = true
			case "alt":
				ev.Alt = true
			case "shift":
				ev.Shift = true
			default:
				return "", fmt.Errorf("unknown modifier %q in chord %q", tok, s)
			}
			continue
		}
		if isModifierName(tok) {
			return "", fmt.Errorf("chord %q has no non-modifier key", s)
		}
		ev.Key = canonicalKeyName(tok)
	}

	chord, ok := Normalize(ev)
	if !ok {
		return "", fmt.Errorf("chord %q has no non-modifier key", s)
	}
	return chord, nil
}

// canonicalKeyName maps typed key names onto the spelling the capture path
// produces, so "ctrl+space" and a recorded Ctrl+Space compare equal.
func canonicalKeyName(tok string) string {
	if utf8.RuneCountInString(tok) == 1 {
		return strings.ToUpper(tok)
	}
	lower := strings.ToLower(tok)
	if name, ok := namedKeys[lower]; ok {
		return name
	}
	if len(lower) >= 2 && len(lower) <= 3 && lower[0] == 'f' {
		if n := lower[1:]; n >= "1" && n <= "99" {
			return "F" + n
		}
	}
	return tok
}

var namedKeys = map[string]string{
	"space":     "Space",
	"tab":       "Tab",
	"enter":     "Enter",
	"return":    "Enter",
	"escape":    "Escape",
	"esc":       "Escape",
	"backspace": "Backspace",
	"delete":    "Delete",
	"insert":    "Insert",
	"home":      "Home",
	"end":       "End",
	"pageup":    "PageUp",
	"pagedown":  "PageDown",
	"up":        "Up",
	"down":      "Down",
	"left":      "Left",
	"right":     "Right",
}
