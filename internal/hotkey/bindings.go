package hotkey

// BindingSet maps every known action to its Canonical Hotkey String. Each
// surface owns its own set; a BindingSet is driven by a single event loop
// and is not safe for concurrent use.
type BindingSet struct {
	chords map[Action]string
}

// NewBindingSet returns a set populated with the default table.
func NewBindingSet() *BindingSet {
	b := &BindingSet{chords: make(map[Action]string, len(defaults))}
	b.ResetAll()
	return b
}

// Load builds a set from a persisted hotkeys section. Every known action
// takes its persisted chord when present and non-empty, its default
// otherwise. Unknown persisted keys are ignored so documents written by
// newer builds still load.
func Load(persisted map[string]string) *BindingSet {
	b := NewBindingSet()
	for action := range defaults {
		if chord, ok := persisted[string(action)]; ok && chord != "" {
			b.chords[action] = chord
		}
	}
	return b
}

// Get returns the chord bound to an action, "" for unknown actions.
func (b *BindingSet) Get(a Action) string {
	return b.chords[a]
}

// Commit binds a chord to an action. Two actions may legally share the same
// chord; no collision detection is performed. Unknown actions are dropped so
// the set never grows beyond the fixed table.
func (b *BindingSet) Commit(a Action, chord string) {
	if !Known(a) {
		return
	}
	b.chords[a] = chord
}

// ResetAll restores every action to its default chord. Idempotent.
func (b *BindingSet) ResetAll() {
	for action, chord := range defaults {
		b.chords[action] = chord
	}
}

// Snapshot copies the bindings in persisted-document form.
func (b *BindingSet) Snapshot() map[string]string {
	out := make(map[string]string, len(b.chords))
	for action, chord := range b.chords {
		out[string(action)] = chord
	}
	return out
}
