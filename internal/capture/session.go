// Package capture implements the single-slot recording session that records
// a live key chord into one bindable field at a time.
package capture

import "github.com/dictalabs/dicta-core/internal/hotkey"

// Placeholder is shown in a field while it is capturing. A field still
// displaying it when finalized never received a chord.
const Placeholder = "Press a key combination..."

// Field is one bindable input owned by a surface. SetRecording toggles the
// visual capture marker on the rendered widget.
type Field interface {
	Action() hotkey.Action
	Value() string
	SetValue(string)
	SetRecording(bool)
}

// Session is the recording state machine: either idle or capturing exactly
// one field. It owns no goroutines and cannot fail; the surface's event loop
// drives it synchronously. The machine cycles for the lifetime of the
// surface, there is no terminal state.
type Session struct {
	bindings *hotkey.BindingSet
	active   Field
}

func NewSession(bindings *hotkey.BindingSet) *Session {
	return &Session{bindings: bindings}
}

// Capturing reports whether a field is currently recording.
func (s *Session) Capturing() bool {
	return s.active != nil
}

// ActiveField returns the capturing field, nil when idle.
func (s *Session) ActiveField() Field {
	return s.active
}

// Activate begins capturing into f. A field already capturing is finalized
// under the abandoned-field rule first, so at most one field records at any
// instant. Activating the field that is already capturing is a no-op.
func (s *Session) Activate(f Field) {
	if f == nil || s.active == f {
		return
	}
	if s.active != nil {
		s.finalize(s.active)
	}
	s.active = f
	f.SetValue(Placeholder)
	f.SetRecording(true)
}

// HandleKey feeds a key-down into the session and reports whether the caller
// must suppress the event from default platform handling: true for every
// event observed while capturing, false when idle. A bare modifier keeps the
// session open awaiting a primary key; Escape cancels the capture.
func (s *Session) HandleKey(ev hotkey.KeyEvent) bool {
	if s.active == nil {
		return false
	}
	if ev.Key == "Escape" {
		s.finalize(s.active)
		s.active = nil
		return true
	}
	chord, ok := hotkey.Normalize(ev)
	if !ok {
		return true
	}

	field := s.active
	field.SetValue(chord)
	field.SetRecording(false)
	s.bindings.Commit(field.Action(), chord)
	s.active = nil
	return true
}

// Abandon finalizes f after it lost focus without a committed chord. Calling
// it for a field that is not capturing is a no-op, which keeps the exit rule
// idempotent under preemption.
func (s *Session) Abandon(f Field) {
	if f == nil || s.active != f {
		return
	}
	s.finalize(f)
	s.active = nil
}

// finalize applies the abandoned-field exit rule: a field still showing the
// transient placeholder reverts to its action's default, and that default is
// committed to the binding set so the persisted chord never diverges from
// what the field displays. Any other value is the last committed chord and
// stays untouched.
func (s *Session) finalize(f Field) {
	if f.Value() == Placeholder {
		def := hotkey.Default(f.Action())
		f.SetValue(def)
		s.bindings.Commit(f.Action(), def)
	}
	f.SetRecording(false)
}
