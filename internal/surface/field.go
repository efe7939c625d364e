package surface

import "github.com/dictalabs/dicta-core/internal/hotkey"

// BoundField is a hotkey input widget backing store: the value shown to the
// user plus a recording flag the dialog toggles while a capture is live.
type BoundField struct {
	action    hotkey.Action
	value     string
	recording bool
}

func NewBoundField(action hotkey.Action, value string) *BoundField {
	return &BoundField{action: action, value: value}
}

func (f *BoundField) Action() hotkey.Action { return f.action }
func (f *BoundField) Value() string         { return f.value }
func (f *BoundField) SetValue(v string)     { f.value = v }
func (f *BoundField) Recording() bool       { return f.recording }
func (f *BoundField) SetRecording(on bool)  { f.recording = on }
