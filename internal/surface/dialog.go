// Package surface holds the two settings surfaces: the hotkey dialog and the
// main preferences surface. They never share memory; every exchange goes
// through the settings gateway or the message bus.
package surface

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/dictalabs/dicta-core/internal/bus"
	"github.com/dictalabs/dicta-core/internal/capture"
	"github.com/dictalabs/dicta-core/internal/gateway"
	"github.com/dictalabs/dicta-core/internal/hotkey"
	"github.com/dictalabs/dicta-core/internal/protocol"
	"github.com/dictalabs/dicta-core/internal/settings"
)

// Dialog is the hotkey configuration surface. It owns a binding set and a
// capture session for the lifetime of one open/close cycle.
type Dialog struct {
	gw      gateway.Client
	log     *slog.Logger
	confirm func() bool
	notify  func(saved bool)

	bindings *hotkey.BindingSet
	session  *capture.Session
	fields   map[hotkey.Action]*BoundField
	closed   bool
}

// NewDialog builds a dialog seeded with default bindings. confirm gates
// Reset; notify fires after a successful Save or a Cancel. Either may be nil.
func NewDialog(gw gateway.Client, log *slog.Logger, confirm func() bool, notify func(saved bool)) *Dialog {
	d := &Dialog{
		gw:      gw,
		log:     log.With(slog.String("component", "surface.dialog")),
		confirm: confirm,
		notify:  notify,
	}
	d.reset(hotkey.NewBindingSet())
	return d
}

func (d *Dialog) reset(b *hotkey.BindingSet) {
	d.bindings = b
	d.session = capture.NewSession(b)
	d.fields = make(map[hotkey.Action]*BoundField, len(hotkey.Actions()))
	for _, action := range hotkey.Actions() {
		d.fields[action] = NewBoundField(action, b.Get(action))
	}
	d.closed = false
}

// Open loads the persisted bindings. A missing or unreadable document falls
// back to defaults so the dialog always comes up usable.
func (d *Dialog) Open(ctx context.Context) error {
	blob, present, err := d.gw.Read(ctx)
	if err != nil {
		d.log.Warn("settings read failed, using defaults", slog.String("error", err.Error()))
	}

	b := hotkey.NewBindingSet()
	if err == nil && present {
		b = hotkey.Load(blob.Hotkeys)
	}
	d.reset(b)
	return nil
}

// Field returns the widget state for one action.
func (d *Dialog) Field(action hotkey.Action) *BoundField {
	return d.fields[action]
}

// Activate begins capturing for the given action's field, preempting any
// capture already in progress.
func (d *Dialog) Activate(action hotkey.Action) {
	f, ok := d.fields[action]
	if !ok {
		return
	}
	d.session.Activate(f)
}

// Blur abandons the capture on the given field if it is the active one.
func (d *Dialog) Blur(action hotkey.Action) {
	if f, ok := d.fields[action]; ok {
		d.session.Abandon(f)
	}
}

// HandleKey feeds a key event to the capture session. It reports whether the
// event was consumed; the caller must suppress consumed events from its
// normal shortcut handling.
func (d *Dialog) HandleKey(ev hotkey.KeyEvent) bool {
	return d.session.HandleKey(ev)
}

// Capturing reports whether a field is currently recording.
func (d *Dialog) Capturing() bool { return d.session.Capturing() }

// Reset restores every binding to its default after confirmation. Any live
// capture is abandoned first so its field does not overwrite the reset value.
func (d *Dialog) Reset() {
	if d.confirm != nil && !d.confirm() {
		return
	}
	d.session.Abandon(d.session.ActiveField())
	d.bindings.ResetAll()
	for action, f := range d.fields {
		f.SetValue(d.bindings.Get(action))
	}
}

// Save persists the dialog's bindings. It re-reads the stored document first
// and only replaces the hotkeys section, so fields owned by other surfaces
// survive. On failure the dialog stays open.
func (d *Dialog) Save(ctx context.Context) error {
	d.session.Abandon(d.session.ActiveField())

	blob, present, err := d.gw.Read(ctx)
	if err != nil || !present {
		blob = settings.Default()
	}
	blob.Hotkeys = d.bindings.Snapshot()

	if err := d.gw.Write(ctx, blob); err != nil {
		d.log.Warn("settings write failed, dialog stays open", slog.String("error", err.Error()))
		return err
	}

	d.closed = true
	if d.notify != nil {
		d.notify(true)
	}
	return nil
}

// Cancel closes the dialog without persisting anything.
func (d *Dialog) Cancel() {
	d.session.Abandon(d.session.ActiveField())
	d.closed = true
	if d.notify != nil {
		d.notify(false)
	}
}

// Closed reports whether the dialog has been dismissed.
func (d *Dialog) Closed() bool { return d.closed }

// ListenOpen subscribes to the dialog-open signal. The UI shell supplies
// show, which runs on the bus callback goroutine and is expected to hand off
// to its own event loop before touching any Dialog.
func ListenOpen(busClient *bus.Client, log *slog.Logger, show func(protocol.DialogOpen)) (*nats.Subscription, error) {
	return busClient.Conn().Subscribe(protocol.SubjectDialogOpen, func(msg *nats.Msg) {
		var open protocol.DialogOpen
		if err := json.Unmarshal(msg.Data, &open); err != nil {
			log.Warn("decode dialog open", slog.String("error", err.Error()))
			return
		}
		show(open)
	})
}

// BusNotifier returns a notify callback that announces the dialog outcome on
// the bus so the main surface can reload saved bindings.
func BusNotifier(busClient *bus.Client, surfaceID string, log *slog.Logger) func(saved bool) {
	return func(saved bool) {
		payload, err := json.Marshal(protocol.DialogClosed{
			Surface:   surfaceID,
			Saved:     saved,
			Timestamp: time.Now().UTC(),
		})
		if err != nil {
			log.Warn("encode dialog closed", slog.String("error", err.Error()))
			return
		}
		if err := busClient.Conn().Publish(protocol.SubjectDialogClosed, payload); err != nil {
			log.Warn("publish dialog closed", slog.String("error", fmt.Sprint(err)))
		}
	}
}
