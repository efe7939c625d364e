package surface

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/dictalabs/dicta-core/internal/capture"
	"github.com/dictalabs/dicta-core/internal/hotkey"
	"github.com/dictalabs/dicta-core/internal/settings"
)

type fakeGateway struct {
	blob     settings.Blob
	present  bool
	readErr  error
	writeErr error
	writes   int
}

func (g *fakeGateway) Read(context.Context) (settings.Blob, bool, error) {
	if g.readErr != nil {
		return settings.Blob{}, false, g.readErr
	}
	return g.blob.Clone(), g.present, nil
}

func (g *fakeGateway) Write(_ context.Context, blob settings.Blob) error {
	if g.writeErr != nil {
		return g.writeErr
	}
	g.blob = blob.Clone()
	g.present = true
	g.writes++
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestDialogOpenFirstRunShowsDefaults(t *testing.T) {
	gw := &fakeGateway{}
	d := NewDialog(gw, testLogger(), nil, nil)

	if err := d.Open(context.Background()); err != nil {
		t.Fatalf("open: %v", err)
	}
	for _, action := range hotkey.Actions() {
		if got := d.Field(action).Value(); got != hotkey.Default(action) {
			t.Fatalf("expected default for %s, got %q", action, got)
		}
	}
}

func TestDialogOpenLoadsPersistedBindings(t *testing.T) {
	blob := settings.Default()
	blob.Hotkeys["push-to-talk"] = "Ctrl+Shift+D"
	gw := &fakeGateway{blob: blob, present: true}
	d := NewDialog(gw, testLogger(), nil, nil)

	if err := d.Open(context.Background()); err != nil {
		t.Fatalf("open: %v", err)
	}
	if got := d.Field(hotkey.ActionPushToTalk).Value(); got != "Ctrl+Shift+D" {
		t.Fatalf("expected persisted chord, got %q", got)
	}
	if got := d.Field(hotkey.ActionToggleBar).Value(); got != "Alt+B" {
		t.Fatalf("expected default for unbound action, got %q", got)
	}
}

func TestDialogOpenReadFailureFallsBackToDefaults(t *testing.T) {
	gw := &fakeGateway{readErr: errors.New("bus down")}
	d := NewDialog(gw, testLogger(), nil, nil)

	if err := d.Open(context.Background()); err != nil {
		t.Fatalf("open must not fail on a read error: %v", err)
	}
	if got := d.Field(hotkey.ActionPushToTalk).Value(); got != "Alt+Space" {
		t.Fatalf("expected default, got %q", got)
	}
}

func TestDialogCaptureAndSave(t *testing.T) {
	gw := &fakeGateway{}
	var notified, saved bool
	d := NewDialog(gw, testLogger(), nil, func(ok bool) { notified = true; saved = ok })
	if err := d.Open(context.Background()); err != nil {
		t.Fatalf("open: %v", err)
	}

	d.Activate(hotkey.ActionSwitchEN)
	if !d.Capturing() {
		t.Fatal("expected capture to start")
	}
	if !d.HandleKey(hotkey.KeyEvent{Alt: true, Key: "4"}) {
		t.Fatal("capture event must be consumed")
	}
	if got := d.Field(hotkey.ActionSwitchEN).Value(); got != "Alt+4" {
		t.Fatalf("expected committed chord, got %q", got)
	}

	if err := d.Save(context.Background()); err != nil {
		t.Fatalf("save: %v", err)
	}
	if gw.blob.Hotkeys["switch-en"] != "Alt+4" {
		t.Fatalf("persisted document missing new chord: %v", gw.blob.Hotkeys)
	}
	if !d.Closed() {
		t.Fatal("dialog must close after save")
	}
	if !notified || !saved {
		t.Fatal("expected notify(true)")
	}
}

func TestDialogBlurRestoresDefault(t *testing.T) {
	gw := &fakeGateway{}
	d := NewDialog(gw, testLogger(), nil, nil)
	if err := d.Open(context.Background()); err != nil {
		t.Fatalf("open: %v", err)
	}

	d.Activate(hotkey.ActionToggleBar)
	if got := d.Field(hotkey.ActionToggleBar).Value(); got != capture.Placeholder {
		t.Fatalf("expected placeholder, got %q", got)
	}
	d.Blur(hotkey.ActionToggleBar)
	if got := d.Field(hotkey.ActionToggleBar).Value(); got != "Alt+B" {
		t.Fatalf("expected default restored, got %q", got)
	}
}

func TestDialogSavePreemptsLiveCapture(t *testing.T) {
	gw := &fakeGateway{}
	d := NewDialog(gw, testLogger(), nil, nil)
	if err := d.Open(context.Background()); err != nil {
		t.Fatalf("open: %v", err)
	}

	d.Activate(hotkey.ActionToggleBar)
	if err := d.Save(context.Background()); err != nil {
		t.Fatalf("save: %v", err)
	}
	if gw.blob.Hotkeys["toggle-bar"] != "Alt+B" {
		t.Fatalf("abandoned capture must persist the default, got %q", gw.blob.Hotkeys["toggle-bar"])
	}
}

func TestDialogAbandonThenSavePersistsDisplayedValue(t *testing.T) {
	blob := settings.Default()
	blob.Hotkeys["switch-en"] = "Alt+4"
	gw := &fakeGateway{blob: blob, present: true}
	d := NewDialog(gw, testLogger(), nil, nil)
	if err := d.Open(context.Background()); err != nil {
		t.Fatalf("open: %v", err)
	}

	d.Activate(hotkey.ActionSwitchEN)
	d.Blur(hotkey.ActionSwitchEN)

	displayed := d.Field(hotkey.ActionSwitchEN).Value()
	if displayed != "Alt+1" {
		t.Fatalf("expected abandoned field to show the default, got %q", displayed)
	}
	if err := d.Save(context.Background()); err != nil {
		t.Fatalf("save: %v", err)
	}
	if got := gw.blob.Hotkeys["switch-en"]; got != displayed {
		t.Fatalf("saved chord %q diverges from displayed value %q", got, displayed)
	}
}

func TestDialogSaveFailureStaysOpen(t *testing.T) {
	gw := &fakeGateway{writeErr: errors.New("store unavailable")}
	var notified bool
	d := NewDialog(gw, testLogger(), nil, func(bool) { notified = true })
	if err := d.Open(context.Background()); err != nil {
		t.Fatalf("open: %v", err)
	}

	if err := d.Save(context.Background()); err == nil {
		t.Fatal("expected save error")
	}
	if d.Closed() {
		t.Fatal("dialog must stay open when the write fails")
	}
	if notified {
		t.Fatal("notify must not fire on failure")
	}
}

func TestDialogSavePreservesOtherSections(t *testing.T) {
	blob := settings.Default()
	blob.MuteAudio = true
	blob.AzureKey = "ak-9"
	gw := &fakeGateway{blob: blob, present: true}
	d := NewDialog(gw, testLogger(), nil, nil)
	if err := d.Open(context.Background()); err != nil {
		t.Fatalf("open: %v", err)
	}

	d.Activate(hotkey.ActionSwitchPT)
	d.HandleKey(hotkey.KeyEvent{Ctrl: true, Key: "2"})
	if err := d.Save(context.Background()); err != nil {
		t.Fatalf("save: %v", err)
	}

	if !gw.blob.MuteAudio || gw.blob.AzureKey != "ak-9" {
		t.Fatal("sections owned by the main surface were clobbered")
	}
	if gw.blob.Hotkeys["switch-pt"] != "Ctrl+2" {
		t.Fatalf("hotkeys section not replaced: %v", gw.blob.Hotkeys)
	}
}

func TestDialogResetDeclined(t *testing.T) {
	gw := &fakeGateway{}
	d := NewDialog(gw, testLogger(), func() bool { return false }, nil)
	if err := d.Open(context.Background()); err != nil {
		t.Fatalf("open: %v", err)
	}

	d.Activate(hotkey.ActionToggleHandsFree)
	d.HandleKey(hotkey.KeyEvent{Ctrl: true, Key: "h"})
	d.Reset()

	if got := d.Field(hotkey.ActionToggleHandsFree).Value(); got != "Ctrl+H" {
		t.Fatalf("declined reset must change nothing, got %q", got)
	}
}

func TestDialogResetAccepted(t *testing.T) {
	gw := &fakeGateway{}
	d := NewDialog(gw, testLogger(), func() bool { return true }, nil)
	if err := d.Open(context.Background()); err != nil {
		t.Fatalf("open: %v", err)
	}

	d.Activate(hotkey.ActionToggleHandsFree)
	d.HandleKey(hotkey.KeyEvent{Ctrl: true, Key: "h"})
	d.Activate(hotkey.ActionToggleBar)
	d.Reset()

	if d.Capturing() {
		t.Fatal("reset must abandon the live capture")
	}
	for _, action := range hotkey.Actions() {
		if got := d.Field(action).Value(); got != hotkey.Default(action) {
			t.Fatalf("expected default for %s after reset, got %q", action, got)
		}
	}
}

func TestDialogCancelNotifiesUnsaved(t *testing.T) {
	gw := &fakeGateway{}
	var saved = true
	d := NewDialog(gw, testLogger(), nil, func(ok bool) { saved = ok })
	if err := d.Open(context.Background()); err != nil {
		t.Fatalf("open: %v", err)
	}

	d.Cancel()
	if !d.Closed() {
		t.Fatal("cancel must close the dialog")
	}
	if saved {
		t.Fatal("expected notify(false)")
	}
	if gw.writes != 0 {
		t.Fatal("cancel must not write")
	}
}
