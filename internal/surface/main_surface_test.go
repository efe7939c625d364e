package surface

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dictalabs/dicta-core/internal/hotkey"
	"github.com/dictalabs/dicta-core/internal/settings"
)

func TestMainLoadFirstRunUsesDefaults(t *testing.T) {
	m := NewMain(&fakeGateway{}, nil, "main-1", 0, testLogger())
	m.Load(context.Background())

	if got := m.Binding(hotkey.ActionPushToTalk); got != "Alt+Space" {
		t.Fatalf("expected default binding, got %q", got)
	}
}

func TestMainLoadReadFailureKeepsDefaults(t *testing.T) {
	m := NewMain(&fakeGateway{readErr: errors.New("bus down")}, nil, "main-1", 0, testLogger())
	m.Load(context.Background())

	if got := m.Binding(hotkey.ActionToggleBar); got != "Alt+B" {
		t.Fatalf("expected default binding, got %q", got)
	}
}

func TestMainSavePreservesDialogHotkeys(t *testing.T) {
	gw := &fakeGateway{}
	m := NewMain(gw, nil, "main-1", 0, testLogger())
	m.Load(context.Background())

	// Dialog writes a custom chord after this surface loaded.
	blob := settings.Default()
	blob.Hotkeys["switch-en"] = "Alt+4"
	gw.blob = blob
	gw.present = true

	m.SetPreferences(Preferences{MuteAudio: true, AutoLearn: true, OutputLanguage: "pt-BR"})
	if err := m.Save(context.Background()); err != nil {
		t.Fatalf("save: %v", err)
	}

	if gw.blob.Hotkeys["switch-en"] != "Alt+4" {
		t.Fatal("save must carry forward hotkeys written by the dialog")
	}
	if !gw.blob.MuteAudio || gw.blob.OutputLanguage != "pt-BR" {
		t.Fatal("owned preference fields not persisted")
	}
	if got := m.Binding(hotkey.ActionSwitchEN); got != "Alt+4" {
		t.Fatalf("save must refresh the local binding view, got %q", got)
	}
}

func TestMainSaveRecognitionCredentials(t *testing.T) {
	gw := &fakeGateway{}
	m := NewMain(gw, nil, "main-1", 0, testLogger())
	m.Load(context.Background())

	m.SetRecognition(Recognition{Service: "google", GoogleCredentials: "/tmp/creds.json"})
	if err := m.Save(context.Background()); err != nil {
		t.Fatalf("save: %v", err)
	}

	if gw.blob.RecognitionService != "google" || gw.blob.GoogleCredentials != "/tmp/creds.json" {
		t.Fatal("recognition fields not persisted")
	}
}

func TestMainMatchDuplicateBindings(t *testing.T) {
	blob := settings.Default()
	blob.Hotkeys["switch-en"] = "Alt+X"
	blob.Hotkeys["switch-pt"] = "Alt+X"
	gw := &fakeGateway{blob: blob, present: true}
	m := NewMain(gw, nil, "main-1", 0, testLogger())
	m.Load(context.Background())

	matched := m.Match(hotkey.KeyEvent{Alt: true, Key: "x"})
	if len(matched) != 2 {
		t.Fatalf("expected both duplicate bindings to fire, got %v", matched)
	}
	if m.Match(hotkey.KeyEvent{Alt: true, Key: "Alt"}) != nil {
		t.Fatal("modifier-only press must match nothing")
	}
}

func TestMainRequestTimeout(t *testing.T) {
	m := NewMain(&fakeGateway{}, nil, "main-1", 750*time.Millisecond, testLogger())
	if m.timeout != 750*time.Millisecond {
		t.Fatalf("expected configured timeout, got %v", m.timeout)
	}
	m = NewMain(&fakeGateway{}, nil, "main-1", 0, testLogger())
	if m.timeout != 2*time.Second {
		t.Fatalf("expected default timeout, got %v", m.timeout)
	}
}

func TestMainSaveWriteFailure(t *testing.T) {
	gw := &fakeGateway{writeErr: errors.New("store unavailable")}
	m := NewMain(gw, nil, "main-1", 0, testLogger())
	m.Load(context.Background())

	if err := m.Save(context.Background()); err == nil {
		t.Fatal("expected save error")
	}
}
