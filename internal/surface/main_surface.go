package surface

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/dictalabs/dicta-core/internal/bus"
	"github.com/dictalabs/dicta-core/internal/gateway"
	"github.com/dictalabs/dicta-core/internal/hotkey"
	"github.com/dictalabs/dicta-core/internal/protocol"
	"github.com/dictalabs/dicta-core/internal/settings"
)

// Preferences are the general settings the main surface owns directly. The
// hotkeys section is owned by the dialog and only read here.
type Preferences struct {
	InteractionSounds bool
	MuteAudio         bool
	AutoLearn         bool
	OutputLanguage    string
}

// Recognition carries the speech backend selection and its credentials.
type Recognition struct {
	Service           string
	WhisperKey        string
	AzureKey          string
	AzureRegion       string
	GoogleCredentials string
}

// Main is the primary settings surface: it dispatches global shortcuts from
// its binding view, edits general preferences and recognition credentials,
// and reloads bindings when the hotkey dialog reports a save.
type Main struct {
	gw      gateway.Client
	bus     *bus.Client
	surface string
	timeout time.Duration
	log     *slog.Logger

	mu       sync.Mutex
	bindings *hotkey.BindingSet
	blob     settings.Blob
	sub      *nats.Subscription
}

// NewMain builds the main surface. requestTimeout bounds the store reload
// after a dialog save; pass the configured settings request timeout.
func NewMain(gw gateway.Client, busClient *bus.Client, surfaceID string, requestTimeout time.Duration, log *slog.Logger) *Main {
	if requestTimeout <= 0 {
		requestTimeout = 2 * time.Second
	}
	return &Main{
		gw:       gw,
		bus:      busClient,
		surface:  surfaceID,
		timeout:  requestTimeout,
		log:      log.With(slog.String("component", "surface.main")),
		bindings: hotkey.NewBindingSet(),
		blob:     settings.Default(),
	}
}

// Load pulls the persisted document. Absence and read errors both leave the
// surface on defaults; startup never blocks on the store.
func (m *Main) Load(ctx context.Context) {
	blob, present, err := m.gw.Read(ctx)
	if err != nil {
		m.log.Warn("settings read failed, using defaults", slog.String("error", err.Error()))
		return
	}
	if !present {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.blob = blob
	m.bindings = hotkey.Load(blob.Hotkeys)
}

// Binding returns the chord currently dispatched for the given action.
func (m *Main) Binding(action hotkey.Action) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.bindings.Get(action)
}

// Bindings returns the full action-to-chord view.
func (m *Main) Bindings() map[string]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.bindings.Snapshot()
}

// Match returns the actions bound to the chord produced by ev. Duplicate
// bindings are legal, so more than one action can fire per chord.
func (m *Main) Match(ev hotkey.KeyEvent) []hotkey.Action {
	chord, ok := hotkey.Normalize(ev)
	if !ok {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var matched []hotkey.Action
	for _, action := range hotkey.Actions() {
		if m.bindings.Get(action) == chord {
			matched = append(matched, action)
		}
	}
	return matched
}

// SetPreferences updates the surface's owned general settings in memory.
func (m *Main) SetPreferences(p Preferences) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blob.InteractionSounds = p.InteractionSounds
	m.blob.MuteAudio = p.MuteAudio
	m.blob.AutoLearn = p.AutoLearn
	m.blob.OutputLanguage = p.OutputLanguage
}

// SetRecognition updates the backend selection and credentials in memory.
func (m *Main) SetRecognition(r Recognition) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blob.RecognitionService = r.Service
	m.blob.WhisperKey = r.WhisperKey
	m.blob.AzureKey = r.AzureKey
	m.blob.AzureRegion = r.AzureRegion
	m.blob.GoogleCredentials = r.GoogleCredentials
}

// Save persists the surface's settings. The stored document is re-read first
// and only the sections this surface owns are replaced, so hotkeys written by
// the dialog survive. Two surfaces saving at the same instant still race on
// the whole document; the last write wins.
func (m *Main) Save(ctx context.Context) error {
	latest, present, err := m.gw.Read(ctx)
	if err != nil || !present {
		latest = settings.Default()
	}

	m.mu.Lock()
	latest.InteractionSounds = m.blob.InteractionSounds
	latest.MuteAudio = m.blob.MuteAudio
	latest.AutoLearn = m.blob.AutoLearn
	latest.OutputLanguage = m.blob.OutputLanguage
	latest.RecognitionService = m.blob.RecognitionService
	latest.WhisperKey = m.blob.WhisperKey
	latest.AzureKey = m.blob.AzureKey
	latest.AzureRegion = m.blob.AzureRegion
	latest.GoogleCredentials = m.blob.GoogleCredentials
	m.blob = latest
	m.bindings = hotkey.Load(latest.Hotkeys)
	m.mu.Unlock()

	if err := m.gw.Write(ctx, latest); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}

// OpenHotkeyDialog asks the dialog host to show the hotkey editor and starts
// listening for its dismissal so saved bindings are picked up.
func (m *Main) OpenHotkeyDialog() error {
	if m.sub == nil {
		sub, err := m.bus.Conn().Subscribe(protocol.SubjectDialogClosed, m.handleDialogClosed)
		if err != nil {
			return fmt.Errorf("subscribe %s: %w", protocol.SubjectDialogClosed, err)
		}
		m.sub = sub
	}

	payload, err := json.Marshal(protocol.DialogOpen{
		Requester: m.surface,
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("encode dialog open: %w", err)
	}
	if err := m.bus.Conn().Publish(protocol.SubjectDialogOpen, payload); err != nil {
		return fmt.Errorf("publish dialog open: %w", err)
	}
	return nil
}

func (m *Main) handleDialogClosed(msg *nats.Msg) {
	var closed protocol.DialogClosed
	if err := json.Unmarshal(msg.Data, &closed); err != nil {
		m.log.Warn("decode dialog closed", slog.String("error", err.Error()))
		return
	}
	if !closed.Saved {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	defer cancel()
	m.Load(ctx)
	m.log.Info("reloaded bindings after dialog save", slog.String("dialog_surface", closed.Surface))
}

// TestRecognition asks the recognition service to verify the credentials
// currently edited on this surface.
func (m *Main) TestRecognition(ctx context.Context) (protocol.RecognitionTestResult, error) {
	m.mu.Lock()
	req := protocol.RecognitionTestRequest{
		Service:           m.blob.RecognitionService,
		WhisperKey:        m.blob.WhisperKey,
		AzureKey:          m.blob.AzureKey,
		AzureRegion:       m.blob.AzureRegion,
		GoogleCredentials: m.blob.GoogleCredentials,
	}
	m.mu.Unlock()

	payload, err := json.Marshal(req)
	if err != nil {
		return protocol.RecognitionTestResult{}, fmt.Errorf("encode recognition test: %w", err)
	}
	msg, err := m.bus.Request(ctx, protocol.SubjectRecognitionTest, payload)
	if err != nil {
		return protocol.RecognitionTestResult{}, fmt.Errorf("recognition test: %w", err)
	}
	var result protocol.RecognitionTestResult
	if err := json.Unmarshal(msg.Data, &result); err != nil {
		return protocol.RecognitionTestResult{}, fmt.Errorf("decode recognition test result: %w", err)
	}
	return result, nil
}

// Close detaches the surface from the bus.
func (m *Main) Close() {
	if m.sub != nil {
		_ = m.sub.Unsubscribe()
		m.sub = nil
	}
}
