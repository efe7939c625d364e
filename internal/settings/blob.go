// Package settings owns the process-wide persisted settings document and the
// bus service that serves it to every surface.
package settings

import "github.com/dictalabs/dicta-core/internal/hotkey"

// Blob is the persisted settings document shared by all surfaces. The
// hotkeys section belongs to the hotkey dialog; the remaining fields belong
// to the main settings surface and its collaborators, but every write
// replaces the document as a whole.
type Blob struct {
	Hotkeys            map[string]string `json:"hotkeys"`
	InteractionSounds  bool              `json:"interactionSounds"`
	MuteAudio          bool              `json:"muteAudio"`
	AutoLearn          bool              `json:"autoLearn"`
	OutputLanguage     string            `json:"outputLanguage"`
	RecognitionService string            `json:"recognitionService"`
	WhisperKey         string            `json:"whisperKey"`
	AzureKey           string            `json:"azureKey"`
	AzureRegion        string            `json:"azureRegion"`
	GoogleCredentials  string            `json:"googleCredentials"`
}

// Default returns the document used on first run and to seed fields missing
// from an older persisted file.
func Default() Blob {
	return Blob{
		Hotkeys:            hotkey.NewBindingSet().Snapshot(),
		AutoLearn:          true,
		OutputLanguage:     "en-US",
		RecognitionService: "azure",
	}
}

// Clone returns a deep copy; the hotkeys map is never shared.
func (b Blob) Clone() Blob {
	out := b
	out.Hotkeys = make(map[string]string, len(b.Hotkeys))
	for k, v := range b.Hotkeys {
		out.Hotkeys[k] = v
	}
	return out
}
