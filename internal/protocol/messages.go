package protocol

import (
	"encoding/json"
	"time"
)

// Settings store subjects. Get takes an empty request and replies with a
// SettingsSnapshot; Set carries a SettingsUpdate and replies with a
// SettingsAck; History carries a HistoryRequest and replies with a
// HistoryReply.
const (
	SubjectSettingsGet     = "settings.get"
	SubjectSettingsSet     = "settings.set"
	SubjectSettingsHistory = "settings.history"
)

// Surface lifecycle subjects.
const (
	SubjectDialogOpen   = "ui.hotkeys.open"
	SubjectDialogClosed = "ui.hotkeys.closed"

	SubjectSurfaceAnnounce        = "ui.surface.announce"
	SubjectSurfaceHeartbeatPrefix = "ui.surface.heartbeat"
)

// SubjectRecognitionTest carries a RecognitionTestRequest and replies with a
// RecognitionTestResult.
const SubjectRecognitionTest = "recognition.test"

// SettingsSnapshot is the reply to settings.get. Present is false on first
// run, before anything has ever been persisted; Settings is omitted then.
type SettingsSnapshot struct {
	Present  bool            `json:"present"`
	Settings json.RawMessage `json:"settings,omitempty"`
}

// SettingsUpdate replaces the persisted settings document wholesale. The
// store does not merge concurrent updates; read-modify-write is the sender's
// responsibility.
type SettingsUpdate struct {
	RequestID string          `json:"request_id"`
	Surface   string          `json:"surface"`
	Settings  json.RawMessage `json:"settings"`
	Timestamp time.Time       `json:"timestamp"`
}

// SettingsAck acknowledges a settings.set request.
type SettingsAck struct {
	OK         bool   `json:"ok"`
	RevisionID string `json:"revision_id,omitempty"`
	Error      string `json:"error,omitempty"`
}

// HistoryRequest asks for the most recent settings revisions.
type HistoryRequest struct {
	Limit int `json:"limit"`
}

// HistoryEntry is one accepted settings write.
type HistoryEntry struct {
	RevisionID string          `json:"revision_id"`
	Surface    string          `json:"surface"`
	Settings   json.RawMessage `json:"settings"`
	CreatedAt  time.Time       `json:"created_at"`
}

type HistoryReply struct {
	Revisions []HistoryEntry `json:"revisions"`
}

// DialogOpen asks whichever process hosts the hotkey dialog to show it.
type DialogOpen struct {
	Requester string    `json:"requester"`
	Timestamp time.Time `json:"timestamp"`
}

// DialogClosed is the fire-and-forget dismissal signal the dialog surface
// publishes back to its host after a successful save (Saved=true) or an
// explicit cancel (Saved=false).
type DialogClosed struct {
	Surface   string    `json:"surface"`
	Saved     bool      `json:"saved"`
	Timestamp time.Time `json:"timestamp"`
}

// SurfaceAnnounce introduces a surface to the presence registry.
type SurfaceAnnounce struct {
	SurfaceID string    `json:"surface_id"`
	Kind      string    `json:"kind"`
	Timestamp time.Time `json:"timestamp"`
}

// SurfaceHeartbeat keeps a surface marked online.
type SurfaceHeartbeat struct {
	SurfaceID string    `json:"surface_id"`
	Timestamp time.Time `json:"timestamp"`
}

// RecognitionTestRequest asks the recognition collaborator to verify the
// credentials for one backend.
type RecognitionTestRequest struct {
	Service           string `json:"service"`
	WhisperKey        string `json:"whisperKey,omitempty"`
	AzureKey          string `json:"azureKey,omitempty"`
	AzureRegion       string `json:"azureRegion,omitempty"`
	GoogleCredentials string `json:"googleCredentials,omitempty"`
}

type RecognitionTestResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}
