// Package gateway is the surface-side handle on the settings store: an
// asynchronous read/write boundary with no shared memory behind it.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/dictalabs/dicta-core/internal/bus"
	"github.com/dictalabs/dicta-core/internal/protocol"
	"github.com/dictalabs/dicta-core/internal/settings"
	"github.com/google/uuid"
)

// Client gives a surface access to the persisted settings. Read reports
// absence instead of failing on first run; Write replaces the document
// wholesale, so callers re-read immediately before writing to carry forward
// sections they do not own.
type Client interface {
	Read(ctx context.Context) (settings.Blob, bool, error)
	Write(ctx context.Context, blob settings.Blob) error
}

// Bus is the NATS-backed Client used by real surfaces.
type Bus struct {
	bus     *bus.Client
	surface string
	timeout time.Duration
	log     *slog.Logger
}

// NewBus wires a gateway for the surface identified by surfaceID; the id is
// recorded with every write so the revision log can attribute it.
func NewBus(busClient *bus.Client, surfaceID string, timeout time.Duration, log *slog.Logger) *Bus {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Bus{
		bus:     busClient,
		surface: surfaceID,
		timeout: timeout,
		log:     log.With(slog.String("component", "settings.gateway")),
	}
}

func (g *Bus) Read(ctx context.Context) (settings.Blob, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	msg, err := g.bus.Request(ctx, protocol.SubjectSettingsGet, nil)
	if err != nil {
		return settings.Blob{}, false, fmt.Errorf("settings read: %w", err)
	}

	var snap protocol.SettingsSnapshot
	if err := json.Unmarshal(msg.Data, &snap); err != nil {
		return settings.Blob{}, false, fmt.Errorf("decode settings snapshot: %w", err)
	}
	if !snap.Present {
		return settings.Blob{}, false, nil
	}

	blob := settings.Default()
	if err := json.Unmarshal(snap.Settings, &blob); err != nil {
		return settings.Blob{}, false, fmt.Errorf("decode settings document: %w", err)
	}
	return blob, true, nil
}

func (g *Bus) Write(ctx context.Context, blob settings.Blob) error {
	document, err := json.Marshal(blob)
	if err != nil {
		return fmt.Errorf("encode settings document: %w", err)
	}
	update := protocol.SettingsUpdate{
		RequestID: uuid.NewString(),
		Surface:   g.surface,
		Settings:  document,
		Timestamp: time.Now().UTC(),
	}
	payload, err := json.Marshal(update)
	if err != nil {
		return fmt.Errorf("encode settings update: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	msg, err := g.bus.Request(ctx, protocol.SubjectSettingsSet, payload)
	if err != nil {
		return fmt.Errorf("settings write: %w", err)
	}

	var ack protocol.SettingsAck
	if err := json.Unmarshal(msg.Data, &ack); err != nil {
		return fmt.Errorf("decode settings ack: %w", err)
	}
	if !ack.OK {
		return fmt.Errorf("settings write rejected: %s", ack.Error)
	}
	return nil
}
