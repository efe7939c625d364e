// Package presence tracks which settings surfaces are currently alive on the
// bus. Surfaces announce themselves once and heartbeat thereafter; a surface
// whose heartbeats stop is marked offline rather than removed, so operators
// can see what used to be connected.
package presence

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/dictalabs/dicta-core/internal/bus"
	"github.com/dictalabs/dicta-core/internal/config"
	"github.com/dictalabs/dicta-core/internal/protocol"
)

// SurfaceInfo is the registry's view of one surface.
type SurfaceInfo struct {
	ID       string    `json:"id"`
	Kind     string    `json:"kind"`
	LastSeen time.Time `json:"last_seen"`
	Online   bool      `json:"online"`
}

type Registry struct {
	cfg       config.SurfaceConfig
	log       *slog.Logger
	bus       *bus.Client
	mu        sync.RWMutex
	surfaces  map[string]*SurfaceInfo
	heartbeat *time.Ticker
	cancel    context.CancelFunc
	subs      []*nats.Subscription
	meter     metric.Meter
}

func NewRegistry(ctx context.Context, cfg config.SurfaceConfig, busClient *bus.Client, log *slog.Logger) (*Registry, error) {
	ctx, cancel := context.WithCancel(ctx)
	r := &Registry{
		cfg:      cfg,
		log:      log.With(slog.String("component", "presence")),
		bus:      busClient,
		surfaces: make(map[string]*SurfaceInfo),
		meter:    otel.Meter("github.com/dictalabs/dicta-core/runtime"),
		cancel:   cancel,
	}

	if err := r.initMetrics(); err != nil {
		r.log.Warn("failed to initialize metrics", slog.String("error", err.Error()))
	}

	if err := r.subscribe(); err != nil {
		r.cancel()
		return nil, err
	}

	r.heartbeat = time.NewTicker(time.Duration(cfg.HeartbeatInterval) * time.Millisecond)
	go r.runHeartbeat(ctx)
	go r.monitor(ctx)

	if err := r.announce(); err != nil {
		r.log.Warn("failed to announce surface", slog.String("error", err.Error()))
	}

	return r, nil
}

func (r *Registry) Close() {
	if r.cancel != nil {
		r.cancel()
	}
	if r.heartbeat != nil {
		r.heartbeat.Stop()
	}
	for _, sub := range r.subs {
		_ = sub.Drain()
	}
}

func (r *Registry) subscribe() error {
	conn := r.bus.Conn()
	announceSub, err := conn.Subscribe(protocol.SubjectSurfaceAnnounce, r.handleAnnounce)
	if err != nil {
		return fmt.Errorf("subscribe announce: %w", err)
	}
	r.subs = append(r.subs, announceSub)

	heartbeatSub, err := conn.Subscribe(protocol.SubjectSurfaceHeartbeatPrefix+".*", r.handleHeartbeat)
	if err != nil {
		return fmt.Errorf("subscribe heartbeat: %w", err)
	}
	r.subs = append(r.subs, heartbeatSub)

	return nil
}

func (r *Registry) runHeartbeat(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-r.heartbeat.C:
			if err := r.publishHeartbeat(); err != nil {
				r.log.Warn("failed to publish heartbeat", slog.String("error", err.Error()))
			}
		}
	}
}

func (r *Registry) monitor(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.evaluate()
		}
	}
}

func (r *Registry) announce() error {
	msg := protocol.SurfaceAnnounce{
		SurfaceID: r.cfg.ID,
		Kind:      r.cfg.Kind,
		Timestamp: time.Now().UTC(),
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	if err := r.bus.Conn().Publish(protocol.SubjectSurfaceAnnounce, payload); err != nil {
		return err
	}
	r.update(msg.SurfaceID, msg.Kind, msg.Timestamp)
	return nil
}

func (r *Registry) publishHeartbeat() error {
	msg := protocol.SurfaceHeartbeat{
		SurfaceID: r.cfg.ID,
		Timestamp: time.Now().UTC(),
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	subject := fmt.Sprintf("%s.%s", protocol.SubjectSurfaceHeartbeatPrefix, r.cfg.ID)
	return r.bus.Conn().Publish(subject, payload)
}

func (r *Registry) handleAnnounce(msg *nats.Msg) {
	var announcement protocol.SurfaceAnnounce
	if err := json.Unmarshal(msg.Data, &announcement); err != nil {
		r.log.Warn("invalid announce message", slog.String("error", err.Error()))
		return
	}
	if announcement.Timestamp.IsZero() {
		announcement.Timestamp = time.Now().UTC()
	}
	r.update(announcement.SurfaceID, announcement.Kind, announcement.Timestamp)
}

func (r *Registry) handleHeartbeat(msg *nats.Msg) {
	var hb protocol.SurfaceHeartbeat
	if err := json.Unmarshal(msg.Data, &hb); err != nil {
		r.log.Warn("invalid heartbeat message", slog.String("error", err.Error()))
		return
	}
	if hb.Timestamp.IsZero() {
		hb.Timestamp = time.Now().UTC()
	}
	r.update(hb.SurfaceID, "", hb.Timestamp)
}

func (r *Registry) update(surfaceID, kind string, timestamp time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.surfaces[surfaceID]
	if !ok {
		s = &SurfaceInfo{ID: surfaceID}
		r.surfaces[surfaceID] = s
	}
	if kind != "" {
		s.Kind = kind
	}
	s.LastSeen = timestamp
	s.Online = true
}

func (r *Registry) evaluate() {
	r.mu.Lock()
	defer r.mu.Unlock()

	timeout := time.Duration(r.cfg.HeartbeatTimeout) * time.Millisecond
	now := time.Now()
	for _, s := range r.surfaces {
		if now.Sub(s.LastSeen) > timeout {
			s.Online = false
		}
	}
}

// Healthy reports whether this process's own surface entry is still online.
func (r *Registry) Healthy() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.surfaces[r.cfg.ID]
	if !ok {
		return false
	}
	return s.Online
}

// Snapshot returns a copy of every known surface.
func (r *Registry) Snapshot() []SurfaceInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	results := make([]SurfaceInfo, 0, len(r.surfaces))
	for _, s := range r.surfaces {
		results = append(results, *s)
	}
	return results
}

func (r *Registry) initMetrics() error {
	if r.meter == nil {
		return nil
	}
	known, err := r.meter.Int64ObservableGauge("dicta.surfaces.known", metric.WithDescription("Number of surfaces ever seen"))
	if err != nil {
		return err
	}
	online, err := r.meter.Int64ObservableGauge("dicta.surfaces.online", metric.WithDescription("Number of surfaces currently online"))
	if err != nil {
		return err
	}
	_, err = r.meter.RegisterCallback(func(ctx context.Context, obs metric.Observer) error {
		knownCount, onlineCount := r.counts()
		obs.ObserveInt64(known, knownCount)
		obs.ObserveInt64(online, onlineCount)
		return nil
	}, known, online)
	return err
}

func (r *Registry) counts() (int64, int64) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var known, online int64
	for _, s := range r.surfaces {
		known++
		if s.Online {
			online++
		}
	}
	return known, online
}
