package settings

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/dictalabs/dicta-core/internal/bus"
	"github.com/dictalabs/dicta-core/internal/protocol"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Service answers settings requests on the bus. It is the only component
// that touches the persisted document; surfaces and CLIs reach it purely
// through request/reply, which is what lets them live in separate processes.
type Service struct {
	bus     *bus.Client
	store   *Store
	history *History
	log     *slog.Logger
	subs    []*nats.Subscription
	writes  metric.Int64Counter
	ready   bool
}

func NewService(busClient *bus.Client, store *Store, history *History, log *slog.Logger) *Service {
	s := &Service{
		bus:     busClient,
		store:   store,
		history: history,
		log:     log.With(slog.String("component", "settings.service")),
	}
	meter := otel.Meter("github.com/dictalabs/dicta-core/settings")
	if counter, err := meter.Int64Counter("dicta.settings.writes",
		metric.WithDescription("Accepted settings writes")); err == nil {
		s.writes = counter
	} else {
		s.log.Warn("failed to register writes counter", slogError(err))
	}
	return s
}

func (s *Service) Start() error {
	handlers := []struct {
		subject string
		handler nats.MsgHandler
	}{
		{protocol.SubjectSettingsGet, s.handleGet},
		{protocol.SubjectSettingsSet, s.handleSet},
		{protocol.SubjectSettingsHistory, s.handleHistory},
	}
	for _, h := range handlers {
		sub, err := s.bus.Conn().Subscribe(h.subject, h.handler)
		if err != nil {
			s.Close()
			return err
		}
		s.subs = append(s.subs, sub)
	}
	s.ready = true
	return nil
}

func (s *Service) Close() {
	for _, sub := range s.subs {
		if sub != nil {
			_ = sub.Drain()
		}
	}
	s.subs = nil
	s.ready = false
}

func (s *Service) Healthy() bool {
	return s != nil && s.ready
}

func (s *Service) handleGet(msg *nats.Msg) {
	blob, present, err := s.store.Read()
	if err != nil {
		// A broken file reads as absent; the caller falls back to defaults.
		s.log.Warn("settings read failed", slogError(err))
		present = false
	}

	snap := protocol.SettingsSnapshot{Present: present}
	if present {
		data, err := json.Marshal(blob)
		if err != nil {
			s.log.Warn("failed to encode settings snapshot", slogError(err))
			snap = protocol.SettingsSnapshot{}
		} else {
			snap.Settings = data
		}
	}
	s.respond(msg, snap)
}

func (s *Service) handleSet(msg *nats.Msg) {
	var update protocol.SettingsUpdate
	if err := json.Unmarshal(msg.Data, &update); err != nil {
		s.respond(msg, protocol.SettingsAck{Error: "malformed update: " + err.Error()})
		return
	}

	blob := Default()
	if err := json.Unmarshal(update.Settings, &blob); err != nil {
		s.respond(msg, protocol.SettingsAck{Error: "malformed settings document: " + err.Error()})
		return
	}

	if err := s.store.Write(blob); err != nil {
		s.log.Warn("settings write failed", slogError(err), slog.String("surface", update.Surface))
		s.respond(msg, protocol.SettingsAck{Error: err.Error()})
		return
	}

	revisionID := update.RequestID
	if revisionID == "" {
		revisionID = uuid.NewString()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.history.Append(ctx, Revision{
		RevisionID: revisionID,
		Surface:    update.Surface,
		Document:   update.Settings,
	}); err != nil {
		s.log.Warn("failed to append settings revision", slogError(err))
	}

	if s.writes != nil {
		s.writes.Add(ctx, 1, metric.WithAttributes(attribute.String("surface", update.Surface)))
	}

	s.log.Info("settings written",
		slog.String("surface", update.Surface),
		slog.String("revision_id", revisionID))
	s.respond(msg, protocol.SettingsAck{OK: true, RevisionID: revisionID})
}

func (s *Service) handleHistory(msg *nats.Msg) {
	var req protocol.HistoryRequest
	if len(msg.Data) > 0 {
		if err := json.Unmarshal(msg.Data, &req); err != nil {
			s.log.Warn("malformed history request", slogError(err))
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	revisions, err := s.history.List(ctx, req.Limit)
	if err != nil {
		s.log.Warn("history query failed", slogError(err))
	}

	reply := protocol.HistoryReply{}
	for _, r := range revisions {
		reply.Revisions = append(reply.Revisions, protocol.HistoryEntry{
			RevisionID: r.RevisionID,
			Surface:    r.Surface,
			Settings:   r.Document,
			CreatedAt:  r.CreatedAt,
		})
	}
	s.respond(msg, reply)
}

func (s *Service) respond(msg *nats.Msg, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		s.log.Warn("failed to marshal reply", slogError(err))
		return
	}
	if err := msg.Respond(data); err != nil {
		s.log.Warn("failed to send reply", slogError(err), slog.String("subject", msg.Subject))
	}
}

func slogError(err error) slog.Attr {
	return slog.String("error", err.Error())
}
