package recognition

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/dictalabs/dicta-core/internal/bus"
	"github.com/dictalabs/dicta-core/internal/config"
	"github.com/dictalabs/dicta-core/internal/protocol"
)

// Service answers credential test requests over the bus.
type Service struct {
	cfg    config.RecognitionConfig
	bus    *bus.Client
	tester Tester
	log    *slog.Logger
	sub    *nats.Subscription
	ready  bool
}

func NewService(cfg config.RecognitionConfig, busClient *bus.Client, tester Tester, log *slog.Logger) *Service {
	return &Service{
		cfg:    cfg,
		bus:    busClient,
		tester: tester,
		log:    log.With(slog.String("component", "recognition")),
	}
}

func (s *Service) Start() error {
	if !s.cfg.Enabled {
		return nil
	}
	sub, err := s.bus.Conn().Subscribe(protocol.SubjectRecognitionTest, s.handleTest)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", protocol.SubjectRecognitionTest, err)
	}
	s.sub = sub
	s.ready = true
	return nil
}

func (s *Service) Close() {
	if s.sub != nil {
		_ = s.sub.Drain()
	}
}

func (s *Service) Healthy() bool {
	return !s.cfg.Enabled || s.ready
}

func (s *Service) handleTest(msg *nats.Msg) {
	var req protocol.RecognitionTestRequest
	if err := json.Unmarshal(msg.Data, &req); err != nil {
		s.log.Warn("invalid recognition test request", slogError(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	result := s.tester.Test(ctx, Credentials{
		Service:           req.Service,
		WhisperKey:        req.WhisperKey,
		AzureKey:          req.AzureKey,
		AzureRegion:       req.AzureRegion,
		GoogleCredentials: req.GoogleCredentials,
	})

	payload, err := json.Marshal(protocol.RecognitionTestResult{
		Success: result.Success,
		Message: result.Message,
	})
	if err != nil {
		s.log.Warn("encode recognition test result", slogError(err))
		return
	}
	if msg.Reply == "" {
		return
	}
	if err := msg.Respond(payload); err != nil {
		s.log.Warn("respond recognition test", slogError(err))
	}
}

func slogError(err error) slog.Attr {
	return slog.String("error", err.Error())
}
