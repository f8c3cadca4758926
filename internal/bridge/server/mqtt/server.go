package mqtt

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/carbridge-io/carbridge/pkg/log"
	pkgmqtt "github.com/carbridge-io/carbridge/pkg/mqtt"
	"github.com/carbridge-io/carbridge/pkg/mqtt/topic"
)

// Service is the dispatch surface inbound command messages are routed into.
type Service interface {
	DispatchCommand(ctx context.Context, vin, command string, params map[string]any) error
}

// Server subscribes to the per-vehicle command topics and routes each message
// to the dispatch path. Command payloads are optional JSON parameter objects.
type Server struct {
	client pkgmqtt.Client
	topics *topic.Builder
	vins   []string
	svc    Service
}

// NewServer creates the command ingress for the configured vehicles.
func NewServer(client pkgmqtt.Client, topics *topic.Builder, vins []string, svc Service) *Server {
	return &Server{
		client: client,
		topics: topics,
		vins:   vins,
		svc:    svc,
	}
}

func (s *Server) Name() string { return "mqtt-ingress" }

// Start subscribes the command wildcard per vehicle and blocks until ctx is
// canceled. Re-subscription after a broker reconnect is handled by the client.
func (s *Server) Start(ctx context.Context) error {
	for _, vin := range s.vins {
		vin := vin
		filter := s.topics.CommandWildcard(vin)

		handler := func(ctx context.Context, t string, payload []byte) {
			s.handle(ctx, vin, t, payload)
		}
		if err := s.client.Subscribe(ctx, filter, 1, handler); err != nil {
			return fmt.Errorf("subscribing command topic for %s: %w", vin, err)
		}
	}

	<-ctx.Done()
	return nil
}

func (s *Server) handle(ctx context.Context, vin, t string, payload []byte) {
	name := s.topics.CommandName(t)
	if name == "" {
		log.Warn("Ignoring message on malformed command topic", "topic", t)
		return
	}

	var params map[string]any
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &params); err != nil {
			log.Error(err, "Ignoring command with invalid payload", "vin", vin, "command", name)
			return
		}
	}

	if err := s.svc.DispatchCommand(ctx, vin, name, params); err != nil {
		log.Error(err, "Command dispatch failed", "vin", vin, "command", name)
	}
}
