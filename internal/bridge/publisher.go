package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/carbridge-io/carbridge/internal/vehicle"
	pkgmqtt "github.com/carbridge-io/carbridge/pkg/mqtt"
	"github.com/carbridge-io/carbridge/pkg/mqtt/topic"
)

// Availability payloads. Retained so the platform sees the last known
// liveness even across its own restarts.
const (
	payloadOnline  = "online"
	payloadOffline = "offline"
)

// statePayload is the document published on the per-vehicle state topic. The
// raw record and shadow pass through untouched; reported carries the
// reconciled view of the maskable attributes.
type statePayload struct {
	vehicle.Data
	Reported  vehicle.ReportedState `json:"reported"`
	UpdatedAt time.Time             `json:"updated_at"`
}

// statePublisher writes the bridge's egress topics.
type statePublisher struct {
	client pkgmqtt.Client
	topics *topic.Builder
}

func newStatePublisher(client pkgmqtt.Client, topics *topic.Builder) *statePublisher {
	return &statePublisher{client: client, topics: topics}
}

// PublishState publishes the merged vehicle document, retained at QoS 1.
func (p *statePublisher) PublishState(ctx context.Context, vin string, data vehicle.Data, view vehicle.ReportedState, now time.Time) error {
	payload, err := json.Marshal(statePayload{
		Data:      data,
		Reported:  view,
		UpdatedAt: now,
	})
	if err != nil {
		return fmt.Errorf("encoding state payload: %w", err)
	}

	return p.client.Publish(ctx, p.topics.State(vin), 1, true, payload)
}

// PublishAvailability publishes the per-vehicle availability topic.
func (p *statePublisher) PublishAvailability(ctx context.Context, vin string, online bool) error {
	payload := payloadOffline
	if online {
		payload = payloadOnline
	}
	return p.client.Publish(ctx, p.topics.Availability(vin), 1, true, []byte(payload))
}

// PublishBridgeAvailability publishes the connection-level availability topic
// that pairs with the LWT.
func (p *statePublisher) PublishBridgeAvailability(ctx context.Context, online bool) error {
	payload := payloadOffline
	if online {
		payload = payloadOnline
	}
	return p.client.Publish(ctx, p.topics.BridgeAvailability(), 1, true, []byte(payload))
}
