package bridge

import (
	"fmt"

	"github.com/carbridge-io/carbridge/internal/bridge/expectedstate"
	"github.com/carbridge-io/carbridge/internal/bridge/remote"
	"github.com/carbridge-io/carbridge/internal/bridge/server"
	httpserver "github.com/carbridge-io/carbridge/internal/bridge/server/http"
	mqttserver "github.com/carbridge-io/carbridge/internal/bridge/server/mqtt"
	"github.com/carbridge-io/carbridge/internal/cloud"
	pkgmqtt "github.com/carbridge-io/carbridge/pkg/mqtt"
	"github.com/carbridge-io/carbridge/pkg/mqtt/topic"
	"github.com/carbridge-io/carbridge/pkg/options"
)

// Config aggregates the validated option groups the bridge is built from.
type Config struct {
	MqttOptions   *options.MqttOptions
	HttpOptions   *options.HttpOptions
	CloudOptions  *options.CloudOptions
	BridgeOptions *options.BridgeOptions
}

// NewBridgeServer wires the full application: MQTT client with LWT, cloud
// client, one entry with monitor and dispatcher per vehicle, and the ingress
// servers under one manager.
func (cfg *Config) NewBridgeServer() (*BridgeServer, error) {
	topics := topic.NewBuilder(cfg.MqttOptions.TopicRoot)

	clientCfg := cfg.MqttOptions.ToClientConfig()
	clientCfg.WillTopic = topics.BridgeAvailability()
	clientCfg.WillPayload = []byte(payloadOffline)
	clientCfg.WillQoS = 1
	clientCfg.WillRetain = true

	mqttClient, err := pkgmqtt.NewClient(clientCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to init mqtt client: %w", err)
	}

	cloudClient := cloud.NewClient(cfg.CloudOptions)
	pub := newStatePublisher(mqttClient, topics)

	srv := &BridgeServer{
		client:         mqttClient,
		publisher:      pub,
		entries:        make(map[string]*entry, len(cfg.BridgeOptions.VINs)),
		connectTimeout: clientCfg.ConnectTimeout,
	}

	pollCfg := PollingConfig(cfg.BridgeOptions)
	geocode := cfg.CloudOptions.GeocodeURL != ""

	for _, vin := range cfg.BridgeOptions.VINs {
		monitor := expectedstate.NewMonitor()
		e := newEntry(vin, pollCfg, cloudClient, monitor, pub, geocode, cfg.BridgeOptions.RefreshCooldown)
		e.dispatcher = remote.NewDispatcher(cloudClient, monitor, cfg.BridgeOptions.Experimental, e.RequestRefresh)
		srv.entries[vin] = e
	}

	runnables := []server.Runnable{
		httpserver.NewServer(cfg.HttpOptions, srv, srv.Ready),
		mqttserver.NewServer(mqttClient, topics, cfg.BridgeOptions.VINs, srv),
	}
	for _, e := range srv.entries {
		runnables = append(runnables, e)
	}
	srv.manager = server.NewManager(runnables...)

	return srv, nil
}
