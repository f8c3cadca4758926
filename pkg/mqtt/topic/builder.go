package topic

import (
	"fmt"
	"strings"
)

// Constants defining the standard topic segments.
// These act as the wire contract between the bridge and the automation
// platform. Changing these values breaks existing automations.
const (
	// SuffixState carries the merged vehicle state document (bridge -> platform).
	// Structure: {root}/state/{vin}
	SuffixState = "state"

	// SuffixAvailability is the online/offline availability topic, also used
	// as the LWT so the platform marks the vehicle unavailable when the
	// bridge drops off the broker.
	// Structure: {root}/availability/{vin}
	SuffixAvailability = "availability"

	// SuffixCommand is the inbound remote-control topic (platform -> bridge).
	// Structure: {root}/cmd/{vin}/{command}
	SuffixCommand = "cmd"
)

// Builder encapsulates the logic for constructing MQTT topic strings.
type Builder struct {
	// root is the base namespace for all topics (e.g. "carbridge/v1").
	root string
}

// NewBuilder creates a new Builder with the specified root namespace.
func NewBuilder(root string) *Builder {
	return &Builder{root: root}
}

// State returns the topic the merged vehicle state is published on.
func (b *Builder) State(vin string) string {
	return b.build(SuffixState, vin)
}

// Availability returns the availability/LWT topic for a vehicle.
func (b *Builder) Availability(vin string) string {
	return b.build(SuffixAvailability, vin)
}

// BridgeAvailability returns the connection-level availability topic. It is
// used as the LWT, since one MQTT connection carries every vehicle.
func (b *Builder) BridgeAvailability() string {
	return b.build(SuffixAvailability, "bridge")
}

// Command returns the topic for a specific remote-control command.
func (b *Builder) Command(vin, command string) string {
	return fmt.Sprintf("%s/%s", b.build(SuffixCommand, vin), command)
}

// CommandWildcard returns the filter the bridge subscribes to for ALL
// commands targeting a vehicle.
// Result: {root}/cmd/{vin}/+
func (b *Builder) CommandWildcard(vin string) string {
	return b.Command(vin, "+")
}

// CommandName extracts the command segment from a received command topic.
// Returns "" when the topic does not match the command shape.
func (b *Builder) CommandName(topic string) string {
	prefix := fmt.Sprintf("%s/%s/", b.root, SuffixCommand)
	if !strings.HasPrefix(topic, prefix) {
		return ""
	}
	rest := strings.TrimPrefix(topic, prefix)
	parts := strings.SplitN(rest, "/", 2)
	if len(parts) != 2 || parts[1] == "" || strings.Contains(parts[1], "/") {
		return ""
	}
	return parts[1]
}

// build is a private helper to construct the final topic string.
// Pattern: {root}/{suffix}/{vin}
func (b *Builder) build(suffix, vin string) string {
	return fmt.Sprintf("%s/%s/%s", b.root, suffix, vin)
}
