package expectedstate

import (
	"sync"
	"time"

	"github.com/carbridge-io/carbridge/internal/vehicle"
	"github.com/carbridge-io/carbridge/pkg/log"
)

// Kind identifies the vehicle attribute value a remote command is expected
// to produce.
type Kind string

const (
	ClimateOn  Kind = "climate_on"
	ClimateOff Kind = "climate_off"
	Locked     Kind = "locked"
	Unlocked   Kind = "unlocked"
	EngineOn   Kind = "engine_on"
	EngineOff  Kind = "engine_off"
)

// opposite returns the kind that contradicts k. Recording an intent clears
// its opposite: "unlock" supersedes a still-pending "lock".
func (k Kind) opposite() Kind {
	switch k {
	case ClimateOn:
		return ClimateOff
	case ClimateOff:
		return ClimateOn
	case Locked:
		return Unlocked
	case Unlocked:
		return Locked
	case EngineOn:
		return EngineOff
	case EngineOff:
		return EngineOn
	}
	return ""
}

// Intent records what the vehicle was just told to become, and until when the
// bridge keeps pretending it already happened.
type Intent struct {
	Kind     Kind
	IssuedAt time.Time
	Expiry   time.Time
}

// Default per-kind timeouts. Climate and engine changes take the vehicle
// cloud noticeably longer to report than lock toggles.
var defaultTimeouts = map[Kind]time.Duration{
	ClimateOn:  10 * time.Minute,
	ClimateOff: 5 * time.Minute,
	EngineOn:   10 * time.Minute,
	EngineOff:  5 * time.Minute,
	Locked:     2 * time.Minute,
	Unlocked:   2 * time.Minute,
}

// Monitor masks eventually-consistent cloud state after a remote command.
// Each intent kind follows NONE -> PENDING -> {CONFIRMED, EXPIRED} -> NONE:
// Expect moves it to PENDING, Reconcile resolves it. At most one intent per
// kind is active; a repeated Expect replaces the prior intent.
type Monitor struct {
	mu       sync.Mutex
	timeouts map[Kind]time.Duration
	intents  map[Kind]Intent
}

// Option customizes a Monitor.
type Option func(*Monitor)

// WithTimeout overrides the masking timeout for one intent kind.
func WithTimeout(kind Kind, timeout time.Duration) Option {
	return func(m *Monitor) {
		m.timeouts[kind] = timeout
	}
}

// NewMonitor creates a Monitor with default per-kind timeouts.
func NewMonitor(opts ...Option) *Monitor {
	m := &Monitor{
		timeouts: make(map[Kind]time.Duration, len(defaultTimeouts)),
		intents:  make(map[Kind]Intent),
	}
	for k, d := range defaultTimeouts {
		m.timeouts[k] = d
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Expect records an intent for kind, replacing any prior intent of the same
// kind and clearing a pending opposite. It must be called before the remote
// command is sent so no fetch can slip in between and publish stale state.
func (m *Monitor) Expect(kind Kind, now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.intents, kind.opposite())
	m.intents[kind] = Intent{
		Kind:     kind,
		IssuedAt: now,
		Expiry:   now.Add(m.timeouts[kind]),
	}

	log.Debug("Expected state recorded", "kind", string(kind), "expiry", m.intents[kind].Expiry)
}

// Active returns a copy of the currently pending intents.
func (m *Monitor) Active() []Intent {
	m.mu.Lock()
	defer m.mu.Unlock()

	intents := make([]Intent, 0, len(m.intents))
	for _, intent := range m.intents {
		intents = append(intents, intent)
	}
	return intents
}

// Reconcile resolves every pending intent against the cloud-reported state
// and returns the view to publish. Expired intents are dropped and the real
// value passes through; intents the cloud already confirms are dropped the
// same way; anything still pending overrides the reported value. The input
// is never modified.
func (m *Monitor) Reconcile(reported vehicle.ReportedState, now time.Time) vehicle.ReportedState {
	m.mu.Lock()
	defer m.mu.Unlock()

	view := reported
	view.ClimateOn = m.resolve(ClimateOn, ClimateOff, reported.ClimateOn, now)
	view.DoorsLocked = m.resolve(Locked, Unlocked, reported.DoorsLocked, now)
	view.EngineOn = m.resolve(EngineOn, EngineOff, reported.EngineOn, now)
	return view
}

// resolve handles the one attribute the (on, off) kind pair maps to. Expect
// keeps the pair mutually exclusive, so at most one of the two is pending.
func (m *Monitor) resolve(on, off Kind, reported *bool, now time.Time) *bool {
	kind, desired := on, true
	intent, ok := m.intents[kind]
	if !ok {
		kind, desired = off, false
		if intent, ok = m.intents[kind]; !ok {
			return reported
		}
	}

	if !now.Before(intent.Expiry) {
		delete(m.intents, kind)
		log.Debug("Expected state expired", "kind", string(kind))
		return reported
	}

	if reported != nil && *reported == desired {
		delete(m.intents, kind)
		log.Debug("Expected state confirmed", "kind", string(kind))
		return reported
	}

	masked := desired
	return &masked
}
