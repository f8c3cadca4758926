package remote

import (
	"context"

	"github.com/looplab/fsm"

	"github.com/carbridge-io/carbridge/pkg/log"
)

// Command lifecycle states and events.
const (
	statePending   = "pending"
	stateSent      = "sent"
	stateSucceeded = "succeeded"
	stateFailed    = "failed"

	eventSend    = "event_send"
	eventSucceed = "event_succeed"
	eventFail    = "event_fail"
)

// newLifecycle tracks one dispatched command through
// pending -> sent -> {succeeded, failed}. The FSM guards against double
// completion and gives every command a uniform transition log.
func newLifecycle(cmd Command) *fsm.FSM {
	return fsm.NewFSM(
		statePending,
		fsm.Events{
			{Name: eventSend, Src: []string{statePending}, Dst: stateSent},
			{Name: eventSucceed, Src: []string{stateSent}, Dst: stateSucceeded},
			{Name: eventFail, Src: []string{stateSent}, Dst: stateFailed},
		},
		fsm.Callbacks{
			"enter_state": func(ctx context.Context, e *fsm.Event) {
				log.Debug("Command lifecycle transition",
					"kind", string(cmd.Kind),
					"vin", cmd.VIN,
					"from", e.Src,
					"to", e.Dst)
			},
		},
	)
}
