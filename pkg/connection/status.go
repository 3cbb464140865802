package connection

import "github.com/dmitrymomot/notifysync/pkg/statemachine"

// Status is the connection status surfaced to the application.
type Status string

const (
	StatusDisconnected Status = "disconnected"
	StatusConnecting   Status = "connecting"
	StatusConnected    Status = "connected"
	StatusError        Status = "error"
)

func (s Status) String() string { return string(s) }

type trigger string

const (
	triggerConnect trigger = "connect"
	triggerRetry   trigger = "retry"
	triggerOpened  trigger = "opened"
	triggerFailed  trigger = "failed"
	triggerLost    trigger = "lost"
	triggerDropped trigger = "dropped"
	triggerStop    trigger = "stop"
)

type statusMachine = statemachine.Machine[Status, trigger]

func newStatusMachine() (*statusMachine, error) {
	return statemachine.New(StatusDisconnected,
		statemachine.WithTransition(StatusDisconnected, triggerConnect, StatusConnecting),
		statemachine.WithTransition(StatusError, triggerConnect, StatusConnecting),
		statemachine.WithTransition(StatusError, triggerRetry, StatusConnecting),
		statemachine.WithTransition(StatusConnecting, triggerRetry, StatusConnecting),
		statemachine.WithTransition(StatusConnecting, triggerOpened, StatusConnected),
		statemachine.WithTransition(StatusConnecting, triggerFailed, StatusError),
		statemachine.WithTransition(StatusConnected, triggerLost, StatusConnecting),
		statemachine.WithTransition(StatusConnected, triggerDropped, StatusDisconnected),
		statemachine.WithTransition(StatusDisconnected, triggerStop, StatusDisconnected),
		statemachine.WithTransition(StatusConnecting, triggerStop, StatusDisconnected),
		statemachine.WithTransition(StatusConnected, triggerStop, StatusDisconnected),
		statemachine.WithTransition(StatusError, triggerStop, StatusDisconnected),
	)
}
